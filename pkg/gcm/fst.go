package gcm

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/hansbonini/gcmtools/pkg/common"
)

const maxPreallocEntries = 1 << 16

// Table is a parsed or rebuilt file system table.
type Table struct {
	Offset              uint64 // absolute offset of the table in the image
	FileCount           int    // number of file entries (directories excluded)
	TotalFileSystemSize uint64 // sum of file sizes (aligned sizes when rebuilt)
	Entries             []Entry
	Size                uint64 // records plus string table, in bytes
}

// ReadTable parses the table that starts at offset in reader. The reader may
// be a whole disc image or a standalone Game.toc (offset 0).
func ReadTable(reader io.ReadSeeker, offset uint64) (*Table, error) {
	start, err := common.SafeUint64ToInt64(offset)
	if err != nil {
		return nil, fmt.Errorf("%w: table offset: %v", ErrInvalidData, err)
	}
	end, err := reader.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := reader.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	records := bufio.NewReader(reader)
	record := make([]byte, EntrySize)

	if _, err := io.ReadFull(records, record); err != nil {
		return nil, fmt.Errorf("failed to read root record: %w", err)
	}
	rootEntry, err := decodeEntry(record, 0, NoDirectory)
	if err != nil {
		return nil, err
	}
	root, ok := rootEntry.(*DirectoryEntry)
	if !ok {
		return nil, fmt.Errorf("%w: root FST entry is not a directory", ErrInvalidData)
	}
	count := root.NextIndex
	if count < 1 {
		return nil, fmt.Errorf("%w: root FST entry reports %d entries", ErrInvalidData, count)
	}
	if end < start || uint64(count)*EntrySize > uint64(end-start) {
		return nil, fmt.Errorf("%w: %d FST records do not fit in the %d bytes after 0x%X",
			ErrInvalidData, count, max(end-start, 0), offset)
	}

	// count comes from untrusted data; grow past this as records are read
	table := &Table{
		Offset:  offset,
		Entries: make([]Entry, 0, min(count, maxPreallocEntries)),
	}
	table.Entries = append(table.Entries, root)

	// open directories as (index, next index)
	type openDir struct{ index, next int }
	parents := []openDir{{0, count}}

	for index := 1; index < count; index++ {
		for len(parents) > 0 && parents[len(parents)-1].next == index {
			parents = parents[:len(parents)-1]
		}
		directoryIndex := NoDirectory
		if len(parents) > 0 {
			directoryIndex = parents[len(parents)-1].index
		}

		if _, err := io.ReadFull(records, record); err != nil {
			return nil, fmt.Errorf("failed to read FST record %d: %w", index, err)
		}
		e, err := decodeEntry(record, index, directoryIndex)
		if err != nil {
			return nil, err
		}

		switch entry := e.(type) {
		case *FileEntry:
			table.FileCount++
			table.TotalFileSystemSize += entry.Size
			common.LogDebug(common.DebugFSTRecord, index, false, entry.FilenameOffset, entry.FileOffset, entry.Size, directoryIndex)
		case *DirectoryEntry:
			if entry.NextIndex <= index || entry.NextIndex > count {
				return nil, fmt.Errorf("%w: directory %d has next index %d outside (%d, %d]",
					ErrInvalidData, index, entry.NextIndex, index, count)
			}
			parents = append(parents, openDir{index, entry.NextIndex})
			common.LogDebug(common.DebugFSTRecord, index, true, entry.FilenameOffset, entry.ParentIndex, entry.NextIndex, directoryIndex)
		}
		table.Entries = append(table.Entries, e)
	}

	stringTable := start + int64(count)*EntrySize
	end = stringTable
	for _, e := range table.Entries {
		info := e.Info()
		if info.Index == 0 {
			info.Name = "/"
			continue
		}
		name, pos, err := common.ReadCString(reader, stringTable+int64(info.FilenameOffset))
		if err != nil {
			return nil, fmt.Errorf("failed to read name of FST entry %d: %w", info.Index, err)
		}
		info.Name = name
		if pos > end {
			end = pos
		}
	}
	common.LogDebug(common.DebugFSTStringTable, stringTable, end)

	table.Size = uint64(end - start)
	table.resolvePaths()
	table.countFiles()
	return table, nil
}

// resolvePaths fills FullPath for every entry by walking DirectoryIndex links
func (t *Table) resolvePaths() {
	for _, e := range t.Entries {
		e.Info().FullPath = t.fullPath(e.Info())
	}
}

func (t *Table) fullPath(info *EntryInfo) string {
	names := []string{info.Name}
	for current := info; current.HasDirectory(); {
		if current.DirectoryIndex < 0 || current.DirectoryIndex >= len(t.Entries) {
			break
		}
		current = t.Entries[current.DirectoryIndex].Info()
		names = append(names, current.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return path.Join(names...)
}

// countFiles sets FileCount on every directory to its number of direct files
func (t *Table) countFiles() {
	for _, e := range t.Entries {
		dir, ok := e.(*DirectoryEntry)
		if !ok {
			continue
		}
		dir.FileCount = 0
		for child := range dir.Contents(t.Entries) {
			if !child.IsDir() {
				dir.FileCount++
			}
		}
	}
}

// Root returns the root directory entry
func (t *Table) Root() *DirectoryEntry {
	return t.Entries[0].(*DirectoryEntry)
}

// Parent returns the directory containing e, or false for the root
func (t *Table) Parent(e Entry) (*DirectoryEntry, bool) {
	info := e.Info()
	if !info.HasDirectory() || info.DirectoryIndex >= len(t.Entries) {
		return nil, false
	}
	dir, ok := t.Entries[info.DirectoryIndex].(*DirectoryEntry)
	return dir, ok
}

// EntryForPath resolves a slash-separated path (leading slash optional) to an
// entry. When siblings share a name the first one in table order wins.
func (t *Table) EntryForPath(p string) (Entry, bool) {
	var current Entry = t.Entries[0]
	for _, component := range strings.Split(strings.Trim(p, "/"), "/") {
		if component == "" || component == "." {
			continue
		}
		dir, ok := current.(*DirectoryEntry)
		if !ok {
			return nil, false
		}
		var next Entry
		for child := range dir.Contents(t.Entries) {
			if child.Info().Name == component {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}

// CheckNames verifies that every entry name is usable as a host path
// component and that no directory holds two children with the same name.
func (t *Table) CheckNames() error {
	for _, e := range t.Entries {
		dir, ok := e.(*DirectoryEntry)
		if !ok {
			continue
		}
		seen := make(map[string]struct{})
		for child := range dir.Contents(t.Entries) {
			name := child.Info().Name
			if err := checkEntryName(name); err != nil {
				return err
			}
			if _, dup := seen[name]; dup {
				return fmt.Errorf("%w: %s", ErrDuplicateName, child.Info().FullPath)
			}
			seen[name] = struct{}{}
		}
	}
	return nil
}

// checkEntryName rejects names that would resolve outside their parent
// directory once joined to a host path.
func checkEntryName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: unsafe entry name %q", ErrInvalidData, name)
	}
	return nil
}

// Files returns every file entry in table order
func (t *Table) Files() []*FileEntry {
	files := make([]*FileEntry, 0, t.FileCount)
	for _, e := range t.Entries {
		if f, ok := e.(*FileEntry); ok {
			files = append(files, f)
		}
	}
	return files
}

// ShiftFileOffsets adds delta to the offset of every file entry
func (t *Table) ShiftFileOffsets(delta uint64) {
	for _, f := range t.Files() {
		f.FileOffset += delta
	}
}

// WriteTo writes the records followed by the string table. Names are emitted
// once per distinct filename offset, in offset order; the root has no name.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64

	names := make(map[uint64]string, len(t.Entries))
	for _, e := range t.Entries {
		record, err := encodeEntry(e)
		if err != nil {
			return written, err
		}
		n, err := bw.Write(record[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
		if e.Info().Index != 0 {
			names[e.Info().FilenameOffset] = e.Info().Name
		}
	}

	offsets := make([]uint64, 0, len(names))
	for offset := range names {
		offsets = append(offsets, offset)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	for _, offset := range offsets {
		n, err := bw.WriteString(names[offset])
		written += int64(n)
		if err != nil {
			return written, err
		}
		if err := bw.WriteByte(0); err != nil {
			return written, err
		}
		written++
	}
	return written, bw.Flush()
}
