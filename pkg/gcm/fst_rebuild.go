package gcm

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hansbonini/gcmtools/pkg/common"
)

type tableBuilder struct {
	alignment  uint64
	entries    []Entry
	fileOffset uint64 // relative to the start of the file data region
	nameOffset uint64
	fileCount  int
}

// RebuildTable scans the directory tree at root and builds a new table.
// Hidden entries and the system data directory are skipped. File offsets in
// the result are relative to the start of the file data region; callers shift
// them with ShiftFileOffsets once that region's absolute offset is known.
// TotalFileSystemSize is the aligned size of the file data region.
func RebuildTable(root string, alignment uint64) (*Table, error) {
	if alignment < MinAlignment {
		return nil, fmt.Errorf("%w: %d (minimum %d)", ErrInvalidAlignment, alignment, MinAlignment)
	}

	rootEntry := &DirectoryEntry{
		EntryInfo: EntryInfo{
			Index:          0,
			Name:           "/",
			DirectoryIndex: NoDirectory,
			FullPath:       "/",
		},
	}
	b := &tableBuilder{
		alignment: alignment,
		entries:   []Entry{rootEntry},
	}

	files, err := b.scan(root, 0, "/")
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToScanRoot, err)
	}
	rootEntry.NextIndex = len(b.entries)
	rootEntry.FileCount = files

	table := &Table{
		FileCount:           b.fileCount,
		TotalFileSystemSize: b.fileOffset,
		Entries:             b.entries,
		Size:                uint64(len(b.entries))*EntrySize + b.nameOffset,
	}
	common.LogDebug(common.InfoFSTRebuilt, len(table.Entries), table.FileCount, table.Size)
	return table, nil
}

// skipEntry reports whether a host file system entry is left out of the table
func skipEntry(name string) bool {
	return strings.HasPrefix(name, ".") || name == SystemDataDir
}

// scan appends the children of dir (a host path) to the table and returns how
// many of them are files.
func (b *tableBuilder) scan(dir string, dirIndex int, fullPath string) (int, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	files := 0
	for _, child := range children {
		name := child.Name()
		if skipEntry(name) {
			common.LogDebug(common.DebugSkipEntry, filepath.Join(dir, name))
			continue
		}
		hostPath := filepath.Join(dir, name)
		stat, err := os.Stat(hostPath)
		if err != nil {
			return 0, err
		}

		if b.nameOffset > common.MaxUint24 {
			return 0, fmt.Errorf("%w: string table exceeds 2^24 bytes", ErrTableOverflow)
		}
		info := EntryInfo{
			Index:          len(b.entries),
			Name:           name,
			FilenameOffset: b.nameOffset,
			DirectoryIndex: dirIndex,
			FullPath:       path.Join(fullPath, name),
		}
		b.nameOffset += uint64(len(name)) + 1
		common.LogDebug(common.DebugScanEntry, info.FullPath, info.Index, info.FilenameOffset)

		if stat.IsDir() {
			entry := &DirectoryEntry{EntryInfo: info, ParentIndex: dirIndex}
			b.entries = append(b.entries, entry)
			entry.FileCount, err = b.scan(hostPath, info.Index, info.FullPath)
			if err != nil {
				return 0, err
			}
			entry.NextIndex = len(b.entries)
			continue
		}

		size, err := common.SafeInt64ToUint64(stat.Size())
		if err != nil {
			return 0, err
		}
		b.entries = append(b.entries, &FileEntry{
			EntryInfo:  info,
			FileOffset: b.fileOffset,
			Size:       size,
		})
		b.fileOffset += common.Align(size, b.alignment)
		b.fileCount++
		files++
	}
	return files, nil
}
