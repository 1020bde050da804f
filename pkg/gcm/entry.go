package gcm

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/hansbonini/gcmtools/pkg/common"
)

// NoDirectory is the DirectoryIndex of the root entry
const NoDirectory = -1

// Record tags
const (
	fileTag      = 0
	directoryTag = 1
)

// EntryInfo holds the fields shared by files and directories.
// DirectoryIndex and FullPath are not stored on disc.
type EntryInfo struct {
	Index          int
	Name           string
	FilenameOffset uint64
	DirectoryIndex int
	FullPath       string
}

// Info returns the shared entry fields
func (i *EntryInfo) Info() *EntryInfo {
	return i
}

// HasDirectory reports whether the entry has a containing directory (false for the root)
func (i *EntryInfo) HasDirectory() bool {
	return i.DirectoryIndex != NoDirectory
}

// Entry is one FST record: either a *FileEntry or a *DirectoryEntry.
type Entry interface {
	Info() *EntryInfo
	IsDir() bool
	fields() (uint64, uint64)
}

// FileEntry is a file whose content lives at FileOffset in the disc image
type FileEntry struct {
	EntryInfo
	FileOffset uint64
	Size       uint64
}

// IsDir always returns false for files
func (f *FileEntry) IsDir() bool { return false }

func (f *FileEntry) fields() (uint64, uint64) { return f.FileOffset, f.Size }

// DirectoryEntry is a directory covering the index range [Index+1, NextIndex).
// For the root, NextIndex is the number of entries in the table.
type DirectoryEntry struct {
	EntryInfo
	ParentIndex int
	NextIndex   int
	FileCount   int // direct file children only
}

// IsDir always returns true for directories
func (d *DirectoryEntry) IsDir() bool { return true }

func (d *DirectoryEntry) fields() (uint64, uint64) {
	return uint64(d.ParentIndex), uint64(d.NextIndex)
}

// Contents yields the immediate children of d, skipping over the subtree of
// every child directory. Each call starts a fresh walk.
func (d *DirectoryEntry) Contents(entries []Entry) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for i := d.Index + 1; i < d.NextIndex && i < len(entries); {
			e := entries[i]
			if !yield(e) {
				return
			}
			if sub, ok := e.(*DirectoryEntry); ok && sub.NextIndex > i {
				i = sub.NextIndex
			} else {
				i++
			}
		}
	}
}

// decodeEntry builds an entry from a 12-byte record. Names and paths are
// resolved later, once the string table position is known.
func decodeEntry(record []byte, index, directoryIndex int) (Entry, error) {
	if len(record) < EntrySize {
		return nil, fmt.Errorf("%w: short FST record %d", ErrInvalidData, index)
	}
	nameOffset := uint64(record[1])<<16 | uint64(record[2])<<8 | uint64(record[3])
	field2 := uint64(binary.BigEndian.Uint32(record[4:8]))
	field3 := uint64(binary.BigEndian.Uint32(record[8:12]))

	info := EntryInfo{
		Index:          index,
		FilenameOffset: nameOffset,
		DirectoryIndex: directoryIndex,
	}

	switch record[0] {
	case fileTag:
		return &FileEntry{EntryInfo: info, FileOffset: field2, Size: field3}, nil
	case directoryTag:
		return &DirectoryEntry{EntryInfo: info, ParentIndex: int(field2), NextIndex: int(field3)}, nil
	default:
		return nil, fmt.Errorf("%w: FST record %d has tag 0x%02X", ErrInvalidData, index, record[0])
	}
}

// encodeEntry serializes e into its 12-byte on-disc record
func encodeEntry(e Entry) ([EntrySize]byte, error) {
	var record [EntrySize]byte
	if e.IsDir() {
		record[0] = directoryTag
	}

	nameOffset, err := common.SafeUint64ToUint24(e.Info().FilenameOffset)
	if err != nil {
		return record, fmt.Errorf("%w: entry %d name offset: %v", ErrTableOverflow, e.Info().Index, err)
	}
	common.PutUint24BE(record[1:4], nameOffset)

	field2, field3 := e.fields()
	for i, v := range []uint64{field2, field3} {
		value, err := common.SafeUint64ToUint32(v)
		if err != nil {
			return record, fmt.Errorf("%w: entry %d: %v", ErrTableOverflow, e.Info().Index, err)
		}
		binary.BigEndian.PutUint32(record[4+4*i:], value)
	}
	return record, nil
}
