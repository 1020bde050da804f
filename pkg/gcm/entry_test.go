package gcm

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryEntry_Contents(t *testing.T) {
	table := scenarioTable()
	root := table.Root()
	sub := table.Entries[1].(*DirectoryEntry)

	assert.Equal(t, []string{"sub", "b.bin"}, names(slices.Collect(root.Contents(table.Entries))))
	assert.Equal(t, []string{"a.bin"}, names(slices.Collect(sub.Contents(table.Entries))))

	// every call starts a fresh walk
	assert.Equal(t, []string{"sub", "b.bin"}, names(slices.Collect(root.Contents(table.Entries))))
}

func TestDirectoryEntry_ContentsStopsEarly(t *testing.T) {
	table := scenarioTable()
	var seen []string
	for e := range table.Root().Contents(table.Entries) {
		seen = append(seen, e.Info().Name)
		if len(seen) == 1 {
			break
		}
	}
	assert.Equal(t, []string{"sub"}, seen)
}

func TestDirectoryEntry_ContentsEmpty(t *testing.T) {
	entries := []Entry{
		&DirectoryEntry{EntryInfo: EntryInfo{Index: 0, DirectoryIndex: NoDirectory}, NextIndex: 2},
		&DirectoryEntry{EntryInfo: EntryInfo{Index: 1, DirectoryIndex: 0}, NextIndex: 2},
	}
	assert.Empty(t, slices.Collect(entries[1].(*DirectoryEntry).Contents(entries)))
	assert.Len(t, slices.Collect(entries[0].(*DirectoryEntry).Contents(entries)), 1)
}

func TestEntryRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"file", &FileEntry{EntryInfo: EntryInfo{Index: 3, FilenameOffset: 0x123456}, FileOffset: 0xDEADBEE0, Size: 42}},
		{"directory", &DirectoryEntry{EntryInfo: EntryInfo{Index: 5, FilenameOffset: 7}, ParentIndex: 2, NextIndex: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := encodeEntry(tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.entry.IsDir(), record[0] == directoryTag)

			decoded, err := decodeEntry(record[:], tt.entry.Info().Index, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.entry.IsDir(), decoded.IsDir())
			assert.Equal(t, tt.entry.Info().FilenameOffset, decoded.Info().FilenameOffset)
			f2, f3 := tt.entry.fields()
			d2, d3 := decoded.fields()
			assert.Equal(t, f2, d2)
			assert.Equal(t, f3, d3)
		})
	}
}

func TestDecodeEntry_InvalidTag(t *testing.T) {
	record := make([]byte, EntrySize)
	record[0] = 2
	_, err := decodeEntry(record, 4, 0)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestEncodeEntry_Overflow(t *testing.T) {
	_, err := encodeEntry(&FileEntry{EntryInfo: EntryInfo{FilenameOffset: 1 << 24}})
	assert.ErrorIs(t, err, ErrTableOverflow)

	_, err = encodeEntry(&FileEntry{FileOffset: 1 << 32})
	assert.ErrorIs(t, err, ErrTableOverflow)
}

func TestEntryInfo_HasDirectory(t *testing.T) {
	table := scenarioTable()
	assert.False(t, table.Entries[0].Info().HasDirectory())
	assert.True(t, table.Entries[2].Info().HasDirectory())
}
