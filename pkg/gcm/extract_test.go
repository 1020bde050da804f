package gcm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioImage lays the scenario table files out in a small image
func scenarioImage() (*Table, []byte) {
	table := scenarioTable()
	image := make([]byte, 0x140)
	copy(image[0x100:], "0123456789")
	copy(image[0x120:], "abcde")
	return table, image
}

func TestFileEntry_Extract(t *testing.T) {
	table, image := scenarioImage()
	var out bytes.Buffer
	require.NoError(t, table.Entries[2].(*FileEntry).Extract(bytes.NewReader(image), &out))
	assert.Equal(t, "0123456789", out.String())
}

func TestFileEntry_ExtractShortSource(t *testing.T) {
	f := &FileEntry{EntryInfo: EntryInfo{FullPath: "/short.bin"}, FileOffset: 4, Size: 100}
	var out bytes.Buffer
	require.NoError(t, f.Extract(bytes.NewReader([]byte("0123456789")), &out))
	assert.Equal(t, "456789", out.String())
}

func TestTable_ExtractFileSystem(t *testing.T) {
	table, image := scenarioImage()
	dest := filepath.Join(t.TempDir(), "a", "b")

	var calls []int
	count, err := table.ExtractFileSystem(context.Background(), dest, bytes.NewReader(image), func(n int) {
		calls = append(calls, n)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []int{1, 2}, calls)

	a, err := os.ReadFile(filepath.Join(dest, "sub", "a.bin"))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(a))

	b, err := os.ReadFile(filepath.Join(dest, "b.bin"))
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(b))
}

func TestExtractEntry_SingleDirectory(t *testing.T) {
	table, image := scenarioImage()
	dest := filepath.Join(t.TempDir(), "sub")

	count, err := ExtractEntry(context.Background(), table.Entries[1], table.Entries, dest, bytes.NewReader(image), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.FileExists(t, filepath.Join(dest, "a.bin"))
	assert.NoFileExists(t, filepath.Join(dest, "b.bin"))
}

func TestExtractEntry_Cancelled(t *testing.T) {
	table, image := scenarioImage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := table.ExtractFileSystem(ctx, t.TempDir(), bytes.NewReader(image), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, count)
}

func TestTable_ExtractFileSystemUnsafeNames(t *testing.T) {
	for _, name := range []string{"../escaped.txt", "..", ".", "a/b.bin", `a\b.bin`, ""} {
		t.Run(name, func(t *testing.T) {
			table := buildTable(
				&DirectoryEntry{EntryInfo: EntryInfo{Index: 0, Name: "/", DirectoryIndex: NoDirectory, FullPath: "/"}, NextIndex: 2},
				&FileEntry{EntryInfo: EntryInfo{Index: 1, Name: name, DirectoryIndex: 0, FullPath: "/" + name}, FileOffset: 0, Size: 4},
			)
			parent := t.TempDir()
			dest := filepath.Join(parent, "out")

			count, err := table.ExtractFileSystem(context.Background(), dest, bytes.NewReader([]byte("data")), nil)
			assert.ErrorIs(t, err, ErrInvalidData)
			assert.Zero(t, count)
			assert.NoFileExists(t, filepath.Join(parent, "escaped.txt"))

			children, err := os.ReadDir(dest)
			require.NoError(t, err)
			assert.Empty(t, children)
		})
	}
}
