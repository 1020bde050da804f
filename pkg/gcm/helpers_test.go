package gcm

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testImageSize = 1 << 20
	testAlignment = 32
)

// testHeader builds a boot header with zeroed offsets
func testHeader(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, HeaderSize)
	copy(data[gameCodeOffset:], "GTST")
	copy(data[makerCodeOffset:], "01")
	data[diskIDOffset] = 0
	data[versionOffset] = 1
	binary.BigEndian.PutUint32(data[magicOffset:], MagicWord)
	copy(data[titleOffset:], "Test Game")
	binary.BigEndian.PutUint32(data[informationOffset+0x18:], 1)
	// bytes past the information block are not interpreted
	copy(data[0x1000:], "opaque")
	return data
}

// testApploader builds a 64 byte apploader (code 0x30 + trailer 0x10)
func testApploader() []byte {
	data := make([]byte, 0x40)
	copy(data, "2004/01/01")
	binary.BigEndian.PutUint32(data[0x10:], 0x81200000)
	binary.BigEndian.PutUint32(data[0x14:], 0x30)
	binary.BigEndian.PutUint32(data[0x18:], 0x10)
	return data
}

// testDOL builds an executable with .text0 (0x40 bytes) and .data0 (0x20 bytes)
func testDOL() []byte {
	data := make([]byte, 0x160)
	be := binary.BigEndian
	be.PutUint32(data[segmentOffsetsOffset:], 0x100)
	be.PutUint32(data[segmentAddressOffset:], 0x80003100)
	be.PutUint32(data[segmentSizesOffset:], 0x40)
	be.PutUint32(data[segmentOffsetsOffset+4*TextSegmentCount:], 0x140)
	be.PutUint32(data[segmentAddressOffset+4*TextSegmentCount:], 0x80004000)
	be.PutUint32(data[segmentSizesOffset+4*TextSegmentCount:], 0x20)
	be.PutUint32(data[dolEntryPointOffset:], 0x80003100)
	for i := 0x100; i < len(data); i++ {
		data[i] = byte(i)
	}
	return data
}

// testTree is the file system of the fixture root, keyed by slash path.
// A nil value marks an empty directory.
var testTree = map[string][]byte{
	"audio/bgm.adp":         bytes.Repeat([]byte{0xA5}, 100),
	"audio/voice/hello.dsp": []byte("hello, world"),
	"empty":                 nil,
	"opening.bnr":           bytes.Repeat([]byte("BNR"), 20),
	"zero.bin":              {},
}

func writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, data, 0o644))
}

// newTestRoot writes an extracted image tree (system data plus testTree)
func newTestRoot(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "root")
	writeFile(t, filepath.Join(root, filepath.FromSlash(HeaderPath)), testHeader(t))
	writeFile(t, filepath.Join(root, filepath.FromSlash(ApploaderPath)), testApploader())
	writeFile(t, filepath.Join(root, filepath.FromSlash(DOLPath)), testDOL())
	for name, data := range testTree {
		p := filepath.Join(root, filepath.FromSlash(name))
		if data == nil {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		writeFile(t, p, data)
	}
	return root
}

func testOptions() RebuildOptions {
	return RebuildOptions{
		Alignment:         testAlignment,
		ImageSize:         testImageSize,
		RebuildSystemData: true,
	}
}

// newTestImage rebuilds the fixture root into an in-memory image
func newTestImage(t *testing.T) (string, []byte) {
	t.Helper()
	root := newTestRoot(t)
	var image bytes.Buffer
	_, err := Rebuild(context.Background(), root, &image, testOptions())
	require.NoError(t, err)
	return root, image.Bytes()
}

// buildTable assembles a table from entries whose names are known, assigning
// filename offsets in table order
func buildTable(entries ...Entry) *Table {
	var nameOffset uint64
	for _, e := range entries[1:] {
		e.Info().FilenameOffset = nameOffset
		nameOffset += uint64(len(e.Info().Name)) + 1
	}
	return &Table{
		Entries: entries,
		Size:    uint64(len(entries))*EntrySize + nameOffset,
	}
}

// scenarioTable is root{sub{a.bin}, b.bin}
func scenarioTable() *Table {
	return buildTable(
		&DirectoryEntry{EntryInfo: EntryInfo{Index: 0, Name: "/", DirectoryIndex: NoDirectory, FullPath: "/"}, NextIndex: 4},
		&DirectoryEntry{EntryInfo: EntryInfo{Index: 1, Name: "sub", DirectoryIndex: 0, FullPath: "/sub"}, ParentIndex: 0, NextIndex: 3},
		&FileEntry{EntryInfo: EntryInfo{Index: 2, Name: "a.bin", DirectoryIndex: 1, FullPath: "/sub/a.bin"}, FileOffset: 0x100, Size: 10},
		&FileEntry{EntryInfo: EntryInfo{Index: 3, Name: "b.bin", DirectoryIndex: 0, FullPath: "/b.bin"}, FileOffset: 0x120, Size: 5},
	)
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Info().Name)
	}
	return out
}
