package pkg

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hansbonini/gcmtools/pkg/common"
	"github.com/hansbonini/gcmtools/pkg/gcm"
)

const testImageSize = 1 << 18

func writeTestFile(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, data, 0o644))
}

// newTestRoot writes an extracted image tree with a one segment DOL
func newTestRoot(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "root")
	be := binary.BigEndian

	header := make([]byte, gcm.HeaderSize)
	copy(header, "GPKG01")
	be.PutUint32(header[0x1C:], gcm.MagicWord)
	copy(header[0x20:], "Processor Test")
	writeTestFile(t, filepath.Join(root, filepath.FromSlash(gcm.HeaderPath)), header)

	loader := make([]byte, 0x20)
	copy(loader, "2003/05/05")
	be.PutUint32(loader[0x14:], 0x20)
	writeTestFile(t, filepath.Join(root, filepath.FromSlash(gcm.ApploaderPath)), loader)

	dol := make([]byte, 0x120)
	be.PutUint32(dol[0x00:], 0x100)
	be.PutUint32(dol[0x48:], 0x80003100)
	be.PutUint32(dol[0x90:], 0x20)
	be.PutUint32(dol[0xE0:], 0x80003100)
	writeTestFile(t, filepath.Join(root, filepath.FromSlash(gcm.DOLPath)), dol)

	writeTestFile(t, filepath.Join(root, "files", "data.bin"), bytes.Repeat([]byte{7}, 300))
	writeTestFile(t, filepath.Join(root, "readme.txt"), []byte("read me"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	return root
}

func newTestProcessor() (*GameProcessor, *bytes.Buffer) {
	var out bytes.Buffer
	return &GameProcessor{Output: &out, ImageSize: testImageSize}, &out
}

// newTestImage rebuilds the fixture root and returns the image path
func newTestImage(t *testing.T) string {
	t.Helper()
	p, _ := newTestProcessor()
	image := filepath.Join(t.TempDir(), "game.iso")
	_, err := p.Rebuild(context.Background(), newTestRoot(t), image, 32, true)
	require.NoError(t, err)
	return image
}

func TestGameProcessor_Rebuild(t *testing.T) {
	p, out := newTestProcessor()
	image := filepath.Join(t.TempDir(), "game.iso")

	result, err := p.Rebuild(context.Background(), newTestRoot(t), image, 32, true)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "files added.")

	data, err := os.ReadFile(image)
	require.NoError(t, err)
	assert.Len(t, data, testImageSize)
	assert.Equal(t, digest.FromBytes(data), result.Digest)
	assert.Equal(t, 2, result.Table.FileCount)
}

func TestGameProcessor_RebuildRefusesExistingOutput(t *testing.T) {
	p, _ := newTestProcessor()
	image := filepath.Join(t.TempDir(), "game.iso")
	writeTestFile(t, image, []byte("keep"))

	_, err := p.Rebuild(context.Background(), newTestRoot(t), image, 32, true)
	assert.ErrorIs(t, err, gcm.ErrDestinationExists)

	data, err := os.ReadFile(image)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestGameProcessor_RebuildRemovesPartialImage(t *testing.T) {
	p, _ := newTestProcessor()
	p.ImageSize = 0x2000
	image := filepath.Join(t.TempDir(), "game.iso")

	_, err := p.Rebuild(context.Background(), newTestRoot(t), image, 32, true)
	assert.ErrorIs(t, err, gcm.ErrImageTooLarge)
	assert.NoFileExists(t, image)
}

func TestGameProcessor_RebuildInvalidAlignment(t *testing.T) {
	p, _ := newTestProcessor()
	image := filepath.Join(t.TempDir(), "game.iso")
	_, err := p.Rebuild(context.Background(), newTestRoot(t), image, 1, true)
	assert.ErrorIs(t, err, gcm.ErrInvalidAlignment)
	assert.NoFileExists(t, image)
}

func TestGameProcessor_Extract(t *testing.T) {
	image := newTestImage(t)
	p, out := newTestProcessor()
	dest := filepath.Join(t.TempDir(), "out")

	count, err := p.Extract(context.Background(), image, dest, "")
	require.NoError(t, err)
	assert.Equal(t, gcm.SystemFileCount+2, count)
	assert.Contains(t, out.String(), "6/6 files written.")
	assert.FileExists(t, filepath.Join(dest, "files", "data.bin"))
	assert.DirExists(t, filepath.Join(dest, "empty"))

	_, err = p.Extract(context.Background(), image, dest, "")
	assert.ErrorIs(t, err, gcm.ErrDestinationExists)
}

func TestGameProcessor_ExtractSection(t *testing.T) {
	image := newTestImage(t)
	p, _ := newTestProcessor()
	dest := filepath.Join(t.TempDir(), "readme.txt")

	_, err := p.Extract(context.Background(), image, dest, "readme.txt")
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "read me", string(data))

	_, err = p.Extract(context.Background(), image, dest, "nothing.bin")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestGameProcessor_Info(t *testing.T) {
	image := newTestImage(t)

	t.Run("summary", func(t *testing.T) {
		p, out := newTestProcessor()
		require.NoError(t, p.Info(image, InfoOptions{}))
		assert.Contains(t, out.String(), "GameID: GPKG01")
		assert.Contains(t, out.String(), "Title: Processor Test")
		assert.Contains(t, out.String(), "/files/data.bin")
	})

	t.Run("header in hex", func(t *testing.T) {
		p, out := newTestProcessor()
		p.Style = common.Hexadecimal
		require.NoError(t, p.Info(image, InfoOptions{Type: InfoHeader}))
		assert.Contains(t, out.String(), "FST offset: 0x2460")
	})

	t.Run("offset lookup", func(t *testing.T) {
		p, out := newTestProcessor()
		offset := uint64(0x2450)
		require.NoError(t, p.Info(image, InfoOptions{Offset: &offset}))
		assert.Contains(t, out.String(), "Name: "+gcm.ApploaderPath)

		padding := uint64(testImageSize - 1)
		assert.Error(t, p.Info(image, InfoOptions{Offset: &padding}))
	})

	t.Run("memory address lookup", func(t *testing.T) {
		p, out := newTestProcessor()
		addr := uint64(0x80003110)
		require.NoError(t, p.Info(image, InfoOptions{MemAddr: &addr}))
		assert.Contains(t, out.String(), "Segment name: .text0")
	})

	t.Run("unknown type", func(t *testing.T) {
		p, _ := newTestProcessor()
		assert.Error(t, p.Info(image, InfoOptions{Type: "bogus"}))
	})

	t.Run("yaml with digest", func(t *testing.T) {
		p, out := newTestProcessor()
		require.NoError(t, p.Info(image, InfoOptions{YAML: true, WithDigest: true}))

		var report Report
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
		data, err := os.ReadFile(image)
		require.NoError(t, err)
		assert.Equal(t, digest.FromBytes(data).String(), report.Digest)
		assert.Equal(t, "GPKG01", report.GameID)
		require.NotNil(t, report.FST)
		assert.Equal(t, 2, report.FST.FileCount)
		require.NotNil(t, report.DOL)
		assert.Len(t, report.DOL.Segments, 1)
		assert.NotEmpty(t, report.Layout)
	})

	t.Run("yaml single section", func(t *testing.T) {
		p, out := newTestProcessor()
		require.NoError(t, p.Info(image, InfoOptions{YAML: true, Type: InfoApploader}))

		var report Report
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
		require.NotNil(t, report.Apploader)
		assert.Equal(t, uint64(0x20), report.Apploader.TotalSize)
		assert.Nil(t, report.Header)
		assert.Nil(t, report.FST)
	})
}

func TestGameProcessor_List(t *testing.T) {
	image := newTestImage(t)

	p, out := newTestProcessor()
	require.NoError(t, p.List(image, "", false))
	assert.Equal(t, []string{"empty/", "files/", "readme.txt"}, strings.Fields(out.String()))

	p, out = newTestProcessor()
	require.NoError(t, p.List(image, "/files", true))
	assert.True(t, strings.HasPrefix(out.String(), "- "))
	assert.Contains(t, out.String(), "300")
	assert.Contains(t, out.String(), "data.bin")

	p, _ = newTestProcessor()
	assert.Error(t, p.List(image, "missing", false))
}

func TestGameProcessor_DisassembleWithoutObjdump(t *testing.T) {
	p, _ := newTestProcessor()
	err := p.Disassemble(context.Background(), "start.bin", "/nonexistent/objdump", 0)
	assert.ErrorIs(t, err, gcm.ErrObjdumpUnavailable)
}
