package gcm

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	data := testHeader(t)
	binary.BigEndian.PutUint32(data[dolOffsetOffset:], 0x1E800)
	binary.BigEndian.PutUint32(data[fstOffsetOffset:], 0x4B0)
	binary.BigEndian.PutUint32(data[fstSizeOffset:], 0x1234)
	binary.BigEndian.PutUint32(data[maxFSTSizeOffset:], 0x2000)

	h, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, "GTST", h.GameCode)
	assert.Equal(t, "01", h.MakerCode)
	assert.Equal(t, "GTST01", h.GameID())
	assert.Equal(t, uint8(1), h.Version)
	assert.Equal(t, "Test Game", h.Title)
	assert.Equal(t, uint64(0x1E800), h.DOLOffset)
	assert.Equal(t, uint64(0x4B0), h.FSTOffset)
	assert.Equal(t, uint64(0x1234), h.FSTSize)
	assert.Equal(t, uint64(0x2000), h.MaxFSTSize)
	assert.Equal(t, uint32(1), h.Information.CountryCode)
}

func TestReadHeader(t *testing.T) {
	image := append(make([]byte, 16), testHeader(t)...)
	h, err := ReadHeader(bytes.NewReader(image), 16)
	require.NoError(t, err)
	assert.Equal(t, "GTST01", h.GameID())

	_, err = ReadHeader(bytes.NewReader(image[:HeaderSize]), 16)
	assert.Error(t, err)
}

func TestParseHeader_Errors(t *testing.T) {
	_, err := ParseHeader(make([]byte, HeaderSize))
	assert.ErrorIs(t, err, ErrInvalidMagic)

	data := testHeader(t)
	copy(data[titleOffset:], []byte{0xFF, 0xFE, 0x00})
	_, err = ParseHeader(data)
	assert.ErrorIs(t, err, ErrInvalidTitle)

	_, err = ParseHeader(data[:0x100])
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestHeader_BytesPreservesData(t *testing.T) {
	data := testHeader(t)
	// junk after the title terminator survives when the title is untouched
	copy(data[titleOffset+0x100:], "junk")

	h, err := ParseHeader(data)
	require.NoError(t, err)
	encoded, err := h.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, encoded)
}

func TestHeader_BytesPatchesFields(t *testing.T) {
	h, err := ParseHeader(testHeader(t))
	require.NoError(t, err)
	h.DOLOffset = 0x3000
	h.FSTOffset = 0x2480
	h.FSTSize = 0x90
	h.MaxFSTSize = 0x90
	h.Title = "Renamed"

	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(HeaderSize), n)

	parsed, err := ParseHeader(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(0x3000), parsed.DOLOffset)
	assert.Equal(t, uint64(0x2480), parsed.FSTOffset)
	assert.Equal(t, uint64(0x90), parsed.FSTSize)
	assert.Equal(t, uint64(0x90), parsed.MaxFSTSize)
	assert.Equal(t, "Renamed", parsed.Title)
	assert.Equal(t, "opaque", string(buf.Bytes()[0x1000:0x1006]))
}

func TestHeader_BytesOverflow(t *testing.T) {
	h, err := ParseHeader(testHeader(t))
	require.NoError(t, err)
	h.FSTOffset = 1 << 32
	_, err = h.Bytes()
	assert.ErrorIs(t, err, ErrTableOverflow)
}
