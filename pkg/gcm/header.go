package gcm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/hansbonini/gcmtools/pkg/common"
)

// MagicWord identifies a GameCube boot header
const MagicWord = 0xC2339F3D

// Boot header field offsets
const (
	gameCodeOffset         = 0x000
	makerCodeOffset        = 0x004
	diskIDOffset           = 0x006
	versionOffset          = 0x007
	audioStreamingOffset   = 0x008
	streamBufferSizeOffset = 0x009
	magicOffset            = 0x01C
	titleOffset            = 0x020
	titleSize              = 0x3E0
	debugMonitorOffset     = 0x400
	debugMonitorAddrOffset = 0x404
	dolOffsetOffset        = 0x420
	fstOffsetOffset        = 0x424
	fstSizeOffset          = 0x428
	maxFSTSizeOffset       = 0x42C
	userPositionOffset     = 0x430
	userLengthOffset       = 0x434
	unknownOffset          = 0x438
	informationOffset      = 0x440

	gameCodeSize  = 4
	makerCodeSize = 2
)

// HeaderInformation is the "disk header information" block that follows the
// boot header fields at 0x440.
type HeaderInformation struct {
	DebugMonitorSize    uint32 `yaml:"debug_monitor_size"`
	SimulatedMemorySize uint32 `yaml:"simulated_memory_size"`
	ArgumentOffset      uint32 `yaml:"argument_offset"`
	DebugFlag           uint32 `yaml:"debug_flag"`
	TrackLocation       uint32 `yaml:"track_location"`
	TrackSize           uint32 `yaml:"track_size"`
	CountryCode         uint32 `yaml:"country_code"`
	Unknown             uint32 `yaml:"unknown"`
}

// Header is the boot header (ISO.hdr). Bytes the header does not interpret are
// kept as read and written back unchanged.
type Header struct {
	GameCode            string            `yaml:"game_code"`
	MakerCode           string            `yaml:"maker_code"`
	DiskID              uint8             `yaml:"disk_id"`
	Version             uint8             `yaml:"version"`
	AudioStreaming      uint8             `yaml:"audio_streaming"`
	StreamBufferSize    uint8             `yaml:"stream_buffer_size"`
	Title               string            `yaml:"title"`
	DebugMonitorOffset  uint32            `yaml:"debug_monitor_offset"`
	DebugMonitorAddress uint32            `yaml:"debug_monitor_address"`
	DOLOffset           uint64            `yaml:"dol_offset"`
	FSTOffset           uint64            `yaml:"fst_offset"`
	FSTSize             uint64            `yaml:"fst_size"`
	MaxFSTSize          uint64            `yaml:"max_fst_size"`
	UserPosition        uint32            `yaml:"user_position"`
	UserLength          uint32            `yaml:"user_length"`
	Unknown             uint32            `yaml:"unknown"`
	Information         HeaderInformation `yaml:"information"`

	raw      [HeaderSize]byte
	rawTitle string
}

// ReadHeader reads a boot header located at offset in reader
func ReadHeader(reader io.ReadSeeker, offset int64) (*Header, error) {
	if _, err := reader.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data := make([]byte, HeaderSize)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, common.FormatError(common.ErrFailedToReadHeader, err)
	}
	return ParseHeader(data)
}

// ParseHeader decodes a boot header from its raw bytes
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: boot header is %d bytes, expected %d", ErrInvalidData, len(data), HeaderSize)
	}
	be := binary.BigEndian
	if magic := be.Uint32(data[magicOffset:]); magic != MagicWord {
		return nil, fmt.Errorf("%w: got 0x%08X", ErrInvalidMagic, magic)
	}

	title := data[titleOffset : titleOffset+titleSize]
	if end := bytes.IndexByte(title, 0); end >= 0 {
		title = title[:end]
	}
	if !utf8.Valid(title) {
		return nil, ErrInvalidTitle
	}

	h := &Header{
		GameCode:            string(data[gameCodeOffset : gameCodeOffset+gameCodeSize]),
		MakerCode:           string(data[makerCodeOffset : makerCodeOffset+makerCodeSize]),
		DiskID:              data[diskIDOffset],
		Version:             data[versionOffset],
		AudioStreaming:      data[audioStreamingOffset],
		StreamBufferSize:    data[streamBufferSizeOffset],
		Title:               string(title),
		DebugMonitorOffset:  be.Uint32(data[debugMonitorOffset:]),
		DebugMonitorAddress: be.Uint32(data[debugMonitorAddrOffset:]),
		DOLOffset:           uint64(be.Uint32(data[dolOffsetOffset:])),
		FSTOffset:           uint64(be.Uint32(data[fstOffsetOffset:])),
		FSTSize:             uint64(be.Uint32(data[fstSizeOffset:])),
		MaxFSTSize:          uint64(be.Uint32(data[maxFSTSizeOffset:])),
		UserPosition:        be.Uint32(data[userPositionOffset:]),
		UserLength:          be.Uint32(data[userLengthOffset:]),
		Unknown:             be.Uint32(data[unknownOffset:]),
		rawTitle:            string(title),
	}
	info := data[informationOffset:]
	h.Information = HeaderInformation{
		DebugMonitorSize:    be.Uint32(info[0x00:]),
		SimulatedMemorySize: be.Uint32(info[0x04:]),
		ArgumentOffset:      be.Uint32(info[0x08:]),
		DebugFlag:           be.Uint32(info[0x0C:]),
		TrackLocation:       be.Uint32(info[0x10:]),
		TrackSize:           be.Uint32(info[0x14:]),
		CountryCode:         be.Uint32(info[0x18:]),
		Unknown:             be.Uint32(info[0x1C:]),
	}
	copy(h.raw[:], data[:HeaderSize])
	return h, nil
}

// GameID returns the six character game identifier (game code + maker code)
func (h *Header) GameID() string {
	return h.GameCode + h.MakerCode
}

// Bytes encodes the header. The title area is only rewritten when Title has
// been changed since the header was read.
func (h *Header) Bytes() ([]byte, error) {
	data := make([]byte, HeaderSize)
	copy(data, h.raw[:])
	be := binary.BigEndian

	putCode(data[gameCodeOffset:gameCodeOffset+gameCodeSize], h.GameCode)
	putCode(data[makerCodeOffset:makerCodeOffset+makerCodeSize], h.MakerCode)
	data[diskIDOffset] = h.DiskID
	data[versionOffset] = h.Version
	data[audioStreamingOffset] = h.AudioStreaming
	data[streamBufferSizeOffset] = h.StreamBufferSize
	be.PutUint32(data[magicOffset:], MagicWord)

	if h.Title != h.rawTitle {
		if len(h.Title) >= titleSize || !utf8.ValidString(h.Title) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTitle, h.Title)
		}
		title := data[titleOffset : titleOffset+titleSize]
		clear(title)
		copy(title, h.Title)
	}

	be.PutUint32(data[debugMonitorOffset:], h.DebugMonitorOffset)
	be.PutUint32(data[debugMonitorAddrOffset:], h.DebugMonitorAddress)

	for _, field := range []struct {
		offset int
		value  uint64
		name   string
	}{
		{dolOffsetOffset, h.DOLOffset, "DOL offset"},
		{fstOffsetOffset, h.FSTOffset, "FST offset"},
		{fstSizeOffset, h.FSTSize, "FST size"},
		{maxFSTSizeOffset, h.MaxFSTSize, "max FST size"},
	} {
		value, err := common.SafeUint64ToUint32(field.value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTableOverflow, field.name, err)
		}
		be.PutUint32(data[field.offset:], value)
	}

	be.PutUint32(data[userPositionOffset:], h.UserPosition)
	be.PutUint32(data[userLengthOffset:], h.UserLength)
	be.PutUint32(data[unknownOffset:], h.Unknown)

	info := data[informationOffset:]
	be.PutUint32(info[0x00:], h.Information.DebugMonitorSize)
	be.PutUint32(info[0x04:], h.Information.SimulatedMemorySize)
	be.PutUint32(info[0x08:], h.Information.ArgumentOffset)
	be.PutUint32(info[0x0C:], h.Information.DebugFlag)
	be.PutUint32(info[0x10:], h.Information.TrackLocation)
	be.PutUint32(info[0x14:], h.Information.TrackSize)
	be.PutUint32(info[0x18:], h.Information.CountryCode)
	be.PutUint32(info[0x1C:], h.Information.Unknown)
	return data, nil
}

// WriteTo writes the encoded header to w
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	data, err := h.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// putCode copies an ASCII code into a fixed-width field, zero padded
func putCode(field []byte, code string) {
	clear(field)
	copy(field, code)
}
