package gcm

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/hansbonini/gcmtools/pkg/common"
)

const (
	apploaderDateSize   = 10
	apploaderHeaderSize = 0x1C
	apploaderAlignment  = 32
)

// Apploader is the header of the secondary boot loader stored at
// ApploaderOffset.
type Apploader struct {
	Date        string
	EntryPoint  uint32
	CodeSize    uint64
	TrailerSize uint64
}

// ReadApploader reads the apploader header at offset in reader
func ReadApploader(reader io.ReadSeeker, offset int64) (*Apploader, error) {
	if _, err := reader.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data := make([]byte, apploaderHeaderSize)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, common.FormatError(common.ErrFailedToReadApploader, err)
	}
	return parseApploader(data), nil
}

func parseApploader(data []byte) *Apploader {
	be := binary.BigEndian
	// 6 bytes of padding follow the date
	return &Apploader{
		Date:        strings.TrimRight(string(data[:apploaderDateSize]), "\x00"),
		EntryPoint:  be.Uint32(data[0x10:]),
		CodeSize:    uint64(be.Uint32(data[0x14:])),
		TrailerSize: uint64(be.Uint32(data[0x18:])),
	}
}

// TotalSize is the on-disc size of the apploader: code and trailer, aligned to 32 bytes
func (a *Apploader) TotalSize() uint64 {
	return common.Align(a.CodeSize+a.TrailerSize, apploaderAlignment)
}
