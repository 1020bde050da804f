package gcm

import (
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/hansbonini/gcmtools/pkg/common"
)

// Segment table layout
const (
	TextSegmentCount = 7
	DataSegmentCount = 11

	segmentCount         = TextSegmentCount + DataSegmentCount
	segmentOffsetsOffset = 0x00
	segmentAddressOffset = 0x48
	segmentSizesOffset   = 0x90
	dolEntryPointOffset  = 0xE0
)

// SegmentKind tells code segments from data segments
type SegmentKind int

const (
	TextSegment SegmentKind = iota
	DataSegment
)

func (k SegmentKind) String() string {
	if k == DataSegment {
		return "data"
	}
	return "text"
}

// Segment is one non-empty segment of the main executable.
// Offset is absolute within the disc image.
type Segment struct {
	Kind        SegmentKind
	Number      int
	Offset      uint64
	LoadAddress uint64
	Size        uint64
}

// Name returns the conventional segment name, e.g. ".text0" or ".data3"
func (s *Segment) Name() string {
	return fmt.Sprintf(".%s%d", s.Kind, s.Number)
}

// Extract copies the segment content to w
func (s *Segment) Extract(reader io.ReadSeeker, w io.Writer) error {
	return copyRegion(reader, w, s.Offset, s.Size)
}

// DOLHeader is the segment table of the main executable (Start.dol)
type DOLHeader struct {
	Offset     uint64
	EntryPoint uint32
	Segments   []Segment
}

// ReadDOLHeader reads the segment table of the executable at offset in reader
func ReadDOLHeader(reader io.ReadSeeker, offset uint64) (*DOLHeader, error) {
	start, err := common.SafeUint64ToInt64(offset)
	if err != nil {
		return nil, fmt.Errorf("%w: DOL offset: %v", ErrInvalidData, err)
	}
	if _, err := reader.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	data := make([]byte, DOLHeaderSize)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, common.FormatError(common.ErrFailedToReadDOL, err)
	}

	be := binary.BigEndian
	dol := &DOLHeader{
		Offset:     offset,
		EntryPoint: be.Uint32(data[dolEntryPointOffset:]),
	}
	for i := 0; i < segmentCount; i++ {
		size := be.Uint32(data[segmentSizesOffset+4*i:])
		if size == 0 {
			continue
		}
		segment := Segment{
			Kind:        TextSegment,
			Number:      i,
			Offset:      offset + uint64(be.Uint32(data[segmentOffsetsOffset+4*i:])),
			LoadAddress: uint64(be.Uint32(data[segmentAddressOffset+4*i:])),
			Size:        uint64(size),
		}
		if i >= TextSegmentCount {
			segment.Kind = DataSegment
			segment.Number = i - TextSegmentCount
		}
		common.LogDebug(common.DebugSegmentRead, segment.Name(), segment.Offset, segment.LoadAddress, segment.Size)
		dol.Segments = append(dol.Segments, segment)
	}
	return dol, nil
}

// Size is the length of the executable: the segment table or the furthest
// segment end, whichever is larger.
func (d *DOLHeader) Size() uint64 {
	size := uint64(DOLHeaderSize)
	for _, s := range d.Segments {
		if end := s.Offset - d.Offset + s.Size; end > size {
			size = end
		}
	}
	return size
}

// FindSegment returns the segment with the given kind and number
func (d *DOLHeader) FindSegment(kind SegmentKind, number int) (*Segment, bool) {
	for i := range d.Segments {
		if d.Segments[i].Kind == kind && d.Segments[i].Number == number {
			return &d.Segments[i], true
		}
	}
	return nil, false
}

// SegmentAtAddress returns the segment loaded over the memory address addr
func (d *DOLHeader) SegmentAtAddress(addr uint64) (*Segment, bool) {
	for i := range d.Segments {
		s := &d.Segments[i]
		if s.LoadAddress <= addr && addr < s.LoadAddress+s.Size {
			return s, true
		}
	}
	return nil, false
}

// Extract copies the whole executable (header and segments) to w
func (d *DOLHeader) Extract(reader io.ReadSeeker, w io.Writer) error {
	return copyRegion(reader, w, d.Offset, d.Size())
}

var segmentNamePattern = regexp.MustCompile(`^\.?(text|data)(\d+)$`)

// ParseSegmentName parses names such as ".text0" or "data3"
func ParseSegmentName(name string) (SegmentKind, int, bool) {
	m := segmentNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	number, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	if m[1] == "data" {
		return DataSegment, number, true
	}
	return TextSegment, number, true
}

// copyRegion copies size bytes starting at offset from reader to w
func copyRegion(reader io.ReadSeeker, w io.Writer, offset, size uint64) error {
	start, err := common.SafeUint64ToInt64(offset)
	if err != nil {
		return err
	}
	length, err := common.SafeUint64ToInt64(size)
	if err != nil {
		return err
	}
	if _, err := reader.Seek(start, io.SeekStart); err != nil {
		return err
	}
	_, err = common.CopySection(reader, w, length)
	return err
}
