package gcm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hansbonini/gcmtools/pkg/common"
)

// SystemFileCount is the number of files written to SystemDataDir on extraction
const SystemFileCount = 4

// Game is an opened disc image
type Game struct {
	Offset    uint64
	Header    *Header
	Apploader *Apploader
	DOL       *DOLHeader
	FST       *Table
}

// OpenGame reads the header, apploader, executable header and file system
// table of the image that starts at offset in reader.
func OpenGame(reader io.ReadSeeker, offset uint64) (*Game, error) {
	base, err := common.SafeUint64ToInt64(offset)
	if err != nil {
		return nil, err
	}
	header, err := ReadHeader(reader, base)
	if err != nil {
		return nil, err
	}
	apploader, err := ReadApploader(reader, base+ApploaderOffset)
	if err != nil {
		return nil, err
	}
	dol, err := ReadDOLHeader(reader, offset+header.DOLOffset)
	if err != nil {
		return nil, err
	}
	fst, err := ReadTable(reader, offset+header.FSTOffset)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToReadFST, err)
	}
	return &Game{
		Offset:    offset,
		Header:    header,
		Apploader: apploader,
		DOL:       dol,
		FST:       fst,
	}, nil
}

// Layout indexes every region of the image
func (g *Game) Layout() *Layout {
	regions := make([]Region, 0, 4+len(g.DOL.Segments)+g.FST.FileCount)
	regions = append(regions,
		Region{Name: HeaderPath, Kind: HeaderRegion, Start: g.Offset, Length: HeaderSize},
		Region{Name: ApploaderPath, Kind: ApploaderRegion, Start: g.Offset + ApploaderOffset, Length: g.Apploader.TotalSize()},
		Region{Name: DOLPath, Kind: DOLHeaderRegion, Start: g.DOL.Offset, Length: DOLHeaderSize},
	)
	for _, s := range g.DOL.Segments {
		regions = append(regions, Region{Name: s.Name(), Kind: DOLSegmentRegion, Start: s.Offset, Length: s.Size})
	}
	regions = append(regions, Region{Name: FSTPath, Kind: FSTRegion, Start: g.FST.Offset, Length: g.FST.Size})
	for _, f := range g.FST.Files() {
		regions = append(regions, Region{Name: f.FullPath, Kind: FileRegion, Start: f.FileOffset, Length: f.Size})
	}
	return NewLayout(regions)
}

// Extract writes the system data and the whole file system to dest, which
// must not exist yet. The progress callback counts system files too.
func (g *Game) Extract(ctx context.Context, reader io.ReadSeeker, dest string, progress ProgressFunc) (int, error) {
	if err := os.Mkdir(dest, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("%w: %s", ErrDestinationExists, dest)
		}
		return 0, common.FormatError(common.ErrFailedToCreateDirectory, err)
	}
	systemDir := filepath.Join(dest, SystemDataDir)
	if err := os.Mkdir(systemDir, 0o755); err != nil {
		return 0, common.FormatError(common.ErrFailedToCreateDirectory, err)
	}

	common.LogInfo(common.InfoExtractingSystemData)
	count := 0
	for _, name := range []string{HeaderFile, FSTFile, ApploaderFile, DOLFile} {
		if err := g.extractSystemFile(reader, name, filepath.Join(systemDir, name)); err != nil {
			return count, common.FormatError(common.ErrFailedToExtractSystem, err)
		}
		count++
		if progress != nil {
			progress(count)
		}
	}

	common.LogInfo(common.InfoExtractingFiles)
	written, err := g.FST.ExtractFileSystem(ctx, dest, reader, func(n int) {
		if progress != nil {
			progress(count + n)
		}
	})
	count += written
	if err != nil {
		return count, common.FormatError(common.ErrFailedToExtractFiles, err)
	}
	return count, nil
}

func (g *Game) extractSystemFile(reader io.ReadSeeker, name, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return common.FormatError(common.ErrFailedToCreateOutputFile, err)
	}
	if err := g.WriteSystemFile(reader, name, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WriteSystemFile copies one of the system data files (ISO.hdr, Apploader.ldr,
// Start.dol or Game.toc) from the image to w.
func (g *Game) WriteSystemFile(reader io.ReadSeeker, name string, w io.Writer) error {
	switch name {
	case HeaderFile:
		return copyRegion(reader, w, g.Offset, HeaderSize)
	case ApploaderFile:
		return copyRegion(reader, w, g.Offset+ApploaderOffset, g.Apploader.TotalSize())
	case DOLFile:
		return g.DOL.Extract(reader, w)
	case FSTFile:
		return copyRegion(reader, w, g.FST.Offset, g.FST.Size)
	default:
		return fmt.Errorf("%w: unknown system file %s", ErrInvalidData, name)
	}
}

// ExtractSection extracts a single named section to output: a system data
// file ("&&systemdata/Start.dol"), a path in the file system table, or an
// executable segment (".text0"). It returns false when nothing matches.
func (g *Game) ExtractSection(ctx context.Context, reader io.ReadSeeker, name, output string) (bool, error) {
	clean := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if dir, file := path.Split(clean); dir == SystemDataDir+"/" {
		switch file {
		case HeaderFile, ApploaderFile, DOLFile, FSTFile:
			return true, g.extractSystemFile(reader, file, output)
		}
	}

	if clean != "" {
		if e, ok := g.FST.EntryForPath(clean); ok {
			_, err := ExtractEntry(ctx, e, g.FST.Entries, output, reader, nil)
			return true, err
		}
	}

	if kind, number, ok := ParseSegmentName(name); ok {
		segment, found := g.DOL.FindSegment(kind, number)
		if !found {
			return false, nil
		}
		out, err := os.Create(output)
		if err != nil {
			return true, common.FormatError(common.ErrFailedToCreateOutputFile, err)
		}
		if err := segment.Extract(reader, out); err != nil {
			out.Close()
			return true, err
		}
		return true, out.Close()
	}
	return false, nil
}
