package gcm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencontainers/go-digest"

	"github.com/hansbonini/gcmtools/pkg/common"
)

// RebuildOptions configures Rebuild
type RebuildOptions struct {
	// Alignment of every file in the data region (and of the FST, DOL and
	// file data region starts). Defaults to DefaultAlignment.
	Alignment uint64
	// ImageSize is the exact size of the emitted image. Defaults to ROMSize.
	ImageSize uint64
	// RebuildSystemData regenerates Game.toc and patches ISO.hdr before
	// writing. When false both are used as found in the root.
	RebuildSystemData bool
	// Progress is called after each region is written
	Progress func(written, total int)
}

// RebuildResult describes an emitted image
type RebuildResult struct {
	Header  *Header
	Table   *Table
	Layout  *Layout
	Written uint64
	Digest  digest.Digest
}

// placement is a host file scheduled at a disc offset
type placement struct {
	offset uint64
	source string
	name   string
}

// Rebuild writes the disc image for the extracted tree at root to w.
// With RebuildSystemData the FST and header files under root are rewritten
// first. A failure leaves w partially written.
func Rebuild(ctx context.Context, root string, w io.Writer, opts RebuildOptions) (*RebuildResult, error) {
	if opts.Alignment == 0 {
		opts.Alignment = DefaultAlignment
	}
	if opts.Alignment < MinAlignment {
		return nil, fmt.Errorf("%w: %d (minimum %d)", ErrInvalidAlignment, opts.Alignment, MinAlignment)
	}
	if opts.ImageSize == 0 {
		opts.ImageSize = ROMSize
	}

	if opts.RebuildSystemData {
		if err := RebuildSystemData(root, opts.Alignment); err != nil {
			return nil, err
		}
	} else {
		common.LogInfo(common.InfoReusingSystemData)
	}

	header, table, placements, err := planImage(root)
	if err != nil {
		return nil, err
	}

	digester := digest.Canonical.Digester()
	bw := bufio.NewWriterSize(io.MultiWriter(w, digester.Hash()), common.WriteChunkSize)
	written, regions, err := writeImage(ctx, bw, placements, opts)
	if err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, common.FormatError(common.ErrFailedToWriteRegion, err)
	}

	result := &RebuildResult{
		Header:  header,
		Table:   table,
		Layout:  NewLayout(regions),
		Written: written,
		Digest:  digester.Digest(),
	}
	common.LogInfo(common.InfoImageWritten, result.Written, result.Digest)
	return result, nil
}

// RebuildSystemData regenerates Game.toc from the tree at root and patches the
// offsets in ISO.hdr to match. Apploader.ldr, Start.dol and the old ISO.hdr
// must already exist under the system data directory.
func RebuildSystemData(root string, alignment uint64) error {
	loaderSize, err := hostFileSize(filepath.Join(root, filepath.FromSlash(ApploaderPath)))
	if err != nil {
		return common.FormatError(common.ErrFailedToReadApploader, err)
	}
	dolSize, err := hostFileSize(filepath.Join(root, filepath.FromSlash(DOLPath)))
	if err != nil {
		return common.FormatError(common.ErrFailedToReadDOL, err)
	}

	table, err := RebuildTable(root, alignment)
	if err != nil {
		return err
	}

	// each region depends on the size of the one before it
	fstOffset := common.Align(ApploaderOffset+loaderSize, alignment)
	dolOffset := common.Align(fstOffset+table.Size, alignment)
	filesOffset := common.Align(dolOffset+dolSize, alignment)
	common.LogDebug(common.DebugLayoutOffsets, fstOffset, table.Size, dolOffset, dolSize, filesOffset)

	table.Offset = fstOffset
	table.ShiftFileOffsets(filesOffset)
	if err := writeHostFile(filepath.Join(root, filepath.FromSlash(FSTPath)), table); err != nil {
		return common.FormatError(common.ErrFailedToWriteFST, err)
	}
	common.LogInfo(common.InfoFSTRebuilt, len(table.Entries), table.FileCount, table.Size)

	headerPath := filepath.Join(root, filepath.FromSlash(HeaderPath))
	header, err := readHostHeader(headerPath)
	if err != nil {
		return err
	}
	header.DOLOffset = dolOffset
	header.FSTOffset = fstOffset
	header.FSTSize = table.Size
	header.MaxFSTSize = table.Size
	if err := writeHostFile(headerPath, header); err != nil {
		return common.FormatError(common.ErrFailedToWriteHeader, err)
	}
	common.LogInfo(common.InfoHeaderRebuilt, header.DOLOffset, header.FSTOffset, header.FSTSize)
	return nil
}

// planImage reads the system data under root and lists every host file with
// its disc offset, sorted by offset.
func planImage(root string) (*Header, *Table, []placement, error) {
	headerPath := filepath.Join(root, filepath.FromSlash(HeaderPath))
	header, err := readHostHeader(headerPath)
	if err != nil {
		return nil, nil, nil, err
	}

	fstPath := filepath.Join(root, filepath.FromSlash(FSTPath))
	fstFile, err := os.Open(fstPath)
	if err != nil {
		return nil, nil, nil, common.FormatError(common.ErrFailedToReadFST, err)
	}
	defer fstFile.Close()
	table, err := ReadTable(fstFile, 0)
	if err != nil {
		return nil, nil, nil, common.FormatError(common.ErrFailedToReadFST, err)
	}
	if err := table.CheckNames(); err != nil {
		return nil, nil, nil, common.FormatError(common.ErrFailedToReadFST, err)
	}
	table.Offset = header.FSTOffset

	placements := []placement{
		{0, headerPath, HeaderPath},
		{ApploaderOffset, filepath.Join(root, filepath.FromSlash(ApploaderPath)), ApploaderPath},
		{header.FSTOffset, fstPath, FSTPath},
		{header.DOLOffset, filepath.Join(root, filepath.FromSlash(DOLPath)), DOLPath},
	}
	for _, f := range table.Files() {
		placements = append(placements, placement{
			offset: f.FileOffset,
			source: filepath.Join(root, filepath.FromSlash(f.FullPath)),
			name:   f.FullPath,
		})
	}
	sort.SliceStable(placements, func(i, j int) bool { return placements[i].offset < placements[j].offset })
	return header, table, placements, nil
}

// writeImage streams every placement to w in offset order, zero filling the
// gaps, and pads the result to opts.ImageSize.
func writeImage(ctx context.Context, w io.Writer, placements []placement, opts RebuildOptions) (uint64, []Region, error) {
	var written uint64
	regions := make([]Region, 0, len(placements))

	for i, p := range placements {
		if err := ctx.Err(); err != nil {
			return written, nil, err
		}
		size, err := hostFileSize(p.source)
		if err != nil {
			return written, nil, common.FormatError(common.ErrFailedToWriteRegion, err)
		}
		if size == 0 {
			common.LogDebug(common.WarnEmptyRegion, p.name)
			continue
		}
		if p.offset < written {
			return written, nil, fmt.Errorf("%w: %s at 0x%X overlaps data ending at 0x%X",
				ErrInvalidData, p.name, p.offset, written)
		}
		if p.offset+size > opts.ImageSize {
			return written, nil, fmt.Errorf("%w: %s ends at 0x%X, image size is 0x%X; try decreasing the file alignment (default %d bytes)",
				ErrImageTooLarge, p.name, p.offset+size, opts.ImageSize, DefaultAlignment)
		}

		common.LogDebug(common.DebugPaddingWritten, p.offset-written, p.offset)
		if err := common.WriteZeros(w, int64(p.offset-written)); err != nil {
			return written, nil, common.FormatError(common.ErrFailedToWritePadding, err)
		}
		written = p.offset

		copied, err := copyHostFile(p.source, w, size)
		written += copied
		if err != nil {
			return written, nil, common.FormatError(common.ErrFailedToWriteRegion, err)
		}
		common.LogDebug(common.DebugRegionWritten, p.offset, written, p.name)
		regions = append(regions, Region{Name: p.name, Kind: placementKind(p.name), Start: p.offset, Length: copied})

		if opts.Progress != nil {
			opts.Progress(i+1, len(placements))
		}
	}

	if err := common.WriteZeros(w, int64(opts.ImageSize-written)); err != nil {
		return written, nil, common.FormatError(common.ErrFailedToWritePadding, err)
	}
	return opts.ImageSize, regions, nil
}

func placementKind(name string) RegionKind {
	switch name {
	case HeaderPath:
		return HeaderRegion
	case ApploaderPath:
		return ApploaderRegion
	case DOLPath:
		return DOLHeaderRegion
	case FSTPath:
		return FSTRegion
	default:
		return FileRegion
	}
}

func hostFileSize(name string) (uint64, error) {
	stat, err := os.Stat(name)
	if err != nil {
		return 0, err
	}
	return common.SafeInt64ToUint64(stat.Size())
}

func copyHostFile(name string, w io.Writer, size uint64) (uint64, error) {
	file, err := os.Open(name)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	length, err := common.SafeUint64ToInt64(size)
	if err != nil {
		return 0, err
	}
	copied, err := common.CopySection(file, w, length)
	if copied < length && err == nil {
		common.LogWarn(common.WarnShortCopy, name, copied, length)
	}
	return uint64(copied), err
}

func readHostHeader(name string) (*Header, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToReadHeader, err)
	}
	defer file.Close()
	return ReadHeader(file, 0)
}

func writeHostFile(name string, src io.WriterTo) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := src.WriteTo(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
