// Package pkg provides the disc image operations behind the gcmtools commands.
// This file contains the GameProcessor used to extract, inspect, list,
// rebuild and disassemble GameCube disc images.
package pkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hansbonini/gcmtools/pkg/common"
	"github.com/hansbonini/gcmtools/pkg/gcm"
)

// ErrSectionNotFound is returned when extract --section names nothing in the image
var ErrSectionNotFound = errors.New("section not found")

// InfoOptions selects what GameProcessor.Info reports
type InfoOptions struct {
	Type       string  // one of InfoTypes, or empty for a summary
	Offset     *uint64 // report the region containing this disc offset
	MemAddr    *uint64 // report the DOL segment loaded at this address
	YAML       bool
	WithDigest bool
}

// GameProcessor handles disc image operations
type GameProcessor struct {
	Output    io.Writer
	Style     common.NumberStyle
	ImageSize uint64 // size of rebuilt images, gcm.ROMSize when zero
}

// NewGameProcessor creates a new processor writing to standard output
func NewGameProcessor() *GameProcessor {
	return &GameProcessor{Output: os.Stdout}
}

// openGame opens the image at imagePath and reads its system data.
// The caller closes the returned reader.
func (p *GameProcessor) openGame(imagePath string) (*gcm.Game, *gcm.ImageReader, error) {
	reader, err := gcm.OpenImage(imagePath)
	if err != nil {
		return nil, nil, err
	}
	game, err := gcm.OpenGame(reader, 0)
	if err != nil {
		reader.Close()
		return nil, nil, fmt.Errorf("failed to read %s: %w", imagePath, err)
	}
	return game, reader, nil
}

// Extract writes the contents of a disc image to output.
// Parameters:
//   - imagePath: Path to the disc image
//   - output: Destination directory (must not exist) or, with a section, destination path
//   - section: Optional single section to extract (system file, FST path or DOL segment)
//
// Returns the number of files written.
func (p *GameProcessor) Extract(ctx context.Context, imagePath, output, section string) (int, error) {
	game, reader, err := p.openGame(imagePath)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	if section != "" {
		found, err := game.ExtractSection(ctx, reader, section, output)
		if err != nil {
			return 0, fmt.Errorf("failed to extract %s: %w", section, err)
		}
		if !found {
			return 0, fmt.Errorf("%w: %s", ErrSectionNotFound, section)
		}
		return 1, nil
	}

	total := gcm.SystemFileCount + game.FST.FileCount
	count, err := game.Extract(ctx, reader, output, func(n int) {
		fmt.Fprintf(p.Output, "\r"+common.InfoFilesWritten, n, total)
	})
	fmt.Fprintln(p.Output)
	return count, err
}

// Info prints information about a disc image
func (p *GameProcessor) Info(imagePath string, opts InfoOptions) error {
	game, reader, err := p.openGame(imagePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	if opts.Type != "" && !isInfoType(opts.Type) {
		return fmt.Errorf("unknown info type %q (expected one of %s)", opts.Type, strings.Join(InfoTypes, ", "))
	}

	var imageDigest string
	if opts.WithDigest {
		d, err := reader.Digest()
		if err != nil {
			return fmt.Errorf("failed to digest %s: %w", imagePath, err)
		}
		imageDigest = d.String()
	}

	region, segment, err := p.lookup(game, opts)
	if err != nil {
		return err
	}

	if opts.YAML {
		var report *Report
		if region != nil || segment != nil {
			report = &Report{Image: imagePath, GameID: game.Header.GameID(), Title: game.Header.Title}
		} else {
			report = NewReport(imagePath, game, opts.Type)
		}
		report.Digest = imageDigest
		if region != nil {
			r := newRegionReport(*region)
			report.Region = &r
		}
		if segment != nil {
			s := newSegmentReport(segment)
			report.Segment = &s
		}
		return report.WriteYAML(p.Output)
	}

	printer := &reportPrinter{w: p.Output, style: p.Style}
	switch {
	case region != nil:
		printer.printRegion(*region)
	case segment != nil:
		printer.printSegment(segment)
	case opts.Type == InfoHeader:
		printer.printHeader(game.Header)
	case opts.Type == InfoDOL:
		printer.printDOL(game.DOL)
	case opts.Type == InfoFST:
		printer.printFST(game.FST)
	case opts.Type == InfoApploader:
		printer.printApploader(game)
	case opts.Type == InfoLayout:
		printer.printLayout(game.Layout())
	default:
		printer.printSummary(game)
	}
	if imageDigest != "" {
		printer.printf("Digest: %s\n", imageDigest)
	}
	return nil
}

// lookup resolves the --offset and --mem-addr queries
func (p *GameProcessor) lookup(game *gcm.Game, opts InfoOptions) (*gcm.Region, *gcm.Segment, error) {
	if opts.Offset != nil {
		region, ok := game.Layout().FindOffset(*opts.Offset)
		if !ok {
			return nil, nil, fmt.Errorf("there is nothing located at the offset 0x%X", *opts.Offset)
		}
		return &region, nil, nil
	}
	if opts.MemAddr != nil {
		segment, ok := game.DOL.SegmentAtAddress(*opts.MemAddr)
		if !ok {
			return nil, nil, fmt.Errorf("no DOL segment is loaded at 0x%X", *opts.MemAddr)
		}
		return nil, segment, nil
	}
	return nil, nil, nil
}

func isInfoType(infoType string) bool {
	for _, t := range InfoTypes {
		if t == infoType {
			return true
		}
	}
	return false
}

// List prints the contents of a directory of the image's file system
// (the root when dir is empty). In long form each line shows the kind,
// size (or direct file count for directories), disc offset and name.
func (p *GameProcessor) List(imagePath, dir string, long bool) error {
	game, reader, err := p.openGame(imagePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	entry, ok := game.FST.EntryForPath(dir)
	if !ok {
		return fmt.Errorf("%s: %w", dir, fs.ErrNotExist)
	}

	directory, isDir := entry.(*gcm.DirectoryEntry)
	if !isDir {
		p.printEntry(entry, long)
		return nil
	}
	for child := range directory.Contents(game.FST.Entries) {
		p.printEntry(child, long)
	}
	return nil
}

func (p *GameProcessor) printEntry(e gcm.Entry, long bool) {
	name := e.Info().Name
	if !long {
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintln(p.Output, name)
		return
	}
	switch entry := e.(type) {
	case *gcm.DirectoryEntry:
		fmt.Fprintf(p.Output, "d %12s %12s %s/\n",
			fmt.Sprintf("%d files", entry.FileCount), "-", name)
	case *gcm.FileEntry:
		fmt.Fprintf(p.Output, "- %12s %12s %s\n",
			common.FormatNumber(entry.Size, p.Style), common.FormatNumber(entry.FileOffset, p.Style), name)
	}
}

// Rebuild writes a disc image built from the extracted tree at root.
// The output must not exist; a partially written image is removed on failure.
func (p *GameProcessor) Rebuild(ctx context.Context, root, output string, alignment uint64, rebuildSystemData bool) (*gcm.RebuildResult, error) {
	if alignment < gcm.MinAlignment {
		return nil, fmt.Errorf("%w: must be an integer >= %d", gcm.ErrInvalidAlignment, gcm.MinAlignment)
	}
	if _, err := os.Stat(output); err == nil {
		return nil, fmt.Errorf("%w: %s", gcm.ErrDestinationExists, output)
	}
	file, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToCreateOutputFile, err)
	}

	result, err := gcm.Rebuild(ctx, root, file, gcm.RebuildOptions{
		Alignment:         alignment,
		ImageSize:         p.ImageSize,
		RebuildSystemData: rebuildSystemData,
		Progress: func(written, total int) {
			fmt.Fprintf(p.Output, "\r"+common.InfoRegionsWritten, written, total)
		},
	})
	fmt.Fprintln(p.Output)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		common.LogWarn(common.WarnRemovingPartial, output)
		os.Remove(output)
		return nil, err
	}
	return result, nil
}

// Disassemble prints the disassembly of a raw binary (for example a DOL
// segment extracted with extract --section). A positive limit caps the
// number of instructions printed.
func (p *GameProcessor) Disassemble(ctx context.Context, binaryPath, objdump string, limit int) error {
	instructions, err := gcm.NewDisassembler(objdump).Disassemble(ctx, binaryPath)
	if err != nil {
		return fmt.Errorf("failed to disassemble %s: %w", filepath.Base(binaryPath), err)
	}
	for i, inst := range instructions {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintln(p.Output, inst)
	}
	return nil
}
