// Package pkg provides the disc image operations behind the gcmtools commands.
// This file contains the human readable and YAML reports printed by "info".
package pkg

import (
	"fmt"
	"io"

	"github.com/hansbonini/gcmtools/pkg/common"
	"github.com/hansbonini/gcmtools/pkg/gcm"
	"gopkg.in/yaml.v3"
)

// Info types accepted by GameProcessor.Info
const (
	InfoHeader    = "header"
	InfoDOL       = "dol"
	InfoFST       = "fst"
	InfoApploader = "apploader"
	InfoLayout    = "layout"
)

// InfoTypes lists every accepted info type
var InfoTypes = []string{InfoHeader, InfoDOL, InfoFST, InfoApploader, InfoLayout}

// ApploaderReport is the YAML form of the apploader
type ApploaderReport struct {
	Offset      uint64 `yaml:"offset"`
	Date        string `yaml:"date"`
	EntryPoint  uint32 `yaml:"entry_point"`
	CodeSize    uint64 `yaml:"code_size"`
	TrailerSize uint64 `yaml:"trailer_size"`
	TotalSize   uint64 `yaml:"total_size"`
}

// SegmentReport is the YAML form of a DOL segment
type SegmentReport struct {
	Name        string `yaml:"name"`
	Offset      uint64 `yaml:"offset"`
	LoadAddress uint64 `yaml:"load_address"`
	Size        uint64 `yaml:"size"`
}

// DOLReport is the YAML form of the DOL header
type DOLReport struct {
	Offset     uint64          `yaml:"offset"`
	Size       uint64          `yaml:"size"`
	HeaderSize uint64          `yaml:"header_size"`
	EntryPoint uint32          `yaml:"entry_point"`
	Segments   []SegmentReport `yaml:"segments"`
}

// FSTReport is the YAML form of the file system table summary
type FSTReport struct {
	Offset              uint64 `yaml:"offset"`
	Size                uint64 `yaml:"size"`
	Entries             int    `yaml:"entries"`
	FileCount           int    `yaml:"file_count"`
	TotalFileSystemSize uint64 `yaml:"total_file_system_size"`
}

// RegionReport is the YAML form of a layout region
type RegionReport struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Start  uint64 `yaml:"start"`
	Length uint64 `yaml:"length"`
}

// Report is the machine readable output of "info --yaml". Sections not
// requested are omitted.
type Report struct {
	Image     string           `yaml:"image"`
	Digest    string           `yaml:"digest,omitempty"`
	GameID    string           `yaml:"game_id"`
	Title     string           `yaml:"title"`
	Header    *gcm.Header      `yaml:"header,omitempty"`
	Apploader *ApploaderReport `yaml:"apploader,omitempty"`
	DOL       *DOLReport       `yaml:"dol,omitempty"`
	FST       *FSTReport       `yaml:"fst,omitempty"`
	Layout    []RegionReport   `yaml:"layout,omitempty"`
	Region    *RegionReport    `yaml:"region,omitempty"`
	Segment   *SegmentReport   `yaml:"segment,omitempty"`
}

// NewReport builds the report sections selected by infoType; an empty type
// selects every section.
func NewReport(imagePath string, game *gcm.Game, infoType string) *Report {
	report := &Report{
		Image:  imagePath,
		GameID: game.Header.GameID(),
		Title:  game.Header.Title,
	}
	all := infoType == ""
	if all || infoType == InfoHeader {
		report.Header = game.Header
	}
	if all || infoType == InfoApploader {
		a := game.Apploader
		report.Apploader = &ApploaderReport{
			Offset:      game.Offset + gcm.ApploaderOffset,
			Date:        a.Date,
			EntryPoint:  a.EntryPoint,
			CodeSize:    a.CodeSize,
			TrailerSize: a.TrailerSize,
			TotalSize:   a.TotalSize(),
		}
	}
	if all || infoType == InfoDOL {
		report.DOL = newDOLReport(game.DOL)
	}
	if all || infoType == InfoFST {
		report.FST = &FSTReport{
			Offset:              game.FST.Offset,
			Size:                game.FST.Size,
			Entries:             len(game.FST.Entries),
			FileCount:           game.FST.FileCount,
			TotalFileSystemSize: game.FST.TotalFileSystemSize,
		}
	}
	if all || infoType == InfoLayout {
		for _, r := range game.Layout().Regions {
			report.Layout = append(report.Layout, newRegionReport(r))
		}
	}
	return report
}

func newDOLReport(dol *gcm.DOLHeader) *DOLReport {
	report := &DOLReport{
		Offset:     dol.Offset,
		Size:       dol.Size(),
		HeaderSize: gcm.DOLHeaderSize,
		EntryPoint: dol.EntryPoint,
	}
	for i := range dol.Segments {
		report.Segments = append(report.Segments, newSegmentReport(&dol.Segments[i]))
	}
	return report
}

func newSegmentReport(s *gcm.Segment) SegmentReport {
	return SegmentReport{Name: s.Name(), Offset: s.Offset, LoadAddress: s.LoadAddress, Size: s.Size}
}

func newRegionReport(r gcm.Region) RegionReport {
	return RegionReport{Name: r.Name, Kind: r.Kind.String(), Start: r.Start, Length: r.Length}
}

// WriteYAML encodes the report as YAML
func (r *Report) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return encoder.Close()
}

// reportPrinter prints report sections in human readable form
type reportPrinter struct {
	w     io.Writer
	style common.NumberStyle
}

func (p *reportPrinter) num(v uint64) string {
	return common.FormatNumber(v, p.style)
}

func (p *reportPrinter) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *reportPrinter) printSummary(game *gcm.Game) {
	p.printf("Title: %s\n", game.Header.Title)
	p.printf("GameID: %s\n", game.Header.GameID())
	p.printf("FST offset: %s\n", p.num(game.Header.FSTOffset))
	p.printf("FST size: %s bytes\n", p.num(game.FST.Size))
	p.printf("Main DOL offset: %s\n", p.num(game.Header.DOLOffset))
	p.printf("Main DOL entry point: %s\n", p.num(uint64(game.DOL.EntryPoint)))
	p.printf("Apploader size: %s\n", p.num(game.Apploader.TotalSize()))
	p.printf("\nROM Layout:\n")
	p.printLayout(game.Layout())
}

func (p *reportPrinter) printHeader(h *gcm.Header) {
	p.printf("Game ID: %s\n", h.GameID())
	p.printf("Title: %s\n", h.Title)
	p.printf("Disk ID: %d\n", h.DiskID)
	p.printf("Version: %d\n", h.Version)
	p.printf("DOL offset: %s\n", p.num(h.DOLOffset))
	p.printf("FST offset: %s\n", p.num(h.FSTOffset))
	p.printf("FST size: %s bytes\n", p.num(h.FSTSize))
	p.printf("Max FST size: %s bytes\n", p.num(h.MaxFSTSize))
	p.printf("Country code: %d\n", h.Information.CountryCode)
}

func (p *reportPrinter) printApploader(game *gcm.Game) {
	a := game.Apploader
	p.printf("Offset: %s\n", p.num(game.Offset+gcm.ApploaderOffset))
	p.printf("Date: %s\n", a.Date)
	p.printf("Entry point: %s\n", p.num(uint64(a.EntryPoint)))
	p.printf("Code size: %s bytes\n", p.num(a.CodeSize))
	p.printf("Trailer size: %s bytes\n", p.num(a.TrailerSize))
	p.printf("Size (including code and trailer, aligned to 32 bytes): %s\n", p.num(a.TotalSize()))
}

func (p *reportPrinter) printDOL(dol *gcm.DOLHeader) {
	p.printf("Offset: %s\n", p.num(dol.Offset))
	p.printf("Size: %s bytes\n", p.num(dol.Size()))
	p.printf("Header size: %s bytes\n", p.num(gcm.DOLHeaderSize))
	p.printf("Entry point: %s\n", p.num(uint64(dol.EntryPoint)))
	for i := range dol.Segments {
		p.printf("\n")
		p.printSegment(&dol.Segments[i])
	}
}

func (p *reportPrinter) printSegment(s *gcm.Segment) {
	p.printf("Segment name: %s\n", s.Name())
	p.printf("Offset: %s\n", p.num(s.Offset))
	p.printf("Size: %s\n", p.num(s.Size))
	p.printf("Loading address: %s\n", p.num(s.LoadAddress))
}

func (p *reportPrinter) printFST(fst *gcm.Table) {
	p.printf("Offset: %s\n", p.num(fst.Offset))
	p.printf("Size: %s bytes\n", p.num(fst.Size))
	p.printf("Entries: %d\n", len(fst.Entries))
	p.printf("Files: %d\n", fst.FileCount)
	p.printf("Total file system size: %s bytes\n", p.num(fst.TotalFileSystemSize))
}

func (p *reportPrinter) printLayout(layout *gcm.Layout) {
	for _, r := range layout.Regions {
		p.printf("0x%08X-0x%08X: %s\n", r.Start, r.Start+r.Length, r.Name)
	}
}

func (p *reportPrinter) printRegion(r gcm.Region) {
	p.printf("Name: %s\n", r.Name)
	p.printf("Type: %s\n", r.Kind)
	p.printf("Offset: %s\n", p.num(r.Start))
	p.printf("Size: %s bytes\n", p.num(r.Length))
}
