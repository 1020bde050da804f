// Package gcm provides GameCube disc image (GCM) structures and functionality.
// It reads the boot header, apploader, DOL executable header and file system
// table (FST) of an image, extracts them to a directory tree, and rebuilds a
// byte-exact image from such a tree.
package gcm

import "errors"

// On-disc layout constants
const (
	HeaderSize      = 0x2440     // Boot header (ISO.hdr) size
	ApploaderOffset = 0x2440     // Apploader always follows the boot header
	DOLHeaderSize   = 0x100      // DOL segment table size
	EntrySize       = 12         // FST record size
	ROMSize         = 0x57058000 // Total capacity of a disc image

	DefaultAlignment = 32768
	MinAlignment     = 2
)

// Layout of an extracted image on the host file system
const (
	SystemDataDir = "&&systemdata"
	HeaderFile    = "ISO.hdr"
	ApploaderFile = "Apploader.ldr"
	DOLFile       = "Start.dol"
	FSTFile       = "Game.toc"

	HeaderPath    = SystemDataDir + "/" + HeaderFile
	ApploaderPath = SystemDataDir + "/" + ApploaderFile
	DOLPath       = SystemDataDir + "/" + DOLFile
	FSTPath       = SystemDataDir + "/" + FSTFile
)

var (
	// ErrInvalidData is returned for malformed FST records or segment tables.
	ErrInvalidData = errors.New("invalid data")

	// ErrInvalidMagic is returned when the boot header magic word does not match.
	ErrInvalidMagic = errors.New("invalid boot header magic")

	// ErrInvalidTitle is returned when the game title is not valid UTF-8.
	ErrInvalidTitle = errors.New("game title is not valid UTF-8")

	// ErrImageTooLarge is returned when a rebuilt image exceeds its capacity.
	ErrImageTooLarge = errors.New("not enough space in disc image")

	// ErrDestinationExists is returned when an extraction target already exists.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrDuplicateName is returned when a table to be rebuilt holds two
	// siblings with the same name.
	ErrDuplicateName = errors.New("duplicate entry name")

	// ErrTableOverflow is returned when a value does not fit its on-disc field.
	ErrTableOverflow = errors.New("value does not fit file system table field")

	// ErrInvalidAlignment is returned for alignments below MinAlignment.
	ErrInvalidAlignment = errors.New("invalid alignment")
)
