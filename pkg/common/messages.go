package common

import (
	"fmt"
	"log"
)

// Global variable to control debug output
var VerboseMode bool = false

// SetVerboseMode enables or disables verbose/debug output
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
}

// Error messages
const (
	ErrFailedToOpenImage        = "failed to open disc image"
	ErrFailedToReadHeader       = "failed to read boot header"
	ErrFailedToReadApploader    = "failed to read apploader"
	ErrFailedToReadDOL          = "failed to read DOL header"
	ErrFailedToReadFST          = "failed to read file system table"
	ErrFailedToWriteFST         = "failed to write file system table"
	ErrFailedToWriteHeader      = "failed to write boot header"
	ErrFailedToCreateOutputFile = "failed to create output file"
	ErrFailedToCreateDirectory  = "failed to create directory"
	ErrFailedToExtractSystem    = "failed to extract system data"
	ErrFailedToExtractFiles     = "failed to extract file system"
	ErrFailedToScanRoot         = "failed to scan root directory"
	ErrFailedToWriteRegion      = "failed to write disc region"
	ErrFailedToWritePadding     = "failed to write padding"
)

// Info messages
const (
	InfoExtractingSystemData = "Extracting system data..."
	InfoExtractingFiles      = "Extracting file system..."
	InfoFilesWritten         = "%d/%d files written."
	InfoRegionsWritten       = "%d/%d files added."
	InfoFSTRebuilt           = "Rebuilt file system table: %d entries, %d files, %d bytes"
	InfoHeaderRebuilt        = "Patched boot header: DOL offset 0x%X, FST offset 0x%X, FST size %d"
	InfoImageWritten         = "Disc image written: %d bytes (%s)"
	InfoReusingSystemData    = "Reusing existing file system table and boot header"
)

// Debug messages
const (
	DebugFSTRecord      = "FST record %d: dir=%t name_offset=0x%X field2=0x%X field3=0x%X parent=%d"
	DebugFSTStringTable = "FST string table at 0x%X, table ends at 0x%X"
	DebugScanEntry      = "Scanned %s (index %d, name offset 0x%X)"
	DebugSkipEntry      = "Skipping %s"
	DebugLayoutOffsets  = "Layout: FST 0x%X (%d bytes), DOL 0x%X (%d bytes), files 0x%X"
	DebugRegionWritten  = "Region 0x%08X-0x%08X: %s"
	DebugPaddingWritten = "Padding %d bytes before 0x%X"
	DebugFileExtracted  = "Extracted %s (%d bytes from 0x%X)"
	DebugSegmentRead    = "DOL segment %s: offset 0x%X, address 0x%X, size %d"
	DebugObjdumpArgs    = "Running %s %v"
)

// Warning messages
const (
	WarnShortCopy       = "Source ended early for %s: copied %d of %d bytes"
	WarnEmptyRegion     = "Skipping empty region %s"
	WarnRemovingPartial = "Removing partially written image %s"
)

// LogInfo logs an informational message
func LogInfo(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[INFO] "+message, args...)
	} else {
		log.Printf("[INFO] %s", message)
	}
}

// LogWarn logs a warning message
func LogWarn(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[WARN] "+message, args...)
	} else {
		log.Printf("[WARN] %s", message)
	}
}

// LogError logs an error message
func LogError(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[ERROR] "+message, args...)
	} else {
		log.Printf("[ERROR] %s", message)
	}
}

// LogDebug logs a debug message (only if VerboseMode is enabled)
func LogDebug(message string, args ...interface{}) {
	if !VerboseMode {
		return
	}
	if len(args) > 0 {
		log.Printf("[DEBUG] "+message, args...)
	} else {
		log.Printf("[DEBUG] %s", message)
	}
}

// FormatError creates a formatted error with additional context
func FormatError(baseMessage string, details interface{}) error {
	if err, ok := details.(error); ok {
		return fmt.Errorf("%s: %w", baseMessage, err)
	}
	return fmt.Errorf("%s: %v", baseMessage, details)
}
