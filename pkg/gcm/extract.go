package gcm

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hansbonini/gcmtools/pkg/common"
)

// ProgressFunc is called once per extracted file with the running file count.
type ProgressFunc func(count int)

// Extract copies the file content to w. A source that ends before Size bytes
// stops the copy without an error.
func (f *FileEntry) Extract(reader io.ReadSeeker, w io.Writer) error {
	offset, err := common.SafeUint64ToInt64(f.FileOffset)
	if err != nil {
		return err
	}
	if _, err := reader.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	size, err := common.SafeUint64ToInt64(f.Size)
	if err != nil {
		return err
	}
	copied, err := common.CopySection(reader, w, size)
	if err != nil {
		return err
	}
	if copied < size {
		common.LogWarn(common.WarnShortCopy, f.FullPath, copied, size)
	}
	return nil
}

type extractor struct {
	entries  []Entry
	reader   io.ReadSeeker
	progress ProgressFunc
	count    int
}

// ExtractEntry materializes e (and, for a directory, its whole subtree) at
// dest. Missing ancestors of dest are created. It returns the number of files
// written. Cancellation is checked before each file.
func ExtractEntry(ctx context.Context, e Entry, entries []Entry, dest string, reader io.ReadSeeker, progress ProgressFunc) (int, error) {
	x := &extractor{entries: entries, reader: reader, progress: progress}
	if err := x.extract(ctx, e, dest); err != nil {
		return x.count, err
	}
	return x.count, nil
}

// ExtractFileSystem extracts the whole tree rooted at the table's root into dest.
func (t *Table) ExtractFileSystem(ctx context.Context, dest string, reader io.ReadSeeker, progress ProgressFunc) (int, error) {
	return ExtractEntry(ctx, t.Root(), t.Entries, dest, reader, progress)
}

func (x *extractor) extract(ctx context.Context, e Entry, dest string) error {
	switch entry := e.(type) {
	case *DirectoryEntry:
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return common.FormatError(common.ErrFailedToCreateDirectory, err)
		}
		for child := range entry.Contents(x.entries) {
			if err := checkEntryName(child.Info().Name); err != nil {
				return fmt.Errorf("failed to extract %s: %w", child.Info().FullPath, err)
			}
			if err := x.extract(ctx, child, filepath.Join(dest, child.Info().Name)); err != nil {
				return err
			}
		}
		return nil
	case *FileEntry:
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := x.extractFile(entry, dest); err != nil {
			return fmt.Errorf("failed to extract %s: %w", entry.FullPath, err)
		}
		x.count++
		if x.progress != nil {
			x.progress(x.count)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown entry type %T", ErrInvalidData, e)
	}
}

func (x *extractor) extractFile(f *FileEntry, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return common.FormatError(common.ErrFailedToCreateOutputFile, err)
	}
	if err := f.Extract(x.reader, out); err != nil {
		out.Close()
		return err
	}
	common.LogDebug(common.DebugFileExtracted, f.FullPath, f.Size, f.FileOffset)
	return out.Close()
}
