package gcm

import (
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/hansbonini/gcmtools/pkg/common"
)

// ImageReader provides seekable access to a disc image file
type ImageReader struct {
	file *os.File
	size int64
}

// OpenImage opens a disc image for reading
func OpenImage(filename string) (*ImageReader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToOpenImage, err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, common.FormatError(common.ErrFailedToOpenImage, err)
	}
	if fileInfo.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s: %s is a directory", common.ErrFailedToOpenImage, filename)
	}

	return &ImageReader{file: file, size: fileInfo.Size()}, nil
}

func (r *ImageReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Read implements io.Reader
func (r *ImageReader) Read(p []byte) (int, error) {
	return r.file.Read(p)
}

// Seek implements io.Seeker
func (r *ImageReader) Seek(offset int64, whence int) (int64, error) {
	return r.file.Seek(offset, whence)
}

// Size returns the image size in bytes
func (r *ImageReader) Size() int64 {
	return r.size
}

// Digest computes the sha256 digest of the whole image. The read position is
// left at the end of the image.
func (r *ImageReader) Digest() (digest.Digest, error) {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return digest.Canonical.FromReader(r.file)
}
