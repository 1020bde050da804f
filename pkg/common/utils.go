package common

import (
	"bufio"
	"io"
)

// WriteChunkSize is the buffer size used when streaming sections between files.
const WriteChunkSize = 1 << 20

// PutUint24BE stores value in the first three bytes of buf, big-endian
func PutUint24BE(buf []byte, value uint32) {
	buf[0] = byte(value >> 16)
	buf[1] = byte(value >> 8)
	buf[2] = byte(value)
}

// ReadCString reads a null-terminated byte string starting at offset.
// It returns the string without its terminator and the absolute position
// just past the terminator.
func ReadCString(reader io.ReadSeeker, offset int64) (string, int64, error) {
	if _, err := reader.Seek(offset, io.SeekStart); err != nil {
		return "", 0, err
	}
	raw, err := bufio.NewReaderSize(reader, 64).ReadBytes(0)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", 0, err
	}
	return string(raw[:len(raw)-1]), offset + int64(len(raw)), nil
}

// CopySection copies up to size bytes from reader to writer in chunks of
// WriteChunkSize. Copying stops early, without an error, when the reader
// runs dry before size bytes were produced. It returns the bytes copied.
func CopySection(reader io.Reader, writer io.Writer, size int64) (int64, error) {
	chunk := int64(WriteChunkSize)
	if size < chunk {
		chunk = size
	}
	buf := make([]byte, chunk)

	var copied int64
	for copied < size {
		want := size - copied
		if want > chunk {
			want = chunk
		}
		n, err := reader.Read(buf[:want])
		if n > 0 {
			if _, werr := writer.Write(buf[:n]); werr != nil {
				return copied, werr
			}
			copied += int64(n)
		}
		if err == io.EOF || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			return copied, err
		}
	}
	return copied, nil
}

// WriteZeros writes count zero bytes to writer using a buffer local to the call.
func WriteZeros(writer io.Writer, count int64) error {
	if count <= 0 {
		return nil
	}
	block := int64(WriteChunkSize)
	if count < block {
		block = count
	}
	zeros := make([]byte, block)
	for count > 0 {
		n := block
		if count < n {
			n = count
		}
		if _, err := writer.Write(zeros[:n]); err != nil {
			return err
		}
		count -= n
	}
	return nil
}
