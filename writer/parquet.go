package writer

import (
	"bytes"
	"errors"

	"github.com/xitongsys/parquet-go/source"
)

// memoryFileWriter implements the ParquetFile interface over a byte buffer so
// snapshots are assembled in memory before hitting disk or S3.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

// Seek is unsupported. The buffer is append-only and the write path never
// seeks; a caller that does must not get a fake success.
func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return 0, errors.New("seek not supported on in-memory parquet buffer")
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}
