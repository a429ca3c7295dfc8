package archive

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
)

// MaxDataSize is the largest .arc file addressable by 32-bit entry offsets.
const MaxDataSize = math.MaxUint32

var ErrArchiveTooLarge = errors.New("archive: data exceeds 4GiB offset range")

// dataWriter appends payloads to an .arc file and tracks their offsets.
type dataWriter struct {
	f      *os.File
	w      *bufio.Writer
	offset int64
}

func createDataWriter(path string) (*dataWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create data file: %w", err)
	}
	return &dataWriter{f: f, w: bufio.NewWriterSize(f, 1<<20)}, nil
}

// append writes p and returns the offset it was written at.
func (dw *dataWriter) append(p []byte) (uint32, error) {
	if dw.offset+int64(len(p)) > MaxDataSize {
		return 0, fmt.Errorf("%w: at offset %d adding %d bytes", ErrArchiveTooLarge, dw.offset, len(p))
	}
	off := uint32(dw.offset)
	n, err := dw.w.Write(p)
	dw.offset += int64(n)
	if err != nil {
		return 0, fmt.Errorf("write payload: %w", err)
	}
	return off, nil
}

func (dw *dataWriter) size() int64 {
	return dw.offset
}

// close flushes buffered data and closes the file.
func (dw *dataWriter) close() error {
	flushErr := dw.w.Flush()
	closeErr := dw.f.Close()
	if flushErr != nil {
		return fmt.Errorf("flush data file: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close data file: %w", closeErr)
	}
	return nil
}

// writeIndexFile writes entries as a .fat file at path.
func writeIndexFile(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := WriteIndex(w, entries); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush index: %w", err)
	}
	return f.Close()
}
