package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

var (
	ErrEmptyData  = errors.New("archive: data file is empty")
	ErrEntryRange = errors.New("archive: entry outside data file")
)

// Archive is an opened .arc/.fat pair.
type Archive struct {
	name     string
	index    *Index
	data     *os.File
	dataSize int64
	codec    Codec
}

// Open opens the archive pair base+".arc" and base+".fat". Both files must
// exist, the data file must be non-empty, the index must validate, and every
// entry must lie within the data file. A nil codec selects Zlib.
func Open(base string, codec Codec) (*Archive, error) {
	if codec == nil {
		codec = Zlib{}
	}
	dataPath, indexPath := base+DataExt, base+IndexExt

	info, err := os.Stat(dataPath)
	if err != nil {
		return nil, fmt.Errorf("stat data: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("stat data %s: %w", dataPath, fs.ErrInvalid)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyData, dataPath)
	}

	index, err := LoadIndex(indexPath)
	if err != nil {
		return nil, err
	}
	for _, e := range index.Entries() {
		if int64(e.Offset)+int64(e.StoredSize()) > info.Size() {
			return nil, fmt.Errorf("%w: %s ends at %d, %s has %d bytes",
				ErrEntryRange, e.Name(), int64(e.Offset)+int64(e.StoredSize()), dataPath, info.Size())
		}
	}

	f, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("open data: %w", err)
	}

	return &Archive{
		name:     base,
		index:    index,
		data:     f,
		dataSize: info.Size(),
		codec:    codec,
	}, nil
}

// Name returns the base name the archive was opened with.
func (a *Archive) Name() string {
	return a.name
}

// Index returns the archive's entry table.
func (a *Archive) Index() *Index {
	return a.index
}

// DataSize returns the size of the .arc file in bytes.
func (a *Archive) DataSize() int64 {
	return a.dataSize
}

// Close closes the data file.
func (a *Archive) Close() error {
	return a.data.Close()
}

// ReadEntry reads the payload of e into dst. See ReadEntry.
func (a *Archive) ReadEntry(e *Entry, dst []byte) (int, error) {
	return ReadEntry(a.data, e, dst, a.codec)
}

// ReadAll returns the uncompressed payload of e in a new buffer.
func (a *Archive) ReadAll(e *Entry) ([]byte, error) {
	buf := make([]byte, e.FileSize)
	if _, err := a.ReadEntry(e, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadFile returns the payload stored under a logical filename.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	e, ok := a.index.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, fs.ErrNotExist)
	}
	return a.ReadAll(e)
}

// ReadEntry seeks f to the entry's offset, reads its stored bytes, and
// either copies them into dst or decompresses them with codec. The file is
// rewound to its start afterwards. dst must hold at least e.FileSize bytes.
// The returned count is the number of payload bytes placed in dst.
func ReadEntry(f io.ReadSeeker, e *Entry, dst []byte, codec Codec) (n int, err error) {
	if len(dst) < int(e.FileSize) {
		return 0, fmt.Errorf("read %s: %w: need %d, have %d", e.Name(), io.ErrShortBuffer, e.FileSize, len(dst))
	}
	if e.FileSize == 0 {
		return 0, nil
	}

	if _, err := f.Seek(int64(e.Offset), io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek %s: %w", e.Name(), err)
	}
	defer func() {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("rewind: %w", serr)
		}
	}()

	dst = dst[:e.FileSize]
	if !e.Compressed {
		n, err = io.ReadFull(f, dst)
		if err != nil {
			return n, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		return n, nil
	}

	if codec == nil {
		codec = Zlib{}
	}
	src := make([]byte, e.CompressedSize)
	if _, err := io.ReadFull(f, src); err != nil {
		return 0, fmt.Errorf("read %s: %w", e.Name(), err)
	}
	n, err = codec.Decompress(dst, src)
	if err != nil {
		return n, fmt.Errorf("decompress %s: %w", e.Name(), err)
	}
	return n, nil
}
