package archive

import (
	"bytes"
	"fmt"
)

const (
	// NameSize is the width of the diagnostic filename field.
	NameSize = 128

	// EntrySize is the fixed binary size of an index entry.
	EntrySize = 148 // 4 + 128 + 4 + 4 + 4 + 1 + 3 padding
)

// Entry describes one packed file.
type Entry struct {
	Hash           uint32
	Filename       [NameSize]byte // NUL padded, diagnostic only
	Offset         uint32         // Byte offset within the .arc file
	FileSize       uint32         // Uncompressed size
	CompressedSize uint32         // On-disk size, valid when Compressed is set
	Compressed     bool
	_              [3]byte
}

// Name returns the stored filename up to the first NUL.
func (e *Entry) Name() string {
	if i := bytes.IndexByte(e.Filename[:], 0); i >= 0 {
		return string(e.Filename[:i])
	}
	return string(e.Filename[:])
}

// SetName stores name in the filename field. One byte is kept for the
// terminating NUL.
func (e *Entry) SetName(name string) error {
	if len(name) >= NameSize {
		return fmt.Errorf("%w: %q is %d bytes, limit %d", ErrNameTooLong, name, len(name), NameSize-1)
	}
	e.Filename = [NameSize]byte{}
	copy(e.Filename[:], name)
	return nil
}

// StoredSize returns the number of bytes the payload occupies in the .arc file.
func (e *Entry) StoredSize() uint32 {
	if e.Compressed {
		return e.CompressedSize
	}
	return e.FileSize
}

func (e *Entry) String() string {
	flag := "raw"
	if e.Compressed {
		flag = "packed"
	}
	return fmt.Sprintf("%08x %s off=%d size=%d stored=%d %s", e.Hash, flag, e.Offset, e.FileSize, e.StoredSize(), e.Name())
}
