// Package archive implements the Proteus packed asset format: a .fat index of
// fixed-size entries sorted by name hash, and a sibling .arc file holding the
// concatenated payloads.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Magic1 and Magic2 identify a .fat index file.
	Magic1 uint32 = 0x50524F54
	Magic2 uint32 = 0x31544146

	// HeaderSize is the fixed binary size of an index header.
	HeaderSize = 16 // 4 x uint32

	// IndexExt and DataExt are the file suffixes of an archive pair.
	IndexExt = ".fat"
	DataExt  = ".arc"
)

var (
	ErrBadMagic      = errors.New("archive: bad index magic")
	ErrSizeMismatch  = errors.New("archive: index size mismatch")
	ErrUnsorted      = errors.New("archive: index not sorted by hash")
	ErrDuplicateHash = errors.New("archive: duplicate hash in index")
	ErrNameTooLong   = errors.New("archive: entry name too long")
	ErrDecompression = errors.New("archive: decompression failed")
)

// Header is the first record of a .fat index file.
type Header struct {
	Magic1     uint32
	Magic2     uint32
	Size       uint32 // Total index file size in bytes
	EntryCount uint32
}

// NewHeader returns a header describing an index with count entries.
func NewHeader(count int) *Header {
	return &Header{
		Magic1:     Magic1,
		Magic2:     Magic2,
		Size:       uint32(ExpectedSize(count)),
		EntryCount: uint32(count),
	}
}

// ExpectedSize returns the byte size of an index holding count entries.
func ExpectedSize(count int) int64 {
	return HeaderSize + int64(count)*EntrySize
}

// Validate checks the magic constants and the declared size.
func (h *Header) Validate() error {
	if h.Magic1 != Magic1 || h.Magic2 != Magic2 {
		return fmt.Errorf("%w: got %08x %08x", ErrBadMagic, h.Magic1, h.Magic2)
	}
	if want := ExpectedSize(int(h.EntryCount)); int64(h.Size) != want {
		return fmt.Errorf("%w: header declares %d bytes, %d entries need %d", ErrSizeMismatch, h.Size, h.EntryCount, want)
	}
	return nil
}

// MarshalBinary encodes the header to binary format.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the header to the given buffer.
// The buffer must be at least HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic1)
	binary.LittleEndian.PutUint32(buf[4:8], h.Magic2)
	binary.LittleEndian.PutUint32(buf[8:12], h.Size)
	binary.LittleEndian.PutUint32(buf[12:16], h.EntryCount)
}

// UnmarshalBinary decodes and validates the header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("header data too short: need %d, got %d", HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	return h.Validate()
}

// DecodeFrom reads the header from the given buffer.
// Does not validate - use UnmarshalBinary for validation.
func (h *Header) DecodeFrom(data []byte) {
	h.Magic1 = binary.LittleEndian.Uint32(data[0:4])
	h.Magic2 = binary.LittleEndian.Uint32(data[4:8])
	h.Size = binary.LittleEndian.Uint32(data[8:12])
	h.EntryCount = binary.LittleEndian.Uint32(data[12:16])
}
