package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"os"
	"sort"
)

// Index is a parsed .fat table. Entries are sorted ascending by hash.
type Index struct {
	Header  Header
	entries []Entry
}

// NewIndex builds an index from entries, sorting them by hash. Duplicate
// hashes are rejected.
func NewIndex(entries []Entry) (*Index, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hash < sorted[j].Hash })
	if err := checkSorted(sorted); err != nil {
		return nil, err
	}
	return &Index{Header: *NewHeader(len(sorted)), entries: sorted}, nil
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entry returns a pointer to the i'th entry. The entry must not be modified.
func (idx *Index) Entry(i int) *Entry {
	return &idx.entries[i]
}

// Entries returns an iterator over all entries in hash order.
func (idx *Index) Entries() iter.Seq2[int, *Entry] {
	return func(yield func(int, *Entry) bool) {
		for i := range idx.entries {
			if !yield(i, &idx.entries[i]) {
				return
			}
		}
	}
}

// Find returns the position of the entry with the given hash.
func (idx *Index) Find(hash uint32) (int, bool) {
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].Hash >= hash
	})
	if i < len(idx.entries) && idx.entries[i].Hash == hash {
		return i, true
	}
	return 0, false
}

// Lookup returns the entry for a logical filename.
func (idx *Index) Lookup(name string) (*Entry, bool) {
	i, ok := idx.Find(Hash(name))
	if !ok {
		return nil, false
	}
	return &idx.entries[i], true
}

// MarshalBinary encodes the index to .fat format.
func (idx *Index) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, ExpectedSize(len(idx.entries))))
	if err := WriteIndex(buf, idx.entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadIndex parses a .fat index from r. fileSize is the physical size of the
// source and must match the size declared in the header.
func ReadIndex(r io.Reader, fileSize int64) (*Index, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := &Index{}
	idx.Header.DecodeFrom(hdr[:])
	if err := idx.Header.Validate(); err != nil {
		return nil, err
	}
	if int64(idx.Header.Size) != fileSize {
		return nil, fmt.Errorf("%w: header declares %d bytes, file has %d", ErrSizeMismatch, idx.Header.Size, fileSize)
	}

	idx.entries = make([]Entry, idx.Header.EntryCount)
	if err := binary.Read(r, binary.LittleEndian, idx.entries); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}

	if err := checkSorted(idx.entries); err != nil {
		return nil, err
	}
	return idx, nil
}

// LoadIndex reads and validates the .fat file at path.
func LoadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index: %w", err)
	}

	idx, err := ReadIndex(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse index %s: %w", path, err)
	}
	return idx, nil
}

// WriteIndex writes a header followed by entries. Entries must already be
// sorted by hash.
func WriteIndex(w io.Writer, entries []Entry) error {
	if err := checkSorted(entries); err != nil {
		return err
	}

	hdr, err := NewHeader(len(entries)).MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, entries); err != nil {
		return fmt.Errorf("write entries: %w", err)
	}
	return nil
}

func checkSorted(entries []Entry) error {
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1].Hash, entries[i].Hash
		switch {
		case cur == prev:
			return fmt.Errorf("%w: %08x at entries %d and %d", ErrDuplicateHash, cur, i-1, i)
		case cur < prev:
			return fmt.Errorf("%w: %08x follows %08x at entry %d", ErrUnsorted, cur, prev, i)
		}
	}
	return nil
}
