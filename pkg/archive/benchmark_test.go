package archive

import (
	"bytes"
	"fmt"
	"testing"
)

// BenchmarkCodecs benchmarks each codec on a 256KB payload.
func BenchmarkCodecs(b *testing.B) {
	data := make([]byte, 256*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}

	for _, c := range []Codec{Zlib{}, Zstd{}} {
		packed, err := c.Compress(data)
		if err != nil {
			b.Fatal(err)
		}

		b.Run("Compress_"+c.Name(), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := c.Compress(data); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run("Decompress_"+c.Name(), func(b *testing.B) {
			dst := make([]byte, len(data))
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := c.Decompress(dst, packed); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkHeader benchmarks header operations.
func BenchmarkHeader(b *testing.B) {
	header := NewHeader(4096)

	b.Run("EncodeTo", func(b *testing.B) {
		buf := make([]byte, HeaderSize)
		for i := 0; i < b.N; i++ {
			header.EncodeTo(buf)
		}
	})

	data, _ := header.MarshalBinary()

	b.Run("DecodeFrom", func(b *testing.B) {
		h := &Header{}
		for i := 0; i < b.N; i++ {
			h.DecodeFrom(data)
		}
	})
}

// BenchmarkIndex benchmarks lookups and parsing of a 10k entry index.
func BenchmarkIndex(b *testing.B) {
	names := make([]string, 10000)
	for i := range names {
		names[i] = fmt.Sprintf("assets/sprites/sprite_%05d.png", i)
	}
	idx, err := NewIndex(testEntries(names...))
	if err != nil {
		b.Fatal(err)
	}

	b.Run("Find", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, ok := idx.Find(idx.Entry(i % idx.Len()).Hash); !ok {
				b.Fatal("miss")
			}
		}
	})

	b.Run("Lookup", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, ok := idx.Lookup(names[i%len(names)]); !ok {
				b.Fatal("miss")
			}
		}
	})

	data, err := idx.MarshalBinary()
	if err != nil {
		b.Fatal(err)
	}

	b.Run("ReadIndex", func(b *testing.B) {
		b.SetBytes(int64(len(data)))
		for i := 0; i < b.N; i++ {
			if _, err := ReadIndex(bytes.NewReader(data), int64(len(data))); err != nil {
				b.Fatal(err)
			}
		}
	})
}
