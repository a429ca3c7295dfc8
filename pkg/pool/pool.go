// Package pool provides fixed-capacity object pools keyed by the hash of a
// name. Sprite, actor, and camera managers hold their objects in one.
package pool

import (
	"errors"
	"fmt"

	"github.com/proteus-engine/proteus/pkg/archive"
)

var (
	ErrFull   = errors.New("pool: full")
	ErrExists = errors.New("pool: name already present")
)

type slot[T any] struct {
	used  bool
	hash  uint32
	name  string
	value T
}

// Pool holds up to a fixed number of named values. It is not safe for
// concurrent use.
type Pool[T any] struct {
	slots []slot[T]
	count int
}

// New returns an empty pool with room for capacity values.
func New[T any](capacity int) *Pool[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool[T]{slots: make([]slot[T], capacity)}
}

// Len returns the number of values in the pool.
func (p *Pool[T]) Len() int {
	return p.count
}

// Cap returns the pool's capacity.
func (p *Pool[T]) Cap() int {
	return len(p.slots)
}

// Add stores v under name in the first free slot.
func (p *Pool[T]) Add(name string, v T) error {
	h := archive.Hash(name)
	if p.find(h) >= 0 {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	for i := range p.slots {
		if !p.slots[i].used {
			p.slots[i] = slot[T]{used: true, hash: h, name: name, value: v}
			p.count++
			return nil
		}
	}
	return fmt.Errorf("%w: %d slots, adding %s", ErrFull, len(p.slots), name)
}

// Get returns the value stored under name.
func (p *Pool[T]) Get(name string) (T, bool) {
	if i := p.find(archive.Hash(name)); i >= 0 {
		return p.slots[i].value, true
	}
	var zero T
	return zero, false
}

// Remove frees the slot holding name.
func (p *Pool[T]) Remove(name string) bool {
	i := p.find(archive.Hash(name))
	if i < 0 {
		return false
	}
	p.slots[i] = slot[T]{}
	p.count--
	return true
}

// Each calls fn for every stored value in slot order until fn returns false.
func (p *Pool[T]) Each(fn func(name string, v T) bool) {
	for i := range p.slots {
		if p.slots[i].used && !fn(p.slots[i].name, p.slots[i].value) {
			return
		}
	}
}

func (p *Pool[T]) find(h uint32) int {
	for i := range p.slots {
		if p.slots[i].used && p.slots[i].hash == h {
			return i
		}
	}
	return -1
}
