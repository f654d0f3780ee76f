// Package memory implements a guest's linear memory: a flat byte
// array addressed by 32-bit offsets, with a bump allocator.
package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned for accesses outside the memory.
	ErrOutOfBounds = errors.New("memory access out of bounds")
	// ErrOutOfMemory is returned when an allocation does not fit.
	ErrOutOfMemory = errors.New("out of memory")
)

// DefaultSize is the size of memories created by New(0).
const DefaultSize = 1 << 20

// align is the alignment of every allocation.
const align = 8

// Linear is a guest memory. Offset zero is never handed out by
// Allocate, so it can serve as a null pointer.
type Linear struct {
	buf  []byte
	next uint32
}

// New returns a zeroed memory of size bytes.
func New(size uint32) *Linear {
	if size == 0 {
		size = DefaultSize
	}
	return &Linear{buf: make([]byte, size), next: align}
}

// Size returns the memory size in bytes.
func (m *Linear) Size() uint32 { return uint32(len(m.buf)) }

func (m *Linear) check(offset, length uint32) error {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.buf)) {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfBounds, offset, end, len(m.buf))
	}
	return nil
}

// Read returns a copy of length bytes at offset.
func (m *Linear) Read(offset, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.buf[offset:])
	return out, nil
}

// Write copies data to offset.
func (m *Linear) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.buf[offset:], data)
	return nil
}

// Allocate reserves size bytes and returns their offset. Memory is
// never freed individually; Reset releases everything.
func (m *Linear) Allocate(size uint32) (uint32, error) {
	ptr := m.next
	end := uint64(ptr) + uint64(size)
	if end > uint64(len(m.buf)) {
		return 0, fmt.Errorf("%w: %d bytes requested, %d free", ErrOutOfMemory, size, uint64(len(m.buf))-uint64(ptr))
	}
	m.next = uint32((end + align - 1) &^ (align - 1))
	if uint64(m.next) > uint64(len(m.buf)) {
		m.next = uint32(len(m.buf))
	}
	return ptr, nil
}

// Put allocates room for data and copies it in.
func (m *Linear) Put(data []byte) (uint32, error) {
	ptr, err := m.Allocate(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	return ptr, m.Write(ptr, data)
}

// Reset releases every allocation and zeroes the memory.
func (m *Linear) Reset() {
	clear(m.buf)
	m.next = align
}
