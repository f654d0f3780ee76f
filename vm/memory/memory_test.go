package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateAligned(t *testing.T) {
	m := New(64)
	a, err := m.Allocate(3)
	require.NoError(t, err)
	b, err := m.Allocate(1)
	require.NoError(t, err)
	assert.NotZero(t, a)
	assert.Equal(t, a+8, b)

	_, err = m.Allocate(64)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	m.Reset()
	c, err := m.Allocate(3)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestReadWrite(t *testing.T) {
	m := New(32)
	ptr, err := m.Put([]byte("hello"))
	require.NoError(t, err)

	got, err := m.Read(ptr, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	// Reads are copies.
	got[0] = 'j'
	again, err := m.Read(ptr, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), again)

	_, err = m.Read(30, 5)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.ErrorIs(t, m.Write(31, []byte("ab")), ErrOutOfBounds)
	_, err = m.Read(0xffffffff, 2)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
