package store

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMem_GrowRoundsToPages(t *testing.T) {
	m := NewMem(MemOptions{PageSize: 1024})
	assert.Equal(t, uint64(0), m.Capacity())

	require.NoError(t, m.Grow(1))
	assert.Equal(t, uint64(1024), m.Capacity())

	require.NoError(t, m.Grow(1025))
	assert.Equal(t, uint64(3072), m.Capacity())
	assert.Equal(t, 2, m.GrowCalls())

	require.NoError(t, m.Grow(0))
	assert.Equal(t, 2, m.GrowCalls())
}

func TestMem_ReadWrite(t *testing.T) {
	m := NewMem(MemOptions{PageSize: 64})
	require.NoError(t, m.Grow(64))

	require.NoError(t, m.Write(10, []byte("hello")))
	got, err := m.Read(10, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	// Reads are copies.
	got[0] = 'j'
	again, err := m.Read(10, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), again)

	// Grown bytes are zero.
	zero, err := m.Read(0, 10)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 10), zero)
}

func TestMem_OutOfBounds(t *testing.T) {
	m := NewMem(MemOptions{PageSize: 64})
	require.NoError(t, m.Grow(64))

	_, err := m.Read(60, 5)
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	err = m.Write(63, []byte{1, 2})
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	_, err = m.Read(^uint64(0), 2)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestMem_MaxPages(t *testing.T) {
	m := NewMem(MemOptions{PageSize: 64, MaxPages: 2})
	require.NoError(t, m.Grow(100))
	err := m.Grow(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSpace))
	assert.Equal(t, uint64(128), m.Capacity())
}

func TestFromBytesWrapsWithoutCopy(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	m := FromBytes(data)
	assert.Equal(t, uint64(4), m.Capacity())
	require.NoError(t, m.Write(0, []byte{9}))
	assert.Equal(t, byte(9), data[0])
}
