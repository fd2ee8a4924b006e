package filestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetRelease(t *testing.T) {
	s := New()

	require.NoError(t, s.Put("a", []byte("payload")))

	data, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), data)
	assert.Equal(t, 1, s.Len())

	s.Release("a")

	_, ok = s.Get("a")
	assert.False(t, ok, "released id must not be retrievable")
	assert.Equal(t, 0, s.Len())
}

func TestStore_PutDuplicateID(t *testing.T) {
	s := New()

	require.NoError(t, s.Put("a", []byte("one")))
	require.Error(t, s.Put("a", []byte("two")))

	data, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("one"), data, "duplicate put must not overwrite")
}

func TestStore_ReleaseUnknownIsNoop(t *testing.T) {
	s := New()
	s.Release("missing")
	assert.Equal(t, 0, s.Len())
}

func TestStore_Clear(t *testing.T) {
	s := New()
	require.NoError(t, s.Put("a", []byte("1")))
	require.NoError(t, s.Put("b", []byte("2")))

	s.Clear()

	assert.Equal(t, 0, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok)
}
