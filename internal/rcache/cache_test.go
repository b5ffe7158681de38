package rcache

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	cache, err := New(t.TempDir())
	require.NoError(t, err)

	key := Key{RepoHead: "abc123", Stage: "code-counter", ToolVersion: "1.0.0"}
	data := []byte(strings.Repeat("the quick brown fox ", 500))

	require.NoError(t, cache.Put(key, data))

	got, err := cache.Get(key)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestGetReportsNotCached(t *testing.T) {
	cache, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = cache.Get(Key{RepoHead: "nope", Stage: "x", ToolVersion: "1"})

	require.ErrorIs(t, err, ErrNotCached)
}

func TestPutGetRoundTripWithIncompressibleData(t *testing.T) {
	cache, err := New(t.TempDir())
	require.NoError(t, err)

	key := Key{RepoHead: "deadbeef", Stage: "evolution", ToolVersion: "2.1"}
	data := []byte{0x01, 0x02, 0x03}

	require.NoError(t, cache.Put(key, data))

	got, err := cache.Get(key)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDifferentKeysDoNotCollide(t *testing.T) {
	cache, err := New(t.TempDir())
	require.NoError(t, err)

	k1 := Key{RepoHead: "a", Stage: "x", ToolVersion: "1"}
	k2 := Key{RepoHead: "b", Stage: "x", ToolVersion: "1"}

	require.NoError(t, cache.Put(k1, []byte("one")))
	require.NoError(t, cache.Put(k2, []byte("two")))

	got1, err := cache.Get(k1)
	require.NoError(t, err)
	got2, err := cache.Get(k2)
	require.NoError(t, err)

	assert.Equal(t, "one", string(got1))
	assert.Equal(t, "two", string(got2))
}
