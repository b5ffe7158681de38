// Package rcache implements the content-addressed cache that lets the
// pipeline controller honor idempotent re-runs:
// a stage's raw output is cached under a key derived from the repository
// HEAD, the stage name, and the external tool's version, so an unchanged
// repository re-run can reuse it. The controller caches only the Git Log
// Extractor's captures this way; other stages run again on every re-run.
package rcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"
)

// ErrNotCached is returned by Get when no entry exists for the given key.
var ErrNotCached = errors.New("not cached")

const (
	flagRaw byte = 0
	flagLZ4 byte = 1
)

// Key identifies one cacheable stage output. Two invocations with the
// same Key are expected to produce byte-identical raw output.
type Key struct {
	RepoHead    string
	Stage       string
	ToolVersion string
}

// fileName derives a stable, filesystem-safe cache entry name from Key via
// xxhash: a "hash then store" content-addressed layout keyed by semantic
// identity (repo head, stage, tool version) rather than a git object id.
func (k Key) fileName() string {
	h := xxhash.New()
	_, _ = h.Write([]byte(k.RepoHead))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(k.Stage))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(k.ToolVersion))

	return fmt.Sprintf("%016x.lz4", h.Sum64())
}

// Cache is a directory-backed, LZ4-compressed content-addressed cache.
type Cache struct {
	Dir string
}

// New creates a Cache rooted at dir, creating it if necessary.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	return &Cache{Dir: dir}, nil
}

// Get returns the cached raw bytes for key, or ErrNotCached if absent.
func (c *Cache) Get(key Key) ([]byte, error) {
	path := filepath.Join(c.Dir, key.fileName())

	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotCached
		}

		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	if len(compressed) < 9 {
		return nil, ErrNotCached
	}

	originalLen := binary.LittleEndian.Uint64(compressed[:8])
	flag := compressed[8]
	payload := compressed[9:]

	if flag == flagRaw {
		return payload, nil
	}

	decompressed := make([]byte, originalLen)

	n, decErr := lz4.UncompressBlock(payload, decompressed)
	if decErr != nil {
		return nil, fmt.Errorf("decompress cache entry: %w", decErr)
	}

	return decompressed[:n], nil
}

// Put stores data under key, compressed with LZ4, written atomically via a
// temp file plus rename so a concurrent Get never observes a partial
// write.
func (c *Cache) Put(key Key, data []byte) error {
	bound := lz4.CompressBlockBound(len(data))
	compressed := make([]byte, bound)

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return fmt.Errorf("compress cache entry: %w", err)
	}

	var out bytes.Buffer

	var lenHeader [8]byte

	binary.LittleEndian.PutUint64(lenHeader[:], uint64(len(data)))
	out.Write(lenHeader[:])

	if n == 0 {
		// Incompressible or empty input: lz4.CompressBlock returns 0 when
		// the result would not be smaller; store raw bytes instead.
		out.WriteByte(flagRaw)
		out.Write(data)
	} else {
		out.WriteByte(flagLZ4)
		out.Write(compressed[:n])
	}

	path := filepath.Join(c.Dir, key.fileName())

	tmp, err := os.CreateTemp(c.Dir, "rcache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(out.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("write temp cache file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("close temp cache file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("rename temp cache file: %w", err)
	}

	return nil
}
