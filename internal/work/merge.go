// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package work

import (
	"encoding/binary"
	"encoding/gob"
	"bytes"
	"io"

	"modernc.org/kv"
)

// ChunkStore is an ordered, on-disk store of chunk results keyed by
// chunk index, used when a stage's merge needs to stream-sort more
// chunk output than comfortably fits in memory. Small runs should
// merge in-memory by chunk index instead; ChunkStore exists for the
// large-run path.
type ChunkStore struct {
	db *kv.DB

	n      int
	inTx   bool
}

const batchSize = 100

// CreateChunkStore creates a fresh ordered store at path, keyed by
// big-endian chunk index so iteration yields chunks in ascending
// order regardless of completion order, matching merge()'s batched
// transaction pattern (100 records per commit).
func CreateChunkStore(path string) (*ChunkStore, error) {
	db, err := kv.Create(path, &kv.Options{})
	if err != nil {
		return nil, err
	}
	return &ChunkStore{db: db}, nil
}

// OpenChunkStore opens a store previously written by CreateChunkStore
// for reading, matching the audit tool's read-only reopen of a store a
// driver process has already closed.
func OpenChunkStore(path string) (*ChunkStore, error) {
	db, err := kv.Open(path, &kv.Options{})
	if err != nil {
		return nil, err
	}
	return &ChunkStore{db: db}, nil
}

// Put stores value at chunk index idx, batching writes into
// transactions of batchSize records the way the merge step commits
// every 100 records rather than once per record or once for the whole
// store.
func (c *ChunkStore) Put(idx int, value interface{}) error {
	if c.n%batchSize == 0 {
		if err := c.db.BeginTransaction(); err != nil {
			return err
		}
		c.inTx = true
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}
	if err := c.db.Set(chunkKey(idx), buf.Bytes()); err != nil {
		return err
	}
	c.n++
	if c.n%batchSize == 0 {
		if err := c.db.Commit(); err != nil {
			return err
		}
		c.inTx = false
	}
	return nil
}

// Close flushes any open transaction and closes the underlying store.
func (c *ChunkStore) Close() error {
	if c.inTx {
		if err := c.db.Commit(); err != nil {
			c.db.Close()
			return err
		}
	}
	return c.db.Close()
}

// Each iterates stored chunk values in ascending chunk-index order,
// decoding each into a freshly allocated value of the type pointed to
// by zero, and calling f with that value.
func (c *ChunkStore) Each(zero interface{}, f func(idx int, value interface{}) error) error {
	it, err := c.db.SeekFirst()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	for {
		k, v, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		idx := int(binary.BigEndian.Uint64(k))
		dec := gob.NewDecoder(bytes.NewReader(v))
		if err := dec.Decode(zero); err != nil {
			return err
		}
		if err := f(idx, zero); err != nil {
			return err
		}
	}
}

func chunkKey(idx int) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(idx))
	return b[:]
}
