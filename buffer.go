// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

// BufferPool allows the reuse of byte buffers during module emission and
// parsing. A pool is owned by a single emitter or parser at a time; it
// performs no synchronization of its own.
type BufferPool struct {
	buffers [][]byte
}

// RentedBuffer is a byte buffer borrowed from a pool. Returning it hands
// the storage back for reuse.
type RentedBuffer struct {
	pool *BufferPool
	data []byte
}

// Rent returns an empty buffer, reusing storage from a previous rental
// when available. A nil pool falls back to fresh allocation.
func (p *BufferPool) Rent() *RentedBuffer {
	if p == nil || len(p.buffers) == 0 {
		return &RentedBuffer{pool: p}
	}
	last := len(p.buffers) - 1
	data := p.buffers[last]
	p.buffers = p.buffers[:last]
	return &RentedBuffer{pool: p, data: data[:0]}
}

// RentCapacity returns an empty buffer with space reserved for at least
// capacity bytes.
func (p *BufferPool) RentCapacity(capacity int) *RentedBuffer {
	rented := p.Rent()
	if cap(rented.data) < capacity {
		rented.data = make([]byte, 0, capacity)
	}
	return rented
}

// Bytes returns the buffer contents.
func (b *RentedBuffer) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes in the buffer.
func (b *RentedBuffer) Len() int {
	return len(b.data)
}

// Return hands the buffer's storage back to its pool. The buffer must not
// be used afterwards. Buffers rented from a nil pool are simply released
// to the garbage collector.
func (b *RentedBuffer) Return() {
	if b.pool != nil && b.data != nil {
		b.pool.buffers = append(b.pool.buffers, b.data)
	}
	b.data = nil
}
