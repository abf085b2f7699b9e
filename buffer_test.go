// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"testing"
)

func TestBufferRent(t *testing.T) {
	pool := &BufferPool{}

	buffer := pool.Rent()
	buffer.data = append(buffer.data, 1, 2)
	buffer.Return()

	reused := pool.Rent()
	if reused.Len() != 0 {
		t.Errorf("rented buffer should be cleared, got length %d", reused.Len())
	}
	if cap(reused.data) == 0 {
		t.Errorf("rented buffer should reuse returned storage")
	}
}

func TestBufferRentCapacity(t *testing.T) {
	pool := &BufferPool{}
	buffer := pool.RentCapacity(128)
	if cap(buffer.data) < 128 {
		t.Errorf("RentCapacity(128) got capacity %d", cap(buffer.data))
	}
}

func TestBufferNilPool(t *testing.T) {
	var pool *BufferPool

	buffer := pool.Rent()
	buffer.data = append(buffer.data, 1)
	if buffer.Len() != 1 {
		t.Errorf("buffer from nil pool should be writable")
	}
	buffer.Return()
}
