// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package loader

// lazy is a one-shot memoized cell. The first get runs resolve and
// retains its result; every later get returns the same value or the same
// error without re-running it. Loading is single-threaded, so no
// synchronization is needed.
type lazy[T any] struct {
	done  bool
	value T
	err   error
}

func (c *lazy[T]) get(resolve func() (T, error)) (T, error) {
	if !c.done {
		c.value, c.err = resolve()
		c.done = true
	}
	return c.value, c.err
}
