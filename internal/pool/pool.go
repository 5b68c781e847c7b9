// Package pool recycles the byte buffers behind picture planes and
// bitstream buffers. Buffers are kept in power-of-two size classes so a
// plane released by one encoder can back a plane of the same picture size
// in the next one.
package pool

import (
	"math/bits"
	"sync"
)

// Size classes span MinSize to MaxSize. Larger requests are allocated
// directly and never pooled.
const (
	minShift = 10
	maxShift = 25

	MinSize = 1 << minShift // 1 KiB
	MaxSize = 1 << maxShift // 32 MiB, a 4K picture's luma plane with margins
)

var pools [maxShift - minShift + 1]sync.Pool

// class returns the size class index for size, or -1 if size is too large
// to pool.
func class(size int) int {
	if size <= MinSize {
		return 0
	}
	if size > MaxSize {
		return -1
	}
	return bits.Len(uint(size-1)) - minShift
}

// Get returns a byte slice of length size. Its contents are undefined.
// The capacity is the size class, so Put can return it to the same class.
func Get(size int) []byte {
	c := class(size)
	if c < 0 {
		return make([]byte, size)
	}
	if bp, ok := pools[c].Get().(*[]byte); ok {
		return (*bp)[:size]
	}
	return make([]byte, size, 1<<(c+minShift))
}

// Put returns b to its size class. Slices whose capacity is not a size
// class, such as those allocated outside Get, are dropped.
func Put(b []byte) {
	c := cap(b)
	if c < MinSize || c > MaxSize || c&(c-1) != 0 {
		return
	}
	b = b[:c]
	pools[class(c)].Put(&b)
}
