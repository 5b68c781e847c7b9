package bitio

import (
	"encoding/binary"
	"math/bits"

	"github.com/deepteams/m4v/internal/pool"
)

const (
	// flushBits is the number of bits moved from the accumulator to the
	// output buffer at a time.
	flushBits = 32
	// flushBytes is flushBits in bytes.
	flushBytes = 4
)

// Writer packs variable-length fields most-significant-bit first.
//
// Bits are accumulated right-aligned in a 64-bit register and flushed as
// big-endian 32-bit words once 32 or more are pending, so the register
// never holds more than 63 bits. The output buffer is borrowed from the
// pool package and grows transparently; call Release to hand it back.
type Writer struct {
	acc      uint64 // pending bits, right-aligned
	used     int    // number of pending bits in acc
	buf      []byte // output buffer
	cur      int    // bytes committed to buf
	finished bool
}

// NewWriter creates a Writer with at least expectedSize bytes of storage.
func NewWriter(expectedSize int) *Writer {
	if expectedSize < pool.MinSize {
		expectedSize = pool.MinSize
	}
	return &Writer{buf: pool.Get(expectedSize)}
}

// PutBits appends the low nBits (0..32) of v.
func (bw *Writer) PutBits(v uint32, nBits int) {
	if nBits == 0 {
		return
	}
	if bw.finished {
		panic("bitio: write after Finish")
	}
	if nBits < 32 {
		v &= 1<<uint(nBits) - 1
	}
	bw.acc = bw.acc<<uint(nBits) | uint64(v)
	bw.used += nBits
	if bw.used >= flushBits {
		bw.flushWord()
	}
}

// PutBit appends a single bit.
func (bw *Writer) PutBit(b bool) {
	if b {
		bw.PutBits(1, 1)
	} else {
		bw.PutBits(0, 1)
	}
}

// Skip appends n zero bits. n may exceed 32.
func (bw *Writer) Skip(n int) {
	for n > 32 {
		bw.PutBits(0, 32)
		n -= 32
	}
	bw.PutBits(0, n)
}

// Pad appends 0..7 zero bits so the stream ends on a byte boundary.
func (bw *Writer) Pad() {
	if r := bw.used & 7; r != 0 {
		bw.PutBits(0, 8-r)
	}
}

// PutUE writes v as an unsigned Exp-Golomb code.
func (bw *Writer) PutUE(v uint32) {
	code := uint64(v) + 1
	n := bits.Len64(code)
	bw.Skip(n - 1)
	if n > 32 {
		bw.PutBits(uint32(code>>32), n-32)
		bw.PutBits(uint32(code), 32)
		return
	}
	bw.PutBits(uint32(code), n)
}

// PutSE writes v as a signed Exp-Golomb code (positive values first).
func (bw *Writer) PutSE(v int32) {
	if v > 0 {
		bw.PutUE(uint32(v)*2 - 1)
	} else {
		bw.PutUE(uint32(-int64(v)) * 2)
	}
}

// UELen returns the length in bits of the unsigned Exp-Golomb code for v.
func UELen(v uint32) int {
	return 2*bits.Len64(uint64(v)+1) - 1
}

// SELen returns the length in bits of the signed Exp-Golomb code for v.
func SELen(v int32) int {
	if v > 0 {
		return UELen(uint32(v)*2 - 1)
	}
	return UELen(uint32(-int64(v)) * 2)
}

// flushWord moves the oldest 32 pending bits to the output buffer.
func (bw *Writer) flushWord() {
	bw.grow(flushBytes)
	bw.used -= flushBits
	binary.BigEndian.PutUint32(bw.buf[bw.cur:], uint32(bw.acc>>uint(bw.used)))
	bw.cur += flushBytes
	bw.acc &= 1<<uint(bw.used) - 1
}

// grow ensures at least n bytes of capacity remain at bw.cur.
func (bw *Writer) grow(n int) {
	if bw.cur+n <= len(bw.buf) {
		return
	}
	newSize := len(bw.buf) * 3 / 2
	need := bw.cur + n
	if newSize < need {
		newSize = need
	}
	tmp := pool.Get(newSize)
	copy(tmp, bw.buf[:bw.cur])
	pool.Put(bw.buf)
	bw.buf = tmp
}

// BitLength returns the number of bits written since the last Reset.
func (bw *Writer) BitLength() int {
	return bw.cur*8 + bw.used
}

// Finish pads to a byte boundary, flushes every pending byte and returns
// the encoded bytes. The slice aliases the writer's storage and is valid
// until the next Reset or Release. No writes are accepted until Reset.
func (bw *Writer) Finish() []byte {
	if bw.finished {
		return bw.buf[:bw.cur]
	}
	bw.Pad()
	bw.grow((bw.used + 7) >> 3)
	for bw.used > 0 {
		bw.used -= 8
		bw.buf[bw.cur] = byte(bw.acc >> uint(bw.used))
		bw.cur++
	}
	bw.acc = 0
	bw.finished = true
	return bw.buf[:bw.cur]
}

// Reset rewinds the writer to an empty stream, keeping its storage.
func (bw *Writer) Reset() {
	bw.acc = 0
	bw.used = 0
	bw.cur = 0
	bw.finished = false
}

// Release returns the storage to the pool. The writer must not be used
// afterwards.
func (bw *Writer) Release() {
	if bw.buf != nil {
		pool.Put(bw.buf)
		bw.buf = nil
	}
}
