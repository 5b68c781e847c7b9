package dsp

import (
	"math/rand"
	"testing"
)

// Dispatch conformance tests: the function variables must produce the same
// results as the portable reference kernels, whichever implementation Init
// selected.

// makeRandBuf creates a random buffer with the given size seeded by rng.
func makeRandBuf(rng *rand.Rand, size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(rng.Intn(256))
	}
	return buf
}

// copyBuf returns a copy of the buffer.
func copyBuf(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

const testStride = 48

func TestSAD16Conformance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		cur := makeRandBuf(rng, 16*testStride)
		ref := makeRandBuf(rng, 16*testStride)
		want := 0
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				want += abs(int(cur[y*testStride+x]) - int(ref[y*testStride+x]))
			}
		}
		if got := SAD16(cur, ref, testStride, 1<<30); got != want {
			t.Fatalf("iter %d: SAD16 = %d, want %d", iter, got, want)
		}
		if got := sad16(cur, ref, testStride, 1<<30); got != want {
			t.Fatalf("iter %d: sad16 = %d, want %d", iter, got, want)
		}
		// An early exit never reports less than the bound.
		if got := SAD16(cur, ref, testStride, want/2); got < want/2 {
			t.Fatalf("iter %d: bounded SAD16 = %d < %d", iter, got, want/2)
		}
	}
}

func TestSAD8Conformance(t *testing.T) {
	rng := rand.New(rand.NewSource(43))
	for iter := 0; iter < 500; iter++ {
		cur := makeRandBuf(rng, 8*testStride)
		ref := makeRandBuf(rng, 8*testStride)
		if got, want := SAD8(cur, ref, testStride), sad8(cur, ref, testStride); got != want {
			t.Fatalf("iter %d: SAD8 = %d, want %d", iter, got, want)
		}
	}
}

func TestDev16(t *testing.T) {
	flat := make([]byte, 16*testStride)
	for i := range flat {
		flat[i] = 77
	}
	if got := Dev16(flat, testStride); got != 0 {
		t.Fatalf("flat Dev16 = %d", got)
	}
	// Half 0 and half 200: mean 100, every sample deviates by 100.
	split := make([]byte, 16*testStride)
	for y := 0; y < 16; y++ {
		for x := 8; x < 16; x++ {
			split[y*testStride+x] = 200
		}
	}
	if got := Dev16(split, testStride); got != 256*100 {
		t.Fatalf("split Dev16 = %d, want %d", got, 256*100)
	}
}

func TestInterpolate(t *testing.T) {
	const w, h = 4, 3
	src := []byte{
		10, 20, 30, 40,
		50, 61, 70, 80,
		90, 100, 110, 121,
	}
	tests := []struct {
		name     string
		fn       func(dst, src []byte, width, height, stride, rounding int)
		rounding int
		want     []byte
	}{
		{"h r0", InterpolateH, 0, []byte{
			15, 25, 35, 40,
			56, 66, 75, 80,
			95, 105, 116, 121,
		}},
		{"h r1", InterpolateH, 1, []byte{
			15, 25, 35, 40,
			55, 65, 75, 80,
			95, 105, 115, 121,
		}},
		{"v r0", InterpolateV, 0, []byte{
			30, 41, 50, 60,
			70, 81, 90, 101,
			90, 100, 110, 121,
		}},
		{"hv r1", InterpolateHV, 1, []byte{
			35, 45, 55, 60,
			75, 85, 95, 100,
			95, 105, 115, 121,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, w*h)
			tt.fn(dst, src, w, h, w, tt.rounding)
			for i := range dst {
				if dst[i] != tt.want[i] {
					t.Fatalf("sample %d = %d, want %d (got %v)", i, dst[i], tt.want[i], dst)
				}
			}
		})
	}
}

func TestTransferRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(44))
	for iter := 0; iter < 100; iter++ {
		cur := makeRandBuf(rng, 8*testStride)
		ref := makeRandBuf(rng, 8*testStride)
		orig := copyBuf(cur)

		var diff [64]int16
		Transfer8to16Sub(&diff, cur, ref, testStride)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if cur[y*testStride+x] != ref[y*testStride+x] {
					t.Fatalf("prediction not copied at %d,%d", x, y)
				}
			}
		}
		Transfer16to8Add(cur, &diff, testStride)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if cur[y*testStride+x] != orig[y*testStride+x] {
					t.Fatalf("iter %d: reconstruction mismatch at %d,%d", iter, x, y)
				}
			}
		}

		var blk [64]int16
		Transfer8to16Copy(&blk, orig, testStride)
		out := make([]byte, 8*testStride)
		Transfer16to8Copy(out, &blk, testStride)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if out[y*testStride+x] != orig[y*testStride+x] {
					t.Fatalf("iter %d: copy mismatch at %d,%d", iter, x, y)
				}
			}
		}
	}
}

func TestTransfer16to8Clamps(t *testing.T) {
	var blk [64]int16
	blk[0], blk[1] = -40, 400
	dst := make([]byte, 8*8)
	Transfer16to8Copy(dst, &blk, 8)
	if dst[0] != 0 || dst[1] != 255 {
		t.Fatalf("got %d %d", dst[0], dst[1])
	}
	dst[2] = 250
	blk[2] = 10
	Transfer16to8Add(dst, &blk, 8)
	if dst[2] != 255 {
		t.Fatalf("add clamp: %d", dst[2])
	}
}

func TestRGBToYUV(t *testing.T) {
	tests := []struct {
		r, g, b int
		y       uint8
	}{
		{0, 0, 0, 16},
		{255, 255, 255, 235},
	}
	for _, tt := range tests {
		if got := RGBToY(tt.r, tt.g, tt.b); got != tt.y {
			t.Errorf("RGBToY(%d,%d,%d) = %d, want %d", tt.r, tt.g, tt.b, got, tt.y)
		}
	}
	// Grey has neutral chroma.
	if u := RGBToU(4*128, 4*128, 4*128, UVRounding); u != 128 {
		t.Errorf("grey U = %d", u)
	}
	if v := RGBToV(4*128, 4*128, 4*128, UVRounding); v != 128 {
		t.Errorf("grey V = %d", v)
	}
	var rgb [3]byte
	YUVToRGB(235, 128, 128, rgb[:])
	if rgb != [3]byte{255, 255, 255} {
		t.Errorf("white = %v", rgb)
	}
}
