package dsp

import (
	"math"
	"math/rand"
	"testing"
)

func TestSSE_PSNR(t *testing.T) {
	a := []byte{10, 20, 0, 30, 40, 0}
	b := []byte{12, 20, 9, 27, 40, 9}
	// Stride 3, width 2: the third column is ignored.
	if got := SSE(a, 3, b, 3, 2, 2); got != 4+9 {
		t.Fatalf("SSE = %d, want 13", got)
	}
	if got := PSNRFromSSE(0, 4); got != 99 {
		t.Errorf("PSNR of identical planes = %v", got)
	}
	want := 10 * math.Log10(255*255/(13.0/4))
	if got := PSNRFromSSE(13, 4); math.Abs(got-want) > 1e-9 {
		t.Errorf("PSNR = %v, want %v", got, want)
	}
}

func TestPlaneSSIM(t *testing.T) {
	const w, h = 24, 20
	rng := rand.New(rand.NewSource(3))
	a := make([]byte, w*h)
	for i := range a {
		a[i] = byte(64 + rng.Intn(128))
	}
	if got := PlaneSSIM(a, w, a, w, w, h); math.Abs(got-1) > 1e-9 {
		t.Fatalf("SSIM of identical planes = %v", got)
	}

	noisy := make([]byte, w*h)
	flat := make([]byte, w*h)
	for i := range a {
		noisy[i] = byte(int(a[i]) + rng.Intn(21) - 10)
		flat[i] = 128
	}
	sNoisy := PlaneSSIM(a, w, noisy, w, w, h)
	sFlat := PlaneSSIM(a, w, flat, w, w, h)
	if !(sNoisy < 1 && sFlat < sNoisy) {
		t.Fatalf("SSIM noisy %v flat %v: want flat < noisy < 1", sNoisy, sFlat)
	}
}
