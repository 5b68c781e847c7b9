package mpeg4

import (
	"bytes"
	"errors"
	"testing"
)

func TestImportFrame_PlanarLayouts(t *testing.T) {
	const w, h = 32, 16
	src := testFrame(w, h, 1)
	y, u, v := src[:w*h], src[w*h:w*h+w*h/4], src[w*h+w*h/4:]

	img := NewImage(w, h)
	defer img.Release()

	// Contiguous I420.
	if err := ImportFrame(img, LayoutI420, [3][]byte{src}, [3]int{}); err != nil {
		t.Fatal(err)
	}
	if got := ExportFrame(img); !bytes.Equal(got, src) {
		t.Fatal("contiguous I420 does not round trip")
	}

	// Separate YV12 planes with padded strides.
	pad := func(p []byte, pw, ph, stride int) []byte {
		out := make([]byte, stride*ph)
		for r := 0; r < ph; r++ {
			copy(out[r*stride:], p[r*pw:(r+1)*pw])
		}
		return out
	}
	clear(img.Y)
	planes := [3][]byte{pad(y, w, h, w+8), pad(v, w/2, h/2, w/2+4), pad(u, w/2, h/2, w/2+4)}
	if err := ImportFrame(img, LayoutYV12, planes, [3]int{w + 8, w/2 + 4, w/2 + 4}); err != nil {
		t.Fatal(err)
	}
	if got := ExportFrame(img); !bytes.Equal(got, src) {
		t.Fatal("strided YV12 does not round trip")
	}
}

func TestImportFrame_Packed(t *testing.T) {
	const w, h = 16, 2
	// One row pair of YUY2: luma ramps, U 10/30, V 200/100.
	a := make([]byte, 2*w)
	b := make([]byte, 2*w)
	for x := 0; x < w/2; x++ {
		a[4*x], a[4*x+1], a[4*x+2], a[4*x+3] = byte(2*x), 10, byte(2*x+1), 200
		b[4*x], b[4*x+1], b[4*x+2], b[4*x+3] = byte(100+2*x), 30, byte(101+2*x), 100
	}
	yuy2 := append(append([]byte(nil), a...), b...)

	img := NewImage(w, h)
	defer img.Release()
	if err := ImportFrame(img, LayoutYUY2, [3][]byte{yuy2}, [3]int{}); err != nil {
		t.Fatal(err)
	}
	for x := 0; x < w; x++ {
		if got := img.Y[img.YOff(x, 0)]; got != byte(x) {
			t.Fatalf("Y(%d,0) = %d", x, got)
		}
		if got := img.Y[img.YOff(x, 1)]; got != byte(100+x) {
			t.Fatalf("Y(%d,1) = %d", x, got)
		}
	}
	if u, v := img.U[img.UVOff(0, 0)], img.V[img.UVOff(0, 0)]; u != 20 || v != 150 {
		t.Fatalf("chroma = %d/%d, want 20/150", u, v)
	}

	// The same picture as UYVY.
	uyvy := make([]byte, len(yuy2))
	for i := 0; i < len(yuy2); i += 2 {
		uyvy[i], uyvy[i+1] = yuy2[i+1], yuy2[i]
	}
	other := NewImage(w, h)
	defer other.Release()
	if err := ImportFrame(other, LayoutUYVY, [3][]byte{uyvy}, [3]int{}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ExportFrame(other), ExportFrame(img)) {
		t.Fatal("UYVY import differs from YUY2")
	}
}

func TestImportFrame_RejectsWithoutWriting(t *testing.T) {
	img := NewImage(32, 32)
	defer img.Release()

	err := ImportFrame(img, LayoutI420, [3][]byte{make([]byte, 100)}, [3]int{})
	if !errors.Is(err, ErrShortPlane) {
		t.Fatalf("short buffer: err = %v", err)
	}
	err = ImportFrame(img, LayoutYUY2, [3][]byte{bytes.Repeat([]byte{9}, 2*32*31)}, [3]int{})
	if !errors.Is(err, ErrShortPlane) {
		t.Fatalf("short packed buffer: err = %v", err)
	}
	err = ImportFrame(img, Layout(42), [3][]byte{make([]byte, 4096)}, [3]int{})
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("unknown layout: err = %v", err)
	}
	for i, s := range img.Y {
		if s != 0 {
			t.Fatalf("sample %d written by a rejected import", i)
		}
	}
}
