package mpeg4

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

// testFrame returns a contiguous I420 picture: a smooth luma pattern with a
// bright square that moves two pixels right per step.
func testFrame(w, h, step int) []byte {
	out := make([]byte, w*h+2*(w/2)*(h/2))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 128 + 50*math.Sin(float64(x+2*step)/7)*math.Cos(float64(y)/5)
			sx, sy := x-2*step-8, y-12
			if sx >= 0 && sx < 12 && sy >= 0 && sy < 12 {
				v = 230
			}
			out[y*w+x] = byte(v)
		}
	}
	cw, ch := w/2, h/2
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			out[w*h+y*cw+x] = byte(100 + x + 2*step)
			out[w*h+cw*ch+y*cw+x] = byte(150 - y)
		}
	}
	return out
}

func newTestEncoder(t *testing.T, w, h, quality int, motion MotionEstimator) *Encoder {
	t.Helper()
	e := NewEncoder(Config{
		Width: w, Height: h,
		Quality:        quality,
		MaxKeyInterval: 250,
		MaxQuant:       31,
		Quant:          4,
		Motion:         motion,
	})
	t.Cleanup(e.Close)
	return e
}

func importTestFrame(t *testing.T, e *Encoder, step int) {
	t.Helper()
	frame := testFrame(e.cfg.Width, e.cfg.Height, step)
	if err := e.Import(LayoutI420, [3][]byte{frame}, [3]int{}); err != nil {
		t.Fatalf("Import: %v", err)
	}
}

func assertSamePicture(t *testing.T, got, want *Image) {
	t.Helper()
	for y := 0; y < want.Height; y++ {
		a := got.Y[got.YOff(0, y) : got.YOff(0, y)+want.Width]
		b := want.Y[want.YOff(0, y) : want.YOff(0, y)+want.Width]
		if !bytes.Equal(a, b) {
			t.Fatalf("luma row %d differs", y)
		}
	}
	for y := 0; y < want.Height/2; y++ {
		off := want.UVOff(0, y)
		if !bytes.Equal(got.U[off:off+want.Width/2], want.U[off:off+want.Width/2]) {
			t.Fatalf("U row %d differs", y)
		}
		if !bytes.Equal(got.V[off:off+want.Width/2], want.V[off:off+want.Width/2]) {
			t.Fatalf("V row %d differs", y)
		}
	}
}

// alwaysIntra is a MotionEstimator that never finds a usable match.
type alwaysIntra struct{}

func (alwaysIntra) Estimate(s *MotionSearch, x, y int, allow4V bool) bool {
	mb, _ := s.Grid.At(x, y)
	mb.Mode = ModeIntra
	mb.MVs = [4]Vector{}
	return true
}

func TestEncodeFrame_FirstFrameIsIntra(t *testing.T) {
	e := newTestEncoder(t, 64, 48, 5, nil)
	importTestFrame(t, e, 0)
	data, st, err := e.EncodeFrame(&FrameParams{Type: FrameInter})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if !st.KeyFrame || st.IntraMBs != 12 || st.MotionBits != 0 {
		t.Fatalf("stats = %+v, want key frame with 12 intra MBs", st)
	}
	if st.TextureBits != st.TotalBits {
		t.Fatalf("texture %d != total %d", st.TextureBits, st.TotalBits)
	}
	w, h, hdr, err := ReadPictureHeader(data)
	if err != nil {
		t.Fatalf("ReadPictureHeader: %v", err)
	}
	if w != 64 || h != 48 || !hdr.Intra || hdr.Quant != 4 {
		t.Fatalf("header %dx%d %+v", w, h, hdr)
	}
}

func TestEncodeFrame_DecoderMatchesReference(t *testing.T) {
	for _, quality := range []int{1, 3, 4, 5} {
		e := newTestEncoder(t, 96, 64, quality, nil)
		d := NewDecoder()
		defer d.Close()

		for step := 0; step < 5; step++ {
			importTestFrame(t, e, step)
			input := NewImage(96, 64)
			input.CopyFrom(e.Current())

			data, st, err := e.EncodeFrame(&FrameParams{})
			if err != nil {
				t.Fatalf("q%d frame %d: EncodeFrame: %v", quality, step, err)
			}
			if step == 0 && !st.KeyFrame {
				t.Fatalf("q%d: first frame is not a key frame", quality)
			}
			hdr, n, err := d.DecodeFrame(data)
			if err != nil {
				t.Fatalf("q%d frame %d: DecodeFrame: %v", quality, step, err)
			}
			if n != len(data) {
				t.Fatalf("q%d frame %d: consumed %d of %d bytes", quality, step, n, len(data))
			}
			if hdr.Intra != st.KeyFrame {
				t.Fatalf("q%d frame %d: header intra %v", quality, step, hdr.Intra)
			}
			assertSamePicture(t, d.Picture(), e.Reference())
			if p := e.Reference().PSNR(input); p < 28 {
				t.Fatalf("q%d frame %d: PSNR %.2f dB", quality, step, p)
			}
			if s := e.Reference().SSIM(input); s < 0.8 || s > 1 {
				t.Fatalf("q%d frame %d: SSIM %.3f", quality, step, s)
			}
			input.Release()
		}
	}
}

func TestEncodeFrame_QuantFieldRoundTrip(t *testing.T) {
	e := newTestEncoder(t, 64, 64, 5, nil)
	d := NewDecoder()
	defer d.Close()

	field := make([]float32, e.Grid().Len())
	for i := range field {
		field[i] = float32(4 + 2*(i%2))
	}
	for step := 0; step < 3; step++ {
		importTestFrame(t, e, step)
		data, _, err := e.EncodeFrame(&FrameParams{AQ: AQArray, QuantArray: field})
		if err != nil {
			t.Fatalf("frame %d: EncodeFrame: %v", step, err)
		}
		if _, _, err := d.DecodeFrame(data); err != nil {
			t.Fatalf("frame %d: DecodeFrame: %v", step, err)
		}
		assertSamePicture(t, d.Picture(), e.Reference())
	}
}

func TestEncodeFrame_QuantFieldLength(t *testing.T) {
	e := newTestEncoder(t, 64, 64, 5, nil)
	importTestFrame(t, e, 0)
	_, _, err := e.EncodeFrame(&FrameParams{AQ: AQArray, QuantArray: make([]float32, 3)})
	if err == nil {
		t.Fatal("expected an error for a short quantizer field")
	}
}

func TestEncodeFrame_StaticPictureSkips(t *testing.T) {
	e := newTestEncoder(t, 64, 48, 5, nil)
	importTestFrame(t, e, 0)
	if _, _, err := e.EncodeFrame(&FrameParams{}); err != nil {
		t.Fatal(err)
	}
	// Re-import the reconstruction so every macroblock matches exactly.
	e.Current().CopyFrom(e.Reference())
	_, st, err := e.EncodeFrame(&FrameParams{})
	if err != nil {
		t.Fatal(err)
	}
	if st.KeyFrame || st.IntraMBs != 0 || st.MotionBits != 0 {
		t.Fatalf("stats = %+v, want an all-skip P frame", st)
	}
	if st.TotalBits != e.Grid().Len() {
		t.Fatalf("TotalBits = %d, want one not_coded bit per macroblock", st.TotalBits)
	}
}

func TestEncodeFrame_IntraFallbackMatchesForcedIntra(t *testing.T) {
	fallback := newTestEncoder(t, 64, 48, 5, alwaysIntra{})
	forced := newTestEncoder(t, 64, 48, 5, alwaysIntra{})

	for _, e := range []*Encoder{fallback, forced} {
		importTestFrame(t, e, 0)
		if _, _, err := e.EncodeFrame(&FrameParams{}); err != nil {
			t.Fatal(err)
		}
		importTestFrame(t, e, 1)
	}

	got, st, err := fallback.EncodeFrame(&FrameParams{})
	if err != nil {
		t.Fatal(err)
	}
	got = bytes.Clone(got)
	if !st.KeyFrame || !st.Fallback {
		t.Fatalf("stats = %+v, want a fallback key frame", st)
	}
	want, wantSt, err := forced.EncodeFrame(&FrameParams{Type: FrameIntra})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("fallback stream differs from a forced intra frame")
	}
	if st.TotalBits != wantSt.TotalBits || st.FCode != wantSt.FCode || st.Quant != wantSt.Quant {
		t.Fatalf("stats %+v, want %+v", st, wantSt)
	}
	assertSamePicture(t, fallback.Reference(), forced.Reference())
}

func TestEncodeFrame_ForcedInterKeepsIntraMacroblocks(t *testing.T) {
	e := newTestEncoder(t, 64, 48, 5, alwaysIntra{})
	d := NewDecoder()
	defer d.Close()

	for step := 0; step < 2; step++ {
		importTestFrame(t, e, step)
		data, st, err := e.EncodeFrame(&FrameParams{Type: FrameInter})
		if err != nil {
			t.Fatal(err)
		}
		if step == 1 && (st.KeyFrame || st.Fallback || st.IntraMBs != e.Grid().Len()) {
			t.Fatalf("stats = %+v, want a P frame of intra macroblocks", st)
		}
		if _, _, err := d.DecodeFrame(data); err != nil {
			t.Fatal(err)
		}
		assertSamePicture(t, d.Picture(), e.Reference())
	}
}

func TestEncodeFrame_KeyInterval(t *testing.T) {
	e := NewEncoder(Config{Width: 32, Height: 32, Quality: 5, MaxKeyInterval: 2, MaxQuant: 31, Quant: 6})
	defer e.Close()

	var keys []bool
	for i := 0; i < 5; i++ {
		importTestFrame(t, e, 0)
		_, st, err := e.EncodeFrame(&FrameParams{})
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, st.KeyFrame)
	}
	want := []bool{true, false, true, false, true}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key frames = %v, want %v", keys, want)
		}
	}
}

func TestEncodeFrame_QualityZeroIsIntraOnly(t *testing.T) {
	e := newTestEncoder(t, 32, 32, 0, nil)
	for step := 0; step < 3; step++ {
		importTestFrame(t, e, step)
		_, st, err := e.EncodeFrame(&FrameParams{})
		if err != nil {
			t.Fatal(err)
		}
		if !st.KeyFrame {
			t.Fatalf("frame %d coded as P at quality 0", step)
		}
	}
}

func TestAdaptSearchRange(t *testing.T) {
	e := newTestEncoder(t, 32, 32, 5, nil)

	e.adaptSearchRange(11) // 11 > 32/3
	if e.fcode != 3 {
		t.Fatalf("fcode = %d after a wide frame, want 3", e.fcode)
	}
	e.adaptSearchRange(1) // previous frame was wide
	if e.fcode != 3 {
		t.Fatalf("fcode = %d after one quiet frame, want 3", e.fcode)
	}
	e.adaptSearchRange(1)
	if e.fcode != 2 {
		t.Fatalf("fcode = %d after two quiet frames, want 2", e.fcode)
	}

	e.fcode, e.prevSigma = 4, 0
	e.adaptSearchRange(1000)
	if e.fcode != 4 {
		t.Fatalf("fcode = %d, want the ceiling of 4", e.fcode)
	}

	e.fcode, e.prevSigma = 1, 0
	e.adaptSearchRange(0)
	if e.fcode != 1 {
		t.Fatalf("fcode = %d, want the floor of 1", e.fcode)
	}

	e.fcode, e.prevSigma = 3, -1
	e.adaptSearchRange(0)
	if e.fcode != 3 {
		t.Fatalf("fcode = %d, narrowed without a previous frame", e.fcode)
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	e := newTestEncoder(t, 32, 32, 5, nil)
	var frames [][]byte
	for step := 0; step < 2; step++ {
		importTestFrame(t, e, step)
		data, _, err := e.EncodeFrame(&FrameParams{Type: FrameInter})
		if err != nil {
			t.Fatal(err)
		}
		frames = append(frames, bytes.Clone(data))
	}

	d := NewDecoder()
	defer d.Close()
	if _, _, err := d.DecodeFrame(frames[1]); !errors.Is(err, ErrBitstream) {
		t.Fatalf("P frame without a sequence header: err = %v", err)
	}
	if _, _, err := d.DecodeFrame([]byte{0, 0, 1}); !errors.Is(err, ErrBitstream) {
		t.Fatalf("short input: err = %v", err)
	}
	truncated := frames[0][:len(frames[0])/2]
	if _, _, err := d.DecodeFrame(truncated); !errors.Is(err, ErrBitstream) {
		t.Fatalf("truncated frame: err = %v", err)
	}
}

func TestDecodeFrame_SizeNeedsIntraBits(t *testing.T) {
	// 64x64 is 16 macroblocks: more than one bit each fits in 24 bytes,
	// a coded intra macroblock each does not.
	data := make([]byte, 24)
	copy(data, []byte{0, 0, 1, 0x20, 0, 64, 0, 64, 0, 0, 1, 0xb6, 0x10})

	d := NewDecoder()
	defer d.Close()
	if _, _, err := d.DecodeFrame(data); !errors.Is(err, ErrBitstream) {
		t.Fatalf("err = %v, want ErrBitstream", err)
	}
	if d.Picture() != nil {
		t.Fatal("pictures allocated for a stream too short to hold them")
	}

	// A P frame cannot start a new size, whatever its length.
	pframe := make([]byte, 1<<12)
	copy(pframe, []byte{0, 0, 1, 0x20, 0xff, 0xfe, 0xff, 0xfe, 0, 0, 1, 0xb6, 0x50, 0x20})
	if _, _, err := d.DecodeFrame(pframe); !errors.Is(err, ErrNoReference) {
		t.Fatalf("P frame with a new size: err = %v, want ErrNoReference", err)
	}
	if d.Picture() != nil {
		t.Fatal("pictures allocated for a P frame")
	}
}

func TestEncodeFrame_SaturationRaisesMacroblockQuant(t *testing.T) {
	// A flat white macroblock has a DC level that clips on dequantization
	// at 27, so the first macroblock moves up the ladder to 28 and
	// signals it; the next one inherits 28 without a delta.
	e := newTestEncoder(t, 32, 32, 5, nil)
	frame := bytes.Repeat([]byte{255}, 32*32*3/2)
	if err := e.Import(LayoutI420, [3][]byte{frame}, [3]int{}); err != nil {
		t.Fatalf("Import: %v", err)
	}
	data, st, err := e.EncodeFrame(&FrameParams{Type: FrameIntra, Quant: 27})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if st.Quant != 27 {
		t.Fatalf("running quant = %d, want 27 (retries do not move it)", st.Quant)
	}

	first, _ := e.Grid().At(0, 0)
	if first.Quant != 28 || first.Mode != ModeIntraQ {
		t.Fatalf("MB 0: quant %d mode %v, want 28 intra_q", first.Quant, first.Mode)
	}
	second, _ := e.Grid().At(1, 0)
	if second.Quant != 28 || second.Mode != ModeIntra {
		t.Fatalf("MB 1: quant %d mode %v, want 28 intra", second.Quant, second.Mode)
	}

	d := NewDecoder()
	defer d.Close()
	if _, n, err := d.DecodeFrame(data); err != nil || n != len(data) {
		t.Fatalf("DecodeFrame: consumed %d of %d: %v", n, len(data), err)
	}
	assertSamePicture(t, d.Picture(), e.Reference())
	if y := e.Reference().Y[e.Reference().YOff(5, 5)]; y != 255 {
		t.Fatalf("reconstructed luma %d, want 255", y)
	}
}
