package bitio

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestWriter_Reader_RoundTrip_AllWidths(t *testing.T) {
	// Every width 1..32 with random values, read back bit-exactly.
	rng := rand.New(rand.NewSource(42))

	type field struct {
		v uint32
		n int
	}
	var fields []field
	bw := NewWriter(64)
	defer bw.Release()
	for i := 0; i < 2000; i++ {
		n := rng.Intn(32) + 1
		v := rng.Uint32()
		if n < 32 {
			v &= 1<<uint(n) - 1
		}
		fields = append(fields, field{v, n})
		bw.PutBits(v, n)
	}
	total := bw.BitLength()
	data := bw.Finish()
	if want := (total + 7) / 8; len(data) != want {
		t.Fatalf("len = %d, want %d", len(data), want)
	}

	br := NewReader(data)
	for i, f := range fields {
		if got := br.ReadBits(f.n); got != f.v {
			t.Fatalf("field %d (n=%d): got %#x, want %#x", i, f.n, got, f.v)
		}
	}
	if br.EOS() {
		t.Fatal("unexpected end of stream")
	}
}

func TestWriter_PadsPartialByte(t *testing.T) {
	tests := []struct {
		name  string
		write func(bw *Writer)
		want  []byte
		bits  int
	}{
		{"one bit", func(bw *Writer) { bw.PutBits(1, 1) }, []byte{0x80}, 1},
		{"three bits", func(bw *Writer) { bw.PutBits(5, 3) }, []byte{0xA0}, 3},
		{"byte", func(bw *Writer) { bw.PutBits(0xC3, 8) }, []byte{0xC3}, 8},
		{"nine bits", func(bw *Writer) { bw.PutBits(0x1FF, 9) }, []byte{0xFF, 0x80}, 9},
		{"word then bit", func(bw *Writer) {
			bw.PutBits(0xDEADBEEF, 32)
			bw.PutBits(1, 1)
		}, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x80}, 33},
		{"value masked", func(bw *Writer) { bw.PutBits(0xFF, 4) }, []byte{0xF0}, 4},
		{"empty", func(bw *Writer) { bw.PutBits(0, 0) }, []byte{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bw := NewWriter(0)
			defer bw.Release()
			tt.write(bw)
			if bw.BitLength() != tt.bits {
				t.Errorf("BitLength = %d, want %d", bw.BitLength(), tt.bits)
			}
			got := bw.Finish()
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Finish = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestWriter_Pad(t *testing.T) {
	for n := 0; n < 24; n++ {
		bw := NewWriter(0)
		bw.Skip(n)
		bw.Pad()
		if bw.BitLength()%8 != 0 {
			t.Errorf("after %d bits Pad left BitLength %d", n, bw.BitLength())
		}
		if pad := bw.BitLength() - n; pad < 0 || pad > 7 {
			t.Errorf("after %d bits Pad added %d bits", n, pad)
		}
		bw.Release()
	}
}

func TestWriter_SkipWide(t *testing.T) {
	bw := NewWriter(0)
	defer bw.Release()
	bw.PutBits(1, 1)
	bw.Skip(70)
	bw.PutBits(1, 1)
	if bw.BitLength() != 72 {
		t.Fatalf("BitLength = %d, want 72", bw.BitLength())
	}
	data := bw.Finish()
	want := make([]byte, 9)
	want[0] = 0x80
	want[8] = 0x01
	if !bytes.Equal(data, want) {
		t.Fatalf("got %x, want %x", data, want)
	}
}

func TestWriter_Grow(t *testing.T) {
	// Write far past the initial buffer to force several reallocations.
	bw := NewWriter(0)
	defer bw.Release()
	const n = 100000
	for i := 0; i < n; i++ {
		bw.PutBits(uint32(i), 16)
	}
	data := bw.Finish()
	if len(data) != n*2 {
		t.Fatalf("len = %d, want %d", len(data), n*2)
	}
	for i := 0; i < n; i++ {
		got := uint16(data[2*i])<<8 | uint16(data[2*i+1])
		if got != uint16(i) {
			t.Fatalf("word %d = %d", i, got)
		}
	}
}

func TestWriter_Reset(t *testing.T) {
	bw := NewWriter(0)
	defer bw.Release()
	bw.PutBits(0xAB, 8)
	bw.Finish()
	bw.Reset()
	if bw.BitLength() != 0 {
		t.Fatalf("BitLength after Reset = %d", bw.BitLength())
	}
	bw.PutBits(0x5, 3)
	if got := bw.Finish(); !bytes.Equal(got, []byte{0xA0}) {
		t.Fatalf("got %x", got)
	}
}

func TestWriter_WriteAfterFinishPanics(t *testing.T) {
	bw := NewWriter(0)
	defer bw.Release()
	bw.Finish()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	bw.PutBits(1, 1)
}

func TestExpGolomb_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ues := []uint32{0, 1, 2, 3, 7, 8, 255, 65535, 1 << 20, 1<<31 - 1, 0xFFFFFFFE}
	ses := []int32{0, 1, -1, 2, -2, 100, -100, 1<<30 - 1, -(1 << 30)}
	for i := 0; i < 500; i++ {
		ues = append(ues, uint32(rng.Intn(1<<16)))
		ses = append(ses, int32(rng.Intn(1<<16)-1<<15))
	}

	bw := NewWriter(0)
	defer bw.Release()
	for _, v := range ues {
		before := bw.BitLength()
		bw.PutUE(v)
		if got := bw.BitLength() - before; got != UELen(v) {
			t.Fatalf("UE(%d) wrote %d bits, UELen says %d", v, got, UELen(v))
		}
	}
	for _, v := range ses {
		before := bw.BitLength()
		bw.PutSE(v)
		if got := bw.BitLength() - before; got != SELen(v) {
			t.Fatalf("SE(%d) wrote %d bits, SELen says %d", v, got, SELen(v))
		}
	}
	br := NewReader(bw.Finish())
	for _, v := range ues {
		if got := br.ReadUE(); got != v {
			t.Fatalf("ReadUE = %d, want %d", got, v)
		}
	}
	for _, v := range ses {
		if got := br.ReadSE(); got != v {
			t.Fatalf("ReadSE = %d, want %d", got, v)
		}
	}
}

func TestExpGolomb_KnownCodes(t *testing.T) {
	tests := []struct {
		v    uint32
		bits int
	}{
		{0, 1}, {1, 3}, {2, 3}, {3, 5}, {6, 5}, {7, 7},
	}
	for _, tt := range tests {
		if got := UELen(tt.v); got != tt.bits {
			t.Errorf("UELen(%d) = %d, want %d", tt.v, got, tt.bits)
		}
	}
}

func TestReader_EOS(t *testing.T) {
	br := NewReader([]byte{0xFF})
	if got := br.ReadBits(8); got != 0xFF {
		t.Fatalf("got %#x", got)
	}
	if br.EOS() {
		t.Fatal("EOS set too early")
	}
	if got := br.ReadBits(4); got != 0 {
		t.Fatalf("read past end returned %#x", got)
	}
	if !br.EOS() {
		t.Fatal("EOS not set")
	}
}

func TestReader_Align(t *testing.T) {
	br := NewReader([]byte{0x80, 0x42})
	br.ReadBit()
	br.Align()
	if br.BitPos() != 8 {
		t.Fatalf("BitPos = %d", br.BitPos())
	}
	if got := br.ReadBits(8); got != 0x42 {
		t.Fatalf("got %#x", got)
	}
}
