package dsp

import (
	"math"
	"math/rand"
	"testing"
)

// refFDCT is a float64 orthonormal 8x8 DCT-II.
func refFDCT(in *[64]int16) [64]float64 {
	var out [64]float64
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			cu, cv := math.Sqrt(2.0/8), math.Sqrt(2.0/8)
			if u == 0 {
				cu = math.Sqrt(1.0 / 8)
			}
			if v == 0 {
				cv = math.Sqrt(1.0 / 8)
			}
			s := 0.0
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					s += float64(in[y*8+x]) *
						math.Cos(float64(2*y+1)*float64(u)*math.Pi/16) *
						math.Cos(float64(2*x+1)*float64(v)*math.Pi/16)
				}
			}
			out[u*8+v] = cu * cv * s
		}
	}
	return out
}

func TestFDCT_MatchesFloatReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 300; iter++ {
		block := randBlock(rng, 255)
		want := refFDCT(block)
		got := *block
		FDCT(&got)
		for i := range got {
			if d := math.Abs(float64(got[i]) - want[i]); d > 1.01 {
				t.Fatalf("iter %d coef %d: got %d, want %.2f", iter, i, got[i], want[i])
			}
		}
	}
}

func TestFDCT_DCIsSumOverEight(t *testing.T) {
	var block [64]int16
	for i := range block {
		block[i] = 200
	}
	FDCT(&block)
	if block[0] != 1600 {
		t.Fatalf("DC = %d, want 1600", block[0])
	}
	for i := 1; i < 64; i++ {
		if block[i] != 0 {
			t.Fatalf("AC %d = %d, want 0", i, block[i])
		}
	}
}

func TestIDCT_InvertsFDCT(t *testing.T) {
	rng := rand.New(rand.NewSource(43))
	for iter := 0; iter < 500; iter++ {
		orig := randBlock(rng, 255)
		block := *orig
		FDCT(&block)
		IDCT(&block)
		for i := range block {
			d := int(block[i]) - int(orig[i])
			if d < -1 || d > 1 {
				t.Fatalf("iter %d sample %d: got %d, want %d", iter, i, block[i], orig[i])
			}
		}
	}
}

func TestIDCT_DCOnly(t *testing.T) {
	var block [64]int16
	block[0] = 800
	IDCT(&block)
	for i, v := range block {
		if v != 100 {
			t.Fatalf("sample %d = %d, want 100", i, v)
		}
	}
}

func TestIDCT_ExtremeInputsDoNotOverflow(t *testing.T) {
	var block [64]int16
	for i := range block {
		block[i] = coeffMax
		if i&1 == 1 {
			block[i] = coeffMin
		}
	}
	want := refIDCT(&block)
	IDCT(&block)
	for i := range block {
		if d := math.Abs(float64(block[i]) - want[i]); d > 2 {
			t.Fatalf("sample %d: got %d, want %.2f", i, block[i], want[i])
		}
	}
}

func refIDCT(in *[64]int16) [64]float64 {
	var out [64]float64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			s := 0.0
			for u := 0; u < 8; u++ {
				for v := 0; v < 8; v++ {
					cu, cv := math.Sqrt(2.0/8), math.Sqrt(2.0/8)
					if u == 0 {
						cu = math.Sqrt(1.0 / 8)
					}
					if v == 0 {
						cv = math.Sqrt(1.0 / 8)
					}
					s += cu * cv * float64(in[u*8+v]) *
						math.Cos(float64(2*y+1)*float64(u)*math.Pi/16) *
						math.Cos(float64(2*x+1)*float64(v)*math.Pi/16)
				}
			}
			out[y*8+x] = s
		}
	}
	return out
}
