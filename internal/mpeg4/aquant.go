package mpeg4

import "math"

// Luminance masking parameters.
const (
	darkAmpl    = 14.0 / 2
	brightAmpl  = 10.0 / 2
	darkThres   = 70.0
	brightThres = 200.0
)

func rdiff(a, b float32) int {
	return int(a+0.5) - int(b+0.5)
}

// NormalizeQuantField smooths a per-macroblock quantizer field so that
// neighbouring entries (in raster order) differ by at most 2 after rounding
// and every entry lies in [minQ, maxQ]. Entries above their predecessor are
// lowered, entries far below it lower the predecessor, in steps of 0.5 until
// nothing changes. It returns the rounded first entry and the rounded
// difference of each entry to its predecessor (0 for the first). in is not
// modified.
func NormalizeQuantField(in []float32, minQ, maxQ int) (int, []int) {
	if len(in) == 0 {
		return minQ, nil
	}
	lo, hi := float32(minQ), float32(maxQ)
	q := make([]float32, len(in))
	for i, v := range in {
		switch {
		case math.IsNaN(float64(v)) || v < lo:
			q[i] = lo
		case v > hi:
			q[i] = hi
		default:
			q[i] = v
		}
	}

	for done := false; !done; {
		done = true
		for i := 1; i < len(q); i++ {
			if d := rdiff(q[i], q[i-1]); d > 2 {
				q[i] -= 0.5
				done = false
			} else if d < -2 {
				q[i-1] -= 0.5
				done = false
			}
			for _, j := range [2]int{i, i - 1} {
				if q[j] > hi {
					q[j] = hi
					done = false
				}
				if q[j] < lo {
					q[j] = lo
					done = false
				}
			}
		}
	}

	deltas := make([]int, len(q))
	for i := 1; i < len(q); i++ {
		deltas[i] = rdiff(q[i], q[i-1])
	}
	return int(q[0] + 0.5), deltas
}

// LuminanceMask derives a quantizer field from the brightness of each
// macroblock of img: dark and bright areas, where the eye is less sensitive,
// get coarser quantizers than frameQuant. The field is normalized over
// [frameQuant, max(maxQ, frameQuant)].
func LuminanceMask(img *Image, frameQuant, maxQ int) (int, []int) {
	field := make([]float32, 0, img.MBWidth*img.MBHeight)
	for y := 0; y < img.MBHeight; y++ {
		for x := 0; x < img.MBWidth; x++ {
			sum := 0
			for j := 0; j < 16; j++ {
				row := img.Y[img.YOff(x*16, y*16+j):]
				for i := 0; i < 16; i++ {
					sum += int(row[i])
				}
			}
			mean := float32(sum) / 256
			q := float32(frameQuant)
			switch {
			case mean < darkThres:
				q += darkAmpl * (darkThres - mean) / darkThres
			case mean > brightThres:
				q += brightAmpl * (mean - brightThres) / (255 - brightThres)
			}
			field = append(field, q)
		}
	}
	return NormalizeQuantField(field, frameQuant, max(maxQ, frameQuant))
}

// dquantHints converts normalized deltas into macroblock hints.
func dquantHints(deltas []int) []DQuant {
	hints := make([]DQuant, len(deltas))
	for i, d := range deltas {
		hints[i] = DQuantFromDelta(d)
	}
	return hints
}
