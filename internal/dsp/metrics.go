package dsp

import "math"

// Picture quality metrics over 8-bit planes.

// ssimKernel is the radius of the SSIM window.
const ssimKernel = 3

// ssimWeight is the hat-shaped window; its coefficients sum to 16.
var ssimWeight = [2*ssimKernel + 1]uint32{1, 2, 3, 4, 3, 2, 1}

// ssimWeightSum is the total weight of an unclipped window.
const ssimWeightSum = 16 * 16

// distoStats accumulates weighted first and second moments of two signals.
type distoStats struct {
	w             uint32
	xm, ym        uint32
	xxm, xym, yym uint32
}

func (s *distoStats) add(x, y uint8, w uint32) {
	s.w += w
	s.xm += w * uint32(x)
	s.ym += w * uint32(y)
	s.xxm += w * uint32(x) * uint32(x)
	s.xym += w * uint32(x) * uint32(y)
	s.yym += w * uint32(y) * uint32(y)
}

// ssim evaluates the SSIM formula in integer arithmetic for n samples.
func (s *distoStats) ssim(n uint32) float64 {
	w2 := uint64(n) * uint64(n)
	c1 := 20 * w2
	c2 := 60 * w2
	dark := 8 * 8 * w2

	xmxm := uint64(s.xm) * uint64(s.xm)
	ymym := uint64(s.ym) * uint64(s.ym)
	if xmxm+ymym < dark {
		return 1
	}

	xmym := int64(s.xm) * int64(s.ym)
	sxy := int64(s.xym)*int64(n) - xmym
	sxx := uint64(s.xxm)*uint64(n) - xmxm
	syy := uint64(s.yym)*uint64(n) - ymym

	var sxyPos uint64
	if sxy > 0 {
		sxyPos = uint64(sxy)
	}
	// Descale by 8 bits so the products below fit.
	num := (2*uint64(xmym) + c1) * ((2*sxyPos + c2) >> 8)
	den := (xmxm + ymym + c1) * ((sxx + syy + c2) >> 8)
	if den == 0 {
		return 1
	}
	return float64(num) / float64(den)
}

// ssimAt computes the SSIM of the window centred on (xo, yo), clipped to a
// w x h plane.
func ssimAt(a []byte, strideA int, b []byte, strideB int, xo, yo, w, h int) float64 {
	var s distoStats
	ymin, ymax := max(yo-ssimKernel, 0), min(yo+ssimKernel, h-1)
	xmin, xmax := max(xo-ssimKernel, 0), min(xo+ssimKernel, w-1)
	for y := ymin; y <= ymax; y++ {
		wy := ssimWeight[ssimKernel+y-yo]
		for x := xmin; x <= xmax; x++ {
			s.add(a[x+y*strideA], b[x+y*strideB], wy*ssimWeight[ssimKernel+x-xo])
		}
	}
	if s.w == ssimWeightSum {
		return s.ssim(ssimWeightSum)
	}
	return s.ssim(s.w)
}

// PlaneSSIM returns the mean SSIM of two w x h planes, one window per
// sample.
func PlaneSSIM(a []byte, strideA int, b []byte, strideB int, w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum += ssimAt(a, strideA, b, strideB, x, y, w, h)
		}
	}
	return sum / float64(w*h)
}

// PSNRFromSSE converts a sum of squared errors over count samples to dB.
// Identical planes report 99.
func PSNRFromSSE(sse uint64, count int) float64 {
	if sse == 0 || count == 0 {
		return 99
	}
	mse := float64(sse) / float64(count)
	return 10 * math.Log10(255*255/mse)
}

// SSE returns the sum of squared errors of two w x h planes.
func SSE(a []byte, strideA int, b []byte, strideB int, w, h int) uint64 {
	var sse uint64
	for y := 0; y < h; y++ {
		ra, rb := a[y*strideA:y*strideA+w], b[y*strideB:y*strideB+w]
		for x := range ra {
			d := int(ra[x]) - int(rb[x])
			sse += uint64(d * d)
		}
	}
	return sse
}
