package dsp

// BT.601 limited-range conversion between RGB and YUV in fixed point. The
// encoder itself only sees YUV; these back image import and export.

const (
	yuvFix  = 16
	yuvHalf = 1 << (yuvFix - 1)

	// Output of the YUV to RGB products carries 6 fractional bits.
	rgbFrac = 6
	rgbMax  = 256<<rgbFrac - 1
)

// YUV to RGB multipliers. The luma and red/blue factors are scaled by 2^16,
// the others by 2^14; mulHi drops 8 bits in both cases. The biases absorb
// the Y-16 and UV-128 offsets.
const (
	yScale = 19077 // 1.164
	crToR  = 26149 // 1.596
	cbToG  = 6419  // 0.391
	crToG  = 13320 // 0.813
	cbToB  = 33050 // 2.018

	rBias = 14234
	gBias = 8708
	bBias = 17685
)

func mulHi(v, c int) int { return (v * c) >> 8 }

func clampRGB(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > rgbMax:
		return 255
	}
	return uint8(v >> rgbFrac)
}

// YUVToRGB converts one limited-range sample to RGB, writing rgb[0:3].
func YUVToRGB(y, u, v int, rgb []byte) {
	l := mulHi(y, yScale)
	rgb[0] = clampRGB(l + mulHi(v, crToR) - rBias)
	rgb[1] = clampRGB(l - mulHi(u, cbToG) - mulHi(v, crToG) + gBias)
	rgb[2] = clampRGB(l + mulHi(u, cbToB) - bBias)
}

// RGB to YUV coefficients, scaled by 2^16.
var (
	rgbToY = [3]int{16839, 33059, 6420}
	rgbToU = [3]int{-9719, -19081, 28800}
	rgbToV = [3]int{28800, -24116, -4684}
)

// UVRounding is the rounding term for RGBToU and RGBToV over a 2x2 sum.
const UVRounding = yuvHalf << 2

// RGBToY converts an RGB triple to luma.
func RGBToY(r, g, b int) uint8 {
	return uint8((rgbToY[0]*r + rgbToY[1]*g + rgbToY[2]*b + yuvHalf + 16<<yuvFix) >> yuvFix)
}

// RGBToU converts the sum of four RGB samples to Cb.
func RGBToU(r, g, b, rounding int) uint8 {
	return chroma(rgbToU[0]*r+rgbToU[1]*g+rgbToU[2]*b, rounding)
}

// RGBToV converts the sum of four RGB samples to Cr.
func RGBToV(r, g, b, rounding int) uint8 {
	return chroma(rgbToV[0]*r+rgbToV[1]*g+rgbToV[2]*b, rounding)
}

// chroma scales a 2x2 chroma sum back to 8 bits, centred on 128.
func chroma(sum, rounding int) uint8 {
	c := (sum + rounding + 128<<(yuvFix+2)) >> (yuvFix + 2)
	return uint8(min(max(c, 0), 255))
}
