// Package dsp holds the numeric kernels of the encoder: the 8x8 transform,
// scalar quantization, block matching metrics, half-pel interpolation and
// the 8-bit/16-bit block transfers.
//
// Kernels are reached through function variables so a platform-specific
// implementation can be swapped in by Init without touching callers. Only
// the portable Go implementations exist today.
package dsp

// BlockSize is the side of a transform block.
const BlockSize = 8

// Transform function variables for dispatch.
var (
	FDCT func(block *[64]int16)
	IDCT func(block *[64]int16)
)

// Quantizer function variables for dispatch.
var (
	QuantIntra   func(coeff, data *[64]int16, quant, dcScaler int)
	QuantInter   func(coeff, data *[64]int16, quant int) int
	DequantIntra func(data, coeff *[64]int16, quant, dcScaler int)
	DequantInter func(data, coeff *[64]int16, quant int)
)

// Block matching metrics.
var (
	// SAD16 returns the sum of absolute differences of a 16x16 block. It
	// may stop early and return any value >= best once that bound is hit.
	SAD16 func(cur, ref []byte, stride, best int) int
	SAD8  func(cur, ref []byte, stride int) int
	// Dev16 returns the sum of absolute deviations of a 16x16 block from
	// its mean.
	Dev16 func(cur []byte, stride int) int
)

// Half-pel interpolation over a whole plane of width x height samples.
var (
	InterpolateH  func(dst, src []byte, width, height, stride, rounding int)
	InterpolateV  func(dst, src []byte, width, height, stride, rounding int)
	InterpolateHV func(dst, src []byte, width, height, stride, rounding int)
)

// Block transfers between 8-bit planes and 16-bit coefficient blocks.
var (
	Transfer8to16Copy func(dst *[64]int16, src []byte, stride int)
	Transfer16to8Copy func(dst []byte, src *[64]int16, stride int)
	Transfer16to8Add  func(dst []byte, src *[64]int16, stride int)
	// Transfer8to16Sub stores cur-ref into dct and then overwrites cur
	// with ref, leaving the prediction in place for reconstruction.
	Transfer8to16Sub func(dct *[64]int16, cur, ref []byte, stride int)
)

// Init initialises all function pointers to their pure-Go implementations.
// This must be called before any DSP functions are used.
func Init() {
	FDCT = fdct
	IDCT = idct

	QuantIntra = quantIntra
	QuantInter = quantInter
	DequantIntra = dequantIntra
	DequantInter = dequantInter

	SAD16 = sad16
	SAD8 = sad8
	Dev16 = dev16

	InterpolateH = interpolateH
	InterpolateV = interpolateV
	InterpolateHV = interpolateHV

	Transfer8to16Copy = transfer8to16Copy
	Transfer16to8Copy = transfer16to8Copy
	Transfer16to8Add = transfer16to8Add
	Transfer8to16Sub = transfer8to16Sub
}

func init() {
	Init()
}
