package mpeg4

import "github.com/deepteams/m4v/internal/dsp"

// tooSmallLimit is the minimum sum*quant for an inter block to be coded.
const tooSmallLimit = 8

// QuantState threads the quantizer through the macroblocks of a frame.
type QuantState struct {
	// Running is the quantizer hints adjust. Saturation retries never move
	// it.
	Running int
	// Prev is the quantizer of the previously coded macroblock, the base
	// of the coded delta.
	Prev int
}

// apply returns the state after the hint d, and the mode to code with.
func (qs QuantState) apply(mode Mode, d DQuant) (QuantState, Mode) {
	if d == DQuantNone {
		return qs, mode
	}
	qs.Running = dsp.ClampQuant(qs.Running + d.Delta())
	return qs, mode.withDQuant()
}

// transQuantIntra transforms and quantizes the six blocks of an intra
// macroblock, then writes the reconstruction back into img. While any block
// would clip on dequantization the whole macroblock is retried with the next
// quantizer of the ladder. The quantizer used is returned.
func transQuantIntra(img *Image, x, y, quant int, qcoeff *[6][64]int16) int {
	var src [6][64]int16
	for i := range src {
		p, stride := img.blockPlane(x, y, i)
		dsp.Transfer8to16Copy(&src[i], p, stride)
		dsp.FDCT(&src[i])
	}

	q := quant
	for {
		saturated := false
		for i := range src {
			dcs := dsp.DCScaler(q, i < 4)
			dsp.QuantIntra(&qcoeff[i], &src[i], q, dcs)
			if dsp.Saturates(&qcoeff[i], q, dcs) {
				saturated = true
			}
		}
		if !saturated || q >= dsp.MaxQuant {
			break
		}
		q = dsp.NextQuant(q)
	}

	reconstructIntra(img, x, y, q, qcoeff)
	return q
}

// transQuantInter transforms and quantizes the six residual blocks of an
// inter macroblock and adds the reconstructed residual of the coded blocks
// to the prediction already in img. Levels of uncoded blocks are zeroed. It
// returns the quantizer used and the coded block pattern.
func transQuantInter(img *Image, x, y, quant int, dct *[6][64]int16, qcoeff *[6][64]int16) (int, uint8) {
	for i := range dct {
		dsp.FDCT(&dct[i])
	}

	q := quant
	var cbp uint8
	for {
		cbp = 0
		saturated := false
		for i := range dct {
			sum := dsp.QuantInter(&qcoeff[i], &dct[i], q)
			if sum*q < tooSmallLimit {
				qcoeff[i] = [64]int16{}
				continue
			}
			cbp |= 1 << (5 - i)
			if dsp.Saturates(&qcoeff[i], q, 0) {
				saturated = true
			}
		}
		if !saturated || q >= dsp.MaxQuant {
			break
		}
		q = dsp.NextQuant(q)
	}

	reconstructInter(img, x, y, q, cbp, qcoeff)
	return q, cbp
}

// reconstructInter adds the dequantized residual of every coded block to the
// prediction in img.
func reconstructInter(img *Image, x, y, quant int, cbp uint8, qcoeff *[6][64]int16) {
	var rec [64]int16
	for i := range qcoeff {
		if cbp&(1<<(5-i)) == 0 {
			continue
		}
		dsp.DequantInter(&rec, &qcoeff[i], quant)
		dsp.IDCT(&rec)
		p, stride := img.blockPlane(x, y, i)
		dsp.Transfer16to8Add(p, &rec, stride)
	}
}

// reconstructIntra writes the dequantized blocks of an intra macroblock.
func reconstructIntra(img *Image, x, y, quant int, levels *[6][64]int16) {
	var rec [64]int16
	for i := range levels {
		dsp.DequantIntra(&rec, &levels[i], quant, dsp.DCScaler(quant, i < 4))
		dsp.IDCT(&rec)
		p, stride := img.blockPlane(x, y, i)
		dsp.Transfer16to8Copy(p, &rec, stride)
	}
}
