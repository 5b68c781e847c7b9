package mpeg4

import "github.com/deepteams/m4v/internal/dsp"

// defaultPredValues stands in for missing or non-intra neighbours.
var defaultPredValues = [15]int16{1024}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func median(a, b, c int) int {
	return max(min(a, b), min(max(a, b), c))
}

// PredictMV returns the predictor of the vector of luma block (0..3) of
// macroblock (x, y): the component-wise median of the left, top and top-right
// candidates. Candidates outside the frame count as zero. On the first
// macroblock row, blocks 0 and 1 use the left candidate alone.
//
//	(x,y-1)      (x+1,y-1)
//	[   |   ]    [   |   ]
//	[ 2 | 3 ]    [ 2 |   ]
//
//	(x-1,y)      (x,y)
//	[   | 1 ]    [ 0 | 1 ]
//	[   | 3 ]    [ 2 | 3 ]
func PredictMV(g *Grid, x, y, block int) Vector {
	if y == 0 && block < 2 {
		switch {
		case block == 1:
			return g.mb(x, y).MVs[0]
		case x == 0:
			return Vector{}
		default:
			return g.mb(x-1, y).MVs[1]
		}
	}

	type cand struct{ x, y, blk int }
	var c [3]cand
	switch block {
	case 0:
		c = [3]cand{{x - 1, y, 1}, {x, y - 1, 2}, {x + 1, y - 1, 2}}
	case 1:
		c = [3]cand{{x, y, 0}, {x, y - 1, 3}, {x + 1, y - 1, 2}}
	case 2:
		c = [3]cand{{x - 1, y, 3}, {x, y, 0}, {x, y, 1}}
	default:
		c = [3]cand{{x, y, 2}, {x, y, 0}, {x, y, 1}}
	}
	var v [3]Vector
	for i, n := range c {
		if mb, ok := g.At(n.x, n.y); ok {
			v[i] = mb.MVs[n.blk]
		}
	}
	return Vector{
		X: median(v[0].X, v[1].X, v[2].X),
		Y: median(v[0].Y, v[1].Y, v[2].Y),
	}
}

// computePMVs stores the coded differences of the macroblock vectors.
func computePMVs(g *Grid, x, y int) {
	mb := g.mb(x, y)
	n := 1
	if mb.Mode == ModeInter4V {
		n = 4
	}
	for i := 0; i < n; i++ {
		p := PredictMV(g, x, y, i)
		mb.PMVs[i] = Vector{mb.MVs[i].X - p.X, mb.MVs[i].Y - p.Y}
	}
}

// rescale maps a neighbour level quantized with predQuant to curQuant.
func rescale(predQuant, curQuant, level int) int {
	if level == 0 {
		return 0
	}
	return dsp.DivRound(level*predQuant, curQuant)
}

// acdcPredict chooses the prediction direction of an intra block from the
// DC history of its left, top and top-left neighbours, and returns the DC
// predictor followed by the seven rescaled AC predictors.
func acdcPredict(g *Grid, x, y, block, quant, dcScaler int) (int8, [8]int) {
	cur := g.mb(x, y)
	intraAt := func(x, y int) *Macroblock {
		if mb, ok := g.At(x, y); ok && mb.Mode.IsIntra() {
			return mb
		}
		return nil
	}
	left, top, diag := intraAt(x-1, y), intraAt(x, y-1), intraAt(x-1, y-1)

	pLeft, pTop, pDiag := &defaultPredValues, &defaultPredValues, &defaultPredValues
	leftQuant, topQuant := quant, quant
	if left != nil {
		leftQuant = left.Quant
	}
	if top != nil {
		topQuant = top.Quant
	}

	switch block {
	case 0:
		if left != nil {
			pLeft = &left.PredValues[1]
		}
		if top != nil {
			pTop = &top.PredValues[2]
		}
		if diag != nil {
			pDiag = &diag.PredValues[3]
		}
	case 1:
		pLeft, leftQuant = &cur.PredValues[0], quant
		if top != nil {
			pTop = &top.PredValues[3]
			pDiag = &top.PredValues[2]
		}
	case 2:
		if left != nil {
			pLeft = &left.PredValues[3]
			pDiag = &left.PredValues[1]
		}
		pTop, topQuant = &cur.PredValues[0], quant
	case 3:
		pLeft, leftQuant = &cur.PredValues[2], quant
		pTop, topQuant = &cur.PredValues[1], quant
		pDiag = &cur.PredValues[0]
	default:
		if left != nil {
			pLeft = &left.PredValues[block]
		}
		if top != nil {
			pTop = &top.PredValues[block]
		}
		if diag != nil {
			pDiag = &diag.PredValues[block]
		}
	}

	var pred [8]int
	if abs(int(pLeft[0])-int(pDiag[0])) < abs(int(pDiag[0])-int(pTop[0])) {
		pred[0] = dsp.DivRound(int(pTop[0]), dcScaler)
		for i := 1; i < 8; i++ {
			pred[i] = rescale(topQuant, quant, int(pTop[i]))
		}
		return ACPredVertical, pred
	}
	pred[0] = dsp.DivRound(int(pLeft[0]), dcScaler)
	for i := 1; i < 8; i++ {
		pred[i] = rescale(leftQuant, quant, int(pLeft[i+7]))
	}
	return ACPredHorizontal, pred
}

// storeHistory records the DC and first row/column of levels for the
// prediction of later blocks.
func storeHistory(mb *Macroblock, block int, levels *[64]int16, dcScaler int) {
	h := &mb.PredValues[block]
	h[0] = int16(int(levels[0]) * dcScaler)
	for i := 1; i < 8; i++ {
		h[i] = levels[i]
		h[i+7] = levels[i*8]
	}
}

// predictACDC replaces the levels of an intra macroblock with prediction
// residuals. The DC is always predicted; the AC row or column only when that
// lowers the sum of absolute levels over the six blocks. It records the
// directions and the coded block pattern on the macroblock.
func predictACDC(g *Grid, x, y int, qcoeff *[6][64]int16) {
	mb := g.mb(x, y)
	var preds [6][8]int
	gain := 0
	for j := 0; j < 6; j++ {
		dcs := dsp.DCScaler(mb.Quant, j < 4)
		dir, pred := acdcPredict(g, x, y, j, mb.Quant, dcs)
		mb.ACPredDirections[j] = dir
		storeHistory(mb, j, &qcoeff[j], dcs)

		blk := &qcoeff[j]
		blk[0] -= int16(pred[0])
		for i := 1; i < 8; i++ {
			level := int(blk[i])
			if dir == ACPredHorizontal {
				level = int(blk[i*8])
			}
			res := level - pred[i]
			gain += abs(level) - abs(res)
			preds[j][i] = res
		}
	}

	if gain < 0 {
		for j := range mb.ACPredDirections {
			mb.ACPredDirections[j] = ACPredNone
		}
	} else {
		for j := 0; j < 6; j++ {
			blk := &qcoeff[j]
			for i := 1; i < 8; i++ {
				if mb.ACPredDirections[j] == ACPredVertical {
					blk[i] = int16(preds[j][i])
				} else {
					blk[i*8] = int16(preds[j][i])
				}
			}
		}
	}
	mb.CBP = codedBlockPattern(qcoeff, 1)
}

// undoACDC adds the predictors back to the residual levels of one decoded
// intra block and records its history.
func undoACDC(mb *Macroblock, block int, levels *[64]int16, dcScaler int, dir int8, pred *[8]int, acPred bool) {
	levels[0] += int16(pred[0])
	if acPred {
		for i := 1; i < 8; i++ {
			if dir == ACPredVertical {
				levels[i] += int16(pred[i])
			} else {
				levels[i*8] += int16(pred[i])
			}
		}
		mb.ACPredDirections[block] = dir
	} else {
		mb.ACPredDirections[block] = ACPredNone
	}
	storeHistory(mb, block, levels, dcScaler)
}

// codedBlockPattern sets bit 5-j when block j has a non-zero level at or
// after index from.
func codedBlockPattern(qcoeff *[6][64]int16, from int) uint8 {
	var cbp uint8
	for j := 0; j < 6; j++ {
		for _, v := range qcoeff[j][from:] {
			if v != 0 {
				cbp |= 1 << (5 - j)
				break
			}
		}
	}
	return cbp
}
