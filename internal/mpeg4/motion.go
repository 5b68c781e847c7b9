package mpeg4

import "github.com/deepteams/m4v/internal/dsp"

// Search tuning.
const (
	mvMaxError     = 4096 * 256
	mv16Threshold  = 192
	mv8Threshold   = 56
	mv16ZeroBias   = 128 + 1 // favours the zero vector on flat matches
	interBias      = 432     // intra wins when deviation < sad - interBias
	inter4VBias    = 5       // per quantizer step, against the 8x8 split
	neighTend16    = 2
	neighTend8     = 2
	zeroBiasFactor = 96
)

// MotionSearch is the view of a frame a MotionEstimator works on.
type MotionSearch struct {
	Cur                    *Image
	Ref, RefH, RefV, RefHV *Image
	Grid                   *Grid
	FCode                  int
	Quant                  int
	Quality                int
}

// MotionEstimator chooses the coding mode and vectors of one macroblock.
//
// Estimate sets Mode (ModeInter, ModeInter4V or ModeIntra) and MVs of the
// macroblock at (x, y) and reports whether it chose intra. Intra macroblocks
// carry zero vectors. allow4V is false when the macroblock has a quantizer
// hint. Estimate must not modify the pictures.
type MotionEstimator interface {
	Estimate(s *MotionSearch, x, y int, allow4V bool) bool
}

// DiamondSearch is the default MotionEstimator: a large/small diamond
// search over full pels followed by a half-pel refinement, with an optional
// per-block 8x8 search.
type DiamondSearch struct{}

type point struct{ dx, dy int }

var (
	diamondLarge = [8]point{{0, 2}, {1, 1}, {2, 0}, {1, -1}, {0, -2}, {-1, -1}, {-2, 0}, {-1, 1}}
	diamondSmall = [4]point{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
)

var mvTab = [33]int{
	1, 2, 3, 4, 6, 7, 7, 7,
	9, 9, 9, 10, 10, 10, 10, 10,
	10, 10, 10, 10, 10, 10, 10, 10,
	10, 11, 11, 11, 11, 11, 11, 12, 12,
}

// mvBits estimates the code length of one vector difference component.
func mvBits(c, fcode int) int {
	if c == 0 {
		return 1
	}
	c = abs(c)
	if fcode == 1 {
		return mvTab[min(c, 32)] + 1
	}
	c = (c + 1<<(fcode-1) - 1) >> (fcode - 1)
	return mvTab[min(c, 32)] + 1 + fcode - 1
}

func floorEven(v int) int { return v &^ 1 }
func ceilEven(v int) int  { return (v + 1) &^ 1 }

// window is a search range of vector differences, inclusive.
type window struct {
	minX, maxX, minY, maxY int
}

func (w window) contains(dx, dy int) bool {
	return dx >= w.minX && dx <= w.maxX && dy >= w.minY && dy <= w.maxY
}

func (w window) clamp(dx, dy int) (int, int) {
	return min(max(dx, w.minX), w.maxX), min(max(dy, w.minY), w.maxY)
}

// searchWindow returns the differences from pred that keep every block of
// macroblock (x, y) inside the padded reference and the vector inside the
// range fcode can code. Bounds are even.
func (s *MotionSearch) searchWindow(x, y int, pred Vector) window {
	high := 32<<(s.FCode-1) - 1
	low := -(32 << (s.FCode - 1))
	px, py := x*16, y*16
	minX := max(low, 2*(-EdgeSize-px))
	maxX := min(high, 2*(s.Ref.MBWidth*16+EdgeSize-16-px))
	minY := max(low, 2*(-EdgeSize-py))
	maxY := min(high, 2*(s.Ref.MBHeight*16+EdgeSize-16-py))
	w := window{
		minX: ceilEven(minX - pred.X),
		maxX: floorEven(maxX - pred.X),
		minY: ceilEven(minY - pred.Y),
		maxY: floorEven(maxY - pred.Y),
	}
	// A predictor near the far side of a neighbour's window can leave the
	// range empty; collapse it onto the nearest legal difference.
	if w.minX > w.maxX {
		w.maxX = w.minX
	}
	if w.minY > w.maxY {
		w.maxY = w.minY
	}
	return w
}

// halfpel returns the picture holding the samples addressed by v.
func (s *MotionSearch) halfpel(v Vector) *Image {
	switch (v.X&1)<<1 | v.Y&1 {
	case 0:
		return s.Ref
	case 1:
		return s.RefV
	case 2:
		return s.RefH
	default:
		return s.RefHV
	}
}

// lumaRef returns the reference samples for the luma block at pixel
// (px, py) displaced by v.
func (s *MotionSearch) lumaRef(px, py int, v Vector) []byte {
	img := s.halfpel(v)
	return img.Y[img.YOff(px+v.X>>1, py+v.Y>>1):]
}

func (s *MotionSearch) deltaCost(dx, dy, tend int) int {
	return tend * (mvBits(dx, s.FCode) + mvBits(dy, s.FCode)) * s.Quant
}

// Estimate implements MotionEstimator.
func (d DiamondSearch) Estimate(s *MotionSearch, x, y int, allow4V bool) bool {
	mb := s.Grid.mb(x, y)
	pred := PredictMV(s.Grid, x, y, 0)
	mv16, sad16 := d.search16(s, x, y, pred)
	mb.SAD16 = sad16

	sad8 := 0
	if s.Quality > 3 {
		for i := 0; i < 4; i++ {
			if i > 0 {
				pred = PredictMV(s.Grid, x, y, i)
			}
			v, sad := d.search8(s, x, y, i, pred, mv16)
			mb.MVs[i] = v
			sad8 += sad
		}
	}

	if allow4V && s.Quality > 3 && sad16 >= sad8+inter4VBias*s.Quant {
		mb.Mode = ModeInter4V
	} else {
		sad8 = sad16
		mb.Mode = ModeInter
		mb.MVs = [4]Vector{mv16, mv16, mv16, mv16}
	}

	cur := s.Cur.Y[s.Cur.YOff(x*16, y*16):]
	if dsp.Dev16(cur, s.Cur.EdgedWidth) < sad8-interBias {
		mb.Mode = ModeIntra
		mb.MVs = [4]Vector{}
		return true
	}
	return false
}

// search16 returns the best 16x16 vector of macroblock (x, y) and its cost.
// Half-pel refinement runs from quality 4 up.
func (DiamondSearch) search16(s *MotionSearch, x, y int, pred Vector) (Vector, int) {
	px, py := x*16, y*16
	stride := s.Cur.EdgedWidth
	cur := s.Cur.Y[s.Cur.YOff(px, py):]
	w := s.searchWindow(x, y, pred)

	sadAt := func(dx, dy, bound int) int {
		return dsp.SAD16(cur, s.lumaRef(px, py, Vector{pred.X + dx, pred.Y + dy}), stride, bound)
	}

	// The first pass is centred on the zero vector. Above quality 4 a
	// second pass around pred competes with it.
	firstPass := s.Quality > 4
	cx, cy := w.clamp(evenTowardZero(-pred.X), evenTowardZero(-pred.Y))
	best2, bx2, by2 := mvMaxError, cx, cy

	var best, bx, by int
	for {
		best = sadAt(cx, cy, mvMaxError)
		if cx == -pred.X && cy == -pred.Y && best <= s.Quant*zeroBiasFactor {
			best -= mv16ZeroBias
		}
		best += s.deltaCost(cx, cy, neighTend16)
		bx, by = cx, cy

		dia := diamondLarge[:]
		pt, count, bestPt := 0, 8, -1
		for best >= mv16Threshold {
			for ; count > 0; count-- {
				p := pt
				pt = (pt + 1) & 7
				dx, dy := cx+2*dia[p].dx, cy+2*dia[p].dy
				if !w.contains(dx, dy) {
					continue
				}
				if dx == 0 && dy == 0 {
					firstPass = false
				}
				cost := sadAt(dx, dy, best) + s.deltaCost(dx, dy, neighTend16)
				if cost < best {
					best, bx, by = cost, dx, dy
					if best < mv16Threshold {
						break
					}
					bestPt = p
				}
			}
			if best < mv16Threshold || len(dia) == len(diamondSmall) {
				break
			}
			cx, cy, pt, count = nextDiamond(bx, by, cx, cy, bestPt)
			if pt < 0 {
				dia, pt = diamondSmall[:], 0
			}
		}

		if !firstPass {
			break
		}
		best2, bx2, by2 = best, bx, by
		firstPass = false
		cx, cy = w.clamp(0, 0)
	}

	if best2 < best {
		best, bx, by = best2, bx2, by2
	}

	if s.Quality >= 4 && best >= mv16Threshold {
		cx, cy = bx, by
		for dx := cx - 1; dx <= cx+1; dx++ {
			for dy := cy - 1; dy <= cy+1; dy++ {
				if (dx == cx && dy == cy) || !w.contains(dx, dy) {
					continue
				}
				cost := sadAt(dx, dy, best) + s.deltaCost(dx, dy, neighTend16)
				if cost < best {
					best, bx, by = cost, dx, dy
					if cost < mv16Threshold {
						break
					}
				}
			}
		}
	}
	return Vector{pred.X + bx, pred.Y + by}, best
}

// nextDiamond moves the search centre to the best point. A negative point
// index asks for the small diamond around an unchanged centre.
func nextDiamond(bx, by, cx, cy, bestPt int) (ncx, ncy, pt, count int) {
	if bx == cx && by == cy {
		return cx, cy, -1, 4
	}
	if bx == cx || by == cy {
		pt, count = (bestPt+6)&7, 5
	} else {
		pt, count = (bestPt+7)&7, 3
	}
	if bestPt < 0 {
		pt = 6
	}
	return bx, by, pt, count
}

// search8 returns the best vector of luma block blk of macroblock (x, y),
// starting from the 16x16 vector start, and its cost.
func (DiamondSearch) search8(s *MotionSearch, x, y, blk int, pred, start Vector) (Vector, int) {
	px, py := x*16+(blk&1)*8, y*16+(blk>>1)*8
	stride := s.Cur.EdgedWidth
	cur := s.Cur.Y[s.Cur.YOff(px, py):]
	w := s.searchWindow(x, y, pred)

	cost := func(dx, dy int) int {
		v := Vector{pred.X + dx, pred.Y + dy}
		return dsp.SAD8(cur, s.lumaRef(px, py, v), stride) + s.deltaCost(dx, dy, neighTend8)
	}

	cx, cy := w.clamp(evenTowardZero(start.X-pred.X), evenTowardZero(start.Y-pred.Y))
	best := cost(cx, cy)
	if best < mv8Threshold {
		return Vector{pred.X + cx, pred.Y + cy}, best
	}
	bx, by := cx, cy

	dia := diamondLarge[:]
	pt, count, bestPt := 0, 8, -1
	for {
		for ; count > 0; count-- {
			p := pt
			pt = (pt + 1) & 7
			dx, dy := cx+dia[p].dx, cy+dia[p].dy
			if !w.contains(dx, dy) {
				continue
			}
			c := cost(dx, dy)
			if c < best {
				if c < mv8Threshold {
					return Vector{pred.X + dx, pred.Y + dy}, c
				}
				best, bx, by, bestPt = c, dx, dy, p
			}
		}
		if len(dia) == len(diamondSmall) {
			break
		}
		cx, cy, pt, count = nextDiamond(bx, by, cx, cy, bestPt)
		if pt < 0 {
			dia, pt = diamondSmall[:], 0
		}
	}
	return Vector{pred.X + bx, pred.Y + by}, best
}

func evenTowardZero(v int) int {
	if v < 0 {
		return (v + 1) &^ 1
	}
	return v &^ 1
}

var chromaRoundTab = [16]int{0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2}

// chromaVector derives the chroma vector of a macroblock from its luma
// vectors.
func chromaVector(mb *Macroblock) Vector {
	if mb.Mode == ModeInter4V {
		sx := mb.MVs[0].X + mb.MVs[1].X + mb.MVs[2].X + mb.MVs[3].X
		sy := mb.MVs[0].Y + mb.MVs[1].Y + mb.MVs[2].Y + mb.MVs[3].Y
		return Vector{chroma4V(sx), chroma4V(sy)}
	}
	return Vector{chroma1V(mb.MVs[0].X), chroma1V(mb.MVs[0].Y)}
}

func chroma1V(c int) int {
	if c&3 == 0 {
		return c / 2
	}
	return c>>1 | 1
}

func chroma4V(sum int) int {
	a := abs(sum)
	v := chromaRoundTab[a%16] + a/16*2
	if sum < 0 {
		return -v
	}
	return v
}

// compensate moves the prediction of an inter macroblock into cur and
// leaves the residual in dct.
func (s *MotionSearch) compensate(mb *Macroblock, x, y int, dct *[6][64]int16) {
	cur := s.Cur
	for i := 0; i < 4; i++ {
		px, py := x*16+(i&1)*8, y*16+(i>>1)*8
		v := mb.MVs[i]
		dsp.Transfer8to16Sub(&dct[i], cur.Y[cur.YOff(px, py):], s.lumaRef(px, py, v), cur.EdgedWidth)
	}
	cv := chromaVector(mb)
	ref := s.halfpel(cv)
	off := ref.UVOff(x*8+cv.X>>1, y*8+cv.Y>>1)
	dst := cur.UVOff(x*8, y*8)
	dsp.Transfer8to16Sub(&dct[4], cur.U[dst:], ref.U[off:], cur.ChromaStride)
	dsp.Transfer8to16Sub(&dct[5], cur.V[dst:], ref.V[off:], cur.ChromaStride)
}
