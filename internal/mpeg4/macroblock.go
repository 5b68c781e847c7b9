package mpeg4

import "fmt"

// Mode is the coding mode of a macroblock.
type Mode uint8

const (
	ModeInter   Mode = iota // one vector, inherited quantizer
	ModeInterQ              // one vector, explicit quantizer change
	ModeInter4V             // one vector per luma block
	ModeIntra               // spatial coding, inherited quantizer
	ModeIntraQ              // spatial coding, explicit quantizer change
)

func (m Mode) String() string {
	switch m {
	case ModeInter:
		return "inter"
	case ModeInterQ:
		return "inter_q"
	case ModeInter4V:
		return "inter4v"
	case ModeIntra:
		return "intra"
	case ModeIntraQ:
		return "intra_q"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// IsIntra reports whether the macroblock is spatially coded.
func (m Mode) IsIntra() bool {
	switch m {
	case ModeIntra, ModeIntraQ:
		return true
	case ModeInter, ModeInterQ, ModeInter4V:
		return false
	default:
		panic(fmt.Sprintf("m4v: invalid macroblock mode %d", uint8(m)))
	}
}

// HasDQuant reports whether the macroblock header carries a quantizer delta.
func (m Mode) HasDQuant() bool {
	switch m {
	case ModeInterQ, ModeIntraQ, ModeInter4V:
		return true
	case ModeInter, ModeIntra:
		return false
	default:
		panic(fmt.Sprintf("m4v: invalid macroblock mode %d", uint8(m)))
	}
}

// withDQuant returns the mode that signals an explicit quantizer change.
func (m Mode) withDQuant() Mode {
	switch m {
	case ModeInter:
		return ModeInterQ
	case ModeIntra:
		return ModeIntraQ
	case ModeInterQ, ModeIntraQ, ModeInter4V:
		return m
	default:
		panic(fmt.Sprintf("m4v: invalid macroblock mode %d", uint8(m)))
	}
}

// DQuant is a per-macroblock quantizer adjustment hint.
type DQuant int8

const (
	DQuantNone DQuant = iota
	DQuantMinus1
	DQuantMinus2
	DQuantPlus1
	DQuantPlus2
)

// Delta returns the quantizer change the hint asks for.
func (d DQuant) Delta() int {
	switch d {
	case DQuantMinus1:
		return -1
	case DQuantMinus2:
		return -2
	case DQuantPlus1:
		return 1
	case DQuantPlus2:
		return 2
	default:
		return 0
	}
}

// DQuantFromDelta maps a delta in [-2, 2] to its hint. Other values map to
// DQuantNone.
func DQuantFromDelta(delta int) DQuant {
	switch delta {
	case -1:
		return DQuantMinus1
	case -2:
		return DQuantMinus2
	case 1:
		return DQuantPlus1
	case 2:
		return DQuantPlus2
	default:
		return DQuantNone
	}
}

// AC prediction directions of an intra block.
const (
	ACPredNone       = 0
	ACPredVertical   = 1 // first row predicted from the block above
	ACPredHorizontal = 2 // first column predicted from the block on the left
)

// Vector is a motion vector in half-pel units.
type Vector struct {
	X, Y int
}

// Macroblock is the per-frame coding state of one 16x16 area. Entries persist
// across frames so motion prediction can read the neighbours' vectors.
type Macroblock struct {
	Mode Mode

	MVs  [4]Vector // one per luma block, all equal unless Inter4V
	PMVs [4]Vector // MVs minus their predictors, as coded

	// PredValues holds, per block, the DC level times the DC scaler followed
	// by the first row (1..7) and first column (8..14) of AC levels.
	PredValues       [6][15]int16
	ACPredDirections [6]int8

	DQuant DQuant
	Quant  int
	CBP    uint8

	SAD16 int // best 16x16 match cost of the last search
}

// Grid is the macroblock arena of one frame size.
type Grid struct {
	Width, Height int
	mbs           []Macroblock
}

// NewGrid allocates a grid of width x height macroblocks.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, mbs: make([]Macroblock, width*height)}
}

// At returns the macroblock at (x, y) and whether it lies inside the frame.
func (g *Grid) At(x, y int) (*Macroblock, bool) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return nil, false
	}
	return &g.mbs[y*g.Width+x], true
}

// mb returns the macroblock at (x, y), which must be inside the frame.
func (g *Grid) mb(x, y int) *Macroblock {
	return &g.mbs[y*g.Width+x]
}

// Len returns the number of macroblocks.
func (g *Grid) Len() int { return len(g.mbs) }

// SetDQuant stores hints in raster order. Missing entries become
// DQuantNone.
func (g *Grid) SetDQuant(hints []DQuant) {
	for i := range g.mbs {
		if i < len(hints) {
			g.mbs[i].DQuant = hints[i]
		} else {
			g.mbs[i].DQuant = DQuantNone
		}
	}
}
