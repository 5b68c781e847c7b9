package mpeg4

import (
	"errors"
	"fmt"

	"github.com/deepteams/m4v/internal/bitio"
)

// ErrBitstream reports a stream that does not follow the macroblock syntax.
var ErrBitstream = errors.New("m4v: corrupt bitstream")

var scanZigzag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10, 17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34, 27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36, 29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46, 53, 60, 61, 54, 47, 55, 62, 63,
}

var scanAltHorizontal = [64]int{
	0, 1, 2, 3, 8, 9, 16, 17, 10, 11, 4, 5, 6, 7, 15, 14,
	13, 12, 19, 18, 24, 25, 32, 33, 26, 27, 20, 21, 22, 23, 28, 29,
	30, 31, 34, 35, 40, 41, 48, 49, 42, 43, 36, 37, 38, 39, 44, 45,
	46, 47, 50, 51, 56, 57, 58, 59, 52, 53, 54, 55, 60, 61, 62, 63,
}

var scanAltVertical = [64]int{
	0, 8, 16, 24, 1, 9, 2, 10, 17, 25, 32, 40, 48, 56, 57, 49,
	41, 33, 26, 18, 3, 11, 4, 12, 19, 27, 34, 42, 50, 58, 35, 43,
	51, 59, 20, 28, 5, 13, 6, 14, 21, 29, 36, 44, 52, 60, 37, 45,
	53, 61, 22, 30, 7, 15, 23, 31, 38, 46, 54, 62, 39, 47, 55, 63,
}

// scanFor returns the coefficient order of a block predicted in direction
// dir.
func scanFor(dir int8) *[64]int {
	switch dir {
	case ACPredVertical:
		return &scanAltHorizontal
	case ACPredHorizontal:
		return &scanAltVertical
	default:
		return &scanZigzag
	}
}

// bitCounts splits the macroblock layer of a frame into vector bits and
// everything else.
type bitCounts struct {
	motion, texture int
	// Sum of squared coded vector differences and the number of coded
	// components, for the search range adaptation.
	mvSum, mvCount int
}

// skippable reports whether an inter macroblock can be signalled with the
// not_coded flag alone.
func skippable(mb *Macroblock, prevQuant int) bool {
	return mb.Mode == ModeInter && mb.CBP == 0 && mb.MVs[0] == (Vector{}) && mb.Quant == prevQuant
}

// writeMacroblock emits one macroblock. qcoeff holds intra residuals after
// AC/DC prediction or inter levels.
func writeMacroblock(bw *bitio.Writer, mb *Macroblock, qcoeff *[6][64]int16, pframe bool, prevQuant int, bc *bitCounts) {
	start := bw.BitLength()

	if pframe {
		if skippable(mb, prevQuant) {
			bw.PutBit(true)
			bc.texture += bw.BitLength() - start
			return
		}
		bw.PutBit(false)
		bw.PutUE(uint32(mb.Mode))
	} else {
		bw.PutBit(mb.Mode == ModeIntraQ)
	}

	intra := mb.Mode.IsIntra()
	mvBits := 0
	if mb.Mode.HasDQuant() {
		bw.PutSE(int32(mb.Quant - prevQuant))
	}
	if intra {
		bw.PutBit(mb.ACPredDirections[0] != ACPredNone)
	}
	bw.PutBits(uint32(mb.CBP), 6)

	if !intra {
		mvStart := bw.BitLength()
		n := 1
		if mb.Mode == ModeInter4V {
			n = 4
		}
		for i := 0; i < n; i++ {
			d := mb.PMVs[i]
			bw.PutSE(int32(d.X))
			bw.PutSE(int32(d.Y))
			bc.mvSum += d.X*d.X + d.Y*d.Y
			bc.mvCount += 2
		}
		mvBits = bw.BitLength() - mvStart
		bc.motion += mvBits
	}

	for i := 0; i < 6; i++ {
		first := 0
		scan := &scanZigzag
		if intra {
			bw.PutSE(int32(qcoeff[i][0]))
			first = 1
			scan = scanFor(mb.ACPredDirections[i])
		}
		if mb.CBP&(1<<(5-i)) != 0 {
			writeBlock(bw, &qcoeff[i], scan, first)
		}
	}
	bc.texture += bw.BitLength() - start - mvBits
}

// writeBlock codes the non-zero levels of blk from scan position first as
// (run, level, last) tokens. The block must have at least one such level.
func writeBlock(bw *bitio.Writer, blk *[64]int16, scan *[64]int, first int) {
	last := first
	for i := 63; i >= first; i-- {
		if blk[scan[i]] != 0 {
			last = i
			break
		}
	}
	run := 0
	for i := first; i <= last; i++ {
		v := blk[scan[i]]
		if v == 0 {
			run++
			continue
		}
		bw.PutUE(uint32(run))
		bw.PutSE(int32(v))
		bw.PutBit(i == last)
		run = 0
	}
}

// readBlock decodes tokens written by writeBlock into blk.
func readBlock(br *bitio.Reader, blk *[64]int16, scan *[64]int, first int) error {
	i := first
	for {
		i += int(br.ReadUE())
		level := br.ReadSE()
		last := br.ReadBit()
		if br.EOS() || i > 63 || level == 0 {
			return fmt.Errorf("%w: bad coefficient token at %d", ErrBitstream, br.BitPos())
		}
		blk[scan[i]] = int16(level)
		if last {
			return nil
		}
		i++
	}
}
