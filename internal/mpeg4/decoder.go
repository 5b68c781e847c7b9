package mpeg4

import (
	"fmt"

	"github.com/deepteams/m4v/internal/bitio"
	"github.com/deepteams/m4v/internal/dsp"
)

// ErrNoReference is returned for a P frame that has nothing to predict from.
// It wraps ErrBitstream.
var ErrNoReference = fmt.Errorf("%w: P frame without reference", ErrBitstream)

// minIntraMBBits is the smallest coded intra macroblock: mode, AC
// prediction flag, CBP and six one-bit DC differences.
const minIntraMBBits = 1 + 1 + 6 + 6

// Decoder reconstructs pictures from the streams written by Encoder. It
// mirrors the encoder's reconstruction, so its output matches the
// encoder's reference picture sample for sample.
type Decoder struct {
	cur, ref *Image
	h, v, hv *Image
	grid     *Grid
	search   MotionSearch
	haveRef  bool

	scratch [6][64]int16
}

// NewDecoder returns a decoder. Pictures are allocated by the first VOL.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Close releases the picture storage.
func (d *Decoder) Close() {
	d.release()
}

func (d *Decoder) release() {
	for _, img := range []*Image{d.cur, d.ref, d.h, d.v, d.hv} {
		if img != nil {
			img.Release()
		}
	}
	d.cur, d.ref, d.h, d.v, d.hv = nil, nil, nil, nil, nil
	d.haveRef = false
}

func (d *Decoder) allocate(width, height int) {
	d.release()
	d.cur = NewImage(width, height)
	d.ref = NewImage(width, height)
	d.h = NewImage(width, height)
	d.v = NewImage(width, height)
	d.hv = NewImage(width, height)
	d.grid = NewGrid(d.cur.MBWidth, d.cur.MBHeight)
	d.search = MotionSearch{
		Cur: d.cur, Ref: d.ref, RefH: d.h, RefV: d.v, RefHV: d.hv,
		Grid: d.grid,
	}
}

// Picture returns the last decoded picture. It is overwritten by the next
// DecodeFrame call.
func (d *Decoder) Picture() *Image { return d.ref }

// DecodeFrame decodes one coded picture and returns its header and the
// number of bytes consumed.
func (d *Decoder) DecodeFrame(data []byte) (VOPHeader, int, error) {
	br := bitio.NewReader(data)
	width, height, h, err := readHeaders(br)
	if err != nil {
		return h, 0, err
	}
	if width > 0 || height > 0 {
		if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
			return h, 0, fmt.Errorf("%w: bad picture size %dx%d", ErrBitstream, width, height)
		}
		if d.cur == nil || d.cur.Width != width || d.cur.Height != height {
			// A new size drops the reference, so only an I frame can follow.
			if !h.Intra {
				return h, 0, ErrNoReference
			}
			if mbs := ((width + 15) >> 4) * ((height + 15) >> 4); mbs > (8*len(data)-endMarkerBits)/minIntraMBBits {
				return h, 0, fmt.Errorf("%w: %dx%d picture in %d bytes", ErrBitstream, width, height, len(data))
			}
			d.allocate(width, height)
		}
	}
	if d.cur == nil {
		return h, 0, fmt.Errorf("%w: picture before sequence header", ErrBitstream)
	}
	if !h.Intra {
		if !d.haveRef {
			return h, 0, ErrNoReference
		}
		d.ref.SetEdges()
		Interpolate(d.ref, d.h, d.v, d.hv, h.Rounding, false)
		d.search.FCode = h.FCode
	}

	prev := h.Quant
	for y := 0; y < d.grid.Height; y++ {
		for x := 0; x < d.grid.Width; x++ {
			if prev, err = d.decodeMacroblock(br, x, y, h.Intra, prev); err != nil {
				return h, 0, fmt.Errorf("macroblock %d,%d: %w", x, y, err)
			}
		}
	}

	if marker := br.ReadBits(endMarkerBits); marker != 0 || br.EOS() {
		return h, 0, fmt.Errorf("%w: missing end marker", ErrBitstream)
	}
	br.Align()

	d.cur.Swap(d.ref)
	d.haveRef = true
	return h, br.BytePos(), nil
}

// decodeMacroblock reads and reconstructs macroblock (x, y) and returns its
// quantizer.
func (d *Decoder) decodeMacroblock(br *bitio.Reader, x, y int, intraFrame bool, prev int) (int, error) {
	mb := d.grid.mb(x, y)

	if intraFrame {
		mb.Mode = ModeIntra
		if br.ReadBit() {
			mb.Mode = ModeIntraQ
		}
	} else {
		if br.ReadBit() {
			mb.Mode = ModeInter
			mb.Quant = prev
			mb.CBP = 0
			mb.MVs = [4]Vector{}
			mb.PMVs = [4]Vector{}
			d.search.compensate(mb, x, y, &d.scratch)
			return prev, nil
		}
		m := br.ReadUE()
		if m > uint32(ModeIntraQ) {
			return 0, fmt.Errorf("%w: macroblock mode %d", ErrBitstream, m)
		}
		mb.Mode = Mode(m)
	}

	mb.Quant = prev
	if mb.Mode.HasDQuant() {
		mb.Quant = prev + int(br.ReadSE())
		if mb.Quant < dsp.MinQuant || mb.Quant > dsp.MaxQuant {
			return 0, fmt.Errorf("%w: quantizer %d", ErrBitstream, mb.Quant)
		}
	}
	acPred := false
	if mb.Mode.IsIntra() {
		acPred = br.ReadBit()
	}
	mb.CBP = uint8(br.ReadBits(6))
	if br.EOS() {
		return 0, fmt.Errorf("%w: truncated macroblock header", ErrBitstream)
	}

	if mb.Mode.IsIntra() {
		mb.MVs = [4]Vector{}
		return mb.Quant, d.decodeIntra(br, mb, x, y, acPred)
	}
	return mb.Quant, d.decodeInter(br, mb, x, y)
}

func (d *Decoder) decodeIntra(br *bitio.Reader, mb *Macroblock, x, y int, acPred bool) error {
	levels := &d.scratch
	for j := 0; j < 6; j++ {
		blk := &levels[j]
		*blk = [64]int16{}
		dcs := dsp.DCScaler(mb.Quant, j < 4)
		dir, pred := acdcPredict(d.grid, x, y, j, mb.Quant, dcs)

		blk[0] = int16(br.ReadSE())
		if mb.CBP&(1<<(5-j)) != 0 {
			scan := &scanZigzag
			if acPred {
				scan = scanFor(dir)
			}
			if err := readBlock(br, blk, scan, 1); err != nil {
				return err
			}
		}
		undoACDC(mb, j, blk, dcs, dir, &pred, acPred)
	}
	if br.EOS() {
		return fmt.Errorf("%w: truncated intra macroblock", ErrBitstream)
	}
	reconstructIntra(d.cur, x, y, mb.Quant, levels)
	return nil
}

func (d *Decoder) decodeInter(br *bitio.Reader, mb *Macroblock, x, y int) error {
	n := 1
	if mb.Mode == ModeInter4V {
		n = 4
	}
	for i := 0; i < n; i++ {
		mb.PMVs[i] = Vector{int(br.ReadSE()), int(br.ReadSE())}
		p := PredictMV(d.grid, x, y, i)
		mb.MVs[i] = Vector{mb.PMVs[i].X + p.X, mb.PMVs[i].Y + p.Y}
	}
	if n == 1 {
		mb.MVs[1], mb.MVs[2], mb.MVs[3] = mb.MVs[0], mb.MVs[0], mb.MVs[0]
	}
	if br.EOS() {
		return fmt.Errorf("%w: truncated motion vectors", ErrBitstream)
	}
	if !d.vectorsInside(mb, x, y) {
		return fmt.Errorf("%w: vector outside the reference", ErrBitstream)
	}
	d.search.compensate(mb, x, y, &d.scratch)

	levels := &d.scratch
	for j := 0; j < 6; j++ {
		levels[j] = [64]int16{}
		if mb.CBP&(1<<(5-j)) == 0 {
			continue
		}
		if err := readBlock(br, &levels[j], &scanZigzag, 0); err != nil {
			return err
		}
	}
	reconstructInter(d.cur, x, y, mb.Quant, mb.CBP, levels)
	return nil
}

// vectorsInside reports whether every luma vector of mb keeps its
// macroblock inside the padded reference.
func (d *Decoder) vectorsInside(mb *Macroblock, x, y int) bool {
	w := d.search.searchWindow(x, y, Vector{})
	for _, v := range mb.MVs {
		if v.X < w.minX || v.X > w.maxX+1 || v.Y < w.minY || v.Y > w.maxY+1 {
			return false
		}
	}
	return true
}
