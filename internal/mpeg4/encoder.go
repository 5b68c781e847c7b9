package mpeg4

import (
	"fmt"
	"math"

	"github.com/deepteams/m4v/internal/bitio"
	"github.com/deepteams/m4v/internal/dsp"
	"github.com/deepteams/m4v/internal/logging"
)

// intraThreshold is the share of intra macroblocks above which a P frame
// is abandoned and coded as an I frame.
const intraThreshold = 0.5

// initialFCode is the search range code after every I frame.
const initialFCode = 2

// FrameType selects how a frame is coded.
type FrameType int

const (
	FrameAuto  FrameType = iota // encoder decides
	FrameIntra                  // force an I frame
	FrameInter                  // force a P frame without the intra budget
)

// AQMode selects the per-macroblock quantizer source.
type AQMode int

const (
	AQNone      AQMode = iota // one quantizer for the frame
	AQLuminance               // luminance masking
	AQArray                   // caller supplied field
)

// Config holds the encoder parameters fixed at creation.
type Config struct {
	Width, Height  int
	Quality        int // 0..5, 0 codes I frames only
	MaxKeyInterval int // frames between forced I frames, 0 disables
	MaxQuant       int // upper bound for luminance masking
	Quant          int // initial quantizer

	// Motion overrides the default diamond search.
	Motion MotionEstimator
	Logger logging.Logger
}

// FrameParams are the per-frame requests of the host.
type FrameParams struct {
	Type FrameType
	// Quant is the base quantizer; 0 keeps the running one.
	Quant      int
	AQ         AQMode
	QuantArray []float32 // one entry per macroblock for AQArray
}

// FrameStats describes one coded frame. Bit counts cover the macroblock
// layer; headers and the end marker are excluded.
type FrameStats struct {
	KeyFrame    bool
	Fallback    bool // a P frame attempt was abandoned
	TotalBits   int
	MotionBits  int
	TextureBits int
	Quant       int // running quantizer after the frame
	FCode       int // search range code for the next P frame
	IntraMBs    int
}

// Encoder codes a sequence of pictures. It is not safe for concurrent use.
type Encoder struct {
	cfg    Config
	log    logging.Logger
	motion MotionEstimator

	cur, ref, backup *Image
	h, v, hv         *Image
	grid             *Grid
	bw               *bitio.Writer
	search           MotionSearch

	quant     int
	rounding  int
	fcode     int
	frameNum  int
	prevSigma float64
	bits      bitCounts

	dct, qcoeff [6][64]int16
}

// NewEncoder allocates the pictures and macroblock grid for cfg. Width and
// Height must be even and positive.
func NewEncoder(cfg Config) *Encoder {
	e := &Encoder{
		cfg:       cfg,
		log:       cfg.Logger,
		motion:    cfg.Motion,
		cur:       NewImage(cfg.Width, cfg.Height),
		ref:       NewImage(cfg.Width, cfg.Height),
		backup:    NewImage(cfg.Width, cfg.Height),
		h:         NewImage(cfg.Width, cfg.Height),
		v:         NewImage(cfg.Width, cfg.Height),
		hv:        NewImage(cfg.Width, cfg.Height),
		quant:     dsp.ClampQuant(cfg.Quant),
		fcode:     initialFCode,
		prevSigma: -1,
	}
	if e.log == nil {
		e.log = logging.NewNop()
	}
	if e.motion == nil {
		e.motion = DiamondSearch{}
	}
	e.grid = NewGrid(e.cur.MBWidth, e.cur.MBHeight)
	e.bw = bitio.NewWriter(cfg.Width * cfg.Height / 2)
	e.search = MotionSearch{
		Cur: e.cur, Ref: e.ref, RefH: e.h, RefV: e.v, RefHV: e.hv,
		Grid:    e.grid,
		Quality: cfg.Quality,
	}
	return e
}

// Close releases the picture storage.
func (e *Encoder) Close() {
	for _, img := range []*Image{e.cur, e.ref, e.backup, e.h, e.v, e.hv} {
		img.Release()
	}
	e.bw.Release()
}

// Current returns the picture the next frame is read into.
func (e *Encoder) Current() *Image { return e.cur }

// Reference returns the reconstruction of the last coded frame.
func (e *Encoder) Reference() *Image { return e.ref }

// Grid returns the macroblock grid.
func (e *Encoder) Grid() *Grid { return e.grid }

// Quant returns the running quantizer.
func (e *Encoder) Quant() int { return e.quant }

// FCode returns the search range code of the next P frame.
func (e *Encoder) FCode() int { return e.fcode }

// Import reads an input picture into the current picture.
func (e *Encoder) Import(layout Layout, planes [3][]byte, strides [3]int) error {
	return ImportFrame(e.cur, layout, planes, strides)
}

// EncodeFrame codes the current picture. The returned bytes alias the
// encoder's bitstream buffer and stay valid until the next call.
func (e *Encoder) EncodeFrame(p *FrameParams) ([]byte, FrameStats, error) {
	var st FrameStats
	if err := e.setupQuant(p); err != nil {
		return nil, st, err
	}
	e.bw.Reset()

	switch {
	case e.frameNum == 0 && p.Type != FrameIntra:
		// Nothing to predict from yet.
		e.codeI(&st)
	case p.Type == FrameIntra:
		e.codeI(&st)
	case p.Type == FrameInter:
		e.codeP(&st, true)
	case e.cfg.MaxKeyInterval > 0 && e.frameNum >= e.cfg.MaxKeyInterval, e.cfg.Quality == 0:
		e.codeI(&st)
	default:
		e.codeP(&st, false)
	}

	writeEndMarker(e.bw)
	e.frameNum++
	e.cur.Swap(e.ref)

	st.Quant = e.quant
	st.FCode = e.fcode
	kind := "P"
	if st.KeyFrame {
		kind = "I"
	}
	e.log.Debug("Frame %d coded as %s: %d bits (%d motion, %d texture), quant %d, %d intra MBs",
		e.frameNum, kind, st.TotalBits, st.MotionBits, st.TextureBits, st.Quant, st.IntraMBs)
	return e.bw.Finish(), st, nil
}

// setupQuant picks the frame quantizer and the macroblock hints.
func (e *Encoder) setupQuant(p *FrameParams) error {
	base := e.quant
	if p.Quant > 0 {
		base = dsp.ClampQuant(p.Quant)
	}
	switch p.AQ {
	case AQNone:
		e.quant = base
		e.grid.SetDQuant(nil)
	case AQLuminance:
		q, deltas := LuminanceMask(e.cur, base, e.cfg.MaxQuant)
		e.quant = dsp.ClampQuant(q)
		e.grid.SetDQuant(dquantHints(deltas))
	case AQArray:
		if len(p.QuantArray) != e.grid.Len() {
			return fmt.Errorf("m4v: quantizer field has %d entries, want %d", len(p.QuantArray), e.grid.Len())
		}
		q, deltas := NormalizeQuantField(p.QuantArray, dsp.MinQuant, dsp.MaxQuant)
		e.quant = q
		e.grid.SetDQuant(dquantHints(deltas))
	default:
		return fmt.Errorf("m4v: unknown AQ mode %d", p.AQ)
	}
	return nil
}

// codeI codes every macroblock of the current picture as intra.
func (e *Encoder) codeI(st *FrameStats) {
	e.frameNum = 0
	e.rounding = 1
	writeVOL(e.bw, e.cfg.Width, e.cfg.Height)
	writeVOP(e.bw, VOPHeader{Intra: true, Quant: e.quant})
	start := e.bw.BitLength()
	e.bits = bitCounts{}

	qs := QuantState{Running: e.quant, Prev: e.quant}
	for y := 0; y < e.grid.Height; y++ {
		for x := 0; x < e.grid.Width; x++ {
			e.grid.mb(x, y).Mode = ModeIntra
			qs = e.codeMacroblock(x, y, qs, false)
		}
	}
	e.quant = qs.Running

	st.KeyFrame = true
	st.TotalBits = e.bw.BitLength() - start
	st.TextureBits = st.TotalBits
	st.MotionBits = 0
	st.IntraMBs = e.grid.Len()
	e.prevSigma = -1
	e.fcode = initialFCode
}

// codeP codes the current picture against the reference. Unless
// forceInter is set, the frame is restarted as an I frame once half of its
// macroblocks chose intra.
func (e *Encoder) codeP(st *FrameStats, forceInter bool) {
	e.ref.SetEdges()
	e.rounding = 1 - e.rounding
	backupQuant := e.quant
	e.backup.CopyFrom(e.cur)

	n := e.grid.Len()
	limit := int(float64(n) * intraThreshold)
	if forceInter {
		limit = n + 1
	}

	Interpolate(e.ref, e.h, e.v, e.hv, e.rounding, e.cfg.Quality < 4)
	writeVOP(e.bw, VOPHeader{Quant: e.quant, Rounding: e.rounding, FCode: e.fcode})
	start := e.bw.BitLength()
	e.bits = bitCounts{}
	e.search.FCode = e.fcode

	qs := QuantState{Running: e.quant, Prev: e.quant}
	intra := 0
	for y := 0; y < e.grid.Height; y++ {
		for x := 0; x < e.grid.Width; x++ {
			mb := e.grid.mb(x, y)
			e.search.Quant = qs.Running
			if e.motion.Estimate(&e.search, x, y, mb.DQuant == DQuantNone) {
				intra++
				if intra >= limit {
					e.log.Debug("Intra budget exceeded at macroblock %d,%d, coding frame as I", x, y)
					e.bw.Reset()
					e.quant = backupQuant
					e.cur.CopyFrom(e.backup)
					st.Fallback = true
					e.codeI(st)
					return
				}
			}
			qs = e.codeMacroblock(x, y, qs, true)
		}
	}
	e.quant = qs.Running

	st.TotalBits = e.bw.BitLength() - start
	st.MotionBits = e.bits.motion
	st.TextureBits = e.bits.texture
	st.IntraMBs = intra

	count := max(e.bits.mvCount, 1)
	e.adaptSearchRange(math.Sqrt(float64(e.bits.mvSum) / float64(count)))
}

// adaptSearchRange widens the search range when the coded vector
// differences are large and narrows it after two quiet frames in a row.
func (e *Encoder) adaptSearchRange(sigma float64) {
	searchRange := 1 << (3 + e.fcode)
	switch {
	case sigma > float64(searchRange/3) && e.fcode <= 3:
		e.fcode++
		e.log.Debug("Search range widened to %d (sigma %.2f)", 2*searchRange, sigma)
	case sigma < float64(searchRange/6) && e.prevSigma >= 0 &&
		e.prevSigma < float64(searchRange/6) && e.fcode >= 2:
		e.fcode--
		e.log.Debug("Search range narrowed to %d (sigma %.2f)", searchRange/2, sigma)
	}
	e.prevSigma = sigma
}

// codeMacroblock quantizes, predicts and writes macroblock (x, y) whose
// mode, and vectors for inter modes, are already set.
func (e *Encoder) codeMacroblock(x, y int, qs QuantState, pframe bool) QuantState {
	mb := e.grid.mb(x, y)
	qs, mb.Mode = qs.apply(mb.Mode, mb.DQuant)

	if mb.Mode.IsIntra() {
		mb.Quant = transQuantIntra(e.cur, x, y, qs.Running, &e.qcoeff)
	} else {
		e.search.compensate(mb, x, y, &e.dct)
		mb.Quant, mb.CBP = transQuantInter(e.cur, x, y, qs.Running, &e.dct, &e.qcoeff)
	}
	if mb.Quant != qs.Prev {
		mb.Mode = mb.Mode.withDQuant()
	}

	if mb.Mode.IsIntra() {
		predictACDC(e.grid, x, y, &e.qcoeff)
	} else {
		computePMVs(e.grid, x, y)
	}
	writeMacroblock(e.bw, mb, &e.qcoeff, pframe, qs.Prev, &e.bits)
	qs.Prev = mb.Quant
	return qs
}
