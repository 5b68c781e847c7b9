package m4v

import (
	"fmt"

	"github.com/deepteams/m4v/internal/dsp"
	"github.com/deepteams/m4v/internal/logging"
	"github.com/deepteams/m4v/internal/mpeg4"
)

// Options controls encoder creation.
type Options struct {
	// Width and Height are the picture size in pixels. Both must be even.
	Width, Height int

	// FrameRate is the nominal frame rate (default 25). It is handed to the
	// RateController and the stats output; the bitstream does not carry it.
	FrameRate float64

	// Bitrate is the target bit rate in bits per second (default 910000).
	Bitrate int

	// RCPeriod, RCReactionPeriod and RCReactionRatio parametrize an external
	// rate controller (defaults 50, 10, 10). The encoder only stores them.
	RCPeriod         int
	RCReactionPeriod int
	RCReactionRatio  int

	// MinQuantizer and MaxQuantizer bound the frame quantizer (defaults 1
	// and 31). Zero selects the default. A maximum below the minimum is
	// raised to it.
	MinQuantizer int
	MaxQuantizer int

	// MaxKeyInterval is the largest number of frames between two I frames
	// (default 250).
	MaxKeyInterval int

	// Quality selects the motion search effort (0-5, default 5):
	//   0 = I frames only
	//   1-3 = full-pel 16x16 search
	//   4 = adds half-pel refinement and four-vector macroblocks
	//   5 = adds a second search pass around the predicted vector
	// Out-of-range values are treated as 5.
	Quality int

	// Quantizer is the initial quantizer (default 4), clamped to
	// [MinQuantizer, MaxQuantizer].
	Quantizer int

	// ComputePSNR fills Result.PSNR and Result.SSIM at the cost of one
	// picture copy per frame.
	ComputePSNR bool

	// RateController, when set, picks the quantizer of frames that do not
	// carry one and is told the outcome of every frame.
	RateController RateController

	// Logger receives per-frame debug output. Nil disables logging.
	Logger logging.Logger
}

// DefaultOptions returns the default options for a width x height stream.
func DefaultOptions(width, height int) *Options {
	return &Options{
		Width:            width,
		Height:           height,
		FrameRate:        25,
		Bitrate:          910000,
		RCPeriod:         50,
		RCReactionPeriod: 10,
		RCReactionRatio:  10,
		MinQuantizer:     dsp.MinQuant,
		MaxQuantizer:     dsp.MaxQuant,
		MaxKeyInterval:   250,
		Quality:          5,
		Quantizer:        4,
	}
}

// RateController chooses frame quantizers. The policy is up to the host;
// the encoder calls NextQuantizer before a frame without an explicit
// quantizer and Update after every frame.
type RateController interface {
	NextQuantizer() int
	Update(r *Result)
}

// Frame is one input picture and its coding requests.
type Frame struct {
	// Layout of Planes. Planar layouts take three planes, or one contiguous
	// buffer in Planes[0]; packed layouts use Planes[0].
	Layout  Layout
	Planes  [3][]byte
	Strides [3]int // 0 selects the tightly packed stride

	Type FrameType

	// Quant is the frame quantizer. Zero asks the RateController, or keeps
	// the current quantizer when there is none.
	Quant int

	AQ AQMode
	// QuantArray holds one quantizer per macroblock in raster order for
	// AQArray. Nil uses the field set by SetMacroblockQuantizer.
	QuantArray []float32
}

// Result describes one coded frame.
type Result struct {
	KeyFrame bool
	// Fallback is set when a P frame was abandoned for an I frame.
	Fallback bool

	// Bit counts of the macroblock layer. Headers and the end marker only
	// appear in len(Data).
	TotalBits   int
	MotionBits  int
	TextureBits int

	Quantizer int // quantizer in effect after the frame
	FCode     int // search range code for the next P frame
	IntraMBs  int

	// PSNR and SSIM compare the luma of the reconstruction with the
	// input when Options.ComputePSNR is set. PSNR is in dB.
	PSNR float64
	SSIM float64

	// Data is the coded frame. It is owned by the caller.
	Data []byte
}

// Encoder codes a sequence of frames of one size. It is not safe for
// concurrent use.
type Encoder struct {
	opts   Options
	enc    *mpeg4.Encoder
	log    logging.Logger
	source *mpeg4.Image // input copy for PSNR

	quantField []float32
	frames     int
	closed     bool
}

// validateOptions checks opts and fills defaults in place.
func validateOptions(opts *Options) error {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width%2 != 0 || opts.Height%2 != 0 ||
		opts.Width > MaxDimension || opts.Height > MaxDimension {
		return fmt.Errorf("%w: %dx%d (must be even, 2-%d)", ErrInvalidDimensions, opts.Width, opts.Height, MaxDimension)
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 25
	}
	if opts.Bitrate <= 0 {
		opts.Bitrate = 910000
	}
	if opts.RCPeriod <= 0 {
		opts.RCPeriod = 50
	}
	if opts.RCReactionPeriod <= 0 {
		opts.RCReactionPeriod = 10
	}
	if opts.RCReactionRatio <= 0 {
		opts.RCReactionRatio = 10
	}

	if opts.MinQuantizer == 0 {
		opts.MinQuantizer = dsp.MinQuant
	}
	if opts.MaxQuantizer == 0 {
		opts.MaxQuantizer = dsp.MaxQuant
	}
	if opts.MinQuantizer < dsp.MinQuant || opts.MinQuantizer > dsp.MaxQuant {
		return fmt.Errorf("%w: MinQuantizer %d (must be %d-%d)", ErrQuantRange, opts.MinQuantizer, dsp.MinQuant, dsp.MaxQuant)
	}
	if opts.MaxQuantizer < dsp.MinQuant || opts.MaxQuantizer > dsp.MaxQuant {
		return fmt.Errorf("%w: MaxQuantizer %d (must be %d-%d)", ErrQuantRange, opts.MaxQuantizer, dsp.MinQuant, dsp.MaxQuant)
	}
	if opts.MaxQuantizer < opts.MinQuantizer {
		opts.MaxQuantizer = opts.MinQuantizer
	}

	if opts.MaxKeyInterval <= 0 {
		opts.MaxKeyInterval = 250
	}
	if opts.Quality < 0 || opts.Quality > 5 {
		opts.Quality = 5
	}
	if opts.Quantizer == 0 {
		opts.Quantizer = 4
	}
	opts.Quantizer = clampQuant(opts.Quantizer, opts.MinQuantizer, opts.MaxQuantizer)
	return nil
}

func clampQuant(q, lo, hi int) int {
	return min(max(q, lo), hi)
}

// NewEncoder creates an encoder. If opts is nil, DefaultOptions(0, 0) is
// used, which fails validation; callers must at least set the size.
func NewEncoder(opts *Options) (*Encoder, error) {
	if opts == nil {
		opts = DefaultOptions(0, 0)
	}
	o := *opts
	if err := validateOptions(&o); err != nil {
		return nil, err
	}

	log := o.Logger
	if log == nil {
		log = logging.NewNop()
	}
	e := &Encoder{
		opts: o,
		log:  log,
		enc: mpeg4.NewEncoder(mpeg4.Config{
			Width:          o.Width,
			Height:         o.Height,
			Quality:        o.Quality,
			MaxKeyInterval: o.MaxKeyInterval,
			MaxQuant:       o.MaxQuantizer,
			Quant:          o.Quantizer,
			Logger:         log.WithComponent("mpeg4"),
		}),
	}
	if o.ComputePSNR {
		e.source = mpeg4.NewImage(o.Width, o.Height)
	}
	log.Debug("Encoder created: %dx%d, quality %d, quantizer %d-%d",
		o.Width, o.Height, o.Quality, o.MinQuantizer, o.MaxQuantizer)
	return e, nil
}

// Options returns the effective options after defaults and clamping.
func (e *Encoder) Options() Options { return e.opts }

// MacroblockCount returns the number of macroblocks per frame, the length
// of a quantizer field.
func (e *Encoder) MacroblockCount() int { return e.enc.Grid().Len() }

// SetMacroblockQuantizer stores the quantizer field used by AQArray frames
// that carry no QuantArray of their own. The slice is copied.
func (e *Encoder) SetMacroblockQuantizer(q []float32) {
	e.quantField = append(e.quantField[:0], q...)
}

// Encode codes one frame. A rejected frame leaves the encoder state
// unchanged.
func (e *Encoder) Encode(f *Frame) (*Result, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if f.AQ < AQNone || f.AQ > AQArray {
		return nil, fmt.Errorf("m4v: unknown AQ mode %d", f.AQ)
	}
	params := mpeg4.FrameParams{Type: f.Type, AQ: f.AQ, QuantArray: f.QuantArray}
	if params.AQ == AQArray && params.QuantArray == nil {
		params.QuantArray = e.quantField
	}
	if params.AQ == AQArray && len(params.QuantArray) != e.MacroblockCount() {
		return nil, fmt.Errorf("m4v: quantizer field has %d entries, want %d", len(params.QuantArray), e.MacroblockCount())
	}

	q := f.Quant
	if q == 0 && e.opts.RateController != nil {
		q = e.opts.RateController.NextQuantizer()
	}
	if q != 0 {
		params.Quant = clampQuant(q, e.opts.MinQuantizer, e.opts.MaxQuantizer)
	}

	if err := e.enc.Import(f.Layout, f.Planes, f.Strides); err != nil {
		return nil, fmt.Errorf("m4v: frame %d: %w", e.frames, err)
	}
	if e.source != nil {
		e.source.CopyFrom(e.enc.Current())
	}

	data, st, err := e.enc.EncodeFrame(&params)
	if err != nil {
		return nil, fmt.Errorf("m4v: frame %d: %w", e.frames, err)
	}
	res := &Result{
		KeyFrame:    st.KeyFrame,
		Fallback:    st.Fallback,
		TotalBits:   st.TotalBits,
		MotionBits:  st.MotionBits,
		TextureBits: st.TextureBits,
		Quantizer:   st.Quant,
		FCode:       st.FCode,
		IntraMBs:    st.IntraMBs,
		Data:        append([]byte(nil), data...),
	}
	if e.source != nil {
		rec := e.enc.Reference()
		res.PSNR = rec.PSNR(e.source)
		res.SSIM = rec.SSIM(e.source)
	}
	if st.Fallback {
		e.log.Debug("Frame %d recoded as I frame: %d intra macroblocks", e.frames, st.IntraMBs)
	}
	if e.opts.RateController != nil {
		e.opts.RateController.Update(res)
	}
	e.frames++
	return res, nil
}

// Reconstruction returns the decoded view of the last coded frame as
// contiguous I420.
func (e *Encoder) Reconstruction() []byte {
	return mpeg4.ExportFrame(e.enc.Reference())
}

// Close releases the encoder's buffers. Further calls to Encode fail.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.enc.Close()
	if e.source != nil {
		e.source.Release()
	}
	return nil
}
