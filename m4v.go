package m4v

import (
	"errors"

	"github.com/deepteams/m4v/internal/mpeg4"
)

// MaxDimension is the largest width or height the sequence header can
// carry.
const MaxDimension = 65535

// Errors returned by the encoder and decoder.
var (
	ErrInvalidDimensions = errors.New("m4v: invalid picture dimensions")
	ErrQuantRange        = errors.New("m4v: quantizer out of range")
	ErrClosed            = errors.New("m4v: encoder closed")

	// ErrUnsupportedLayout and ErrShortPlane reject an input frame before
	// any encoder state changes.
	ErrUnsupportedLayout = mpeg4.ErrUnsupportedLayout
	ErrShortPlane        = mpeg4.ErrShortPlane

	// ErrBitstream reports a stream the decoder cannot parse.
	ErrBitstream = mpeg4.ErrBitstream
	// ErrNoReference reports a P frame at the start of a stream. It wraps
	// ErrBitstream.
	ErrNoReference = mpeg4.ErrNoReference
)

// Layout is the memory layout of an input frame.
type Layout = mpeg4.Layout

const (
	LayoutI420 = mpeg4.LayoutI420 // planar Y, U, V
	LayoutYV12 = mpeg4.LayoutYV12 // planar Y, V, U
	LayoutYUY2 = mpeg4.LayoutYUY2 // packed Y0 U Y1 V
	LayoutYVYU = mpeg4.LayoutYVYU // packed Y0 V Y1 U
	LayoutUYVY = mpeg4.LayoutUYVY // packed U Y0 V Y1
)

// FrameType requests how a frame is coded.
type FrameType = mpeg4.FrameType

const (
	// FrameAuto lets the encoder choose. Frames become I frames at the start
	// of the stream, when the key interval elapses, at quality 0, and when
	// too many macroblocks of a P frame fall back to intra coding.
	FrameAuto = mpeg4.FrameAuto
	// FrameIntra forces an I frame.
	FrameIntra = mpeg4.FrameIntra
	// FrameInter forces a P frame and disables the whole-frame intra
	// fallback. The first frame of a stream is still an I frame.
	FrameInter = mpeg4.FrameInter
)

// AQMode selects the source of per-macroblock quantizer adjustments.
type AQMode = mpeg4.AQMode

const (
	AQNone      = mpeg4.AQNone      // one quantizer for the whole frame
	AQLuminance = mpeg4.AQLuminance // coarser quantizers in dark and bright areas
	AQArray     = mpeg4.AQArray     // caller supplied quantizer per macroblock
)
