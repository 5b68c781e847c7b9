package mpeg4

import (
	"github.com/deepteams/m4v/internal/dsp"
	"github.com/deepteams/m4v/internal/pool"
)

// EdgeSize is the luma margin around a picture, in pixels. Chroma planes
// carry half of it. Motion vectors may point anywhere inside the margin.
const EdgeSize = 32

// Image is a YUV 4:2:0 picture stored with replicated margins.
//
// Planes are addressed through YOff/UVOff so callers can use negative
// coordinates inside the margin. The area between the visible size and the
// macroblock-aligned size belongs to the last macroblock row/column and is
// coded like any other sample.
type Image struct {
	Y, U, V []byte

	Width, Height     int // visible size
	MBWidth, MBHeight int // size in macroblocks
	EdgedWidth        int // luma stride
	EdgedHeight       int
	ChromaStride      int
	chromaEdgedHeight int
	yOrigin, uvOrigin int
}

// NewImage allocates a zeroed picture for a width x height frame.
func NewImage(width, height int) *Image {
	mbw := (width + 15) / 16
	mbh := (height + 15) / 16
	img := &Image{
		Width:       width,
		Height:      height,
		MBWidth:     mbw,
		MBHeight:    mbh,
		EdgedWidth:  mbw*16 + 2*EdgeSize,
		EdgedHeight: mbh*16 + 2*EdgeSize,
	}
	img.ChromaStride = img.EdgedWidth / 2
	img.chromaEdgedHeight = img.EdgedHeight / 2
	img.yOrigin = EdgeSize*img.EdgedWidth + EdgeSize
	img.uvOrigin = EdgeSize/2*img.ChromaStride + EdgeSize/2

	img.Y = pool.Get(img.EdgedWidth * img.EdgedHeight)
	img.U = pool.Get(img.ChromaStride * img.chromaEdgedHeight)
	img.V = pool.Get(img.ChromaStride * img.chromaEdgedHeight)
	clear(img.Y)
	clear(img.U)
	clear(img.V)
	return img
}

// Release returns the plane storage to the pool.
func (img *Image) Release() {
	for _, p := range []*[]byte{&img.Y, &img.U, &img.V} {
		if *p != nil {
			pool.Put(*p)
			*p = nil
		}
	}
}

// YOff returns the offset of luma sample (x, y) in Y.
func (img *Image) YOff(x, y int) int {
	return img.yOrigin + y*img.EdgedWidth + x
}

// UVOff returns the offset of chroma sample (x, y) in U and V.
func (img *Image) UVOff(x, y int) int {
	return img.uvOrigin + y*img.ChromaStride + x
}

// CopyFrom copies every sample of src, margins included. Both pictures must
// have the same geometry.
func (img *Image) CopyFrom(src *Image) {
	copy(img.Y, src.Y)
	copy(img.U, src.U)
	copy(img.V, src.V)
}

// Swap exchanges the planes of two pictures with the same geometry.
func (img *Image) Swap(other *Image) {
	img.Y, other.Y = other.Y, img.Y
	img.U, other.U = other.U, img.U
	img.V, other.V = other.V, img.V
}

// SetEdges replicates the outermost visible samples into the margins and
// into the padding up to the macroblock-aligned size.
func (img *Image) SetEdges() {
	setPlaneEdges(img.Y, img.EdgedWidth, img.EdgedHeight, EdgeSize, img.Width, img.Height)
	cw, ch := img.Width/2, img.Height/2
	setPlaneEdges(img.U, img.ChromaStride, img.chromaEdgedHeight, EdgeSize/2, cw, ch)
	setPlaneEdges(img.V, img.ChromaStride, img.chromaEdgedHeight, EdgeSize/2, cw, ch)
}

func setPlaneEdges(p []byte, stride, rows, edge, w, h int) {
	first := edge * stride
	// Left and right of every visible row.
	for y := 0; y < h; y++ {
		row := p[first+y*stride : first+(y+1)*stride]
		left, right := row[edge], row[edge+w-1]
		for x := 0; x < edge; x++ {
			row[x] = left
		}
		for x := edge + w; x < stride; x++ {
			row[x] = right
		}
	}
	// Rows above and below.
	top := p[first : first+stride]
	for y := 0; y < edge; y++ {
		copy(p[y*stride:(y+1)*stride], top)
	}
	bottom := p[first+(h-1)*stride : first+h*stride]
	for y := edge + h; y < rows; y++ {
		copy(p[y*stride:(y+1)*stride], bottom)
	}
}

// Interpolate fills h, v and hv with the half-pel planes of ref. Luma is
// skipped when chromaOnly is set.
func Interpolate(ref, h, v, hv *Image, rounding int, chromaOnly bool) {
	if !chromaOnly {
		dsp.InterpolateH(h.Y, ref.Y, ref.EdgedWidth, ref.EdgedHeight, ref.EdgedWidth, rounding)
		dsp.InterpolateV(v.Y, ref.Y, ref.EdgedWidth, ref.EdgedHeight, ref.EdgedWidth, rounding)
		dsp.InterpolateHV(hv.Y, ref.Y, ref.EdgedWidth, ref.EdgedHeight, ref.EdgedWidth, rounding)
	}
	cs, ch := ref.ChromaStride, ref.chromaEdgedHeight
	dsp.InterpolateH(h.U, ref.U, cs, ch, cs, rounding)
	dsp.InterpolateV(v.U, ref.U, cs, ch, cs, rounding)
	dsp.InterpolateHV(hv.U, ref.U, cs, ch, cs, rounding)
	dsp.InterpolateH(h.V, ref.V, cs, ch, cs, rounding)
	dsp.InterpolateV(v.V, ref.V, cs, ch, cs, rounding)
	dsp.InterpolateHV(hv.V, ref.V, cs, ch, cs, rounding)
}

// blockPlane returns the plane, offset and stride of 8x8 block i (0..3
// luma in raster order, 4 U, 5 V) of macroblock (x, y).
func (img *Image) blockPlane(x, y, i int) ([]byte, int) {
	switch i {
	case 0, 1, 2, 3:
		off := img.YOff(x*16+(i&1)*8, y*16+(i>>1)*8)
		return img.Y[off:], img.EdgedWidth
	case 4:
		return img.U[img.UVOff(x*8, y*8):], img.ChromaStride
	default:
		return img.V[img.UVOff(x*8, y*8):], img.ChromaStride
	}
}

// PSNR returns the luma peak signal-to-noise ratio of img against ref
// over the visible area, in dB. Identical pictures report 99.
func (img *Image) PSNR(ref *Image) float64 {
	sse := dsp.SSE(img.Y[img.YOff(0, 0):], img.EdgedWidth, ref.Y[ref.YOff(0, 0):], ref.EdgedWidth, img.Width, img.Height)
	return dsp.PSNRFromSSE(sse, img.Width*img.Height)
}

// SSIM returns the mean luma structural similarity of img against ref
// over the visible area, in [0, 1].
func (img *Image) SSIM(ref *Image) float64 {
	return dsp.PlaneSSIM(img.Y[img.YOff(0, 0):], img.EdgedWidth, ref.Y[ref.YOff(0, 0):], ref.EdgedWidth, img.Width, img.Height)
}
