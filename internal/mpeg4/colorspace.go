package mpeg4

import (
	"errors"
	"fmt"
)

// Layout is the memory layout of an input picture.
type Layout int

const (
	LayoutI420 Layout = iota // planar Y, U, V
	LayoutYV12               // planar Y, V, U
	LayoutYUY2               // packed Y0 U Y1 V
	LayoutYVYU               // packed Y0 V Y1 U
	LayoutUYVY               // packed U Y0 V Y1
)

func (l Layout) String() string {
	switch l {
	case LayoutI420:
		return "i420"
	case LayoutYV12:
		return "yv12"
	case LayoutYUY2:
		return "yuy2"
	case LayoutYVYU:
		return "yvyu"
	case LayoutUYVY:
		return "uyvy"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Import errors.
var (
	ErrUnsupportedLayout = errors.New("m4v: unsupported layout")
	ErrShortPlane        = errors.New("m4v: plane too short")
)

// packedOrder gives the byte offsets of Y0, U, Y1 and V in a 4-byte group.
func packedOrder(l Layout) (y0, u, y1, v int, ok bool) {
	switch l {
	case LayoutYUY2:
		return 0, 1, 2, 3, true
	case LayoutYVYU:
		return 0, 3, 2, 1, true
	case LayoutUYVY:
		return 1, 0, 3, 2, true
	default:
		return 0, 0, 0, 0, false
	}
}

// ImportFrame copies a picture of img's visible size into img and fills its
// margins. Planar layouts take three planes, or a single contiguous buffer
// in planes[0] with planes[1] and planes[2] nil. Packed layouts use
// planes[0]. A zero stride selects the tightly packed default. Nothing is
// written when the input is rejected.
func ImportFrame(img *Image, layout Layout, planes [3][]byte, strides [3]int) error {
	w, h := img.Width, img.Height
	switch layout {
	case LayoutI420, LayoutYV12:
		ys, cs := strides[0], strides[1]
		if ys == 0 {
			ys = w
		}
		if cs == 0 {
			cs = w / 2
		}
		vs := strides[2]
		if vs == 0 {
			vs = cs
		}
		y, u, v := planes[0], planes[1], planes[2]
		if u == nil && v == nil {
			ySize, cSize := ys*h, cs*(h/2)
			if len(y) < ySize+2*cSize {
				return fmt.Errorf("%w: %d bytes for a %dx%d picture", ErrShortPlane, len(y), w, h)
			}
			y, u, v = y[:ySize], y[ySize:ySize+cSize], y[ySize+cSize:]
			vs = cs
		}
		if layout == LayoutYV12 {
			u, v = v, u
			cs, vs = vs, cs
		}
		if err := checkPlane(y, ys, w, h); err != nil {
			return err
		}
		if err := checkPlane(u, cs, w/2, h/2); err != nil {
			return err
		}
		if err := checkPlane(v, vs, w/2, h/2); err != nil {
			return err
		}
		copyPlane(img.Y[img.YOff(0, 0):], img.EdgedWidth, y, ys, w, h)
		copyPlane(img.U[img.UVOff(0, 0):], img.ChromaStride, u, cs, w/2, h/2)
		copyPlane(img.V[img.UVOff(0, 0):], img.ChromaStride, v, vs, w/2, h/2)

	case LayoutYUY2, LayoutYVYU, LayoutUYVY:
		oy0, ou, oy1, ov, _ := packedOrder(layout)
		src, stride := planes[0], strides[0]
		if stride == 0 {
			stride = 2 * w
		}
		if err := checkPlane(src, stride, 2*w, h); err != nil {
			return err
		}
		for row := 0; row < h; row += 2 {
			a, b := src[row*stride:], src[(row+1)*stride:]
			ya := img.Y[img.YOff(0, row):]
			yb := img.Y[img.YOff(0, row+1):]
			cu := img.U[img.UVOff(0, row/2):]
			cv := img.V[img.UVOff(0, row/2):]
			for x := 0; x < w/2; x++ {
				g := 4 * x
				ya[2*x], ya[2*x+1] = a[g+oy0], a[g+oy1]
				yb[2*x], yb[2*x+1] = b[g+oy0], b[g+oy1]
				cu[x] = byte((int(a[g+ou]) + int(b[g+ou]) + 1) >> 1)
				cv[x] = byte((int(a[g+ov]) + int(b[g+ov]) + 1) >> 1)
			}
		}

	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedLayout, layout)
	}
	img.SetEdges()
	return nil
}

func checkPlane(p []byte, stride, w, h int) error {
	if stride < w || len(p) < stride*(h-1)+w {
		return fmt.Errorf("%w: %d bytes, stride %d for %dx%d", ErrShortPlane, len(p), stride, w, h)
	}
	return nil
}

func copyPlane(dst []byte, dstStride int, src []byte, srcStride, w, h int) {
	for y := 0; y < h; y++ {
		copy(dst[y*dstStride:y*dstStride+w], src[y*srcStride:y*srcStride+w])
	}
}

// ExportFrame writes the visible area of img as contiguous I420.
func ExportFrame(img *Image) []byte {
	w, h := img.Width, img.Height
	out := make([]byte, w*h+2*(w/2)*(h/2))
	copyPlane(out, w, img.Y[img.YOff(0, 0):], img.EdgedWidth, w, h)
	off := w * h
	copyPlane(out[off:], w/2, img.U[img.UVOff(0, 0):], img.ChromaStride, w/2, h/2)
	off += (w / 2) * (h / 2)
	copyPlane(out[off:], w/2, img.V[img.UVOff(0, 0):], img.ChromaStride, w/2, h/2)
	return out
}
