package m4v

import (
	"fmt"
	"image"
	"image/color"

	"github.com/deepteams/m4v/internal/dsp"
)

// FrameFromImage converts img into a contiguous I420 frame of the same
// size. 4:2:0 YCbCr images aligned to their chroma grid are copied;
// anything else goes through BT.601
// RGB to YUV conversion with 2x2 chroma averaging.
func FrameFromImage(img image.Image) (*Frame, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
		return nil, fmt.Errorf("%w: image is %dx%d", ErrInvalidDimensions, w, h)
	}
	buf := make([]byte, w*h+2*(w/2)*(h/2))
	y, u, v := buf[:w*h], buf[w*h:w*h+w*h/4], buf[w*h+w*h/4:]
	cw := w / 2

	// Sub-images starting on an odd row or column split their chroma
	// samples and go through the RGB path.
	if ycc, ok := img.(*image.YCbCr); ok && ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 &&
		b.Min.X%2 == 0 && b.Min.Y%2 == 0 {
		for row := 0; row < h; row++ {
			off := ycc.YOffset(b.Min.X, b.Min.Y+row)
			copy(y[row*w:(row+1)*w], ycc.Y[off:off+w])
		}
		for row := 0; row < h/2; row++ {
			off := ycc.COffset(b.Min.X, b.Min.Y+2*row)
			copy(u[row*cw:(row+1)*cw], ycc.Cb[off:off+cw])
			copy(v[row*cw:(row+1)*cw], ycc.Cr[off:off+cw])
		}
		return &Frame{Layout: LayoutI420, Planes: [3][]byte{buf}}, nil
	}

	rgb := func(x, y int) (int, int, int) {
		c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
		return int(c.R), int(c.G), int(c.B)
	}
	for row := 0; row < h; row += 2 {
		for col := 0; col < w; col += 2 {
			var sr, sg, sb int
			for _, p := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
				r, g, bl := rgb(col+p[0], row+p[1])
				y[(row+p[1])*w+col+p[0]] = dsp.RGBToY(r, g, bl)
				sr, sg, sb = sr+r, sg+g, sb+bl
			}
			u[row/2*cw+col/2] = dsp.RGBToU(sr, sg, sb, dsp.UVRounding)
			v[row/2*cw+col/2] = dsp.RGBToV(sr, sg, sb, dsp.UVRounding)
		}
	}
	return &Frame{Layout: LayoutI420, Planes: [3][]byte{buf}}, nil
}

// ToNRGBA converts a decoded 4:2:0 picture to RGB with the BT.601
// conversion FrameFromImage inverts.
func ToNRGBA(img *image.YCbCr) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := out.Pix[(y-b.Min.Y)*out.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			yi, ci := img.YOffset(x, y), img.COffset(x, y)
			px := row[(x-b.Min.X)*4:]
			dsp.YUVToRGB(int(img.Y[yi]), int(img.Cb[ci]), int(img.Cr[ci]), px)
			px[3] = 0xff
		}
	}
	return out
}
