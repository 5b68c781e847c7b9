package m4v

import (
	"fmt"
	"image"
	"io"

	"github.com/deepteams/m4v/internal/mpeg4"
)

// FrameHeader describes one coded frame of a stream.
type FrameHeader struct {
	KeyFrame      bool
	Width, Height int // picture size, set on key frames
	Quantizer     int
	Rounding      int
	FCode         int
	Offset        int // byte offset of the frame in the stream
	Size          int // coded size in bytes
}

// Decoder reads the frames of a stream written by Encoder.
type Decoder struct {
	r    io.Reader
	data []byte
	read bool
	off  int
	dec  *mpeg4.Decoder
}

// NewDecoder returns a decoder reading from r. The stream is read in full
// on the first call to Decode.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, dec: mpeg4.NewDecoder()}
}

// NewDecoderBytes returns a decoder over an in-memory stream.
func NewDecoderBytes(data []byte) *Decoder {
	return &Decoder{data: data, read: true, dec: mpeg4.NewDecoder()}
}

// Decode returns the next frame. It returns io.EOF after the last frame.
// The image is freshly allocated and owned by the caller.
func (d *Decoder) Decode() (*image.YCbCr, *FrameHeader, error) {
	if !d.read {
		data, err := readAll(d.r)
		if err != nil {
			return nil, nil, err
		}
		d.data, d.read = data, true
	}
	if d.off >= len(d.data) {
		return nil, nil, io.EOF
	}

	h, n, err := d.dec.DecodeFrame(d.data[d.off:])
	if err != nil {
		return nil, nil, fmt.Errorf("m4v: frame at byte %d: %w", d.off, err)
	}
	pic := d.dec.Picture()
	hdr := &FrameHeader{
		KeyFrame:  h.Intra,
		Quantizer: h.Quant,
		Rounding:  h.Rounding,
		FCode:     h.FCode,
		Offset:    d.off,
		Size:      n,
	}
	if h.Intra {
		hdr.Width, hdr.Height = pic.Width, pic.Height
	}
	d.off += n
	return toYCbCr(pic), hdr, nil
}

// Close releases the decoder's picture buffers.
func (d *Decoder) Close() error {
	d.dec.Close()
	return nil
}

// readAll reads all data from r, with a single allocation when r reports
// its length.
func readAll(r io.Reader) ([]byte, error) {
	if lr, ok := r.(interface{ Len() int }); ok {
		if n := lr.Len(); n > 0 {
			data := make([]byte, n)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("m4v: read stream: %w", err)
			}
			return data, nil
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("m4v: read stream: %w", err)
	}
	return data, nil
}

// toYCbCr copies the visible area of pic into a 4:2:0 image.
func toYCbCr(pic *mpeg4.Image) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, pic.Width, pic.Height), image.YCbCrSubsampleRatio420)
	for y := 0; y < pic.Height; y++ {
		off := pic.YOff(0, y)
		copy(img.Y[y*img.YStride:], pic.Y[off:off+pic.Width])
	}
	for y := 0; y < pic.Height/2; y++ {
		off := pic.UVOff(0, y)
		copy(img.Cb[y*img.CStride:], pic.U[off:off+pic.Width/2])
		copy(img.Cr[y*img.CStride:], pic.V[off:off+pic.Width/2])
	}
	return img
}

// ScanHeaders decodes every frame of a stream and returns their headers.
// On error the headers of the frames before the bad one are returned.
func ScanHeaders(r io.Reader) ([]FrameHeader, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	d := NewDecoderBytes(data)
	defer d.Close()

	var headers []FrameHeader
	for {
		_, hdr, err := d.Decode()
		if err == io.EOF {
			return headers, nil
		}
		if err != nil {
			return headers, err
		}
		headers = append(headers, *hdr)
	}
}
