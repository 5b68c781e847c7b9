package mpeg4

import (
	"fmt"

	"github.com/deepteams/m4v/internal/bitio"
)

// Start codes.
const (
	volStartCode = 0x00000120
	vopStartCode = 0x000001B6
)

// Coding types of a VOP.
const (
	codingIntra = 0
	codingInter = 1
)

// endMarkerBits zero bits close every picture.
const endMarkerBits = 32

// VOPHeader is the picture header of one frame.
type VOPHeader struct {
	Intra    bool
	Quant    int
	Rounding int // P frames only
	FCode    int // P frames only
}

func writeVOL(bw *bitio.Writer, width, height int) {
	bw.PutBits(volStartCode, 32)
	bw.PutBits(uint32(width), 16)
	bw.PutBits(uint32(height), 16)
}

func writeVOP(bw *bitio.Writer, h VOPHeader) {
	bw.PutBits(vopStartCode, 32)
	if h.Intra {
		bw.PutBits(codingIntra, 2)
		bw.PutBits(uint32(h.Quant), 5)
		return
	}
	bw.PutBits(codingInter, 2)
	bw.PutBits(uint32(h.Quant), 5)
	bw.PutBits(uint32(h.Rounding), 1)
	bw.PutBits(uint32(h.FCode), 3)
}

func writeEndMarker(bw *bitio.Writer) {
	bw.Skip(endMarkerBits)
	bw.Pad()
}

// readHeaders reads an optional VOL followed by a VOP. width and height are
// zero when no VOL precedes the VOP.
func readHeaders(br *bitio.Reader) (width, height int, h VOPHeader, err error) {
	code := br.ReadBits(32)
	if code == volStartCode {
		width = int(br.ReadBits(16))
		height = int(br.ReadBits(16))
		code = br.ReadBits(32)
	}
	if br.EOS() {
		return 0, 0, h, fmt.Errorf("%w: truncated picture header", ErrBitstream)
	}
	if code != vopStartCode {
		return 0, 0, h, fmt.Errorf("%w: start code %#08x", ErrBitstream, code)
	}
	switch br.ReadBits(2) {
	case codingIntra:
		h.Intra = true
		h.Quant = int(br.ReadBits(5))
	case codingInter:
		h.Quant = int(br.ReadBits(5))
		h.Rounding = int(br.ReadBits(1))
		h.FCode = int(br.ReadBits(3))
		if h.FCode == 0 {
			return 0, 0, h, fmt.Errorf("%w: fcode 0", ErrBitstream)
		}
	default:
		return 0, 0, h, fmt.Errorf("%w: unknown coding type", ErrBitstream)
	}
	if h.Quant == 0 {
		return 0, 0, h, fmt.Errorf("%w: quantizer 0", ErrBitstream)
	}
	return width, height, h, nil
}

// ReadPictureHeader parses the headers at the start of one coded picture
// without decoding macroblocks.
func ReadPictureHeader(data []byte) (width, height int, h VOPHeader, err error) {
	return readHeaders(bitio.NewReader(data))
}
