package bitio

// Reader unpacks fields written by Writer, most-significant-bit first.
//
// Reads past the end of the buffer return zero bits and set the
// end-of-stream flag, which stays set until the reader is discarded.
type Reader struct {
	buf    []byte
	bitPos int  // absolute bit position
	eos    bool // end of stream flag
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// ReadBits reads nBits (0..32) and returns them right-aligned.
func (br *Reader) ReadBits(nBits int) uint32 {
	var v uint32
	for nBits > 0 {
		byteIdx := br.bitPos >> 3
		if byteIdx >= len(br.buf) {
			br.eos = true
			v <<= uint(nBits)
			br.bitPos += nBits
			return v
		}
		avail := 8 - br.bitPos&7
		take := avail
		if take > nBits {
			take = nBits
		}
		b := uint32(br.buf[byteIdx]) >> uint(avail-take) & (1<<uint(take) - 1)
		v = v<<uint(take) | b
		br.bitPos += take
		nBits -= take
	}
	return v
}

// ReadBit reads a single bit.
func (br *Reader) ReadBit() bool {
	return br.ReadBits(1) == 1
}

// ReadUE reads an unsigned Exp-Golomb code.
func (br *Reader) ReadUE() uint32 {
	zeros := 0
	for !br.ReadBit() {
		zeros++
		if zeros > 32 || br.eos {
			br.eos = true
			return 0
		}
	}
	if zeros == 0 {
		return 0
	}
	var rest uint64
	if zeros > 16 {
		rest = uint64(br.ReadBits(zeros-16)) << 16
		rest |= uint64(br.ReadBits(16))
	} else {
		rest = uint64(br.ReadBits(zeros))
	}
	return uint32((uint64(1)<<uint(zeros) | rest) - 1)
}

// ReadSE reads a signed Exp-Golomb code.
func (br *Reader) ReadSE() int32 {
	k := br.ReadUE()
	if k&1 == 1 {
		return int32((k + 1) >> 1)
	}
	return -int32(k >> 1)
}

// Align skips to the next byte boundary.
func (br *Reader) Align() {
	br.bitPos = (br.bitPos + 7) &^ 7
}

// BitPos returns the number of bits consumed so far.
func (br *Reader) BitPos() int {
	return br.bitPos
}

// BytePos returns the number of whole or partial bytes consumed so far.
func (br *Reader) BytePos() int {
	return (br.bitPos + 7) >> 3
}

// EOS reports whether a read ran past the end of the buffer.
func (br *Reader) EOS() bool {
	return br.eos
}
