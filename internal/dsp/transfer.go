package dsp

func clip255(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func transfer8to16Copy(dst *[64]int16, src []byte, stride int) {
	for y := 0; y < 8; y++ {
		s := src[y*stride : y*stride+8]
		for x := 0; x < 8; x++ {
			dst[y*8+x] = int16(s[x])
		}
	}
}

func transfer16to8Copy(dst []byte, src *[64]int16, stride int) {
	for y := 0; y < 8; y++ {
		d := dst[y*stride : y*stride+8]
		for x := 0; x < 8; x++ {
			d[x] = clip255(int(src[y*8+x]))
		}
	}
}

func transfer16to8Add(dst []byte, src *[64]int16, stride int) {
	for y := 0; y < 8; y++ {
		d := dst[y*stride : y*stride+8]
		for x := 0; x < 8; x++ {
			d[x] = clip255(int(d[x]) + int(src[y*8+x]))
		}
	}
}

func transfer8to16Sub(dct *[64]int16, cur, ref []byte, stride int) {
	for y := 0; y < 8; y++ {
		c := cur[y*stride : y*stride+8]
		r := ref[y*stride : y*stride+8]
		for x := 0; x < 8; x++ {
			dct[y*8+x] = int16(int(c[x]) - int(r[x]))
			c[x] = r[x]
		}
	}
}
