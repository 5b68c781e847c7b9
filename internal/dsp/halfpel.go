package dsp

// Half-pel interpolation. Each output sample sits half a pixel right of,
// below, or diagonally from the source sample with the same index. The last
// column and row reuse the nearest source sample so every index is defined.
//
//	h  = (a + b + 1 - rounding) >> 1
//	v  = (a + c + 1 - rounding) >> 1
//	hv = (a + b + c + d + 2 - rounding) >> 2

func interpolateH(dst, src []byte, width, height, stride, rounding int) {
	r := 1 - rounding
	for y := 0; y < height; y++ {
		s := src[y*stride : y*stride+width]
		d := dst[y*stride : y*stride+width]
		for x := 0; x < width-1; x++ {
			d[x] = uint8((int(s[x]) + int(s[x+1]) + r) >> 1)
		}
		d[width-1] = s[width-1]
	}
}

func interpolateV(dst, src []byte, width, height, stride, rounding int) {
	r := 1 - rounding
	for y := 0; y < height; y++ {
		s0 := src[y*stride : y*stride+width]
		s1 := s0
		if y+1 < height {
			s1 = src[(y+1)*stride : (y+1)*stride+width]
		}
		d := dst[y*stride : y*stride+width]
		for x := 0; x < width; x++ {
			d[x] = uint8((int(s0[x]) + int(s1[x]) + r) >> 1)
		}
	}
}

func interpolateHV(dst, src []byte, width, height, stride, rounding int) {
	r := 2 - rounding
	for y := 0; y < height; y++ {
		s0 := src[y*stride : y*stride+width]
		s1 := s0
		if y+1 < height {
			s1 = src[(y+1)*stride : (y+1)*stride+width]
		}
		d := dst[y*stride : y*stride+width]
		for x := 0; x < width; x++ {
			x1 := x + 1
			if x1 == width {
				x1 = x
			}
			d[x] = uint8((int(s0[x]) + int(s0[x1]) + int(s1[x]) + int(s1[x1]) + r) >> 2)
		}
	}
}
