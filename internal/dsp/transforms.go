package dsp

// 8x8 DCT-II with an integer cosine table.
//
// dctTab[k][n] = round(8192 * c(k) * cos((2n+1)kπ/16)) with c(0) = √(1/8)
// and c(k) = √(2/8) otherwise, so the 2-D transform is orthonormal and the
// DC output equals the block sum divided by 8.
var dctTab = [8][8]int{
	{2896, 2896, 2896, 2896, 2896, 2896, 2896, 2896},
	{4017, 3406, 2276, 799, -799, -2276, -3406, -4017},
	{3784, 1567, -1567, -3784, -3784, -1567, 1567, 3784},
	{3406, -799, -4017, -2276, 2276, 4017, 799, -3406},
	{2896, -2896, -2896, 2896, 2896, -2896, -2896, 2896},
	{2276, -4017, 799, 3406, -3406, -799, 4017, -2276},
	{1567, -3784, 3784, -1567, -1567, 3784, -3784, 1567},
	{799, -2276, 3406, -4017, 4017, -3406, 2276, -799},
}

const (
	// dctPass1Shift keeps 2 fractional bits after the first pass.
	dctPass1Shift = 11
	// dctPass2Shift removes the remaining table scale (13+13-11).
	dctPass2Shift = 15
)

// descale shifts v right by n bits, rounding to nearest.
func descale(v, n int) int {
	return (v + 1<<uint(n-1)) >> uint(n)
}

// fdct is the forward transform, in place. Inputs are pixel values or
// residuals in [-255, 255]; outputs fit in [-2048, 2047].
func fdct(block *[64]int16) {
	var tmp [64]int
	// Rows.
	for y := 0; y < 8; y++ {
		row := block[y*8 : y*8+8]
		for k := 0; k < 8; k++ {
			t := &dctTab[k]
			s := t[0]*int(row[0]) + t[1]*int(row[1]) + t[2]*int(row[2]) + t[3]*int(row[3]) +
				t[4]*int(row[4]) + t[5]*int(row[5]) + t[6]*int(row[6]) + t[7]*int(row[7])
			tmp[y*8+k] = descale(s, dctPass1Shift)
		}
	}
	// Columns.
	for x := 0; x < 8; x++ {
		for k := 0; k < 8; k++ {
			t := &dctTab[k]
			s := 0
			for n := 0; n < 8; n++ {
				s += t[n] * tmp[n*8+x]
			}
			block[k*8+x] = int16(descale(s, dctPass2Shift))
		}
	}
}

// idct is the inverse transform, in place. Outputs are not clipped.
func idct(block *[64]int16) {
	var tmp [64]int
	// Rows.
	for y := 0; y < 8; y++ {
		row := block[y*8 : y*8+8]
		for n := 0; n < 8; n++ {
			s := 0
			for k := 0; k < 8; k++ {
				s += dctTab[k][n] * int(row[k])
			}
			tmp[y*8+n] = descale(s, dctPass1Shift)
		}
	}
	// Columns.
	for x := 0; x < 8; x++ {
		for n := 0; n < 8; n++ {
			s := 0
			for k := 0; k < 8; k++ {
				s += dctTab[k][n] * tmp[k*8+x]
			}
			block[n*8+x] = int16(descale(s, dctPass2Shift))
		}
	}
}
