package dsp

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sad16(cur, ref []byte, stride, best int) int {
	sad := 0
	for y := 0; y < 16; y++ {
		c := cur[y*stride : y*stride+16]
		r := ref[y*stride : y*stride+16]
		for x := 0; x < 16; x++ {
			sad += abs(int(c[x]) - int(r[x]))
		}
		if sad >= best {
			return sad
		}
	}
	return sad
}

func sad8(cur, ref []byte, stride int) int {
	sad := 0
	for y := 0; y < 8; y++ {
		c := cur[y*stride : y*stride+8]
		r := ref[y*stride : y*stride+8]
		for x := 0; x < 8; x++ {
			sad += abs(int(c[x]) - int(r[x]))
		}
	}
	return sad
}

func dev16(cur []byte, stride int) int {
	mean := 0
	for y := 0; y < 16; y++ {
		for _, v := range cur[y*stride : y*stride+16] {
			mean += int(v)
		}
	}
	mean /= 256
	dev := 0
	for y := 0; y < 16; y++ {
		for _, v := range cur[y*stride : y*stride+16] {
			dev += abs(int(v) - mean)
		}
	}
	return dev
}
