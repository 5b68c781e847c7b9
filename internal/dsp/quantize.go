package dsp

// Quantizer bounds.
const (
	MinQuant = 1
	MaxQuant = 31
)

// Dequantized coefficients are clamped to this range.
const (
	coeffMin = -2048
	coeffMax = 2047
)

// quantLadder is the strictly increasing set of quantizers a saturating
// macroblock is retried with.
var quantLadder = [...]int{1, 2, 3, 4, 5, 6, 7, 8, 10, 12, 14, 16, 18, 20, 22, 24, 28, 31}

// LadderLen is the number of rungs in the saturation retry ladder.
const LadderLen = len(quantLadder)

// NextQuant returns the smallest ladder quantizer strictly greater than q,
// or MaxQuant when q is already at or above the top rung.
func NextQuant(q int) int {
	for _, l := range quantLadder {
		if l > q {
			return l
		}
	}
	return MaxQuant
}

// ClampQuant clamps q to [MinQuant, MaxQuant].
func ClampQuant(q int) int {
	if q < MinQuant {
		return MinQuant
	}
	if q > MaxQuant {
		return MaxQuant
	}
	return q
}

// DCScaler returns the intra DC step size for quantizer q.
func DCScaler(q int, luma bool) int {
	switch {
	case q < 5:
		return 8
	case q < 25 && !luma:
		return (q + 13) >> 1
	case q < 9:
		return q << 1
	case q < 25:
		return q + 8
	case luma:
		return q<<1 - 16
	default:
		return q - 6
	}
}

// DivRound divides a by b rounding half away from zero. b must be > 0.
func DivRound(a, b int) int {
	if a > 0 {
		return (a + b>>1) / b
	}
	return (a - b>>1) / b
}

// quantIntra quantizes an intra block. The DC uses dcScaler with rounding,
// AC coefficients truncate |c|/(2q).
func quantIntra(coeff, data *[64]int16, quant, dcScaler int) {
	coeff[0] = int16(DivRound(int(data[0]), dcScaler))
	step := quant << 1
	for i := 1; i < 64; i++ {
		v := int(data[i])
		if v < 0 {
			coeff[i] = int16(-(-v / step))
		} else {
			coeff[i] = int16(v / step)
		}
	}
}

// quantInter quantizes an inter block with a q/2 dead zone and returns the
// sum of absolute levels.
func quantInter(coeff, data *[64]int16, quant int) int {
	step := quant << 1
	half := quant >> 1
	sum := 0
	for i := 0; i < 64; i++ {
		v := int(data[i])
		neg := v < 0
		if neg {
			v = -v
		}
		v -= half
		if v < step {
			coeff[i] = 0
			continue
		}
		v /= step
		sum += v
		if neg {
			v = -v
		}
		coeff[i] = int16(v)
	}
	return sum
}

// dequantAC reconstructs one non-intra-DC level.
func dequantAC(level, quant int) int {
	if level == 0 {
		return 0
	}
	add := quant
	if quant&1 == 0 {
		add = quant - 1
	}
	if level < 0 {
		return -(-level*(quant<<1) + add)
	}
	return level*(quant<<1) + add
}

func clampCoeff(v int) int16 {
	if v < coeffMin {
		return coeffMin
	}
	if v > coeffMax {
		return coeffMax
	}
	return int16(v)
}

// mismatchControl forces the sum of the block to be odd by toggling the
// least significant bit of the last coefficient.
func mismatchControl(data *[64]int16) {
	sum := 0
	for _, v := range data {
		sum += int(v)
	}
	if sum&1 == 0 {
		data[63] ^= 1
	}
}

func dequantIntra(data, coeff *[64]int16, quant, dcScaler int) {
	data[0] = clampCoeff(int(coeff[0]) * dcScaler)
	for i := 1; i < 64; i++ {
		data[i] = clampCoeff(dequantAC(int(coeff[i]), quant))
	}
	mismatchControl(data)
}

func dequantInter(data, coeff *[64]int16, quant int) {
	for i := 0; i < 64; i++ {
		data[i] = clampCoeff(dequantAC(int(coeff[i]), quant))
	}
	mismatchControl(data)
}

// Saturates reports whether dequantizing coeff would clip any coefficient.
// dcScaler is the intra DC step, or 0 for inter blocks.
func Saturates(coeff *[64]int16, quant, dcScaler int) bool {
	start := 0
	if dcScaler > 0 {
		dc := int(coeff[0]) * dcScaler
		if dc < coeffMin || dc > coeffMax {
			return true
		}
		start = 1
	}
	for i := start; i < 64; i++ {
		v := dequantAC(int(coeff[i]), quant)
		if v < coeffMin || v > coeffMax {
			return true
		}
	}
	return false
}
