package mathx

// FullScale returns 2^bits - 1, the largest code of an unsigned converter.
func FullScale(bits uint8) uint64 {
	return (uint64(1) << bits) - 1
}

// Quantise maps a physical value onto a linear register code:
//
//	value = code*step + offset
//
// rounded to nearest and clamped to [lo, hi].
func Quantise(value, step, offset, lo, hi int64) uint16 {
	if step <= 0 {
		return uint16(Clamp(0, lo, hi))
	}
	num := value - offset
	if num < 0 {
		num = 0
	}
	code := (num + step/2) / step
	return uint16(Clamp(code, lo, hi))
}
