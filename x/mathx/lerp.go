package mathx

// LerpI64 evaluates the line through (x1, y1) and (x2, y2) at x. It
// extrapolates outside [x1, x2]. x1 == x2 yields y1.
//
// The product is formed before the division so integer truncation happens
// once, at the end.
func LerpI64(x, x1, x2, y1, y2 int64) int64 {
	if x2 == x1 {
		return y1
	}
	return (y2-y1)*(x-x1)/(x2-x1) + y1
}
