package autodiff

// Legendre returns P_0(x) .. P_n(x) using Bonnet's recurrence
//
//	k P_k = (2k-1) x P_{k-1} - (k-1) P_{k-2}
//
// With x an AutoDiff variable the result also carries P_k'(x).
func Legendre[T Scalar[T]](n int, x T) []T {
	if n < 0 {
		return nil
	}
	p := make([]T, n+1)
	p[0] = x.Lift(1)
	if n == 0 {
		return p
	}
	p[1] = x
	for k := 2; k <= n; k++ {
		a := x.Mul(p[k-1]).MulConst(float64(2*k - 1))
		b := p[k-2].MulConst(float64(k - 1))
		p[k] = a.Sub(b).MulConst(1 / float64(k))
	}
	return p
}
