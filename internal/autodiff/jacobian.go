package autodiff

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Jacobian seeds x[i] as variable i, runs eval and writes the derivative
// array of output row i into df. len(x) must equal the width of D and df
// must be rows x len(x) where rows is the number of outputs.
func Jacobian[D Width](eval func(x, f []AutoDiff[D]), x []float64, df *mat.Dense) {
	n := Size[D]()
	if len(x) != n {
		panic(fmt.Sprintf("autodiff: %d inputs for derivative width %d", len(x), n))
	}
	rows, cols := df.Dims()
	if cols != n {
		panic(fmt.Sprintf("autodiff: jacobian has %d columns, want %d", cols, n))
	}

	xa := make([]AutoDiff[D], n)
	for i, v := range x {
		xa[i] = Variable[D](v, i)
	}
	fa := make([]AutoDiff[D], rows)
	eval(xa, fa)

	for i, fi := range fa {
		for j := 0; j < n; j++ {
			df.Set(i, j, fi.Deriv(j))
		}
	}
}
