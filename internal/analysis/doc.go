// Package analysis measures how steppers behave on a model.
//
//   - [ConvergenceStudy]: final-time error over a ladder of step counts
//   - [EstimateOrder]: empirical order from two errors
//   - [NewPhasePortrait]: 2D phase-space view of a recorded trajectory
//
// # Convergence Order
//
// Halving the step of a method of order p divides its error by 2^p:
//
//	study, err := analysis.ConvergenceStudy(ctx, rhs, factory, x0, tend, []int{50, 100, 200})
//	for _, p := range study.Orders {
//	    fmt.Printf("%.2f\n", p) // ~1 for Euler, ~2 for Crank-Nicolson
//	}
package analysis
