// Package spin runs the fixed-count empty loop that looptime measures.
package spin

// Iterations is the number of empty loop iterations in one run.
const Iterations = 1_000_000

// Run executes n iterations of an empty loop body.
func Run(n int) {
	for i := 0; i < n; i++ {
	}
}
