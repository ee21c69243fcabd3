// Package convergence derives convergence summaries from numeric series in a
// layered event log and maps convergence points to canonical verdicts that do
// not depend on which simulation tool produced them.
package convergence

import (
	"fmt"
	"math"

	"github.com/nvandessel/trace-semantics/internal/constants"
)

// Params holds the tunable derivation parameters. The defaults are
// empirical; different simulation domains may need other values.
type Params struct {
	// Window is the number of most recent samples a summary is derived from.
	Window int

	// RelDeltaThreshold separates converged from stalled windows and is the
	// minimum mean relative delta of an oscillating window.
	RelDeltaThreshold float64
}

// DefaultParams returns the default derivation parameters.
func DefaultParams() Params {
	return Params{
		Window:            constants.DefaultConvergenceWindow,
		RelDeltaThreshold: constants.DefaultRelDeltaThreshold,
	}
}

// Validate checks that the parameters can classify a window.
func (p Params) Validate() error {
	if p.Window < constants.MinConvergenceWindow {
		return fmt.Errorf("convergence window must be at least %d, got %d", constants.MinConvergenceWindow, p.Window)
	}
	if !(p.RelDeltaThreshold > 0) || math.IsInf(p.RelDeltaThreshold, 0) {
		return fmt.Errorf("relative delta threshold must be a positive finite number, got %v", p.RelDeltaThreshold)
	}
	return nil
}
