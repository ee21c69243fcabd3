package constants

import "strings"

// Framework names the simulation tool that produced a trace.
type Framework string

const (
	// FrameworkGROMACS covers GROMACS energy traces.
	FrameworkGROMACS Framework = "gromacs"

	// FrameworkOpenMM covers OpenMM energy traces.
	FrameworkOpenMM Framework = "openmm"

	// FrameworkVASP covers VASP electronic (SCF) and ionic traces.
	FrameworkVASP Framework = "vasp"
)

// Frameworks lists every recognized framework.
var Frameworks = []Framework{FrameworkGROMACS, FrameworkOpenMM, FrameworkVASP}

// ParseFramework normalizes a framework name. Matching is case-insensitive;
// unrecognized names are returned lowercased and report false.
func ParseFramework(name string) (Framework, bool) {
	f := Framework(strings.ToLower(strings.TrimSpace(name)))
	return f, f.Valid()
}

// Valid returns true if the framework is a recognized value.
func (f Framework) Valid() bool {
	switch f {
	case FrameworkGROMACS, FrameworkOpenMM, FrameworkVASP:
		return true
	}
	return false
}

// EnergySeries reports whether the framework's convergence is judged from
// derived energy-series metrics.
func (f Framework) EnergySeries() bool {
	return f == FrameworkGROMACS || f == FrameworkOpenMM
}

// String returns the string representation of the framework.
func (f Framework) String() string {
	return string(f)
}
