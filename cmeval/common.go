/*
	Package cmeval provides types, constants and functions that have no other
	dependencies and can be used by all packages within cellmap-eval.
*/
package cmeval

// Version of the cellmap-eval tools.
const Version = "0.1.0"

const (
	Kilo = 1 << 10
	Mega = 1 << 20
	Giga = 1 << 30
)

// NumCPU is the number of logical CPUs available for parallel work like
// chunk encoding and per-volume scoring.  Set from runtime.NumCPU() by
// executables unless overridden.
var NumCPU = 1
