// Package stagescript is the host runtime for programs generated from visual
// block graphs. A generated program receives a *SimulationContext from the
// host and uses it for frame-gated suspension, actor access, program
// variables and buffered drawing. The compiler itself lives in the catalog,
// graph and gen subpackages; see cmd/stagegen for the command-line entry
// point.
package stagescript
