// Package plugin defines the contracts between the pipeline and its metadata
// producers, and the static registry that wires them up.
//
// Harvesters write into a recording scope, processors massage a harvester's
// recorded entries before the merge, depositors publish the merged document,
// and postprocessors rewrite project files afterwards. The registry is
// populated explicitly at startup; nothing is discovered from the installed
// environment.
package plugin
