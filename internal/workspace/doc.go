// Package workspace owns the hidden per-project cache root. It hands out
// deterministic file locations for stage artifacts, the shared log file, and
// the run journal, and guards the root with an invocation lock so two hermes
// runs cannot interleave writes.
package workspace
