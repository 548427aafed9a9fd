// Package process contains the per-harvester normalization steps that run
// between harvesting and the merge. A processor may rewrite the recorded
// entries of its harvester's scope, but it must not contradict them; the
// same-tag consistency rules still apply when the scope is merged.
package process
