// Package model owns the canonical metadata document and the machinery that
// lets independently-run harvesters write into it without clobbering each
// other.
//
// A Document is a nested tree of Values addressed by dotted Paths. Harvesters
// never touch the Document directly; each one records into its own Scope,
// which keeps the full write history (Trace) per address together with the
// identity (tag) of the producer. Closing a Scope checks that a harvester
// never contradicted itself and persists the traces to the harvest cache, so
// later stages can replay the scope without re-running the harvester.
//
// Document.MergeFrom reconciles a closed scope into the tree: addresses with a
// single distinct value are committed, cross-tag disagreements are recorded on
// the Document's conflict list and never overwrite a committed value. Nothing
// is dropped silently; every recorded entry either lands in the tree or shows
// up as a conflict.
package model
