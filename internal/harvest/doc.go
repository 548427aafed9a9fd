// Package harvest contains the built-in metadata harvesters.
//
// Each harvester reads one source (the CITATION.cff file, the git history)
// and records CodeMeta-shaped values into its scope. Harvesters never write
// to the document; scope close and merge are the pipeline's job.
package harvest
