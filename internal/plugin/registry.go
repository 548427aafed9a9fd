package plugin

import (
	"fmt"
	"sort"
)

// Registry is the static capability table replacing runtime plugin discovery:
// every harvester, processor, depositor, and postprocessor is registered by
// name at startup, so what a run can do is decided by configuration, not by
// what happens to be installed.
type Registry struct {
	harvesters     map[string]Harvester
	processors     map[string]Processor
	depositors     map[string]Depositor
	postprocessors map[string]Postprocessor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		harvesters:     map[string]Harvester{},
		processors:     map[string]Processor{},
		depositors:     map[string]Depositor{},
		postprocessors: map[string]Postprocessor{},
	}
}

// AddHarvester registers a harvester under its name.
func (r *Registry) AddHarvester(h Harvester) {
	r.harvesters[h.Name()] = h
}

// AddProcessor registers a processor for the harvester of the same name.
func (r *Registry) AddProcessor(p Processor) {
	r.processors[p.Name()] = p
}

// AddDepositor registers a deposition target.
func (r *Registry) AddDepositor(d Depositor) {
	r.depositors[d.Name()] = d
}

// AddPostprocessor registers a post-deposition rewrite step.
func (r *Registry) AddPostprocessor(p Postprocessor) {
	r.postprocessors[p.Name()] = p
}

// Harvester resolves a harvester by name.
func (r *Registry) Harvester(name string) (Harvester, error) {
	h, ok := r.harvesters[name]
	if !ok {
		return nil, fmt.Errorf("unknown harvester %q (known: %v)", name, keys(r.harvesters))
	}
	return h, nil
}

// Processor resolves the processor paired with a harvester name, if any.
func (r *Registry) Processor(name string) (Processor, bool) {
	p, ok := r.processors[name]
	return p, ok
}

// Depositor resolves a deposition target by name.
func (r *Registry) Depositor(name string) (Depositor, error) {
	d, ok := r.depositors[name]
	if !ok {
		return nil, fmt.Errorf("unknown deposit target %q (known: %v)", name, keys(r.depositors))
	}
	return d, nil
}

// Postprocessor resolves a rewrite step by name.
func (r *Registry) Postprocessor(name string) (Postprocessor, error) {
	p, ok := r.postprocessors[name]
	if !ok {
		return nil, fmt.Errorf("unknown postprocess step %q (known: %v)", name, keys(r.postprocessors))
	}
	return p, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
