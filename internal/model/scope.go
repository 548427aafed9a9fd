package model

import (
	"fmt"
	"os"
	"time"
)

const harvestStage = "harvest"

// Entry is one recorded write: the value, the identity of the harvester that
// produced it, and free-form detail about the origin (source file, branch).
type Entry struct {
	Value Value
	Tag   string
	Meta  map[string]string
}

// Scope is the per-harvester recording layer in front of the Document. All
// writes are buffered with full history; nothing reaches the Document until
// the scope is closed cleanly and merged.
type Scope struct {
	tag    string
	order  []string
	traces map[string][]Entry
	closed bool
	now    func() time.Time
}

// NewScope creates a recording scope bound to the given harvester tag.
func NewScope(tag string) *Scope {
	return &Scope{
		tag:    tag,
		traces: map[string][]Entry{},
		now:    time.Now,
	}
}

// Tag returns the harvester identity this scope records for.
func (s *Scope) Tag() string {
	return s.tag
}

// Update appends (value, tag) to the trace for path. Repeated writes to the
// same address are legal and kept in order.
func (s *Scope) Update(path Path, value Value) {
	s.UpdateDetailed(path, value, nil)
}

// UpdateDetailed records a write with origin detail. When an earlier entry
// carries the same tag and the same non-empty detail, its value is replaced
// in place so a re-run of the same harvester against the same source
// overrides its own previous answer rather than contradicting it. Writes
// without detail always append, so divergent values stay visible to the
// consistency check at close.
func (s *Scope) UpdateDetailed(path Path, value Value, detail map[string]string) {
	key := path.String()
	meta := map[string]string{"ts": s.now().UTC().Format(time.RFC3339)}
	for k, v := range detail {
		meta[k] = v
	}

	entries, known := s.traces[key]
	if !known {
		s.order = append(s.order, key)
	}
	if len(detail) > 0 {
		for i, entry := range entries {
			if entry.Tag == s.tag && metaEqual(entry.Meta, meta) {
				entries[i].Value = value
				entries[i].Meta["ts"] = meta["ts"]
				return
			}
		}
	}
	s.traces[key] = append(entries, Entry{Value: value, Tag: s.tag, Meta: meta})
}

// UpdateFrom bulk-records a mapping. Nested mappings expand into child
// addresses; sequences and scalars are recorded as leaf values.
func (s *Scope) UpdateFrom(data Map, detail map[string]string) error {
	for _, key := range data.SortedKeys() {
		path, err := ParsePath(key)
		if err != nil {
			return err
		}
		if err := s.updateValue(path, data[key], detail); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scope) updateValue(path Path, value Value, detail map[string]string) error {
	mapping, ok := value.(Map)
	if !ok {
		s.UpdateDetailed(path, value, detail)
		return nil
	}
	for _, key := range mapping.SortedKeys() {
		child, err := path.Child(key)
		if err != nil {
			return err
		}
		if err := s.updateValue(child, mapping[key], detail); err != nil {
			return err
		}
	}
	return nil
}

// Addresses returns the recorded addresses in first-write order.
func (s *Scope) Addresses() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Trace returns the ordered entry history for one address, oldest first.
func (s *Scope) Trace(address string) []Entry {
	entries := s.traces[address]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Validate runs the same-tag consistency check: every pair of entries sharing
// this scope's tag for one address must be value-equal. The first violation is
// returned as a hard MergeError; the caller decides whether the stage goes on.
func (s *Scope) Validate() error {
	for _, key := range s.order {
		var first Value
		seen := false
		for _, entry := range s.traces[key] {
			if entry.Tag != s.tag {
				continue
			}
			if !seen {
				first = entry.Value
				seen = true
				continue
			}
			if !Equal(first, entry.Value) {
				path, err := ParsePath(key)
				if err != nil {
					path = Path{}
				}
				return &MergeError{Path: path, Tag: s.tag, Actual: entry.Value}
			}
		}
	}
	return nil
}

// Close validates the scope and, on a clean close, persists the recorded
// traces to the harvest cache so a later stage can reload the scope without
// re-running the harvester.
func (s *Scope) Close(ws Workspace) error {
	if s.closed {
		return nil
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := s.StoreCache(ws); err != nil {
		return err
	}
	s.closed = true
	return nil
}

// StoreCache serializes the trace set to .hermes/harvest/<tag>.json as a
// mapping from dotted address to an ordered list of [value, tag] pairs.
func (s *Scope) StoreCache(ws Workspace) error {
	path, err := ws.CachePath(harvestStage, s.tag, true)
	if err != nil {
		return err
	}

	payload := Map{}
	for key, entries := range s.traces {
		list := make(List, 0, len(entries))
		for _, entry := range entries {
			tagMap := Map{"tag": String(entry.Tag)}
			for metaKey, metaValue := range entry.Meta {
				tagMap[metaKey] = String(metaValue)
			}
			list = append(list, List{entry.Value, tagMap})
		}
		payload[key] = list
	}

	data, err := marshalIndented(payload)
	if err != nil {
		return fmt.Errorf("encode harvest cache for %q: %w", s.tag, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write harvest cache for %q: %w", s.tag, err)
	}
	return nil
}

// LoadScope reconstructs a scope from the harvest cache written by Close.
// Returns a CacheMissError when the harvester never ran.
func LoadScope(ws Workspace, tag string) (*Scope, error) {
	path, err := ws.Resolve(harvestStage, tag)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read harvest cache for %q: %w", tag, err)
	}
	value, err := UnmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode harvest cache for %q: %w", tag, err)
	}
	payload, ok := value.(Map)
	if !ok {
		return nil, fmt.Errorf("harvest cache for %q: root must be a mapping", tag)
	}

	scope := NewScope(tag)
	for _, key := range payload.SortedKeys() {
		entries, ok := payload[key].(List)
		if !ok {
			return nil, fmt.Errorf("harvest cache for %q: %s must hold a list", tag, key)
		}
		for _, raw := range entries {
			pair, ok := raw.(List)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("harvest cache for %q: %s holds a malformed entry", tag, key)
			}
			entry := Entry{Value: pair[0], Meta: map[string]string{}}
			tagMap, ok := pair[1].(Map)
			if !ok {
				return nil, fmt.Errorf("harvest cache for %q: %s holds a malformed tag", tag, key)
			}
			for metaKey, metaValue := range tagMap {
				text, ok := metaValue.(String)
				if !ok {
					continue
				}
				if metaKey == "tag" {
					entry.Tag = string(text)
					continue
				}
				entry.Meta[metaKey] = string(text)
			}
			if entry.Tag == "" {
				entry.Tag = tag
			}
			if _, known := scope.traces[key]; !known {
				scope.order = append(scope.order, key)
			}
			scope.traces[key] = append(scope.traces[key], entry)
		}
	}
	return scope, nil
}

// Rewrite lets a processor replace the recorded trace for one address before
// the merge. Returning an empty slice removes the address.
func (s *Scope) Rewrite(path Path, fn func([]Entry) []Entry) {
	key := path.String()
	entries, known := s.traces[key]
	rewritten := fn(entries)
	if len(rewritten) == 0 {
		if known {
			delete(s.traces, key)
			for i, existing := range s.order {
				if existing == key {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
		return
	}
	if !known {
		s.order = append(s.order, key)
	}
	s.traces[key] = rewritten
}

// Finish drops the recorded data so later processors skip this scope.
func (s *Scope) Finish() {
	s.order = nil
	s.traces = map[string][]Entry{}
}

func metaEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		if key == "ts" {
			continue
		}
		if b[key] != value {
			return false
		}
	}
	for key := range b {
		if key == "ts" {
			continue
		}
		if _, ok := a[key]; !ok {
			return false
		}
	}
	return true
}
