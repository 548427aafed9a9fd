package model

import (
	"fmt"
	"os"
	"sort"
)

// Workspace is the cache layout the document delegates artifact lookups to.
// The concrete implementation lives in internal/workspace.
type Workspace interface {
	// CachePath maps (stage, name) to a deterministic file path. When create
	// is true the enclosing directory is created first.
	CachePath(stage, name string, create bool) (string, error)
	// Resolve returns the path for an existing artifact or a CacheMissError.
	Resolve(stage, name string) (string, error)
	// Purge removes the entire cache root. Removing an absent root is not an
	// error.
	Purge() error
}

// TagInfo records the provenance of a committed value: which harvester wrote
// it and any detail the harvester attached (source file, timestamp).
type TagInfo struct {
	Tag  string            `json:"tag"`
	Meta map[string]string `json:"meta,omitempty"`
}

// Conflict is one unresolved cross-harvester disagreement. The committed
// value stays in the document; the rejected value is kept here so the operator
// report can show both sides.
type Conflict struct {
	Path     string `json:"path"`
	Tag      string `json:"tag"`
	Value    Value  `json:"-"`
	Rejected string `json:"rejected"`
	Kept     string `json:"kept"`
}

func (c Conflict) Message() string {
	return fmt.Sprintf("%s: %q offered %s, kept %s", c.Path, c.Tag, c.Rejected, c.Kept)
}

// Document is the canonical merged metadata tree for one pipeline run.
type Document struct {
	ws        Workspace
	data      Map
	tags      map[string]TagInfo
	conflicts []Conflict
	dirty     bool
}

// NewDocument creates an empty document bound to the given cache workspace.
func NewDocument(ws Workspace) *Document {
	return &Document{
		ws:   ws,
		data: Map{},
		tags: map[string]TagInfo{},
	}
}

// Get resolves the value at path. Every segment along the way must exist.
func (d *Document) Get(path Path) (Value, error) {
	node := Value(d.data)
	for _, segment := range path.Segments() {
		mapping, ok := node.(Map)
		if !ok {
			return nil, &KeyNotFoundError{Path: path}
		}
		child, present := mapping[segment]
		if !present {
			return nil, &KeyNotFoundError{Path: path}
		}
		node = child
	}
	return node, nil
}

// Set writes value at path, creating missing intermediate nodes and
// overwriting whatever leaf was there. Intermediate scalars are replaced by
// mappings; the tree only grows or overwrites during a run.
func (d *Document) Set(path Path, value Value) {
	segments := path.Segments()
	if len(segments) == 0 {
		if mapping, ok := value.(Map); ok {
			d.data = mapping
			d.dirty = true
		}
		return
	}

	node := d.data
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(Map)
		if !ok {
			child = Map{}
			node[segment] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
	d.dirty = true
}

// Keys lists the addresses with committed provenance, sorted.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.tags))
	for key := range d.tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CommittedTag returns the provenance for a committed address.
func (d *Document) CommittedTag(path Path) (TagInfo, bool) {
	info, ok := d.tags[path.String()]
	return info, ok
}

// Data returns the document root. Callers must not mutate it outside Set.
func (d *Document) Data() Map {
	return d.data
}

// Dirty reports whether any Set happened since creation or the last save.
func (d *Document) Dirty() bool {
	return d.dirty
}

// Conflicts returns the unresolved merge conflicts recorded so far.
func (d *Document) Conflicts() []Conflict {
	out := make([]Conflict, len(d.conflicts))
	copy(out, d.conflicts)
	return out
}

// addConflict appends a conflict unless an identical one is already recorded.
func (d *Document) addConflict(c Conflict) {
	for _, existing := range d.conflicts {
		if existing.Path == c.Path && existing.Tag == c.Tag && Equal(existing.Value, c.Value) {
			return
		}
	}
	d.conflicts = append(d.conflicts, c)
}

// CachePath delegates to the bound workspace.
func (d *Document) CachePath(stage, name string, create bool) (string, error) {
	return d.ws.CachePath(stage, name, create)
}

// Purge removes the whole cache root.
func (d *Document) Purge() error {
	return d.ws.Purge()
}

// SaveDocument writes the merged tree as indented JSON to filename.
func (d *Document) SaveDocument(filename string) error {
	data, err := marshalIndented(d.data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	d.dirty = false
	return nil
}

// SaveTags persists the provenance map to the process/tags cache artifact.
func (d *Document) SaveTags() error {
	path, err := d.ws.CachePath("process", "tags", true)
	if err != nil {
		return err
	}
	payload := Map{}
	for key, info := range d.tags {
		entry := Map{"tag": String(info.Tag)}
		for metaKey, metaValue := range info.Meta {
			entry[metaKey] = String(metaValue)
		}
		payload[key] = entry
	}
	data, err := marshalIndented(payload)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}
	return nil
}

// LoadDocument reads a previously saved merged tree from filename.
func LoadDocument(ws Workspace, filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	value, err := UnmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	mapping, ok := value.(Map)
	if !ok {
		return nil, fmt.Errorf("document root must be a mapping, got %T", value)
	}
	doc := NewDocument(ws)
	doc.data = mapping
	return doc, nil
}
