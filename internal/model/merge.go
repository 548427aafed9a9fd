package model

// MergeFrom reconciles a closed scope into the document.
//
// For every recorded address the scope's entries are reduced to their distinct
// values. A single distinct value is committed unless the document already
// holds a different committed value for that address; in that case the first
// committed value wins and the newcomer is recorded as a conflict. When the
// scope itself carries several distinct values across tags, none of them can
// override a committed value and each divergent value is recorded.
//
// Merging an already-merged, unmodified scope again changes no committed
// value, and conflicts are deduplicated by (address, tag, value), so the
// operation is idempotent.
func (d *Document) MergeFrom(scope *Scope) {
	for _, key := range scope.Addresses() {
		entries := scope.Trace(key)
		if len(entries) == 0 {
			continue
		}

		path, err := ParsePath(key)
		if err != nil {
			// Addresses in a scope were parsed once already; a failure here
			// means the cache artifact was edited by hand. Record it rather
			// than drop the entry.
			d.addConflict(Conflict{
				Path:     key,
				Tag:      scope.Tag(),
				Value:    entries[0].Value,
				Rejected: Render(entries[0].Value),
				Kept:     err.Error(),
			})
			continue
		}

		distinct := distinctEntries(entries)
		if len(distinct) > 1 {
			committed := d.committedRendering(path)
			existing, getErr := d.Get(path)
			for _, entry := range distinct {
				if getErr == nil && Equal(existing, entry.Value) {
					continue
				}
				d.addConflict(Conflict{
					Path:     key,
					Tag:      entry.Tag,
					Value:    entry.Value,
					Rejected: Render(entry.Value),
					Kept:     committed,
				})
			}
			continue
		}

		entry := distinct[0]
		current, ok := d.tags[key]
		if !ok {
			d.Set(path, Clone(entry.Value))
			d.tags[key] = TagInfo{Tag: entry.Tag, Meta: entry.Meta}
			continue
		}

		existing, err := d.Get(path)
		if err == nil && Equal(existing, entry.Value) {
			continue
		}
		d.addConflict(Conflict{
			Path:     key,
			Tag:      entry.Tag,
			Value:    entry.Value,
			Rejected: Render(entry.Value),
			Kept:     renderCommitted(existing, current.Tag),
		})
	}
}

// distinctEntries collapses a trace to its distinct values, keeping the first
// entry that introduced each value.
func distinctEntries(entries []Entry) []Entry {
	out := make([]Entry, 0, 1)
	for _, entry := range entries {
		found := false
		for _, kept := range out {
			if Equal(kept.Value, entry.Value) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, entry)
		}
	}
	return out
}

func (d *Document) committedRendering(path Path) string {
	existing, err := d.Get(path)
	if err != nil {
		return "nothing committed"
	}
	info, ok := d.tags[path.String()]
	if !ok {
		return Render(existing)
	}
	return renderCommitted(existing, info.Tag)
}

func renderCommitted(value Value, tag string) string {
	if value == nil {
		return "nothing committed"
	}
	return Render(value) + " from " + tag
}
