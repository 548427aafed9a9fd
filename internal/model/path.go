package model

import "strings"

// Path is an immutable dotted address into the metadata document, e.g.
// "codemeta.author.email". Segments are fixed after parsing.
type Path struct {
	segments []string
}

// ParsePath splits text on dots and validates every segment is non-empty.
func ParsePath(text string) (Path, error) {
	if text == "" {
		return Path{}, &AddressError{Text: text, Reason: "empty address"}
	}
	segments := strings.Split(text, ".")
	for _, segment := range segments {
		if segment == "" {
			return Path{}, &AddressError{Text: text, Reason: "empty segment"}
		}
	}
	return Path{segments: segments}, nil
}

// MustParsePath is ParsePath for compile-time constant addresses.
func MustParsePath(text string) Path {
	path, err := ParsePath(text)
	if err != nil {
		panic(err)
	}
	return path
}

// Segments returns a copy of the segment sequence.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len reports the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// IsZero reports whether the path has no segments.
func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// Child derives a new path by appending the given segments. The receiver is
// unchanged. Empty segments are rejected the same way ParsePath rejects them.
func (p Path) Child(segments ...string) (Path, error) {
	for _, segment := range segments {
		if segment == "" {
			return Path{}, &AddressError{Text: p.String(), Reason: "empty child segment"}
		}
	}
	combined := make([]string, 0, len(p.segments)+len(segments))
	combined = append(combined, p.segments...)
	combined = append(combined, segments...)
	return Path{segments: combined}, nil
}

// HasPrefix reports whether other is the same path or an ancestor of p.
func (p Path) HasPrefix(other Path) bool {
	if len(other.segments) > len(p.segments) {
		return false
	}
	for i, segment := range other.segments {
		if p.segments[i] != segment {
			return false
		}
	}
	return true
}

// Equal compares segment sequences.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, segment := range p.segments {
		if other.segments[i] != segment {
			return false
		}
	}
	return true
}

// String renders the dotted form; ParsePath(p.String()) round-trips.
func (p Path) String() string {
	return strings.Join(p.segments, ".")
}
