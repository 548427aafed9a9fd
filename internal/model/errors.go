package model

import "fmt"

// AddressError reports a malformed dotted address.
type AddressError struct {
	Text   string
	Reason string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address %q: %s", e.Text, e.Reason)
}

// KeyNotFoundError reports a read of an address with no committed value.
type KeyNotFoundError struct {
	Path Path
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("no value at %s", e.Path)
}

// MergeError reports divergent writes for one address. Raised hard when a
// single harvester contradicts itself within its own scope; the cross-tag
// variant is recorded on the Document conflict list instead of raised.
type MergeError struct {
	Path     Path
	Tag      string
	Expected Value
	Actual   Value
}

func (e *MergeError) Error() string {
	if e.Expected == nil {
		return fmt.Sprintf("divergent values for %s recorded by %q: %s", e.Path, e.Tag, Render(e.Actual))
	}
	return fmt.Sprintf("conflicting values for %s: %q offered %s over committed %s",
		e.Path, e.Tag, Render(e.Actual), Render(e.Expected))
}

// CacheMissError reports an absent cache artifact that a resumed stage
// expected to find.
type CacheMissError struct {
	Stage string
	Name  string
	Path  string
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("missing cache artifact %s/%s (%s)", e.Stage, e.Name, e.Path)
}
