package model

import (
	"errors"
	"testing"
)

func TestParsePath(t *testing.T) {
	path, err := ParsePath("codemeta.author.email")
	if err != nil {
		t.Fatal(err)
	}
	if got := path.Len(); got != 3 {
		t.Fatalf("expected 3 segments, got %d", got)
	}
	if got := path.String(); got != "codemeta.author.email" {
		t.Fatalf("round-trip mismatch: %q", got)
	}
}

func TestParsePathRejectsEmptySegments(t *testing.T) {
	for _, text := range []string{"", ".", "a..b", ".a", "a."} {
		_, err := ParsePath(text)
		if err == nil {
			t.Fatalf("expected error for %q", text)
		}
		var addrErr *AddressError
		if !errors.As(err, &addrErr) {
			t.Fatalf("expected AddressError for %q, got %T", text, err)
		}
	}
}

func TestPathChild(t *testing.T) {
	base := MustParsePath("codemeta")
	child, err := base.Child("author", "email")
	if err != nil {
		t.Fatal(err)
	}
	if got := child.String(); got != "codemeta.author.email" {
		t.Fatalf("child mismatch: %q", got)
	}
	// The base must be unaffected by deriving children.
	if got := base.String(); got != "codemeta" {
		t.Fatalf("base mutated: %q", got)
	}
	if _, err := base.Child(""); err == nil {
		t.Fatal("expected error for empty child segment")
	}
}

func TestPathHasPrefix(t *testing.T) {
	path := MustParsePath("codemeta.author.email")
	if !path.HasPrefix(MustParsePath("codemeta.author")) {
		t.Fatal("expected ancestor prefix to match")
	}
	if !path.HasPrefix(path) {
		t.Fatal("expected path to be its own prefix")
	}
	if path.HasPrefix(MustParsePath("codemeta.version")) {
		t.Fatal("unrelated path must not be a prefix")
	}
	if MustParsePath("codemeta").HasPrefix(path) {
		t.Fatal("descendant must not be a prefix of its ancestor")
	}
}

func TestPathEqual(t *testing.T) {
	if !MustParsePath("a.b").Equal(MustParsePath("a.b")) {
		t.Fatal("expected equal paths")
	}
	if MustParsePath("a.b").Equal(MustParsePath("a.b.c")) {
		t.Fatal("length mismatch must not be equal")
	}
}
