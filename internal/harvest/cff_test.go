package harvest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Aidajafarbigloo/hermes/internal/config"
	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
)

const sampleCFF = `cff-version: 1.2.0
message: "If you use this software, please cite it as below."
title: hermes
version: "1.0.0"
abstract: Automated software publishing.
license: Apache-2.0
repository: https://github.com/example/hermes
date-released: 2024-03-01
keywords:
  - metadata
  - publishing
authors:
  - given-names: Ada
    family-names: Lovelace
    email: ada@example.org
    orcid: https://orcid.org/0000-0001-2345-6789
identifiers:
  - type: doi
    value: 10.5281/zenodo.1234567
`

func testInvocation(t *testing.T, dir string) *plugin.Invocation {
	t.Helper()
	cfg := config.Default()
	return &plugin.Invocation{
		ProjectDir: dir,
		Config:     &cfg,
		Logger:     logging.NewNop(),
	}
}

func writeCFF(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, CFFFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCFFHarvest(t *testing.T) {
	dir := t.TempDir()
	cffPath := writeCFF(t, dir, sampleCFF)

	scope := model.NewScope("cff")
	if err := NewCFFHarvester().Harvest(context.Background(), testInvocation(t, dir), scope); err != nil {
		t.Fatal(err)
	}

	trace := scope.Trace("name")
	if len(trace) != 1 || !model.Equal(trace[0].Value, model.String("hermes")) {
		t.Fatalf("name not recorded: %v", trace)
	}
	if trace[0].Meta["local_path"] != cffPath {
		t.Fatalf("provenance detail missing: %v", trace[0].Meta)
	}

	checks := map[string]model.Value{
		"version":        model.String("1.0.0"),
		"description":    model.String("Automated software publishing."),
		"codeRepository": model.String("https://github.com/example/hermes"),
		"datePublished":  model.String("2024-03-01"),
		"license":        model.String("https://spdx.org/licenses/Apache-2.0"),
		"identifier":     model.String("10.5281/zenodo.1234567"),
		"keywords":       model.List{model.String("metadata"), model.String("publishing")},
	}
	for address, want := range checks {
		trace := scope.Trace(address)
		if len(trace) != 1 {
			t.Fatalf("%s not recorded", address)
		}
		if !model.Equal(trace[0].Value, want) {
			t.Fatalf("%s mismatch: got %s, want %s", address, model.Render(trace[0].Value), model.Render(want))
		}
	}

	authors := scope.Trace("author")
	if len(authors) != 1 {
		t.Fatal("author list not recorded")
	}
	list, ok := authors[0].Value.(model.List)
	if !ok || len(list) != 1 {
		t.Fatalf("author list malformed: %s", model.Render(authors[0].Value))
	}
	person := list[0].(model.Map)
	if !model.Equal(person["givenName"], model.String("Ada")) ||
		!model.Equal(person["familyName"], model.String("Lovelace")) ||
		!model.Equal(person["@id"], model.String("https://orcid.org/0000-0001-2345-6789")) {
		t.Fatalf("author malformed: %s", model.Render(person))
	}
}

func TestCFFHarvestValidation(t *testing.T) {
	dir := t.TempDir()
	writeCFF(t, dir, "title: incomplete\n")

	err := NewCFFHarvester().Harvest(context.Background(), testInvocation(t, dir), model.NewScope("cff"))
	if !errors.Is(err, plugin.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCFFHarvestValidationDisabled(t *testing.T) {
	dir := t.TempDir()
	writeCFF(t, dir, "title: incomplete\n")

	inv := testInvocation(t, dir)
	inv.Config.Harvest.CFF.EnableValidation = false

	scope := model.NewScope("cff")
	if err := NewCFFHarvester().Harvest(context.Background(), inv, scope); err != nil {
		t.Fatalf("disabled validation must accept the file: %v", err)
	}
	if len(scope.Trace("name")) != 1 {
		t.Fatal("title not recorded")
	}
}

func TestFindSingleCFF(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindSingleCFF(dir); !errors.Is(err, plugin.ErrValidation) {
		t.Fatalf("expected error without a citation file, got %v", err)
	}

	nested := filepath.Join(dir, "docs")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := writeCFF(t, nested, sampleCFF)
	got, err := FindSingleCFF(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	// A second match is ambiguous.
	writeCFF(t, dir, sampleCFF)
	if _, err := FindSingleCFF(dir); !errors.Is(err, plugin.ErrValidation) {
		t.Fatalf("expected error for two citation files, got %v", err)
	}
}

func TestFindSingleCFFSkipsHiddenRoots(t *testing.T) {
	dir := t.TempDir()
	want := writeCFF(t, dir, sampleCFF)
	for _, hidden := range []string{".git", ".hermes"} {
		sub := filepath.Join(dir, hidden)
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatal(err)
		}
		writeCFF(t, sub, sampleCFF)
	}

	got, err := FindSingleCFF(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
