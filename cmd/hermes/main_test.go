package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Aidajafarbigloo/hermes/internal/config"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	want := []string{"harvest", "process", "curate", "deposit", "postprocess", "clean", "config"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
}

func TestConfigInitCommand(t *testing.T) {
	dir := t.TempDir()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"config", "init", "--path", dir})

	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, config.DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, _, _, err := config.Load(dir, ""); err != nil {
		t.Fatalf("written sample does not load: %v", err)
	}

	// A second init must refuse to clobber the file.
	retry := newRootCommand()
	retry.SetOut(&out)
	retry.SetErr(&out)
	retry.SetArgs([]string{"config", "init", "--path", dir})
	if err := retry.Execute(); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestConfigShowCommand(t *testing.T) {
	dir := t.TempDir()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"config", "show", "--path", dir})

	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[harvest]") {
		t.Fatalf("expected TOML sections in output, got:\n%s", out.String())
	}
}

func TestRenderTable(t *testing.T) {
	rendered := renderTable(
		[]string{"Address", "Source"},
		[][]string{{"codemeta.name", "cff"}},
		[]columnAlignment{alignLeft, alignLeft},
	)
	if !strings.Contains(rendered, "codemeta.name") || !strings.Contains(rendered, "cff") {
		t.Fatalf("table content missing:\n%s", rendered)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("empty header must render nothing")
	}
}

func TestCurateWithoutProcess(t *testing.T) {
	dir := t.TempDir()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"curate", "--path", dir})

	if err := root.Execute(); err == nil {
		t.Fatal("expected cache miss before the process stage ran")
	}
}
