package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, path, exists, err := Load(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("no file was written, exists must be false")
	}
	if path != filepath.Join(dir, DefaultFileName) {
		t.Fatalf("unexpected resolved path: %s", path)
	}
	if cfg.Deposit.Target != "file" {
		t.Fatalf("unexpected default target: %q", cfg.Deposit.Target)
	}
	if len(cfg.Harvest.Sources) != 2 || cfg.Harvest.Sources[0] != "cff" || cfg.Harvest.Sources[1] != "git" {
		t.Fatalf("unexpected default sources: %v", cfg.Harvest.Sources)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
[harvest]
sources = ["cff"]

[deposit]
target = "invenio"

[deposit.invenio]
site_url = "https://sandbox.zenodo.org"
communities = ["software"]

[logging]
format = "json"
level = "debug"
`
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected the file to be reported as existing")
	}
	if cfg.Deposit.Target != "invenio" {
		t.Fatalf("target not applied: %q", cfg.Deposit.Target)
	}
	if cfg.Deposit.Invenio.SiteURL != "https://sandbox.zenodo.org" {
		t.Fatalf("site url not applied: %q", cfg.Deposit.Invenio.SiteURL)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not applied: %+v", cfg.Logging)
	}
	// Unset keys keep their defaults.
	if cfg.Harvest.Git.Executable != "git" {
		t.Fatalf("default executable lost: %q", cfg.Harvest.Git.Executable)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "alt.toml")
	if err := os.WriteFile(explicit, []byte("[deposit]\ntarget = \"invenio\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, _, err := Load(dir, explicit)
	if err != nil {
		t.Fatal(err)
	}
	if path != explicit {
		t.Fatalf("explicit path ignored: %s", path)
	}
	if cfg.Deposit.Target != "invenio" {
		t.Fatalf("explicit config not applied: %q", cfg.Deposit.Target)
	}
}

func TestAuthTokenComesFromEnvironmentOnly(t *testing.T) {
	dir := t.TempDir()
	content := "[deposit.invenio]\nauth_token = \"from-file\"\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HERMES_AUTH_TOKEN", "")
	cfg, _, _, err := Load(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Deposit.Invenio.AuthToken != "" {
		t.Fatal("auth token must never load from the file")
	}

	t.Setenv("HERMES_AUTH_TOKEN", "secret")
	cfg, _, _, err = Load(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Deposit.Invenio.AuthToken != "secret" {
		t.Fatalf("env token not applied: %q", cfg.Deposit.Invenio.AuthToken)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"unknown target":   "[deposit]\ntarget = \"ftp\"\n",
		"empty sources":    "[harvest]\nsources = []\n",
		"duplicate source": "[harvest]\nsources = [\"cff\", \"cff\"]\n",
		"bad log format":   "[logging]\nformat = \"xml\"\n",
	}
	for name, content := range cases {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, _, _, err := Load(dir, ""); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestWriteSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	if err := WriteSample(path); err != nil {
		t.Fatal(err)
	}

	// The sample must parse and validate as-is.
	if _, _, _, err := Load(dir, path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}

	if err := WriteSample(path); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
}
