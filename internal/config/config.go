package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// DefaultFileName is the configuration file hermes looks for in the project
// directory.
const DefaultFileName = "hermes.toml"

// Harvest selects and tunes the metadata harvesters.
type Harvest struct {
	// Sources lists the harvester names to run, in order.
	Sources []string `toml:"sources"`
	CFF     CFF      `toml:"cff"`
	Git     Git      `toml:"git"`
}

// CFF contains settings for the CITATION.cff harvester.
type CFF struct {
	// EnableValidation rejects CITATION.cff files missing required keys.
	EnableValidation bool `toml:"enable_validation"`
}

// Git contains settings for the git history harvester.
type Git struct {
	// Executable overrides the git binary to invoke.
	Executable string `toml:"executable"`
}

// InvenioTarget configures deposition into an Invenio instance.
type InvenioTarget struct {
	SiteURL          string   `toml:"site_url"`
	Communities      []string `toml:"communities"`
	AccessRight      string   `toml:"access_right"`
	EmbargoDate      string   `toml:"embargo_date"`
	AccessConditions string   `toml:"access_conditions"`
	RecordID         string   `toml:"record_id"`
	DOI              string   `toml:"doi"`
	// AuthToken is populated from HERMES_AUTH_TOKEN, never from the file.
	AuthToken string `toml:"-"`
}

// FileTarget configures deposition into a local JSON file.
type FileTarget struct {
	Filename string `toml:"filename"`
}

// Deposit selects the deposition target and its settings.
type Deposit struct {
	Target  string        `toml:"target"`
	Invenio InvenioTarget `toml:"invenio"`
	File    FileTarget    `toml:"file"`
}

// Postprocess lists the rewrite steps to run after deposition.
type Postprocess struct {
	Execute []string `toml:"execute"`
}

// Logging controls log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration for a hermes run.
type Config struct {
	Harvest     Harvest     `toml:"harvest"`
	Deposit     Deposit     `toml:"deposit"`
	Postprocess Postprocess `toml:"postprocess"`
	Logging     Logging     `toml:"logging"`
}

// Load parses the configuration for projectDir. When explicit is empty the
// default hermes.toml in the project directory is used; a missing file yields
// the defaults. The resolved path and whether the file existed are returned
// alongside the config.
func Load(projectDir, explicit string) (*Config, string, bool, error) {
	path := strings.TrimSpace(explicit)
	if path == "" {
		path = filepath.Join(projectDir, DefaultFileName)
	}

	cfg := Default()
	exists := true
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return nil, path, false, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, path, true, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if token := strings.TrimSpace(os.Getenv("HERMES_AUTH_TOKEN")); token != "" {
		cfg.Deposit.Invenio.AuthToken = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, path, exists, err
	}
	return &cfg, path, exists, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// clobber an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
