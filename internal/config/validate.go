package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownDepositTargets = map[string]struct{}{
	"file":    {},
	"invenio": {},
}

// Validate ensures the configuration is usable. Target-specific requirements
// (site URL, auth token) are checked by the deposit collaborator itself so a
// harvest-only run never trips over deposition settings.
func (c *Config) Validate() error {
	if err := c.validateHarvest(); err != nil {
		return err
	}
	if err := c.validateDeposit(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateHarvest() error {
	if len(c.Harvest.Sources) == 0 {
		return errors.New("harvest.sources must list at least one harvester")
	}
	seen := map[string]struct{}{}
	for _, source := range c.Harvest.Sources {
		name := strings.TrimSpace(source)
		if name == "" {
			return errors.New("harvest.sources must not contain empty names")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("harvest.sources lists %q twice", name)
		}
		seen[name] = struct{}{}
	}
	if strings.TrimSpace(c.Harvest.Git.Executable) == "" {
		return errors.New("harvest.git.executable must not be blank")
	}
	return nil
}

func (c *Config) validateDeposit() error {
	target := strings.TrimSpace(c.Deposit.Target)
	if target == "" {
		return nil
	}
	if _, ok := knownDepositTargets[target]; !ok {
		return fmt.Errorf("deposit.target %q is not supported (use file or invenio)", target)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
