// Package postprocess implements the rewrite steps run after a successful
// deposition. Each step reads the deposition record from the deposit cache
// and writes one piece of it back into the project tree.
package postprocess

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/Aidajafarbigloo/hermes/internal/deposit"
	"github.com/Aidajafarbigloo/hermes/internal/harvest"
	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
	"github.com/Aidajafarbigloo/hermes/internal/workspace"
)

// ConfigRecordID stores the deposited record id in the project configuration
// so the next deposit run creates a new version instead of a new record.
type ConfigRecordID struct {
	ws *workspace.Workspace
}

func NewConfigRecordID(ws *workspace.Workspace) *ConfigRecordID {
	return &ConfigRecordID{ws: ws}
}

func (p *ConfigRecordID) Name() string { return "config_record_id" }

func (p *ConfigRecordID) Postprocess(inv *plugin.Invocation, doc *model.Document) error {
	record, err := deposit.LoadRecord(p.ws)
	if err != nil {
		return plugin.Wrap(nil, p.Name(), "load deposit record", "", err)
	}
	if record.RecordID == "" {
		return plugin.Wrap(plugin.ErrValidation, p.Name(), "load deposit record",
			"deposition record carries no record id", nil)
	}

	raw := map[string]any{}
	data, err := os.ReadFile(inv.ConfigPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return plugin.Wrap(nil, p.Name(), "parse config", inv.ConfigPath, err)
		}
	case !os.IsNotExist(err):
		return plugin.Wrap(nil, p.Name(), "read config", inv.ConfigPath, err)
	}

	section(section(raw, "deposit"), "invenio")["record_id"] = record.RecordID
	out, err := toml.Marshal(raw)
	if err != nil {
		return plugin.Wrap(nil, p.Name(), "encode config", inv.ConfigPath, err)
	}
	if err := os.WriteFile(inv.ConfigPath, out, 0o644); err != nil {
		return plugin.Wrap(nil, p.Name(), "write config", inv.ConfigPath, err)
	}

	inv.Logger.Info("stored record id in configuration",
		logging.FieldComponent, "postprocess."+p.Name(),
		"record_id", record.RecordID, "path", inv.ConfigPath)
	return nil
}

// section returns the nested table under key, creating it when absent. A
// present non-table value is replaced; the rewrite owns this part of the
// file.
func section(parent map[string]any, key string) map[string]any {
	if child, ok := parent[key].(map[string]any); ok {
		return child
	}
	child := map[string]any{}
	parent[key] = child
	return child
}

// CFFDOI appends the DOI of the published version to the identifiers list of
// the project's CITATION.cff.
type CFFDOI struct {
	ws *workspace.Workspace
}

func NewCFFDOI(ws *workspace.Workspace) *CFFDOI {
	return &CFFDOI{ws: ws}
}

func (p *CFFDOI) Name() string { return "cff_doi" }

func (p *CFFDOI) Postprocess(inv *plugin.Invocation, doc *model.Document) error {
	record, err := deposit.LoadRecord(p.ws)
	if err != nil {
		return plugin.Wrap(nil, p.Name(), "load deposit record", "", err)
	}
	if record.DOI == "" {
		return plugin.Wrap(plugin.ErrValidation, p.Name(), "load deposit record",
			"deposition record carries no DOI", nil)
	}

	cffPath, err := harvest.FindSingleCFF(inv.ProjectDir)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(cffPath)
	if err != nil {
		return plugin.Wrap(nil, p.Name(), "read", cffPath, err)
	}
	var cff map[string]any
	if err := yaml.Unmarshal(data, &cff); err != nil {
		return plugin.Wrap(nil, p.Name(), "parse", cffPath, err)
	}

	identifier := map[string]any{
		"description": fmt.Sprintf("DOI for the published version %s [generated by hermes]", record.Version),
		"type":        "doi",
		"value":       record.DOI,
	}
	identifiers, _ := cff["identifiers"].([]any)
	cff["identifiers"] = append(identifiers, identifier)

	out, err := yaml.Marshal(cff)
	if err != nil {
		return plugin.Wrap(nil, p.Name(), "encode", cffPath, err)
	}
	if err := os.WriteFile(cffPath, out, 0o644); err != nil {
		return plugin.Wrap(nil, p.Name(), "write", cffPath, err)
	}

	inv.Logger.Info("recorded DOI in citation file",
		logging.FieldComponent, "postprocess."+p.Name(),
		"doi", record.DOI, "path", cffPath)
	return nil
}
