package harvest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
)

// CFFFileName is the citation file the harvester looks for.
const CFFFileName = "CITATION.cff"

var cffRequiredKeys = []string{"cff-version", "message", "title", "authors"}

// spdxLicenseBase prefixes license identifiers the way CodeMeta expects them.
const spdxLicenseBase = "https://spdx.org/licenses/"

// CFFHarvester reads a single CITATION.cff file and records its content in
// CodeMeta shape.
type CFFHarvester struct{}

// NewCFFHarvester constructs the citation file harvester.
func NewCFFHarvester() *CFFHarvester {
	return &CFFHarvester{}
}

func (h *CFFHarvester) Name() string { return "cff" }

// Harvest locates the citation file, validates it, converts it to CodeMeta
// and records the result with the file path as provenance detail.
func (h *CFFHarvester) Harvest(ctx context.Context, inv *plugin.Invocation, scope *model.Scope) error {
	_ = ctx

	cffPath, err := FindSingleCFF(inv.ProjectDir)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cffPath)
	if err != nil {
		return plugin.Wrap(plugin.ErrNotFound, h.Name(), "read", cffPath, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return plugin.Wrap(plugin.ErrValidation, h.Name(), "parse", cffPath, err)
	}

	if inv.Config.Harvest.CFF.EnableValidation {
		if err := validateCFF(raw); err != nil {
			return plugin.Wrap(plugin.ErrValidation, h.Name(), "validate", cffPath, err)
		}
	}

	codemeta, err := cffToCodeMeta(raw)
	if err != nil {
		return plugin.Wrap(plugin.ErrValidation, h.Name(), "convert", cffPath, err)
	}

	inv.Logger.Info("found valid citation file",
		logging.FieldComponent, "harvest.cff", "file", cffPath)
	return scope.UpdateFrom(codemeta, map[string]string{"local_path": cffPath})
}

// FindSingleCFF locates exactly one CITATION.cff below the project root.
// Zero or several matches abort harvesting for this source.
func FindSingleCFF(projectDir string) (string, error) {
	var matches []string
	err := filepath.WalkDir(projectDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			// The cache root never holds citation files.
			if entry.Name() == ".git" || entry.Name() == ".hermes" {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.Name() == CFFFileName {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", plugin.Wrap(plugin.ErrNotFound, "cff", "search", projectDir, err)
	}
	if len(matches) != 1 {
		return "", plugin.Wrap(plugin.ErrValidation, "cff", "search",
			fmt.Sprintf("%s contains %d %s files, need exactly 1", projectDir, len(matches), CFFFileName), nil)
	}
	return matches[0], nil
}

func validateCFF(raw map[string]any) error {
	for _, key := range cffRequiredKeys {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("missing required key %q", key)
		}
	}
	authors, ok := raw["authors"].([]any)
	if !ok || len(authors) == 0 {
		return fmt.Errorf("authors must be a non-empty list")
	}
	return nil
}

// cffToCodeMeta maps Citation File Format keys onto the CodeMeta vocabulary.
func cffToCodeMeta(raw map[string]any) (model.Map, error) {
	out := model.Map{
		"@context": model.List{
			model.String("https://doi.org/10.5063/schema/codemeta-2.0"),
			model.Map{"hermes": model.String("https://software-metadata.pub/ns/hermes/")},
		},
		"@type": model.String("SoftwareSourceCode"),
	}

	scalar := map[string]string{
		"title":         "name",
		"version":       "version",
		"abstract":      "description",
		"repository":    "codeRepository",
		"url":           "url",
		"date-released": "datePublished",
	}
	for cffKey, codemetaKey := range scalar {
		value, ok := raw[cffKey]
		if !ok {
			continue
		}
		converted, err := model.FromGo(normalizeYAML(value))
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", cffKey, err)
		}
		out[codemetaKey] = converted
	}

	if license, ok := raw["license"].(string); ok && license != "" {
		out["license"] = model.String(spdxLicenseBase + license)
	}

	if keywords, ok := raw["keywords"].([]any); ok {
		list := make(model.List, 0, len(keywords))
		for _, keyword := range keywords {
			if text, ok := keyword.(string); ok {
				list = append(list, model.String(text))
			}
		}
		if len(list) > 0 {
			out["keywords"] = list
		}
	}

	if authors, ok := raw["authors"].([]any); ok {
		list := make(model.List, 0, len(authors))
		for _, rawAuthor := range authors {
			author, ok := rawAuthor.(map[string]any)
			if !ok {
				continue
			}
			person := model.Map{"@type": model.String("Person")}
			if given, ok := author["given-names"].(string); ok {
				person["givenName"] = model.String(given)
			}
			if family, ok := author["family-names"].(string); ok {
				person["familyName"] = model.String(family)
			}
			if email, ok := author["email"].(string); ok {
				person["email"] = model.String(email)
			}
			if orcid, ok := author["orcid"].(string); ok {
				person["@id"] = model.String(orcid)
			}
			list = append(list, person)
		}
		out["author"] = list
	}

	if identifiers, ok := raw["identifiers"].([]any); ok {
		for _, rawIdentifier := range identifiers {
			identifier, ok := rawIdentifier.(map[string]any)
			if !ok {
				continue
			}
			if identifier["type"] == "doi" {
				if value, ok := identifier["value"].(string); ok {
					out["identifier"] = model.String(value)
					break
				}
			}
		}
	}

	return out, nil
}

// normalizeYAML flattens YAML-specific decode results (timestamps, integer
// widths) into plain JSON-compatible data.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format("2006-01-02")
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			out[key] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return val
	}
}
