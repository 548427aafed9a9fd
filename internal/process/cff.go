package process

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
)

var authorPath = model.MustParsePath("author")

// CFFProcessor fills in derived author fields the citation file only provides
// in parts: a missing name is synthesized from givenName and familyName, and
// text is normalized to NFC so equality checks across harvesters are not
// fooled by combining characters.
type CFFProcessor struct{}

// NewCFFProcessor constructs the citation file processor.
func NewCFFProcessor() *CFFProcessor {
	return &CFFProcessor{}
}

func (p *CFFProcessor) Name() string { return "cff" }

func (p *CFFProcessor) Process(inv *plugin.Invocation, doc *model.Document, scope *model.Scope) error {
	_ = doc

	filled := 0
	scope.Rewrite(authorPath, func(entries []model.Entry) []model.Entry {
		for i, entry := range entries {
			authors, ok := entry.Value.(model.List)
			if !ok {
				continue
			}
			rewritten := make(model.List, len(authors))
			for j, rawAuthor := range authors {
				author, ok := rawAuthor.(model.Map)
				if !ok {
					rewritten[j] = rawAuthor
					continue
				}
				rewritten[j] = fillAuthorName(author, &filled)
			}
			entries[i].Value = rewritten
		}
		return entries
	})

	if filled > 0 {
		inv.Logger.Debug("synthesized author names",
			logging.FieldComponent, "process.cff", "count", filled)
	}
	return nil
}

func fillAuthorName(author model.Map, filled *int) model.Map {
	out := make(model.Map, len(author)+1)
	for key, value := range author {
		if text, ok := value.(model.String); ok {
			out[key] = model.String(norm.NFC.String(string(text)))
			continue
		}
		out[key] = value
	}
	if _, ok := out["name"]; ok {
		return out
	}

	given, _ := out["givenName"].(model.String)
	family, _ := out["familyName"].(model.String)
	name := strings.TrimSpace(strings.TrimSpace(string(given)) + " " + strings.TrimSpace(string(family)))
	if name != "" {
		out["name"] = model.String(name)
		*filled++
	}
	return out
}
