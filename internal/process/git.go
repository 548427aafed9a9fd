package process

import (
	"golang.org/x/text/unicode/norm"

	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
)

var contributorPath = model.MustParsePath("contributor")

// GitProcessor promotes the harvested git authors into the contributor list.
// The author address stays untouched so the citation file keeps authority
// over authorship; everyone seen in the history becomes a contributor.
type GitProcessor struct{}

// NewGitProcessor constructs the git history processor.
func NewGitProcessor() *GitProcessor {
	return &GitProcessor{}
}

func (p *GitProcessor) Name() string { return "git" }

func (p *GitProcessor) Process(inv *plugin.Invocation, doc *model.Document, scope *model.Scope) error {
	_ = doc

	entries := scope.Trace(authorPath.String())
	if len(entries) == 0 {
		return nil
	}

	promoted := 0
	scope.Rewrite(contributorPath, func(existing []model.Entry) []model.Entry {
		for _, entry := range entries {
			authors, ok := entry.Value.(model.List)
			if !ok {
				continue
			}
			contributors := make(model.List, len(authors))
			for i, rawAuthor := range authors {
				contributors[i] = normalizeContributor(rawAuthor)
				promoted++
			}
			rewritten := entry
			rewritten.Value = contributors
			existing = append(existing, rewritten)
		}
		return existing
	})

	// The git history names contributors, not authors; drop the author
	// address so the citation file's author list cannot conflict with it.
	scope.Rewrite(authorPath, func([]model.Entry) []model.Entry { return nil })

	inv.Logger.Debug("promoted git authors to contributors",
		logging.FieldComponent, "process.git", "count", promoted)
	return nil
}

func normalizeContributor(raw model.Value) model.Value {
	author, ok := raw.(model.Map)
	if !ok {
		return raw
	}
	out := make(model.Map, len(author))
	for key, value := range author {
		if text, ok := value.(model.String); ok {
			out[key] = model.String(norm.NFC.String(string(text)))
			continue
		}
		out[key] = value
	}
	return out
}
