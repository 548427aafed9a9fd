package harvest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
)

const gitLogSeparator = "|"

var gitLogFormat = strings.Join([]string{"%aN", "%aE", "%aI"}, gitLogSeparator)

// Runner abstracts subprocess execution for testability.
type Runner interface {
	Run(ctx context.Context, dir, binary string, args ...string) (string, error)
}

type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, dir, binary string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("%s %s: %w: %s", binary, strings.Join(args, " "), err, detail)
		}
		return "", fmt.Errorf("%s %s: %w", binary, strings.Join(args, " "), err)
	}
	return stdout.String(), nil
}

// GitOption configures the git harvester.
type GitOption func(*GitHarvester)

// WithRunner injects a custom subprocess runner (primarily for tests).
func WithRunner(r Runner) GitOption {
	return func(h *GitHarvester) {
		if r != nil {
			h.run = r
		}
	}
}

// GitHarvester reads the history of the checked-out branch and records the
// contributors it finds there.
type GitHarvester struct {
	run Runner
}

// NewGitHarvester constructs the git history harvester.
func NewGitHarvester(opts ...GitOption) *GitHarvester {
	h := &GitHarvester{run: commandRunner{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *GitHarvester) Name() string { return "git" }

// Harvest runs git against the project directory and records branch and
// contributor data in CodeMeta shape.
func (h *GitHarvester) Harvest(ctx context.Context, inv *plugin.Invocation, scope *model.Scope) error {
	binary := inv.Config.Harvest.Git.Executable

	branchOut, err := h.run.Run(ctx, inv.ProjectDir, binary, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return plugin.Wrap(plugin.ErrExternalTool, h.Name(), "branch", "", err)
	}
	branch := strings.TrimSpace(branchOut)

	logOut, err := h.run.Run(ctx, inv.ProjectDir, binary, "log", "--pretty="+gitLogFormat)
	if err != nil {
		return plugin.Wrap(plugin.ErrExternalTool, h.Name(), "log", "", err)
	}

	contributors := collectContributors(logOut)
	if len(contributors) == 0 {
		return plugin.Wrap(plugin.ErrValidation, h.Name(), "log", "history has no commits", nil)
	}

	inv.Logger.Info("harvested git history",
		logging.FieldComponent, "harvest.git",
		"branch", branch, "contributors", len(contributors))

	authors := make(model.List, 0, len(contributors))
	for _, contributor := range contributors {
		authors = append(authors, contributor.toCodeMeta())
	}

	return scope.UpdateFrom(model.Map{
		"@context": model.List{
			model.String("https://doi.org/10.5063/schema/codemeta-2.0"),
			model.Map{"hermes": model.String("https://software-metadata.pub/ns/hermes/")},
		},
		"@type":  model.String("SoftwareSourceCode"),
		"author": authors,
	}, map[string]string{"branch": branch})
}

// contributor aggregates one person's appearances in the history. Alternate
// names and addresses are kept so the operator can spot unmapped identities.
type contributor struct {
	names  []string
	emails []string
	stamps []string
}

func (c *contributor) update(name, email, stamp string) {
	if name != "" && !contains(c.names, name) {
		c.names = append(c.names, name)
	}
	if email != "" && !contains(c.emails, email) {
		c.emails = append(c.emails, email)
	}
	if stamp != "" {
		c.stamps = append(c.stamps, stamp)
	}
}

func (c *contributor) toCodeMeta() model.Map {
	out := model.Map{
		"@type": model.List{model.String("Person"), model.String("hermes:contributor")},
	}
	if len(c.names) > 0 {
		out["name"] = model.String(c.names[0])
	}
	if len(c.names) > 1 {
		alternates := make(model.List, 0, len(c.names)-1)
		for _, name := range c.names[1:] {
			alternates = append(alternates, model.String(name))
		}
		out["alternateName"] = alternates
	}
	if len(c.emails) > 0 {
		out["email"] = model.String(c.emails[0])
	}
	if len(c.emails) > 1 {
		contacts := make(model.List, 0, len(c.emails)-1)
		for _, email := range c.emails[1:] {
			contacts = append(contacts, model.Map{
				"@type": model.String("ContactPoint"),
				"email": model.String(email),
			})
		}
		out["contactPoint"] = contacts
	}
	if len(c.stamps) > 0 {
		sorted := append([]string{}, c.stamps...)
		sort.Strings(sorted)
		out["startTime"] = model.String(sorted[0])
		out["endTime"] = model.String(sorted[len(sorted)-1])
	}
	return out
}

// collectContributors parses the pretty-printed log and merges commits by
// email first, then by name, so renamed committers collapse into one entry.
func collectContributors(logOut string) []*contributor {
	var ordered []*contributor
	byEmail := map[string]*contributor{}
	byName := map[string]*contributor{}

	for _, line := range strings.Split(logOut, "\n") {
		parts := strings.Split(line, gitLogSeparator)
		if len(parts) != 3 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		email := strings.TrimSpace(parts[1])
		stamp := strings.TrimSpace(parts[2])

		emailKey := strings.ToUpper(email)
		entry := byEmail[emailKey]
		if entry == nil && name != "" {
			entry = byName[name]
		}
		if entry == nil {
			entry = &contributor{}
			ordered = append(ordered, entry)
		}
		entry.update(name, email, stamp)
		if emailKey != "" {
			byEmail[emailKey] = entry
		}
		if name != "" {
			byName[name] = entry
		}
	}
	return ordered
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
