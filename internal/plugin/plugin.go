package plugin

import (
	"context"
	"log/slog"

	"github.com/Aidajafarbigloo/hermes/internal/config"
	"github.com/Aidajafarbigloo/hermes/internal/model"
)

// Invocation carries the per-run surroundings a plugin may need: where the
// project lives, the parsed configuration, and the run logger.
type Invocation struct {
	ProjectDir string
	ConfigPath string
	Config     *config.Config
	Logger     *slog.Logger
}

// Harvester produces raw metadata from one source into a recording scope. It
// must never touch the document directly.
type Harvester interface {
	Name() string
	Harvest(ctx context.Context, inv *Invocation, scope *model.Scope) error
}

// Processor normalizes one harvester's recorded entries before they are
// merged into the document.
type Processor interface {
	Name() string
	Process(inv *Invocation, doc *model.Document, scope *model.Scope) error
}

// Depositor publishes the merged document to an external target.
type Depositor interface {
	Name() string
	Deposit(ctx context.Context, inv *Invocation, doc *model.Document) error
}

// Postprocessor rewrites project files after a successful deposition.
type Postprocessor interface {
	Name() string
	Postprocess(inv *Invocation, doc *model.Document) error
}
