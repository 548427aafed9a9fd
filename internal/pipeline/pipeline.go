// Package pipeline drives the hermes stages in order: harvest writes scope
// caches, process merges them into the document, deposit publishes it, and
// postprocess writes the results back into the project. Stages communicate
// only through the workspace caches so each one can run in its own
// invocation.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aidajafarbigloo/hermes/internal/deposit"
	"github.com/Aidajafarbigloo/hermes/internal/harvest"
	"github.com/Aidajafarbigloo/hermes/internal/journal"
	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
	"github.com/Aidajafarbigloo/hermes/internal/postprocess"
	"github.com/Aidajafarbigloo/hermes/internal/process"
	"github.com/Aidajafarbigloo/hermes/internal/workspace"
)

// Stage names as recorded in the journal and used for cache directories.
const (
	StageHarvest     = "harvest"
	StageProcess     = "process"
	StageDeposit     = "deposit"
	StagePostprocess = "postprocess"
)

// Cache artifact names owned by the process stage.
const (
	DocumentArtifact  = "codemeta"
	ConflictsArtifact = "conflicts"
	TagsArtifact      = "tags"
)

// Builtins returns a registry holding every collaborator shipped with
// hermes.
func Builtins(ws *workspace.Workspace) *plugin.Registry {
	reg := plugin.NewRegistry()
	reg.AddHarvester(harvest.NewCFFHarvester())
	reg.AddHarvester(harvest.NewGitHarvester())
	reg.AddProcessor(process.NewCFFProcessor())
	reg.AddProcessor(process.NewGitProcessor())
	reg.AddDepositor(deposit.NewFileDepositor())
	reg.AddDepositor(deposit.NewInvenioDepositor(ws))
	reg.AddPostprocessor(postprocess.NewConfigRecordID(ws))
	reg.AddPostprocessor(postprocess.NewCFFDOI(ws))
	return reg
}

// Pipeline binds one invocation to its workspace, registry, and journal.
type Pipeline struct {
	inv     *plugin.Invocation
	reg     *plugin.Registry
	ws      *workspace.Workspace
	journal *journal.Journal
}

// New assembles a pipeline. The journal may be nil, in which case runs are
// not recorded.
func New(inv *plugin.Invocation, reg *plugin.Registry, ws *workspace.Workspace, jrnl *journal.Journal) *Pipeline {
	return &Pipeline{inv: inv, reg: reg, ws: ws, journal: jrnl}
}

// Harvest runs every configured harvester into its own recording scope and
// closes the scopes into the harvest cache. A failing source does not stop
// the remaining sources; all failures are reported together.
func (p *Pipeline) Harvest(ctx context.Context) error {
	runID := p.beginRun(ctx, StageHarvest)

	var failures []error
	for _, source := range p.inv.Config.Harvest.Sources {
		err := p.harvestSource(ctx, source)
		p.recordOutcome(ctx, runID, source, err)
		if err != nil {
			p.inv.Logger.Error("harvest source failed",
				logging.FieldComponent, "pipeline",
				logging.FieldHarvester, source, "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", source, err))
			continue
		}
	}

	err := errors.Join(failures...)
	p.finishRun(ctx, runID, err)
	return err
}

func (p *Pipeline) harvestSource(ctx context.Context, source string) error {
	h, err := p.reg.Harvester(source)
	if err != nil {
		return err
	}
	scope := model.NewScope(source)
	if err := h.Harvest(ctx, p.inv, scope); err != nil {
		return err
	}
	if err := scope.Close(p.ws); err != nil {
		return err
	}
	p.inv.Logger.Info("harvested",
		logging.FieldComponent, "pipeline",
		logging.FieldHarvester, source, "addresses", len(scope.Addresses()))
	return nil
}

// Process replays the harvest caches in configuration order, lets each
// source's processor normalize its scope, and merges everything into one
// document. The merged tree, its provenance tags, and any conflicts are
// written to the process cache. A source without a usable cache is skipped;
// the contributions of the surviving sources are persisted regardless, and
// the skipped sources are reported in the returned error.
func (p *Pipeline) Process(ctx context.Context) (*model.Document, error) {
	runID := p.beginRun(ctx, StageProcess)

	doc := model.NewDocument(p.ws)
	var failures []error
	for _, source := range p.inv.Config.Harvest.Sources {
		err := p.processSource(source, doc)
		p.recordOutcome(ctx, runID, source, err)
		if err != nil {
			p.inv.Logger.Error("process source skipped",
				logging.FieldComponent, "pipeline",
				logging.FieldHarvester, source, "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", source, err))
		}
	}

	if err := p.saveProcessed(doc); err != nil {
		failures = append(failures, err)
	} else {
		for _, conflict := range doc.Conflicts() {
			p.inv.Logger.Warn("merge conflict",
				logging.FieldComponent, "pipeline",
				logging.FieldAddress, conflict.Path, "detail", conflict.Message())
		}
	}

	err := errors.Join(failures...)
	p.finishRun(ctx, runID, err)
	return doc, err
}

func (p *Pipeline) processSource(source string, doc *model.Document) error {
	scope, err := model.LoadScope(p.ws, source)
	if err != nil {
		return err
	}
	if proc, ok := p.reg.Processor(source); ok {
		if err := proc.Process(p.inv, doc, scope); err != nil {
			return err
		}
	}
	doc.MergeFrom(scope)
	p.inv.Logger.Info("merged",
		logging.FieldComponent, "pipeline",
		logging.FieldHarvester, source, "addresses", len(scope.Addresses()))
	return nil
}

func (p *Pipeline) saveProcessed(doc *model.Document) error {
	docPath, err := doc.CachePath(StageProcess, DocumentArtifact, true)
	if err != nil {
		return err
	}
	if err := doc.SaveDocument(docPath); err != nil {
		return err
	}
	if err := doc.SaveTags(); err != nil {
		return err
	}
	return saveConflicts(p.ws, doc.Conflicts())
}

// Deposit loads the processed document and hands it to the configured
// target. Process must have run in this or an earlier invocation.
func (p *Pipeline) Deposit(ctx context.Context) error {
	runID := p.beginRun(ctx, StageDeposit)

	target := p.inv.Config.Deposit.Target
	err := p.depositTo(ctx, target)
	p.recordOutcome(ctx, runID, target, err)
	p.finishRun(ctx, runID, err)
	return err
}

func (p *Pipeline) depositTo(ctx context.Context, target string) error {
	d, err := p.reg.Depositor(target)
	if err != nil {
		return err
	}
	doc, err := p.loadProcessed()
	if err != nil {
		return err
	}
	return d.Deposit(ctx, p.inv, doc)
}

// Postprocess runs the configured rewrite steps against the processed
// document. Steps run in configuration order; the first failure stops the
// stage because later steps may depend on earlier rewrites.
func (p *Pipeline) Postprocess(ctx context.Context) error {
	runID := p.beginRun(ctx, StagePostprocess)
	err := p.postprocessAll()
	p.finishRun(ctx, runID, err)
	return err
}

func (p *Pipeline) postprocessAll() error {
	doc, err := p.loadProcessed()
	if err != nil {
		return err
	}
	for _, step := range p.inv.Config.Postprocess.Execute {
		pp, err := p.reg.Postprocessor(step)
		if err != nil {
			return err
		}
		if err := pp.Postprocess(p.inv, doc); err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
		p.inv.Logger.Info("postprocess step finished",
			logging.FieldComponent, "pipeline", "step", step)
	}
	return nil
}

// Clean removes every cache the previous stages left behind. The journal
// lives under the cache root and goes with it.
func (p *Pipeline) Clean() error {
	return p.ws.Purge()
}

func (p *Pipeline) loadProcessed() (*model.Document, error) {
	path, err := p.ws.Resolve(StageProcess, DocumentArtifact)
	if err != nil {
		return nil, err
	}
	return model.LoadDocument(p.ws, path)
}

func (p *Pipeline) beginRun(ctx context.Context, stage string) string {
	if p.journal == nil {
		return ""
	}
	runID, err := p.journal.Begin(ctx, stage)
	if err != nil {
		p.inv.Logger.Warn("journal unavailable",
			logging.FieldComponent, "pipeline", logging.FieldStage, stage, "error", err)
		return ""
	}
	return runID
}

func (p *Pipeline) recordOutcome(ctx context.Context, runID, name string, outcomeErr error) {
	if p.journal == nil || runID == "" {
		return
	}
	if err := p.journal.RecordOutcome(ctx, runID, name, outcomeErr); err != nil {
		p.inv.Logger.Warn("journal outcome not recorded",
			logging.FieldComponent, "pipeline", "name", name, "error", err)
	}
}

func (p *Pipeline) finishRun(ctx context.Context, runID string, runErr error) {
	if p.journal == nil || runID == "" {
		return
	}
	if err := p.journal.Finish(ctx, runID, runErr); err != nil {
		p.inv.Logger.Warn("journal run not finished",
			logging.FieldComponent, "pipeline", "error", err)
	}
}
