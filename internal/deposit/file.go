package deposit

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
)

// FileDepositor writes the merged document to a local JSON file. It exists
// for pipelines that hand the document to some other tool instead of
// publishing it directly.
type FileDepositor struct{}

// NewFileDepositor constructs the file deposition target.
func NewFileDepositor() *FileDepositor {
	return &FileDepositor{}
}

func (d *FileDepositor) Name() string { return "file" }

func (d *FileDepositor) Deposit(ctx context.Context, inv *plugin.Invocation, doc *model.Document) error {
	_ = ctx

	filename := strings.TrimSpace(inv.Config.Deposit.File.Filename)
	if filename == "" {
		return plugin.Wrap(plugin.ErrMisconfiguration, d.Name(), "deposit",
			"deposit.file.filename is not configured", nil)
	}
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(inv.ProjectDir, filename)
	}

	data, err := model.MarshalValue(doc.Data())
	if err != nil {
		return plugin.Wrap(nil, d.Name(), "encode", "", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return plugin.Wrap(nil, d.Name(), "write", filename, err)
	}

	inv.Logger.Info("deposited document",
		logging.FieldComponent, "deposit.file", "file", filename)
	return nil
}
