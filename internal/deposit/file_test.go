package deposit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Aidajafarbigloo/hermes/internal/config"
	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
	"github.com/Aidajafarbigloo/hermes/internal/workspace"
)

func testInvocation(t *testing.T, dir string) *plugin.Invocation {
	t.Helper()
	cfg := config.Default()
	return &plugin.Invocation{
		ProjectDir: dir,
		Config:     &cfg,
		Logger:     logging.NewNop(),
	}
}

func testDocument(t *testing.T, dir string) *model.Document {
	t.Helper()
	doc := model.NewDocument(workspace.New(dir))
	doc.Set(model.MustParsePath("name"), model.String("hermes"))
	doc.Set(model.MustParsePath("version"), model.String("2.0.0"))
	return doc
}

func TestFileDeposit(t *testing.T) {
	dir := t.TempDir()
	inv := testInvocation(t, dir)
	inv.Config.Deposit.File.Filename = "hermes.json"

	if err := NewFileDepositor().Deposit(context.Background(), inv, testDocument(t, dir)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "hermes.json"))
	if err != nil {
		t.Fatal(err)
	}
	value, err := model.UnmarshalValue(data)
	if err != nil {
		t.Fatal(err)
	}
	if !model.Equal(value.(model.Map)["name"], model.String("hermes")) {
		t.Fatalf("document content lost: %s", data)
	}
}

func TestFileDepositWithoutFilename(t *testing.T) {
	dir := t.TempDir()
	inv := testInvocation(t, dir)
	inv.Config.Deposit.File.Filename = " "

	err := NewFileDepositor().Deposit(context.Background(), inv, testDocument(t, dir))
	if !errors.Is(err, plugin.ErrMisconfiguration) {
		t.Fatalf("expected misconfiguration error, got %v", err)
	}
}
