package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
	"github.com/Aidajafarbigloo/hermes/internal/workspace"
)

func fullTestDocument(t *testing.T, dir string) *model.Document {
	t.Helper()
	doc := testDocument(t, dir)
	doc.Set(model.MustParsePath("description"), model.String("Automated software publishing."))
	doc.Set(model.MustParsePath("license"), model.String("https://spdx.org/licenses/Apache-2.0"))
	doc.Set(model.MustParsePath("author"), model.List{
		model.Map{
			"@type":      model.String("Person"),
			"givenName":  model.String("Ada"),
			"familyName": model.String("Lovelace"),
			"@id":        model.String("https://orcid.org/0000-0001-2345-6789"),
		},
	})
	return doc
}

func TestInvenioDepositCreatesRecord(t *testing.T) {
	dir := t.TempDir()
	var created map[string]any
	var uploaded, published bool

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", got)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/deposit/depositions":
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Error(err)
			}
			created, _ = payload["metadata"].(map[string]any)
			fmt.Fprintf(w, `{"id": 101, "links": {
				"html": "%[1]s/deposit/101",
				"bucket": "%[1]s/api/files/bucket-101",
				"publish": "%[1]s/api/deposit/depositions/101/actions/publish"
			}}`, server.URL)
		case r.Method == http.MethodPut && r.URL.Path == "/api/files/bucket-101/artifact.txt":
			uploaded = true
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/deposit/depositions/101/actions/publish":
			published = true
			fmt.Fprintf(w, `{"id": 101, "doi": "10.5281/zenodo.101",
				"links": {"record_html": "%s/record/101"}}`, server.URL)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	artifact := filepath.Join(dir, "artifact.txt")
	if err := os.WriteFile(artifact, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	inv := testInvocation(t, dir)
	inv.Config.Deposit.Target = "invenio"
	inv.Config.Deposit.Invenio.SiteURL = server.URL
	inv.Config.Deposit.Invenio.AuthToken = "secret"
	inv.Config.Deposit.Invenio.Communities = []string{"software"}

	ws := workspace.New(dir)
	depositor := NewInvenioDepositor(ws, WithFiles([]string{artifact}))
	if err := depositor.Deposit(context.Background(), inv, fullTestDocument(t, dir)); err != nil {
		t.Fatal(err)
	}
	if !uploaded || !published {
		t.Fatalf("flow incomplete: uploaded=%v published=%v", uploaded, published)
	}

	// The mapped metadata follows the deposition schema.
	if created["title"] != "hermes" || created["upload_type"] != "software" {
		t.Fatalf("metadata malformed: %v", created)
	}
	if created["license"] != "Apache-2.0" {
		t.Fatalf("license prefix not stripped: %v", created["license"])
	}
	creators := created["creators"].([]any)
	creator := creators[0].(map[string]any)
	if creator["name"] != "Lovelace, Ada" {
		t.Fatalf("creator name malformed: %v", creator)
	}
	if creator["orcid"] != "0000-0001-2345-6789" {
		t.Fatalf("orcid not bare: %v", creator)
	}

	record, err := LoadRecord(ws)
	if err != nil {
		t.Fatal(err)
	}
	if record.RecordID != "101" || record.DOI != "10.5281/zenodo.101" {
		t.Fatalf("record not saved: %+v", record)
	}
	if record.Version != "2.0.0" {
		t.Fatalf("version not saved: %+v", record)
	}

	// The metadata snapshot lands in the deposit cache too.
	if _, err := ws.Resolve("deposit", "invenio"); err != nil {
		t.Fatalf("metadata snapshot missing: %v", err)
	}
}

func TestInvenioDepositNewVersion(t *testing.T) {
	dir := t.TempDir()
	var draftMetadata map[string]any

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/records/100":
			fmt.Fprintf(w, `{"id": "100", "links": {"latest": "%s/api/records/105"}}`, server.URL)
		case r.Method == http.MethodGet && r.URL.Path == "/api/records/105":
			fmt.Fprint(w, `{"id": "105", "metadata": {"version": "1.0.0"}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/deposit/depositions/105/actions/newversion":
			fmt.Fprintf(w, `{"id": "105", "links": {"latest_draft": "%s/api/deposit/depositions/106"}}`, server.URL)
		case r.Method == http.MethodPut && r.URL.Path == "/api/deposit/depositions/106":
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Error(err)
			}
			draftMetadata, _ = payload["metadata"].(map[string]any)
			fmt.Fprintf(w, `{"id": "106", "links": {
				"publish": "%s/api/deposit/depositions/106/actions/publish"
			}}`, server.URL)
		case r.Method == http.MethodPost && r.URL.Path == "/api/deposit/depositions/106/actions/publish":
			fmt.Fprint(w, `{"id": "106", "doi": "10.5281/zenodo.106", "links": {}}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	inv := testInvocation(t, dir)
	inv.Config.Deposit.Invenio.SiteURL = server.URL
	inv.Config.Deposit.Invenio.AuthToken = "secret"
	inv.Config.Deposit.Invenio.RecordID = "100"

	ws := workspace.New(dir)
	if err := NewInvenioDepositor(ws).Deposit(context.Background(), inv, fullTestDocument(t, dir)); err != nil {
		t.Fatal(err)
	}
	if draftMetadata["version"] != "2.0.0" {
		t.Fatalf("draft metadata malformed: %v", draftMetadata)
	}

	record, err := LoadRecord(ws)
	if err != nil {
		t.Fatal(err)
	}
	if record.RecordID != "106" {
		t.Fatalf("record not saved: %+v", record)
	}
}

func TestInvenioDepositRefusesSameVersion(t *testing.T) {
	dir := t.TempDir()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "105", "metadata": {"version": "2.0.0"}}`)
	}))
	defer server.Close()

	inv := testInvocation(t, dir)
	inv.Config.Deposit.Invenio.SiteURL = server.URL
	inv.Config.Deposit.Invenio.AuthToken = "secret"
	inv.Config.Deposit.Invenio.RecordID = "105"

	err := NewInvenioDepositor(workspace.New(dir)).Deposit(context.Background(), inv, fullTestDocument(t, dir))
	if !errors.Is(err, plugin.ErrValidation) {
		t.Fatalf("expected validation error for unchanged version, got %v", err)
	}
}

func TestInvenioDepositMisconfiguration(t *testing.T) {
	dir := t.TempDir()
	doc := fullTestDocument(t, dir)

	inv := testInvocation(t, dir)
	err := NewInvenioDepositor(workspace.New(dir)).Deposit(context.Background(), inv, doc)
	if !errors.Is(err, plugin.ErrMisconfiguration) {
		t.Fatalf("expected misconfiguration without site url, got %v", err)
	}

	inv.Config.Deposit.Invenio.SiteURL = "https://example.org"
	err = NewInvenioDepositor(workspace.New(dir)).Deposit(context.Background(), inv, doc)
	if !errors.Is(err, plugin.ErrMisconfiguration) {
		t.Fatalf("expected misconfiguration without token, got %v", err)
	}
}

func TestInvenioDepositServerError(t *testing.T) {
	dir := t.TempDir()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "invalid token"}`)
	}))
	defer server.Close()

	inv := testInvocation(t, dir)
	inv.Config.Deposit.Invenio.SiteURL = server.URL
	inv.Config.Deposit.Invenio.AuthToken = "wrong"

	err := NewInvenioDepositor(workspace.New(dir)).Deposit(context.Background(), inv, fullTestDocument(t, dir))
	if err == nil {
		t.Fatal("expected error from rejecting server")
	}
}
