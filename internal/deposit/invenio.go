package deposit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
	"github.com/Aidajafarbigloo/hermes/internal/workspace"
)

const (
	depositStage       = "deposit"
	depositRecordName  = "deposit"
	invenioCacheName   = "invenio"
	orcidURLPrefix     = "https://orcid.org/"
	spdxURLPrefix      = "https://spdx.org/licenses/"
	uploadTypeSoftware = "software"
)

// Record is what a successful deposition leaves behind in the deposit cache.
// Postprocess steps read it to write the record id and DOI back into the
// project.
type Record struct {
	RecordID string         `json:"record_id"`
	DOI      string         `json:"doi,omitempty"`
	URL      string         `json:"url,omitempty"`
	Version  string         `json:"version,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// LoadRecord reads the deposition record saved by the last deposit run.
func LoadRecord(ws *workspace.Workspace) (*Record, error) {
	path, err := ws.Resolve(depositStage, depositRecordName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &record, nil
}

// InvenioDepositor publishes the merged document to an Invenio instance:
// map the metadata, create a deposition draft (or a new version of the
// configured record), upload the attached files, publish.
type InvenioDepositor struct {
	ws    *workspace.Workspace
	files []string
	now   func() time.Time
}

// InvenioOption configures the Invenio depositor.
type InvenioOption func(*InvenioDepositor)

// WithFiles attaches local files to upload into the deposition bucket.
func WithFiles(files []string) InvenioOption {
	return func(d *InvenioDepositor) {
		d.files = append([]string{}, files...)
	}
}

// NewInvenioDepositor constructs the Invenio deposition target.
func NewInvenioDepositor(ws *workspace.Workspace, opts ...InvenioOption) *InvenioDepositor {
	d := &InvenioDepositor{ws: ws, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *InvenioDepositor) Name() string { return "invenio" }

func (d *InvenioDepositor) Deposit(ctx context.Context, inv *plugin.Invocation, doc *model.Document) error {
	target := inv.Config.Deposit.Invenio
	if strings.TrimSpace(target.SiteURL) == "" {
		return plugin.Wrap(plugin.ErrMisconfiguration, d.Name(), "deposit",
			"deposit.invenio.site_url is not configured", nil)
	}
	if strings.TrimSpace(target.AuthToken) == "" {
		return plugin.Wrap(plugin.ErrMisconfiguration, d.Name(), "deposit",
			"no auth token given for deposition platform (set HERMES_AUTH_TOKEN)", nil)
	}

	metadata, err := d.mapMetadata(inv, doc)
	if err != nil {
		return err
	}
	if err := d.snapshotMetadata(metadata); err != nil {
		return err
	}

	client := newInvenioClient(target.SiteURL, target.AuthToken)

	draft, err := d.openDraft(ctx, client, inv, metadata)
	if err != nil {
		return err
	}
	inv.Logger.Info("created deposition draft",
		logging.FieldComponent, "deposit.invenio", "url", draft.Links.HTML)

	for _, file := range d.files {
		if err := client.UploadFile(ctx, draft.Links.Bucket, file); err != nil {
			return plugin.Wrap(nil, d.Name(), "upload", file, err)
		}
	}

	published, err := client.Publish(ctx, draft.Links.Publish)
	if err != nil {
		return plugin.Wrap(nil, d.Name(), "publish", "", err)
	}
	inv.Logger.Info("published record",
		logging.FieldComponent, "deposit.invenio",
		"record_id", published.ID, "doi", published.DOI)

	version, _ := metadata["version"].(string)
	return d.saveRecord(Record{
		RecordID: published.ID,
		DOI:      published.DOI,
		URL:      published.Links.RecordHTML,
		Version:  version,
		Metadata: metadata,
	})
}

// openDraft creates a fresh deposition, or a new version of the configured
// record when deposit.invenio.record_id is set.
func (d *InvenioDepositor) openDraft(ctx context.Context, client *invenioClient, inv *plugin.Invocation, metadata map[string]any) (*invenioDeposition, error) {
	recordID := strings.TrimSpace(inv.Config.Deposit.Invenio.RecordID)
	if recordID == "" {
		draft, err := client.CreateDeposition(ctx, metadata)
		if err != nil {
			return nil, plugin.Wrap(nil, d.Name(), "create deposition", "", err)
		}
		return draft, nil
	}

	latest, err := client.LatestRecord(ctx, recordID)
	if err != nil {
		return nil, plugin.Wrap(nil, d.Name(), "resolve record", recordID, err)
	}
	if version, ok := metadata["version"].(string); ok && version == latest.Metadata.Version {
		return nil, plugin.Wrap(plugin.ErrValidation, d.Name(), "deposit",
			"version "+version+" is already deposited", nil)
	}

	draft, err := client.NewVersion(ctx, latest.ID, metadata)
	if err != nil {
		return nil, plugin.Wrap(nil, d.Name(), "new version", latest.ID, err)
	}
	return draft, nil
}

// mapMetadata converts the CodeMeta document into the deposition metadata an
// Invenio instance expects.
func (d *InvenioDepositor) mapMetadata(inv *plugin.Invocation, doc *model.Document) (map[string]any, error) {
	name, err := doc.Get(model.MustParsePath("name"))
	if err != nil {
		return nil, plugin.Wrap(plugin.ErrValidation, d.Name(), "map",
			"document has no name; run the process stage first", err)
	}

	metadata := map[string]any{
		"upload_type":      uploadTypeSoftware,
		"publication_date": d.now().UTC().Format("2006-01-02"),
		"title":            model.ToGo(name),
		"description":      model.ToGo(name),
		"access_right":     inv.Config.Deposit.Invenio.AccessRight,
		"prereserve_doi":   true,
	}

	if description, err := doc.Get(model.MustParsePath("description")); err == nil {
		metadata["description"] = model.ToGo(description)
	}
	if version, err := doc.Get(model.MustParsePath("version")); err == nil {
		metadata["version"] = model.ToGo(version)
	}
	if license, err := doc.Get(model.MustParsePath("license")); err == nil {
		if text, ok := license.(model.String); ok {
			metadata["license"] = strings.TrimPrefix(string(text), spdxURLPrefix)
		}
	}
	if keywords, err := doc.Get(model.MustParsePath("keywords")); err == nil {
		metadata["keywords"] = model.ToGo(keywords)
	}
	if len(inv.Config.Deposit.Invenio.Communities) > 0 {
		communities := make([]any, 0, len(inv.Config.Deposit.Invenio.Communities))
		for _, community := range inv.Config.Deposit.Invenio.Communities {
			communities = append(communities, map[string]any{"identifier": community})
		}
		metadata["communities"] = communities
	}

	if embargo := strings.TrimSpace(inv.Config.Deposit.Invenio.EmbargoDate); embargo != "" {
		metadata["embargo_date"] = embargo
	}
	if conditions := strings.TrimSpace(inv.Config.Deposit.Invenio.AccessConditions); conditions != "" {
		metadata["access_conditions"] = conditions
	}

	if authors, err := doc.Get(model.MustParsePath("author")); err == nil {
		if list, ok := authors.(model.List); ok {
			metadata["creators"] = mapCreators(list)
		}
	}

	return metadata, nil
}

// mapCreators converts CodeMeta Person objects into Invenio creators. Invenio
// wants "family, given" names and bare ORCIDs.
func mapCreators(authors model.List) []any {
	creators := make([]any, 0, len(authors))
	for _, rawAuthor := range authors {
		author, ok := rawAuthor.(model.Map)
		if !ok {
			continue
		}
		creator := map[string]any{}

		family, _ := author["familyName"].(model.String)
		given, _ := author["givenName"].(model.String)
		if family != "" && given != "" {
			creator["name"] = string(family) + ", " + string(given)
		} else if name, ok := author["name"].(model.String); ok {
			creator["name"] = string(name)
		}

		if id, ok := author["@id"].(model.String); ok {
			if orcid := strings.TrimPrefix(string(id), orcidURLPrefix); orcid != string(id) {
				creator["orcid"] = orcid
			}
		}
		if affiliation, ok := author["affiliation"].(model.Map); ok {
			if legalName, ok := affiliation["legalName"].(model.String); ok {
				creator["affiliation"] = string(legalName)
			}
		}

		if len(creator) > 0 {
			creators = append(creators, creator)
		}
	}
	return creators
}

// snapshotMetadata stores the mapped deposition metadata in the deposit
// cache. Useful when debugging what was actually sent.
func (d *InvenioDepositor) snapshotMetadata(metadata map[string]any) error {
	path, err := d.ws.CachePath(depositStage, invenioCacheName, true)
	if err != nil {
		return err
	}
	return writeJSON(path, metadata)
}

func (d *InvenioDepositor) saveRecord(record Record) error {
	path, err := d.ws.CachePath(depositStage, depositRecordName, true)
	if err != nil {
		return err
	}
	return writeJSON(path, record)
}
