package deposit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const userAgent = "hermes-go/0.1.0"

// invenioDeposition is the subset of a deposition response the pipeline acts
// on.
type invenioDeposition struct {
	ID    string `json:"-"`
	RawID any    `json:"id"`
	DOI   string `json:"doi"`
	Links struct {
		HTML        string `json:"html"`
		Bucket      string `json:"bucket"`
		Publish     string `json:"publish"`
		LatestDraft string `json:"latest_draft"`
		RecordHTML  string `json:"record_html"`
		Latest      string `json:"latest"`
	} `json:"links"`
	Metadata struct {
		Version string `json:"version"`
	} `json:"metadata"`
}

// invenioClient talks to the deposition API of one Invenio instance.
type invenioClient struct {
	siteURL string
	token   string
	client  *http.Client
}

func newInvenioClient(siteURL, token string) *invenioClient {
	return &invenioClient{
		siteURL: strings.TrimRight(siteURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// CreateDeposition opens a new deposition draft carrying metadata.
func (c *invenioClient) CreateDeposition(ctx context.Context, metadata map[string]any) (*invenioDeposition, error) {
	return c.jsonRequest(ctx, http.MethodPost, c.siteURL+"/api/deposit/depositions",
		map[string]any{"metadata": metadata})
}

// LatestRecord resolves a record id to its latest published version.
func (c *invenioClient) LatestRecord(ctx context.Context, recordID string) (*invenioDeposition, error) {
	record, err := c.jsonRequest(ctx, http.MethodGet, c.siteURL+"/api/records/"+recordID, nil)
	if err != nil {
		return nil, err
	}
	if record.Links.Latest == "" {
		return record, nil
	}
	return c.jsonRequest(ctx, http.MethodGet, record.Links.Latest, nil)
}

// NewVersion opens a draft for a new version of recordID and puts metadata on
// it.
func (c *invenioClient) NewVersion(ctx context.Context, recordID string, metadata map[string]any) (*invenioDeposition, error) {
	created, err := c.jsonRequest(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/deposit/depositions/%s/actions/newversion", c.siteURL, recordID), nil)
	if err != nil {
		return nil, err
	}
	draftURL := created.Links.LatestDraft
	if draftURL == "" {
		return nil, fmt.Errorf("new version of %s has no draft link", recordID)
	}
	return c.jsonRequest(ctx, http.MethodPut, draftURL, map[string]any{"metadata": metadata})
}

// UploadFile puts one local file into the deposition bucket. The bucket API
// is used instead of the files API because it has no 100MB limit.
func (c *invenioClient) UploadFile(ctx context.Context, bucketURL, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload %s: %w", path, err)
	}
	defer file.Close()

	url := strings.TrimRight(bucketURL, "/") + "/" + filepath.Base(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return err
	}
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("upload %s: %s", path, responseDetail(resp))
	}
	return nil
}

// Publish finalizes a deposition draft.
func (c *invenioClient) Publish(ctx context.Context, publishURL string) (*invenioDeposition, error) {
	return c.jsonRequest(ctx, http.MethodPost, publishURL, nil)
}

func (c *invenioClient) jsonRequest(ctx context.Context, method, url string, payload any) (*invenioDeposition, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	c.decorate(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: %s", method, url, responseDetail(resp))
	}

	var deposition invenioDeposition
	if err := json.NewDecoder(resp.Body).Decode(&deposition); err != nil {
		return nil, fmt.Errorf("%s %s: decode response: %w", method, url, err)
	}
	deposition.ID = stringifyID(deposition.RawID)
	return &deposition, nil
}

func (c *invenioClient) decorate(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.token)
}

// stringifyID tolerates instances that serve record ids as numbers.
func stringifyID(raw any) string {
	switch id := raw.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func responseDetail(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(data))
	if detail == "" {
		return resp.Status
	}
	return resp.Status + ": " + detail
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
