package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Aidajafarbigloo/hermes/internal/model"
	"github.com/Aidajafarbigloo/hermes/internal/workspace"
)

// Report is the curation view over one processed run: the merged tree, who
// committed each address, and the disagreements the merge recorded.
type Report struct {
	Document  model.Map
	Tags      map[string]model.TagInfo
	Conflicts []model.Conflict
}

// Addresses returns the tagged addresses in sorted order.
func (r *Report) Addresses() []string {
	out := make([]string, 0, len(r.Tags))
	for address := range r.Tags {
		out = append(out, address)
	}
	sort.Strings(out)
	return out
}

// LoadReport reads the process stage artifacts back from the cache. It fails
// with a CacheMissError when process has not run yet.
func LoadReport(ws *workspace.Workspace) (*Report, error) {
	docPath, err := ws.Resolve(StageProcess, DocumentArtifact)
	if err != nil {
		return nil, err
	}
	doc, err := model.LoadDocument(ws, docPath)
	if err != nil {
		return nil, err
	}

	tags, err := loadTags(ws)
	if err != nil {
		return nil, err
	}
	conflicts, err := loadConflicts(ws)
	if err != nil {
		return nil, err
	}
	return &Report{Document: doc.Data(), Tags: tags, Conflicts: conflicts}, nil
}

func loadTags(ws *workspace.Workspace) (map[string]model.TagInfo, error) {
	path, err := ws.Resolve(StageProcess, TagsArtifact)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}

	// SaveTags flattens the detail keys next to the tag itself.
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	tags := make(map[string]model.TagInfo, len(raw))
	for address, fields := range raw {
		info := model.TagInfo{Tag: fields["tag"]}
		for key, value := range fields {
			if key == "tag" {
				continue
			}
			if info.Meta == nil {
				info.Meta = map[string]string{}
			}
			info.Meta[key] = value
		}
		tags[address] = info
	}
	return tags, nil
}

func saveConflicts(ws *workspace.Workspace, conflicts []model.Conflict) error {
	path, err := ws.CachePath(StageProcess, ConflictsArtifact, true)
	if err != nil {
		return err
	}
	if conflicts == nil {
		conflicts = []model.Conflict{}
	}
	data, err := json.MarshalIndent(conflicts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conflicts: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write conflicts: %w", err)
	}
	return nil
}

func loadConflicts(ws *workspace.Workspace) ([]model.Conflict, error) {
	path, err := ws.Resolve(StageProcess, ConflictsArtifact)
	if err != nil {
		// Older caches may predate the conflict artifact.
		if _, ok := err.(*model.CacheMissError); ok {
			return nil, nil
		}
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read conflicts: %w", err)
	}
	var conflicts []model.Conflict
	if err := json.Unmarshal(data, &conflicts); err != nil {
		return nil, fmt.Errorf("decode conflicts: %w", err)
	}
	return conflicts, nil
}
