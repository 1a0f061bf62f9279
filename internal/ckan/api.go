package ckan

import (
	"encoding/json"
	"strings"

	"github.com/nao1215/kwcrawl/internal/model"
)

// envelope is the response wrapper of every CKAN action.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"__type"`
}

type packageResult struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Title     string        `json:"title"`
	Resources []apiResource `json:"resources"`
}

type apiResource struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Format          string `json:"format"`
	URL             string `json:"url"`
	AccessURL       string `json:"access_url"`
	DatastoreActive bool   `json:"datastore_active"`
}

type searchResult struct {
	Count   int             `json:"count"`
	Results []packageResult `json:"results"`
}

type datastoreResult struct {
	Records []json.RawMessage `json:"records"`
}

// title returns the dataset title, falling back to its name and then id.
func (p *packageResult) title(datasetID string) string {
	switch {
	case p.Title != "":
		return p.Title
	case p.Name != "":
		return p.Name
	default:
		return datasetID
	}
}

func (p *packageResult) records(datasetID string) []model.ResourceRecord {
	title := p.title(datasetID)
	out := make([]model.ResourceRecord, 0, len(p.Resources))
	for _, r := range p.Resources {
		name := r.Name
		if name == "" {
			name = r.ID
		}
		src := r.URL
		if src == "" {
			src = r.AccessURL
		}
		out = append(out, model.ResourceRecord{
			ResourceID:      r.ID,
			ResourceName:    name,
			Format:          strings.ToLower(r.Format),
			SourceURL:       src,
			DatasetID:       datasetID,
			DatasetTitle:    title,
			DatastoreActive: r.DatastoreActive,
		})
	}
	return out
}
