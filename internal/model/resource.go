package model

import "strconv"

// ResourceRecord is one resource of a structured dataset.
type ResourceRecord struct {
	ResourceID      string `json:"resource_id"`
	ResourceName    string `json:"resource_name"`
	Format          string `json:"format"`
	SourceURL       string `json:"source_url"`
	DatasetID       string `json:"dataset_id"`
	DatasetTitle    string `json:"dataset_title"`
	DatastoreActive bool   `json:"datastore_active"`

	// Payload is the size-capped raw content of the resource.
	Payload []byte `json:"-"`

	// Truncated is true when Payload was cut at the byte ceiling.
	Truncated bool `json:"truncated"`
}

// WholePayload is the RecordIndex of a match against the full resource
// payload rather than against a single datastore record.
const WholePayload = -1

// ResourceMatch pairs a resource, or one record of it, with its score.
type ResourceMatch struct {
	Resource ResourceRecord `json:"resource"`

	// RecordIndex is the datastore record position, or WholePayload.
	RecordIndex int `json:"record_index"`

	// Text is the text that was scored.
	Text string `json:"-"`

	Match KeywordMatch `json:"match"`
}

// Key identifies a resource match for deduplication.
func (m ResourceMatch) Key() string {
	return m.Resource.SourceURL + "#" + m.Resource.ResourceID + "#" + strconv.Itoa(m.RecordIndex)
}

// Snippet returns the first keyword context, or the start of the scored text.
func (m ResourceMatch) Snippet() string {
	if len(m.Match.Contexts) > 0 {
		return m.Match.Contexts[0]
	}
	return TruncateRunes(m.Text, snippetFallbackRunes)
}
