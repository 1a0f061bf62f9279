package model

// KeywordMatch is the result of scoring a text against one keyword.
//
// Contexts are deduplicated by text content while Occurrences counts raw
// matches, so len(Contexts) <= Occurrences always holds.
type KeywordMatch struct {
	// Keyword is the literal keyword that was searched for.
	Keyword string `json:"keyword"`

	// Occurrences is the number of case-insensitive matches in the text.
	Occurrences int `json:"occurrences"`

	// Contexts are the character windows around each match, in order of
	// first occurrence.
	Contexts []string `json:"contexts"`

	// Sentences are the whole sentences that contain the keyword.
	Sentences []string `json:"sentences"`

	// NumbersNear are numeric tokens found close to a match.
	NumbersNear []string `json:"numbers_near"`

	// DatesNear are date-like tokens found anywhere in the text.
	// This is a low-precision signal: bare years over-match.
	DatesNear []string `json:"dates_near"`

	// Categories are the labels of configured term lists that also
	// appear in the text (e.g. "incident", "illegal").
	Categories []string `json:"categories,omitempty"`
}

// Matched reports whether the keyword occurred at least once.
func (m KeywordMatch) Matched() bool {
	return m.Occurrences > 0
}
