package model

// SearchHit is a single document returned by one retrieval strategy
// against the statement store.
type SearchHit struct {
	DocID       string  `json:"docId"`
	Score       float64 `json:"score"`
	AccountNo   string  `json:"accountNo,omitempty"`
	AccountName string  `json:"accountName,omitempty"`
	BankName    string  `json:"bankName,omitempty"`
	PeriodFrom  string  `json:"periodFrom,omitempty"`
	PeriodTo    string  `json:"periodTo,omitempty"`
	Page        int     `json:"page,omitempty"`
	Summary     string  `json:"summary,omitempty"`
	Text        string  `json:"text,omitempty"`
}

// FusedResult is a document after reciprocal rank fusion of several
// ranked lists.
type FusedResult struct {
	Hit      SearchHit `json:"hit"`
	RRFScore float64   `json:"rrfScore"`
	// PerListRank maps the source list name to the document's 1-based
	// rank in that list. Lists that did not return the document are
	// absent.
	PerListRank map[string]int `json:"perListRank"`
}

// Provenance ties a result back to its source statement for citation.
type Provenance struct {
	SourceID      string  `json:"sourceId"`
	Page          int     `json:"page"`
	Score         float64 `json:"score"`
	CitationLabel string  `json:"citationLabel"`
}
