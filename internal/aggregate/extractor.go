package aggregate

import (
	"regexp"
	"strings"

	"finsight/internal/model"
)

// TermExtractor derives the search terms that drive phase 2 of the
// two-step pipeline. Stop-phrase cleaning is heuristic by nature, so it
// sits behind an interface and can be swapped for an entity-based
// extractor without touching the aggregator's control flow.
type TermExtractor interface {
	// CleanQuery strips interrogative boilerplate from a raw user query.
	CleanQuery(raw string) string
	// DeriveTerms builds the ordered derived-term list from the cleaned
	// query and the phase-1 statement hits. The cleaned query, when
	// non-empty, is always the first and highest-priority term.
	DeriveTerms(cleaned string, hits []model.FusedResult) []string
}

// Boilerplate phrases stripped from queries before they become search
// terms. Multi-word phrases run before single words so "how much did i"
// disappears as a unit.
var stopPhrases = []string{
	"how much did i", "how much have i", "how much",
	"what did i", "what have i",
	"when did i", "when have i",
	"where did i", "where have i",
	"did i spend on", "have i spent on", "did i spend", "have i spent",
	"i spent on", "i spend on", "i spent", "i spend",
	"show me", "tell me", "give me", "list all", "find all",
	"sum of", "spent on", "spend on",
	"what", "when", "where", "which",
	"list", "find", "total", "sum", "spent", "spend",
	"on", "my", "the", "a", "me", "all", "are",
}

// hitPreviewLen bounds how much of a statement hit feeds a derived term.
const hitPreviewLen = 100

// maxHitTerms caps how many phase-1 hits contribute candidate terms.
const maxHitTerms = 5

// StopPhraseExtractor is the default TermExtractor: fixed-list phrase
// stripping with word-boundary matching.
type StopPhraseExtractor struct {
	patterns []*regexp.Regexp
}

// NewStopPhraseExtractor compiles the stop-phrase patterns.
func NewStopPhraseExtractor() *StopPhraseExtractor {
	patterns := make([]*regexp.Regexp, 0, len(stopPhrases))
	for _, phrase := range stopPhrases {
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(phrase)+`\b`))
	}
	return &StopPhraseExtractor{patterns: patterns}
}

// CleanQuery lower-cases the query, strips punctuation and stop phrases,
// and normalizes whitespace. A query that is all boilerplate cleans to "".
func (e *StopPhraseExtractor) CleanQuery(raw string) string {
	cleaned := strings.ToLower(raw)
	cleaned = strings.NewReplacer("?", "", "!", "", ",", "", ".", " ").Replace(cleaned)

	for _, pattern := range e.patterns {
		cleaned = pattern.ReplaceAllString(cleaned, " ")
	}

	return strings.Join(strings.Fields(cleaned), " ")
}

// DeriveTerms orders the derived filters: cleaned query first, then the
// leading text of up to five statement hits.
func (e *StopPhraseExtractor) DeriveTerms(cleaned string, hits []model.FusedResult) []string {
	var terms []string
	if cleaned != "" {
		terms = append(terms, cleaned)
	}

	for i, hit := range hits {
		if i >= maxHitTerms {
			break
		}
		preview := hitPreview(hit.Hit)
		if preview != "" {
			terms = append(terms, preview)
		}
	}

	return terms
}

// hitPreview takes the leading text of a hit, preferring the summary
// field, cut at a word boundary near hitPreviewLen.
func hitPreview(hit model.SearchHit) string {
	text := hit.Summary
	if text == "" {
		text = hit.Text
	}
	text = strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if len(text) <= hitPreviewLen {
		return text
	}

	cut := text[:hitPreviewLen]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
