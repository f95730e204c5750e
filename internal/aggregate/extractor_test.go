package aggregate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/model"
)

func TestCleanQueryStripsBoilerplate(t *testing.T) {
	extractor := NewStopPhraseExtractor()

	tests := []struct {
		raw  string
		want string
	}{
		{"How much did I spend on international purchase?", "international purchase"},
		{"What did I spend on groceries?", "groceries"},
		{"show me all subscription charges", "subscription charges"},
		{"total ATM withdrawals in July", "atm withdrawals in july"},
		{"sum of bank fees", "bank fees"},
		{"How much did I spend?", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractor.CleanQuery(tt.raw), "raw %q", tt.raw)
	}
}

func TestCleanQueryRespectsWordBoundaries(t *testing.T) {
	extractor := NewStopPhraseExtractor()

	// "on" and "my" appear inside these words and must survive.
	assert.Equal(t, "donation to myanmar fund", extractor.CleanQuery("donation to myanmar fund"))
	assert.Equal(t, "amazon", extractor.CleanQuery("spent on amazon"))
}

func TestDeriveTermsCleanedQueryLeads(t *testing.T) {
	extractor := NewStopPhraseExtractor()
	hits := []model.FusedResult{
		{Hit: model.SearchHit{Summary: "International Purchase at Foreign Retailer"}},
		{Hit: model.SearchHit{Text: "VISA INTL FEE charged on 2025-07-03"}},
	}

	terms := extractor.DeriveTerms("international purchase", hits)
	require.Len(t, terms, 3)
	assert.Equal(t, "international purchase", terms[0])
	assert.Equal(t, "international purchase at foreign retailer", terms[1])
	assert.Equal(t, "visa intl fee charged on 2025-07-03", terms[2])
}

func TestDeriveTermsWithoutCleanedQuery(t *testing.T) {
	extractor := NewStopPhraseExtractor()
	hits := []model.FusedResult{
		{Hit: model.SearchHit{Summary: "monthly service fee"}},
	}

	terms := extractor.DeriveTerms("", hits)
	require.Len(t, terms, 1)
	assert.Equal(t, "monthly service fee", terms[0])
}

func TestDeriveTermsCapsHitContributions(t *testing.T) {
	extractor := NewStopPhraseExtractor()
	var hits []model.FusedResult
	for i := 0; i < 10; i++ {
		hits = append(hits, model.FusedResult{Hit: model.SearchHit{Summary: "fee entry"}})
	}

	terms := extractor.DeriveTerms("fees", hits)
	assert.Len(t, terms, 1+maxHitTerms)
}

func TestHitPreviewCutsAtWordBoundary(t *testing.T) {
	long := strings.Repeat("withdrawal ", 20)
	preview := hitPreview(model.SearchHit{Text: long})

	assert.LessOrEqual(t, len(preview), hitPreviewLen)
	assert.False(t, strings.HasSuffix(preview, " "))
	// Never cut mid-word.
	for _, word := range strings.Fields(preview) {
		assert.Equal(t, "withdrawal", word)
	}
}

func TestHitPreviewPrefersSummary(t *testing.T) {
	preview := hitPreview(model.SearchHit{Summary: "Card Fees", Text: "long raw text"})
	assert.Equal(t, "card fees", preview)
}
