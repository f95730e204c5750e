package tui

import (
	"fmt"
	"strings"

	"finsight/internal/engine"
	"finsight/internal/model"
)

// maxRenderedRows bounds how many listing rows and citations the chat
// log shows for one answer.
const maxRenderedRows = 15

// renderResponse formats one engine response for the chat log.
func renderResponse(resp engine.Response) string {
	switch resp.Kind {
	case engine.ResponseNeedsClarification:
		return QuestionStyle.Render(resp.Question)
	case engine.ResponseNeedsConfirmation:
		return QuestionStyle.Render(resp.Summary)
	case engine.ResponseReset:
		return "Okay, I've discarded that. What would you like to know?"
	case engine.ResponseResult:
		return renderResult(resp.Result)
	}
	return ""
}

func renderResult(result *engine.Result) string {
	if result == nil {
		return ""
	}
	if result.Notice != "" {
		return NoticeStyle.Render(result.Notice)
	}

	var lines []string
	if result.Unclassified {
		lines = append(lines, NoticeStyle.Render("I wasn't sure what you meant, so here is what a search turned up:"))
	}
	if result.Degraded {
		lines = append(lines, NoticeStyle.Render("I went ahead with my best interpretation of your question."))
	}

	if result.Answer != "" {
		lines = append(lines, result.Answer)
	}
	if result.Aggregation != nil {
		lines = append(lines, renderAggregation(result.Aggregation, result.DerivedFilters))
	}
	if len(result.Trend) > 0 {
		lines = append(lines, renderTrend(result.Trend))
	}
	if len(result.Records) > 0 {
		lines = append(lines, renderRecords(result.Records))
	}
	if result.Answer == "" && result.Aggregation == nil && len(result.Trend) == 0 &&
		len(result.Records) == 0 && len(result.Hits) > 0 {
		lines = append(lines, renderHits(result.Hits))
	}
	if len(result.Provenance) > 0 {
		lines = append(lines, renderProvenance(result.Provenance))
	}
	if len(lines) == 0 {
		return "I didn't find anything matching that."
	}
	return strings.Join(lines, "\n")
}

func renderAggregation(agg *model.AggregationResult, derived []string) string {
	var b strings.Builder
	currency := agg.Currency
	if currency == "" {
		currency = "?"
	}
	fmt.Fprintf(&b, "Money in:  %12.2f %s\n", agg.SumCredit, currency)
	fmt.Fprintf(&b, "Money out: %12.2f %s\n", agg.SumDebit, currency)
	fmt.Fprintf(&b, "Net:       %12.2f %s\n", agg.Net, currency)
	fmt.Fprintf(&b, "Matched %d transaction(s)", agg.Count)
	if len(derived) > 0 {
		fmt.Fprintf(&b, " for: %s", strings.Join(derived, ", "))
	}
	if len(agg.TopCounterparties) > 0 {
		b.WriteString("\nTop counterparties:")
		for _, c := range agg.TopCounterparties {
			fmt.Fprintf(&b, "\n  %-30s %10.2f (%d)", c.Name, c.Total, c.Count)
		}
	}
	if len(agg.TopCategories) > 0 {
		b.WriteString("\nTop categories:")
		for _, c := range agg.TopCategories {
			fmt.Fprintf(&b, "\n  %-30s %10.2f (%d)", c.Category, c.Total, c.Count)
		}
	}
	return b.String()
}

func renderTrend(buckets []model.TrendBucket) string {
	var b strings.Builder
	b.WriteString("Period      Money in    Money out          Net  Count")
	for _, bucket := range buckets {
		fmt.Fprintf(&b, "\n%s  %10.2f  %11.2f  %11.2f  %5d",
			bucket.Start.Format("2006-01-02"), bucket.Credit, bucket.Debit, bucket.Net, bucket.Count)
	}
	return b.String()
}

func renderRecords(records []model.TransactionRecord) string {
	var b strings.Builder
	b.WriteString("Date        Amount      Type    Description")
	for i, r := range records {
		if i >= maxRenderedRows {
			fmt.Fprintf(&b, "\n... and %d more", len(records)-maxRenderedRows)
			break
		}
		fmt.Fprintf(&b, "\n%s  %10.2f  %-6s  %s",
			r.Date.Format("2006-01-02"), r.Amount, r.Type, r.Description)
	}
	return b.String()
}

func renderHits(hits []model.FusedResult) string {
	var b strings.Builder
	b.WriteString("Relevant statement passages:")
	for i, hit := range hits {
		if i >= maxRenderedRows {
			break
		}
		preview := hit.Hit.Summary
		if preview == "" {
			preview = hit.Hit.Text
		}
		if len(preview) > 120 {
			preview = preview[:120] + "..."
		}
		fmt.Fprintf(&b, "\n  %d. %s", i+1, preview)
	}
	return b.String()
}

func renderProvenance(provenance []model.Provenance) string {
	var lines []string
	lines = append(lines, "Sources:")
	for i, p := range provenance {
		if i >= maxRenderedRows {
			break
		}
		lines = append(lines, fmt.Sprintf("  [%d] %s", i+1, p.CitationLabel))
	}
	return CitationStyle.Render(strings.Join(lines, "\n"))
}
