package engine

import (
	"fmt"
	"strings"

	"finsight/internal/model"
)

// intentVerbs restates each intent in plain language for confirmation
// summaries. Enum names and identifiers never reach the user.
var intentVerbs = map[model.Intent]string{
	model.IntentAggregate:              "add up the matching transactions",
	model.IntentTrend:                  "chart your income and spending over time",
	model.IntentListing:                "list the matching transactions",
	model.IntentTextQA:                 "look for the answer in your statements",
	model.IntentProvenance:             "find the source pages in your statements",
	model.IntentAggregateFilteredByText: "search your statements and total the matching transactions",
}

// confirmationSummary builds the plain-language restatement shown when
// confidence is low but no specific clarification was requested.
func confirmationSummary(c model.IntentClassification) string {
	verb, ok := intentVerbs[c.Intent]
	if !ok {
		verb = "look into that"
	}

	var phrases []string
	f := c.Filters

	switch {
	case f.DateFrom != "" && f.DateTo != "":
		phrases = append(phrases, fmt.Sprintf("between %s and %s", f.DateFrom, f.DateTo))
	case f.DateFrom != "":
		phrases = append(phrases, "since "+f.DateFrom)
	case f.DateTo != "":
		phrases = append(phrases, "up to "+f.DateTo)
	}

	if len(f.AccountIDs) == 1 {
		phrases = append(phrases, "for account "+f.AccountIDs[0])
	} else if len(f.AccountIDs) > 1 {
		phrases = append(phrases, "for accounts "+strings.Join(f.AccountIDs, ", "))
	}

	if len(f.Counterparty) > 0 {
		phrases = append(phrases, fmt.Sprintf("involving %q", strings.Join(f.Counterparty, ", ")))
	}

	switch {
	case f.MinAmount != nil && f.MaxAmount != nil:
		phrases = append(phrases, fmt.Sprintf("with amounts between %.2f and %.2f", *f.MinAmount, *f.MaxAmount))
	case f.MinAmount != nil:
		phrases = append(phrases, fmt.Sprintf("with amounts over %.2f", *f.MinAmount))
	case f.MaxAmount != nil:
		phrases = append(phrases, fmt.Sprintf("with amounts under %.2f", *f.MaxAmount))
	}

	switch f.Type {
	case model.TypeCredit:
		phrases = append(phrases, "counting only money coming in")
	case model.TypeDebit:
		phrases = append(phrases, "counting only money going out")
	}

	summary := "It sounds like you want me to " + verb
	if len(phrases) > 0 {
		summary += " " + strings.Join(phrases, ", ")
	}
	return summary + ". Should I go ahead?"
}

// acceptWords and rejectWords interpret a free-text reply to a
// confirmation prompt.
var (
	acceptWords = map[string]bool{
		"yes": true, "y": true, "yeah": true, "yep": true, "ok": true,
		"okay": true, "sure": true, "confirm": true, "go ahead": true,
		"proceed": true, "correct": true, "right": true,
	}
	rejectWords = map[string]bool{
		"no": true, "n": true, "nope": true, "cancel": true, "stop": true,
		"wrong": true, "nevermind": true, "never mind": true,
	}
)

// interpretConfirmation classifies a confirmation reply. Anything that is
// neither a clear accept nor a clear reject is treated as a new query.
func interpretConfirmation(text string) (accepted, rejected bool) {
	normalized := strings.ToLower(strings.TrimSpace(strings.Trim(text, ".!")))
	if acceptWords[normalized] {
		return true, false
	}
	if rejectWords[normalized] {
		return false, true
	}
	return false, false
}

// isSkip reports whether a clarification reply asks to proceed without
// answering.
func isSkip(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	return normalized == "" || normalized == "skip" || normalized == "just search" || normalized == "proceed anyway"
}
