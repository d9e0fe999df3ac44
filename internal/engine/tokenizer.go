// Package engine provides agent orchestration functionality.
// This file implements the Token Counter (C1): a pure, deterministic
// heuristic that approximates token count within ±10% of a real tokenizer,
// without pulling in model-specific vocabularies.

package engine

import "strings"

// EstimateTokens approximates the token count of text using a
// character-based heuristic: roughly 4 characters per token, with a small
// correction for whitespace density (whitespace-heavy text tends to
// tokenize more densely than prose). Pure function, O(n) in len(text).
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := len([]rune(text))
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	estimated := (charCount / 4) + (whitespaceCount / 6)
	if estimated < 1 {
		return 1
	}
	return estimated
}

// UpperBound returns a conservative 110% margin over EstimateTokens, for
// callers that need to guarantee they never under-book a budget.
func UpperBound(text string) int {
	base := EstimateTokens(text)
	margin := (base*110 + 99) / 100 // ceil(base * 1.10)
	if margin < base {
		margin = base
	}
	return margin
}

// EstimateEntries sums TokenEstimate over a batch of Context Window
// entries. Callers are expected to keep Entry.TokenEstimate populated via
// EstimateTokens at append time; this just folds the running total.
func EstimateEntries(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += e.TokenEstimate
	}
	return total
}
