package engine

import (
	"fmt"
	"strings"
)

// ContextOverflowError is returned when compression cannot bring the
// window under the target without dropping a protected entry.
type ContextOverflowError struct {
	TotalTokens int
	Target      int
}

func (e *ContextOverflowError) Error() string {
	return fmt.Sprintf("context overflow: %d tokens exceeds target %d even after compression", e.TotalTokens, e.Target)
}

// ContextWindow implements the Context Window Manager (C4): a bounded,
// ordered sequence of Entries with guaranteed-reduction compression.
//
// Invariants: the system entry and the goal entry are never dropped; at
// most one goal entry exists at a time. HardLimit is recorded for callers;
// neither Append nor CompressIfNeeded enforces it.
type ContextWindow struct {
	entries []Entry

	HardLimit   int // default 8000
	SoftLimit   int // default 6000 - compression trigger
	TargetLimit int // default 4000 - compression post-condition
}

// NewContextWindow returns a ContextWindow configured with the spec's
// default limits. Callers may override via the exported fields (typically
// sourced from config.View).
func NewContextWindow() *ContextWindow {
	return &ContextWindow{
		HardLimit:   8000,
		SoftLimit:   6000,
		TargetLimit: 4000,
	}
}

// Append adds entry to the window, estimating its token count if not
// already set. A goal entry replaces any existing goal entry rather than
// accumulating a second one, preserving the "at most one goal entry"
// invariant.
func (c *ContextWindow) Append(e Entry) {
	if e.TokenEstimate == 0 && e.Text != "" {
		e.TokenEstimate = EstimateTokens(e.Text)
	}
	if e.Kind == EntryGoal {
		for i, existing := range c.entries {
			if existing.Kind == EntryGoal {
				c.entries[i] = e
				return
			}
		}
	}
	c.entries = append(c.entries, e)
}

// Entries returns a read-only snapshot of the current entries.
func (c *ContextWindow) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// TotalTokens returns the running sum of TokenEstimate across all entries.
func (c *ContextWindow) TotalTokens() int {
	return EstimateEntries(c.entries)
}

// CompressIfNeeded compresses the window when TotalTokens() exceeds
// SoftLimit. Preserves the system entry, the goal entry, and the last
// three assistant/observation entries verbatim; everything else is
// replaced by a single synthesized summary entry describing effect kinds
// and outcomes. Post-condition on success: TotalTokens() <= TargetLimit and
// the reduction ratio is at least 33%. If that cannot be achieved without
// dropping a protected entry, returns *ContextOverflowError.
func (c *ContextWindow) CompressIfNeeded() error {
	before := c.TotalTokens()
	if before <= c.SoftLimit {
		return nil
	}

	protectedIdx := c.protectedIndices()
	protectedTokens := 0
	for idx := range protectedIdx {
		protectedTokens += c.entries[idx].TokenEstimate
	}

	if protectedTokens > c.TargetLimit {
		return &ContextOverflowError{TotalTokens: before, Target: c.TargetLimit}
	}

	var preserved []Entry
	var summarized []Entry
	for i, e := range c.entries {
		if _, ok := protectedIdx[i]; ok {
			preserved = append(preserved, e)
		} else {
			summarized = append(summarized, e)
		}
	}

	remaining := c.TargetLimit - protectedTokens
	summary := synthesizeSummary(summarized, remaining)

	compressed := make([]Entry, 0, len(preserved)+1)
	compressed = append(compressed, preserved...)
	if summary.Text != "" {
		compressed = append(compressed, summary)
	}
	// Restore original relative order: system/goal first, then summary,
	// then the preserved tail (last 3), matching how the entries were laid
	// down chronologically.
	compressed = reorderAfterCompression(preserved, summary)

	c.entries = compressed
	after := c.TotalTokens()

	if after > c.TargetLimit {
		return &ContextOverflowError{TotalTokens: after, Target: c.TargetLimit}
	}
	if before > 0 {
		reduction := float64(before-after) / float64(before)
		if reduction < 0.33 && before > c.TargetLimit {
			return &ContextOverflowError{TotalTokens: after, Target: c.TargetLimit}
		}
	}
	return nil
}

// protectedIndices returns the set of entry indices that must survive
// compression verbatim: the system entry, the goal entry, and the last
// three assistant/observation entries.
func (c *ContextWindow) protectedIndices() map[int]struct{} {
	idx := make(map[int]struct{})
	for i, e := range c.entries {
		if e.Kind == EntrySystem || e.Kind == EntryGoal {
			idx[i] = struct{}{}
		}
	}
	kept := 0
	for i := len(c.entries) - 1; i >= 0 && kept < 3; i-- {
		if k := c.entries[i].Kind; k == EntryAssistant || k == EntryObservation {
			idx[i] = struct{}{}
			kept++
		}
	}
	return idx
}

// synthesizeSummary builds a single Entry enumerating the effect kinds and
// outcomes of the discarded entries, trimmed to fit within budget tokens.
func synthesizeSummary(discarded []Entry, budget int) Entry {
	if len(discarded) == 0 {
		return Entry{}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[compressed %d earlier entries] ", len(discarded)))
	for _, e := range discarded {
		outcome := "ok"
		if strings.Contains(strings.ToLower(e.Text), "error") {
			outcome = "error"
		}
		sb.WriteString(fmt.Sprintf("%s:%s ", e.Kind, outcome))
	}
	text := sb.String()

	// Trim so the summary itself fits the remaining budget.
	for EstimateTokens(text) > budget && budget > 0 && len(text) > 4 {
		text = text[:len(text)-len(text)/4]
	}
	if budget <= 0 {
		text = fmt.Sprintf("[compressed %d earlier entries]", len(discarded))
	}

	return Entry{Kind: EntryObservation, Text: text, TokenEstimate: EstimateTokens(text)}
}

func reorderAfterCompression(preserved []Entry, summary Entry) []Entry {
	var head []Entry
	var tail []Entry
	for _, e := range preserved {
		if e.Kind == EntrySystem || e.Kind == EntryGoal {
			head = append(head, e)
		} else {
			tail = append(tail, e)
		}
	}
	out := make([]Entry, 0, len(head)+1+len(tail))
	out = append(out, head...)
	if summary.Text != "" {
		out = append(out, summary)
	}
	out = append(out, tail...)
	return out
}
