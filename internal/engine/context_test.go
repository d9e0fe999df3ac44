package engine

import "testing"

func TestContextWindowAppendEstimatesTokens(t *testing.T) {
	w := NewContextWindow()
	w.Append(Entry{Kind: EntryAssistant, Text: "hello there"})
	entries := w.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].TokenEstimate <= 0 {
		t.Fatalf("expected a positive token estimate, got %d", entries[0].TokenEstimate)
	}
}

func TestContextWindowAtMostOneGoalEntry(t *testing.T) {
	w := NewContextWindow()
	w.Append(Entry{Kind: EntryGoal, Text: "first goal"})
	w.Append(Entry{Kind: EntryAssistant, Text: "something in between"})
	w.Append(Entry{Kind: EntryGoal, Text: "revised goal"})

	entries := w.Entries()
	var goals int
	for _, e := range entries {
		if e.Kind == EntryGoal {
			goals++
			if e.Text != "revised goal" {
				t.Fatalf("expected goal entry replaced with latest text, got %q", e.Text)
			}
		}
	}
	if goals != 1 {
		t.Fatalf("expected exactly one goal entry, got %d", goals)
	}
}

func TestContextWindowTotalTokensMatchesEstimateEntries(t *testing.T) {
	w := NewContextWindow()
	w.Append(Entry{Kind: EntrySystem, Text: "system prompt text"})
	w.Append(Entry{Kind: EntryGoal, Text: "do the thing"})
	if w.TotalTokens() != EstimateEntries(w.Entries()) {
		t.Fatalf("TotalTokens mismatch: %d vs %d", w.TotalTokens(), EstimateEntries(w.Entries()))
	}
}

func TestContextWindowCompressNoopBelowSoftLimit(t *testing.T) {
	w := NewContextWindow()
	w.Append(Entry{Kind: EntrySystem, Text: "sys"})
	w.Append(Entry{Kind: EntryGoal, Text: "goal"})
	before := w.TotalTokens()
	if err := w.CompressIfNeeded(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.TotalTokens() != before {
		t.Fatalf("expected no-op compression, tokens changed %d -> %d", before, w.TotalTokens())
	}
}

func TestContextWindowCompressPreservesProtectedEntries(t *testing.T) {
	w := NewContextWindow()
	w.SoftLimit = 150
	w.TargetLimit = 100

	w.Append(Entry{Kind: EntrySystem, Text: "system instructions for the assistant"})
	w.Append(Entry{Kind: EntryGoal, Text: "accomplish the stated goal"})
	for i := 0; i < 20; i++ {
		w.Append(Entry{Kind: EntryObservation, Text: "tool ran and produced some moderately long output text here"})
	}

	if err := w.CompressIfNeeded(); err != nil {
		t.Fatalf("unexpected overflow error: %v", err)
	}

	entries := w.Entries()
	if entries[0].Kind != EntrySystem {
		t.Fatalf("expected system entry preserved first, got %v", entries[0].Kind)
	}
	var sawGoal bool
	for _, e := range entries {
		if e.Kind == EntryGoal {
			sawGoal = true
		}
	}
	if !sawGoal {
		t.Fatal("expected goal entry to survive compression")
	}
	if w.TotalTokens() > w.TargetLimit {
		t.Fatalf("expected compression to bring tokens under target, got %d > %d", w.TotalTokens(), w.TargetLimit)
	}
}

func TestContextWindowCompressOverflowWhenProtectedExceedsTarget(t *testing.T) {
	w := NewContextWindow()
	w.SoftLimit = 5
	w.TargetLimit = 5

	w.Append(Entry{Kind: EntrySystem, Text: "a very long system prompt that by itself already exceeds the tiny target limit configured for this test case"})
	w.Append(Entry{Kind: EntryGoal, Text: "goal"})

	err := w.CompressIfNeeded()
	if err == nil {
		t.Fatal("expected ContextOverflowError when protected entries alone exceed target")
	}
	if _, ok := err.(*ContextOverflowError); !ok {
		t.Fatalf("expected *ContextOverflowError, got %T", err)
	}
}

func TestContextOverflowErrorMessage(t *testing.T) {
	err := &ContextOverflowError{TotalTokens: 100, Target: 40}
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
}
