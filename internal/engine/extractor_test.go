package engine

import "testing"

func TestExtractorSingleCompleteObject(t *testing.T) {
	e := NewExtractor()
	e.Push(`{"final": "done"}`)
	objs, err := e.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
	if objs[0].Raw != `{"final": "done"}` {
		t.Fatalf("unexpected raw: %q", objs[0].Raw)
	}
}

func TestExtractorAcrossMultiplePushes(t *testing.T) {
	e := NewExtractor()
	e.Push(`{"tool": "rea`)
	if objs, err := e.Drain(); err != nil || len(objs) != 0 {
		t.Fatalf("expected no complete object mid-fragment, got %v err=%v", objs, err)
	}
	e.Push(`d_file", "arguments": {"path": "a.go"}}`)
	objs, err := e.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
}

func TestExtractorMultipleObjectsInOneDrain(t *testing.T) {
	e := NewExtractor()
	e.Push(`{"thought": "a"}{"thought": "b"}`)
	objs, err := e.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objs))
	}
	if objs[0].Raw != `{"thought": "a"}` || objs[1].Raw != `{"thought": "b"}` {
		t.Fatalf("unexpected order/content: %+v", objs)
	}
	if objs[0].Offset != 0 {
		t.Fatalf("expected first offset 0, got %d", objs[0].Offset)
	}
	if objs[1].Offset != len(objs[0].Raw) {
		t.Fatalf("expected second offset %d, got %d", len(objs[0].Raw), objs[1].Offset)
	}
}

func TestExtractorIgnoresBracesInsideStrings(t *testing.T) {
	e := NewExtractor()
	e.Push(`{"final": "contains } and { braces"}`)
	objs, err := e.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
}

func TestExtractorHandlesEscapedQuotes(t *testing.T) {
	e := NewExtractor()
	e.Push(`{"final": "she said \"hi } there\""}`)
	objs, err := e.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
}

func TestExtractorResyncsOnStrayClosingBrace(t *testing.T) {
	e := NewExtractor()
	e.Push(`}{"final": "ok"}`)
	objs, err := e.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("expected 1 object after resync, got %d", len(objs))
	}
}

func TestExtractorOverflowForcesFlush(t *testing.T) {
	e := NewExtractor()
	huge := make([]byte, MaxExtractorBuffer+10)
	for i := range huge {
		huge[i] = 'x'
	}
	huge[0] = '{'
	e.Push(string(huge))
	objs, err := e.Drain()
	if err == nil {
		t.Fatal("expected overflow error")
	}
	if len(objs) != 1 {
		t.Fatalf("expected forced candidate returned, got %d objects", len(objs))
	}
	if e.buf != nil {
		t.Fatalf("expected buffer reset after overflow, got len %d", len(e.buf))
	}
}

func TestExtractorOverflowDropsNonObjectGarbage(t *testing.T) {
	e := NewExtractor()
	huge := make([]byte, MaxExtractorBuffer+10)
	for i := range huge {
		huge[i] = 'x'
	}
	e.Push(string(huge))
	objs, err := e.Drain()
	if err == nil {
		t.Fatal("expected overflow error")
	}
	if len(objs) != 0 {
		t.Fatalf("expected no candidate for non-object garbage, got %d", len(objs))
	}
}

func TestParseAgentMessageToolCall(t *testing.T) {
	msg, err := ParseAgentMessage(`{"tool": "read_file", "arguments": {"path": "a.go"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Kind != MsgToolCall || msg.ToolName != "read_file" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Arguments["path"] != "a.go" {
		t.Fatalf("unexpected arguments: %+v", msg.Arguments)
	}
}

func TestParseAgentMessageFinal(t *testing.T) {
	msg, err := ParseAgentMessage(`{"final": "the answer is 42"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Kind != MsgFinal || msg.Text != "the answer is 42" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseAgentMessageThought(t *testing.T) {
	msg, err := ParseAgentMessage(`{"thought": "let me check the logs first"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Kind != MsgThought || msg.Text != "let me check the logs first" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseAgentMessageNoRecognizedVariant(t *testing.T) {
	if _, err := ParseAgentMessage(`{"foo": "bar"}`); err == nil {
		t.Fatal("expected error for unrecognized variant")
	}
}

func TestParseAgentMessageEscapeUnwrapHeuristic(t *testing.T) {
	// A model that leaked a backslash-escaped quote outside a string literal,
	// breaking strict JSON; the unwrap heuristic should recover it.
	raw := `{\"final\": \"done\"}`
	msg, err := ParseAgentMessage(raw)
	if err != nil {
		t.Fatalf("expected heuristic to recover, got error: %v", err)
	}
	if msg.Kind != MsgFinal || msg.Text != "done" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseAgentMessageInvalidJSONStaysError(t *testing.T) {
	if _, err := ParseAgentMessage(`not json at all`); err == nil {
		t.Fatal("expected error for non-JSON input")
	}
}
