package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxExtractorBuffer is the hard cap on the Extractor's accumulation
// buffer (1 MiB). On overflow the current candidate is force-parsed and
// the buffer is reset.
const MaxExtractorBuffer = 1 << 20

// ParsedObject is one complete JSON object the Extractor pulled out of the
// growing fragment stream, together with the byte offset it started at
// (useful for error reporting).
type ParsedObject struct {
	Raw    string
	Offset int
}

// Extractor implements the Incremental JSON Extractor (C2): bracket-balanced
// extraction of complete top-level JSON objects from a growing text buffer.
// push accumulates fragments; drain returns every complete object found
// since the last drain, in input order.
type Extractor struct {
	buf       []byte
	totalSeen int // running offset of buf[0] within the overall stream
}

// NewExtractor returns an empty Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Push accumulates fragment into the internal buffer. It never fails;
// buffer overflow is handled and reported by Drain.
func (e *Extractor) Push(fragment string) {
	e.buf = append(e.buf, fragment...)
}

// Drain returns every complete top-level JSON object accumulated since the
// last Drain, in input order, then advances the buffer past them.
//
// Algorithm (linear scan, O(n) in buffer length): maintain a depth counter,
// a string-state flag, and an escape flag; a candidate is complete when
// depth returns to zero after having been >= 1. Braces inside string
// literals are ignored via the string-state flag.
func (e *Extractor) Drain() ([]ParsedObject, error) {
	var out []ParsedObject

	for {
		start, end, found := findCompleteJSON(e.buf)
		if !found {
			break
		}
		raw := string(e.buf[start : end+1])
		out = append(out, ParsedObject{Raw: raw, Offset: e.totalSeen + start})
		advance := end + 1
		e.buf = e.buf[advance:]
		e.totalSeen += advance
	}

	if len(e.buf) > MaxExtractorBuffer {
		// Force-parse whatever candidate exists and reset, per the buffer
		// overflow recovery policy: the current candidate is force-parsed
		// (best effort) and the buffer is dropped so the stream can
		// continue from the next top-level object.
		forced := string(e.buf)
		e.totalSeen += len(e.buf)
		e.buf = nil
		if looksLikeObjectStart(forced) {
			out = append(out, ParsedObject{Raw: forced, Offset: e.totalSeen - len(forced)})
		}
		return out, fmt.Errorf("extractor buffer overflow: forced flush of %d bytes", len(forced))
	}

	return out, nil
}

func looksLikeObjectStart(s string) bool {
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			continue
		}
		return r == '{'
	}
	return false
}

// findCompleteJSON scans buf for the first complete top-level JSON object,
// tracking string/escape state so braces inside string literals are
// ignored. Mirrors the bracket-matching algorithm:
//
//	depth <- 0, start <- none
//	for each byte b at i:
//	  if b == '{': if depth == 0 { start = i }; depth++
//	  if b == '}': depth--; if depth == 0 && start != none { return [start, i] }
func findCompleteJSON(buf []byte) (start, end int, found bool) {
	depth := 0
	start = -1
	inString := false
	escapeNext := false

	for i, b := range buf {
		if escapeNext {
			escapeNext = false
			continue
		}
		if b == '\\' && inString {
			escapeNext = true
			continue
		}
		if b == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch b {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				return start, i, true
			}
			if depth < 0 {
				// Mismatched braces before any object opened; resync by
				// ignoring the stray closer and continuing the scan.
				depth = 0
				start = -1
			}
		}
	}
	return 0, 0, false
}

// ParseAgentMessage parses one extracted JSON object into an AgentMessage.
// If the raw parse fails, it applies the escape-unwrap heuristic some model
// outputs require: some models leak a backslash-escaped quote outside of
// any string literal (e.g. emitting \" where a plain " was meant), which
// breaks strict JSON parsing. The heuristic is applied only after a raw
// parse failure, and only `\"` -> `"` is rewritten, to avoid corrupting
// legitimately escaped content.
func ParseAgentMessage(raw string) (AgentMessage, error) {
	msg, err := parseAgentMessageStrict(raw)
	if err == nil {
		return msg, nil
	}

	unescaped := strings.ReplaceAll(raw, `\"`, `"`)
	if unescaped == raw {
		return AgentMessage{}, err
	}
	msg, err2 := parseAgentMessageStrict(unescaped)
	if err2 != nil {
		return AgentMessage{}, err
	}
	return msg, nil
}

func parseAgentMessageStrict(raw string) (AgentMessage, error) {
	var rm rawAgentMessage
	if err := json.Unmarshal([]byte(raw), &rm); err != nil {
		return AgentMessage{}, fmt.Errorf("parse agent message: %w", err)
	}

	switch {
	case len(rm.Tools) > 0:
		calls := make([]ToolCall, len(rm.Tools))
		for i, c := range rm.Tools {
			calls[i] = ToolCall{ToolName: c.Tool, Arguments: c.Arguments}
		}
		return AgentMessage{
			Kind:      MsgToolCall,
			ToolName:  calls[0].ToolName,
			Arguments: calls[0].Arguments,
			ToolCalls: calls,
		}, nil
	case rm.Tool != "":
		return AgentMessage{Kind: MsgToolCall, ToolName: rm.Tool, Arguments: rm.Arguments}, nil
	case rm.Final != "":
		return AgentMessage{Kind: MsgFinal, Text: rm.Final}, nil
	case rm.Thought != "":
		return AgentMessage{Kind: MsgThought, Text: rm.Thought}, nil
	default:
		return AgentMessage{}, fmt.Errorf("parse agent message: no recognized variant in %q", raw)
	}
}
