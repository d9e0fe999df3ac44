// Package netfetch implements the web_fetch tool (C7), the one
// network-effect tool of the registry. Rate-limited by the Runtime's
// shared network slot (golang.org/x/time/rate) rather than internally,
// since the limiter must be shared across every network-effect call in a
// task, not reset per tool instance.
package netfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentcore/agentcore/internal/tools"
)

const defaultMaxBytes = 1 << 20 // 1 MiB

// NewWebFetchTool implements the web_fetch tool of spec §6:
// { url: string, max_bytes?: uint }. allowNetwork gates whether the tool
// is even registered — callers should omit it from the registry entirely
// when config.View.AllowNetwork is false rather than relying on a runtime
// check, so an LLM never sees a tool it cannot use.
func NewWebFetchTool() tools.Tool {
	client := &http.Client{Timeout: 30 * time.Second}
	return tools.Tool{
		Name:          "web_fetch",
		Description:   "Fetches a URL over HTTP(S) and returns its body, truncated to max_bytes.",
		SchemaJSON:    `{"type":"object","properties":{"url":{"type":"string","format":"uri"},"max_bytes":{"type":"integer","minimum":1}},"required":["url"]}`,
		ReadOnly:      true,
		NetworkEffect: true,
		Retryable:     true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			url, _ := args["url"].(string)
			if url == "" {
				return "", fmt.Errorf("url must not be empty")
			}
			maxBytes := defaultMaxBytes
			if mb, ok := args["max_bytes"].(float64); ok && mb > 0 {
				maxBytes = int(mb)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return "", fmt.Errorf("build request: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("fetch %s: %w", url, err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBytes)+1))
			if err != nil {
				return "", fmt.Errorf("read body: %w", err)
			}
			truncated := len(body) > maxBytes
			if truncated {
				body = body[:maxBytes]
			}

			out := map[string]any{
				"url":         url,
				"status_code": resp.StatusCode,
				"body":        string(body),
				"truncated":   truncated,
			}
			payload, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("marshal web_fetch result: %w", err)
			}
			return string(payload), nil
		},
	}
}
