package netfetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebFetchToolReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello from server"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool()
	out, err := tool.Fn(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result["body"] != "hello from server" {
		t.Fatalf("unexpected body: %v", result["body"])
	}
	if result["status_code"] != float64(200) {
		t.Fatalf("unexpected status_code: %v", result["status_code"])
	}
	if result["truncated"] != false {
		t.Fatalf("expected truncated=false, got %v", result["truncated"])
	}
}

func TestWebFetchToolTruncatesToMaxBytes(t *testing.T) {
	body := strings.Repeat("x", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	tool := NewWebFetchTool()
	out, err := tool.Fn(context.Background(), map[string]any{"url": srv.URL, "max_bytes": float64(10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result map[string]any
	_ = json.Unmarshal([]byte(out), &result)
	got, _ := result["body"].(string)
	if len(got) != 10 {
		t.Fatalf("expected body truncated to 10 bytes, got %d", len(got))
	}
	if result["truncated"] != true {
		t.Fatalf("expected truncated=true, got %v", result["truncated"])
	}
}

func TestWebFetchToolRejectsEmptyURL(t *testing.T) {
	tool := NewWebFetchTool()
	if _, err := tool.Fn(context.Background(), map[string]any{"url": ""}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestWebFetchToolPropagatesTransportError(t *testing.T) {
	tool := NewWebFetchTool()
	_, err := tool.Fn(context.Background(), map[string]any{"url": "http://127.0.0.1:1/unreachable"})
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
}

func TestWebFetchToolDeclaresNetworkEffect(t *testing.T) {
	tool := NewWebFetchTool()
	if !tool.NetworkEffect {
		t.Fatal("expected web_fetch to be marked as a network-effect tool")
	}
	if !tool.ReadOnly {
		t.Fatal("expected web_fetch to be read-only")
	}
}
