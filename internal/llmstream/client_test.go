package llmstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStreamTogglesFramingAcrossChunkBoundaries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"response":"hel`))
		flusher.Flush()
		w.Write([]byte("lo\",\"done\":false}\n"))
		flusher.Flush()
		w.Write([]byte(`{"response":" world","done":true}` + "\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	c := New()
	c.Endpoint = srv.URL
	c.HTTP = srv.Client()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, errs := c.Stream(ctx, "hi", nil)

	var got []Envelope
	for env := range out {
		got = append(got, env)
	}
	if err := <-errs; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d envelopes, want 2: %+v", len(got), got)
	}
	if got[0].Response != "hello" || got[1].Response != " world" || !got[1].Done {
		t.Fatalf("unexpected envelopes: %+v", got)
	}
}

func TestStreamMarshalsRequestEnvelope(t *testing.T) {
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"response":"ok","done":true}` + "\n"))
	}))
	defer srv.Close()

	c := New()
	c.Endpoint = srv.URL
	c.Model = "test-model"
	c.HTTP = srv.Client()

	out, errs := c.Stream(context.Background(), "prompt text", Options{"temperature": 0.2})
	for range out {
	}
	<-errs

	if captured.Model != "test-model" || captured.Prompt != "prompt text" || !captured.Stream {
		t.Fatalf("unexpected request envelope: %+v", captured)
	}
}
