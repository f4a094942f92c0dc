package llm_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
	"github.com/prudhvi1709/hypoforge/internal/config"
	"github.com/prudhvi1709/hypoforge/internal/service/llm"
)

func newClient(baseURL string) *llm.Client {
	return llm.NewClient(config.LLMConfig{
		BaseURL: baseURL,
		APIKey:  "sk-test",
		Model:   "gpt-4.1-mini",
	}, zap.NewNop())
}

func TestComplete(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if err := sonic.ConfigStd.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"the answer"}}]}`)
	}))
	defer srv.Close()

	content, err := newClient(srv.URL).Complete(context.Background(), llm.Request{
		System: "be brief",
		User:   "question",
		Schema: true,
	})
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if content != "the answer" {
		t.Fatalf("unexpected content: %q", content)
	}

	if gotAuth != "Bearer sk-test:hypoforge" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path: %q", gotPath)
	}

	format, ok := gotBody["response_format"].(map[string]any)
	if !ok {
		t.Fatalf("response_format missing from body: %v", gotBody)
	}
	schema, ok := format["json_schema"].(map[string]any)
	if !ok || schema["name"] != "HypothesesResponse" {
		t.Fatalf("unexpected json_schema: %v", format)
	}
	if _, streamed := gotBody["stream"]; streamed {
		t.Fatal("single-shot call must not set stream")
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Complete(context.Background(), llm.Request{User: "q"})
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("expected Upstream error, got %v", err)
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected apperr.Error, got %T", err)
	}
	if appErr.UpstreamStatus != http.StatusTooManyRequests {
		t.Fatalf("unexpected upstream status: %d", appErr.UpstreamStatus)
	}
	if !strings.Contains(appErr.UpstreamBody, "quota exceeded") {
		t.Fatalf("upstream body not captured: %q", appErr.UpstreamBody)
	}
}

func TestStreamAccumulatesRunningTotals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		sonic.ConfigStd.Unmarshal(raw, &body)
		if body["stream"] != true {
			t.Error("streaming call must set stream=true")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			``,
			`: keep-alive comment`,
			`data: {"choices":[{"delta":{"content":"lo "}}]}`,
			`data: this frame is not json`,
			`data: {"choices":[]}`,
			`data: {"choices":[{"delta":{"content":"world"}}]}`,
			`data: [DONE]`,
			`data: {"choices":[{"delta":{"content":"ignored after done"}}]}`,
		}
		for _, frame := range frames {
			fmt.Fprintf(w, "%s\n", frame)
		}
	}))
	defer srv.Close()

	var updates []string
	total, err := newClient(srv.URL).Stream(context.Background(), llm.Request{User: "q"}, func(s string) {
		updates = append(updates, s)
	})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}

	if total != "Hello world" {
		t.Fatalf("unexpected total: %q", total)
	}
	want := []string{"Hel", "Hello ", "Hello world"}
	if len(updates) != len(want) {
		t.Fatalf("got %d updates %v, want %v", len(updates), updates, want)
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Fatalf("update %d = %q, want %q", i, updates[i], want[i])
		}
	}
}

func TestStreamCancellation(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n")
		w.(http.Flusher).Flush()
		// Hold the stream open until the caller disconnects.
		<-r.Context().Done()
		close(released)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := newClient(srv.URL).Stream(ctx, llm.Request{User: "q"}, func(total string) {
		cancel()
	})
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("expected Upstream error after cancellation, got %v", err)
	}

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream request context was not released")
	}
}

func TestStreamUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Stream(context.Background(), llm.Request{User: "q"}, nil)
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("expected Upstream error, got %v", err)
	}
}
