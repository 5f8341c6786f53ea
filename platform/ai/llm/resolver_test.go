package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/genai"

	"venue_enrichment_backend/platform/ai/moonshot"
)

func TestRunStopsOnFirstSuccess(t *testing.T) {
	r := NewResolver(nil)
	var calls []string

	used, err := r.Run(context.Background(), []string{"a", "b"}, func(_ context.Context, m string) error {
		calls = append(calls, m)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != "a" || len(calls) != 1 {
		t.Fatalf("expected single call on primary, got used=%s calls=%v", used, calls)
	}
}

func TestRunFallsBackOnlyOnUnavailable(t *testing.T) {
	r := NewResolver(nil)
	var calls []string

	used, err := r.Run(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, m string) error {
		calls = append(calls, m)
		if m == "a" {
			return classify(m, genai.APIError{Code: http.StatusNotFound, Status: "NOT_FOUND", Message: "models/a is not found"})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != "b" {
		t.Fatalf("expected fallback to b, got %s", used)
	}
	if fmt.Sprint(calls) != "[a b]" {
		t.Fatalf("expected calls [a b], got %v", calls)
	}
}

func TestRunPropagatesOtherErrorsImmediately(t *testing.T) {
	r := NewResolver(nil)
	quota := classify("a", genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"})
	calls := 0

	_, err := r.Run(context.Background(), []string{"a", "b"}, func(context.Context, string) error {
		calls++
		return quota
	})
	if !errors.Is(err, quota) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no fallback for non-model errors, got %d calls", calls)
	}
}

func TestRunReturnsLastErrorWhenChainExhausted(t *testing.T) {
	r := NewResolver(nil)
	calls := 0

	used, err := r.Run(context.Background(), []string{"a", "b"}, func(_ context.Context, m string) error {
		calls++
		return classify(m, errors.New("model "+m+" not found"))
	})
	if !IsModelUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if used != "b" || calls != 2 {
		t.Fatalf("expected both candidates tried, used=%s calls=%d", used, calls)
	}
}

func TestRunRejectsEmptyChain(t *testing.T) {
	_, err := NewResolver(nil).Run(context.Background(), nil, func(context.Context, string) error { return nil })
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	_, err := NewResolver(nil).Run(ctx, []string{"a"}, func(context.Context, string) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Fatalf("expected cancellation before any call, err=%v calls=%d", err, calls)
	}
}

func TestTryWithFallbackInvokesFallbackOnce(t *testing.T) {
	r := NewResolver(nil)
	var calls []string

	err := r.TryWithFallback(context.Background(), "primary", "fallback", func(_ context.Context, m string) error {
		calls = append(calls, m)
		return classify(m, genai.APIError{Code: http.StatusNotFound})
	})
	if !IsModelUnavailable(err) {
		t.Fatalf("expected fallback error to be returned, got %v", err)
	}
	if fmt.Sprint(calls) != "[primary fallback]" {
		t.Fatalf("expected exactly one fallback call, got %v", calls)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"genai 404", genai.APIError{Code: 404}, true},
		{"genai pointer not found status", &genai.APIError{Code: 400, Status: "NOT_FOUND"}, true},
		{"genai unsupported model message", genai.APIError{Code: 400, Message: "model gemini-x is not supported for generateContent"}, true},
		{"genai quota", genai.APIError{Code: 429, Message: "quota"}, false},
		{"genai server error", genai.APIError{Code: 500, Message: "internal"}, false},
		{"moonshot 404", &moonshot.APIError{StatusCode: 404, Message: "nope"}, true},
		{"moonshot auth", &moonshot.APIError{StatusCode: 401, Message: "invalid key"}, false},
		{"plain unknown model", errors.New("unknown model foo"), true},
		{"plain not found without model", errors.New("page not found"), false},
		{"network", errors.New("connection reset by peer"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsModelUnavailable(classify("m", tt.err)); got != tt.want {
				t.Fatalf("IsModelUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
