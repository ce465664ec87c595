package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mymmrac/telego"
)

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		ok   bool
	}{
		{name: "nil", err: nil, want: 0, ok: false},
		{name: "api error", err: &APIError{RetryAfter: 9, Message: "rate"}, want: 9, ok: true},
		{name: "text pattern", err: errors.New("Too Many Requests: retry after 4"), want: 4, ok: true},
		{name: "colon separator", err: errors.New("retry after: 7"), want: 7, ok: true},
		{name: "unrelated", err: errors.New("other error"), want: 0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tt.err)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("parseRetryAfter() = (%d,%v), want (%d,%v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestWithRetryNilRateLimiter(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), nil, 0, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry returned err: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	rl := NewRateLimiter(1000, 1)
	calls := 0
	permanent := errors.New("chat not found")

	err := WithRetry(context.Background(), rl, 1, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryContextCancelOnRetry(t *testing.T) {
	rl := NewRateLimiter(1000, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := WithRetry(ctx, rl, 1, func() error {
		return fmt.Errorf("retry after 10")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestExtractChatID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{name: "int64", in: int64(42), want: 42},
		{name: "int", in: 7, want: 7},
		{name: "chat id", in: telego.ChatID{ID: 99}, want: 99},
		{name: "chat id ptr", in: &telego.ChatID{ID: 100}, want: 100},
		{name: "nil ptr", in: (*telego.ChatID)(nil), want: 0},
		{name: "string", in: "123", want: 123},
		{name: "unknown", in: 3.14, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractChatID(tt.in); got != tt.want {
				t.Fatalf("extractChatID(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestVoiceFileID(t *testing.T) {
	if got := VoiceFileID(nil); got != "" {
		t.Fatalf("expected empty for nil message, got %q", got)
	}
	if got := VoiceFileID(&telego.Message{}); got != "" {
		t.Fatalf("expected empty for message without voice, got %q", got)
	}
	msg := &telego.Message{Voice: &telego.Voice{FileID: "abc"}}
	if got := VoiceFileID(msg); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}
