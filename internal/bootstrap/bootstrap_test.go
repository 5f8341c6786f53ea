package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"venue_enrichment_backend/platform/logger"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), logger.Discard(), "op", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err = %v calls = %d", err, calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), logger.Discard(), "connect", 2, time.Millisecond, func() error {
		calls++
		return errors.New("refused")
	})
	if err == nil || err.Error() != "connect: refused" || calls != 2 {
		t.Fatalf("err = %v calls = %d", err, calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetry(ctx, logger.Discard(), "op", 3, time.Millisecond, func() error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestWithRetryRejectsZeroAttempts(t *testing.T) {
	if err := WithRetry(context.Background(), logger.Discard(), "op", 0, time.Millisecond, func() error { return nil }); err == nil {
		t.Fatal("expected error")
	}
}
