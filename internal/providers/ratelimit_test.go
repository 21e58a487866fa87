package providers

import (
	"context"
	"testing"
	"time"
)

func TestRequestLimiterEnforcesMinimumDelay(t *testing.T) {
	lim := newRequestLimiter(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := lim.wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := lim.wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("second request fired too soon: %v elapsed", elapsed)
	}
}

func TestRequestLimiterRespectsContextCancellation(t *testing.T) {
	lim := newRequestLimiter(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := lim.wait(ctx); err != nil {
		t.Fatalf("first wait should succeed immediately: %v", err)
	}
	if err := lim.wait(ctx); err == nil {
		t.Fatal("expected the second wait to be canceled by the context deadline")
	}
}
