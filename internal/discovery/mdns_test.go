package discovery

import (
	"context"
	"testing"
)

func TestBrowseReturnsErrorForCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Browse(ctx, 0); err == nil {
		t.Fatal("expected an error for an already-canceled context")
	}
}
