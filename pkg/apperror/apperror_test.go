package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestE_NilErr(t *testing.T) {
	if err := E(KindUnavailable, "index.search", nil); err != nil {
		t.Fatalf("expected nil for nil cause, got %v", err)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	cause := errors.New("connection refused")
	err := E(KindUnavailable, "index.search", cause)

	if got := KindOf(err); got != KindUnavailable {
		t.Fatalf("expected KindUnavailable, got %v", got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive errors.Is")
	}

	// one more wrap layer must not hide the kind
	outer := fmt.Errorf("answering: %w", err)
	if got := KindOf(outer); got != KindUnavailable {
		t.Fatalf("expected kind through wrapping, got %v", got)
	}
}

func TestKindOf_Plain(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Fatalf("expected zero kind for plain error, got %v", got)
	}
}
