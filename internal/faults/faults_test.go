package faults

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	err := New(KindDocumentParse, "bad plist")
	if got := KindOf(err); got != KindDocumentParse {
		t.Errorf("got %v", got)
	}

	wrapped := fmt.Errorf("outer: %w", Wrap(KindFileSystem, errors.New("stat failed")))
	if got := KindOf(wrapped); got != KindFileSystem {
		t.Errorf("wrapped kind: got %v", got)
	}

	if got := KindOf(errors.New("plain")); got != KindUnexpectedState {
		t.Errorf("unclassified: got %v", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindPersistence, nil) != nil {
		t.Error("wrapping nil must yield nil")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindFileSystem, true},
		{KindMonitoring, true},
		{KindPersistence, true},
		{KindConfiguration, false},
		{KindDocumentParse, false},
		{KindValidationTimeout, false},
		{KindUnexpectedState, false},
	}
	for _, tc := range cases {
		if got := IsTransient(New(tc.kind, "x")); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestRetryN_TransientRetried(t *testing.T) {
	calls := 0
	err := RetryN(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return New(KindFileSystem, "flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryN_NonTransientFailsFast(t *testing.T) {
	calls := 0
	err := RetryN(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return New(KindConfiguration, "bad config")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetryN_Exhausted(t *testing.T) {
	calls := 0
	err := RetryN(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return New(KindPersistence, "disk full")
	})
	if KindOf(err) != KindPersistence {
		t.Errorf("got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryN_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryN(ctx, 3, time.Millisecond, func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
	if calls != 0 {
		t.Errorf("calls: got %d, want 0", calls)
	}
}
