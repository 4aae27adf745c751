package resilience

import (
	"errors"
	"testing"
	"time"
)

var errUnavailable = errors.New("service unavailable")

func TestBreakerClosedAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("fn was not called")
	}
	if got := b.Status(); got != "closed" {
		t.Errorf("status = %q, want closed", got)
	}
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)
	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errUnavailable })
	}
	if got := b.Status(); got != "open" {
		t.Errorf("status = %q, want open", got)
	}
	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerProbeAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errUnavailable })
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen before cooldown", err)
	}

	now = now.Add(2 * time.Second)
	if got := b.Status(); got != "half-open" {
		t.Errorf("status = %q, want half-open after cooldown", got)
	}

	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !called {
		t.Fatal("probe was not let through")
	}
	if got := b.Status(); got != "closed" {
		t.Errorf("status = %q, want closed after probe success", got)
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errUnavailable })
	}
	now = now.Add(2 * time.Second)

	_ = b.Execute(func() error { return errUnavailable })
	if got := b.Status(); got != "open" {
		t.Errorf("status = %q, want open after probe failure", got)
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSuccessResetsFailureRun(t *testing.T) {
	b := NewBreaker(3, time.Second)
	_ = b.Execute(func() error { return errUnavailable })
	_ = b.Execute(func() error { return errUnavailable })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errUnavailable })
	_ = b.Execute(func() error { return errUnavailable })

	if got := b.Status(); got != "closed" {
		t.Errorf("status = %q, want closed (failure run was reset)", got)
	}
}
