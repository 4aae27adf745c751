package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	if err := c.Set(ctx, "group:42", []byte(`{"id":42}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	c.Wait()

	val, ok, err := c.Get(ctx, "group:42")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(val) != `{"id":42}` {
		t.Fatalf("unexpected value: %s", val)
	}

	if err := c.Delete(ctx, "group:42"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	c.Wait()
	if _, ok, _ := c.Get(ctx, "group:42"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestGetMiss(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer func() { _ = c.Close() }()

	if _, ok, err := c.Get(context.Background(), "absent"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}
