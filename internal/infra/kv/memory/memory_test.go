package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/haneul-dev/addrsearch/internal/infra/kv"
)

func TestStoreRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "a", "hello"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing key is fine.
	if err := s.Delete(ctx, "never-there"); err != nil {
		t.Errorf("delete of missing key errored: %v", err)
	}
}

func TestStoreFailWrites(t *testing.T) {
	s := New()
	s.FailWrites = true
	if err := s.Set(context.Background(), "a", "b"); err == nil {
		t.Error("expected write failure")
	}
}
