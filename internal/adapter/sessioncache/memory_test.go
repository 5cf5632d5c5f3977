package sessioncache

import (
	"context"
	"testing"
)

func TestMemory_MissIsNeverAnError(t *testing.T) {
	m := NewMemory()
	_, ok, err := m.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("expected no error on miss, got %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for an absent entity")
	}
}

func TestMemory_PutThenGet(t *testing.T) {
	m := NewMemory()
	if err := m.Put(context.Background(), "e1", "cookie-value"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok, _ := m.Get(context.Background(), "e1")
	if !ok || v != "cookie-value" {
		t.Fatalf("expected cookie-value, got %q (ok=%v)", v, ok)
	}
}

func TestMemory_ClearRemovesEntry(t *testing.T) {
	m := NewMemory()
	m.Put(context.Background(), "e1", "cookie-value")
	m.Clear(context.Background(), "e1")
	_, ok, _ := m.Get(context.Background(), "e1")
	if ok {
		t.Fatal("expected entry to be gone after Clear")
	}
}

func TestMemory_LastWriterWins(t *testing.T) {
	m := NewMemory()
	m.Put(context.Background(), "e1", "first")
	m.Put(context.Background(), "e1", "second")
	v, _, _ := m.Get(context.Background(), "e1")
	if v != "second" {
		t.Fatalf("expected last write to win, got %q", v)
	}
}
