package blob

import (
	"context"
	"errors"
	"testing"
)

func TestFSStorePutGetRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "tenant-a/doc-1/source.txt", []byte("hello"), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, err := s.Get(ctx, "tenant-a/doc-1/source.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want %q", data, "hello")
	}
}

func TestFSStoreGetMissingReturnsErrNotFound(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Get(context.Background(), "tenant-a/doc-1/source.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFSStoreExists(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	ok, err := s.Exists(ctx, "tenant-a/doc-1/source.txt")
	if err != nil || ok {
		t.Fatalf("expected absent object, got ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "tenant-a/doc-1/source.txt", []byte("x"), "text/plain"); err != nil {
		t.Fatal(err)
	}
	ok, err = s.Exists(ctx, "tenant-a/doc-1/source.txt")
	if err != nil || !ok {
		t.Fatalf("expected object to exist, got ok=%v err=%v", ok, err)
	}
}

func TestFSStoreDelete(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "tenant-a/doc-1/source.txt", []byte("x"), "text/plain"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "tenant-a/doc-1/source.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := s.Exists(ctx, "tenant-a/doc-1/source.txt"); ok {
		t.Error("expected object to be gone after delete")
	}

	// Deleting an already-missing object is not an error.
	if err := s.Delete(ctx, "tenant-a/doc-1/source.txt"); err != nil {
		t.Errorf("expected delete of missing object to succeed, got %v", err)
	}
}

func TestFSStoreDeletePrefixRemovesOnlyMatchingObjects(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "tenant-a/doc-1/source.txt", []byte("x"), "text/plain"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "tenant-a/doc-1/chunks/1", []byte("x"), "text/plain"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "tenant-b/doc-2/source.txt", []byte("x"), "text/plain"); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeletePrefix(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 objects removed, got %d", n)
	}
	if ok, _ := s.Exists(ctx, "tenant-b/doc-2/source.txt"); !ok {
		t.Error("expected tenant-b's object to survive tenant-a's prefix deletion")
	}
}

func TestFSStoreRejectsPathsContainingDoubleDot(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(context.Background(), "tenant-a/doc..evil/source.txt", []byte("x"), "text/plain"); err == nil {
		t.Error("expected a path containing \"..\" to be rejected")
	}
}
