package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T, maxBytes int64) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "/v1/uploads", maxBytes, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return store
}

func TestLocalStoreSave(t *testing.T) {
	store := newTestStore(t, 1024)

	url, err := store.Save(context.Background(), "cat.png", "image/png", strings.NewReader("pngdata"), 7)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "/v1/uploads/img_") {
		t.Errorf("unexpected url %q", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("expected .png suffix, got %q", url)
	}
}

func TestLocalStoreRejectsUnsupportedContentType(t *testing.T) {
	store := newTestStore(t, 1024)

	if _, err := store.Save(context.Background(), "doc.pdf", "application/pdf", strings.NewReader("%PDF"), 4); err == nil {
		t.Fatal("expected error for unsupported content type")
	}
}

func TestLocalStoreRejectsOversizedDeclaration(t *testing.T) {
	store := newTestStore(t, 10)

	if _, err := store.Save(context.Background(), "big.png", "image/png", strings.NewReader("0123456789abc"), 13); err == nil {
		t.Fatal("expected error for oversized upload")
	}
}

func TestLocalStoreUniqueNames(t *testing.T) {
	store := newTestStore(t, 0)

	first, err := store.Save(context.Background(), "a.png", "image/png", strings.NewReader("a"), 1)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := store.Save(context.Background(), "a.png", "image/png", strings.NewReader("a"), 1)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first == second {
		t.Errorf("expected unique names, both were %q", first)
	}
}
