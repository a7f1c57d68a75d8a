package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"cipher_workbench/internal/ingest"
)

func testDocs(labels ...string) []*ingest.Document {
	docs := make([]*ingest.Document, 0, len(labels))
	for _, l := range labels {
		docs = append(docs, &ingest.Document{Label: l, Text: "WKDW LV D VHFUHW PHVVDJH"})
	}
	return docs
}

func TestAnalyzeDocuments(t *testing.T) {
	docs := testDocs("a", "b", "c")

	var called int32
	errs := AnalyzeDocuments(docs, 2, func(index int, doc *ingest.Document) error {
		atomic.AddInt32(&called, 1)
		if index == 1 {
			return errors.New("test error")
		}
		return nil
	})

	if called != int32(len(docs)) {
		t.Fatalf("expected %d calls, got %d", len(docs), called)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
}

func TestAnalyzeDocumentsVisitsEachOnce(t *testing.T) {
	docs := testDocs("a", "b", "c", "d", "e", "f", "g")

	var mu sync.Mutex
	seen := map[string]int{}
	errs := AnalyzeDocuments(docs, 0, func(index int, doc *ingest.Document) error {
		mu.Lock()
		seen[doc.Label]++
		mu.Unlock()
		return nil
	})

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(seen) != len(docs) {
		t.Fatalf("visited %d distinct docs, want %d", len(seen), len(docs))
	}
	for label, n := range seen {
		if n != 1 {
			t.Fatalf("doc %q analyzed %d times", label, n)
		}
	}
}

func TestAnalyzeDocumentsEmpty(t *testing.T) {
	if errs := AnalyzeDocuments(nil, 4, func(int, *ingest.Document) error { return nil }); errs != nil {
		t.Fatalf("empty batch produced %v", errs)
	}
	if errs := AnalyzeDocuments(testDocs("a"), 4, nil); errs != nil {
		t.Fatalf("nil analyzer produced %v", errs)
	}
}
