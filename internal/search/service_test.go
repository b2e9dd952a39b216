package search

import (
	"encoding/json"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"

	"webterms/api/internal/docstore"
)

func TestServiceWithoutMeili(t *testing.T) {
	svc := NewService(nil)

	// Indexing without a configured backend is a no-op.
	svc.IndexDocument(docstore.DocumentRecord{ID: "doc-1", OriginalFileName: "terms.pdf"})

	ids, ok := svc.MatchIDs("terms")
	if ok {
		t.Fatalf("MatchIDs() ok = true, want fallback to store scan")
	}
	if ids != nil {
		t.Fatalf("MatchIDs() ids = %v, want nil", ids)
	}
}

func TestServiceUnhealthyMeiliFallsBack(t *testing.T) {
	m := NewMeili("http://127.0.0.1:1", "test-key")
	defer m.Close()

	if m.Healthy() {
		t.Fatal("Healthy() = true for unreachable server")
	}

	svc := NewService(m)
	if _, ok := svc.MatchIDs("terms"); ok {
		t.Fatal("MatchIDs() ok = true with unhealthy index")
	}
}

func TestDecodeString(t *testing.T) {
	hit := meili.Hit{
		"id":      json.RawMessage(`"doc-1"`),
		"version": json.RawMessage(`3`),
	}

	if got := decodeString(hit, "id"); got != "doc-1" {
		t.Fatalf("decodeString(id) = %q, want %q", got, "doc-1")
	}
	if got := decodeString(hit, "version"); got != "" {
		t.Fatalf("decodeString(version) = %q, want empty for non-string value", got)
	}
	if got := decodeString(hit, "missing"); got != "" {
		t.Fatalf("decodeString(missing) = %q, want empty for absent key", got)
	}
}
