// Package search keeps an optional Meilisearch index of document metadata.
// When the index is missing or unhealthy the document store's own substring
// scan remains authoritative, so the facade degrades to a no-op.
package search

import (
	"log"

	"webterms/api/internal/docstore"
)

// Service is the facade the app layer talks to. meili may be nil when
// Meilisearch is not configured.
type Service struct {
	meili *Meili
}

func NewService(meili *Meili) *Service {
	return &Service{meili: meili}
}

// IndexDocument pushes a record's metadata to the index, fire-and-forget.
func (s *Service) IndexDocument(record docstore.DocumentRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	doc := indexedDocument{
		ID:               record.ID,
		OriginalFileName: record.OriginalFileName,
		Platform:         record.Platform,
		Line:             record.Line,
		DocType:          record.DocType,
		Lang:             record.Lang,
		EffectiveDate:    record.EffectiveDate,
		Deleted:          record.IsDeleted(),
	}
	go func() {
		if err := s.meili.Index(doc); err != nil {
			log.Printf("search: index document %s: %v", doc.ID, err)
		}
	}()
}

// MatchIDs resolves a free-text query to document ids. ok is false when the
// index cannot serve the query and the caller should fall back to the store's
// substring scan.
func (s *Service) MatchIDs(text string) (ids []string, ok bool) {
	if s.meili == nil || !s.meili.Healthy() || text == "" {
		return nil, false
	}
	found, err := s.meili.SearchIDs(text)
	if err != nil {
		log.Printf("search: meilisearch error, falling back to store scan: %v", err)
		return nil, false
	}
	return found, true
}
