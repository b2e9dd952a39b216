package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxDocuments = "webterms_documents"

// indexedDocument is the metadata projection stored in Meilisearch. File
// content never leaves the blob store.
type indexedDocument struct {
	ID               string `json:"id"`
	OriginalFileName string `json:"originalFileName"`
	Platform         string `json:"platform"`
	Line             string `json:"line"`
	DocType          string `json:"docType"`
	Lang             string `json:"lang"`
	EffectiveDate    string `json:"effectiveDate"`
	Deleted          bool   `json:"deleted"`
}

// Meili indexes document metadata in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the document index.
// An unreachable server is tolerated; a background loop keeps probing it.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))
	m := &Meili{client: client, done: make(chan struct{})}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idxDocuments, PrimaryKey: "id"}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxDocuments, err)
	}
	index := m.client.Index(idxDocuments)

	filterable := []interface{}{"platform", "line", "docType", "lang", "deleted"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs: %v", err)
	}
	searchable := []string{"originalFileName", "platform", "docType", "lang"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs: %v", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Index(doc indexedDocument) error {
	if _, err := m.client.Index(idxDocuments).AddDocuments([]indexedDocument{doc}, nil); err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	return nil
}

// SearchIDs returns the ids of non-deleted documents matching text.
func (m *Meili) SearchIDs(text string) ([]string, error) {
	resp, err := m.client.Index(idxDocuments).Search(text, &meili.SearchRequest{
		Filter: "deleted = false",
		Limit:  1000,
	})
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if id := decodeString(hit, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}
