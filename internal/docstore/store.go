package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type collection struct {
	Documents       []DocumentRecord `json:"documents"`
	PublicationJobs []PublicationJob `json:"publicationJobs"`
}

// Store persists the document and publication-job collections as a single
// JSON file. Every mutation rewrites the whole file through a temp file and
// rename, so a crash never leaves a truncated collection behind. All
// operations are serialized by one mutex; reads hand out copies.
type Store struct {
	path string
	mu   sync.Mutex
	data collection
}

// Open loads the collection at path, creating an empty one if absent.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageError("create data dir", err)
	}

	s := &Store{path: path}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.data = collection{Documents: []DocumentRecord{}, PublicationJobs: []PublicationJob{}}
		if err := s.persist(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, storageError("read collection", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, storageError("decode collection", err)
	}
	if s.data.Documents == nil {
		s.data.Documents = []DocumentRecord{}
	}
	if s.data.PublicationJobs == nil {
		s.data.PublicationJobs = []PublicationJob{}
	}
	return s, nil
}

func (s *Store) persist() error {
	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return storageError("encode collection", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return storageError("write collection", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return storageError("replace collection", err)
	}
	return nil
}

// Documents returns a snapshot of every record, in insertion order.
func (s *Store) Documents() []DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DocumentRecord, len(s.data.Documents))
	copy(out, s.data.Documents)
	return out
}

// AppendDocument adds a new record. Duplicate detection and version
// assignment are the calling workflow's responsibility; the store is a
// log-structured list and does not re-check them.
func (s *Store) AppendDocument(record DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Documents = append(s.data.Documents, record)
	if err := s.persist(); err != nil {
		s.data.Documents = s.data.Documents[:len(s.data.Documents)-1]
		return err
	}
	return nil
}

// GetDocument returns the record with the given id, deleted or not.
func (s *Store) GetDocument(id string) (DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.data.Documents {
		if record.ID == id {
			return record, nil
		}
	}
	return DocumentRecord{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
}

// SoftDeleteDocument marks a record deleted. Deleting an already-deleted
// record returns it unchanged; deletedAt is never cleared or overwritten.
func (s *Store) SoftDeleteDocument(id string) (DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Documents {
		if s.data.Documents[i].ID != id {
			continue
		}
		if s.data.Documents[i].DeletedAt != nil {
			return s.data.Documents[i], nil
		}
		now := time.Now().UTC()
		s.data.Documents[i].DeletedAt = &now
		s.data.Documents[i].UpdatedAt = now
		if err := s.persist(); err != nil {
			s.data.Documents[i].DeletedAt = nil
			return DocumentRecord{}, err
		}
		return s.data.Documents[i], nil
	}
	return DocumentRecord{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
}

// MigrateDocumentStorage rewrites the storage fields of a record after a lazy
// PDF conversion, preserving id, scope and version.
func (s *Store) MigrateDocumentStorage(id string, migration StorageMigration) (DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Documents {
		if s.data.Documents[i].ID != id {
			continue
		}
		record := &s.data.Documents[i]
		previous := *record
		record.StoredFileName = migration.StoredFileName
		record.DownloadFileName = migration.DownloadFileName
		if record.OriginalMimeType == "" {
			record.OriginalMimeType = previous.MimeType
		}
		record.MimeType = migration.MimeType
		record.SizeBytes = migration.SizeBytes
		record.ContentHash = migration.ContentHash
		record.ConvertedToPDF = true
		record.UpdatedAt = time.Now().UTC()
		if err := s.persist(); err != nil {
			*record = previous
			return DocumentRecord{}, err
		}
		return *record, nil
	}
	return DocumentRecord{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
}

// QueryDocuments filters the collection and orders the result by createdAt
// descending, most recent submission first.
func (s *Store) QueryDocuments(filter Filter) []DocumentRecord {
	records := s.Documents()
	matched := make([]DocumentRecord, 0, len(records))
	for _, record := range records {
		if !filter.IncludeDeleted && record.IsDeleted() {
			continue
		}
		if filter.Platform != "" && record.Platform != filter.Platform {
			continue
		}
		if filter.Line != "" && record.Line != filter.Line {
			continue
		}
		if filter.DocType != "" && record.DocType != filter.DocType {
			continue
		}
		if filter.Lang != "" && record.Lang != filter.Lang {
			continue
		}
		if filter.EffectiveDate != "" && record.EffectiveDate != filter.EffectiveDate {
			continue
		}
		if filter.Search != "" {
			haystack := strings.ToLower(record.OriginalFileName + " " + record.Platform + " " + record.DocType + " " + record.Lang)
			if !strings.Contains(haystack, strings.ToLower(filter.Search)) {
				continue
			}
		}
		matched = append(matched, record)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}
