package docstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "documents.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return store, path
}

func TestOpenInitializesEmptyCollection(t *testing.T) {
	store, _ := openTestStore(t)
	if got := len(store.Documents()); got != 0 {
		t.Errorf("Documents() = %d records, want 0", got)
	}
}

func TestAppendAndReopen(t *testing.T) {
	store, path := openTestStore(t)
	record := testRecord("doc-1", testScope("en"), 1)
	record.OriginalFileName = "terms.pdf"
	if err := store.AppendDocument(record); err != nil {
		t.Fatalf("AppendDocument() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() after append error = %v", err)
	}
	got, err := reopened.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.OriginalFileName != "terms.pdf" {
		t.Errorf("originalFileName = %q, want %q", got.OriginalFileName, "terms.pdf")
	}
	if !got.Scope.Equal(testScope("en")) {
		t.Errorf("scope did not survive the round trip: %+v", got.Scope)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	store, _ := openTestStore(t)
	if _, err := store.GetDocument("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument() error = %v, want ErrNotFound", err)
	}
}

func TestSoftDeleteIsIdempotent(t *testing.T) {
	store, _ := openTestStore(t)
	if err := store.AppendDocument(testRecord("doc-1", testScope("en"), 1)); err != nil {
		t.Fatalf("AppendDocument() error = %v", err)
	}

	first, err := store.SoftDeleteDocument("doc-1")
	if err != nil {
		t.Fatalf("SoftDeleteDocument() error = %v", err)
	}
	if first.DeletedAt == nil {
		t.Fatal("deletedAt not set after delete")
	}

	second, err := store.SoftDeleteDocument("doc-1")
	if err != nil {
		t.Fatalf("second SoftDeleteDocument() error = %v", err)
	}
	if !second.DeletedAt.Equal(*first.DeletedAt) {
		t.Errorf("deletedAt changed on repeat delete: %v vs %v", second.DeletedAt, first.DeletedAt)
	}
}

func TestMigrateDocumentStoragePreservesIdentity(t *testing.T) {
	store, _ := openTestStore(t)
	record := testRecord("doc-1", testScope("en"), 3)
	record.MimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	record.StoredFileName = "doc-1_terms.docx"
	if err := store.AppendDocument(record); err != nil {
		t.Fatalf("AppendDocument() error = %v", err)
	}

	migrated, err := store.MigrateDocumentStorage("doc-1", StorageMigration{
		StoredFileName:   "doc-1_terms_ios_en.pdf",
		DownloadFileName: "terms_ios_en.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        42,
		ContentHash:      HashContent([]byte("pdf")),
	})
	if err != nil {
		t.Fatalf("MigrateDocumentStorage() error = %v", err)
	}
	if migrated.ID != "doc-1" || migrated.Version != 3 || !migrated.Scope.Equal(testScope("en")) {
		t.Errorf("identity changed by migration: id=%s version=%d scope=%+v", migrated.ID, migrated.Version, migrated.Scope)
	}
	if migrated.MimeType != "application/pdf" {
		t.Errorf("mimeType = %q, want application/pdf", migrated.MimeType)
	}
	if migrated.OriginalMimeType == "" {
		t.Error("originalMimeType lost by migration")
	}
	if !migrated.ConvertedToPDF {
		t.Error("convertedToPdf not set by migration")
	}
}

func TestQueryDocumentsOrderingAndFilters(t *testing.T) {
	store, _ := openTestStore(t)
	base := time.Now().UTC()

	older := testRecord("older", testScope("en"), 1)
	older.CreatedAt = base.Add(-time.Hour)
	older.OriginalFileName = "GTC_final.docx"
	newer := testRecord("newer", testScope("en"), 2)
	newer.CreatedAt = base
	other := testRecord("other", testScope("it"), 1)
	other.CreatedAt = base.Add(-2 * time.Hour)

	for _, record := range []DocumentRecord{older, newer, other} {
		if err := store.AppendDocument(record); err != nil {
			t.Fatalf("AppendDocument(%s) error = %v", record.ID, err)
		}
	}
	if _, err := store.SoftDeleteDocument("other"); err != nil {
		t.Fatalf("SoftDeleteDocument() error = %v", err)
	}

	all := store.QueryDocuments(Filter{})
	if len(all) != 2 {
		t.Fatalf("QueryDocuments() = %d records, want 2 (deleted excluded)", len(all))
	}
	if all[0].ID != "newer" || all[1].ID != "older" {
		t.Errorf("ordering = [%s %s], want newest first", all[0].ID, all[1].ID)
	}

	withDeleted := store.QueryDocuments(Filter{IncludeDeleted: true})
	if len(withDeleted) != 3 {
		t.Errorf("QueryDocuments(IncludeDeleted) = %d records, want 3", len(withDeleted))
	}

	byLang := store.QueryDocuments(Filter{Lang: "en"})
	if len(byLang) != 2 {
		t.Errorf("QueryDocuments(lang=en) = %d records, want 2", len(byLang))
	}

	byDate := store.QueryDocuments(Filter{EffectiveDate: "2024-01-01", IncludeDeleted: true})
	if len(byDate) != 3 {
		t.Errorf("QueryDocuments(effectiveDate) = %d records, want 3", len(byDate))
	}

	bySearch := store.QueryDocuments(Filter{Search: "gtc"})
	if len(bySearch) != 1 || bySearch[0].ID != "older" {
		t.Errorf("QueryDocuments(search=gtc) = %v, want the GTC upload only", bySearch)
	}
}
