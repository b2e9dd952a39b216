package publisher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"webterms/api/internal/docstore"
	"webterms/api/internal/manifest"
)

func publishRecord() docstore.DocumentRecord {
	return docstore.DocumentRecord{
		ID: "doc-1",
		Scope: docstore.Scope{
			Platform:      "ios",
			Line:          "consumer",
			DocType:       "terms",
			Lang:          "en",
			EffectiveDate: "2024-06-01",
		},
		Version:     2,
		ContentHash: docstore.HashContent([]byte("pdf")),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestBranchName(t *testing.T) {
	got := BranchName(publishRecord())
	if got != "publish/ios/terms/en/v2" {
		t.Errorf("BranchName() = %q", got)
	}
}

func TestPRURL(t *testing.T) {
	service := New(t.TempDir(), "example/public-docs")
	got := service.PRURL("0123456789abcdef")
	if !strings.HasPrefix(got, "https://github.com/example/public-docs/pull/") {
		t.Errorf("PRURL() = %q", got)
	}
}

func TestPublishCreatesCommit(t *testing.T) {
	dir := t.TempDir()
	service := New(dir, "example/public-docs")
	record := publishRecord()
	latest := manifest.BuildLatest([]docstore.DocumentRecord{record})

	commit, err := service.Publish(record, []byte("%PDF-1.4 content"), latest, BranchName(record), "legal-team")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(commit) != 40 {
		t.Errorf("commit hash = %q, want a 40-char sha", commit)
	}

	pdfPath := filepath.Join(dir, "documents", "ios", "terms", "en", "2024-06-01", "v2.pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		t.Errorf("published PDF missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "latest.json")); err != nil {
		t.Errorf("latest.json missing: %v", err)
	}
}

func TestPublishHistory(t *testing.T) {
	dir := t.TempDir()
	service := New(dir, "example/public-docs")
	record := publishRecord()
	latest := manifest.BuildLatest([]docstore.DocumentRecord{record})
	branch := BranchName(record)

	if _, err := service.Publish(record, []byte("%PDF-1.4 content"), latest, branch, "legal-team"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	history, err := service.History(branch, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) == 0 {
		t.Fatal("History() returned no commits")
	}
}

func TestPublishSecondVersionSameRepo(t *testing.T) {
	dir := t.TempDir()
	service := New(dir, "example/public-docs")

	first := publishRecord()
	if _, err := service.Publish(first, []byte("%PDF-1.4 v2"), manifest.BuildLatest([]docstore.DocumentRecord{first}), BranchName(first), "legal-team"); err != nil {
		t.Fatalf("first Publish() error = %v", err)
	}

	second := publishRecord()
	second.ID = "doc-2"
	second.Version = 3
	second.EffectiveDate = "2024-07-01"
	commit, err := service.Publish(second, []byte("%PDF-1.4 v3"), manifest.BuildLatest([]docstore.DocumentRecord{first, second}), BranchName(second), "legal-team")
	if err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}
	if commit == "" {
		t.Error("second Publish() returned an empty commit hash")
	}
}
