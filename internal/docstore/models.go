package docstore

import "time"

// Scope is the identifying tuple for a document. Two records with equal
// scopes are versions of the same logical document.
type Scope struct {
	Platform      string `json:"platform"`
	Line          string `json:"line"`
	DocType       string `json:"docType"`
	Lang          string `json:"lang"`
	EffectiveDate string `json:"effectiveDate"`
}

func (s Scope) Equal(other Scope) bool {
	return s.Platform == other.Platform &&
		s.Line == other.Line &&
		s.DocType == other.DocType &&
		s.Lang == other.Lang &&
		s.EffectiveDate == other.EffectiveDate
}

// DocumentRecord is an append-only fact about a published artifact. After
// creation the only mutations are soft delete and storage migration.
type DocumentRecord struct {
	ID string `json:"id"`
	Scope
	Version           int        `json:"version"`
	ContentHash       string     `json:"contentHash"`
	SourceContentHash string     `json:"sourceContentHash,omitempty"`
	SizeBytes         int64      `json:"sizeBytes"`
	MimeType          string     `json:"mimeType"`
	OriginalMimeType  string     `json:"originalMimeType,omitempty"`
	OriginalFileName  string     `json:"originalFileName"`
	StoredFileName    string     `json:"storedFileName"`
	DownloadFileName  string     `json:"downloadFileName"`
	ConvertedToPDF    bool       `json:"convertedToPdf"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	DeletedAt         *time.Time `json:"deletedAt"`
}

func (d DocumentRecord) IsDeleted() bool {
	return d.DeletedAt != nil
}

// IsPDF reports whether the stored artifact is already a rendered PDF.
func (d DocumentRecord) IsPDF() bool {
	return d.MimeType == "application/pdf"
}

// Publication job statuses. Merged and failed are terminal.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobPROpen  = "pr_open"
	JobMerged  = "merged"
	JobFailed  = "failed"
)

// PublicationJob tracks asynchronous publishing of one document to the
// public repository via a pull-request workflow.
type PublicationJob struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"documentId"`
	TargetRepo   string    `json:"targetRepo"`
	TargetBranch string    `json:"targetBranch"`
	Status       string    `json:"status"`
	Strategy     string    `json:"strategy"`
	CommitSha    string    `json:"commitSha,omitempty"`
	PRURL        string    `json:"prUrl,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (j PublicationJob) IsTerminal() bool {
	return j.Status == JobMerged || j.Status == JobFailed
}

func (j PublicationJob) IsActive() bool {
	return j.Status == JobQueued || j.Status == JobRunning || j.Status == JobPROpen
}

// Filter narrows a document query. Zero-valued fields are ignored; Search is
// a lower-cased substring matched over filename, platform, docType and lang.
type Filter struct {
	Platform       string
	Line           string
	DocType        string
	Lang           string
	EffectiveDate  string
	Search         string
	IncludeDeleted bool
}

// StorageMigration carries the fields rewritten when a stored artifact is
// converted to PDF after the fact. Identity, scope and version are preserved.
type StorageMigration struct {
	StoredFileName   string
	DownloadFileName string
	MimeType         string
	OriginalMimeType string
	SizeBytes        int64
	ContentHash      string
}
