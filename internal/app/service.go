package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"webterms/api/internal/blob"
	"webterms/api/internal/config"
	"webterms/api/internal/converter"
	"webterms/api/internal/docstore"
	"webterms/api/internal/manifest"
	"webterms/api/internal/pdfcheck"
	"webterms/api/internal/publisher"
	"webterms/api/internal/search"
	"webterms/api/internal/session"

	"github.com/google/uuid"
)

const maxUploadBytes = 25 * 1024 * 1024

// Converter is the external PDF renderer contract.
type Converter interface {
	Convert(ctx context.Context, data []byte, originalFileName string) (pdf []byte, converted bool, err error)
	DetectHealth(ctx context.Context) converter.Health
}

// Publisher prepares publish branches in the public repository.
type Publisher interface {
	Publish(record docstore.DocumentRecord, pdf []byte, latest manifest.Latest, branchName, author string) (string, error)
	PRURL(jobID string) string
	RepoSlug() string
}

// Service orchestrates the document workflows. Mutating workflows that span
// the store and the blob store (upload, lazy migration) run under one mutex,
// matching the single-writer model of the persisted collection.
type Service struct {
	cfg       config.Config
	store     *docstore.Store
	blobs     blob.Storage
	converter Converter
	publisher Publisher
	search    *search.Service
	sessions  session.Store
	upstream  *UpstreamAuth

	// checkPDF rejects converter output that is not a readable PDF.
	checkPDF func(data []byte) error

	// publishAsync runs publication jobs on their own goroutine. Disabled in
	// tests so job processing happens inline.
	publishAsync bool

	mu sync.Mutex
}

func New(cfg config.Config, store *docstore.Store, blobs blob.Storage, conv Converter, pub Publisher, searchSvc *search.Service, sessions session.Store) *Service {
	return &Service{
		cfg:       cfg,
		store:     store,
		blobs:     blobs,
		converter: conv,
		publisher: pub,
		search:    searchSvc,
		sessions:  sessions,
		upstream:  NewUpstreamAuth(cfg.AuthBaseURL),
		checkPDF:  pdfcheck.Validate,

		publishAsync: true,
	}
}

type UploadInput struct {
	FileName string
	MimeType string
	Content  []byte
	Scope    docstore.ScopeInput
}

// Upload runs the full submission workflow: normalize, convert, validate the
// rendered PDF, de-duplicate, assign a version, store the blob and append the
// record. Nothing is persisted unless every step succeeds.
func (s *Service) Upload(ctx context.Context, input UploadInput) (docstore.DocumentRecord, error) {
	if input.FileName == "" {
		return docstore.DocumentRecord{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "fileName is required", nil)
	}
	if len(input.Content) == 0 {
		return docstore.DocumentRecord{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file content is required", nil)
	}
	if len(input.Content) > maxUploadBytes {
		return docstore.DocumentRecord{}, domainError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "file exceeds the 25 MiB upload limit", nil)
	}

	scope, err := docstore.NormalizeScope(input.Scope)
	if err != nil {
		return docstore.DocumentRecord{}, err
	}

	pdf, wasConverted, err := s.converter.Convert(ctx, input.Content, input.FileName)
	if err != nil {
		return docstore.DocumentRecord{}, err
	}
	if err := s.checkPDF(pdf); err != nil {
		return docstore.DocumentRecord{}, &converter.ConversionError{Reason: "converter produced an invalid PDF", Err: err}
	}

	sourceHash := docstore.HashContent(input.Content)
	renderedHash := docstore.HashContent(pdf)

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.store.Documents()
	if duplicate := docstore.FindDuplicate(records, scope, sourceHash, renderedHash); duplicate != nil {
		return docstore.DocumentRecord{}, domainError(http.StatusConflict, "DUPLICATE_DOCUMENT", "Duplicate document content",
			map[string]any{"duplicateDocumentId": duplicate.ID})
	}

	id := uuid.NewString()
	downloadName := blob.DownloadFileName(scope.DocType, scope.Platform, scope.Lang)
	storedName := blob.StoredFileName(id, downloadName)
	if err := s.blobs.Put(ctx, storedName, pdf, "application/pdf"); err != nil {
		return docstore.DocumentRecord{}, err
	}

	mimeType := input.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	now := time.Now().UTC()
	record := docstore.DocumentRecord{
		ID:                id,
		Scope:             scope,
		Version:           docstore.NextVersion(records, scope),
		ContentHash:       renderedHash,
		SourceContentHash: sourceHash,
		SizeBytes:         int64(len(pdf)),
		MimeType:          "application/pdf",
		OriginalMimeType:  mimeType,
		OriginalFileName:  input.FileName,
		StoredFileName:    storedName,
		DownloadFileName:  downloadName,
		ConvertedToPDF:    wasConverted,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.AppendDocument(record); err != nil {
		if removeErr := s.blobs.Remove(ctx, storedName); removeErr != nil {
			log.Printf("upload: orphaned blob %s after failed append: %v", storedName, removeErr)
		}
		return docstore.DocumentRecord{}, err
	}

	s.search.IndexDocument(record)
	return record, nil
}

// ListDocuments filters the collection. When a free-text term is present and
// the search index is healthy the index resolves it; otherwise the store's
// substring scan serves it.
func (s *Service) ListDocuments(ctx context.Context, filter docstore.Filter) []docstore.DocumentRecord {
	if filter.Search == "" {
		return s.store.QueryDocuments(filter)
	}
	ids, ok := s.search.MatchIDs(filter.Search)
	if !ok {
		return s.store.QueryDocuments(filter)
	}
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	remaining := filter
	remaining.Search = ""
	matched := s.store.QueryDocuments(remaining)
	out := make([]docstore.DocumentRecord, 0, len(matched))
	for _, record := range matched {
		if _, ok := allowed[record.ID]; ok {
			out = append(out, record)
		}
	}
	return out
}

// GetDocument returns one record by id, deleted or not.
func (s *Service) GetDocument(ctx context.Context, id string) (docstore.DocumentRecord, error) {
	return s.store.GetDocument(id)
}

// DeleteDocument soft-deletes a record. Repeating the call returns the same
// terminal state.
func (s *Service) DeleteDocument(ctx context.Context, id string) (docstore.DocumentRecord, error) {
	record, err := s.store.SoftDeleteDocument(id)
	if err != nil {
		return docstore.DocumentRecord{}, err
	}
	s.search.IndexDocument(record)
	return record, nil
}

// Download returns the rendered PDF for a record, converting and migrating
// stored non-PDF artifacts on first access.
func (s *Service) Download(ctx context.Context, id string) ([]byte, string, error) {
	record, err := s.store.GetDocument(id)
	if err != nil {
		return nil, "", err
	}
	return s.resolvePDF(ctx, record)
}

// resolvePDF loads the stored artifact, lazily converting it to PDF when the
// stored bytes predate the always-convert upload path. The migration swaps
// the blob and storage fields while preserving id, scope and version.
func (s *Service) resolvePDF(ctx context.Context, record docstore.DocumentRecord) ([]byte, string, error) {
	data, err := s.blobs.Get(ctx, record.StoredFileName)
	if err != nil {
		return nil, "", err
	}
	if record.IsPDF() {
		name := record.DownloadFileName
		if name == "" {
			name = "document.pdf"
		}
		return data, name, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pdf, _, err := s.converter.Convert(ctx, data, record.OriginalFileName)
	if err != nil {
		return nil, "", err
	}
	if err := s.checkPDF(pdf); err != nil {
		return nil, "", &converter.ConversionError{Reason: "converter produced an invalid PDF", Err: err}
	}

	downloadName := blob.DownloadFileName(record.DocType, record.Platform, record.Lang)
	storedName := blob.StoredFileName(record.ID, downloadName)
	if err := s.blobs.Put(ctx, storedName, pdf, "application/pdf"); err != nil {
		return nil, "", err
	}
	migrated, err := s.store.MigrateDocumentStorage(record.ID, docstore.StorageMigration{
		StoredFileName:   storedName,
		DownloadFileName: downloadName,
		MimeType:         "application/pdf",
		SizeBytes:        int64(len(pdf)),
		ContentHash:      docstore.HashContent(pdf),
	})
	if err != nil {
		return nil, "", err
	}
	if storedName != record.StoredFileName {
		if err := s.blobs.Remove(ctx, record.StoredFileName); err != nil {
			log.Printf("download: remove superseded blob %s: %v", record.StoredFileName, err)
		}
	}
	return pdf, migrated.DownloadFileName, nil
}

// PublicLatest builds the published index over the current collection.
func (s *Service) PublicLatest(ctx context.Context) manifest.Latest {
	return manifest.BuildLatest(s.store.Documents())
}

// PublicLatestPDF serves the current artifact for a public key.
func (s *Service) PublicLatestPDF(ctx context.Context, platform, docType, lang string) ([]byte, string, error) {
	record, found := manifest.LatestFor(s.store.Documents(), platform, docType, lang)
	if !found {
		return nil, "", fmt.Errorf("no document for scope %s/%s/%s: %w", platform, docType, lang, docstore.ErrNotFound)
	}
	return s.resolvePDF(ctx, record)
}

// CreatePublication starts the publish-to-public-repo workflow for one
// document and returns the queued job. The worker advances it asynchronously.
func (s *Service) CreatePublication(ctx context.Context, documentID, createdBy string) (docstore.PublicationJob, error) {
	record, err := s.store.GetDocument(documentID)
	if err != nil {
		return docstore.PublicationJob{}, err
	}
	if record.IsDeleted() {
		return docstore.PublicationJob{}, fmt.Errorf("document %s: %w", documentID, docstore.ErrNotFound)
	}

	job, err := s.store.CreateJob(docstore.PublicationJob{
		ID:           uuid.NewString(),
		DocumentID:   documentID,
		TargetRepo:   s.publisher.RepoSlug(),
		TargetBranch: publisher.BranchName(record),
		Strategy:     "pull-request",
		CreatedBy:    createdBy,
	})
	if err != nil {
		var conflict *docstore.ConflictError
		if errors.As(err, &conflict) {
			return docstore.PublicationJob{}, domainError(http.StatusConflict, "ACTIVE_JOB_EXISTS", conflict.Message,
				map[string]any{"activeJobId": conflict.ConflictID})
		}
		return docstore.PublicationJob{}, err
	}

	if s.publishAsync {
		go func() {
			if err := s.ProcessPublication(context.Background(), job.ID); err != nil {
				log.Printf("publication %s: %v", job.ID, err)
			}
		}()
	}
	return job, nil
}

// ProcessPublication advances one job through running to pr_open, or to
// failed. Failures are recorded on the job; retries require a new job.
func (s *Service) ProcessPublication(ctx context.Context, jobID string) error {
	job, err := s.store.AdvanceJob(jobID, docstore.JobRunning, nil)
	if err != nil {
		return err
	}

	fail := func(cause error) error {
		if _, advErr := s.store.AdvanceJob(jobID, docstore.JobFailed, func(j *docstore.PublicationJob) {
			j.ErrorMessage = cause.Error()
		}); advErr != nil {
			return fmt.Errorf("record failure for job %s: %w", jobID, advErr)
		}
		return cause
	}

	record, err := s.store.GetDocument(job.DocumentID)
	if err != nil {
		return fail(err)
	}
	pdf, _, err := s.resolvePDF(ctx, record)
	if err != nil {
		return fail(err)
	}

	latest := manifest.BuildLatest(s.store.Documents())
	commitSha, err := s.publisher.Publish(record, pdf, latest, job.TargetBranch, job.CreatedBy)
	if err != nil {
		return fail(err)
	}

	prURL := s.publisher.PRURL(jobID)
	if _, err := s.store.AdvanceJob(jobID, docstore.JobPROpen, func(j *docstore.PublicationJob) {
		j.CommitSha = commitSha
		j.PRURL = prURL
	}); err != nil {
		return err
	}
	return nil
}

// ConfirmMerged records an external merge confirmation for a job.
func (s *Service) ConfirmMerged(ctx context.Context, jobID string) (docstore.PublicationJob, error) {
	return s.store.AdvanceJob(jobID, docstore.JobMerged, nil)
}

// GetPublicationJob returns one job by id.
func (s *Service) GetPublicationJob(ctx context.Context, jobID string) (docstore.PublicationJob, error) {
	return s.store.GetJob(jobID)
}

// ConverterHealth probes the configured conversion backend.
func (s *Service) ConverterHealth(ctx context.Context) converter.Health {
	return s.converter.DetectHealth(ctx)
}

// Authorize validates a bearer token. With login disabled every request is
// allowed through.
func (s *Service) Authorize(ctx context.Context, token string) bool {
	if !s.cfg.RequireLogin {
		return true
	}
	if token == "" {
		return false
	}
	_, err := s.sessions.Validate(ctx, token)
	return err == nil
}

// Login delegates credentials to the upstream auth service and issues a
// local bearer session.
func (s *Service) Login(ctx context.Context, username, password string) (string, session.User, error) {
	user, err := s.upstream.Login(ctx, username, password)
	if err != nil {
		return "", session.User{}, err
	}
	token, err := s.sessions.Issue(ctx, user, s.cfg.SessionTTL)
	if err != nil {
		return "", session.User{}, err
	}
	return token, user, nil
}

// Logout revokes a bearer session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		log.Printf("logout: revoke session: %v", err)
	}
}

// CurrentUser resolves the session behind a bearer token.
func (s *Service) CurrentUser(ctx context.Context, token string) (session.User, error) {
	return s.sessions.Validate(ctx, token)
}

// UploadConfig fetches platform/line/language options from upstream.
func (s *Service) UploadConfig(ctx context.Context) (UploadOptions, error) {
	return s.upstream.FetchConfig(ctx)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *docstore.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Error(), map[string]any{"field": validationErr.Field}
	}
	var conflictErr *docstore.ConflictError
	if errors.As(err, &conflictErr) {
		return http.StatusConflict, "CONFLICT", conflictErr.Message, map[string]any{"conflictId": conflictErr.ConflictID}
	}
	var conversionErr *converter.ConversionError
	if errors.As(err, &conversionErr) {
		return http.StatusUnprocessableEntity, "CONVERSION_FAILED", conversionErr.Error(), nil
	}
	var storageErr *docstore.StorageError
	if errors.As(err, &storageErr) {
		return http.StatusInternalServerError, "STORAGE_ERROR", "Storage failure", nil
	}
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, blob.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, ErrAuthNotConfigured) {
		return http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Centralized auth is not configured", nil
	}
	if errors.Is(err, ErrUpstreamRejected) {
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Upstream auth service unavailable", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
