package docstore

import (
	"fmt"
	"time"
)

// Allowed job transitions. Terminal states have no successors; a failed
// publication is retried by creating a new job, never by reviving this one.
var jobTransitions = map[string][]string{
	JobQueued:  {JobRunning, JobFailed},
	JobRunning: {JobPROpen, JobFailed},
	JobPROpen:  {JobMerged, JobFailed},
}

func transitionAllowed(from, to string) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateJob appends a new publication job in the queued state. It fails with
// a ConflictError when an active job already exists for the same document.
func (s *Store) CreateJob(job PublicationJob) (PublicationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.PublicationJobs {
		if existing.DocumentID == job.DocumentID && existing.IsActive() {
			return PublicationJob{}, &ConflictError{
				ConflictID: existing.ID,
				Message:    "an active publication job already exists for this document",
			}
		}
	}

	now := time.Now().UTC()
	job.Status = JobQueued
	job.CreatedAt = now
	job.UpdatedAt = now
	s.data.PublicationJobs = append(s.data.PublicationJobs, job)
	if err := s.persist(); err != nil {
		s.data.PublicationJobs = s.data.PublicationJobs[:len(s.data.PublicationJobs)-1]
		return PublicationJob{}, err
	}
	return job, nil
}

// GetJob returns the publication job with the given id.
func (s *Store) GetJob(id string) (PublicationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.data.PublicationJobs {
		if job.ID == id {
			return job, nil
		}
	}
	return PublicationJob{}, fmt.Errorf("publication job %s: %w", id, ErrNotFound)
}

// FindActiveJob returns the active job for a document, or nil.
func (s *Store) FindActiveJob(documentID string) *PublicationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.PublicationJobs {
		job := s.data.PublicationJobs[i]
		if job.DocumentID == documentID && job.IsActive() {
			return &job
		}
	}
	return nil
}

// AdvanceJob moves a job to the next status, applying any extra field updates
// (commit SHA, PR URL, error message) before persisting. Invalid transitions
// fail with a ConflictError naming the job.
func (s *Store) AdvanceJob(id, status string, apply func(*PublicationJob)) (PublicationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.PublicationJobs {
		if s.data.PublicationJobs[i].ID != id {
			continue
		}
		job := &s.data.PublicationJobs[i]
		if !transitionAllowed(job.Status, status) {
			return PublicationJob{}, &ConflictError{
				ConflictID: job.ID,
				Message:    fmt.Sprintf("cannot transition publication job from %s to %s", job.Status, status),
			}
		}
		previous := *job
		job.Status = status
		if apply != nil {
			apply(job)
		}
		job.UpdatedAt = time.Now().UTC()
		if err := s.persist(); err != nil {
			*job = previous
			return PublicationJob{}, err
		}
		return *job, nil
	}
	return PublicationJob{}, fmt.Errorf("publication job %s: %w", id, ErrNotFound)
}
