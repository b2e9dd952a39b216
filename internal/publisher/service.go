// Package publisher maintains a local working tree of the public legal-docs
// repository and prepares publish branches for the pull-request workflow.
package publisher

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"webterms/api/internal/docstore"
	"webterms/api/internal/manifest"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const manifestFileName = "latest.json"

// Service writes published artifacts into a git working tree. One repository
// serves all documents, so a single mutex serializes every operation.
type Service struct {
	repoDir  string
	repoSlug string
	mu       sync.Mutex
}

func New(repoDir, repoSlug string) *Service {
	return &Service{repoDir: repoDir, repoSlug: repoSlug}
}

// RepoSlug is the owner/name of the public repository.
func (s *Service) RepoSlug() string {
	return s.repoSlug
}

// BranchName derives the publish branch for a document. Computed once at job
// creation and immutable thereafter.
func BranchName(record docstore.DocumentRecord) string {
	return fmt.Sprintf("publish/%s/%s/%s/v%d", record.Platform, record.DocType, record.Lang, record.Version)
}

// PRURL is the expected pull-request location for a job's branch.
func (s *Service) PRURL(jobID string) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("https://github.com/%s/pull/%s", s.repoSlug, short)
}

// Publish writes the document's PDF and the regenerated manifest on the given
// branch and commits. It returns the commit hash.
func (s *Service) Publish(record docstore.DocumentRecord, pdf []byte, latest manifest.Latest, branchName, author string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.ensureRepo(author)
	if err != nil {
		return "", err
	}
	if err := ensureBranch(repo, branchName, "main"); err != nil {
		return "", err
	}
	if err := checkoutBranch(repo, branchName); err != nil {
		return "", err
	}

	assetPath := filepath.Join(
		"documents", record.Platform, record.DocType, record.Lang, record.EffectiveDate,
		fmt.Sprintf("v%d.pdf", record.Version),
	)
	if err := os.MkdirAll(filepath.Join(s.repoDir, filepath.Dir(assetPath)), 0o755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.repoDir, assetPath), pdf, 0o644); err != nil {
		return "", fmt.Errorf("write published pdf: %w", err)
	}

	payload, err := json.MarshalIndent(latest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.repoDir, manifestFileName), append(payload, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(filepath.ToSlash(assetPath)); err != nil {
		return "", fmt.Errorf("git add published pdf: %w", err)
	}
	if _, err := worktree.Add(manifestFileName); err != nil {
		return "", fmt.Errorf("git add manifest: %w", err)
	}

	message := fmt.Sprintf("Publish %s %s %s v%d (effective %s)",
		record.Platform, record.DocType, record.Lang, record.Version, record.EffectiveDate)
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@webterms.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit published artifact: %w", err)
	}
	return hash.String(), nil
}

// History returns recent commits on a branch, newest first.
func (s *Service) History(branchName string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.repoDir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", branchName, err)
	}
	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	messages := make([]string, 0, limit)
	err = iter.ForEach(func(commit *object.Commit) error {
		messages = append(messages, strings.TrimSpace(commit.Message))
		if limit > 0 && len(messages) >= limit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return messages, nil
}

var errStopIteration = errors.New("stop iteration")

func (s *Service) ensureRepo(author string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoDir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(s.repoDir, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(s.repoDir, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.repoDir, manifestFileName), []byte("{}\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write initial manifest: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(manifestFileName); err != nil {
		return nil, fmt.Errorf("git add initial manifest: %w", err)
	}
	hash, err := worktree.Commit("Initialize public documents repository", &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@webterms.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("commit initial manifest: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
		return nil, fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func ensureBranch(repo *git.Repository, branchName, fromBranch string) error {
	branchRefName := plumbing.NewBranchReferenceName(branchName)
	if _, err := repo.Reference(branchRefName, true); err == nil {
		return nil
	}
	fromRef, err := repo.Reference(plumbing.NewBranchReferenceName(fromBranch), true)
	if err != nil {
		return fmt.Errorf("read source branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(branchRefName, fromRef.Hash())); err != nil {
		return fmt.Errorf("create branch ref: %w", err)
	}
	return nil
}

func checkoutBranch(repo *git.Repository, branchName string) error {
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	branchRef := plumbing.NewBranchReferenceName(branchName)
	if _, err := repo.Reference(branchRef, true); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			if err := worktree.Checkout(&git.CheckoutOptions{Branch: branchRef, Create: true}); err != nil {
				return fmt.Errorf("create branch checkout %s: %w", branchName, err)
			}
			return nil
		}
		return fmt.Errorf("resolve branch %s: %w", branchName, err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
		return fmt.Errorf("checkout branch %s: %w", branchName, err)
	}
	return nil
}

func sanitizeEmail(input string) string {
	runes := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			runes = append(runes, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			runes = append(runes, '.')
		}
	}
	if len(runes) == 0 {
		return "user"
	}
	return string(runes)
}
