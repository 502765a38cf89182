// ABOUTME: Review persistence interface and in-memory implementation
// ABOUTME: Stores files and their review history
package review

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store persists files and reviews
type Store interface {
	PutFile(ctx context.Context, file File) error
	File(ctx context.Context, id string) (File, error)
	// Files lists files of a project, or every file for an empty projectID,
	// oldest first.
	Files(ctx context.Context, projectID string) ([]File, error)
	AddReview(ctx context.Context, review Review) error
	// Reviews lists the reviews of a file, oldest first
	Reviews(ctx context.Context, fileID string) ([]Review, error)
}

// MemoryStore is a Store held in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	files   map[string]File
	reviews map[string][]Review
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:   make(map[string]File),
		reviews: make(map[string][]Review),
	}
}

func (s *MemoryStore) PutFile(ctx context.Context, file File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file.ID] = file
	return nil
}

func (s *MemoryStore) File(ctx context.Context, id string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.files[id]
	if !ok {
		return File{}, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	return file, nil
}

func (s *MemoryStore) Files(ctx context.Context, projectID string) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]File, 0, len(s.files))
	for _, f := range s.files {
		if projectID == "" || f.ProjectID == projectID {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].ID < files[j].ID
		}
		return files[i].CreatedAt.Before(files[j].CreatedAt)
	})
	return files, nil
}

func (s *MemoryStore) AddReview(ctx context.Context, review Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[review.FileID]; !ok {
		return fmt.Errorf("file %s: %w", review.FileID, ErrNotFound)
	}
	s.reviews[review.FileID] = append(s.reviews[review.FileID], review)
	return nil
}

func (s *MemoryStore) Reviews(ctx context.Context, fileID string) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.files[fileID]; !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	out := make([]Review, len(s.reviews[fileID]))
	copy(out, s.reviews[fileID])
	return out, nil
}
