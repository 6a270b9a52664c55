package ingest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory, thread-safe Store implementation. It is
// primarily useful for testing and for single-process deployments that do
// not require durable persistence across restarts. The mutex around
// check-and-insert gives it the same insert-if-absent guarantee the
// Postgres unique constraint provides.
type MemoryStore struct {
	mu       sync.RWMutex
	byHash   map[string]*Post
	alerts   map[uuid.UUID]*AlertRecord
	byPost   map[uuid.UUID][]*AlertRecord
	findings map[uuid.UUID][]FindingRecord
	entities map[uuid.UUID][]EntityRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHash:   make(map[string]*Post),
		alerts:   make(map[uuid.UUID]*AlertRecord),
		byPost:   make(map[uuid.UUID][]*AlertRecord),
		findings: make(map[uuid.UUID][]FindingRecord),
		entities: make(map[uuid.UUID][]EntityRecord),
	}
}

// GetPostByHash implements Store.
func (s *MemoryStore) GetPostByHash(_ context.Context, hash string) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// CreatePost implements Store.
func (s *MemoryStore) CreatePost(_ context.Context, p *Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[p.Hash]; ok {
		return ErrDuplicateContent
	}
	cp := *p
	s.byHash[p.Hash] = &cp
	return nil
}

// LatestAlertForPost implements Store.
func (s *MemoryStore) LatestAlertForPost(_ context.Context, postID uuid.UUID) (*AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alerts := s.byPost[postID]
	if len(alerts) == 0 {
		return nil, ErrNotFound
	}
	cp := *alerts[len(alerts)-1]
	return &cp, nil
}

// SaveAnalysis implements Store.
func (s *MemoryStore) SaveAnalysis(_ context.Context, alert *AlertRecord, findings []FindingRecord, entities []EntityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alert
	s.alerts[cp.ID] = &cp
	s.byPost[cp.PostID] = append(s.byPost[cp.PostID], &cp)
	s.findings[cp.PostID] = append(s.findings[cp.PostID], findings...)
	s.entities[cp.PostID] = append(s.entities[cp.PostID], entities...)
	return nil
}

// GetAlert implements Store.
func (s *MemoryStore) GetAlert(_ context.Context, id uuid.UUID) (*AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// ListAlerts implements Store.
func (s *MemoryStore) ListAlerts(_ context.Context, limit int) ([]*AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*AlertRecord, 0, len(s.alerts))
	for _, a := range s.alerts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindingsForPost returns the persisted findings for a post. Test helper.
func (s *MemoryStore) FindingsForPost(postID uuid.UUID) []FindingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]FindingRecord(nil), s.findings[postID]...)
}
