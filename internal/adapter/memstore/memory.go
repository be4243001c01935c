package memstore

import (
	"sort"
	"sync"

	"podcast/internal/domain"
	"podcast/internal/errs"
)

// MemoryStore is an in-memory episode store for tests and dry runs.
type MemoryStore struct {
	mu        sync.RWMutex
	processed map[string]struct{}
	episodes  map[int]domain.Episode
	closed    bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		processed: make(map[string]struct{}),
		episodes:  make(map[int]domain.Episode),
	}
}

func (s *MemoryStore) IsProcessed(guid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[guid]
	return ok, nil
}

func (s *MemoryStore) MarkProcessed(guid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[guid] = struct{}{}
	return nil
}

func (s *MemoryStore) NextEpisodeNumber() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for n := range s.episodes {
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (s *MemoryStore) PutEpisode(ep domain.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes[ep.Number] = ep
	return nil
}

func (s *MemoryStore) GetEpisode(number int) (domain.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.episodes[number]
	if !ok {
		return domain.Episode{}, errs.New(errs.CodeEpisodeNotFound, "episode not found", errs.Field("number", number))
	}
	return ep, nil
}

func (s *MemoryStore) ListEpisodes() ([]domain.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	episodes := make([]domain.Episode, 0, len(s.episodes))
	for _, ep := range s.episodes {
		episodes = append(episodes, ep)
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].Number < episodes[j].Number })
	return episodes, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *MemoryStore) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
