package session

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryOption configures a [MemoryStore].
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxEntries bounds the number of tracked tokens. When the bound is
// exceeded the least recently used token is evicted.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

type memoryEntry struct {
	token   string
	touched time.Time
}

// MemoryStore is an in-process LRU of session tokens with sliding expiry.
//
// The list is ordered by last access, most recent first, so expired entries
// always collect at the back and are pruned from there.
type MemoryStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	order      *list.List
	items      map[string]*list.Element
	evicted    uint64
}

// NewMemoryStore creates a [MemoryStore] whose entries expire after ttl of
// inactivity.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) (*MemoryStore, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	s := &MemoryStore{
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured idle lifetime.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

func (s *MemoryStore) Get(_ context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[token]
	if !ok {
		return false, nil
	}

	now := s.now()
	entry := elem.Value.(*memoryEntry)
	if s.expired(entry, now) {
		s.removeElement(elem)
		return false, nil
	}

	entry.touched = now
	s.order.MoveToFront(elem)
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, token string) error {
	if token == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneExpired(now)

	if elem, ok := s.items[token]; ok {
		elem.Value.(*memoryEntry).touched = now
		s.order.MoveToFront(elem)
		return nil
	}

	s.items[token] = s.order.PushFront(&memoryEntry{token: token, touched: now})
	for s.order.Len() > s.maxEntries {
		s.removeElement(s.order.Back())
		s.evicted++
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[token]; ok {
		s.removeElement(elem)
	}
	return nil
}

func (s *MemoryStore) Len(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpired(s.now())
	return s.order.Len(), nil
}

// Ping always succeeds; the store has no remote dependency.
func (s *MemoryStore) Ping(context.Context) (time.Duration, error) {
	return 0, nil
}

// Evicted returns how many live tokens were dropped because the entry bound
// was exceeded.
func (s *MemoryStore) Evicted() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

func (s *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return now.Sub(e.touched) > s.ttl
}

func (s *MemoryStore) pruneExpired(now time.Time) {
	for {
		back := s.order.Back()
		if back == nil || !s.expired(back.Value.(*memoryEntry), now) {
			return
		}
		s.removeElement(back)
	}
}

func (s *MemoryStore) removeElement(elem *list.Element) {
	entry := s.order.Remove(elem).(*memoryEntry)
	delete(s.items, entry.token)
}
