package bucket

import (
	"context"
	"sync"
	"time"

	"arisan/internal/ratelimit/models"
)

// InMemory is a process-local sliding window store. Use Redis when more than
// one replica serves traffic.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	hits []time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{windows: make(map[string]*slidingWindow), now: time.Now}
}

// Allow records a hit for key when fewer than limit hits fall within window.
func (s *InMemory) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.windows[key]
	if sw == nil {
		sw = &slidingWindow{}
		s.windows[key] = sw
	}
	sw.evict(now.Add(-window))

	if len(sw.hits) >= limit {
		resetAt := now.Add(window)
		if len(sw.hits) > 0 {
			resetAt = sw.hits[0].Add(window)
		}
		return &models.Result{
			Allowed:    false,
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: models.RetryAfterSeconds(now, resetAt),
		}, nil
	}

	sw.hits = append(sw.hits, now)
	return &models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.hits),
		ResetAt:   sw.hits[0].Add(window),
	}, nil
}

// Reset forgets every hit recorded for key.
func (s *InMemory) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (sw *slidingWindow) evict(cutoff time.Time) {
	i := 0
	for i < len(sw.hits) && !sw.hits[i].After(cutoff) {
		i++
	}
	sw.hits = sw.hits[i:]
}
