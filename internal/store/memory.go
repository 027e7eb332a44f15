package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/health-risk-history/internal/healthrisk"
	"github.com/i474232898/health-risk-history/internal/risk"
)

var (
	// ErrNotFound is returned when no history exists for a user in a range.
	ErrNotFound = errors.New("no health history for user")
)

// userHistory holds a date-ordered list of records for a user.
type userHistory struct {
	Records []healthrisk.Record
}

// MemoryStore is a concurrency-safe in-memory implementation of the profile,
// health-profile and history collections.
type MemoryStore struct {
	mu sync.RWMutex

	// key: user id
	users    map[string]struct{}
	profiles map[string]risk.HealthProfile
	history  map[string]*userHistory

	// retention configuration
	maxHistory int // max number of records per user (0 = unlimited)
}

var (
	_ healthrisk.UserDirectory = (*MemoryStore)(nil)
	_ healthrisk.ProfileStore  = (*MemoryStore)(nil)
	_ healthrisk.ProfileWriter = (*MemoryStore)(nil)
	_ healthrisk.HistoryStore  = (*MemoryStore)(nil)
	_ healthrisk.HistoryReader = (*MemoryStore)(nil)
)

// NewMemoryStore creates a new MemoryStore.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]struct{}),
		profiles:   make(map[string]risk.HealthProfile),
		history:    make(map[string]*userHistory),
		maxHistory: maxHistory,
	}
}

// AddUser registers a user id, optionally with a health profile.
func (s *MemoryStore) AddUser(userID string, profile *risk.HealthProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[userID] = struct{}{}
	if profile != nil {
		s.profiles[userID] = *profile
	}
}

// SaveHealthProfile implements healthrisk.ProfileWriter.
func (s *MemoryStore) SaveHealthProfile(_ context.Context, userID string, profile risk.HealthProfile) error {
	s.AddUser(userID, &profile)
	return nil
}

// ListUserIDs implements healthrisk.UserDirectory.
func (s *MemoryStore) ListUserIDs(_ context.Context, after string, limit int) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		if id > after {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// GetHealthProfile implements healthrisk.ProfileStore.
func (s *MemoryStore) GetHealthProfile(_ context.Context, userID string) (*risk.HealthProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// RecordExists implements healthrisk.HistoryStore.
func (s *MemoryStore) RecordExists(_ context.Context, userID string, date time.Time) (bool, error) {
	day := healthrisk.Day(date)

	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[userID]
	if !ok {
		return false, nil
	}
	for _, rec := range h.Records {
		if rec.Date.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

// InsertRecord implements healthrisk.HistoryStore. Like the SQL store it does
// not reject a second record for the same day; callers check first.
func (s *MemoryStore) InsertRecord(_ context.Context, rec healthrisk.Record) error {
	rec.Date = healthrisk.Day(rec.Date)

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history[rec.UserID]
	if !ok {
		h = &userHistory{}
		s.history[rec.UserID] = h
	}

	i := sort.Search(len(h.Records), func(i int) bool { return h.Records[i].Date.After(rec.Date) })
	h.Records = append(h.Records, healthrisk.Record{})
	copy(h.Records[i+1:], h.Records[i:])
	h.Records[i] = rec

	// Enforce retention by count.
	if s.maxHistory > 0 && len(h.Records) > s.maxHistory {
		over := len(h.Records) - s.maxHistory
		h.Records = h.Records[over:]
	}
	return nil
}

// ListHistory returns a user's records between from and to (inclusive days).
func (s *MemoryStore) ListHistory(_ context.Context, userID string, from, to time.Time) ([]healthrisk.Record, error) {
	from, to = healthrisk.Day(from), healthrisk.Day(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[userID]
	if !ok || len(h.Records) == 0 {
		return nil, ErrNotFound
	}

	var result []healthrisk.Record
	for _, rec := range h.Records {
		if !rec.Date.Before(from) && !rec.Date.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
