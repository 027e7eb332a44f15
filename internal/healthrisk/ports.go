package healthrisk

import (
	"context"
	"time"

	"github.com/i474232898/health-risk-history/internal/environment"
	"github.com/i474232898/health-risk-history/internal/risk"
)

// UserDirectory enumerates known user ids in ascending order, one page at a time.
// Pages start strictly after the given id; an empty after starts from the beginning.
type UserDirectory interface {
	ListUserIDs(ctx context.Context, after string, limit int) ([]string, error)
}

// ProfileStore returns a user's health profile, or nil when the user has none.
type ProfileStore interface {
	GetHealthProfile(ctx context.Context, userID string) (*risk.HealthProfile, error)
}

// ProfileWriter registers a user and stores their health profile, replacing
// any previous one.
type ProfileWriter interface {
	SaveHealthProfile(ctx context.Context, userID string, profile risk.HealthProfile) error
}

// HistoryStore is the per-user, per-day record store.
type HistoryStore interface {
	RecordExists(ctx context.Context, userID string, date time.Time) (bool, error)
	InsertRecord(ctx context.Context, rec Record) error
}

// HistoryReader serves stored history for a user.
type HistoryReader interface {
	ListHistory(ctx context.Context, userID string, from, to time.Time) ([]Record, error)
}

// EnvironmentFetcher returns the current environmental reading at a coordinate.
type EnvironmentFetcher interface {
	Fetch(ctx context.Context, at environment.Coordinate) (environment.Reading, error)
}

// RunLocker serializes generation runs across processes.
// Acquire reports false when another run holds the lock.
type RunLocker interface {
	Acquire(ctx context.Context, owner string) (release func(context.Context) error, acquired bool, err error)
}
