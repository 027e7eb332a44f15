package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/health-risk-history/internal/healthrisk"
	"github.com/i474232898/health-risk-history/internal/risk"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMemoryStore_ListUserIDsPaginates(t *testing.T) {
	s := NewMemoryStore(0)
	for _, id := range []string{"c", "a", "e", "b", "d"} {
		s.AddUser(id, nil)
	}
	ctx := context.Background()

	page, err := s.ListUserIDs(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, page)

	page, err = s.ListUserIDs(ctx, "b", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, page)

	page, err = s.ListUserIDs(ctx, "d", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, page)
}

func TestMemoryStore_GetHealthProfile(t *testing.T) {
	s := NewMemoryStore(0)
	s.AddUser("with", &risk.HealthProfile{HasAsthma: true})
	s.AddUser("without", nil)

	p, err := s.GetHealthProfile(context.Background(), "with")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.HasAsthma)

	p, err = s.GetHealthProfile(context.Background(), "without")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemoryStore_RecordExistsAndInsert(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	exists, err := s.RecordExists(ctx, "u1", day(2026, 10, 19))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.InsertRecord(ctx, healthrisk.Record{
		ID:        "r1",
		UserID:    "u1",
		Date:      time.Date(2026, 10, 19, 13, 45, 0, 0, time.UTC),
		RiskLevel: risk.LevelLow,
	}))

	exists, err = s.RecordExists(ctx, "u1", time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.RecordExists(ctx, "u1", day(2026, 10, 20))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStore_ListHistoryOrderedAndRetained(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()

	for _, d := range []int{14, 12, 15, 13} {
		require.NoError(t, s.InsertRecord(ctx, healthrisk.Record{UserID: "u1", Date: day(2026, 10, d)}))
	}

	records, err := s.ListHistory(ctx, "u1", day(2026, 10, 1), day(2026, 10, 31))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, day(2026, 10, 13), records[0].Date)
	assert.Equal(t, day(2026, 10, 15), records[2].Date)

	records, err = s.ListHistory(ctx, "u1", day(2026, 10, 14), day(2026, 10, 14))
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = s.ListHistory(ctx, "u1", day(2026, 11, 1), day(2026, 11, 2))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ListHistory(ctx, "nobody", day(2026, 10, 1), day(2026, 10, 31))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SaveHealthProfile(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	require.NoError(t, s.SaveHealthProfile(ctx, "u2", risk.HealthProfile{HasAllergy: true}))
	require.NoError(t, s.SaveHealthProfile(ctx, "u1", risk.HealthProfile{Smoking: true}))
	require.NoError(t, s.SaveHealthProfile(ctx, "u2", risk.HealthProfile{Exercise: risk.ExerciseNever}))

	ids, err := s.ListUserIDs(ctx, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)

	p, err := s.GetHealthProfile(ctx, "u2")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, risk.HealthProfile{Exercise: risk.ExerciseNever}, *p)
}
