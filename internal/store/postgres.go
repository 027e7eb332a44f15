package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/i474232898/health-risk-history/internal/healthrisk"
	"github.com/i474232898/health-risk-history/internal/risk"
)

//go:embed schema.sql
var schemaSQL string

// psql builds queries with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore reads profiles and reads/writes health history in Postgres.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ healthrisk.UserDirectory = (*PostgresStore)(nil)
	_ healthrisk.ProfileStore  = (*PostgresStore)(nil)
	_ healthrisk.ProfileWriter = (*PostgresStore)(nil)
	_ healthrisk.HistoryStore  = (*PostgresStore)(nil)
	_ healthrisk.HistoryReader = (*PostgresStore)(nil)
)

// OpenPostgres opens and pings a Postgres connection pool.
func OpenPostgres(ctx context.Context, dsn string, maxConns, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("database schema applied")
	return nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListUserIDs implements healthrisk.UserDirectory with keyset pagination.
// Ids are ordered bytewise so the cursor does not depend on the database collation.
func (s *PostgresStore) ListUserIDs(ctx context.Context, after string, limit int) ([]string, error) {
	q := psql.Select("user_id").From("profiles").OrderBy(`user_id COLLATE "C"`)
	if after != "" {
		q = q.Where(sq.Expr(`user_id COLLATE "C" > ?`, after))
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query profiles: %v", healthrisk.ErrPersistence, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan user id: %v", healthrisk.ErrPersistence, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %v", healthrisk.ErrPersistence, err)
	}
	return ids, nil
}

// GetHealthProfile implements healthrisk.ProfileStore. NULL columns read as
// their no-effect value; a missing row returns nil.
func (s *PostgresStore) GetHealthProfile(ctx context.Context, userID string) (*risk.HealthProfile, error) {
	query, args, err := psql.
		Select("has_asthma", "has_heart_disease", "has_allergy", "smoking", "activity_level", "exercise").
		From("user_health_data").
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get health profile: %w", err)
	}

	var (
		asthma, heart, allergy, smoking sql.NullBool
		activity, exercise              sql.NullString
	)
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&asthma, &heart, &allergy, &smoking, &activity, &exercise)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query user_health_data: %v", healthrisk.ErrPersistence, err)
	}

	return &risk.HealthProfile{
		HasAsthma:       asthma.Bool,
		HasHeartDisease: heart.Bool,
		HasAllergy:      allergy.Bool,
		Smoking:         smoking.Bool,
		ActivityLevel:   activity.String,
		Exercise:        exercise.String,
	}, nil
}

// SaveHealthProfile implements healthrisk.ProfileWriter. The profiles row is
// created if missing and the user_health_data row is upserted, in one transaction.
func (s *PostgresStore) SaveHealthProfile(ctx context.Context, userID string, p risk.HealthProfile) (err error) {
	profileQuery, profileArgs, err := psql.
		Insert("profiles").
		Columns("user_id").
		Values(userID).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert profile: %w", err)
	}

	healthQuery, healthArgs, err := psql.
		Insert("user_health_data").
		Columns("user_id", "has_asthma", "has_heart_disease", "has_allergy", "smoking", "activity_level", "exercise").
		Values(userID, p.HasAsthma, p.HasHeartDisease, p.HasAllergy, p.Smoking, nullIfEmpty(p.ActivityLevel), nullIfEmpty(p.Exercise)).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			has_asthma = EXCLUDED.has_asthma,
			has_heart_disease = EXCLUDED.has_heart_disease,
			has_allergy = EXCLUDED.has_allergy,
			smoking = EXCLUDED.smoking,
			activity_level = EXCLUDED.activity_level,
			exercise = EXCLUDED.exercise`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert health data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", healthrisk.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, profileQuery, profileArgs...); err != nil {
		return fmt.Errorf("%w: insert profiles: %v", healthrisk.ErrPersistence, err)
	}
	if _, err = tx.ExecContext(ctx, healthQuery, healthArgs...); err != nil {
		return fmt.Errorf("%w: upsert user_health_data: %v", healthrisk.ErrPersistence, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", healthrisk.ErrPersistence, err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// RecordExists implements healthrisk.HistoryStore.
func (s *PostgresStore) RecordExists(ctx context.Context, userID string, date time.Time) (bool, error) {
	query, args, err := psql.
		Select("id").
		From("health_history").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Eq{"date": healthrisk.Day(date).Format(healthrisk.DateLayout)}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build record exists: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: query health_history: %v", healthrisk.ErrPersistence, err)
	}
	return true, nil
}

// InsertRecord implements healthrisk.HistoryStore.
func (s *PostgresStore) InsertRecord(ctx context.Context, rec healthrisk.Record) error {
	query, args, err := psql.
		Insert("health_history").
		Columns("id", "user_id", "date", "temperature", "humidity", "aqi", "risk_level", "created_at").
		Values(
			rec.ID,
			rec.UserID,
			healthrisk.Day(rec.Date).Format(healthrisk.DateLayout),
			rec.Temperature,
			rec.Humidity,
			rec.AQI,
			string(rec.RiskLevel),
			rec.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: insert health_history: %v", healthrisk.ErrPersistence, err)
	}
	return nil
}

// ListHistory returns a user's records between from and to (inclusive), oldest first.
func (s *PostgresStore) ListHistory(ctx context.Context, userID string, from, to time.Time) ([]healthrisk.Record, error) {
	query, args, err := psql.
		Select("id", "user_id", "date", "temperature", "humidity", "aqi", "risk_level", "created_at").
		From("health_history").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"date": healthrisk.Day(from).Format(healthrisk.DateLayout)}).
		Where(sq.LtOrEq{"date": healthrisk.Day(to).Format(healthrisk.DateLayout)}).
		OrderBy("date ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list history: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query health_history: %v", healthrisk.ErrPersistence, err)
	}
	defer rows.Close()

	var records []healthrisk.Record
	for rows.Next() {
		var (
			rec   healthrisk.Record
			level string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Temperature, &rec.Humidity, &rec.AQI, &level, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan health_history: %v", healthrisk.ErrPersistence, err)
		}
		rec.Date = healthrisk.Day(rec.Date)
		rec.RiskLevel = risk.Level(level)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %v", healthrisk.ErrPersistence, err)
	}

	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}
