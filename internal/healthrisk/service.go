package healthrisk

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/i474232898/health-risk-history/internal/environment"
	"github.com/i474232898/health-risk-history/internal/observability"
	"github.com/i474232898/health-risk-history/internal/risk"
)

// Options tunes a generation run.
type Options struct {
	Workers     int           // concurrent users
	PageSize    int           // user ids per directory page
	UserTimeout time.Duration // deadline for one user's processing
}

// DefaultOptions are used for zero fields of Options.
var DefaultOptions = Options{
	Workers:     4,
	PageSize:    500,
	UserTimeout: 30 * time.Second,
}

// Deps are the collaborators of a Service. Locations, Locker, Clock, Metrics
// and Logger are optional.
type Deps struct {
	Users       UserDirectory
	Profiles    ProfileStore
	History     HistoryStore
	Environment EnvironmentFetcher
	Locations   environment.LocationResolver
	Locker      RunLocker
	Clock       clockwork.Clock
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// Service runs the daily health history generation.
type Service struct {
	users     UserDirectory
	profiles  ProfileStore
	history   HistoryStore
	env       EnvironmentFetcher
	locations environment.LocationResolver
	locker    RunLocker
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *zap.Logger
	opts      Options
}

// NewService creates a new Service.
func NewService(deps Deps, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions.Workers
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultOptions.PageSize
	}
	if opts.UserTimeout <= 0 {
		opts.UserTimeout = DefaultOptions.UserTimeout
	}

	s := &Service{
		users:     deps.Users,
		profiles:  deps.Profiles,
		history:   deps.History,
		env:       deps.Environment,
		locations: deps.Locations,
		locker:    deps.Locker,
		clock:     deps.Clock,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		opts:      opts,
	}
	if s.locations == nil {
		s.locations = environment.FixedLocation(environment.DefaultCoordinate)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetricsForTesting()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// RunDailyGeneration computes and stores today's risk record for every known user.
// Per-user failures are reported in the BatchReport; only a failure to enumerate
// users (ErrBatchFatal) or to take the run lock aborts the run.
func (s *Service) RunDailyGeneration(ctx context.Context) (BatchReport, error) {
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))

	if s.locker != nil {
		release, acquired, err := s.locker.Acquire(ctx, runID)
		if err != nil {
			s.metrics.RunsTotal.WithLabelValues("fatal").Inc()
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			s.metrics.RunsTotal.WithLabelValues("locked").Inc()
			logger.Warn("another generation run holds the lock; skipping")
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	start := s.clock.Now()
	today := Day(start)

	s.metrics.RunInFlight.Set(1)
	defer s.metrics.RunInFlight.Set(0)

	logger.Info("starting health history generation", zap.String("date", today.Format(DateLayout)))

	report, err := s.run(ctx, logger, today)
	s.metrics.RunDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		s.metrics.RunsTotal.WithLabelValues("fatal").Inc()
		logger.Error("health history generation aborted", zap.Error(err))
		return nil, err
	}

	s.metrics.RunsTotal.WithLabelValues("completed").Inc()
	counts := report.Counts()
	logger.Info("health history generation completed",
		zap.Int("users", len(report)),
		zap.Int("success", counts[StatusSuccess]),
		zap.Int("skipped", counts[StatusSkipped]),
		zap.Int("error", counts[StatusError]),
	)
	return report, nil
}

type job struct {
	index  int
	userID string
}

type indexedOutcome struct {
	index   int
	outcome Outcome
}

// run streams user ids from the directory into a bounded worker pool.
func (s *Service) run(ctx context.Context, logger *zap.Logger, today time.Time) (BatchReport, error) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		collected []indexedOutcome
	)

	jobs := make(chan job)
	cache := newReadingCache()

	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				out := s.processUser(ctx, logger, j.userID, today, cache)

				mu.Lock()
				collected = append(collected, indexedOutcome{index: j.index, outcome: out})
				mu.Unlock()
			}
		}()
	}

	enumErr := s.enumerate(ctx, func(index int, userID string) bool {
		select {
		case jobs <- job{index: index, userID: userID}:
			return true
		case <-ctx.Done():
			return false
		}
	})
	close(jobs)
	wg.Wait()

	if enumErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchFatal, enumErr)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	report := make(BatchReport, 0, len(collected))
	for _, c := range collected {
		report = append(report, c.outcome)
	}
	return report, nil
}

// enumerate pages through the user directory, handing each id to emit.
func (s *Service) enumerate(ctx context.Context, emit func(index int, userID string) bool) error {
	if s.users == nil {
		return fmt.Errorf("user directory not configured")
	}

	after := ""
	index := 0
	for {
		ids, err := s.users.ListUserIDs(ctx, after, s.opts.PageSize)
		if err != nil {
			return fmt.Errorf("list users after %q: %w", after, err)
		}

		for _, id := range ids {
			if !emit(index, id) {
				return ctx.Err()
			}
			index++
		}

		if len(ids) < s.opts.PageSize {
			return nil
		}

		// Directories may order ids by collation, so only a repeated cursor is an error.
		next := ids[len(ids)-1]
		if next == after {
			return fmt.Errorf("user directory page did not advance past %q", after)
		}
		after = next
	}
}

// processUser never returns an error: every failure, including a panic,
// becomes an error outcome for this user only.
func (s *Service) processUser(ctx context.Context, logger *zap.Logger, userID string, today time.Time, cache *readingCache) (out Outcome) {
	logger = logger.With(zap.String("user_id", userID))

	defer func() {
		if r := recover(); r != nil {
			err := &UserProcessingError{UserID: userID, Stage: StagePanic, Err: fmt.Errorf("%v", r)}
			out = Outcome{UserID: userID, Status: StatusError, Error: err.Error()}
		}
		if out.Status == StatusError {
			logger.Error("failed to generate health history", zap.String("error", out.Error))
		}
		s.metrics.UserOutcomes.WithLabelValues(string(out.Status)).Inc()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.UserTimeout)
	defer cancel()

	level, created, err := s.generateForUser(ctx, logger, userID, today, cache)
	switch {
	case err != nil:
		return Outcome{UserID: userID, Status: StatusError, Error: err.Error()}
	case !created:
		logger.Info("health history already exists for today")
		return Outcome{UserID: userID, Status: StatusSkipped}
	default:
		s.metrics.RiskLevels.WithLabelValues(string(level)).Inc()
		logger.Info("created health history", zap.String("risk_level", string(level)))
		return Outcome{UserID: userID, Status: StatusSuccess, RiskLevel: level}
	}
}

func (s *Service) generateForUser(ctx context.Context, logger *zap.Logger, userID string, today time.Time, cache *readingCache) (risk.Level, bool, error) {
	fail := func(stage string, err error) (risk.Level, bool, error) {
		return "", false, &UserProcessingError{UserID: userID, Stage: stage, Err: err}
	}

	profile, err := s.profiles.GetHealthProfile(ctx, userID)
	if err != nil {
		return fail(StageProfile, err)
	}

	at, err := s.locations.Resolve(ctx, userID)
	if err != nil {
		return fail(StageLocation, err)
	}

	reading, ok := cache.get(at)
	if !ok {
		reading, err = s.env.Fetch(ctx, at)
		if err != nil {
			return fail(StageEnvironment, err)
		}
		cache.put(at, reading)
	}

	assessment := risk.Score(reading, profile)
	logger.Debug("scored environmental risk",
		zap.Time("observed_at", reading.Timestamp),
		zap.Strings("providers", reading.ProviderNames()),
		zap.Float64("temperature", reading.Temperature),
		zap.Float64("humidity", reading.Humidity),
		zap.Int("aqi", reading.AQI),
		zap.Bool("has_profile", profile != nil),
		zap.Int("score", assessment.Score),
	)

	exists, err := s.history.RecordExists(ctx, userID, today)
	if err != nil {
		return fail(StageHistory, err)
	}
	if exists {
		return assessment.Level, false, nil
	}

	rec := Record{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        today,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		AQI:         reading.AQI,
		RiskLevel:   assessment.Level,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.history.InsertRecord(ctx, rec); err != nil {
		return fail(StageHistory, err)
	}
	return assessment.Level, true, nil
}

// readingCache shares successful readings per coordinate within one run.
// Failures are not cached.
type readingCache struct {
	mu       sync.Mutex
	readings map[environment.Coordinate]environment.Reading
}

func newReadingCache() *readingCache {
	return &readingCache{readings: make(map[environment.Coordinate]environment.Reading)}
}

func (c *readingCache) get(at environment.Coordinate) (environment.Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.readings[at]
	return r, ok
}

func (c *readingCache) put(at environment.Coordinate, r environment.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readings[at] = r
}
