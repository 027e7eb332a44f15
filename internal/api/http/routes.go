package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/health-risk-history/internal/healthrisk"
	"github.com/i474232898/health-risk-history/internal/risk"
	"github.com/i474232898/health-risk-history/internal/store"
)

var validate = validator.New()

// defaultHistoryDays is the window served when no range is given.
const defaultHistoryDays = 7

// corsHeaders are sent on the generation endpoint, preflight included.
var corsHeaders = map[string]string{
	fiber.HeaderAccessControlAllowOrigin:  "*",
	fiber.HeaderAccessControlAllowHeaders: "authorization, x-client-info, apikey, content-type",
}

// BatchRunner runs one daily generation pass.
type BatchRunner interface {
	RunDailyGeneration(ctx context.Context) (healthrisk.BatchReport, error)
}

// Handlers bundles the collaborators of the HTTP API.
type Handlers struct {
	Runner   BatchRunner
	History  healthrisk.HistoryReader
	Profiles healthrisk.ProfileWriter
	Clock    clockwork.Clock

	// RunTimeout bounds an HTTP-triggered run; zero means no bound.
	RunTimeout time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h Handlers) {
	if h.Clock == nil {
		h.Clock = clockwork.NewRealClock()
	}

	v1 := app.Group("/api/v1")

	// Preflight answers with headers only, whatever the batch is doing.
	v1.Options("/health-history/generate", withCORS, func(c *fiber.Ctx) error {
		c.Status(fiber.StatusOK)
		return nil
	})

	v1.Post("/health-history/generate", withCORS, func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if h.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.RunTimeout)
			defer cancel()
		}

		report, err := h.Runner.RunDailyGeneration(ctx)
		if err != nil {
			status := fiber.StatusInternalServerError
			if errors.Is(err, healthrisk.ErrRunInProgress) {
				status = fiber.StatusConflict
			}
			return c.Status(status).JSON(generateFailure{Success: false, Error: err.Error()})
		}

		if report == nil {
			report = healthrisk.BatchReport{}
		}
		return c.JSON(generateResponse{
			Success: true,
			Message: "Health history generation completed",
			Results: report,
		})
	})

	v1.Put("/users/:userID/health-profile", func(c *fiber.Ctx) error {
		var req healthProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		req.UserID = c.Params("userID")

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		profile := req.profile()
		if err := h.Profiles.SaveHealthProfile(c.UserContext(), req.UserID, profile); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save health profile")
		}

		return c.JSON(fiber.Map{
			"user_id": req.UserID,
			"profile": profile,
		})
	})

	v1.Get("/users/:userID/health-history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c, h.Clock.Now()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := h.History.ListHistory(c.UserContext(), req.UserID, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no health history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch health history")
		}

		return c.JSON(fiber.Map{
			"user_id": req.UserID,
			"from":    req.From.Format(healthrisk.DateLayout),
			"to":      req.To.Format(healthrisk.DateLayout),
			"records": records,
		})
	})
}

func withCORS(c *fiber.Ctx) error {
	for k, v := range corsHeaders {
		c.Set(k, v)
	}
	return c.Next()
}

type generateResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Results healthrisk.BatchReport `json:"results"`
}

type generateFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// healthProfileRequest is the survey answer set stored for a user.
type healthProfileRequest struct {
	UserID          string `json:"-" validate:"required,max=128"`
	HasAsthma       bool   `json:"has_asthma"`
	HasHeartDisease bool   `json:"has_heart_disease"`
	HasAllergy      bool   `json:"has_allergy"`
	Smoking         bool   `json:"smoking"`
	ActivityLevel   string `json:"activity_level" validate:"omitempty,oneof=low medium high sedentary"`
	Exercise        string `json:"exercise" validate:"omitempty,oneof=none low medium high never"`
}

func (r healthProfileRequest) profile() risk.HealthProfile {
	return risk.HealthProfile{
		HasAsthma:       r.HasAsthma,
		HasHeartDisease: r.HasHeartDisease,
		HasAllergy:      r.HasAllergy,
		Smoking:         r.Smoking,
		ActivityLevel:   r.ActivityLevel,
		Exercise:        r.Exercise,
	}
}

// historyQuery holds the parameters of the history endpoint.
type historyQuery struct {
	UserID string    `validate:"required,max=128"`
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx, now time.Time) error {
	h.UserID = c.Params("userID")

	h.To = healthrisk.Day(now)
	if s := c.Query("to"); s != "" {
		to, err := parseDate(s)
		if err != nil {
			return err
		}
		h.To = to
	}

	h.From = h.To.AddDate(0, 0, -(defaultHistoryDays - 1))
	if s := c.Query("from"); s != "" {
		from, err := parseDate(s)
		if err != nil {
			return err
		}
		h.From = from
	}
	return nil
}

// parseDate accepts YYYY-MM-DD or RFC3339 and truncates to the UTC day.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(healthrisk.DateLayout, s); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return healthrisk.Day(ts), nil
	}
	return time.Time{}, errors.New("invalid date format; use YYYY-MM-DD or RFC3339")
}
