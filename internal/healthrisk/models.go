package healthrisk

import (
	"time"

	"github.com/i474232898/health-risk-history/internal/risk"
)

// DateLayout is the layout of the per-day history key.
const DateLayout = "2006-01-02"

// Status is the per-user result of a generation run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Record is one row of a user's daily health history.
type Record struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Date        time.Time  `json:"date"` // UTC midnight
	Temperature float64    `json:"temperature"`
	Humidity    float64    `json:"humidity"`
	AQI         int        `json:"aqi"`
	RiskLevel   risk.Level `json:"risk_level"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Outcome is one entry of a BatchReport.
type Outcome struct {
	UserID    string     `json:"user_id"`
	Status    Status     `json:"status"`
	RiskLevel risk.Level `json:"risk_level,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// BatchReport lists outcomes in user enumeration order.
type BatchReport []Outcome

// Counts tallies outcomes by status.
func (r BatchReport) Counts() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, o := range r {
		counts[o.Status]++
	}
	return counts
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
