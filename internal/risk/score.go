// Package risk turns an environmental reading and a health profile into a
// categorical risk level.
package risk

import (
	"github.com/i474232898/health-risk-history/internal/environment"
)

// Level is the categorical outcome of scoring.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// Values of HealthProfile.ActivityLevel and HealthProfile.Exercise that add points.
const (
	ActivitySedentary = "sedentary"
	ExerciseNever     = "never"
)

// HealthProfile is the self-reported subset of a user's health data that the
// score depends on. The zero value (and a nil profile) contributes nothing.
type HealthProfile struct {
	HasAsthma       bool   `json:"has_asthma"`
	HasHeartDisease bool   `json:"has_heart_disease"`
	HasAllergy      bool   `json:"has_allergy"`
	Smoking         bool   `json:"smoking"`
	ActivityLevel   string `json:"activity_level,omitempty"` // low, medium, high or sedentary
	Exercise        string `json:"exercise,omitempty"`       // none, low, medium, high or never
}

// Assessment is the result of Score.
type Assessment struct {
	Score int   `json:"score"`
	Level Level `json:"level"`
}

// Score computes the additive risk score for a reading and an optional profile.
func Score(r environment.Reading, p *HealthProfile) Assessment {
	var profile HealthProfile
	if p != nil {
		profile = *p
	}

	temp := r.Temperature
	aqi := r.AQI
	score := 0

	switch {
	case temp < 0 || temp > 35:
		score += 2
	case temp < 10 || temp > 30:
		score++
	}

	switch {
	case aqi > 150:
		score += 3
	case aqi > 100:
		score += 2
	case aqi > 50:
		score++
	}

	if r.Humidity > 80 || r.Humidity < 30 {
		score++
	}

	if profile.HasAsthma && aqi > 50 {
		score += 2
	}
	if profile.HasHeartDisease && (temp > 30 || temp < 5) {
		score += 2
	}
	if profile.HasAllergy && aqi > 100 {
		score++
	}
	if profile.Smoking {
		score++
	}
	if profile.ActivityLevel == ActivitySedentary {
		score++
	}
	if profile.Exercise == ExerciseNever {
		score++
	}

	return Assessment{Score: score, Level: LevelFor(score)}
}

// LevelFor maps a score to its level.
func LevelFor(score int) Level {
	switch {
	case score >= 6:
		return LevelHigh
	case score >= 3:
		return LevelModerate
	default:
		return LevelLow
	}
}
