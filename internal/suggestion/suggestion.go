package suggestion

import (
	"time"

	"github.com/noble-hunt/axle/internal/workout"
)

// SuggestedWorkout is the per (user, day) row produced by the daily job
// (or the on-demand fallback). The unique index on (user_id, day) is the
// only concurrency control for its creation: concurrent inserts are
// expected and the loser treats the violation as a benign duplicate.
type SuggestedWorkout struct {
	ID          int               `json:"id"`
	UserID      string            `json:"userId"`
	Day         time.Time         `json:"day"`
	Category    workout.Category  `json:"category"`
	Intensity   int               `json:"intensity"`
	DurationMin int               `json:"durationMin"`
	Rationale   []string          `json:"rationale"`
	WorkoutID   *int              `json:"workoutId,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Target is the derived workout request before persistence.
type Target struct {
	Category    workout.Category `json:"category"`
	Intensity   int              `json:"intensity"`
	DurationMin int              `json:"durationMin"`
	Rationale   []string         `json:"rationale"`
}

// PersonalRecord is a recent PR, part of the suggestion inputs for
// completeness of the derivation context.
type PersonalRecord struct {
	Exercise   string    `json:"exercise"`
	Value      float64   `json:"value"`
	AchievedAt time.Time `json:"achievedAt"`
}
