package workout

import (
	"context"
	"time"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"
)

// Trends summarizes a user's recent workout pattern. The suggestion
// computer consumes the same building blocks (streak, gaps, average
// duration) through the pure helpers below.
type Trends struct {
	StreakCategory    Category            `json:"streakCategory"`
	StreakDays        int                 `json:"streakDays"`
	MissingCategories []Category          `json:"missingCategories"`
	AvgDurationMin    int                 `json:"avgDurationMin"`
	DayCategories     map[string]Category `json:"dayCategories"`
}

type trendsRepo interface {
	ListRecent(ctx context.Context, userID string, days int) ([]Workout, error)
}

type Analyzer struct {
	repo trendsRepo
}

func NewAnalyzer(repo trendsRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

func (a *Analyzer) Trends(ctx context.Context, userID string) (_ *Trends, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workout.trends")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workouts, err := a.repo.ListRecent(ctx, userID, 14)
	if err != nil {
		return nil, err
	}

	streakCategory, streakDays := CategoryStreak(workouts)

	dayCategories := make(map[string]Category)
	for _, w := range workouts {
		day := pkg.DayOf(w.CreatedAt)
		key := day.Format("2006-01-02")
		if _, ok := dayCategories[key]; !ok {
			dayCategories[key] = w.Category
		}
	}

	return &Trends{
		StreakCategory:    streakCategory,
		StreakDays:        streakDays,
		MissingCategories: MissingCategories(workouts),
		AvgDurationMin:    AvgDuration(workouts, time.Now(), 3, 35),
		DayCategories:     dayCategories,
	}, nil
}

// Yesterday returns the most recent workout done exactly one calendar day
// before `today`, or nil.
func Yesterday(workouts []Workout, today time.Time) *Workout {
	yesterday := pkg.DayOf(today).AddDate(0, 0, -1)
	for i := range workouts {
		if pkg.DayOf(workouts[i].CreatedAt).Equal(yesterday) {
			return &workouts[i]
		}
	}
	return nil
}

// CategoryStreak returns the category of the most recent workout day and
// how many consecutive calendar days (most-recent-first) share it. Days
// with multiple workouts count by their latest workout's category.
// Returns ("", 0) for an empty history.
func CategoryStreak(workouts []Workout) (Category, int) {
	if len(workouts) == 0 {
		return "", 0
	}

	// latest workout per day; workouts arrive newest first so first wins
	dayCategory := make(map[time.Time]Category)
	var days []time.Time
	for _, w := range workouts {
		day := pkg.DayOf(w.CreatedAt)
		if _, ok := dayCategory[day]; !ok {
			dayCategory[day] = w.Category
			days = append(days, day)
		}
	}

	streakCategory := dayCategory[days[0]]
	streak := 1
	for i := 1; i < len(days); i++ {
		prevDay := days[i-1].AddDate(0, 0, -1)
		if !days[i].Equal(prevDay) {
			break
		}
		if dayCategory[days[i]] != streakCategory {
			break
		}
		streak++
	}

	return streakCategory, streak
}

// MissingCategories returns the known categories absent from the given
// history, in the stable Categories order.
func MissingCategories(workouts []Workout) []Category {
	seen := make(map[Category]bool)
	for _, w := range workouts {
		seen[w.Category] = true
	}

	var missing []Category
	for _, c := range Categories {
		if !seen[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// AvgDuration averages the duration of workouts from the last `days`
// calendar days, falling back to `fallback` when there are none.
func AvgDuration(workouts []Workout, now time.Time, days int, fallback int) int {
	from := pkg.DayOf(now).AddDate(0, 0, -days)

	var sum, count int
	for _, w := range workouts {
		if w.CreatedAt.Before(from) {
			continue
		}
		sum += w.DurationMin
		count++
	}
	if count == 0 {
		return fallback
	}
	return sum / count
}
