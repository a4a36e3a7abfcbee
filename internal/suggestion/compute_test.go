package suggestion_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/suggestion"
	"github.com/noble-hunt/axle/internal/workout"
)

func rationaleContains(t *testing.T, rationale []string, marker string) {
	t.Helper()
	for _, entry := range rationale {
		if strings.Contains(entry, marker) {
			return
		}
	}
	t.Errorf("rationale %v does not contain %q", rationale, marker)
}

func daysAgo(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}

func TestCompute_FreshUser(t *testing.T) {
	target := suggestion.Compute(suggestion.Inputs{Today: time.Now()})

	assert.True(t, target.Category.Valid())
	assert.GreaterOrEqual(t, target.Intensity, 1)
	assert.LessOrEqual(t, target.Intensity, 10)
	assert.GreaterOrEqual(t, target.DurationMin, 15)
	assert.LessOrEqual(t, target.DurationMin, 90)
	rationaleContains(t, target.Rationale, "no workout yesterday")
}

func TestCompute_LowerBodyYesterday_ForcesCardio(t *testing.T) {
	in := suggestion.Inputs{
		Today: time.Now(),
		LastWorkouts: []workout.Workout{
			{Category: workout.CategoryLowerBody, Intensity: 6, DurationMin: 40, CreatedAt: daysAgo(1)},
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 40, CreatedAt: daysAgo(3)},
			{Category: workout.CategoryCardio, Intensity: 5, DurationMin: 30, CreatedAt: daysAgo(4)},
			{Category: workout.CategoryHIIT, Intensity: 8, DurationMin: 25, CreatedAt: daysAgo(5)},
			{Category: workout.CategoryMobility, Intensity: 3, DurationMin: 30, CreatedAt: daysAgo(6)},
		},
	}

	// no missing categories, no streak: the anti-repetition outcome survives
	target := suggestion.Compute(in)
	require.Equal(t, workout.CategoryCardio, target.Category)
	rationaleContains(t, target.Rationale, "lower body")

	// deterministic: identical inputs, identical output
	again := suggestion.Compute(in)
	assert.Equal(t, target, again)
}

func TestCompute_HighIntensityYesterday(t *testing.T) {
	target := suggestion.Compute(suggestion.Inputs{
		Today: time.Now(),
		LastWorkouts: []workout.Workout{
			{Category: workout.CategoryStrength, Intensity: 9, DurationMin: 50, CreatedAt: daysAgo(1)},
			{Category: workout.CategoryCardio, Intensity: 5, DurationMin: 30, CreatedAt: daysAgo(3)},
			{Category: workout.CategoryHIIT, Intensity: 8, DurationMin: 25, CreatedAt: daysAgo(5)},
			{Category: workout.CategoryMobility, Intensity: 3, DurationMin: 30, CreatedAt: daysAgo(6)},
			{Category: workout.CategoryLowerBody, Intensity: 6, DurationMin: 40, CreatedAt: daysAgo(7)},
		},
	})

	assert.Equal(t, workout.CategoryCardio, target.Category)
	assert.Equal(t, 4, target.Intensity)
	rationaleContains(t, target.Rationale, "high intensity yesterday")
	// low intensity biases duration upward
	assert.GreaterOrEqual(t, target.DurationMin, 40)
}

func TestCompute_CardioYesterday_SwitchesToStrength(t *testing.T) {
	target := suggestion.Compute(suggestion.Inputs{
		Today: time.Now(),
		LastWorkouts: []workout.Workout{
			{Category: workout.CategoryCardio, Intensity: 5, DurationMin: 30, CreatedAt: daysAgo(1)},
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 45, CreatedAt: daysAgo(3)},
			{Category: workout.CategoryHIIT, Intensity: 8, DurationMin: 25, CreatedAt: daysAgo(4)},
			{Category: workout.CategoryMobility, Intensity: 3, DurationMin: 30, CreatedAt: daysAgo(5)},
			{Category: workout.CategoryLowerBody, Intensity: 6, DurationMin: 40, CreatedAt: daysAgo(6)},
		},
	})

	assert.Equal(t, workout.CategoryStrength, target.Category)
	rationaleContains(t, target.Rationale, "switching to strength")
}

func TestCompute_StreakGuard_SwitchesCategory(t *testing.T) {
	in := suggestion.Inputs{
		Today: time.Now(),
		LastWorkouts: []workout.Workout{
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 45, CreatedAt: daysAgo(1)},
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 45, CreatedAt: daysAgo(2)},
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 45, CreatedAt: daysAgo(3)},
		},
		// always pick the first non-streak category
		Pick: func(n int) int { return 0 },
	}

	target := suggestion.Compute(in)
	assert.NotEqual(t, workout.CategoryStrength, target.Category)
	rationaleContains(t, target.Rationale, "streak")

	// with Pick pinned the whole derivation is deterministic
	assert.Equal(t, target, suggestion.Compute(in))
}

func TestCompute_NoveltyPreference(t *testing.T) {
	// mobility never done in the window; yesterday incompatible categories skipped
	target := suggestion.Compute(suggestion.Inputs{
		Today: time.Now(),
		LastWorkouts: []workout.Workout{
			{Category: workout.CategoryCardio, Intensity: 5, DurationMin: 30, CreatedAt: daysAgo(1)},
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 45, CreatedAt: daysAgo(2)},
			{Category: workout.CategoryHIIT, Intensity: 8, DurationMin: 25, CreatedAt: daysAgo(4)},
			{Category: workout.CategoryLowerBody, Intensity: 6, DurationMin: 40, CreatedAt: daysAgo(5)},
		},
	})

	assert.Equal(t, workout.CategoryMobility, target.Category)
	rationaleContains(t, target.Rationale, "not done in the last 14 days")
}

func TestCompute_PoorRecoveryAndSleep(t *testing.T) {
	report := &healthreport.HealthReport{
		Metrics: healthreport.MetricsEnvelope{
			Version: healthreport.EnvelopeVersion,
			Provider: healthreport.ProviderMetrics{
				SleepHours: healthreport.Float(4),
			},
			Axle: &healthreport.AxleScores{StressRecovery: 30},
		},
	}

	target := suggestion.Compute(suggestion.Inputs{
		Today: time.Now(),
		LastWorkouts: []workout.Workout{
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 45, CreatedAt: daysAgo(1)},
			{Category: workout.CategoryCardio, Intensity: 5, DurationMin: 30, CreatedAt: daysAgo(3)},
			{Category: workout.CategoryHIIT, Intensity: 8, DurationMin: 25, CreatedAt: daysAgo(4)},
			{Category: workout.CategoryMobility, Intensity: 3, DurationMin: 30, CreatedAt: daysAgo(5)},
			{Category: workout.CategoryLowerBody, Intensity: 6, DurationMin: 40, CreatedAt: daysAgo(6)},
		},
		HealthReport: report,
	})

	assert.Equal(t, workout.CategoryCardio, target.Category)
	assert.LessOrEqual(t, target.Intensity, 3) // default 6 minus 3
	assert.GreaterOrEqual(t, target.Intensity, 1)
	rationaleContains(t, target.Rationale, "poor recovery/sleep")
}

func TestCompute_HighStressOverride(t *testing.T) {
	report := &healthreport.HealthReport{
		Metrics: healthreport.MetricsEnvelope{
			Version: healthreport.EnvelopeVersion,
			Provider: healthreport.ProviderMetrics{
				SleepHours: healthreport.Float(8),
				Stress:     healthreport.Float(9),
			},
			Axle: &healthreport.AxleScores{StressRecovery: 90},
		},
	}

	target := suggestion.Compute(suggestion.Inputs{
		Today: time.Now(),
		LastWorkouts: []workout.Workout{
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 45, CreatedAt: daysAgo(1)},
			{Category: workout.CategoryCardio, Intensity: 5, DurationMin: 30, CreatedAt: daysAgo(3)},
			{Category: workout.CategoryHIIT, Intensity: 8, DurationMin: 25, CreatedAt: daysAgo(4)},
			{Category: workout.CategoryMobility, Intensity: 3, DurationMin: 30, CreatedAt: daysAgo(5)},
			{Category: workout.CategoryLowerBody, Intensity: 6, DurationMin: 40, CreatedAt: daysAgo(6)},
		},
		HealthReport: report,
	})

	assert.Equal(t, workout.CategoryCardio, target.Category)
	// great recovery would have added 1, but high stress caps at -2
	assert.LessOrEqual(t, target.Intensity, 4)
	rationaleContains(t, target.Rationale, "high stress")
}

func TestCompute_GreatRecovery_BumpsIntensity(t *testing.T) {
	report := &healthreport.HealthReport{
		Metrics: healthreport.MetricsEnvelope{
			Version: healthreport.EnvelopeVersion,
			Provider: healthreport.ProviderMetrics{
				SleepHours: healthreport.Float(8),
			},
			Axle: &healthreport.AxleScores{StressRecovery: 90},
		},
	}

	target := suggestion.Compute(suggestion.Inputs{
		Today: time.Now(),
		LastWorkouts: []workout.Workout{
			{Category: workout.CategoryCardio, Intensity: 5, DurationMin: 30, CreatedAt: daysAgo(1)},
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 45, CreatedAt: daysAgo(3)},
			{Category: workout.CategoryHIIT, Intensity: 8, DurationMin: 25, CreatedAt: daysAgo(4)},
			{Category: workout.CategoryMobility, Intensity: 3, DurationMin: 30, CreatedAt: daysAgo(5)},
			{Category: workout.CategoryLowerBody, Intensity: 6, DurationMin: 40, CreatedAt: daysAgo(6)},
		},
		HealthReport: report,
	})

	assert.Equal(t, 7, target.Intensity)
	rationaleContains(t, target.Rationale, "great recovery")
}

func TestCompute_DurationClamps(t *testing.T) {
	// very long recent workouts with high target intensity get shortened
	target := suggestion.Compute(suggestion.Inputs{
		Today: time.Now(),
		LastWorkouts: []workout.Workout{
			{Category: workout.CategoryCardio, Intensity: 5, DurationMin: 120, CreatedAt: daysAgo(1)},
			{Category: workout.CategoryStrength, Intensity: 6, DurationMin: 100, CreatedAt: daysAgo(2)},
		},
		Pick: func(n int) int { return 0 },
	})

	assert.GreaterOrEqual(t, target.DurationMin, 15)
	assert.LessOrEqual(t, target.DurationMin, 90)
}
