package suggestion

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/workout"
)

const (
	defaultIntensity   = 6
	defaultDurationMin = 35
)

// Inputs carries everything Compute needs. LastWorkouts is the trailing
// 14-day history, newest first. HealthReport may be nil (degraded path:
// no health-based intensity modulation). Pick injects the category
// randomizer used by the streak guard; nil means math/rand.
type Inputs struct {
	Today        time.Time
	LastWorkouts []workout.Workout
	HealthReport *healthreport.HealthReport
	RecentPRs    []PersonalRecord
	Pick         func(n int) int
}

// Compute derives the day's workout target. Fully deterministic for
// fixed inputs, except the streak-guard switch which picks a random
// replacement category through Pick. The rationale lists every rule
// that fired, in evaluation order.
func Compute(in Inputs) Target {
	pick := in.Pick
	if pick == nil {
		pick = rand.Intn
	}

	target := Target{
		Category:    workout.CategoryCardio,
		Intensity:   defaultIntensity,
		DurationMin: defaultDurationMin,
	}
	target.Rationale = append(target.Rationale,
		fmt.Sprintf("default target: %s @ intensity %d", target.Category, target.Intensity))

	yesterday := workout.Yesterday(in.LastWorkouts, in.Today)
	switch {
	case yesterday == nil:
		target.Category = workout.CategoryStrength
		target.Rationale = append(target.Rationale,
			"no workout yesterday: fresh start with strength")
	case yesterday.Category.LowerBodyFocused():
		target.Category = workout.CategoryCardio
		target.Rationale = append(target.Rationale,
			"lower body focus yesterday: switching to cardio")
	case yesterday.Intensity >= 8 || yesterday.Category == workout.CategoryHIIT:
		target.Category = workout.CategoryCardio
		if target.Intensity-2 > 4 {
			target.Intensity -= 2
		} else {
			target.Intensity = 4
		}
		target.Rationale = append(target.Rationale,
			fmt.Sprintf("high intensity yesterday (%d): easy cardio at intensity %d", yesterday.Intensity, target.Intensity))
	case yesterday.Category == workout.CategoryCardio:
		target.Category = workout.CategoryStrength
		target.Rationale = append(target.Rationale,
			"cardio yesterday: switching to strength")
	}

	// weekly-pattern guard: break category streaks of 2+ days
	streakCategory, streakDays := workout.CategoryStreak(in.LastWorkouts)
	noveltyAllowed := true
	if streakDays >= 2 {
		var others []workout.Category
		for _, c := range workout.Categories {
			if c != streakCategory {
				others = append(others, c)
			}
		}
		target.Category = others[pick(len(others))]
		target.Rationale = append(target.Rationale,
			fmt.Sprintf("%d-day %s streak: switching to %s", streakDays, streakCategory, target.Category))
		noveltyAllowed = false
	}

	if noveltyAllowed {
		for _, missing := range workout.MissingCategories(in.LastWorkouts) {
			if !compatibleWithYesterday(missing, yesterday) {
				continue
			}
			target.Category = missing
			target.Rationale = append(target.Rationale,
				fmt.Sprintf("%s not done in the last 14 days: picking it up", missing))
			break
		}
	}

	if in.HealthReport != nil {
		applyHealthModulation(&target, in.HealthReport)
	}

	if target.Intensity < 1 {
		target.Intensity = 1
	}
	if target.Intensity > 10 {
		target.Intensity = 10
	}

	target.DurationMin = deriveDuration(&target, in)

	return target
}

func compatibleWithYesterday(c workout.Category, yesterday *workout.Workout) bool {
	if yesterday == nil {
		return true
	}
	if c == yesterday.Category {
		return false
	}
	if c.LowerBodyFocused() && yesterday.Category.LowerBodyFocused() {
		return false
	}
	return true
}

// applyHealthModulation adjusts intensity (and possibly category) from
// the day's health report: recovery score, sleep hours and stress level.
func applyHealthModulation(target *Target, report *healthreport.HealthReport) {
	metrics := report.Metrics

	var recovery *float64
	if metrics.Axle != nil {
		r := float64(metrics.Axle.StressRecovery)
		recovery = &r
	}
	sleepHours := metrics.Provider.SleepHours
	stress := metrics.Provider.Stress

	delta := 0
	switch {
	case (recovery != nil && *recovery < 40) || (sleepHours != nil && *sleepHours < 5):
		delta = -3
		target.Category = workout.CategoryCardio
		target.Rationale = append(target.Rationale,
			"poor recovery/sleep: easy cardio, intensity down 3")
	case (recovery != nil && *recovery < 70) || (sleepHours != nil && *sleepHours < 6.5):
		delta = -1
		target.Rationale = append(target.Rationale,
			"mediocre recovery/sleep: intensity down 1")
	case recovery != nil && *recovery > 85 && sleepHours != nil && *sleepHours > 7.5:
		delta = 1
		target.Rationale = append(target.Rationale,
			"great recovery and sleep: intensity up 1")
	}

	// high stress caps the adjustment and forces cardio regardless
	if stress != nil && *stress > 7 {
		if delta > -2 {
			delta = -2
		}
		target.Category = workout.CategoryCardio
		target.Rationale = append(target.Rationale,
			"high stress: forcing easy cardio")
	}

	target.Intensity += delta
}

func deriveDuration(target *Target, in Inputs) int {
	duration := workout.AvgDuration(in.LastWorkouts, in.Today, 3, defaultDurationMin)

	if target.Intensity >= 8 && duration > 30 {
		duration = 30
		target.Rationale = append(target.Rationale,
			"high intensity: keeping it short")
	}
	if target.Intensity <= 4 && duration < 40 {
		duration = 40
		target.Rationale = append(target.Rationale,
			"low intensity: stretching the duration")
	}

	if duration < 15 {
		duration = 15
	}
	if duration > 90 {
		duration = 90
	}
	return duration
}
