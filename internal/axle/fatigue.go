package axle

import (
	"time"

	"github.com/noble-hunt/axle/internal/stats"
	"github.com/noble-hunt/axle/internal/wearables"
	"github.com/noble-hunt/axle/internal/workout"
)

// ComputeFatigue estimates accumulated training fatigue on a 0-100
// scale from the acute:chronic workout load ratio plus reported 48h
// strain. Load is intensity x duration per workout. Returns nil when
// there is nothing to compute from.
func ComputeFatigue(snapshot *wearables.HealthSnapshot, workouts []workout.Workout, now time.Time) *float64 {
	var acuteLoad, totalLoad float64
	weekAgo := now.AddDate(0, 0, -7)
	for _, w := range workouts {
		load := float64(w.Intensity * w.DurationMin)
		totalLoad += load
		if w.CreatedAt.After(weekAgo) {
			acuteLoad += load
		}
	}

	var strain48h *float64
	if snapshot != nil {
		strain48h = snapshot.Strain48h
	}

	if totalLoad == 0 && strain48h == nil {
		return nil
	}

	var fatigue float64
	if totalLoad > 0 {
		// chronic load is the 14-day weekly average; a ratio of 1
		// (steady training) lands at the 50 midpoint
		chronicLoad := totalLoad / 2
		fatigue = 50 * stats.SafeDiv(acuteLoad, chronicLoad)
	}
	if strain48h != nil {
		fatigue += *strain48h * 0.5
	}

	fatigue = stats.Clamp(fatigue, 0, 100)
	return &fatigue
}

// ComputeRPE24h derives an effort proxy on the 0-10 RPE scale from the
// last 24 hours of logged workouts, weighting intensity by duration.
func ComputeRPE24h(workouts []workout.Workout, now time.Time) *float64 {
	dayAgo := now.Add(-24 * time.Hour)

	var weightedIntensity, totalMinutes float64
	for _, w := range workouts {
		if w.CreatedAt.Before(dayAgo) {
			continue
		}
		weightedIntensity += float64(w.Intensity * w.DurationMin)
		totalMinutes += float64(w.DurationMin)
	}
	if totalMinutes == 0 {
		return nil
	}

	rpe := stats.Clamp(stats.SafeDiv(weightedIntensity, totalMinutes), 0, 10)
	return &rpe
}
