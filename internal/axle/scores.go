package axle

import (
	"math"

	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/stats"
)

// minBaselineSamples is the minimum number of historical samples before
// a baseline is trusted for relative scoring; below it the scorers use
// absolute fallback formulas.
const minBaselineSamples = 5

// ScoreSleep maps the provider sleep score to [0,100]. A missing signal
// scores a neutral 50. With enough baseline history the score is nudged
// towards how today compares to the user's own norm; the adjustment
// magnitude is bounded by the std floor.
func ScoreSleep(sleepScore *float64, baseline stats.Baseline) int {
	if sleepScore == nil {
		return 50
	}

	score := stats.Clamp(*sleepScore, 0, 100)
	if baseline.Count >= minBaselineSamples {
		score += stats.SafeDiv(*sleepScore-baseline.Mean, math.Max(baseline.Std, 5)) * 5
	}
	return roundScore(score)
}

// ScoreActivity maps daily steps to [0,100]: 10k steps is worth 80
// points before the baseline adjustment.
func ScoreActivity(steps *float64, baseline stats.Baseline) int {
	if steps == nil {
		return 50
	}

	score := math.Min(100, *steps/10000*80)
	if baseline.Count >= minBaselineSamples {
		score += stats.SafeDiv(*steps-baseline.Mean, math.Max(baseline.Std, 1000)) * 5
	}
	return roundScore(score)
}

// ScoreStressRecovery averages the components available among HRV
// (higher is better), resting HR (lower is better) and the 0-10 stress
// level. HRV and resting HR are scored relative to the user's baseline
// when enough history exists, otherwise via absolute fallback formulas.
// No components at all scores a neutral 50.
func ScoreStressRecovery(hrv, restingHR, stress *float64, hrvBaseline, restingHRBaseline stats.Baseline) int {
	var components []float64

	if hrv != nil {
		if hrvBaseline.Count >= minBaselineSamples {
			components = append(components, stats.Clamp(
				50+stats.SafeDiv(*hrv-hrvBaseline.Mean, math.Max(hrvBaseline.Std, 5))*10, 0, 100))
		} else {
			components = append(components, math.Min(100, *hrv/50*100))
		}
	}

	if restingHR != nil {
		if restingHRBaseline.Count >= minBaselineSamples {
			components = append(components, stats.Clamp(
				50-stats.SafeDiv(*restingHR-restingHRBaseline.Mean, math.Max(restingHRBaseline.Std, 3))*10, 0, 100))
		} else {
			components = append(components, math.Max(0, 100-((*restingHR-50)/30)*50))
		}
	}

	if stress != nil {
		components = append(components, stats.Clamp(100-*stress*10, 0, 100))
	}

	if len(components) == 0 {
		return 50
	}

	var sum float64
	for _, c := range components {
		sum += c
	}
	return roundScore(sum / float64(len(components)))
}

// ScoreVitality is the weighted composite of the three daily scores.
func ScoreVitality(sleep, activity, stressRecovery int) int {
	return roundScore(0.4*float64(sleep) + 0.3*float64(activity) + 0.3*float64(stressRecovery))
}

// ScorePerformancePotential starts at 100 and applies additive
// penalties and bonuses per signal. All rules apply independently;
// a missing signal contributes nothing.
func ScorePerformancePotential(hrv *float64, sleep int, strain48h, rpe24h *float64) int {
	score := 100.0

	if hrv != nil {
		switch {
		case *hrv < 20:
			score -= 30
		case *hrv < 30:
			score -= 15
		case *hrv > 50:
			score += 5
		}
	}

	switch {
	case sleep < 60:
		score -= 25
	case sleep < 75:
		score -= 10
	case sleep >= 85:
		score += 5
	}

	if strain48h != nil {
		switch {
		case *strain48h > 16:
			score -= 20
		case *strain48h > 12:
			score -= 10
		case *strain48h < 6:
			score += 5
		}
	}

	if rpe24h != nil {
		switch {
		case *rpe24h >= 9:
			score -= 25
		case *rpe24h >= 7:
			score -= 15
		case *rpe24h >= 5:
			score -= 5
		}
	}

	return roundScore(score)
}

// ScoreCircadian averages a neutral 50 base with up to four optional
// sub-scores: sleep-midpoint regularity over recent reports, wake time
// vs sunrise, steps in the first two hours after waking, and UV
// exposure within the ideal 3-7 band. Sub-scores for absent signals do
// not dilute the average.
func ScoreCircadian(envelope healthreport.MetricsEnvelope, history []healthreport.HealthReport) int {
	components := []float64{50}

	if midpointScore, ok := sleepMidpointScore(history); ok {
		components = append(components, midpointScore)
	}

	if envelope.Provider.WakeTime != nil && envelope.Weather != nil && envelope.Weather.Sunrise != nil {
		wake := envelope.Provider.WakeTime
		sunrise := envelope.Weather.Sunrise
		diffHours := math.Abs(float64(wake.Hour()*60+wake.Minute())-float64(sunrise.Hour()*60+sunrise.Minute())) / 60
		switch {
		case diffHours <= 0.5:
			components = append(components, 90)
		case diffHours <= 1:
			components = append(components, 80)
		case diffHours <= 2:
			components = append(components, 60)
		default:
			components = append(components, 35)
		}
	}

	if envelope.Provider.EarlySteps != nil {
		switch {
		case *envelope.Provider.EarlySteps >= 500:
			components = append(components, 80)
		case *envelope.Provider.EarlySteps >= 200:
			components = append(components, 60)
		default:
			components = append(components, 40)
		}
	}

	if envelope.Weather != nil && envelope.Weather.UVIndex != nil {
		if uv := *envelope.Weather.UVIndex; uv >= 3 && uv <= 7 {
			components = append(components, 80)
		} else {
			components = append(components, 45)
		}
	}

	var sum float64
	for _, c := range components {
		sum += c
	}
	return roundScore(sum / float64(len(components)))
}

// sleepMidpointScore scores the regularity of the sleep midpoint over
// the given reports: the lower the spread, the better. Needs at least
// three midpoints to say anything.
func sleepMidpointScore(history []healthreport.HealthReport) (float64, bool) {
	var midpoints []float64
	for _, report := range history {
		if mp := report.Metrics.Provider.SleepMidpoint; mp != nil {
			midpoints = append(midpoints, float64(mp.Hour())+float64(mp.Minute())/60)
		}
	}
	if len(midpoints) < 3 {
		return 0, false
	}

	spread := stats.RollingBaseline(midpoints).Std
	switch {
	case spread < 1:
		return 85, true
	case spread < 2:
		return 65, true
	default:
		return 40, true
	}
}

// energyBandScore returns the tiered bonus or proportional penalty for
// a percentage relative to its ideal [lo, hi] band.
func energyBandScore(pct, lo, hi float64) float64 {
	var deviation float64
	switch {
	case pct < lo:
		deviation = lo - pct
	case pct > hi:
		deviation = pct - hi
	}

	switch {
	case deviation == 0:
		return 25
	case deviation <= 5:
		return 15
	case deviation <= 10:
		return 5
	default:
		return -math.Min(25, deviation*0.5)
	}
}

// ScoreEnergyBalance classifies 14-day zone-minute totals into easy
// (zones 1-2) vs hard (zones 4-5) shares of total volume. The ideal
// split is 70-80% easy and 10-20% hard; deviations beyond the tiered
// tolerance turn into a proportional penalty. No zone data scores a
// neutral 50.
func ScoreEnergyBalance(zones healthreport.ZoneMinutes) int {
	total := zones.Zone1 + zones.Zone2 + zones.Zone3 + zones.Zone4 + zones.Zone5
	if total == 0 {
		return 50
	}

	easyPct := (zones.Zone1 + zones.Zone2) / total * 100
	hardPct := (zones.Zone4 + zones.Zone5) / total * 100

	score := 50.0
	score += energyBandScore(easyPct, 70, 80)
	score += energyBandScore(hardPct, 10, 20)
	return roundScore(score)
}

func roundScore(score float64) int {
	return int(stats.Clamp(math.Round(score), 0, 100))
}

// ComputeScores runs all scorers over a freshly built envelope, the
// user's baselines and their recent report history.
func ComputeScores(envelope healthreport.MetricsEnvelope, baselines Baselines, history []healthreport.HealthReport) healthreport.AxleScores {
	provider := envelope.Provider

	sleep := ScoreSleep(provider.SleepScore, baselines.SleepScore)
	activity := ScoreActivity(provider.Steps, baselines.Steps)
	stressRecovery := ScoreStressRecovery(provider.HRV, provider.RestingHR, provider.Stress, baselines.HRV, baselines.RestingHR)

	return healthreport.AxleScores{
		Sleep:                sleep,
		Activity:             activity,
		StressRecovery:       stressRecovery,
		Vitality:             ScoreVitality(sleep, activity, stressRecovery),
		PerformancePotential: ScorePerformancePotential(provider.HRV, sleep, provider.Strain48h, provider.RPE24h),
		Circadian:            ScoreCircadian(envelope, history),
		EnergyBalance:        ScoreEnergyBalance(zoneTotals(envelope, history)),
	}
}

// zoneTotals sums today's zone minutes with those from the recent
// report history, the 14-day volume the energy balance is judged on.
func zoneTotals(envelope healthreport.MetricsEnvelope, history []healthreport.HealthReport) healthreport.ZoneMinutes {
	var totals healthreport.ZoneMinutes
	addZones := func(zones *healthreport.ZoneMinutes) {
		if zones == nil {
			return
		}
		totals.Zone1 += zones.Zone1
		totals.Zone2 += zones.Zone2
		totals.Zone3 += zones.Zone3
		totals.Zone4 += zones.Zone4
		totals.Zone5 += zones.Zone5
	}

	addZones(envelope.Provider.Zones)
	for i := range history {
		addZones(history[i].Metrics.Provider.Zones)
	}
	return totals
}
