package axle_test

import (
	"testing"
	"time"

	"github.com/noble-hunt/axle/internal/axle"
	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/stats"

	"github.com/stretchr/testify/assert"
)

func TestScoreSleep(t *testing.T) {
	assert.Equal(t, 50, axle.ScoreSleep(nil, stats.Baseline{}))
	assert.Equal(t, 80, axle.ScoreSleep(healthreport.Float(80), stats.Baseline{}))
	assert.Equal(t, 100, axle.ScoreSleep(healthreport.Float(140), stats.Baseline{}))
	assert.Equal(t, 0, axle.ScoreSleep(healthreport.Float(-10), stats.Baseline{}))

	// with history: 80 vs a mean of 70, std floored to 5 -> +10
	withHistory := stats.Baseline{Mean: 70, Std: 2, Count: 7}
	assert.Equal(t, 90, axle.ScoreSleep(healthreport.Float(80), withHistory))

	// too little history: no adjustment
	thinHistory := stats.Baseline{Mean: 70, Std: 2, Count: 4}
	assert.Equal(t, 80, axle.ScoreSleep(healthreport.Float(80), thinHistory))
}

func TestScoreActivity(t *testing.T) {
	assert.Equal(t, 50, axle.ScoreActivity(nil, stats.Baseline{}))
	assert.Equal(t, 80, axle.ScoreActivity(healthreport.Float(10000), stats.Baseline{}))
	assert.Equal(t, 100, axle.ScoreActivity(healthreport.Float(20000), stats.Baseline{}))
	assert.Equal(t, 40, axle.ScoreActivity(healthreport.Float(5000), stats.Baseline{}))

	// 12000 steps vs mean 8000, std floored to 1000 -> 96 + 20, clamped
	withHistory := stats.Baseline{Mean: 8000, Std: 500, Count: 10}
	assert.Equal(t, 100, axle.ScoreActivity(healthreport.Float(12000), withHistory))
}

func TestScoreStressRecovery(t *testing.T) {
	noBaseline := stats.Baseline{}

	// no components at all
	assert.Equal(t, 50, axle.ScoreStressRecovery(nil, nil, nil, noBaseline, noBaseline))

	// stress only, 0-10 scale
	assert.Equal(t, 70, axle.ScoreStressRecovery(nil, nil, healthreport.Float(3), noBaseline, noBaseline))

	// hrv fallback formula
	assert.Equal(t, 50, axle.ScoreStressRecovery(healthreport.Float(25), nil, nil, noBaseline, noBaseline))
	assert.Equal(t, 100, axle.ScoreStressRecovery(healthreport.Float(60), nil, nil, noBaseline, noBaseline))

	// resting HR fallback formula
	assert.Equal(t, 75, axle.ScoreStressRecovery(nil, healthreport.Float(65), nil, noBaseline, noBaseline))

	// hrv relative to baseline: one std above the mean -> 60
	hrvBaseline := stats.Baseline{Mean: 50, Std: 10, Count: 8}
	assert.Equal(t, 60, axle.ScoreStressRecovery(healthreport.Float(60), nil, nil, hrvBaseline, noBaseline))

	// components are averaged
	assert.Equal(t, 85, axle.ScoreStressRecovery(healthreport.Float(60), nil, healthreport.Float(3), noBaseline, noBaseline))
}

func TestScoreVitality(t *testing.T) {
	assert.Equal(t, 71, axle.ScoreVitality(80, 60, 70))
	assert.Equal(t, 50, axle.ScoreVitality(50, 50, 50))
	assert.Equal(t, 100, axle.ScoreVitality(100, 100, 100))
}

func TestScorePerformancePotential(t *testing.T) {
	// healthy middle: no signals, sleep in the quiet band
	assert.Equal(t, 100, axle.ScorePerformancePotential(nil, 80, nil, nil))

	// every penalty at once, clamped at the floor
	assert.Equal(t, 0, axle.ScorePerformancePotential(
		healthreport.Float(15), 50, healthreport.Float(17), healthreport.Float(9)))

	// every bonus at once, clamped at the ceiling
	assert.Equal(t, 100, axle.ScorePerformancePotential(
		healthreport.Float(55), 90, healthreport.Float(5), nil))

	// penalties are additive and independent
	assert.Equal(t, 70, axle.ScorePerformancePotential(
		healthreport.Float(25), 80, nil, healthreport.Float(7)))
}

func TestScoreCircadian(t *testing.T) {
	// nothing to go on: neutral base
	assert.Equal(t, 50, axle.ScoreCircadian(healthreport.MetricsEnvelope{}, nil))

	// waking within half an hour of sunrise
	wake := time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC)
	sunrise := time.Date(2024, 3, 11, 6, 45, 0, 0, time.UTC)
	aligned := healthreport.MetricsEnvelope{
		Provider: healthreport.ProviderMetrics{WakeTime: &wake},
		Weather:  &healthreport.WeatherMetrics{Sunrise: &sunrise},
	}
	assert.Equal(t, 70, axle.ScoreCircadian(aligned, nil))

	// ideal UV band
	withUV := healthreport.MetricsEnvelope{
		Weather: &healthreport.WeatherMetrics{UVIndex: healthreport.Float(5)},
	}
	assert.Equal(t, 65, axle.ScoreCircadian(withUV, nil))

	// regular sleep midpoints across recent reports
	history := make([]healthreport.HealthReport, 3)
	for i, minute := range []int{0, 10, 5} {
		midpoint := time.Date(2024, 3, 8+i, 3, minute, 0, 0, time.UTC)
		history[i] = healthreport.HealthReport{
			Metrics: healthreport.MetricsEnvelope{
				Provider: healthreport.ProviderMetrics{SleepMidpoint: &midpoint},
			},
		}
	}
	assert.Equal(t, 68, axle.ScoreCircadian(healthreport.MetricsEnvelope{}, history))
}

func TestScoreEnergyBalance(t *testing.T) {
	// no zone data
	assert.Equal(t, 50, axle.ScoreEnergyBalance(healthreport.ZoneMinutes{}))

	// ideal split: 75% easy, 15% hard
	ideal := healthreport.ZoneMinutes{Zone1: 400, Zone2: 350, Zone3: 100, Zone4: 100, Zone5: 50}
	assert.Equal(t, 100, axle.ScoreEnergyBalance(ideal))

	// 100% easy is penalized, not maximal
	allEasy := healthreport.ZoneMinutes{Zone1: 400, Zone2: 400}
	allEasyScore := axle.ScoreEnergyBalance(allEasy)
	assert.Less(t, allEasyScore, axle.ScoreEnergyBalance(ideal))
	assert.Equal(t, 45, allEasyScore)

	// all-out hard weeks score even lower
	allHard := healthreport.ZoneMinutes{Zone4: 300, Zone5: 300}
	assert.Less(t, axle.ScoreEnergyBalance(allHard), allEasyScore)
}

func TestScores_AlwaysInRange(t *testing.T) {
	values := []*float64{
		nil,
		healthreport.Float(-1e9),
		healthreport.Float(-5),
		healthreport.Float(0),
		healthreport.Float(42),
		healthreport.Float(1e9),
	}
	baselines := []stats.Baseline{
		{},
		{Mean: 50, Std: 0, Count: 10},
		{Mean: -100, Std: 1e6, Count: 30},
	}

	for _, v := range values {
		for _, b := range baselines {
			assertInRange(t, axle.ScoreSleep(v, b))
			assertInRange(t, axle.ScoreActivity(v, b))
			assertInRange(t, axle.ScoreStressRecovery(v, v, v, b, b))
			assertInRange(t, axle.ScorePerformancePotential(v, 50, v, v))
		}
	}
}

func assertInRange(t *testing.T, score int) {
	t.Helper()
	assert.GreaterOrEqual(t, score, 0)
	assert.LessOrEqual(t, score, 100)
}
