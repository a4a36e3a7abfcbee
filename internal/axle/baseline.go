package axle

import (
	"context"

	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/stats"

	log "github.com/sirupsen/logrus"
)

// DefaultBaselineWindowDays is the trailing window the baselines are
// computed over.
const DefaultBaselineWindowDays = 21

// Baselines are the per-metric rolling statistics used by the scorers.
type Baselines struct {
	HRV        stats.Baseline
	RestingHR  stats.Baseline
	SleepScore stats.Baseline
	Stress     stats.Baseline
	Steps      stats.Baseline
}

type baselineReportsRepo interface {
	ListRecent(ctx context.Context, userID string, days int) ([]healthreport.HealthReport, error)
}

// BaselineComputer builds a user's metric baselines from their trailing
// health reports, winsorized to blunt sensor outliers.
type BaselineComputer struct {
	reports baselineReportsRepo
	window  int
}

func NewBaselineComputer(reports baselineReportsRepo, windowDays int) *BaselineComputer {
	if windowDays <= 0 {
		windowDays = DefaultBaselineWindowDays
	}
	return &BaselineComputer{reports: reports, window: windowDays}
}

// Compute never fails a scoring run: on fetch error it returns all-zero
// baselines, which the scorers treat as "no history" and fall back to
// their absolute formulas.
func (bc *BaselineComputer) Compute(ctx context.Context, userID string) Baselines {
	reports, err := bc.reports.ListRecent(ctx, userID, bc.window)
	if err != nil {
		log.Warnf("compute baselines for user %s: list reports: %s; degrading to zero baselines", userID, err)
		return Baselines{}
	}

	var hrv, restingHR, sleepScore, stress, steps []float64
	for _, report := range reports {
		provider := report.Metrics.Provider
		appendIfPresent(&hrv, provider.HRV)
		appendIfPresent(&restingHR, provider.RestingHR)
		appendIfPresent(&sleepScore, provider.SleepScore)
		appendIfPresent(&stress, provider.Stress)
		appendIfPresent(&steps, provider.Steps)
	}

	return Baselines{
		HRV:        stats.RollingBaseline(stats.WinsorizeDefault(hrv)),
		RestingHR:  stats.RollingBaseline(stats.WinsorizeDefault(restingHR)),
		SleepScore: stats.RollingBaseline(stats.WinsorizeDefault(sleepScore)),
		Stress:     stats.RollingBaseline(stats.WinsorizeDefault(stress)),
		Steps:      stats.RollingBaseline(stats.WinsorizeDefault(steps)),
	}
}

func appendIfPresent(values *[]float64, v *float64) {
	if v != nil {
		*values = append(*values, *v)
	}
}
