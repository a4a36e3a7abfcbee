package axle

import (
	"context"
	"fmt"
	"time"

	"github.com/noble-hunt/axle/internal/environment"
	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/telemetry/metrics"
	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/internal/wearables"
	"github.com/noble-hunt/axle/internal/workout"
	"github.com/noble-hunt/axle/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultFetchTimeout bounds every external call made during a
	// sync. A hung provider must not stall the rest of the job.
	DefaultFetchTimeout = 15 * time.Second

	fatigueWindowDays = 14
	reportHistoryDays = 14
)

type syncConnectionsRepo interface {
	ListConnected(ctx context.Context, userID string) ([]wearables.Connection, error)
	MarkSynced(ctx context.Context, id int, syncedAt time.Time) error
	MarkError(ctx context.Context, id int, syncErr string) error
}

type syncReportsRepo interface {
	ExistsForDay(ctx context.Context, userID string, day time.Time) (bool, error)
	GetForDay(ctx context.Context, userID string, day time.Time) (*healthreport.HealthReport, error)
	UpsertDaily(ctx context.Context, report healthreport.HealthReport) (*healthreport.HealthReport, error)
	ListRecent(ctx context.Context, userID string, days int) ([]healthreport.HealthReport, error)
}

type syncWorkoutsRepo interface {
	ListRecent(ctx context.Context, userID string, days int) ([]workout.Workout, error)
}

type providerRegistry interface {
	Get(name string) (wearables.Provider, error)
}

type environmentApi interface {
	GetDaily(ctx context.Context, location environment.Location) (*environment.Daily, error)
}

type locationStore interface {
	LastKnown(ctx context.Context, userID string) (*environment.Location, error)
}

// Syncer runs the per-user health sync: fetch the latest wearable
// snapshot, enrich it with derived fatigue and best-effort environment
// data, score it, and persist the daily health report.
type Syncer struct {
	connections syncConnectionsRepo
	registry    providerRegistry
	reports     syncReportsRepo
	workouts    syncWorkoutsRepo
	baselines   *BaselineComputer
	environment environmentApi
	locations   locationStore
	metrics     *metrics.Manager

	fetchTimeout time.Duration
	now          func() time.Time
}

type SyncerParams struct {
	Connections  syncConnectionsRepo
	Registry     providerRegistry
	Reports      syncReportsRepo
	Workouts     syncWorkoutsRepo
	Baselines    *BaselineComputer
	Environment  environmentApi
	Locations    locationStore
	Metrics      *metrics.Manager
	FetchTimeout time.Duration
	Now          func() time.Time
}

func NewSyncer(params SyncerParams) *Syncer {
	if params.FetchTimeout <= 0 {
		params.FetchTimeout = DefaultFetchTimeout
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Syncer{
		connections:  params.Connections,
		registry:     params.Registry,
		reports:      params.Reports,
		workouts:     params.Workouts,
		baselines:    params.Baselines,
		environment:  params.Environment,
		locations:    params.Locations,
		metrics:      params.Metrics,
		fetchTimeout: params.FetchTimeout,
		now:          params.Now,
	}
}

// SyncUser builds today's health report for one user. It returns the
// existing report unchanged when one is already present (the
// idempotence boundary), and (nil, nil) when the user has no usable
// wearable data today. Provider failures are isolated: a failing
// provider gets its connection marked errored and the next one is
// tried.
func (s *Syncer) SyncUser(ctx context.Context, userID string) (_ *healthreport.HealthReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "axle.syncer.syncUser")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	now := s.now()
	today := pkg.DayOf(now)

	connections, err := s.connections.ListConnected(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	if len(connections) == 0 {
		log.Tracef("sync user %s: no connected wearables, skipping", userID)
		return nil, nil
	}

	exists, err := s.reports.ExistsForDay(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("check existing report: %w", err)
	}
	if exists {
		log.Tracef("sync user %s: report for today already present", userID)
		return s.reports.GetForDay(ctx, userID, today)
	}

	workouts, err := s.workouts.ListRecent(ctx, userID, fatigueWindowDays)
	if err != nil {
		log.Warnf("sync user %s: list workouts: %s; continuing without workout load", userID, err)
		workouts = nil
	}

	history, err := s.reports.ListRecent(ctx, userID, reportHistoryDays)
	if err != nil {
		log.Warnf("sync user %s: list report history: %s; continuing without history", userID, err)
		history = nil
	}

	baselines := s.baselines.Compute(ctx, userID)

	for _, conn := range connections {
		report, fetchErr := s.syncProvider(ctx, userID, conn, workouts, history, baselines, now)
		if fetchErr != nil {
			log.Errorf("sync user %s: provider %s: %s", userID, conn.Provider, fetchErr)
			if s.metrics != nil {
				s.metrics.CounterProviderErrors.WithLabelValues(conn.Provider).Inc()
			}
			if markErr := s.connections.MarkError(ctx, conn.ID, fetchErr.Error()); markErr != nil {
				log.Errorf("sync user %s: mark connection %d errored: %s", userID, conn.ID, markErr)
			}
			continue
		}

		if markErr := s.connections.MarkSynced(ctx, conn.ID, now); markErr != nil {
			log.Errorf("sync user %s: mark connection %d synced: %s", userID, conn.ID, markErr)
		}
		if s.metrics != nil {
			s.metrics.CounterHealthReports.Inc()
		}
		return report, nil
	}

	// every provider failed: no report today, scoring downstream
	// degrades to its health-less defaults
	return nil, nil
}

func (s *Syncer) syncProvider(
	ctx context.Context,
	userID string,
	conn wearables.Connection,
	workouts []workout.Workout,
	history []healthreport.HealthReport,
	baselines Baselines,
	now time.Time,
) (*healthreport.HealthReport, error) {
	provider, err := s.registry.Get(conn.Provider)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	snapshot, err := provider.FetchLatest(fetchCtx, conn)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("fetch latest: %w", err)
	}

	envelope := s.buildEnvelope(ctx, userID, snapshot, workouts, now)
	scores := ComputeScores(envelope, baselines, history)
	envelope.Axle = &scores

	report, err := s.reports.UpsertDaily(ctx, healthreport.HealthReport{
		UserID:      userID,
		Day:         pkg.DayOf(now),
		Metrics:     envelope,
		Summary:     buildSummary(scores, snapshot.Source),
		Suggestions: buildSuggestions(scores),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert report: %w", err)
	}
	return report, nil
}

func (s *Syncer) buildEnvelope(
	ctx context.Context,
	userID string,
	snapshot *wearables.HealthSnapshot,
	workouts []workout.Workout,
	now time.Time,
) healthreport.MetricsEnvelope {
	provider := healthreport.ProviderMetrics{
		Source:        snapshot.Source,
		HRV:           snapshot.HRV,
		RestingHR:     snapshot.RestingHR,
		SleepScore:    snapshot.SleepScore,
		SleepHours:    snapshot.SleepHours,
		SleepMidpoint: snapshot.SleepMidpoint,
		WakeTime:      snapshot.WakeTime,
		Stress:        snapshot.Stress,
		Steps:         snapshot.Steps,
		EarlySteps:    snapshot.EarlySteps,
		Calories:      snapshot.Calories,
		Strain48h:     snapshot.Strain48h,
		RPE24h:        snapshot.RPE24h,
		Raw:           snapshot.Raw,
	}
	if snapshot.Zones != nil {
		provider.Zones = &healthreport.ZoneMinutes{
			Zone1: snapshot.Zones.Zone1,
			Zone2: snapshot.Zones.Zone2,
			Zone3: snapshot.Zones.Zone3,
			Zone4: snapshot.Zones.Zone4,
			Zone5: snapshot.Zones.Zone5,
		}
	}
	provider.FatigueScore = ComputeFatigue(snapshot, workouts, now)
	if provider.RPE24h == nil {
		provider.RPE24h = ComputeRPE24h(workouts, now)
	}

	return healthreport.MetricsEnvelope{
		Version:  healthreport.EnvelopeVersion,
		Provider: provider,
		Weather:  s.fetchWeather(ctx, userID),
	}
}

// fetchWeather is best-effort: any failure is logged and results in a
// report without the weather section.
func (s *Syncer) fetchWeather(ctx context.Context, userID string) *healthreport.WeatherMetrics {
	if s.environment == nil || s.locations == nil {
		return nil
	}

	location, err := s.locations.LastKnown(ctx, userID)
	if err != nil || location == nil {
		log.Debugf("sync user %s: no known location: %v", userID, err)
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	daily, err := s.environment.GetDaily(fetchCtx, *location)
	if err != nil {
		log.Warnf("sync user %s: environment fetch: %s", userID, err)
		return nil
	}

	return &healthreport.WeatherMetrics{
		Sunrise:      daily.Sunrise,
		Sunset:       daily.Sunset,
		UVIndex:      daily.UVIndex,
		TemperatureC: daily.TemperatureC,
		AQIIndex:     daily.AQIIndex,
	}
}

func buildSummary(scores healthreport.AxleScores, source string) string {
	return fmt.Sprintf(
		"vitality %d, sleep %d, activity %d, stress/recovery %d (source: %s)",
		scores.Vitality, scores.Sleep, scores.Activity, scores.StressRecovery, source,
	)
}

func buildSuggestions(scores healthreport.AxleScores) []string {
	var suggestions []string
	if scores.Sleep < 60 {
		suggestions = append(suggestions, "sleep is dragging you down, aim for an earlier night")
	}
	if scores.StressRecovery < 50 {
		suggestions = append(suggestions, "recovery looks low, keep today's session easy")
	}
	if scores.Activity < 40 {
		suggestions = append(suggestions, "movement has been light, a walk would help")
	}
	if scores.EnergyBalance < 40 {
		suggestions = append(suggestions, "training intensity mix is off balance, add easy aerobic volume")
	}
	return suggestions
}
