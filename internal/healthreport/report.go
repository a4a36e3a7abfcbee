package healthreport

import (
	"time"
)

// EnvelopeVersion is the current metrics envelope schema version.
// Version 0 envelopes predate the typed schema and carry their signals
// in the provider's Raw map under legacy snake_case keys; Normalize
// promotes those into the typed fields exactly once at read time.
const EnvelopeVersion = 1

// AxleScores are the computed daily composite scores, all in [0,100].
type AxleScores struct {
	Sleep                int `json:"sleep"`
	Activity             int `json:"activity"`
	StressRecovery       int `json:"stressRecovery"`
	Vitality             int `json:"vitality"`
	PerformancePotential int `json:"performancePotential"`
	Circadian            int `json:"circadian"`
	EnergyBalance        int `json:"energyBalance"`
}

// ZoneMinutes holds heart-rate zone minutes for a single day.
type ZoneMinutes struct {
	Zone1 float64 `json:"zone1"`
	Zone2 float64 `json:"zone2"`
	Zone3 float64 `json:"zone3"`
	Zone4 float64 `json:"zone4"`
	Zone5 float64 `json:"zone5"`
}

// ProviderMetrics is the wearable-derived part of the envelope.
// Optional signals are pointers: absent means the provider did not
// report that signal, which the scorers treat differently from zero.
type ProviderMetrics struct {
	Source        string         `json:"source"`
	HRV           *float64       `json:"hrv,omitempty"`
	RestingHR     *float64       `json:"restingHR,omitempty"`
	SleepScore    *float64       `json:"sleepScore,omitempty"`
	SleepHours    *float64       `json:"sleepHours,omitempty"`
	SleepMidpoint *time.Time     `json:"sleepMidpoint,omitempty"`
	WakeTime      *time.Time     `json:"wakeTime,omitempty"`
	Stress        *float64       `json:"stress,omitempty"`
	Steps         *float64       `json:"steps,omitempty"`
	EarlySteps    *float64       `json:"earlySteps,omitempty"`
	Calories      *float64       `json:"calories,omitempty"`
	FatigueScore  *float64       `json:"fatigueScore,omitempty"`
	Strain48h     *float64       `json:"strain48h,omitempty"`
	RPE24h        *float64       `json:"rpe24h,omitempty"`
	Zones         *ZoneMinutes   `json:"zones,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"`
}

// WeatherMetrics is the best-effort environment part of the envelope.
type WeatherMetrics struct {
	Sunrise      *time.Time `json:"sunrise,omitempty"`
	Sunset       *time.Time `json:"sunset,omitempty"`
	UVIndex      *float64   `json:"uvIndex,omitempty"`
	TemperatureC *float64   `json:"temperatureC,omitempty"`
	AQIIndex     *float64   `json:"aqiIndex,omitempty"`
}

// MetricsEnvelope is the JSON payload stored in health_report.metrics.
// It is assembled fresh on every sync and read back by scoring and
// baseline computation.
type MetricsEnvelope struct {
	Version  int             `json:"version"`
	Provider ProviderMetrics `json:"provider"`
	Weather  *WeatherMetrics `json:"weather,omitempty"`
	Axle     *AxleScores     `json:"axle,omitempty"`
}

// legacyKeys maps typed provider fields to the snake_case keys old
// envelopes used inside the raw signal map.
var legacyKeys = map[string][]string{
	"hrv":        {"hrv", "hrv_ms"},
	"restingHR":  {"resting_hr", "resting_heart_rate"},
	"sleepScore": {"sleep_score"},
	"sleepHours": {"sleep_hours"},
	"stress":     {"stress", "stress_level"},
	"steps":      {"steps", "step_count"},
	"calories":   {"calories", "active_calories"},
}

// Normalize migrates a legacy (version 0) envelope to the current typed
// schema. It is the single place legacy field-name fallbacks live; callers
// can rely on the typed fields afterwards. Idempotent.
func (m *MetricsEnvelope) Normalize() {
	if m.Version >= EnvelopeVersion {
		return
	}

	raw := m.Provider.Raw
	if raw != nil {
		promote(raw, legacyKeys["hrv"], &m.Provider.HRV)
		promote(raw, legacyKeys["restingHR"], &m.Provider.RestingHR)
		promote(raw, legacyKeys["sleepScore"], &m.Provider.SleepScore)
		promote(raw, legacyKeys["sleepHours"], &m.Provider.SleepHours)
		promote(raw, legacyKeys["stress"], &m.Provider.Stress)
		promote(raw, legacyKeys["steps"], &m.Provider.Steps)
		promote(raw, legacyKeys["calories"], &m.Provider.Calories)
	}

	m.Version = EnvelopeVersion
}

// promote fills dst from the first raw key holding a numeric value,
// but never overwrites an already-typed field.
func promote(raw map[string]any, keys []string, dst **float64) {
	if *dst != nil {
		return
	}
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			val := v
			*dst = &val
			return
		case int:
			val := float64(v)
			*dst = &val
			return
		}
	}
}

// HealthReport is the per (user, day) row. At most one row per user and
// day exists; the repo upsert enforces that.
type HealthReport struct {
	ID          int             `json:"id"`
	UserID      string          `json:"userId"`
	Day         time.Time       `json:"day"`
	Metrics     MetricsEnvelope `json:"metrics"`
	Summary     string          `json:"summary"`
	Suggestions []string        `json:"suggestions,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Float returns a pointer to v; helper for building envelopes.
func Float(v float64) *float64 {
	return &v
}
