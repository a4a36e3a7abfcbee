package wearables

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	ErrUnknownProvider = errors.New("unknown wearable provider")
	ErrNoData          = errors.New("provider returned no data for today")
)

// ZoneMinutes holds heart-rate zone minutes reported by a provider.
type ZoneMinutes struct {
	Zone1 float64
	Zone2 float64
	Zone3 float64
	Zone4 float64
	Zone5 float64
}

// HealthSnapshot is the latest daily readout fetched from a wearable
// provider. Optional signals are pointers: a nil field means the
// provider does not report that signal (or had no sample today).
type HealthSnapshot struct {
	Source        string
	HRV           *float64
	RestingHR     *float64
	SleepScore    *float64
	SleepHours    *float64
	SleepMidpoint *time.Time
	WakeTime      *time.Time
	Stress        *float64
	Steps         *float64
	EarlySteps    *float64
	Calories      *float64
	Strain48h     *float64
	RPE24h        *float64
	Zones         *ZoneMinutes
	Raw           map[string]any
}

// Provider fetches the latest health snapshot for a single connection.
// Implementations are stateless apart from their HTTP client; per-user
// credentials travel with the Connection.
type Provider interface {
	Name() string
	FetchLatest(ctx context.Context, conn Connection) (*HealthSnapshot, error)
}

// ProviderConfig holds the API base URLs, typically overridden only
// in tests. Empty values fall back to the production endpoints.
type ProviderConfig struct {
	FitbitBaseURL string
	OuraBaseURL   string
	WhoopBaseURL  string
	GarminBaseURL string
}

// Registry maps provider names to their adapters.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(cfg ProviderConfig, httpClient *http.Client) *Registry {
	registry := &Registry{providers: make(map[string]Provider)}
	for _, p := range []Provider{
		NewFitbitApi(cfg.FitbitBaseURL, httpClient),
		NewOuraApi(cfg.OuraBaseURL, httpClient),
		NewWhoopApi(cfg.WhoopBaseURL, httpClient),
		NewGarminApi(cfg.GarminBaseURL, httpClient),
	} {
		registry.providers[p.Name()] = p
	}
	return registry
}

// Get returns the adapter for the given provider name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names returns all registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

func floatPtr(v float64) *float64 {
	return &v
}
