package axle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/noble-hunt/axle/internal/axle"
	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/wearables"
	"github.com/noble-hunt/axle/internal/workout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     string
	snapshot *wearables.HealthSnapshot
	err      error
	calls    int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) FetchLatest(_ context.Context, _ wearables.Connection) (*wearables.HealthSnapshot, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshot, nil
}

type stubRegistry struct {
	providers map[string]*stubProvider
}

func (r *stubRegistry) Get(name string) (wearables.Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, wearables.ErrUnknownProvider
	}
	return p, nil
}

type stubSyncWorkoutsRepo struct {
	workouts []workout.Workout
	err      error
}

func (s *stubSyncWorkoutsRepo) ListRecent(_ context.Context, _ string, _ int) ([]workout.Workout, error) {
	return s.workouts, s.err
}

type syncFixture struct {
	syncer      *axle.Syncer
	connections *wearables.MockRepo
	reports     *healthreport.MockRepo
	registry    *stubRegistry
}

func newSyncFixture(t *testing.T, providers ...*stubProvider) *syncFixture {
	t.Helper()

	registry := &stubRegistry{providers: make(map[string]*stubProvider)}
	for _, p := range providers {
		registry.providers[p.name] = p
	}

	connections := wearables.NewMockRepo()
	reports := healthreport.NewMockRepo()

	return &syncFixture{
		syncer: axle.NewSyncer(axle.SyncerParams{
			Connections: connections,
			Registry:    registry,
			Reports:     reports,
			Workouts:    &stubSyncWorkoutsRepo{},
			Baselines:   axle.NewBaselineComputer(reports, 21),
		}),
		connections: connections,
		reports:     reports,
		registry:    registry,
	}
}

func (f *syncFixture) connect(t *testing.T, userID, provider string) wearables.Connection {
	t.Helper()
	conn, err := f.connections.Add(context.Background(), wearables.Connection{
		UserID:      userID,
		Provider:    provider,
		AccessToken: "token",
	})
	require.NoError(t, err)
	return *conn
}

func TestSyncer_SyncUser(t *testing.T) {
	provider := &stubProvider{
		name: "oura",
		snapshot: &wearables.HealthSnapshot{
			Source:     "oura",
			SleepScore: healthreport.Float(80),
			Steps:      healthreport.Float(9000),
			HRV:        healthreport.Float(60),
		},
	}
	fixture := newSyncFixture(t, provider)
	conn := fixture.connect(t, "user-1", "oura")

	report, err := fixture.syncer.SyncUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, "user-1", report.UserID)
	assert.Equal(t, healthreport.EnvelopeVersion, report.Metrics.Version)
	assert.Equal(t, "oura", report.Metrics.Provider.Source)
	require.NotNil(t, report.Metrics.Axle)
	assert.Equal(t, 80, report.Metrics.Axle.Sleep)
	assert.NotEmpty(t, report.Summary)

	stored := fixture.connections.Connections[conn.ID]
	assert.Equal(t, wearables.StatusConnected, stored.Status)
	require.NotNil(t, stored.LastSyncAt)
}

func TestSyncer_SyncUser_Idempotent(t *testing.T) {
	provider := &stubProvider{
		name:     "oura",
		snapshot: &wearables.HealthSnapshot{Source: "oura", Steps: healthreport.Float(5000)},
	}
	fixture := newSyncFixture(t, provider)
	fixture.connect(t, "user-1", "oura")

	first, err := fixture.syncer.SyncUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := fixture.syncer.SyncUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, second)

	// the second call hit the existing-report skip, not the provider
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, first.ID, second.ID)
}

func TestSyncer_SyncUser_NoConnections(t *testing.T) {
	fixture := newSyncFixture(t)

	report, err := fixture.syncer.SyncUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestSyncer_SyncUser_ProviderFailure(t *testing.T) {
	provider := &stubProvider{name: "whoop", err: errors.New("whoop api down")}
	fixture := newSyncFixture(t, provider)
	conn := fixture.connect(t, "user-1", "whoop")

	report, err := fixture.syncer.SyncUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, report)

	stored := fixture.connections.Connections[conn.ID]
	assert.Equal(t, wearables.StatusError, stored.Status)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "whoop api down")

	exists, err := fixture.reports.ExistsForDay(context.Background(), "user-1", time.Now())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSyncer_SyncUser_FallsBackToNextProvider(t *testing.T) {
	failing := &stubProvider{name: "fitbit", err: errors.New("rate limited")}
	working := &stubProvider{
		name:     "garmin",
		snapshot: &wearables.HealthSnapshot{Source: "garmin", Steps: healthreport.Float(7000)},
	}
	fixture := newSyncFixture(t, failing, working)
	failingConn := fixture.connect(t, "user-1", "fitbit")
	workingConn := fixture.connect(t, "user-1", "garmin")

	report, err := fixture.syncer.SyncUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "garmin", report.Metrics.Provider.Source)

	assert.Equal(t, wearables.StatusError, fixture.connections.Connections[failingConn.ID].Status)
	assert.Equal(t, wearables.StatusConnected, fixture.connections.Connections[workingConn.ID].Status)
}
