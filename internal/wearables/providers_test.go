package wearables

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitbitApi_FetchLatest(t *testing.T) {
	var gotAuth string
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/sleep/"):
			fmt.Fprint(w, `{
				"sleep": [{"endTime": "2024-03-11T06:45:00.000", "isMainSleep": true}],
				"summary": {"totalMinutesAsleep": 432}
			}`)
		case strings.Contains(r.URL.Path, "/activities/"):
			fmt.Fprint(w, `{
				"summary": {
					"steps": 10350,
					"caloriesOut": 2650,
					"restingHeartRate": 52,
					"heartRateZones": [
						{"name": "Fat Burn", "minutes": 40},
						{"name": "Cardio", "minutes": 20},
						{"name": "Peak", "minutes": 5}
					]
				}
			}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer testServer.Close()

	api := NewFitbitApi(testServer.URL, testServer.Client())
	snapshot, err := api.FetchLatest(context.Background(), Connection{AccessToken: "token-123"})
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "fitbit", snapshot.Source)
	require.NotNil(t, snapshot.SleepHours)
	assert.InDelta(t, 7.2, *snapshot.SleepHours, 0.001)
	require.NotNil(t, snapshot.WakeTime)
	assert.Equal(t, 6, snapshot.WakeTime.Hour())
	require.NotNil(t, snapshot.Steps)
	assert.Equal(t, 10350.0, *snapshot.Steps)
	require.NotNil(t, snapshot.RestingHR)
	assert.Equal(t, 52.0, *snapshot.RestingHR)
	require.NotNil(t, snapshot.Zones)
	assert.Equal(t, 20.0, snapshot.Zones.Zone1)
	assert.Equal(t, 10.0, snapshot.Zones.Zone3)
	assert.Equal(t, 5.0, snapshot.Zones.Zone5)
}

func TestOuraApi_FetchLatest(t *testing.T) {
	today := time.Now().UTC().Format("2006-01-02")
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "daily_sleep"):
			fmt.Fprintf(w, `{"data": [{"day": %q, "score": 82, "contributors": {"total_sleep": 444}}]}`, today)
		case strings.Contains(r.URL.Path, "daily_readiness"):
			fmt.Fprintf(w, `{"data": [{"day": %q, "score": 77}]}`, today)
		default:
			http.NotFound(w, r)
		}
	}))
	defer testServer.Close()

	api := NewOuraApi(testServer.URL, testServer.Client())
	snapshot, err := api.FetchLatest(context.Background(), Connection{AccessToken: "token-123"})
	require.NoError(t, err)

	require.NotNil(t, snapshot.SleepScore)
	assert.Equal(t, 82.0, *snapshot.SleepScore)
	require.NotNil(t, snapshot.SleepHours)
	assert.InDelta(t, 7.4, *snapshot.SleepHours, 0.001)
	assert.Equal(t, 77.0, snapshot.Raw["readiness_score"])
}

func TestOuraApi_FetchLatest_NoData(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer testServer.Close()

	api := NewOuraApi(testServer.URL, testServer.Client())
	snapshot, err := api.FetchLatest(context.Background(), Connection{AccessToken: "token-123"})
	assert.ErrorIs(t, err, ErrNoData)
	assert.Nil(t, snapshot)
}

func TestWhoopApi_FetchLatest(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "recovery"):
			fmt.Fprint(w, `{"records": [{"score": {"recovery_score": 68, "hrv_rmssd_milli": 61.5, "resting_heart_rate": 49}}]}`)
		case strings.Contains(r.URL.Path, "cycle"):
			fmt.Fprint(w, `{"records": [{"score": {"strain": 12.3}}, {"score": {"strain": 8.1}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer testServer.Close()

	api := NewWhoopApi(testServer.URL, testServer.Client())
	snapshot, err := api.FetchLatest(context.Background(), Connection{AccessToken: "token-123"})
	require.NoError(t, err)

	require.NotNil(t, snapshot.HRV)
	assert.Equal(t, 61.5, *snapshot.HRV)
	require.NotNil(t, snapshot.RestingHR)
	assert.Equal(t, 49.0, *snapshot.RestingHR)
	require.NotNil(t, snapshot.Strain48h)
	assert.InDelta(t, 20.4, *snapshot.Strain48h, 0.001)
	assert.Equal(t, 68.0, snapshot.Raw["recovery_score"])
}

func TestGarminApi_FetchLatest(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"steps": 8200,
			"activeKilocalories": 540,
			"restingHeartRateInBeatsPerMinute": 55,
			"averageStressLevel": 42,
			"sleepingSeconds": 27000,
			"timeInHeartRateZones": {"zone1": 30, "zone2": 15, "zone5": 2}
		}`)
	}))
	defer testServer.Close()

	api := NewGarminApi(testServer.URL, testServer.Client())
	snapshot, err := api.FetchLatest(context.Background(), Connection{AccessToken: "token-123"})
	require.NoError(t, err)

	require.NotNil(t, snapshot.Steps)
	assert.Equal(t, 8200.0, *snapshot.Steps)
	require.NotNil(t, snapshot.Stress)
	assert.InDelta(t, 4.2, *snapshot.Stress, 0.001)
	require.NotNil(t, snapshot.SleepHours)
	assert.InDelta(t, 7.5, *snapshot.SleepHours, 0.001)
	require.NotNil(t, snapshot.Zones)
	assert.Equal(t, 30.0, snapshot.Zones.Zone1)
}

func TestProviderApi_ErrorStatus(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer testServer.Close()

	api := NewWhoopApi(testServer.URL, testServer.Client())
	_, err := api.FetchLatest(context.Background(), Connection{AccessToken: "token-123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(ProviderConfig{}, http.DefaultClient)

	for _, name := range []string{"fitbit", "oura", "whoop", "garmin"} {
		p, err := registry.Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	_, err := registry.Get("polar")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Len(t, registry.Names(), 4)
}
