package wearables

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"
)

const garminDefaultBaseURL = "https://apis.garmin.com/wellness-api"

type GarminApi struct {
	baseURL    string
	httpClient *http.Client
}

func NewGarminApi(baseURL string, httpClient *http.Client) *GarminApi {
	if baseURL == "" {
		baseURL = garminDefaultBaseURL
	}
	return &GarminApi{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (api *GarminApi) Name() string {
	return "garmin"
}

func (api *GarminApi) FetchLatest(ctx context.Context, conn Connection) (_ *HealthSnapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "garminApi.fetchLatest")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var dailies garminDailiesResponse
	dailiesURL := fmt.Sprintf("%s/rest/dailies?calendarDate=%s", api.baseURL, pkg.DayOf(time.Now()).Format("2006-01-02"))
	if err := getJSON(ctx, api.httpClient, dailiesURL, conn.AccessToken, &dailies); err != nil {
		return nil, fmt.Errorf("garmin dailies: %w", err)
	}

	snapshot := &HealthSnapshot{Source: api.Name()}
	if dailies.Steps > 0 {
		snapshot.Steps = floatPtr(dailies.Steps)
	}
	if dailies.ActiveKilocalories > 0 {
		snapshot.Calories = floatPtr(dailies.ActiveKilocalories)
	}
	if dailies.RestingHeartRate > 0 {
		snapshot.RestingHR = floatPtr(dailies.RestingHeartRate)
	}
	if dailies.AverageStress >= 0 {
		// garmin stress is 0-100; scoring expects the 0-10 scale
		snapshot.Stress = floatPtr(dailies.AverageStress / 10)
	}
	if dailies.SleepSeconds > 0 {
		snapshot.SleepHours = floatPtr(dailies.SleepSeconds / 3600)
	}
	if zones := garminZones(dailies.TimeZoneMinutes); zones != nil {
		snapshot.Zones = zones
	}

	if snapshot.Steps == nil && snapshot.SleepHours == nil && snapshot.RestingHR == nil {
		return nil, ErrNoData
	}
	return snapshot, nil
}

func garminZones(timeInZones map[string]float64) *ZoneMinutes {
	if len(timeInZones) == 0 {
		return nil
	}
	zones := &ZoneMinutes{
		Zone1: timeInZones["zone1"],
		Zone2: timeInZones["zone2"],
		Zone3: timeInZones["zone3"],
		Zone4: timeInZones["zone4"],
		Zone5: timeInZones["zone5"],
	}
	if zones.Zone1+zones.Zone2+zones.Zone3+zones.Zone4+zones.Zone5 == 0 {
		return nil
	}
	return zones
}
