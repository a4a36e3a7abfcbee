package wearables

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
	"github.com/noble-hunt/axle/pkg"
)

const fitbitDefaultBaseURL = "https://api.fitbit.com"

type FitbitApi struct {
	baseURL    string
	httpClient *http.Client
}

func NewFitbitApi(baseURL string, httpClient *http.Client) *FitbitApi {
	if baseURL == "" {
		baseURL = fitbitDefaultBaseURL
	}
	return &FitbitApi{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (api *FitbitApi) Name() string {
	return "fitbit"
}

func (api *FitbitApi) FetchLatest(ctx context.Context, conn Connection) (_ *HealthSnapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "fitbitApi.fetchLatest")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	today := pkg.DayOf(time.Now()).Format("2006-01-02")

	var sleepResp fitbitSleepResponse
	sleepURL := fmt.Sprintf("%s/1.2/user/-/sleep/date/%s.json", api.baseURL, today)
	if err := getJSON(ctx, api.httpClient, sleepURL, conn.AccessToken, &sleepResp); err != nil {
		return nil, fmt.Errorf("fitbit sleep: %w", err)
	}

	var activityResp fitbitActivityResponse
	activityURL := fmt.Sprintf("%s/1/user/-/activities/date/%s.json", api.baseURL, today)
	if err := getJSON(ctx, api.httpClient, activityURL, conn.AccessToken, &activityResp); err != nil {
		return nil, fmt.Errorf("fitbit activities: %w", err)
	}

	snapshot := &HealthSnapshot{Source: api.Name()}
	if minutes := sleepResp.Summary.TotalMinutesAsleep; minutes > 0 {
		snapshot.SleepHours = floatPtr(minutes / 60)
	}
	for _, s := range sleepResp.Sleep {
		if !s.IsMainSleep {
			continue
		}
		if wake, err := time.Parse("2006-01-02T15:04:05.000", s.EndTime); err == nil {
			snapshot.WakeTime = &wake
		}
	}
	if steps := activityResp.Summary.Steps; steps > 0 {
		snapshot.Steps = floatPtr(steps)
	}
	if calories := activityResp.Summary.CaloriesOut; calories > 0 {
		snapshot.Calories = floatPtr(calories)
	}
	if restingHR := activityResp.Summary.RestingHeartRate; restingHR > 0 {
		snapshot.RestingHR = floatPtr(restingHR)
	}
	if zones := fitbitZones(activityResp.Summary.HeartRateZones); zones != nil {
		snapshot.Zones = zones
	}

	if snapshot.SleepHours == nil && snapshot.Steps == nil {
		return nil, ErrNoData
	}
	return snapshot, nil
}

// fitbitZones maps the named Fitbit zones onto the 5-zone model: "Fat
// Burn" covers zones 1-2, "Cardio" zone 3-4, "Peak" zone 5.
func fitbitZones(apiZones []fitbitHeartRateZone) *ZoneMinutes {
	var zones ZoneMinutes
	var any bool
	for _, z := range apiZones {
		switch z.Name {
		case "Fat Burn":
			zones.Zone1 = z.Minutes / 2
			zones.Zone2 = z.Minutes / 2
		case "Cardio":
			zones.Zone3 = z.Minutes / 2
			zones.Zone4 = z.Minutes / 2
		case "Peak":
			zones.Zone5 = z.Minutes
		default:
			continue
		}
		if z.Minutes > 0 {
			any = true
		}
	}
	if !any {
		return nil
	}
	return &zones
}

// getJSON performs an authenticated GET and unmarshals the body into out.
// Shared by all provider adapters.
func getJSON(ctx context.Context, client *http.Client, url, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response bytes: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, pkg.Truncate(pkg.BytesToString(respBytes), 200))
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("unmarshal response bytes: %w", err)
	}
	return nil
}
