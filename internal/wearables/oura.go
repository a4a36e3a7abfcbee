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

const ouraDefaultBaseURL = "https://api.ouraring.com"

type OuraApi struct {
	baseURL    string
	httpClient *http.Client
}

func NewOuraApi(baseURL string, httpClient *http.Client) *OuraApi {
	if baseURL == "" {
		baseURL = ouraDefaultBaseURL
	}
	return &OuraApi{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (api *OuraApi) Name() string {
	return "oura"
}

func (api *OuraApi) FetchLatest(ctx context.Context, conn Connection) (_ *HealthSnapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "ouraApi.fetchLatest")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	today := pkg.DayOf(time.Now()).Format("2006-01-02")

	var sleepResp ouraDailySleepResponse
	sleepURL := fmt.Sprintf("%s/v2/usercollection/daily_sleep?start_date=%s&end_date=%s", api.baseURL, today, today)
	if err := getJSON(ctx, api.httpClient, sleepURL, conn.AccessToken, &sleepResp); err != nil {
		return nil, fmt.Errorf("oura daily sleep: %w", err)
	}

	var readinessResp ouraDailyReadinessResponse
	readinessURL := fmt.Sprintf("%s/v2/usercollection/daily_readiness?start_date=%s&end_date=%s", api.baseURL, today, today)
	if err := getJSON(ctx, api.httpClient, readinessURL, conn.AccessToken, &readinessResp); err != nil {
		return nil, fmt.Errorf("oura daily readiness: %w", err)
	}

	snapshot := &HealthSnapshot{Source: api.Name()}
	for _, d := range sleepResp.Data {
		if d.Day != today {
			continue
		}
		if d.Score > 0 {
			snapshot.SleepScore = floatPtr(d.Score)
		}
		if d.Contributors.TotalSleep > 0 {
			snapshot.SleepHours = floatPtr(d.Contributors.TotalSleep / 60)
		}
	}
	for _, d := range readinessResp.Data {
		if d.Day != today {
			continue
		}
		if d.Score > 0 {
			// readiness doubles as the recovery input; oura reports
			// no separate stress signal here
			snapshot.Raw = map[string]any{"readiness_score": d.Score}
		}
	}

	if snapshot.SleepScore == nil && snapshot.SleepHours == nil && snapshot.Raw == nil {
		return nil, ErrNoData
	}
	return snapshot, nil
}
