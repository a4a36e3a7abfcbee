package wearables

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"
)

const whoopDefaultBaseURL = "https://api.prod.whoop.com/developer"

type WhoopApi struct {
	baseURL    string
	httpClient *http.Client
}

func NewWhoopApi(baseURL string, httpClient *http.Client) *WhoopApi {
	if baseURL == "" {
		baseURL = whoopDefaultBaseURL
	}
	return &WhoopApi{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (api *WhoopApi) Name() string {
	return "whoop"
}

func (api *WhoopApi) FetchLatest(ctx context.Context, conn Connection) (_ *HealthSnapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "whoopApi.fetchLatest")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var recoveryResp whoopRecoveryResponse
	recoveryURL := fmt.Sprintf("%s/v1/recovery?limit=1", api.baseURL)
	if err := getJSON(ctx, api.httpClient, recoveryURL, conn.AccessToken, &recoveryResp); err != nil {
		return nil, fmt.Errorf("whoop recovery: %w", err)
	}

	var cycleResp whoopCycleResponse
	cycleURL := fmt.Sprintf("%s/v1/cycle?limit=2", api.baseURL)
	if err := getJSON(ctx, api.httpClient, cycleURL, conn.AccessToken, &cycleResp); err != nil {
		return nil, fmt.Errorf("whoop cycle: %w", err)
	}

	snapshot := &HealthSnapshot{Source: api.Name()}
	if len(recoveryResp.Records) > 0 {
		score := recoveryResp.Records[0].Score
		if score.HRVRmssdMilli > 0 {
			snapshot.HRV = floatPtr(score.HRVRmssdMilli)
		}
		if score.RestingHeartRate > 0 {
			snapshot.RestingHR = floatPtr(score.RestingHeartRate)
		}
		if score.RecoveryScore > 0 {
			snapshot.Raw = map[string]any{"recovery_score": score.RecoveryScore}
		}
	}

	// trailing 48h strain, summed over the last two physiological cycles
	var strain float64
	for _, record := range cycleResp.Records {
		strain += record.Score.Strain
	}
	if strain > 0 {
		snapshot.Strain48h = floatPtr(strain)
	}

	if snapshot.HRV == nil && snapshot.RestingHR == nil && snapshot.Strain48h == nil {
		return nil, ErrNoData
	}
	return snapshot, nil
}
