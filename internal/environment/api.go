package environment

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

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	forecastDefaultBaseURL   = "https://api.open-meteo.com"
	airQualityDefaultBaseURL = "https://air-quality-api.open-meteo.com"

	oneHour          = 60 * 60
	dailyCacheExpire = oneHour * 1
)

// Daily is the day's environment readout for one location. Sunrise and
// sunset are in the location's local time.
type Daily struct {
	Sunrise      *time.Time `json:"sunrise,omitempty"`
	Sunset       *time.Time `json:"sunset,omitempty"`
	UVIndex      *float64   `json:"uvIndex,omitempty"`
	TemperatureC *float64   `json:"temperatureC,omitempty"`
	AQIIndex     *float64   `json:"aqiIndex,omitempty"`
}

// Api fetches solar, weather and air quality data from open-meteo.
// Responses are cached per location for an hour.
type Api struct {
	cache             *freecache.Cache
	forecastBaseURL   string
	airQualityBaseURL string
	httpClient        *http.Client
}

func NewApi(forecastBaseURL, airQualityBaseURL string, httpClient *http.Client) *Api {
	if forecastBaseURL == "" {
		forecastBaseURL = forecastDefaultBaseURL
	}
	if airQualityBaseURL == "" {
		airQualityBaseURL = airQualityDefaultBaseURL
	}

	megabyte := 1024 * 1024
	cacheSize := 10 * megabyte

	return &Api{
		cache:             freecache.NewCache(cacheSize),
		forecastBaseURL:   strings.TrimSuffix(forecastBaseURL, "/"),
		airQualityBaseURL: strings.TrimSuffix(airQualityBaseURL, "/"),
		httpClient:        httpClient,
	}
}

func (api *Api) GetDaily(ctx context.Context, location Location) (_ *Daily, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "environmentApi.getDaily")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	cacheKey := fmt.Sprintf("daily::%.2f,%.2f::%s", location.Latitude, location.Longitude, pkg.DayOf(time.Now()).Format("2006-01-02"))
	if dailyBytes, err := api.cache.Get([]byte(cacheKey)); err == nil {
		daily := &Daily{}
		if err = json.Unmarshal(dailyBytes, daily); err == nil {
			log.Tracef("found environment daily for %s in cache", cacheKey)
			return daily, nil
		}
		log.Errorf("failed to unmarshal environment daily from cache for %s: %s", cacheKey, err)
	}

	daily := &Daily{}

	forecastURL := fmt.Sprintf(
		"%s/v1/forecast?latitude=%f&longitude=%f&daily=sunrise,sunset,uv_index_max&current=temperature_2m&timezone=auto&forecast_days=1",
		api.forecastBaseURL, location.Latitude, location.Longitude,
	)
	var forecast forecastApiResponse
	if err := api.getJSON(ctx, forecastURL, &forecast); err != nil {
		return nil, fmt.Errorf("environment forecast: %w", err)
	}

	if len(forecast.Daily.Sunrise) > 0 {
		if sunrise, err := time.Parse("2006-01-02T15:04", forecast.Daily.Sunrise[0]); err == nil {
			daily.Sunrise = &sunrise
		}
	}
	if len(forecast.Daily.Sunset) > 0 {
		if sunset, err := time.Parse("2006-01-02T15:04", forecast.Daily.Sunset[0]); err == nil {
			daily.Sunset = &sunset
		}
	}
	if len(forecast.Daily.UVIndexMax) > 0 {
		uvIndex := forecast.Daily.UVIndexMax[0]
		daily.UVIndex = &uvIndex
	}
	temperature := forecast.Current.Temperature2m
	daily.TemperatureC = &temperature

	// air quality is served by a separate open-meteo host; failure
	// here is not fatal, the rest of the readout is still usable
	airQualityURL := fmt.Sprintf(
		"%s/v1/air-quality?latitude=%f&longitude=%f&current=european_aqi",
		api.airQualityBaseURL, location.Latitude, location.Longitude,
	)
	var airQuality airQualityApiResponse
	if err := api.getJSON(ctx, airQualityURL, &airQuality); err != nil {
		log.Warnf("environment air quality for %.2f,%.2f: %s", location.Latitude, location.Longitude, err)
	} else {
		aqi := airQuality.Current.EuropeanAQI
		daily.AQIIndex = &aqi
	}

	if dailyBytes, err := json.Marshal(daily); err == nil {
		if err := api.cache.Set([]byte(cacheKey), dailyBytes, dailyCacheExpire); err != nil {
			log.Errorf("failed to write environment daily cache for %s: %s", cacheKey, err)
		}
	}

	return daily, nil
}

func (api *Api) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := api.httpClient.Do(req)
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
