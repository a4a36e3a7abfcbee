package environment

// open-meteo forecast API response, trimmed to the fields we read.
// https://open-meteo.com/en/docs

type forecastApiResponse struct {
	Daily struct {
		Sunrise    []string  `json:"sunrise"` // 2006-01-02T15:04, local time
		Sunset     []string  `json:"sunset"`
		UVIndexMax []float64 `json:"uv_index_max"`
	} `json:"daily"`
	Current struct {
		Temperature2m float64 `json:"temperature_2m"`
	} `json:"current"`
}

// open-meteo air quality API response.

type airQualityApiResponse struct {
	Current struct {
		EuropeanAQI float64 `json:"european_aqi"`
	} `json:"current"`
}
