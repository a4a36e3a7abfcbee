package wearables

// Fitbit web API responses, trimmed to the fields we read.
// https://dev.fitbit.com/build/reference/web-api/

type fitbitSleepResponse struct {
	Sleep []struct {
		EndTime     string `json:"endTime"` // 2006-01-02T15:04:05.000
		IsMainSleep bool   `json:"isMainSleep"`
	} `json:"sleep"`
	Summary struct {
		TotalMinutesAsleep float64 `json:"totalMinutesAsleep"`
	} `json:"summary"`
}

type fitbitActivityResponse struct {
	Summary struct {
		Steps            float64               `json:"steps"`
		CaloriesOut      float64               `json:"caloriesOut"`
		RestingHeartRate float64               `json:"restingHeartRate"`
		HeartRateZones   []fitbitHeartRateZone `json:"heartRateZones"`
	} `json:"summary"`
}

type fitbitHeartRateZone struct {
	Name    string  `json:"name"`
	Minutes float64 `json:"minutes"`
}

// Oura v2 API responses.
// https://cloud.ouraring.com/v2/docs

type ouraDailySleepResponse struct {
	Data []struct {
		Day          string  `json:"day"`
		Score        float64 `json:"score"`
		Contributors struct {
			TotalSleep float64 `json:"total_sleep"` // minutes
		} `json:"contributors"`
	} `json:"data"`
}

type ouraDailyReadinessResponse struct {
	Data []struct {
		Day   string  `json:"day"`
		Score float64 `json:"score"`
	} `json:"data"`
}

// Whoop v1 API response.
// https://developer.whoop.com/api

type whoopRecoveryResponse struct {
	Records []struct {
		Score struct {
			RecoveryScore    float64 `json:"recovery_score"`
			HRVRmssdMilli    float64 `json:"hrv_rmssd_milli"`
			RestingHeartRate float64 `json:"resting_heart_rate"`
		} `json:"score"`
	} `json:"records"`
}

type whoopCycleResponse struct {
	Records []struct {
		Score struct {
			Strain float64 `json:"strain"`
		} `json:"score"`
	} `json:"records"`
}

// Garmin wellness API daily summary.

type garminDailiesResponse struct {
	Steps              float64            `json:"steps"`
	ActiveKilocalories float64            `json:"activeKilocalories"`
	RestingHeartRate   float64            `json:"restingHeartRateInBeatsPerMinute"`
	AverageStress      float64            `json:"averageStressLevel"` // 0-100, -1 when unmeasured
	SleepSeconds       float64            `json:"sleepingSeconds"`
	TimeZoneMinutes    map[string]float64 `json:"timeInHeartRateZones"`
}
