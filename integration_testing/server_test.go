package integration_testing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/noble-hunt/axle/internal/axle"
	"github.com/noble-hunt/axle/internal/suggestion"
	"github.com/noble-hunt/axle/internal/workout"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-integration-1"

func doRequest(t *testing.T, method, path, token string, body []byte) *http.Response {
	t.Helper()

	var bodyReader *bytes.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, serverEndpoint+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Origin", "test")
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-AXLE-TOKEN", token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func loginAdmin(t *testing.T) string {
	t.Helper()

	form := url.Values{}
	form.Add("username", adminUsername)
	form.Add("password", adminPassword)

	req, err := http.NewRequest("POST", serverEndpoint+"/a/login", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Origin", "test")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp.Token)
	return loginResp.Token
}

func addWorkout(t *testing.T, w workout.Workout) workout.Workout {
	t.Helper()

	workoutJson, err := json.Marshal(w)
	require.NoError(t, err)

	resp := doRequest(t, "POST", "/workouts", "", workoutJson)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var added workout.Workout
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	require.NotZero(t, added.ID)
	return added
}

func Test_Server_DailySuggestionFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite := newSuite(ctx)
	defer suite.cleanup()
	require.NotNil(t, suite.server)

	// a user with a week of cardio-only training
	feedback := gofakeit.Sentence(5)
	for i := 1; i <= 5; i++ {
		addWorkout(t, workout.Workout{
			UserID:      testUserID,
			Category:    workout.CategoryCardio,
			Intensity:   gofakeit.Number(5, 8),
			DurationMin: gofakeit.Number(30, 60),
			Feedback:    &feedback,
			CreatedAt:   time.Now().AddDate(0, 0, -i),
		})
	}

	listResp := doRequest(t, "GET", fmt.Sprintf("/workouts/%s?days=14", testUserID), "", nil)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var list workout.ListResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Equal(t, 5, list.Total)

	// the daily job endpoints are admin-only
	unauthorizedResp := doRequest(t, "POST", "/admin/dailyjob/trigger", "", nil)
	defer unauthorizedResp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, unauthorizedResp.StatusCode)

	token := loginAdmin(t)

	triggerResp := doRequest(t, "POST", "/admin/dailyjob/trigger", token, nil)
	defer triggerResp.Body.Close()
	require.Equal(t, http.StatusOK, triggerResp.StatusCode)

	var jobResult axle.JobResult
	require.NoError(t, json.NewDecoder(triggerResp.Body).Decode(&jobResult))
	assert.Equal(t, 1, jobResult.Processed)
	assert.Equal(t, 1, jobResult.Created)
	assert.Equal(t, 0, jobResult.Errors)

	// the suggestion counters a cardio-only week with variety
	suggestionResp := doRequest(t, "GET", fmt.Sprintf("/suggestions/%s/today", testUserID), "", nil)
	defer suggestionResp.Body.Close()
	require.Equal(t, http.StatusOK, suggestionResp.StatusCode)

	var suggested suggestion.SuggestedWorkout
	require.NoError(t, json.NewDecoder(suggestionResp.Body).Decode(&suggested))
	assert.Equal(t, testUserID, suggested.UserID)
	assert.NotEqual(t, workout.CategoryCardio, suggested.Category)
	assert.NotEmpty(t, suggested.Rationale)

	// second trigger is a no-op for this user, suggestion already exists
	secondTriggerResp := doRequest(t, "POST", "/admin/dailyjob/trigger", token, nil)
	defer secondTriggerResp.Body.Close()
	require.Equal(t, http.StatusOK, secondTriggerResp.StatusCode)

	var secondResult axle.JobResult
	require.NoError(t, json.NewDecoder(secondTriggerResp.Body).Decode(&secondResult))
	assert.Equal(t, 1, secondResult.Processed)
	assert.Equal(t, 0, secondResult.Created)

	lastRunResp := doRequest(t, "GET", "/admin/dailyjob/last", token, nil)
	defer lastRunResp.Body.Close()
	require.Equal(t, http.StatusOK, lastRunResp.StatusCode)

	var lastRun axle.JobRun
	require.NoError(t, json.NewDecoder(lastRunResp.Body).Decode(&lastRun))
	assert.NotZero(t, lastRun.ID)
	assert.Equal(t, 1, lastRun.Processed)
}
