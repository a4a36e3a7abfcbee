package axle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/noble-hunt/axle/internal/axle"
	"github.com/noble-hunt/axle/internal/healthreport"
	"github.com/noble-hunt/axle/internal/suggestion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubActiveUsersRepo struct {
	userIDs []string
	err     error
}

func (s *stubActiveUsersRepo) ActiveUserIDs(_ context.Context, _ int) ([]string, error) {
	return s.userIDs, s.err
}

type stubJobSuggestions struct {
	mu       sync.Mutex
	existing map[string]bool
	raced    map[string]bool
	failFor  map[string]error
	created  []string
}

func newStubJobSuggestions() *stubJobSuggestions {
	return &stubJobSuggestions{
		existing: make(map[string]bool),
		raced:    make(map[string]bool),
		failFor:  make(map[string]error),
	}
}

func (s *stubJobSuggestions) ExistsForDay(_ context.Context, userID string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing[userID], nil
}

func (s *stubJobSuggestions) CreateForDay(_ context.Context, userID string, _ time.Time) (bool, *suggestion.SuggestedWorkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[userID]; err != nil {
		return false, nil, err
	}
	if s.raced[userID] {
		// another run inserted first: benign, nothing created here
		return false, &suggestion.SuggestedWorkout{UserID: userID}, nil
	}
	s.created = append(s.created, userID)
	return true, &suggestion.SuggestedWorkout{UserID: userID}, nil
}

type stubUserSyncer struct {
	mu       sync.Mutex
	failFor  map[string]error
	panicFor map[string]bool
	synced   []string
}

func newStubUserSyncer() *stubUserSyncer {
	return &stubUserSyncer{
		failFor:  make(map[string]error),
		panicFor: make(map[string]bool),
	}
}

func (s *stubUserSyncer) SyncUser(_ context.Context, userID string) (*healthreport.HealthReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicFor[userID] {
		panic("sync blew up for " + userID)
	}
	if err := s.failFor[userID]; err != nil {
		return nil, err
	}
	s.synced = append(s.synced, userID)
	return nil, nil
}

type capturingJobRuns struct {
	mu   sync.Mutex
	runs []axle.JobRun
}

func (c *capturingJobRuns) Insert(_ context.Context, run axle.JobRun) (*axle.JobRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, run)
	return &run, nil
}

func TestJobRunner_Run(t *testing.T) {
	suggestions := newStubJobSuggestions()
	suggestions.existing["user-skip"] = true
	suggestions.failFor["user-bad"] = errors.New("insert failed")
	syncer := newStubUserSyncer()
	jobRuns := &capturingJobRuns{}

	runner := axle.NewJobRunner(axle.JobRunnerParams{
		Workouts:    &stubActiveUsersRepo{userIDs: []string{"user-ok", "user-skip", "user-bad"}},
		Suggestions: suggestions,
		Syncer:      syncer,
		JobRuns:     jobRuns,
	})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, []string{"user-ok"}, suggestions.created)

	// the skipped user never reached the syncer
	assert.NotContains(t, syncer.synced, "user-skip")

	require.Len(t, jobRuns.runs, 1)
	assert.Equal(t, 3, jobRuns.runs[0].Processed)
	assert.Equal(t, 1, jobRuns.runs[0].Created)
	assert.Equal(t, 1, jobRuns.runs[0].Errors)
}

func TestJobRunner_Run_BenignRaceNotAnError(t *testing.T) {
	suggestions := newStubJobSuggestions()
	suggestions.raced["user-1"] = true

	runner := axle.NewJobRunner(axle.JobRunnerParams{
		Workouts:    &stubActiveUsersRepo{userIDs: []string{"user-1"}},
		Suggestions: suggestions,
		Syncer:      newStubUserSyncer(),
	})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Errors)
}

func TestJobRunner_Run_ActiveUsersQueryIsFatal(t *testing.T) {
	runner := axle.NewJobRunner(axle.JobRunnerParams{
		Workouts:    &stubActiveUsersRepo{err: errors.New("db down")},
		Suggestions: newStubJobSuggestions(),
		Syncer:      newStubUserSyncer(),
	})

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query active users")
}

func TestJobRunner_Run_PanicIsolatedPerUser(t *testing.T) {
	syncer := newStubUserSyncer()
	syncer.panicFor["user-2"] = true
	suggestions := newStubJobSuggestions()

	runner := axle.NewJobRunner(axle.JobRunnerParams{
		Workouts:    &stubActiveUsersRepo{userIDs: []string{"user-1", "user-2", "user-3"}},
		Suggestions: suggestions,
		Syncer:      syncer,
	})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Errors)
	assert.ElementsMatch(t, []string{"user-1", "user-3"}, suggestions.created)
}

func TestJobRunner_Run_SyncFailureCountsAsUserError(t *testing.T) {
	syncer := newStubUserSyncer()
	syncer.failFor["user-1"] = errors.New("sync infra down")

	runner := axle.NewJobRunner(axle.JobRunnerParams{
		Workouts:    &stubActiveUsersRepo{userIDs: []string{"user-1", "user-2"}},
		Suggestions: newStubJobSuggestions(),
		Syncer:      syncer,
	})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Errors)
}

func TestJobRunner_Run_WithWorkerPool(t *testing.T) {
	userIDs := make([]string, 40)
	for i := range userIDs {
		userIDs[i] = string(rune('a' + i%26))
	}
	// dedupe: repeated ids would be processed repeatedly, which is fine
	// for counting purposes here
	suggestions := newStubJobSuggestions()

	runner := axle.NewJobRunner(axle.JobRunnerParams{
		Workouts:    &stubActiveUsersRepo{userIDs: userIDs},
		Suggestions: suggestions,
		Syncer:      newStubUserSyncer(),
		Workers:     4,
	})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 40, result.Processed)
	assert.Equal(t, 40, result.Created)
	assert.Equal(t, 0, result.Errors)
}
