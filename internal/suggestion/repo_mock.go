package suggestion

import (
	"context"
	"sync"
	"time"

	"github.com/noble-hunt/axle/pkg"
)

// mockRepo is an in-memory suggestions repo with the same uniqueness
// semantics as the SQL one, usable from unit tests and local dev.
type mockRepo struct {
	mu          sync.Mutex
	nextID      int
	Suggestions map[string]*SuggestedWorkout // keyed by userID::day
	InsertCalls int
}

func NewMockRepo() *mockRepo {
	return &mockRepo{
		nextID:      1,
		Suggestions: make(map[string]*SuggestedWorkout),
	}
}

func mockKey(userID string, day time.Time) string {
	return userID + "::" + pkg.DayOf(day).Format("2006-01-02")
}

func (m *mockRepo) Insert(_ context.Context, s SuggestedWorkout) (*SuggestedWorkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalls++

	key := mockKey(s.UserID, s.Day)
	if _, ok := m.Suggestions[key]; ok {
		return nil, ErrSuggestionExists
	}

	s.ID = m.nextID
	m.nextID++
	s.Day = pkg.DayOf(s.Day)
	s.CreatedAt = time.Now()
	m.Suggestions[key] = &s

	stored := s
	return &stored, nil
}

func (m *mockRepo) ExistsForDay(_ context.Context, userID string, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.Suggestions[mockKey(userID, day)]
	return ok, nil
}

func (m *mockRepo) GetForDay(_ context.Context, userID string, day time.Time) (*SuggestedWorkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.Suggestions[mockKey(userID, day)]
	if !ok {
		return nil, ErrSuggestionNotFound
	}
	found := *s
	return &found, nil
}

func (m *mockRepo) MarkStarted(_ context.Context, id, workoutID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.Suggestions {
		if s.ID == id {
			wID := workoutID
			s.WorkoutID = &wID
			return nil
		}
	}
	return ErrSuggestionNotFound
}
