package healthreport

import (
	"context"
	"sync"
	"time"

	"github.com/noble-hunt/axle/pkg"
)

// MockRepo is an in-memory health report store with upsert semantics
// matching the SQL repo. Used by unit tests across packages.
type MockRepo struct {
	mu      sync.Mutex
	nextID  int
	Reports map[string]*HealthReport // keyed by userID::day

	UpsertCalls int
	FailWith    error
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		nextID:  1,
		Reports: make(map[string]*HealthReport),
	}
}

func mockKey(userID string, day time.Time) string {
	return userID + "::" + pkg.DayOf(day).Format("2006-01-02")
}

func (m *MockRepo) UpsertDaily(_ context.Context, report HealthReport) (*HealthReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpsertCalls++
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	report.Day = pkg.DayOf(report.Day)
	key := mockKey(report.UserID, report.Day)
	if existing, ok := m.Reports[key]; ok {
		report.ID = existing.ID
	} else {
		report.ID = m.nextID
		m.nextID++
	}
	m.Reports[key] = &report

	stored := report
	return &stored, nil
}

func (m *MockRepo) ExistsForDay(_ context.Context, userID string, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return false, m.FailWith
	}
	_, ok := m.Reports[mockKey(userID, day)]
	return ok, nil
}

func (m *MockRepo) GetForDay(_ context.Context, userID string, day time.Time) (*HealthReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}
	report, ok := m.Reports[mockKey(userID, day)]
	if !ok {
		return nil, ErrReportNotFound
	}
	found := *report
	return &found, nil
}

func (m *MockRepo) ListRecent(_ context.Context, userID string, days int) ([]HealthReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	from := pkg.DayOf(time.Now()).AddDate(0, 0, -days)
	var reports []HealthReport
	for _, report := range m.Reports {
		if report.UserID != userID || report.Day.Before(from) {
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
