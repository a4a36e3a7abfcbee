package axle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRunAt(t *testing.T) {
	now := time.Date(2024, 3, 11, 3, 30, 0, 0, time.UTC)

	next := nextRunAt(now, 5)
	assert.Equal(t, time.Date(2024, 3, 11, 5, 0, 0, 0, time.UTC), next)

	// already past today's slot: tomorrow
	next = nextRunAt(now, 2)
	assert.Equal(t, time.Date(2024, 3, 12, 2, 0, 0, 0, time.UTC), next)

	// exactly at the slot: strictly after now
	atSlot := time.Date(2024, 3, 11, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 12, 5, 0, 0, 0, time.UTC), nextRunAt(atSlot, 5))
}
