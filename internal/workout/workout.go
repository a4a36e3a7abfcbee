package workout

import (
	"time"
)

type Category string

const (
	CategoryCardio    Category = "cardio"
	CategoryStrength  Category = "strength"
	CategoryHIIT      Category = "hiit"
	CategoryMobility  Category = "mobility"
	CategoryLowerBody Category = "lower_body"
)

// Categories lists every known workout category, in a stable order.
var Categories = []Category{
	CategoryCardio,
	CategoryStrength,
	CategoryHIIT,
	CategoryMobility,
	CategoryLowerBody,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// LowerBodyFocused reports whether a workout of this category loads the
// lower body enough to trigger the anti-repetition rule.
func (c Category) LowerBodyFocused() bool {
	return c == CategoryLowerBody
}

type Workout struct {
	ID          int       `json:"id"`
	UserID      string    `json:"userId"`
	Category    Category  `json:"category"`
	Intensity   int       `json:"intensity"` // 1-10
	DurationMin int       `json:"durationMin"`
	Feedback    *string   `json:"feedback,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
