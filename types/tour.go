package types

import "time"

// Tour difficulty levels.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// Tour represents a bookable travel package.
type Tour struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Description      string    `json:"description" db:"description"`
	ShortDescription string    `json:"shortDescription" db:"short_description"`
	Price            float64   `json:"price" db:"price"`
	Duration         int       `json:"duration" db:"duration"`
	MaxGroupSize     int       `json:"maxGroupSize" db:"max_group_size"`
	Difficulty       string    `json:"difficulty" db:"difficulty"`
	Category         string    `json:"category" db:"category"`
	ImageCover       string    `json:"imageCover,omitempty" db:"image_cover"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}
