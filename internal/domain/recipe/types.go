package recipe

import "time"

// Recipe is a persisted recipe owned by a single user.
type Recipe struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"ownerId"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Ingredients []string  `json:"ingredients"`
	Steps       []string  `json:"steps"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries the mutable recipe fields supplied by clients.
type Input struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
}
