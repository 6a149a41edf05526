package domain

import "time"

// NamedRef is a reference entity with a display name (genre, celebrity,
// rating classification tag).
type NamedRef struct {
	ID   int64
	Name string
}

// Movie represents the canonical movie entity in the database/service.
// UserRating and Votes form the derived aggregate; outside of a direct
// staff edit they are written only by the rating aggregator.
type Movie struct {
	ID         int64
	Title      string
	Year       int
	Runtime    *int
	Poster     *string
	Rating     *NamedRef
	Genres     []NamedRef
	Directors  []NamedRef
	Cast       []NamedRef
	UserRating float64
	Votes      int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Release-year bounds considered plausible for catalog entries.
const (
	MinYear = 1895
	MaxYear = 3000
)

// Bounds shared by review ratings and the movie aggregate.
const (
	MinUserRating = 0
	MaxUserRating = 10
)
