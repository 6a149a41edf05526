package domain

import "time"

// Review is a single user's rating-bearing review of a movie. At most one
// review exists per (user, movie) pair; the movie reference is immutable
// after creation.
type Review struct {
	ID         int64
	UserID     int64
	Username   string
	MovieID    int64
	MovieTitle string
	UserRating float64
	Comment    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
