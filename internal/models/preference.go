package models

import "time"

// Rating is a user's judgment on a title.
type Rating string

const (
	RatingLiked    Rating = "liked"
	RatingDisliked Rating = "disliked"
)

// Valid reports whether r is liked or disliked.
func (r Rating) Valid() bool {
	return r == RatingLiked || r == RatingDisliked
}

// User is the identity resolved from a verified bearer token.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// RoleAdmin marks users allowed to run catalog maintenance.
const RoleAdmin = "admin"

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Preference stores one user's rating of one movie.
type Preference struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Rating    Rating    `json:"rating"`
	Watched   bool      `json:"watched"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordPreferenceRequest is the request body for rating a movie.
type RecordPreferenceRequest struct {
	MovieID int    `json:"movie_id" validate:"required,gt=0"`
	Rating  Rating `json:"rating" validate:"required,oneof=liked disliked"`
}

// RatedMovie is a catalog movie annotated with the caller's rating.
type RatedMovie struct {
	Movie
	UserRating Rating    `json:"user_rating"`
	RatedAt    time.Time `json:"rated_at"`
}

// WatchListRequest is the request body for watch-list mutations.
type WatchListRequest struct {
	MovieID int `json:"movie_id" validate:"required,gt=0"`
}

// ImportRequest identifies a provider title to import into the catalog.
type ImportRequest struct {
	Type   string `json:"type" validate:"required,media_type"`
	TMDBID int    `json:"tmdb_id" validate:"required,gt=0"`
}
