package models

import (
	"strings"
	"time"
)

// MediaType classifies a catalog record.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeShow  MediaType = "show"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeShow
}

// Movie represents a movie or show stored in the catalog.
type Movie struct {
	ID           int       `json:"id"`
	TMDBID       int       `json:"tmdb_id"`
	Type         MediaType `json:"type"`
	Title        string    `json:"title"`
	Overview     string    `json:"overview"`
	PosterPath   *string   `json:"poster_path"`
	BackdropPath *string   `json:"backdrop_path"`
	Genres       []string  `json:"genres"`
	VoteAverage  *float64  `json:"vote_average"`
	VoteCount    *int      `json:"vote_count"`
	ReleaseDate  *string   `json:"release_date"`
	Runtime      *int      `json:"runtime"`
	Status       *string   `json:"status"`
	PosterURL    string    `json:"poster_url,omitempty"`
	BackdropURL  string    `json:"backdrop_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Rating returns the average rating, or 0 when unknown.
func (m Movie) Rating() float64 {
	if m.VoteAverage == nil {
		return 0
	}
	return *m.VoteAverage
}

// Votes returns the vote count, or 0 when unknown.
func (m Movie) Votes() int {
	if m.VoteCount == nil {
		return 0
	}
	return *m.VoteCount
}

// FillImageURLs derives the poster and backdrop URLs from the stored paths.
func (m *Movie) FillImageURLs() {
	if m.PosterPath != nil && *m.PosterPath != "" {
		m.PosterURL = TMDBImageBaseW500 + *m.PosterPath
	}
	if m.BackdropPath != nil && *m.BackdropPath != "" {
		m.BackdropURL = TMDBImageBaseW1280 + *m.BackdropPath
	}
}

// NormalizeGenres trims names, drops empty ones and removes
// case-insensitive duplicates while keeping the first spelling and order.
func NormalizeGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		key := strings.ToLower(g)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out
}

// MovieListParams holds query parameters for catalog listing.
type MovieListParams struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Type     string `query:"type"`
	SortBy   string `query:"sort_by"`
	Order    string `query:"order"`
}

// Validate sets defaults and validates parameters.
func (p *MovieListParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
	validSorts := map[string]bool{"vote_average": true, "release_date": true, "title": true}
	if !validSorts[p.SortBy] {
		p.SortBy = "vote_average"
	}
	if p.Order != "asc" && p.Order != "desc" {
		p.Order = "desc"
	}
	if !MediaType(p.Type).Valid() {
		p.Type = ""
	}
}

// MovieListResponse is the paginated catalog listing response.
type MovieListResponse struct {
	Page         int     `json:"page"`
	PageSize     int     `json:"page_size"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
	Data         []Movie `json:"data"`
}

const (
	TMDBImageBaseW500  = "https://image.tmdb.org/t/p/w500"
	TMDBImageBaseW1280 = "https://image.tmdb.org/t/p/w1280"
)
