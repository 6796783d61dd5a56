package tmdb

import (
	"next-watch/internal/models"
)

// GenreNames maps TMDB genre ids to names.
type GenreNames map[int]string

// Add merges genres into the map.
func (g GenreNames) Add(genres []Genre) {
	for _, genre := range genres {
		g[genre.ID] = genre.Name
	}
}

// Kind maps a TMDB media type to the catalog classification. The second
// result is false for people and anything else that is not a title.
func Kind(mediaType string) (models.MediaType, bool) {
	switch mediaType {
	case "movie":
		return models.MediaTypeMovie, true
	case "tv":
		return models.MediaTypeShow, true
	}
	return "", false
}

// Normalize converts a TMDB title into a catalog movie. genreNames resolves
// genre_ids when the record has no embedded genre objects; it may be nil.
func Normalize(t Title, kind models.MediaType, genreNames GenreNames) models.Movie {
	m := models.Movie{
		TMDBID:       t.ID,
		Type:         kind,
		Title:        firstNonEmpty(t.Title, t.Name),
		Overview:     t.Overview,
		PosterPath:   t.PosterPath,
		BackdropPath: t.BackdropPath,
		VoteAverage:  t.VoteAverage,
		VoteCount:    t.VoteCount,
		Runtime:      t.Runtime,
		Status:       t.Status,
	}

	if date := firstNonEmpty(t.ReleaseDate, t.FirstAirDate); date != "" {
		m.ReleaseDate = &date
	}
	if m.Runtime == nil && len(t.EpisodeRunTime) > 0 {
		runtime := t.EpisodeRunTime[0]
		m.Runtime = &runtime
	}

	var names []string
	if len(t.Genres) > 0 {
		names = make([]string, 0, len(t.Genres))
		for _, g := range t.Genres {
			names = append(names, g.Name)
		}
	} else {
		names = make([]string, 0, len(t.GenreIDs))
		for _, id := range t.GenreIDs {
			if name, ok := genreNames[id]; ok {
				names = append(names, name)
			}
		}
	}
	m.Genres = models.NormalizeGenres(names)

	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
