// Package recommend ranks unseen catalog titles by genre affinity and
// explains each pick.
package recommend

import (
	"sort"

	"next-watch/internal/config"
	"next-watch/internal/models"
)

// Weights are the ranking constants.
type Weights struct {
	// LikedGenre is added per liked movie sharing a candidate's genre.
	LikedGenre float64
	// DislikedGenre is subtracted per disliked movie sharing a candidate's genre.
	DislikedGenre float64
	// PoolFactor times the limit caps the unseen pool before scoring.
	PoolFactor int
	// PopularMinVotes is the exclusive vote-count floor for guest results.
	PopularMinVotes int
}

// DefaultWeights returns the stock ranking constants.
func DefaultWeights() Weights {
	return Weights{
		LikedGenre:      0.5,
		DislikedGenre:   0.3,
		PoolFactor:      2,
		PopularMinVotes: 100,
	}
}

// WeightsFromConfig builds Weights from the recommendation settings.
func WeightsFromConfig(cfg config.RecommendationConfig) Weights {
	w := Weights{
		LikedGenre:      cfg.LikedGenreWeight,
		DislikedGenre:   cfg.DislikedGenreWeight,
		PoolFactor:      cfg.PoolFactor,
		PopularMinVotes: cfg.PopularMinVotes,
	}
	if w.PoolFactor < 1 {
		w.PoolFactor = 1
	}
	return w
}

// Engine ranks catalog snapshots. It holds no per-request state.
type Engine struct {
	weights Weights
}

// NewEngine creates an Engine with the given weights.
func NewEngine(w Weights) *Engine {
	return &Engine{weights: w}
}

// Weights returns the engine's ranking constants.
func (e *Engine) Weights() Weights {
	return e.weights
}

// PoolSize is the number of unseen candidates considered for a limit.
func (e *Engine) PoolSize(limit int) int {
	return limit * e.weights.PoolFactor
}

// Recommend ranks catalog for user and returns at most limit candidates.
// A nil user gets the popularity fallback. history holds every movie the
// user has rated; those movies never appear in the result.
func (e *Engine) Recommend(
	user *models.User,
	catalog []models.Movie,
	history []models.RatedMovie,
	limit int,
) []models.RecommendationCandidate {
	if limit <= 0 {
		return []models.RecommendationCandidate{}
	}

	if user == nil {
		return e.popular(catalog, limit)
	}

	var liked, disliked []models.Movie
	seen := make(map[int]struct{}, len(history))
	for _, h := range history {
		seen[h.ID] = struct{}{}
		switch h.UserRating {
		case models.RatingLiked:
			liked = append(liked, h.Movie)
		case models.RatingDisliked:
			disliked = append(disliked, h.Movie)
		}
	}

	pool := make([]models.Movie, 0, len(catalog))
	for _, m := range catalog {
		if _, ok := seen[m.ID]; !ok {
			pool = append(pool, m)
		}
	}
	sortByPopularity(pool)
	if size := e.PoolSize(limit); len(pool) > size {
		pool = pool[:size]
	}

	if len(liked) == 0 {
		return baseCandidates(pool, limit)
	}

	likedGenres := countGenres(liked)
	dislikedGenres := countGenres(disliked)

	scored := make([]models.RecommendationCandidate, len(pool))
	for i, m := range pool {
		scored[i] = models.RecommendationCandidate{
			Movie: m,
			Score: e.score(m, likedGenres, dislikedGenres),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func (e *Engine) popular(catalog []models.Movie, limit int) []models.RecommendationCandidate {
	eligible := make([]models.Movie, 0, len(catalog))
	for _, m := range catalog {
		if m.VoteCount != nil && *m.VoteCount > e.weights.PopularMinVotes {
			eligible = append(eligible, m)
		}
	}
	sortByPopularity(eligible)
	return baseCandidates(eligible, limit)
}

func (e *Engine) score(m models.Movie, liked, disliked map[string]int) float64 {
	score := m.Rating()
	for _, g := range m.Genres {
		if n, ok := liked[g]; ok {
			score += float64(n) * e.weights.LikedGenre
		}
		if n, ok := disliked[g]; ok {
			score -= float64(n) * e.weights.DislikedGenre
		}
	}
	return score
}

// countGenres maps each genre to the number of movies carrying it.
func countGenres(movies []models.Movie) map[string]int {
	counts := make(map[string]int)
	for _, m := range movies {
		for _, g := range m.Genres {
			counts[g]++
		}
	}
	return counts
}

// sortByPopularity orders by rating desc, then vote count desc. Unknown
// values sort after known ones; full ties keep input order.
func sortByPopularity(movies []models.Movie) {
	sort.SliceStable(movies, func(i, j int) bool {
		a, b := movies[i], movies[j]
		if c := compareNullable(a.VoteAverage, b.VoteAverage); c != 0 {
			return c > 0
		}
		return compareNullable(toFloat(a.VoteCount), toFloat(b.VoteCount)) > 0
	})
}

// compareNullable returns 1 when a ranks above b, -1 when below, 0 on a tie.
func compareNullable(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return 1
	case *a < *b:
		return -1
	}
	return 0
}

func toFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func baseCandidates(movies []models.Movie, limit int) []models.RecommendationCandidate {
	if len(movies) > limit {
		movies = movies[:limit]
	}
	out := make([]models.RecommendationCandidate, len(movies))
	for i, m := range movies {
		out[i] = models.RecommendationCandidate{Movie: m, Score: m.Rating()}
	}
	return out
}
