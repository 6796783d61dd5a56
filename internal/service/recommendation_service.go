package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"next-watch/internal/config"
	"next-watch/internal/metrics"
	"next-watch/internal/models"
	"next-watch/internal/recommend"
	"next-watch/internal/repository"
)

// Ranking modes reported in metrics and cached entries.
const (
	modeGuest        = "guest"
	modeColdStart    = "cold_start"
	modePersonalized = "personalized"
)

// RecommendationService assembles the ranked, annotated feed.
type RecommendationService struct {
	movies    MovieStore
	prefs     PreferenceStore
	watchList WatchListStore
	engine    *recommend.Engine
	reasoner  *recommend.Reasoner
	cache     cache
	cfg       config.RecommendationConfig
}

// NewRecommendationService creates a new RecommendationService.
func NewRecommendationService(
	movies MovieStore,
	prefs PreferenceStore,
	watchList WatchListStore,
	engine *recommend.Engine,
	reasoner *recommend.Reasoner,
	rdb *redis.Client,
	cfg config.RecommendationConfig,
) *RecommendationService {
	return &RecommendationService{
		movies:    movies,
		prefs:     prefs,
		watchList: watchList,
		engine:    engine,
		reasoner:  reasoner,
		cache:     newCache("recommendations", rdb),
		cfg:       cfg,
	}
}

type cachedRecommendations struct {
	Mode            string                           `json:"mode"`
	Recommendations []models.RecommendationCandidate `json:"recommendations"`
}

// ClampLimit maps a requested limit into [1, MaxLimit]; values below 1
// select the default.
func (s *RecommendationService) ClampLimit(limit int) int {
	switch {
	case limit < 1:
		return s.cfg.DefaultLimit
	case limit > s.cfg.MaxLimit:
		return s.cfg.MaxLimit
	}
	return limit
}

// GetRecommendations ranks unseen titles for user, or popular titles for
// a nil user, and attaches the caller's watch-list and preference ids.
func (s *RecommendationService) GetRecommendations(ctx context.Context, user *models.User, limit int) (*models.RecommendationResponse, error) {
	limit = s.ClampLimit(limit)
	cacheKey := recommendationCacheKey(user, limit)

	var entry cachedRecommendations
	cacheState := "hit"
	if !s.cache.get(ctx, cacheKey, &entry) {
		cacheState = "miss"
		var err error
		if entry, err = s.rank(ctx, user, limit); err != nil {
			return nil, err
		}
		s.cache.set(ctx, cacheKey, entry, s.cfg.CacheTTL)
	}
	metrics.RecommendationsServed.WithLabelValues(entry.Mode, cacheState).Inc()

	resp := &models.RecommendationResponse{
		Recommendations: entry.Recommendations,
		WatchListIDs:    []int{},
		PreferenceIDs:   []int{},
		User:            user,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if user == nil {
		return resp, nil
	}

	var err error
	if resp.WatchListIDs, err = s.watchList.MovieIDs(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to load watch list ids: %w", err)
	}
	if resp.PreferenceIDs, err = s.prefs.MovieIDs(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to load preference ids: %w", err)
	}

	// A ranking cached while a preference was being written can still hold
	// the newly rated movie.
	var dropped bool
	if resp.Recommendations, dropped = withoutIDs(resp.Recommendations, resp.PreferenceIDs); dropped {
		slog.Debug("dropping stale cached recommendations", "user_id", user.ID, "key", cacheKey)
		s.cache.invalidate(ctx, cacheKey)
	}
	return resp, nil
}

// withoutIDs returns candidates minus any whose id is in ids, and whether
// anything was removed. The input slice is not modified.
func withoutIDs(candidates []models.RecommendationCandidate, ids []int) ([]models.RecommendationCandidate, bool) {
	if len(ids) == 0 {
		return candidates, false
	}
	exclude := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		exclude[id] = struct{}{}
	}

	kept := make([]models.RecommendationCandidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := exclude[c.ID]; !ok {
			kept = append(kept, c)
		}
	}
	return kept, len(kept) != len(candidates)
}

func (s *RecommendationService) rank(ctx context.Context, user *models.User, limit int) (cachedRecommendations, error) {
	weights := s.engine.Weights()

	var (
		history []models.RatedMovie
		query   repository.RankQuery
		mode    = modeGuest
	)
	if user == nil {
		query = repository.RankQuery{MinVotes: weights.PopularMinVotes, Limit: limit}
	} else {
		var err error
		if history, err = s.prefs.ListRated(ctx, user.ID); err != nil {
			return cachedRecommendations{}, fmt.Errorf("failed to load preference history: %w", err)
		}
		query = repository.RankQuery{ExcludeUserID: user.ID, Limit: s.engine.PoolSize(limit)}
		mode = modeColdStart
	}

	catalog, err := s.movies.ListRanked(ctx, query)
	if err != nil {
		return cachedRecommendations{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	candidates := s.engine.Recommend(user, catalog, history, limit)

	liked := likedMovies(history)
	if user != nil && len(liked) > 0 {
		mode = modePersonalized
	}
	s.reasoner.Annotate(ctx, user, liked, candidates)

	slog.Debug("recommendations ranked", "mode", mode, "limit", limit,
		"catalog", len(catalog), "results", len(candidates))
	return cachedRecommendations{Mode: mode, Recommendations: candidates}, nil
}

// likedMovies keeps the liked entries of history in their order.
func likedMovies(history []models.RatedMovie) []models.Movie {
	liked := make([]models.Movie, 0, len(history))
	for _, h := range history {
		if h.UserRating == models.RatingLiked {
			liked = append(liked, h.Movie)
		}
	}
	return liked
}

func recommendationCacheKey(user *models.User, limit int) string {
	return fmt.Sprintf("recommendations:%s:%d", cacheSubject(user), limit)
}

func recommendationCachePattern(user *models.User) string {
	return fmt.Sprintf("recommendations:%s:*", cacheSubject(user))
}

func cacheSubject(user *models.User) string {
	if user == nil {
		return "guest"
	}
	return strconv.Itoa(user.ID)
}
