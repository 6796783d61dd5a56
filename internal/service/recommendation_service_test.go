package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"next-watch/internal/config"
	"next-watch/internal/models"
	"next-watch/internal/recommend"
	"next-watch/internal/repository"
)

var testRecommendationConfig = config.RecommendationConfig{
	DefaultLimit: 20,
	MaxLimit:     50,
	CacheTTL:     10 * time.Minute,
}

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (g *stubGenerator) Complete(context.Context, string) (string, error) {
	g.calls++
	return g.text, g.err
}

// gatedGenerator blocks every call until release is closed and reports the
// first call on entered.
type gatedGenerator struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedGenerator() *gatedGenerator {
	return &gatedGenerator{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedGenerator) Complete(ctx context.Context, _ string) (string, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return "Because you liked Liked", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recommendationFixture struct {
	svc       *RecommendationService
	movies    *fakeMovieStore
	prefs     *fakePreferenceStore
	watchList *fakeWatchListStore
}

func newRecommendationFixture(rdb *redis.Client, gen recommend.Generator, movies ...models.Movie) *recommendationFixture {
	store := newFakeMovieStore(movies...)
	prefs := newFakePreferenceStore(store)
	watchList := newFakeWatchListStore(store)
	svc := NewRecommendationService(
		store, prefs, watchList,
		recommend.NewEngine(recommend.DefaultWeights()),
		recommend.NewReasoner(gen, time.Second, 1),
		rdb, testRecommendationConfig,
	)
	return &recommendationFixture{svc: svc, movies: store, prefs: prefs, watchList: watchList}
}

func scenarioCatalog() []models.Movie {
	return []models.Movie{
		catalogMovie(1, "A", 9, 500, "Drama"),
		catalogMovie(2, "B", 6, 500, "Comedy"),
		catalogMovie(3, "C", 8, 500, "Drama", "Comedy"),
		catalogMovie(4, "Liked", 7, 500, "Drama"),
		catalogMovie(5, "Disliked", 5, 500, "Comedy"),
	}
}

func candidateIDs(cands []models.RecommendationCandidate) []int {
	ids := make([]int, len(cands))
	for i, c := range cands {
		ids[i] = c.ID
	}
	return ids
}

func TestGetRecommendationsPersonalized(t *testing.T) {
	f := newRecommendationFixture(nil, nil, scenarioCatalog()...)
	user := &models.User{ID: 7, Name: "Dana"}
	ctx := context.Background()

	_, err := f.prefs.Upsert(ctx, 7, 4, models.RatingLiked)
	require.NoError(t, err)
	_, err = f.prefs.Upsert(ctx, 7, 5, models.RatingDisliked)
	require.NoError(t, err)
	require.NoError(t, f.watchList.Add(ctx, 7, 3))

	resp, err := f.svc.GetRecommendations(ctx, user, 10)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 2}, candidateIDs(resp.Recommendations))
	assert.InDelta(t, 9.5, resp.Recommendations[0].Score, 1e-9)
	assert.InDelta(t, 8.2, resp.Recommendations[1].Score, 1e-9)
	assert.InDelta(t, 5.7, resp.Recommendations[2].Score, 1e-9)
	for _, c := range resp.Recommendations {
		assert.NotEmpty(t, c.Reason)
	}
	assert.Equal(t, []int{3}, resp.WatchListIDs)
	assert.Equal(t, []int{4, 5}, resp.PreferenceIDs)
	assert.Equal(t, user, resp.User)
	assert.NotEmpty(t, resp.GeneratedAt)

	require.Len(t, f.movies.listRank, 1)
	assert.Equal(t, repository.RankQuery{ExcludeUserID: 7, Limit: 20}, f.movies.listRank[0])
}

func TestGetRecommendationsGuest(t *testing.T) {
	f := newRecommendationFixture(nil, &stubGenerator{text: "Because you liked X"},
		catalogMovie(1, "Niche", 9.5, 50, "Drama"),
		catalogMovie(2, "Blockbuster", 8, 5000, "Action"),
		catalogMovie(3, "Classic", 8.5, 300),
	)

	resp, err := f.svc.GetRecommendations(context.Background(), nil, 0)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2}, candidateIDs(resp.Recommendations))
	assert.Equal(t, "Highly rated  with 8.5★ rating", resp.Recommendations[0].Reason)
	assert.Equal(t, "Highly rated Action with 8★ rating", resp.Recommendations[1].Reason)
	assert.Empty(t, resp.WatchListIDs)
	assert.Empty(t, resp.PreferenceIDs)
	assert.Nil(t, resp.User)
	assert.Equal(t, repository.RankQuery{MinVotes: 100, Limit: 20}, f.movies.listRank[0])
}

func TestGetRecommendationsColdStartUsesPopularityAndDefaults(t *testing.T) {
	gen := &stubGenerator{text: "Since you enjoyed nothing"}
	f := newRecommendationFixture(nil, gen,
		catalogMovie(1, "A", 9, 500, "Drama"),
		catalogMovie(2, "B", 7.5, 500, "Comedy"),
		catalogMovie(3, "C", 6, 50),
	)
	_, err := f.prefs.Upsert(context.Background(), 7, 1, models.RatingDisliked)
	require.NoError(t, err)

	resp, err := f.svc.GetRecommendations(context.Background(), &models.User{ID: 7}, 5)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, candidateIDs(resp.Recommendations))
	assert.Equal(t, "Popular Comedy with great reviews", resp.Recommendations[0].Reason)
	assert.Equal(t, "Popular choice among viewers", resp.Recommendations[1].Reason)
	assert.Zero(t, gen.calls)
}

func TestGetRecommendationsGeneratorFailureFallsBack(t *testing.T) {
	gen := &stubGenerator{err: errors.New("status 503")}
	f := newRecommendationFixture(nil, gen, scenarioCatalog()...)
	_, err := f.prefs.Upsert(context.Background(), 7, 4, models.RatingLiked)
	require.NoError(t, err)

	resp, err := f.svc.GetRecommendations(context.Background(), &models.User{ID: 7}, 2)
	require.NoError(t, err)

	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, "Highly rated Drama with 9★ rating", resp.Recommendations[0].Reason)
	assert.Equal(t, 2, gen.calls)
}

func TestGetRecommendationsUsesGeneratedReasons(t *testing.T) {
	gen := &stubGenerator{text: "Because you liked Liked, try this one."}
	f := newRecommendationFixture(nil, gen, scenarioCatalog()...)
	_, err := f.prefs.Upsert(context.Background(), 7, 4, models.RatingLiked)
	require.NoError(t, err)

	resp, err := f.svc.GetRecommendations(context.Background(), &models.User{ID: 7}, 3)
	require.NoError(t, err)
	for _, c := range resp.Recommendations {
		assert.Equal(t, "Because you liked Liked, try this one.", c.Reason)
	}
}

func TestGetRecommendationsClampsLimit(t *testing.T) {
	f := newRecommendationFixture(nil, nil)

	assert.Equal(t, 20, f.svc.ClampLimit(0))
	assert.Equal(t, 20, f.svc.ClampLimit(-3))
	assert.Equal(t, 50, f.svc.ClampLimit(500))
	assert.Equal(t, 1, f.svc.ClampLimit(1))

	_, err := f.svc.GetRecommendations(context.Background(), nil, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, f.movies.listRank[0].Limit)
}

func TestGetRecommendationsStorageFailure(t *testing.T) {
	f := newRecommendationFixture(nil, nil, scenarioCatalog()...)
	f.movies.err = errStorage

	_, err := f.svc.GetRecommendations(context.Background(), nil, 5)
	assert.ErrorIs(t, err, errStorage)

	f.movies.err = nil
	f.prefs.err = errStorage
	_, err = f.svc.GetRecommendations(context.Background(), &models.User{ID: 7}, 5)
	assert.ErrorIs(t, err, errStorage)
}

func TestGetRecommendationsCachesRankingButNotHydration(t *testing.T) {
	rdb, mr := newRedis(t)
	f := newRecommendationFixture(rdb, nil, scenarioCatalog()...)
	user := &models.User{ID: 7}
	ctx := context.Background()

	first, err := f.svc.GetRecommendations(ctx, user, 3)
	require.NoError(t, err)
	assert.True(t, mr.Exists("recommendations:7:3"))
	ttl := mr.TTL("recommendations:7:3")
	assert.Equal(t, 10*time.Minute, ttl)

	require.NoError(t, f.watchList.Add(ctx, 7, 1))
	second, err := f.svc.GetRecommendations(ctx, user, 3)
	require.NoError(t, err)

	assert.Len(t, f.movies.listRank, 1, "second call should be served from cache")
	assert.Equal(t, candidateIDs(first.Recommendations), candidateIDs(second.Recommendations))
	assert.Equal(t, []int{1}, second.WatchListIDs)
}

func TestRecordPreferenceInvalidatesOnlyThatUsersCache(t *testing.T) {
	rdb, mr := newRedis(t)
	f := newRecommendationFixture(rdb, nil, scenarioCatalog()...)
	prefs := NewPreferenceService(f.prefs, f.movies, rdb)
	ctx := context.Background()

	_, err := f.svc.GetRecommendations(ctx, &models.User{ID: 7}, 3)
	require.NoError(t, err)
	_, err = f.svc.GetRecommendations(ctx, &models.User{ID: 7}, 5)
	require.NoError(t, err)
	_, err = f.svc.GetRecommendations(ctx, &models.User{ID: 8}, 3)
	require.NoError(t, err)
	_, err = f.svc.GetRecommendations(ctx, nil, 3)
	require.NoError(t, err)

	_, err = prefs.RecordPreference(ctx, &models.User{ID: 7}, 1, models.RatingLiked)
	require.NoError(t, err)

	assert.Empty(t, keysWithPrefix(mr, "recommendations:7:"))
	assert.Len(t, keysWithPrefix(mr, "recommendations:8:"), 1)
	assert.Len(t, keysWithPrefix(mr, "recommendations:guest:"), 1)

	resp, err := f.svc.GetRecommendations(ctx, &models.User{ID: 7}, 3)
	require.NoError(t, err)
	assert.NotContains(t, candidateIDs(resp.Recommendations), 1)
}

func TestPreferenceRecordedDuringRankingIsNotServed(t *testing.T) {
	rdb, mr := newRedis(t)
	gen := newGatedGenerator()
	f := newRecommendationFixture(rdb, gen, scenarioCatalog()...)
	prefs := NewPreferenceService(f.prefs, f.movies, rdb)
	user := &models.User{ID: 7}
	ctx := context.Background()

	_, err := f.prefs.Upsert(ctx, 7, 4, models.RatingLiked)
	require.NoError(t, err)

	type result struct {
		resp *models.RecommendationResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := f.svc.GetRecommendations(ctx, user, 10)
		done <- result{resp, err}
	}()

	select {
	case <-gen.entered:
	case <-time.After(time.Second):
		t.Fatal("reason generation never started")
	}
	_, err = prefs.RecordPreference(ctx, user, 1, models.RatingDisliked)
	require.NoError(t, err)
	close(gen.release)

	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, []int{3, 2}, candidateIDs(first.resp.Recommendations))
	assert.Equal(t, []int{1, 4}, first.resp.PreferenceIDs)
	assert.False(t, mr.Exists("recommendations:7:10"))

	second, err := f.svc.GetRecommendations(ctx, user, 10)
	require.NoError(t, err)
	assert.NotContains(t, candidateIDs(second.Recommendations), 1)
	assert.Equal(t, []int{1, 4}, second.PreferenceIDs)
}

func TestWithoutIDs(t *testing.T) {
	cands := []models.RecommendationCandidate{
		{Movie: models.Movie{ID: 1}}, {Movie: models.Movie{ID: 2}}, {Movie: models.Movie{ID: 3}},
	}

	kept, dropped := withoutIDs(cands, []int{2, 9})
	assert.True(t, dropped)
	assert.Equal(t, []int{1, 3}, candidateIDs(kept))
	assert.Equal(t, []int{1, 2, 3}, candidateIDs(cands))

	kept, dropped = withoutIDs(cands, nil)
	assert.False(t, dropped)
	assert.Len(t, kept, 3)
}
