package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"next-watch/internal/models"
	"next-watch/internal/repository"
	"next-watch/internal/tmdb"
)

var errStorage = errors.New("storage unavailable")

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

func ptr[T any](v T) *T { return &v }

func catalogMovie(id int, title string, rating float64, votes int, genres ...string) models.Movie {
	return models.Movie{
		ID:          id,
		TMDBID:      id * 10,
		Type:        models.MediaTypeMovie,
		Title:       title,
		Genres:      genres,
		VoteAverage: ptr(rating),
		VoteCount:   ptr(votes),
	}
}

// fakeMovieStore is an in-memory catalog. ListRanked applies the same
// filters as the SQL query.
type fakeMovieStore struct {
	mu       sync.Mutex
	movies   map[int]models.Movie
	prefs    *fakePreferenceStore
	nextID   int
	err      error
	upserts  int
	listRank []repository.RankQuery
	lists    int
	gets     int
}

func newFakeMovieStore(movies ...models.Movie) *fakeMovieStore {
	s := &fakeMovieStore{movies: make(map[int]models.Movie), nextID: 1000}
	for _, m := range movies {
		s.movies[m.ID] = m
	}
	return s
}

func (s *fakeMovieStore) Upsert(_ context.Context, m *models.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.upserts++
	m.Genres = models.NormalizeGenres(m.Genres)
	for id, existing := range s.movies {
		if existing.TMDBID == m.TMDBID {
			m.ID = id
			s.movies[id] = *m
			return nil
		}
	}
	s.nextID++
	m.ID = s.nextID
	s.movies[m.ID] = *m
	return nil
}

func (s *fakeMovieStore) GetByID(_ context.Context, id int) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.movies[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (s *fakeMovieStore) Exists(_ context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.movies[id]
	return ok, nil
}

func (s *fakeMovieStore) List(_ context.Context, params models.MovieListParams) (*models.MovieListResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.err != nil {
		return nil, s.err
	}
	data := s.sorted()
	return &models.MovieListResponse{
		Page:         params.Page,
		PageSize:     params.PageSize,
		TotalResults: len(data),
		TotalPages:   1,
		Data:         data,
	}, nil
}

func (s *fakeMovieStore) ListRanked(_ context.Context, q repository.RankQuery) ([]models.Movie, error) {
	var seen map[int]bool
	if q.ExcludeUserID > 0 && s.prefs != nil {
		seen = s.prefs.seen(q.ExcludeUserID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listRank = append(s.listRank, q)
	if s.err != nil {
		return nil, s.err
	}

	out := make([]models.Movie, 0)
	for _, m := range s.sorted() {
		if q.MinVotes > 0 && m.Votes() <= q.MinVotes {
			continue
		}
		if seen[m.ID] {
			continue
		}
		out = append(out, m)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *fakeMovieStore) sorted() []models.Movie {
	out := make([]models.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating() != out[j].Rating() {
			return out[i].Rating() > out[j].Rating()
		}
		if out[i].Votes() != out[j].Votes() {
			return out[i].Votes() > out[j].Votes()
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type fakePreferenceStore struct {
	mu      sync.Mutex
	movies  *fakeMovieStore
	ratings map[int][]models.Preference
	err     error
	writes  int
}

func newFakePreferenceStore(movies *fakeMovieStore) *fakePreferenceStore {
	p := &fakePreferenceStore{movies: movies, ratings: make(map[int][]models.Preference)}
	movies.prefs = p
	return p
}

func (p *fakePreferenceStore) Upsert(_ context.Context, userID, movieID int, rating models.Rating) (*models.Preference, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.writes++
	list := p.ratings[userID]
	for i := range list {
		if list[i].MovieID == movieID {
			list[i].Rating = rating
			pref := list[i]
			// most recent first
			p.ratings[userID] = append([]models.Preference{pref}, append(list[:i:i], list[i+1:]...)...)
			return &pref, nil
		}
	}
	pref := models.Preference{ID: p.writes, UserID: userID, MovieID: movieID, Rating: rating, Watched: true}
	p.ratings[userID] = append([]models.Preference{pref}, list...)
	return &pref, nil
}

func (p *fakePreferenceStore) ListRated(_ context.Context, userID int) ([]models.RatedMovie, error) {
	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return nil, p.err
	}
	prefs := append([]models.Preference{}, p.ratings[userID]...)
	p.mu.Unlock()

	p.movies.mu.Lock()
	defer p.movies.mu.Unlock()
	out := make([]models.RatedMovie, 0, len(prefs))
	for _, pref := range prefs {
		out = append(out, models.RatedMovie{Movie: p.movies.movies[pref.MovieID], UserRating: pref.Rating})
	}
	return out, nil
}

func (p *fakePreferenceStore) MovieIDs(_ context.Context, userID int) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	ids := make([]int, 0)
	for _, pref := range p.ratings[userID] {
		ids = append(ids, pref.MovieID)
	}
	sort.Ints(ids)
	return ids, nil
}

func (p *fakePreferenceStore) seen(userID int) map[int]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[int]bool)
	for _, pref := range p.ratings[userID] {
		seen[pref.MovieID] = true
	}
	return seen
}

type fakeWatchListStore struct {
	mu      sync.Mutex
	movies  *fakeMovieStore
	entries map[int][]int
	err     error
	calls   int
}

func newFakeWatchListStore(movies *fakeMovieStore) *fakeWatchListStore {
	return &fakeWatchListStore{movies: movies, entries: make(map[int][]int)}
}

func (w *fakeWatchListStore) Add(_ context.Context, userID, movieID int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	for _, id := range w.entries[userID] {
		if id == movieID {
			return nil
		}
	}
	w.entries[userID] = append([]int{movieID}, w.entries[userID]...)
	return nil
}

func (w *fakeWatchListStore) Remove(_ context.Context, userID, movieID int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	ids := w.entries[userID][:0]
	for _, id := range w.entries[userID] {
		if id != movieID {
			ids = append(ids, id)
		}
	}
	w.entries[userID] = ids
	return nil
}

func (w *fakeWatchListStore) List(_ context.Context, userID int) ([]models.Movie, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return nil, w.err
	}
	out := make([]models.Movie, 0)
	for _, id := range w.entries[userID] {
		out = append(out, w.movies.movies[id])
	}
	return out, nil
}

func (w *fakeWatchListStore) MovieIDs(_ context.Context, userID int) ([]int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return nil, w.err
	}
	ids := append([]int{}, w.entries[userID]...)
	sort.Ints(ids)
	return ids, nil
}

type fakeProvider struct {
	mu       sync.Mutex
	popular  map[string][]tmdb.PageResponse
	search   *tmdb.PageResponse
	details  map[int]tmdb.Title
	shows    map[int]tmdb.Title
	genres   map[string][]tmdb.Genre
	err      error
	pageErrs map[int]bool
	calls    []string
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeProvider) page(kind string, page int) (*tmdb.PageResponse, error) {
	f.record(kind)
	if f.err != nil {
		return nil, f.err
	}
	if f.pageErrs[page] {
		return nil, errors.New("TMDB API returned status 500")
	}
	pages := f.popular[kind]
	if page > len(pages) {
		return &tmdb.PageResponse{Page: page, TotalPages: len(pages)}, nil
	}
	p := pages[page-1]
	return &p, nil
}

func (f *fakeProvider) PopularMovies(_ context.Context, page int) (*tmdb.PageResponse, error) {
	return f.page("movie", page)
}

func (f *fakeProvider) PopularShows(_ context.Context, page int) (*tmdb.PageResponse, error) {
	return f.page("tv", page)
}

func (f *fakeProvider) Search(_ context.Context, _ string, _ int) (*tmdb.PageResponse, error) {
	f.record("search")
	if f.err != nil {
		return nil, f.err
	}
	return f.search, nil
}

func (f *fakeProvider) MovieDetails(_ context.Context, id int) (*tmdb.Title, error) {
	return f.detail("movie_details", f.details, id)
}

func (f *fakeProvider) ShowDetails(_ context.Context, id int) (*tmdb.Title, error) {
	return f.detail("show_details", f.shows, id)
}

func (f *fakeProvider) detail(call string, titles map[int]tmdb.Title, id int) (*tmdb.Title, error) {
	f.record(call)
	if f.err != nil {
		return nil, f.err
	}
	t, ok := titles[id]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return &t, nil
}

func (f *fakeProvider) Genres(_ context.Context, kind string) ([]tmdb.Genre, error) {
	f.record("genres_" + kind)
	if f.err != nil {
		return nil, f.err
	}
	return f.genres[kind], nil
}

func keysWithPrefix(mr *miniredis.Miniredis, prefix string) []string {
	out := make([]string, 0)
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}
