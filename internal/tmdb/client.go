package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"next-watch/internal/config"
	"next-watch/internal/metrics"
)

const providerName = "tmdb"

// Client is the TMDB API client.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a new TMDB API client.
func NewClient(cfg config.TMDBConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(providerName).Set(0)
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		cb: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        providerName,
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNotFound)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Info("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
				metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to))
			},
		}),
	}
}

// ErrNotFound is returned when TMDB has no title with the requested id.
var ErrNotFound = errors.New("tmdb: not found")

// ---- TMDB Response Types ----

// PageResponse is a paginated TMDB result list.
type PageResponse struct {
	Page         int     `json:"page"`
	Results      []Title `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Title is a movie or TV record as TMDB returns it. Movies carry title and
// release_date, shows carry name and first_air_date. List endpoints only
// fill GenreIDs; detail endpoints fill Genres.
type Title struct {
	ID             int      `json:"id"`
	MediaType      string   `json:"media_type"`
	Title          string   `json:"title"`
	Name           string   `json:"name"`
	Overview       string   `json:"overview"`
	ReleaseDate    string   `json:"release_date"`
	FirstAirDate   string   `json:"first_air_date"`
	PosterPath     *string  `json:"poster_path"`
	BackdropPath   *string  `json:"backdrop_path"`
	GenreIDs       []int    `json:"genre_ids"`
	Genres         []Genre  `json:"genres"`
	VoteAverage    *float64 `json:"vote_average"`
	VoteCount      *int     `json:"vote_count"`
	Runtime        *int     `json:"runtime"`
	EpisodeRunTime []int    `json:"episode_run_time"`
	Status         *string  `json:"status"`
}

// Genre is a genre from TMDB.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreListResponse is the TMDB genre/{kind}/list response.
type GenreListResponse struct {
	Genres []Genre `json:"genres"`
}

// ---- Client Methods ----

// PopularMovies fetches a page of /movie/popular.
func (c *Client) PopularMovies(ctx context.Context, page int) (*PageResponse, error) {
	slog.Debug("fetching TMDB popular movies", "page", page)
	return c.getPage(ctx, "/movie/popular", url.Values{"page": {strconv.Itoa(page)}})
}

// PopularShows fetches a page of /tv/popular.
func (c *Client) PopularShows(ctx context.Context, page int) (*PageResponse, error) {
	slog.Debug("fetching TMDB popular shows", "page", page)
	return c.getPage(ctx, "/tv/popular", url.Values{"page": {strconv.Itoa(page)}})
}

// Search runs a multi search across movies, shows and people.
func (c *Client) Search(ctx context.Context, query string, page int) (*PageResponse, error) {
	slog.Debug("searching TMDB", "query", query, "page", page)
	return c.getPage(ctx, "/search/multi", url.Values{
		"query": {query},
		"page":  {strconv.Itoa(page)},
	})
}

// MovieDetails fetches detailed movie info.
func (c *Client) MovieDetails(ctx context.Context, tmdbID int) (*Title, error) {
	slog.Debug("fetching TMDB movie detail", "tmdb_id", tmdbID)
	return c.getTitle(ctx, fmt.Sprintf("/movie/%d", tmdbID))
}

// ShowDetails fetches detailed TV show info.
func (c *Client) ShowDetails(ctx context.Context, tmdbID int) (*Title, error) {
	slog.Debug("fetching TMDB show detail", "tmdb_id", tmdbID)
	return c.getTitle(ctx, fmt.Sprintf("/tv/%d", tmdbID))
}

// Genres fetches the genre list for kind ("movie" or "tv").
func (c *Client) Genres(ctx context.Context, kind string) ([]Genre, error) {
	slog.Debug("fetching TMDB genres", "kind", kind)
	var result GenreListResponse
	if err := c.get(ctx, "/genre/"+kind+"/list", nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch %s genres: %w", kind, err)
	}
	return result.Genres, nil
}

func (c *Client) getPage(ctx context.Context, path string, params url.Values) (*PageResponse, error) {
	var result PageResponse
	if err := c.get(ctx, path, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) getTitle(ctx context.Context, path string) (*Title, error) {
	var result Title
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.doGet(ctx, c.baseURL+path+"?"+params.Encode())
	})
	metrics.ProviderLatency.WithLabelValues(providerName).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ProviderRequests.WithLabelValues(providerName, "rejected").Inc()
		return err
	case err != nil:
		metrics.ProviderRequests.WithLabelValues(providerName, "failure").Inc()
		return err
	}
	metrics.ProviderRequests.WithLabelValues(providerName, "success").Inc()

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("TMDB API returned status %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
