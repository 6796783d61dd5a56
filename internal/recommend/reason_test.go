package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"next-watch/internal/models"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	text    string
	err     error
	delay   time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func rating(v float64) *float64 { return &v }

func TestDefaultReason(t *testing.T) {
	tests := []struct {
		name  string
		movie models.Movie
		want  string
	}{
		{
			name:  "highly rated uses first two genres",
			movie: models.Movie{VoteAverage: rating(8.0), Genres: []string{"Drama", "Crime", "Thriller"}},
			want:  "Highly rated Drama & Crime with 8★ rating",
		},
		{
			name:  "highly rated keeps decimals",
			movie: models.Movie{VoteAverage: rating(8.7), Genres: []string{"Drama"}},
			want:  "Highly rated Drama with 8.7★ rating",
		},
		{
			name:  "popular band",
			movie: models.Movie{VoteAverage: rating(7.0), Genres: []string{"Action", "Adventure"}},
			want:  "Popular Action & Adventure with great reviews",
		},
		{
			name:  "just below popular band",
			movie: models.Movie{VoteAverage: rating(6.9), Genres: []string{"Comedy"}},
			want:  "Trending Comedy you might enjoy",
		},
		{
			name:  "unrated with genres",
			movie: models.Movie{Genres: []string{"Horror"}},
			want:  "Trending Horror you might enjoy",
		},
		{
			name:  "no genres",
			movie: models.Movie{VoteAverage: rating(5.0)},
			want:  "Popular choice among viewers",
		},
		{
			name:  "highly rated without genres keeps the template",
			movie: models.Movie{VoteAverage: rating(9)},
			want:  "Highly rated  with 9★ rating",
		},
		{
			name:  "popular without genres keeps the template",
			movie: models.Movie{VoteAverage: rating(7.5), Genres: []string{}},
			want:  "Popular  with great reviews",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultReason(tt.movie))
		})
	}
}

func TestReasonForSkipsGeneratorWithoutContext(t *testing.T) {
	gen := &fakeGenerator{text: "Because you liked Heat"}
	r := NewReasoner(gen, time.Second, 2)
	m := models.Movie{ID: 1, Title: "Ronin", VoteAverage: rating(7.2), Genres: []string{"Action"}}
	liked := []models.Movie{{Title: "Heat"}}

	assert.Equal(t, DefaultReason(m), r.ReasonFor(context.Background(), m, nil, liked))
	assert.Equal(t, DefaultReason(m), r.ReasonFor(context.Background(), m, &models.User{ID: 1}, nil))
	assert.Empty(t, gen.prompts)

	disabled := NewReasoner(nil, time.Second, 2)
	assert.Equal(t, DefaultReason(m), disabled.ReasonFor(context.Background(), m, &models.User{ID: 1}, liked))
}

func TestReasonForUsesGeneratedText(t *testing.T) {
	gen := &fakeGenerator{text: "  Since you enjoyed Heat, Ronin delivers more tense heists.  "}
	r := NewReasoner(gen, time.Second, 2)
	m := models.Movie{ID: 1, Title: "Ronin", Genres: []string{"Action", "Thriller"}}
	liked := []models.Movie{{Title: "Heat"}, {Title: "Collateral"}, {Title: "Thief"}, {Title: "Drive"}}

	got := r.ReasonFor(context.Background(), m, &models.User{ID: 1}, liked)

	assert.Equal(t, "Since you enjoyed Heat, Ronin delivers more tense heists.", got)
	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Based on the user liking Heat, Collateral, Thief,")
	assert.NotContains(t, prompt, "Drive")
	assert.Contains(t, prompt, "'Ronin' (Action, Thriller)")
	assert.True(t, strings.HasSuffix(prompt, "Start with 'Because you liked...' or 'Since you enjoyed...'"))
}

func TestReasonForFallsBack(t *testing.T) {
	m := models.Movie{ID: 3, Title: "Se7en", VoteAverage: rating(8.3), Genres: []string{"Crime", "Mystery"}}
	liked := []models.Movie{{Title: "Zodiac"}}
	user := &models.User{ID: 1}

	tests := []struct {
		name    string
		gen     *fakeGenerator
		timeout time.Duration
	}{
		{"provider error", &fakeGenerator{err: errors.New("status 500")}, time.Second},
		{"blank text", &fakeGenerator{text: " \n "}, time.Second},
		{"timeout", &fakeGenerator{text: "late", delay: time.Second}, 20 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReasoner(tt.gen, tt.timeout, 1)
			assert.Equal(t, "Highly rated Crime & Mystery with 8.3★ rating", r.ReasonFor(context.Background(), m, user, liked))
		})
	}
}

func TestAnnotateKeepsOrderAndBoundsConcurrency(t *testing.T) {
	gen := &fakeGenerator{text: "Because you liked Heat", delay: 10 * time.Millisecond}
	r := NewReasoner(gen, time.Second, 2)

	candidates := make([]models.RecommendationCandidate, 6)
	for i := range candidates {
		candidates[i] = models.RecommendationCandidate{
			Movie: models.Movie{ID: i + 1, Title: "t"},
			Score: float64(10 - i),
		}
	}

	r.Annotate(context.Background(), &models.User{ID: 1}, []models.Movie{{Title: "Heat"}}, candidates)

	for i, c := range candidates {
		assert.Equal(t, i+1, c.ID)
		assert.Equal(t, "Because you liked Heat", c.Reason)
	}
	assert.Len(t, gen.prompts, 6)
	assert.LessOrEqual(t, gen.peak.Load(), int32(2))
}

func TestAnnotateGuestGetsDefaultReasons(t *testing.T) {
	r := NewReasoner(&fakeGenerator{text: "unused"}, time.Second, 4)
	candidates := []models.RecommendationCandidate{
		{Movie: models.Movie{ID: 1, VoteAverage: rating(8.5), Genres: []string{"Drama"}}},
		{Movie: models.Movie{ID: 2}},
	}

	r.Annotate(context.Background(), nil, nil, candidates)

	assert.Equal(t, "Highly rated Drama with 8.5★ rating", candidates[0].Reason)
	assert.Equal(t, "Popular choice among viewers", candidates[1].Reason)
}
