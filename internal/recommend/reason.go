package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"next-watch/internal/metrics"
	"next-watch/internal/models"
)

const (
	maxPromptTitles = 3
	maxReasonGenres = 2
)

// Generator produces text from a single prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Reasoner explains recommendations. Generated text is best effort; every
// failure falls back to DefaultReason.
type Reasoner struct {
	gen           Generator
	timeout       time.Duration
	maxConcurrent int
}

// NewReasoner creates a Reasoner. A nil gen disables generated reasons.
func NewReasoner(gen Generator, timeout time.Duration, maxConcurrent int) *Reasoner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Reasoner{gen: gen, timeout: timeout, maxConcurrent: maxConcurrent}
}

// ReasonFor returns a non-empty reason for recommending movie to user.
// liked is the user's liked history, most recent first.
func (r *Reasoner) ReasonFor(ctx context.Context, movie models.Movie, user *models.User, liked []models.Movie) string {
	if user == nil || r.gen == nil || len(liked) == 0 {
		metrics.ReasonsGenerated.WithLabelValues("default").Inc()
		return DefaultReason(movie)
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.gen.Complete(callCtx, buildPrompt(movie, liked))
	if err != nil {
		slog.Warn("reason generation failed, using default",
			"movie_id", movie.ID, "user_id", user.ID, "error", err)
		metrics.ReasonsGenerated.WithLabelValues("fallback").Inc()
		return DefaultReason(movie)
	}
	if text = strings.TrimSpace(text); text == "" {
		metrics.ReasonsGenerated.WithLabelValues("fallback").Inc()
		return DefaultReason(movie)
	}

	metrics.ReasonsGenerated.WithLabelValues("generated").Inc()
	return text
}

// Annotate fills in the Reason of every candidate. Ranking order is not
// touched and a failed call only affects its own candidate.
func (r *Reasoner) Annotate(ctx context.Context, user *models.User, liked []models.Movie, candidates []models.RecommendationCandidate) {
	var eg errgroup.Group
	eg.SetLimit(r.maxConcurrent)

	for i := range candidates {
		eg.Go(func() error {
			candidates[i].Reason = r.ReasonFor(ctx, candidates[i].Movie, user, liked)
			return nil
		})
	}
	_ = eg.Wait()
}

func buildPrompt(movie models.Movie, liked []models.Movie) string {
	titles := make([]string, 0, maxPromptTitles)
	for _, m := range liked {
		if len(titles) == maxPromptTitles {
			break
		}
		titles = append(titles, m.Title)
	}

	return fmt.Sprintf(
		"Based on the user liking %s, generate a short (10-15 words) recommendation reason for '%s' (%s). "+
			"Start with 'Because you liked...' or 'Since you enjoyed...'",
		strings.Join(titles, ", "), movie.Title, strings.Join(movie.Genres, ", "),
	)
}

// DefaultReason is the locally computed reason for movie.
func DefaultReason(movie models.Movie) string {
	genres := movie.Genres
	if len(genres) > maxReasonGenres {
		genres = genres[:maxReasonGenres]
	}
	label := strings.Join(genres, " & ")

	if movie.VoteAverage != nil {
		rating := *movie.VoteAverage
		switch {
		case rating >= 8:
			return fmt.Sprintf("Highly rated %s with %s★ rating", label, strconv.FormatFloat(rating, 'f', -1, 64))
		case rating >= 7:
			return fmt.Sprintf("Popular %s with great reviews", label)
		}
	}

	if label != "" {
		return fmt.Sprintf("Trending %s you might enjoy", label)
	}
	return "Popular choice among viewers"
}
