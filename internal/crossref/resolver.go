// Package crossref resolves IMDb IDs by cascading over the OMDb and TMDB
// providers, and retrieves user review snippets for a movie.
package crossref

import (
	"context"

	"github.com/rs/zerolog"
)

// tmdbSource is the slice of the TMDB client the resolver needs.
type tmdbSource interface {
	IsConfigured() bool
	GetIMDBID(ctx context.Context, id int) (string, error)
	SearchMovieID(ctx context.Context, title, year string) (int, error)
	GetReviews(ctx context.Context, id, maxCount, maxLength int) ([]string, error)
}

// omdbSource is the slice of the OMDb client the resolver needs.
type omdbSource interface {
	IsConfigured() bool
	GetIMDBID(ctx context.Context, title, year string) (string, error)
}

// Resolver cascades IMDb ID lookups across OMDb and TMDB. Every step is
// best-effort: a provider failure just falls through to the next step.
type Resolver struct {
	tmdb   tmdbSource
	omdb   omdbSource
	logger zerolog.Logger
}

// NewResolver creates a resolver over the given providers.
func NewResolver(tmdb tmdbSource, omdb omdbSource, logger zerolog.Logger) *Resolver {
	return &Resolver{
		tmdb:   tmdb,
		omdb:   omdb,
		logger: logger.With().Str("component", "crossref").Logger(),
	}
}

// Lookup resolves an IMDb ID for a movie. When tmdbID is known the TMDB
// detail endpoint is tried first; otherwise (or on miss) the resolver tries
// OMDb by title+year, TMDB search by title+year, OMDb by title only, and
// TMDB search by title only, in that order. ok is false when every step
// came up empty.
func (r *Resolver) Lookup(ctx context.Context, title, year string, tmdbID int) (string, bool) {
	if tmdbID != 0 && r.tmdb.IsConfigured() {
		if id, err := r.tmdb.GetIMDBID(ctx, tmdbID); err == nil && id != "" {
			return id, true
		} else if err != nil {
			r.logger.Debug().Err(err).Int("tmdbId", tmdbID).Msg("TMDB detail lookup missed")
		}
	}

	if title == "" {
		return "", false
	}

	year = validYear(year)

	if year != "" {
		if r.omdb.IsConfigured() {
			if id, err := r.omdb.GetIMDBID(ctx, title, year); err == nil && id != "" {
				return id, true
			}
		}
		if r.tmdb.IsConfigured() {
			if id, ok := r.searchTMDB(ctx, title, year); ok {
				return id, true
			}
		}
	}

	if r.omdb.IsConfigured() {
		if id, err := r.omdb.GetIMDBID(ctx, title, ""); err == nil && id != "" {
			return id, true
		}
	}
	if r.tmdb.IsConfigured() {
		if id, ok := r.searchTMDB(ctx, title, ""); ok {
			return id, true
		}
	}

	r.logger.Info().
		Str("title", title).
		Str("year", year).
		Msg("IMDb ID not found after all lookup attempts")

	return "", false
}

// Reviews fetches user review snippets for a movie by TMDB ID.
func (r *Resolver) Reviews(ctx context.Context, tmdbID, maxCount, maxLength int) ([]string, error) {
	return r.tmdb.GetReviews(ctx, tmdbID, maxCount, maxLength)
}

func (r *Resolver) searchTMDB(ctx context.Context, title, year string) (string, bool) {
	tmdbID, err := r.tmdb.SearchMovieID(ctx, title, year)
	if err != nil {
		r.logger.Debug().Err(err).Str("title", title).Str("year", year).Msg("TMDB search missed")
		return "", false
	}
	id, err := r.tmdb.GetIMDBID(ctx, tmdbID)
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// validYear returns year only when it looks like a four-digit year.
func validYear(year string) string {
	if len(year) != 4 {
		return ""
	}
	for _, c := range year {
		if c < '0' || c > '9' {
			return ""
		}
	}
	return year
}
