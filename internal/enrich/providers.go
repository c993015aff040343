package enrich

import (
	"context"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/llm"
	"github.com/cinegraph/cinegraph/internal/metadata/tmdb"
)

// Generator is the slice of the LLM client the stage runner needs.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// MetadataProvider is the slice of the TMDB client the session needs.
type MetadataProvider interface {
	TopRated(ctx context.Context, page int) (*tmdb.TopRatedPage, error)
	GetCast(ctx context.Context, id, limit int) ([]catalog.RawCharacter, error)
}

// CrossRef resolves IMDb IDs and fetches review snippets.
type CrossRef interface {
	Lookup(ctx context.Context, title, year string, tmdbID int) (string, bool)
	Reviews(ctx context.Context, tmdbID, maxCount, maxLength int) ([]string, error)
}

// ImageAcquirer downloads images for a record's characters and
// relationships. Individual download failures are the acquirer's to log and
// swallow; a returned error means the whole subsystem gave up.
type ImageAcquirer interface {
	AcquireForMovie(ctx context.Context, rec *catalog.MovieRecord) error
}
