package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
)

// searchClient is the slice of the image searcher the fetcher needs.
type searchClient interface {
	SearchImages(ctx context.Context, query string, max int) ([]string, error)
}

// profileSource resolves actor portraits via the metadata provider.
type profileSource interface {
	GetPersonProfilePath(ctx context.Context, personID int) (string, error)
	ImageURL(path string) string
}

// Fetcher downloads character portraits, character stills and relationship
// stills for a movie record. Every failure is per-image: it is logged and
// the fetcher moves on. Files already on disk are never fetched again.
type Fetcher struct {
	cfg        config.ImagesConfig
	search     searchClient
	profiles   profileSource
	httpClient *http.Client
	logger     zerolog.Logger
	sleep      func(time.Duration)
}

// NewFetcher creates an image fetcher.
func NewFetcher(cfg config.ImagesConfig, search searchClient, profiles profileSource, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		cfg:        cfg,
		search:     search,
		profiles:   profiles,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "images").Logger(),
		sleep:      time.Sleep,
	}
}

// AcquireForMovie fetches images for every character and for the leading
// relationships of the record. The three configured delays pace the
// traffic: one between individual downloads, one after each character's
// batch, one after each relationship's batch.
func (f *Fetcher) AcquireForMovie(ctx context.Context, rec *catalog.MovieRecord) error {
	if len(rec.Characters) == 0 {
		return nil
	}

	dir := filepath.Join(f.cfg.SavePath, slugify(rec.Title+" "+rec.Year))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	log := f.logger.With().Str("movie", rec.Title).Logger()

	charDelay := secondsToDuration(f.cfg.CharacterGroupDelay)
	for i := range rec.Characters {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.acquireCharacter(ctx, dir, rec, &rec.Characters[i], log)
		f.sleep(charDelay)
	}

	relDelay := secondsToDuration(f.cfg.RelationshipGroupDelay)
	rels := rec.Relationships
	if f.cfg.MaxRelationships > 0 && len(rels) > f.cfg.MaxRelationships {
		rels = rels[:f.cfg.MaxRelationships]
	}
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.acquireRelationship(ctx, dir, rec.Title, rel, log)
		f.sleep(relDelay)
	}

	return nil
}

// acquireCharacter fetches the actor portrait from the metadata provider
// and up to the configured number of character stills from image search.
func (f *Fetcher) acquireCharacter(ctx context.Context, dir string, rec *catalog.MovieRecord, c *catalog.Character, log zerolog.Logger) {
	if c.TMDBPersonID != 0 {
		name := slugify(c.ActorName) + ".jpg"
		target := filepath.Join(dir, name)
		switch {
		case fileExists(target):
			c.ImageFile = name
		default:
			profile, err := f.profiles.GetPersonProfilePath(ctx, c.TMDBPersonID)
			if err != nil {
				log.Debug().Err(err).Str("actor", c.ActorName).Msg("no actor portrait")
			} else if profile != "" {
				if err := f.download(ctx, f.profiles.ImageURL(profile), target); err != nil {
					log.Warn().Err(err).Str("actor", c.ActorName).Msg("portrait download failed")
				} else {
					c.ImageFile = name
				}
			}
		}
	}

	if f.cfg.PerCharacter <= 0 {
		return
	}
	query := fmt.Sprintf("%s %s character", c.Name, rec.Title)
	urls, err := f.search.SearchImages(ctx, query, f.cfg.PerCharacter)
	if err != nil {
		log.Warn().Err(err).Str("character", c.Name).Msg("character image search failed")
		return
	}
	f.downloadBatch(ctx, dir, slugify(c.Name), urls, log)
}

// acquireRelationship fetches stills of the two characters together.
func (f *Fetcher) acquireRelationship(ctx context.Context, dir, title string, rel catalog.Relationship, log zerolog.Logger) {
	if f.cfg.PerRelationship <= 0 {
		return
	}
	query := fmt.Sprintf("%s and %s %s", rel.Source, rel.Target, title)
	urls, err := f.search.SearchImages(ctx, query, f.cfg.PerRelationship)
	if err != nil {
		log.Warn().Err(err).
			Str("source", rel.Source).
			Str("target", rel.Target).
			Msg("relationship image search failed")
		return
	}
	f.downloadBatch(ctx, dir, slugify(rel.Source)+"_"+slugify(rel.Target), urls, log)
}

// downloadBatch saves each URL under prefix_N, pausing the download delay
// between fetches. Files that already exist are skipped without traffic.
func (f *Fetcher) downloadBatch(ctx context.Context, dir, prefix string, urls []string, log zerolog.Logger) {
	delay := secondsToDuration(f.cfg.DownloadDelay)
	fetched := 0
	for i, u := range urls {
		target := filepath.Join(dir, fmt.Sprintf("%s_%d%s", prefix, i, extensionOf(u)))
		if fileExists(target) {
			continue
		}
		if fetched > 0 {
			f.sleep(delay)
		}
		if err := f.download(ctx, u, target); err != nil {
			log.Warn().Err(err).Str("url", u).Msg("image download failed")
			continue
		}
		fetched++
	}
}

func (f *Fetcher) download(ctx context.Context, rawURL, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(target)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return out.Close()
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

var knownExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// extensionOf infers a file extension from the URL path, defaulting to .jpg.
func extensionOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if knownExtensions[ext] {
		return ext
	}
	return ".jpg"
}

// slugify turns a name into a filesystem-safe lowercase token.
func slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
