package enrich

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
)

// ErrInvalidRange is returned for index_range expressions that do not
// parse. Out-of-bounds indices are not part of this: those are reported and
// skipped at resolution time.
var ErrInvalidRange = errors.New("invalid index range")

// WorkItem is one movie the session will process. Record is set for
// existing movies and nil for new ones.
type WorkItem struct {
	Title    string
	Year     string
	TMDBID   int
	Existing bool
	Record   *catalog.MovieRecord
}

// SkipReport explains why a requested movie was not processed.
type SkipReport struct {
	Title  string
	Reason string
}

// modeResolver turns the configured operation mode into the ordered list of
// movies to process. Only scan-new does provider I/O.
type modeResolver struct {
	cfg    *config.Config
	lister MetadataProvider
	logger zerolog.Logger
	sleep  func(time.Duration)
}

func (m *modeResolver) resolve(ctx context.Context, col *catalog.Collection) ([]WorkItem, []SkipReport, error) {
	switch m.cfg.Mode {
	case config.ModeScanNew:
		return m.resolveScan(ctx, col)
	case config.ModeUpdateAll:
		return m.resolveAll(col), nil, nil
	case config.ModeUpdateByList:
		items, skipped := m.resolveList(col)
		return items, skipped, nil
	case config.ModeUpdateByRange:
		return m.resolveRange(col)
	default:
		return nil, nil, fmt.Errorf("unknown mode %q", m.cfg.Mode)
	}
}

// resolveScan pages through the top-rated list. New titles are emitted
// until the quota is reached; known titles are emitted as updates when the
// update-on-encounter toggle is set, otherwise skipped. Emission counts
// toward the quota, not the eventual commit, and the scan stops the moment
// the quota fills.
func (m *modeResolver) resolveScan(ctx context.Context, col *catalog.Collection) ([]WorkItem, []SkipReport, error) {
	var items []WorkItem
	newCount := 0
	quota := m.cfg.Session.NewMovieQuota
	pageDelay := secondsToDuration(m.cfg.Session.PageDelaySeconds)

	for page := 1; page <= m.cfg.Session.MaxTopRatedPages; page++ {
		if page > 1 {
			m.sleep(pageDelay)
		}
		listed, err := m.lister.TopRated(ctx, page)
		if err != nil {
			return nil, nil, fmt.Errorf("top-rated page %d: %w", page, err)
		}

		for _, mv := range listed.Movies {
			identity := catalog.Identity{Title: mv.Title, Year: mv.Year}
			if existing := col.Find(identity); existing != nil {
				if m.cfg.Session.UpdateExistingOnScan {
					items = append(items, existingItem(existing))
				}
				continue
			}
			items = append(items, WorkItem{Title: mv.Title, Year: mv.Year, TMDBID: mv.ID})
			newCount++
			if newCount >= quota {
				m.logger.Info().Int("page", page).Int("newMovies", newCount).Msg("new-movie quota reached, stopping scan")
				return items, nil, nil
			}
		}

		if listed.TotalPages > 0 && page >= listed.TotalPages {
			break
		}
	}

	m.logger.Info().Int("newMovies", newCount).Msg("scan exhausted configured pages")
	return items, nil, nil
}

func (m *modeResolver) resolveAll(col *catalog.Collection) []WorkItem {
	items := make([]WorkItem, 0, col.Len())
	for _, rec := range col.Records {
		items = append(items, existingItem(rec))
	}
	return items
}

var titleYearTarget = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)$`)

// resolveList matches each configured target against the collection.
// Targets may be an IMDb ID ("tt0133093"), a TMDB ID ("tmdb:603"), a
// "Title (Year)" pair, or a bare title. Unresolvable targets are reported
// and skipped.
func (m *modeResolver) resolveList(col *catalog.Collection) ([]WorkItem, []SkipReport) {
	var items []WorkItem
	var skipped []SkipReport

	for _, target := range m.cfg.Session.Targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if rec := m.findTarget(col, target); rec != nil {
			items = append(items, existingItem(rec))
			continue
		}
		m.logger.Warn().Str("target", target).Msg("target not found in collection")
		skipped = append(skipped, SkipReport{Title: target, Reason: "not found in collection"})
	}
	return items, skipped
}

func (m *modeResolver) findTarget(col *catalog.Collection, target string) *catalog.MovieRecord {
	if strings.HasPrefix(target, "tt") {
		return col.Find(catalog.Identity{IMDBID: target})
	}
	if rest, ok := strings.CutPrefix(target, "tmdb:"); ok {
		id, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return nil
		}
		for _, rec := range col.Records {
			if rec.TMDBID == id {
				return rec
			}
		}
		return nil
	}
	if parts := titleYearTarget.FindStringSubmatch(target); parts != nil {
		return col.Find(catalog.Identity{Title: parts[1], Year: parts[2]})
	}
	for _, rec := range col.Records {
		if strings.EqualFold(strings.TrimSpace(rec.Title), target) {
			return rec
		}
	}
	return nil
}

func (m *modeResolver) resolveRange(col *catalog.Collection) ([]WorkItem, []SkipReport, error) {
	indices, err := ParseIndexRange(m.cfg.Session.IndexRange)
	if err != nil {
		return nil, nil, err
	}

	var items []WorkItem
	var skipped []SkipReport
	for _, i := range indices {
		if i >= col.Len() {
			m.logger.Warn().Int("index", i).Int("collectionSize", col.Len()).Msg("index out of bounds")
			skipped = append(skipped, SkipReport{
				Title:  fmt.Sprintf("index %d", i),
				Reason: fmt.Sprintf("out of bounds, collection has %d records", col.Len()),
			})
			continue
		}
		items = append(items, existingItem(col.Records[i]))
	}
	return items, skipped, nil
}

// ParseIndexRange parses expressions like "0-4, 7, 10-12" into a sorted,
// deduplicated index list. Malformed syntax is a configuration error;
// bounds are not checked here.
func ParseIndexRange(expr string) ([]int, error) {
	seen := make(map[int]bool)

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidRange, expr)
		}

		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			n, err := parseIndex(lo)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
			}
			seen[n] = true
			continue
		}

		start, err := parseIndex(lo)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
		}
		end, err := parseIndex(hi)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
		}
		if start > end {
			return nil, fmt.Errorf("%w: %q starts after it ends", ErrInvalidRange, part)
		}
		for i := start; i <= end; i++ {
			seen[i] = true
		}
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, nil
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative index %d", n)
	}
	return n, nil
}

func existingItem(rec *catalog.MovieRecord) WorkItem {
	return WorkItem{
		Title:    rec.Title,
		Year:     rec.Year,
		TMDBID:   rec.TMDBID,
		Existing: true,
		Record:   rec,
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
