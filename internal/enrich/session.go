package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/transcript"
)

// movieState tracks a movie through its per-session lifecycle. Transitions
// are strictly forward; a movie ends up either committed or dropped.
type movieState int

const (
	stateResolving movieState = iota
	stateSequencing
	stateReconciling
	stateCommitted
	stateDropped
)

func (s movieState) String() string {
	switch s {
	case stateResolving:
		return "resolving"
	case stateSequencing:
		return "sequencing"
	case stateReconciling:
		return "reconciling"
	case stateCommitted:
		return "committed"
	case stateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Summary is what one session run amounts to.
type Summary struct {
	Mode          config.Mode
	Added         int
	Updated       int
	Dropped       int
	Skipped       []SkipReport
	StageFailures map[Stage]int
	Duration      time.Duration
}

// Session runs one enrichment pass over the collection: resolve the work
// list for the configured mode, run each movie through the stage sequence,
// and commit every finished movie to disk before starting the next one.
type Session struct {
	cfg    *config.Config
	meta   MetadataProvider
	xref   CrossRef
	runner *Runner
	seq    *Sequencer
	store  *catalog.Store
	images ImageAcquirer
	logger zerolog.Logger
	sleep  func(time.Duration)

	// pendingReviews holds the snippets fetched for the movie currently
	// being processed, consumed by the review summary prompt.
	pendingReviews []string
}

// NewSession wires a session and runs the start-of-session checks: the
// field table must be total over the stage outputs, the token budget must
// be sane, and the allow-list must name only known fields.
func NewSession(
	cfg *config.Config,
	meta MetadataProvider,
	xref CrossRef,
	gen Generator,
	store *catalog.Store,
	images ImageAcquirer,
	tw *transcript.Writer,
	logger zerolog.Logger,
) (*Session, error) {
	if err := ValidateFieldTable(); err != nil {
		return nil, fmt.Errorf("field table check failed: %w", err)
	}
	budget, err := NewBudgeter(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("token budget check failed: %w", err)
	}
	seq, err := NewSequencer(cfg.Stages, cfg.Session.UpdateFields)
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:    cfg,
		meta:   meta,
		xref:   xref,
		runner: NewRunner(gen, budget, tw, logger),
		seq:    seq,
		store:  store,
		images: images,
		logger: logger.With().Str("component", "session").Logger(),
		sleep:  time.Sleep,
	}, nil
}

// Run executes the session. The returned summary is valid even when err is
// non-nil; it covers everything processed up to the failure.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := &Summary{Mode: s.cfg.Mode, StageFailures: make(map[Stage]int)}

	col, err := s.store.Load()
	if err != nil {
		return sum, err
	}
	s.logger.Info().
		Str("mode", string(s.cfg.Mode)).
		Int("collectionSize", col.Len()).
		Msg("session starting")

	resolver := &modeResolver{cfg: s.cfg, lister: s.meta, logger: s.logger, sleep: s.sleep}
	items, skipped, err := resolver.resolve(ctx, col)
	if err != nil {
		sum.Duration = time.Since(start)
		return sum, err
	}
	sum.Skipped = append(sum.Skipped, skipped...)

	generalDelay := secondsToDuration(s.cfg.Session.GeneralDelaySeconds)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(start)
			return sum, err
		}
		if i > 0 {
			s.sleep(generalDelay)
		}
		s.processMovie(ctx, col, item, sum)
	}

	sum.Duration = time.Since(start)
	s.logSummary(sum)
	return sum, nil
}

// processMovie drives one movie through the state machine. All stage output
// lands on a working copy; the collection and the file only change at
// commit, so a dropped movie leaves no trace.
func (s *Session) processMovie(ctx context.Context, col *catalog.Collection, item WorkItem, sum *Summary) {
	state := stateResolving
	s.pendingReviews = nil
	log := s.logger.With().
		Str("movie", item.Title).
		Str("year", item.Year).
		Bool("existing", item.Existing).
		Logger()
	log.Info().Str("state", state.String()).Msg("processing movie")

	var working *catalog.MovieRecord
	if item.Existing {
		working = item.Record.Clone()
	} else {
		working = &catalog.MovieRecord{Title: item.Title, Year: item.Year, TMDBID: item.TMDBID}
	}

	state = stateSequencing
	outcomes := make(map[Stage]Outcome)

	for _, stage := range stageOrder {
		if outcome, run := s.seq.Decide(stage, item.Existing, outcomes); !run {
			outcomes[stage] = outcome
			log.Debug().Str("stage", string(stage)).Str("outcome", outcome.String()).Msg("stage not run")
			continue
		}

		if outcome, ok := s.prepareStage(ctx, stage, working, &log); !ok {
			outcomes[stage] = outcome
			if outcome == OutcomeFailed {
				sum.StageFailures[stage]++
				if s.dropIfFoundational(stage, item, sum, &log) {
					return
				}
			}
			continue
		}

		result := s.runner.Run(ctx, stage, s.movieContext(working))
		if result.Failed() {
			outcomes[stage] = OutcomeFailed
			sum.StageFailures[stage]++
			log.Warn().
				Str("stage", string(stage)).
				Str("reason", string(result.Reason)).
				Err(result.Err).
				Msg("stage failed")
			if s.dropIfFoundational(stage, item, sum, &log) {
				return
			}
			continue
		}

		Merge(working, result.Output)
		outcomes[stage] = OutcomeSucceeded
	}

	state = stateReconciling
	log.Debug().Str("state", state.String()).Msg("reconciling")

	if outcome, run := s.seq.Decide(StageFetchIMDBIDs, item.Existing, outcomes); run {
		s.fetchIMDBIDs(ctx, working, &log)
		outcomes[StageFetchIMDBIDs] = OutcomeSucceeded
	} else {
		outcomes[StageFetchIMDBIDs] = outcome
	}

	if s.images != nil && s.cfg.Stages.FetchImages {
		if err := s.images.AcquireForMovie(ctx, working); err != nil {
			log.Warn().Err(err).Msg("image acquisition failed")
		}
	}

	col.Upsert(working)
	if err := s.store.Save(col); err != nil {
		log.Error().Err(err).Msg("failed to persist collection")
		sum.Skipped = append(sum.Skipped, SkipReport{Title: item.Title, Reason: "failed to persist collection"})
		return
	}

	state = stateCommitted
	if item.Existing {
		sum.Updated++
	} else {
		sum.Added++
	}
	log.Info().Str("state", state.String()).Msg("movie committed")
}

// prepareStage fetches the provider inputs a stage consumes before its
// prompt can be built. The second return is false when the stage cannot
// run; the outcome then says whether that counts as a failure.
func (s *Session) prepareStage(ctx context.Context, stage Stage, working *catalog.MovieRecord, log *zerolog.Logger) (Outcome, bool) {
	switch stage {
	case StageCharacters:
		if len(working.RawCharacters) > 0 {
			return OutcomePending, true
		}
		cast, err := s.meta.GetCast(ctx, working.TMDBID, s.cfg.TMDB.MaxCharacters)
		if err != nil {
			log.Warn().Err(err).Msg("cast fetch failed")
			return OutcomeFailed, false
		}
		if len(cast) == 0 {
			log.Warn().Msg("no usable cast entries")
			return OutcomeFailed, false
		}
		working.RawCharacters = cast
		return OutcomePending, true

	case StageReviewSummary:
		reviews, err := s.xref.Reviews(ctx, working.TMDBID, s.cfg.TMDB.MaxReviews, s.cfg.TMDB.MaxReviewLen)
		if err != nil {
			log.Warn().Err(err).Msg("review fetch failed")
			return OutcomeFailed, false
		}
		if len(reviews) == 0 {
			log.Info().Msg("no reviews to summarize")
			return OutcomeSkippedDependency, false
		}
		s.pendingReviews = reviews
		return OutcomePending, true
	}
	return OutcomePending, true
}

// movieContext snapshots the working record for the prompt builder.
func (s *Session) movieContext(working *catalog.MovieRecord) MovieContext {
	return MovieContext{
		Title:            working.Title,
		Year:             working.Year,
		Cast:             working.RawCharacters,
		Characters:       working.Characters,
		Relationships:    working.Relationships,
		CharacterProfile: working.CharacterProfile,
		Reviews:          s.pendingReviews,
	}
}

// dropIfFoundational applies the new-movie drop policy. Foundational stage
// failures drop a movie not yet in the collection; existing records keep
// their prior data and the session moves on.
func (s *Session) dropIfFoundational(stage Stage, item WorkItem, sum *Summary, log *zerolog.Logger) bool {
	if item.Existing || !stage.Foundational() {
		return false
	}
	sum.Dropped++
	sum.Skipped = append(sum.Skipped, SkipReport{
		Title:  item.Title,
		Reason: fmt.Sprintf("foundational stage %s failed", stage),
	})
	log.Warn().Str("state", stateDropped.String()).Str("stage", string(stage)).Msg("new movie dropped")
	return true
}

// fetchIMDBIDs resolves the IMDb ID for the movie itself, its related-movie
// links and its recommendations. Misses are fine; the fields stay empty.
func (s *Session) fetchIMDBIDs(ctx context.Context, working *catalog.MovieRecord, log *zerolog.Logger) {
	if working.IMDBID == "" {
		if id, ok := s.xref.Lookup(ctx, working.Title, working.Year, working.TMDBID); ok {
			working.IMDBID = id
		}
	}

	related := []*catalog.RelatedMovie{
		working.Sequel, working.Prequel,
		working.SpinOffOf, working.SpinOff,
		working.RemakeOf, working.Remake,
	}
	for _, rm := range related {
		if rm == nil || rm.Title == "" || rm.IMDBID != "" {
			continue
		}
		if id, ok := s.xref.Lookup(ctx, rm.Title, "", 0); ok {
			rm.IMDBID = id
		}
	}

	for i := range working.Recommendations {
		rec := &working.Recommendations[i]
		if rec.Title == "" || rec.IMDBID != "" {
			continue
		}
		if id, ok := s.xref.Lookup(ctx, rec.Title, rec.Year, 0); ok {
			rec.IMDBID = id
		}
	}

	log.Debug().Str("imdbId", working.IMDBID).Msg("IMDb cross-reference done")
}

func (s *Session) logSummary(sum *Summary) {
	ev := s.logger.Info().
		Str("mode", string(sum.Mode)).
		Int("added", sum.Added).
		Int("updated", sum.Updated).
		Int("dropped", sum.Dropped).
		Int("skipped", len(sum.Skipped)).
		Dur("duration", sum.Duration)
	for stage, n := range sum.StageFailures {
		ev = ev.Int("failures_"+string(stage), n)
	}
	ev.Msg("session finished")

	for _, skip := range sum.Skipped {
		s.logger.Info().Str("movie", skip.Title).Str("reason", skip.Reason).Msg("not processed")
	}
}
