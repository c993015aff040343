// Package enrich orchestrates enrichment sessions: it resolves which movies
// to process, runs the generation stages in order, reconciles the outputs
// into the collection and commits each movie atomically.
package enrich

import "github.com/cinegraph/cinegraph/internal/catalog"

// Stage identifies one generation stage. Stage names double as the field
// group names used by the selective-update allow-list.
type Stage string

const (
	StageInitialData     Stage = "initial_data"
	StageCharacters      Stage = "characters_and_relations"
	StageAnalytical      Stage = "analytical_data"
	StageReviewSummary   Stage = "tmdb_review_summary"
	StageConstrainedPlot Stage = "constrained_plot_with_relations"

	// StageFetchIMDBIDs is provider-backed, not LLM-backed, but participates
	// in toggle and allow-list gating like the generation stages.
	StageFetchIMDBIDs Stage = "fetch_imdb_ids"
)

// stageOrder is the fixed execution order of the LLM generation stages.
var stageOrder = []Stage{
	StageInitialData,
	StageCharacters,
	StageAnalytical,
	StageReviewSummary,
	StageConstrainedPlot,
}

// stageDeps maps a stage to the stages whose output it builds on.
var stageDeps = map[Stage][]Stage{
	StageAnalytical:      {StageInitialData},
	StageReviewSummary:   {StageInitialData},
	StageConstrainedPlot: {StageCharacters},
}

// foundationalStages are the stages whose failure drops a brand-new movie
// from the session. For existing records they are non-fatal like the rest.
var foundationalStages = map[Stage]bool{
	StageInitialData: true,
	StageCharacters:  true,
}

// StageOrder returns the generation stages in execution order.
func StageOrder() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Group returns the field group this stage produces.
func (s Stage) Group() catalog.FieldGroup {
	return catalog.FieldGroup(s)
}

// Foundational reports whether a failure of this stage drops a new movie.
func (s Stage) Foundational() bool {
	return foundationalStages[s]
}

// Outcome is the per-movie result of one stage.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
	OutcomeSkippedInactive
	OutcomeSkippedAllowList
	OutcomeSkippedDependency
)

// String returns the outcome name used in logs and the session summary.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkippedInactive:
		return "skipped (stage inactive)"
	case OutcomeSkippedAllowList:
		return "skipped (not in update allow-list)"
	case OutcomeSkippedDependency:
		return "skipped (unmet dependency)"
	default:
		return "pending"
	}
}

// Skipped reports whether the outcome is any of the skip variants.
func (o Outcome) Skipped() bool {
	switch o {
	case OutcomeSkippedInactive, OutcomeSkippedAllowList, OutcomeSkippedDependency:
		return true
	}
	return false
}
