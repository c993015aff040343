package enrich

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
)

// ErrUnknownField is returned when the selective-update allow-list names a
// field the field table does not know. This is a configuration error and
// fails the session before any movie is processed.
var ErrUnknownField = errors.New("unknown update field")

// Sequencer decides per movie and per stage whether the stage runs, based
// on the stage toggles, the selective-update allow-list and the outcomes of
// the stages it depends on.
type Sequencer struct {
	active   map[Stage]bool
	allow    map[catalog.FieldGroup]bool
	allowAll bool
}

// NewSequencer resolves the allow-list field names to their groups. An
// empty allow-list means every active stage may update existing records.
func NewSequencer(stages config.StagesConfig, updateFields []string) (*Sequencer, error) {
	active := map[Stage]bool{
		StageInitialData:     stages.InitialData,
		StageCharacters:      stages.CharactersAndRelations,
		StageAnalytical:      stages.AnalyticalData,
		StageReviewSummary:   stages.TMDBReviewSummary,
		StageConstrainedPlot: stages.ConstrainedPlotWithRelations,
		StageFetchIMDBIDs:    stages.FetchIMDBIDs,
	}

	allow := make(map[catalog.FieldGroup]bool)
	for _, f := range updateFields {
		f = strings.TrimSpace(f)
		group, ok := catalog.GroupOf(f)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
		allow[group] = true
	}

	return &Sequencer{active: active, allow: allow, allowAll: len(allow) == 0}, nil
}

// Decide returns whether the stage should run for this movie. When it
// should not, the returned outcome says why. A dependency satisfied by a
// stage that was itself skipped only by the allow-list counts as met: the
// record already carries that group's data from an earlier session.
func (s *Sequencer) Decide(stage Stage, existing bool, outcomes map[Stage]Outcome) (Outcome, bool) {
	if !s.active[stage] {
		return OutcomeSkippedInactive, false
	}
	if existing && !s.allowAll && !s.allow[stage.Group()] {
		return OutcomeSkippedAllowList, false
	}
	for _, dep := range stageDeps[stage] {
		switch outcomes[dep] {
		case OutcomeFailed, OutcomeSkippedInactive, OutcomeSkippedDependency:
			return OutcomeSkippedDependency, false
		}
	}
	return OutcomePending, true
}

// GroupAllowed reports whether the allow-list permits updating a group on
// an existing record. New records are never gated by the allow-list.
func (s *Sequencer) GroupAllowed(existing bool, group catalog.FieldGroup) bool {
	return !existing || s.allowAll || s.allow[group]
}
