package enrich

import (
	"fmt"

	"github.com/cinegraph/cinegraph/internal/catalog"
)

// Merge overwrites the output's field group on the record. Fields outside
// the group are never touched; partial carry-over within a group is not a
// thing, the whole group is replaced.
func Merge(rec *catalog.MovieRecord, out StageOutput) {
	out.Apply(rec)
}

// ValidateFieldTable cross-checks the static field table in catalog against
// the fields every stage output declares. Run once at session start: a field
// an output writes that the table does not know, a table entry no stage
// produces, or a field mapped to the wrong group all fail the session before
// any provider call is made.
func ValidateFieldTable() error {
	outputs := []StageOutput{
		&InitialDataOutput{},
		&CharactersOutput{},
		&AnalyticalOutput{},
		&ReviewSummaryOutput{},
		&ConstrainedPlotOutput{},
	}

	declared := map[string]Stage{
		// Provider-backed, produced by the IMDb cross-reference step.
		"imdb_id": StageFetchIMDBIDs,
	}
	for _, out := range outputs {
		for _, f := range out.Fields() {
			if prev, dup := declared[f]; dup {
				return fmt.Errorf("field %q declared by both %s and %s", f, prev, out.Stage())
			}
			declared[f] = out.Stage()
			group, ok := catalog.GroupOf(f)
			if !ok {
				return fmt.Errorf("field %q produced by %s is missing from the field table", f, out.Stage())
			}
			if group != out.Stage().Group() {
				return fmt.Errorf("field %q maps to group %s but is produced by %s", f, group, out.Stage())
			}
		}
	}

	groups := []catalog.FieldGroup{
		catalog.GroupInitialData,
		catalog.GroupCharactersAndRelations,
		catalog.GroupAnalyticalData,
		catalog.GroupReviewSummary,
		catalog.GroupConstrainedPlot,
		catalog.GroupFetchIMDBIDs,
	}
	for _, g := range groups {
		for _, f := range catalog.FieldsOf(g) {
			if _, ok := declared[f]; !ok {
				return fmt.Errorf("field table entry %q is produced by no stage", f)
			}
		}
	}
	return nil
}
