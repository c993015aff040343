package catalog

// FieldGroup names a set of record fields produced by one generation stage
// and toggled/updated as a unit.
type FieldGroup string

const (
	GroupInitialData            FieldGroup = "initial_data"
	GroupCharactersAndRelations FieldGroup = "characters_and_relations"
	GroupAnalyticalData         FieldGroup = "analytical_data"
	GroupReviewSummary          FieldGroup = "tmdb_review_summary"
	GroupConstrainedPlot        FieldGroup = "constrained_plot_with_relations"
	GroupFetchIMDBIDs           FieldGroup = "fetch_imdb_ids"
)

// fieldGroupTable maps every updatable field name to exactly one group. The
// table is static and total: a field missing here is a configuration defect,
// caught by enrich.ValidateFieldTable at session start.
var fieldGroupTable = map[string]FieldGroup{
	"character_profile":               GroupInitialData,
	"critical_reception":              GroupInitialData,
	"visual_style":                    GroupInitialData,
	"most_talked_about_related_topic": GroupInitialData,
	"complex_search_queries":          GroupInitialData,
	"sequel":                          GroupInitialData,
	"prequel":                         GroupInitialData,
	"spin_off_of":                     GroupInitialData,
	"spin_off":                        GroupInitialData,
	"remake_of":                       GroupInitialData,
	"remake":                          GroupInitialData,

	"character_list": GroupCharactersAndRelations,
	"relationships":  GroupCharactersAndRelations,

	"character_profile_big5":        GroupAnalyticalData,
	"character_profile_myersbriggs": GroupAnalyticalData,
	"genre_mix":                     GroupAnalyticalData,
	"matching_tags":                 GroupAnalyticalData,
	"recommendations":               GroupAnalyticalData,

	"tmdb_user_review_summary": GroupReviewSummary,

	"plot_with_character_constraints_and_relations": GroupConstrainedPlot,

	"imdb_id": GroupFetchIMDBIDs,
}

// GroupOf resolves a field name to its group. ok is false for unknown fields.
func GroupOf(field string) (FieldGroup, bool) {
	g, ok := fieldGroupTable[field]
	return g, ok
}

// FieldsOf returns every field belonging to the given group.
func FieldsOf(group FieldGroup) []string {
	var fields []string
	for f, g := range fieldGroupTable {
		if g == group {
			fields = append(fields, f)
		}
	}
	return fields
}
