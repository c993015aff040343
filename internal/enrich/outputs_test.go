package enrich

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/llm"
)

func TestInitialDataDecodeVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "yaml with string relations",
			raw: `
movie_title: The Matrix
movie_year: 1999
character_profile: Neo is a hacker who becomes the One.
critical_reception: Acclaimed.
visual_style: Green-tinted bullet time.
most_talked_about_related_topic: Simulation theory
complex_search_queries:
  - movies where reality is a simulation
  - 90s cyberpunk with kung fu
sequel: The Matrix Reloaded
prequel: null
spin_off_of: none
remake: N/A
`,
		},
		{
			name: "json with object relations and scalar query",
			raw: `{
  "movie_title": "The Matrix",
  "movie_year": "1999",
  "character_profile": "Neo is a hacker who becomes the One.",
  "complex_search_queries": "movies where reality is a simulation",
  "sequel": {"title": "The Matrix Reloaded"},
  "prequel": null
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out InitialDataOutput
			require.NoError(t, llm.Decode(tt.raw, &out))
			require.NoError(t, out.finalize(MovieContext{Title: "The Matrix", Year: "1999"}, zerolog.Nop()))

			assert.Equal(t, "The Matrix Reloaded", out.Sequel.Title)
			assert.Empty(t, out.Prequel.Title)
			assert.Empty(t, out.Remake.Title)
			assert.NotEmpty(t, out.ComplexSearchQueries)

			rec := &catalog.MovieRecord{Title: "The Matrix", Year: "1999"}
			out.Apply(rec)
			require.NotNil(t, rec.Sequel)
			assert.Equal(t, "The Matrix Reloaded", rec.Sequel.Title)
			assert.Nil(t, rec.Prequel)
		})
	}
}

func TestInitialDataTitleEchoMismatchFails(t *testing.T) {
	raw := "movie_title: Some Other Movie\nmovie_year: \"1999\"\ncharacter_profile: wrong movie entirely"
	var out InitialDataOutput
	require.NoError(t, llm.Decode(raw, &out))

	err := out.finalize(MovieContext{Title: "The Matrix", Year: "1999"}, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidOutput))
}

func TestInitialDataYearEchoMismatchIsTolerated(t *testing.T) {
	raw := "movie_title: The Matrix\nmovie_year: 2003\ncharacter_profile: still the right movie"
	var out InitialDataOutput
	require.NoError(t, llm.Decode(raw, &out))
	require.NoError(t, out.finalize(MovieContext{Title: "The Matrix", Year: "1999"}, zerolog.Nop()))
}

func TestCharactersFinalizeBackfillsPersonIDs(t *testing.T) {
	raw := `
character_list:
  - name: Neo
    actor_name: Keanu Reeves
    description: The One.
    group: Resistance
    aliases: [Thomas Anderson]
  - name: Trinity
    actor_name: Carrie-Anne Moss
    tmdb_person_id: "530"
    description: Neo's partner.
    group: Resistance
  - name: ""
    actor_name: Nobody
relationships:
  - source: Neo
    target: Trinity
    type: lovers
    directed: false
    sentiment: positive
    strength: "5"
    tense: present
  - source: Thomas Anderson
    target: Trinity
    type: lovers
    directed: false
`
	var out CharactersOutput
	require.NoError(t, llm.Decode(raw, &out))

	mc := MovieContext{
		Title: "The Matrix",
		Cast: []catalog.RawCharacter{
			{Name: "Neo", ActorName: "Keanu Reeves", PersonID: 6384},
			{Name: "Trinity", ActorName: "Carrie-Anne Moss", PersonID: 530},
		},
	}
	require.NoError(t, out.finalize(mc, zerolog.Nop()))

	rec := &catalog.MovieRecord{}
	out.Apply(rec)

	require.Len(t, rec.Characters, 2, "nameless entry must be dropped")
	assert.Equal(t, 6384, rec.Characters[0].TMDBPersonID, "person ID backfilled by actor name")
	assert.Equal(t, 530, rec.Characters[1].TMDBPersonID, "string person ID decoded")

	require.Len(t, rec.Relationships, 1, "alias duplicate must collapse")
	assert.Equal(t, 5, rec.Relationships[0].Strength)
}

func TestCharactersFinalizeRejectsEmptyList(t *testing.T) {
	var out CharactersOutput
	require.NoError(t, llm.Decode("character_list: []\nrelationships: []", &out))
	err := out.finalize(MovieContext{}, zerolog.Nop())
	assert.True(t, errors.Is(err, ErrInvalidOutput))
}

func TestAnalyticalDecode(t *testing.T) {
	raw := `
character_profile_big5:
  Openness:
    score: 8
    explanation: Questions reality itself.
  Conscientiousness:
    score: 6
    explanation: Erratic but committed.
  Extraversion:
    score: 4
    explanation: Reserved.
  Agreeableness:
    score: 7
    explanation: Loyal.
  Neuroticism:
    score: 5
    explanation: Steady under fire.
character_profile_myersbriggs:
  type: intj
  explanation: Strategic and reserved.
genre_mix:
  genres:
    action: 50
    sci-fi: "40%"
    romance: 10
matching_tags:
  mind-bending: Reality is not what it seems.
recommendations:
  - title: Dark City
    year: 1998
    explanation: Same questions, darker palette.
  - title: ""
    year: 2000
    explanation: dropped
`
	var out AnalyticalOutput
	require.NoError(t, llm.Decode(raw, &out))
	require.NoError(t, out.finalize(MovieContext{}, zerolog.Nop()))

	assert.Equal(t, "INTJ", out.MyersBriggs.Type, "MBTI type is uppercased")
	assert.Equal(t, 40, map[string]int(out.GenreMix)["sci-fi"], "percent suffix tolerated")
	assert.Equal(t, 8, out.BigFive.Openness.Score)
	require.Len(t, out.Recommendations, 1)

	rec := &catalog.MovieRecord{}
	out.Apply(rec)
	require.NotNil(t, rec.BigFive)
	assert.Equal(t, "1998", rec.Recommendations[0].Year, "numeric year normalized to string")
	assert.Equal(t, 50, rec.GenreMix["action"])
}

func TestAnalyticalFlatGenreMix(t *testing.T) {
	raw := `{"character_profile_myersbriggs": {"type": "ENTP"}, "genre_mix": {"action": 70, "comedy": 30}}`
	var out AnalyticalOutput
	require.NoError(t, llm.Decode(raw, &out))
	require.NoError(t, out.finalize(MovieContext{}, zerolog.Nop()))
	assert.Equal(t, 70, map[string]int(out.GenreMix)["action"])
}

func TestAnalyticalRejectsBadMBTI(t *testing.T) {
	raw := `{"character_profile_myersbriggs": {"type": "WXYZ"}}`
	var out AnalyticalOutput
	require.NoError(t, llm.Decode(raw, &out))
	err := out.finalize(MovieContext{}, zerolog.Nop())
	assert.True(t, errors.Is(err, ErrInvalidOutput))
}

func TestScalarOutputsRejectEmpty(t *testing.T) {
	var summary ReviewSummaryOutput
	require.NoError(t, llm.Decode(`{"tmdb_user_review_summary": "  "}`, &summary))
	assert.True(t, errors.Is(summary.finalize(MovieContext{}, zerolog.Nop()), ErrInvalidOutput))

	var plot ConstrainedPlotOutput
	require.NoError(t, llm.Decode(`{"plot_with_character_constraints_and_relations": ""}`, &plot))
	assert.True(t, errors.Is(plot.finalize(MovieContext{}, zerolog.Nop()), ErrInvalidOutput))
}
