package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cinegraph/cinegraph/internal/catalog"
)

// ErrInvalidOutput marks a response that decoded but failed the stage's
// structural checks, so callers can tell it apart from provider failures.
var ErrInvalidOutput = errors.New("invalid stage output")

// StageOutput is one decoded stage response. Fields declares exactly which
// record fields Apply overwrites; the field table is validated against these
// declarations at session start.
type StageOutput interface {
	Stage() Stage
	Fields() []string
	Apply(rec *catalog.MovieRecord)

	// finalize runs structural checks and in-place normalization after
	// decoding, before the output is merged into the record.
	finalize(mc MovieContext, logger zerolog.Logger) error
}

// newOutput returns an empty output for the given generation stage.
func newOutput(stage Stage) StageOutput {
	switch stage {
	case StageInitialData:
		return &InitialDataOutput{}
	case StageCharacters:
		return &CharactersOutput{}
	case StageAnalytical:
		return &AnalyticalOutput{}
	case StageReviewSummary:
		return &ReviewSummaryOutput{}
	case StageConstrainedPlot:
		return &ConstrainedPlotOutput{}
	default:
		return nil
	}
}

// InitialDataOutput is the response of the initial_data stage. The title and
// year echoes are identity checks, not record fields.
type InitialDataOutput struct {
	MovieTitle           string      `json:"movie_title" yaml:"movie_title"`
	MovieYear            flexString  `json:"movie_year" yaml:"movie_year"`
	CharacterProfile     string      `json:"character_profile" yaml:"character_profile"`
	CriticalReception    string      `json:"critical_reception" yaml:"critical_reception"`
	VisualStyle          string      `json:"visual_style" yaml:"visual_style"`
	MostTalkedAboutTopic string      `json:"most_talked_about_related_topic" yaml:"most_talked_about_related_topic"`
	ComplexSearchQueries flexStrings `json:"complex_search_queries" yaml:"complex_search_queries"`
	Sequel               flexRelated `json:"sequel" yaml:"sequel"`
	Prequel              flexRelated `json:"prequel" yaml:"prequel"`
	SpinOffOf            flexRelated `json:"spin_off_of" yaml:"spin_off_of"`
	SpinOff              flexRelated `json:"spin_off" yaml:"spin_off"`
	RemakeOf             flexRelated `json:"remake_of" yaml:"remake_of"`
	Remake               flexRelated `json:"remake" yaml:"remake"`
}

func (o *InitialDataOutput) Stage() Stage { return StageInitialData }

func (o *InitialDataOutput) Fields() []string {
	return []string{
		"character_profile", "critical_reception", "visual_style",
		"most_talked_about_related_topic", "complex_search_queries",
		"sequel", "prequel", "spin_off_of", "spin_off", "remake_of", "remake",
	}
}

// finalize checks the title echo against the requested movie. A title
// mismatch means the model described the wrong movie and fails the stage; a
// year mismatch is only logged, the catalog year stays authoritative.
func (o *InitialDataOutput) finalize(mc MovieContext, logger zerolog.Logger) error {
	if strings.TrimSpace(o.CharacterProfile) == "" {
		return fmt.Errorf("%w: character_profile is empty", ErrInvalidOutput)
	}
	echoed := strings.TrimSpace(o.MovieTitle)
	if echoed == "" || !strings.EqualFold(echoed, strings.TrimSpace(mc.Title)) {
		return fmt.Errorf("%w: title echo %q does not match %q", ErrInvalidOutput, echoed, mc.Title)
	}
	if y := strings.TrimSpace(string(o.MovieYear)); y != "" && y != strings.TrimSpace(mc.Year) {
		logger.Warn().
			Str("title", mc.Title).
			Str("catalogYear", mc.Year).
			Str("echoedYear", y).
			Msg("year echo mismatch, keeping catalog year")
	}
	return nil
}

func (o *InitialDataOutput) Apply(rec *catalog.MovieRecord) {
	rec.CharacterProfile = o.CharacterProfile
	rec.CriticalReception = o.CriticalReception
	rec.VisualStyle = o.VisualStyle
	rec.MostTalkedAboutTopic = o.MostTalkedAboutTopic
	rec.ComplexSearchQueries = []string(o.ComplexSearchQueries)
	rec.Sequel = o.Sequel.record()
	rec.Prequel = o.Prequel.record()
	rec.SpinOffOf = o.SpinOffOf.record()
	rec.SpinOff = o.SpinOff.record()
	rec.RemakeOf = o.RemakeOf.record()
	rec.Remake = o.Remake.record()
}

// CharactersOutput is the response of the characters_and_relations stage.
type CharactersOutput struct {
	CharacterList []characterOut    `json:"character_list" yaml:"character_list"`
	Relationships []relationshipOut `json:"relationships" yaml:"relationships"`

	characters    []catalog.Character
	relationships []catalog.Relationship
}

type characterOut struct {
	Name         string      `json:"name" yaml:"name"`
	ActorName    string      `json:"actor_name" yaml:"actor_name"`
	TMDBPersonID flexInt     `json:"tmdb_person_id" yaml:"tmdb_person_id"`
	Description  string      `json:"description" yaml:"description"`
	Group        string      `json:"group" yaml:"group"`
	Aliases      flexStrings `json:"aliases" yaml:"aliases"`
}

type relationshipOut struct {
	Source      string  `json:"source" yaml:"source"`
	Target      string  `json:"target" yaml:"target"`
	Type        string  `json:"type" yaml:"type"`
	Directed    bool    `json:"directed" yaml:"directed"`
	Description string  `json:"description" yaml:"description"`
	Sentiment   string  `json:"sentiment" yaml:"sentiment"`
	Strength    flexInt `json:"strength" yaml:"strength"`
	Tense       string  `json:"tense" yaml:"tense"`
}

func (o *CharactersOutput) Stage() Stage { return StageCharacters }

func (o *CharactersOutput) Fields() []string {
	return []string{"character_list", "relationships"}
}

// finalize converts the decoded list into catalog characters, backfills
// missing person IDs by actor name from the cast, and normalizes the
// relationship set against the canonical character names.
func (o *CharactersOutput) finalize(mc MovieContext, logger zerolog.Logger) error {
	byActor := make(map[string]int, len(mc.Cast))
	for _, c := range mc.Cast {
		byActor[strings.ToLower(strings.TrimSpace(c.ActorName))] = c.PersonID
	}

	var chars []catalog.Character
	for _, c := range o.CharacterList {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		personID := int(c.TMDBPersonID)
		if personID == 0 {
			personID = byActor[strings.ToLower(strings.TrimSpace(c.ActorName))]
		}
		chars = append(chars, catalog.Character{
			Name:         name,
			ActorName:    strings.TrimSpace(c.ActorName),
			TMDBPersonID: personID,
			Description:  c.Description,
			Group:        c.Group,
			Aliases:      []string(c.Aliases),
		})
	}
	if len(chars) == 0 {
		return fmt.Errorf("%w: character_list is empty", ErrInvalidOutput)
	}

	rels := make([]catalog.Relationship, 0, len(o.Relationships))
	for _, r := range o.Relationships {
		rels = append(rels, catalog.Relationship{
			Source:      strings.TrimSpace(r.Source),
			Target:      strings.TrimSpace(r.Target),
			Type:        r.Type,
			Directed:    r.Directed,
			Description: r.Description,
			Sentiment:   r.Sentiment,
			Strength:    int(r.Strength),
			Tense:       r.Tense,
		})
	}

	o.characters = chars
	o.relationships = NormalizeRelationships(chars, rels, logger)
	return nil
}

func (o *CharactersOutput) Apply(rec *catalog.MovieRecord) {
	rec.Characters = o.characters
	rec.Relationships = o.relationships
}

// AnalyticalOutput is the response of the analytical_data stage.
type AnalyticalOutput struct {
	BigFive         catalog.BigFiveProfile     `json:"character_profile_big5" yaml:"character_profile_big5"`
	MyersBriggs     catalog.MyersBriggsProfile `json:"character_profile_myersbriggs" yaml:"character_profile_myersbriggs"`
	GenreMix        genreMix                   `json:"genre_mix" yaml:"genre_mix"`
	MatchingTags    tagMap                     `json:"matching_tags" yaml:"matching_tags"`
	Recommendations []recommendationOut        `json:"recommendations" yaml:"recommendations"`
}

type recommendationOut struct {
	Title       string     `json:"title" yaml:"title"`
	Year        flexString `json:"year" yaml:"year"`
	Explanation string     `json:"explanation" yaml:"explanation"`
}

func (o *AnalyticalOutput) Stage() Stage { return StageAnalytical }

func (o *AnalyticalOutput) Fields() []string {
	return []string{
		"character_profile_big5", "character_profile_myersbriggs",
		"genre_mix", "matching_tags", "recommendations",
	}
}

func (o *AnalyticalOutput) finalize(mc MovieContext, logger zerolog.Logger) error {
	o.MyersBriggs.Type = strings.ToUpper(strings.TrimSpace(o.MyersBriggs.Type))
	if !validMBTI(o.MyersBriggs.Type) {
		return fmt.Errorf("%w: %q is not an MBTI type", ErrInvalidOutput, o.MyersBriggs.Type)
	}
	kept := o.Recommendations[:0]
	for _, r := range o.Recommendations {
		if strings.TrimSpace(r.Title) == "" {
			logger.Debug().Msg("dropping recommendation without a title")
			continue
		}
		kept = append(kept, r)
	}
	o.Recommendations = kept
	return nil
}

func (o *AnalyticalOutput) Apply(rec *catalog.MovieRecord) {
	big5 := o.BigFive
	mbti := o.MyersBriggs
	rec.BigFive = &big5
	rec.MyersBriggs = &mbti
	rec.GenreMix = map[string]int(o.GenreMix)
	rec.MatchingTags = map[string]string(o.MatchingTags)

	recs := make([]catalog.Recommendation, 0, len(o.Recommendations))
	for _, r := range o.Recommendations {
		recs = append(recs, catalog.Recommendation{
			Title:       strings.TrimSpace(r.Title),
			Year:        strings.TrimSpace(string(r.Year)),
			Explanation: r.Explanation,
		})
	}
	rec.Recommendations = recs
}

// ReviewSummaryOutput is the response of the tmdb_review_summary stage.
type ReviewSummaryOutput struct {
	Summary string `json:"tmdb_user_review_summary" yaml:"tmdb_user_review_summary"`
}

func (o *ReviewSummaryOutput) Stage() Stage { return StageReviewSummary }

func (o *ReviewSummaryOutput) Fields() []string {
	return []string{"tmdb_user_review_summary"}
}

func (o *ReviewSummaryOutput) finalize(mc MovieContext, logger zerolog.Logger) error {
	if strings.TrimSpace(o.Summary) == "" {
		return fmt.Errorf("%w: tmdb_user_review_summary is empty", ErrInvalidOutput)
	}
	return nil
}

func (o *ReviewSummaryOutput) Apply(rec *catalog.MovieRecord) {
	rec.ReviewSummary = o.Summary
}

// ConstrainedPlotOutput is the response of the constrained plot stage.
type ConstrainedPlotOutput struct {
	Plot string `json:"plot_with_character_constraints_and_relations" yaml:"plot_with_character_constraints_and_relations"`
}

func (o *ConstrainedPlotOutput) Stage() Stage { return StageConstrainedPlot }

func (o *ConstrainedPlotOutput) Fields() []string {
	return []string{"plot_with_character_constraints_and_relations"}
}

func (o *ConstrainedPlotOutput) finalize(mc MovieContext, logger zerolog.Logger) error {
	if strings.TrimSpace(o.Plot) == "" {
		return fmt.Errorf("%w: plot is empty", ErrInvalidOutput)
	}
	return nil
}

func (o *ConstrainedPlotOutput) Apply(rec *catalog.MovieRecord) {
	rec.ConstrainedPlot = o.Plot
}

var mbtiTypes = map[string]bool{
	"ISTJ": true, "ISFJ": true, "INFJ": true, "INTJ": true,
	"ISTP": true, "ISFP": true, "INFP": true, "INTP": true,
	"ESTP": true, "ESFP": true, "ENFP": true, "ENTP": true,
	"ESTJ": true, "ESFJ": true, "ENFJ": true, "ENTJ": true,
}

func validMBTI(t string) bool { return mbtiTypes[t] }

// flexString decodes a scalar of any type into a string, so a year returned
// as 1999 and one returned as "1999" read the same.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f *flexString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected scalar, got %v", node.Kind)
	}
	if node.Tag == "!!null" {
		*f = ""
		return nil
	}
	*f = flexString(node.Value)
	return nil
}

// flexInt decodes an integer that may arrive as a number or a string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return f.parse(s)
}

func (f *flexInt) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected scalar, got %v", node.Kind)
	}
	if node.Tag == "!!null" {
		*f = 0
		return nil
	}
	return f.parse(node.Value)
}

func (f *flexInt) parse(s string) error {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*f = flexInt(v)
	return nil
}

// flexStrings decodes either a single string or a list of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "" {
			*f = []string{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*f = list
	return nil
}

func (f *flexStrings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if node.Tag != "!!null" && node.Value != "" {
			*f = []string{node.Value}
		}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*f = list
	return nil
}

// flexRelated decodes a related-movie link that may be null, a bare title
// string, or an object with a title key.
type flexRelated struct {
	Title  string `json:"title" yaml:"title"`
	IMDBID string `json:"imdb_id" yaml:"imdb_id"`
}

func (f *flexRelated) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f.Title = cleanRelatedTitle(s)
		return nil
	}
	type plain flexRelated
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	f.Title = cleanRelatedTitle(p.Title)
	f.IMDBID = p.IMDBID
	return nil
}

func (f *flexRelated) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if node.Tag != "!!null" {
			f.Title = cleanRelatedTitle(node.Value)
		}
		return nil
	}
	type plain flexRelated
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	f.Title = cleanRelatedTitle(p.Title)
	f.IMDBID = p.IMDBID
	return nil
}

func (f flexRelated) record() *catalog.RelatedMovie {
	if f.Title == "" {
		return nil
	}
	return &catalog.RelatedMovie{Title: f.Title, IMDBID: f.IMDBID}
}

// cleanRelatedTitle drops the various spellings of "there is no such movie".
func cleanRelatedTitle(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none", "null", "n/a", "-":
		return ""
	}
	return s
}

// genreMix decodes a genre percentage map that may be flat or nested under
// a "genres" key.
type genreMix map[string]int

func (g *genreMix) UnmarshalJSON(b []byte) error {
	var direct map[string]flexInt
	if err := json.Unmarshal(b, &direct); err == nil {
		*g = toIntMap(direct)
		return nil
	}
	var nested struct {
		Genres map[string]flexInt `json:"genres"`
	}
	if err := json.Unmarshal(b, &nested); err != nil {
		return err
	}
	*g = toIntMap(nested.Genres)
	return nil
}

func (g *genreMix) UnmarshalYAML(node *yaml.Node) error {
	var direct map[string]flexInt
	if err := node.Decode(&direct); err == nil {
		*g = toIntMap(direct)
		return nil
	}
	var nested struct {
		Genres map[string]flexInt `yaml:"genres"`
	}
	if err := node.Decode(&nested); err != nil {
		return err
	}
	*g = toIntMap(nested.Genres)
	return nil
}

// tagMap decodes a tag map that may be flat or nested under a "tags" key.
type tagMap map[string]string

func (t *tagMap) UnmarshalJSON(b []byte) error {
	var direct map[string]string
	if err := json.Unmarshal(b, &direct); err == nil {
		*t = direct
		return nil
	}
	var nested struct {
		Tags map[string]string `json:"tags"`
	}
	if err := json.Unmarshal(b, &nested); err != nil {
		return err
	}
	*t = nested.Tags
	return nil
}

func (t *tagMap) UnmarshalYAML(node *yaml.Node) error {
	var direct map[string]string
	if err := node.Decode(&direct); err == nil {
		*t = direct
		return nil
	}
	var nested struct {
		Tags map[string]string `yaml:"tags"`
	}
	if err := node.Decode(&nested); err != nil {
		return err
	}
	*t = nested.Tags
	return nil
}

func toIntMap(m map[string]flexInt) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = int(v)
	}
	return out
}
