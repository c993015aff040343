// Package catalog defines the persisted movie record model and the YAML
// collection store.
package catalog

import "strings"

// RelatedMovie links a record to a sequel/prequel/spin-off/remake by title.
type RelatedMovie struct {
	Title  string `yaml:"title"`
	IMDBID string `yaml:"imdb_id,omitempty"`
}

// Recommendation is a suggested similar movie.
type Recommendation struct {
	Title       string `yaml:"title"`
	Year        string `yaml:"year"`
	Explanation string `yaml:"explanation"`
	IMDBID      string `yaml:"imdb_id,omitempty"`
}

// TraitScore is one Big Five trait rating.
type TraitScore struct {
	Score       int    `yaml:"score"`
	Explanation string `yaml:"explanation"`
}

// BigFiveProfile rates the main character on the Big Five model.
type BigFiveProfile struct {
	Openness          TraitScore `yaml:"Openness"`
	Conscientiousness TraitScore `yaml:"Conscientiousness"`
	Extraversion      TraitScore `yaml:"Extraversion"`
	Agreeableness     TraitScore `yaml:"Agreeableness"`
	Neuroticism       TraitScore `yaml:"Neuroticism"`
}

// MyersBriggsProfile types the main character on the MBTI model.
type MyersBriggsProfile struct {
	Type        string `yaml:"type"`
	Explanation string `yaml:"explanation"`
}

// Character is one entry of the enriched character list.
type Character struct {
	Name         string   `yaml:"name"`
	ActorName    string   `yaml:"actor_name"`
	TMDBPersonID int      `yaml:"tmdb_person_id,omitempty"`
	Description  string   `yaml:"description"`
	Group        string   `yaml:"group"`
	Aliases      []string `yaml:"aliases,omitempty"`
	ImageFile    string   `yaml:"image_file,omitempty"`
}

// Relationship is a directed or mutual link between two characters.
type Relationship struct {
	Source      string `yaml:"source"`
	Target      string `yaml:"target"`
	Type        string `yaml:"type"`
	Directed    bool   `yaml:"directed"`
	Description string `yaml:"description"`
	Sentiment   string `yaml:"sentiment"`
	Strength    int    `yaml:"strength"`
	Tense       string `yaml:"tense"`
}

// RawCharacter is the unenriched cast entry from the metadata provider.
type RawCharacter struct {
	Name      string `yaml:"tmdb_character_name"`
	ActorName string `yaml:"tmdb_actor_name"`
	PersonID  int    `yaml:"tmdb_person_id"`
}

// MovieRecord is the persisted unit: identity plus every field group.
type MovieRecord struct {
	Title  string `yaml:"movie_title"`
	Year   string `yaml:"movie_year"`
	TMDBID int    `yaml:"tmdb_movie_id,omitempty"`
	IMDBID string `yaml:"imdb_id,omitempty"`

	// initial_data
	CharacterProfile     string        `yaml:"character_profile,omitempty"`
	CriticalReception    string        `yaml:"critical_reception,omitempty"`
	VisualStyle          string        `yaml:"visual_style,omitempty"`
	MostTalkedAboutTopic string        `yaml:"most_talked_about_related_topic,omitempty"`
	ComplexSearchQueries []string      `yaml:"complex_search_queries,omitempty"`
	Sequel               *RelatedMovie `yaml:"sequel,omitempty"`
	Prequel              *RelatedMovie `yaml:"prequel,omitempty"`
	SpinOffOf            *RelatedMovie `yaml:"spin_off_of,omitempty"`
	SpinOff              *RelatedMovie `yaml:"spin_off,omitempty"`
	RemakeOf             *RelatedMovie `yaml:"remake_of,omitempty"`
	Remake               *RelatedMovie `yaml:"remake,omitempty"`

	// characters_and_relations
	Characters    []Character    `yaml:"character_list,omitempty"`
	Relationships []Relationship `yaml:"relationships,omitempty"`

	// analytical_data
	BigFive         *BigFiveProfile     `yaml:"character_profile_big5,omitempty"`
	MyersBriggs     *MyersBriggsProfile `yaml:"character_profile_myersbriggs,omitempty"`
	GenreMix        map[string]int      `yaml:"genre_mix,omitempty"`
	MatchingTags    map[string]string   `yaml:"matching_tags,omitempty"`
	Recommendations []Recommendation    `yaml:"recommendations,omitempty"`

	// tmdb_review_summary
	ReviewSummary string `yaml:"tmdb_user_review_summary,omitempty"`

	// constrained_plot_with_relations
	ConstrainedPlot string `yaml:"plot_with_character_constraints_and_relations,omitempty"`

	// provider-sourced, non-LLM
	RawCharacters []RawCharacter `yaml:"raw_character_list,omitempty"`
}

// Identity keys a record for deduplication. IMDb ID wins when both sides
// have one; otherwise title+year compares case-insensitively on title.
type Identity struct {
	Title  string
	Year   string
	TMDBID int
	IMDBID string
}

// Identity returns the record's identity.
func (r *MovieRecord) Identity() Identity {
	return Identity{Title: r.Title, Year: r.Year, TMDBID: r.TMDBID, IMDBID: r.IMDBID}
}

// Matches reports whether two identities refer to the same movie.
func (id Identity) Matches(other Identity) bool {
	if id.IMDBID != "" && other.IMDBID != "" {
		return id.IMDBID == other.IMDBID
	}
	return strings.EqualFold(strings.TrimSpace(id.Title), strings.TrimSpace(other.Title)) &&
		strings.TrimSpace(id.Year) == strings.TrimSpace(other.Year)
}

// Clone returns a deep copy of the record, used as the working state for an
// update so a failed session never mutates the loaded collection entry.
func (r *MovieRecord) Clone() *MovieRecord {
	cp := *r

	cp.ComplexSearchQueries = append([]string(nil), r.ComplexSearchQueries...)
	cp.Characters = cloneCharacters(r.Characters)
	cp.Relationships = append([]Relationship(nil), r.Relationships...)
	cp.Recommendations = append([]Recommendation(nil), r.Recommendations...)
	cp.RawCharacters = append([]RawCharacter(nil), r.RawCharacters...)

	cp.Sequel = cloneRelated(r.Sequel)
	cp.Prequel = cloneRelated(r.Prequel)
	cp.SpinOffOf = cloneRelated(r.SpinOffOf)
	cp.SpinOff = cloneRelated(r.SpinOff)
	cp.RemakeOf = cloneRelated(r.RemakeOf)
	cp.Remake = cloneRelated(r.Remake)

	if r.BigFive != nil {
		b := *r.BigFive
		cp.BigFive = &b
	}
	if r.MyersBriggs != nil {
		m := *r.MyersBriggs
		cp.MyersBriggs = &m
	}
	if r.GenreMix != nil {
		cp.GenreMix = make(map[string]int, len(r.GenreMix))
		for k, v := range r.GenreMix {
			cp.GenreMix[k] = v
		}
	}
	if r.MatchingTags != nil {
		cp.MatchingTags = make(map[string]string, len(r.MatchingTags))
		for k, v := range r.MatchingTags {
			cp.MatchingTags[k] = v
		}
	}

	return &cp
}

func cloneRelated(rm *RelatedMovie) *RelatedMovie {
	if rm == nil {
		return nil
	}
	cp := *rm
	return &cp
}

func cloneCharacters(chars []Character) []Character {
	if chars == nil {
		return nil
	}
	out := make([]Character, len(chars))
	for i, c := range chars {
		out[i] = c
		out[i].Aliases = append([]string(nil), c.Aliases...)
	}
	return out
}
