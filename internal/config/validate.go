package config

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks for configuration defects that must abort a session before
// any provider call is made.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeScanNew, ModeUpdateAll, ModeUpdateByList, ModeUpdateByRange:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}

	if c.Mode == ModeScanNew {
		if c.Session.NewMovieQuota <= 0 {
			return fmt.Errorf("%w: session.new_movie_quota must be positive in scan-new mode", ErrInvalidConfig)
		}
		if c.Session.MaxTopRatedPages <= 0 {
			return fmt.Errorf("%w: session.max_top_rated_pages must be positive in scan-new mode", ErrInvalidConfig)
		}
	}
	if c.Mode == ModeUpdateByList && len(c.Session.Targets) == 0 {
		return fmt.Errorf("%w: update-by-list mode requires session.targets", ErrInvalidConfig)
	}
	if c.Mode == ModeUpdateByRange && c.Session.IndexRange == "" {
		return fmt.Errorf("%w: update-by-range mode requires session.index_range", ErrInvalidConfig)
	}

	if c.LLM.WordsToTokensRatio <= 0 {
		return fmt.Errorf("%w: llm.words_to_tokens_ratio must be positive", ErrInvalidConfig)
	}
	for name, words := range map[string]int{
		"llm.initial_data_words":     c.LLM.InitialDataWords,
		"llm.characters_base_words":  c.LLM.CharactersBaseWords,
		"llm.character_desc_words":   c.LLM.CharacterDescWords,
		"llm.character_rels_words":   c.LLM.CharacterRelsWords,
		"llm.analytical_words":       c.LLM.AnalyticalWords,
		"llm.review_summary_words":   c.LLM.ReviewSummaryWords,
		"llm.constrained_plot_words": c.LLM.ConstrainedPlotWords,
	} {
		if words <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}

	if c.Output.CollectionPath == "" {
		return fmt.Errorf("%w: output.collection_path is required", ErrInvalidConfig)
	}

	if c.Stages.FetchImages && c.Images.SavePath == "" {
		return fmt.Errorf("%w: images.save_path is required when stages.fetch_images is enabled", ErrInvalidConfig)
	}

	return nil
}
