package enrich

import (
	"fmt"
	"math"

	"github.com/cinegraph/cinegraph/internal/config"
)

// Budgeter converts per-stage word ceilings into provider token ceilings.
// Prompts speak in words because models follow word counts far better than
// token counts; the provider cap still needs tokens.
type Budgeter struct {
	ratio float64
	words config.LLMConfig
}

// NewBudgeter validates the ratio and word ceilings once at session start so
// a bad budget fails the run before any provider call.
func NewBudgeter(cfg config.LLMConfig) (Budgeter, error) {
	if cfg.WordsToTokensRatio <= 0 {
		return Budgeter{}, fmt.Errorf("words_to_tokens_ratio must be positive, got %v", cfg.WordsToTokensRatio)
	}
	for name, v := range map[string]int{
		"initial_data_words":     cfg.InitialDataWords,
		"characters_base_words":  cfg.CharactersBaseWords,
		"character_desc_words":   cfg.CharacterDescWords,
		"character_rels_words":   cfg.CharacterRelsWords,
		"analytical_words":       cfg.AnalyticalWords,
		"review_summary_words":   cfg.ReviewSummaryWords,
		"constrained_plot_words": cfg.ConstrainedPlotWords,
	} {
		if v <= 0 {
			return Budgeter{}, fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return Budgeter{ratio: cfg.WordsToTokensRatio, words: cfg}, nil
}

// Tokens converts a word ceiling to a token ceiling, rounding up so the cap
// never truncates a response that stayed within its word budget.
func (b Budgeter) Tokens(words int) int {
	return int(math.Ceil(float64(words) * b.ratio))
}

// WordCeiling returns the configured word ceiling for a stage. The
// characters stage scales with the cast size: each character adds room for
// its description and its relationship entries.
func (b Budgeter) WordCeiling(stage Stage, characterCount int) int {
	switch stage {
	case StageInitialData:
		return b.words.InitialDataWords
	case StageCharacters:
		return b.words.CharactersBaseWords + characterCount*(b.words.CharacterDescWords+b.words.CharacterRelsWords)
	case StageAnalytical:
		return b.words.AnalyticalWords
	case StageReviewSummary:
		return b.words.ReviewSummaryWords
	case StageConstrainedPlot:
		return b.words.ConstrainedPlotWords
	default:
		return 0
	}
}

// StageTokens returns the token ceiling for a stage.
func (b Budgeter) StageTokens(stage Stage, characterCount int) int {
	return b.Tokens(b.WordCeiling(stage, characterCount))
}
