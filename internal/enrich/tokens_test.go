package enrich

import (
	"testing"

	"github.com/cinegraph/cinegraph/internal/config"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		WordsToTokensRatio:   1.4,
		InitialDataWords:     700,
		CharactersBaseWords:  300,
		CharacterDescWords:   60,
		CharacterRelsWords:   80,
		AnalyticalWords:      900,
		ReviewSummaryWords:   250,
		ConstrainedPlotWords: 400,
	}
}

func TestBudgeterTokensRoundsUp(t *testing.T) {
	b, err := NewBudgeter(testLLMConfig())
	if err != nil {
		t.Fatalf("NewBudgeter failed: %v", err)
	}

	tests := []struct {
		words int
		want  int
	}{
		{700, 980},  // 700 * 1.4 = 980 exactly
		{250, 350},  // exact
		{3, 5},      // 4.2 rounds up
		{1, 2},      // 1.4 rounds up
	}
	for _, tt := range tests {
		if got := b.Tokens(tt.words); got != tt.want {
			t.Errorf("Tokens(%d) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

func TestBudgeterCharacterCeilingScalesWithCast(t *testing.T) {
	b, err := NewBudgeter(testLLMConfig())
	if err != nil {
		t.Fatalf("NewBudgeter failed: %v", err)
	}

	// 300 + 10*(60+80) = 1700 words
	if got := b.WordCeiling(StageCharacters, 10); got != 1700 {
		t.Errorf("WordCeiling = %d, want 1700", got)
	}
	if got := b.StageTokens(StageCharacters, 10); got != 2380 {
		t.Errorf("StageTokens = %d, want 2380", got)
	}

	// Fixed ceilings ignore the cast size.
	if got := b.WordCeiling(StageInitialData, 10); got != 700 {
		t.Errorf("initial data ceiling = %d, want 700", got)
	}
	if got := b.WordCeiling(StageConstrainedPlot, 10); got != 400 {
		t.Errorf("plot ceiling = %d, want 400", got)
	}
}

func TestNewBudgeterRejectsBadConfig(t *testing.T) {
	cfg := testLLMConfig()
	cfg.WordsToTokensRatio = 0
	if _, err := NewBudgeter(cfg); err == nil {
		t.Error("expected error for zero ratio")
	}

	cfg = testLLMConfig()
	cfg.AnalyticalWords = -1
	if _, err := NewBudgeter(cfg); err == nil {
		t.Error("expected error for negative word ceiling")
	}
}
