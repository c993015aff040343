package enrich

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/llm"
	"github.com/cinegraph/cinegraph/internal/transcript"
)

// scriptedGenerator returns canned responses keyed by a substring of the
// user prompt, or a fixed response/error.
type scriptedGenerator struct {
	response string
	err      error
	requests []llm.Request
}

func (g *scriptedGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func testRunner(t *testing.T, gen Generator) *Runner {
	t.Helper()
	budget, err := NewBudgeter(testLLMConfig())
	require.NoError(t, err)
	return NewRunner(gen, budget, nil, zerolog.Nop())
}

func TestRunnerSuccess(t *testing.T) {
	gen := &scriptedGenerator{
		response: "movie_title: The Matrix\nmovie_year: \"1999\"\ncharacter_profile: Neo is the One.",
	}
	runner := testRunner(t, gen)

	result := runner.Run(context.Background(), StageInitialData, MovieContext{Title: "The Matrix", Year: "1999"})
	require.False(t, result.Failed())
	require.IsType(t, &InitialDataOutput{}, result.Output)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, 980, req.MaxTokens, "700 words at ratio 1.4")
	assert.Contains(t, req.UserPrompt, `"The Matrix" (1999)`)
	assert.Contains(t, req.UserPrompt, "under 700 words")
	assert.NotEmpty(t, req.SystemPrompt)
}

func TestRunnerCharactersTokenCeiling(t *testing.T) {
	gen := &scriptedGenerator{response: "character_list:\n  - name: Neo\n    actor_name: Keanu Reeves\nrelationships: []"}
	runner := testRunner(t, gen)

	mc := MovieContext{
		Title: "The Matrix",
		Year:  "1999",
		Cast: []catalog.RawCharacter{
			{Name: "Neo", ActorName: "Keanu Reeves", PersonID: 6384},
			{Name: "Trinity", ActorName: "Carrie-Anne Moss", PersonID: 530},
		},
	}
	result := runner.Run(context.Background(), StageCharacters, mc)
	require.False(t, result.Failed())

	// 300 + 2*(60+80) = 580 words -> ceil(580*1.4) = 812 tokens
	assert.Equal(t, 812, gen.requests[0].MaxTokens)
	assert.Contains(t, gen.requests[0].UserPrompt, "Keanu Reeves")
}

func TestRunnerFailureReasons(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		gen := &scriptedGenerator{err: errors.New("backend down")}
		result := testRunner(t, gen).Run(context.Background(), StageInitialData, MovieContext{Title: "X"})
		require.True(t, result.Failed())
		assert.Equal(t, FailProvider, result.Reason)
	})

	t.Run("decode error", func(t *testing.T) {
		gen := &scriptedGenerator{response: "I cannot help with that request."}
		result := testRunner(t, gen).Run(context.Background(), StageInitialData, MovieContext{Title: "X"})
		require.True(t, result.Failed())
		assert.Equal(t, FailDecode, result.Reason)
	})

	t.Run("invalid output", func(t *testing.T) {
		gen := &scriptedGenerator{response: "movie_title: Wrong Movie\ncharacter_profile: of the wrong movie"}
		result := testRunner(t, gen).Run(context.Background(), StageInitialData, MovieContext{Title: "Right Movie"})
		require.True(t, result.Failed())
		assert.Equal(t, FailInvalid, result.Reason)
	})
}

func TestRunnerTranscriptKeepsRawOnDecodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.log")
	tw, err := transcript.Open(path)
	require.NoError(t, err)

	gen := &scriptedGenerator{response: "total garbage, not yaml at all"}
	budget, err := NewBudgeter(testLLMConfig())
	require.NoError(t, err)
	runner := NewRunner(gen, budget, tw, zerolog.Nop())

	result := runner.Run(context.Background(), StageReviewSummary, MovieContext{Title: "The Matrix", Year: "1999", Reviews: []string{"Review by a:\nfine\n---"}})
	require.True(t, result.Failed())
	require.NoError(t, tw.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	data := string(raw)
	assert.Contains(t, data, "kind=request")
	assert.Contains(t, data, "kind=response")
	assert.Contains(t, data, "total garbage", "raw content must be on disk even though decoding failed")
	assert.True(t, strings.Index(data, "kind=request") < strings.Index(data, "kind=response"))
}
