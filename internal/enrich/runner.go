package enrich

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/llm"
	"github.com/cinegraph/cinegraph/internal/transcript"
)

const defaultTemperature = 0.7

// FailureReason classifies a stage failure so the session summary can tell
// provider trouble from undecodable content.
type FailureReason string

const (
	FailProvider FailureReason = "provider_error"
	FailDecode   FailureReason = "decode_error"
	FailInvalid  FailureReason = "invalid_output"
	FailInternal FailureReason = "internal_error"
)

// StageResult is the outcome of one stage invocation for one movie.
type StageResult struct {
	Stage  Stage
	Output StageOutput
	Reason FailureReason
	Err    error
}

// Failed reports whether the stage produced no usable output.
func (r StageResult) Failed() bool { return r.Err != nil }

// MovieContext carries everything the prompt builder and output finalizers
// need about the movie being processed. The session fills it from the
// working record, so earlier stage outputs feed later stages.
type MovieContext struct {
	Title            string
	Year             string
	Cast             []catalog.RawCharacter
	Characters       []catalog.Character
	Relationships    []catalog.Relationship
	CharacterProfile string
	Reviews          []string
}

func (mc MovieContext) label() string {
	if mc.Year == "" {
		return mc.Title
	}
	return fmt.Sprintf("%s (%s)", mc.Title, mc.Year)
}

// Runner executes a single generation stage: build the prompt, record it,
// call the backend, record the raw response, then decode and finalize. The
// transcript write happens before decoding so raw content survives
// decoding failures.
type Runner struct {
	gen        Generator
	budget     Budgeter
	transcript *transcript.Writer
	logger     zerolog.Logger
}

// NewRunner creates a stage runner.
func NewRunner(gen Generator, budget Budgeter, tw *transcript.Writer, logger zerolog.Logger) *Runner {
	return &Runner{
		gen:        gen,
		budget:     budget,
		transcript: tw,
		logger:     logger.With().Str("component", "runner").Logger(),
	}
}

// Run executes one stage for one movie. It never mutates the record; the
// caller merges the returned output.
func (r *Runner) Run(ctx context.Context, stage Stage, mc MovieContext) StageResult {
	log := r.logger.With().Str("stage", string(stage)).Str("movie", mc.label()).Logger()

	prompt, err := buildStagePrompt(stage, mc, r.budget)
	if err != nil {
		return StageResult{Stage: stage, Reason: FailInternal, Err: err}
	}

	tokens := r.budget.StageTokens(stage, len(mc.Cast))
	r.transcript.Record(string(stage), mc.label(), "request", prompt)

	raw, err := r.gen.Generate(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    tokens,
		Temperature:  defaultTemperature,
	})
	if err != nil {
		r.transcript.Record(string(stage), mc.label(), "failure", err.Error())
		log.Warn().Err(err).Msg("generation failed")
		return StageResult{Stage: stage, Reason: FailProvider, Err: err}
	}

	r.transcript.Record(string(stage), mc.label(), "response", raw)

	out := newOutput(stage)
	if out == nil {
		return StageResult{Stage: stage, Reason: FailInternal, Err: fmt.Errorf("no output type for stage %s", stage)}
	}
	if err := llm.Decode(raw, out); err != nil {
		log.Warn().Err(err).Msg("response did not decode")
		return StageResult{Stage: stage, Reason: FailDecode, Err: err}
	}
	if err := out.finalize(mc, log); err != nil {
		log.Warn().Err(err).Msg("response failed structural checks")
		return StageResult{Stage: stage, Reason: FailInvalid, Err: err}
	}

	log.Debug().Int("maxTokens", tokens).Msg("stage succeeded")
	return StageResult{Stage: stage, Output: out}
}
