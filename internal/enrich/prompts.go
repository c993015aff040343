package enrich

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/cinegraph/cinegraph/internal/catalog"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.New("prompts").ParseFS(promptFS, "prompts/*.tmpl"))

// systemPrompt is shared by every generation stage.
const systemPrompt = "You are a film metadata analyst. You answer with a " +
	"single valid YAML document and nothing else: no prose, no markdown, " +
	"no code fences."

// promptData is the union of everything the stage templates interpolate.
type promptData struct {
	Title            string
	Year             string
	WordCeiling      int
	DescWords        int
	RelsWords        int
	Cast             string
	CharacterProfile string
	Names            string
	Relationships    string
	Reviews          string
}

// buildStagePrompt renders the user prompt for a stage from the movie
// context and the configured word ceilings.
func buildStagePrompt(stage Stage, mc MovieContext, budget Budgeter) (string, error) {
	data := promptData{
		Title:            mc.Title,
		Year:             mc.Year,
		WordCeiling:      budget.WordCeiling(stage, len(mc.Cast)),
		DescWords:        budget.words.CharacterDescWords,
		RelsWords:        budget.words.CharacterRelsWords,
		CharacterProfile: mc.CharacterProfile,
		Names:            strings.Join(characterNames(mc.Characters), ", "),
		Reviews:          strings.Join(mc.Reviews, "\n"),
	}

	if stage == StageCharacters {
		cast, err := yamlBlock(mc.Cast)
		if err != nil {
			return "", err
		}
		data.Cast = cast
	}
	if stage == StageConstrainedPlot {
		rels, err := yamlBlock(relationshipDigest(mc.Relationships))
		if err != nil {
			return "", err
		}
		data.Relationships = rels
	}

	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, string(stage)+".tmpl", data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", stage, err)
	}
	return buf.String(), nil
}

// relationshipDigest trims relationships down to what the plot prompt
// needs; strength and tense only add noise there.
func relationshipDigest(rels []catalog.Relationship) []map[string]any {
	out := make([]map[string]any, 0, len(rels))
	for _, r := range rels {
		out = append(out, map[string]any{
			"source":      r.Source,
			"target":      r.Target,
			"type":        r.Type,
			"description": r.Description,
		})
	}
	return out
}

func yamlBlock(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt data: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}
