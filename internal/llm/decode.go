package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUndecodable = errors.New("content is not valid JSON or YAML")

var fencedBlock = regexp.MustCompile(`(?is)^\s*` + "```" + `(?:[a-z0-9\-_]+)?\s*(.*?)\s*` + "```" + `\s*$`)

// StripCodeFences removes markdown code fences and leading json/yaml
// language tags from model output. Stripping repeats until the text stops
// changing, so nested or partial fences are handled too.
func StripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)

	for {
		previous := text

		if m := fencedBlock.FindStringSubmatch(text); m != nil {
			text = strings.TrimSpace(m[1])
			continue
		}

		if strings.HasPrefix(text, "```") {
			text = text[3:]
			// A language tag may follow the opening fence on its own line.
			if idx := strings.IndexByte(text, '\n'); idx != -1 {
				firstLine := strings.TrimSpace(text[:idx])
				if len(firstLine) > 0 && len(firstLine) < 10 && isWordLike(firstLine) {
					text = text[idx+1:]
				}
			}
			text = strings.TrimSpace(text)
		}

		if strings.HasSuffix(text, "```") {
			text = strings.TrimSpace(text[:len(text)-3])
		}

		lower := strings.ToLower(text)
		switch {
		case strings.HasPrefix(lower, "json\n"), strings.HasPrefix(lower, "yaml\n"):
			text = strings.TrimSpace(text[5:])
		case strings.HasPrefix(lower, "json "), strings.HasPrefix(lower, "yaml "):
			text = strings.TrimSpace(text[5:])
		}

		text = strings.TrimSpace(text)
		if text == previous {
			return text
		}
	}
}

// Decode strips code fences and decodes the content into v, trying JSON
// first and falling back to YAML. Models asked for one format frequently
// return the other.
func Decode(raw string, v any) error {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return fmt.Errorf("%w: empty after stripping fences", ErrUndecodable)
	}

	jsonErr := json.Unmarshal([]byte(cleaned), v)
	if jsonErr == nil {
		return nil
	}

	if yamlErr := yaml.Unmarshal([]byte(cleaned), v); yamlErr != nil {
		return fmt.Errorf("%w: json: %v; yaml: %v", ErrUndecodable, jsonErr, yamlErr)
	}
	return nil
}

func isWordLike(s string) bool {
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
			return false
		}
	}
	return true
}
