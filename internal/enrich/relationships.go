package enrich

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/catalog"
)

// NormalizeRelationships rewrites relationship endpoints to canonical
// character names via the alias map, drops self-relations and relations
// whose endpoints resolve to no known character, and collapses duplicates.
// Two undirected relations over the same pair and type are one relation
// regardless of endpoint order.
func NormalizeRelationships(chars []catalog.Character, rels []catalog.Relationship, logger zerolog.Logger) []catalog.Relationship {
	canonical := make(map[string]string)
	for _, c := range chars {
		canonical[nameKey(c.Name)] = c.Name
		for _, a := range c.Aliases {
			if k := nameKey(a); k != "" {
				if _, taken := canonical[k]; !taken {
					canonical[k] = c.Name
				}
			}
		}
	}

	seen := make(map[string]bool)
	out := make([]catalog.Relationship, 0, len(rels))
	for _, r := range rels {
		src, okSrc := canonical[nameKey(r.Source)]
		tgt, okTgt := canonical[nameKey(r.Target)]
		if !okSrc || !okTgt {
			logger.Debug().
				Str("source", r.Source).
				Str("target", r.Target).
				Msg("dropping relationship with unknown endpoint")
			continue
		}
		if src == tgt {
			logger.Debug().Str("name", src).Msg("dropping self-relationship")
			continue
		}

		r.Source = src
		r.Target = tgt

		key := relationshipKey(r)
		if seen[key] {
			logger.Debug().
				Str("source", src).
				Str("target", tgt).
				Str("type", r.Type).
				Msg("dropping duplicate relationship")
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// relationshipKey is the dedup key: directed relations keep endpoint order,
// undirected ones sort it away.
func relationshipKey(r catalog.Relationship) string {
	a, b := nameKey(r.Source), nameKey(r.Target)
	if !r.Directed && a > b {
		a, b = b, a
	}
	kind := "u"
	if r.Directed {
		kind = "d"
	}
	return kind + "|" + a + "|" + b + "|" + strings.ToLower(strings.TrimSpace(r.Type))
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// characterNames returns the canonical names in list order.
func characterNames(chars []catalog.Character) []string {
	names := make([]string, 0, len(chars))
	for _, c := range chars {
		names = append(names, c.Name)
	}
	return names
}
