// Package synthesis extracts concepts and candidate relationships from research text.
package synthesis

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"research-graph/backend/internal/constants"
	"research-graph/backend/internal/knowledge"
	"research-graph/backend/pkg/logger"
)

var (
	tokenPattern    = regexp.MustCompile(`\w+`)
	numericPattern  = regexp.MustCompile(`^(?:[0-9]+(?:e[0-9]+)?|0x[0-9a-f]+|0o[0-7]+|0b[01]+)$`)
	sentencePattern = regexp.MustCompile(`[.!?]`)
)

// Result is the outcome of one synthesis pass
type Result struct {
	Summary string
	// AllConcepts are the top-frequency tokens, most frequent first
	AllConcepts []string
	// NewNodes are the concepts not yet present in the graph
	NewNodes []knowledge.Concept
	// NewEdges are unvalidated co-occurrence candidates
	NewEdges []knowledge.Relationship
}

// Empty reports whether the pass produced no concepts
func (r *Result) Empty() bool {
	return r == nil || len(r.AllConcepts) == 0
}

// Synthesizer turns raw research text into graph candidates
type Synthesizer struct {
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{logger: logger.Named("synthesis")}
}

// Synthesize extracts the summary, concepts and relationship candidates from
// rawText. graph is only read, to tell new concepts from known ones.
// Empty input yields a degenerate result with no concepts.
func (s *Synthesizer) Synthesize(rawText string, graph *knowledge.Graph) *Result {
	if strings.TrimSpace(rawText) == "" {
		s.logger.Warn("No research data to synthesize")
		return &Result{
			Summary:     constants.NoResearchSummary,
			AllConcepts: []string{},
			NewNodes:    []knowledge.Concept{},
			NewEdges:    []knowledge.Relationship{},
		}
	}

	summary := Summarize(rawText)
	concepts := ExtractConcepts(rawText)
	result := &Result{
		Summary:     summary,
		AllConcepts: concepts,
		NewNodes:    newNodes(concepts, summary, graph),
		NewEdges:    InferRelationships(rawText, concepts),
	}

	s.logger.Info("Synthesis complete",
		zap.Int("concepts", len(result.AllConcepts)),
		zap.Int("new_nodes", len(result.NewNodes)),
		zap.Int("candidate_edges", len(result.NewEdges)),
	)
	return result
}

// Summarize returns the first non-empty lines of text, unmodified
func Summarize(text string) string {
	lines := make([]string, 0, constants.SummaryLines)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == constants.SummaryLines {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// ExtractConcepts returns the most frequent tokens of text that are neither
// stop words nor numbers. Equal counts keep first-encounter order.
func ExtractConcepts(text string) []string {
	counts := make(map[string]int)
	var order []string
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if IsStopWord(token) || isNumeric(token) {
			continue
		}
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > constants.MaxConcepts {
		order = order[:constants.MaxConcepts]
	}
	if order == nil {
		return []string{}
	}
	return order
}

// isNumeric matches the tokens a numeric conversion accepts:
// decimal integers, exponents and 0x/0o/0b literals
func isNumeric(token string) bool {
	return numericPattern.MatchString(token)
}

// InferRelationships pairs up concepts mentioned in the same sentence.
// Each unordered pair is emitted once, with the first sentence as context.
func InferRelationships(text string, concepts []string) []knowledge.Relationship {
	edges := []knowledge.Relationship{}
	seen := make(map[string]struct{})

	for _, sentence := range sentencePattern.Split(text, -1) {
		lower := strings.ToLower(sentence)
		var present []string
		for _, c := range concepts {
			if strings.Contains(lower, c) {
				present = append(present, c)
			}
		}
		if len(present) < 2 {
			continue
		}

		context := strings.TrimSpace(sentence)
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				key := knowledge.RelationshipKey(present[i], present[j])
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				edges = append(edges, knowledge.Relationship{
					Source:  present[i],
					Target:  present[j],
					Label:   constants.RelatedToLabel,
					Context: context,
				})
			}
		}
	}
	return edges
}

// newNodes returns the concepts absent from graph with the placeholder description
func newNodes(concepts []string, summary string, graph *knowledge.Graph) []knowledge.Concept {
	known := map[string]struct{}{}
	if graph != nil {
		known = graph.NodeIDs()
	}

	description := constants.SentinelDescription + " " + truncateRunes(summary, constants.SummaryDescriptionRunes) + "..."
	nodes := []knowledge.Concept{}
	for _, c := range concepts {
		if _, exists := known[c]; exists {
			continue
		}
		nodes = append(nodes, knowledge.Concept{ID: c, Description: description})
	}
	return nodes
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
