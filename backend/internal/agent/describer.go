package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"research-graph/backend/internal/constants"
	"research-graph/backend/internal/synthesis"
)

// maxDescriptionRunes bounds descriptions written for researched concepts
const maxDescriptionRunes = 280

// Describer writes the description of a concept once it has been researched
// on its own. The result replaces the placeholder description and must not
// contain it.
type Describer interface {
	Describe(ctx context.Context, topic string, result *synthesis.Result) (string, error)
}

// SummaryDescriber describes a concept with an excerpt of its research summary
type SummaryDescriber struct{}

// Describe implements Describer
func (SummaryDescriber) Describe(_ context.Context, topic string, result *synthesis.Result) (string, error) {
	excerpt := ""
	if result != nil {
		excerpt = summaryExcerpt(result.Summary)
	}
	if excerpt == "" {
		return fmt.Sprintf("Explored in research on %s.", topic), nil
	}
	return clean(fmt.Sprintf("Explored in research on %s: %s", topic, excerpt)), nil
}

// summaryExcerpt returns the first summary line that is page text rather than a source delimiter
func summaryExcerpt(summary string) string {
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--- ") {
			continue
		}
		return line
	}
	return ""
}

// Completer is the part of the LLM adapter the describer needs
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

// LLMDescriber asks a language model for a one-sentence definition
type LLMDescriber struct {
	llm Completer
}

// NewLLMDescriber creates a describer backed by llm
func NewLLMDescriber(llm Completer) *LLMDescriber {
	return &LLMDescriber{llm: llm}
}

const describeSystemPrompt = "You write one-sentence, encyclopedia-style definitions of concepts. " +
	"Answer with the definition only."

// Describe implements Describer
func (d *LLMDescriber) Describe(ctx context.Context, topic string, result *synthesis.Result) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Define %q in one sentence.\n", topic)
	if result != nil {
		fmt.Fprintf(&b, "\nResearch excerpt:\n%s\n", result.Summary)
		if len(result.AllConcepts) > 0 {
			fmt.Fprintf(&b, "\nRelated concepts: %s\n", strings.Join(result.AllConcepts, ", "))
		}
	}

	description, err := d.llm.Complete(ctx, describeSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("failed to describe %q: %w", topic, err)
	}
	description = clean(description)
	if description == "" {
		return "", errors.New("empty description")
	}
	return description, nil
}

// clean flattens a description onto one line, strips the placeholder marker and bounds its length
func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, constants.SentinelDescription, "Related to")
	runes := []rune(s)
	if len(runes) > maxDescriptionRunes {
		s = string(runes[:maxDescriptionRunes]) + "..."
	}
	return s
}
