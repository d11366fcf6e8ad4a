// Package report renders the state of knowledge about a topic into build files.
package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"research-graph/backend/internal/knowledge"
	"research-graph/backend/internal/synthesis"
	"research-graph/backend/pkg/logger"
)

// Build file names
const (
	ReadmeFile  = "README.md"
	GraphFile   = "knowledge_graph.json"
	SummaryFile = "research_summary.txt"
)

var (
	whitespacePattern = regexp.MustCompile(`[\s\p{Zs}]+`)
	unsafeNamePattern = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// Build is one rendered report, keyed by file name
type Build struct {
	Name  string            `json:"name"`
	Topic string            `json:"topic"`
	Files map[string]string `json:"files"`
}

// Builder renders builds
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a report builder
func NewBuilder() *Builder {
	return &Builder{logger: logger.Named("report")}
}

// Name derives a build name from a topic
func Name(topic string) string {
	return unsafeNamePattern.ReplaceAllString(whitespacePattern.ReplaceAllString(topic, "_"), "")
}

// Build renders the report for topic. It returns nil when the synthesis has
// no summary or no concepts, in which case nothing should be persisted.
func (b *Builder) Build(result *synthesis.Result, graph *knowledge.Graph, topic string) (*Build, error) {
	if result == nil || result.Summary == "" || len(result.AllConcepts) == 0 {
		b.logger.Warn("Invalid synthesized data, skipping build", zap.String("topic", topic))
		return nil, nil
	}
	if graph == nil {
		graph = knowledge.NewGraph()
	}

	snapshot, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph snapshot: %w", err)
	}

	build := &Build{
		Name:  Name(topic),
		Topic: topic,
		Files: map[string]string{
			ReadmeFile:  renderReadme(topic, result, graph),
			GraphFile:   string(snapshot),
			SummaryFile: result.Summary,
		},
	}

	b.logger.Info("Build structure created",
		zap.String("topic", topic),
		zap.String("name", build.Name),
	)
	return build, nil
}

func renderReadme(topic string, result *synthesis.Result, graph *knowledge.Graph) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Research Project: %s\n\n", topic)
	fmt.Fprintf(&sb, "## Summary\n%s\n\n", result.Summary)
	fmt.Fprintf(&sb, "## Key Concepts\n- %s\n\n", strings.Join(result.AllConcepts, "\n- "))
	sb.WriteString("## Knowledge Graph\n```mermaid\n")
	sb.WriteString(RenderMermaid(graph, topic))
	sb.WriteString("```\n")
	return sb.String()
}
