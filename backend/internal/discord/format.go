package discord

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"research-graph/backend/internal/agent"
)

// maxSummaryLines is how much of the summary goes into an announcement
const maxSummaryLines = 3

// FormatBold formats text as bold in Discord
func FormatBold(text string) string {
	return "**" + text + "**"
}

// FormatQuote formats text as a quote block in Discord
func FormatQuote(text string) string {
	lines := strings.Split(text, "\n")
	var quoted []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			quoted = append(quoted, "> "+line)
		}
	}
	return strings.Join(quoted, "\n")
}

// FormatList formats items as a Discord bullet list
func FormatList(items []string) string {
	list := make([]string, 0, len(items))
	for _, item := range items {
		list = append(list, "• "+item)
	}
	return strings.Join(list, "\n")
}

// FormatOutcome renders a completed cycle as a channel announcement
func FormatOutcome(o *agent.CycleOutcome) string {
	title := o.BuildName
	if title == "" {
		title = o.Topic
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 %s\n", FormatBold(title))
	fmt.Fprintf(&b, "Researched %s\n", FormatBold(o.Topic))

	if summary := summaryText(o.Summary); summary != "" {
		b.WriteString("\n" + FormatQuote(summary) + "\n")
	}
	if len(o.Concepts) > 0 {
		b.WriteString("\n" + FormatBold("Key concepts") + "\n")
		b.WriteString(FormatList(o.Concepts) + "\n")
	}

	fmt.Fprintf(&b, "\n%d new concepts, %d of %d relationships validated. Graph: %d concepts, %d relationships.\n",
		o.NewConcepts, o.Validated, o.Candidates, o.GraphNodes, o.GraphEdges)
	fmt.Fprintf(&b, "Next up: %s", FormatBold(o.NextTopic))
	return b.String()
}

// summaryText keeps the first page lines of a summary, dropping source delimiters
func summaryText(summary string) string {
	var lines []string
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--- ") {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxSummaryLines {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// splitMessage splits content into chunks of at most maxLength bytes,
// breaking at line ends first and word boundaries second
func splitMessage(content string, maxLength int) []string {
	if len(content) <= maxLength {
		return []string{content}
	}

	var chunks []string
	current := ""
	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}

	for _, line := range strings.Split(content, "\n") {
		// A single line that is too long is split on its own
		for len(line) > maxLength {
			flush()
			limit := runeBoundary(line, maxLength)
			splitIdx := strings.LastIndex(line[:limit], " ")
			if splitIdx < maxLength/2 {
				splitIdx = limit
			}
			chunks = append(chunks, line[:splitIdx])
			line = strings.TrimLeft(line[splitIdx:], " ")
		}

		switch {
		case current == "":
			current = line
		case len(current)+1+len(line) > maxLength:
			flush()
			current = line
		default:
			current += "\n" + line
		}
	}
	flush()
	return chunks
}

// runeBoundary backs limit up to the start of the rune it falls in. A rune
// wider than limit is kept whole.
func runeBoundary(s string, limit int) int {
	i := limit
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	if i == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return i
}
