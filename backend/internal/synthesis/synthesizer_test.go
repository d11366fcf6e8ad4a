package synthesis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-graph/backend/internal/constants"
	"research-graph/backend/internal/knowledge"
)

const mlText = "Machine learning enables pattern recognition. Pattern recognition supports machine learning."

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"drops empty lines", "a\n\n  \nb\n", "a\nb"},
		{"keeps first five", "1\n2\n\n3\n4\n5\n6\n7", "1\n2\n3\n4\n5"},
		{"lines are not trimmed", "  indented\nplain", "  indented\nplain"},
		{"no lines", "\n\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.in))
		})
	}
}

func TestExtractConcepts_FrequencyThenEncounterOrder(t *testing.T) {
	concepts := ExtractConcepts(mlText)
	assert.Equal(t, []string{"machine", "learning", "pattern", "recognition", "enables", "supports"}, concepts)
}

func TestExtractConcepts_FiltersStopWordsAndNumbers(t *testing.T) {
	text := "The 2024 model and the 3e5 tokens from 0x1f content; however also START end. " +
		"Version 1_000 beats infinity and nan and v2"
	concepts := ExtractConcepts(text)

	for _, c := range concepts {
		assert.False(t, IsStopWord(c), c)
		assert.False(t, isNumeric(c), c)
	}
	assert.NotContains(t, concepts, "2024")
	assert.NotContains(t, concepts, "3e5")
	assert.NotContains(t, concepts, "0x1f")
	assert.Contains(t, concepts, "1_000")
	assert.Contains(t, concepts, "infinity")
	assert.Contains(t, concepts, "nan")
	assert.Contains(t, concepts, "v2")
}

func TestExtractConcepts_TopTen(t *testing.T) {
	var words []string
	for i := 0; i < 15; i++ {
		word := "word" + string(rune('a'+i))
		for j := 0; j <= i; j++ {
			words = append(words, word)
		}
	}
	concepts := ExtractConcepts(strings.Join(words, " "))

	require.Len(t, concepts, constants.MaxConcepts)
	assert.Equal(t, "wordo", concepts[0])
	assert.Equal(t, "wordf", concepts[9])
}

func TestIsNumeric(t *testing.T) {
	for _, tok := range []string{"0", "42", "007", "1e10", "0x1f", "0o17", "0b101"} {
		assert.True(t, isNumeric(tok), tok)
	}
	for _, tok := range []string{"1e", "e5", "0x", "0x1p3", "0b2", "1_0", "inf", "nan", "12abc"} {
		assert.False(t, isNumeric(tok), tok)
	}
}

func TestInferRelationships_DedupesPairsFirstContextWins(t *testing.T) {
	edges := InferRelationships(mlText, []string{"machine", "pattern"})

	require.Len(t, edges, 1)
	assert.Equal(t, "machine", edges[0].Source)
	assert.Equal(t, "pattern", edges[0].Target)
	assert.Equal(t, "Machine learning enables pattern recognition", edges[0].Context)
	assert.Equal(t, constants.RelatedToLabel, edges[0].Label)
	assert.False(t, edges[0].Validated)
}

func TestInferRelationships_AtMostOneEdgePerPair(t *testing.T) {
	concepts := ExtractConcepts(mlText)
	edges := InferRelationships(mlText, concepts)

	keys := map[string]int{}
	for _, e := range edges {
		keys[e.Key()]++
	}
	for key, n := range keys {
		assert.Equal(t, 1, n, key)
	}
	// 4 shared concepts plus one unique verb per sentence
	assert.Len(t, edges, 6+4+4)
}

func TestInferRelationships_SentenceTerminators(t *testing.T) {
	text := "Is graph theory useful? Graph search works! Theory only."
	edges := InferRelationships(text, []string{"graph", "theory", "search"})

	require.Len(t, edges, 2)
	assert.Equal(t, "graph-theory", edges[0].Key())
	assert.Equal(t, "Is graph theory useful", edges[0].Context)
	assert.Equal(t, "graph-search", edges[1].Key())
}

func TestSynthesize_NewNodesAreDisjointFromGraph(t *testing.T) {
	graph := knowledge.NewGraph()
	graph.AddConcepts([]knowledge.Concept{{ID: "machine", Description: "Explored."}})

	result := NewSynthesizer().Synthesize(mlText, graph)

	assert.Equal(t, mlText, result.Summary)
	assert.Len(t, result.AllConcepts, 6)
	for _, n := range result.NewNodes {
		assert.NotEqual(t, "machine", n.ID)
		assert.False(t, n.Validated)
		assert.True(t, n.Unexplored())
		assert.Equal(t, "A concept related to "+mlText[:50]+"...", n.Description)
	}
	assert.Len(t, result.NewNodes, 5)
	assert.NotEmpty(t, result.NewEdges)
}

func TestSynthesize_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "  \n\t"} {
		result := NewSynthesizer().Synthesize(in, knowledge.NewGraph())

		assert.Equal(t, "No research data.", result.Summary)
		assert.Empty(t, result.AllConcepts)
		assert.Empty(t, result.NewNodes)
		assert.Empty(t, result.NewEdges)
		assert.True(t, result.Empty())
	}
}

func TestSynthesize_ShortSummaryDescription(t *testing.T) {
	result := NewSynthesizer().Synthesize("Graphs connect nodes. Graphs", nil)

	require.NotEmpty(t, result.NewNodes)
	assert.Equal(t, "A concept related to Graphs connect nodes. Graphs...", result.NewNodes[0].Description)
}
