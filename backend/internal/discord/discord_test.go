package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-graph/backend/internal/agent"
	"research-graph/backend/internal/constants"
)

type recordingSender struct {
	channels []string
	messages []string
	failAt   int
}

func (r *recordingSender) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if r.failAt > 0 && len(r.messages)+1 == r.failAt {
		return nil, errors.New("rate limited")
	}
	r.channels = append(r.channels, channelID)
	r.messages = append(r.messages, content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func sampleOutcome() *agent.CycleOutcome {
	return &agent.CycleOutcome{
		Topic:       "Artificial Intelligence",
		NextTopic:   "machine",
		BuildName:   "Artificial_Intelligence",
		Summary:     "--- Start of content from https://a.test ---\nMachine learning enables pattern recognition.",
		Concepts:    []string{"machine", "learning", "pattern"},
		NewConcepts: 3,
		Candidates:  3,
		Validated:   1,
		GraphNodes:  3,
		GraphEdges:  1,
	}
}

func TestFormatOutcome(t *testing.T) {
	msg := FormatOutcome(sampleOutcome())

	assert.True(t, strings.HasPrefix(msg, "📚 **Artificial_Intelligence**"))
	assert.Contains(t, msg, "> Machine learning enables pattern recognition.")
	assert.NotContains(t, msg, "--- Start")
	assert.Contains(t, msg, "• machine\n• learning\n• pattern")
	assert.Contains(t, msg, "3 new concepts, 1 of 3 relationships validated")
	assert.True(t, strings.HasSuffix(msg, "Next up: **machine**"))
}

func TestFormatOutcome_NoBuildUsesTopic(t *testing.T) {
	o := sampleOutcome()
	o.BuildName = ""
	assert.True(t, strings.HasPrefix(FormatOutcome(o), "📚 **Artificial Intelligence**"))
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		maxLength int
		want      []string
	}{
		{name: "fits", content: "short", maxLength: 10, want: []string{"short"}},
		{name: "line boundaries", content: "aaaa\nbbbb\ncccc", maxLength: 9, want: []string{"aaaa\nbbbb", "cccc"}},
		{name: "long line at word boundary", content: "aaaa bbbb cccc", maxLength: 10, want: []string{"aaaa bbbb", "cccc"}},
		{name: "long word hard split", content: "abcdefghij", maxLength: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "multi-byte runes stay whole", content: "📚📚📚", maxLength: 6, want: []string{"📚", "📚", "📚"}},
		{name: "accented word", content: "aa ééééé", maxLength: 8, want: []string{"aa éé", "ééé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.content, tt.maxLength)
			assert.Equal(t, tt.want, got)
			for _, chunk := range got {
				assert.LessOrEqual(t, len(chunk), tt.maxLength)
				assert.True(t, utf8.ValidString(chunk), chunk)
			}
		})
	}
}

func TestNotifier_SendsToChannel(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, "123")

	require.NoError(t, n.Notify(context.Background(), sampleOutcome()))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, []string{"123"}, sender.channels)
	assert.Equal(t, FormatOutcome(sampleOutcome()), sender.messages[0])
}

func TestNotifier_SplitsLongMessages(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, "123")

	o := sampleOutcome()
	o.Concepts = nil
	for i := 0; i < 400; i++ {
		o.Concepts = append(o.Concepts, "concept")
	}

	require.NoError(t, n.Notify(context.Background(), o))
	require.Greater(t, len(sender.messages), 1)
	for _, msg := range sender.messages {
		assert.LessOrEqual(t, len(msg), constants.DiscordMaxMessageLength)
		assert.Contains(t, msg, "*(Part ")
	}
}

func TestNotifier_ReportsSendFailure(t *testing.T) {
	sender := &recordingSender{failAt: 1}
	n := NewNotifier(sender, "123")

	err := n.Notify(context.Background(), sampleOutcome())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
