// Package discord announces completed research cycles in a Discord channel.
package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"research-graph/backend/internal/agent"
	"research-graph/backend/internal/constants"
	"research-graph/backend/pkg/logger"
)

// partIndicatorReserve leaves room for "*(Part X/Y)*" on multi-part messages
const partIndicatorReserve = 20

// chunkDelay spaces out multi-part messages to stay clear of rate limits
const chunkDelay = 100 * time.Millisecond

// Sender is the part of a discordgo session the notifier uses
type Sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts cycle outcomes to one channel
type Notifier struct {
	sender    Sender
	channelID string
	logger    *zap.Logger
}

// NewSession creates a REST-only bot session; no gateway connection is opened
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return session, nil
}

// NewNotifier creates a notifier posting to channelID
func NewNotifier(sender Sender, channelID string) *Notifier {
	return &Notifier{
		sender:    sender,
		channelID: channelID,
		logger:    logger.Named("discord"),
	}
}

// Notify implements agent.Notifier
func (n *Notifier) Notify(ctx context.Context, outcome *agent.CycleOutcome) error {
	return n.sendLongMessage(ctx, FormatOutcome(outcome))
}

// sendLongMessage splits a message into chunks if it exceeds Discord's character limit
func (n *Notifier) sendLongMessage(ctx context.Context, content string) error {
	maxLength := constants.DiscordMaxMessageLength

	if len(content) <= maxLength {
		if _, err := n.sender.ChannelMessageSend(n.channelID, content, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to send message to channel %s: %w", n.channelID, err)
		}
		return nil
	}

	chunks := splitMessage(content, maxLength-partIndicatorReserve)
	for i, chunk := range chunks {
		message := chunk
		if len(chunks) > 1 {
			message = fmt.Sprintf("%s\n*(Part %d/%d)*", chunk, i+1, len(chunks))
		}

		if _, err := n.sender.ChannelMessageSend(n.channelID, message, discordgo.WithContext(ctx)); err != nil {
			n.logger.Error("Failed to send message chunk",
				zap.Error(err),
				zap.String("channel_id", n.channelID),
				zap.Int("chunk", i+1),
				zap.Int("total_chunks", len(chunks)),
			)
			return fmt.Errorf("failed to send chunk %d/%d: %w", i+1, len(chunks), err)
		}

		if i < len(chunks)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(chunkDelay):
			}
		}
	}
	return nil
}
