// Package research gathers raw text about a topic from a handful of web sources.
package research

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"research-graph/backend/internal/constants"
	"research-graph/backend/internal/tools"
	apperrors "research-graph/backend/pkg/errors"
	"research-graph/backend/pkg/logger"
)

// Collector turns a topic into the concatenated text of its top search results
type Collector struct {
	maxSources int
	logger     *zap.Logger
}

// NewCollector creates a collector that reads up to constants.MaxResearchSources pages
func NewCollector() *Collector {
	return &Collector{
		maxSources: constants.MaxResearchSources,
		logger:     logger.Named("research"),
	}
}

// Collect searches for topic and fetches the first result pages in order.
// A page that fails to load is skipped. The returned text is empty only
// together with an error saying why.
func (c *Collector) Collect(ctx context.Context, topic string, search tools.SearchFunc, fetch tools.FetchFunc) (string, error) {
	c.logger.Info("Starting research", zap.String("topic", topic))

	results, err := search(ctx, topic)
	if err != nil {
		c.logger.Warn("Search failed", zap.String("topic", topic), zap.Error(err))
		return "", err
	}

	urls := tools.ParseResultURLs(results)
	if len(urls) == 0 {
		c.logger.Info("No relevant URLs found", zap.String("topic", topic))
		return "", apperrors.ErrNoSources
	}
	if len(urls) > c.maxSources {
		urls = urls[:c.maxSources]
	}

	var b strings.Builder
	var lastErr error
	fetched := 0
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		c.logger.Debug("Reading content", zap.String("url", url))
		content, err := fetch(ctx, url)
		if err != nil {
			c.logger.Warn("Failed to fetch content",
				zap.String("url", url),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		writeSource(&b, url, content)
		fetched++
	}

	if fetched == 0 {
		return "", fmt.Errorf("%w: %w", apperrors.ErrNoSources, lastErr)
	}

	c.logger.Info("Research phase complete",
		zap.String("topic", topic),
		zap.Int("sources", fetched),
		zap.Int("bytes", b.Len()),
	)
	return b.String(), nil
}

// writeSource appends content wrapped in delimiters naming its URL
func writeSource(b *strings.Builder, url, content string) {
	fmt.Fprintf(b, "\n\n--- Start of content from %s ---\n\n%s\n\n--- End of content from %s ---\n\n", url, content, url)
}
