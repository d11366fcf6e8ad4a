package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"research-graph/backend/internal/constants"
	apperrors "research-graph/backend/pkg/errors"
	"research-graph/backend/pkg/logger"
)

// DefaultSearchURL is the DuckDuckGo HTML endpoint (free, no API key needed)
const DefaultSearchURL = "https://html.duckduckgo.com/html/"

// WebConfig configures a WebClient
type WebConfig struct {
	SearchURL   string
	CallTimeout time.Duration
	// Rate is the number of outbound requests per second; <= 0 disables limiting
	Rate       float64
	Burst      int
	MaxResults int
	HTTPClient *http.Client
}

// WebClient searches DuckDuckGo and fetches pages.
// Every call is rate limited and bounded by CallTimeout; searches go through a
// circuit breaker so a blocked endpoint is not hammered.
type WebClient struct {
	cfg        WebConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewWebClient creates a web client
func NewWebClient(cfg WebConfig) *WebClient {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = constants.MaxSearchResults
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.CallTimeout}
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}

	log := logger.Named("web")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "search",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about the endpoint
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &WebClient{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		breaker:    breaker,
		logger:     log,
	}
}

// Search runs a query and renders up to MaxResults results as marker text.
// No results is an empty string, not an error.
func (c *WebClient) Search(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", c.contextError(ctx, "search", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.search(ctx, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", apperrors.NewSearchFailed(query, apperrors.ErrSearchUnavailable)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", c.contextError(ctx, "search", err)
		}
		return "", apperrors.NewSearchFailed(query, err)
	}
	return out.(string), nil
}

func (c *WebClient) search(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf("%s?q=%s", c.cfg.SearchURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to look like a browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	results, err := parseSearchResults(io.LimitReader(resp.Body, constants.MaxFetchBytes), c.cfg.MaxResults)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Web search",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)
	return formatSearchResults(results), nil
}

// Fetch returns the readable text of the page at rawURL
func (c *WebClient) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", apperrors.NewFetchFailed(rawURL, 0, errors.New("not an absolute http(s) URL"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", c.contextError(ctx, "fetch", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.NewFetchFailed(rawURL, 0, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ResearchGraph/1.0)")
	req.Header.Set("Accept", "text/html,text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", c.contextError(ctx, "fetch", err)
		}
		return "", apperrors.NewFetchFailed(rawURL, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewFetchFailed(rawURL, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	body := io.LimitReader(resp.Body, constants.MaxFetchBytes)
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", apperrors.NewFetchFailed(rawURL, resp.StatusCode, err)
		}
		return string(data), nil
	}

	content, err := extractTextFromHTML(body)
	if err != nil {
		return "", apperrors.NewFetchFailed(rawURL, resp.StatusCode, err)
	}
	return content, nil
}

// contextError maps an expired per-call deadline to a timeout error.
// Cancellation of the caller's context is returned unchanged.
func (c *WebClient) contextError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewContextTimeout(op, c.cfg.CallTimeout, err)
	}
	return err
}
