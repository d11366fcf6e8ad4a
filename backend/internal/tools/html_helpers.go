package tools

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ============================================================================
// Helper Functions for HTML Processing
// ============================================================================

// SearchResult represents a single search result
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// noiseSelectors are removed before text extraction
const noiseSelectors = "script, style, noscript, iframe, svg, nav, header, footer, form"

// blockSelectors hold the readable text of a page
const blockSelectors = "h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, td, dd, figcaption"

// parseSearchResults extracts search results from a DuckDuckGo HTML page
func parseSearchResults(r io.Reader, limit int) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var results []SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveResultURL(href)
		if target == "" {
			return true
		}

		result := SearchResult{
			Title:   collapseWhitespace(link.Text()),
			URL:     target,
			Snippet: collapseWhitespace(s.Find(".result__snippet").First().Text()),
		}
		if len(result.Snippet) > 200 {
			result.Snippet = result.Snippet[:200] + "..."
		}
		results = append(results, result)
		return limit <= 0 || len(results) < limit
	})

	return results, nil
}

// resolveResultURL unwraps DuckDuckGo redirect links and keeps only absolute http(s) URLs
func resolveResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") || u.Host == "" {
		// DuckDuckGo wraps URLs, extract the actual URL
		uddg := u.Query().Get("uddg")
		if uddg == "" {
			return ""
		}
		if u, err = url.Parse(uddg); err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// formatSearchResults renders results as marker text
func formatSearchResults(results []SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n%s%s\n", r.Title, ResultMarker, r.URL)
		if r.Snippet != "" {
			b.WriteString(r.Snippet)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// extractTextFromHTML extracts readable text from HTML, one block element per line.
// Pages without block markup fall back to the body text.
func extractTextFromHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	doc.Find(noiseSelectors).Remove()
	root := mainContent(doc)

	var lines []string
	root.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are emitted by their innermost element
		if s.Find(blockSelectors).Length() > 0 {
			return
		}
		if text := collapseWhitespace(s.Text()); text != "" {
			lines = append(lines, text)
		}
	})

	if len(lines) == 0 {
		if text := collapseWhitespace(root.Text()); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// mainContentSelectors are tried in order; the first that matches text is the page's content
var mainContentSelectors = []string{"article", "main", `[role="main"]`}

// mainContent narrows a page to its main content element, falling back to body
func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range mainContentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 && collapseWhitespace(s.Text()) != "" {
			return s
		}
	}
	return doc.Find("body")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
