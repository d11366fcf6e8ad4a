// Package tools provides the two outbound capabilities the research pipeline
// depends on: a text search and a page fetch.
//
// Search output is free text. Each result carries a "URL: <absolute-url>"
// marker; nothing else about its layout is guaranteed.
package tools

import (
	"context"
	"regexp"
)

// SearchFunc runs a query and returns free text with one URL marker per result
type SearchFunc func(ctx context.Context, query string) (string, error)

// FetchFunc returns the textual content of the page at url
type FetchFunc func(ctx context.Context, url string) (string, error)

// ResultMarker prefixes every result URL in search output
const ResultMarker = "URL: "

var resultURLPattern = regexp.MustCompile(`URL: (https?://[^\s]+)`)

// ParseResultURLs returns the URLs of all result markers in text, in order of appearance
func ParseResultURLs(text string) []string {
	matches := resultURLPattern.FindAllStringSubmatch(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, m[1])
	}
	return urls
}

// CountResults returns the number of result markers in text
func CountResults(text string) int {
	return len(resultURLPattern.FindAllStringIndex(text, -1))
}
