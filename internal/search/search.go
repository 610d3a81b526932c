// Package search builds web-search URLs and fetches query suggestions.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/i474232898/homie/internal/common"
)

const (
	BaseURL           = "https://www.google.com/search"
	DefaultSuggestURL = "https://suggestqueries.google.com/complete/search"

	MinSuggestLength = 2
	MaxSuggestions   = 10
)

var ErrEmptyQuery = errors.New("empty search query")

// URL returns the search page for query.
func URL(query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	return BaseURL + "?q=" + escape(query), nil
}

// escape percent-encodes s the way browsers encode a URI component.
func escape(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}

// componentReplacer undoes the QueryEscape differences from encodeURIComponent.
var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

type Suggester struct {
	baseURL string
	httpCfg common.RequestConfig
}

func NewSuggester(client *http.Client, baseURL string) *Suggester {
	if baseURL == "" {
		baseURL = DefaultSuggestURL
	}
	return &Suggester{
		baseURL: baseURL,
		httpCfg: common.RequestConfig{
			Client:  client,
			Breaker: common.NewBreaker("suggest"),
		},
	}
}

// Suggest returns up to MaxSuggestions completions for query. Queries shorter
// than MinSuggestLength yield no suggestions and no request.
func (s *Suggester) Suggest(ctx context.Context, query string) ([]string, error) {
	if utf8.RuneCountInString(query) < MinSuggestLength {
		return []string{}, nil
	}

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?client=firefox&q=%s", s.baseURL, escape(query))
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	// [query, [suggestions...], ...]
	var payload []json.RawMessage
	if err := common.FetchJSON(ctx, s.httpCfg, buildRequest, &payload); err != nil {
		return nil, err
	}
	if len(payload) < 2 {
		return []string{}, nil
	}

	var suggestions []string
	if err := json.Unmarshal(payload[1], &suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return suggestions, nil
}
