// Package quote serves the quote-of-the-moment panel.
package quote

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/homie/internal/common"
)

const DefaultAPIURL = "https://api.quotable.io/random"

var ErrNoQuotes = errors.New("no quotes available")

//go:embed data/quotes.yaml
var bundledQuotes []byte

type Quote struct {
	Text   string `json:"text" yaml:"text"`
	Author string `json:"author" yaml:"author"`
}

// Provider returns one quote.
type Provider interface {
	Name() string
	Quote(ctx context.Context) (Quote, error)
}

// Service hides provider failures behind a nil result.
type Service struct {
	provider Provider
	logger   zerolog.Logger
}

func NewService(p Provider, logger zerolog.Logger) *Service {
	return &Service{
		provider: p,
		logger:   logger.With().Str("component", "quote").Logger(),
	}
}

// Random returns a quote, or nil when the provider failed.
func (s *Service) Random(ctx context.Context) *Quote {
	q, err := s.provider.Quote(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", s.provider.Name()).Msg("quote unavailable")
		return nil
	}
	return &q
}

// APIProvider reads quotes from a quotable-style endpoint.
type APIProvider struct {
	url     string
	httpCfg common.RequestConfig
}

func NewAPIProvider(client *http.Client, url string) *APIProvider {
	if url == "" {
		url = DefaultAPIURL
	}
	return &APIProvider{
		url: url,
		httpCfg: common.RequestConfig{
			Client:  client,
			Breaker: common.NewBreaker("quotable"),
		},
	}
}

func (p *APIProvider) Name() string { return "api" }

func (p *APIProvider) Quote(ctx context.Context) (Quote, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, p.url, nil)
	}

	var payload struct {
		Content string `json:"content"`
		Author  string `json:"author"`
	}
	if err := common.FetchJSON(ctx, p.httpCfg, buildRequest, &payload); err != nil {
		return Quote{}, err
	}
	if payload.Content == "" {
		return Quote{}, fmt.Errorf("quote api: empty content")
	}
	return Quote{Text: payload.Content, Author: payload.Author}, nil
}

// LocalProvider picks from a fixed list.
type LocalProvider struct {
	quotes []Quote
	intn   func(n int) int
}

func NewLocalProvider(quotes []Quote) *LocalProvider {
	return &LocalProvider{quotes: quotes, intn: rand.Intn}
}

// WithRand replaces the index picker, mostly for tests.
func (p *LocalProvider) WithRand(intn func(n int) int) *LocalProvider {
	p.intn = intn
	return p
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Quote(context.Context) (Quote, error) {
	if len(p.quotes) == 0 {
		return Quote{}, ErrNoQuotes
	}
	return p.quotes[p.intn(len(p.quotes))], nil
}

// LoadQuotes reads a YAML quote list from path, or the bundled list when path is empty.
func LoadQuotes(path string) ([]Quote, error) {
	raw := bundledQuotes
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read quotes: %w", err)
		}
		raw = b
	}

	var quotes []Quote
	if err := yaml.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("parse quotes: %w", err)
	}

	out := quotes[:0]
	for _, q := range quotes {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
