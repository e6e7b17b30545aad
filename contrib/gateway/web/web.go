package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sweetpotato0/ragline/agentic"
	"github.com/sweetpotato0/ragline/lexical"
)

// Config holds web gateway configuration.
type Config struct {
	// Endpoints are URL templates; "%s" is replaced with the escaped query.
	Endpoints []string
	// MaxSnippets caps the number of returned text fragments.
	MaxSnippets int
	// MinSnippetLength drops fragments shorter than this many runes.
	MinSnippetLength int
	Timeout          time.Duration
	HTTPClient       *http.Client
}

// DefaultConfig returns default web gateway configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxSnippets:      5,
		MinSnippetLength: 40,
		Timeout:          10 * time.Second,
	}
}

// Gateway fetches external knowledge by scraping configured web endpoints.
type Gateway struct {
	config *Config
	client *http.Client
}

// New creates a web gateway.
func New(config *Config) *Gateway {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxSnippets <= 0 {
		config.MaxSnippets = 5
	}
	if config.MinSnippetLength <= 0 {
		config.MinSnippetLength = 40
	}
	client := config.HTTPClient
	if client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Gateway{config: config, client: client}
}

// Fetch implements agentic.Gateway. It queries each endpoint in order and
// returns text fragments that share at least one term with the query.
func (g *Gateway) Fetch(ctx context.Context, query string) ([]string, error) {
	if len(g.config.Endpoints) == 0 {
		return nil, fmt.Errorf("web gateway: no endpoints configured")
	}

	terms := lexical.Tokenize(query)
	var snippets []string
	var lastErr error

	for _, endpoint := range g.config.Endpoints {
		target := strings.ReplaceAll(endpoint, "%s", url.QueryEscape(query))
		fragments, err := g.fetchOne(ctx, target)
		if err != nil {
			lastErr = err
			continue
		}
		for _, fragment := range fragments {
			if !matchesTerms(fragment, terms) {
				continue
			}
			snippets = append(snippets, fragment)
			if len(snippets) >= g.config.MaxSnippets {
				return snippets, nil
			}
		}
	}

	if len(snippets) == 0 && lastErr != nil {
		return nil, fmt.Errorf("web gateway: %w", lastErr)
	}
	return snippets, nil
}

func (g *Gateway) fetchOne(ctx context.Context, target string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ragline/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}

	var fragments []string
	doc.Find("h1,h2,h3,p,li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len([]rune(text)) < g.config.MinSnippetLength {
			return
		}
		fragments = append(fragments, text)
	})
	return fragments, nil
}

func matchesTerms(fragment string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(fragment)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

var _ agentic.Gateway = (*Gateway)(nil)
