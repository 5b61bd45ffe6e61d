// Package fetcher handles the network side of a run: discovering
// detail-page links from a listing page and fetching individual detail
// pages as hashed text content.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/nsyc/nsyc-fetch/internal/processor"
	"github.com/nsyc/nsyc-fetch/pkg/models"
)

// detailLinkPattern matches event detail page paths on the supported
// site layouts.
var detailLinkPattern = regexp.MustCompile(`/(events|news)/[^/]+$`)

// discoverLimit caps how many links one listing page may yield.
const discoverLimit = 20

// Config holds fetcher configuration.
type Config struct {
	Timeout   time.Duration
	Delay     time.Duration
	UserAgent string
}

// Fetcher fetches listing and detail pages.
type Fetcher struct {
	config     Config
	httpClient *http.Client
}

// New creates a Fetcher with the given configuration.
func New(config Config) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "nsyc-fetch/1.0"
	}
	return &Fetcher{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Discover fetches a listing page and returns detail-page URLs found
// on it, deduplicated in document order and capped. When
// filterKeywords is non-empty, a link is kept only if a keyword
// appears in the link text or its surrounding element.
func (f *Fetcher) Discover(ctx context.Context, listingURL string, filterKeywords []string) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.UserAgent(f.config.UserAgent),
	)
	c.SetRequestTimeout(f.config.Timeout)
	c.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      f.config.Delay,
	})

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if !detailLinkPattern.MatchString(href) {
			return
		}

		absoluteURL := e.Request.AbsoluteURL(href)
		if absoluteURL == "" || seen[absoluteURL] {
			return
		}

		if len(filterKeywords) > 0 {
			combined := strings.ToLower(e.Text + " " + e.DOM.Parent().Text())
			if !containsAny(combined, filterKeywords) {
				return
			}
		}

		if len(urls) >= discoverLimit {
			return
		}
		seen[absoluteURL] = true
		urls = append(urls, absoluteURL)
	})

	if err := c.Visit(listingURL); err != nil {
		return nil, fmt.Errorf("failed to fetch listing %s: %w", listingURL, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return urls, err
	}

	slog.Debug("discovered detail pages", "listing", listingURL, "count", len(urls))
	return urls, nil
}

// FetchDetail fetches one detail page and returns its extracted text
// content together with the change-detection hash.
func (f *Fetcher) FetchDetail(ctx context.Context, url string) (*models.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	content, err := processor.Convert(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to extract content from %s: %w", url, err)
	}

	return &models.PageContent{
		URL:         url,
		Content:     content,
		ContentHash: models.HashContent(content),
	}, nil
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
