// Package clipper fetches recipe web pages and reduces them to readable text
package clipper

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/internal/ports/outbound"
	"github.com/tablewise/server/pkg/errors"
)

const (
	defaultMaxBytes  = 2 << 20
	defaultUserAgent = "TablewiseClipper/1.0"
	// below this many characters a readability extract is treated as a miss
	minArticleChars = 200
)

// noise is removed before falling back to whole-body text
const noise = "script, style, noscript, nav, header, footer, aside, form, iframe, svg, .ads, #ads, .comments, #comments"

// Fetcher implements outbound.PageFetcher over HTTP
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	logger    *zap.Logger
}

// NewFetcher creates a page fetcher from the importer configuration
func NewFetcher(cfg config.ImporterConfig, logger *zap.Logger) *Fetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxBytes := cfg.MaxPageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout, Transport: newTransport(cfg.AllowPrivateHosts)},
		maxBytes:  maxBytes,
		userAgent: ua,
		logger:    logger.Named("clipper"),
	}
}

var _ outbound.PageFetcher = (*Fetcher)(nil)

// Fetch downloads rawURL and extracts its title, text and lead image.
// Structured recipe data embedded in the page wins over article text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*outbound.FetchedPage, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NewBadRequestError("A valid http(s) URL is required")
	}

	body, finalURL, err := f.download(ctx, u)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	page := &outbound.FetchedPage{URL: finalURL.String()}
	page.Image = metaContent(doc, "og:image")

	if r, ok := findRecipeData(doc); ok {
		page.Title = r.Name
		page.Text = r.Text()
		if page.Image == "" {
			page.Image = r.Image
		}
		f.logger.Info("Page clipped from structured data", zap.String("url", page.URL))
		return page, nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), finalURL)
	if err == nil && len(strings.TrimSpace(article.TextContent)) >= minArticleChars {
		page.Title = strings.TrimSpace(article.Title)
		page.Text = normalizeText(article.TextContent)
		if page.Image == "" {
			page.Image = article.Image
		}
		f.logger.Info("Page clipped with readability", zap.String("url", page.URL), zap.Int("chars", len(page.Text)))
		return page, nil
	}

	page.Title = pageTitle(doc)
	doc.Find(noise).Remove()
	page.Text = normalizeText(doc.Find("body").Text())
	if page.Text == "" {
		return nil, errors.NewBadRequestError("No readable text found at that URL")
	}
	f.logger.Info("Page clipped from body text", zap.String("url", page.URL), zap.Int("chars", len(page.Text)))
	return page, nil
}

func (f *Fetcher) download(ctx context.Context, u *url.URL) ([]byte, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if stderrors.Is(err, errBlockedAddress) {
			f.logger.Warn("Refused page on a non-public address", zap.String("url", u.String()), zap.Error(err))
			return nil, nil, errors.NewBadRequestError("That URL points to a private or local address")
		}
		return nil, nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read page: %w", err)
	}
	return body, resp.Request.URL, nil
}

func metaContent(doc *goquery.Document, property string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, property, property)).First()
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}

func pageTitle(doc *goquery.Document) string {
	if t := metaContent(doc, "og:title"); t != "" {
		return t
	}
	if h := strings.TrimSpace(doc.Find("h1").First().Text()); h != "" {
		return h
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// normalizeText trims every line, collapses runs of spaces and drops blank lines
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
