package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultMaxURLs   = 2
	defaultMaxChars  = 6000
	defaultCacheSize = 128
	defaultUserAgent = "JosephAI/1.0 (web context)"

	maxBodyBytes = 2 << 20
	separator    = "\n\n---\n\n"
)

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURLs returns every http(s) URL in text, in order of appearance.
// Duplicates are kept.
func ExtractURLs(text string) []string {
	return urlRe.FindAllString(text, -1)
}

// Options configure a Fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout   time.Duration
	MaxURLs   int
	MaxChars  int
	CacheSize int
	UserAgent string
}

// Fetcher retrieves readable text from web pages for use as chat context.
type Fetcher struct {
	client    *http.Client
	cache     *lru.Cache[string, string]
	maxURLs   int
	maxChars  int
	userAgent string
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = defaultMaxURLs
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	cache, err := lru.New[string, string](opts.CacheSize)
	if err != nil {
		log.Printf("Page cache disabled: %v", err)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		cache:     cache,
		maxURLs:   opts.MaxURLs,
		maxChars:  opts.MaxChars,
		userAgent: opts.UserAgent,
	}
}

// FetchWebPageText fetches pageURL and returns its extracted text. It
// reports false on any failure or when the page has no text.
func (f *Fetcher) FetchWebPageText(ctx context.Context, pageURL string) (string, bool) {
	if f.cache != nil {
		if text, ok := f.cache.Get(pageURL); ok {
			return text, true
		}
	}

	text, err := f.fetch(ctx, pageURL)
	if err != nil {
		log.Printf("Web context fetch failed for %s: %v", pageURL, err)
		return "", false
	}
	text = truncate(strings.TrimSpace(text), f.maxChars)
	if text == "" {
		return "", false
	}

	if f.cache != nil {
		f.cache.Add(pageURL, text)
	}
	return text, true
}

// BuildWebContext fetches the first URLs mentioned in message concurrently
// and joins the successful pages in URL order. It reports false when the
// message has no URLs or none of them produced text.
func (f *Fetcher) BuildWebContext(ctx context.Context, message string) (string, bool) {
	urls := ExtractURLs(message)
	if len(urls) == 0 {
		return "", false
	}
	if len(urls) > f.maxURLs {
		urls = urls[:f.maxURLs]
	}

	parts := make([]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			if text, ok := f.FetchWebPageText(gctx, u); ok {
				parts[i] = "URL: " + u + "\n" + text
			}
			return nil
		})
	}
	_ = g.Wait()

	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, separator), true
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return "", fmt.Errorf("invalid url %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}

	switch contentKind(resp.Header.Get("Content-Type"), body) {
	case kindFeed:
		return feedText(body)
	case kindText:
		return string(body), nil
	case kindHTML:
		article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
		if err != nil {
			return "", err
		}
		return article.TextContent, nil
	default:
		return "", fmt.Errorf("unsupported content type %q", resp.Header.Get("Content-Type"))
	}
}

type kind int

const (
	kindUnknown kind = iota
	kindHTML
	kindFeed
	kindText
)

// contentKind classifies a response by its media type, sniffing the body
// when the header is missing or generic.
func contentKind(contentType string, body []byte) kind {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return kindHTML
	case strings.Contains(mediaType, "rss") || strings.Contains(mediaType, "atom") || strings.HasSuffix(mediaType, "/xml"):
		return kindFeed
	case mediaType == "text/plain" || mediaType == "text/markdown" || strings.Contains(mediaType, "json"):
		return kindText
	case mediaType == "" || mediaType == "application/octet-stream":
		return sniff(body)
	}
	return kindUnknown
}

func sniff(body []byte) kind {
	head := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 512)])))
	switch {
	case strings.Contains(head, "<rss") || strings.Contains(head, "<feed"):
		return kindFeed
	case strings.Contains(head, "<html") || strings.HasPrefix(head, "<!doctype html"):
		return kindHTML
	case strings.HasPrefix(http.DetectContentType(body), "text/plain"):
		return kindText
	}
	return kindUnknown
}

// truncate caps s at n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
