package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"venue_enrichment_backend/platform/config"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	pageTimeout      = 15 * time.Second
	chromeTimeout    = 30 * time.Second
	maxPageBytes     = 5 << 20

	FetcherHTTP   = "http"
	FetcherChrome = "chrome"
)

// Page is fetched HTML plus the URL it was finally served from.
type Page struct {
	URL  string
	HTML string
}

// Fetcher loads a page's HTML.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (Page, error)
}

// NewFetcher returns the fetcher selected by PHOTO_FETCHER.
func NewFetcher(cfg config.PhotoConfig) Fetcher {
	if strings.EqualFold(cfg.GetPhotoFetcher(), FetcherChrome) {
		return NewChromeFetcher(cfg.GetChromeExecPath())
	}
	return NewHTTPFetcher(nil)
}

// HTTPFetcher fetches pages with a plain GET and a browser user agent.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher uses client, or a client with a 15s timeout when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: pageTimeout}
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Page{}, &FetchError{URL: pageURL, Err: err}
	}

	final := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return Page{URL: final, HTML: string(body)}, nil
}

// ChromeFetcher renders pages in headless Chrome for sites that build their
// metadata with scripts.
type ChromeFetcher struct {
	execPath string
}

func NewChromeFetcher(execPath string) *ChromeFetcher {
	return &ChromeFetcher{execPath: execPath}
}

func (f *ChromeFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(browserUserAgent),
	)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, chromeTimeout)
	defer cancel()

	var (
		html     string
		location string
	)
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("head", chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return Page{}, &FetchError{URL: pageURL, Err: fmt.Errorf("chrome: %w", err)}
	}
	if location == "" {
		location = pageURL
	}
	return Page{URL: location, HTML: html}, nil
}
