package importer

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultStoreBaseURL = "https://store.steampowered.com"
	DefaultLanguage     = "english"
	DefaultCurrency     = "us"

	DefaultFetchTimeout = 15 * time.Second
	DefaultProbeTimeout = 2 * time.Second
)

// Query tunes one appdetails request. An empty Currency omits the cc
// parameter; a zero Timeout falls back to the client's default.
type Query struct {
	Currency string
	Timeout  time.Duration
}

// Catalog fetches one app's details from the storefront.
type Catalog interface {
	FetchApp(ctx context.Context, appID int, q Query) (*AppDetails, error)
}

// HeaderProvider supplies the headers sent with every upstream request.
type HeaderProvider interface {
	Headers() http.Header
}

// StaticHeaders sends the same headers on every request.
type StaticHeaders http.Header

func (h StaticHeaders) Headers() http.Header { return http.Header(h).Clone() }

var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// NewBrowserHeaders picks one browser user agent for the lifetime of the
// returned provider, so a whole run presents a single identity.
func NewBrowserHeaders(rng *rand.Rand) StaticHeaders {
	var ua string
	if rng != nil {
		ua = browserUserAgents[rng.Intn(len(browserUserAgents))]
	} else {
		ua = browserUserAgents[rand.Intn(len(browserUserAgents))]
	}
	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Referer", DefaultStoreBaseURL+"/")
	return StaticHeaders(h)
}

// CatalogClient talks to the public appdetails endpoint and probes CDN images.
type CatalogClient struct {
	baseURL      string
	language     string
	httpClient   *http.Client
	headers      HeaderProvider
	fetchTimeout time.Duration
	probeTimeout time.Duration
}

type ClientConfig struct {
	BaseURL      string
	Language     string
	Headers      HeaderProvider
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
	HTTPClient   *http.Client
}

func NewCatalogClient(cfg ClientConfig) *CatalogClient {
	c := &CatalogClient{
		baseURL:      strings.TrimRight(orDefault(cfg.BaseURL, DefaultStoreBaseURL), "/"),
		language:     orDefault(cfg.Language, DefaultLanguage),
		httpClient:   cfg.HTTPClient,
		headers:      cfg.Headers,
		fetchTimeout: cfg.FetchTimeout,
		probeTimeout: cfg.ProbeTimeout,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.headers == nil {
		c.headers = NewBrowserHeaders(nil)
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = DefaultProbeTimeout
	}
	return c
}

func (c *CatalogClient) appDetailsURL(appID int, currency string) string {
	q := url.Values{}
	q.Set("appids", strconv.Itoa(appID))
	q.Set("l", c.language)
	if currency != "" {
		q.Set("cc", currency)
	}
	return c.baseURL + "/api/appdetails?" + q.Encode()
}

// FetchApp returns the data block for appID. Non-200 responses come back as
// *FetchError carrying the status code.
func (c *CatalogClient) FetchApp(ctx context.Context, appID int, q Query) (*AppDetails, error) {
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = c.fetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.appDetailsURL(appID, q.Currency), nil)
	if err != nil {
		return nil, &FetchError{AppID: appID, Cause: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{AppID: appID, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{AppID: appID, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{AppID: appID, StatusCode: resp.StatusCode, Cause: fmt.Errorf("read body: %w", err)}
	}
	gd, err := DecodeAppDetails(body, appID)
	if err != nil {
		return nil, &FetchError{AppID: appID, StatusCode: resp.StatusCode, Cause: err}
	}
	return gd, nil
}

// ImageExists issues a HEAD request with the probe timeout. Any error or
// non-200 status reads as absent.
func (c *CatalogClient) ImageExists(ctx context.Context, imageURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return false
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *CatalogClient) setHeaders(req *http.Request) {
	for k, vs := range c.headers.Headers() {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}
