package goes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	errs "goesbot/pkg/errors"
	"goesbot/pkg/logger"
)

// Listing is the parsed directory index of one sector/band
type Listing struct {
	URL   string
	Names []string
}

// Client fetches archive index pages and image files
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a client rooted at baseURL
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		headers: map[string]string{
			"Accept": "text/html,application/xhtml+xml,image/jpeg,*/*;q=0.8",
		},
		logger: log,
	}
}

// SetHeader sets a header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// IndexURL returns <base>/<sector>/<band>/
func (c *Client) IndexURL(sector, band string) string {
	return c.baseURL + sector + "/" + band + "/"
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"duration": time.Since(start),
		})
		return nil, err
	}
	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, time.Since(start))
	return resp, nil
}

// FetchIndex downloads the directory listing for sector/band and returns the
// href of every anchor in document order. There is a single attempt; any
// failure is an *errors.IndexError.
func (c *Client) FetchIndex(ctx context.Context, sector, band string) (*Listing, error) {
	url := c.IndexURL(sector, band)

	names, err := c.fetchIndex(ctx, url)
	if err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("Index fetched", map[string]interface{}{
		"url":     url,
		"anchors": len(names),
	})

	return &Listing{URL: url, Names: names}, nil
}

func (c *Client) fetchIndex(ctx context.Context, url string) ([]string, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, &errs.IndexError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errs.IndexError{
			URL:  url,
			Code: resp.StatusCode,
			Err:  fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	names, err := ParseIndex(resp.Body)
	if err != nil {
		return nil, &errs.IndexError{URL: url, Code: resp.StatusCode, Err: err}
	}
	return names, nil
}

// ParseIndex extracts anchor hrefs from an HTML directory listing
func ParseIndex(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index HTML: %w", err)
	}

	var names []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			names = append(names, href)
		}
	})
	return names, nil
}

// Open starts downloading listing.URL + name. The caller closes the body.
func (c *Client) Open(ctx context.Context, listingURL, name string) (io.ReadCloser, error) {
	url := listingURL + name

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, &errs.DownloadError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &errs.DownloadError{
			URL:  url,
			Code: resp.StatusCode,
			Err:  fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	return resp.Body, nil
}
