// Package loader fetches further listing pages with the browser's cookies.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/Rorqualx/marketplace-scroll/internal/security"
	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

const defaultMaxBodyBytes = 8 << 20

// Config configures a Client.
type Config struct {
	// Origin is the listing page URL; only same-origin URLs are fetched.
	Origin string
	// UserAgent is sent with every request, normally the browser's.
	UserAgent string
	// Timeout bounds one fetch. Zero means no timeout.
	Timeout time.Duration
	// MaxBodyBytes caps the response body size.
	MaxBodyBytes int64
	// Transport overrides the HTTP transport. Used by tests.
	Transport http.RoundTripper
}

// Client performs single GET requests for listing pages.
// A failed request is never retried.
type Client struct {
	origin     string
	originURL  *url.URL
	userAgent  string
	maxBody    int64
	httpClient *http.Client
}

// New creates a Client with an empty cookie jar.
func New(cfg Config) (*Client, error) {
	originURL, err := url.Parse(cfg.Origin)
	if err != nil || originURL.Host == "" {
		return nil, fmt.Errorf("invalid origin %q: %w", cfg.Origin, security.ErrInvalidURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	return &Client{
		origin:    cfg.Origin,
		originURL: originURL,
		userAgent: cfg.UserAgent,
		maxBody:   maxBody,
		httpClient: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				if err := security.SameOrigin(cfg.Origin, req.URL.String()); err != nil {
					return fmt.Errorf("redirect to %s: %w", req.URL.Host, types.ErrCrossOrigin)
				}
				return nil
			},
		},
	}, nil
}

// SetCookies stores the browser's cookies for the listing origin.
// Cookie domains that do not cover the origin host are narrowed to it.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	host := c.originURL.Hostname()
	for _, ck := range cookies {
		if ck.Domain != "" {
			ck.Domain = security.SanitizeCookieDomain(ck.Domain, host)
		}
	}
	c.httpClient.Jar.SetCookies(c.originURL, cookies)
	log.Debug().Int("count", len(cookies)).Msg("Loader cookies updated")
}

// Cookies returns the cookies the client sends to the listing origin.
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.originURL)
}

// Fetch downloads pageURL and returns its body.
// A non-200 response is logged and returned as a *types.StatusError.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := security.SameOrigin(c.origin, pageURL); err != nil {
		return "", fmt.Errorf("%s: %w", security.RedactURL(pageURL), types.ErrCrossOrigin)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", types.ErrContextCanceled, ctx.Err())
		}
		log.Warn().Err(err).Str("url", security.RedactURL(pageURL)).Msg("error download")
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("url", security.RedactURL(pageURL)).
			Msg("error download")
		return "", types.NewStatusError(pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return "", fmt.Errorf("%d bytes: %w", c.maxBody, types.ErrBodyTooLarge)
	}

	return string(body), nil
}
