// Package yahoo downloads daily bars from the Yahoo Finance chart API.
package yahoo

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Options configure NewClient.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Proxy     string // optional http(s) proxy URL
}

// Client talks to the chart endpoint. The zero value is not usable; set
// BaseURL or use NewClient.
type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client // defaults to http.DefaultClient
}

// NewClient builds a Client with its own transport and timeout.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("yahoo: missing base url")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("yahoo: bad base url %q: %w", base, err)
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.Proxy != "" {
		u, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("yahoo: bad proxy url %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		BaseURL:   base,
		UserAgent: opts.UserAgent,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

func (c *Client) Name() string { return "yahoo" }

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}
