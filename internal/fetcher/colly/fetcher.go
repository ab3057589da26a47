// Package collyfetcher implements crawl.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/qwzhou89/foodcrawler/internal/page"
)

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	Delay          time.Duration
	AllowedDomains []string
}

// Fetcher fetches one URL at a time through a Colly collector and returns
// the parsed document rooted at the response's final URL, so redirects are
// reflected in link resolution.
type Fetcher struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) (*Fetcher, error) {
	opts := []colly.CollectorOption{colly.Async(false)}
	if len(cfg.AllowedDomains) > 0 {
		opts = append(opts, colly.AllowedDomains(cfg.AllowedDomains...))
	}
	c := colly.NewCollector(opts...)
	c.IgnoreRobotsTxt = true
	// URL-level dedup belongs to the task layer; a resumed task must be
	// fetchable again.
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	if cfg.Delay > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: cfg.Delay}); err != nil {
			return nil, fmt.Errorf("set collector limits: %w", err)
		}
	}

	return &Fetcher{cfg: cfg, base: c}, nil
}

// Fetch executes a single HTTP GET and parses the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*page.Document, error) {
	var (
		doc      *page.Document
		fetchErr error
	)

	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			fetchErr = fmt.Errorf("unexpected status %d", r.StatusCode)
			return
		}
		doc, fetchErr = page.New(r.Request.URL.String(), r.Body)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", url, err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		if doc == nil {
			return nil, fmt.Errorf("fetch %s: no response received", url)
		}
		return doc, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
