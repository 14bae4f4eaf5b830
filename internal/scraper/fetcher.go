package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/metrics"
)

// ClientConfig controls the fetch client's retry and proxy behavior.
type ClientConfig struct {
	UserAgent      string
	RetryAttempts  int
	Timeout        time.Duration
	Delay          time.Duration
	ProxiesEnabled bool
	ShowProxyInfo  bool
	ShowProgress   bool
}

// Client is the colly-backed fetch client. It owns one base collector,
// cloned per attempt, and retries failed requests with a linear-growing
// backoff while rotating through the shared proxy pool.
//
// All non-2xx and network errors are treated identically for retry
// purposes; the source site has been observed returning transient 404s.
type Client struct {
	base   *colly.Collector
	pool   *ProxyPool
	cfg    ClientConfig
	logger *zap.Logger
	sleep  func(time.Duration)
}

// NewClient constructs a configured Client.
func NewClient(cfg ClientConfig, pool *ProxyPool, logger *zap.Logger) *Client {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &Client{
		base:   base,
		pool:   pool,
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Fetch retrieves a page, retrying on failure. After retryAttempts+1 total
// attempts it fails with a FetchExhaustedError wrapping the last error.
// Each failed attempt rotates the proxy pool (when proxies are enabled) and
// sleeps delay*attemptNumber before the next try.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Page, error) {
	attempts := c.cfg.RetryAttempts + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}

		page, err := c.fetchOnce(rawURL)
		if err == nil {
			metrics.ObserveFetch("success")
			return page, nil
		}
		lastErr = err
		metrics.ObserveFetch("error")

		if attempt == attempts {
			break
		}

		if c.cfg.ShowProgress {
			c.logger.Warn("request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(err),
			)
		}
		metrics.ObserveRetry()

		if c.cfg.ProxiesEnabled && c.pool.Rotate() {
			metrics.ObserveProxyRotation()
			if c.cfg.ShowProxyInfo {
				c.logger.Info("rotated to next proxy", zap.Int("cursor", c.pool.Cursor()))
			}
		}

		c.sleep(c.cfg.Delay * time.Duration(attempt))
	}

	if c.cfg.ShowProgress {
		c.logger.Error("request failed after all attempts",
			zap.String("url", rawURL),
			zap.Int("attempts", attempts),
			zap.Error(lastErr),
		)
	}
	return Page{}, &FetchExhaustedError{URL: rawURL, Attempts: attempts, LastErr: lastErr}
}

func (c *Client) fetchOnce(rawURL string) (Page, error) {
	collector := c.base.Clone()
	collector.AllowURLRevisit = true

	if c.cfg.ProxiesEnabled && c.pool != nil {
		if entry, ok := c.pool.Current(); ok {
			collector.SetProxyFunc(proxyFunc(entry))
			if c.cfg.ShowProxyInfo {
				c.logger.Debug("using proxy", zap.Int("cursor", c.pool.Cursor()))
			}
		}
	}

	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		page := Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
		}
		send(fetchResult{page: page})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil && r.StatusCode > 0 {
			err = fmt.Errorf("http status %d: %w", r.StatusCode, err)
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		return res.page, res.err
	default:
		return Page{}, errors.New("fetch produced no result")
	}
}

func proxyFunc(entry ProxyEntry) colly.ProxyFunc {
	return func(req *http.Request) (*url.URL, error) {
		if u, ok := entry.URLFor(req.URL.Scheme); ok {
			return u, nil
		}
		return nil, nil
	}
}

type fetchResult struct {
	page Page
	err  error
}
