// Package scraper downloads the series pages of one card list site.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-optcg/config"
	"github.com/aluiziolira/go-scrape-optcg/models"
	"github.com/aluiziolira/go-scrape-optcg/pipeline"
	"github.com/gocolly/colly/v2"
)

const (
	phaseSeriesList = "series_list"
	phaseSeriesPage = "series_page"

	seriesSelector = "#series option"
	cardSelector   = "dl.modalCol"
)

// Scraper fetches one locale of the card list: the series list with a GET
// and each series with a form POST to the same URL. Requests are issued one
// at a time.
type Scraper struct {
	cfg       *config.Config
	site      config.Site
	collector *colly.Collector
	retry     *retryManager
	Metrics   *Metrics

	requestCount int
	errorCount   int
	errorsByType map[string]int
}

// NewScraper builds a scraper for site configured from cfg.
func NewScraper(cfg *config.Config, site config.Site) (*Scraper, error) {
	parsed, err := url.Parse(site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	metrics := NewMetrics(site.Locale)
	return &Scraper{
		cfg:          cfg,
		site:         site,
		collector:    collector,
		retry:        newRetryManager(cfg, metrics),
		Metrics:      metrics,
		errorsByType: make(map[string]int),
	}, nil
}

// WithTransport replaces the HTTP transport used for every request.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

// FetchSeriesList returns the non-empty option values of the series
// selector, in page order.
func (s *Scraper) FetchSeriesList(ctx context.Context) ([]string, error) {
	options, err := s.fetch(ctx, phaseSeriesList, s.site.BaseURL, seriesSelector, func(c *colly.Collector) error {
		return c.Visit(s.site.BaseURL)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(options))
	for _, option := range options {
		if id := strings.TrimSpace(option.AttrOr("value", "")); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// FetchSeriesPage posts the series id and returns every card node of the
// answer. The nodes stay attached to their document so the image sibling
// can be read.
func (s *Scraper) FetchSeriesPage(ctx context.Context, seriesID string) ([]*goquery.Selection, error) {
	key := s.site.BaseURL + "#series=" + seriesID
	return s.fetch(ctx, phaseSeriesPage, key, cardSelector, func(c *colly.Collector) error {
		return c.Post(s.site.BaseURL, map[string]string{"series": seriesID})
	})
}

// Run downloads every series and streams its card nodes through p. A series
// that still fails after retries is logged and skipped; a failed series list
// aborts the run. The pipeline is closed before Run returns successfully.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &models.ScrapeResult{
		Locale:    s.site.Locale,
		StartTime: time.Now(),
	}

	series, err := s.FetchSeriesList(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch series list: %w", err)
	}
	result.SeriesCount = len(series)
	slog.Info("series list fetched",
		slog.String("locale", s.site.Locale),
		slog.Int("series", len(series)),
	)

	for i, id := range series {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		nodes, err := s.FetchSeriesPage(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.FailedSeries = append(result.FailedSeries, id)
			slog.Error("series download failed",
				slog.String("locale", s.site.Locale),
				slog.String("series", id),
				slog.String("category", errorTypeLabel(err)),
				slog.Any("error", err),
			)
			continue
		}

		s.Metrics.AddCards(len(nodes))
		result.CardCount += len(nodes)
		if err := p.ProcessSeries(ctx, id, nodes); err != nil {
			return nil, fmt.Errorf("process series %s: %w", id, err)
		}
		slog.Debug("series processed",
			slog.String("locale", s.site.Locale),
			slog.String("series", id),
			slog.Int("cards", len(nodes)),
			slog.Int("done", i+1),
			slog.Int("total", len(series)),
		)
	}

	if err := p.Close(ctx); err != nil {
		return nil, fmt.Errorf("flush pipeline: %w", err)
	}

	metrics := p.GetMetrics()
	result.InsertCount = int(metrics["inserted_rows"].(int64))
	result.Duplicates = int(metrics["duplicates"].(int64))
	for _, n := range metrics["skipped"].(map[string]int) {
		result.SkipCount += n
	}
	result.EndTime = time.Now()
	result.ErrorCount = s.errorCount
	result.ErrorsByType = s.snapshotErrors()
	result.RetryCount = s.retry.TotalRetries()
	result.RequestCount = s.requestCount
	return result, nil
}

// fetch runs visit until it succeeds, fails with a non-retryable error, or
// runs out of retries, and returns the nodes matching selector.
func (s *Scraper) fetch(ctx context.Context, phase, key, selector string, visit func(*colly.Collector) error) ([]*goquery.Selection, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		nodes, err := s.attempt(phase, selector, visit)
		if err == nil {
			return nodes, nil
		}

		category := errorTypeLabel(err)
		s.recordError(category)
		slog.Warn("request error",
			slog.String("phase", phase),
			slog.String("request", key),
			slog.String("category", category),
			slog.Any("error", err),
		)

		if !retryable(err) {
			return nil, err
		}
		delay, ok := s.retry.Next(key)
		if !ok {
			return nil, err
		}
		slog.Debug("retrying request",
			slog.String("request", key),
			slog.Duration("delay", delay),
		)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt issues one request on a clone of the collector. Clones share the
// transport and rate limits but carry their own callbacks.
func (s *Scraper) attempt(phase, selector string, visit func(*colly.Collector) error) ([]*goquery.Selection, error) {
	c := s.collector.Clone()

	var (
		nodes  []*goquery.Selection
		status int
		start  time.Time
	)
	c.OnRequest(func(r *colly.Request) {
		start = time.Now()
		s.requestCount++
		s.Metrics.IncRequest(phase)
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		s.Metrics.ObserveDuration(time.Since(start))
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})
	c.OnHTML(selector, func(e *colly.HTMLElement) {
		nodes = append(nodes, e.DOM)
	})

	if err := visit(c); err != nil {
		return nil, classifyError(err, status)
	}
	return nodes, nil
}

func (s *Scraper) recordError(category string) {
	s.errorCount++
	s.errorsByType[category]++
	s.Metrics.IncError(category)
}

func (s *Scraper) snapshotErrors() map[string]int {
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryManager tracks attempts per request and hands out capped
// exponential backoff delays.
type retryManager struct {
	cfg     *config.Config
	metrics *Metrics

	mu           sync.Mutex
	attempts     map[string]int
	totalRetries int
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	return &retryManager{
		cfg:      cfg,
		metrics:  metrics,
		attempts: make(map[string]int),
	}
}

// Next records another retry of key and returns how long to wait before
// it. ok is false once MaxRetries retries have been handed out.
func (rm *retryManager) Next(key string) (delay time.Duration, ok bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	attempt := rm.attempts[key]
	if attempt >= rm.cfg.MaxRetries {
		return 0, false
	}

	attempt++
	rm.attempts[key] = attempt
	rm.totalRetries++
	rm.metrics.IncRetries()
	return rm.backoff(attempt), true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		return 0
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rm.cfg.RetryBackoffMax; max > 0 && (delay > max || delay <= 0) {
		delay = max
	}
	return delay
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

// IsNetworkError reports whether err came from the card list site rather
// than from storage or extraction.
func IsNetworkError(err error) bool {
	switch errorTypeLabel(err) {
	case "timeout", "connection", "forbidden", "not_found", "rate_limited", "server_error":
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
