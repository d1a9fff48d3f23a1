package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-optcg/config"
	"github.com/aluiziolira/go-scrape-optcg/models"
	"github.com/aluiziolira/go-scrape-optcg/parser"
	"github.com/aluiziolira/go-scrape-optcg/pipeline"
	"github.com/aluiziolira/go-scrape-optcg/scraper"
	"github.com/aluiziolira/go-scrape-optcg/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Phase names reported on fatal errors.
const (
	PhaseSchema      = "schema creation"
	PhaseCore        = "core download"
	PhaseTranslation = "translation download"
	PhaseTags        = "tag generation"
	PhaseExport      = "snapshot export"
)

// PhaseError is a fatal error tagged with the phase that produced it.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return e.Phase + ": " + e.Err.Error()
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// download describes one locale's download phase.
type download struct {
	phase   string
	site    config.Site
	mode    pipeline.Mode
	profile parser.LocaleProfile
	scraper *scraper.Scraper
	result  *models.ScrapeResult
}

type app struct {
	cfg *config.Config
	out io.Writer
	// transport replaces the network for every scraper when set.
	transport http.RoundTripper
}

// run performs one full invocation: downloads unless skipped, tag
// generation and the snapshot export. Downloads and tags share one
// transaction; the snapshot is exported after it commits.
func (a *app) run(ctx context.Context) error {
	cfg := a.cfg
	start := time.Now()

	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return &PhaseError{Phase: PhaseSchema, Err: err}
	}
	defer db.Close()

	var downloads []*download
	if !cfg.SkipDownload {
		downloads, err = a.newDownloads()
		if err != nil {
			return err
		}
		stopMetrics := a.serveMetrics(downloads)
		defer stopMetrics()
	} else {
		slog.Info("skipping download, reusing stored cards", slog.String("database", cfg.DatabasePath))
	}

	var tagged int64
	err = db.InTx(ctx, func(q *store.Queries) error {
		for _, d := range downloads {
			if err := a.runDownload(ctx, q, d); err != nil {
				return &PhaseError{Phase: d.phase, Err: err}
			}
		}
		n, err := pipeline.GenerateTags(ctx, q, cfg.Translation.Locale)
		if err != nil {
			return &PhaseError{Phase: PhaseTags, Err: err}
		}
		tagged = n
		return nil
	})
	if err != nil {
		var phaseErr *PhaseError
		if !errors.As(err, &phaseErr) {
			err = &PhaseError{Phase: PhaseTags, Err: err}
		}
		return err
	}

	writer, err := pipeline.NewOutputWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return &PhaseError{Phase: PhaseExport, Err: err}
	}
	snapshot, err := pipeline.ExportSnapshot(ctx, db, writer)
	if err != nil {
		return &PhaseError{Phase: PhaseExport, Err: err}
	}

	slog.Info("snapshot exported",
		slog.String("output", cfg.OutputFile),
		slog.Int("cards", len(snapshot.Cards)),
		slog.Int("card_locales", len(snapshot.CardLocales)),
		slog.Int64("tagged", tagged),
		slog.Duration("elapsed", time.Since(start)),
	)
	a.printSummary(downloads, snapshot, tagged, time.Since(start))
	return nil
}

func (a *app) newDownloads() ([]*download, error) {
	cfg := a.cfg
	downloads := []*download{
		{
			phase:   PhaseCore,
			site:    cfg.Source,
			mode:    pipeline.ModeSource,
			profile: parser.SourceProfile(cfg.Source.ImageRoot(), cfg.Source.Locale),
		},
		{
			phase:   PhaseTranslation,
			site:    cfg.Translation,
			mode:    pipeline.ModeTranslation,
			profile: parser.TranslationProfile(cfg.Translation.ImageRoot(), cfg.Translation.Locale),
		},
	}
	for _, d := range downloads {
		s, err := scraper.NewScraper(cfg, d.site)
		if err != nil {
			return nil, &PhaseError{Phase: d.phase, Err: err}
		}
		if a.transport != nil {
			s.WithTransport(a.transport)
		}
		d.scraper = s
	}
	return downloads, nil
}

func (a *app) runDownload(ctx context.Context, q *store.Queries, d *download) error {
	p, err := pipeline.NewPipeline(q, d.profile, d.mode, a.cfg)
	if err != nil {
		return err
	}
	if a.cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	slog.Info("starting download",
		slog.String("phase", d.phase),
		slog.String("locale", d.site.Locale),
		slog.String("url", d.site.BaseURL),
	)
	result, err := d.scraper.Run(ctx, p)
	if err != nil {
		p.Close(ctx)
		return err
	}
	d.result = result

	slog.Info("download finished",
		slog.String("phase", d.phase),
		slog.Int("series", result.SeriesCount),
		slog.Int("failed_series", len(result.FailedSeries)),
		slog.Int("cards", result.CardCount),
		slog.Int("inserted", result.InsertCount),
		slog.Int("skipped", result.SkipCount),
	)
	return nil
}

// serveMetrics exposes the scrapers' registries until the returned func is
// called. It is a no-op without a metrics address.
func (a *app) serveMetrics(downloads []*download) func() {
	if a.cfg.MetricsAddr == "" {
		return func() {}
	}

	gatherers := make(prometheus.Gatherers, 0, len(downloads))
	for _, d := range downloads {
		gatherers = append(gatherers, d.scraper.Metrics.Registry)
	}
	server := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", a.cfg.MetricsAddr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func (a *app) printSummary(downloads []*download, snapshot *models.Snapshot, tagged int64, elapsed time.Duration) {
	if a.out == nil {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetTitle("Downloads")
	t.AppendHeader(table.Row{"Phase", "Locale", "Series", "Failed", "Cards", "Inserted", "Skipped", "Duplicates", "Requests", "Retries", "Errors", "Duration"})
	for _, d := range downloads {
		r := d.result
		if r == nil {
			continue
		}
		t.AppendRow(table.Row{
			d.phase, r.Locale, r.SeriesCount, strings.Join(r.FailedSeries, " "), r.CardCount, r.InsertCount,
			r.SkipCount, r.Duplicates, r.RequestCount, r.RetryCount, formatErrors(r.ErrorsByType),
			r.EndTime.Sub(r.StartTime).Round(time.Millisecond),
		})
	}
	if t.Length() > 0 {
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	out := table.NewWriter()
	out.SetOutputMirror(a.out)
	out.SetTitle("Snapshot")
	out.AppendRows([]table.Row{
		{"Output", a.cfg.OutputFile},
		{"Cards", len(snapshot.Cards)},
		{"Card locales", len(snapshot.CardLocales)},
		{"Tagged rows", tagged},
		{"Elapsed", elapsed.Round(time.Millisecond)},
	})
	out.SetStyle(table.StyleRounded)
	out.Render()
}

func formatErrors(byType map[string]int) string {
	if len(byType) == 0 {
		return "0"
	}
	parts := make([]string, 0, len(byType))
	for label, n := range byType {
		parts = append(parts, fmt.Sprintf("%s=%d", label, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
