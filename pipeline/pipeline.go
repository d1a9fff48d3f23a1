package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-optcg/config"
	"github.com/aluiziolira/go-scrape-optcg/models"
	"github.com/aluiziolira/go-scrape-optcg/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when ProcessNode is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// RecordWriter persists assembled records with insert-if-absent semantics
// and reports how many rows were new.
type RecordWriter interface {
	WriteCards(ctx context.Context, cards []*models.Card) (int, error)
	WriteTranslations(ctx context.Context, translations []*models.Translation) (int, error)
}

// Mode selects which record a pipeline assembles.
type Mode int

const (
	// ModeSource assembles cards from the source locale.
	ModeSource Mode = iota
	// ModeTranslation assembles translation rows.
	ModeTranslation
)

func (m Mode) String() string {
	if m == ModeTranslation {
		return "translation"
	}
	return "source"
}

// Pipeline turns card nodes into records, drops duplicates, and writes them
// to the store in batches. It is not safe for concurrent Process calls.
type Pipeline struct {
	writer    RecordWriter
	profile   parser.LocaleProfile
	mode      Mode
	batchSize int

	seen *lru.Cache[string, struct{}]

	cards        []*models.Card
	translations []*models.Translation

	metrics metrics

	closed bool
	err    error

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline for one locale.
func NewPipeline(writer RecordWriter, profile parser.LocaleProfile, mode Mode, cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	dedupeSize := cfg.DedupeMaxSize
	if dedupeSize <= 0 {
		dedupeSize = 1
	}
	seen, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}

	return &Pipeline{
		writer:    writer,
		profile:   profile,
		mode:      mode,
		batchSize: batchSize,
		seen:      seen,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}, nil
}

// ProcessSeries assembles every card node of one series. Cards that fail
// extraction are logged and skipped; only store failures are returned.
func (p *Pipeline) ProcessSeries(ctx context.Context, seriesID string, nodes []*goquery.Selection) error {
	for _, node := range nodes {
		if err := p.ProcessNode(ctx, seriesID, node); err != nil {
			return err
		}
	}
	return nil
}

// ProcessNode assembles a single card node.
func (p *Pipeline) ProcessNode(ctx context.Context, seriesID string, node *goquery.Selection) error {
	if p.closed {
		return ErrPipelineClosed
	}
	if p.err != nil {
		return p.err
	}

	raw, err := parser.Extract(node, p.profile)
	if err != nil {
		p.skip(seriesID, err)
		return nil
	}

	switch p.mode {
	case ModeTranslation:
		return p.addTranslation(ctx, seriesID, parser.NewTranslation(raw, p.profile.Locale))
	default:
		return p.addCard(ctx, seriesID, parser.NewCard(raw))
	}
}

// Flush writes buffered records.
func (p *Pipeline) Flush(ctx context.Context) error {
	if p.err != nil {
		return p.err
	}

	if len(p.cards) > 0 {
		n, err := p.writer.WriteCards(ctx, p.cards)
		if err != nil {
			return p.setErr(fmt.Errorf("write batch: %w", err))
		}
		p.metrics.addWritten(len(p.cards), n)
		p.cards = p.cards[:0]
	}
	if len(p.translations) > 0 {
		n, err := p.writer.WriteTranslations(ctx, p.translations)
		if err != nil {
			return p.setErr(fmt.Errorf("write batch: %w", err))
		}
		p.metrics.addWritten(len(p.translations), n)
		p.translations = p.translations[:0]
	}
	return nil
}

// Close flushes pending records and prevents more submissions.
func (p *Pipeline) Close(ctx context.Context) error {
	if p.closed {
		return p.err
	}
	err := p.Flush(ctx)
	p.closed = true
	p.signalShutdown()
	return err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.String("mode", p.mode.String()),
					slog.Int64("processed", metrics["processed_cards"].(int64)),
					slog.Int64("inserted", metrics["inserted_rows"].(int64)),
					slog.Int("skip_reasons", len(metrics["skipped"].(map[string]int))),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) addCard(ctx context.Context, seriesID string, card *models.Card) error {
	if err := parser.ValidateCard(card); err != nil {
		p.skip(seriesID, err)
		return nil
	}
	if p.duplicate(card.Key()) {
		return nil
	}
	p.cards = append(p.cards, card)
	p.metrics.incrementProcessed()
	if len(p.cards) >= p.batchSize {
		return p.Flush(ctx)
	}
	return nil
}

func (p *Pipeline) addTranslation(ctx context.Context, seriesID string, tr *models.Translation) error {
	if err := parser.ValidateTranslation(tr); err != nil {
		p.skip(seriesID, err)
		return nil
	}
	if p.duplicate(tr.Key()) {
		return nil
	}
	p.translations = append(p.translations, tr)
	p.metrics.incrementProcessed()
	if len(p.translations) >= p.batchSize {
		return p.Flush(ctx)
	}
	return nil
}

func (p *Pipeline) duplicate(key string) bool {
	if p.seen.Contains(key) {
		p.metrics.incrementDuplicates()
		return true
	}
	p.seen.Add(key, struct{}{})
	return false
}

func (p *Pipeline) skip(seriesID string, err error) {
	reason := parser.ErrorLabel(err)
	p.metrics.addSkipped(reason)
	slog.Warn("skipping card",
		slog.String("mode", p.mode.String()),
		slog.String("series", seriesID),
		slog.String("code", parser.PartialCode(err)),
		slog.String("reason", reason),
		slog.Any("error", err),
	)
}

func (p *Pipeline) setErr(err error) error {
	if p.err == nil {
		p.err = err
		p.closed = true
		p.signalShutdown()
	}
	return p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	written    int64
	inserted   int64
	duplicates int64
	skipped    map[string]int
}

func newMetrics() metrics {
	return metrics{
		skipped: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) incrementDuplicates() {
	m.mu.Lock()
	m.duplicates++
	m.mu.Unlock()
}

func (m *metrics) addWritten(written, inserted int) {
	m.mu.Lock()
	m.written += int64(written)
	m.inserted += int64(inserted)
	m.mu.Unlock()
}

func (m *metrics) addSkipped(reason string) {
	m.mu.Lock()
	m.skipped[reason]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copySkipped := make(map[string]int, len(m.skipped))
	for k, v := range m.skipped {
		copySkipped[k] = v
	}

	return map[string]interface{}{
		"processed_cards": m.processed,
		"inserted_rows":   m.inserted,
		"existing_rows":   m.written - m.inserted,
		"duplicates":      m.duplicates,
		"skipped":         copySkipped,
	}
}
