package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-optcg/config"
	"github.com/aluiziolira/go-scrape-optcg/models"
	"github.com/aluiziolira/go-scrape-optcg/parser"
	"github.com/aluiziolira/go-scrape-optcg/parser/parsertest"
)

const (
	sourceBase      = "https://onepiece-cardgame.com/cardlist/"
	translationBase = "https://asia-en.onepiece-cardgame.com/cardlist/"
)

// mockWriter mimics the store: first write wins per natural key.
type mockWriter struct {
	keys         map[string]bool
	cards        []*models.Card
	translations []*models.Translation
	batches      []int
	err          error
}

func newMockWriter() *mockWriter {
	return &mockWriter{keys: make(map[string]bool)}
}

func (mw *mockWriter) WriteCards(_ context.Context, cards []*models.Card) (int, error) {
	if mw.err != nil {
		return 0, mw.err
	}
	mw.batches = append(mw.batches, len(cards))
	n := 0
	for _, c := range cards {
		if mw.keys[c.Key()] {
			continue
		}
		mw.keys[c.Key()] = true
		mw.cards = append(mw.cards, c)
		n++
	}
	return n, nil
}

func (mw *mockWriter) WriteTranslations(_ context.Context, translations []*models.Translation) (int, error) {
	if mw.err != nil {
		return 0, mw.err
	}
	mw.batches = append(mw.batches, len(translations))
	n := 0
	for _, t := range translations {
		if mw.keys[t.Key()] {
			continue
		}
		mw.keys[t.Key()] = true
		mw.translations = append(mw.translations, t)
		n++
	}
	return n, nil
}

func cardNodes(t *testing.T, cards ...string) []*goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(parsertest.SeriesPage(cards...)))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	var nodes []*goquery.Selection
	doc.Find("dl.modalCol").Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, s)
	})
	return nodes
}

func leaderCard() parsertest.Card {
	return parsertest.Card{
		Code:      "OP01-001",
		Rarity:    "L",
		Category:  "LEADER",
		Name:      "ロロノア・ゾロ",
		Image:     "../images/cardlist/card/OP01-001.png",
		Cost:      "5",
		Attribute: "斬",
		Power:     "5000",
		Counter:   "-",
		Color:     "赤",
		Feature:   "超新星/麦わらの一味",
		Sets:      "ROMANCE DAWN【OP-01】",
		Effect:    "【ドン!!×1】【自分のターン中】自分のキャラすべてのパワー+1000。",
	}
}

func characterCard(code, image string) parsertest.Card {
	return parsertest.Card{
		Code:      code,
		Rarity:    "R",
		Category:  "CHARACTER",
		Name:      "ナミ",
		Image:     image,
		Cost:      "1",
		Attribute: "特",
		Power:     "-",
		Counter:   "2000",
		Color:     "赤/緑",
		Feature:   "麦わらの一味",
		Sets:      "ROMANCE DAWN【OP-01】",
		Effect:    "【登場時】自分のデッキの上から5枚を見る。",
		Trigger:   "このカードを登場させる。",
	}
}

func newSourcePipeline(t *testing.T, w RecordWriter, cfg *config.Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(w, parser.SourceProfile(sourceBase, "ja"), ModeSource, cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestPipelineAssemblesSourceCards(t *testing.T) {
	ctx := context.Background()
	writer := newMockWriter()
	p := newSourcePipeline(t, writer, config.DefaultConfig())

	nodes := cardNodes(t,
		parsertest.SourceCard(leaderCard()),
		parsertest.SourceCard(characterCard("OP01-016", "../images/cardlist/card/OP01-016_p2.png")),
	)
	if err := p.ProcessSeries(ctx, "550101", nodes); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(writer.cards) != 2 {
		t.Fatalf("written cards = %d, want 2", len(writer.cards))
	}

	leader := writer.cards[0]
	if leader.Category != "leader" || leader.Cost != 0 {
		t.Fatalf("leader category/cost = %q/%d, want leader/0", leader.Category, leader.Cost)
	}
	if leader.Counter != 0 || leader.Power != 5000 {
		t.Fatalf("leader power/counter = %d/%d", leader.Power, leader.Counter)
	}

	nami := writer.cards[1]
	if nami.Color != "red green" {
		t.Fatalf("color = %q, want %q", nami.Color, "red green")
	}
	if nami.ArtVariant != 2 {
		t.Fatalf("art variant = %d, want 2", nami.ArtVariant)
	}
	if nami.Cost != 1 || nami.Power != 0 || nami.Counter != 2000 {
		t.Fatalf("cost/power/counter = %d/%d/%d", nami.Cost, nami.Power, nami.Counter)
	}
	if nami.Image != "https://onepiece-cardgame.com/images/cardlist/card/OP01-016_p2.png" {
		t.Fatalf("image = %q", nami.Image)
	}
	if nami.Trigger == "" {
		t.Fatalf("trigger should be extracted")
	}
}

func TestPipelineSkipsBrokenCards(t *testing.T) {
	ctx := context.Background()
	writer := newMockWriter()
	p := newSourcePipeline(t, writer, config.DefaultConfig())

	broken := characterCard("OP01-017", "../images/cardlist/card/OP01-017.png")
	broken.Power = "lots"
	nameless := strings.Replace(
		parsertest.SourceCard(characterCard("OP01-018", "../images/cardlist/card/OP01-018.png")),
		`class="cardName"`, `class="cardTitle"`, 1,
	)

	nodes := cardNodes(t,
		parsertest.SourceCard(leaderCard()),
		parsertest.SourceCard(broken),
		nameless,
		parsertest.SourceCard(characterCard("OP01-016", "../images/cardlist/card/OP01-016.png")),
	)
	if err := p.ProcessSeries(ctx, "550101", nodes); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(writer.cards) != 2 {
		t.Fatalf("written cards = %d, want 2", len(writer.cards))
	}
	skipped := p.GetMetrics()["skipped"].(map[string]int)
	if skipped["malformed_number"] != 1 || skipped["missing_field"] != 1 {
		t.Fatalf("skipped = %v, want one malformed_number and one missing_field", skipped)
	}
}

func TestPipelineDedupAndBatching(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.BatchSize = 2
	writer := newMockWriter()
	p := newSourcePipeline(t, writer, cfg)

	nami := parsertest.SourceCard(characterCard("OP01-016", "../images/cardlist/card/OP01-016.png"))
	namiAlt := parsertest.SourceCard(characterCard("OP01-016", "../images/cardlist/card/OP01-016_p1.png"))
	nodes := cardNodes(t, parsertest.SourceCard(leaderCard()), nami, nami, namiAlt, nami)

	if err := p.ProcessSeries(ctx, "550101", nodes); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(writer.cards) != 3 {
		t.Fatalf("written cards = %d, want 3", len(writer.cards))
	}
	if got := p.GetMetrics()["duplicates"].(int64); got != 2 {
		t.Fatalf("duplicates = %d, want 2", got)
	}
	if len(writer.batches) != 2 || writer.batches[0] != 2 || writer.batches[1] != 1 {
		t.Fatalf("batch sizes = %v, want [2 1]", writer.batches)
	}
}

func TestPipelineCountsExistingRows(t *testing.T) {
	ctx := context.Background()
	writer := newMockWriter()
	nodes := cardNodes(t, parsertest.SourceCard(leaderCard()))

	for run := 0; run < 2; run++ {
		p := newSourcePipeline(t, writer, config.DefaultConfig())
		if err := p.ProcessSeries(ctx, "550101", nodes); err != nil {
			t.Fatalf("process: %v", err)
		}
		if err := p.Close(ctx); err != nil {
			t.Fatalf("close: %v", err)
		}
		metrics := p.GetMetrics()
		wantInserted := int64(1 - run)
		if got := metrics["inserted_rows"].(int64); got != wantInserted {
			t.Fatalf("run %d inserted = %d, want %d", run, got, wantInserted)
		}
		if got := metrics["existing_rows"].(int64); got != int64(run) {
			t.Fatalf("run %d existing = %d, want %d", run, got, run)
		}
	}
}

func TestPipelineTranslationMode(t *testing.T) {
	ctx := context.Background()
	writer := newMockWriter()
	p, err := NewPipeline(writer, parser.TranslationProfile(translationBase, "en"), ModeTranslation, config.DefaultConfig())
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	card := parsertest.Card{
		Code:     "OP01-016",
		Rarity:   "R",
		Category: "CHARACTER",
		Name:     "Nami",
		Image:    "../images/cardlist/card/OP01-016_p1.png",
		Cost:     "1",
		Power:    "-",
		Counter:  "2000",
		Color:    "Red",
		Feature:  "Straw Hat Crew",
		Effect:   "[On Play] Look at 5 cards from the top of your deck.",
	}
	if err := p.ProcessSeries(ctx, "569101", cardNodes(t, parsertest.TranslatedCard(card))); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(writer.cards) != 0 || len(writer.translations) != 1 {
		t.Fatalf("cards=%d translations=%d, want 0/1", len(writer.cards), len(writer.translations))
	}
	tr := writer.translations[0]
	if tr.Locale != "en" || tr.ArtVariant != 1 || tr.Name != "Nami" || tr.Trigger != "" {
		t.Fatalf("unexpected translation %+v", tr)
	}
}

func TestPipelineWriteErrorStops(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.BatchSize = 1
	writer := newMockWriter()
	writer.err = errors.New("disk full")
	p := newSourcePipeline(t, writer, cfg)

	err := p.ProcessSeries(ctx, "550101", cardNodes(t, parsertest.SourceCard(leaderCard())))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected write error, got %v", err)
	}
	next := cardNodes(t, parsertest.SourceCard(characterCard("OP01-016", "../images/cardlist/card/OP01-016.png")))
	if err := p.ProcessNode(ctx, "550101", next[0]); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("expected ErrPipelineClosed after failure, got %v", err)
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	ctx := context.Background()
	p := newSourcePipeline(t, newMockWriter(), config.DefaultConfig())
	if err := p.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.ProcessNode(ctx, "550101", nil); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("expected ErrPipelineClosed, got %v", err)
	}
}
