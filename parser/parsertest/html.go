// Package parsertest builds card list markup shaped like the official site,
// for use in tests.
package parsertest

import (
	"fmt"
	"strings"
)

// Card describes one card block. Numeric fields are kept as text so tests
// can feed sentinels and malformed values.
type Card struct {
	Code      string
	Rarity    string
	Category  string
	Name      string
	Image     string
	Cost      string
	Attribute string
	Power     string
	Counter   string
	Color     string
	Feature   string
	Sets      string
	Effect    string
	Trigger   string
}

type labels struct {
	cost, power, counter, color, feature, effect, trigger, sets string
}

var (
	sourceLabels = labels{
		cost:    "コスト",
		power:   "パワー",
		counter: "カウンター",
		color:   "色",
		feature: "特徴",
		effect:  "テキスト",
		trigger: "トリガー",
		sets:    "入手情報 / Get:",
	}
	translationLabels = labels{
		cost:    "Cost",
		power:   "Power",
		counter: "Counter",
		color:   "Color",
		feature: "Type",
		effect:  "Effect",
		trigger: "Trigger",
		sets:    "Card Set(s)",
	}
)

// LeaderCostLabel is the label the source site prints in the cost slot of a
// leader card.
const LeaderCostLabel = "ライフ"

// SourceCard renders a card block with source-locale labels.
func SourceCard(c Card) string {
	l := sourceLabels
	if strings.EqualFold(c.Category, "leader") {
		l.cost = LeaderCostLabel
	}
	return renderCard(c, l)
}

// TranslatedCard renders a card block with translation-locale labels.
func TranslatedCard(c Card) string {
	return renderCard(c, translationLabels)
}

func renderCard(c Card, l labels) string {
	var b strings.Builder
	b.WriteString(`<div class="resultCol">`)
	fmt.Fprintf(&b, `<a class="modalOpen" data-src="#%s"><img class="lazy" src="%s" alt="%s"></a>`, c.Code, c.Image, c.Name)
	fmt.Fprintf(&b, `<dl class="modalCol" id="%s">`, c.Code)
	fmt.Fprintf(&b, `<dt><div class="infoCol"><span>%s</span> | <span>%s</span> | <span>%s</span></div>`, c.Code, c.Rarity, c.Category)
	fmt.Fprintf(&b, `<div class="cardName">%s</div></dt>`, c.Name)
	b.WriteString(`<dd><div class="backCol">`)
	fmt.Fprintf(&b, `<div class="col2"><div class="cost"><h3>%s</h3>%s</div>`, l.cost, c.Cost)
	fmt.Fprintf(&b, `<div class="attribute"><h3>%s</h3></div></div>`, c.Attribute)
	fmt.Fprintf(&b, `<div class="col2"><div class="power"><h3>%s</h3>%s</div>`, l.power, c.Power)
	fmt.Fprintf(&b, `<div class="counter"><h3>%s</h3>%s</div></div>`, l.counter, c.Counter)
	fmt.Fprintf(&b, `<div class="col2"><div class="color"><h3>%s</h3>%s</div></div>`, l.color, c.Color)
	fmt.Fprintf(&b, `<div class="feature"><h3>%s</h3>%s</div>`, l.feature, c.Feature)
	fmt.Fprintf(&b, `<div class="text"><h3>%s</h3>%s</div>`, l.effect, c.Effect)
	if c.Trigger != "" {
		fmt.Fprintf(&b, `<div class="trigger"><h3>%s</h3>%s</div>`, l.trigger, c.Trigger)
	}
	fmt.Fprintf(&b, `<div class="getInfo"><h3>%s</h3>%s</div>`, l.sets, c.Sets)
	b.WriteString(`</div></dd></dl></div>`)
	return b.String()
}

// SeriesPage wraps rendered card blocks in a result page.
func SeriesPage(cards ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="resultList">`)
	for _, card := range cards {
		b.WriteString(card)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// SeriesList renders the landing page with its series selector. The first
// option has an empty value, as on the live site.
func SeriesList(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><form method="post"><select name="series" id="series">`)
	b.WriteString(`<option value="">収録弾</option>`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<option value="%s">%s</option>`, id, id)
	}
	b.WriteString(`</select></form></body></html>`)
	return b.String()
}
