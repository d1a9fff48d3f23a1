// Package models defines data structures for the scraper.
package models

import (
	"fmt"
	"time"
)

// Card is a source-locale card row. Code alone is not unique: alternate
// arts and reprints share it.
type Card struct {
	Code       string `csv:"code" json:"code"`
	Image      string `csv:"image" json:"image"`
	Name       string `csv:"name" json:"name"`
	Category   string `csv:"category" json:"category"`
	Type       string `csv:"type" json:"type"`
	Cost       int    `csv:"cost" json:"cost"`
	Attribute  string `csv:"attribute" json:"attribute"`
	Power      int    `csv:"power" json:"power"`
	Counter    int    `csv:"counter" json:"counter"`
	Color      string `csv:"color" json:"color"`
	Sets       string `csv:"sets" json:"sets"`
	Effect     string `csv:"effect" json:"effect"`
	Trigger    string `csv:"trigger" json:"trigger"`
	ArtVariant int    `csv:"art_variant" json:"art_variant"`
	Tags       string `csv:"tags" json:"tags"`
}

// Key returns the natural key used for de-duplication.
func (c *Card) Key() string {
	return fmt.Sprintf("card|%s|%s|%s|%d", c.Code, c.Name, c.Sets, c.ArtVariant)
}

// Translation holds the translated text of a card for one locale.
type Translation struct {
	CardCode   string `json:"card_code"`
	Locale     string `json:"locale"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Effect     string `json:"effect"`
	Trigger    string `json:"trigger"`
	Image      string `json:"image"`
	ArtVariant int    `json:"art_variant"`
}

// Key returns the natural key used for de-duplication.
func (t *Translation) Key() string {
	return fmt.Sprintf("translation|%s|%s|%d", t.CardCode, t.Locale, t.ArtVariant)
}

// Snapshot is the exported document.
type Snapshot struct {
	Cards       []*Card        `json:"cards"`
	CardLocales []*Translation `json:"card_locales"`
}

// ScrapeResult holds the overall result of one locale's download phase.
type ScrapeResult struct {
	Locale       string
	StartTime    time.Time
	EndTime      time.Time
	SeriesCount  int
	FailedSeries []string
	CardCount    int
	InsertCount  int
	SkipCount    int
	Duplicates   int
	ErrorCount   int
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
}
