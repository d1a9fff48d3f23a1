package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-optcg/models"
)

var colorNames = map[string]string{
	"赤": "red",
	"緑": "green",
	"青": "blue",
	"紫": "purple",
	"黄": "yellow",
	"黒": "black",
}

var artVariantPattern = regexp.MustCompile(`_p(\d+)`)

// ValidateCard ensures the extractor captured the identifying fields.
func ValidateCard(c *models.Card) error {
	if c == nil {
		return fmt.Errorf("card is nil")
	}
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("card missing code")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("card missing name for %s", c.Code)
	}
	return nil
}

// ValidateTranslation ensures a translation row can be linked to its card.
func ValidateTranslation(t *models.Translation) error {
	if t == nil {
		return fmt.Errorf("translation is nil")
	}
	if strings.TrimSpace(t.CardCode) == "" {
		return fmt.Errorf("translation missing card code")
	}
	if strings.TrimSpace(t.Locale) == "" {
		return fmt.Errorf("translation missing locale for %s", t.CardCode)
	}
	return nil
}

// TranslateColor maps slash-delimited color glyphs to English names joined by
// a space. Unknown tokens pass through unchanged.
func TranslateColor(raw string) string {
	tokens := strings.Split(raw, "/")
	for i, token := range tokens {
		if name, ok := colorNames[token]; ok {
			tokens[i] = name
		}
	}
	return strings.Join(tokens, " ")
}

// ResolveArtVariant returns the number following the first "_p" in an image
// URL, or 0 for the primary art. A digit run too large for an int saturates
// at math.MaxInt so it never collides with the primary art.
func ResolveArtVariant(imageURL string) int {
	match := artVariantPattern.FindStringSubmatch(imageURL)
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return n
}

// ApplyCategoryCost zeroes the cost of leader cards; the site prints a
// placeholder there.
func ApplyCategoryCost(c *models.Card) *models.Card {
	if c != nil && c.Category == "leader" {
		c.Cost = 0
	}
	return c
}

// NewCard builds a source-locale card from extracted fields.
func NewCard(raw *RawFieldSet) *models.Card {
	card := &models.Card{
		Code:       raw.Code,
		Image:      raw.Image,
		Name:       raw.Name,
		Category:   raw.Category,
		Type:       raw.Type,
		Cost:       raw.Cost,
		Attribute:  raw.Attribute,
		Power:      raw.Power,
		Counter:    raw.Counter,
		Color:      TranslateColor(raw.Color),
		Sets:       raw.Sets,
		Effect:     raw.Effect,
		Trigger:    raw.Trigger,
		ArtVariant: ResolveArtVariant(raw.Image),
	}
	return ApplyCategoryCost(card)
}

// NewTranslation builds a translation row from extracted fields.
func NewTranslation(raw *RawFieldSet, locale string) *models.Translation {
	return &models.Translation{
		CardCode:   raw.Code,
		Locale:     locale,
		Name:       raw.Name,
		Type:       raw.Type,
		Effect:     raw.Effect,
		Trigger:    raw.Trigger,
		Image:      raw.Image,
		ArtVariant: ResolveArtVariant(raw.Image),
	}
}
