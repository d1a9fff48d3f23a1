package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aluiziolira/go-scrape-optcg/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Queries holds the statements run against cards and card_translations.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const insertCard = `
INSERT INTO cards (code, image, name, category, type, cost, attribute, power, counter, color, sets, effect, "trigger", art_variant, tags)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (code, name, sets, art_variant) DO NOTHING`

// UpsertCard inserts c unless a card with the same natural key exists.
// It reports whether a row was written.
func (q *Queries) UpsertCard(ctx context.Context, c *models.Card) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertCard,
		c.Code, c.Image, c.Name, c.Category, c.Type, c.Cost, c.Attribute, c.Power, c.Counter,
		c.Color, c.Sets, c.Effect, c.Trigger, c.ArtVariant, c.Tags,
	)
	if err != nil {
		return false, fmt.Errorf("insert card %s: %w", c.Code, err)
	}
	return inserted(res)
}

const insertTranslation = `
INSERT INTO card_translations (card_code, locale, name, type, effect, "trigger", image, art_variant)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (card_code, locale, art_variant) DO NOTHING`

// UpsertTranslation inserts t unless a row with the same natural key exists.
func (q *Queries) UpsertTranslation(ctx context.Context, t *models.Translation) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertTranslation,
		t.CardCode, t.Locale, t.Name, t.Type, t.Effect, t.Trigger, t.Image, t.ArtVariant,
	)
	if err != nil {
		return false, fmt.Errorf("insert translation %s/%s: %w", t.CardCode, t.Locale, err)
	}
	return inserted(res)
}

// WriteCards upserts a batch and returns how many rows were new.
func (q *Queries) WriteCards(ctx context.Context, cards []*models.Card) (int, error) {
	n := 0
	for _, c := range cards {
		ok, err := q.UpsertCard(ctx, c)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// WriteTranslations upserts a batch and returns how many rows were new.
func (q *Queries) WriteTranslations(ctx context.Context, translations []*models.Translation) (int, error) {
	n := 0
	for _, t := range translations {
		ok, err := q.UpsertTranslation(ctx, t)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

const updateTags = `UPDATE cards SET tags = ? WHERE code = ? AND art_variant = ?`

// UpdateTags replaces the tags of every card row printed as code/artVariant.
func (q *Queries) UpdateTags(ctx context.Context, code string, artVariant int, tags string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTags, tags, code, artVariant)
	if err != nil {
		return 0, fmt.Errorf("update tags %s: %w", code, err)
	}
	return res.RowsAffected()
}

const selectCards = `
SELECT code, image, name, category, type, cost, attribute, power, counter, color, sets, effect, "trigger", art_variant, tags
FROM cards
ORDER BY code, name, sets, art_variant`

// AllCards returns every card ordered by natural key.
func (q *Queries) AllCards(ctx context.Context) ([]*models.Card, error) {
	rows, err := q.db.QueryContext(ctx, selectCards)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	cards := []*models.Card{}
	for rows.Next() {
		c := &models.Card{}
		if err := rows.Scan(
			&c.Code, &c.Image, &c.Name, &c.Category, &c.Type, &c.Cost, &c.Attribute, &c.Power,
			&c.Counter, &c.Color, &c.Sets, &c.Effect, &c.Trigger, &c.ArtVariant, &c.Tags,
		); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

const selectTranslations = `
SELECT card_code, locale, name, type, effect, "trigger", image, art_variant
FROM card_translations
ORDER BY card_code, locale, art_variant`

// AllTranslations returns every translation ordered by natural key.
func (q *Queries) AllTranslations(ctx context.Context) ([]*models.Translation, error) {
	rows, err := q.db.QueryContext(ctx, selectTranslations)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	translations := []*models.Translation{}
	for rows.Next() {
		t := &models.Translation{}
		if err := rows.Scan(
			&t.CardCode, &t.Locale, &t.Name, &t.Type, &t.Effect, &t.Trigger, &t.Image, &t.ArtVariant,
		); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		translations = append(translations, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return translations, nil
}

func inserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
