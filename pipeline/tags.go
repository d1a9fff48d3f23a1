package pipeline

import (
	"context"
	"fmt"

	"github.com/aluiziolira/go-scrape-optcg/models"
	"github.com/aluiziolira/go-scrape-optcg/parser"
)

// TagStore is the part of the store tag generation needs.
type TagStore interface {
	AllTranslations(ctx context.Context) ([]*models.Translation, error)
	UpdateTags(ctx context.Context, code string, artVariant int, tags string) (int64, error)
}

// GenerateTags recomputes the tags of every card from its persisted
// translation in locale and overwrites the stored value. It returns the
// number of card rows updated.
func GenerateTags(ctx context.Context, s TagStore, locale string) (int64, error) {
	translations, err := s.AllTranslations(ctx)
	if err != nil {
		return 0, fmt.Errorf("load translations: %w", err)
	}

	var updated int64
	for _, tr := range translations {
		if tr.Locale != locale {
			continue
		}
		tags := parser.JoinTags(parser.ComputeTags(tr.Effect, tr.Trigger))
		n, err := s.UpdateTags(ctx, tr.CardCode, tr.ArtVariant, tags)
		if err != nil {
			return updated, err
		}
		updated += n
	}
	return updated, nil
}
