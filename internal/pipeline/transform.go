package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
)

// CatalogTransformer implements Transformer with the domain normalizer and
// delay calculator.
type CatalogTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a CatalogTransformer. Coerced cells are logged to logger.
func NewTransformer(logger *slog.Logger) *CatalogTransformer {
	return &CatalogTransformer{logger: logger}
}

func (t *CatalogTransformer) Normalize(ctx context.Context, raw *domain.Table) (*domain.Table, domain.NormalizeReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NormalizeReport{}, err
	}
	return domain.NormalizeCatalog(raw, t.logger)
}

func (t *CatalogTransformer) Derive(ctx context.Context, normalized *domain.Table) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return domain.ComputeAllDelays(normalized)
}
