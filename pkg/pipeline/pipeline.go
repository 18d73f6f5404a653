// Package pipeline runs a scanned barcode through the metadata enrichment
// steps: code resolution, sequential provider lookups, field-level merge,
// keyword extraction, and the catalog upsert.
package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfscan/shelfscan/pkg/books"
	"github.com/shelfscan/shelfscan/pkg/config"
	"github.com/shelfscan/shelfscan/pkg/isbn"
	"github.com/shelfscan/shelfscan/pkg/keywords"
	"github.com/shelfscan/shelfscan/pkg/models"
	"github.com/shelfscan/shelfscan/pkg/providers"
)

type Pipeline struct {
	config      *config.Config
	registry    providers.Registry
	bookService *books.Service
}

func New(cfg *config.Config, registry providers.Registry, bookService *books.Service) *Pipeline {
	return &Pipeline{
		config:      cfg,
		registry:    registry,
		bookService: bookService,
	}
}

// merged accumulates provider outputs field by field. The first provider in
// priority order to supply a field wins; later providers only fill the gaps.
type merged struct {
	Title     string
	Author    string
	Publisher string
	Summary   string
}

func (m *merged) absorb(result *providers.LookupResult) {
	if m.Title == "" {
		m.Title = result.Title
	}
	if m.Author == "" {
		m.Author = result.Author
	}
	if m.Publisher == "" {
		m.Publisher = result.Publisher
	}
	if m.Summary == "" {
		m.Summary = result.Summary
	}
}

func (m *merged) complete() bool {
	return m.Title != "" && m.Author != "" && m.Summary != ""
}

// Enrich resolves the code, queries its providers in priority order, merges
// what they return, and upserts the result into the catalog. An invalid code
// is the only error a caller sees from the lookup phase: providers that are
// down or have no record simply contribute nothing, and a code no provider
// recognizes is still cataloged as a minimal record so the physical copy is
// counted.
func (p *Pipeline) Enrich(ctx context.Context, code string) (*models.Book, error) {
	log := logger.FromContext(ctx)

	id, err := isbn.Resolve(code)
	if err != nil {
		return nil, err
	}

	record := &merged{}
	hits := 0
	for _, name := range id.Providers {
		client, ok := p.registry[name]
		if !ok {
			continue
		}

		result, err := client.Fetch(ctx, id)
		if err != nil {
			var unavailable *providers.Unavailable
			if errors.As(err, &unavailable) {
				log.Err(err).Warn("provider unavailable", logger.Data{"provider": string(name)})
				continue
			}
			return nil, err
		}
		if !result.Found {
			continue
		}

		hits++
		record.absorb(result)
		if record.complete() {
			break
		}
	}

	book := &models.Book{
		Barcode:   id.Code,
		ISBN:      id.LookupISBN(),
		Title:     record.Title,
		Author:    record.Author,
		Publisher: record.Publisher,
		Summary:   record.Summary,
	}

	limit := p.config.KeywordLimit
	if limit == 0 {
		limit = keywords.DefaultLimit
	}
	book.KeywordsParsed = keywords.ExtractN(record.Summary, limit)

	log.Info("enriched scan", logger.Data{
		"code":      id.Code,
		"kind":      string(id.Kind),
		"providers": hits,
		"title":     record.Title,
	})

	return p.bookService.UpsertByBarcode(ctx, book)
}
