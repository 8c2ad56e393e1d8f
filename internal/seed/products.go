package seed

import (
	"context"
	"fmt"
	"math"

	"storeseed/internal/apiclient"
	"storeseed/internal/models"
	"storeseed/internal/observability"
)

// Price bounds of generated products.
const (
	MinPrice = 50.0
	MaxPrice = 3000.0
)

// BuildProduct synthesizes one product. counter is the number of products
// created so far and becomes part of the name. users and categories must
// not be empty.
func (s *Seeder) BuildProduct(users []models.ID, categories *CategorySet, counter int) models.Product {
	names := categories.Names()
	primary := names[s.faker.Number(0, len(names)-1)]
	primaryID, _ := categories.ID(primary)

	rule := s.catalog.RuleFor(primary)

	var related []models.ID
	for _, name := range rule.Related {
		if id, ok := categories.ID(name); ok {
			related = append(related, id)
		}
	}
	categoryIDs := []models.ID{primaryID}
	if len(related) > 0 {
		categoryIDs = append(categoryIDs, related[s.faker.Number(0, len(related)-1)])
	}

	name := rule.Render(s.catalog.Words, s.faker.RandomString)

	return models.Product{
		Name:        fmt.Sprintf("%s #%d%d", name, counter, s.faker.Number(1000, 9999)),
		Price:       math.Round(s.faker.Float64Range(MinPrice, MaxPrice)*100) / 100,
		Description: s.catalog.Describe(primary),
		UserID:      users[s.faker.Number(0, len(users)-1)],
		CategoryIDs: categoryIDs,
	}
}

// SeedProducts creates products until TotalProducts were confirmed. A failed
// attempt is logged and followed by a freshly generated product. Without an
// attempt cap a permanently failing API keeps the loop going until ctx is
// cancelled.
func (s *Seeder) SeedProducts(ctx context.Context, users []models.ID, categories *CategorySet) (int, error) {
	if len(users) == 0 || categories == nil || categories.Len() == 0 {
		return 0, ErrNoReferences
	}

	span, ctx := observability.StartStage(ctx, apiclient.ResourceProducts)
	defer span.End()

	log := observability.NewSeedLogger(apiclient.ResourceProducts, s.logger)
	log.LogStage(ctx, "generating products", map[string]any{
		"target":       s.opts.TotalProducts,
		"max_attempts": s.opts.MaxProductAttempts,
	})

	created := 0
	for created < s.opts.TotalProducts {
		if err := ctx.Err(); err != nil {
			span.SetError(err)
			return created, err
		}
		if s.opts.MaxProductAttempts > 0 && s.summary.ProductAttempts >= s.opts.MaxProductAttempts {
			err := fmt.Errorf("%w: %d attempts, %d/%d created",
				ErrAttemptsExhausted, s.summary.ProductAttempts, created, s.opts.TotalProducts)
			span.SetError(err)
			return created, err
		}

		s.summary.ProductAttempts++
		product := s.BuildProduct(users, categories, created)

		id, err := s.api.CreateProduct(ctx, product)
		if err != nil {
			s.summary.ProductsFailed++
			log.LogFailure(ctx, err, map[string]any{"name": product.Name})
		} else {
			created++
			s.summary.ProductsCreated++
			log.LogCreateDebug(ctx, map[string]any{"id": id.String(), "name": product.Name})
			if created%s.opts.ProgressEvery == 0 {
				log.LogProgress(ctx, created, s.opts.TotalProducts)
			}
		}

		if created < s.opts.TotalProducts {
			if err := s.sleep(ctx, s.opts.RequestDelay); err != nil {
				span.SetError(err)
				return created, err
			}
		}
	}
	return created, nil
}
