// Package seed populates a store API with demo users, categories and
// products. Calls are made one at a time; failures are logged and the run
// carries on.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storeseed/internal/catalog"
	"storeseed/internal/models"
	"storeseed/internal/observability"

	"github.com/brianvoe/gofakeit/v6"
)

// Messages printed at the end of a run.
const (
	MsgNothingToReference = "no se pudieron crear usuarios o categorías"
	MsgProductsDone       = "%d productos creados correctamente."
)

var (
	// ErrAttemptsExhausted is returned when the product attempt cap is reached
	// before the target count.
	ErrAttemptsExhausted = errors.New("product attempts exhausted")
	// ErrNoReferences is returned when products are requested without any
	// user or category to point at.
	ErrNoReferences = errors.New("no users or categories to reference")
)

// API is the subset of the store API the seeder calls.
type API interface {
	CreateUser(ctx context.Context, u models.User) (models.ID, error)
	CreateCategory(ctx context.Context, c models.Category) (models.ID, error)
	CreateProduct(ctx context.Context, p models.Product) (models.ID, error)
}

// Options configures a Seeder.
type Options struct {
	TotalProducts int
	// RequestDelay is the pause after every product attempt.
	RequestDelay  time.Duration
	ProgressEvery int
	// MaxProductAttempts caps product attempts; 0 means no cap.
	MaxProductAttempts int
	// RandomSeed fixes the random source; 0 picks a random seed.
	RandomSeed int64
	Logger     *observability.Logger
}

// Summary reports what a run did.
type Summary struct {
	UsersCreated      int
	UsersFailed       int
	CategoriesCreated int
	CategoriesFailed  int
	ProductAttempts   int
	ProductsCreated   int
	ProductsFailed    int
	ProductsSkipped   bool
	Elapsed           time.Duration
}

// Seeder runs the user, category and product stages against an API.
type Seeder struct {
	api     API
	catalog *catalog.Catalog
	opts    Options
	faker   *gofakeit.Faker
	logger  *observability.Logger
	sleep   func(context.Context, time.Duration) error
	summary Summary
}

// NewSeeder creates a Seeder. Zero option values fall back to 1000 products
// and a progress line every 100.
func NewSeeder(api API, cat *catalog.Catalog, opts Options) *Seeder {
	if opts.TotalProducts <= 0 {
		opts.TotalProducts = 1000
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 100
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.GlobalLogger
	}
	return &Seeder{
		api:     api,
		catalog: cat,
		opts:    opts,
		faker:   gofakeit.New(opts.RandomSeed),
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Summary returns the counters accumulated so far.
func (s *Seeder) Summary() Summary {
	return s.summary
}

// Run seeds users and categories and, when both produced at least one
// record, products. A skipped product stage is not an error.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	span, ctx := observability.StartStage(ctx, "run")
	defer span.End()

	users := s.SeedUsers(ctx)
	categories := s.SeedCategories(ctx)

	if err := ctx.Err(); err != nil {
		s.summary.Elapsed = time.Since(start)
		span.SetError(err)
		return s.summary, err
	}

	if len(users) == 0 || categories.Len() == 0 {
		s.summary.ProductsSkipped = true
		s.summary.Elapsed = time.Since(start)
		s.logger.ErrorContext(ctx, MsgNothingToReference,
			slog.Int("users", len(users)),
			slog.Int("categories", categories.Len()),
		)
		return s.summary, nil
	}

	created, err := s.SeedProducts(ctx, users, categories)
	s.summary.Elapsed = time.Since(start)
	if err != nil {
		span.SetError(err)
		return s.summary, err
	}

	s.logger.InfoContext(ctx, fmt.Sprintf(MsgProductsDone, created),
		slog.Duration("elapsed", s.summary.Elapsed),
		slog.Int("attempts", s.summary.ProductAttempts),
	)
	return s.summary, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
