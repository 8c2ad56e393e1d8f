package seed

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"storeseed/internal/apiclient"
	"storeseed/internal/database"
	"storeseed/internal/fakeapi"
	"storeseed/internal/observability"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// startFakeAPI serves a fresh in-memory store over real HTTP.
func startFakeAPI(t *testing.T, opts fakeapi.Options) (*httptest.Server, *fakeapi.Store) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open("", quiet)
	require.NoError(t, err)
	store := fakeapi.NewStore(db, bcrypt.MinCost)
	require.NoError(t, store.Migrate())

	opts.Logger = quiet
	srv := fakeapi.New(store, opts)

	ts := httptest.NewServer(adaptor.FiberApp(srv.App()))
	t.Cleanup(ts.Close)
	return ts, store
}

func newIntegrationSeeder(t *testing.T, api API, opts Options) *Seeder {
	t.Helper()
	opts.RandomSeed = 11
	opts.Logger = observability.NewLogger(io.Discard, "json", slog.LevelInfo)
	return NewSeeder(api, defaultCatalog(t), opts)
}

func TestIntegration_SeedsFakeAPI(t *testing.T) {
	ts, store := startFakeAPI(t, fakeapi.Options{})

	client, err := apiclient.New(ts.URL + "/api")
	require.NoError(t, err)

	s := newIntegrationSeeder(t, client, Options{TotalProducts: 25, ProgressEvery: 10})
	sum, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, sum.UsersCreated)
	assert.Equal(t, 6, sum.CategoriesCreated)
	assert.Equal(t, 25, sum.ProductsCreated)
	assert.Zero(t, sum.ProductsFailed)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fakeapi.Stats{Users: 5, Categories: 6, Products: 25}, stats)

	products, err := store.ListProducts(context.Background(), 0, 0, 0)
	require.NoError(t, err)
	for _, p := range products {
		assert.GreaterOrEqual(t, p.Price, MinPrice)
		assert.LessOrEqual(t, p.Price, MaxPrice)
		assert.NotEmpty(t, p.Categories)
		assert.LessOrEqual(t, len(p.Categories), 2)
	}
}

func TestIntegration_SecondRunHitsDuplicates(t *testing.T) {
	ts, store := startFakeAPI(t, fakeapi.Options{})
	client, err := apiclient.New(ts.URL + "/api")
	require.NoError(t, err)

	_, err = newIntegrationSeeder(t, client, Options{TotalProducts: 3}).Run(context.Background())
	require.NoError(t, err)

	sum, err := newIntegrationSeeder(t, client, Options{TotalProducts: 3}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.UsersFailed)
	assert.Equal(t, 6, sum.CategoriesFailed)
	assert.True(t, sum.ProductsSkipped)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Products)
}

func TestIntegration_RetriesInjectedFailures(t *testing.T) {
	ts, store := startFakeAPI(t, fakeapi.Options{FailEvery: 4})
	client, err := apiclient.New(ts.URL + "/api")
	require.NoError(t, err)

	sum, err := newIntegrationSeeder(t, client, Options{TotalProducts: 12}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, sum.ProductsCreated)
	assert.Equal(t, 3, sum.ProductsFailed)
	assert.Equal(t, 15, sum.ProductAttempts)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.Products)
}

func TestIntegration_ProtectedProductsNeedLogin(t *testing.T) {
	ts, store := startFakeAPI(t, fakeapi.Options{JWTSecret: "integration-secret"})

	client, err := apiclient.New(ts.URL + "/api")
	require.NoError(t, err)

	sum, err := newIntegrationSeeder(t, client, Options{TotalProducts: 2, MaxProductAttempts: 3}).Run(context.Background())
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 3, sum.ProductsFailed)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Products)
}

func TestIntegration_LoginUnlocksProducts(t *testing.T) {
	ts, store := startFakeAPI(t, fakeapi.Options{JWTSecret: "integration-secret"})
	_, err := store.EnsureAdmin(context.Background(), "admin@demo.com", "AdminPass1")
	require.NoError(t, err)

	client, err := apiclient.New(ts.URL + "/api")
	require.NoError(t, err)
	require.NoError(t, client.Login(context.Background(), "admin@demo.com", "AdminPass1"))

	sum, err := newIntegrationSeeder(t, client, Options{TotalProducts: 4}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.ProductsCreated)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fakeapi.Stats{Users: 6, Categories: 6, Products: 4}, stats)
}
