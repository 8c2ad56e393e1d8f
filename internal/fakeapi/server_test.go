package fakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"storeseed/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, opts Options) (*Server, *Store) {
	t.Helper()
	db, err := database.Open("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	store := NewStore(db, bcrypt.MinCost)
	require.NoError(t, store.Migrate())

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return New(store, opts), store
}

func doJSON(t *testing.T, s *Server, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func createFixtures(t *testing.T, store *Store) (userID, catA, catB uint) {
	t.Helper()
	ctx := context.Background()
	u, err := store.CreateUser(ctx, "Jacob Elordi", "jacob.elordi@demo.com", "Password123")
	require.NoError(t, err)
	a, err := store.CreateCategory(ctx, "Gaming", "")
	require.NoError(t, err)
	b, err := store.CreateCategory(ctx, "Periféricos", "")
	require.NoError(t, err)
	return u.ID, a.ID, b.ID
}

func TestCreateUser(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	body := map[string]string{"name": "Jeon Jungkook", "email": "jeon.jungkook@demo.com", "password": "Password123"}

	status, raw := doJSON(t, s, http.MethodPost, "/api/users", body, "")
	require.Equal(t, http.StatusCreated, status, string(raw))

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.EqualValues(t, 1, got["id"])
	assert.Equal(t, "jeon.jungkook@demo.com", got["email"])
	assert.NotContains(t, got, "password")

	status, raw = doJSON(t, s, http.MethodPost, "/api/users", body, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(raw), `"code":"CONFLICT"`)
}

func TestCreateUser_Validation(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a.b@demo.com", "password": "Password123"}},
		{"bad email", map[string]string{"name": "A B", "email": "nope", "password": "Password123"}},
		{"short password", map[string]string{"name": "A B", "email": "a.b@demo.com", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := doJSON(t, s, http.MethodPost, "/api/users", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, string(raw), "VALIDATION_ERROR")
		})
	}
}

func TestCreateCategory(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	body := map[string]string{"name": "Gaming", "description": "Productos gamer"}

	status, raw := doJSON(t, s, http.MethodPost, "/api/categories", body, "")
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.Contains(t, string(raw), `"name":"Gaming"`)

	status, _ = doJSON(t, s, http.MethodPost, "/api/categories", body, "")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, s, http.MethodPost, "/api/categories", map[string]string{"name": " "}, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateProduct(t *testing.T) {
	s, store := newTestServer(t, Options{})
	userID, catA, catB := createFixtures(t, store)

	body := map[string]any{
		"name":        "Gamer Mouse RGB #01234",
		"price":       199.99,
		"description": "Gaming premium de alto rendimiento",
		"userId":      userID,
		"categoryIds": []uint{catA, catB},
	}
	status, raw := doJSON(t, s, http.MethodPost, "/api/products", body, "")
	require.Equal(t, http.StatusCreated, status, string(raw))

	var created ProductRecord
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "jacob.elordi@demo.com", created.User.Email)
	require.Len(t, created.Categories, 2)

	status, raw = doJSON(t, s, http.MethodGet, "/api/products/1", nil, "")
	require.Equal(t, http.StatusOK, status)
	var fetched ProductRecord
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, 199.99, fetched.Price)
	assert.Len(t, fetched.Categories, 2)
}

func TestCreateProduct_AcceptsStringIDs(t *testing.T) {
	s, store := newTestServer(t, Options{})
	userID, catA, _ := createFixtures(t, store)

	body := map[string]any{
		"name":        "Monitor X 24 pulgadas #05555",
		"price":       300.5,
		"userId":      itoa(userID),
		"categoryIds": []string{itoa(catA)},
	}
	status, raw := doJSON(t, s, http.MethodPost, "/api/products", body, "")
	assert.Equal(t, http.StatusCreated, status, string(raw))
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}

func TestCreateProduct_Rejections(t *testing.T) {
	s, store := newTestServer(t, Options{})
	userID, catA, _ := createFixtures(t, store)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"zero price", map[string]any{"name": "X", "price": 0, "userId": userID, "categoryIds": []uint{catA}}, http.StatusBadRequest},
		{"no categories", map[string]any{"name": "X", "price": 10, "userId": userID, "categoryIds": []uint{}}, http.StatusBadRequest},
		{"bad user ref", map[string]any{"name": "X", "price": 10, "userId": "abc", "categoryIds": []uint{catA}}, http.StatusBadRequest},
		{"unknown user", map[string]any{"name": "X", "price": 10, "userId": 999, "categoryIds": []uint{catA}}, http.StatusNotFound},
		{"unknown category", map[string]any{"name": "X", "price": 10, "userId": userID, "categoryIds": []uint{catA, 999}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := doJSON(t, s, http.MethodPost, "/api/products", tt.body, "")
			assert.Equal(t, tt.status, status, string(raw))
		})
	}

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Products)
}

func TestListProducts_FiltersByCategory(t *testing.T) {
	s, store := newTestServer(t, Options{})
	userID, catA, catB := createFixtures(t, store)
	ctx := context.Background()

	_, err := store.CreateProduct(ctx, NewProduct{Name: "A", Price: 1, UserID: userID, CategoryIDs: []uint{catA}})
	require.NoError(t, err)
	_, err = store.CreateProduct(ctx, NewProduct{Name: "AB", Price: 2, UserID: userID, CategoryIDs: []uint{catA, catB}})
	require.NoError(t, err)

	var all, onlyB []ProductRecord
	status, raw := doJSON(t, s, http.MethodGet, "/api/products", nil, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &all))
	assert.Len(t, all, 2)

	status, raw = doJSON(t, s, http.MethodGet, "/api/products?categoryId="+itoa(catB), nil, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &onlyB))
	require.Len(t, onlyB, 1)
	assert.Equal(t, "AB", onlyB[0].Name)
}

func TestGetProduct_NotFound(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	status, _ := doJSON(t, s, http.MethodGet, "/api/products/42", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, s, http.MethodGet, "/api/products/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFailEvery(t *testing.T) {
	s, store := newTestServer(t, Options{FailEvery: 3})
	userID, catA, _ := createFixtures(t, store)

	var statuses []int
	for i := 0; i < 6; i++ {
		body := map[string]any{"name": "P", "price": 10, "userId": userID, "categoryIds": []uint{catA}}
		status, _ := doJSON(t, s, http.MethodPost, "/api/products", body, "")
		statuses = append(statuses, status)
	}
	assert.Equal(t, []int{201, 201, 503, 201, 201, 503}, statuses)
}

func TestLoginAndProtectedProducts(t *testing.T) {
	s, store := newTestServer(t, Options{JWTSecret: "test-secret"})
	userID, catA, _ := createFixtures(t, store)
	_, err := store.EnsureAdmin(context.Background(), "admin@demo.com", "AdminPass1")
	require.NoError(t, err)

	product := map[string]any{"name": "P", "price": 10, "userId": userID, "categoryIds": []uint{catA}}

	status, _ := doJSON(t, s, http.MethodPost, "/api/products", product, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = doJSON(t, s, http.MethodPost, "/api/products", product, "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, s, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "admin@demo.com", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw := doJSON(t, s, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "admin@demo.com", "password": "AdminPass1"}, "")
	require.Equal(t, http.StatusOK, status, string(raw))

	var login struct {
		Token string `json:"token"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(raw, &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "admin@demo.com", login.Email)

	status, raw = doJSON(t, s, http.MethodPost, "/api/products", product, login.Token)
	assert.Equal(t, http.StatusCreated, status, string(raw))
}

func TestLoginDisabledWithoutSecret(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	status, _ := doJSON(t, s, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "a@b.c", "password": "x"}, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	_, store := newTestServer(t, Options{})
	ctx := context.Background()

	first, err := store.EnsureAdmin(ctx, "admin@demo.com", "AdminPass1")
	require.NoError(t, err)
	second, err := store.EnsureAdmin(ctx, "ADMIN@demo.com", "ignored-password")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsAdmin)

	_, err = store.Authenticate(ctx, "admin@demo.com", "AdminPass1")
	assert.NoError(t, err)
}

func TestStatsAndMetrics(t *testing.T) {
	s, store := newTestServer(t, Options{})
	createFixtures(t, store)

	status, raw := doJSON(t, s, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"users":1,"categories":2,"products":0}`, string(raw))

	status, raw = doJSON(t, s, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "requests_total")

	status, _ = doJSON(t, s, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, status)
}
