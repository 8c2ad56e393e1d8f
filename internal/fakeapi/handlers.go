package fakeapi

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"storeseed/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultListLimit   = 50
	maxPaginationLimit = 100
	minPasswordLength  = 8
)

// storeError maps Store errors to HTTP answers.
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrDuplicate):
		return respondWithError(c, fiber.StatusConflict, newConflictError(err))
	case errors.Is(err, ErrNotFound):
		return respondWithError(c, fiber.StatusNotFound, newNotFoundError(err))
	default:
		return respondWithError(c, fiber.StatusInternalServerError, newInternalError(err))
	}
}

// parseRef turns a wire id into a store key.
func parseRef(id models.ID) (uint, bool) {
	n, err := strconv.ParseUint(id.String(), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// CreateUser handles POST /api/users.
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req models.User
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Invalid request body"))
	}

	if strings.TrimSpace(req.Name) == "" {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Name is required"))
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Invalid email"))
	}
	if len(req.Password) < minPasswordLength {
		return respondWithError(c, fiber.StatusBadRequest,
			newValidationError("Password must be at least 8 characters"))
	}

	user, err := s.store.CreateUser(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// CreateCategory handles POST /api/categories.
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req models.Category
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Name) == "" {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Name is required"))
	}

	cat, err := s.store.CreateCategory(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cat)
}

// CreateProduct handles POST /api/products.
func (s *Server) CreateProduct(c *fiber.Ctx) error {
	var req models.Product
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Invalid request body"))
	}

	if strings.TrimSpace(req.Name) == "" {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Name is required"))
	}
	if req.Price <= 0 {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Price must be positive"))
	}
	userID, ok := parseRef(req.UserID)
	if !ok {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Invalid user ID"))
	}
	if len(req.CategoryIDs) == 0 {
		return respondWithError(c, fiber.StatusBadRequest,
			newValidationError("At least one category is required"))
	}
	categoryIDs := make([]uint, 0, len(req.CategoryIDs))
	for _, ref := range req.CategoryIDs {
		id, ok := parseRef(ref)
		if !ok {
			return respondWithError(c, fiber.StatusBadRequest, newValidationError("Invalid category ID"))
		}
		categoryIDs = append(categoryIDs, id)
	}

	product, err := s.store.CreateProduct(c.UserContext(), NewProduct{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		UserID:      userID,
		CategoryIDs: categoryIDs,
	})
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// GetProduct handles GET /api/products/:id.
func (s *Server) GetProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Invalid ID"))
	}

	product, err := s.store.GetProduct(c.UserContext(), uint(id))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(product)
}

// ListProducts handles GET /api/products with optional categoryId, limit and
// offset query parameters.
func (s *Server) ListProducts(c *fiber.Ctx) error {
	categoryID := c.QueryInt("categoryId", 0)
	if categoryID < 0 {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Invalid category ID"))
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	products, err := s.store.ListProducts(c.UserContext(), uint(categoryID), limit, offset)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(products)
}

// GetStats handles GET /api/stats.
func (s *Server) GetStats(c *fiber.Ctx) error {
	stats, err := s.store.Stats(c.UserContext())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(stats)
}

// Login handles POST /api/auth/login.
func (s *Server) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest, newValidationError("Invalid request body"))
	}

	user, err := s.store.Authenticate(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, ErrNotFound) {
		return respondWithError(c, fiber.StatusUnauthorized, newUnauthorizedError("Invalid credentials"))
	}
	if err != nil {
		return respondWithError(c, fiber.StatusInternalServerError, newInternalError(err))
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return respondWithError(c, fiber.StatusInternalServerError, newInternalError(err))
	}

	return c.JSON(models.LoginResponse{
		Token: token,
		ID:    models.NumericID(int64(user.ID)),
		Email: user.Email,
	})
}
