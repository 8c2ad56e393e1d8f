package fakeapi

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	tokenIssuer   = "storeseed-fakeapi"
	tokenAudience = "storeseed-client"
)

// Options configures the fake API.
type Options struct {
	// JWTSecret enables /api/auth/login and protects product creation.
	JWTSecret string
	// TokenTTL is the lifetime of issued tokens. Defaults to 24h.
	TokenTTL time.Duration
	// FailEvery answers every n-th product creation with 503. Zero disables it.
	FailEvery int
	Logger    *slog.Logger
}

// Server serves the store API on top of a Store.
type Server struct {
	app   *fiber.App
	store *Store
	opts  Options
	log   *slog.Logger
	prom  *fiberprometheus.FiberPrometheus

	productPosts atomic.Int64
}

// New builds the fiber app with middleware and routes mounted.
func New(store *Store, opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		store: store,
		opts:  opts,
		log:   opts.Logger,
		prom:  fiberprometheus.NewWithRegistry(prometheus.NewRegistry(), "fakeapi", "fakeapi", "http", nil),
	}

	app := fiber.New(fiber.Config{
		AppName:               "storeseed fake API",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return respondWithError(c, fe.Code, err)
			}
			s.log.Error("unhandled error", slog.String("error", err.Error()))
			return respondWithError(c, fiber.StatusInternalServerError, newInternalError(err))
		},
	})
	s.app = app

	s.setupMiddleware(app)
	s.setupRoutes(app)
	return s
}

// App exposes the fiber app, mainly for app.Test and adaptor.FiberApp.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(s.prom.Middleware)
	app.Use(s.structuredLogger())
}

func (s *Server) setupRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.prom.RegisterAt(app, "/metrics")

	api := app.Group("/api")
	api.Get("/stats", s.GetStats)

	api.Post("/users", s.CreateUser)
	api.Post("/categories", s.CreateCategory)

	products := api.Group("/products")
	products.Get("/", s.ListProducts)
	products.Get("/:id", s.GetProduct)
	if s.opts.JWTSecret != "" {
		api.Post("/auth/login", s.Login)
		products.Post("/", s.authRequired(), s.injectFaults(), s.CreateProduct)
	} else {
		products.Post("/", s.injectFaults(), s.CreateProduct)
	}
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("fake API listening", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// structuredLogger logs every request through slog.
func (s *Server) structuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Duration("latency", time.Since(start)),
		}
		if uid := c.Locals("userID"); uid != nil {
			fields = append(fields, slog.Any("user_id", uid))
		}
		if rid := c.Locals("requestid"); rid != nil {
			fields = append(fields, slog.Any("request_id", rid))
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			s.log.Error("request failed", fields...)
		} else {
			s.log.Debug("request processed", fields...)
		}
		return err
	}
}

// injectFaults answers every FailEvery-th call with 503.
func (s *Server) injectFaults() fiber.Handler {
	return func(c *fiber.Ctx) error {
		n := s.productPosts.Add(1)
		if s.opts.FailEvery > 0 && n%int64(s.opts.FailEvery) == 0 {
			return respondWithError(c, fiber.StatusServiceUnavailable,
				&AppError{Code: "UNAVAILABLE", Message: "Injected failure"})
		}
		return c.Next()
	}
}

// authRequired validates the bearer token and stores the caller's id.
func (s *Server) authRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""
		if parts := strings.Split(c.Get("Authorization"), " "); len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
		if tokenString == "" {
			return respondWithError(c, fiber.StatusUnauthorized,
				newUnauthorizedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.opts.JWTSecret), nil
		}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))
		if err != nil || !token.Valid {
			return respondWithError(c, fiber.StatusUnauthorized,
				newUnauthorizedError("Invalid or expired token"))
		}

		sub, err := token.Claims.GetSubject()
		if err != nil {
			return respondWithError(c, fiber.StatusUnauthorized,
				newUnauthorizedError("Invalid subject claim"))
		}
		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return respondWithError(c, fiber.StatusUnauthorized,
				newUnauthorizedError("Invalid user ID in token"))
		}

		c.Locals("userID", uint(userID))
		return c.Next()
	}
}

// generateToken signs an HS256 token for userID.
func (s *Server) generateToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": now.Add(s.opts.TokenTTL).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.opts.JWTSecret))
}
