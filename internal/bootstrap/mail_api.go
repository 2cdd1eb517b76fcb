// Package bootstrap assembles the application from config.
package bootstrap

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	httpin "mail_server/adapter/in/http"
	"mail_server/config"
	"mail_server/infra/middleware"
	"mail_server/pkg/logger"
)

// NewAPI builds the Fiber application with all routes and middleware.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: "mail-server",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             5 * 1024 * 1024,
	})

	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(cfg.IsDevelopment()))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-API-Key,X-Request-ID",
	}))

	// Unguarded surfaces: liveness, the operator-facing OAuth flow and
	// the Pub/Sub push endpoint.
	httpin.NewHealthHandler(deps.Redis, deps.TokenStore).Register(app)
	httpin.NewOAuthHandler(deps.OAuthFlow, deps.stateStore()).Register(app)
	httpin.NewWebhookHandler(deps.Reader, deps.Analyzer, deps.eventStore()).Register(app)

	api := app.Group("/api/v1", middleware.APIKeyAuth(cfg.APIKey))
	httpin.NewEmailHandler(deps.Reader, deps.Analyzer, deps.Renewer, cfg.DefaultMaxResults, cfg.ExpenseQuery).Register(api)

	return app, cleanup, nil
}
