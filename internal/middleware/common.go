package middleware

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger *zerolog.Logger
	// Locale, when set, stores the caller's preferred language in the request context.
	Locale fiber.Handler
	// AllowOrigins is a comma separated CORS origin list. Empty allows any origin.
	AllowOrigins string
}

// Register attaches the middlewares shared by every route, outermost first.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}
	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(CorrelationID())
	if cfg.Locale != nil {
		app.Use(cfg.Locale)
	}
	app.Use(Observability(requestLogger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Accept-Language, Authorization, " + HeaderCorrelationID,
		AllowMethods:  "GET,POST,PATCH,DELETE,OPTIONS",
		ExposeHeaders: HeaderCorrelationID + ", " + fiber.HeaderRetryAfter,
	}))
}
