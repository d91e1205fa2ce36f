package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type languageKey struct{}

// Catalog holds the translation bundle for all embedded locales.
type Catalog struct {
	bundle      *i18n.Bundle
	defaultLang string
	logger      zerolog.Logger
}

// New loads every embedded locale file with defaultLang as the fallback language.
func New(defaultLang string, logger zerolog.Logger) (*Catalog, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", entry.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, entry.Name()); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", entry.Name(), err)
		}
	}

	return &Catalog{
		bundle:      bundle,
		defaultLang: tag.String(),
		logger:      logger.With().Str("component", "i18n").Logger(),
	}, nil
}

// WithLanguage stores the caller's preferred languages (an Accept-Language value) in ctx.
func WithLanguage(ctx context.Context, accept string) context.Context {
	if accept == "" {
		return ctx
	}
	return context.WithValue(ctx, languageKey{}, accept)
}

// T translates messageID for the languages carried by ctx. Missing keys return the id.
func (c *Catalog) T(ctx context.Context, messageID string) string {
	langs := []string{}
	if ctx != nil {
		if accept, ok := ctx.Value(languageKey{}).(string); ok {
			langs = append(langs, accept)
		}
	}
	langs = append(langs, c.defaultLang)

	localizer := i18n.NewLocalizer(c.bundle, langs...)
	message, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		c.logger.Warn().Err(err).Str("id", messageID).Msg("missing translation")
		return messageID
	}
	return message
}

// Middleware copies the Accept-Language header into the request's user context.
func (c *Catalog) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		ctx.SetUserContext(WithLanguage(ctx.UserContext(), ctx.Get(fiber.HeaderAcceptLanguage)))
		return ctx.Next()
	}
}
