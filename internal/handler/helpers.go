package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nattapong2005/codementorai/internal/middleware"
	"github.com/nattapong2005/codementorai/internal/service"
	"github.com/nattapong2005/codementorai/internal/utils"
)

// Translator resolves localized messages for the request context.
type Translator interface {
	T(ctx context.Context, messageID string) string
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseQueryBool(c *fiber.Ctx, key string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals(middleware.LocalUserID); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals(middleware.LocalUserRole); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// errorResponder maps service errors onto the API envelope.
type errorResponder struct {
	logger     zerolog.Logger
	translator Translator
}

func (r errorResponder) translate(ctx context.Context, id, fallback string) string {
	if r.translator == nil {
		return fallback
	}
	if message := r.translator.T(ctx, id); message != "" && message != id {
		return message
	}
	return fallback
}

func (r errorResponder) respond(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrClassroomNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "classroom not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrNoSubmissionsYet):
		return utils.SendErrorCode(c, fiber.StatusConflict, utils.CodeNoSubmissionsYet, r.translate(c.UserContext(), "analysis.no_submissions", "no submissions to analyze yet"))
	case errors.Is(err, service.ErrAnalysisFailed):
		requestLogger(r.logger, c).Error().Err(err).Msg("class analysis failed")
		return utils.SendErrorCode(c, fiber.StatusBadGateway, utils.CodeAnalysisFailed, r.translate(c.UserContext(), "analysis.failed", "class analysis failed, please try again"))
	case errors.Is(err, service.ErrEmptyCode),
		errors.Is(err, service.ErrInvalidFeedbackMode),
		errors.Is(err, service.ErrScoreOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(r.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
