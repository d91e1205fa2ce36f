package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nattapong2005/codementorai/internal/dto"
	"github.com/nattapong2005/codementorai/internal/middleware"
	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/service"
	"github.com/nattapong2005/codementorai/internal/utils"
)

// ClassroomHandler manages classroom endpoints.
type ClassroomHandler struct {
	service service.ClassroomService
	errors  errorResponder
}

// NewClassroomHandler builds a classroom handler instance.
func NewClassroomHandler(service service.ClassroomService, logger zerolog.Logger) *ClassroomHandler {
	return &ClassroomHandler{
		service: service,
		errors:  errorResponder{logger: logger.With().Str("component", "classroom_handler").Logger()},
	}
}

// Register attaches the routes to the provided router group.
func (h *ClassroomHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", middleware.RequireRole(models.RoleTeacher), h.create)
	router.Post("/join", middleware.RequireRole(models.RoleStudent), h.join)
	router.Get("/:id", h.get)
	router.Delete("/:id", middleware.RequireRole(models.RoleTeacher), h.delete)
}

func (h *ClassroomHandler) list(c *fiber.Ctx) error {
	classrooms, err := h.service.List(c.UserContext(), actorFromContext(c))
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "classrooms retrieved", classrooms)
}

func (h *ClassroomHandler) create(c *fiber.Ctx) error {
	var payload dto.ClassroomCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	classroom, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "classroom created", classroom)
}

func (h *ClassroomHandler) join(c *fiber.Ctx) error {
	var payload dto.ClassroomJoinRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	classroom, err := h.service.Join(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "classroom joined", classroom)
}

func (h *ClassroomHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	classroom, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "classroom retrieved", classroom)
}

func (h *ClassroomHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "classroom deleted", nil)
}
