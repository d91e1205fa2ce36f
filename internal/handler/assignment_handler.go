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

// AssignmentHandler wires assignment HTTP routes.
type AssignmentHandler struct {
	service service.AssignmentService
	errors  errorResponder
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		errors:  errorResponder{logger: logger.With().Str("component", "assignment_handler").Logger()},
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireRole(models.RoleTeacher), h.create)
	router.Get("/:id", h.get)
	router.Delete("/:id", middleware.RequireRole(models.RoleTeacher), h.delete)
}

// RegisterClassroomRoutes attaches the assignment listing under a classroom group.
func (h *AssignmentHandler) RegisterClassroomRoutes(classrooms fiber.Router) {
	classrooms.Get("/:id/assignments", h.listByClassroom)
}

func (h *AssignmentHandler) listByClassroom(c *fiber.Ctx) error {
	classroomID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignments, err := h.service.ListByClassroom(c.UserContext(), actorFromContext(c), classroomID)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "assignment deleted", nil)
}
