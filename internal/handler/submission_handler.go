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

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	errors  errorResponder
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		errors:  errorResponder{logger: logger.With().Str("component", "submission_handler").Logger()},
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireRole(models.RoleStudent), h.submit)
	router.Get("/:id", h.get)
	router.Patch("/:id", middleware.RequireRole(models.RoleTeacher), h.review)
	router.Delete("/:id", middleware.RequireRole(models.RoleTeacher), h.delete)
}

// RegisterAssignmentRoutes attaches the submission listing under an assignment group.
func (h *SubmissionHandler) RegisterAssignmentRoutes(assignments fiber.Router) {
	assignments.Get("/:id/submissions", h.listByAssignment)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitCodeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.SubmitAndGrade(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission graded", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) listByAssignment(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.service.ListForAssignment(c.UserContext(), actorFromContext(c), assignmentID)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) review(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TeacherFeedbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.UpdateTeacherFeedback(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "submission updated", submission)
}

func (h *SubmissionHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "submission deleted", nil)
}
