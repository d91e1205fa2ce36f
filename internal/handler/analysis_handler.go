package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nattapong2005/codementorai/internal/middleware"
	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/service"
	"github.com/nattapong2005/codementorai/internal/utils"
)

// AnalysisHandler exposes the class performance analysis of an assignment.
type AnalysisHandler struct {
	service service.AnalysisService
	errors  errorResponder
}

// NewAnalysisHandler builds the handler. translator localizes analysis error messages.
func NewAnalysisHandler(service service.AnalysisService, translator Translator, logger zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		errors: errorResponder{
			logger:     logger.With().Str("component", "analysis_handler").Logger(),
			translator: translator,
		},
	}
}

// Register attaches the analysis routes under an assignment group.
func (h *AnalysisHandler) Register(assignments fiber.Router) {
	teacherOnly := middleware.RequireRole(models.RoleTeacher)
	assignments.Post("/:id/analysis", teacherOnly, h.analyze)
	assignments.Get("/:id/analysis", teacherOnly, h.get)
}

func (h *AnalysisHandler) analyze(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	analysis, err := h.service.AnalyzeClassPerformance(c.UserContext(), actorFromContext(c), id, parseQueryBool(c, "force"))
	if err != nil {
		return h.errors.respond(c, err)
	}

	return utils.SendSuccess(c, "analysis ready", analysis)
}

// get responds with empty data when the assignment has not been analyzed yet.
func (h *AnalysisHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	analysis, err := h.service.GetStoredAnalysis(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return h.errors.respond(c, err)
	}
	if analysis == nil {
		return utils.SendSuccess(c, "analysis not generated yet", nil)
	}

	return utils.SendSuccess(c, "analysis retrieved", analysis)
}
