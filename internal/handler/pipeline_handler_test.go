package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nattapong2005/codementorai/internal/config"
	"github.com/nattapong2005/codementorai/internal/grading"
	"github.com/nattapong2005/codementorai/internal/handler"
	"github.com/nattapong2005/codementorai/internal/i18n"
	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/repository"
	"github.com/nattapong2005/codementorai/internal/router"
	"github.com/nattapong2005/codementorai/internal/service"
	"github.com/nattapong2005/codementorai/internal/utils"
	"github.com/nattapong2005/codementorai/pkg/ai"
)

const analysisSchemaName = "class_performance_analysis"

// routingGenerator answers grading and analysis calls with separate canned payloads.
type routingGenerator struct {
	mu          sync.Mutex
	grading     string
	analysis    string
	analysisErr error
	calls       map[string]int
}

func (g *routingGenerator) Generate(ctx context.Context, req ai.GenerateRequest) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = map[string]int{}
	}
	g.calls[req.Schema.Name]++
	if req.Schema.Name == analysisSchemaName {
		if g.analysisErr != nil {
			return nil, g.analysisErr
		}
		return json.RawMessage(g.analysis), nil
	}
	return json.RawMessage(g.grading), nil
}

func (g *routingGenerator) analysisCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[analysisSchemaName]
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type apiHarness struct {
	app       *fiber.App
	db        *gorm.DB
	generator *routingGenerator
	teacher   models.User
	other     models.User
	student   models.User
	outsider  models.User
}

// headerAuth stands in for the JWT middleware by trusting test headers.
func headerAuth(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Get("X-Test-User"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "missing token"})
	}
	c.Locals("user_id", uint(id))
	c.Locals("user_role", c.Get("X-Test-Role"))
	return c.Next()
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Classroom{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Submission{},
		&models.AssignmentAnalysis{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	h := &apiHarness{
		db: db,
		generator: &routingGenerator{
			grading: `{"score": 15, "feedback": "Works for every case", "mistakeTags": [], "syntaxErrorFound": false,
				"codeQuality": [{"aspect": "naming", "description": "clear", "appropriate": true}],
				"logicError": "", "correctedCode": "for i in range(1, 16): print(i)", "explanation": "already correct"}`,
			analysis: `{"overallStrengths": "Loops are solid", "overallWeaknesses": "Edge cases",
				"studentsNeedingHelp": [], "topPerformers": [{"studentName": "Somchai", "reason": "Clean solution"}]}`,
		},
		teacher:  models.User{Name: "Kru Anong", Email: "anong@example.com", Role: models.RoleTeacher},
		other:    models.User{Name: "Kru Somsak", Email: "somsak@example.com", Role: models.RoleTeacher},
		student:  models.User{Name: "Somchai", Email: "somchai@example.com", Role: models.RoleStudent},
		outsider: models.User{Name: "Malee", Email: "malee@example.com", Role: models.RoleStudent},
	}
	for _, user := range []*models.User{&h.teacher, &h.other, &h.student, &h.outsider} {
		require.NoError(t, db.Create(user).Error)
	}

	logger := zerolog.New(io.Discard)
	catalog, err := i18n.New("en", logger)
	require.NoError(t, err)
	validate := validator.New(validator.WithRequiredStructEnabled())

	classroomRepo := repository.NewClassroomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	events := service.NewEventPublisher(nil, "codementor:events", logger)
	cache := service.NewAnalysisCache(nil, time.Minute, logger)

	submissions := service.NewSubmissionService(service.SubmissionServiceDeps{
		Submissions: submissionRepo,
		Assignments: assignmentRepo,
		Classrooms:  classroomRepo,
		Grader:      grading.NewGrader(h.generator, catalog, logger),
		Events:      events,
		Cache:       cache,
		Validator:   validate,
		Logger:      logger,
	})
	analyses := service.NewAnalysisService(service.AnalysisServiceDeps{
		Analyses:    analysisRepo,
		Assignments: assignmentRepo,
		Submissions: submissionRepo,
		Classrooms:  classroomRepo,
		Generator:   h.generator,
		Cache:       cache,
		Events:      events,
		Logger:      logger,
	})

	cfg := config.Config{AppName: "codementor-test", RateLimitWindow: time.Minute, SubmitRateLimit: 100, AnalyzeRateLimit: 100}
	h.app = fiber.New()
	h.app.Use(catalog.Middleware())
	router.Register(h.app, cfg, router.Dependencies{
		ClassroomHandler:  handler.NewClassroomHandler(service.NewClassroomService(classroomRepo, cache, validate, logger), logger),
		AssignmentHandler: handler.NewAssignmentHandler(service.NewAssignmentService(assignmentRepo, classroomRepo, cache, validate, logger), logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissions, logger),
		AnalysisHandler:   handler.NewAnalysisHandler(analyses, catalog, logger),
		JWTMiddleware:     headerAuth,
	})
	return h
}

func (h *apiHarness) do(t *testing.T, as models.User, method, path string, body interface{}, headers ...string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(as.ID), 10))
	req.Header.Set("X-Test-Role", as.Role)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func decodeData[T any](t *testing.T, payload envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(payload.Data, &out))
	return out
}

type idResponse struct {
	ID       uint   `json:"id"`
	JoinCode string `json:"join_code"`
}

// setupAssignment creates a classroom owned by the harness teacher, enrolls the
// student and creates one assignment in the given feedback mode.
func (h *apiHarness) setupAssignment(t *testing.T, mode string) uint {
	t.Helper()

	status, payload := h.do(t, h.teacher, fiber.MethodPost, "/api/v1/classrooms", map[string]string{"name": "Python 101"})
	require.Equal(t, fiber.StatusCreated, status, payload.Message)
	classroom := decodeData[idResponse](t, payload)
	require.NotEmpty(t, classroom.JoinCode)

	status, payload = h.do(t, h.student, fiber.MethodPost, "/api/v1/classrooms/join", map[string]string{"code": strings.ToLower(classroom.JoinCode)})
	require.Equal(t, fiber.StatusOK, status, payload.Message)

	status, payload = h.do(t, h.teacher, fiber.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"classroom_id":  classroom.ID,
		"title":         "FizzBuzz",
		"description":   "Print 1..15 with fizz and buzz",
		"max_score":     10,
		"feedback_mode": mode,
		"due_date":      time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, fiber.StatusCreated, status, payload.Message)
	return decodeData[idResponse](t, payload).ID
}

func TestSubmitGradesAndClampsScore(t *testing.T) {
	h := newAPIHarness(t)
	assignmentID := h.setupAssignment(t, "ANSWER")

	status, payload := h.do(t, h.student, fiber.MethodPost, "/api/v1/submissions", map[string]interface{}{
		"assignment_id": assignmentID,
		"code":          "for i in range(1, 16): print(i)",
	})
	require.Equal(t, fiber.StatusCreated, status, payload.Message)

	var submission struct {
		ID         uint                   `json:"id"`
		Status     string                 `json:"status"`
		Score      float64                `json:"score"`
		AIFeedback map[string]interface{} `json:"ai_feedback"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &submission))
	require.Equal(t, models.SubmissionStatusDone, submission.Status)
	require.Equal(t, 10.0, submission.Score)
	require.Equal(t, 10.0, submission.AIFeedback["score"])
	require.Equal(t, "for i in range(1, 16): print(i)", submission.AIFeedback["correctedCode"])
	require.NotContains(t, submission.AIFeedback, "hint")

	status, _ = h.do(t, h.student, fiber.MethodGet, fmt.Sprintf("/api/v1/submissions/%d", submission.ID), nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = h.do(t, h.outsider, fiber.MethodGet, fmt.Sprintf("/api/v1/submissions/%d", submission.ID), nil)
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestSubmitUsesFallbackWhenGradingFails(t *testing.T) {
	h := newAPIHarness(t)
	h.generator.grading = `{"score": "not a number"}`
	assignmentID := h.setupAssignment(t, "HINT")

	status, payload := h.do(t, h.student, fiber.MethodPost, "/api/v1/submissions", map[string]interface{}{
		"assignment_id": assignmentID,
		"code":          "print('fizz')",
	}, "Accept-Language", "th")
	require.Equal(t, fiber.StatusCreated, status, payload.Message)

	var submission struct {
		Score      float64                `json:"score"`
		AIFeedback map[string]interface{} `json:"ai_feedback"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &submission))
	require.Zero(t, submission.Score)
	require.Equal(t, "ระบบ AI ไม่สามารถตรวจงานได้ชั่วคราว กรุณาลองใหม่อีกครั้ง", submission.AIFeedback["feedback"])
	require.Equal(t, []interface{}{grading.SystemErrorTag}, submission.AIFeedback["mistakeTags"])
}

func TestSubmitValidation(t *testing.T) {
	h := newAPIHarness(t)
	assignmentID := h.setupAssignment(t, "HINT")

	status, _ := h.do(t, h.student, fiber.MethodPost, "/api/v1/submissions", map[string]interface{}{
		"assignment_id": assignmentID,
		"code":          "   \n\t",
	})
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = h.do(t, h.student, fiber.MethodPost, "/api/v1/submissions", map[string]interface{}{
		"assignment_id": 9999,
		"code":          "print(1)",
	})
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = h.do(t, h.teacher, fiber.MethodPost, "/api/v1/submissions", map[string]interface{}{
		"assignment_id": assignmentID,
		"code":          "print(1)",
	})
	require.Equal(t, fiber.StatusForbidden, status)

	status, payload := h.do(t, h.outsider, fiber.MethodPost, "/api/v1/submissions", map[string]interface{}{
		"assignment_id": assignmentID,
		"code":          "print(1)",
	})
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, utils.CodeForbidden, payload.Code)

	var count int64
	require.NoError(t, h.db.Model(&models.Submission{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestTeacherReviewBounds(t *testing.T) {
	h := newAPIHarness(t)
	assignmentID := h.setupAssignment(t, "CONCEPT")
	h.generator.grading = `{"score": 6, "feedback": "ok", "mistakeTags": ["loop"], "syntaxErrorFound": false, "codeQuality": [], "concept": "ranges"}`

	_, payload := h.do(t, h.student, fiber.MethodPost, "/api/v1/submissions", map[string]interface{}{
		"assignment_id": assignmentID,
		"code":          "print('x')",
	})
	submissionID := decodeData[idResponse](t, payload).ID
	path := fmt.Sprintf("/api/v1/submissions/%d", submissionID)

	status, _ := h.do(t, h.teacher, fiber.MethodPatch, path, map[string]interface{}{"score": 11})
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = h.do(t, h.other, fiber.MethodPatch, path, map[string]interface{}{"score": 5})
	require.Equal(t, fiber.StatusForbidden, status)

	status, payload = h.do(t, h.teacher, fiber.MethodPatch, path, map[string]interface{}{
		"score":            8,
		"status":           "LATE",
		"teacher_feedback": "Good <script>alert(1)</script>job",
	})
	require.Equal(t, fiber.StatusOK, status, payload.Message)

	var reviewed struct {
		Score           float64 `json:"score"`
		Status          string  `json:"status"`
		TeacherFeedback string  `json:"teacher_feedback"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &reviewed))
	require.Equal(t, 8.0, reviewed.Score)
	require.Equal(t, models.SubmissionStatusLate, reviewed.Status)
	require.NotContains(t, reviewed.TeacherFeedback, "<script>")
}

func TestAnalysisLifecycle(t *testing.T) {
	h := newAPIHarness(t)
	assignmentID := h.setupAssignment(t, "HINT")
	path := fmt.Sprintf("/api/v1/assignments/%d/analysis", assignmentID)

	status, payload := h.do(t, h.teacher, fiber.MethodPost, path, nil, "Accept-Language", "th")
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, utils.CodeNoSubmissionsYet, payload.Code)
	require.Equal(t, "ยังไม่มีงานที่ส่งโค้ดเข้ามา จะวิเคราะห์ได้หลังจากนักเรียนส่งงาน", payload.Message)
	require.Zero(t, h.generator.analysisCalls())

	status, payload = h.do(t, h.teacher, fiber.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Empty(t, payload.Data)

	status, _ = h.do(t, h.student, fiber.MethodPost, "/api/v1/submissions", map[string]interface{}{
		"assignment_id": assignmentID,
		"code":          "print('fizz')",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = h.do(t, h.student, fiber.MethodPost, path, nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = h.do(t, h.other, fiber.MethodPost, path, nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, payload = h.do(t, h.teacher, fiber.MethodPost, path, nil)
	require.Equal(t, fiber.StatusOK, status, payload.Message)
	first := decodeData[map[string]interface{}](t, payload)
	require.Equal(t, "Loops are solid", first["overall_strengths"])
	require.Equal(t, []interface{}{}, first["students_needing_help"])
	require.Equal(t, 1, h.generator.analysisCalls())

	status, payload = h.do(t, h.teacher, fiber.MethodPost, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, first["id"], decodeData[map[string]interface{}](t, payload)["id"])
	require.Equal(t, 1, h.generator.analysisCalls())

	h.generator.analysis = `{"overallStrengths": "Improved", "overallWeaknesses": "None", "studentsNeedingHelp": [], "topPerformers": []}`
	status, payload = h.do(t, h.teacher, fiber.MethodPost, path+"?force=true", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "Improved", decodeData[map[string]interface{}](t, payload)["overall_strengths"])
	require.Equal(t, 2, h.generator.analysisCalls())

	var rows int64
	require.NoError(t, h.db.Model(&models.AssignmentAnalysis{}).Where("assignment_id = ?", assignmentID).Count(&rows).Error)
	require.Equal(t, int64(1), rows)

	status, payload = h.do(t, h.teacher, fiber.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "Improved", decodeData[map[string]interface{}](t, payload)["overall_strengths"])
}

func TestAnalysisFailureReturnsBadGatewayAndKeepsPrevious(t *testing.T) {
	h := newAPIHarness(t)
	assignmentID := h.setupAssignment(t, "NONE")
	path := fmt.Sprintf("/api/v1/assignments/%d/analysis", assignmentID)

	_, _ = h.do(t, h.student, fiber.MethodPost, "/api/v1/submissions", map[string]interface{}{
		"assignment_id": assignmentID,
		"code":          "print('buzz')",
	})

	status, _ := h.do(t, h.teacher, fiber.MethodPost, path, nil)
	require.Equal(t, fiber.StatusOK, status)

	h.generator.analysisErr = errors.New("upstream timeout")
	status, payload := h.do(t, h.teacher, fiber.MethodPost, path+"?force=1", nil)
	require.Equal(t, fiber.StatusBadGateway, status)
	require.False(t, payload.Success)
	require.Equal(t, utils.CodeAnalysisFailed, payload.Code)
	require.Equal(t, "Class analysis could not be generated. Please try again.", payload.Message)

	status, payload = h.do(t, h.teacher, fiber.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "Loops are solid", decodeData[map[string]interface{}](t, payload)["overall_strengths"])
}

func TestUnknownResourcesReturnNotFound(t *testing.T) {
	h := newAPIHarness(t)

	status, _ := h.do(t, h.teacher, fiber.MethodPost, "/api/v1/assignments/4242/analysis", nil)
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = h.do(t, h.teacher, fiber.MethodGet, "/api/v1/submissions/4242", nil)
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = h.do(t, h.teacher, fiber.MethodGet, "/api/v1/assignments/abc", nil)
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestClassroomDeleteRemovesAssignments(t *testing.T) {
	h := newAPIHarness(t)
	assignmentID := h.setupAssignment(t, "HINT")

	_, payload := h.do(t, h.teacher, fiber.MethodGet, fmt.Sprintf("/api/v1/assignments/%d", assignmentID), nil)
	var assignment struct {
		ClassroomID uint `json:"classroom_id"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &assignment))

	status, _ := h.do(t, h.other, fiber.MethodDelete, fmt.Sprintf("/api/v1/classrooms/%d", assignment.ClassroomID), nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = h.do(t, h.teacher, fiber.MethodDelete, fmt.Sprintf("/api/v1/classrooms/%d", assignment.ClassroomID), nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = h.do(t, h.teacher, fiber.MethodGet, fmt.Sprintf("/api/v1/assignments/%d", assignmentID), nil)
	require.Equal(t, fiber.StatusNotFound, status)
}
