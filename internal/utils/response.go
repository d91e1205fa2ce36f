package utils

import "github.com/gofiber/fiber/v2"

// Machine-readable error codes carried next to the human message.
const (
	CodeValidation       = "VALIDATION_FAILED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeNoSubmissionsYet = "NO_SUBMISSIONS_YET"
	CodeAnalysisFailed   = "ANALYSIS_FAILED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus answers with a success envelope and the given status.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: orDefault(message, "success"),
	})
}

// SendError answers with an error envelope whose code is derived from status.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorCode(c, status, codeForStatus(status), message)
}

// SendErrorCode answers with an error envelope carrying an explicit code.
func SendErrorCode(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Code:    code,
		Message: orDefault(message, "error"),
	})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return CodeValidation
	case fiber.StatusUnauthorized:
		return CodeUnauthorized
	case fiber.StatusForbidden:
		return CodeForbidden
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusConflict:
		return CodeConflict
	case fiber.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
