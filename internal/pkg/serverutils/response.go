package serverutils

import (
	"errors"
	"fmt"

	"ai-chat-be/internal/pkg/cherr"
	"ai-chat-be/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest runs struct validation and converts the first failure into
// a client-facing bad request error.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return cherr.Wrap(cherr.BadRequestAPI,
			fmt.Sprintf("Field '%s' failed on '%s' validation", fe.Field(), fe.Tag()), err)
	}
	return cherr.Wrap(cherr.BadRequestAPI, "Invalid request body", err)
}

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{
		Message: message,
		Data:    data,
	}
}

// ErrorResponse is the error body: a stable machine-readable code plus a
// human message. Internal causes never appear here.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorHandlerMiddleware builds the Fiber error handler. Coded errors map to
// their HTTP status; anything else becomes an opaque 500.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		if ce, ok := cherr.As(err); ok {
			if ce.Cause != nil {
				log.Error("HTTP", "Request failed", map[string]interface{}{
					"path":  ctx.Path(),
					"code":  string(ce.Code),
					"error": ce.Cause.Error(),
				})
			}
			return ctx.Status(ce.StatusCode()).JSON(ErrorResponse{
				Code:    string(ce.Code),
				Message: ce.PublicMessage(),
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(ErrorResponse{
				Code:    "bad_request:api",
				Message: fe.Message,
			})
		}

		log.Error("HTTP", "Unhandled error", map[string]interface{}{
			"path":  ctx.Path(),
			"error": err.Error(),
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Code:    "bad_request:api",
			Message: "An internal error occurred. Please try again later.",
		})
	}
}
