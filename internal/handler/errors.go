package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/model"
	"github.com/freshrecipes/studio/pkg/response"
)

// bind parses the JSON body into req and validates it. The returned error has
// already been written to the response.
func bind(c *fiber.Ctx, v *validator.Validate, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, response.ValidationError(c, "Invalid request body", nil)
	}
	if err := v.Struct(req); err != nil {
		return false, response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	return true, nil
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

// writeError maps the studio's error taxonomy onto the response envelope.
// Alerts queued by the failed operation travel in the details.
func writeError(c *fiber.Ctx, err error, alerts []model.Alert) error {
	var details interface{}
	if len(alerts) > 0 {
		details = fiber.Map{"alerts": alerts}
	}

	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return response.ValidationError(c, verr.Error(), fiber.Map{"missing": verr.Missing, "alerts": alerts})
	case errors.Is(err, model.ErrSuggestionRejected):
		return response.Error(c, fiber.StatusUnprocessableEntity, response.CodeSuggestionRejected, err.Error(), details)
	case errors.Is(err, model.ErrInvalidImage):
		return response.Error(c, fiber.StatusUnprocessableEntity, response.CodeInvalidImage, err.Error(), details)
	case errors.Is(err, model.ErrUploadInProgress):
		return response.Conflict(c, response.CodeUploadInProgress, err.Error())
	case errors.Is(err, model.ErrNotAuthenticated):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, model.ErrSessionNotFound), errors.Is(err, model.ErrJobNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, model.ErrRowOutOfRange),
		errors.Is(err, model.ErrUnknownOption),
		errors.Is(err, model.ErrNoVideo):
		return response.ValidationError(c, err.Error(), details)
	case errors.Is(err, model.ErrNetworkFailure):
		return response.UpstreamError(c, response.CodeUploadFailed, model.AlertUploadFailed.Message)
	default:
		return response.ServiceError(c, err.Error())
	}
}
