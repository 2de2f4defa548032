package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/middleware"
	"github.com/freshrecipes/studio/internal/model"
	"github.com/freshrecipes/studio/internal/service"
	"github.com/freshrecipes/studio/pkg/response"
)

// StudioHandler serves the capture, edit and compose screens of a session.
type StudioHandler struct {
	studio    *service.StudioService
	validator *validator.Validate
}

func NewStudioHandler(studio *service.StudioService, v *validator.Validate) *StudioHandler {
	return &StudioHandler{
		studio:    studio,
		validator: v,
	}
}

func (h *StudioHandler) session(c *fiber.Ctx) (*service.Session, error) {
	return h.studio.Get(c.Params("id"), middleware.GetUserID(c))
}

// sessionRow resolves the session and the :row path parameter.
func (h *StudioHandler) sessionRow(c *fiber.Ctx) (*service.Session, int, error) {
	sess, err := h.session(c)
	if err != nil {
		return nil, 0, err
	}
	row, err := c.ParamsInt("row")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %q", model.ErrRowOutOfRange, c.Params("row"))
	}
	return sess, row, nil
}

// view answers with the session's current screen.
func (h *StudioHandler) view(c *fiber.Ctx, sess *service.Session) error {
	return response.OK(c, h.studio.View(sess))
}

// result answers a form operation: the refreshed view on success, or the
// mapped error. A dismissed or failed native dialog is not an error for the
// device; it just gets the view back with any alert.
func (h *StudioHandler) result(c *fiber.Ctx, sess *service.Session, err error) error {
	if err == nil ||
		errors.Is(err, model.ErrCapabilityCancelled) ||
		errors.Is(err, model.ErrCapabilityFailure) {
		return h.view(c, sess)
	}
	return writeError(c, err, sess.DrainAlerts())
}

// Create handles POST /api/sessions
func (h *StudioHandler) Create(c *fiber.Ctx) error {
	sess := h.studio.Create(middleware.GetUserID(c))
	return response.Created(c, model.SessionCreateResponse{
		SessionID: sess.ID,
		Screen:    sess.Screen(),
	})
}

// Get handles GET /api/sessions/:id
func (h *StudioHandler) Get(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.view(c, sess)
}

// Delete handles DELETE /api/sessions/:id
func (h *StudioHandler) Delete(c *fiber.Ctx) error {
	if err := h.studio.Delete(c.Params("id"), middleware.GetUserID(c)); err != nil {
		return writeError(c, err, nil)
	}
	return response.NoContent(c)
}

// Capture handles POST /api/sessions/:id/capture
func (h *StudioHandler) Capture(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.CaptureReportRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	_, err = h.studio.Capture(c.Context(), sess, req.Platform, req.Result)
	return h.result(c, sess, err)
}

// Edit handles POST /api/sessions/:id/edit
func (h *StudioHandler) Edit(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.EditReportRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	_, err = h.studio.Edit(c.Context(), sess, req.Result, req.Error)
	return h.result(c, sess, err)
}
