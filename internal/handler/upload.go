package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/middleware"
	"github.com/freshrecipes/studio/internal/service"
	"github.com/freshrecipes/studio/pkg/response"
)

type UploadHandler struct {
	studio  *service.StudioService
	uploads *service.UploadService
}

func NewUploadHandler(studio *service.StudioService, uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{
		studio:  studio,
		uploads: uploads,
	}
}

// Submit handles POST /api/sessions/:id/submit
func (h *UploadHandler) Submit(c *fiber.Ctx) error {
	sess, err := h.studio.Get(c.Params("id"), middleware.GetUserID(c))
	if err != nil {
		return writeError(c, err, nil)
	}

	result, err := h.uploads.Submit(c.Context(), sess)
	if err != nil {
		return writeError(c, err, sess.DrainAlerts())
	}
	return response.Accepted(c, result)
}

// Status handles GET /api/uploads/status
func (h *UploadHandler) Status(c *fiber.Ctx) error {
	return response.OK(c, h.uploads.Status(middleware.GetUserID(c)))
}

// Job handles GET /api/uploads/:jobId
func (h *UploadHandler) Job(c *fiber.Ctx) error {
	job, err := h.uploads.Job(c.Context(), c.Params("jobId"), middleware.GetUserID(c))
	if err != nil {
		return writeError(c, err, nil)
	}
	return response.OK(c, job)
}
