package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/model"
	"github.com/freshrecipes/studio/pkg/response"
)

// DishImage handles POST /api/sessions/:id/dish-image
func (h *StudioHandler) DishImage(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.ImagePickRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	if req.Error != "" {
		return h.view(c, sess)
	}
	return h.result(c, sess, sess.Composer().SetDishImage(req.Assets))
}

// EnterFrames handles POST /api/sessions/:id/frames/enter
func (h *StudioHandler) EnterFrames(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.result(c, sess, h.studio.EnterFrames(sess))
}

// BeginFrames handles POST /api/sessions/:id/frames/begin
func (h *StudioHandler) BeginFrames(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.FramesBeginRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	_, err = h.studio.BeginFrames(c.Context(), sess, req.DurationSeconds)
	return h.result(c, sess, err)
}

// Scrub handles POST /api/sessions/:id/frames/scrub
func (h *StudioHandler) Scrub(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.ScrubRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	index, seek := sess.Composer().Scrub(req.Offset)
	return response.OK(c, model.ScrubResponse{Index: index, SeekSeconds: seek})
}

// FinishFrames handles POST /api/sessions/:id/frames/finish
func (h *StudioHandler) FinishFrames(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	h.studio.FinishFrames(sess)
	return h.view(c, sess)
}

// BackFrames handles POST /api/sessions/:id/frames/back
func (h *StudioHandler) BackFrames(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	h.studio.BackFrames(sess)
	return h.view(c, sess)
}

// CustomThumbnail handles POST /api/sessions/:id/frames/custom
func (h *StudioHandler) CustomThumbnail(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.ImagePickRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	return h.result(c, sess, h.studio.CustomThumbnail(sess, req.Assets, req.Error))
}
