package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/model"
)

// AddIngredient handles POST /api/sessions/:id/ingredients
func (h *StudioHandler) AddIngredient(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	_, err = sess.Composer().AddIngredient()
	return h.result(c, sess, err)
}

// RemoveIngredient handles DELETE /api/sessions/:id/ingredients/:row
func (h *StudioHandler) RemoveIngredient(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.result(c, sess, sess.Composer().RemoveIngredient(row))
}

// FocusIngredient handles POST /api/sessions/:id/ingredients/:row/focus
func (h *StudioHandler) FocusIngredient(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.result(c, sess, sess.Composer().FocusIngredient(row))
}

// SetIngredientName handles PUT /api/sessions/:id/ingredients/:row/name
func (h *StudioHandler) SetIngredientName(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.TextRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	return h.result(c, sess, sess.Composer().SetIngredientName(row, req.Text))
}

// BlurIngredient handles POST /api/sessions/:id/ingredients/:row/blur
func (h *StudioHandler) BlurIngredient(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.result(c, sess, sess.Composer().BlurIngredient(row))
}

// SelectSuggestion handles POST /api/sessions/:id/ingredients/:row/select
func (h *StudioHandler) SelectSuggestion(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.SelectSuggestionRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	_, err = sess.Composer().SelectSuggestion(row, req.Index)
	return h.result(c, sess, err)
}

// ShowMoreSuggestions handles POST /api/sessions/:id/ingredients/:row/show-more
func (h *StudioHandler) ShowMoreSuggestions(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.result(c, sess, sess.Composer().ShowMoreSuggestions(row))
}

// SetQuantity handles PUT /api/sessions/:id/ingredients/:row/quantity
func (h *StudioHandler) SetQuantity(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.QuantityRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	return h.result(c, sess, sess.Composer().SetQuantity(row, req.Quantity))
}

// SetUnit handles PUT /api/sessions/:id/ingredients/:row/unit
func (h *StudioHandler) SetUnit(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.UnitRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	return h.result(c, sess, sess.Composer().SetUnit(row, req.Unit))
}

// UnlockUnit handles POST /api/sessions/:id/ingredients/:row/unit/unlock
func (h *StudioHandler) UnlockUnit(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.result(c, sess, sess.Composer().UnlockUnit(row))
}
