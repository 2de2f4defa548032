package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/composer"
	"github.com/freshrecipes/studio/internal/model"
	"github.com/freshrecipes/studio/pkg/response"
)

// PatchDraft handles PATCH /api/sessions/:id/draft
func (h *StudioHandler) PatchDraft(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.DraftPatchRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	fields := []struct {
		kind  composer.FieldKind
		value *string
	}{
		{composer.FieldDishName, req.DishName},
		{composer.FieldDescription, req.Description},
		{composer.FieldPrepTime, req.PrepTime},
		{composer.FieldCookTime, req.CookTime},
		{composer.FieldYields, req.Yields},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := sess.Composer().SetText(f.kind, *f.value); err != nil {
			return h.result(c, sess, err)
		}
	}
	return h.view(c, sess)
}

// SelectCategory handles POST /api/sessions/:id/category
func (h *StudioHandler) SelectCategory(c *fiber.Ctx) error {
	return h.selectOption(c, (*composer.Composer).SelectCategory)
}

// SelectCuisine handles POST /api/sessions/:id/cuisine
func (h *StudioHandler) SelectCuisine(c *fiber.Ctx) error {
	return h.selectOption(c, (*composer.Composer).SelectCuisine)
}

func (h *StudioHandler) selectOption(c *fiber.Ctx, choose func(*composer.Composer, string) error) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.SelectRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	return h.result(c, sess, choose(sess.Composer(), req.Value))
}

// UnlockCategory handles POST /api/sessions/:id/category/unlock
func (h *StudioHandler) UnlockCategory(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	sess.Composer().UnlockCategory()
	return h.view(c, sess)
}

// UnlockCuisine handles POST /api/sessions/:id/cuisine/unlock
func (h *StudioHandler) UnlockCuisine(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	sess.Composer().UnlockCuisine()
	return h.view(c, sess)
}

// Options handles GET /api/options
func (h *StudioHandler) Options(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"categories": model.Categories,
		"cuisines":   model.Cuisines,
		"units":      model.Units,
	})
}

// AddStep handles POST /api/sessions/:id/steps
func (h *StudioHandler) AddStep(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	_, err = sess.Composer().AddStep()
	return h.result(c, sess, err)
}

// SetStep handles PUT /api/sessions/:id/steps/:row
func (h *StudioHandler) SetStep(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.TextRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	return h.result(c, sess, sess.Composer().SetStep(row, req.Text))
}

// RemoveStep handles DELETE /api/sessions/:id/steps/:row
func (h *StudioHandler) RemoveStep(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.result(c, sess, sess.Composer().RemoveStep(row))
}

// AddTag handles POST /api/sessions/:id/tags
func (h *StudioHandler) AddTag(c *fiber.Ctx) error {
	return h.addTag(c, (*composer.Composer).AddTag)
}

// AddDietaryTag handles POST /api/sessions/:id/dietary-tags
func (h *StudioHandler) AddDietaryTag(c *fiber.Ctx) error {
	return h.addTag(c, (*composer.Composer).AddDietaryTag)
}

func (h *StudioHandler) addTag(c *fiber.Ctx, add func(*composer.Composer, string) (bool, error)) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err, nil)
	}

	var req model.TagRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}
	_, err = add(sess.Composer(), req.Text)
	return h.result(c, sess, err)
}

// RemoveTag handles DELETE /api/sessions/:id/tags/:row
func (h *StudioHandler) RemoveTag(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.result(c, sess, sess.Composer().RemoveTag(row))
}

// RemoveDietaryTag handles DELETE /api/sessions/:id/dietary-tags/:row
func (h *StudioHandler) RemoveDietaryTag(c *fiber.Ctx) error {
	sess, row, err := h.sessionRow(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return h.result(c, sess, sess.Composer().RemoveDietaryTag(row))
}
