package composer

import "fmt"

// FieldKind names an input on the form.
type FieldKind string

const (
	FieldDishName       FieldKind = "dishName"
	FieldDescription    FieldKind = "description"
	FieldPrepTime       FieldKind = "prepTime"
	FieldCookTime       FieldKind = "cookTime"
	FieldYields         FieldKind = "yields"
	FieldIngredientName FieldKind = "ingredientName"
	FieldQuantity       FieldKind = "quantity"
	FieldStep           FieldKind = "step"
	FieldTag            FieldKind = "tag"
	FieldDietaryTag     FieldKind = "dietaryTag"
)

// FieldID identifies one input. Row is only meaningful for per-row fields.
type FieldID struct {
	Kind FieldKind `json:"kind"`
	Row  int       `json:"row"`
}

func (f FieldID) String() string {
	switch f.Kind {
	case FieldIngredientName, FieldQuantity, FieldStep:
		return fmt.Sprintf("%s[%d]", f.Kind, f.Row)
	}
	return string(f.Kind)
}

// FocusOrder lists the inputs in the order the return key walks through them.
func (c *Composer) FocusOrder() []FieldID {
	c.mu.Lock()
	defer c.mu.Unlock()

	order := []FieldID{
		{Kind: FieldDishName},
		{Kind: FieldDescription},
		{Kind: FieldPrepTime},
		{Kind: FieldCookTime},
		{Kind: FieldYields},
	}
	for i := range c.draft.Ingredients {
		order = append(order, FieldID{Kind: FieldIngredientName, Row: i}, FieldID{Kind: FieldQuantity, Row: i})
	}
	for i := range c.draft.Steps {
		order = append(order, FieldID{Kind: FieldStep, Row: i})
	}
	return append(order, FieldID{Kind: FieldTag}, FieldID{Kind: FieldDietaryTag})
}

// NextFocus returns the input after current. It reports false at the end of
// the form or when current is not on it.
func (c *Composer) NextFocus(current FieldID) (FieldID, bool) {
	order := c.FocusOrder()
	for i, f := range order {
		if f == current {
			if i+1 < len(order) {
				return order[i+1], true
			}
			return FieldID{}, false
		}
	}
	return FieldID{}, false
}
