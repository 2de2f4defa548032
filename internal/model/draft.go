package model

import (
	"strconv"
	"strings"
)

// Character limits shown next to the text inputs. They are advisory.
const (
	DishNameMaxChars    = 50
	DescriptionMaxChars = 200
	StepMaxChars        = 100
)

// Tag list caps.
const (
	TagMaxCount     = 10
	DietTagMaxCount = 10
)

// Option is one entry of a category or cuisine selector. The option with an
// empty Value is the "unselected" sentinel.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var Categories = []Option{
	{Label: "Select Category", Value: ""},
	{Label: "Breakfast", Value: "Breakfast"},
	{Label: "Lunch", Value: "Lunch"},
	{Label: "Dinner", Value: "Dinner"},
	{Label: "Snack", Value: "Snack"},
	{Label: "Dessert", Value: "Dessert"},
	{Label: "Appetizer", Value: "Appetizer"},
	{Label: "Beverage", Value: "Beverage"},
}

var Cuisines = []Option{
	{Label: "Select Cuisine", Value: ""},
	{Label: "Italian", Value: "Italian"},
	{Label: "Chinese", Value: "Chinese"},
	{Label: "Indian", Value: "Indian"},
	{Label: "American", Value: "American"},
	{Label: "Mexican", Value: "Mexican"},
	{Label: "French", Value: "French"},
	{Label: "Japanese", Value: "Japanese"},
}

// FindOption returns the option with the given value.
func FindOption(options []Option, value string) (Option, bool) {
	for _, o := range options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// RecipeDraft is the in-progress recipe. It is owned by the composer; the
// upload pipeline only ever sees copies.
type RecipeDraft struct {
	DishName    string          `json:"dishName" yaml:"dishName"`
	Description string          `json:"description" yaml:"description"`
	PrepTime    string          `json:"prepTime" yaml:"prepTime"`
	CookTime    string          `json:"cookTime" yaml:"cookTime"`
	Yields      string          `json:"yields" yaml:"yields"`
	Category    string          `json:"category" yaml:"category"`
	Cuisine     string          `json:"cuisine" yaml:"cuisine"`
	Ingredients []IngredientRow `json:"ingredients" yaml:"ingredients"`
	Steps       []string        `json:"steps" yaml:"steps"`
	Tags        []string        `json:"tags" yaml:"tags"`
	DietaryTags []string        `json:"dietaryTags" yaml:"dietaryTags"`

	Video     *MediaReference `json:"video,omitempty" yaml:"video,omitempty"`
	Thumbnail *MediaReference `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	DishImage *MediaReference `json:"dishImage,omitempty" yaml:"dishImage,omitempty"`
}

// NewDraft returns the empty initial draft: one blank ingredient row and one
// blank step.
func NewDraft() RecipeDraft {
	return RecipeDraft{
		Ingredients: []IngredientRow{{}},
		Steps:       []string{""},
		Tags:        []string{},
		DietaryTags: []string{},
	}
}

// Clone returns a deep copy.
func (d RecipeDraft) Clone() RecipeDraft {
	out := d
	out.Ingredients = append([]IngredientRow(nil), d.Ingredients...)
	out.Steps = append([]string(nil), d.Steps...)
	out.Tags = append([]string{}, d.Tags...)
	out.DietaryTags = append([]string{}, d.DietaryTags...)
	out.Video = cloneRef(d.Video)
	out.Thumbnail = cloneRef(d.Thumbnail)
	out.DishImage = cloneRef(d.DishImage)
	return out
}

func cloneRef(r *MediaReference) *MediaReference {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// FilledSteps returns the steps that contain text.
func (d RecipeDraft) FilledSteps() []string {
	steps := make([]string, 0, len(d.Steps))
	for _, s := range d.Steps {
		if strings.TrimSpace(s) != "" {
			steps = append(steps, s)
		}
	}
	return steps
}

// Validate checks every required-field predicate. All failures are reported
// together in one ValidationError.
func (d RecipeDraft) Validate() error {
	var missing []string
	if d.DishName == "" {
		missing = append(missing, "dishName")
	}
	if d.Description == "" {
		missing = append(missing, "description")
	}
	if len(d.Ingredients) == 0 {
		missing = append(missing, "ingredients")
	}
	for i, row := range d.Ingredients {
		if !row.Complete() {
			missing = append(missing, "ingredients["+strconv.Itoa(i)+"]")
		}
	}
	if len(d.FilledSteps()) == 0 {
		missing = append(missing, "steps")
	}
	if d.DishImage.Empty() {
		missing = append(missing, "dishImage")
	}
	if d.PrepTime == "" {
		missing = append(missing, "prepTime")
	}
	if d.CookTime == "" {
		missing = append(missing, "cookTime")
	}
	if d.Category == "" {
		missing = append(missing, "category")
	}
	if d.Cuisine == "" {
		missing = append(missing, "cuisine")
	}
	if d.Yields == "" {
		missing = append(missing, "yields")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
