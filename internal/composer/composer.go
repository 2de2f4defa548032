// Package composer holds the recipe draft being written and every rule the
// form enforces while it is edited.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/freshrecipes/studio/internal/autocomplete"
	"github.com/freshrecipes/studio/internal/frames"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/metrics"
	"github.com/freshrecipes/studio/internal/model"
)

// Option configures the composer.
type Option func(*Composer)

// WithNotifier receives user-facing alerts.
func WithNotifier(fn func(model.Alert)) Option {
	return func(c *Composer) {
		c.notify = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		c.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Composer) {
		c.metrics = m
	}
}

// Composer owns one RecipeDraft. It is safe for concurrent use.
type Composer struct {
	ac       *autocomplete.Autocomplete
	timeline *frames.Timeline
	notify   func(model.Alert)
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu             sync.Mutex
	draft          model.RecipeDraft
	category       Selection
	cuisine        Selection
	choosingFrames bool
	uploading      bool
}

func New(ac *autocomplete.Autocomplete, timeline *frames.Timeline, opts ...Option) *Composer {
	c := &Composer{
		ac:       ac,
		timeline: timeline,
		draft:    model.NewDraft(),
		category: NewSelection(model.Categories),
		cuisine:  NewSelection(model.Cuisines),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrDefault(c.log)
	return c
}

// Draft returns a copy of the current draft.
func (c *Composer) Draft() model.RecipeDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// SetUploading freezes the form while a submission is running.
func (c *Composer) SetUploading(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploading = v
}

func (c *Composer) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// Text fields

// SetText sets one of the draft's free-text fields. Newlines are removed.
func (c *Composer) SetText(field FieldKind, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	value = removeNewlines(value)
	switch field {
	case FieldDishName:
		c.draft.DishName = value
	case FieldDescription:
		c.draft.Description = value
	case FieldPrepTime:
		c.draft.PrepTime = value
	case FieldCookTime:
		c.draft.CookTime = value
	case FieldYields:
		c.draft.Yields = value
	default:
		return fmt.Errorf("field %s is not a text field", field)
	}
	return nil
}

// Remaining returns how many characters are left before the advisory limit
// of a field. Fields without a limit return -1.
func (c *Composer) Remaining(field FieldKind, row int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch field {
	case FieldDishName:
		return model.DishNameMaxChars - utf8.RuneCountInString(c.draft.DishName)
	case FieldDescription:
		return model.DescriptionMaxChars - utf8.RuneCountInString(c.draft.Description)
	case FieldStep:
		if row < 0 || row >= len(c.draft.Steps) {
			return -1
		}
		return model.StepMaxChars - utf8.RuneCountInString(c.draft.Steps[row])
	}
	return -1
}

// Category and cuisine

func (c *Composer) SelectCategory(value string) error {
	return c.selectOption(&c.category, &c.draft.Category, value)
}

func (c *Composer) SelectCuisine(value string) error {
	return c.selectOption(&c.cuisine, &c.draft.Cuisine, value)
}

func (c *Composer) UnlockCategory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.category.Unlock()
}

func (c *Composer) UnlockCuisine() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cuisine.Unlock()
}

func (c *Composer) selectOption(sel *Selection, field *string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if err := sel.Choose(value); err != nil {
		return err
	}
	*field = sel.Value()
	return nil
}

// Ingredients

// AddIngredient appends an empty row and returns its index.
func (c *Composer) AddIngredient() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return 0, err
	}
	c.draft.Ingredients = append(c.draft.Ingredients, model.IngredientRow{})
	c.ac.AddRow()
	return len(c.draft.Ingredients) - 1, nil
}

// RemoveIngredient drops row i and its suggestions. The only remaining row
// is never removed.
func (c *Composer) RemoveIngredient(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if err := c.ingredientIndex(i); err != nil {
		return err
	}
	if len(c.draft.Ingredients) == 1 {
		return nil
	}
	if err := c.ac.RemoveRow(i); err != nil {
		return err
	}
	c.draft.Ingredients = append(c.draft.Ingredients[:i], c.draft.Ingredients[i+1:]...)
	return nil
}

// FocusIngredient marks row i as the row showing suggestions.
func (c *Composer) FocusIngredient(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ingredientIndex(i); err != nil {
		return err
	}
	return c.ac.Focus(i)
}

// SetIngredientName records typed text and schedules a lookup for it.
func (c *Composer) SetIngredientName(i int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if err := c.ingredientIndex(i); err != nil {
		return err
	}
	text = removeNewlines(text)
	c.draft.Ingredients[i].Name = text
	return c.ac.Input(i, text)
}

// BlurIngredient applies the commit rule when row i's name field loses focus.
// A name that matches no suggestion is cleared and the user is alerted.
func (c *Composer) BlurIngredient(i int) error {
	c.mu.Lock()
	if err := c.ingredientIndex(i); err != nil {
		c.mu.Unlock()
		return err
	}
	err := c.ac.Commit(i, c.draft.Ingredients[i].Name)
	if errors.Is(err, model.ErrSuggestionRejected) {
		c.draft.Ingredients[i].Name = ""
	}
	c.mu.Unlock()

	if errors.Is(err, model.ErrSuggestionRejected) {
		c.alert(model.AlertInvalidIngredient)
	}
	return err
}

// SelectSuggestion fills row i's name with the visible suggestion at idx.
func (c *Composer) SelectSuggestion(i, idx int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return "", err
	}
	if err := c.ingredientIndex(i); err != nil {
		return "", err
	}
	name, err := c.ac.Select(i, idx)
	if err != nil {
		return "", err
	}
	c.draft.Ingredients[i].Name = name
	return name, nil
}

func (c *Composer) ShowMoreSuggestions(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ingredientIndex(i); err != nil {
		return err
	}
	return c.ac.ShowMore(i)
}

func (c *Composer) SetQuantity(i int, quantity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if err := c.ingredientIndex(i); err != nil {
		return err
	}
	c.draft.Ingredients[i].Quantity = removeNewlines(quantity)
	return nil
}

// SetUnit chooses a unit from model.Units and locks the unit control.
func (c *Composer) SetUnit(i int, unit string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if err := c.ingredientIndex(i); err != nil {
		return err
	}
	if !model.IsKnownUnit(unit) {
		return fmt.Errorf("%w: unit %q", model.ErrUnknownOption, unit)
	}
	c.draft.Ingredients[i].Unit = unit
	c.draft.Ingredients[i].UnitLocked = true
	return nil
}

// UnlockUnit reopens the unit picker. The chosen unit is kept.
func (c *Composer) UnlockUnit(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ingredientIndex(i); err != nil {
		return err
	}
	c.draft.Ingredients[i].UnitLocked = false
	return nil
}

// Suggestions returns the display state of every ingredient row's lookup.
func (c *Composer) Suggestions() []autocomplete.RowView {
	return c.ac.View()
}

// Steps

func (c *Composer) AddStep() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return 0, err
	}
	c.draft.Steps = append(c.draft.Steps, "")
	return len(c.draft.Steps) - 1, nil
}

func (c *Composer) SetStep(i int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if i < 0 || i >= len(c.draft.Steps) {
		return fmt.Errorf("%w: step %d", model.ErrRowOutOfRange, i)
	}
	c.draft.Steps[i] = removeNewlines(text)
	return nil
}

// RemoveStep drops step i unless it is the only one.
func (c *Composer) RemoveStep(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if i < 0 || i >= len(c.draft.Steps) {
		return fmt.Errorf("%w: step %d", model.ErrRowOutOfRange, i)
	}
	if len(c.draft.Steps) == 1 {
		return nil
	}
	c.draft.Steps = append(c.draft.Steps[:i], c.draft.Steps[i+1:]...)
	return nil
}

// Tags

// AddTag normalizes text and appends it. It reports false when nothing was
// added because the text was blank or the list is full.
func (c *Composer) AddTag(text string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return false, err
	}
	return addTag(&c.draft.Tags, text, model.TagMaxCount), nil
}

func (c *Composer) RemoveTag(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	return removeAt(&c.draft.Tags, i)
}

func (c *Composer) AddDietaryTag(text string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return false, err
	}
	return addTag(&c.draft.DietaryTags, text, model.DietTagMaxCount), nil
}

func (c *Composer) RemoveDietaryTag(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	return removeAt(&c.draft.DietaryTags, i)
}

// TagsEditable reports whether the tag input accepts more tags.
func (c *Composer) TagsEditable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.uploading && len(c.draft.Tags) < model.TagMaxCount
}

func (c *Composer) DietaryTagsEditable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.uploading && len(c.draft.DietaryTags) < model.DietTagMaxCount
}

// Media

// SetVideo seeds the draft with an edited video and renders its default
// thumbnail, which becomes the draft thumbnail.
func (c *Composer) SetVideo(ctx context.Context, video *model.MediaReference) {
	thumb := c.timeline.SetVideo(ctx, video)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Video = video
	c.draft.Thumbnail = thumb
	c.choosingFrames = false
}

// SetDishImage applies the first picked asset. Portrait or square images are
// refused with an alert and the previous image stays.
func (c *Composer) SetDishImage(assets []model.ImageAsset) error {
	if len(assets) == 0 {
		return model.ErrCapabilityCancelled
	}
	asset := assets[0]
	if !asset.Landscape() {
		c.alert(model.AlertInvalidImage)
		return model.ErrInvalidImage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	c.draft.DishImage = model.NewImage(asset.URI)
	return nil
}

// Frame selection

// EnterFrames opens cover selection.
func (c *Composer) EnterFrames() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft.Video.Empty() {
		return model.ErrNoVideo
	}
	c.choosingFrames = true
	return nil
}

func (c *Composer) ChoosingFrames() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.choosingFrames
}

// BeginFrames starts extracting the scrub strip for a video of the given length.
func (c *Composer) BeginFrames(ctx context.Context, durationSeconds float64) ([]model.Frame, error) {
	return c.timeline.Begin(ctx, durationSeconds)
}

func (c *Composer) Scrub(offset float64) (int, float64) {
	return c.timeline.Scrub(offset)
}

// FinishFrames closes cover selection, keeping the frame under the line.
func (c *Composer) FinishFrames() *model.MediaReference {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Thumbnail = c.timeline.Finish(c.draft.Thumbnail)
	c.choosingFrames = false
	return c.draft.Thumbnail
}

// BackFrames closes cover selection without choosing a frame.
func (c *Composer) BackFrames() *model.MediaReference {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Thumbnail = c.timeline.Back(c.draft.Thumbnail)
	c.choosingFrames = false
	return c.draft.Thumbnail
}

// CustomThumbnail uses a picked still image as the cover instead of a frame.
func (c *Composer) CustomThumbnail(assets []model.ImageAsset) error {
	if len(assets) == 0 {
		return model.ErrCapabilityCancelled
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Thumbnail = model.NewImage(assets[0].URI)
	return nil
}

func (c *Composer) Frames() frames.Snapshot {
	return c.timeline.Snapshot()
}

// Submission

// Validate checks the draft and alerts with the combined message on failure.
func (c *Composer) Validate() error {
	c.mu.Lock()
	err := c.draft.Validate()
	c.mu.Unlock()

	if err != nil {
		c.metrics.IncValidationFailure()
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			c.log.Info("draft incomplete", "missing", verr.Detail())
		}
		c.alert(model.AlertMissingFields)
	}
	return err
}

// Snapshot validates the draft and returns a copy for submission.
func (c *Composer) Snapshot() (model.RecipeDraft, error) {
	if err := c.Validate(); err != nil {
		return model.RecipeDraft{}, err
	}
	return c.Draft(), nil
}

// Reset returns the form to its empty initial state.
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = model.NewDraft()
	c.category = NewSelection(model.Categories)
	c.cuisine = NewSelection(model.Cuisines)
	c.choosingFrames = false
	c.ac.Reset()
	c.timeline.Reset()
}

// Close stops background lookups.
func (c *Composer) Close() {
	c.ac.Close()
}

// Locks reports which controls are showing a locked single-line value.
type Locks struct {
	Category bool `json:"category"`
	Cuisine  bool `json:"cuisine"`
}

func (c *Composer) Locks() Locks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Locks{Category: c.category.Locked(), Cuisine: c.cuisine.Locked()}
}

func (c *Composer) editable() error {
	if c.uploading {
		return model.ErrUploadInProgress
	}
	return nil
}

func (c *Composer) ingredientIndex(i int) error {
	if i < 0 || i >= len(c.draft.Ingredients) {
		return fmt.Errorf("%w: ingredient %d", model.ErrRowOutOfRange, i)
	}
	return nil
}

func (c *Composer) alert(a model.Alert) {
	if c.notify != nil {
		c.notify(a)
	}
}

func removeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "")
}

// NormalizeTag trims text, joins words with hyphens and adds the # marker.
// Blank text yields "".
func NormalizeTag(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	return "#" + strings.Join(words, "-")
}

func addTag(list *[]string, text string, max int) bool {
	tag := NormalizeTag(text)
	if tag == "" || len(*list) >= max {
		return false
	}
	*list = append(*list, tag)
	return true
}

func removeAt(list *[]string, i int) error {
	if i < 0 || i >= len(*list) {
		return fmt.Errorf("%w: tag %d", model.ErrRowOutOfRange, i)
	}
	*list = append((*list)[:i], (*list)[i+1:]...)
	return nil
}
