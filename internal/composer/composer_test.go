package composer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/freshrecipes/studio/internal/autocomplete"
	"github.com/freshrecipes/studio/internal/frames"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
)

type staticSource struct {
	items map[string][]model.Suggestion
}

func (s *staticSource) Search(ctx context.Context, query string) ([]model.Suggestion, error) {
	return s.items[query], nil
}

type noopExtractor struct{}

func (noopExtractor) Extract(ctx context.Context, req model.ExtractRequest) error { return nil }

type fixedThumbnailer struct{}

func (fixedThumbnailer) Thumbnail(ctx context.Context, req model.ThumbnailRequest) (*model.ThumbnailResult, error) {
	return &model.ThumbnailResult{Path: "/cache/default.jpg"}, nil
}

type alertLog struct {
	mu     sync.Mutex
	alerts []model.Alert
}

func (l *alertLog) add(a model.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, a)
}

func (l *alertLog) all() []model.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Alert(nil), l.alerts...)
}

func newComposer(t *testing.T, src *staticSource, results chan autocomplete.Result) (*Composer, *alertLog) {
	t.Helper()
	alerts := &alertLog{}
	opts := []autocomplete.Option{autocomplete.WithDebounce(time.Millisecond), autocomplete.WithLogger(logger.Discard())}
	if results != nil {
		opts = append(opts, autocomplete.WithResultHook(func(r autocomplete.Result) { results <- r }))
	}
	ac := autocomplete.New(src, opts...)
	tl := frames.New(noopExtractor{}, fixedThumbnailer{}, frames.WithLogger(logger.Discard()), frames.WithCacheDir("/cache"))
	c := New(ac, tl, WithNotifier(alerts.add), WithLogger(logger.Discard()))
	t.Cleanup(c.Close)
	return c, alerts
}

func fillValid(t *testing.T, c *Composer) {
	t.Helper()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(c.SetText(FieldDishName, "Pasta"))
	must(c.SetText(FieldDescription, "Quick weeknight pasta"))
	must(c.SetText(FieldPrepTime, "10"))
	must(c.SetText(FieldCookTime, "20"))
	must(c.SetText(FieldYields, "4"))
	must(c.SelectCategory("Dinner"))
	must(c.SelectCuisine("Italian"))
	must(c.SetQuantity(0, "2"))
	must(c.SetUnit(0, "pcs"))
	must(c.SetStep(0, "Boil water"))
	must(c.SetDishImage([]model.ImageAsset{{URI: "file:///dish.jpg", Width: 1200, Height: 800}}))

	c.mu.Lock()
	c.draft.Ingredients[0].Name = "Apple"
	c.mu.Unlock()
}

func TestNewComposer_initialDraft(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)
	d := c.Draft()
	if len(d.Ingredients) != 1 || len(d.Steps) != 1 || len(d.Tags) != 0 || len(d.DietaryTags) != 0 {
		t.Errorf("unexpected initial draft %+v", d)
	}
}

func TestValidate_complete(t *testing.T) {
	c, alerts := newComposer(t, &staticSource{}, nil)
	fillValid(t, c)
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(alerts.all()) != 0 {
		t.Errorf("alerts = %v", alerts.all())
	}
}

func TestValidate_anyMissingFieldRefuses(t *testing.T) {
	cases := []struct {
		name  string
		clear func(d *model.RecipeDraft)
	}{
		{"description", func(d *model.RecipeDraft) { d.Description = "" }},
		{"dish name", func(d *model.RecipeDraft) { d.DishName = "" }},
		{"ingredient name", func(d *model.RecipeDraft) { d.Ingredients[0].Name = "" }},
		{"ingredient quantity", func(d *model.RecipeDraft) { d.Ingredients[0].Quantity = "" }},
		{"ingredient unit", func(d *model.RecipeDraft) { d.Ingredients[0].Unit = "" }},
		{"steps", func(d *model.RecipeDraft) { d.Steps = []string{""} }},
		{"dish image", func(d *model.RecipeDraft) { d.DishImage = nil }},
		{"prep time", func(d *model.RecipeDraft) { d.PrepTime = "" }},
		{"cook time", func(d *model.RecipeDraft) { d.CookTime = "" }},
		{"category", func(d *model.RecipeDraft) { d.Category = "" }},
		{"cuisine", func(d *model.RecipeDraft) { d.Cuisine = "" }},
		{"yields", func(d *model.RecipeDraft) { d.Yields = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, alerts := newComposer(t, &staticSource{}, nil)
			fillValid(t, c)
			c.mu.Lock()
			tc.clear(&c.draft)
			c.mu.Unlock()

			_, err := c.Snapshot()
			if !errors.Is(err, model.ErrValidationFailure) {
				t.Fatalf("expected ErrValidationFailure, got %v", err)
			}
			if err.Error() != "Please fill all required fields" {
				t.Errorf("message = %q", err.Error())
			}
			got := alerts.all()
			if len(got) != 1 || got[0] != model.AlertMissingFields {
				t.Errorf("alerts = %v", got)
			}
		})
	}
}

func TestValidate_reportsEveryMissingField(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)
	c.SetText(FieldDishName, "Pasta")
	err := c.Validate()
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Missing) != 9 {
		t.Errorf("missing = %v", verr.Missing)
	}
}

func TestTags_capAndNormalize(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)

	added, _ := c.AddTag("  quick   and easy  ")
	if !added || c.Draft().Tags[0] != "#quick-and-easy" {
		t.Fatalf("tags = %v", c.Draft().Tags)
	}
	if added, _ := c.AddTag("   "); added {
		t.Error("blank tag should not be added")
	}

	for i := 1; i < 15; i++ {
		c.AddTag(fmt.Sprintf("tag %d", i))
		if n := len(c.Draft().Tags); n > model.TagMaxCount {
			t.Fatalf("tag count %d exceeds cap", n)
		}
	}
	if n := len(c.Draft().Tags); n != model.TagMaxCount {
		t.Errorf("tag count = %d", n)
	}
	if c.TagsEditable() {
		t.Error("tag input should be disabled at cap")
	}
	if added, _ := c.AddTag("overflow"); added {
		t.Error("add beyond cap should be a no-op")
	}

	c.RemoveTag(0)
	if !c.TagsEditable() {
		t.Error("tag input should be editable after removal")
	}

	for i := 0; i < 12; i++ {
		c.AddDietaryTag("vegan")
	}
	if n := len(c.Draft().DietaryTags); n != model.DietTagMaxCount {
		t.Errorf("dietary tag count = %d", n)
	}
	if c.DietaryTagsEditable() {
		t.Error("dietary input should be disabled at cap")
	}
}

func TestSelection_lockAndSentinel(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)

	if err := c.SelectCategory(""); err != nil {
		t.Fatal(err)
	}
	if c.Locks().Category {
		t.Error("sentinel must never lock")
	}
	c.SelectCategory("Lunch")
	if !c.Locks().Category || c.Draft().Category != "Lunch" {
		t.Errorf("after select: locks=%+v category=%q", c.Locks(), c.Draft().Category)
	}
	c.UnlockCategory()
	if c.Locks().Category || c.Draft().Category != "Lunch" {
		t.Error("unlock should keep the value but unlock the control")
	}
	if err := c.SelectCuisine("Martian"); !errors.Is(err, model.ErrUnknownOption) {
		t.Errorf("unknown cuisine: %v", err)
	}
}

func TestIngredientRows(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)

	if err := c.RemoveIngredient(0); err != nil {
		t.Fatal(err)
	}
	if n := len(c.Draft().Ingredients); n != 1 {
		t.Fatalf("rows = %d, the last row must stay", n)
	}

	i, _ := c.AddIngredient()
	c.SetQuantity(i, "3")
	c.RemoveIngredient(0)
	d := c.Draft()
	if len(d.Ingredients) != 1 || d.Ingredients[0].Quantity != "3" {
		t.Errorf("rows after remove = %+v", d.Ingredients)
	}
	if len(c.Suggestions()) != 1 {
		t.Errorf("suggestion rows = %d", len(c.Suggestions()))
	}

	if err := c.SetUnit(0, "parsec"); !errors.Is(err, model.ErrUnknownOption) {
		t.Errorf("unknown unit: %v", err)
	}
	c.SetUnit(0, "cup")
	if !c.Draft().Ingredients[0].UnitLocked {
		t.Error("choosing a unit should lock it")
	}
	c.UnlockUnit(0)
	if r := c.Draft().Ingredients[0]; r.UnitLocked || r.Unit != "cup" {
		t.Errorf("after unlock: %+v", r)
	}
}

func TestSteps(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)
	c.RemoveStep(0)
	if n := len(c.Draft().Steps); n != 1 {
		t.Fatalf("steps = %d", n)
	}
	i, _ := c.AddStep()
	c.SetStep(i, "Serve\nhot")
	if got := c.Draft().Steps[1]; got != "Servehot" {
		t.Errorf("step = %q, newlines should be removed", got)
	}
	if r := c.Remaining(FieldStep, 1); r != model.StepMaxChars-8 {
		t.Errorf("remaining = %d", r)
	}
}

func TestRejectUnmatchedIngredient(t *testing.T) {
	results := make(chan autocomplete.Result, 4)
	src := &staticSource{items: map[string][]model.Suggestion{
		"Bananaa": {{ID: 1, Description: "Banana"}},
	}}
	c, alerts := newComposer(t, src, results)

	c.FocusIngredient(0)
	c.SetIngredientName(0, "Bananaa")
	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("lookup never completed")
	}

	err := c.BlurIngredient(0)
	if !errors.Is(err, model.ErrSuggestionRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if name := c.Draft().Ingredients[0].Name; name != "" {
		t.Errorf("name = %q, want cleared", name)
	}
	got := alerts.all()
	if len(got) != 1 || got[0] != model.AlertInvalidIngredient {
		t.Errorf("alerts = %v", got)
	}
}

func TestBlurTwiceKeepsAcceptedIngredient(t *testing.T) {
	results := make(chan autocomplete.Result, 4)
	src := &staticSource{items: map[string][]model.Suggestion{
		"Banana": {{ID: 1, Description: "Banana"}},
	}}
	c, alerts := newComposer(t, src, results)

	c.FocusIngredient(0)
	c.SetIngredientName(0, "Banana")
	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("lookup never completed")
	}

	if err := c.BlurIngredient(0); err != nil {
		t.Fatalf("first blur: %v", err)
	}
	c.FocusIngredient(0)
	if err := c.BlurIngredient(0); err != nil {
		t.Fatalf("second blur: %v", err)
	}
	if name := c.Draft().Ingredients[0].Name; name != "Banana" {
		t.Errorf("name = %q, want Banana", name)
	}
	if got := alerts.all(); len(got) != 0 {
		t.Errorf("alerts = %v", got)
	}
}

func TestSelectSuggestion(t *testing.T) {
	results := make(chan autocomplete.Result, 4)
	src := &staticSource{items: map[string][]model.Suggestion{
		"gar": {{ID: 1, Description: "Garlic"}, {ID: 2, Description: "Garam masala"}},
	}}
	c, _ := newComposer(t, src, results)

	c.SetIngredientName(0, "gar")
	<-results
	c.ShowMoreSuggestions(0)
	name, err := c.SelectSuggestion(0, 1)
	if err != nil || name != "Garam masala" {
		t.Fatalf("SelectSuggestion = %q, %v", name, err)
	}
	if err := c.BlurIngredient(0); err != nil {
		t.Errorf("blur after select: %v", err)
	}
	if c.Draft().Ingredients[0].Name != "Garam masala" {
		t.Errorf("name = %q", c.Draft().Ingredients[0].Name)
	}
}

func TestDishImage_mustBeLandscape(t *testing.T) {
	c, alerts := newComposer(t, &staticSource{}, nil)
	c.SetDishImage([]model.ImageAsset{{URI: "file:///wide.jpg", Width: 4, Height: 3}})

	err := c.SetDishImage([]model.ImageAsset{{URI: "file:///tall.jpg", Width: 3, Height: 4}})
	if !errors.Is(err, model.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
	if c.Draft().DishImage.URI != "file:///wide.jpg" {
		t.Error("previous image should be kept")
	}
	if got := alerts.all(); len(got) != 1 || got[0] != model.AlertInvalidImage {
		t.Errorf("alerts = %v", got)
	}
	if err := c.SetDishImage(nil); !errors.Is(err, model.ErrCapabilityCancelled) {
		t.Errorf("empty pick: %v", err)
	}
}

func TestFrameSelection(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)
	if err := c.EnterFrames(); !errors.Is(err, model.ErrNoVideo) {
		t.Fatalf("EnterFrames without video: %v", err)
	}

	c.SetVideo(context.Background(), model.NewVideo("file:///v/meal.mp4"))
	if th := c.Draft().Thumbnail; th == nil || th.URI != "file:///cache/default.jpg" {
		t.Fatalf("default thumbnail = %+v", th)
	}

	c.EnterFrames()
	c.BeginFrames(context.Background(), 3)
	<-c.timeline.Done()
	c.Scrub(40)
	got := c.FinishFrames()
	if got.URI != "file:///cache/meal_0002.png" {
		t.Errorf("thumbnail = %s", got.URI)
	}
	if c.ChoosingFrames() {
		t.Error("finish should close frame selection")
	}

	c.CustomThumbnail([]model.ImageAsset{{URI: "file:///mine.jpg", Width: 1, Height: 1}})
	if c.Draft().Thumbnail.URI != "file:///mine.jpg" {
		t.Error("custom thumbnail not applied")
	}
}

func TestUploadingFreezesForm(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)
	c.SetUploading(true)
	if err := c.SetText(FieldDishName, "x"); !errors.Is(err, model.ErrUploadInProgress) {
		t.Errorf("edit during upload: %v", err)
	}
	if c.TagsEditable() {
		t.Error("tags should not be editable during upload")
	}
}

func TestReset(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)
	fillValid(t, c)
	c.AddTag("x")
	c.Reset()

	d := c.Draft()
	empty := model.NewDraft()
	if d.DishName != "" || d.DishImage != nil || len(d.Ingredients) != 1 || d.Ingredients[0] != empty.Ingredients[0] ||
		len(d.Steps) != 1 || d.Steps[0] != "" || len(d.Tags) != 0 || c.Locks().Category {
		t.Errorf("draft after reset = %+v", d)
	}
}

func TestFocusChain(t *testing.T) {
	c, _ := newComposer(t, &staticSource{}, nil)
	c.AddIngredient()

	next, ok := c.NextFocus(FieldID{Kind: FieldYields})
	if !ok || next != (FieldID{Kind: FieldIngredientName, Row: 0}) {
		t.Errorf("after yields: %v", next)
	}
	next, _ = c.NextFocus(FieldID{Kind: FieldIngredientName, Row: 0})
	if next != (FieldID{Kind: FieldQuantity, Row: 0}) {
		t.Errorf("after name 0: %v", next)
	}
	next, _ = c.NextFocus(FieldID{Kind: FieldQuantity, Row: 1})
	if next != (FieldID{Kind: FieldStep, Row: 0}) {
		t.Errorf("after quantity 1: %v", next)
	}
	if _, ok := c.NextFocus(FieldID{Kind: FieldDietaryTag}); ok {
		t.Error("dietary tag is the last field")
	}
	if len(c.FocusOrder()) != 5+4+1+2 {
		t.Errorf("focus order = %v", c.FocusOrder())
	}
}

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{
		"vegan":          "#vegan",
		" gluten  free ": "#gluten-free",
		"a\tb\nc":        "#a-b-c",
		"   ":            "",
	}
	for in, want := range cases {
		if got := NormalizeTag(in); got != want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", in, got, want)
		}
	}
}
