package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/middleware"
)

// Routes is everything the studio API mounts.
type Routes struct {
	Health    *HealthHandler
	Studio    *StudioHandler
	Upload    *UploadHandler
	Auth      *AuthHandler
	Websocket *WebsocketHandler
	APIAuth   fiber.Handler
	Limiter   *middleware.RateLimiter
	Limits    config.RateLimitConfig
}

// Register mounts the API on app.
func (r *Routes) Register(app *fiber.App) {
	if r.Health != nil {
		app.Get("/", r.Health.Root)
		app.Get("/health", r.Health.Health)
	}

	// ForwardAuth verification endpoint (internal, called by the gateway)
	app.Get("/auth/verify", r.Auth.Verify)

	api := app.Group("/api", r.APIAuth)
	api.Get("/options", r.Studio.Options)

	sessions := api.Group("/sessions")
	sessions.Post("/", r.Studio.Create)
	sessions.Get("/:id", r.Studio.Get)
	sessions.Delete("/:id", r.Studio.Delete)
	sessions.Post("/:id/capture", r.Studio.Capture)
	sessions.Post("/:id/edit", r.Studio.Edit)

	// Form fields
	sessions.Patch("/:id/draft", r.Studio.PatchDraft)
	sessions.Post("/:id/category", r.Studio.SelectCategory)
	sessions.Post("/:id/category/unlock", r.Studio.UnlockCategory)
	sessions.Post("/:id/cuisine", r.Studio.SelectCuisine)
	sessions.Post("/:id/cuisine/unlock", r.Studio.UnlockCuisine)

	ingredients := sessions.Group("/:id/ingredients")
	ingredients.Post("/", r.Studio.AddIngredient)
	ingredients.Delete("/:row", r.Studio.RemoveIngredient)
	ingredients.Post("/:row/focus", r.Studio.FocusIngredient)
	ingredients.Put("/:row/name", r.Limiter.SuggestLimit(r.Limits.SuggestPerMin), r.Studio.SetIngredientName)
	ingredients.Post("/:row/blur", r.Studio.BlurIngredient)
	ingredients.Post("/:row/select", r.Studio.SelectSuggestion)
	ingredients.Post("/:row/show-more", r.Studio.ShowMoreSuggestions)
	ingredients.Put("/:row/quantity", r.Studio.SetQuantity)
	ingredients.Put("/:row/unit", r.Studio.SetUnit)
	ingredients.Post("/:row/unit/unlock", r.Studio.UnlockUnit)

	sessions.Post("/:id/steps", r.Studio.AddStep)
	sessions.Put("/:id/steps/:row", r.Studio.SetStep)
	sessions.Delete("/:id/steps/:row", r.Studio.RemoveStep)

	sessions.Post("/:id/tags", r.Studio.AddTag)
	sessions.Delete("/:id/tags/:row", r.Studio.RemoveTag)
	sessions.Post("/:id/dietary-tags", r.Studio.AddDietaryTag)
	sessions.Delete("/:id/dietary-tags/:row", r.Studio.RemoveDietaryTag)

	// Media and cover selection
	sessions.Post("/:id/dish-image", r.Studio.DishImage)
	frames := sessions.Group("/:id/frames")
	frames.Post("/enter", r.Studio.EnterFrames)
	frames.Post("/begin", r.Studio.BeginFrames)
	frames.Post("/scrub", r.Studio.Scrub)
	frames.Post("/finish", r.Studio.FinishFrames)
	frames.Post("/back", r.Studio.BackFrames)
	frames.Post("/custom", r.Studio.CustomThumbnail)

	// Submission
	sessions.Post("/:id/submit", r.Limiter.UploadLimit(r.Limits.UploadPerHour), r.Upload.Submit)
	api.Get("/uploads/status", r.Upload.Status)
	api.Get("/uploads/:jobId", r.Upload.Job)

	// WebSocket routes
	if r.Websocket != nil {
		app.Use("/ws", r.Websocket.Upgrade)
		app.Get("/ws/uploads/:userId", r.Websocket.Uploads())
	}
}
