package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// UploadState is the lifecycle state of a submission.
type UploadState string

const (
	UploadIdle      UploadState = "idle"
	UploadUploading UploadState = "uploading"
	UploadDone      UploadState = "done"
	UploadFailed    UploadState = "failed"
)

// Folder names the media host bucket an asset is uploaded into.
type Folder string

const (
	FolderVideos          Folder = "videos"
	FolderVideoThumbnails Folder = "video-thumbnails"
	FolderRecipeImage     Folder = "recipe-image"
)

// UploadStatus is the process-wide upload slot that indicators render.
type UploadStatus struct {
	UserID    string      `json:"userId"`
	JobID     string      `json:"jobId,omitempty"`
	State     UploadState `json:"state"`
	Uploading bool        `json:"uploading"`
	Progress  int         `json:"progress"`
	Thumbnail string      `json:"thumbnail,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// UploadJob is one submission. Progress never decreases while uploading.
type UploadJob struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	SessionID string      `json:"sessionId,omitempty"`
	State     UploadState `json:"state"`
	Progress  int         `json:"progress"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// UploadJobPayload is the asynq task body for a queued submission.
type UploadJobPayload struct {
	UserID    string      `json:"userId"`
	SessionID string      `json:"sessionId"`
	Draft     RecipeDraft `json:"draft"`
}

// UploadDestination is where one asset goes. For Cloudinary the signature
// fields are set; for presigned stores URL and PublicURL are set.
type UploadDestination struct {
	Folder    Folder     `json:"folder"`
	Signature *Signature `json:"signature,omitempty"`
	URL       string     `json:"url,omitempty"`
	PublicURL string     `json:"publicUrl,omitempty"`
}

// RecipeRecord is the JSON body posted to the backend recipe endpoint.
type RecipeRecord struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PrepTime     *float64 `json:"prep_time"`
	CookTime     *float64 `json:"cook_time"`
	Ingredients  string   `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Category     string   `json:"category"`
	Cuisine      string   `json:"cuisine"`
	ImageURI     string   `json:"imageUri"`
	VideoURI     string   `json:"videoUri"`
	UserID       string   `json:"userId"`
	Tags         string   `json:"tags"`
	DietaryTags  string   `json:"dietaryTags"`
	ThumbnailURI string   `json:"thumbnailUri"`
	Yields       string   `json:"yields"`
}

// TagDelimiter joins tag lists in the recipe record.
const TagDelimiter = ","

// HostedMedia holds the URLs returned by the media host.
type HostedMedia struct {
	VideoURL     string
	ThumbnailURL string
	ImageURL     string
}

// NewRecipeRecord assembles the backend record for a draft whose media has
// already been uploaded.
func NewRecipeRecord(d RecipeDraft, media HostedMedia, userID string) (RecipeRecord, error) {
	ingredients, err := json.Marshal(d.Ingredients)
	if err != nil {
		return RecipeRecord{}, err
	}
	instructions, err := json.Marshal(d.FilledSteps())
	if err != nil {
		return RecipeRecord{}, err
	}
	return RecipeRecord{
		Title:        d.DishName,
		Description:  d.Description,
		PrepTime:     parseMinutes(d.PrepTime),
		CookTime:     parseMinutes(d.CookTime),
		Ingredients:  string(ingredients),
		Instructions: string(instructions),
		Category:     d.Category,
		Cuisine:      d.Cuisine,
		ImageURI:     media.ImageURL,
		VideoURI:     media.VideoURL,
		UserID:       userID,
		Tags:         strings.Join(d.Tags, TagDelimiter),
		DietaryTags:  strings.Join(d.DietaryTags, TagDelimiter),
		ThumbnailURI: media.ThumbnailURL,
		Yields:       d.Yields,
	}, nil
}

func parseMinutes(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}
