package model

import (
	"errors"
	"strings"
)

var (
	// ErrCapabilityCancelled means the user dismissed a native flow. It is not
	// an error condition; the caller navigates back or home.
	ErrCapabilityCancelled = errors.New("capability cancelled")
	ErrCapabilityFailure   = errors.New("capability failed")
	ErrExtractionFailure   = errors.New("frame extraction failed")
	ErrValidationFailure   = errors.New("validation failed")
	ErrSuggestionRejected  = errors.New("ingredient not in suggestions")
	ErrNetworkFailure      = errors.New("network failure")

	ErrUploadInProgress = errors.New("upload already in progress")
	ErrSessionNotFound  = errors.New("session not found")
	ErrJobNotFound      = errors.New("upload job not found")
	ErrRowOutOfRange    = errors.New("row out of range")
	ErrUnknownOption    = errors.New("unknown option")
	ErrInvalidImage     = errors.New("image must be landscape")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoVideo          = errors.New("no video set")
)

// User-facing alerts.
var (
	AlertMissingFields     = Alert{Title: "Error", Message: "Please fill all required fields"}
	AlertInvalidIngredient = Alert{Title: "Invalid Ingredient", Message: "Please select an ingredient from the list."}
	AlertInvalidImage      = Alert{Title: "Invalid Image", Message: "Please select a landscape image (width > height)."}
	AlertExtractionFailed  = Alert{Title: "Error", Message: "Failed to generate frames."}
	AlertUploadFailed      = Alert{Title: "Error", Message: "Failed to share the recipe. Please try again."}
	AlertNotAuthenticated  = Alert{Title: "Error", Message: "User is not authenticated"}
	AlertThumbnailPick     = Alert{Title: "Error", Message: "Error selecting thumbnail"}
)

// ValidationError lists every required field that is empty.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return AlertMissingFields.Message
}

// Detail returns the missing field names joined for logs.
func (e *ValidationError) Detail() string {
	return strings.Join(e.Missing, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailure
}
