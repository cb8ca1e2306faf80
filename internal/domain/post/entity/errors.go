package entity

import "errors"

// Domain errors for posts
var (
	// Validation errors
	ErrPublicationIDRequired = errors.New("publication ID is required")
	ErrPostIDRequired        = errors.New("post ID is required")
	ErrAPIKeyRequired        = errors.New("Beehiiv API key not set in environment variables")

	// Lookup errors
	ErrPostNotFound   = errors.New("post not found")
	ErrNoPostSelected = errors.New("no post selected")
)
