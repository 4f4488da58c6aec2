package service

import "errors"

// Error kinds returned by the service layer. The handler layer maps these
// onto HTTP status codes.
var (
	// ErrNotFound indicates a referenced annotator or item does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidTransition indicates an illegal workflow phase change.
	ErrInvalidTransition = errors.New("invalid phase transition")
	// ErrConsentRequired indicates the annotator has not consented yet.
	ErrConsentRequired = errors.New("consent required")
	// ErrTrainingIncomplete indicates the annotator has not passed training.
	ErrTrainingIncomplete = errors.New("training not completed")
	// ErrUnknownScheme indicates a label referenced an unconfigured scheme.
	ErrUnknownScheme = errors.New("unknown annotation scheme")
	// ErrUnsupportedMedia indicates an upload with a disallowed content type.
	ErrUnsupportedMedia = errors.New("unsupported media type")
)
