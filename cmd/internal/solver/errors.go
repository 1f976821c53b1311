package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestion is returned for a text problem with no question.
	ErrEmptyQuestion = errors.New("solver: empty question")

	// ErrMissingUpload is the kind of MissingUploadError.
	ErrMissingUpload = errors.New("solver: missing upload")

	// ErrUnsupportedKind is returned for a problem kind the solver does not know.
	ErrUnsupportedKind = errors.New("solver: unsupported problem kind")

	// ErrUnsupportedImage is returned when an upload is not a jpg/png/gif/bmp image.
	ErrUnsupportedImage = errors.New("solver: unsupported image format")

	// ErrImageTooLarge is the kind of ImageTooLargeError.
	ErrImageTooLarge = errors.New("solver: image too large")

	// ErrNoUsableKey is returned when every provider key failed with a quota or auth error.
	ErrNoUsableKey = errors.New("solver: no usable provider key")

	// ErrNoKeys is returned when a KeyRing is built without keys.
	ErrNoKeys = errors.New("solver: no provider keys configured")

	// ErrEmptyCompletion is returned when the provider answers without choices.
	ErrEmptyCompletion = errors.New("solver: provider returned no choices")

	// ErrConfig is returned for invalid solver configuration.
	ErrConfig = errors.New("solver: invalid configuration")
)

// MissingUploadError reports a file-based problem submitted without a file.
type MissingUploadError struct {
	Kind Kind
}

func (e MissingUploadError) Error() string {
	return fmt.Sprintf("solver: missing %s upload", e.Kind)
}

func (e MissingUploadError) Unwrap() error { return ErrMissingUpload }

// ImageTooLargeError reports an image whose pixel count exceeds the limit.
type ImageTooLargeError struct {
	Width, Height int
	MaxPixels     int64
}

func (e ImageTooLargeError) Error() string {
	return fmt.Sprintf("image is %dx%d, over the %d pixel limit", e.Width, e.Height, e.MaxPixels)
}

func (e ImageTooLargeError) Unwrap() error { return ErrImageTooLarge }
