package model

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyManifestURL = errors.New("canonical manifest URL cannot be empty")
	ErrInvalidDuration  = errors.New("duration must be a non-negative number of seconds")
	ErrInvalidDimension = errors.New("width and height must be non-negative")
)

// StoredAsset is the durable record of one transcoded video: the
// stable, unsigned location of its manifest plus the metadata probed
// from the source. Created once per successful upload and immutable
// thereafter; replacing a video means a full re-upload, never in-place
// segment mutation.
type StoredAsset struct {
	CanonicalURL    string
	DurationSeconds int
	Width           int
	Height          int
}

// NewStoredAsset validates the probed metadata. Duration and
// dimensions are never partially populated: invalid input is an error,
// not a zeroed field.
func NewStoredAsset(canonicalURL string, durationSeconds, width, height int) (*StoredAsset, error) {
	if canonicalURL == "" {
		return nil, ErrEmptyManifestURL
	}
	if durationSeconds < 0 {
		return nil, ErrInvalidDuration
	}
	if width < 0 || height < 0 {
		return nil, ErrInvalidDimension
	}
	return &StoredAsset{
		CanonicalURL:    canonicalURL,
		DurationSeconds: durationSeconds,
		Width:           width,
		Height:          height,
	}, nil
}

// Resolution renders the dimensions in the conventional WxH form.
func (a *StoredAsset) Resolution() string {
	return fmt.Sprintf("%dx%d", a.Width, a.Height)
}
