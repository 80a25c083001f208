// Package ocr turns an uploaded prescription image into structured fields.
package ocr

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("ocr engine not configured")

// TextRecognizer reads the text printed or written on the image at path.
type TextRecognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// DetailExtractor parses recognized text into named prescription fields.
type DetailExtractor interface {
	Extract(ctx context.Context, text string) (map[string]interface{}, error)
}

type unconfigured struct{}

func (unconfigured) Recognize(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
