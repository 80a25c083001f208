// Package upload accepts prescription image uploads and keeps them on disk
// only for the lifetime of a single request.
package upload

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/healthtwin/platform/pkg/common/errs"
)

const (
	MsgNoFile          = "No file uploaded"
	MsgNoFileSelected  = "No file selected"
	MsgTypeNotAllowed  = "File type not allowed"
	defaultMaxInMemory = 8 << 20
)

// Guard checks an incoming multipart request before anything touches disk.
type Guard struct {
	field     string
	allowed   map[string]struct{}
	maxMemory int64
}

func NewGuard(field string, extensions []string) *Guard {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if trimmed := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(ext)), "."); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}
	return &Guard{field: field, allowed: allowed, maxMemory: defaultMaxInMemory}
}

// AllowedFile reports whether the text after the last dot of filename is an
// allowed extension, ignoring case.
func (g *Guard) AllowedFile(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return false
	}
	_, ok := g.allowed[strings.ToLower(filename[idx+1:])]
	return ok
}

// Accept returns the header of the uploaded file or a validation error
// naming the first check that failed.
func (g *Guard) Accept(r *http.Request) (*multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(g.maxMemory); err != nil {
			if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
				return nil, errs.Validation(MsgNoFile)
			}
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, errs.Validation(fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
			}
			return nil, errs.Wrap(fmt.Errorf("malformed multipart body: %w", err))
		}
	}

	if headers := r.MultipartForm.File[g.field]; len(headers) > 0 {
		header := headers[0]
		if header.Filename == "" {
			return nil, errs.Validation(MsgNoFileSelected)
		}
		if !g.AllowedFile(header.Filename) {
			return nil, errs.Validation(MsgTypeNotAllowed)
		}
		return header, nil
	}

	// A file part sent with an empty filename is parsed as a plain value.
	if _, ok := r.MultipartForm.Value[g.field]; ok {
		return nil, errs.Validation(MsgNoFileSelected)
	}
	return nil, errs.Validation(MsgNoFile)
}
