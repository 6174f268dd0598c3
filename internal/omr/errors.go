package omr

import (
	"errors"
)

// Sentinel errors reported as structured error kinds.
var (
	ErrBadInput        = errors.New("bad input")
	ErrCannotReadImage = errors.New("cannot read image")
)

// Error kinds written to the "error" field of an ErrorResult.
const (
	KindBadInput        = "bad_input"
	KindCannotReadImage = "cannot_read_image"
	KindProcessing      = "processing_failed"
)

// ErrorResult is the structured form of a failed run.
type ErrorResult struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Path   string `json:"path,omitempty"`
}

// NewErrorResult classifies err. path is the image that was being read, if
// known.
func NewErrorResult(err error, path string) ErrorResult {
	switch {
	case errors.Is(err, ErrBadInput):
		return ErrorResult{Error: KindBadInput, Detail: err.Error()}
	case errors.Is(err, ErrCannotReadImage):
		return ErrorResult{Error: KindCannotReadImage, Path: path, Detail: err.Error()}
	default:
		return ErrorResult{Error: KindProcessing, Detail: err.Error()}
	}
}
