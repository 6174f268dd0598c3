// Package debug writes diagnostic images produced while reading a sheet.
package debug

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	img "omr-reader/internal/image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// Sink stores a named debug image and returns where it went. The image
// format follows the name's extension.
type Sink interface {
	Write(ctx context.Context, name string, mat gocv.Mat) (string, error)
}

// NopSink discards every image.
type NopSink struct{}

// Write implements Sink.
func (NopSink) Write(context.Context, string, gocv.Mat) (string, error) { return "", nil }

// DirSink saves images into a local directory, creating it on first use.
type DirSink struct {
	Dir string
}

// Write implements Sink.
func (s DirSink) Write(_ context.Context, name string, mat gocv.Mat) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating debug dir: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	if err := imaging.Save(img.ToImage(mat), path, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	return path, nil
}

// encode renders mat in the format implied by name.
func encode(name string, mat gocv.Mat) ([]byte, string, error) {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return nil, "", fmt.Errorf("unsupported debug image %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.ToImage(mat), format, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("encoding %s: %w", name, err)
	}

	contentType := "image/jpeg"
	if format == imaging.PNG {
		contentType = "image/png"
	}
	return buf.Bytes(), contentType, nil
}
