// Package omr reads a photographed multiple-choice answer sheet end to end:
// corner detection, perspective correction, bubble location and scoring, and
// the per-question decisions.
package omr

import (
	"context"
	"fmt"
	"image"
	"log"
	"strconv"
	"strings"

	"omr-reader/internal/bubble"
	"omr-reader/internal/config"
	"omr-reader/internal/debug"
	"omr-reader/internal/document"
	img "omr-reader/internal/image"
	"omr-reader/internal/mark"
	"omr-reader/pkg/geometry"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// Pipeline holds the settings of every stage. It keeps no state between
// runs, so one Pipeline may process many images concurrently.
type Pipeline struct {
	Corners  document.Params
	Grid     bubble.Params
	Decision mark.Params
	Detector bubble.Detector // Nil uses Hough circles
	Sink     debug.Sink      // Receives debug images
	Verbose  bool            // Log stage outcomes
}

// New builds a pipeline from configuration. A nil sink discards debug images.
func New(cfg *config.Config, sink debug.Sink) *Pipeline {
	if sink == nil {
		sink = debug.NopSink{}
	}
	return &Pipeline{
		Corners:  cfg.Corners,
		Grid:     cfg.Grid,
		Decision: cfg.Decision,
		Sink:     sink,
		Verbose:  cfg.Log.Debug(),
	}
}

// ProcessFile loads and reads the image at path.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	src, err := img.Load(path)
	if err != nil {
		if !img.IsSupportedFormat(path) {
			return nil, fmt.Errorf("%w: %v (supported: %s)", ErrCannotReadImage, err, strings.Join(img.SupportedFormats(), " "))
		}
		return nil, fmt.Errorf("%w: %v", ErrCannotReadImage, err)
	}
	return p.ProcessImage(ctx, src)
}

// ProcessBytes reads an encoded image held in memory.
func (p *Pipeline) ProcessBytes(ctx context.Context, data []byte) (*Result, error) {
	src, err := img.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotReadImage, err)
	}
	return p.ProcessImage(ctx, src)
}

// ProcessImage reads a decoded image.
func (p *Pipeline) ProcessImage(ctx context.Context, src image.Image) (*Result, error) {
	mat := img.ToMat(src)
	defer mat.Close()
	return p.Process(ctx, mat)
}

// Process reads a BGR image. The input is not modified.
func (p *Pipeline) Process(ctx context.Context, src gocv.Mat) (*Result, error) {
	if src.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrCannotReadImage)
	}

	corners := document.DetectCorners(src, p.Corners)
	p.logf("corners: %s %v", corners.Method, corners.Corners.Pairs())

	perspective := PerspectiveCorrection{Enabled: true, Success: true, Method: "homography"}
	warp, err := document.FourPointTransform(src, [4]geometry.Point2D(corners.Corners), p.Corners)
	if err != nil {
		// A degenerate quad cannot be warped. Read the photo as is.
		p.logf("perspective: %v, using the unwarped image", err)
		perspective.Success = false
		warp = document.WarpResult{Image: src.Clone(), Quad: corners.Corners, Width: src.Cols(), Height: src.Rows()}
	}
	defer warp.Image.Close()
	perspective.Warped = warp.Warped
	perspective.Width, perspective.Height = warp.Width, warp.Height

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc := &bubble.Locator{Params: p.Grid, Detector: p.Detector}
	located, err := loc.Locate(warp.Image)
	if err != nil {
		return nil, fmt.Errorf("locating bubbles: %w", err)
	}
	defer located.Close()
	p.logf("bubbles: %s, %d circles, median radius %d", located.Strategy, located.CircleCount, located.MedianRadius)

	summary := mark.Aggregate(located.Scores, p.Decision)
	p.logf("decisions: %d uncertain, confidence %.2f", len(summary.Uncertain), summary.Confidence)

	artifacts := p.writeArtifacts(ctx, located)

	return &Result{
		CornerDetection: CornerDetection{
			Enabled: true,
			Success: true,
			Method:  string(corners.Method),
			Corners: corners.Corners.Pairs(),
		},
		PerspectiveCorrection: perspective,
		Processing:            Processing{BubbleReading: bubbleReading(located, p.Grid.Assignment)},
		Answers:               summary.Answers,
		UncertainAnswers:      summary.Uncertain,
		Confidence:            summary.Confidence,
		Warnings:              summary.Warnings,
		Debug: DebugInfo{
			RowScores: rowScores(located.Scores),
			Artifacts: artifacts,
		},
	}, nil
}

// writeArtifacts sends the normalized sheet, the overlay and the threshold
// map to the sink. Names carry a per-run prefix so concurrent runs sharing a
// sink do not collide. A failed write is logged and left out of the result;
// the reading itself still succeeds.
func (p *Pipeline) writeArtifacts(ctx context.Context, located *bubble.LocateResult) []string {
	artifacts := []string{}
	overlayName, overlay := debug.Overlay(located)
	defer overlay.Close()

	run := uuid.NewString()[:8]
	images := []struct {
		name string
		mat  gocv.Mat
	}{
		{debug.ArtifactSheet, located.Sheet},
		{overlayName, overlay},
		{debug.ArtifactThreshold, located.Threshold},
	}
	for _, a := range images {
		loc, err := p.Sink.Write(ctx, run+"_"+a.name, a.mat)
		if err != nil {
			log.Printf("debug image %s not written: %v", a.name, err)
			continue
		}
		if loc != "" {
			artifacts = append(artifacts, loc)
		}
	}
	return artifacts
}

func bubbleReading(r *bubble.LocateResult, assignment bubble.Assignment) BubbleReading {
	br := BubbleReading{
		Enabled:   true,
		Success:   true,
		Method:    string(r.Strategy),
		ROI:       [4]int{r.ROI.Min.X, r.ROI.Min.Y, r.ROI.Max.X, r.ROI.Max.Y},
		ROIMethod: r.ROIMethod,
		Questions: r.Questions,
		Choices:   r.Choices,
	}
	if r.Strategy == bubble.StrategyCircleGrid {
		count, radius := len(r.Circles), r.MedianRadius
		br.Assignment = string(assignment)
		br.DebugCircleCount = &count
		br.MedianRadius = &radius
	}
	return br
}

func rowScores(scores [][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(scores))
	for q, row := range scores {
		out[strconv.Itoa(q+1)] = row
	}
	return out
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.Verbose {
		log.Printf(format, args...)
	}
}
