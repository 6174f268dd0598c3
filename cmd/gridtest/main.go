// Command gridtest runs corner detection and bubble location on one sheet
// photo and prints the per-row scores.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"omr-reader/internal/bubble"
	"omr-reader/internal/debug"
	"omr-reader/internal/document"
	omrimage "omr-reader/internal/image"
	"omr-reader/internal/mark"

	"gocv.io/x/gocv"
)

func main() {
	imagePath := flag.String("image", "", "Path to sheet photo (JPEG, PNG, TIFF, BMP or WebP)")
	questions := flag.Int("questions", 10, "Number of questions")
	choices := flag.Int("choices", 5, "Choices per question")
	assignment := flag.String("assignment", "greedy", "Cell assignment: greedy or optimal")
	debugDir := flag.String("debug-dir", "", "Write debug images to this directory")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: gridtest -image <path> [-questions 10] [-choices 5] [-assignment greedy|optimal] [-debug-dir dir]")
		os.Exit(1)
	}

	img, err := omrimage.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	bounds := img.Bounds()
	fmt.Printf("Loaded image: %dx%d pixels\n", bounds.Dx(), bounds.Dy())

	src := omrimage.ToMat(img)
	defer src.Close()

	cornerParams := document.DefaultParams()
	corners := document.DetectCorners(src, cornerParams)
	fmt.Printf("Corners (%s): %v\n", corners.Method, corners.Corners.Pairs())

	warp, err := document.FourPointTransform(src, corners.Corners, cornerParams)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Perspective correction failed: %v\n", err)
		os.Exit(1)
	}
	defer warp.Image.Close()
	fmt.Printf("Warped: %v (%dx%d)\n", warp.Warped, warp.Width, warp.Height)

	params := bubble.DefaultParams().
		WithLayout(*questions, *choices).
		WithAssignment(bubble.Assignment(*assignment))
	fmt.Printf("\nDetection parameters:\n")
	fmt.Printf("  Sheet: %dx%d, ROI %v\n", params.SheetWidth, params.SheetHeight, params.ROI)
	fmt.Printf("  Hough: dp=%.1f minDist=%.0f param1=%.0f param2=%.0f radius %d-%d\n",
		params.HoughDP, params.HoughMinDist, params.HoughParam1, params.HoughParam2, params.MinRadius, params.MaxRadius)
	fmt.Printf("  Radius filter: %.2f-%.2f x median\n", params.RadiusLow, params.RadiusHigh)
	fmt.Printf("  Min detections: %d\n", params.MinDetections())
	fmt.Printf("  Assignment: %s\n", params.Assignment)

	located, err := bubble.NewLocator(params).Locate(warp.Image)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Locating bubbles failed: %v\n", err)
		os.Exit(1)
	}
	defer located.Close()

	fmt.Printf("\nStrategy: %s (%s)\n", located.Strategy, located.ROIMethod)
	fmt.Printf("Circles: %d detected, %d kept, median radius %d\n",
		located.CircleCount, len(located.Circles), located.MedianRadius)

	decisionParams := mark.DefaultParams()
	fmt.Printf("\n%-4s", "Q")
	for c := 0; c < params.Choices; c++ {
		fmt.Printf(" %6s", mark.Label(c))
	}
	fmt.Printf("  %s\n", "Answer")
	fmt.Println(strings.Repeat("-", 4+7*params.Choices+10))

	for q, row := range located.Scores {
		fmt.Printf("%-4d", q+1)
		for _, s := range row {
			fmt.Printf(" %6.3f", s)
		}
		d := mark.Decide(row, decisionParams)
		answer := "-"
		if d.Marked() {
			answer = mark.Label(d.Choice)
		}
		if d.Uncertain {
			answer += "?"
		}
		fmt.Printf("  %s\n", answer)
	}

	summary := mark.Aggregate(located.Scores, decisionParams)
	fmt.Printf("\nConfidence: %.2f\n", summary.Confidence)
	for _, w := range summary.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	if *debugDir != "" {
		writeDebug(*debugDir, located)
	}
}

func writeDebug(dir string, located *bubble.LocateResult) {
	sink := debug.DirSink{Dir: dir}
	name, overlay := debug.Overlay(located)
	defer overlay.Close()

	for _, a := range []struct {
		name string
		mat  gocv.Mat
	}{
		{debug.ArtifactSheet, located.Sheet},
		{name, overlay},
		{debug.ArtifactThreshold, located.Threshold},
	} {
		path, err := sink.Write(context.Background(), a.name, a.mat)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", a.name, err)
			continue
		}
		fmt.Printf("Wrote %s\n", path)
	}
}
