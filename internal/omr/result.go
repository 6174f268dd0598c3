package omr

// Result is the full outcome of reading one sheet.
type Result struct {
	CornerDetection       CornerDetection       `json:"cornerDetection"`
	PerspectiveCorrection PerspectiveCorrection `json:"perspectiveCorrection"`
	Processing            Processing            `json:"processing"`
	Answers               map[string]*string    `json:"answers"`
	UncertainAnswers      []string              `json:"uncertainAnswers"`
	Confidence            float64               `json:"confidence"`
	Warnings              []string              `json:"warnings"`
	Debug                 DebugInfo             `json:"debug"`
}

// CornerDetection reports how the sheet outline was found.
type CornerDetection struct {
	Enabled bool         `json:"enabled"`
	Success bool         `json:"success"`
	Method  string       `json:"method"`
	Corners [][2]float64 `json:"corners"` // TL, TR, BR, BL
}

// PerspectiveCorrection reports the flattening step.
type PerspectiveCorrection struct {
	Enabled bool   `json:"enabled"`
	Success bool   `json:"success"`
	Method  string `json:"method"`
	Warped  bool   `json:"warped"` // False when the quad was too small to warp
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Processing groups the sheet-reading stages.
type Processing struct {
	BubbleReading BubbleReading `json:"bubbleReading"`
}

// BubbleReading reports which grid strategy produced the scores.
type BubbleReading struct {
	Enabled          bool   `json:"enabled"`
	Success          bool   `json:"success"`
	Method           string `json:"method"`
	ROI              [4]int `json:"roi"` // x1, y1, x2, y2
	ROIMethod        string `json:"roiMethod"`
	Questions        int    `json:"questions"`
	Choices          int    `json:"choices"`
	Assignment       string `json:"assignment,omitempty"`
	DebugCircleCount *int   `json:"debugCircleCount,omitempty"`
	MedianRadius     *int   `json:"medianRadius,omitempty"`
}

// DebugInfo carries the raw scores and the locations of debug images.
type DebugInfo struct {
	RowScores map[string][]float64 `json:"rowScores"`
	Artifacts []string             `json:"artifacts"`
}
