// Package mark turns per-bubble fill scores into answers.
//
// Each question row is judged on its own: the two faintest bubbles set the
// blank level for that row, the darkest bubble must clear it by EmptyPad, and
// it must beat the runner-up by a factor of RatioMin to count as confident.
package mark

import "sort"

// Params holds the decision thresholds.
type Params struct {
	EmptyPad        float64 // Margin the darkest bubble needs above the row's blank level
	RatioMin        float64 // Minimum darkest/runner-up ratio for a confident mark
	Epsilon         float64 // Added to the runner-up score before dividing
	UncertainWeight float64 // Confidence lost when every question is uncertain
	MaxWarningIDs   int     // Question ids listed in the uncertainty warning
}

// DefaultParams returns the thresholds used for pencil marks on white paper.
func DefaultParams() Params {
	return Params{
		EmptyPad:        0.08,
		RatioMin:        1.35,
		Epsilon:         1e-9,
		UncertainWeight: 0.5,
		MaxWarningIDs:   10,
	}
}

// Decision is the outcome for one question.
type Decision struct {
	Choice    int  // Index of the marked choice, -1 when unmarked
	Uncertain bool // The mark is too close to the runner-up to trust
}

// Marked reports whether a choice was selected.
func (d Decision) Marked() bool { return d.Choice >= 0 }

// Unmarked is the decision for a blank row.
var Unmarked = Decision{Choice: -1}

// Decide picks the marked choice of one question row, if any.
func Decide(scores []float64, p Params) Decision {
	if len(scores) == 0 {
		return Unmarked
	}

	// Among equal scores the last one is the top choice.
	top := 0
	for i, s := range scores {
		if s >= scores[top] {
			top = i
		}
	}
	second := 0.0
	for i, s := range scores {
		if i != top && s > second {
			second = s
		}
	}

	if scores[top] < blankBaseline(scores)+p.EmptyPad {
		return Unmarked
	}

	ratio := scores[top] / (second + p.Epsilon)
	return Decision{Choice: top, Uncertain: ratio < p.RatioMin}
}

// blankBaseline is the mean of the two lowest scores, or the only score.
func blankBaseline(scores []float64) float64 {
	s := append([]float64(nil), scores...)
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	return (s[0] + s[1]) / 2
}

// Label returns the letter of a choice index: A, B, C, ...
func Label(choice int) string {
	if choice < 0 || choice >= 26 {
		return ""
	}
	return string(rune('A' + choice))
}
