package mark

import (
	"fmt"
	"strconv"
	"strings"
)

// Summary is the aggregated outcome of a sheet.
type Summary struct {
	Decisions  []Decision
	Answers    map[string]*string // Question number ("1"...) to choice letter, nil when unmarked
	Uncertain  []string           // Question numbers flagged uncertain, ascending
	Confidence float64
	Warnings   []string
}

// Aggregate decides every row and derives the answers, the uncertain list and
// the sheet confidence. Question numbers start at 1.
func Aggregate(rows [][]float64, p Params) Summary {
	s := Summary{
		Decisions: make([]Decision, len(rows)),
		Answers:   make(map[string]*string, len(rows)),
		Uncertain: []string{},
		Warnings:  []string{},
	}

	for i, row := range rows {
		d := Decide(row, p)
		s.Decisions[i] = d

		id := strconv.Itoa(i + 1)
		if d.Marked() {
			label := Label(d.Choice)
			s.Answers[id] = &label
		} else {
			s.Answers[id] = nil
		}
		if d.Uncertain {
			s.Uncertain = append(s.Uncertain, id)
		}
	}

	s.Confidence = Confidence(len(s.Uncertain), len(rows), p.UncertainWeight)
	if len(s.Uncertain) > 0 {
		s.Warnings = append(s.Warnings, uncertainWarning(s.Uncertain, p.MaxWarningIDs))
	}
	return s
}

// Confidence is 1 - (uncertain/questions)*weight, clamped to [0, 1].
func Confidence(uncertain, questions int, weight float64) float64 {
	if questions < 1 {
		questions = 1
	}
	c := 1 - float64(uncertain)/float64(questions)*weight
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func uncertainWarning(ids []string, limit int) string {
	listed := ids
	if limit > 0 && len(listed) > limit {
		listed = listed[:limit]
	}
	return fmt.Sprintf("%d question(s) uncertain or blank: %s", len(ids), strings.Join(listed, ", "))
}
