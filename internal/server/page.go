package server

import (
	"fmt"
	"math"
	"sync"
	"time"

	"omr-reader/internal/omr"
)

// Result statuses.
const (
	StatusScanned  = "scanned"
	StatusApproved = "approved"
)

// FileMeta describes one uploaded image.
type FileMeta struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Mimetype   string    `json:"mimetype"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Page is the reading of one uploaded sheet. Processing holds the full
// omr.Result, or the omr.ErrorResult when the sheet could not be read.
type Page struct {
	Page             int                `json:"page"`
	Answers          map[string]*string `json:"answers"`
	UncertainAnswers []string           `json:"uncertainAnswers"`
	Confidence       float64            `json:"confidence"`
	Warnings         []string           `json:"warnings"`
	Processing       interface{}        `json:"processing"`
	Meta             FileMeta           `json:"meta"`
	Status           string             `json:"status,omitempty"`
}

// BatchMeta describes a multi-page upload.
type BatchMeta struct {
	ReceivedAt time.Time  `json:"receivedAt"`
	Files      []FileMeta `json:"files"`
}

// Batch is the reading of a multi-page upload.
type Batch struct {
	PageCount  int       `json:"pageCount"`
	Pages      []Page    `json:"pages"`
	Confidence float64   `json:"confidence"` // Mean page confidence, two decimals
	Warnings   []string  `json:"warnings"`   // Page warnings prefixed "P<n>: "
	Meta       BatchMeta `json:"meta"`
	Status     string    `json:"status,omitempty"`
}

func newPage(res *omr.Result, meta FileMeta) Page {
	return Page{
		Page:             1,
		Answers:          res.Answers,
		UncertainAnswers: res.UncertainAnswers,
		Confidence:       res.Confidence,
		Warnings:         res.Warnings,
		Processing:       res,
		Meta:             meta,
	}
}

// failedPage reports an engine error as a page with zero confidence.
func failedPage(errRes omr.ErrorResult, meta FileMeta) Page {
	return Page{
		Page:             1,
		Answers:          map[string]*string{},
		UncertainAnswers: []string{},
		Warnings:         []string{errRes.Error},
		Processing:       errRes,
		Meta:             meta,
	}
}

func newBatch(pages []Page, receivedAt time.Time) Batch {
	b := Batch{
		PageCount:  len(pages),
		Pages:      pages,
		Confidence: meanConfidence(pages),
		Warnings:   []string{},
		Meta:       BatchMeta{ReceivedAt: receivedAt, Files: make([]FileMeta, len(pages))},
	}
	for i, p := range pages {
		b.Meta.Files[i] = p.Meta
		for _, w := range p.Warnings {
			b.Warnings = append(b.Warnings, fmt.Sprintf("P%d: %s", p.Page, w))
		}
	}
	return b
}

func meanConfidence(pages []Page) float64 {
	if len(pages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pages {
		sum += p.Confidence
	}
	return math.Round(sum/float64(len(pages))*100) / 100
}

// Store keeps the most recent scan or submission.
type Store struct {
	mu     sync.RWMutex
	latest interface{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Save replaces the latest result.
func (s *Store) Save(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = v
}

// Latest returns the latest result, if any.
func (s *Store) Latest() (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}
