// Package server exposes the sheet reader over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"omr-reader/internal/config"
	"omr-reader/internal/omr"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Scanner reads one encoded sheet image.
type Scanner interface {
	ProcessBytes(ctx context.Context, data []byte) (*omr.Result, error)
}

// Handler serves the scan, latest and submit endpoints.
type Handler struct {
	scanner     Scanner
	store       *Store
	maxUpload   int64
	maxFiles    int
	concurrency int
	now         func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(scanner Scanner, store *Store, cfg config.ServerConfig) *Handler {
	h := &Handler{
		scanner:     scanner,
		store:       store,
		maxUpload:   cfg.MaxUploadMB << 20,
		maxFiles:    cfg.MaxBatchFiles,
		concurrency: cfg.BatchConcurrency,
		now:         time.Now,
	}
	if h.concurrency < 1 {
		h.concurrency = 1
	}
	return h
}

// Health handles GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Scan handles POST /api/v1/omr/scan
func (h *Handler) Scan(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "image missing")
		return
	}
	if h.tooLarge(header) {
		respondError(c, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	page, err := h.scanFile(c.Request.Context(), header, h.now())
	if err != nil {
		log.Printf("server.Scan: %v", err)
		respondError(c, http.StatusInternalServerError, "scan failed")
		return
	}
	page.Status = StatusScanned
	h.store.Save(page)
	setReading(c, 1, page.Confidence)
	c.JSON(http.StatusOK, page)
}

// ScanBatch handles POST /api/v1/omr/scan-batch. Pages are read concurrently
// and returned in upload order.
func (h *Handler) ScanBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		respondError(c, http.StatusBadRequest, "images missing")
		return
	}
	files := form.File["images"]
	if h.maxFiles > 0 && len(files) > h.maxFiles {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("at most %d images per batch", h.maxFiles))
		return
	}
	for _, f := range files {
		if h.tooLarge(f) {
			respondError(c, http.StatusRequestEntityTooLarge, "image too large: "+f.Filename)
			return
		}
	}

	receivedAt := h.now()
	pages := make([]Page, len(files))
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(h.concurrency)
	for i, f := range files {
		g.Go(func() error {
			page, err := h.scanFile(ctx, f, receivedAt)
			if err != nil {
				return err
			}
			page.Page = i + 1
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("server.ScanBatch: %v", err)
		respondError(c, http.StatusInternalServerError, "scan-batch failed")
		return
	}

	batch := newBatch(pages, receivedAt)
	batch.Status = StatusScanned
	h.store.Save(batch)
	setReading(c, len(pages), batch.Confidence)
	c.JSON(http.StatusOK, batch)
}

// Latest handles GET /api/v1/omr/latest
func (h *Handler) Latest(c *gin.Context) {
	latest, ok := h.store.Latest()
	if !ok {
		respondError(c, http.StatusNotFound, "no result yet")
		return
	}
	c.JSON(http.StatusOK, latest)
}

// Submit handles POST /api/v1/omr/submit. The reviewed result replaces the
// latest one and is marked approved.
func (h *Handler) Submit(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		respondError(c, http.StatusBadRequest, "invalid body")
		return
	}
	body["status"] = StatusApproved
	body["approvedAt"] = h.now().UTC().Format(time.RFC3339Nano)
	h.store.Save(body)

	c.JSON(http.StatusOK, gin.H{"ok": true, "saved": true, "lastResult": body})
}

// scanFile reads one upload. Engine failures become a failed page; only
// failures to read the upload itself are returned.
func (h *Handler) scanFile(ctx context.Context, header *multipart.FileHeader, receivedAt time.Time) (Page, error) {
	meta := fileMeta(header, receivedAt)

	f, err := header.Open()
	if err != nil {
		return Page{}, fmt.Errorf("opening %s: %w", header.Filename, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return Page{}, fmt.Errorf("reading %s: %w", header.Filename, err)
	}

	res, err := h.scanner.ProcessBytes(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		log.Printf("server: reading %s: %v", meta.Filename, err)
		return failedPage(omr.NewErrorResult(err, ""), meta), nil
	}
	return newPage(res, meta), nil
}

func (h *Handler) tooLarge(header *multipart.FileHeader) bool {
	return h.maxUpload > 0 && header.Size > h.maxUpload
}

func fileMeta(header *multipart.FileHeader, receivedAt time.Time) FileMeta {
	meta := FileMeta{
		Filename:   header.Filename,
		Size:       header.Size,
		Mimetype:   header.Header.Get("Content-Type"),
		ReceivedAt: receivedAt,
	}
	if meta.Filename == "" {
		meta.Filename = "capture.jpg"
	}
	if meta.Mimetype == "" {
		meta.Mimetype = "image/jpeg"
	}
	return meta
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
