package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"omr-reader/internal/bubble"
	"omr-reader/internal/document"
	"omr-reader/internal/mark"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsMatchStages(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, document.DefaultParams(), cfg.Corners)
	assert.Equal(t, bubble.DefaultParams(), cfg.Grid)
	assert.Equal(t, mark.DefaultParams(), cfg.Decision)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 20, cfg.Server.MaxBatchFiles)
	assert.Equal(t, 4, cfg.Server.BatchConcurrency)
	assert.Empty(t, cfg.Debug.Dir)
	assert.Empty(t, cfg.Debug.S3.Bucket)
	assert.False(t, cfg.Log.Debug())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OMR_SHEET_QUESTIONS", "25")
	t.Setenv("OMR_SHEET_CHOICES", "4")
	t.Setenv("OMR_DECISION_RATIO_MIN", "1.5")
	t.Setenv("OMR_GRID_ASSIGNMENT", "optimal")
	t.Setenv("OMR_DEBUG_S3_BUCKET", "omr-artifacts")
	t.Setenv("OMR_LOG_LEVEL", "DEBUG")
	t.Setenv("OMR_CORNERS_REQUIRE_CONVEX", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Grid.Questions)
	assert.Equal(t, 4, cfg.Grid.Choices)
	assert.Equal(t, 1.5, cfg.Decision.RatioMin)
	assert.Equal(t, bubble.AssignOptimal, cfg.Grid.Assignment)
	assert.Equal(t, "omr-artifacts", cfg.Debug.S3.Bucket)
	assert.True(t, cfg.Log.Debug())
	assert.True(t, cfg.Corners.RequireConvex)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omr.yaml")
	content := `
sheet:
  questions: 20
  choices: 4
  roi:
    left: 10
    top: 20
    right: 800
    bottom: 1100
decision:
  empty_pad: 0.1
debug:
  dir: /tmp/omr-debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Grid.Questions)
	assert.Equal(t, 4, cfg.Grid.Choices)
	assert.Equal(t, image.Rect(10, 20, 800, 1100), cfg.Grid.ROI)
	assert.Equal(t, 0.1, cfg.Decision.EmptyPad)
	assert.Equal(t, 1.35, cfg.Decision.RatioMin)
	assert.Equal(t, "/tmp/omr-debug", cfg.Debug.Dir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no questions", func(c *Config) { c.Grid.Questions = 0 }},
		{"one choice", func(c *Config) { c.Grid.Choices = 1 }},
		{"too many choices", func(c *Config) { c.Grid.Choices = 27 }},
		{"roi outside sheet", func(c *Config) { c.Grid.ROI = image.Rect(1000, 1300, 1100, 1400) }},
		{"even threshold block", func(c *Config) { c.Grid.ThresholdBlock = 24 }},
		{"unknown assignment", func(c *Config) { c.Grid.Assignment = "random" }},
		{"no batch workers", func(c *Config) { c.Server.BatchConcurrency = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
