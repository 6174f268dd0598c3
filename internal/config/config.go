// Package config loads reader settings from defaults, an optional file and
// OMR_ environment variables.
package config

import (
	"fmt"
	"image"
	"strings"
	"time"

	"omr-reader/internal/bubble"
	"omr-reader/internal/document"
	"omr-reader/internal/mark"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Corners  document.Params
	Grid     bubble.Params // Includes the sheet layout
	Decision mark.Params
	Debug    DebugConfig
	Server   ServerConfig
	Log      LogConfig
}

// DebugConfig selects where debug images are written. With neither Dir nor
// S3.Bucket set no images are produced.
type DebugConfig struct {
	Dir string   `mapstructure:"dir"`
	S3  S3Config `mapstructure:"s3"`
}

// S3Config holds the bucket debug images are uploaded to.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             string        `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	MaxUploadMB      int64         `mapstructure:"max_upload_mb"`
	MaxBatchFiles    int           `mapstructure:"max_batch_files"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	Environment      string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Debug reports whether stage diagnostics should be logged.
func (l LogConfig) Debug() bool {
	return strings.EqualFold(l.Level, "debug")
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults alone always validate.
		panic(err)
	}
	return cfg
}

// Load reads configuration from defaults, then the file at path when path is
// not empty, then environment variables with the OMR_ prefix.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OMR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}

	cfg.Corners = document.Params{
		BlurKernel:     v.GetInt("corners.blur_kernel"),
		CannyLow:       float32(v.GetFloat64("corners.canny_low")),
		CannyHigh:      float32(v.GetFloat64("corners.canny_high")),
		MaxCandidates:  v.GetInt("corners.max_candidates"),
		ApproxEpsilon:  v.GetFloat64("corners.approx_epsilon"),
		MinQuadArea:    v.GetFloat64("corners.min_quad_area"),
		RequireConvex:  v.GetBool("corners.require_convex"),
		ThresholdBlock: v.GetInt("corners.threshold_block"),
		ThresholdC:     float32(v.GetFloat64("corners.threshold_c")),
		MorphKernel:    v.GetInt("corners.morph_kernel"),
		MinROIArea:     v.GetFloat64("corners.min_roi_area"),
		MinROISide:     v.GetInt("corners.min_roi_side"),
		MinWarpSize:    v.GetInt("corners.min_warp_size"),
	}

	cfg.Grid = bubble.Params{
		Questions:   v.GetInt("sheet.questions"),
		Choices:     v.GetInt("sheet.choices"),
		SheetWidth:  v.GetInt("sheet.width"),
		SheetHeight: v.GetInt("sheet.height"),
		ROI: image.Rect(
			v.GetInt("sheet.roi.left"), v.GetInt("sheet.roi.top"),
			v.GetInt("sheet.roi.right"), v.GetInt("sheet.roi.bottom"),
		),

		BlurKernel:     v.GetInt("grid.blur_kernel"),
		ThresholdBlock: v.GetInt("grid.threshold_block"),
		ThresholdC:     float32(v.GetFloat64("grid.threshold_c")),
		OpenKernel:     v.GetInt("grid.open_kernel"),

		MedianKernel: v.GetInt("grid.median_kernel"),
		HoughDP:      v.GetFloat64("grid.hough_dp"),
		HoughMinDist: v.GetFloat64("grid.hough_min_dist"),
		HoughParam1:  v.GetFloat64("grid.hough_param1"),
		HoughParam2:  v.GetFloat64("grid.hough_param2"),
		MinRadius:    v.GetInt("grid.min_radius"),
		MaxRadius:    v.GetInt("grid.max_radius"),

		MinDetectionRatio: v.GetFloat64("grid.min_detection_ratio"),
		RadiusLow:         v.GetFloat64("grid.radius_low"),
		RadiusHigh:        v.GetFloat64("grid.radius_high"),

		KMeansIterations: v.GetInt("grid.kmeans_iterations"),
		KMeansTolerance:  v.GetFloat64("grid.kmeans_tolerance"),
		QuantileLow:      v.GetFloat64("grid.quantile_low"),
		QuantileHigh:     v.GetFloat64("grid.quantile_high"),
		Assignment:       bubble.Assignment(v.GetString("grid.assignment")),

		InnerRatio:   v.GetFloat64("grid.inner_ratio"),
		MinPatchHalf: v.GetInt("grid.min_patch_half"),
		MaskRatio:    v.GetFloat64("grid.mask_ratio"),
	}

	cfg.Decision = mark.Params{
		EmptyPad:        v.GetFloat64("decision.empty_pad"),
		RatioMin:        v.GetFloat64("decision.ratio_min"),
		Epsilon:         v.GetFloat64("decision.epsilon"),
		UncertainWeight: v.GetFloat64("decision.uncertain_weight"),
		MaxWarningIDs:   v.GetInt("decision.max_warning_ids"),
	}

	cfg.Debug = DebugConfig{
		Dir: v.GetString("debug.dir"),
		S3: S3Config{
			Region:    v.GetString("debug.s3.region"),
			Bucket:    v.GetString("debug.s3.bucket"),
			Endpoint:  v.GetString("debug.s3.endpoint"),
			AccessKey: v.GetString("debug.s3.access_key"),
			SecretKey: v.GetString("debug.s3.secret_key"),
			Prefix:    v.GetString("debug.s3.prefix"),
		},
	}

	cfg.Server = ServerConfig{
		Port:             v.GetString("server.port"),
		ReadTimeout:      v.GetDuration("server.read_timeout"),
		WriteTimeout:     v.GetDuration("server.write_timeout"),
		MaxUploadMB:      v.GetInt64("server.max_upload_mb"),
		MaxBatchFiles:    v.GetInt("server.max_batch_files"),
		BatchConcurrency: v.GetInt("server.batch_concurrency"),
		Environment:      v.GetString("server.environment"),
	}

	cfg.Log = LogConfig{
		Level: v.GetString("log.level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults seeds every key from the stage defaults so that environment
// variables resolve for all of them.
func setDefaults(v *viper.Viper) {
	c := document.DefaultParams()
	v.SetDefault("corners.blur_kernel", c.BlurKernel)
	v.SetDefault("corners.canny_low", c.CannyLow)
	v.SetDefault("corners.canny_high", c.CannyHigh)
	v.SetDefault("corners.max_candidates", c.MaxCandidates)
	v.SetDefault("corners.approx_epsilon", c.ApproxEpsilon)
	v.SetDefault("corners.min_quad_area", c.MinQuadArea)
	v.SetDefault("corners.require_convex", c.RequireConvex)
	v.SetDefault("corners.threshold_block", c.ThresholdBlock)
	v.SetDefault("corners.threshold_c", c.ThresholdC)
	v.SetDefault("corners.morph_kernel", c.MorphKernel)
	v.SetDefault("corners.min_roi_area", c.MinROIArea)
	v.SetDefault("corners.min_roi_side", c.MinROISide)
	v.SetDefault("corners.min_warp_size", c.MinWarpSize)

	g := bubble.DefaultParams()
	v.SetDefault("sheet.questions", g.Questions)
	v.SetDefault("sheet.choices", g.Choices)
	v.SetDefault("sheet.width", g.SheetWidth)
	v.SetDefault("sheet.height", g.SheetHeight)
	v.SetDefault("sheet.roi.left", g.ROI.Min.X)
	v.SetDefault("sheet.roi.top", g.ROI.Min.Y)
	v.SetDefault("sheet.roi.right", g.ROI.Max.X)
	v.SetDefault("sheet.roi.bottom", g.ROI.Max.Y)

	v.SetDefault("grid.blur_kernel", g.BlurKernel)
	v.SetDefault("grid.threshold_block", g.ThresholdBlock)
	v.SetDefault("grid.threshold_c", g.ThresholdC)
	v.SetDefault("grid.open_kernel", g.OpenKernel)
	v.SetDefault("grid.median_kernel", g.MedianKernel)
	v.SetDefault("grid.hough_dp", g.HoughDP)
	v.SetDefault("grid.hough_min_dist", g.HoughMinDist)
	v.SetDefault("grid.hough_param1", g.HoughParam1)
	v.SetDefault("grid.hough_param2", g.HoughParam2)
	v.SetDefault("grid.min_radius", g.MinRadius)
	v.SetDefault("grid.max_radius", g.MaxRadius)
	v.SetDefault("grid.min_detection_ratio", g.MinDetectionRatio)
	v.SetDefault("grid.radius_low", g.RadiusLow)
	v.SetDefault("grid.radius_high", g.RadiusHigh)
	v.SetDefault("grid.kmeans_iterations", g.KMeansIterations)
	v.SetDefault("grid.kmeans_tolerance", g.KMeansTolerance)
	v.SetDefault("grid.quantile_low", g.QuantileLow)
	v.SetDefault("grid.quantile_high", g.QuantileHigh)
	v.SetDefault("grid.assignment", string(g.Assignment))
	v.SetDefault("grid.inner_ratio", g.InnerRatio)
	v.SetDefault("grid.min_patch_half", g.MinPatchHalf)
	v.SetDefault("grid.mask_ratio", g.MaskRatio)

	d := mark.DefaultParams()
	v.SetDefault("decision.empty_pad", d.EmptyPad)
	v.SetDefault("decision.ratio_min", d.RatioMin)
	v.SetDefault("decision.epsilon", d.Epsilon)
	v.SetDefault("decision.uncertain_weight", d.UncertainWeight)
	v.SetDefault("decision.max_warning_ids", d.MaxWarningIDs)

	v.SetDefault("debug.dir", "")
	v.SetDefault("debug.s3.region", "us-east-1")
	v.SetDefault("debug.s3.bucket", "")
	v.SetDefault("debug.s3.endpoint", "")
	v.SetDefault("debug.s3.access_key", "")
	v.SetDefault("debug.s3.secret_key", "")
	v.SetDefault("debug.s3.prefix", "omr-debug")

	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.max_batch_files", 20)
	v.SetDefault("server.batch_concurrency", 4)
	v.SetDefault("server.environment", "development")

	v.SetDefault("log.level", "info")
}

// Validate rejects settings no sheet can be read with.
func (c *Config) Validate() error {
	g := c.Grid
	if g.Questions < 1 {
		return fmt.Errorf("sheet.questions must be positive, got %d", g.Questions)
	}
	if g.Choices < 2 || g.Choices > 26 {
		return fmt.Errorf("sheet.choices must be between 2 and 26, got %d", g.Choices)
	}
	if g.SheetWidth < 1 || g.SheetHeight < 1 {
		return fmt.Errorf("sheet size must be positive, got %dx%d", g.SheetWidth, g.SheetHeight)
	}
	if g.ROI.Intersect(image.Rect(0, 0, g.SheetWidth, g.SheetHeight)).Empty() {
		return fmt.Errorf("sheet.roi %v lies outside the %dx%d sheet", g.ROI, g.SheetWidth, g.SheetHeight)
	}
	if g.ThresholdBlock%2 == 0 || c.Corners.ThresholdBlock%2 == 0 {
		return fmt.Errorf("threshold blocks must be odd")
	}
	switch g.Assignment {
	case bubble.AssignGreedy, bubble.AssignOptimal:
	default:
		return fmt.Errorf("grid.assignment must be %q or %q, got %q", bubble.AssignGreedy, bubble.AssignOptimal, g.Assignment)
	}
	if c.Server.BatchConcurrency < 1 {
		return fmt.Errorf("server.batch_concurrency must be positive, got %d", c.Server.BatchConcurrency)
	}
	return nil
}
