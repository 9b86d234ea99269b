package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/perspective.grid/internal/camera"
	"github.com/banshee-data/perspective.grid/internal/frames"
	"github.com/banshee-data/perspective.grid/internal/perspective"
)

// DefaultConfigPath is the path to the canonical vision defaults file.
const DefaultConfigPath = "config/vision.defaults.json"

// maxFileSize bounds what LoadVisionConfig will read.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// CameraConfig holds the calibration and grid tuning of one camera.
type CameraConfig struct {
	// Normalized to the image size.
	FocalLengths  *[2]float64 `json:"focal_lengths,omitempty"`
	OpticalCenter *[2]float64 `json:"cc_optical_center,omitempty"`
	// Roll, pitch, yaw in degrees.
	ExtrinsicRotations *[3]float64 `json:"extrinsic_rotations,omitempty"`

	// Perspective grid radii in pixels.
	FallbackRadius *float64 `json:"fallback_radius,omitempty"`
	MinimumRadius  *float64 `json:"minimum_radius,omitempty"`
}

// FieldConfig overrides the pitch dimensions in metres.
type FieldConfig struct {
	Length            *float64 `json:"length,omitempty"`
	Width             *float64 `json:"width,omitempty"`
	PenaltyAreaLength *float64 `json:"penalty_area_length,omitempty"`
	PenaltyAreaWidth  *float64 `json:"penalty_area_width,omitempty"`
	BallRadius        *float64 `json:"ball_radius,omitempty"`
}

// VisionConfig is the root configuration of the vision cycle. Every field
// is optional; the Get* methods supply defaults for anything omitted, so
// partial files are safe.
type VisionConfig struct {
	Top    *CameraConfig `json:"top,omitempty"`
	Bottom *CameraConfig `json:"bottom,omitempty"`
	Field  *FieldConfig  `json:"field,omitempty"`

	ImageWidth  *uint32 `json:"image_width,omitempty"`
	ImageHeight *uint32 `json:"image_height,omitempty"`

	// Static rotation corrections in degrees, applied on top of
	// calibration. Online estimates replace them when available.
	CorrectionInRobot        *[3]float64 `json:"correction_in_robot,omitempty"`
	CorrectionInCameraTop    *[3]float64 `json:"correction_in_camera_top,omitempty"`
	CorrectionInCameraBottom *[3]float64 `json:"correction_in_camera_bottom,omitempty"`

	CycleBudget *string `json:"cycle_budget,omitempty"` // duration string like "8ms"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyVisionConfig returns a config with all fields unset.
func EmptyVisionConfig() *VisionConfig {
	return &VisionConfig{}
}

// LoadVisionConfig loads a VisionConfig from a JSON file. The file must
// have a .json extension and be under 1MB.
func LoadVisionConfig(path string) (*VisionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseVisionConfig(data)
}

// ParseVisionConfig decodes and validates a JSON config document.
func ParseVisionConfig(data []byte) (*VisionConfig, error) {
	cfg := EmptyVisionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from
// the working directory. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *VisionConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadVisionConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *VisionConfig) Validate() error {
	for _, cam := range []struct {
		name string
		cfg  *CameraConfig
	}{{"top", c.Top}, {"bottom", c.Bottom}} {
		if cam.cfg == nil {
			continue
		}
		if err := cam.cfg.validate(); err != nil {
			return fmt.Errorf("%s: %w", cam.name, err)
		}
	}

	if c.Field != nil {
		for name, v := range map[string]*float64{
			"length":              c.Field.Length,
			"width":               c.Field.Width,
			"penalty_area_length": c.Field.PenaltyAreaLength,
			"penalty_area_width":  c.Field.PenaltyAreaWidth,
			"ball_radius":         c.Field.BallRadius,
		} {
			if v != nil && !positive(*v) {
				return fmt.Errorf("field.%s must be positive, got %f", name, *v)
			}
		}
	}

	if (c.ImageWidth == nil) != (c.ImageHeight == nil) {
		return fmt.Errorf("image_width and image_height must be set together")
	}
	if c.ImageWidth != nil && (*c.ImageWidth == 0 || *c.ImageHeight == 0) {
		return fmt.Errorf("image size must be non-zero, got %dx%d", *c.ImageWidth, *c.ImageHeight)
	}

	if c.CycleBudget != nil && *c.CycleBudget != "" {
		d, err := time.ParseDuration(*c.CycleBudget)
		if err != nil {
			return fmt.Errorf("invalid cycle_budget '%s': %w", *c.CycleBudget, err)
		}
		if d < 0 {
			return fmt.Errorf("cycle_budget must be non-negative, got %s", d)
		}
	}
	return nil
}

func (c *CameraConfig) validate() error {
	if c.FocalLengths != nil {
		for _, f := range c.FocalLengths {
			if !positive(f) {
				return fmt.Errorf("focal_lengths must be positive, got %v", *c.FocalLengths)
			}
		}
	}
	if c.OpticalCenter != nil {
		for _, v := range c.OpticalCenter {
			if v < 0 || v > 1 || math.IsNaN(v) {
				return fmt.Errorf("cc_optical_center must be between 0 and 1, got %v", *c.OpticalCenter)
			}
		}
	}
	if c.ExtrinsicRotations != nil {
		for _, v := range c.ExtrinsicRotations {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("extrinsic_rotations must be finite, got %v", *c.ExtrinsicRotations)
			}
		}
	}
	if c.FallbackRadius != nil && !positive(*c.FallbackRadius) {
		return fmt.Errorf("fallback_radius must be positive, got %f", *c.FallbackRadius)
	}
	if c.MinimumRadius != nil && !positive(*c.MinimumRadius) {
		return fmt.Errorf("minimum_radius must be positive, got %f", *c.MinimumRadius)
	}
	if c.GetMinimumRadius() > c.GetFallbackRadius() {
		return fmt.Errorf("minimum_radius %f exceeds fallback_radius %f", c.GetMinimumRadius(), c.GetFallbackRadius())
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// GetFocalLengths returns the normalized focal lengths or the default.
func (c *CameraConfig) GetFocalLengths() camera.Vector2 {
	if c == nil || c.FocalLengths == nil {
		return camera.Vector2{X: 0.95, Y: 1.27}
	}
	return camera.Vector2{X: c.FocalLengths[0], Y: c.FocalLengths[1]}
}

// GetOpticalCenter returns the normalized optical center or the default.
func (c *CameraConfig) GetOpticalCenter() camera.Vector2 {
	if c == nil || c.OpticalCenter == nil {
		return camera.Vector2{X: 0.5, Y: 0.5}
	}
	return camera.Vector2{X: c.OpticalCenter[0], Y: c.OpticalCenter[1]}
}

// GetExtrinsicRotations returns the extrinsic correction in degrees, zero
// by default.
func (c *CameraConfig) GetExtrinsicRotations() frames.Vector3[frames.Camera] {
	if c == nil || c.ExtrinsicRotations == nil {
		return frames.Vector3[frames.Camera]{}
	}
	r := c.ExtrinsicRotations
	return frames.V3[frames.Camera](r[0], r[1], r[2])
}

// GetFallbackRadius returns the fallback_radius value or the default.
func (c *CameraConfig) GetFallbackRadius() float64 {
	if c == nil || c.FallbackRadius == nil {
		return 42
	}
	return *c.FallbackRadius
}

// GetMinimumRadius returns the minimum_radius value or the default.
func (c *CameraConfig) GetMinimumRadius() float64 {
	if c == nil || c.MinimumRadius == nil {
		return 5
	}
	return *c.MinimumRadius
}

// Parameters converts the calibration into camera parameters.
func (c *CameraConfig) Parameters() camera.Parameters {
	return camera.Parameters{
		FocalLengths:       c.GetFocalLengths(),
		OpticalCenter:      c.GetOpticalCenter(),
		ExtrinsicRotations: c.GetExtrinsicRotations(),
	}
}

// Camera returns the per-camera config for p; nil when unset.
func (c *VisionConfig) Camera(p camera.Position) *CameraConfig {
	if p == camera.Top {
		return c.Top
	}
	return c.Bottom
}

// GetField returns the field dimensions with defaults filled in.
func (c *VisionConfig) GetField() camera.FieldDimensions {
	f := camera.DefaultFieldDimensions()
	if c.Field == nil {
		return f
	}
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&f.Length, c.Field.Length)
	set(&f.Width, c.Field.Width)
	set(&f.PenaltyAreaLength, c.Field.PenaltyAreaLength)
	set(&f.PenaltyAreaWidth, c.Field.PenaltyAreaWidth)
	set(&f.BallRadius, c.Field.BallRadius)
	return f
}

// GetImageSize returns the configured image size or 640x480.
func (c *VisionConfig) GetImageSize() camera.ImageSize {
	if c.ImageWidth == nil || c.ImageHeight == nil {
		return camera.DefaultImageSize
	}
	return camera.ImageSize{Width: *c.ImageWidth, Height: *c.ImageHeight}
}

// GetCycleBudget parses and returns the CycleBudget. Zero disables
// overrun reporting.
func (c *VisionConfig) GetCycleBudget() time.Duration {
	if c.CycleBudget == nil || *c.CycleBudget == "" {
		return 8 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.CycleBudget)
	if err != nil {
		return 8 * time.Millisecond // default on parse error
	}
	return d
}

// GetCorrections converts the static corrections into rotations.
func (c *VisionConfig) GetCorrections() camera.Corrections {
	return camera.Corrections{
		InRobot:        rotationFromDegrees[frames.Robot](c.CorrectionInRobot),
		InCameraTop:    rotationFromDegrees[frames.Camera](c.CorrectionInCameraTop),
		InCameraBottom: rotationFromDegrees[frames.Camera](c.CorrectionInCameraBottom),
	}
}

func rotationFromDegrees[F frames.Frame](deg *[3]float64) frames.Rotation3[F] {
	if deg == nil {
		return frames.Rotation3[F]{}
	}
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	return frames.NewRotation3[F](rad(deg[0]), rad(deg[1]), rad(deg[2]))
}

// GridParameters returns the perspective grid parameters of camera p.
func (c *VisionConfig) GridParameters(p camera.Position) perspective.Parameters {
	cam := c.Camera(p)
	return perspective.Parameters{
		ObjectRadius:   c.GetField().BallRadius,
		FallbackRadius: cam.GetFallbackRadius(),
		MinimumRadius:  cam.GetMinimumRadius(),
	}
}
