// Package config handles depth3d configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/depth3d/pkg/rgbd"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Stereo synthesis methods.
const (
	MethodProject3D = "project3d"
	MethodDisplace  = "displace"
)

// Mesh export formats.
const (
	FormatPLY = "ply"
	FormatOBJ = "obj"
)

// Config holds all settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	View    ViewConfig    `yaml:"view"`
	Stereo  StereoConfig  `yaml:"stereo"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds viewer window settings.
type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// ViewConfig holds the 3D view settings.
type ViewConfig struct {
	DepthScale   float64 `yaml:"depth_scale"`
	Zoom         float32 `yaml:"zoom"`
	EyeShift     float32 `yaml:"eye_shift"` // degrees per eye in anaglyph mode
	Anaglyph     bool    `yaml:"anaglyph"`
	Axes         bool    `yaml:"axes"`
	Light        bool    `yaml:"light"`
	Quality      bool    `yaml:"quality"` // multisampling and line smoothing
	Blur         int     `yaml:"blur"`
	Tint         string  `yaml:"tint"`
	Gamma        float64 `yaml:"gamma"`
	MaxDimension int     `yaml:"max_dimension"` // 0 keeps the source size
}

// StereoConfig holds the parameters of the synthesized views.
type StereoConfig struct {
	Method      string `yaml:"method"`
	D0          int    `yaml:"d0"`
	Angle       int    `yaml:"angle"`
	AngleY      int    `yaml:"angle_y"`
	Radius      int    `yaml:"radius"`
	Coefficient int    `yaml:"coefficient"`
	Reference   int    `yaml:"reference"`
	Gray        bool   `yaml:"gray"`
}

// ExportConfig holds mesh export settings.
type ExportConfig struct {
	Format     string `yaml:"format"`
	CaptureDir string `yaml:"capture_dir"` // viewer frame and anaglyph captures
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the stock values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 800,
			VSync:  true,
		},
		View: ViewConfig{
			DepthScale: 1.0,
			Zoom:       8,
			EyeShift:   -1.5,
			Axes:       true,
			Quality:    true,
			Tint:       rgbd.TintColor.String(),
			Gamma:      1.0,
		},
		Stereo: StereoConfig{
			Method:      MethodProject3D,
			D0:          128,
			Angle:       5,
			Radius:      1,
			Coefficient: 10,
			Reference:   128,
		},
		Export: ExportConfig{
			Format:     FormatPLY,
			CaptureDir: "captures",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports the first setting no component can work with.
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	case c.View.Zoom <= 0:
		return fmt.Errorf("%w: zoom must be positive", ErrInvalidConfig)
	case c.View.Gamma <= 0:
		return fmt.Errorf("%w: gamma must be positive", ErrInvalidConfig)
	case c.View.Blur < 0:
		return fmt.Errorf("%w: blur must not be negative", ErrInvalidConfig)
	case c.View.MaxDimension < 0:
		return fmt.Errorf("%w: max_dimension must not be negative", ErrInvalidConfig)
	case c.Stereo.Reference < 1 || c.Stereo.Reference > 254:
		return fmt.Errorf("%w: reference %d outside [1,254]", ErrInvalidConfig, c.Stereo.Reference)
	case c.Stereo.Radius < 0:
		return fmt.Errorf("%w: radius must not be negative", ErrInvalidConfig)
	}

	if _, err := rgbd.ParseTint(c.View.Tint); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Stereo.Method != MethodProject3D && c.Stereo.Method != MethodDisplace {
		return fmt.Errorf("%w: unknown stereo method %q", ErrInvalidConfig, c.Stereo.Method)
	}
	if c.Export.Format != FormatPLY && c.Export.Format != FormatOBJ {
		return fmt.Errorf("%w: unknown export format %q", ErrInvalidConfig, c.Export.Format)
	}
	return nil
}
