package config

import "flag"

// Flags are the command-line overrides shared by both binaries. Only flags
// given explicitly on the command line override file values.
type Flags struct {
	fs *flag.FlagSet

	config     string
	debug      bool
	logFile    string
	windowed   bool
	fullscreen bool
	width      int
	height     int

	depthScale float64
	tint       string
	gamma      float64
	blur       int
	maxDim     int
	anaglyph   bool

	method      string
	d0          int
	angle       int
	angleY      int
	radius      int
	coefficient int
	reference   int
	gray        bool

	format     string
	captureDir string
}

// RegisterFlags defines the config flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.config, "config", "", "Path to config file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFile, "log-file", "", "Write logs to a rotating file")
	fs.BoolVar(&f.windowed, "windowed", false, "Run in windowed mode")
	fs.BoolVar(&f.fullscreen, "fullscreen", false, "Run in fullscreen mode")
	fs.IntVar(&f.width, "width", 0, "Window width")
	fs.IntVar(&f.height, "height", 0, "Window height")

	fs.Float64Var(&f.depthScale, "depth-scale", 0, "Depth multiplier for the 3D mesh")
	fs.StringVar(&f.tint, "tint", "", "Image tint: color, gray, true, half, optimized, dubois")
	fs.Float64Var(&f.gamma, "gamma", 0, "Gamma applied to the image")
	fs.IntVar(&f.blur, "blur", 0, "Depthmap blur amount for the 3D view")
	fs.IntVar(&f.maxDim, "max-dim", 0, "Downscale pairs larger than this")
	fs.BoolVar(&f.anaglyph, "anaglyph", false, "Start the viewer in anaglyph mode")

	fs.StringVar(&f.method, "method", "", "Stereo method: project3d or displace")
	fs.IntVar(&f.d0, "d0", 0, "Zero-parallax depth for project3d")
	fs.IntVar(&f.angle, "angle", 0, "Camera angle in degrees for project3d")
	fs.IntVar(&f.angleY, "angle-y", 0, "Vertical camera angle in degrees for project3d")
	fs.IntVar(&f.radius, "radius", 0, "Splat radius for project3d")
	fs.IntVar(&f.coefficient, "coefficient", 0, "Displacement coefficient")
	fs.IntVar(&f.reference, "reference", 0, "Displacement reference depth (1-254)")
	fs.BoolVar(&f.gray, "gray", false, "Desaturate before building the anaglyph")

	fs.StringVar(&f.format, "format", "", "Mesh export format: ply or obj")
	fs.StringVar(&f.captureDir, "capture-dir", "", "Directory for captured frames")
	return f
}

// ConfigPath returns the explicit config path if provided via --config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.config
}

// apply copies every explicitly set flag onto cfg.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if f.debug {
				cfg.Logging.Level = "debug"
			}
		case "log-file":
			cfg.Logging.LogFile = f.logFile
		case "windowed":
			if f.windowed {
				cfg.Window.Fullscreen = false
			}
		case "fullscreen":
			cfg.Window.Fullscreen = f.fullscreen
		case "width":
			cfg.Window.Width = f.width
		case "height":
			cfg.Window.Height = f.height
		case "depth-scale":
			cfg.View.DepthScale = f.depthScale
		case "tint":
			cfg.View.Tint = f.tint
		case "gamma":
			cfg.View.Gamma = f.gamma
		case "blur":
			cfg.View.Blur = f.blur
		case "max-dim":
			cfg.View.MaxDimension = f.maxDim
		case "anaglyph":
			cfg.View.Anaglyph = f.anaglyph
		case "method":
			cfg.Stereo.Method = f.method
		case "d0":
			cfg.Stereo.D0 = f.d0
		case "angle":
			cfg.Stereo.Angle = f.angle
		case "angle-y":
			cfg.Stereo.AngleY = f.angleY
		case "radius":
			cfg.Stereo.Radius = f.radius
		case "coefficient":
			cfg.Stereo.Coefficient = f.coefficient
		case "reference":
			cfg.Stereo.Reference = f.reference
		case "gray":
			cfg.Stereo.Gray = f.gray
		case "format":
			cfg.Export.Format = f.format
		case "capture-dir":
			cfg.Export.CaptureDir = f.captureDir
		}
	})
}
