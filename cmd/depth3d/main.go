// depth3d is a batch utility for image+depthmap pairs: it reports on pairs,
// synthesizes stereo views and anaglyphs, and exports colored meshes.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/depth3d/internal/config"
	"github.com/Faultbox/depth3d/internal/engine/capture"
	"github.com/Faultbox/depth3d/internal/engine/heightfield"
	"github.com/Faultbox/depth3d/internal/logger"
	"github.com/Faultbox/depth3d/internal/pipeline"
	"github.com/Faultbox/depth3d/pkg/formats"
	"github.com/Faultbox/depth3d/pkg/rgbd"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "stereo":
		err = cmdStereo(args)
	case "export":
		err = cmdExport(args)
	case "convert":
		err = cmdConvert(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`depth3d - image + depthmap stereo and mesh utility

Usage:
  depth3d <command> [options]

Commands:
  info    <image> <depthmap>             Show pair and mesh information
  stereo  <image> <depthmap> <out.png>   Write a red-cyan anaglyph (or -view)
  export  <image> <depthmap> <out>       Export the colored mesh as PLY or OBJ
  convert <in> <out>                     Convert a mesh between PLY and OBJ

Pairs may also be given as a session base name with -session <base>, which
reads <base>-depthmap-image.png and <base>-depthmap-mask.png.

Examples:
  depth3d info photo.jpg photo-depth.png
  depth3d stereo -method displace -coefficient 12 photo.jpg depth.png out.png
  depth3d stereo -view -angle 85 photo.jpg depth.png right.png
  depth3d export -depth-scale 2 photo.jpg depth.png mesh.ply
  depth3d convert mesh.ply mesh.obj`)
}

// command holds what every subcommand parses.
type command struct {
	fs      *flag.FlagSet
	flags   *config.Flags
	session *string
	cfg     *config.Config
	log     *zap.Logger
}

func newCommand(name string) *command {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &command{
		fs:      fs,
		flags:   config.RegisterFlags(fs),
		session: fs.String("session", "", "Session base name instead of explicit image and depthmap paths"),
	}
}

// parse parses args, loads the config and initialises logging. It returns
// the positional arguments.
func (c *command) parse(args []string) ([]string, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	c.cfg = cfg
	c.log = logger.Named(c.fs.Name())
	return c.fs.Args(), nil
}

// loadPair reads the pair from -session or from the first two arguments and
// returns the remaining arguments.
func (c *command) loadPair(args []string) (*rgbd.Pair, []string, error) {
	imagePath, depthPath := "", ""
	if *c.session != "" {
		imagePath, depthPath = rgbd.SessionPaths(*c.session)
	} else {
		if len(args) < 2 {
			return nil, nil, fmt.Errorf("expected <image> <depthmap>")
		}
		imagePath, depthPath = args[0], args[1]
		args = args[2:]
	}

	pair, err := pipeline.Load(imagePath, depthPath, c.cfg.View)
	if err != nil {
		return nil, nil, err
	}
	c.log.Info("pair loaded",
		zap.String("image", imagePath),
		zap.String("depthmap", depthPath),
		zap.Int("width", pair.Width()),
		zap.Int("height", pair.Height()),
	)
	return pair, args, nil
}

func cmdInfo(args []string) error {
	c := newCommand("info")
	rest, err := c.parse(args)
	if err != nil {
		return err
	}
	pair, _, err := c.loadPair(rest)
	if err != nil {
		return err
	}

	mesh, err := pipeline.BuildMesh(c.log, pair, c.cfg.View)
	if err != nil {
		return err
	}
	printInfo(os.Stdout, pair, mesh)
	return nil
}

// printInfo reports the pair's depth statistics and the mesh built from it.
func printInfo(w io.Writer, pair *rgbd.Pair, mesh *heightfield.Mesh) {
	lo, hi, sum := uint8(255), uint8(0), 0
	for _, d := range pair.Depth.Pix {
		lo, hi = min(lo, d), max(hi, d)
		sum += int(d)
	}
	width, height := pair.Width(), pair.Height()
	b := mesh.Bounds()

	fmt.Fprintf(w, "Size:      %dx%d\n", width, height)
	fmt.Fprintf(w, "Depth:     min %d, max %d, mean %.1f\n", lo, hi, float64(sum)/float64(width*height))
	fmt.Fprintf(w, "Vertices:  %d\n", len(mesh.Vertices()))
	fmt.Fprintf(w, "Indices:   %d\n", len(mesh.Indices()))
	fmt.Fprintf(w, "Faces:     %d\n", max(0, len(mesh.Indices())-2))
	fmt.Fprintf(w, "Bounds:    x [%g, %g], y [%g, %g], z [%g, %g]\n",
		b.Min[0], b.Max[0], b.Min[1], b.Max[1], b.Min[2], b.Max[2])
}

func cmdStereo(args []string) error {
	c := newCommand("stereo")
	single := c.fs.Bool("view", false, "Write the synthesized second view instead of an anaglyph")
	rest, err := c.parse(args)
	if err != nil {
		return err
	}
	pair, rest, err := c.loadPair(rest)
	if err != nil {
		return err
	}
	if len(rest) < 1 {
		return fmt.Errorf("expected an output path")
	}

	s := c.cfg.Stereo
	var out *rgbd.Image
	if *single {
		out, err = pipeline.View(pair, s)
	} else {
		out, err = pipeline.Anaglyph(pair, s)
	}
	if err != nil {
		return err
	}

	if err := capture.Save(rest[0], out.ToRGBA()); err != nil {
		return err
	}
	c.log.Info("stereo written",
		zap.String("path", rest[0]),
		zap.String("method", s.Method),
		zap.Bool("view", *single),
	)
	fmt.Printf("Wrote %s (%dx%d)\n", rest[0], out.W, out.H)
	return nil
}

func cmdExport(args []string) error {
	c := newCommand("export")
	rest, err := c.parse(args)
	if err != nil {
		return err
	}
	pair, rest, err := c.loadPair(rest)
	if err != nil {
		return err
	}
	if len(rest) < 1 {
		return fmt.Errorf("expected an output path")
	}
	path := rest[0]

	format := c.cfg.Export.Format
	if ext := formatFromPath(path); ext != "" && !flagSet(c.fs, "format") {
		format = ext
	}

	mesh, err := pipeline.BuildMesh(c.log, pair, c.cfg.View)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := pipeline.Export(f, mesh, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	c.log.Info("mesh exported",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("vertices", len(mesh.Vertices())),
		zap.Int("indices", len(mesh.Indices())),
	)
	fmt.Printf("Wrote %s: %d vertices, %d faces\n", path, len(mesh.Vertices()), max(0, len(mesh.Indices())-2))
	return nil
}

func cmdConvert(args []string) error {
	c := newCommand("convert")
	rest, err := c.parse(args)
	if err != nil {
		return err
	}
	if len(rest) < 2 {
		return fmt.Errorf("expected <in> <out>")
	}

	data, err := convertMesh(rest[0], rest[1])
	if err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s (%d vertices, %d faces)\n", rest[0], rest[1], len(data.Vertices), len(data.Faces))
	return nil
}

// convertMesh reads the mesh at inPath and writes it to outPath, both in the
// format named by their extension. Nothing is created when either format is
// unknown or the input does not parse.
func convertMesh(inPath, outPath string) (*formats.MeshData, error) {
	var write func(io.Writer, formats.MeshData) error
	switch formatFromPath(outPath) {
	case config.FormatPLY:
		write = formats.WritePLY
	case config.FormatOBJ:
		write = formats.WriteOBJ
	default:
		return nil, fmt.Errorf("%w: %s", pipeline.ErrUnknownFormat, outPath)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var data *formats.MeshData
	switch formatFromPath(inPath) {
	case config.FormatPLY:
		data, err = formats.ParsePLY(in)
	case config.FormatOBJ:
		data, err = formats.ParseOBJ(in)
	default:
		return nil, fmt.Errorf("%w: %s", pipeline.ErrUnknownFormat, inPath)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", inPath, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	err = write(out, *data)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// formatFromPath maps a file extension to an export format, or "".
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ply":
		return config.FormatPLY
	case ".obj":
		return config.FormatOBJ
	}
	return ""
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
