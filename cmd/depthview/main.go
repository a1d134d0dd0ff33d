// Package main is the entry point for the interactive depth viewer.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/depth3d/internal/config"
	"github.com/Faultbox/depth3d/internal/logger"
	"github.com/Faultbox/depth3d/internal/pipeline"
	"github.com/Faultbox/depth3d/internal/viewer"
	"github.com/Faultbox/depth3d/pkg/rgbd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup runs before exit.
func run(args []string) int {
	fs := flag.NewFlagSet("depthview", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	session := fs.String("session", "", "Session base name instead of explicit image and depthmap paths")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: depthview [options] <image> <depthmap>\n       depthview [options] -session <base>")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	imagePath, depthPath, err := pairPaths(*session, fs.Args())
	if err != nil {
		fs.Usage()
		return 1
	}

	logger.Info("=== depth viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	pair, err := pipeline.Load(imagePath, depthPath, cfg.View)
	if err != nil {
		logger.Error("failed to load pair", zap.Error(err))
		return 1
	}

	v, err := viewer.New(cfg)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		return 1
	}
	defer v.Close()

	if err := v.Load(pair); err != nil {
		logger.Error("failed to show pair", zap.Error(err))
		return 1
	}

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		return 1
	}

	logger.Info("viewer closed normally")
	return 0
}

// pairPaths resolves the image and depthmap paths from -session or the
// positional arguments.
func pairPaths(session string, args []string) (imagePath, depthPath string, err error) {
	if session != "" {
		imagePath, depthPath = rgbd.SessionPaths(session)
		return imagePath, depthPath, nil
	}
	if len(args) != 2 {
		return "", "", fmt.Errorf("expected <image> <depthmap>, got %d arguments", len(args))
	}
	return args[0], args[1], nil
}
