// Package viewer implements the interactive heightfield viewer: the frame
// loop, input handling and background stereo synthesis.
package viewer

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/depth3d/internal/config"
	"github.com/Faultbox/depth3d/internal/engine/camera"
	"github.com/Faultbox/depth3d/internal/engine/capture"
	"github.com/Faultbox/depth3d/internal/engine/heightfield"
	"github.com/Faultbox/depth3d/internal/engine/input"
	"github.com/Faultbox/depth3d/internal/engine/scene"
	"github.com/Faultbox/depth3d/internal/engine/window"
	"github.com/Faultbox/depth3d/internal/logger"
	"github.com/Faultbox/depth3d/internal/pipeline"
	"github.com/Faultbox/depth3d/internal/worker"
	"github.com/Faultbox/depth3d/pkg/rgbd"
)

const title = "depth3d"

// Viewer is the interactive viewer instance.
type Viewer struct {
	cfg *config.Config
	log *zap.Logger

	window   *window.Window
	renderer *scene.HeightfieldRenderer
	input    *input.Input

	view    *camera.View
	opts    scene.Options
	mesh    *heightfield.Mesh
	pair    *rgbd.Pair
	blurred bool

	frames    *capture.Capture
	anaglyphs *capture.Capture
	stereo    *worker.Runner[*rgbd.Image]
	results   chan worker.Result[*rgbd.Image]

	running bool
	width   int
	height  int
}

// newState builds everything that does not need a GL context.
func newState(cfg *config.Config, log *zap.Logger) *Viewer {
	if log == nil {
		log = zap.NewNop()
	}
	v := &Viewer{
		cfg:       cfg,
		log:       log,
		view:      camera.NewView(float64(cfg.View.Zoom), float64(cfg.View.EyeShift)),
		mesh:      heightfield.NewMesh(log.Named("mesh")),
		frames:    capture.New(cfg.Export.CaptureDir, "frame"),
		anaglyphs: capture.New(cfg.Export.CaptureDir, "anaglyph"),
		results:   make(chan worker.Result[*rgbd.Image], 4),
		width:     cfg.Window.Width,
		height:    cfg.Window.Height,
	}
	v.opts = scene.DefaultOptions()
	v.opts.Anaglyph = cfg.View.Anaglyph
	v.opts.Axes = cfg.View.Axes
	v.opts.Light = cfg.View.Light
	v.opts.Quality = cfg.View.Quality
	v.view.Resize(v.width, v.height)

	v.mesh.OnTopologyChanged(func(indexCount int) {
		v.log.Debug("mesh topology changed", zap.Int("indices", indexCount))
	})
	v.stereo = worker.NewRunner(log.Named("stereo"), v.deliver)
	return v
}

// New creates the window, the GL renderer and the viewer state.
func New(cfg *config.Config) (*Viewer, error) {
	v := newState(cfg, logger.Named("viewer"))

	samples := 0
	if cfg.View.Quality {
		samples = 4
	}
	var err error
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Samples:    samples,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context created by the window.
	v.renderer, err = scene.NewHeightfieldRenderer(logger.Named("renderer"), v.opts)
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.input = input.New()
	v.resize(v.window.DrawableSize())

	v.log.Info("viewer initialized")
	return v, nil
}

// Load replaces the displayed pair. Results of stereo jobs computed for the
// previous pair are discarded.
func (v *Viewer) Load(pair *rgbd.Pair) error {
	if v.pair != nil && pair.Version <= v.pair.Version {
		pair.Version = v.pair.Version + 1
	}
	if err := v.mesh.Load(pair, v.cfg.View.DepthScale); err != nil {
		return err
	}
	v.pair = pair
	v.blurred = false
	if v.cfg.View.Blur > 0 {
		if err := v.mesh.SetDepthmap(pipeline.MeshDepth(pair.Depth, v.cfg.View.Blur)); err != nil {
			return err
		}
		v.blurred = true
	}
	v.stereo.SetVersion(pair.Version)
	v.updateTitle()
	return nil
}

// loadDropped loads a session whose image file was dropped on the window.
func (v *Viewer) loadDropped(path string) {
	base, ok := strings.CutSuffix(path, rgbd.SessionImageSuffix)
	if !ok {
		base, ok = strings.CutSuffix(path, rgbd.SessionDepthSuffix)
	}
	if !ok {
		v.log.Warn("dropped file is not part of a saved session", zap.String("path", path))
		return
	}
	imagePath, depthPath := rgbd.SessionPaths(base)
	pair, err := pipeline.Load(imagePath, depthPath, v.cfg.View)
	if err != nil {
		v.log.Warn("failed to load dropped session", zap.String("base", base), zap.Error(err))
		return
	}
	if err := v.Load(pair); err != nil {
		v.log.Warn("failed to show dropped session", zap.Error(err))
		return
	}
	v.log.Info("session loaded", zap.String("base", filepath.Base(base)))
}

// deliver runs on the job goroutine.
func (v *Viewer) deliver(r worker.Result[*rgbd.Image]) {
	select {
	case v.results <- r:
	default:
		v.log.Warn("stereo result dropped, queue full", zap.String("job", r.JobID))
	}
}

// drainResults saves finished anaglyphs. Results that went stale while
// queued are skipped.
func (v *Viewer) drainResults() {
	for {
		select {
		case r := <-v.results:
			if v.pair == nil || r.Version != v.pair.Version {
				v.log.Debug("stale stereo result skipped", zap.String("job", r.JobID))
				continue
			}
			if r.Err != nil {
				v.log.Warn("stereo job failed", zap.String("job", r.JobID), zap.Error(r.Err))
				continue
			}
			path, err := v.anaglyphs.CaptureNext(r.Value.ToRGBA())
			if err != nil {
				v.log.Warn("failed to save anaglyph", zap.Error(err))
				continue
			}
			v.log.Info("anaglyph saved", zap.String("path", path), zap.String("job", r.JobID))
		default:
			return
		}
	}
}

// handle processes one input event.
// Capture actions are returned to the caller since they must run after the
// frame is drawn.
func (v *Viewer) handle(e input.Event, buttons input.Buttons) Action {
	switch e.Type {
	case input.EventQuit:
		v.running = false
	case input.EventWindowResize:
		if v.window != nil {
			v.resize(v.window.DrawableSize())
		} else {
			v.resize(e.Width, e.Height)
		}
	case input.EventKeyDown:
		a := ActionFor(e.Key)
		if a == ActionCapture || a == ActionCaptureSequence {
			return a
		}
		v.apply(a)
	case input.EventMouseMove:
		v.view.Drag(e.RelX, e.RelY, buttons.Left, buttons.Right)
	case input.EventWheel:
		v.view.Wheel(e.Wheel)
	case input.EventDrop:
		v.loadDropped(e.Path)
	}
	return ActionNone
}

func (v *Viewer) resize(width, height int) {
	v.width, v.height = width, height
	v.view.Resize(width, height)
	if v.renderer != nil {
		v.renderer.Resize(width, height)
	}
}

func (v *Viewer) updateTitle() {
	if v.window == nil || v.pair == nil {
		return
	}
	mode := "3D"
	if v.opts.Anaglyph {
		mode = "anaglyph"
	}
	v.window.SetTitle(fmt.Sprintf("%s - %dx%d - %s", title, v.pair.Width(), v.pair.Height(), mode))
}

// Run starts the frame loop. Mesh updates are resolved before each draw,
// never during it.
func (v *Viewer) Run() error {
	v.running = true

	frameCount := 0
	fpsTimer := time.Now()
	anaglyph := v.opts.Anaglyph

	v.log.Info("starting frame loop")

	for v.running {
		if v.input.Update() {
			break
		}

		var pending []Action
		buttons := v.input.Buttons()
		for _, event := range v.input.Events() {
			if a := v.handle(event, buttons); a != ActionNone {
				pending = append(pending, a)
			}
		}
		v.drainResults()

		if anaglyph != v.opts.Anaglyph {
			anaglyph = v.opts.Anaglyph
			v.updateTitle()
		}

		v.renderer.Options = v.opts
		if _, err := v.renderer.Sync(v.mesh); err != nil {
			// The update stays pending and is retried next frame.
			v.log.Debug("mesh sync incomplete", zap.Error(err))
		}
		v.renderer.Draw(v.view)

		for _, a := range pending {
			v.captureFrame(a)
		}

		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frameCount))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

func (v *Viewer) captureFrame(a Action) {
	pixels := v.renderer.ReadPixels(v.width, v.height)

	var path string
	var err error
	if a == ActionCaptureSequence {
		var frame *image.RGBA
		if frame, err = capture.FrameFromPixels(pixels, v.width, v.height); err == nil {
			path, err = v.frames.CaptureNext(frame)
		}
	} else {
		path, err = v.frames.CaptureFromPixels(pixels, v.width, v.height)
	}
	if err != nil {
		v.log.Warn("capture failed", zap.Error(err))
		return
	}
	v.log.Info("frame captured", zap.String("path", path))
}

// Close cleans up viewer resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	v.stereo.Close()
	if v.renderer != nil {
		v.renderer.Destroy()
	}
	if v.window != nil {
		v.window.Close()
	}
}
