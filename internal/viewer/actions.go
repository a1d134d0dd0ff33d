package viewer

import (
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/depth3d/internal/pipeline"
)

// Action is a viewer command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionRotateUp
	ActionRotateDown
	ActionRotateLeft
	ActionRotateRight
	ActionShiftUp
	ActionShiftDown
	ActionShiftLeft
	ActionShiftRight
	ActionZoomIn
	ActionZoomOut
	ActionResetZoom
	ActionResetView
	ActionToggleAnaglyph
	ActionToggleAxes
	ActionToggleLight
	ActionToggleQuality
	ActionEyeShiftUp
	ActionEyeShiftDown
	ActionDepthUp
	ActionDepthDown
	ActionToggleBlur
	ActionCapture
	ActionCaptureSequence
	ActionStereo
)

const (
	eyeShiftStep   = 0.5
	depthScaleStep = 0.1
	// defaultBlur is used by the blur toggle when the config sets none.
	defaultBlur = 2
)

var keymap = map[sdl.Scancode]Action{
	sdl.SCANCODE_ESCAPE:       ActionQuit,
	sdl.SCANCODE_UP:           ActionRotateUp,
	sdl.SCANCODE_DOWN:         ActionRotateDown,
	sdl.SCANCODE_LEFT:         ActionRotateLeft,
	sdl.SCANCODE_RIGHT:        ActionRotateRight,
	sdl.SCANCODE_W:            ActionShiftUp,
	sdl.SCANCODE_S:            ActionShiftDown,
	sdl.SCANCODE_A:            ActionShiftLeft,
	sdl.SCANCODE_D:            ActionShiftRight,
	sdl.SCANCODE_EQUALS:       ActionZoomIn,
	sdl.SCANCODE_KP_PLUS:      ActionZoomIn,
	sdl.SCANCODE_MINUS:        ActionZoomOut,
	sdl.SCANCODE_KP_MINUS:     ActionZoomOut,
	sdl.SCANCODE_0:            ActionResetZoom,
	sdl.SCANCODE_HOME:         ActionResetView,
	sdl.SCANCODE_N:            ActionToggleAnaglyph,
	sdl.SCANCODE_X:            ActionToggleAxes,
	sdl.SCANCODE_L:            ActionToggleLight,
	sdl.SCANCODE_Q:            ActionToggleQuality,
	sdl.SCANCODE_RIGHTBRACKET: ActionEyeShiftUp,
	sdl.SCANCODE_LEFTBRACKET:  ActionEyeShiftDown,
	sdl.SCANCODE_PAGEUP:       ActionDepthUp,
	sdl.SCANCODE_PAGEDOWN:     ActionDepthDown,
	sdl.SCANCODE_B:            ActionToggleBlur,
	sdl.SCANCODE_P:            ActionCapture,
	sdl.SCANCODE_C:            ActionCaptureSequence,
	sdl.SCANCODE_T:            ActionStereo,
}

// ActionFor returns the action bound to key.
func ActionFor(key sdl.Scancode) Action {
	return keymap[key]
}

// apply performs actions that only touch CPU state. Capture actions need the
// GL framebuffer and are handled by the frame loop.
func (v *Viewer) apply(a Action) {
	switch a {
	case ActionQuit:
		v.running = false
	case ActionRotateUp:
		v.view.AngleUp()
	case ActionRotateDown:
		v.view.AngleDown()
	case ActionRotateLeft:
		v.view.AngleLeft()
	case ActionRotateRight:
		v.view.AngleRight()
	case ActionShiftUp:
		v.view.Shift(0, 1)
	case ActionShiftDown:
		v.view.Shift(0, -1)
	case ActionShiftLeft:
		v.view.Shift(-1, 0)
	case ActionShiftRight:
		v.view.Shift(1, 0)
	case ActionZoomIn:
		v.view.Wheel(1)
	case ActionZoomOut:
		v.view.Wheel(-1)
	case ActionResetZoom:
		v.view.ResetZoom()
	case ActionResetView:
		v.view.Reset()
	case ActionToggleAnaglyph:
		v.opts.Anaglyph = !v.opts.Anaglyph
	case ActionToggleAxes:
		v.opts.Axes = !v.opts.Axes
	case ActionToggleLight:
		v.opts.Light = !v.opts.Light
	case ActionToggleQuality:
		v.opts.Quality = !v.opts.Quality
	case ActionEyeShiftUp:
		v.view.EyeShift += eyeShiftStep
	case ActionEyeShiftDown:
		v.view.EyeShift -= eyeShiftStep
	case ActionDepthUp:
		v.mesh.SetDepthScale(v.mesh.DepthScale() + depthScaleStep)
	case ActionDepthDown:
		v.mesh.SetDepthScale(v.mesh.DepthScale() - depthScaleStep)
	case ActionToggleBlur:
		v.toggleBlur()
	case ActionStereo:
		v.submitStereo()
	}
}

func (v *Viewer) toggleBlur() {
	if v.pair == nil {
		return
	}
	amount := 0
	if !v.blurred {
		amount = v.cfg.View.Blur
		if amount <= 0 {
			amount = defaultBlur
		}
	}
	if err := v.mesh.SetDepthmap(pipeline.MeshDepth(v.pair.Depth, amount)); err != nil {
		v.log.Warn("blur toggle failed", zap.Error(err))
		return
	}
	v.blurred = amount > 0
	v.log.Debug("depthmap blur", zap.Int("amount", amount))
}

func (v *Viewer) submitStereo() {
	if v.pair == nil {
		return
	}
	id, err := v.stereo.Submit(v.cfg.Stereo.Method, v.pair.Version, pipeline.AnaglyphJob(v.pair, v.cfg.Stereo))
	if err != nil {
		v.log.Warn("stereo job rejected", zap.Error(err))
		return
	}
	v.log.Info("stereo job submitted", zap.String("job", id), zap.Uint64("version", v.pair.Version))
}
