package gfx

import (
	"github.com/rdirisio/molstar/glm"
)

// Camera is the view a single pipeline run renders from.
type Camera interface {
	Viewport() Viewport
	View() glm.Mat4f
	Projection() glm.Mat4f
	Near() float32
	Far() float32
	Orthographic() bool
}

// CameraOptions configures a mono camera.
type CameraOptions struct {
	Viewport Viewport
	View     glm.Mat4f
	FovY     glm.Rad
	Near     float32
	Far      float32

	// Orthographic switches from the perspective projection to an
	// orthographic one spanning Scale units vertically.
	Orthographic bool
	Scale        float32
}

type camera struct {
	viewport   Viewport
	view       glm.Mat4f
	projection glm.Mat4f
	near, far  float32
	ortho      bool
}

func NewCamera(opts CameraOptions) Camera {
	if opts.Far <= opts.Near {
		panic("camera far plane must be behind the near plane")
	}

	aspect := float32(opts.Viewport.Width) / float32(opts.Viewport.Height)

	var projection glm.Mat4f
	if opts.Orthographic {
		h := opts.Scale / 2
		w := h * aspect
		projection = glm.Orthographic(-w, w, -h, h, opts.Near, opts.Far)
	} else {
		projection = glm.Perspective(opts.FovY, aspect, opts.Near, opts.Far)
	}

	return &camera{
		viewport:   opts.Viewport,
		view:       opts.View,
		projection: projection,
		near:       opts.Near,
		far:        opts.Far,
		ortho:      opts.Orthographic,
	}
}

func (c *camera) Viewport() Viewport    { return c.viewport }
func (c *camera) View() glm.Mat4f       { return c.view }
func (c *camera) Projection() glm.Mat4f { return c.projection }
func (c *camera) Near() float32         { return c.near }
func (c *camera) Far() float32          { return c.far }
func (c *camera) Orthographic() bool    { return c.ortho }

// StereoCamera renders a frame twice, once per eye, into the same shared
// targets. Presentation of the two views is external.
type StereoCamera struct {
	LeftEye  Camera
	RightEye Camera
}

func (s *StereoCamera) Left() Camera  { return s.LeftEye }
func (s *StereoCamera) Right() Camera { return s.RightEye }

// The stereo camera satisfies Camera by delegating to the left eye so it
// can be passed wherever a mono camera is expected.
func (s *StereoCamera) Viewport() Viewport    { return s.LeftEye.Viewport() }
func (s *StereoCamera) View() glm.Mat4f       { return s.LeftEye.View() }
func (s *StereoCamera) Projection() glm.Mat4f { return s.LeftEye.Projection() }
func (s *StereoCamera) Near() float32         { return s.LeftEye.Near() }
func (s *StereoCamera) Far() float32          { return s.LeftEye.Far() }
func (s *StereoCamera) Orthographic() bool    { return s.LeftEye.Orthographic() }
