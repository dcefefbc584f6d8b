// Package gfx defines the narrow interfaces the draw pipeline consumes:
// a graphics context with resource factories and capability flags, render
// targets and textures, full-screen shader passes and the scene renderer.
// Backends (prism on webgpu, soft on CPU buffers) implement these.
package gfx

// Capabilities reports what the underlying hardware supports. Detected
// once when a context is created and never reevaluated.
type Capabilities struct {
	// DepthTexture is true if depth textures can be sampled by shaders
	// directly. Without it, depth is packed into the color channels of a
	// regular texture ("packed depth").
	DepthTexture bool

	// DrawBuffers is true if a fragment shader can write to multiple
	// color attachments in one pass.
	DrawBuffers bool

	// FloatBlend is true if blending into float color targets works.
	FloatBlend bool
}

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color [4]float32

// Viewport is a sub rectangle of a render target, in pixels.
type Viewport struct {
	X      int32
	Y      int32
	Width  int32
	Height int32
}

type TextureFormat int

const (
	FormatRGBA8 TextureFormat = iota
	FormatRGBA32F
	FormatRG32F
	FormatDepth32F
)

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

// BlendMode selects one of the fixed blend configurations a full-screen
// pass may run with.
type BlendMode int

const (
	// BlendNone overwrites the target.
	BlendNone BlendMode = iota

	// BlendAlpha is standard straight-alpha blending.
	BlendAlpha

	// BlendPremultiplied is ONE, ONE_MINUS_SRC_ALPHA. The weighted
	// transparency resolve composites with this mode.
	BlendPremultiplied
)

// PassState is the explicit GPU state record a full-screen pass runs
// with. Passing it through the pass spec keeps the pipeline's state
// dependencies auditable without a live graphics context.
type PassState struct {
	Blend      BlendMode
	DepthTest  bool
	DepthWrite bool
	Cull       bool
}

// Framebuf is a CPU-side float pixel plane. The soft backend stores all
// target contents in Framebufs; kernel functions read and write them.
type Framebuf struct {
	Width  int
	Height int

	// Pix holds Channels values per pixel, row major.
	Channels int
	Pix      []float32
}

func NewFramebuf(width, height, channels int) *Framebuf {
	return &Framebuf{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}
}

// At returns the channel values of pixel (x, y). The returned slice
// aliases the buffer.
func (f *Framebuf) At(x, y int) []float32 {
	i := (y*f.Width + x) * f.Channels
	return f.Pix[i : i+f.Channels]
}

// Fill sets every channel of every pixel to v.
func (f *Framebuf) Fill(v float32) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// KernelFunc is a CPU reference implementation of a full-screen shader
// pass. It must write every pixel of dst.
type KernelFunc func(dst *Framebuf, inputs map[string]*Framebuf, uniforms map[string]any)

// ShaderSpec describes a full-screen shader pass. Source is WGSL for GPU
// backends; Kernel is an optional CPU reference implementation of the
// same computation for the soft backend.
type ShaderSpec struct {
	Name   string
	Source string
	Kernel KernelFunc
	State  PassState
}
