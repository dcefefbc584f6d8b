package gfx

// TextureOptions configures a standalone texture created through
// Context.CreateTexture.
type TextureOptions struct {
	Width  int
	Height int
	Format TextureFormat
	Filter Filter
	Label  string
}

// TargetOptions configures an offscreen render target.
type TargetOptions struct {
	Width  int
	Height int

	// Colors is the number of color attachments, default 1.
	Colors int

	// Depth attaches an owned depth texture.
	Depth bool

	Format TextureFormat
	Filter Filter
	Label  string
}

// Texture is a GPU image resource that can be read by shaders or
// attached to a render target. A texture object keeps its identity over
// Define calls; only the backing store is reallocated.
type Texture interface {
	// Define allocates or resizes the backing store in place.
	Define(width, height int)

	Size() (width, height int)
}

// RenderTarget is an offscreen color(+depth) surface, or the drawing
// buffer itself. Targets are resized in place so references held by
// dependent stages stay valid.
type RenderTarget interface {
	// Bind makes this target the destination of subsequent renderer and
	// pass output.
	Bind()

	// SetSize resizes all attachments in place. No-op if unchanged.
	SetSize(width, height int)

	Size() (width, height int)

	// Color returns the first color attachment, nil for the drawing
	// buffer.
	Color() Texture

	// ColorAttachment returns the i-th color attachment.
	ColorAttachment(i int) Texture

	// Depth returns the currently attached depth texture, or nil.
	Depth() Texture

	// AttachDepth attaches t as the depth attachment, replacing any
	// previous one. Nil detaches.
	AttachDepth(t Texture)

	// Clear clears the color attachments to the given values (the last
	// value repeats when there are more attachments than values, and
	// transparent black is used when none are given) and optionally the
	// depth attachment to the far plane.
	Clear(depth bool, colors ...Color)
}

// Pass is a full-screen shader pass. Render draws a screen quad into the
// currently bound target using the state recorded in the pass spec.
type Pass interface {
	SetTexture(name string, t Texture)
	SetUniform(name string, value any)

	// SetViewport restricts subsequent Render calls to a sub rectangle
	// of the bound target. A zero viewport means the full target.
	SetViewport(v Viewport)

	Render()
}

// Context is the graphics context the pipeline runs on.
type Context interface {
	Caps() Capabilities

	// DrawingBuffer is the presentation surface.
	DrawingBuffer() RenderTarget

	CreateRenderTarget(opts TargetOptions) (RenderTarget, error)
	CreateTexture(opts TextureOptions) (Texture, error)
	CreatePass(spec ShaderSpec) (Pass, error)

	// Flush guarantees submission (not completion) of all issued
	// commands before returning.
	Flush()
}
