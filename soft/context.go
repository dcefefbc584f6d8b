// Package soft is a CPU implementation of the gfx interfaces. Targets
// are float pixel planes, full-screen passes run their kernel functions
// directly, and every state-changing call is appended to an ordered
// event log. It exists to make the draw pipeline testable without a GPU.
package soft

import (
	"log/slog"

	"github.com/rdirisio/molstar/gfx"
)

// Event is one recorded backend call.
type Event struct {
	// Op is "bind", "clear", "pass", "flush" or a caller supplied verb.
	Op string

	// Name is the target label or pass name.
	Name string
}

// Context implements gfx.Context on CPU buffers. Not safe for
// concurrent use.
type Context struct {
	caps gfx.Capabilities
	draw *Target

	bound  *Target
	events []Event
}

var _ gfx.Context = (*Context)(nil)

// NewContext creates a soft context with a drawing buffer of the given
// size and the given simulated capabilities.
func NewContext(width, height int, caps gfx.Capabilities) *Context {
	ctx := &Context{caps: caps}
	ctx.draw = newTarget(ctx, gfx.TargetOptions{
		Width:  width,
		Height: height,
		Format: gfx.FormatRGBA8,
		Label:  "drawing-buffer",
	})
	ctx.draw.isDrawingBuffer = true
	return ctx
}

func (c *Context) Caps() gfx.Capabilities { return c.caps }

func (c *Context) DrawingBuffer() gfx.RenderTarget { return c.draw }

// DrawingBufferPixels exposes the presentation surface contents.
func (c *Context) DrawingBufferPixels() *gfx.Framebuf {
	return c.draw.colors[0].buf
}

func (c *Context) CreateRenderTarget(opts gfx.TargetOptions) (gfx.RenderTarget, error) {
	slog.Debug("Create soft render target", slog.String("label", opts.Label))
	return newTarget(c, opts), nil
}

func (c *Context) CreateTexture(opts gfx.TextureOptions) (gfx.Texture, error) {
	t := &Texture{format: opts.Format, label: opts.Label}
	t.Define(opts.Width, opts.Height)
	return t, nil
}

func (c *Context) CreatePass(spec gfx.ShaderSpec) (gfx.Pass, error) {
	return &Pass{
		ctx:      c,
		spec:     spec,
		textures: map[string]gfx.Texture{},
		uniforms: map[string]any{},
	}, nil
}

func (c *Context) Flush() {
	c.Record("flush", "")
}

// Bound returns the currently bound target, nil if none was bound yet.
func (c *Context) Bound() *Target { return c.bound }

// Record appends an event to the log. Fake renderers use this to
// interleave their own calls with the backend's.
func (c *Context) Record(op, name string) {
	c.events = append(c.events, Event{Op: op, Name: name})
}

// Events returns the log in call order.
func (c *Context) Events() []Event { return c.events }

// ResetEvents clears the log, keeping all resources.
func (c *Context) ResetEvents() { c.events = nil }
