package soft

import "github.com/rdirisio/molstar/gfx"

func channelsOf(f gfx.TextureFormat) int {
	switch f {
	case gfx.FormatRG32F:
		return 2
	case gfx.FormatDepth32F:
		return 1
	default:
		return 4
	}
}

// Texture is a CPU texture: one float plane plus identity. Define swaps
// the backing buffer, references to the Texture stay valid.
type Texture struct {
	format gfx.TextureFormat
	label  string
	buf    *gfx.Framebuf
}

var _ gfx.Texture = (*Texture)(nil)

func (t *Texture) Define(width, height int) {
	t.buf = gfx.NewFramebuf(width, height, channelsOf(t.format))
	if t.format == gfx.FormatDepth32F {
		// depth clears to the far plane
		t.buf.Fill(1)
	}
}

func (t *Texture) Size() (width, height int) {
	return t.buf.Width, t.buf.Height
}

// Buf exposes the backing pixels for kernels and assertions.
func (t *Texture) Buf() *gfx.Framebuf { return t.buf }

// Target is a CPU render target: color attachments, an optional owned
// depth attachment and whatever depth texture is currently attached.
type Target struct {
	ctx   *Context
	label string

	width  int
	height int

	colors []*Texture
	depth  gfx.Texture

	isDrawingBuffer bool
}

var _ gfx.RenderTarget = (*Target)(nil)

func newTarget(ctx *Context, opts gfx.TargetOptions) *Target {
	n := opts.Colors
	if n == 0 {
		n = 1
	}

	t := &Target{
		ctx:    ctx,
		label:  opts.Label,
		width:  opts.Width,
		height: opts.Height,
	}

	for i := 0; i < n; i++ {
		c := &Texture{format: opts.Format, label: opts.Label}
		c.Define(opts.Width, opts.Height)
		t.colors = append(t.colors, c)
	}

	if opts.Depth {
		d := &Texture{format: gfx.FormatDepth32F, label: opts.Label + "-depth"}
		d.Define(opts.Width, opts.Height)
		t.depth = d
	}

	return t
}

func (t *Target) Bind() {
	t.ctx.bound = t
	t.ctx.Record("bind", t.label)
}

func (t *Target) SetSize(width, height int) {
	if width == t.width && height == t.height {
		return
	}

	t.width = width
	t.height = height

	for _, c := range t.colors {
		c.Define(width, height)
	}
	if t.depth != nil {
		t.depth.Define(width, height)
	}
}

func (t *Target) Size() (width, height int) {
	return t.width, t.height
}

func (t *Target) Color() gfx.Texture {
	if t.isDrawingBuffer {
		return nil
	}
	return t.colors[0]
}

func (t *Target) ColorAttachment(i int) gfx.Texture { return t.colors[i] }

func (t *Target) Depth() gfx.Texture { return t.depth }

func (t *Target) AttachDepth(tex gfx.Texture) { t.depth = tex }

func (t *Target) Clear(depth bool, colors ...gfx.Color) {
	t.ctx.Record("clear", t.label)

	for i, c := range t.colors {
		var v gfx.Color
		switch {
		case len(colors) == 0:
		case i < len(colors):
			v = colors[i]
		default:
			v = colors[len(colors)-1]
		}

		buf := c.buf
		for p := 0; p < buf.Width*buf.Height; p++ {
			for ch := 0; ch < buf.Channels; ch++ {
				buf.Pix[p*buf.Channels+ch] = v[ch]
			}
		}
	}

	if depth && t.depth != nil {
		if d, ok := t.depth.(*Texture); ok {
			d.buf.Fill(1)
		}
	}
}

// ColorBuf is a test convenience: the backing pixels of attachment i.
func (t *Target) ColorBuf(i int) *gfx.Framebuf { return t.colors[i].buf }
