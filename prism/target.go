package prism

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/rdirisio/molstar/gfx"
)

// Target is an offscreen render target, or the wrapper around the
// surface's current frame texture. Resizing happens in place so stage
// references stay valid.
type Target struct {
	backend *Backend
	label   string

	width  int
	height int

	colors []*Texture
	depth  gfx.Texture

	// surface targets have no own color textures, they render into the
	// view acquired from the surface each frame
	surface     bool
	surfaceView *wgpu.TextureView
}

var _ gfx.RenderTarget = (*Target)(nil)

func newTarget(b *Backend, opts gfx.TargetOptions) (*Target, error) {
	n := opts.Colors
	if n == 0 {
		n = 1
	}

	t := &Target{
		backend: b,
		label:   opts.Label,
		width:   opts.Width,
		height:  opts.Height,
	}

	for i := 0; i < n; i++ {
		c, err := newTexture(b.device, gfx.TextureOptions{
			Width:  opts.Width,
			Height: opts.Height,
			Format: opts.Format,
			Filter: opts.Filter,
			Label:  fmt.Sprintf("%s.color%d", opts.Label, i),
		})
		if err != nil {
			return nil, err
		}
		t.colors = append(t.colors, c)
	}

	if opts.Depth {
		d, err := newTexture(b.device, gfx.TextureOptions{
			Width:  opts.Width,
			Height: opts.Height,
			Format: gfx.FormatDepth32F,
			Label:  opts.Label + ".depth",
		})
		if err != nil {
			return nil, err
		}
		t.depth = d
	}

	return t, nil
}

func (t *Target) Bind() {
	t.backend.bound = t
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
	if t.surface {
		return nil
	}
	return t.colors[0]
}

func (t *Target) ColorAttachment(i int) gfx.Texture { return t.colors[i] }

func (t *Target) Depth() gfx.Texture { return t.depth }

func (t *Target) AttachDepth(tex gfx.Texture) { t.depth = tex }

// colorViews returns the views render passes attach to, in attachment
// order.
func (t *Target) colorViews() []*wgpu.TextureView {
	if t.surface {
		return []*wgpu.TextureView{t.surfaceView}
	}

	views := make([]*wgpu.TextureView, len(t.colors))
	for i, c := range t.colors {
		views[i] = c.view
	}
	return views
}

func (t *Target) colorFormats() []wgpu.TextureFormat {
	if t.surface {
		return []wgpu.TextureFormat{t.backend.device.SurfaceFormat()}
	}

	formats := make([]wgpu.TextureFormat, len(t.colors))
	for i, c := range t.colors {
		formats[i] = wgpuFormat(c.format)
	}
	return formats
}

func (t *Target) depthView() *wgpu.TextureView {
	if t.depth == nil {
		return nil
	}
	if d, ok := t.depth.(*Texture); ok {
		return d.view
	}
	return nil
}

// Clear clears the color attachments to the given values and optionally
// the depth attachment to the far plane, as one dedicated render pass.
func (t *Target) Clear(depth bool, colors ...gfx.Color) {
	enc, err := t.backend.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "Clear." + t.label})
	if err != nil {
		panic(fmt.Errorf("create clear encoder: %w", err))
	}
	defer enc.Release()

	views := t.colorViews()
	attachments := make([]wgpu.RenderPassColorAttachment, len(views))
	for i, view := range views {
		var v gfx.Color
		switch {
		case len(colors) == 0:
		case i < len(colors):
			v = colors[i]
		default:
			v = colors[len(colors)-1]
		}

		attachments[i] = wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(v[0]),
				G: float64(v[1]),
				B: float64(v[2]),
				A: float64(v[3]),
			},
		}
	}

	desc := &wgpu.RenderPassDescriptor{
		Label:            "Clear." + t.label,
		ColorAttachments: attachments,
	}

	if depth && t.depthView() != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            t.depthView(),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}

	if err := enc.BeginRenderPass(desc).End(); err != nil {
		panic(fmt.Errorf("clear %s: %w", t.label, err))
	}

	buf, err := enc.Finish(nil)
	if err != nil {
		panic(fmt.Errorf("finish clear encoder: %w", err))
	}
	defer buf.Release()

	t.backend.device.Submit(buf)
}
