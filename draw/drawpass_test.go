package draw

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdirisio/molstar/gfx"
	"github.com/rdirisio/molstar/soft"
)

var allCaps = gfx.Capabilities{
	DepthTexture: true,
	DrawBuffers:  true,
	FloatBlend:   true,
}

// fakeRenderer records every call into the shared soft event log and
// writes synthetic pixel content so the full-screen passes have real
// data to chew on.
type fakeRenderer struct {
	ctx      *soft.Context
	viewport gfx.Viewport

	opaqueColor    gfx.Color
	primitiveDepth float32
	volumeDepth    float32
}

func newFakeRenderer(ctx *soft.Context) *fakeRenderer {
	return &fakeRenderer{
		ctx:            ctx,
		opaqueColor:    gfx.Color{0.25, 0.5, 0.75, 1},
		primitiveDepth: 1,
		volumeDepth:    1,
	}
}

func (r *fakeRenderer) record(name string) { r.ctx.Record("render", name) }

// rect is the pixel range scene draws cover: the current viewport,
// clamped, or the whole buffer when no viewport is set.
func (r *fakeRenderer) rect(buf *gfx.Framebuf) (x0, y0, x1, y1 int) {
	v := r.viewport
	if v.Width <= 0 || v.Height <= 0 {
		return 0, 0, buf.Width, buf.Height
	}
	x0, y0 = int(v.X), int(v.Y)
	x1, y1 = x0+int(v.Width), y0+int(v.Height)
	if x1 > buf.Width {
		x1 = buf.Width
	}
	if y1 > buf.Height {
		y1 = buf.Height
	}
	return x0, y0, x1, y1
}

func (r *fakeRenderer) fillColor(c gfx.Color) {
	bound := r.ctx.Bound()
	if bound == nil {
		return
	}
	buf := bound.ColorBuf(0)
	x0, y0, x1, y1 := r.rect(buf)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			px := buf.At(x, y)
			for ch := 0; ch < len(px) && ch < 4; ch++ {
				px[ch] = c[ch]
			}
		}
	}
}

func (r *fakeRenderer) fillDepth(d float32) {
	bound := r.ctx.Bound()
	if bound == nil || bound.Depth() == nil {
		return
	}
	if tex, ok := bound.Depth().(*soft.Texture); ok {
		buf := tex.Buf()
		x0, y0, x1, y1 := r.rect(buf)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				buf.At(x, y)[0] = d
			}
		}
	}
}

// Clear wipes the whole attachment regardless of viewport, like a
// load-op clear does.
func (r *fakeRenderer) Clear(depth bool) {
	r.record("clear")
	bound := r.ctx.Bound()
	if bound == nil {
		return
	}
	bound.ColorBuf(0).Fill(0)
	if depth && bound.Depth() != nil {
		if tex, ok := bound.Depth().(*soft.Texture); ok {
			tex.Buf().Fill(1)
		}
	}
}

func (r *fakeRenderer) ClearDepth() { r.record("clear-depth") }

func (r *fakeRenderer) SetViewport(v gfx.Viewport) {
	r.viewport = v
	r.record("viewport")
}
func (r *fakeRenderer) SetBackgroundColor(c gfx.Color)         {}
func (r *fakeRenderer) SetTransparentBackground(tr bool)       {}
func (r *fakeRenderer) SetDrawingBufferSize(width, height int) {}
func (r *fakeRenderer) Update(cam gfx.Camera)                  {}

func (r *fakeRenderer) RenderBlendedOpaque(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.record("opaque")
	r.fillColor(r.opaqueColor)
	r.fillDepth(r.primitiveDepth)
}

func (r *fakeRenderer) RenderBlendedTransparent(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.record("transparent")
}

func (r *fakeRenderer) RenderBlendedVolume(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.record("volume")
}

func (r *fakeRenderer) RenderWboitOpaque(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.record("wboit-opaque")
	r.fillColor(r.opaqueColor)
	r.fillDepth(r.primitiveDepth)
}

func (r *fakeRenderer) RenderWboitTransparent(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.record("wboit-transparent")
}

// RenderDepth writes packed depth into the bound color target: the
// primitive value when no depth input is given, the volume value when
// the primitive depth is handed in for testing.
func (r *fakeRenderer) RenderDepth(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.record("depth")

	d := r.primitiveDepth
	if depth != nil {
		d = r.volumeDepth
	}

	bound := r.ctx.Bound()
	if bound == nil {
		return
	}
	buf := bound.ColorBuf(0)
	enc := PackUnitToRGBA(d)
	x0, y0, x1, y1 := r.rect(buf)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			copy(buf.At(x, y), enc[:])
		}
	}
}

func testCamera() gfx.Camera {
	return gfx.NewCamera(gfx.CameraOptions{
		Viewport: gfx.Viewport{Width: 8, Height: 8},
		FovY:     1,
		Near:     1,
		Far:      100,
	})
}

func newTestPipeline(t *testing.T, caps gfx.Capabilities, opts Options) (*Pipeline, *soft.Context, *fakeRenderer) {
	t.Helper()

	ctx := soft.NewContext(8, 8, caps)
	rend := newFakeRenderer(ctx)

	p, err := New(ctx, rend, 8, 8, opts)
	require.NoError(t, err)

	ctx.ResetEvents()
	return p, ctx, rend
}

// requireOrder asserts that the "op:name" steps appear in the event log
// in the given order, other events in between allowed.
func requireOrder(t *testing.T, events []soft.Event, steps ...string) {
	t.Helper()

	i := 0
	for _, step := range steps {
		found := false
		for ; i < len(events); i++ {
			if events[i].Op+":"+events[i].Name == step {
				found = true
				i++
				break
			}
		}
		if !found {
			var log strings.Builder
			for _, e := range events {
				log.WriteString(e.Op + ":" + e.Name + "\n")
			}
			t.Fatalf("event %q missing or out of order; log:\n%s", step, log.String())
		}
	}
}

func countEvents(events []soft.Event, op, name string) int {
	n := 0
	for _, e := range events {
		if e.Op == op && e.Name == name {
			n++
		}
	}
	return n
}

func TestBlendedOrderOffscreen(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, allCaps, Options{})

	p.Render(Frame{Camera: testCamera()})

	requireOrder(t, ctx.Events(),
		"bind:color",
		"render:clear",
		"render:opaque",
		"render:clear-depth",
		"render:volume",
		"render:transparent",
		"bind:depth-merged",
		"pass:depth-merge",
		"bind:color",
		"flush:",
	)

	assert.Zero(t, countEvents(ctx.Events(), "pass", "copy"), "offscreen frame must not touch the drawing buffer")
	assert.Zero(t, countEvents(ctx.Events(), "render", "depth"), "native depth needs no dedicated depth passes")
}

func TestBlendedDirectToDrawingBuffer(t *testing.T) {
	p, ctx, rend := newTestPipeline(t, allCaps, Options{})

	p.Render(Frame{Camera: testCamera(), ToDrawingBuffer: true})

	events := ctx.Events()
	requireOrder(t, events,
		"bind:color",
		"render:clear",
		"render:opaque",
		"render:transparent",
		"bind:drawing-buffer",
		"pass:copy",
		"flush:",
	)

	assert.Zero(t, countEvents(events, "pass", "depth-merge"), "direct presentation skips the depth merge")
	assert.Zero(t, countEvents(events, "render", "volume"), "volumes need merged depth and are skipped when presenting directly")
	assert.Equal(t, 1, countEvents(events, "pass", "copy"))

	// the copy must have moved the rendered color onto the surface
	px := ctx.DrawingBufferPixels().At(4, 4)
	assert.Equal(t, rend.opaqueColor[:], px)
}

func TestPackedDepthRunsDedicatedDepthPasses(t *testing.T) {
	caps := allCaps
	caps.DepthTexture = false

	p, ctx, _ := newTestPipeline(t, caps, Options{})

	p.Render(Frame{Camera: testCamera()})

	requireOrder(t, ctx.Events(),
		"bind:color",
		"render:opaque",
		"bind:depth-primitives",
		"render:depth",
		"bind:color",
		"render:volume",
		"bind:depth-volumes",
		"render:depth",
		"bind:color",
		"render:transparent",
		"bind:depth-merged",
		"pass:depth-merge",
	)

	assert.Equal(t, 2, countEvents(ctx.Events(), "render", "depth"))
}

func TestPackedDepthMergeResult(t *testing.T) {
	caps := allCaps
	caps.DepthTexture = false

	p, _, rend := newTestPipeline(t, caps, Options{})
	rend.primitiveDepth = 0.6
	rend.volumeDepth = 0.3

	p.Render(Frame{Camera: testCamera()})

	buf := p.depthTarget.Color().(*soft.Texture).Buf()
	px := buf.At(3, 3)
	assert.InDelta(t, 0.3, UnpackRGBAToUnit(px[0], px[1], px[2], px[3]), 1e-5,
		"merged depth must hold the nearer of the two sources")
}

func TestWboitOrder(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, allCaps, Options{EnableWboit: true})
	require.True(t, p.WboitEnabled())

	p.Render(Frame{Camera: testCamera()})

	events := ctx.Events()
	requireOrder(t, events,
		"bind:color",
		"render:clear",
		"render:clear-depth",
		"render:wboit-opaque",
		"render:clear-depth",
		"render:wboit-opaque",
		"bind:depth-merged",
		"pass:depth-merge",
		"bind:wboit-accum",
		"clear:wboit-accum",
		"render:wboit-transparent",
		"render:wboit-transparent",
		"bind:color",
		"pass:wboit-resolve",
		"flush:",
	)

	assert.Zero(t, countEvents(events, "render", "opaque"))
	assert.Zero(t, countEvents(events, "render", "transparent"))
	assert.Zero(t, countEvents(events, "render", "volume"))
}

func TestWboitDisabledWithoutSupport(t *testing.T) {
	caps := allCaps
	caps.FloatBlend = false

	p, ctx, _ := newTestPipeline(t, caps, Options{EnableWboit: true})
	assert.False(t, p.WboitEnabled())

	p.Render(Frame{Camera: testCamera()})

	events := ctx.Events()
	assert.Zero(t, countEvents(events, "render", "wboit-opaque"))
	assert.Zero(t, countEvents(events, "render", "wboit-transparent"))
	assert.Equal(t, 1, countEvents(events, "render", "opaque"))
}

func TestRenderWboitPanicsWhenDisabled(t *testing.T) {
	p, _, _ := newTestPipeline(t, allCaps, Options{})

	assert.Panics(t, func() {
		p.renderWboit(testCamera(), Frame{Camera: testCamera()}, false)
	})
}

func TestPostprocessingOrder(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, allCaps, Options{})

	p.Render(Frame{
		Camera:          testCamera(),
		ToDrawingBuffer: true,
		Props: gfx.PostprocessingProps{
			Occlusion: gfx.OcclusionProps{Enabled: true, Samples: 32, Radius: 5, Bias: 0.8},
			Outline:   gfx.OutlineProps{Enabled: true, Scale: 1, Threshold: 0.33},
		},
	})

	requireOrder(t, ctx.Events(),
		"pass:depth-merge",
		"bind:occlusion",
		"pass:ssao",
		"bind:outline",
		"pass:outline",
		"bind:postprocessing",
		"pass:compose",
		"bind:postprocessing",
		"bind:drawing-buffer",
		"pass:copy",
		"flush:",
	)
}

func TestOutlineOnlySkipsOcclusion(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, allCaps, Options{})

	p.Render(Frame{
		Camera: testCamera(),
		Props: gfx.PostprocessingProps{
			Outline: gfx.OutlineProps{Enabled: true, Scale: 1, Threshold: 0.33},
		},
	})

	events := ctx.Events()
	assert.Zero(t, countEvents(events, "pass", "ssao"))
	assert.Equal(t, 1, countEvents(events, "pass", "outline"))
	assert.Equal(t, 1, countEvents(events, "pass", "compose"))
}

func TestAntialiasingToDrawingBuffer(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, allCaps, Options{})

	p.Render(Frame{
		Camera:          testCamera(),
		ToDrawingBuffer: true,
		Props: gfx.PostprocessingProps{
			Antialiasing: gfx.AntialiasingProps{Enabled: true},
		},
	})

	requireOrder(t, ctx.Events(),
		"bind:drawing-buffer",
		"pass:fxaa",
		"flush:",
	)

	assert.Zero(t, countEvents(ctx.Events(), "pass", "copy"), "antialiasing replaces the copy resolve")
}

func TestAntialiasingOffscreen(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, allCaps, Options{})

	p.Render(Frame{
		Camera: testCamera(),
		Props: gfx.PostprocessingProps{
			Antialiasing: gfx.AntialiasingProps{Enabled: true},
		},
	})

	requireOrder(t, ctx.Events(),
		"bind:antialias",
		"pass:fxaa",
		"flush:",
	)

	assert.Zero(t, countEvents(ctx.Events(), "bind", "drawing-buffer"))
}

func TestHelperOverlaysRenderLast(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, allCaps, Options{})

	p.Render(Frame{
		Camera: testCamera(),
		Helper: gfx.Helper{
			Debug:  gfx.Overlay{Enabled: true},
			Camera: gfx.Overlay{Enabled: true},
		},
	})

	requireOrder(t, ctx.Events(),
		"pass:depth-merge",
		"bind:color",
		"render:opaque",
		"render:transparent",
		"render:opaque",
		"render:transparent",
		"flush:",
	)
}

func TestStereoRendersBothEyes(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, allCaps, Options{})

	left := gfx.NewCamera(gfx.CameraOptions{
		Viewport: gfx.Viewport{Width: 4, Height: 8},
		FovY:     1, Near: 1, Far: 100,
	})
	right := gfx.NewCamera(gfx.CameraOptions{
		Viewport: gfx.Viewport{X: 4, Width: 4, Height: 8},
		FovY:     1, Near: 1, Far: 100,
	})

	p.Render(Frame{Camera: &gfx.StereoCamera{LeftEye: left, RightEye: right}})

	events := ctx.Events()
	assert.Equal(t, 2, countEvents(events, "render", "viewport"))
	assert.Equal(t, 2, countEvents(events, "render", "opaque"))
	assert.Equal(t, 2, countEvents(events, "flush", ""), "each view flushes")
}

func TestStereoPresentationKeepsBothEyes(t *testing.T) {
	p, ctx, rend := newTestPipeline(t, allCaps, Options{})

	left := gfx.NewCamera(gfx.CameraOptions{
		Viewport: gfx.Viewport{Width: 4, Height: 8},
		FovY:     1, Near: 1, Far: 100,
	})
	right := gfx.NewCamera(gfx.CameraOptions{
		Viewport: gfx.Viewport{X: 4, Width: 4, Height: 8},
		FovY:     1, Near: 1, Far: 100,
	})

	p.Render(Frame{
		Camera:          &gfx.StereoCamera{LeftEye: left, RightEye: right},
		ToDrawingBuffer: true,
	})

	// the second view's resolve must not overwrite the first view's half
	surface := ctx.DrawingBufferPixels()
	assert.Equal(t, rend.opaqueColor[:], surface.At(1, 4), "left half holds the left eye's image")
	assert.Equal(t, rend.opaqueColor[:], surface.At(6, 4), "right half holds the right eye's image")
}


func TestFlushEveryView(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, allCaps, Options{})

	p.Render(Frame{Camera: testCamera()})
	assert.Equal(t, 1, countEvents(ctx.Events(), "flush", ""))

	ctx.ResetEvents()
	p.Render(Frame{Camera: testCamera(), ToDrawingBuffer: true})
	assert.Equal(t, 1, countEvents(ctx.Events(), "flush", ""))
}

func TestColorTargetSelection(t *testing.T) {
	p, _, _ := newTestPipeline(t, allCaps, Options{})

	aa := gfx.PostprocessingProps{Antialiasing: gfx.AntialiasingProps{Enabled: true}}
	pp := gfx.PostprocessingProps{Occlusion: gfx.OcclusionProps{Enabled: true}}
	both := gfx.PostprocessingProps{
		Occlusion:    gfx.OcclusionProps{Enabled: true},
		Antialiasing: gfx.AntialiasingProps{Enabled: true},
	}

	assert.Same(t, p.antialiasing.target, p.ColorTarget(aa))
	assert.Same(t, p.antialiasing.target, p.ColorTarget(both), "antialiasing target wins over postprocessing")
	assert.Same(t, p.postprocessing.target, p.ColorTarget(pp))
	assert.Same(t, p.colorTarget, p.ColorTarget(gfx.PostprocessingProps{}))
}

func TestSetSizePropagates(t *testing.T) {
	p, _, _ := newTestPipeline(t, allCaps, Options{EnableWboit: true})

	p.SetSize(32, 16)

	check := func(name string, w, h int) {
		assert.Equal(t, 32, w, name)
		assert.Equal(t, 16, h, name)
	}

	check("pipeline", p.width, p.height)

	targets := map[string]gfx.RenderTarget{
		"color":          p.colorTarget,
		"depth-merged":   p.depthTarget,
		"postprocessing": p.postprocessing.target,
		"occlusion":      p.postprocessing.occlusionTarget,
		"outline":        p.postprocessing.outlineTarget,
		"antialias":      p.antialiasing.target,
		"wboit":          p.wboit.target,
	}
	for name, target := range targets {
		w, h := target.Size()
		check(name, w, h)
	}

	w, h := p.primitiveDepth().Size()
	check("primitive depth", w, h)
	w, h = p.volumeDepth().Size()
	check("volume depth", w, h)
}

func TestSetSizeUnchangedIsNoOp(t *testing.T) {
	p, _, _ := newTestPipeline(t, allCaps, Options{})

	before := p.colorTarget.Color().(*soft.Texture).Buf()
	p.SetSize(8, 8)
	after := p.colorTarget.Color().(*soft.Texture).Buf()

	assert.Same(t, before, after, "unchanged size must not reallocate")
}

func TestPackedDepthSetSize(t *testing.T) {
	caps := allCaps
	caps.DepthTexture = false

	p, _, _ := newTestPipeline(t, caps, Options{})
	require.True(t, p.packedDepth)

	p.SetSize(20, 10)

	w, h := p.depthTargetPrimitives.Size()
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)
	w, h = p.depthTargetVolumes.Size()
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)
}
