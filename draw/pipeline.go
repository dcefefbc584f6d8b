// Package draw sequences the multi-pass rendering of a 3D scene: opaque,
// transparent and volumetric content rendered into shared offscreen
// targets, multiple depth sources merged into one canonical depth buffer,
// screen-space post-processing and a final antialiasing or copy resolve
// into the presentation surface.
package draw

import (
	"fmt"
	"log/slog"

	"github.com/rdirisio/molstar/gfx"
)

// Options configures pipeline construction.
type Options struct {
	// EnableWboit requests the weighted-blended order-independent
	// transparency path. It only becomes active if the hardware
	// supports the required draw-buffer and blend features.
	EnableWboit bool
}

// Frame is everything a single render call needs. The scene partition
// and the post-processing props are read-only for the duration of the
// frame.
type Frame struct {
	Camera gfx.Camera
	Scene  gfx.Scene
	Helper gfx.Helper

	// ToDrawingBuffer requests the result on the presentation surface.
	ToDrawingBuffer bool

	BackgroundColor       gfx.Color
	TransparentBackground bool

	Props gfx.PostprocessingProps
}

// Pipeline owns all render targets and textures of the draw pass and
// executes the full per-view sequence. Not safe for concurrent use;
// SetSize must not be called while Render runs.
type Pipeline struct {
	ctx  gfx.Context
	rend gfx.Renderer

	width  int
	height int

	// set once from hardware capability detection, never reevaluated
	packedDepth bool

	drawTarget  gfx.RenderTarget
	colorTarget gfx.RenderTarget

	// canonical merged depth, always packed into color channels
	depthTarget gfx.RenderTarget

	// packed depth path: full offscreen targets capturing primitive and
	// volume depth as packed color
	depthTargetPrimitives gfx.RenderTarget
	depthTargetVolumes    gfx.RenderTarget

	// native path: standalone depth textures attached to the color
	// target's framebuffer as needed
	depthTexturePrimitives gfx.Texture
	depthTextureVolumes    gfx.Texture

	depthMerge           *depthMergeStage
	copyFbo              *copyStage
	copyFboPostprocessed *copyStage
	wboit                *wboitStage
	postprocessing       *postprocessingStage
	antialiasing         *antialiasStage
}

// New builds the pipeline and allocates every offscreen target at the
// given size. The capability dependent choices (packed depth, weighted
// transparency) are made here and hold for the pipeline's lifetime.
func New(ctx gfx.Context, rend gfx.Renderer, width, height int, opts Options) (*Pipeline, error) {
	caps := ctx.Caps()

	p := &Pipeline{
		ctx:         ctx,
		rend:        rend,
		width:       width,
		height:      height,
		packedDepth: !caps.DepthTexture,
		drawTarget:  ctx.DrawingBuffer(),
	}

	slog.Info("Create draw pipeline",
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Bool("packedDepth", p.packedDepth),
		slog.Bool("wboitRequested", opts.EnableWboit),
		slog.Bool("wboitSupported", wboitSupported(caps)),
	)

	var err error

	p.colorTarget, err = ctx.CreateRenderTarget(gfx.TargetOptions{
		Width:  width,
		Height: height,
		Depth:  true,
		Format: gfx.FormatRGBA8,
		Filter: gfx.FilterLinear,
		Label:  "color",
	})
	if err != nil {
		return nil, fmt.Errorf("create color target: %w", err)
	}

	p.depthTarget, err = ctx.CreateRenderTarget(gfx.TargetOptions{
		Width:  width,
		Height: height,
		Format: gfx.FormatRGBA8,
		Filter: gfx.FilterNearest,
		Label:  "depth-merged",
	})
	if err != nil {
		return nil, fmt.Errorf("create merged depth target: %w", err)
	}

	if p.packedDepth {
		p.depthTargetPrimitives, err = ctx.CreateRenderTarget(gfx.TargetOptions{
			Width:  width,
			Height: height,
			Depth:  true,
			Format: gfx.FormatRGBA8,
			Filter: gfx.FilterNearest,
			Label:  "depth-primitives",
		})
		if err != nil {
			return nil, fmt.Errorf("create primitive depth target: %w", err)
		}

		p.depthTargetVolumes, err = ctx.CreateRenderTarget(gfx.TargetOptions{
			Width:  width,
			Height: height,
			Depth:  true,
			Format: gfx.FormatRGBA8,
			Filter: gfx.FilterNearest,
			Label:  "depth-volumes",
		})
		if err != nil {
			return nil, fmt.Errorf("create volume depth target: %w", err)
		}
	} else {
		p.depthTexturePrimitives, err = ctx.CreateTexture(gfx.TextureOptions{
			Width:  width,
			Height: height,
			Format: gfx.FormatDepth32F,
			Filter: gfx.FilterNearest,
			Label:  "depth-primitives",
		})
		if err != nil {
			return nil, fmt.Errorf("create primitive depth texture: %w", err)
		}

		p.depthTextureVolumes, err = ctx.CreateTexture(gfx.TextureOptions{
			Width:  width,
			Height: height,
			Format: gfx.FormatDepth32F,
			Filter: gfx.FilterNearest,
			Label:  "depth-volumes",
		})
		if err != nil {
			return nil, fmt.Errorf("create volume depth texture: %w", err)
		}
	}

	p.depthMerge, err = newDepthMergeStage(ctx, p.primitiveDepth(), p.volumeDepth(), p.packedDepth, width, height)
	if err != nil {
		return nil, err
	}

	if opts.EnableWboit && wboitSupported(caps) {
		p.wboit, err = newWboitStage(ctx, width, height)
		if err != nil {
			return nil, err
		}
	}

	p.postprocessing, err = newPostprocessingStage(ctx, p.colorTarget.Color(), p.depthTarget.Color(), width, height)
	if err != nil {
		return nil, err
	}

	p.antialiasing, err = newAntialiasStage(ctx, width, height)
	if err != nil {
		return nil, err
	}

	p.copyFbo, err = newCopyStage(ctx, p.colorTarget.Color())
	if err != nil {
		return nil, err
	}

	p.copyFboPostprocessed, err = newCopyStage(ctx, p.postprocessing.target.Color())
	if err != nil {
		return nil, err
	}

	return p, nil
}

// WboitEnabled reports whether the weighted transparency strategy is
// active: requested at construction and supported by the hardware.
func (p *Pipeline) WboitEnabled() bool {
	return p.wboit != nil
}

// Size returns the current target dimensions.
func (p *Pipeline) Size() (width, height int) {
	return p.width, p.height
}

// primitiveDepth is the texture holding per-primitive depth, whichever
// capability path produced it.
func (p *Pipeline) primitiveDepth() gfx.Texture {
	if p.packedDepth {
		return p.depthTargetPrimitives.Color()
	}
	return p.depthTexturePrimitives
}

func (p *Pipeline) volumeDepth() gfx.Texture {
	if p.packedDepth {
		return p.depthTargetVolumes.Color()
	}
	return p.depthTextureVolumes
}

// SetSize resizes every owned target and texture in place and updates
// all dependent stages. Must be called before the next Render after any
// viewport change. No-op when the dimensions are unchanged.
func (p *Pipeline) SetSize(width, height int) {
	if width == p.width && height == p.height {
		return
	}

	slog.Debug("Resize draw pipeline",
		slog.Int("width", width),
		slog.Int("height", height),
	)

	p.width = width
	p.height = height

	p.colorTarget.SetSize(width, height)
	p.depthTarget.SetSize(width, height)

	if p.packedDepth {
		p.depthTargetPrimitives.SetSize(width, height)
		p.depthTargetVolumes.SetSize(width, height)
	} else {
		p.depthTexturePrimitives.Define(width, height)
		p.depthTextureVolumes.Define(width, height)
	}

	p.depthMerge.SetSize(width, height)

	if p.wboit != nil {
		p.wboit.SetSize(width, height)
	}

	p.postprocessing.SetSize(width, height)
	p.antialiasing.SetSize(width, height)
}

// ColorTarget returns the target holding the final output for the given
// configuration: the antialiasing target whenever antialiasing is
// enabled, the post-processing target when only post-processing is, the
// plain color target otherwise.
func (p *Pipeline) ColorTarget(props gfx.PostprocessingProps) gfx.RenderTarget {
	if props.Antialiasing.Enabled {
		return p.antialiasing.target
	}
	if gfx.PostprocessingEnabled(props) {
		return p.postprocessing.target
	}
	return p.colorTarget
}

// Render executes the frame. A stereo camera runs the full sequence once
// per eye into the shared targets; presentation of the two views is
// external.
func (p *Pipeline) Render(f Frame) {
	p.rend.SetTransparentBackground(f.TransparentBackground)
	p.rend.SetBackgroundColor(f.BackgroundColor)

	dw, dh := p.drawTarget.Size()
	p.rend.SetDrawingBufferSize(dw, dh)

	if stereo, ok := f.Camera.(*gfx.StereoCamera); ok {
		p.renderView(stereo.Left(), f)
		p.renderView(stereo.Right(), f)
	} else {
		p.renderView(f.Camera, f)
	}
}

// renderView runs the full pipeline for one camera view.
func (p *Pipeline) renderView(cam gfx.Camera, f Frame) {
	aaEnabled := f.Props.Antialiasing.Enabled
	ppEnabled := gfx.PostprocessingEnabled(f.Props)

	p.rend.SetViewport(cam.Viewport())
	p.rend.Update(cam)

	if p.WboitEnabled() {
		p.renderWboit(cam, f, ppEnabled)
	} else {
		// when the result is presented unprocessed, the depth capture
		// and merge work is skipped entirely
		direct := f.ToDrawingBuffer && !aaEnabled && !ppEnabled
		p.renderBlended(cam, f, direct)

		if ppEnabled {
			p.postprocessing.Render(cam, f.Props)
		}
	}

	if ppEnabled {
		p.postprocessing.target.Bind()
	} else {
		p.colorTarget.Bind()
	}

	p.renderHelper(f.Helper, cam)

	if aaEnabled {
		input := p.colorTarget.Color()
		if ppEnabled {
			input = p.postprocessing.target.Color()
		}
		p.antialiasing.Render(input, f.ToDrawingBuffer, cam.Viewport())
	} else if f.ToDrawingBuffer {
		p.drawTarget.Bind()
		if ppEnabled {
			p.copyFboPostprocessed.Render(cam.Viewport())
		} else {
			p.copyFbo.Render(cam.Viewport())
		}
	}

	// guarantee submission before control returns: callers may read
	// back pixels or swap buffers immediately
	p.ctx.Flush()
}

// renderBlended is the default compositing strategy: unordered
// alpha-blended transparency over the opaque layer. direct skips the
// depth capture and merge work when the frame is presented without any
// post-processing.
func (p *Pipeline) renderBlended(cam gfx.Camera, f Frame, direct bool) {
	scene := f.Scene

	p.colorTarget.Bind()
	if !p.packedDepth {
		p.colorTarget.AttachDepth(p.depthTexturePrimitives)
	}

	p.rend.Clear(true)
	p.rend.RenderBlendedOpaque(scene.Primitives, cam, nil)

	if !direct {
		if p.packedDepth {
			// a combined depth attachment cannot produce a readable
			// per-primitive depth texture on this hardware, so recover
			// it with a dedicated depth-only pass
			p.depthTargetPrimitives.Bind()
			p.rend.Clear(true)
			p.rend.RenderDepth(scene.Primitives, cam, nil)
			p.colorTarget.Bind()
		}

		// volumes write depth differently than surface geometry and get
		// their own depth slot
		if p.packedDepth {
			p.rend.ClearDepth()
			p.rend.RenderBlendedVolume(scene.Volumes, cam, p.primitiveDepth())

			p.depthTargetVolumes.Bind()
			p.rend.Clear(true)
			p.rend.RenderDepth(scene.Volumes, cam, p.primitiveDepth())
			p.colorTarget.Bind()
		} else {
			p.colorTarget.AttachDepth(p.depthTextureVolumes)
			p.rend.ClearDepth()
			p.rend.RenderBlendedVolume(scene.Volumes, cam, p.depthTexturePrimitives)
			p.colorTarget.AttachDepth(p.depthTexturePrimitives)
		}
	}

	p.rend.RenderBlendedTransparent(scene.Primitives, cam, nil)

	if !direct {
		p.depthTarget.Bind()
		p.depthMerge.Render()
		p.colorTarget.Bind()
	}
}

// renderWboit is the weighted-blended order-independent transparency
// strategy. Post-processing runs before transparency is composited so
// occlusion and outline act on the opaque layer only.
func (p *Pipeline) renderWboit(cam gfx.Camera, f Frame, ppEnabled bool) {
	if !p.WboitEnabled() {
		panic("expected WBOIT to be enabled")
	}

	scene := f.Scene

	p.colorTarget.Bind()
	p.rend.Clear(true)

	p.colorTarget.AttachDepth(p.depthTexturePrimitives)
	p.rend.ClearDepth()
	p.rend.RenderWboitOpaque(scene.Primitives, cam, nil)

	p.colorTarget.AttachDepth(p.depthTextureVolumes)
	p.rend.ClearDepth()
	p.rend.RenderWboitOpaque(scene.Volumes, cam, p.depthTexturePrimitives)

	p.depthTarget.Bind()
	p.depthMerge.Render()

	if ppEnabled {
		p.postprocessing.Render(cam, f.Props)
	}

	p.wboit.Bind()
	p.rend.RenderWboitTransparent(scene.Primitives, cam, p.depthTarget.Color())
	p.rend.RenderWboitTransparent(scene.Volumes, cam, p.depthTarget.Color())

	target := p.colorTarget
	if ppEnabled {
		target = p.postprocessing.target
	}
	target.Bind()
	target.AttachDepth(p.depthTexturePrimitives)
	p.wboit.Resolve()
}

// renderHelper draws the enabled overlay scenes on top of the main
// content, always with standard blending.
func (p *Pipeline) renderHelper(h gfx.Helper, cam gfx.Camera) {
	for _, overlay := range []gfx.Overlay{h.Debug, h.Handle, h.Camera} {
		if !overlay.Enabled {
			continue
		}

		p.rend.RenderBlendedOpaque(overlay.Scene.Primitives, cam, nil)
		p.rend.RenderBlendedTransparent(overlay.Scene.Primitives, cam, nil)
	}
}
