package draw

import (
	"fmt"

	"github.com/rdirisio/molstar/gfx"
	"github.com/rdirisio/molstar/glm"
)

// wboitStage holds the weighted-blended order-independent transparency
// accumulation buffers and the resolve pass that composites them onto
// the opaque color. Transparent objects add weighted premultiplied color
// into the accumulation attachment and their combined coverage into the
// reveal attachment; the resolve divides the two and blends the weighted
// average onto whatever target is bound.
type wboitStage struct {
	// accumulation (rgba float) and reveal (x channel) as two color
	// attachments of one target
	target gfx.RenderTarget

	resolve gfx.Pass
}

// Supported reports whether the hardware can run the weighted
// transparency path at all.
func wboitSupported(caps gfx.Capabilities) bool {
	return caps.DrawBuffers && caps.FloatBlend && caps.DepthTexture
}

func newWboitStage(ctx gfx.Context, width, height int) (*wboitStage, error) {
	target, err := ctx.CreateRenderTarget(gfx.TargetOptions{
		Width:  width,
		Height: height,
		Colors: 2,
		Format: gfx.FormatRGBA32F,
		Filter: gfx.FilterNearest,
		Label:  "wboit-accum",
	})
	if err != nil {
		return nil, fmt.Errorf("create wboit accumulation target: %w", err)
	}

	resolve, err := ctx.CreatePass(gfx.ShaderSpec{
		Name:   "wboit-resolve",
		Source: wboitResolveShaderCode,
		State: gfx.PassState{
			Blend: gfx.BlendPremultiplied,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create wboit resolve pass: %w", err)
	}

	resolve.SetTexture("tWboitAccum", target.ColorAttachment(0))
	resolve.SetTexture("tWboitReveal", target.ColorAttachment(1))
	resolve.SetUniform("uTexSize", glm.Vec2f{float32(width), float32(height)})

	return &wboitStage{target: target, resolve: resolve}, nil
}

func (s *wboitStage) SetSize(width, height int) {
	s.target.SetSize(width, height)
	s.resolve.SetUniform("uTexSize", glm.Vec2f{float32(width), float32(height)})
}

// Bind makes the accumulation buffers the render destination and resets
// them: zero accumulated color, full reveal.
func (s *wboitStage) Bind() {
	s.target.Bind()
	s.target.Clear(false, gfx.Color{0, 0, 0, 0}, gfx.Color{1, 0, 0, 0})
}

// Resolve composites the accumulated transparency onto the currently
// bound target.
func (s *wboitStage) Resolve() {
	s.resolve.Render()
}
