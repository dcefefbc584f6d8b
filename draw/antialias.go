package draw

import (
	"fmt"

	"github.com/rdirisio/molstar/gfx"
	"github.com/rdirisio/molstar/glm"
)

// antialiasStage is the final resolve: FXAA into either its own target
// or straight into the presentation surface.
type antialiasStage struct {
	drawTarget gfx.RenderTarget
	target     gfx.RenderTarget
	fxaa       gfx.Pass
}

func newAntialiasStage(ctx gfx.Context, width, height int) (*antialiasStage, error) {
	target, err := ctx.CreateRenderTarget(gfx.TargetOptions{
		Width:  width,
		Height: height,
		Format: gfx.FormatRGBA8,
		Filter: gfx.FilterLinear,
		Label:  "antialias",
	})
	if err != nil {
		return nil, fmt.Errorf("create antialias target: %w", err)
	}

	fxaa, err := ctx.CreatePass(gfx.ShaderSpec{
		Name:   "fxaa",
		Source: fxaaShaderCode,
		State:  gfx.PassState{},
	})
	if err != nil {
		return nil, fmt.Errorf("create fxaa pass: %w", err)
	}
	fxaa.SetUniform("uTexSize", glm.Vec2f{float32(width), float32(height)})

	return &antialiasStage{
		drawTarget: ctx.DrawingBuffer(),
		target:     target,
		fxaa:       fxaa,
	}, nil
}

func (s *antialiasStage) SetSize(width, height int) {
	s.target.SetSize(width, height)
	s.fxaa.SetUniform("uTexSize", glm.Vec2f{float32(width), float32(height)})
}

// Render resolves input into the presentation surface when
// toDrawingBuffer is set, into the stage target otherwise. On the
// presentation surface the resolve is scoped to the view's viewport so
// stereo views keep their halves.
func (s *antialiasStage) Render(input gfx.Texture, toDrawingBuffer bool, viewport gfx.Viewport) {
	if toDrawingBuffer {
		s.drawTarget.Bind()
		s.fxaa.SetViewport(viewport)
	} else {
		s.target.Bind()
		s.fxaa.SetViewport(gfx.Viewport{})
	}

	s.fxaa.SetTexture("tColor", input)
	s.fxaa.Render()
}
