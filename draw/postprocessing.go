package draw

import (
	"fmt"

	"github.com/rdirisio/molstar/gfx"
	"github.com/rdirisio/molstar/glm"
)

// postprocessingStage applies the screen-space effects: ambient
// occlusion and outline highlighting, both reading the canonical merged
// depth, composed with the rendered color into its own target.
type postprocessingStage struct {
	target gfx.RenderTarget

	occlusionTarget gfx.RenderTarget
	outlineTarget   gfx.RenderTarget

	occlusion gfx.Pass
	outline   gfx.Pass
	compose   gfx.Pass
}

// OutlineColor is the color outline pixels are replaced with.
var OutlineColor = gfx.Color{0, 0, 0, 1}

func newPostprocessingStage(ctx gfx.Context, color, depth gfx.Texture, width, height int) (*postprocessingStage, error) {
	target, err := ctx.CreateRenderTarget(gfx.TargetOptions{
		Width:  width,
		Height: height,
		Format: gfx.FormatRGBA8,
		Filter: gfx.FilterLinear,
		Label:  "postprocessing",
	})
	if err != nil {
		return nil, fmt.Errorf("create postprocessing target: %w", err)
	}

	occlusionTarget, err := ctx.CreateRenderTarget(gfx.TargetOptions{
		Width:  width,
		Height: height,
		Format: gfx.FormatRGBA8,
		Filter: gfx.FilterNearest,
		Label:  "occlusion",
	})
	if err != nil {
		return nil, fmt.Errorf("create occlusion target: %w", err)
	}

	outlineTarget, err := ctx.CreateRenderTarget(gfx.TargetOptions{
		Width:  width,
		Height: height,
		Format: gfx.FormatRGBA8,
		Filter: gfx.FilterNearest,
		Label:  "outline",
	})
	if err != nil {
		return nil, fmt.Errorf("create outline target: %w", err)
	}

	occlusion, err := ctx.CreatePass(gfx.ShaderSpec{
		Name:   "ssao",
		Source: ssaoShaderCode,
		State:  gfx.PassState{},
	})
	if err != nil {
		return nil, fmt.Errorf("create ssao pass: %w", err)
	}
	occlusion.SetTexture("tDepth", depth)

	outline, err := ctx.CreatePass(gfx.ShaderSpec{
		Name:   "outline",
		Source: outlineShaderCode,
		Kernel: outlineKernel,
		State:  gfx.PassState{},
	})
	if err != nil {
		return nil, fmt.Errorf("create outline pass: %w", err)
	}
	outline.SetTexture("tDepth", depth)

	compose, err := ctx.CreatePass(gfx.ShaderSpec{
		Name:   "compose",
		Source: composeShaderCode,
		State:  gfx.PassState{},
	})
	if err != nil {
		return nil, fmt.Errorf("create compose pass: %w", err)
	}
	compose.SetTexture("tColor", color)
	compose.SetTexture("tOcclusion", occlusionTarget.Color())
	compose.SetTexture("tOutline", outlineTarget.Color())

	s := &postprocessingStage{
		target:          target,
		occlusionTarget: occlusionTarget,
		outlineTarget:   outlineTarget,
		occlusion:       occlusion,
		outline:         outline,
		compose:         compose,
	}
	s.SetSize(width, height)

	return s, nil
}

func (s *postprocessingStage) SetSize(width, height int) {
	s.target.SetSize(width, height)
	s.occlusionTarget.SetSize(width, height)
	s.outlineTarget.SetSize(width, height)

	texSize := glm.Vec2f{float32(width), float32(height)}
	s.occlusion.SetUniform("uTexSize", texSize)
	s.outline.SetUniform("uTexSize", texSize)
	s.compose.SetUniform("uTexSize", texSize)
}

// maxPossibleViewZDiff is the largest view-space depth step two pixels
// of one continuous surface can have; larger steps are silhouettes.
func maxPossibleViewZDiff(cam gfx.Camera, threshold float32) float32 {
	if threshold <= 0 {
		threshold = 1
	}
	return 0.5 * (cam.Far() - cam.Near()) / 500 * threshold
}

// Render runs the enabled effects and composes them into the stage
// target. In the weighted transparency path this happens before
// transparency is composited: occlusion and outline act on the opaque
// layer only.
func (s *postprocessingStage) Render(cam gfx.Camera, props gfx.PostprocessingProps) {
	if props.Occlusion.Enabled {
		s.occlusionTarget.Bind()
		s.occlusion.SetUniform("uNear", cam.Near())
		s.occlusion.SetUniform("uFar", cam.Far())
		s.occlusion.SetUniform("uOrthographic", cam.Orthographic())
		s.occlusion.SetUniform("uSamples", float32(props.Occlusion.Samples))
		s.occlusion.SetUniform("uRadius", props.Occlusion.Radius)
		s.occlusion.SetUniform("uBias", props.Occlusion.Bias)
		s.occlusion.Render()
	}

	if props.Outline.Enabled {
		s.outlineTarget.Bind()
		s.outline.SetUniform("uNear", cam.Near())
		s.outline.SetUniform("uFar", cam.Far())
		s.outline.SetUniform("uOrthographic", cam.Orthographic())
		s.outline.SetUniform("uMaxPossibleViewZDiff", maxPossibleViewZDiff(cam, props.Outline.Threshold))
		s.outline.Render()
	}

	s.target.Bind()
	s.compose.SetUniform("uOcclusionEnabled", props.Occlusion.Enabled)
	s.compose.SetUniform("uOutlineEnabled", props.Outline.Enabled)
	s.compose.SetUniform("uOutlineColor", OutlineColor)
	s.compose.Render()
}
