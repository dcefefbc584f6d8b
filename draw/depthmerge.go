package draw

import (
	"fmt"

	"github.com/rdirisio/molstar/gfx"
	"github.com/rdirisio/molstar/glm"
)

// depthMergeStage folds the primitive and volume depth sources into one
// canonical depth buffer via a full-screen pass. Stateless per
// invocation: it always fully overwrites the bound target and never
// tests against existing content.
type depthMergeStage struct {
	pass gfx.Pass
}

func newDepthMergeStage(ctx gfx.Context, primDepth, volDepth gfx.Texture, packedDepth bool, width, height int) (*depthMergeStage, error) {
	pass, err := ctx.CreatePass(gfx.ShaderSpec{
		Name:   "depth-merge",
		Source: depthMergeShaderCode,
		Kernel: depthMergeKernel,
		// always fully overwrites, so everything stays disabled
		State: gfx.PassState{},
	})
	if err != nil {
		return nil, fmt.Errorf("create depth merge pass: %w", err)
	}

	pass.SetTexture("tDepthPrimitives", primDepth)
	pass.SetTexture("tDepthVolumes", volDepth)
	pass.SetUniform("uPackedDepth", packedDepth)
	pass.SetUniform("uTexSize", glm.Vec2f{float32(width), float32(height)})

	return &depthMergeStage{pass: pass}, nil
}

func (s *depthMergeStage) SetSize(width, height int) {
	s.pass.SetUniform("uTexSize", glm.Vec2f{float32(width), float32(height)})
}

func (s *depthMergeStage) Render() {
	s.pass.Render()
}
