package draw

import (
	"fmt"

	"github.com/rdirisio/molstar/gfx"
)

// copyStage copies a color source verbatim into the bound target. Used
// only when antialiasing is disabled and results must reach the
// presentation surface.
type copyStage struct {
	pass gfx.Pass
}

func newCopyStage(ctx gfx.Context, color gfx.Texture) (*copyStage, error) {
	pass, err := ctx.CreatePass(gfx.ShaderSpec{
		Name:   "copy",
		Source: copyShaderCode,
		Kernel: copyKernel,
		State:  gfx.PassState{},
	})
	if err != nil {
		return nil, fmt.Errorf("create copy pass: %w", err)
	}

	pass.SetTexture("tColor", color)

	return &copyStage{pass: pass}, nil
}

// Render copies into the given viewport of the bound target so stereo
// views presented side by side do not overwrite each other.
func (s *copyStage) Render(viewport gfx.Viewport) {
	s.pass.SetViewport(viewport)
	s.pass.Render()
}
