package gfx

// OcclusionProps configures screen-space ambient occlusion.
type OcclusionProps struct {
	Enabled bool
	Samples int
	Radius  float32
	Bias    float32
}

// OutlineProps configures depth-discontinuity outline highlighting.
type OutlineProps struct {
	Enabled bool

	// Scale widens the outline in pixels.
	Scale float32

	// Threshold scales the maximum view-space depth difference below
	// which neighboring pixels still count as the same surface.
	Threshold float32
}

// AntialiasingProps configures the final FXAA resolve.
type AntialiasingProps struct {
	Enabled bool
}

// PostprocessingProps is the per-frame post-processing configuration
// snapshot. Read-only for the duration of a frame, reevaluated every
// frame.
type PostprocessingProps struct {
	Occlusion    OcclusionProps
	Outline      OutlineProps
	Antialiasing AntialiasingProps
}

// PostprocessingEnabled reports whether any screen-space effect is on,
// which decides whether the post-processing stage runs at all.
func PostprocessingEnabled(p PostprocessingProps) bool {
	return p.Occlusion.Enabled || p.Outline.Enabled
}
