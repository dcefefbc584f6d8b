package gfx

// Renderable is a single drawable object. Backends type-assert to their
// own concrete mesh or volume types.
type Renderable interface {
	// Transparent reports whether the object needs blending.
	Transparent() bool
}

// Group is an ordered collection of renderables. The pipeline never
// mutates a group, it only hands it to the renderer.
type Group []Renderable

// Scene is the per-frame partition of drawable objects. Immutable for
// the duration of a render call.
type Scene struct {
	Primitives Group
	Volumes    Group
}

// Overlay is an independently toggleable helper scene (debug geometry,
// interaction handles, camera gizmo). Overlays render after the main
// pipeline with standard blending.
type Overlay struct {
	Enabled bool
	Scene   Scene
}

// Helper bundles the auxiliary overlays rendered on top of every frame.
type Helper struct {
	Debug  Overlay
	Handle Overlay
	Camera Overlay
}

// Renderer draws scene content into the currently bound render target.
// It is an external collaborator: the pipeline sequences its calls but
// does not know how objects are drawn.
type Renderer interface {
	// Clear clears color, and also depth when depth is true.
	Clear(depth bool)

	// ClearDepth clears only the depth attachment.
	ClearDepth()

	SetViewport(v Viewport)
	SetBackgroundColor(c Color)
	SetTransparentBackground(transparent bool)
	SetDrawingBufferSize(width, height int)

	// Update recomputes camera dependent state before a view is drawn.
	Update(cam Camera)

	RenderBlendedOpaque(g Group, cam Camera, depth Texture)
	RenderBlendedTransparent(g Group, cam Camera, depth Texture)
	RenderBlendedVolume(g Group, cam Camera, depth Texture)

	RenderWboitOpaque(g Group, cam Camera, depth Texture)
	RenderWboitTransparent(g Group, cam Camera, depth Texture)

	// RenderDepth renders only depth, packed into color channels on
	// hardware without native depth texture sampling.
	RenderDepth(g Group, cam Camera, depth Texture)
}
