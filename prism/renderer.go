package prism

import (
	_ "embed"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/rdirisio/molstar/gfx"
	"github.com/rdirisio/molstar/glm"
)

//go:embed shaders/mesh.wgsl
var meshShaderCode string

// meshUniforms is the per-draw uniform block, layout matching the WGSL
// Uniforms struct.
type meshUniforms struct {
	Projection glm.Mat4f
	View       glm.Mat4f
	Model      glm.Mat4f
	Color      gfx.Color
	Params     [4]float32
}

// Renderer draws mesh groups into the currently bound target. It
// implements the scene renderer contract of the draw pipeline: one
// method per pass kind, each filtering the group by transparency.
type Renderer struct {
	backend *Backend

	pipelines *PipelineCache[meshPipelineConfig]

	viewport              gfx.Viewport
	background            gfx.Color
	transparentBackground bool

	projection glm.Mat4f
	view       glm.Mat4f
	near, far  float32
}

var _ gfx.Renderer = (*Renderer)(nil)

func NewRenderer(b *Backend) *Renderer {
	return &Renderer{
		backend:   b,
		pipelines: NewPipelineCache[meshPipelineConfig](b.device),
		view:      glm.IdentityMat4[float32](),
	}
}

func (r *Renderer) Clear(depth bool) {
	bound := r.backend.bound
	if bound == nil {
		return
	}

	bg := r.background
	if r.transparentBackground {
		bg[3] = 0
	}

	bound.Clear(depth, bg)
}

func (r *Renderer) ClearDepth() {
	bound := r.backend.bound
	if bound == nil || bound.depthView() == nil {
		return
	}

	enc, err := r.backend.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "ClearDepth"})
	if err != nil {
		panic(fmt.Errorf("create clear depth encoder: %w", err))
	}
	defer enc.Release()

	err = enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "ClearDepth",
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            bound.depthView(),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	}).End()
	if err != nil {
		panic(fmt.Errorf("clear depth: %w", err))
	}

	buf, err := enc.Finish(nil)
	if err != nil {
		panic(fmt.Errorf("finish clear depth encoder: %w", err))
	}
	defer buf.Release()

	r.backend.device.Submit(buf)
}

func (r *Renderer) SetViewport(v gfx.Viewport) { r.viewport = v }

func (r *Renderer) SetBackgroundColor(c gfx.Color) { r.background = c }

func (r *Renderer) SetTransparentBackground(transparent bool) {
	r.transparentBackground = transparent
}

func (r *Renderer) SetDrawingBufferSize(width, height int) {
	// surface size is owned by the backend; nothing cached here
}

func (r *Renderer) Update(cam gfx.Camera) {
	r.projection = cam.Projection()
	r.view = cam.View()
	r.near = cam.Near()
	r.far = cam.Far()
}

func (r *Renderer) RenderBlendedOpaque(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.render(g, depth, drawOptions{
		transparent: false,
		entry:       "fs_mesh",
		blend:       gfx.BlendNone,
		depthWrite:  true,
	})
}

func (r *Renderer) RenderBlendedTransparent(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.render(g, depth, drawOptions{
		transparent: true,
		entry:       "fs_mesh",
		blend:       gfx.BlendAlpha,
		depthWrite:  false,
	})
}

func (r *Renderer) RenderBlendedVolume(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.render(g, depth, drawOptions{
		all:        true,
		entry:      "fs_mesh_clip",
		blend:      gfx.BlendAlpha,
		depthWrite: true,
	})
}

func (r *Renderer) RenderWboitOpaque(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	entry := "fs_mesh"
	if depth != nil {
		entry = "fs_mesh_clip"
	}

	r.render(g, depth, drawOptions{
		transparent: false,
		entry:       entry,
		blend:       gfx.BlendNone,
		depthWrite:  true,
	})
}

func (r *Renderer) RenderWboitTransparent(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.render(g, depth, drawOptions{
		transparent: true,
		entry:       "fs_wboit",
		wboit:       true,
		depthWrite:  false,
	})
}

func (r *Renderer) RenderDepth(g gfx.Group, cam gfx.Camera, depth gfx.Texture) {
	r.render(g, depth, drawOptions{
		all:        true,
		entry:      "fs_depth",
		blend:      gfx.BlendNone,
		depthWrite: true,
	})
}

type drawOptions struct {
	// all draws every mesh, otherwise transparent selects which ones
	all         bool
	transparent bool

	entry      string
	blend      gfx.BlendMode
	wboit      bool
	depthWrite bool
}

func (r *Renderer) render(g gfx.Group, depth gfx.Texture, opts drawOptions) {
	if err := r.renderGroup(g, depth, opts); err != nil {
		panic(fmt.Errorf("render group: %w", err))
	}
}

func (r *Renderer) renderGroup(g gfx.Group, depth gfx.Texture, opts drawOptions) error {
	bound := r.backend.bound
	if bound == nil {
		return fmt.Errorf("no render target bound")
	}

	var meshes []*Mesh
	for _, obj := range g {
		mesh, ok := obj.(*Mesh)
		if !ok {
			return fmt.Errorf("renderable is not a prism mesh: %T", obj)
		}

		if opts.all || mesh.transparent == opts.transparent {
			meshes = append(meshes, mesh)
		}
	}

	if len(meshes) == 0 {
		return nil
	}

	formats := bound.colorFormats()
	if len(formats) > maxPassTargets {
		return fmt.Errorf("target has %d color attachments, at most %d supported", len(formats), maxPassTargets)
	}

	hasDepth := bound.depthView() != nil

	conf := meshPipelineConfig{
		Entry:      opts.entry,
		Blend:      opts.blend,
		Wboit:      opts.wboit,
		NumTargets: len(formats),
		HasDepth:   hasDepth,
		DepthWrite: opts.depthWrite && hasDepth,
	}
	copy(conf.Formats[:], formats)

	pipeline, err := r.pipelines.Get(conf)
	if err != nil {
		return err
	}

	var depthTex *Texture
	if depth != nil {
		t, ok := depth.(*Texture)
		if !ok {
			return fmt.Errorf("depth input is not a prism texture")
		}
		depthTex = t
	}

	encoder, err := r.backend.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	views := bound.colorViews()
	attachments := make([]wgpu.RenderPassColorAttachment, len(views))
	for i, view := range views {
		attachments[i] = wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
	}

	desc := &wgpu.RenderPassDescriptor{
		Label:            "Mesh." + opts.entry,
		ColorAttachments: attachments,
	}

	if hasDepth {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:         bound.depthView(),
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
	}

	pass := encoder.BeginRenderPass(desc)
	defer func() {
		if pass != nil {
			pass.Release()
		}
	}()

	pass.SetPipeline(pipeline.Pipeline)

	if r.viewport.Width > 0 && r.viewport.Height > 0 {
		pass.SetViewport(
			float32(r.viewport.X), float32(r.viewport.Y),
			float32(r.viewport.Width), float32(r.viewport.Height),
			0, 1,
		)
	}

	packedDepth := depthTex != nil && depthTex.Format() != gfx.FormatDepth32F

	var cleanup []func()
	defer func() {
		for _, f := range cleanup {
			f()
		}
	}()

	for _, mesh := range meshes {
		uniforms := meshUniforms{
			Projection: r.projection,
			View:       r.view,
			Model:      mesh.transform,
			Color:      mesh.color,
			Params:     [4]float32{boolToFloat(packedDepth), r.near, r.far, 0},
		}
		if uniforms.Model.IsZero() {
			uniforms.Model = glm.IdentityMat4[float32]()
		}

		bufUniforms, err := r.backend.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    mesh.label + ".Uniforms",
			Contents: asByteSlice(&uniforms),
			Usage:    wgpu.BufferUsageUniform,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer: %w", err)
		}
		cleanup = append(cleanup, bufUniforms.Release)

		layout := pipeline.GetBindGroupLayout(0)
		bindGroup, err := r.backend.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  mesh.label + ".BindGroup",
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: bufUniforms, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("create bind group: %w", err)
		}
		cleanup = append(cleanup, bindGroup.Release)

		pass.SetBindGroup(0, bindGroup, nil)

		if depthTex != nil && (opts.entry == "fs_mesh_clip" || opts.entry == "fs_wboit") {
			depthLayout := pipeline.GetBindGroupLayout(1)
			depthGroup, err := r.backend.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:  mesh.label + ".DepthBindGroup",
				Layout: depthLayout,
				Entries: []wgpu.BindGroupEntry{
					{Binding: 0, TextureView: depthTex.View()},
				},
			})
			if err != nil {
				return fmt.Errorf("create depth bind group: %w", err)
			}
			cleanup = append(cleanup, depthGroup.Release)

			pass.SetBindGroup(1, depthGroup, nil)
		}

		pass.SetVertexBuffer(0, mesh.bufVertices, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(mesh.bufIndices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(mesh.indexCount, 1, 0, 0, 0)
	}

	if err := pass.End(); err != nil {
		return err
	}

	// must release pass before finishing the encoder
	pass.Release()
	pass = nil

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmdBuffer.Release()

	r.backend.device.Submit(cmdBuffer)

	return nil
}

func boolToFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

type meshPipelineConfig struct {
	Entry      string
	Blend      gfx.BlendMode
	Wboit      bool
	Formats    [maxPassTargets]wgpu.TextureFormat
	NumTargets int
	HasDepth   bool
	DepthWrite bool
}

// wboit accumulation blending: weighted color adds up, revealage
// multiplies down.
var (
	wboitAccumBlend = wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		},
	}

	wboitRevealBlend = wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorZero,
			DstFactor: wgpu.BlendFactorOneMinusSrc,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorZero,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
)

func (conf meshPipelineConfig) Specialize(dev *wgpu.Device) (*wgpu.RenderPipeline, error) {
	slog.Info("Create mesh pipeline",
		slog.String("entry", conf.Entry),
		slog.Any("formats", conf.Formats[:conf.NumTargets]),
		slog.Bool("wboit", conf.Wboit),
	)

	shader, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:      "Mesh.ShaderSource",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: meshShaderCode},
	})
	if err != nil {
		return nil, fmt.Errorf("compile mesh shader: %w", err)
	}
	defer shader.Release()

	var targets []wgpu.ColorTargetState
	for i, f := range conf.Formats[:conf.NumTargets] {
		blend := blendStateOf(conf.Blend)
		if conf.Wboit {
			if i == 0 {
				blend = &wboitAccumBlend
			} else {
				blend = &wboitRevealBlend
			}
		}

		targets = append(targets, wgpu.ColorTargetState{
			Format:    f,
			Blend:     blend,
			WriteMask: wgpu.ColorWriteMaskAll,
		})
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label: fmt.Sprintf("Mesh.%s", conf.Entry),
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(Vertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{
							// position
							Format:         wgpu.VertexFormatFloat32x3,
							Offset:         uint64(unsafe.Offsetof(Vertex{}.Position)),
							ShaderLocation: 0,
						},
						{
							// normal
							Format:         wgpu.VertexFormatFloat32x3,
							Offset:         uint64(unsafe.Offsetof(Vertex{}.Normal)),
							ShaderLocation: 1,
						},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: conf.Entry,
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	}

	if conf.HasDepth {
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: conf.DepthWrite,
			DepthCompare:      wgpu.CompareFunctionLessEqual,
		}
	}

	pipeline, err := dev.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("build mesh pipeline: %w", err)
	}

	return pipeline, nil
}
