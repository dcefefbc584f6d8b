package prism

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/rdirisio/molstar/gfx"
	"github.com/rdirisio/molstar/glm"
)

// Pass is a full-screen shader pass. The WGSL binding convention is
// fixed: input textures in alphabetical order starting at binding 0,
// then one uniform struct of vec4 slots, fields in alphabetical order.
type Pass struct {
	backend *Backend
	spec    gfx.ShaderSpec

	textures map[string]gfx.Texture
	uniforms map[string]any
	viewport gfx.Viewport

	pipelines *PipelineCache[passPipelineConfig]
}

var _ gfx.Pass = (*Pass)(nil)

func newPass(b *Backend, spec gfx.ShaderSpec) (*Pass, error) {
	if spec.Source == "" {
		return nil, fmt.Errorf("pass %q has no shader source", spec.Name)
	}

	return &Pass{
		backend:   b,
		spec:      spec,
		textures:  map[string]gfx.Texture{},
		uniforms:  map[string]any{},
		pipelines: NewPipelineCache[passPipelineConfig](b.device),
	}, nil
}

func (p *Pass) SetTexture(name string, t gfx.Texture) {
	p.textures[name] = t
}

func (p *Pass) SetUniform(name string, value any) {
	p.uniforms[name] = value
}

func (p *Pass) SetViewport(v gfx.Viewport) {
	p.viewport = v
}

// uniformSlot widens a uniform value to the vec4 slot it occupies.
func uniformSlot(name string, value any) [4]float32 {
	switch v := value.(type) {
	case float32:
		return [4]float32{v}
	case int:
		return [4]float32{float32(v)}
	case bool:
		if v {
			return [4]float32{1}
		}
		return [4]float32{}
	case glm.Vec2f:
		return [4]float32{v[0], v[1]}
	case glm.Vec3f:
		return [4]float32{v[0], v[1], v[2]}
	case glm.Vec4f:
		return [4]float32(v)
	case gfx.Color:
		return [4]float32(v)
	case [4]float32:
		return v
	default:
		panic(fmt.Sprintf("unsupported uniform type for %q: %T", name, value))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *Pass) Render() {
	if err := p.render(); err != nil {
		panic(fmt.Errorf("render pass %q: %w", p.spec.Name, err))
	}
}

func (p *Pass) render() error {
	bound := p.backend.bound
	if bound == nil {
		return fmt.Errorf("no render target bound")
	}

	formats := bound.colorFormats()
	if len(formats) > maxPassTargets {
		return fmt.Errorf("target has %d color attachments, at most %d supported", len(formats), maxPassTargets)
	}

	useDepth := (p.spec.State.DepthTest || p.spec.State.DepthWrite) && bound.depthView() != nil

	conf := passPipelineConfig{
		Name:       p.spec.Name,
		Shader:     p.spec.Source,
		Blend:      p.spec.State.Blend,
		NumTargets: len(formats),
		DepthTest:  p.spec.State.DepthTest && useDepth,
		DepthWrite: p.spec.State.DepthWrite && useDepth,
	}
	copy(conf.Formats[:], formats)

	pipeline, err := p.pipelines.Get(conf)
	if err != nil {
		return err
	}

	var entries []wgpu.BindGroupEntry

	for i, name := range sortedKeys(p.textures) {
		tex, ok := p.textures[name].(*Texture)
		if !ok {
			return fmt.Errorf("texture %q is not a prism texture", name)
		}

		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(i),
			TextureView: tex.View(),
		})
	}

	var bufUniforms *wgpu.Buffer
	if len(p.uniforms) > 0 {
		var data []float32
		for _, name := range sortedKeys(p.uniforms) {
			slot := uniformSlot(name, p.uniforms[name])
			data = append(data, slot[:]...)
		}

		bufUniforms, err = p.backend.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    p.spec.Name + ".Uniforms",
			Contents: wgpu.ToBytes(data),
			Usage:    wgpu.BufferUsageUniform,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer: %w", err)
		}
		defer bufUniforms.Release()

		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(len(p.textures)),
			Buffer:  bufUniforms,
			Size:    wgpu.WholeSize,
		})
	}

	bindGroupLayout := pipeline.GetBindGroupLayout(0)

	bindGroup, err := p.backend.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.spec.Name + ".BindGroup",
		Layout:  bindGroupLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer bindGroup.Release()

	encoder, err := p.backend.device.CreateCommandEncoder(nil)
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
		Label:            "Pass." + p.spec.Name,
		ColorAttachments: attachments,
	}

	if useDepth {
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
	pass.SetBindGroup(0, bindGroup, nil)

	if v := p.viewport; v.Width > 0 && v.Height > 0 {
		pass.SetViewport(float32(v.X), float32(v.Y), float32(v.Width), float32(v.Height), 0, 1)
		pass.SetScissorRect(uint32(v.X), uint32(v.Y), uint32(v.Width), uint32(v.Height))
	}

	// full-screen triangle, vertices synthesized from the vertex index
	pass.Draw(3, 1, 0, 0)

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

	p.backend.device.Submit(cmdBuffer)

	return nil
}

// maxPassTargets bounds the color attachment count a full-screen pass
// can render to, so pipeline configs stay comparable.
const maxPassTargets = 4

type passPipelineConfig struct {
	Name       string
	Shader     string
	Blend      gfx.BlendMode
	Formats    [maxPassTargets]wgpu.TextureFormat
	NumTargets int
	DepthTest  bool
	DepthWrite bool
}

func blendStateOf(mode gfx.BlendMode) *wgpu.BlendState {
	switch mode {
	case gfx.BlendAlpha:
		return &wgpu.BlendStateAlphaBlending
	case gfx.BlendPremultiplied:
		return &wgpu.BlendStatePremultipliedAlphaBlending
	default:
		return &wgpu.BlendStateReplace
	}
}

func (conf passPipelineConfig) Specialize(dev *wgpu.Device) (*wgpu.RenderPipeline, error) {
	slog.Info("Create full-screen pass pipeline",
		slog.String("pass", conf.Name),
		slog.Any("formats", conf.Formats[:conf.NumTargets]),
	)

	shader, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:      conf.Name + ".ShaderSource",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: conf.Shader},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %s shader: %w", conf.Name, err)
	}
	defer shader.Release()

	var targets []wgpu.ColorTargetState
	for _, f := range conf.Formats[:conf.NumTargets] {
		targets = append(targets, wgpu.ColorTargetState{
			Format:    f,
			Blend:     blendStateOf(conf.Blend),
			WriteMask: wgpu.ColorWriteMaskAll,
		})
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label: fmt.Sprintf("Pass.%s", conf.Name),
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	}

	if conf.DepthTest || conf.DepthWrite {
		compare := wgpu.CompareFunctionAlways
		if conf.DepthTest {
			compare = wgpu.CompareFunctionLess
		}

		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: conf.DepthWrite,
			DepthCompare:      compare,
		}
	}

	pipeline, err := dev.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("build %s pipeline: %w", conf.Name, err)
	}

	return pipeline, nil
}
