package soft

import "github.com/rdirisio/molstar/gfx"

// Pass runs a full-screen pass by executing the spec's kernel against
// the bound target's first color attachment. Passes without a kernel
// are recorded in the event log but produce no pixels.
type Pass struct {
	ctx      *Context
	spec     gfx.ShaderSpec
	textures map[string]gfx.Texture
	uniforms map[string]any
	viewport gfx.Viewport
}

var _ gfx.Pass = (*Pass)(nil)

func (p *Pass) SetTexture(name string, t gfx.Texture) {
	p.textures[name] = t
}

func (p *Pass) SetUniform(name string, value any) {
	p.uniforms[name] = value
}

func (p *Pass) SetViewport(v gfx.Viewport) {
	p.viewport = v
}

func (p *Pass) Render() {
	p.ctx.Record("pass", p.spec.Name)

	if p.spec.Kernel == nil {
		return
	}

	bound := p.ctx.bound
	if bound == nil {
		panic("pass rendered without a bound target")
	}

	inputs := make(map[string]*gfx.Framebuf, len(p.textures))
	for name, t := range p.textures {
		if st, ok := t.(*Texture); ok && st.buf != nil {
			inputs[name] = st.buf
		}
	}

	dst := bound.colors[0].buf

	v := p.viewport
	if v.Width <= 0 || v.Height <= 0 {
		p.spec.Kernel(dst, inputs, p.uniforms)
		return
	}

	// kernels always compute the full plane; the viewport scopes which
	// pixels actually land in the target
	tmp := gfx.NewFramebuf(dst.Width, dst.Height, dst.Channels)
	p.spec.Kernel(tmp, inputs, p.uniforms)

	x0, y0 := clampi(int(v.X), 0, dst.Width), clampi(int(v.Y), 0, dst.Height)
	x1 := clampi(int(v.X+v.Width), 0, dst.Width)
	y1 := clampi(int(v.Y+v.Height), 0, dst.Height)

	for y := y0; y < y1; y++ {
		i := (y*dst.Width + x0) * dst.Channels
		j := (y*dst.Width + x1) * dst.Channels
		copy(dst.Pix[i:j], tmp.Pix[i:j])
	}
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
