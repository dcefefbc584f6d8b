package prism

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/rdirisio/molstar/gfx"
	"github.com/rdirisio/molstar/glm"
)

// Vertex is the interleaved mesh vertex layout.
type Vertex struct {
	Position glm.Vec3f
	Normal   glm.Vec3f
}

// MeshOptions describes a renderable mesh. Transparent meshes are drawn
// by the transparency passes, opaque ones by the opaque passes.
type MeshOptions struct {
	Label    string
	Vertices []Vertex
	Indices  []uint32

	Color       gfx.Color
	Transform   glm.Mat4f
	Transparent bool
}

// Mesh is a triangle mesh with GPU-resident vertex and index buffers.
type Mesh struct {
	label string

	bufVertices *wgpu.Buffer
	bufIndices  *wgpu.Buffer
	indexCount  uint32

	color       gfx.Color
	transform   glm.Mat4f
	transparent bool
}

var _ gfx.Renderable = (*Mesh)(nil)

func NewMesh(device *Device, opts MeshOptions) (*Mesh, error) {
	if len(opts.Indices)%3 != 0 {
		return nil, fmt.Errorf("mesh %q: index count %d is not a multiple of 3", opts.Label, len(opts.Indices))
	}

	bufVertices, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    opts.Label + ".Vertices",
		Contents: wgpu.ToBytes(opts.Vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}

	bufIndices, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    opts.Label + ".Indices",
		Contents: wgpu.ToBytes(opts.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		bufVertices.Release()
		return nil, fmt.Errorf("create index buffer: %w", err)
	}

	return &Mesh{
		label:       opts.Label,
		bufVertices: bufVertices,
		bufIndices:  bufIndices,
		indexCount:  uint32(len(opts.Indices)),
		color:       opts.Color,
		transform:   opts.Transform,
		transparent: opts.Transparent,
	}, nil
}

func (m *Mesh) Transparent() bool { return m.transparent }

// SetTransform replaces the model transform for subsequent frames.
func (m *Mesh) SetTransform(t glm.Mat4f) { m.transform = t }

func (m *Mesh) SetColor(c gfx.Color) { m.color = c }

func (m *Mesh) Release() {
	if m.bufVertices != nil {
		m.bufVertices.Release()
		m.bufVertices = nil
	}
	if m.bufIndices != nil {
		m.bufIndices.Release()
		m.bufIndices = nil
	}
}
