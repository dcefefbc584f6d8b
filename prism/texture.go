package prism

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/rdirisio/molstar/gfx"
)

func wgpuFormat(f gfx.TextureFormat) wgpu.TextureFormat {
	switch f {
	case gfx.FormatRGBA32F:
		return wgpu.TextureFormatRGBA32Float
	case gfx.FormatRG32F:
		return wgpu.TextureFormatRG32Float
	case gfx.FormatDepth32F:
		return wgpu.TextureFormatDepth32Float
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

// Texture wraps a wgpu.Texture and its identity view. The Texture object
// keeps its identity over Define calls; only the wgpu resources are
// replaced. Bind groups are rebuilt per render, so stale views never
// leak into a pass.
type Texture struct {
	device *Device

	texture *wgpu.Texture
	view    *wgpu.TextureView

	format gfx.TextureFormat
	label  string

	width  int
	height int
}

var _ gfx.Texture = (*Texture)(nil)

func newTexture(device *Device, opts gfx.TextureOptions) (*Texture, error) {
	t := &Texture{
		device: device,
		format: opts.Format,
		label:  opts.Label,
	}

	if err := t.define(opts.Width, opts.Height); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Texture) define(width, height int) error {
	texture, err := t.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         t.label,
		Format:        wgpuFormat(t.format),
		SampleCount:   1,
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Usage: wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageRenderAttachment |
			wgpu.TextureUsageCopyDst |
			wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create texture %q: %w", t.label, err)
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return fmt.Errorf("create texture view %q: %w", t.label, err)
	}

	t.release()
	t.texture = texture
	t.view = view
	t.width = width
	t.height = height

	return nil
}

func (t *Texture) Define(width, height int) {
	if err := t.define(width, height); err != nil {
		panic(err)
	}
}

func (t *Texture) Size() (width, height int) {
	return t.width, t.height
}

func (t *Texture) View() *wgpu.TextureView { return t.view }

func (t *Texture) Format() gfx.TextureFormat { return t.format }

// WritePixels uploads raw pixel data covering the whole texture. Stride
// is bytes per row, derived from the format when zero.
func (t *Texture) WritePixels(pixels []byte, stride uint32) error {
	if stride == 0 {
		stride = uint32(t.width) * 4
	}

	layout := &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  stride,
		RowsPerImage: uint32(t.height),
	}

	size := &wgpu.Extent3D{
		Width:              uint32(t.width),
		Height:             uint32(t.height),
		DepthOrArrayLayers: 1,
	}

	dest := &wgpu.ImageCopyTexture{
		Texture: t.texture,
		Aspect:  wgpu.TextureAspectAll,
	}

	if err := t.device.WriteTexture(dest, pixels, layout, size); err != nil {
		return fmt.Errorf("upload pixels to %q: %w", t.label, err)
	}

	return nil
}

func (t *Texture) release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// Release frees the wgpu resources. The texture must not be used
// afterwards.
func (t *Texture) Release() { t.release() }
