package prism

import (
	"fmt"
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/rdirisio/molstar/gfx"
)

// Backend implements gfx.Context on a webgpu device. Command buffers
// are submitted eagerly at the end of every pass, so Flush has nothing
// left to push.
type Backend struct {
	device *Device
	caps   gfx.Capabilities

	surfaceTarget *Target
	bound         *Target

	frame *wgpu.Texture
}

var _ gfx.Context = (*Backend)(nil)

// NewBackend configures the surface at the given size and wraps the
// device as a graphics context.
func NewBackend(device *Device, width, height int) (*Backend, error) {
	b := &Backend{
		device: device,

		// the webgpu baseline guarantees sampleable depth textures,
		// multiple render targets and blending into float targets
		caps: gfx.Capabilities{
			DepthTexture: true,
			DrawBuffers:  true,
			FloatBlend:   true,
		},
	}

	if err := device.ConfigureSurface(width, height); err != nil {
		return nil, fmt.Errorf("configure surface: %w", err)
	}

	b.surfaceTarget = &Target{
		backend: b,
		label:   "drawing-buffer",
		width:   width,
		height:  height,
		surface: true,
	}

	slog.Info("Create webgpu backend",
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Any("surfaceFormat", device.SurfaceFormat()),
	)

	return b, nil
}

func (b *Backend) Caps() gfx.Capabilities { return b.caps }

func (b *Backend) DrawingBuffer() gfx.RenderTarget { return b.surfaceTarget }

func (b *Backend) Device() *Device { return b.device }

func (b *Backend) CreateRenderTarget(opts gfx.TargetOptions) (gfx.RenderTarget, error) {
	return newTarget(b, opts)
}

func (b *Backend) CreateTexture(opts gfx.TextureOptions) (gfx.Texture, error) {
	return newTexture(b.device, opts)
}

func (b *Backend) CreatePass(spec gfx.ShaderSpec) (gfx.Pass, error) {
	return newPass(b, spec)
}

func (b *Backend) Flush() {
	// every pass submits its command buffer on End, nothing is held back
}

// Resize reconfigures the surface. Offscreen targets are resized by
// their owners.
func (b *Backend) Resize(width, height int) error {
	if err := b.device.ConfigureSurface(width, height); err != nil {
		return err
	}

	b.surfaceTarget.width = width
	b.surfaceTarget.height = height

	return nil
}

// AcquireFrame fetches the surface texture the next frame renders into.
// Must be paired with Present.
func (b *Backend) AcquireFrame() error {
	frame, err := b.device.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}

	view, err := frame.CreateView(nil)
	if err != nil {
		frame.Release()
		return fmt.Errorf("create surface view: %w", err)
	}

	b.frame = frame
	b.surfaceTarget.surfaceView = view

	return nil
}

// Present shows the frame acquired by AcquireFrame and releases it.
func (b *Backend) Present() {
	b.device.Surface.Present()

	if b.surfaceTarget.surfaceView != nil {
		b.surfaceTarget.surfaceView.Release()
		b.surfaceTarget.surfaceView = nil
	}
	if b.frame != nil {
		b.frame.Release()
		b.frame = nil
	}
}
