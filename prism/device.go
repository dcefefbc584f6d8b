// Package prism is the webgpu backend of the gfx interfaces. Offscreen
// render targets are wgpu textures, full-screen passes compile their
// WGSL sources into cached render pipelines, and the scene renderer
// draws instanced meshes.
package prism

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var forceFallbackAdapter = os.Getenv("WGPU_FORCE_FALLBACK_ADAPTER") == "1"

func init() {
	runtime.LockOSThread()

	switch strings.ToUpper(os.Getenv("WGPU_LOG_LEVEL")) {
	case "OFF":
		wgpu.SetLogLevel(wgpu.LogLevelOff)
	case "ERROR":
		wgpu.SetLogLevel(wgpu.LogLevelError)
	case "WARN":
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	case "INFO":
		wgpu.SetLogLevel(wgpu.LogLevelInfo)
	case "DEBUG":
		wgpu.SetLogLevel(wgpu.LogLevelDebug)
	case "TRACE":
		wgpu.SetLogLevel(wgpu.LogLevelTrace)
	}
}

// Device encapsulates the low level webgpu state: instance, surface,
// adapter, device and queue.
type Device struct {
	*wgpu.Device
	*wgpu.Queue
	Surface *wgpu.Surface
	Adapter *wgpu.Adapter

	surfaceFormat wgpu.TextureFormat
}

func NewDevice(sd *wgpu.SurfaceDescriptor) (d *Device, err error) {
	defer func() {
		if err != nil && d != nil {
			d.Release()
			d = nil
		}
	}()

	d = &Device{}

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	d.Surface = instance.CreateSurface(sd)

	d.Adapter, err = instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    d.Surface,
	})
	if err != nil {
		return
	}

	d.Device, err = d.Adapter.RequestDevice(nil)
	if err != nil {
		return
	}

	d.Queue = d.Device.GetQueue()

	return d, nil
}

// ConfigureSurface (re)configures the presentation surface for the
// given size. Must be called before the first frame and after every
// window resize.
func (d *Device) ConfigureSurface(width, height int) error {
	caps := d.Surface.GetCapabilities(d.Adapter)
	if len(caps.Formats) == 0 {
		return fmt.Errorf("surface reports no supported formats")
	}

	d.surfaceFormat = caps.Formats[0]

	d.Surface.Configure(d.Adapter, d.Device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	})

	return nil
}

func (d *Device) SurfaceFormat() wgpu.TextureFormat {
	return d.surfaceFormat
}

func (d *Device) Release() {
	if d.Queue != nil {
		d.Queue.Release()
		d.Queue = nil
	}

	if d.Device != nil {
		d.Device.Release()
		d.Device = nil
	}

	if d.Adapter != nil {
		d.Adapter.Release()
		d.Adapter = nil
	}

	if d.Surface != nil {
		d.Surface.Release()
		d.Surface = nil
	}
}
