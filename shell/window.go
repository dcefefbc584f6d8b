package shell

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/profile"
)

// Window is a native window with a wgpu-compatible surface.
type Window struct {
	win   *glfw.Window
	prof  interface{ Stop() }
	input InputState
}

// NewWindow opens the window. Set MOLSTAR_PROFILE=1 to record a CPU
// profile for the lifetime of the window.
func NewWindow(width, height int, title string) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &Window{win: window}

	if os.Getenv("MOLSTAR_PROFILE") == "1" {
		w.prof = profile.Start(profile.CPUProfile)
	}

	w.configureInput()

	return w, nil
}

func (w *Window) GetSize() (int, int) {
	return w.win.GetSize()
}

func (w *Window) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.win)
}

func (w *Window) Terminate() {
	if w.prof != nil {
		w.prof.Stop()
	}
	w.win.Destroy()
	glfw.Terminate()
}

// Run drives the frame loop until the window is closed or render
// returns an error. The input state handed to render is valid for the
// duration of the call.
func (w *Window) Run(render func(input InputState) error) error {
	for !w.win.ShouldClose() {
		w.input.nextTick()
		glfw.PollEvents()

		if err := render(w.input); err != nil {
			return err
		}
	}

	return nil
}

func (w *Window) configureInput() {
	w.win.SetMouseButtonCallback(func(_ *glfw.Window, btn glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		button := MouseButton(btn)

		switch action {
		case glfw.Press:
			w.input.Mouse.press(button)
		case glfw.Release:
			w.input.Mouse.release(button)
		}
	})

	w.win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		w.input.Mouse.position(float32(xpos), float32(ypos))
	})

	w.win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		w.input.Mouse.scroll(float32(yoff))
	})

	w.win.SetKeyCallback(func(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
		}
	})
}
