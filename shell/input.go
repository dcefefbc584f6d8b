// Package shell opens the native window the viewer renders into and
// feeds input state to the frame callback.
package shell

type MouseButton uint32

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

type MouseState struct {
	CursorX, CursorY float32

	// cursor movement since the last tick
	DeltaX, DeltaY float32

	// accumulated scroll since the last tick
	Scroll float32

	Pressed map[MouseButton]bool

	prevX, prevY float32
	hasPrev      bool
}

func (m *MouseState) press(button MouseButton) {
	if m.Pressed == nil {
		m.Pressed = map[MouseButton]bool{}
	}
	m.Pressed[button] = true
}

func (m *MouseState) release(button MouseButton) {
	if m.Pressed == nil {
		m.Pressed = map[MouseButton]bool{}
	}
	m.Pressed[button] = false
}

func (m *MouseState) position(x, y float32) {
	m.CursorX = x
	m.CursorY = y

	if m.hasPrev {
		m.DeltaX += x - m.prevX
		m.DeltaY += y - m.prevY
	}

	m.prevX, m.prevY = x, y
	m.hasPrev = true
}

func (m *MouseState) scroll(dy float32) {
	m.Scroll += dy
}

func (m *MouseState) nextTick() {
	m.DeltaX = 0
	m.DeltaY = 0
	m.Scroll = 0
}

type InputState struct {
	Mouse MouseState
}

func (s *InputState) nextTick() {
	s.Mouse.nextTick()
}
