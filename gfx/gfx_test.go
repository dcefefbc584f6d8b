package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdirisio/molstar/glm"
)

func TestNewCameraPanicsOnBadPlanes(t *testing.T) {
	assert.Panics(t, func() {
		NewCamera(CameraOptions{
			Viewport: Viewport{Width: 100, Height: 100},
			Near:     10,
			Far:      1,
		})
	})
}

func TestNewCameraPerspective(t *testing.T) {
	cam := NewCamera(CameraOptions{
		Viewport: Viewport{Width: 200, Height: 100},
		View:     glm.IdentityMat4[float32](),
		FovY:     glm.DegToRad(90),
		Near:     1,
		Far:      100,
	})

	assert.False(t, cam.Orthographic())
	assert.Equal(t, float32(1), cam.Near())
	assert.Equal(t, float32(100), cam.Far())

	// fovY of 90 degrees gives f = 1; with aspect 2 the x scale halves
	p := cam.Projection()
	assert.InDelta(t, 0.5, p[0], 1e-5)
	assert.InDelta(t, 1.0, p[5], 1e-5)
}

func TestNewCameraOrthographic(t *testing.T) {
	cam := NewCamera(CameraOptions{
		Viewport:     Viewport{Width: 100, Height: 100},
		Near:         1,
		Far:          100,
		Orthographic: true,
		Scale:        10,
	})

	require.True(t, cam.Orthographic())

	// a point 5 units up sits on the top edge of the view volume
	top := cam.Projection().Transform(glm.Vec4f{0, 5, -1, 1})
	assert.InDelta(t, 1, top[1]/top[3], 1e-5)
}

func TestStereoCameraDelegatesToLeftEye(t *testing.T) {
	left := NewCamera(CameraOptions{
		Viewport: Viewport{Width: 50, Height: 100},
		FovY:     glm.DegToRad(45),
		Near:     1,
		Far:      10,
	})
	right := NewCamera(CameraOptions{
		Viewport: Viewport{X: 50, Width: 50, Height: 100},
		FovY:     glm.DegToRad(45),
		Near:     1,
		Far:      10,
	})

	stereo := &StereoCamera{LeftEye: left, RightEye: right}

	assert.Equal(t, left.Viewport(), stereo.Viewport())
	assert.Equal(t, left.Projection(), stereo.Projection())
	assert.Equal(t, int32(50), stereo.Right().Viewport().X)
}

func TestPostprocessingEnabled(t *testing.T) {
	assert.False(t, PostprocessingEnabled(PostprocessingProps{}))
	assert.False(t, PostprocessingEnabled(PostprocessingProps{
		Antialiasing: AntialiasingProps{Enabled: true},
	}))
	assert.True(t, PostprocessingEnabled(PostprocessingProps{
		Occlusion: OcclusionProps{Enabled: true},
	}))
	assert.True(t, PostprocessingEnabled(PostprocessingProps{
		Outline: OutlineProps{Enabled: true},
	}))
}

func TestFramebufAtAliasesPixels(t *testing.T) {
	f := NewFramebuf(4, 4, 3)

	px := f.At(2, 1)
	require.Len(t, px, 3)

	px[0] = 7
	assert.Equal(t, float32(7), f.At(2, 1)[0])
	assert.Equal(t, float32(7), f.Pix[(1*4+2)*3])
}

func TestFramebufFill(t *testing.T) {
	f := NewFramebuf(2, 2, 4)
	f.Fill(0.5)

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			for _, v := range f.At(x, y) {
				assert.Equal(t, float32(0.5), v)
			}
		}
	}
}
