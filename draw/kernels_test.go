package draw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdirisio/molstar/gfx"
)

func packedPlane(width, height int, depth func(x, y int) float32) *gfx.Framebuf {
	buf := gfx.NewFramebuf(width, height, 4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			enc := PackUnitToRGBA(depth(x, y))
			copy(buf.At(x, y), enc[:])
		}
	}
	return buf
}

func TestPackUnitRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1e-6, 0.1, 0.25, 1.0 / 3.0, 0.5, 0.75, 0.99, 0.999999, 1} {
		enc := PackUnitToRGBA(v)
		got := UnpackRGBAToUnit(enc[0], enc[1], enc[2], enc[3])
		assert.InDelta(t, v, got, 1e-5, "depth %v", v)
	}
}

func TestPackUnitSaturates(t *testing.T) {
	assert.Equal(t, [4]float32{1, 0, 0, 0}, PackUnitToRGBA(1))
	assert.Equal(t, [4]float32{1, 0, 0, 0}, PackUnitToRGBA(1.5))
	assert.Equal(t, [4]float32{}, PackUnitToRGBA(0))
	assert.Equal(t, [4]float32{}, PackUnitToRGBA(-0.5))
}

func TestDepthMergeKernelPacked(t *testing.T) {
	prims := packedPlane(4, 4, func(x, y int) float32 {
		if x < 2 {
			return 0.3
		}
		return 1
	})
	vols := packedPlane(4, 4, func(x, y int) float32 {
		if y < 2 {
			return 0.7
		}
		return 1
	})

	dst := gfx.NewFramebuf(4, 4, 4)
	depthMergeKernel(dst, map[string]*gfx.Framebuf{
		"tDepthPrimitives": prims,
		"tDepthVolumes":    vols,
	}, map[string]any{"uPackedDepth": true})

	read := func(x, y int) float32 {
		px := dst.At(x, y)
		return UnpackRGBAToUnit(px[0], px[1], px[2], px[3])
	}

	assert.InDelta(t, 0.3, read(0, 0), 1e-5, "primitive wins where nearer")
	assert.InDelta(t, 0.7, read(3, 0), 1e-5, "volume wins where nearer")
	assert.InDelta(t, 0.3, read(0, 3), 1e-5)
	assert.InDelta(t, 1.0, read(3, 3), 1e-5, "background stays at the far plane")
}

func TestDepthMergeKernelNative(t *testing.T) {
	prims := gfx.NewFramebuf(2, 1, 1)
	vols := gfx.NewFramebuf(2, 1, 1)
	prims.At(0, 0)[0] = 0.2
	prims.At(1, 0)[0] = 0.9
	vols.At(0, 0)[0] = 0.5
	vols.At(1, 0)[0] = 0.4

	dst := gfx.NewFramebuf(2, 1, 4)
	depthMergeKernel(dst, map[string]*gfx.Framebuf{
		"tDepthPrimitives": prims,
		"tDepthVolumes":    vols,
	}, map[string]any{"uPackedDepth": false})

	px := dst.At(0, 0)
	assert.InDelta(t, 0.2, UnpackRGBAToUnit(px[0], px[1], px[2], px[3]), 1e-5)

	px = dst.At(1, 0)
	assert.InDelta(t, 0.4, UnpackRGBAToUnit(px[0], px[1], px[2], px[3]), 1e-5)
}

func TestDepthMergeKernelIdempotent(t *testing.T) {
	prims := packedPlane(3, 3, func(x, y int) float32 {
		return float32(x+y*3) / 9
	})
	vols := packedPlane(3, 3, func(x, y int) float32 { return 1 })

	first := gfx.NewFramebuf(3, 3, 4)
	depthMergeKernel(first, map[string]*gfx.Framebuf{
		"tDepthPrimitives": prims,
		"tDepthVolumes":    vols,
	}, map[string]any{"uPackedDepth": true})

	// merging the merged result with itself must not drift
	second := gfx.NewFramebuf(3, 3, 4)
	depthMergeKernel(second, map[string]*gfx.Framebuf{
		"tDepthPrimitives": first,
		"tDepthVolumes":    first,
	}, map[string]any{"uPackedDepth": true})

	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			a := first.At(x, y)
			b := second.At(x, y)
			assert.InDelta(t,
				UnpackRGBAToUnit(a[0], a[1], a[2], a[3]),
				UnpackRGBAToUnit(b[0], b[1], b[2], b[3]),
				1e-5, "pixel (%d, %d)", x, y)
		}
	}
}

func TestCopyKernel(t *testing.T) {
	src := gfx.NewFramebuf(2, 2, 4)
	for i := range src.Pix {
		src.Pix[i] = float32(i) / float32(len(src.Pix))
	}

	dst := gfx.NewFramebuf(2, 2, 4)
	copyKernel(dst, map[string]*gfx.Framebuf{"tColor": src}, nil)

	assert.Equal(t, src.Pix, dst.Pix)
}

func TestViewZ(t *testing.T) {
	const near, far = 1.0, 100.0

	assert.InDelta(t, -near, viewZ(0, near, far, false), 1e-4)
	assert.InDelta(t, -far, viewZ(1, near, far, false), 1e-2)

	assert.InDelta(t, -near, viewZ(0, near, far, true), 1e-5)
	assert.InDelta(t, -far, viewZ(1, near, far, true), 1e-4)
}

func TestOutlineKernelSilhouette(t *testing.T) {
	const near, far = 1.0, 100.0
	const objectDepth = 0.2

	// a 3x3 object block centered in an otherwise empty 7x7 frame
	depth := packedPlane(7, 7, func(x, y int) float32 {
		if x >= 2 && x <= 4 && y >= 2 && y <= 4 {
			return objectDepth
		}
		return 1
	})

	dst := gfx.NewFramebuf(7, 7, 4)
	outlineKernel(dst, map[string]*gfx.Framebuf{"tDepth": depth}, map[string]any{
		"uNear":                 float32(near),
		"uFar":                  float32(far),
		"uOrthographic":         false,
		"uMaxPossibleViewZDiff": float32(0.5),
	})

	// background pixels touching the object form the silhouette and carry
	// the occluder's depth
	edge := dst.At(1, 1)
	require.Equal(t, float32(0), edge[0])
	assert.InDelta(t, objectDepth, unpackRGToUnit(edge[1], edge[2]), 0.005)

	assert.Equal(t, float32(0), dst.At(1, 3)[0])
	assert.Equal(t, float32(0), dst.At(3, 5)[0])

	// the object itself is nearer than all its neighbors, no outline
	assert.Equal(t, float32(1), dst.At(3, 3)[0])
	assert.Equal(t, float32(1), dst.At(2, 2)[0])

	// background far from the object stays clean
	assert.Equal(t, float32(1), dst.At(0, 0)[0])
	assert.Equal(t, float32(1), dst.At(6, 6)[0])
}

func TestOutlineKernelContinuousSurface(t *testing.T) {
	// a shallow depth ramp is one continuous surface, never an outline
	depth := packedPlane(5, 5, func(x, y int) float32 {
		return 0.3 + 0.0001*float32(x)
	})

	dst := gfx.NewFramebuf(5, 5, 4)
	outlineKernel(dst, map[string]*gfx.Framebuf{"tDepth": depth}, map[string]any{
		"uNear":                 float32(1),
		"uFar":                  float32(100),
		"uOrthographic":         false,
		"uMaxPossibleViewZDiff": float32(0.5),
	})

	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			assert.Equal(t, float32(1), dst.At(x, y)[0], "pixel (%d, %d)", x, y)
		}
	}
}

func TestMaxPossibleViewZDiff(t *testing.T) {
	cam := gfx.NewCamera(gfx.CameraOptions{
		Viewport: gfx.Viewport{Width: 100, Height: 100},
		FovY:     1,
		Near:     1,
		Far:      1001,
	})

	assert.InDelta(t, 1.0, maxPossibleViewZDiff(cam, 1), 1e-5)
	assert.InDelta(t, 2.0, maxPossibleViewZDiff(cam, 2), 1e-5)

	// a non-positive threshold falls back to the neutral factor
	assert.InDelta(t, 1.0, maxPossibleViewZDiff(cam, 0), 1e-5)
}
