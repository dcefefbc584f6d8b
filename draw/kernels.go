package draw

import (
	"github.com/rdirisio/molstar/gfx"
)

// CPU reference implementations of the full-screen passes. The soft
// backend executes these; the WGSL sources in shaders/ implement the
// same computations for the GPU backend.

// readDepth returns the scene depth at (x, y) from either a packed RGBA
// plane or a single channel depth plane.
func readDepth(buf *gfx.Framebuf, x, y int, packed bool) float32 {
	px := buf.At(x, y)
	if packed {
		return UnpackRGBAToUnit(px[0], px[1], px[2], px[3])
	}
	return px[0]
}

// depthMergeKernel folds two depth sources into the canonical depth
// buffer by per-pixel nearest-wins selection. The result is always
// stored packed.
func depthMergeKernel(dst *gfx.Framebuf, inputs map[string]*gfx.Framebuf, uniforms map[string]any) {
	prims := inputs["tDepthPrimitives"]
	vols := inputs["tDepthVolumes"]
	packed, _ := uniforms["uPackedDepth"].(bool)

	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			d := min(readDepth(prims, x, y, packed), readDepth(vols, x, y, packed))

			out := PackUnitToRGBA(d)
			copy(dst.At(x, y), out[:])
		}
	}
}

// copyKernel copies the color source verbatim.
func copyKernel(dst *gfx.Framebuf, inputs map[string]*gfx.Framebuf, uniforms map[string]any) {
	src := inputs["tColor"]
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			copy(dst.At(x, y), src.At(x, y))
		}
	}
}

// backgroundDepth is the normalized depth from which on a pixel counts
// as background for outline detection.
const backgroundDepth = 0.99

// viewZ converts normalized device depth to a linear distance along the
// viewing axis.
func viewZ(depth, near, far float32, orthographic bool) float32 {
	if orthographic {
		return depth*(near-far) - near
	}
	return (near * far) / ((far-near)*depth - far)
}

// outlineKernel is a silhouette detector over the canonical merged
// depth: a pixel is an outline pixel if some neighbor in its 3x3 window
// occludes it by more than the maximum possible view-space depth
// difference of a continuous surface. Output per pixel: outline flag
// (1 = no outline, 0 = outline) and the nearest occluder depth packed
// across two channels.
func outlineKernel(dst *gfx.Framebuf, inputs map[string]*gfx.Framebuf, uniforms map[string]any) {
	depth := inputs["tDepth"]
	near, _ := uniforms["uNear"].(float32)
	far, _ := uniforms["uFar"].(float32)
	ortho, _ := uniforms["uOrthographic"].(bool)
	maxDiff, _ := uniforms["uMaxPossibleViewZDiff"].(float32)

	selfZ := func(x, y int) (float32, float32) {
		d := readDepth(depth, x, y, true)
		if d >= backgroundDepth {
			// push background beyond any real surface so it never
			// triggers a false outline against geometry
			return d, far + 3*maxDiff
		}
		return d, viewZ(d, near, far, ortho)
	}

	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			d, z := selfZ(x, y)

			outline := float32(1)
			bestDepth := float32(1)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= dst.Width || ny >= dst.Height {
						continue
					}

					nd, nz := selfZ(nx, ny)
					if abs32(z-nz) > maxDiff && d > nd && nd < bestDepth {
						outline = 0
						bestDepth = nd
					}
				}
			}

			hi, lo := packUnitToRG(bestDepth)
			px := dst.At(x, y)
			px[0] = outline
			px[1] = hi
			px[2] = lo
			if dst.Channels > 3 {
				px[3] = 1
			}
		}
	}
}

// packUnitToRG packs a value in [0, 1] across two 8-bit channels for
// sub-pixel precision of the occluder depth.
func packUnitToRG(v float32) (hi, lo float32) {
	if v >= 1 {
		return 1, 0
	}
	hi = fract(v)
	lo = fract(v * 255)
	hi -= lo / 255
	return hi, lo
}

func unpackRGToUnit(hi, lo float32) float32 {
	return hi + lo/255
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
