package draw

// Depth values are packed across the four 8-bit color channels of a
// regular texture on hardware that cannot sample depth textures, and the
// canonical merged depth buffer always stores this encoding.

// PackUnitToRGBA encodes a value in [0, 1] across four 8-bit channels.
func PackUnitToRGBA(v float32) [4]float32 {
	if v >= 1 {
		// fract would wrap a saturated depth to zero, which reads back
		// as the near plane instead of the far plane.
		return [4]float32{1, 0, 0, 0}
	}
	if v <= 0 {
		return [4]float32{}
	}

	enc := [4]float32{
		fract(v),
		fract(v * 255),
		fract(v * 65025),
		fract(v * 16581375),
	}

	enc[0] -= enc[1] / 255
	enc[1] -= enc[2] / 255
	enc[2] -= enc[3] / 255

	return enc
}

// UnpackRGBAToUnit decodes a value packed with PackUnitToRGBA.
func UnpackRGBAToUnit(r, g, b, a float32) float32 {
	return r + g/255 + b/65025 + a/16581375
}

func fract(v float32) float32 {
	return v - float32(int32(v))
}
