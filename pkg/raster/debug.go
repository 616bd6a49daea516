package raster

// DrawLine draws a 1-pixel-wide line from (x0,y0) to (x1,y1) using a
// Bresenham variant that transposes steep lines (slope magnitude > 1) onto
// the shallow axis before stepping, and transposes each plotted point back.
// This guarantees exactly one pixel per column on shallow lines and exactly
// one pixel per row on steep ones, with no gaps either way.
func DrawLine(fb *Framebuffer, x0, y0, x1, y1 int, color uint32) {
	steep := false
	if abs(x0-x1) < abs(y0-y1) {
		x0, y0 = y0, x0
		x1, y1 = y1, x1
		steep = true
	}
	if x0 > x1 {
		x0, x1 = x1, x0
		y0, y1 = y1, y0
	}

	dx := x1 - x0
	derror2 := abs(y1-y0) * 2
	error2 := 0
	y := y0
	yDir := 1
	if y1 < y0 {
		yDir = -1
	}

	for x := x0; x <= x1; x++ {
		if steep {
			fb.SetPixel(y, x, color)
		} else {
			fb.SetPixel(x, y, color)
		}
		error2 += derror2
		if error2 > dx {
			y += yDir
			error2 -= dx * 2
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// DrawWireframeTriangle draws the three screen-space edges of a triangle
// given its already viewport-mapped vertices.
func DrawWireframeTriangle(fb *Framebuffer, x0, y0, x1, y1, x2, y2 int, color uint32) {
	DrawLine(fb, x0, y0, x1, y1, color)
	DrawLine(fb, x1, y1, x2, y2, color)
	DrawLine(fb, x2, y2, x0, y0, color)
}

// VisualizeDepth overwrites the whole pixel buffer with a grayscale
// rendering of the depth buffer, mapping each reciprocal-w sample through
// the gamma LUT. Untouched pixels (depth 0) come out black. Run it after a
// rasterization pass to inspect occlusion without disturbing the depth
// buffer itself.
func VisualizeDepth(fb *Framebuffer) {
	for i, d := range fb.Depth {
		g := quantizeDepth(d)
		fb.Pixels[i] = packGray(g)
	}
}
