package raster

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/raster/pkg/texture"
)

// Draw blits fb onto a terminal screen using half-block cells: each
// terminal row packs two framebuffer rows, the upper one as foreground and
// the lower as background of a "▀" glyph, doubling effective vertical
// resolution. fb's row 0 is mathematically the bottom of the image (y-up);
// this is where the flip BlitToDisplay describes actually happens, walking
// framebuffer rows from the top down as terminal rows increase.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := fb.Height - 1 - row*2
		botY := topY - 1

		for col := area.Min.X; col < area.Max.X && col < fb.Width; col++ {
			topColor := pixelToColor(fb.GetPixel(col, topY))
			botColor := pixelToColor(fb.GetPixel(col, botY))

			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: topColor,
					Bg: botColor,
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// pixelToColor converts a packed RGBA32 pixel to a terminal color, treating
// fully transparent pixels (alpha 0, including out-of-bounds reads) as "no
// color" rather than opaque black.
func pixelToColor(c uint32) color.Color {
	r, g, b, a := texture.Unpack(c)
	if a == 0 {
		return nil
	}
	return color.RGBA{R: r, G: g, B: b, A: a}
}

// TerminalRenderer owns the half-block screen buffer used to present a
// Framebuffer in a terminal. A terminal cell packs two framebuffer rows, so
// the backing framebuffer should be allocated at FramebufferSize, twice as
// tall as the terminal viewport this renderer targets.
type TerminalRenderer struct {
	term                  *uv.Terminal
	screen                *uv.Window
	termWidth, termHeight int
}

// NewTerminalRenderer builds a renderer for a termWidth x termHeight
// terminal viewport (measured in cells).
func NewTerminalRenderer(term *uv.Terminal, termWidth, termHeight int) *TerminalRenderer {
	return &TerminalRenderer{
		term:       term,
		screen:     uv.NewScreen(termWidth, termHeight),
		termWidth:  termWidth,
		termHeight: termHeight,
	}
}

// FramebufferSize returns the pixel dimensions a Framebuffer must be
// allocated at to exactly cover this renderer's terminal viewport.
func (t *TerminalRenderer) FramebufferSize() (width, height int) {
	return t.termWidth, t.termHeight * 2
}

// Render draws fb's current contents into the renderer's internal screen
// buffer. It does not touch the terminal; call Flush to present it.
func (t *TerminalRenderer) Render(fb *Framebuffer) {
	fb.Draw(t.screen, uv.Rect(0, 0, t.termWidth, t.termHeight))
}

// Flush diffs the internal screen buffer against the terminal's last
// presented frame and writes only the changed cells.
func (t *TerminalRenderer) Flush() error {
	t.term.Draw(t.screen)
	return t.term.Display()
}
