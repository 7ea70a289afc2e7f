package tracker

import (
	"image"
	"image/color"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lowaak/fitkage/fitkage-app/internal/fillglass"
)

// glassPixelsPerCell is the oversampling of one half-block cell row.
const glassPixelsPerCell = 8

// halfCell holds the two colors shown by one terminal cell drawn as '▀'.
type halfCell struct {
	top    color.RGBA
	bottom color.RGBA
}

// GlassPrimitive draws a fillglass.Glass into a tview box using half-block cells.
type GlassPrimitive struct {
	*tview.Box
	glass      *fillglass.Glass
	clock      func() time.Time
	background color.RGBA
}

func NewGlassPrimitive(glass *fillglass.Glass, clock func() time.Time) *GlassPrimitive {
	if glass == nil {
		panic("GlassPrimitive: glass cannot be nil")
	}
	if clock == nil {
		clock = time.Now
	}
	return &GlassPrimitive{
		Box:        tview.NewBox(),
		glass:      glass,
		clock:      clock,
		background: color.RGBA{A: 0xff},
	}
}

// Draw advances the fill animation and renders one frame.
func (p *GlassPrimitive) Draw(screen tcell.Screen) {
	p.Box.DrawForSubclass(screen, p)
	x, y, width, height := p.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}

	p.glass.Tick(p.clock())
	canvas := fillglass.NewRasterCanvas(width*glassPixelsPerCell, 2*height*glassPixelsPerCell)
	p.glass.Draw(canvas)

	cells := cellsFromImage(canvas.Image(), width, height, glassPixelsPerCell, p.background)
	for row := range cells {
		for col, c := range cells[row] {
			style := tcell.StyleDefault.
				Foreground(toTCell(c.top)).
				Background(toTCell(c.bottom))
			screen.SetContent(x+col, y+row, '▀', nil, style)
		}
	}
}

// cellsFromImage averages img into cols by rows cells. Each cell covers a
// scale by 2*scale pixel block: the upper half gives the top color and the
// lower half the bottom color. Transparency is blended onto bg.
func cellsFromImage(img *image.RGBA, cols, rows, scale int, bg color.RGBA) [][]halfCell {
	out := make([][]halfCell, rows)
	for row := 0; row < rows; row++ {
		out[row] = make([]halfCell, cols)
		for col := 0; col < cols; col++ {
			x0 := col * scale
			out[row][col] = halfCell{
				top:    averageBlock(img, x0, 2*row*scale, scale, bg),
				bottom: averageBlock(img, x0, (2*row+1)*scale, scale, bg),
			}
		}
	}
	return out
}

func averageBlock(img *image.RGBA, x0, y0, scale int, bg color.RGBA) color.RGBA {
	b := img.Bounds()
	var r, g, bl, n uint32
	for y := y0; y < y0+scale; y++ {
		for x := x0; x < x0+scale; x++ {
			n++
			if !(image.Point{X: x, Y: y}).In(b) {
				r += uint32(bg.R)
				g += uint32(bg.G)
				bl += uint32(bg.B)
				continue
			}
			// premultiplied source over an opaque background
			c := img.RGBAAt(x, y)
			inv := 0xff - uint32(c.A)
			r += uint32(c.R) + uint32(bg.R)*inv/0xff
			g += uint32(c.G) + uint32(bg.G)*inv/0xff
			bl += uint32(c.B) + uint32(bg.B)*inv/0xff
		}
	}
	if n == 0 {
		return bg
	}
	return color.RGBA{R: clamp8(r / n), G: clamp8(g / n), B: clamp8(bl / n), A: 0xff}
}

func clamp8(v uint32) uint8 {
	if v > 0xff {
		return 0xff
	}
	return uint8(v)
}

func toTCell(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
