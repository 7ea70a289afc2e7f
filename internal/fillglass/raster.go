package fillglass

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// RasterCanvas is a Canvas backed by an RGBA image.
// Clips are alpha masks intersected on each ClipPath.
type RasterCanvas struct {
	img       *image.RGBA
	clip      *image.Alpha
	saved     []*image.Alpha
	tolerance float64
}

// NewRasterCanvas returns a transparent canvas of w by h pixels.
func NewRasterCanvas(w, h int) *RasterCanvas {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &RasterCanvas{
		img:       image.NewRGBA(image.Rect(0, 0, w, h)),
		tolerance: 0.25,
	}
}

// Image returns the backing image.
func (c *RasterCanvas) Image() *image.RGBA {
	return c.img
}

// Clear fills the whole image with col, ignoring the clip.
func (c *RasterCanvas) Clear(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *RasterCanvas) Size() (float64, float64) {
	b := c.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (c *RasterCanvas) Save() {
	c.saved = append(c.saved, c.clip)
}

func (c *RasterCanvas) Restore() {
	n := len(c.saved)
	if n == 0 {
		return
	}
	c.clip = c.saved[n-1]
	c.saved = c.saved[:n-1]
}

func (c *RasterCanvas) ClipPath(p *Path) {
	c.clip = c.withClip(c.fillMask(p))
}

func (c *RasterCanvas) FillPath(p *Path, col color.Color) {
	c.paint(c.withClip(c.fillMask(p)), col)
}

// StrokePath draws each flattened segment as a quad of the given width,
// with square caps at the vertices to cover the joins.
func (c *RasterCanvas) StrokePath(p *Path, col color.Color, width float64) {
	if width <= 0 || c.empty() {
		return
	}
	b := c.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	hw := width / 2
	for _, line := range p.Flatten(c.tolerance) {
		pts := line.Points
		if line.Closed && len(pts) > 1 {
			pts = append(append([]Point(nil), pts...), pts[0])
		}
		for i := 0; i+1 < len(pts); i++ {
			addSegmentQuad(z, pts[i], pts[i+1], hw)
		}
		for _, pt := range pts {
			addSquare(z, pt, hw)
		}
	}
	mask := image.NewAlpha(b)
	z.Draw(mask, b, image.Opaque, image.Point{})
	c.paint(c.withClip(mask), col)
}

func (c *RasterCanvas) empty() bool {
	b := c.img.Bounds()
	return b.Dx() == 0 || b.Dy() == 0
}

func (c *RasterCanvas) paint(mask *image.Alpha, col color.Color) {
	if mask == nil {
		return
	}
	draw.DrawMask(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, mask, image.Point{}, draw.Over)
}

// fillMask rasterizes p with every subpath closed.
func (c *RasterCanvas) fillMask(p *Path) *image.Alpha {
	if c.empty() {
		return nil
	}
	b := c.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	open := false
	for _, s := range p.Segments() {
		switch s.Op {
		case OpMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(f32(s.Pts[0].X), f32(s.Pts[0].Y))
			open = true
		case OpLineTo:
			z.LineTo(f32(s.Pts[0].X), f32(s.Pts[0].Y))
		case OpQuadTo:
			z.QuadTo(f32(s.Pts[0].X), f32(s.Pts[0].Y), f32(s.Pts[1].X), f32(s.Pts[1].Y))
		case OpClose:
			if open {
				z.ClosePath()
				open = false
			}
		}
	}
	if open {
		z.ClosePath()
	}
	mask := image.NewAlpha(b)
	z.Draw(mask, b, image.Opaque, image.Point{})
	return mask
}

// withClip multiplies mask by the current clip.
func (c *RasterCanvas) withClip(mask *image.Alpha) *image.Alpha {
	if mask == nil || c.clip == nil {
		return mask
	}
	out := image.NewAlpha(mask.Rect)
	for i := range out.Pix {
		out.Pix[i] = uint8(uint16(mask.Pix[i]) * uint16(c.clip.Pix[i]) / 0xff)
	}
	return out
}

// addSegmentQuad keeps a fixed winding so overlapping pieces saturate
// instead of cancelling.
func addSegmentQuad(z *vector.Rasterizer, a, b Point, hw float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw
	z.MoveTo(f32(a.X+nx), f32(a.Y+ny))
	z.LineTo(f32(b.X+nx), f32(b.Y+ny))
	z.LineTo(f32(b.X-nx), f32(b.Y-ny))
	z.LineTo(f32(a.X-nx), f32(a.Y-ny))
	z.ClosePath()
}

func addSquare(z *vector.Rasterizer, p Point, hw float64) {
	z.MoveTo(f32(p.X-hw), f32(p.Y+hw))
	z.LineTo(f32(p.X+hw), f32(p.Y+hw))
	z.LineTo(f32(p.X+hw), f32(p.Y-hw))
	z.LineTo(f32(p.X-hw), f32(p.Y-hw))
	z.ClosePath()
}

func f32(v float64) float32 {
	return float32(v)
}
