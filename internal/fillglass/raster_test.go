package fillglass

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgbaAt(c *RasterCanvas, x, y int) color.RGBA {
	return c.Image().RGBAAt(x, y)
}

func TestRasterCanvas_GlassAtHalfLevel(t *testing.T) {
	g := New(WithDuration(0))
	g.SetLevel(0.5)

	c := NewRasterCanvas(200, 300)
	g.Draw(c)

	// below the wave trough: liquid
	assert.Equal(t, color.RGBA{0, 0xff, 0xff, 0xff}, rgbaAt(c, 100, 250))
	// above the wave crest: untouched
	assert.Equal(t, uint8(0), rgbaAt(c, 100, 40).A)
	// left wall above the liquid: border
	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, rgbaAt(c, 1, 80))
	// open top: no border across the rim
	assert.Equal(t, uint8(0), rgbaAt(c, 100, 1).A)
}

func TestRasterCanvas_ClipIsRestored(t *testing.T) {
	c := NewRasterCanvas(100, 100)
	full := NewPath().AddRoundRect(0, 0, 100, 100, 0)

	c.Save()
	c.ClipPath(NewPath().AddRoundRect(0, 0, 50, 100, 0))
	c.FillPath(full, color.RGBA{255, 0, 0, 255})
	c.Restore()

	assert.Equal(t, uint8(255), rgbaAt(c, 10, 50).R)
	assert.Equal(t, uint8(0), rgbaAt(c, 80, 50).A)

	c.FillPath(full, color.RGBA{0, 0, 255, 255})
	assert.Equal(t, uint8(255), rgbaAt(c, 80, 50).B)
}

func TestRasterCanvas_ClearAndZeroSize(t *testing.T) {
	c := NewRasterCanvas(4, 4)
	c.Clear(color.RGBA{1, 2, 3, 255})
	assert.Equal(t, color.RGBA{1, 2, 3, 255}, rgbaAt(c, 3, 3))

	empty := NewRasterCanvas(0, -1)
	w, h := empty.Size()
	require.Equal(t, 0.0, w)
	require.Equal(t, 0.0, h)
	assert.NotPanics(t, func() {
		New().Draw(empty)
		empty.StrokePath(GlassOutline(10, 10, 2), color.White, 2)
	})
}

func TestPath_FlattenRoundRect(t *testing.T) {
	p := NewPath().AddRoundRect(0, 0, 100, 60, 40)
	lines := p.Flatten(0.25)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Closed)
	for _, pt := range lines[0].Points {
		assert.GreaterOrEqual(t, pt.X, 0.0)
		assert.LessOrEqual(t, pt.X, 100.0)
		assert.GreaterOrEqual(t, pt.Y, 0.0)
		assert.LessOrEqual(t, pt.Y, 60.0)
	}
	// radius is clamped to half the short side, so the top edge is a single point pair
	assert.Equal(t, Point{30, 0}, lines[0].Points[0])
}

func TestPath_FlattenOpenOutline(t *testing.T) {
	lines := GlassOutline(100, 200, 40).Flatten(0.5)
	require.Len(t, lines, 1)
	assert.False(t, lines[0].Closed)
	pts := lines[0].Points
	assert.Equal(t, Point{0, 40}, pts[0])
	assert.Equal(t, Point{100, 40}, pts[len(pts)-1])
}

func TestDecelerateBy(t *testing.T) {
	assert.InDelta(t, Decelerate(0.3), DecelerateBy(1)(0.3), 1e-12)
	assert.InDelta(t, 1-0.5*0.5*0.5*0.5, DecelerateBy(2)(0.5), 1e-12)
	assert.Equal(t, 1.0, DecelerateBy(-1)(2))
	assert.Equal(t, 0.0, Linear(-1))
}
