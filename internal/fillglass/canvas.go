package fillglass

import "image/color"

// Canvas is the drawing surface the glass renders onto each frame.
type Canvas interface {
	// Size returns the drawable width and height in canvas units.
	Size() (w, h float64)
	StrokePath(p *Path, c color.Color, width float64)
	FillPath(p *Path, c color.Color)
	// ClipPath intersects the current clip with p until the matching Restore.
	ClipPath(p *Path)
	Save()
	Restore()
}
