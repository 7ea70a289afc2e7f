package fillglass

import "math"

// Point is a position in canvas units, y growing downwards.
type Point struct {
	X, Y float64
}

// SegmentOp identifies the kind of a path segment.
type SegmentOp int

const (
	OpMoveTo SegmentOp = iota
	OpLineTo
	OpQuadTo // Pts[0] is the control point, Pts[1] the end point
	OpClose
)

// Segment is one recorded path command.
type Segment struct {
	Op  SegmentOp
	Pts [2]Point
}

// Path records a sequence of drawing commands. The zero value is an empty path.
type Path struct {
	segments []Segment
}

// NewPath returns an empty path.
func NewPath() *Path {
	return &Path{}
}

func (p *Path) MoveTo(x, y float64) *Path {
	p.segments = append(p.segments, Segment{Op: OpMoveTo, Pts: [2]Point{{x, y}}})
	return p
}

func (p *Path) LineTo(x, y float64) *Path {
	p.segments = append(p.segments, Segment{Op: OpLineTo, Pts: [2]Point{{x, y}}})
	return p
}

func (p *Path) QuadTo(cx, cy, x, y float64) *Path {
	p.segments = append(p.segments, Segment{Op: OpQuadTo, Pts: [2]Point{{cx, cy}, {x, y}}})
	return p
}

func (p *Path) Close() *Path {
	p.segments = append(p.segments, Segment{Op: OpClose})
	return p
}

// Segments returns the recorded commands. The slice must not be modified.
func (p *Path) Segments() []Segment {
	return p.segments
}

// Len returns the number of recorded commands.
func (p *Path) Len() int {
	return len(p.segments)
}

// Empty reports whether the path has no commands.
func (p *Path) Empty() bool {
	return len(p.segments) == 0
}

// AddRoundRect appends a closed rounded rectangle. The radius is clamped to
// half of the shorter side, and corners are quadratic curves.
func (p *Path) AddRoundRect(left, top, right, bottom, radius float64) *Path {
	r := clampRadius(right-left, bottom-top, radius)
	p.MoveTo(left+r, top)
	p.LineTo(right-r, top)
	p.QuadTo(right, top, right, top+r)
	p.LineTo(right, bottom-r)
	p.QuadTo(right, bottom, right-r, bottom)
	p.LineTo(left+r, bottom)
	p.QuadTo(left, bottom, left, bottom-r)
	p.LineTo(left, top+r)
	p.QuadTo(left, top, left+r, top)
	return p.Close()
}

func clampRadius(w, h, r float64) float64 {
	limit := math.Min(w, h) / 2
	if limit < 0 {
		return 0
	}
	if r > limit {
		return limit
	}
	if r < 0 {
		return 0
	}
	return r
}

// Polyline is one flattened subpath.
type Polyline struct {
	Points []Point
	Closed bool
}

// Flatten converts the path to polylines. Quadratic curves are subdivided
// so the chord error stays under tolerance.
func (p *Path) Flatten(tolerance float64) []Polyline {
	if tolerance <= 0 {
		tolerance = 0.25
	}
	var out []Polyline
	var cur *Polyline
	var pen, start Point

	flush := func() {
		if cur != nil && len(cur.Points) > 0 {
			out = append(out, *cur)
		}
		cur = nil
	}
	ensure := func() {
		if cur == nil {
			cur = &Polyline{Points: []Point{pen}}
			start = pen
		}
	}

	for _, s := range p.segments {
		switch s.Op {
		case OpMoveTo:
			flush()
			pen = s.Pts[0]
			ensure()
		case OpLineTo:
			ensure()
			pen = s.Pts[0]
			cur.Points = append(cur.Points, pen)
		case OpQuadTo:
			ensure()
			ctrl, end := s.Pts[0], s.Pts[1]
			n := quadSteps(pen, ctrl, end, tolerance)
			from := pen
			for i := 1; i <= n; i++ {
				t := float64(i) / float64(n)
				cur.Points = append(cur.Points, quadPoint(from, ctrl, end, t))
			}
			pen = end
		case OpClose:
			if cur != nil {
				cur.Closed = true
				flush()
			}
			pen = start
		}
	}
	flush()
	return out
}

func quadPoint(p0, p1, p2 Point, t float64) Point {
	mt := 1 - t
	return Point{
		X: mt*mt*p0.X + 2*mt*t*p1.X + t*t*p2.X,
		Y: mt*mt*p0.Y + 2*mt*t*p1.Y + t*t*p2.Y,
	}
}

// quadSteps estimates the subdivision count from the control polygon deviation.
func quadSteps(p0, p1, p2 Point, tolerance float64) int {
	dx := p0.X - 2*p1.X + p2.X
	dy := p0.Y - 2*p1.Y + p2.Y
	dev := math.Hypot(dx, dy)
	n := int(math.Ceil(math.Sqrt(dev / (4 * tolerance))))
	if n < 1 {
		return 1
	}
	if n > 64 {
		return 64
	}
	return n
}
