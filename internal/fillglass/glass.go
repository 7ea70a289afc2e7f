// Package fillglass renders an animated liquid level inside a rounded glass.
//
// A Glass holds only state: the rendered level, the animation target and the
// wave phase. The host decides when frames happen. It calls Tick to advance
// the level transition and Draw to render one frame onto a Canvas. Draw also
// advances the wave, by PhaseIncrement per WaveFrameInterval of elapsed time,
// so the ripple speed does not depend on how often the host redraws.
package fillglass

import (
	"errors"
	"image/color"
	"math"
	"sync"
	"time"
)

const (
	DefaultDuration     = time.Second
	DefaultCornerRadius = 40.0
	DefaultBorderWidth  = 8.0

	WaveAmplitude     = 15.0
	WaveStep          = 10.0
	WavelengthDivisor = 1.5
	PhaseIncrement    = 0.01
	WaveFrameInterval = time.Second / 60
)

var (
	DefaultBorderColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	DefaultLiquidColor = color.RGBA{R: 0x00, G: 0xff, B: 0xff, A: 0xff}
)

// ErrInvalidAmount is returned by AddWater for zero, negative or non-finite amounts.
var ErrInvalidAmount = errors.New("fillglass: amount must be a positive finite fraction")

// Glass is a fill-level widget. It is safe for concurrent use.
type Glass struct {
	mu sync.Mutex

	level    float64
	target   float64
	phase    float64
	lastWave time.Time

	animating bool
	from      float64
	startedAt time.Time

	duration time.Duration
	curve    func(float64) float64
	clock    func() time.Time

	radius      float64
	borderWidth float64
	border      color.Color
	liquid      color.Color
}

// Option configures a Glass.
type Option func(*Glass)

// WithClock replaces time.Now as the source of transition start times.
func WithClock(clock func() time.Time) Option {
	return func(g *Glass) { g.clock = clock }
}

// WithDuration sets the SetLevel transition length. Zero makes changes instant.
func WithDuration(d time.Duration) Option {
	return func(g *Glass) { g.duration = d }
}

func WithCurve(curve func(float64) float64) Option {
	return func(g *Glass) { g.curve = curve }
}

func WithColors(border, liquid color.Color) Option {
	return func(g *Glass) {
		g.border = border
		g.liquid = liquid
	}
}

func WithCornerRadius(r float64) Option {
	return func(g *Glass) { g.radius = r }
}

func WithBorderWidth(w float64) Option {
	return func(g *Glass) { g.borderWidth = w }
}

// New creates an empty glass with level 0 and phase 0.
func New(opts ...Option) *Glass {
	g := &Glass{
		duration:    DefaultDuration,
		curve:       Decelerate,
		clock:       time.Now,
		radius:      DefaultCornerRadius,
		borderWidth: DefaultBorderWidth,
		border:      DefaultBorderColor,
		liquid:      DefaultLiquidColor,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.curve == nil {
		g.curve = Decelerate
	}
	if g.clock == nil {
		g.clock = time.Now
	}
	return g
}

// SetLevel starts a transition from the rendered level to target, clamped to [0, 1].
// NaN is ignored.
func (g *Glass) SetLevel(target float64) {
	if math.IsNaN(target) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setLevelLocked(clampUnit(target))
}

func (g *Glass) setLevelLocked(target float64) {
	g.target = target
	if g.duration <= 0 {
		g.level = target
		g.animating = false
		return
	}
	g.from = g.level
	g.startedAt = g.clock()
	g.animating = true
}

// AddWater raises the target level by amount, capped at full.
func (g *Glass) AddWater(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return ErrInvalidAmount
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	next := g.target + amount
	if next > 1 {
		next = 1
	}
	g.setLevelLocked(next)
	return nil
}

// Tick advances the level transition to now. It reports whether the level
// is still animating afterwards.
func (g *Glass) Tick(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.animating {
		return false
	}
	progress := float64(now.Sub(g.startedAt)) / float64(g.duration)
	if progress >= 1 {
		g.level = g.target
		g.animating = false
		return false
	}
	if progress < 0 {
		progress = 0
	}
	g.level = g.from + (g.target-g.from)*g.curve(progress)
	return true
}

// Level returns the currently rendered fill fraction.
func (g *Glass) Level() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level
}

// Target returns the level the glass is animating towards.
func (g *Glass) Target() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.target
}

func (g *Glass) Phase() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *Glass) Animating() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.animating
}

// Draw renders one frame onto c and advances the wave phase.
// Empty bounds draw nothing.
func (g *Glass) Draw(c Canvas) {
	now := g.clock()
	g.mu.Lock()
	level, phase := g.level, g.phase
	g.phase = wrapPhase(g.phase + g.waveStepLocked(now))
	radius, borderWidth, border, liquid := g.radius, g.borderWidth, g.border, g.liquid
	g.mu.Unlock()

	w, h := c.Size()
	if !(w > 0 && h > 0) {
		return
	}

	c.StrokePath(GlassOutline(w, h, radius), border, borderWidth)

	clip := NewPath().AddRoundRect(0, 0, w, h, radius)
	c.Save()
	c.ClipPath(clip)
	c.FillPath(WavePath(w, h, level, phase), liquid)
	c.Restore()
}

// GlassOutline is the open-topped U of the glass border.
func GlassOutline(w, h, radius float64) *Path {
	r := clampRadius(w, h, radius)
	return NewPath().
		MoveTo(0, r).
		LineTo(0, h-r).
		QuadTo(0, h, r, h).
		LineTo(w-r, h).
		QuadTo(w, h, w, h-r).
		LineTo(w, r)
}

// WavePath is the liquid body: a sine surface closed down to the bottom edge.
func WavePath(w, h, level, phase float64) *Path {
	surface := h * (1 - level)
	wavelength := w / WavelengthDivisor
	p := NewPath().MoveTo(0, surface)
	for x := 0.0; x <= w; x += WaveStep {
		y := surface + WaveAmplitude*math.Sin(2*math.Pi*(x/wavelength+phase))
		p.LineTo(x, y)
	}
	return p.LineTo(w, h).LineTo(0, h).Close()
}

// wrapPhase keeps the phase in [0, 1) by subtracting one per crossing.
// waveStepLocked is the phase advance for a frame drawn at now. The first
// frame moves one full increment.
func (g *Glass) waveStepLocked(now time.Time) float64 {
	step := PhaseIncrement
	if !g.lastWave.IsZero() {
		elapsed := now.Sub(g.lastWave)
		if elapsed < 0 {
			elapsed = 0
		}
		step = PhaseIncrement * float64(elapsed) / float64(WaveFrameInterval)
	}
	g.lastWave = now
	return step
}

func wrapPhase(p float64) float64 {
	return p - math.Floor(p)
}
