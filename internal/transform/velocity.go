package transform

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cbegin/legatofx/internal/note"
	"github.com/cbegin/legatofx/internal/numeric"
)

// ErrCurvePoints is returned for a curve with fewer than two breakpoints.
var ErrCurvePoints = errors.New("velocity curve needs at least two points")

// Point is a curve breakpoint; both axes are normalised to [0, 1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VelocityCurve remaps note-on velocities through a piecewise linear table.
// Output velocities are never below 1.
type VelocityCurve struct {
	points []Point
}

// LinearCurve is the identity curve.
func LinearCurve() *VelocityCurve {
	return &VelocityCurve{points: []Point{{0, 0}, {1, 1}}}
}

// NewVelocityCurve sorts and clamps the breakpoints. The curve is held flat
// before the first and after the last point.
func NewVelocityCurve(points []Point) (*VelocityCurve, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("velocity curve: %w", ErrCurvePoints)
	}
	cp := make([]Point, len(points))
	for i, p := range points {
		cp[i] = Point{X: numeric.Clamp(p.X, 0, 1), Y: numeric.Clamp(p.Y, 0, 1)}
	}
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].X < cp[j].X })
	return &VelocityCurve{points: cp}, nil
}

// Value returns the curve at x in [0, 1].
func (c *VelocityCurve) Value(x float64) float64 {
	pts := c.points
	if x <= pts[0].X {
		return pts[0].Y
	}
	last := pts[len(pts)-1]
	if x >= last.X {
		return last.Y
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].X >= x })
	a, b := pts[i-1], pts[i]
	if b.X == a.X {
		return b.Y
	}
	return a.Y + (b.Y-a.Y)*(x-a.X)/(b.X-a.X)
}

func (c *VelocityCurve) Apply(ev note.Event) note.Event {
	if ev.Kind != note.KindNoteOn {
		return ev
	}
	v := math.Round(127 * c.Value(float64(ev.Velocity)/127))
	ev.Velocity = numeric.Clamp(int(v), 1, 127)
	return ev
}
