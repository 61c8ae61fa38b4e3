package stealth

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Point represents a 2D coordinate
type Point struct {
	X float64
	Y float64
}

// CubicBezierCurve generates points along a cubic Bézier curve
func CubicBezierCurve(start, end, control1, control2 Point, steps int) []Point {
	if steps < 2 {
		return []Point{end}
	}
	points := make([]Point, steps)

	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		u := 1 - t

		// B(t) = (1-t)³P₀ + 3(1-t)²tP₁ + 3(1-t)t²P₂ + t³P₃
		points[i] = Point{
			X: u*u*u*start.X + 3*u*u*t*control1.X + 3*u*t*t*control2.X + t*t*t*end.X,
			Y: u*u*u*start.Y + 3*u*u*t*control1.Y + 3*u*t*t*control2.Y + t*t*t*end.Y,
		}
	}

	return points
}

// controlPoints picks control points a third and two thirds of the way along the
// segment, each pushed sideways by up to 15% of its length
func controlPoints(start, end Point) (Point, Point) {
	dx := end.X - start.X
	dy := end.Y - start.Y
	distance := math.Hypot(dx, dy)
	perp := math.Atan2(dy, dx) + math.Pi/2

	offset1 := (float64n() - 0.5) * distance * 0.3
	offset2 := (float64n() - 0.5) * distance * 0.3

	return Point{
			X: start.X + dx/3 + math.Cos(perp)*offset1,
			Y: start.Y + dy/3 + math.Sin(perp)*offset1,
		}, Point{
			X: start.X + 2*dx/3 + math.Cos(perp)*offset2,
			Y: start.Y + 2*dy/3 + math.Sin(perp)*offset2,
		}
}

// mouseStepDelay is slower at the ends of a movement and faster in the middle
func mouseStepDelay(progress float64) time.Duration {
	speed := 1 - math.Abs(2*progress-1)
	return time.Duration(float64(10*time.Millisecond) / (speed + 0.5))
}

// Mouse moves the page cursor along curved paths and remembers where it is
type Mouse struct {
	page *rod.Page
	pos  Point
}

// NewMouse creates a Mouse starting near the top-left of the viewport
func NewMouse(page *rod.Page) *Mouse {
	return &Mouse{page: page, pos: Point{X: float64n() * 100, Y: float64n() * 100}}
}

// MoveTo moves the cursor to target along a Bézier path
func (m *Mouse) MoveTo(ctx context.Context, target Point) error {
	c1, c2 := controlPoints(m.pos, target)
	path := CubicBezierCurve(m.pos, target, c1, c2, 40)
	page := m.page.Context(ctx)

	for i, p := range path {
		err := proto.InputDispatchMouseEvent{
			Type: proto.InputDispatchMouseEventTypeMouseMoved,
			X:    p.X,
			Y:    p.Y,
		}.Call(page)
		if err != nil {
			return fmt.Errorf("failed to move mouse: %w", err)
		}
		if err := Sleep(ctx, mouseStepDelay(float64(i)/float64(len(path)))); err != nil {
			return err
		}
	}

	m.pos = target
	return nil
}

// Click scrolls el into view, glides to a point near its centre and clicks it
func (m *Mouse) Click(ctx context.Context, el *rod.Element) error {
	el = el.Context(ctx)
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("failed to scroll element into view: %w", err)
	}

	shape, err := el.Shape()
	if err != nil {
		return fmt.Errorf("failed to get element shape: %w", err)
	}
	box := shape.Box()

	target := Point{
		X: box.X + box.Width/2 + (float64n()-0.5)*box.Width*0.3,
		Y: box.Y + box.Height/2 + (float64n()-0.5)*box.Height*0.3,
	}
	if err := m.MoveTo(ctx, target); err != nil {
		return err
	}

	if err := Sleep(ctx, ShortDelay()); err != nil {
		return err
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}
	return nil
}
