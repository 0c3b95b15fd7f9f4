package domain

import (
	"fmt"
	"math"
)

// Point is an integer pixel coordinate on the device screen.
type Point struct {
	X int `json:"x" yaml:"x" mapstructure:"x"`
	Y int `json:"y" yaml:"y" mapstructure:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(float64(p.X-q.X), float64(p.Y-q.Y))
}

// Location lets a bare Point be clicked like any other target.
func (p Point) Location() Point {
	return p
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}
