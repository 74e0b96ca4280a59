package georef

import "math"

// Point is a 2D coordinate, either in raster (pixel/line) or in world (map) space
type Point struct {
	X, Y float64
}

func (p Point) Add(o Point) Point {
	return Point{p.X + o.X, p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{p.X - o.X, p.Y - o.Y}
}

func (p Point) Scale(s float64) Point {
	return Point{p.X * s, p.Y * s}
}

// Dist returns the euclidean distance between p and o
func (p Point) Dist(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Equal returns true if both coordinates are equal within tol
func (p Point) Equal(o Point, tol float64) bool {
	return math.Abs(p.X-o.X) <= tol && math.Abs(p.Y-o.Y) <= tol
}

// FlipY returns the point mirrored on the X axis
func (p Point) FlipY() Point {
	return Point{p.X, -p.Y}
}

// IsFinite returns false if one of the coordinates is NaN or infinite
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Centroid returns the mean of the points.
// Centroid panics if len(pts) = 0
func Centroid(pts []Point) Point {
	var c Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	return c.Scale(1 / float64(len(pts)))
}

// Extent returns the largest side of the bounding box of the points
func Extent(pts []Point) float64 {
	if len(pts) == 0 {
		return 0
	}
	xmin, xmax, ymin, ymax := pts[0].X, pts[0].X, pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		xmin, xmax = math.Min(xmin, p.X), math.Max(xmax, p.X)
		ymin, ymax = math.Min(ymin, p.Y), math.Max(ymax, p.Y)
	}
	return math.Max(xmax-xmin, ymax-ymin)
}
