// Package geometry provides the rigid-transform, polygon-synthesis and
// Frenet-projection utilities shared by the vehicle, LiDAR and obstacle
// packages. Homogeneous 2D transforms are expressed as 3x3 gonum/mat
// matrices, mirroring the 4x4 homogeneous ApplyPose convention in
// internal/lidar/l2frames/geometry.go one dimension down, since this
// simulation core is planar.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/velocity.report/internal/simcore/model"
)

// Pose2D is a 2D rigid-body pose: position and heading.
type Pose2D struct {
	X, Y, Yaw float64
}

// RigidTransform builds the 3x3 homogeneous transform matrix mapping a
// point in the pose's body frame to the world frame.
func RigidTransform(p Pose2D) *mat.Dense {
	c, s := math.Cos(p.Yaw), math.Sin(p.Yaw)
	return mat.NewDense(3, 3, []float64{
		c, -s, p.X,
		s, c, p.Y,
		0, 0, 1,
	})
}

// ApplyTransform maps a body-frame point through a homogeneous transform
// into the world frame.
func ApplyTransform(t *mat.Dense, p model.Vec2) model.Vec2 {
	var out mat.VecDense
	out.MulVec(t, mat.NewVecDense(3, []float64{p.X, p.Y, 1}))
	return model.Vec2{X: out.AtVec(0), Y: out.AtVec(1)}
}

// ComposePose composes a mount offset (body-frame pose relative to a
// parent) with the parent's world pose, returning the mount's pose in the
// world frame. Used to place a sensor's origin from the ego pose and its
// configured body-frame mount point.
func ComposePose(parent, mount Pose2D) Pose2D {
	parentT := RigidTransform(parent)
	worldPoint := ApplyTransform(parentT, model.Vec2{X: mount.X, Y: mount.Y})
	return Pose2D{
		X:   worldPoint.X,
		Y:   worldPoint.Y,
		Yaw: model.NormalizeAngle(parent.Yaw + mount.Yaw),
	}
}

// RectangleCorners synthesises the four corners of an oriented rectangle
// (width W, length Lo) centred at pose, in winding order. Body-frame
// corners are (+-Lo/2, +-W/2).
func RectangleCorners(pose Pose2D, width, length float64) []model.Vec2 {
	hl, hw := length/2, width/2
	body := [4]model.Vec2{
		{X: hl, Y: hw},
		{X: -hl, Y: hw},
		{X: -hl, Y: -hw},
		{X: hl, Y: -hw},
	}
	c, s := math.Cos(pose.Yaw), math.Sin(pose.Yaw)
	out := make([]model.Vec2, 4)
	for i, b := range body {
		out[i] = model.Vec2{
			X: pose.X + b.X*c - b.Y*s,
			Y: pose.Y + b.X*s + b.Y*c,
		}
	}
	return out
}

// CircleVertexCount is the documented polygonal approximation order for
// circle obstacles, used only for collision, not rendering.
const CircleVertexCount = 16

// CircleCorners approximates a circle of the given radius centred at pose
// with CircleVertexCount vertices.
func CircleCorners(pose Pose2D, radius float64) []model.Vec2 {
	out := make([]model.Vec2, CircleVertexCount)
	for i := 0; i < CircleVertexCount; i++ {
		theta := 2 * math.Pi * float64(i) / float64(CircleVertexCount)
		out[i] = model.Vec2{
			X: pose.X + radius*math.Cos(theta),
			Y: pose.Y + radius*math.Sin(theta),
		}
	}
	return out
}

// SATOverlap reports whether two convex polygons intersect, using the
// Separating Axis Theorem over the union of edge normals from both
// polygons. Degenerate polygons (fewer than 3 vertices, or
// zero area) never overlap.
func SATOverlap(a, b model.Polygon) bool {
	if len(a.Vertices) < 3 || len(b.Vertices) < 3 {
		return false
	}
	polyA := model.Polygon{Vertices: a.Vertices}
	polyB := model.Polygon{Vertices: b.Vertices}
	if polyA.Area() == 0 || polyB.Area() == 0 {
		return false
	}

	for _, axis := range edgeNormals(a.Vertices) {
		if separatedOnAxis(a.Vertices, b.Vertices, axis) {
			return false
		}
	}
	for _, axis := range edgeNormals(b.Vertices) {
		if separatedOnAxis(a.Vertices, b.Vertices, axis) {
			return false
		}
	}
	return true
}

func edgeNormals(verts []model.Vec2) []model.Vec2 {
	n := len(verts)
	axes := make([]model.Vec2, n)
	for i := 0; i < n; i++ {
		a := verts[i]
		b := verts[(i+1)%n]
		edge := model.Vec2{X: b.X - a.X, Y: b.Y - a.Y}
		// Perpendicular (normal) to the edge; need not be unit length for
		// a projection-overlap test.
		axes[i] = model.Vec2{X: -edge.Y, Y: edge.X}
	}
	return axes
}

func separatedOnAxis(a, b []model.Vec2, axis model.Vec2) bool {
	aMin, aMax := projectPolygon(a, axis)
	bMin, bMax := projectPolygon(b, axis)
	return aMax < bMin || bMax < aMin
}

func projectPolygon(verts []model.Vec2, axis model.Vec2) (min, max float64) {
	min, max = math.MaxFloat64, -math.MaxFloat64
	for _, v := range verts {
		d := v.X*axis.X + v.Y*axis.Y
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max
}

// ProjectFrenet finds the centreline interval straddling (x, y) by linear
// scan over the arc-length-sorted samples (the centreline is short enough
// per episode that a binary search on segment midpoint distance is not
// worth the added complexity over a direct nearest-point scan; obstacle
// waypoint lookups, which run every tick, use binary search instead — see
// package obstacle), and returns the projected arc length S and signed
// lateral offset L (positive to the left of the reference heading).
func ProjectFrenet(centreline []model.CentrelinePoint, x, y float64) (s, l float64) {
	if len(centreline) == 0 {
		return 0, 0
	}
	if len(centreline) == 1 {
		p := centreline[0]
		return p.S, lateralOffset(p, x, y)
	}

	bestDist := math.MaxFloat64
	for i := 0; i < len(centreline)-1; i++ {
		p0, p1 := centreline[i], centreline[i+1]
		projS, projL, dist := projectOnSegment(p0, p1, x, y)
		if dist < bestDist {
			bestDist = dist
			s, l = projS, projL
		}
	}
	return s, l
}

func lateralOffset(p model.CentrelinePoint, x, y float64) float64 {
	dx, dy := x-p.X, y-p.Y
	// Left-hand lateral offset relative to the reference heading.
	return -dx*math.Sin(p.YawRef) + dy*math.Cos(p.YawRef)
}

// projectOnSegment projects (x,y) onto the segment p0->p1, clamped to the
// segment's arc-length range, returning the interpolated arc length, the
// signed lateral offset, and the perpendicular distance used to pick the
// closest segment.
func projectOnSegment(p0, p1 model.CentrelinePoint, x, y float64) (s, l, dist float64) {
	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	segLenSq := dx*dx + dy*dy
	var t float64
	if segLenSq > 1e-12 {
		t = ((x-p0.X)*dx + (y-p0.Y)*dy) / segLenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	projX := p0.X + t*dx
	projY := p0.Y + t*dy
	s = p0.S + t*(p1.S-p0.S)
	yawRef := p0.YawRef + t*model.NormalizeAngle(p1.YawRef-p0.YawRef)
	l = -(x-projX)*math.Sin(yawRef) + (y-projY)*math.Cos(yawRef)
	ddx, ddy := x-projX, y-projY
	dist = math.Hypot(ddx, ddy)
	return s, l, dist
}

// FrenetToCartesian recovers the world-frame point for arc length s and
// lateral offset l along the centreline, the inverse of ProjectFrenet.
// s is clamped to the centreline's range.
func FrenetToCartesian(centreline []model.CentrelinePoint, s, l float64) (x, y float64) {
	if len(centreline) == 0 {
		return 0, 0
	}
	if s <= centreline[0].S {
		p := centreline[0]
		return p.X - l*math.Sin(p.YawRef), p.Y + l*math.Cos(p.YawRef)
	}
	last := centreline[len(centreline)-1]
	if s >= last.S {
		return last.X - l*math.Sin(last.YawRef), last.Y + l*math.Cos(last.YawRef)
	}
	for i := 0; i < len(centreline)-1; i++ {
		p0, p1 := centreline[i], centreline[i+1]
		if s >= p0.S && s <= p1.S {
			span := p1.S - p0.S
			var t float64
			if span > 1e-12 {
				t = (s - p0.S) / span
			}
			px := p0.X + t*(p1.X-p0.X)
			py := p0.Y + t*(p1.Y-p0.Y)
			yawRef := p0.YawRef + t*model.NormalizeAngle(p1.YawRef-p0.YawRef)
			return px - l*math.Sin(yawRef), py + l*math.Cos(yawRef)
		}
	}
	return last.X, last.Y
}
