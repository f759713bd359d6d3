// Package obstacle maintains the set of static and time-parameterised
// obstacles and produces their current poses and collision polygons each
// tick. Waypoint lookup uses binary search over a contiguous,
// precomputed times array. Each tick's polygon edges are copied into a
// per-obstacle edge buffer that is reused across ticks; the polygon
// vertices, the intermediate edge list and the Snapshot slices are still
// allocated fresh on every Update.
package obstacle

import (
	"context"
	"math"
	"sort"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/geometry"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
	"github.com/banshee-data/velocity.report/internal/simcore/node"
)

// compiled is the precomputed, contiguous-array form of one obstacle,
// built once at registration so OnRun never touches model.Obstacle's
// slice-of-structs representation on the hot path.
type compiled struct {
	id     string
	kind   model.ObstacleKind
	shape  model.ShapeKind
	times  []float64 // contiguous, strictly increasing, times[0] == 0
	xs     []float64
	ys     []float64
	yaws   []float64
	period float64

	staticPose geometry.Pose2D

	rectWidth, rectLength float64
	circleRadius          float64

	// edges is reused across ticks; its length is fixed by the shape
	// (4 for rectangle, geometry.CircleVertexCount for circle).
	edges []model.Segment
}

func compile(o model.Obstacle) compiled {
	c := compiled{
		id:           o.ID,
		kind:         o.Kind,
		shape:        o.Shape,
		rectWidth:    o.RectWidth,
		rectLength:   o.RectLength,
		circleRadius: o.CircleRadius,
	}
	switch o.Shape {
	case model.ShapeRectangle:
		c.edges = make([]model.Segment, 4)
	case model.ShapeCircle:
		c.edges = make([]model.Segment, geometry.CircleVertexCount)
	}
	if o.Kind == model.ObstacleStatic {
		c.staticPose = geometry.Pose2D{X: o.X, Y: o.Y, Yaw: o.Yaw}
		return c
	}
	n := len(o.Waypoints)
	c.times = make([]float64, n)
	c.xs = make([]float64, n)
	c.ys = make([]float64, n)
	c.yaws = make([]float64, n)
	for i, wp := range o.Waypoints {
		c.times[i] = wp.T
		c.xs[i] = wp.X
		c.ys[i] = wp.Y
		c.yaws[i] = wp.Yaw
	}
	c.period = o.Period()
	return c
}

// poseAt returns the obstacle's pose at simTime, cyclically wrapping
// dynamic obstacles by their period: sampling at t == period must equal
// t == 0.
func (c *compiled) poseAt(simTime float64) geometry.Pose2D {
	if c.kind == model.ObstacleStatic {
		return c.staticPose
	}
	if c.period <= 0 || len(c.times) == 1 {
		return geometry.Pose2D{X: c.xs[0], Y: c.ys[0], Yaw: c.yaws[0]}
	}

	tMod := math.Mod(simTime, c.period)
	if tMod < 0 {
		tMod += c.period
	}

	// Binary search for the interval [times[i], times[i+1]] containing
	// tMod: sort.Search finds the first index whose time exceeds tMod.
	i := sort.Search(len(c.times), func(i int) bool { return c.times[i] > tMod })
	if i == 0 {
		return geometry.Pose2D{X: c.xs[0], Y: c.ys[0], Yaw: c.yaws[0]}
	}
	if i >= len(c.times) {
		last := len(c.times) - 1
		return geometry.Pose2D{X: c.xs[last], Y: c.ys[last], Yaw: c.yaws[last]}
	}
	lo, hi := i-1, i
	span := c.times[hi] - c.times[lo]
	var frac float64
	if span > 1e-12 {
		frac = (tMod - c.times[lo]) / span
	}
	x := c.xs[lo] + frac*(c.xs[hi]-c.xs[lo])
	y := c.ys[lo] + frac*(c.ys[hi]-c.ys[lo])
	// Unwrap the shortest-arc yaw difference before interpolating, then
	// re-normalise.
	delta := model.NormalizeAngle(c.yaws[hi] - c.yaws[lo])
	yaw := model.NormalizeAngle(c.yaws[lo] + frac*delta)
	return geometry.Pose2D{X: x, Y: y, Yaw: yaw}
}

// polygon synthesises the obstacle's world-frame polygon at the given
// pose, reusing the compiled obstacle's edge buffer.
func (c *compiled) polygon(pose geometry.Pose2D) model.Polygon {
	var verts []model.Vec2
	switch c.shape {
	case model.ShapeRectangle:
		verts = geometry.RectangleCorners(pose, c.rectWidth, c.rectLength)
	case model.ShapeCircle:
		verts = geometry.CircleCorners(pose, c.circleRadius)
	}
	poly := model.Polygon{Vertices: verts}
	edges := poly.Edges()
	copy(c.edges, edges)
	return poly
}

// Manager owns the compiled obstacle set for one episode.
type Manager struct {
	obstacles []compiled
}

// NewManager compiles the given obstacles into their hot-path array form.
func NewManager(obstacles []model.Obstacle) *Manager {
	m := &Manager{obstacles: make([]compiled, len(obstacles))}
	for i, o := range obstacles {
		m.obstacles[i] = compile(o)
	}
	return m
}

// Snapshot is one tick's worth of obstacle poses and polygons.
type Snapshot struct {
	IDs      []string
	Poses    []geometry.Pose2D
	Polygons []model.Polygon
	Edges    [][]model.Segment
}

// Update recomputes every obstacle's pose and polygon at simTime.
func (m *Manager) Update(simTime float64) Snapshot {
	snap := Snapshot{
		IDs:      make([]string, len(m.obstacles)),
		Poses:    make([]geometry.Pose2D, len(m.obstacles)),
		Polygons: make([]model.Polygon, len(m.obstacles)),
		Edges:    make([][]model.Segment, len(m.obstacles)),
	}
	for i := range m.obstacles {
		c := &m.obstacles[i]
		pose := c.poseAt(simTime)
		poly := c.polygon(pose)
		snap.IDs[i] = c.id
		snap.Poses[i] = pose
		snap.Polygons[i] = poly
		snap.Edges[i] = c.edges
	}
	return snap
}

// Node is the schedulable obstacle manager: it publishes the current
// obstacle poses and polygons each tick.
type Node struct {
	name     string
	rateHz   float64
	priority int
	mgr      *Manager
	board    *blackboard.Blackboard
}

// NewNode constructs the obstacle manager node.
func NewNode(name string, rateHz float64, priority int, obstacles []model.Obstacle, board *blackboard.Blackboard) *Node {
	return &Node{
		name:     name,
		rateHz:   rateHz,
		priority: priority,
		mgr:      NewManager(obstacles),
		board:    board,
	}
}

func (n *Node) Name() string    { return n.name }
func (n *Node) RateHz() float64 { return n.rateHz }
func (n *Node) Priority() int   { return n.priority }

func (n *Node) OnInit(ctx context.Context) error { return nil }

func (n *Node) OnRun(ctx context.Context, simTime float64) (node.Status, error) {
	snap := n.mgr.Update(simTime)
	n.board.Publish(blackboard.TopicObstaclePoses, snap)
	n.board.Publish(blackboard.TopicObstaclePolygons, snap.Edges)
	return node.OK, nil
}

func (n *Node) OnShutdown(ctx context.Context) error { return nil }
