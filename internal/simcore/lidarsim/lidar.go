// Package lidarsim implements the 2D LiDAR simulator: beam fan generation
// and the ray/segment intersection kernel against world geometry and
// obstacle polygons. The per-beam sweep is the dominant hot
// path in the simulation core and must not allocate.
package lidarsim

import (
	"context"
	"math"
	"math/rand"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/geometry"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
	"github.com/banshee-data/velocity.report/internal/simcore/node"
)

// parallelEpsilon is the cross-product threshold below which a beam is
// considered parallel to a segment and skipped (, delta ~ 1e-12).
const parallelEpsilon = 1e-12

// Config bundles the sensor's fixed beam geometry and mount pose.
type Config struct {
	Mount          geometry.Pose2D // body-frame mount point relative to ego
	AngleMin       float64
	AngleMax       float64
	NBeams         int
	RangeMin       float64
	RangeMax       float64
	SigmaRange     float64 // additive Gaussian noise std-dev, 0 disables noise
}

// directions caches the NBeams unit vectors in sensor-body frame, computed
// once at construction so the per-tick sweep only rotates/translates them.
type directions struct {
	dx, dy []float64
}

func newDirections(cfg Config) directions {
	d := directions{dx: make([]float64, cfg.NBeams), dy: make([]float64, cfg.NBeams)}
	if cfg.NBeams <= 1 {
		if cfg.NBeams == 1 {
			d.dx[0], d.dy[0] = math.Cos(cfg.AngleMin), math.Sin(cfg.AngleMin)
		}
		return d
	}
	step := (cfg.AngleMax - cfg.AngleMin) / float64(cfg.NBeams-1)
	for i := 0; i < cfg.NBeams; i++ {
		theta := cfg.AngleMin + float64(i)*step
		d.dx[i] = math.Cos(theta)
		d.dy[i] = math.Sin(theta)
	}
	return d
}

// Simulator holds the sensor configuration and the reused per-tick range
// buffer.
type Simulator struct {
	cfg    Config
	dirs   directions
	ranges []float64 // reused across ticks; len == cfg.NBeams
	rng    *rand.Rand
}

// New creates a Simulator for the given config. rng supplies the episode's
// seeded noise draws ("seeded from the episode RNG so runs are
// reproducible").
func New(cfg Config, rng *rand.Rand) *Simulator {
	return &Simulator{
		cfg:    cfg,
		dirs:   newDirections(cfg),
		ranges: make([]float64, cfg.NBeams),
		rng:    rng,
	}
}

// Scan casts the configured beam fan from the sensor's current world pose
// against worldSegments and every obstacle polygon's edges, writing the
// result into a reused LidarScan. The per-beam loop performs no heap
// allocation: segments are iterated by index, and the obstacle edge lists
// are owned by the caller and passed in pre-flattened.
func (s *Simulator) Scan(simTime float64, sensorPose geometry.Pose2D, worldSegments []model.Segment, obstacleEdges [][]model.Segment) model.LidarScan {
	originX, originY := sensorPose.X, sensorPose.Y
	cosYaw, sinYaw := math.Cos(sensorPose.Yaw), math.Sin(sensorPose.Yaw)

	for i := 0; i < s.cfg.NBeams; i++ {
		// Rotate the cached body-frame direction into world frame.
		bx, by := s.dirs.dx[i], s.dirs.dy[i]
		dx := bx*cosYaw - by*sinYaw
		dy := bx*sinYaw + by*cosYaw

		best := s.cfg.RangeMax
		found := false

		for segIdx := range worldSegments {
			if t, ok := intersect(originX, originY, dx, dy, worldSegments[segIdx]); ok {
				if !found || t < best {
					best, found = t, true
				}
			}
		}
		for obsIdx := range obstacleEdges {
			edges := obstacleEdges[obsIdx]
			for segIdx := range edges {
				if t, ok := intersect(originX, originY, dx, dy, edges[segIdx]); ok {
					if !found || t < best {
						best, found = t, true
					}
				}
			}
		}

		r := s.cfg.RangeMax
		if found {
			r = clampRange(best, s.cfg.RangeMin, s.cfg.RangeMax)
		}
		if s.cfg.SigmaRange > 0 && s.rng != nil {
			r = clampRange(r+s.rng.NormFloat64()*s.cfg.SigmaRange, s.cfg.RangeMin, s.cfg.RangeMax)
		}
		s.ranges[i] = r
	}

	return model.LidarScan{
		Timestamp:      simTime,
		OriginX:        originX,
		OriginY:        originY,
		AngleMin:       s.cfg.AngleMin,
		AngleIncrement: beamStep(s.cfg),
		NBeams:         s.cfg.NBeams,
		Ranges:         s.ranges,
		RangeMin:       s.cfg.RangeMin,
		RangeMax:       s.cfg.RangeMax,
	}
}

func beamStep(cfg Config) float64 {
	if cfg.NBeams <= 1 {
		return 0
	}
	return (cfg.AngleMax - cfg.AngleMin) / float64(cfg.NBeams-1)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// intersect solves O + t*d = p + u*(q-p) for t >= 0, u in [0,1]. Segments
// nearly parallel to the ray (|cross| < parallelEpsilon) are skipped
// rather than treated as a spurious hit.
func intersect(ox, oy, dx, dy float64, seg model.Segment) (t float64, ok bool) {
	ex := seg.QX - seg.PX
	ey := seg.QY - seg.PY

	cross := dx*ey - dy*ex
	if math.Abs(cross) < parallelEpsilon {
		return 0, false
	}

	// Solve the 2x2 linear system via Cramer's rule.
	rx := seg.PX - ox
	ry := seg.PY - oy

	tt := (rx*ey - ry*ex) / cross
	uu := (rx*dy - ry*dx) / cross

	if tt < 0 || uu < 0 || uu > 1 {
		return 0, false
	}
	return tt, true
}

// Node is the schedulable LiDAR sensor: it reads ego pose and world
// geometry/obstacle polygons from the blackboard and publishes a scan.
type Node struct {
	name     string
	rateHz   float64
	priority int
	sim      *Simulator
	board    *blackboard.Blackboard
}

// NewNode constructs a LiDAR node bound to the given Blackboard.
func NewNode(name string, rateHz float64, priority int, cfg Config, rng *rand.Rand, board *blackboard.Blackboard) *Node {
	return &Node{
		name:     name,
		rateHz:   rateHz,
		priority: priority,
		sim:      New(cfg, rng),
		board:    board,
	}
}

func (n *Node) Name() string    { return n.name }
func (n *Node) RateHz() float64 { return n.rateHz }
func (n *Node) Priority() int   { return n.priority }

func (n *Node) OnInit(ctx context.Context) error { return nil }

func (n *Node) OnRun(ctx context.Context, simTime float64) (node.Status, error) {
	state, ok := blackboard.Get[model.VehicleState](n.board, blackboard.TopicVehicleState)
	if !ok {
		return node.Skipped, nil
	}
	world, ok := blackboard.Get[model.WorldGeometry](n.board, blackboard.TopicWorldGeometry)
	if !ok {
		return node.Skipped, nil
	}
	edges, _ := blackboard.Get[[][]model.Segment](n.board, blackboard.TopicObstaclePolygons)

	sensorPose := geometry.ComposePose(
		geometry.Pose2D{X: state.X, Y: state.Y, Yaw: state.Yaw},
		n.sim.cfg.Mount,
	)

	scan := n.sim.Scan(simTime, sensorPose, world.Segments, edges)
	n.board.Publish(blackboard.TopicLidarScan, scan)
	return node.OK, nil
}

func (n *Node) OnShutdown(ctx context.Context) error { return nil }
