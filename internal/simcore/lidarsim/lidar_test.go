package lidarsim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/velocity.report/internal/simcore/geometry"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
)

// Scenario 5: a flat wall directly ahead of the sensor returns the
// exact perpendicular distance on the centre beam.
func TestScanFrontWallReturnsExactDistance(t *testing.T) {
	cfg := Config{
		AngleMin: -math.Pi / 4,
		AngleMax: math.Pi / 4,
		NBeams:   5,
		RangeMin: 0.1,
		RangeMax: 50,
	}
	sim := New(cfg, nil)

	wall := []model.Segment{{PX: 5, PY: -10, QX: 5, QY: 10}}
	scan := sim.Scan(0, geometry.Pose2D{X: 0, Y: 0, Yaw: 0}, wall, nil)

	require.Len(t, scan.Ranges, 5)
	centre := scan.Ranges[2] // angle 0, straight ahead
	assert.InDelta(t, 5.0, centre, 1e-9)
}

// A beam parallel to a segment (here, a beam aimed straight along a wall
// that runs parallel to the sensor's boresight) never registers a hit on
// that segment and falls back to RangeMax.
func TestScanParallelBeamSkipsSegment(t *testing.T) {
	cfg := Config{
		AngleMin: 0,
		AngleMax: 0,
		NBeams:   1,
		RangeMin: 0.1,
		RangeMax: 50,
	}
	sim := New(cfg, nil)

	// Wall runs along the +x axis, collinear with the single beam at angle 0.
	wall := []model.Segment{{PX: 1, PY: 0, QX: 10, QY: 0}}
	scan := sim.Scan(0, geometry.Pose2D{X: 0, Y: 0, Yaw: 0}, wall, nil)

	require.Len(t, scan.Ranges, 1)
	assert.Equal(t, cfg.RangeMax, scan.Ranges[0])
}

func TestScanClampsToRangeBounds(t *testing.T) {
	cfg := Config{
		AngleMin: 0,
		AngleMax: 0,
		NBeams:   1,
		RangeMin: 1,
		RangeMax: 10,
	}
	sim := New(cfg, nil)

	// Obstacle closer than RangeMin.
	near := []model.Segment{{PX: 0.2, PY: -1, QX: 0.2, QY: 1}}
	scan := sim.Scan(0, geometry.Pose2D{}, near, nil)
	assert.Equal(t, cfg.RangeMin, scan.Ranges[0])

	// No obstacle at all: falls back to RangeMax.
	scanEmpty := sim.Scan(0, geometry.Pose2D{}, nil, nil)
	assert.Equal(t, cfg.RangeMax, scanEmpty.Ranges[0])
}

func TestScanHitsNearestOfMultipleSegments(t *testing.T) {
	cfg := Config{AngleMin: 0, AngleMax: 0, NBeams: 1, RangeMin: 0.1, RangeMax: 50}
	sim := New(cfg, nil)

	far := model.Segment{PX: 10, PY: -1, QX: 10, QY: 1}
	near := model.Segment{PX: 3, PY: -1, QX: 3, QY: 1}
	scan := sim.Scan(0, geometry.Pose2D{}, []model.Segment{far, near}, nil)
	assert.InDelta(t, 3.0, scan.Ranges[0], 1e-9)
}

func TestScanReadsObstacleEdges(t *testing.T) {
	cfg := Config{AngleMin: 0, AngleMax: 0, NBeams: 1, RangeMin: 0.1, RangeMax: 50}
	sim := New(cfg, nil)

	obstacleBox := []model.Segment{
		{PX: 4, PY: -1, QX: 4, QY: 1},
		{PX: 4, PY: 1, QX: 6, QY: 1},
		{PX: 6, PY: 1, QX: 6, QY: -1},
		{PX: 6, PY: -1, QX: 4, QY: -1},
	}
	scan := sim.Scan(0, geometry.Pose2D{}, nil, [][]model.Segment{obstacleBox})
	assert.InDelta(t, 4.0, scan.Ranges[0], 1e-9)
}
