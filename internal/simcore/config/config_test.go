package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalValidConfig = `{
	"clock_rate_hz": 100,
	"duration_sim": 30,
	"seed": 1,
	"lidar": {"n_beams": 0, "range_min": 0, "range_max": 10, "rate_hz": 10},
	"world": {"road_half_width": 2, "off_track_margin": 0.5}
}`

func TestLoadParsesMinimalValidConfig(t *testing.T) {
	cfg, err := Load(strings.NewReader(minimalValidConfig))
	require.NoError(t, err)
	assert.Equal(t, 100.0, cfg.ClockRateHz)
	assert.Equal(t, int64(1), cfg.Seed)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	bad := `{"clock_rate_hz": 100, "duration_sim": 1, "lidar": {}, "world": {}, "bogus_field": 1}`
	_, err := Load(strings.NewReader(bad))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load(strings.NewReader("{not json"))
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestValidateRejectsNonPositiveClockRate(t *testing.T) {
	cfg := &EpisodeConfig{ClockRateHz: 0, DurationSim: 1}
	err := cfg.Validate()
	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "clock_rate_hz", ce.Field)
}

func TestValidateRejectsNonPositiveDuration(t *testing.T) {
	cfg := &EpisodeConfig{ClockRateHz: 10, DurationSim: 0}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsInvertedLidarRange(t *testing.T) {
	cfg := &EpisodeConfig{ClockRateHz: 10, DurationSim: 1, Lidar: LidarConfig{RangeMin: 10, RangeMax: 1}}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateObstacleRequiresExactlyOneShape(t *testing.T) {
	cfg := &EpisodeConfig{
		ClockRateHz: 10, DurationSim: 1,
		Obstacles: []rawObstacle{{ID: "a", Type: "static"}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape")
}

func TestValidateObstacleRejectsBothShapes(t *testing.T) {
	width := 1.0
	cfg := &EpisodeConfig{
		ClockRateHz: 10, DurationSim: 1,
		Obstacles: []rawObstacle{{
			ID: "a", Type: "static",
			Shape: rawShape{
				Rectangle: &struct {
					Width  float64 `json:"width"`
					Length float64 `json:"length"`
				}{Width: width, Length: width},
				Circle: &struct {
					Radius float64 `json:"radius"`
				}{Radius: width},
			},
		}},
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateDynamicObstacleRequiresZeroStartTime(t *testing.T) {
	cfg := &EpisodeConfig{
		ClockRateHz: 10, DurationSim: 1,
		Obstacles: []rawObstacle{{
			ID: "a", Type: "dynamic",
			Waypoints: []rawWaypoint{{T: 1}},
			Shape: rawShape{Circle: &struct {
				Radius float64 `json:"radius"`
			}{Radius: 1}},
		}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t == 0")
}

func TestValidateDynamicObstacleRequiresStrictlyIncreasingTimes(t *testing.T) {
	cfg := &EpisodeConfig{
		ClockRateHz: 10, DurationSim: 1,
		Obstacles: []rawObstacle{{
			ID: "a", Type: "dynamic",
			Waypoints: []rawWaypoint{{T: 0}, {T: 1}, {T: 1}},
			Shape: rawShape{Circle: &struct {
				Radius float64 `json:"radius"`
			}{Radius: 1}},
		}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "increasing")
}

func TestValidateRejectsUnrecognisedObstacleType(t *testing.T) {
	cfg := &EpisodeConfig{
		ClockRateHz: 10, DurationSim: 1,
		Obstacles: []rawObstacle{{ID: "a", Type: "ghost"}},
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestResolveVehicleParamsMergesOverridesOntoDefaults(t *testing.T) {
	wheelbase := 3.0
	vc := VehicleParamsConfig{Wheelbase: &wheelbase}
	got := vc.ResolveVehicleParams()

	want := DefaultVehicleParams()
	want.Wheelbase = 3.0
	assert.Equal(t, want, got)
}

func TestResolveVehicleParamsAllDefaultsWhenEmpty(t *testing.T) {
	vc := VehicleParamsConfig{}
	assert.Equal(t, DefaultVehicleParams(), vc.ResolveVehicleParams())
}

func TestPlannerConfigToControlCommand(t *testing.T) {
	p := PlannerConfig{SteerCmd: 0.3, AccelCmd: 1.5}
	got := p.ToControlCommand()
	assert.Equal(t, 0.3, got.SteerCmd)
	assert.Equal(t, 1.5, got.AccelCmd)
}

func TestPlannerConfigDefaultsToStationaryCommand(t *testing.T) {
	var p PlannerConfig
	got := p.ToControlCommand()
	assert.Zero(t, got.SteerCmd)
	assert.Zero(t, got.AccelCmd)
}

func TestToObstaclesConvertsStaticAndDynamic(t *testing.T) {
	radius := 0.5
	width, length := 2.0, 4.0
	cfg := &EpisodeConfig{
		Obstacles: []rawObstacle{
			{ID: "static1", Type: "static", X: 1, Y: 2, Yaw: 0.1,
				Shape: rawShape{Circle: &struct {
					Radius float64 `json:"radius"`
				}{Radius: radius}}},
			{ID: "dyn1", Type: "dynamic", Waypoints: []rawWaypoint{{T: 0, X: 0}, {T: 1, X: 10}},
				Shape: rawShape{Rectangle: &struct {
					Width  float64 `json:"width"`
					Length float64 `json:"length"`
				}{Width: width, Length: length}}},
		},
	}
	out := cfg.ToObstacles()
	require.Len(t, out, 2)
	assert.Equal(t, "static1", out[0].ID)
	assert.InDelta(t, radius, out[0].CircleRadius, 1e-9)
	assert.Equal(t, "dyn1", out[1].ID)
	assert.Len(t, out[1].Waypoints, 2)
	assert.InDelta(t, width, out[1].RectWidth, 1e-9)
}
