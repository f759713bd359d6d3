// Package config decodes an episode configuration from JSON into the
// strongly-typed structs the simulation core consumes, mirroring the
// optional-pointer-field pattern internal/config/tuning.go uses for its
// TuningConfig: every vehicle tunable in VehicleParamsConfig is a pointer
// so "absent" and "explicitly zero" are distinguishable, and a merge pass
// fills in defaults for whatever the caller omitted.
package config

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/banshee-data/velocity.report/internal/simcore/model"
)

// ConfigError reports a malformed configuration detected before OnInit,
// per the error-kind table: config errors abort the episode before
// any node runs.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// rawShape mirrors the closed set of recognised obstacle shape options:
// {rectangle: {width, length}, circle: {radius}}.
type rawShape struct {
	Rectangle *struct {
		Width  float64 `json:"width"`
		Length float64 `json:"length"`
	} `json:"rectangle,omitempty"`
	Circle *struct {
		Radius float64 `json:"radius"`
	} `json:"circle,omitempty"`
}

type rawWaypoint struct {
	T   float64 `json:"t"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

type rawObstacle struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"` // "static" | "dynamic"
	Shape     rawShape      `json:"shape"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	Yaw       float64       `json:"yaw"`
	Waypoints []rawWaypoint `json:"waypoints,omitempty"`
}

// VehicleParamsConfig mirrors model.VehicleParams with pointer fields so
// each field individually falls back to DefaultVehicleParams when omitted.
type VehicleParamsConfig struct {
	Wheelbase    *float64 `json:"wheelbase,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	Length       *float64 `json:"length,omitempty"`
	RearOverhang *float64 `json:"rear_overhang,omitempty"`
	KSteer       *float64 `json:"k_steer,omitempty"`
	TauSteer     *float64 `json:"tau_steer,omitempty"`
	LDeadSteer   *float64 `json:"l_dead_steer,omitempty"`
	MaxSteer     *float64 `json:"max_steer,omitempty"`
	KAcc         *float64 `json:"k_acc,omitempty"`
	Offset       *float64 `json:"offset,omitempty"`
	CDrag        *float64 `json:"c_drag,omitempty"`
	CCorner      *float64 `json:"c_corner,omitempty"`
	AMin         *float64 `json:"a_min,omitempty"`
	AMax         *float64 `json:"a_max,omitempty"`
}

// LidarConfig mirrors lidarsim.Config with JSON tags.
type LidarConfig struct {
	MountX     float64 `json:"mount_x"`
	MountY     float64 `json:"mount_y"`
	MountYaw   float64 `json:"mount_yaw"`
	AngleMin   float64 `json:"angle_min"`
	AngleMax   float64 `json:"angle_max"`
	NBeams     int     `json:"n_beams"`
	RangeMin   float64 `json:"range_min"`
	RangeMax   float64 `json:"range_max"`
	SigmaRange float64 `json:"sigma_range,omitempty"`
	RateHz     float64 `json:"rate_hz"`
}

// EpisodeConfig is the root JSON document recognised by the core: clock
// rate, duration, seed, vehicle params, initial state, world geometry,
// obstacles, and per-node rates.
type EpisodeConfig struct {
	ClockRateHz    float64               `json:"clock_rate_hz"`
	DurationSim    float64               `json:"duration_sim"`
	Seed           int64                 `json:"seed"`
	Vehicle        VehicleParamsConfig   `json:"vehicle,omitempty"`
	InitialState   model.VehicleState    `json:"initial_state,omitempty"`
	Planner        PlannerConfig         `json:"planner,omitempty"`
	Lidar          LidarConfig           `json:"lidar"`
	World          WorldConfig           `json:"world"`
	Obstacles      []rawObstacle         `json:"obstacles,omitempty"`
	DynamicsRateHz float64               `json:"dynamics_rate_hz,omitempty"`
	CollisionRateHz float64              `json:"collision_rate_hz,omitempty"`
	ObstacleRateHz float64               `json:"obstacle_rate_hz,omitempty"`
}

// PlannerConfig is the fixed command the reference ConstantPlannerNode
// collaborator publishes every tick. A production ML planner is out of
// scope; this lets the shipped CLI still drive a moving episode instead of
// only ever running a stationary vehicle to timeout.
type PlannerConfig struct {
	SteerCmd float64 `json:"steer_cmd,omitempty"`
	AccelCmd float64 `json:"accel_cmd,omitempty"`
}

// ToControlCommand converts the configured planner command into the
// model.ControlCommand the ConstantPlannerNode publishes.
func (p PlannerConfig) ToControlCommand() model.ControlCommand {
	return model.ControlCommand{SteerCmd: p.SteerCmd, AccelCmd: p.AccelCmd}
}

// WorldConfig mirrors model.WorldGeometry with JSON tags.
type WorldConfig struct {
	Segments       []model.Segment          `json:"segments"`
	Centreline     []model.CentrelinePoint  `json:"centreline"`
	Checkpoints    []float64                `json:"checkpoints"`
	RoadHalfWidth  float64                  `json:"road_half_width"`
	OffTrackMargin float64                  `json:"off_track_margin"`
}

// Load parses an EpisodeConfig from r and validates it, returning a
// *ConfigError for the first problem found.
func Load(r io.Reader) (*EpisodeConfig, error) {
	var cfg EpisodeConfig
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigError{Field: "<root>", Msg: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration's structural invariants, returning
// the first violation found as a *ConfigError.
func (c *EpisodeConfig) Validate() error {
	if c.ClockRateHz <= 0 {
		return &ConfigError{Field: "clock_rate_hz", Msg: "must be positive"}
	}
	if c.DurationSim <= 0 {
		return &ConfigError{Field: "duration_sim", Msg: "must be positive"}
	}
	if c.Lidar.NBeams < 0 {
		return &ConfigError{Field: "lidar.n_beams", Msg: "must be non-negative"}
	}
	if c.Lidar.RangeMin < 0 || c.Lidar.RangeMax < c.Lidar.RangeMin {
		return &ConfigError{Field: "lidar.range_min/range_max", Msg: "range_min must be >= 0 and <= range_max"}
	}
	for i, o := range c.Obstacles {
		if err := validateObstacle(i, o); err != nil {
			return err
		}
	}
	return nil
}

func validateObstacle(i int, o rawObstacle) error {
	field := fmt.Sprintf("obstacles[%d]", i)
	switch o.Type {
	case "static":
	case "dynamic":
		if len(o.Waypoints) == 0 {
			return &ConfigError{Field: field, Msg: "dynamic obstacle requires at least one waypoint"}
		}
		if o.Waypoints[0].T != 0 {
			return &ConfigError{Field: field, Msg: "first waypoint must have t == 0"}
		}
		for j := 1; j < len(o.Waypoints); j++ {
			if o.Waypoints[j].T <= o.Waypoints[j-1].T {
				return &ConfigError{Field: field, Msg: "waypoint times must be strictly increasing"}
			}
		}
	default:
		return &ConfigError{Field: field + ".type", Msg: fmt.Sprintf("unrecognised obstacle type %q", o.Type)}
	}
	switch {
	case o.Shape.Rectangle != nil && o.Shape.Circle != nil:
		return &ConfigError{Field: field + ".shape", Msg: "exactly one of rectangle or circle must be set"}
	case o.Shape.Rectangle == nil && o.Shape.Circle == nil:
		return &ConfigError{Field: field + ".shape", Msg: "exactly one of rectangle or circle must be set"}
	}
	return nil
}

// ToObstacles converts the decoded raw obstacles into model.Obstacle
// values ready for the obstacle manager.
func (c *EpisodeConfig) ToObstacles() []model.Obstacle {
	out := make([]model.Obstacle, len(c.Obstacles))
	for i, o := range c.Obstacles {
		m := model.Obstacle{ID: o.ID}
		if o.Type == "dynamic" {
			m.Kind = model.ObstacleDynamic
			m.Waypoints = make([]model.Waypoint, len(o.Waypoints))
			for j, wp := range o.Waypoints {
				m.Waypoints[j] = model.Waypoint{T: wp.T, X: wp.X, Y: wp.Y, Yaw: wp.Yaw}
			}
		} else {
			m.Kind = model.ObstacleStatic
			m.X, m.Y, m.Yaw = o.X, o.Y, o.Yaw
		}
		if o.Shape.Rectangle != nil {
			m.Shape = model.ShapeRectangle
			m.RectWidth = o.Shape.Rectangle.Width
			m.RectLength = o.Shape.Rectangle.Length
		} else if o.Shape.Circle != nil {
			m.Shape = model.ShapeCircle
			m.CircleRadius = o.Shape.Circle.Radius
		}
		out[i] = m
	}
	return out
}

// DefaultVehicleParams are the fallback values used for any field omitted
// from VehicleParamsConfig.
func DefaultVehicleParams() model.VehicleParams {
	return model.VehicleParams{
		Wheelbase:    2.7,
		Width:        1.8,
		Length:       4.5,
		RearOverhang: 1.0,
		KSteer:       1.0,
		TauSteer:     0.1,
		LDeadSteer:   0.0,
		MaxSteer:     0.6,
		KAcc:         1.0,
		Offset:       0.0,
		CDrag:        0.001,
		CCorner:      0.0005,
		AMin:         -4.0,
		AMax:         3.0,
	}
}

// ResolveVehicleParams merges the configured overrides onto the default
// vehicle params, field by field.
func (c *VehicleParamsConfig) ResolveVehicleParams() model.VehicleParams {
	p := DefaultVehicleParams()
	if c.Wheelbase != nil {
		p.Wheelbase = *c.Wheelbase
	}
	if c.Width != nil {
		p.Width = *c.Width
	}
	if c.Length != nil {
		p.Length = *c.Length
	}
	if c.RearOverhang != nil {
		p.RearOverhang = *c.RearOverhang
	}
	if c.KSteer != nil {
		p.KSteer = *c.KSteer
	}
	if c.TauSteer != nil {
		p.TauSteer = *c.TauSteer
	}
	if c.LDeadSteer != nil {
		p.LDeadSteer = *c.LDeadSteer
	}
	if c.MaxSteer != nil {
		p.MaxSteer = *c.MaxSteer
	}
	if c.KAcc != nil {
		p.KAcc = *c.KAcc
	}
	if c.Offset != nil {
		p.Offset = *c.Offset
	}
	if c.CDrag != nil {
		p.CDrag = *c.CDrag
	}
	if c.CCorner != nil {
		p.CCorner = *c.CCorner
	}
	if c.AMin != nil {
		p.AMin = *c.AMin
	}
	if c.AMax != nil {
		p.AMax = *c.AMax
	}
	return p
}

// ToWorldGeometry converts the decoded world config into model.WorldGeometry.
func (c *WorldConfig) ToWorldGeometry() model.WorldGeometry {
	return model.WorldGeometry{
		Segments:       c.Segments,
		Centreline:     c.Centreline,
		Checkpoints:    c.Checkpoints,
		RoadHalfWidth:  c.RoadHalfWidth,
		OffTrackMargin: c.OffTrackMargin,
	}
}
