// Command simcore runs a single deterministic simulation episode from a
// JSON configuration file and prints the resulting EpisodeResult.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/google/uuid"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/clock"
	"github.com/banshee-data/velocity.report/internal/simcore/collaborators"
	"github.com/banshee-data/velocity.report/internal/simcore/collision"
	"github.com/banshee-data/velocity.report/internal/simcore/config"
	"github.com/banshee-data/velocity.report/internal/simcore/executor"
	"github.com/banshee-data/velocity.report/internal/simcore/geometry"
	"github.com/banshee-data/velocity.report/internal/simcore/lidarsim"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
	"github.com/banshee-data/velocity.report/internal/simcore/node"
	"github.com/banshee-data/velocity.report/internal/simcore/obstacle"
	"github.com/banshee-data/velocity.report/internal/simcore/telemetry"
	"github.com/banshee-data/velocity.report/internal/simcore/units"
	"github.com/banshee-data/velocity.report/internal/simcore/vehicle"
	"github.com/banshee-data/velocity.report/internal/version"
)

var (
	configPath  = flag.String("config", "episode.json", "path to the episode configuration JSON file")
	dbFile      = flag.String("db", "episode.db", "path to the SQLite telemetry database (empty to disable)")
	plotFile    = flag.String("plot", "trajectory.png", "path to write the trajectory PNG (empty to skip)")
	chartFile   = flag.String("chart", "telemetry.html", "path to write the interactive HTML chart (empty to skip)")
	speedUnits  = flag.String("speed-units", units.MPS, "display unit for the mean-speed summary line (mps, mph, kmph, kph)")
	showVersion = flag.Bool("version", false, "print the build version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("simcore %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	f, err := os.Open(*configPath)
	if err != nil {
		log.Fatalf("simcore: open config: %v", err)
	}
	cfg, err := config.Load(f)
	f.Close()
	if err != nil {
		log.Fatalf("simcore: invalid config: %v", err)
	}

	result, meanSpeed, err := runEpisode(cfg, *dbFile, *plotFile, *chartFile)
	if err != nil {
		log.Fatalf("simcore: episode failed: %v", err)
	}
	log.Printf("simcore: mean speed %.2f %s", units.ConvertSpeed(meanSpeed, *speedUnits), *speedUnits)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("simcore: encode result: %v", err)
	}
}

func runEpisode(cfg *config.EpisodeConfig, dbFile, plotFile, chartFile string) (model.EpisodeResult, float64, error) {
	ctx := context.Background()
	episodeID := uuid.NewString()

	c := clock.New(cfg.ClockRateHz)
	board := blackboard.New()
	ex := executor.New(c, board)

	rng := rand.New(rand.NewSource(cfg.Seed))
	vehicleParams := cfg.Vehicle.ResolveVehicleParams()
	world := cfg.World.ToWorldGeometry()
	board.Publish(blackboard.TopicWorldGeometry, world)

	dynamicsRate := cfg.DynamicsRateHz
	if dynamicsRate == 0 {
		dynamicsRate = cfg.ClockRateHz
	}
	collisionRate := cfg.CollisionRateHz
	if collisionRate == 0 {
		collisionRate = cfg.ClockRateHz
	}
	obstacleRate := cfg.ObstacleRateHz
	if obstacleRate == 0 {
		obstacleRate = cfg.ClockRateHz
	}

	// Priority order: obstacle manager, planner, dynamics, lidar,
	// collision, logger. Dynamics must run before collision in the same
	// tick, so collision always sees the current tick's post-step pose.
	const (
		prioObstacle = iota
		prioPlanner
		prioDynamics
		prioLidar
		prioCollision
		prioLogger
	)

	ex.Register(obstacle.NewNode("obstacle_manager", obstacleRate, prioObstacle, cfg.ToObstacles(), board))
	ex.Register(collaborators.NewConstantPlannerNode("planner", dynamicsRate, prioPlanner, cfg.Planner.ToControlCommand(), board))
	ex.Register(vehicle.NewNode("dynamics", dynamicsRate, prioDynamics, vehicleParams, cfg.InitialState, board))
	ex.Register(lidarsim.NewNode("lidar", cfg.Lidar.RateHz, prioLidar, lidarsim.Config{
		Mount:      geometry.Pose2D{X: cfg.Lidar.MountX, Y: cfg.Lidar.MountY, Yaw: cfg.Lidar.MountYaw},
		AngleMin:   cfg.Lidar.AngleMin,
		AngleMax:   cfg.Lidar.AngleMax,
		NBeams:     cfg.Lidar.NBeams,
		RangeMin:   cfg.Lidar.RangeMin,
		RangeMax:   cfg.Lidar.RangeMax,
		SigmaRange: cfg.Lidar.SigmaRange,
	}, rng, board))
	collisionNode := collision.NewNode("collision", collisionRate, prioCollision, vehicleParams, board)
	ex.Register(collisionNode)

	var sink *telemetry.Sink
	if dbFile != "" {
		var err error
		sink, err = telemetry.Open(dbFile)
		if err != nil {
			return model.EpisodeResult{}, 0, fmt.Errorf("open telemetry sink: %w", err)
		}
		defer sink.Close()
	}
	loggerNode := telemetry.NewLoggerNode("logger", cfg.ClockRateHz, prioLogger, board, sink, plotFile, chartFile)
	ex.Register(loggerNode)

	reason, err := ex.Run(ctx, cfg.DurationSim, nil)
	if err != nil {
		erroringNode := ""
		var fatal *node.FatalError
		if errors.As(err, &fatal) {
			erroringNode = fatal.NodeName()
		}
		result := telemetry.BuildResult(board, collisionNode.Metrics(), "error", c.Now(), erroringNode, episodeID)
		if sink != nil {
			_ = sink.WriteResult(ctx, result, snapshotJSON(cfg))
		}
		meanSpeed, _ := loggerNode.SpeedStats()
		return result, meanSpeed, nil
	}

	result := telemetry.BuildResult(board, collisionNode.Metrics(), reason, c.Now(), "", episodeID)
	if sink != nil {
		if err := sink.WriteResult(ctx, result, snapshotJSON(cfg)); err != nil {
			meanSpeed, _ := loggerNode.SpeedStats()
			return result, meanSpeed, fmt.Errorf("write result: %w", err)
		}
	}
	meanSpeed, _ := loggerNode.SpeedStats()
	return result, meanSpeed, nil
}

func snapshotJSON(cfg *config.EpisodeConfig) string {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "{}"
	}
	return string(b)
}

