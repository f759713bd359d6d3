package telemetry

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
	"github.com/banshee-data/velocity.report/internal/simcore/node"
)

// LoggerNode is a concrete reference implementation of the "Logger"
// external collaborator: at its declared rate it reads the vehicle state
// and control command topics (other topics, such as LiDAR scans and
// obstacle poses, are not recorded), buffers the result in memory, and
// flushes to a Sink
// (plus renders charts) only on shutdown. The recorded stream's format is
// this module's own opaque choice.
type LoggerNode struct {
	name     string
	rateHz   float64
	priority int
	board    *blackboard.Blackboard
	sink     *Sink
	plotPath string
	chartPath string

	records []TickRecord
	speeds  []float64
	lateral []float64
}

// NewLoggerNode constructs the logger node. plotPath/chartPath may be
// empty to skip rendering the corresponding artefact.
func NewLoggerNode(name string, rateHz float64, priority int, board *blackboard.Blackboard, sink *Sink, plotPath, chartPath string) *LoggerNode {
	return &LoggerNode{
		name:      name,
		rateHz:    rateHz,
		priority:  priority,
		board:     board,
		sink:      sink,
		plotPath:  plotPath,
		chartPath: chartPath,
	}
}

func (n *LoggerNode) Name() string    { return n.name }
func (n *LoggerNode) RateHz() float64 { return n.rateHz }
func (n *LoggerNode) Priority() int   { return n.priority }

func (n *LoggerNode) OnInit(ctx context.Context) error { return nil }

func (n *LoggerNode) OnRun(ctx context.Context, simTime float64) (node.Status, error) {
	state, ok := blackboard.Get[model.VehicleState](n.board, blackboard.TopicVehicleState)
	if !ok {
		return node.Skipped, nil
	}
	cmd, _ := blackboard.Get[model.ControlCommand](n.board, blackboard.TopicControlCommand)

	n.records = append(n.records, TickRecord{
		Tick:    int64(len(n.records)),
		SimTime: simTime,
		State:   state,
		Cmd:     cmd,
	})
	n.speeds = append(n.speeds, state.Vx)
	return node.OK, nil
}

// OnShutdown flushes every buffered tick to the sink (if configured) and
// renders the PNG/HTML telemetry artefacts. Persistence and rendering
// failures are reported but do not themselves change episode status —
// they are housekeeping, not simulation semantics.
func (n *LoggerNode) OnShutdown(ctx context.Context) error {
	if n.sink != nil {
		if err := n.sink.FlushTicks(ctx, n.records); err != nil {
			return err
		}
	}
	if n.plotPath != "" {
		if err := RenderTrajectoryPlot(n.plotPath, n.records); err != nil {
			return err
		}
	}
	if n.chartPath != "" {
		if err := RenderTimeSeriesChart(n.chartPath, n.records); err != nil {
			return err
		}
	}
	return nil
}

// SpeedStats returns the mean and standard deviation of every recorded
// speed sample, via gonum/stat. The EpisodeResult does not carry these
// figures; cmd/simcore prints the mean as its speed summary line.
func (n *LoggerNode) SpeedStats() (mean, stddev float64) {
	if len(n.speeds) == 0 {
		return 0, 0
	}
	mean = stat.Mean(n.speeds, nil)
	stddev = stat.StdDev(n.speeds, nil)
	return mean, stddev
}

// Records exposes the buffered tick records, mainly for tests asserting on
// logger fairness/content without touching the database.
func (n *LoggerNode) Records() []TickRecord {
	return n.records
}
