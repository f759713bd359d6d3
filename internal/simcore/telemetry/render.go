package telemetry

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// RenderTrajectoryPlot renders the ego vehicle's (x, y) trajectory over
// the episode to a PNG at path, grounded on GridPlotter
// (internal/lidar/monitor/gridplotter.go): one plot.New(),
// one plotter.NewLine() series, one Save call.
func RenderTrajectoryPlot(path string, records []TickRecord) error {
	if len(records) == 0 {
		return nil
	}
	p := plot.New()
	p.Title.Text = "Ego trajectory"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	pts := make(plotter.XYs, len(records))
	for i, r := range records {
		pts[i].X = r.State.X
		pts[i].Y = r.State.Y
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)

	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}

// RenderTimeSeriesChart renders an interactive HTML time series of speed,
// effective steering angle, and commanded acceleration, grounded on the
// echarts handlers in internal/lidar/monitor/echarts_handlers.go.
func RenderTimeSeriesChart(path string, records []TickRecord) error {
	if len(records) == 0 {
		return nil
	}

	xAxis := make([]string, len(records))
	speed := make([]opts.LineData, len(records))
	steer := make([]opts.LineData, len(records))
	accel := make([]opts.LineData, len(records))
	for i, r := range records {
		xAxis[i] = formatSimTime(r.SimTime)
		speed[i] = opts.LineData{Value: r.State.Vx}
		steer[i] = opts.LineData{Value: r.State.SteerEff}
		accel[i] = opts.LineData{Value: r.Cmd.AccelCmd}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Episode telemetry"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sim time (s)"}),
	)
	line.SetXAxis(xAxis).
		AddSeries("speed (m/s)", speed).
		AddSeries("steer_eff (rad)", steer).
		AddSeries("accel_cmd (m/s^2)", accel)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}

func formatSimTime(t float64) string {
	return fmt.Sprintf("%.2f", t)
}
