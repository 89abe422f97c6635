package export

import (
	"bufio"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/braketilt/internal/ride"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Series is one named line on a chart.
type Series struct {
	Label string
	Value func(ride.Sample) float64
	Color color.Color
}

// Chart describes one PNG written by WriteCharts.
type Chart struct {
	File   string
	Title  string
	YLabel string
	Series []Series
}

var (
	blue   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	orange = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	green  = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
)

// DefaultCharts plots the controller output, the pitch it reacted to and
// the motor speed.
var DefaultCharts = []Chart{
	{
		File: "setpoint.png", Title: "Brake-tilt setpoint", YLabel: "offset (deg)",
		Series: []Series{
			{Label: "target", Value: func(s ride.Sample) float64 { return s.Target }, Color: orange},
			{Label: "setpoint", Value: func(s ride.Sample) float64 { return s.Setpoint }, Color: blue},
		},
	},
	{
		File: "pitch.png", Title: "Pitch", YLabel: "pitch (deg)",
		Series: []Series{
			{Label: "pitch", Value: func(s ride.Sample) float64 { return s.Pitch }, Color: blue},
			{Label: "balance pitch", Value: func(s ride.Sample) float64 { return s.BalancePitch }, Color: green},
		},
	},
	{
		File: "erpm.png", Title: "Motor speed", YLabel: "ERPM",
		Series: []Series{
			{Label: "erpm", Value: func(s ride.Sample) float64 { return s.Erpm }, Color: blue},
		},
	},
}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)
	p.X.Tick.Marker = limitedTicker(10, "%.1f")
	p.Y.Tick.Marker = limitedTicker(8, "%.1f")
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
}

// NewChart builds the plot for one chart without rendering it.
func NewChart(chart Chart, result *ride.Result) (*plot.Plot, error) {
	if len(result.Samples) == 0 {
		return nil, fmt.Errorf("export: no samples to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", chart.Title, result.Scenario)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = chart.YLabel
	stylePlot(p)

	for _, series := range chart.Series {
		pts := make(plotter.XYs, len(result.Samples))
		for i, s := range result.Samples {
			pts[i].X = s.Time
			pts[i].Y = series.Value(s)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("export: %s: %w", series.Label, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = series.Color
		p.Add(line)
		p.Legend.Add(series.Label, line)
	}
	return p, nil
}

func savePlotPNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	w := vg.Length(widthIn) * vg.Inch
	h := vg.Length(heightIn) * vg.Inch

	c := vgimg.NewWith(
		vgimg.UseWH(w, h),
		vgimg.UseDPI(150),
	)
	dc := draw.New(c)
	p.Draw(dc)

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// WriteCharts renders every chart into outDir and returns the written paths.
func WriteCharts(outDir string, result *ride.Result, charts []Chart) ([]string, error) {
	paths := make([]string, 0, len(charts))
	for _, chart := range charts {
		p, err := NewChart(chart, result)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(outDir, chart.File)
		if err := savePlotPNG(p, 8, 4.5, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
