package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/wcharczuk/go-chart/v2"
)

const (
	chartHeight   = 720
	minChartWidth = 1024
)

// RenderMetricChart draws the mean of metric for every (test file, tool)
// pair as a bar chart. Tools without data for the metric are left out.
func RenderMetricChart(path string, results *Results, metric Metric) error {
	testFiles := results.TestFiles()
	bars := make([]chart.Value, 0)
	maxValue := 0.0
	for _, testFile := range testFiles {
		for _, tool := range results.ToolNames() {
			mean, ok := results.Mean(testFile, tool, metric.Name)
			if !ok {
				continue
			}
			label := tool
			if len(testFiles) > 1 {
				label = fmt.Sprintf("%v (%v)", tool, stem(testFile))
			}
			bars = append(bars, chart.Value{Label: label, Value: mean})
			maxValue = math.Max(maxValue, mean)
		}
	}
	if len(bars) == 0 {
		return fmt.Errorf("no data for metric %v", metric.Name)
	}
	if maxValue == 0 {
		maxValue = 1
	}

	graph := chart.BarChart{
		Title:      metric.Description + " by tool",
		Width:      max(minChartWidth, 140*len(bars)+200),
		Height:     chartHeight,
		BarWidth:   60,
		Background: chart.Style{Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20}},
		YAxis: chart.YAxis{
			Name:  metric.Title(),
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue * 1.1},
		},
		Bars: bars,
	}
	return renderPNG(path, graph)
}

// RenderOverviewChart draws one line per metric with the mean of every tool
// normalized to the original program, averaged over test files.
func RenderOverviewChart(path string, results *Results) error {
	tools := results.ToolNames()
	if len(tools) < 2 {
		return fmt.Errorf("at least two tools are required, got %v", len(tools))
	}
	if results.Outcome(firstOr(results.TestFiles(), ""), "original") == nil {
		return fmt.Errorf("original results are missing")
	}

	ticks := make([]chart.Tick, len(tools))
	for i, tool := range tools {
		ticks[i] = chart.Tick{Value: float64(i), Label: tool}
	}

	series := make([]chart.Series, 0, len(Metrics))
	maxValue := 1.0
	for _, metric := range Metrics {
		xs := make([]float64, 0, len(tools))
		ys := make([]float64, 0, len(tools))
		for i, tool := range tools {
			sum, n := 0.0, 0
			for _, testFile := range results.TestFiles() {
				if ratio, ok := results.Relative(testFile, tool, metric.Name); ok {
					sum += ratio
					n++
				}
			}
			if n == 0 {
				continue
			}
			xs = append(xs, float64(i))
			ys = append(ys, sum/float64(n))
			maxValue = math.Max(maxValue, sum/float64(n))
		}
		if len(xs) == 0 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    metric.Description,
			XValues: xs,
			YValues: ys,
		})
	}
	if len(series) == 0 {
		return fmt.Errorf("no metric has data relative to original")
	}

	graph := chart.Chart{
		Title:      "Metrics relative to original",
		Width:      max(minChartWidth, 140*len(tools)+200),
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 60, Left: 160, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:  "Tool",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(tools) - 1)},
		},
		YAxis: chart.YAxis{
			Name:  "Relative to original",
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue * 1.1},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}
	return renderPNG(path, graph)
}

type pngChart interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func renderPNG(path string, graph pngChart) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := graph.Render(chart.PNG, file); err != nil {
		return fmt.Errorf("failed to render %v: %w", path, err)
	}
	Logger.Infof("written chart %v", path)
	return file.Close()
}

func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}
