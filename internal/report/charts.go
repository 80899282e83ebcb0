package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
)

// Chart rendering dimensions, sized for a full-width PDF figure.
const (
	chartWidth  = 800
	chartHeight = 400
)

// renderBarChart renders a PNG bar chart. Returns nil bytes (no error)
// when there is nothing to plot.
func renderBarChart(title string, values []chart.Value) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}

	maxVal := 0.0
	for _, v := range values {
		if v.Value > maxVal {
			maxVal = v.Value
		}
	}
	if maxVal == 0 {
		return nil, nil
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   40,
		BarSpacing: 20,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxVal * 1.15},
		},
		Bars: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

// questionTypeChart plots the question-type distribution.
func questionTypeChart(a *Analysis, title string) ([]byte, error) {
	var bars []chart.Value
	for _, qt := range QuestionTypeOrder {
		if count := a.QuestionTypes[qt]; count > 0 {
			bars = append(bars, chart.Value{Label: string(qt), Value: float64(count)})
		}
	}
	return renderBarChart(title, bars)
}

// complexityChart plots the per-question complexity scores.
func complexityChart(a *Analysis, title string) ([]byte, error) {
	var bars []chart.Value
	for i, score := range a.Complexity {
		bars = append(bars, chart.Value{Label: fmt.Sprintf("Q%d", i+1), Value: score})
	}
	return renderBarChart(title, bars)
}

// topTokensInChart caps how many frequency entries fit on one chart.
const topTokensInChart = 10

// frequencyChart plots the top tokens of one text category.
func frequencyChart(title string, freq []TokenCount) ([]byte, error) {
	var bars []chart.Value
	for i, tc := range freq {
		if i >= topTokensInChart {
			break
		}
		bars = append(bars, chart.Value{Label: tc.Token, Value: float64(tc.Count)})
	}
	return renderBarChart(title, bars)
}
