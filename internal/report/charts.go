// Package report renders the backtest comparison report: PNG charts for the
// wealth, drawdown, and return-distribution series, assembled into a static
// HTML document with the performance statistics table.
package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/vicanso/go-charts/v2"

	"stratbt/internal/domain"
)

// chartSeries is one named line in a chart.
type chartSeries struct {
	name  string
	curve domain.Curve
}

// lineChart renders one or more curves as a PNG line chart. All curves must
// share the first curve's date axis.
func lineChart(title string, series []chartSeries) ([]byte, error) {
	if len(series) == 0 {
		return nil, errors.New("no series to plot")
	}

	axis := series[0].curve.Dates
	labels := make([]string, len(axis))
	for i, d := range axis {
		labels[i] = d.Format("2006-01")
	}

	values := make([][]float64, len(series))
	names := make([]string, len(series))
	for i, s := range series {
		if len(s.curve.Values) != len(axis) {
			return nil, fmt.Errorf("series %q has %d points, axis has %d",
				s.name, len(s.curve.Values), len(axis))
		}
		values[i] = s.curve.Values
		names[i] = s.name
	}

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 10,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeDark),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering %q: %w", title, err)
	}
	return painter.Bytes()
}

// histogramChart buckets the values into bins and renders a bar chart of the
// counts.
func histogramChart(title string, values []float64, bins int) ([]byte, error) {
	if len(values) == 0 {
		return nil, errors.New("no values for histogram")
	}
	if bins < 1 {
		bins = 30
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	width := (hi - lo) / float64(bins)
	if width == 0 {
		width = 1 // all values identical, single populated bin
	}

	counts := make([]float64, bins)
	for _, v := range values {
		idx := int(math.Floor((v - lo) / width))
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	labels := make([]string, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.1f%%", (lo+width*(float64(i)+0.5))*100)
	}

	painter, err := charts.BarRender([][]float64{counts},
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(labels),
		charts.ThemeOptionFunc(charts.ThemeDark),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering %q: %w", title, err)
	}
	return painter.Bytes()
}

// scaled returns the curve with every value multiplied by factor, for
// plotting wealth multipliers on a base-100 axis.
func scaled(c domain.Curve, factor float64) domain.Curve {
	out := domain.Curve{Dates: c.Dates, Values: make([]float64, len(c.Values))}
	for i, v := range c.Values {
		out.Values[i] = v * factor
	}
	return out
}
