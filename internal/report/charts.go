// Package report renders forecast output for people: interactive HTML charts
// for the API and static PNG trend plots for offline runs.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/enroll-data/footfall.report/internal/predict"
	"github.com/enroll-data/footfall.report/internal/schema"
)

// RenderForecastBar writes an HTML bar chart of a multi-day forecast.
func RenderForecastBar(w io.Writer, fc predict.RangeForecast) error {
	dates := make([]string, len(fc.Days))
	values := make([]opts.BarData, len(fc.Days))
	for i, day := range fc.Days {
		dates[i] = day.Date
		values[i] = opts.BarData{Value: day.Footfall}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Footfall Forecast", Width: "1100px", Height: "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Footfall forecast for %s", fc.Pincode),
			Subtitle: fmt.Sprintf("%d days, total %d, peak %d on %s",
				len(fc.Days), fc.Total, fc.Peak.Footfall, fc.Peak.Date),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(dates).AddSeries("predicted footfall", values)
	return bar.Render(w)
}

// RenderComparison writes an HTML bar chart ranking centers for one date.
// Failed items are skipped; the chart shows what could be predicted.
func RenderComparison(w io.Writer, date string, items []predict.ComparisonItem) error {
	var pincodes []string
	var values []opts.BarData
	for _, item := range items {
		if item.Error != "" {
			continue
		}
		pincodes = append(pincodes, item.Pincode)
		values = append(values, opts.BarData{Value: item.Footfall})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Center Comparison", Width: "1100px", Height: "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Predicted footfall by center",
			Subtitle: date,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(pincodes).AddSeries("predicted footfall", values)
	return bar.Render(w)
}

// RenderTrend writes an HTML line chart of observed history followed by a
// forecast, so the forecast can be eyeballed against the recent trend.
func RenderTrend(w io.Writer, pincode string, history []schema.Record, fc predict.RangeForecast) error {
	dates := make([]string, 0, len(history)+len(fc.Days))
	observed := make([]opts.LineData, 0, len(history)+len(fc.Days))
	predicted := make([]opts.LineData, 0, len(history)+len(fc.Days))

	for _, r := range history {
		dates = append(dates, r.Date.Format(schema.DateLayout))
		observed = append(observed, opts.LineData{Value: r.Footfall})
		predicted = append(predicted, opts.LineData{Value: "-"})
	}
	for _, day := range fc.Days {
		dates = append(dates, day.Date)
		observed = append(observed, opts.LineData{Value: "-"})
		predicted = append(predicted, opts.LineData{Value: day.Footfall})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Footfall Trend", Width: "1100px", Height: "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Observed and forecast footfall for %s", pincode),
			Subtitle: fmt.Sprintf("%d observed days, %d forecast days", len(history), len(fc.Days)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetXAxis(dates).
		AddSeries("observed", observed).
		AddSeries("forecast", predicted)
	return line.Render(w)
}
