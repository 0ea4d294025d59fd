package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/enroll-data/footfall.report/internal/predict"
	"github.com/enroll-data/footfall.report/internal/schema"
)

// SaveTrendPNG renders observed history plus a forecast as a static PNG,
// for pipeline runs with no browser on the other end.
func SaveTrendPNG(path, pincode string, history []schema.Record, fc predict.RangeForecast) error {
	if len(history) == 0 && len(fc.Days) == 0 {
		return fmt.Errorf("nothing to plot for %s", pincode)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Footfall for %s", pincode)
	p.X.Label.Text = "days"
	p.Y.Label.Text = "footfall"

	obsPts := make(plotter.XYs, len(history))
	for i, r := range history {
		obsPts[i].X = float64(i)
		obsPts[i].Y = r.Footfall
	}
	fcPts := make(plotter.XYs, len(fc.Days))
	for i, day := range fc.Days {
		fcPts[i].X = float64(len(history) + i)
		fcPts[i].Y = float64(day.Footfall)
	}

	if len(obsPts) > 0 {
		obsLine, err := plotter.NewLine(obsPts)
		if err != nil {
			return err
		}
		obsLine.Width = vg.Points(1)
		obsLine.Color = color.RGBA{B: 180, A: 255}
		p.Add(obsLine)
		p.Legend.Add("observed", obsLine)
	}
	if len(fcPts) > 0 {
		fcLine, err := plotter.NewLine(fcPts)
		if err != nil {
			return err
		}
		fcLine.Width = vg.Points(1)
		fcLine.Color = color.RGBA{R: 200, A: 255}
		fcLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(fcLine)
		p.Legend.Add("forecast", fcLine)
	}

	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}
