// Project: The Phillips Multiplier — a local-projection IV reproduction
// Reference: Barnichon & Mesters, "The Phillips Multiplier: Inflation-Unemployment
// Trade-offs from the Euro Area and US", Journal of Monetary Economics (2021)

package main

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	pointColor = color.RGBA{R: 0x1f, G: 0x4e, B: 0x8c, A: 0xff}
	bandColor  = color.RGBA{R: 0x1f, G: 0x4e, B: 0x8c, A: 0x40}
	altColor   = color.RGBA{R: 0xb2, G: 0x30, B: 0x2d, A: 0xff}
	zeroColor  = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

const (
	figWidth  = 6 * vg.Inch
	figHeight = 4 * vg.Inch
)

// FigureFiles lists the seven diagnostic figures in render order.
var FigureFiles = []string{
	"series_inflation_gap.png",
	"series_instrument.png",
	"first_stage_f.png",
	"multiplier_conditional.png",
	"multiplier_unconditional.png",
	"irf_unemployment_gap.png",
	"irf_inflation.png",
}

// RenderFigures writes the seven diagnostic figures as PNG files under dir.
func RenderFigures(ds *Dataset, res *PMResult, dir string) error {
	horizons := make([]float64, len(res.Rows))
	cond := make([]Band, len(res.Rows))
	uncond := make([]Band, len(res.Rows))
	fStats := make([]float64, len(res.Rows))
	irfGap := make([]Band, len(res.Rows))
	irfPi := make([]Band, len(res.Rows))
	for i, row := range res.Rows {
		horizons[i] = float64(row.Horizon)
		cond[i] = row.Conditional
		uncond[i] = row.Unconditional
		fStats[i] = row.FStat
		irfGap[i] = row.IRFGap
		irfPi[i] = row.IRFInflation
	}

	figures := []struct {
		file  string
		build func() (*plot.Plot, error)
	}{
		{FigureFiles[0], func() (*plot.Plot, error) {
			return seriesFigure("Inflation and unemployment gap", ds.Time,
				[]namedSeries{
					{"inflation", ds.Inflation},
					{"unemployment gap", ds.UnemploymentGap},
				})
		}},
		{FigureFiles[1], func() (*plot.Plot, error) {
			return seriesFigure("Monetary shock instrument", ds.Time,
				[]namedSeries{{"instrument", ds.Instrument}})
		}},
		{FigureFiles[2], func() (*plot.Plot, error) {
			return fStatFigure(horizons, fStats)
		}},
		{FigureFiles[3], func() (*plot.Plot, error) {
			return bandFigure("Phillips multiplier (IV)", "multiplier", horizons, cond)
		}},
		{FigureFiles[4], func() (*plot.Plot, error) {
			return bandFigure("Phillips multiplier (unconditional OLS)", "multiplier", horizons, uncond)
		}},
		{FigureFiles[5], func() (*plot.Plot, error) {
			return bandFigure("Unemployment gap response to monetary shock", "response", horizons, irfGap)
		}},
		{FigureFiles[6], func() (*plot.Plot, error) {
			return bandFigure("Inflation response to monetary shock", "response", horizons, irfPi)
		}},
	}

	for _, fig := range figures {
		p, err := fig.build()
		if err != nil {
			return fmt.Errorf("build figure %s: %w", fig.file, err)
		}
		if err := p.Save(figWidth, figHeight, filepath.Join(dir, fig.file)); err != nil {
			return fmt.Errorf("save figure %s: %w", fig.file, err)
		}
	}
	return nil
}

type namedSeries struct {
	name   string
	values []float64
}

// seriesFigure draws one or two raw series against the time index.
func seriesFigure(title string, time []float64, series []namedSeries) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "year"
	p.Add(plotter.NewGrid())

	colors := []color.RGBA{pointColor, altColor}
	for i, s := range series {
		line, err := plotter.NewLine(xyPairs(time, s.values))
		if err != nil {
			return nil, err
		}
		line.Color = colors[i%len(colors)]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true

	if err := addZeroLine(p, time[0], time[len(time)-1]); err != nil {
		return nil, err
	}
	return p, nil
}

// bandFigure draws a point-estimate line with its shaded confidence band.
func bandFigure(title, ylabel string, horizons []float64, bands []Band) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "horizon (quarters)"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	// Band polygon: along the upper bound, then back along the lower.
	n := len(bands)
	poly := make(plotter.XYs, 0, 2*n)
	for i := 0; i < n; i++ {
		poly = append(poly, plotter.XY{X: horizons[i], Y: bands[i].Upper})
	}
	for i := n - 1; i >= 0; i-- {
		poly = append(poly, plotter.XY{X: horizons[i], Y: bands[i].Lower})
	}
	band, err := plotter.NewPolygon(poly)
	if err != nil {
		return nil, err
	}
	band.Color = bandColor
	band.LineStyle.Color = color.Transparent
	p.Add(band)

	points := make([]float64, n)
	for i, b := range bands {
		points[i] = b.Point
	}
	line, err := plotter.NewLine(xyPairs(horizons, points))
	if err != nil {
		return nil, err
	}
	line.Color = pointColor
	line.Width = vg.Points(2)
	p.Add(line)

	if err := addZeroLine(p, horizons[0], horizons[n-1]); err != nil {
		return nil, err
	}
	return p, nil
}

// fStatFigure draws the first-stage F statistic by horizon, with the
// conventional weak-instrument threshold of 10 marked.
func fStatFigure(horizons, fStats []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "First-stage F statistic"
	p.X.Label.Text = "horizon (quarters)"
	p.Y.Label.Text = "F"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xyPairs(horizons, fStats))
	if err != nil {
		return nil, err
	}
	line.Color = pointColor
	line.Width = vg.Points(2)
	p.Add(line)

	threshold, err := plotter.NewLine(plotter.XYs{
		{X: horizons[0], Y: 10},
		{X: horizons[len(horizons)-1], Y: 10},
	})
	if err != nil {
		return nil, err
	}
	threshold.Color = altColor
	threshold.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(threshold)
	p.Legend.Add("F = 10", threshold)
	p.Legend.Top = true

	return p, nil
}

func addZeroLine(p *plot.Plot, xMin, xMax float64) error {
	zero, err := plotter.NewLine(plotter.XYs{{X: xMin, Y: 0}, {X: xMax, Y: 0}})
	if err != nil {
		return err
	}
	zero.Color = zeroColor
	zero.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(zero)
	return nil
}

func xyPairs(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	return pts
}
