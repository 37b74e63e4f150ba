// Package charts renders the headline series as PNG figures.
package charts

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/sells-group/retail-cli/internal/metrics"
	"github.com/sells-group/retail-cli/internal/period"
)

// Figure file names.
const (
	TotalSalesFile  = "total_sales_trend.png"
	GrowthFile      = "growth_yoy_mom.png"
	SeasonalityFile = "seasonality_heatmap.png"
	TopShareFile    = "top5_growth_share_trend.png"
)

const (
	width  = 8 * vg.Inch
	height = 4 * vg.Inch
	dpi    = 150
)

var (
	blue   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	green  = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	orange = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	purple = color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}
	grey   = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
)

// Render writes all four figures into dir and returns their paths.
func Render(dir string, h *metrics.Headline) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "charts: mkdir %s", dir)
	}

	figures := []struct {
		file  string
		build func(*metrics.Headline) (*plot.Plot, error)
	}{
		{TotalSalesFile, func(h *metrics.Headline) (*plot.Plot, error) { return TotalSalesTrend(h.TotalSales) }},
		{GrowthFile, func(h *metrics.Headline) (*plot.Plot, error) { return GrowthTrend(h.YoY, h.MoM) }},
		{SeasonalityFile, func(h *metrics.Headline) (*plot.Plot, error) { return Seasonality(h.TotalSales) }},
		{TopShareFile, func(h *metrics.Headline) (*plot.Plot, error) { return TopShareTrend(h.TopShare) }},
	}

	paths := make([]string, 0, len(figures))
	for _, fig := range figures {
		p, err := fig.build(h)
		if err != nil {
			return nil, eris.Wrapf(err, "charts: build %s", fig.file)
		}
		path := filepath.Join(dir, fig.file)
		if err := Save(p, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	zap.L().Info("wrote figures", zap.String("dir", dir), zap.Int("count", len(paths)))
	return paths, nil
}

// Save rasterizes p to a PNG file at path.
func Save(p *plot.Plot, path string) error {
	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "charts: create %s", path)
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "charts: encode %s", path)
	}
	return eris.Wrapf(f.Close(), "charts: close %s", path)
}

// TotalSalesTrend plots national total sales over time.
func TotalSalesTrend(s metrics.Series) (*plot.Plot, error) {
	p := timePlot("National Retail Sales (Total)", "Sales (Millions $)")
	if err := addLine(p, s, "", blue, 2); err != nil {
		return nil, err
	}
	return p, nil
}

// GrowthTrend plots YoY and MoM growth with a zero reference line.
func GrowthTrend(yoy, mom metrics.Series) (*plot.Plot, error) {
	p := timePlot("National Retail Sales Growth", "Growth (%)")

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = grey
	zero.Width = vg.Points(0.8)
	p.Add(zero)

	if err := addLine(p, yoy, "YoY %", green, 1.5); err != nil {
		return nil, err
	}
	if err := addLine(p, mom, "MoM %", orange, 1.5); err != nil {
		return nil, err
	}
	p.Legend.Top = true
	return p, nil
}

// TopShareTrend plots the top-five states' share of positive growth.
func TopShareTrend(s metrics.Series) (*plot.Plot, error) {
	p := timePlot("Top 5 States Share of Positive Growth", "Share (%)")
	if err := addLine(p, s, "", purple, 2); err != nil {
		return nil, err
	}
	return p, nil
}

// Seasonality draws total sales as a month-by-year heat map.
func Seasonality(s metrics.Series) (*plot.Plot, error) {
	g := newSeasonGrid(s)
	p := plot.New()
	p.Title.Text = "Seasonality Heatmap (Total Sales)"
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Month"

	if len(g.years) == 0 {
		return p, nil
	}

	hm := plotter.NewHeatMap(g, palette.Heat(12, 1))
	hm.NaN = color.Transparent
	if hm.Min == hm.Max {
		hm.Min--
		hm.Max++
	}
	p.Add(hm)

	var yearTicks []plot.Tick
	for i, y := range g.years {
		yearTicks = append(yearTicks, plot.Tick{Value: float64(i), Label: strconv.Itoa(y)})
	}
	var monthTicks []plot.Tick
	for m := 1; m <= 12; m++ {
		monthTicks = append(monthTicks, plot.Tick{Value: float64(m), Label: strconv.Itoa(m)})
	}
	p.X.Tick.Marker = plot.ConstantTicks(yearTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(monthTicks)
	return p, nil
}

func timePlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	return p
}

// addLine plots the defined points of s. Undefined months are skipped.
func addLine(p *plot.Plot, s metrics.Series, label string, c color.Color, w float64) error {
	pts := xys(s)
	if len(pts) == 0 {
		return nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return eris.Wrap(err, "charts: new line")
	}
	line.Color = c
	line.Width = vg.Points(w)
	p.Add(line)
	if label != "" {
		p.Legend.Add(label, line)
	}
	return nil
}

func xys(s metrics.Series) plotter.XYs {
	pts := make(plotter.XYs, 0, len(s))
	for _, pt := range s {
		if pt.Value == nil || math.IsNaN(*pt.Value) || math.IsInf(*pt.Value, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(pt.Month.Time().Unix()), Y: *pt.Value})
	}
	return pts
}

// seasonGrid lays a monthly series out as years (columns) by months (rows).
type seasonGrid struct {
	years  []int
	values map[period.Month]float64
}

func newSeasonGrid(s metrics.Series) *seasonGrid {
	g := &seasonGrid{values: make(map[period.Month]float64)}
	seen := make(map[int]bool)
	for _, pt := range s {
		if pt.Value == nil {
			continue
		}
		g.values[pt.Month] = *pt.Value
		if !seen[pt.Month.Year] {
			seen[pt.Month.Year] = true
			g.years = append(g.years, pt.Month.Year)
		}
	}
	return g
}

func (g *seasonGrid) Dims() (c, r int) { return len(g.years), 12 }
func (g *seasonGrid) X(c int) float64  { return float64(c) }
func (g *seasonGrid) Y(r int) float64  { return float64(r + 1) }

func (g *seasonGrid) Z(c, r int) float64 {
	v, ok := g.values[period.New(g.years[c], time.Month(r+1))]
	if !ok {
		return math.NaN()
	}
	return v
}
