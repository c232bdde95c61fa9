// Package plots renders the static EDA charts as PNG files.
package plots

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"claimscope/internal/eda"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Renderer writes charts into a single output directory.
type Renderer struct {
	dir string
}

// NewRenderer creates the output directory if needed.
func NewRenderer(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory %s: %w", dir, err)
	}
	return &Renderer{dir: dir}, nil
}

func (r *Renderer) path(name string) string {
	return filepath.Join(r.dir, name)
}

// Histogram renders the distribution of one numeric column.
func (r *Renderer) Histogram(column string, data []float64) error {
	if len(data) == 0 {
		return fmt.Errorf("no data for histogram of %s", column)
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Distribution of %s", column)
	p.X.Label.Text = column
	p.Y.Label.Text = "Frequency"

	h, err := plotter.NewHist(plotter.Values(data), 30)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	p.Add(h)
	return p.Save(10*vg.Inch, 6*vg.Inch, r.path(fmt.Sprintf("univariate_%s.png", column)))
}

// LossRatioBar renders the mean loss ratio per group as a bar chart.
func (r *Renderer) LossRatioBar(groupCol string, rows []eda.LossRatioRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("no loss ratio rows for %s", groupCol)
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Loss Ratio by %s", groupCol)
	p.Y.Label.Text = "Loss Ratio"

	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, row := range rows {
		values[i] = row.LossRatio
		labels[i] = row.Group
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	return p.Save(12*vg.Inch, 6*vg.Inch, r.path(fmt.Sprintf("loss_ratio_%s.png", groupCol)))
}

// BoxGroup is one labeled sample for a box plot panel.
type BoxGroup struct {
	Label  string
	Values []float64
}

// BoxPlots renders side-by-side box plots, one per group.
func (r *Renderer) BoxPlots(title, yLabel, filename string, groups []BoxGroup) error {
	if len(groups) == 0 {
		return fmt.Errorf("no groups for box plot %s", filename)
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	labels := make([]string, 0, len(groups))
	for i, g := range groups {
		if len(g.Values) == 0 {
			labels = append(labels, g.Label)
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), plotter.Values(g.Values))
		if err != nil {
			return fmt.Errorf("failed to build box plot for %s: %w", g.Label, err)
		}
		p.Add(box)
		labels = append(labels, g.Label)
	}
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	return p.Save(12*vg.Inch, 6*vg.Inch, r.path(filename))
}

// TemporalTrends renders monthly mean claims and premiums as lines.
func (r *Renderer) TemporalTrends(trends []eda.MonthlyTrend) error {
	if len(trends) == 0 {
		return fmt.Errorf("no monthly trends to plot")
	}
	p := plot.New()
	p.Title.Text = "Temporal Trends in Claims and Premiums"
	p.X.Label.Text = "Transaction Month"
	p.Y.Label.Text = "Amount"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	claims := make(plotter.XYs, len(trends))
	premiums := make(plotter.XYs, len(trends))
	for i, t := range trends {
		x := float64(t.Month.Unix())
		claims[i] = plotter.XY{X: x, Y: t.MeanClaims}
		premiums[i] = plotter.XY{X: x, Y: t.MeanPremium}
	}

	claimsLine, err := plotter.NewLine(claims)
	if err != nil {
		return fmt.Errorf("failed to build claims line: %w", err)
	}
	premiumLine, err := plotter.NewLine(premiums)
	if err != nil {
		return fmt.Errorf("failed to build premium line: %w", err)
	}
	premiumLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(claimsLine, premiumLine)
	p.Legend.Add("Average Claims", claimsLine)
	p.Legend.Add("Average Premium", premiumLine)
	p.Legend.Top = true
	return p.Save(12*vg.Inch, 6*vg.Inch, r.path("temporal_trends.png"))
}

// corrGrid adapts a correlation matrix to the heat map grid interface.
type corrGrid struct {
	matrix *eda.CorrelationMatrix
}

func (g corrGrid) Dims() (int, int) { n := len(g.matrix.Columns); return n, n }
func (g corrGrid) X(c int) float64  { return float64(c) }
func (g corrGrid) Y(r int) float64  { return float64(r) }

func (g corrGrid) Z(c, r int) float64 {
	v := g.matrix.Values[r][c]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// CorrelationHeatMap renders the correlation matrix with a diverging
// palette pinned to [-1, 1].
func (r *Renderer) CorrelationHeatMap(matrix *eda.CorrelationMatrix) error {
	if matrix == nil || len(matrix.Columns) == 0 {
		return fmt.Errorf("no correlation matrix to plot")
	}
	p := plot.New()
	p.Title.Text = "Correlation Matrix"

	pal := moreland.SmoothBlueRed().Palette(255)
	heatMap := plotter.NewHeatMap(corrGrid{matrix: matrix}, pal)
	heatMap.Min = -1
	heatMap.Max = 1
	p.Add(heatMap)

	p.NominalX(matrix.Columns...)
	p.NominalY(matrix.Columns...)
	p.X.Tick.Label.Rotation = math.Pi / 2
	return p.Save(10*vg.Inch, 8*vg.Inch, r.path("correlation_matrix.png"))
}
