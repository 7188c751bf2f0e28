package ml

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveROCPlot renders a ROC curve with the chance diagonal. The image format
// follows the extension of path (.png, .svg, .pdf).
func SaveROCPlot(path string, tpr, fpr []float64, auc float64) error {
	if len(tpr) != len(fpr) || len(tpr) == 0 {
		return fmt.Errorf("roc plot: need matching non-empty rates, got %d and %d", len(tpr), len(fpr))
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("ROC (AUC = %.3f)", auc)
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(tpr))
	for i := range tpr {
		pts[i].X = fpr[i]
		pts[i].Y = tpr[i]
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	curve.LineStyle.Width = vg.Points(2)
	curve.LineStyle.Color = color.RGBA{B: 200, A: 255}

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return err
	}
	chance.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	chance.LineStyle.Color = color.Gray{Y: 128}

	p.Add(plotter.NewGrid(), chance, curve)
	p.Legend.Add("model", curve)
	p.Legend.Add("chance", chance)
	p.Legend.Top = false

	return p.Save(5*vg.Inch, 5*vg.Inch, path)
}
