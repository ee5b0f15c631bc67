package render

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Plot writes a PNG scatter plot of the occupied cells of g, size x size. The
// y axis is inverted so row 0 is at the top, as in Text. The center cell is
// drawn as a ring.
func Plot(w io.Writer, g Reader, size vg.Length) error {
	axis := g.Axis()
	c := float64(axis / 2)

	var pts plotter.XYs
	for y := uint8(0); y < axis; y++ {
		for x := uint8(0); x < axis; x++ {
			if g.Get(x, y) {
				pts = append(pts, plotter.XY{X: float64(x), Y: float64(y)})
			}
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Occupancy %dx%d (%d cells)", axis, axis, len(pts))
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.X.Min, p.X.Max = -0.5, float64(axis)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(axis)-0.5
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	if len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to create scatter: %w", err)
		}
		s.GlyphStyle.Shape = draw.BoxGlyph{}
		s.GlyphStyle.Color = color.RGBA{R: 220, G: 40, B: 40, A: 255}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
	}

	center, err := plotter.NewScatter(plotter.XYs{{X: c, Y: c}})
	if err != nil {
		return fmt.Errorf("failed to create center marker: %w", err)
	}
	center.GlyphStyle.Shape = draw.RingGlyph{}
	center.GlyphStyle.Color = color.Black
	center.GlyphStyle.Radius = vg.Points(4)
	p.Add(center)

	wt, err := p.WriterTo(size, size, "png")
	if err != nil {
		return fmt.Errorf("failed to create png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}
