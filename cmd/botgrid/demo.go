package main

import (
	"fmt"
	"io"

	"github.com/banshee-data/botgrid/internal/botgrid"
	"github.com/banshee-data/botgrid/internal/render"
)

// demoAxis and demoCells seed the reference driver.
const demoAxis = 27

var demoCells = []botgrid.Point{{X: 5, Y: 2}, {X: 13, Y: 7}, {X: 11, Y: 22}}

// demoSteps are applied in order, printing the grid after each.
var demoSteps = []struct {
	dx, dy int8
	theta  int
}{
	{-2, 0, 0},
	{0, -1, 0},
	{0, 0, 90},
	{0, 0, -90},
}

// runDemo seeds g with demoCells, prints it, then applies demoSteps.
func runDemo(w io.Writer, g *botgrid.Locked) error {
	for _, c := range demoCells {
		g.Set(c.X, c.Y)
	}
	if err := printGrid(w, g, "initial"); err != nil {
		return err
	}
	for _, s := range demoSteps {
		stats, err := g.Shift(s.dx, s.dy, s.theta)
		if err != nil {
			return fmt.Errorf("shift(%d,%d,%d): %w", s.dx, s.dy, s.theta, err)
		}
		label := fmt.Sprintf("shift dx=%d dy=%d theta=%d moved=%d clipped=%d", s.dx, s.dy, s.theta, stats.Moved, stats.Clipped)
		if err := printGrid(w, g, label); err != nil {
			return err
		}
	}
	return nil
}

func printGrid(w io.Writer, g *botgrid.Locked, label string) error {
	if _, err := fmt.Fprintf(w, "# %s\n", label); err != nil {
		return err
	}
	return g.View(func(g *botgrid.Grid) error {
		return render.Text(w, g)
	})
}
