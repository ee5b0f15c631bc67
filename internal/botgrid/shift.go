package botgrid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/botgrid/internal/monitoring"
)

// ShiftStats describes the most recent Shift.
type ShiftStats struct {
	Moved   int  // occupied cells written into the new buffer
	Clipped int  // occupied cells dropped for landing outside the grid
	Adopted bool // whether the new buffer replaced the old one
}

// LastShift returns the statistics of the most recent Shift.
func (g *Grid) LastShift() ShiftStats {
	return g.last
}

// Shift translates every occupied cell by (dx, dy) and then rotates it by
// theta degrees around the grid center.
//
// Rotation turns +X toward +Y. Rows grow downward, so positive theta is
// clockwise on screen: in a 9x9 grid, (5,4) rotated by 90 lands on (4,5).
// Rotated coordinates are truncated toward zero, so a rotation followed by its
// inverse can move a cell by one.
// Cells landing outside [0, axis) on either axis are dropped. If every
// occupied cell is dropped the grid keeps its previous contents, unless it
// was built WithClearOnFullClip.
//
// Shift(0, 0, 0) returns immediately without allocating. Otherwise a second
// buffer is built and swapped in; if that allocation fails the error wraps
// ErrAllocation and the grid is unchanged. An empty grid keeps its buffer.
func (g *Grid) Shift(dx, dy int8, theta int) error {
	if dx == 0 && dy == 0 && theta == 0 {
		g.last = ShiftStats{}
		return nil
	}

	next, err := g.allocate()
	if err != nil {
		return err
	}

	c := float64(g.axis / 2)
	rot := r2.NewRotation(float64(theta)*(math.Pi/180), r2.Vec{X: c, Y: c})
	axis := float64(g.axis)

	var stats ShiftStats
	for i := 0; i < int(g.size); i++ {
		if !g.bits.Get(i) {
			continue
		}
		src := g.point(i)
		p := rot.Rotate(r2.Vec{
			X: float64(int(src.X) + int(dx)),
			Y: float64(int(src.Y) + int(dy)),
		})
		xx, yy := math.Trunc(p.X), math.Trunc(p.Y)
		if xx < 0 || xx >= axis || yy < 0 || yy >= axis {
			stats.Clipped++
			monitoring.Debugf("botgrid: shift(%d,%d,%d) clipped %v at (%g,%g)", dx, dy, theta, src, p.X, p.Y)
			continue
		}
		next.Set(int(yy)*int(g.axis) + int(xx))
		stats.Moved++
	}

	switch {
	case stats.Moved > 0, stats.Clipped > 0 && g.clearOnFullClip:
		g.release()
		g.bits = next
		stats.Adopted = true
	default:
		g.alloc.Release(next.Blocks())
	}

	g.last = stats
	g.metrics.ObserveShift(stats.Moved, stats.Clipped)
	g.metrics.SetOccupied(g.bits.Count())
	return nil
}
