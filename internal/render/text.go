// Package render draws occupancy grids for humans. Every renderer needs only
// read access through the Reader interface.
package render

import (
	"bufio"
	"io"
)

// Reader is the read-only view renderers need. *botgrid.Grid and
// *botgrid.Locked both satisfy it.
type Reader interface {
	Axis() uint8
	Get(x, y uint8) bool
}

// Marker runes used by Text.
const (
	CenterMark   = 'O'
	OccupiedMark = 'X'
	FreeMark     = '.'
)

// Text writes g as one line per grid row, preceded by an empty line. Each
// cell is a marker followed by a space: CenterMark for the center cell
// (whether or not it is occupied), OccupiedMark for occupied cells and
// FreeMark otherwise.
func Text(w io.Writer, g Reader) error {
	bw := bufio.NewWriter(w)
	axis := g.Axis()
	c := axis / 2

	bw.WriteByte('\n')
	for y := uint8(0); y < axis; y++ {
		for x := uint8(0); x < axis; x++ {
			mark := byte(FreeMark)
			switch {
			case x == c && y == c:
				mark = CenterMark
			case g.Get(x, y):
				mark = OccupiedMark
			}
			bw.WriteByte(mark)
			bw.WriteByte(' ')
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
