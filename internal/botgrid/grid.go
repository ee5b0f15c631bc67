// Package botgrid implements a fixed-size, bit-packed square occupancy grid
// for resource-constrained controllers.
//
// Cells are addressed row-major (index = y*axis + x) and packed one bit per
// cell, most-significant bit first, into a single buffer of
// ceil(axis*axis/8) bytes. The grid supports point set/get, whole-grid flush,
// emptiness checks, and Shift, a combined translate-then-rotate transform
// around the grid center.
//
// A Grid is not safe for concurrent use; wrap it in a Locked when several
// goroutines share one.
package botgrid

import (
	"errors"
	"fmt"

	"github.com/banshee-data/botgrid/internal/bitset"
	"github.com/banshee-data/botgrid/internal/monitoring"
)

// ErrAllocation is returned by New, Flush, Shift and Restore when a grid
// buffer cannot be obtained. The grid is left unmodified.
var ErrAllocation = errors.New("botgrid: buffer allocation failed")

// Point is a cell coordinate.
type Point struct {
	X, Y uint8
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Grid is a square occupancy grid of axis*axis cells.
type Grid struct {
	axis uint8
	size uint16
	bits *bitset.Bits

	alloc            Allocator
	metrics          *monitoring.Metrics
	clearOnFullClip bool

	last ShiftStats
}

// Option configures a Grid at construction.
type Option func(*Grid)

// WithAllocator sets the buffer allocator. The default is HeapAllocator.
func WithAllocator(a Allocator) Option {
	return func(g *Grid) {
		if a != nil {
			g.alloc = a
		}
	}
}

// WithMetrics records transform and allocation activity on m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(g *Grid) { g.metrics = m }
}

// WithClearOnFullClip empties the grid when a Shift moves every occupied cell
// out of bounds. By default the previous occupancy is kept.
func WithClearOnFullClip() Option {
	return func(g *Grid) { g.clearOnFullClip = true }
}

func blockCount(axis uint8) int {
	return bitset.BlockCount(int(axis) * int(axis))
}

// New returns an empty grid with the given axis length. An axis of 0 or a
// failed buffer allocation returns an error wrapping ErrAllocation.
func New(axis uint8, opts ...Option) (*Grid, error) {
	if axis == 0 {
		return nil, fmt.Errorf("%w: axis must be at least 1", ErrAllocation)
	}
	g := &Grid{
		axis:  axis,
		size:  uint16(axis) * uint16(axis),
		alloc: HeapAllocator{},
	}
	for _, opt := range opts {
		opt(g)
	}

	bits, err := g.allocate()
	if err != nil {
		return nil, err
	}
	g.bits = bits
	return g, nil
}

// Restore builds a grid of the given axis from packed blocks, as produced by
// Bytes. The blocks are copied.
func Restore(axis uint8, blocks []byte, opts ...Option) (*Grid, error) {
	g, err := New(axis, opts...)
	if err != nil {
		return nil, err
	}
	if len(blocks) != g.Blocks() {
		g.release()
		return nil, fmt.Errorf("botgrid: %d blocks do not match axis %d (want %d)", len(blocks), axis, g.Blocks())
	}
	copy(g.bits.Blocks(), blocks)
	if !g.bits.PaddingClear() {
		g.release()
		return nil, fmt.Errorf("botgrid: padding bits set in restored blocks for axis %d", axis)
	}
	return g, nil
}

// allocate obtains a zeroed buffer for the grid's cells.
func (g *Grid) allocate() (*bitset.Bits, error) {
	n := blockCount(g.axis)
	buf, err := g.alloc.Alloc(n)
	if err == nil && len(buf) != n {
		g.alloc.Release(buf)
		err = fmt.Errorf("allocator returned %d bytes, want %d", len(buf), n)
	}
	if err != nil {
		g.metrics.AllocationFailed()
		monitoring.Logf("botgrid: allocation of %d blocks for axis %d failed: %v", n, g.axis, err)
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	bits, err := bitset.Wrap(buf, int(g.size))
	if err != nil {
		g.alloc.Release(buf)
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	return bits, nil
}

func (g *Grid) release() {
	if g.bits != nil {
		g.alloc.Release(g.bits.Blocks())
		g.bits = nil
	}
}

// Close returns the grid's buffer to its allocator. The grid must not be used
// afterwards.
func (g *Grid) Close() {
	g.release()
}

// Axis returns the length of one side of the grid.
func (g *Grid) Axis() uint8 { return g.axis }

// Size returns the number of cells, axis*axis.
func (g *Grid) Size() int { return int(g.size) }

// Blocks returns the number of bytes in the packed buffer.
func (g *Grid) Blocks() int { return blockCount(g.axis) }

// Center returns the center cell, using floor division for even axes.
func (g *Grid) Center() Point {
	c := g.axis / 2
	return Point{X: c, Y: c}
}

// Bytes returns a copy of the packed buffer.
func (g *Grid) Bytes() []byte { return g.bits.Bytes() }

func (g *Grid) index(x, y uint8) int {
	if x >= g.axis || y >= g.axis {
		panic(fmt.Sprintf("botgrid: cell (%d,%d) outside %dx%d grid", x, y, g.axis, g.axis))
	}
	return int(y)*int(g.axis) + int(x)
}

func (g *Grid) point(i int) Point {
	return Point{X: uint8(i % int(g.axis)), Y: uint8(i / int(g.axis))}
}

// Get reports whether cell (x, y) is occupied. It panics if either coordinate
// is not below Axis().
func (g *Grid) Get(x, y uint8) bool {
	return g.bits.Get(g.index(x, y))
}

// Set marks cell (x, y) occupied. It panics if either coordinate is not below
// Axis().
func (g *Grid) Set(x, y uint8) {
	i := g.index(x, y)
	if g.bits.Get(i) {
		return
	}
	g.bits.Set(i)
	if g.metrics != nil {
		g.metrics.SetOccupied(g.bits.Count())
	}
}

// IsEmpty reports whether no cell is occupied.
func (g *Grid) IsEmpty() bool {
	return g.bits.IsZero()
}

// Count returns the number of occupied cells.
func (g *Grid) Count() int {
	return g.bits.Count()
}

// Cells returns the occupied cells in row-major order.
func (g *Grid) Cells() []Point {
	var out []Point
	for i := 0; i < int(g.size); i++ {
		if g.bits.Get(i) {
			out = append(out, g.point(i))
		}
	}
	return out
}

// Flush clears every cell. A fresh buffer is obtained from the allocator
// before the old one is released; on failure the grid is unchanged.
func (g *Grid) Flush() error {
	bits, err := g.allocate()
	if err != nil {
		return err
	}
	g.release()
	g.bits = bits
	g.metrics.SetOccupied(0)
	return nil
}
