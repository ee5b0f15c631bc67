package botgrid

import "sync"

// Locked guards a Grid with a read/write mutex so it can be shared between
// goroutines, for example a console session and a metrics or render loop.
type Locked struct {
	mu sync.RWMutex
	g  *Grid
}

// NewLocked wraps g. The caller must not use g directly afterwards.
func NewLocked(g *Grid) *Locked {
	return &Locked{g: g}
}

// Axis returns the grid's axis length. It never changes, so no lock is taken.
func (l *Locked) Axis() uint8 { return l.g.Axis() }

// Get reports whether cell (x, y) is occupied.
func (l *Locked) Get(x, y uint8) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.Get(x, y)
}

// Set marks cell (x, y) occupied.
func (l *Locked) Set(x, y uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.g.Set(x, y)
}

// IsEmpty reports whether no cell is occupied.
func (l *Locked) IsEmpty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.IsEmpty()
}

// Count returns the number of occupied cells.
func (l *Locked) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.Count()
}

// Cells returns the occupied cells in row-major order.
func (l *Locked) Cells() []Point {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.g.Cells()
}

// Flush clears every cell.
func (l *Locked) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.g.Flush()
}

// Shift applies Grid.Shift under the write lock and returns its statistics.
func (l *Locked) Shift(dx, dy int8, theta int) (ShiftStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.g.Shift(dx, dy, theta)
	return l.g.LastShift(), err
}

// View runs fn with read access to the grid. fn must not retain g or call
// its mutating methods.
func (l *Locked) View(fn func(g *Grid) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(l.g)
}
