package botgrid

import (
	"fmt"
	"sync"
)

// Allocator hands out zero-filled grid buffers. Alloc must return a slice of
// exactly n zero bytes or an error; Release returns a buffer the grid no
// longer owns.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Release(b []byte)
}

// HeapAllocator allocates from the Go heap and never fails.
type HeapAllocator struct{}

// Alloc returns a fresh zeroed slice.
func (HeapAllocator) Alloc(n int) ([]byte, error) {
	return make([]byte, n), nil
}

// Release is a no-op; the garbage collector reclaims the buffer.
func (HeapAllocator) Release([]byte) {}

// BudgetAllocator caps the bytes held by live grid buffers, modelling a
// controller with a fixed RAM allowance. Shift and Flush hold the old and new
// buffers at the same time, so a grid needs PeakBytes of budget for them.
type BudgetAllocator struct {
	mu     sync.Mutex
	budget int
	inUse  int
}

// NewBudgetAllocator returns an allocator that refuses requests which would
// push live bytes above budget.
func NewBudgetAllocator(budget int) *BudgetAllocator {
	return &BudgetAllocator{budget: budget}
}

// Alloc reserves n bytes from the budget.
func (a *BudgetAllocator) Alloc(n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n < 0 {
		return nil, fmt.Errorf("negative allocation %d", n)
	}
	if a.inUse+n > a.budget {
		return nil, fmt.Errorf("budget exhausted: %d in use, %d requested, %d budget", a.inUse, n, a.budget)
	}
	a.inUse += n
	return make([]byte, n), nil
}

// Release returns len(b) bytes to the budget.
func (a *BudgetAllocator) Release(b []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inUse -= len(b)
	if a.inUse < 0 {
		a.inUse = 0
	}
}

// InUse returns the bytes currently reserved.
func (a *BudgetAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// PeakBytes returns the memory a grid of the given axis needs at its peak,
// which is during a transform when the old and new buffers coexist.
func PeakBytes(axis uint8) int {
	return 2 * blockCount(axis)
}
