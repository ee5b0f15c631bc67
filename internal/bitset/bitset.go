// Package bitset provides a fixed-capacity bit vector packed into bytes.
//
// Bit 0 occupies the most-significant bit of byte 0, bit 7 the
// least-significant bit of byte 0, bit 8 the most-significant bit of byte 1,
// and so on. Bits past Len() in the last byte are padding and are never set.
package bitset

import (
	"fmt"
	"math/bits"
)

// BlockBits is the number of bits packed into one block.
const BlockBits = 8

// BlockCount returns the number of blocks needed to hold n bits.
func BlockCount(n int) int {
	return (n + BlockBits - 1) / BlockBits
}

// Locate returns the block index and the left-shift of the bit within that
// block for bit i.
func Locate(i int) (block int, shift uint) {
	return i / BlockBits, uint(BlockBits-1) - uint(i%BlockBits)
}

// Bits is a fixed-capacity bit vector.
type Bits struct {
	blocks []byte
	n      int
}

// New returns a zeroed vector of n bits.
func New(n int) *Bits {
	return &Bits{blocks: make([]byte, BlockCount(n)), n: n}
}

// Wrap adopts blocks as the backing store for an n-bit vector. The slice must
// hold exactly BlockCount(n) bytes; it is not copied.
func Wrap(blocks []byte, n int) (*Bits, error) {
	if n < 0 {
		return nil, fmt.Errorf("bitset: negative length %d", n)
	}
	if len(blocks) != BlockCount(n) {
		return nil, fmt.Errorf("bitset: %d blocks cannot hold %d bits (want %d)", len(blocks), n, BlockCount(n))
	}
	return &Bits{blocks: blocks, n: n}, nil
}

// Len returns the number of addressable bits.
func (b *Bits) Len() int { return b.n }

// Blocks returns the backing slice. Callers must not retain it across
// operations that replace the owner's buffer.
func (b *Bits) Blocks() []byte { return b.blocks }

// Bytes returns a copy of the backing blocks.
func (b *Bits) Bytes() []byte {
	out := make([]byte, len(b.blocks))
	copy(out, b.blocks)
	return out
}

func (b *Bits) check(i int) {
	if i < 0 || i >= b.n {
		panic(fmt.Sprintf("bitset: index %d out of range [0, %d)", i, b.n))
	}
}

// Get reports whether bit i is set.
func (b *Bits) Get(i int) bool {
	b.check(i)
	block, shift := Locate(i)
	return b.blocks[block]&(1<<shift) != 0
}

// Set sets bit i.
func (b *Bits) Set(i int) {
	b.check(i)
	block, shift := Locate(i)
	b.blocks[block] |= 1 << shift
}

// Clear clears bit i.
func (b *Bits) Clear(i int) {
	b.check(i)
	block, shift := Locate(i)
	b.blocks[block] &^= 1 << shift
}

// ClearAll zeroes every block.
func (b *Bits) ClearAll() {
	clear(b.blocks)
}

// IsZero reports whether no bit is set.
func (b *Bits) IsZero() bool {
	for _, v := range b.blocks {
		if v != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (b *Bits) Count() int {
	n := 0
	for _, v := range b.blocks {
		n += bits.OnesCount8(v)
	}
	return n
}

// PaddingClear reports whether the unused bits of the last block are zero.
func (b *Bits) PaddingClear() bool {
	rem := b.n % BlockBits
	if rem == 0 || len(b.blocks) == 0 {
		return true
	}
	mask := byte(0xFF) >> uint(rem)
	return b.blocks[len(b.blocks)-1]&mask == 0
}
