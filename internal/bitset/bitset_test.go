package bitset

import "testing"

func TestBlockCount(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{8, 1},
		{9, 2},
		{81, 11},
		{729, 92},
		{255 * 255, 8129},
	}
	for _, tt := range tests {
		if got := BlockCount(tt.n); got != tt.want {
			t.Errorf("BlockCount(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestLocateMSBFirst(t *testing.T) {
	tests := []struct {
		i         int
		wantBlock int
		wantShift uint
	}{
		{0, 0, 7},
		{1, 0, 6},
		{7, 0, 0},
		{8, 1, 7},
		{15, 1, 0},
		{80, 10, 7},
	}
	for _, tt := range tests {
		block, shift := Locate(tt.i)
		if block != tt.wantBlock || shift != tt.wantShift {
			t.Errorf("Locate(%d) = (%d, %d), want (%d, %d)", tt.i, block, shift, tt.wantBlock, tt.wantShift)
		}
	}
}

func TestSetGetClear(t *testing.T) {
	b := New(20)
	if !b.IsZero() {
		t.Fatal("new vector should be zero")
	}

	b.Set(0)
	b.Set(9)
	b.Set(19)

	if got := b.Blocks()[0]; got != 0x80 {
		t.Errorf("block 0 = %#x, want 0x80", got)
	}
	if got := b.Blocks()[1]; got != 0x40 {
		t.Errorf("block 1 = %#x, want 0x40", got)
	}
	if got := b.Blocks()[2]; got != 0x10 {
		t.Errorf("block 2 = %#x, want 0x10", got)
	}
	for i := 0; i < b.Len(); i++ {
		want := i == 0 || i == 9 || i == 19
		if b.Get(i) != want {
			t.Errorf("Get(%d) = %v, want %v", i, b.Get(i), want)
		}
	}
	if b.Count() != 3 {
		t.Errorf("Count() = %d, want 3", b.Count())
	}
	if !b.PaddingClear() {
		t.Error("padding bits should remain clear")
	}

	b.Clear(9)
	if b.Get(9) {
		t.Error("bit 9 should be clear")
	}

	b.ClearAll()
	if !b.IsZero() || b.Count() != 0 {
		t.Error("ClearAll should zero every block")
	}
}

func TestOutOfRangePanics(t *testing.T) {
	b := New(9)
	for _, i := range []int{-1, 9, 15} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Set(%d) did not panic", i)
				}
			}()
			b.Set(i)
		}()
	}
	if !b.PaddingClear() {
		t.Error("rejected writes must not touch padding")
	}
}

func TestWrap(t *testing.T) {
	blocks := []byte{0x80, 0x00}
	b, err := Wrap(blocks, 9)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if !b.Get(0) {
		t.Error("bit 0 should be set from wrapped blocks")
	}
	b.Set(8)
	if blocks[1] != 0x80 {
		t.Errorf("Wrap should share the slice, block 1 = %#x", blocks[1])
	}

	if _, err := Wrap([]byte{0}, 9); err == nil {
		t.Error("expected error for short slice")
	}
	if _, err := Wrap(nil, -1); err == nil {
		t.Error("expected error for negative length")
	}
}

func TestPaddingClear(t *testing.T) {
	b, err := Wrap([]byte{0x00, 0x40}, 9)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if b.PaddingClear() {
		t.Error("bit in padding should be reported")
	}
	full := New(16)
	full.Set(15)
	if !full.PaddingClear() {
		t.Error("a vector without padding is always clear")
	}
}

func TestBytesIsCopy(t *testing.T) {
	b := New(8)
	out := b.Bytes()
	out[0] = 0xFF
	if !b.IsZero() {
		t.Error("mutating Bytes() result must not affect the vector")
	}
}
