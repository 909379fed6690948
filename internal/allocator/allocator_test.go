package allocator

import (
	"errors"
	"testing"
)

func TestPreviousPowerOfTwo(t *testing.T) {
	cases := []struct{ in, want uintptr }{
		{0, 0}, {1, 0}, {5, 4}, {4, 4}, {96, 64},
		{1 << 14, 1 << 14}, {1 << 29, 1 << 29},
	}
	for _, c := range cases {
		if got := previousPowerOfTwo(c.in); got != c.want {
			t.Errorf("previousPowerOfTwo(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestAllocAlignment(t *testing.T) {
	window := make([]byte, 0x1000)
	a := New(window, 0x1000)

	layout := Layout{Size: 24, Align: 64}
	p, err := a.Alloc(layout)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if p%64 != 0 {
		t.Fatalf("alloc returned unaligned address %#x", p)
	}
	if p < 0x1000 {
		t.Fatalf("alloc returned address below window base: %#x", p)
	}

	a.Dealloc(p, layout)
	p2, err := a.Alloc(layout)
	if err != nil {
		t.Fatalf("realloc: %v", err)
	}
	if p2 != p {
		t.Fatalf("realloc at identical layout returned %#x, want reused %#x", p2, p)
	}
}

func TestAllocTooLarge(t *testing.T) {
	window := make([]byte, 0x1000)
	a := New(window, 0)

	_, err := a.Alloc(Layout{Size: 0x10000, Align: 8})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestAllocExhausted(t *testing.T) {
	window := make([]byte, 64)
	a := New(window, 0)

	_, err1 := a.Alloc(Layout{Size: 32, Align: 8})
	if err1 != nil {
		t.Fatalf("first alloc: %v", err1)
	}
	_, err2 := a.Alloc(Layout{Size: 32, Align: 8})
	if err2 != nil {
		t.Fatalf("second alloc: %v", err2)
	}
	if _, err := a.Alloc(Layout{Size: 32, Align: 8}); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestDeallocFreeListReuse(t *testing.T) {
	window := make([]byte, 4096)
	a := New(window, 0)

	var ptrs []uintptr
	for i := 0; i < 4; i++ {
		p, err := a.Alloc(Layout{Size: 16, Align: 8})
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		ptrs = append(ptrs, p)
	}

	a.Dealloc(ptrs[2], Layout{Size: 16, Align: 8})
	p, err := a.Alloc(Layout{Size: 16, Align: 8})
	if err != nil {
		t.Fatalf("realloc: %v", err)
	}
	if p != ptrs[2] {
		t.Fatalf("expected first-fit reuse of %#x, got %#x", ptrs[2], p)
	}
}

func TestStatsString(t *testing.T) {
	window := make([]byte, 4096)
	a := New(window, 0)
	if _, err := a.Alloc(Layout{Size: 16, Align: 8}); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if s := a.Stats().String(); s == "" {
		t.Fatal("expected non-empty stats string")
	}
}
