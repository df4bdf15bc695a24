package mathx

import "testing"

func TestFloorDivMod(t *testing.T) {
	cases := []struct {
		a, b     int
		div, mod int
	}{
		{a: 0, b: 16, div: 0, mod: 0},
		{a: 15, b: 16, div: 0, mod: 15},
		{a: 16, b: 16, div: 1, mod: 0},
		{a: -1, b: 16, div: -1, mod: 15},
		{a: -16, b: 16, div: -1, mod: 0},
		{a: -17, b: 16, div: -2, mod: 15},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.div {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.div)
		}
		if got := Mod(c.a, c.b); got != c.mod {
			t.Fatalf("Mod(%d,%d)=%d want %d", c.a, c.b, got, c.mod)
		}
	}
}

func TestVecArithmetic(t *testing.T) {
	a := V(1, 2, 3)
	b := V(-1, 5, 0)
	if got := a.Add(b); got != V(0, 7, 3) {
		t.Fatalf("Add=%v", got)
	}
	if got := a.Sub(b); got != V(2, -3, 3) {
		t.Fatalf("Sub=%v", got)
	}
	if !V(0, 0, 0).IsZero() || a.IsZero() {
		t.Fatalf("IsZero mismatch")
	}
	if Manhattan(a, b) != 8 {
		t.Fatalf("Manhattan=%d want 8", Manhattan(a, b))
	}
}
