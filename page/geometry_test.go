package page

import "testing"

func testGeometry() Geometry {
	return Geometry{Read: 1, Write: 4, Erase: 256}
}

func testRange() Range {
	return Range{Start: 0, End: 1024}
}

func TestGeometryValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		if err := testGeometry().Validate(); err != nil {
			t.Errorf("want nil got %v", err)
		}
	})

	t.Run("read size not one", func(t *testing.T) {
		g := testGeometry()
		g.Read = 2
		if err := g.Validate(); err != ErrBadGeometry {
			t.Errorf("want %v got %v", ErrBadGeometry, err)
		}
	})

	t.Run("erase too small for write", func(t *testing.T) {
		g := Geometry{Read: 1, Write: 100, Erase: 200}
		if err := g.Validate(); err != ErrBadGeometry {
			t.Errorf("want %v got %v", ErrBadGeometry, err)
		}
	})
}

func TestRangeValidate(t *testing.T) {
	g := testGeometry()

	t.Run("valid", func(t *testing.T) {
		if err := testRange().Validate(g); err != nil {
			t.Errorf("want nil got %v", err)
		}
	})

	t.Run("not erase aligned", func(t *testing.T) {
		r := Range{Start: 10, End: 1024}
		if err := r.Validate(g); err != ErrBadRange {
			t.Errorf("want %v got %v", ErrBadRange, err)
		}
	})

	t.Run("too few pages", func(t *testing.T) {
		r := Range{Start: 0, End: 256}
		if err := r.Validate(g); err != ErrBadRange {
			t.Errorf("want %v got %v", ErrBadRange, err)
		}
	})
}

func TestCountAndAddress(t *testing.T) {
	r, g := testRange(), testGeometry()

	want := 4
	if got := Count(r, g); got != want {
		t.Errorf("want %d got %d", want, got)
	}

	t.Run("page 0", func(t *testing.T) {
		start, end := Address(r, g, 0)
		if start != 0 || end != 256 {
			t.Errorf("want [0,256) got [%d,%d)", start, end)
		}
	})

	t.Run("page 3", func(t *testing.T) {
		start, end := Address(r, g, 3)
		if start != 768 || end != 1024 {
			t.Errorf("want [768,1024) got [%d,%d)", start, end)
		}
	})

	t.Run("data zone excludes markers", func(t *testing.T) {
		start, end := DataZone(r, g, 0)
		if start != 4 || end != 252 {
			t.Errorf("want [4,252) got [%d,%d)", start, end)
		}
	})

	t.Run("index of address", func(t *testing.T) {
		if got := IndexOf(r, g, 300); got != 1 {
			t.Errorf("want 1 got %d", got)
		}
	})
}

func TestNextPrevWrap(t *testing.T) {
	r, g := testRange(), testGeometry()

	if got := Next(r, g, 3); got != 0 {
		t.Errorf("want 0 got %d", got)
	}
	if got := Prev(r, g, 0); got != 3 {
		t.Errorf("want 3 got %d", got)
	}
}

func TestAllWalksEveryPageOnce(t *testing.T) {
	r, g := testRange(), testGeometry()

	var seen []int
	for idx := range All(r, g, 2) {
		seen = append(seen, idx)
	}
	want := []int{2, 3, 0, 1}
	if len(seen) != len(want) {
		t.Fatalf("want %d pages got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("index %d: want %d got %d", i, want[i], seen[i])
		}
	}
}
