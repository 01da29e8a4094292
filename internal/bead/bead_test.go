package bead

import "testing"

func TestLookup(t *testing.T) {
	r := NewReplica([]int64{5, 9, 2}, []int{0, 0, 0}, []float64{1})
	if got := r.Lookup(9); got != 1 {
		t.Errorf("Lookup(9) = %d, want 1", got)
	}
	if got := r.Lookup(7); got != -1 {
		t.Errorf("Lookup(7) = %d, want -1", got)
	}
}

func TestTotalMass(t *testing.T) {
	r := NewReplica([]int64{1, 2, 3}, []int{0, 1, 0}, []float64{1.0, 16.0})
	if got := r.TotalMass(); got != 18.0 {
		t.Errorf("TotalMass = %g, want 18", got)
	}
}

func TestFlattenReuse(t *testing.T) {
	src := []Vec{{1, 2, 3}, {4, 5, 6}}
	buf := Flatten(src, nil)
	want := []float64{1, 2, 3, 4, 5, 6}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf[%d] = %g, want %g", i, buf[i], want[i])
		}
	}

	// A large enough buffer is reused, not reallocated.
	buf2 := Flatten(src[:1], buf)
	if &buf2[0] != &buf[0] {
		t.Error("expected buffer reuse")
	}
	if len(buf2) != 3 {
		t.Errorf("len = %d, want 3", len(buf2))
	}
}

func TestUnmapRoundTrip(t *testing.T) {
	b := Box{Lx: 10, Ly: 20, Lz: 30}
	x := Vec{1, 2, 3}
	orig := x
	img := [3]int{1, -2, 0}

	b.Unmap(&x, img)
	if x != (Vec{11, -38, 3}) {
		t.Errorf("unmapped to %v", x)
	}
	b.UnmapInv(&x, img)
	if x != orig {
		t.Errorf("round trip gave %v, want %v", x, orig)
	}
}

func TestBoxScaleVolume(t *testing.T) {
	b := Box{Lx: 2, Ly: 3, Lz: 4}
	if b.Volume() != 24 {
		t.Errorf("volume %g", b.Volume())
	}
	b.Scale(2)
	if b.Volume() != 192 {
		t.Errorf("scaled volume %g", b.Volume())
	}
}
