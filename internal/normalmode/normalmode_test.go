package normalmode

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/jchen-md/ringmd/internal/config"
)

func TestEigenvalues(t *testing.T) {
	for _, p := range []int{1, 2, 3, 4, 7, 8} {
		tr := New(p)
		if tr.Lam[0] != 0 {
			t.Errorf("P=%d: centroid eigenvalue should be 0, got %g", p, tr.Lam[0])
		}
		for i := 1; i < p; i++ {
			if tr.Lam[i] <= 0 {
				t.Errorf("P=%d: eigenvalue %d should be positive, got %g", p, i, tr.Lam[i])
			}
		}
	}
}

func TestOrthogonality(t *testing.T) {
	for _, p := range []int{2, 3, 4, 5, 8} {
		tr := New(p)
		var prod mat.Dense
		prod.Mul(tr.Forward(), tr.Inverse())
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				if math.Abs(prod.At(i, j)-want) > 1e-10 {
					t.Fatalf("P=%d: (U Ut)[%d,%d] = %g, want %g", p, i, j, prod.At(i, j), want)
				}
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	const p = 4
	const n = 3 // atoms
	tr := New(p)

	// One flat array per world.
	buf := make([][]float64, p)
	for w := range buf {
		buf[w] = make([]float64, 3*n)
		for m := range buf[w] {
			buf[w][m] = math.Sin(float64(w*7+m)) + 0.1*float64(w)
		}
	}

	// Forward on every mode, then back on every world.
	modes := make([][]float64, p)
	for w := 0; w < p; w++ {
		modes[w] = make([]float64, 3*n)
		tr.ToModes(buf, modes[w], w)
	}
	back := make([]float64, 3*n)
	for w := 0; w < p; w++ {
		tr.FromModes(modes, back, w)
		for m := range back {
			if math.Abs(back[m]-buf[w][m]) > 1e-12 {
				t.Fatalf("world %d slot %d: round trip %g, want %g", w, m, back[m], buf[w][m])
			}
		}
	}
}

func TestCentroidIsAverage(t *testing.T) {
	const p = 3
	tr := New(p)
	buf := [][]float64{{3}, {6}, {9}}
	dst := make([]float64, 1)
	tr.ToModes(buf, dst, 0)
	want := (3.0 + 6.0 + 9.0) / math.Sqrt(3)
	if math.Abs(dst[0]-want) > 1e-12 {
		t.Errorf("centroid mode %g, want %g", dst[0], want)
	}
}

func TestFictitiousMassesSingleBead(t *testing.T) {
	tr := New(1)
	phys := []float64{1.008, 15.999}
	for _, mode := range []config.FicMassMode{config.Physical, config.Normal} {
		m := tr.FictitiousMasses(phys, 0, mode, 0.5)
		for i := range phys {
			if m[i] != phys[i] {
				t.Errorf("mode %v: P=1 mass %g, want physical %g", mode, m[i], phys[i])
			}
		}
	}
}

func TestFictitiousMassesScaling(t *testing.T) {
	tr := New(4)
	phys := []float64{2.0}

	m := tr.FictitiousMasses(phys, 0, config.Normal, 0.25)
	if m[0] != phys[0] {
		t.Errorf("centroid world mass %g, want %g", m[0], phys[0])
	}

	m = tr.FictitiousMasses(phys, 2, config.Normal, 0.25)
	want := phys[0] * tr.Lam[2] * 0.25
	if math.Abs(m[0]-want) > 1e-14 {
		t.Errorf("world 2 normal-mode mass %g, want %g", m[0], want)
	}

	m = tr.FictitiousMasses(phys, 2, config.Physical, 0.25)
	want = phys[0] * 0.25
	if math.Abs(m[0]-want) > 1e-14 {
		t.Errorf("world 2 physical-mode mass %g, want %g", m[0], want)
	}
}
