package model

import (
	"math"
	"testing"

	"github.com/jchen-md/ringmd/internal/bead"
	"github.com/jchen-md/ringmd/internal/units"
)

func TestHarmonicForceAndEnergy(t *testing.T) {
	rep := bead.NewReplica([]int64{1}, []int{0}, []float64{2.0})
	rep.X[0] = bead.Vec{1, -2, 0.5}
	box := &bead.Box{Lx: 10, Ly: 10, Lz: 10}

	h := Harmonic{Omega: 0.1}
	pe, _ := h.Compute(rep, box)

	k := 2.0 * 0.01 * units.MvsqToEnergy // m omega^2
	for j := 0; j < 3; j++ {
		want := -k * rep.X[0][j]
		if math.Abs(rep.F[0][j]-want) > 1e-12*math.Abs(k) {
			t.Errorf("force[%d] = %g, want %g", j, rep.F[0][j], want)
		}
	}

	r2 := 1.0 + 4.0 + 0.25
	wantPE := 0.5 * k * r2
	if math.Abs(pe-wantPE) > 1e-12*wantPE {
		t.Errorf("pe = %g, want %g", pe, wantPE)
	}
}

func TestHarmonicVirialTrace(t *testing.T) {
	rep := bead.NewReplica([]int64{1, 2}, []int{0, 0}, []float64{1.5})
	rep.X[0] = bead.Vec{0.7, 0, -0.2}
	rep.X[1] = bead.Vec{-0.4, 1.1, 0}
	box := &bead.Box{Lx: 10, Ly: 10, Lz: 10}

	h := Harmonic{Omega: 0.05}
	pe, vt := h.Compute(rep, box)

	// With zero velocities the tensor trace is the configurational
	// virial: sum x.f = -2 pe for a harmonic well.
	trace := vt[0] + vt[1] + vt[2]
	want := -2.0 * pe / box.Volume() * units.EnergyDensToPress
	if math.Abs(trace-want) > 1e-10*math.Abs(want) {
		t.Errorf("virial trace %g, want %g", trace, want)
	}
}

func TestHarmonicKineticContribution(t *testing.T) {
	rep := bead.NewReplica([]int64{1}, []int{0}, []float64{3.0})
	rep.V[0] = bead.Vec{0.2, 0, 0}
	box := &bead.Box{Lx: 5, Ly: 5, Lz: 5}

	h := Harmonic{Omega: 0.05}
	_, vt := h.Compute(rep, box)

	want := 3.0 * 0.04 * units.MvsqToEnergy / box.Volume() * units.EnergyDensToPress
	if math.Abs(vt[0]-want) > 1e-12*want {
		t.Errorf("vt[0] = %g, want %g", vt[0], want)
	}
}
