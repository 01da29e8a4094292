package barostat

import (
	"math"
	"testing"

	"github.com/jchen-md/ringmd/internal/bead"
	"github.com/jchen-md/ringmd/internal/config"
	"github.com/jchen-md/ringmd/internal/ring"
	"github.com/jchen-md/ringmd/internal/rng"
	"github.com/jchen-md/ringmd/internal/units"
)

func singleProcTarget(u *ring.Universe, rep *bead.Replica, box *bead.Box) Target {
	p := u.Proc(0, 0)
	return Target{
		Rep:          rep,
		Mass:         rep.Mass,
		Box:          box,
		RNG:          rng.New(1),
		WorldComm:    p.WorldComm(),
		UniverseComm: p.UniverseComm(),
		World0:       true,
		UniverseRoot: true,
	}
}

func TestMTTKNoDriftAtEqualPressure(t *testing.T) {
	u := ring.NewUniverse(1, 1)
	rep := bead.NewReplica([]int64{1, 2}, []int{0, 0}, []float64{12.0})
	box := &bead.Box{Lx: 10, Ly: 10, Lz: 10}

	c := New(config.MTTK, 4, 2, 0.5, 300, 200, 1.0, 1.0, 0.0)
	tgt := singleProcTarget(u, rep, box)

	// External pressure matching the estimator, no kinetic energy, no
	// noise: the box velocity must stay exactly at rest.
	for i := 0; i < 50; i++ {
		c.VStep(tgt, 1.0, 1.0, 0.0, 2)
		c.OStep(tgt)
	}
	if c.VW != 0 {
		t.Errorf("vw drifted to %g", c.VW)
	}
	if box.Lx != 10 {
		t.Errorf("box edge drifted to %g", box.Lx)
	}
}

func TestBZPThermalTerm(t *testing.T) {
	u := ring.NewUniverse(1, 1)
	rep := bead.NewReplica([]int64{1}, []int{0}, []float64{12.0})
	box := &bead.Box{Lx: 10, Ly: 10, Lz: 10}

	const (
		np   = 4
		dt   = 0.5
		temp = 300.0
		taup = 200.0
	)
	c := New(config.BZP, np, 1, dt, temp, taup, 1.0, 1.0, 0.0)
	tgt := singleProcTarget(u, rep, box)

	// Zero forces and matched pressure leave only the deterministic
	// V-coefficient term.
	c.VStep(tgt, 1.0, 1.0, 0.0, 1)
	kT := units.Boltz * temp
	w := 3.0 * taup * taup * float64(np) * kT
	want := 0.5 * dt * 3.0 * (kT * float64(np)) / w
	if math.Abs(c.VW-want) > 1e-15 {
		t.Errorf("vw = %g, want %g", c.VW, want)
	}
}

func TestQCStepRescalesBoxEverywhere(t *testing.T) {
	const np = 2
	u := ring.NewUniverse(np, 1)

	done := make(chan *bead.Box, np)
	for iw := 0; iw < np; iw++ {
		go func(iw int) {
			p := u.Proc(iw, 0)
			rep := bead.NewReplica([]int64{1}, []int{0}, []float64{1.0})
			rep.X[0] = bead.Vec{1, 1, 1}
			rep.V[0] = bead.Vec{0.1, 0, 0}
			box := &bead.Box{Lx: 10, Ly: 10, Lz: 10}

			c := New(config.BZP, np, 1, 0.5, 300, 200, 1.0, 1.0, 0.0)
			c.VW = 0.001
			c.QCStep(Target{
				Rep:          rep,
				Mass:         rep.Mass,
				Box:          box,
				WorldComm:    p.WorldComm(),
				UniverseComm: p.UniverseComm(),
				World0:       iw == 0,
				UniverseRoot: p.UniverseRoot(),
			})

			if iw != 0 && rep.X[0][0] != 1 {
				t.Errorf("world %d: non-centroid positions moved", iw)
			}
			done <- box
		}(iw)
	}

	b0, b1 := <-done, <-done
	if b0.Lx != b1.Lx || b0.Ly != b1.Ly || b0.Lz != b1.Lz {
		t.Errorf("boxes diverged: %+v vs %+v", b0, b1)
	}
	want := 10 * math.Exp(0.25*0.001)
	if math.Abs(b0.Lx-want) > 1e-12 {
		t.Errorf("box edge %g, want %g", b0.Lx, want)
	}
}

func TestSinhDriftLimit(t *testing.T) {
	c := New(config.BZP, 2, 1, 0.5, 300, 200, 1.0, 1.0, 0.0)

	c.VW = 0
	if got := c.sinhDrift(); got != c.dtv {
		t.Errorf("drift at vw=0 is %g, want dtv %g", got, c.dtv)
	}

	// The series and the closed form must agree near the switchover.
	for _, vw := range []float64{1e-9, 1e-7, 1e-4} {
		c.VW = vw
		got := c.sinhDrift()
		want := math.Sinh(c.dtv*vw) / vw
		if math.Abs(got-want) > 1e-12*c.dtv {
			t.Errorf("vw=%g: drift %g, want %g", vw, got, want)
		}
	}
}
