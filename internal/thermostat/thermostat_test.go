package thermostat

import (
	"math"
	"sync"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jchen-md/ringmd/internal/bead"
	"github.com/jchen-md/ringmd/internal/config"
	"github.com/jchen-md/ringmd/internal/ring"
	"github.com/jchen-md/ringmd/internal/rng"
	"github.com/jchen-md/ringmd/internal/units"
)

func testReplica(n int, mass float64) *bead.Replica {
	tags := make([]int64, n)
	types := make([]int, n)
	for i := range tags {
		tags[i] = int64(i + 1)
	}
	return bead.NewReplica(tags, types, []float64{mass})
}

func TestFrictionCoefficients(t *testing.T) {
	omegaK := []float64{0, 0.02, 0.04, 0.02}
	b := NewBank(config.PILELocal, config.BAOAB, 0.5, 300, 100, 1.0, omegaK)

	if math.Abs(b.c1K[0]-math.Exp(-0.5/100)) > 1e-14 {
		t.Errorf("centroid c1 = %g", b.c1K[0])
	}
	for k := 0; k < len(omegaK); k++ {
		sum := b.c1K[k]*b.c1K[k] + b.c2K[k]*b.c2K[k]
		if math.Abs(sum-1.0) > 1e-12 {
			t.Errorf("mode %d: c1^2+c2^2 = %g, want 1", k, sum)
		}
	}
}

func TestOBABOHalvesDamping(t *testing.T) {
	omegaK := []float64{0, 0.02}
	full := NewBank(config.PILELocal, config.BAOAB, 0.5, 300, 100, 1.0, omegaK)
	half := NewBank(config.PILELocal, config.OBABO, 0.5, 300, 100, 1.0, omegaK)
	for k := range omegaK {
		if math.Abs(half.c1K[k]*half.c1K[k]-full.c1K[k]) > 1e-12 {
			t.Errorf("mode %d: OBABO c1^2 = %g, BAOAB c1 = %g", k, half.c1K[k]*half.c1K[k], full.c1K[k])
		}
	}
}

// Free particles under the local Langevin mode thermostat must settle at
// the per-bead target: mean kinetic energy 0.5 kT P per degree of freedom.
func TestPILELocalEquilibrium(t *testing.T) {
	g := NewGomegaWithT(t)

	const (
		nAtoms = 1500
		np     = 4
		temp   = 300.0
		mass   = 12.011
	)
	omegaK := []float64{0, 0.05, 0.1, 0.05}
	b := NewBank(config.PILELocal, config.BAOAB, 0.5, temp, 100, 1.0, omegaK)

	rep := testReplica(nAtoms, mass)
	tgt := Target{
		IWorld: 1,
		Rep:    rep,
		Mass:   []float64{mass},
		RNG:    rng.New(7),
	}

	// Burn in, then accumulate.
	for i := 0; i < 50; i++ {
		b.OStep(tgt)
	}
	sum := 0.0
	const samples = 400
	for s := 0; s < samples; s++ {
		b.OStep(tgt)
		for i := 0; i < rep.N; i++ {
			for j := 0; j < 3; j++ {
				sum += 0.5 * mass * rep.V[i][j] * rep.V[i][j] * units.MvsqToEnergy
			}
		}
	}
	perDOF := sum / float64(samples*nAtoms*3)
	want := 0.5 * units.Boltz * temp * np

	g.Expect(perDOF).To(BeNumerically("~", want, 0.03*want))
}

// A full-resampling SVR step must hand back a kinetic energy of the right
// scale, and every process in the scope must agree on the rescale factor.
func TestSVRConsistentAcrossProcs(t *testing.T) {
	g := NewGomegaWithT(t)

	const (
		np   = 1
		s    = 2
		temp = 300.0
		mass = 1.008
	)
	u := ring.NewUniverse(np, s)
	omegaK := []float64{0}
	// tau <= 0 selects the ring frequency for the centroid damping.
	b0 := NewBank(config.SVR, config.BAOAB, 0.5, temp, 10, 1.0, omegaK)
	b1 := NewBank(config.SVR, config.BAOAB, 0.5, temp, 10, 1.0, omegaK)
	banks := []*Bank{b0, b1}

	kes := make([]float64, s)
	var wg sync.WaitGroup
	for rk := 0; rk < s; rk++ {
		wg.Add(1)
		go func(rk int) {
			defer wg.Done()
			p := u.Proc(0, rk)
			rep := testReplica(200, mass)
			gauss := rng.New(uint64(rk) + 3)
			for i := 0; i < rep.N; i++ {
				for j := 0; j < 3; j++ {
					rep.V[i][j] = 0.01 * gauss.Draw()
				}
			}
			tgt := Target{
				IWorld:       0,
				Rep:          rep,
				Mass:         []float64{mass},
				RNG:          gauss,
				WorldComm:    p.WorldComm(),
				UniverseComm: p.UniverseComm(),
				WorldRoot:    p.WorldRoot(),
				UniverseRoot: p.UniverseRoot(),
			}
			for step := 0; step < 200; step++ {
				banks[rk].OStep(tgt)
			}
			ke := 0.0
			for i := 0; i < rep.N; i++ {
				for j := 0; j < 3; j++ {
					ke += 0.5 * mass * rep.V[i][j] * rep.V[i][j] * units.MvsqToEnergy
				}
			}
			kes[rk] = ke
		}(rk)
	}
	wg.Wait()

	// 600 degrees of freedom per process at 0.5 kT each (P=1).
	want := 0.5 * units.Boltz * temp * 600
	g.Expect(kes[0] + kes[1]).To(BeNumerically("~", 2*want, 0.25*2*want))
}
