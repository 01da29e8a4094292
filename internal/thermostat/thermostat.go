// Package thermostat applies stochastic friction and noise to bead
// velocities per normal mode: local-mode Langevin (PILE-local), global
// stochastic velocity rescaling (SVR), or the hybrid that rescales the
// centroid and Langevin-couples the rest (PILE-global).
package thermostat

import (
	"math"

	"github.com/jchen-md/ringmd/internal/bead"
	"github.com/jchen-md/ringmd/internal/config"
	"github.com/jchen-md/ringmd/internal/ring"
	"github.com/jchen-md/ringmd/internal/rng"
	"github.com/jchen-md/ringmd/internal/units"
)

// Bank holds the friction coefficients for every normal mode, derived
// once from the timestep, target temperature, damping times and the step
// splitting. The per-mode damping time is tau_k = 1/(2*scale*omega_k);
// the centroid uses the user-supplied tau (or the ring frequency when
// tau <= 0).
type Bank struct {
	kind   config.Thermostat
	np     int
	betaNP float64 // (g/mol)(A/fs)^2 inverse energy per bead

	tauK []float64
	c1K  []float64
	c2K  []float64
}

// NewBank derives the coefficient tables. omegaK are the per-mode ring
// frequencies (fs^-1), omegaK[0] = 0 for the centroid.
func NewBank(kind config.Thermostat, split config.Splitting, dt, temp, tau, scale float64, omegaK []float64) *Bank {
	np := len(omegaK)
	b := &Bank{
		kind:   kind,
		np:     np,
		betaNP: units.MvsqToEnergy / (units.Boltz * temp * float64(np)),
		tauK:   make([]float64, np),
		c1K:    make([]float64, np),
		c2K:    make([]float64, np),
	}

	gamma := 1.0 / tau
	if tau <= 0 {
		gamma = float64(np) * units.Boltz * temp / units.HPlanck
	}

	// Under OBABO the O step runs twice per timestep, so each application
	// damps over half the interval.
	frac := 1.0
	if split == config.OBABO {
		frac = 0.5
	}

	b.tauK[0] = tau
	b.c1K[0] = math.Exp(-gamma * frac * dt)
	b.c2K[0] = math.Sqrt(1.0 - b.c1K[0]*b.c1K[0])
	for k := 1; k < np; k++ {
		b.tauK[k] = 0.5 / (scale * omegaK[k])
		b.c1K[k] = math.Exp(-frac * dt / b.tauK[k])
		b.c2K[k] = math.Sqrt(1.0 - b.c1K[k]*b.c1K[k])
	}
	return b
}

// CentroidFriction exposes the mode-0 mixing pair; the barostat's
// stochastic refresh shares it.
func (b *Bank) CentroidFriction() (c1, c2 float64) { return b.c1K[0], b.c2K[0] }

// Target is the per-process view a stochastic step acts on.
type Target struct {
	IWorld       int
	Rep          *bead.Replica
	Mass         []float64 // fictitious masses per type for this world
	RNG          *rng.Gaussian
	WorldComm    ring.Comm
	UniverseComm ring.Comm
	WorldRoot    bool
	UniverseRoot bool
}

// OStep applies one stochastic half-step to the target's velocities.
func (b *Bank) OStep(t Target) {
	switch b.kind {
	case config.PILELocal:
		b.pileLocal(t)
	case config.SVR:
		b.svr(t, t.UniverseComm, t.UniverseRoot)
	case config.PILEGlobal:
		if t.IWorld == 0 {
			b.svr(t, t.WorldComm, t.WorldRoot)
		} else {
			b.pileLocal(t)
		}
	}
}

func (b *Bank) pileLocal(t Target) {
	c1 := b.c1K[t.IWorld]
	c2 := b.c2K[t.IWorld]
	for i := 0; i < t.Rep.N; i++ {
		amp := c2 * math.Sqrt(1.0/(t.Mass[t.Rep.Types[i]]*b.betaNP))
		r1 := t.RNG.Draw()
		r2 := t.RNG.Draw()
		r3 := t.RNG.Draw()
		t.Rep.V[i][0] = c1*t.Rep.V[i][0] + amp*r1
		t.Rep.V[i][1] = c1*t.Rep.V[i][1] + amp*r2
		t.Rep.V[i][2] = c1*t.Rep.V[i][2] + amp*r3
	}
}

// svr applies a single collective rescaling over the given scope. The
// noise degrees of freedom match the kinetic ones: every process draws
// 3*nlocal terms and the reduction restores exactly 3N.
func (b *Bank) svr(t Target, comm ring.Comm, root bool) {
	c1 := b.c1K[0]

	ke := 0.0
	for i := 0; i < t.Rep.N; i++ {
		m := t.Mass[t.Rep.Types[i]]
		for j := 0; j < 3; j++ {
			ke += 0.5 * m * t.Rep.V[i][j] * t.Rep.V[i][j]
		}
	}
	keTotal := comm.AllreduceSum(ke)

	noise := 0.0
	ksi0 := 0.0
	first := true
	for i := 0; i < t.Rep.N; i++ {
		for j := 0; j < 3; j++ {
			ksi := t.RNG.Draw()
			if root && first {
				ksi0 = ksi
				first = false
			}
			noise += ksi * ksi
		}
	}
	noiseTotal := comm.AllreduceSum(noise)

	alpha := [1]float64{}
	if root {
		bk := 2.0 * b.betaNP * keTotal
		alpha2 := c1 + (1.0-c1)*noiseTotal/bk + 2.0*ksi0*math.Sqrt(c1*(1.0-c1)/bk)
		sgn := 1.0
		if ksi0+math.Sqrt(bk*c1/(1.0-c1)) < 0 {
			sgn = -1.0
		}
		alpha[0] = sgn * math.Sqrt(alpha2)
	}
	comm.Bcast(root, alpha[:])

	for i := 0; i < t.Rep.N; i++ {
		for j := 0; j < 3; j++ {
			t.Rep.V[i][j] *= alpha[0]
		}
	}
}
