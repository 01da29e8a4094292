// Package barostat advances the auxiliary box velocity coupling the
// simulation cell to an external pressure, and performs the box rescale
// shared by every world of the ring.
package barostat

import (
	"math"

	"github.com/jchen-md/ringmd/internal/bead"
	"github.com/jchen-md/ringmd/internal/config"
	"github.com/jchen-md/ringmd/internal/ring"
	"github.com/jchen-md/ringmd/internal/rng"
	"github.com/jchen-md/ringmd/internal/units"
)

// Coupling owns the evolving box-velocity scalar vw. vw is ring-wide
// shared state: the centroid world computes its force-dependent part and
// every update ends in a universe broadcast, so all worlds agree.
type Coupling struct {
	kind config.Barostat

	// W is the barostat inertial mass, fixed at construction from the
	// target temperature, pressure relaxation time and particle count
	// (i-Pi convention: W = 3 N taup^2 P kT).
	W      float64
	Pext   float64
	VCoeff float64
	betaNP float64
	np     int

	c1, c2 float64 // stochastic refresh pair, shared with the centroid thermostat

	dtv  float64
	dtv2 float64
	dtv3 float64

	VW float64
}

// New builds the coupling. c1, c2 are the centroid-mode friction pair.
func New(kind config.Barostat, np, natoms int, dt, temp, taup, pext, c1, c2 float64) *Coupling {
	kT := units.Boltz * temp
	dtv := 0.5 * dt
	return &Coupling{
		kind:   kind,
		W:      3.0 * float64(natoms) * taup * taup * float64(np) * kT,
		Pext:   pext,
		VCoeff: 1.0,
		betaNP: 1.0 / (kT * float64(np)),
		np:     np,
		c1:     c1,
		c2:     c2,
		dtv:    dtv,
		dtv2:   dtv * dtv,
		dtv3:   dtv * dtv * dtv / 3.0 * units.ForceToAccel,
	}
}

// Target is the per-process state a coupling step acts on.
type Target struct {
	Rep          *bead.Replica
	Mass         []float64 // fictitious masses per type for this world
	Box          *bead.Box
	RNG          *rng.Gaussian
	WorldComm    ring.Comm
	UniverseComm ring.Comm
	World0       bool // member of the centroid world
	UniverseRoot bool
}

// VStep advances vw by half a timestep. BZP couples to the centroid-
// virial pressure and adds a force-dependent increment computed by the
// centroid world only; MTTK couples to p_md and the total kinetic energy.
// Either way the result is broadcast ring-wide.
func (c *Coupling) VStep(t Target, pCV, pMD, totKE float64, natoms int) {
	volume := t.Box.Volume()

	switch c.kind {
	case config.BZP:
		c.VW += c.dtv * 3.0 * (volume*float64(c.np)*(pCV-c.Pext)/units.EnergyDensToPress + c.VCoeff/c.betaNP) / c.W
		if t.World0 {
			dvw := 0.0
			for i := 0; i < t.Rep.N; i++ {
				m := t.Mass[t.Rep.Types[i]]
				for j := 0; j < 3; j++ {
					f := t.Rep.F[i][j]
					dvw += c.dtv2*f*t.Rep.V[i][j]/c.W + c.dtv3*f*f/m/c.W
				}
			}
			c.VW += t.WorldComm.AllreduceSum(dvw)
		}
	case config.MTTK:
		mtk := 2.0 / float64(natoms) * totKE / 3.0
		c.VW += 0.5 * c.dtv * (volume*float64(c.np)*(pMD-c.Pext) + mtk) / c.W
	}

	c.bcastVW(t)
}

// OStep is the stochastic refresh: universe rank 0 mixes vw with Gaussian
// noise using the centroid friction pair, then the value is broadcast.
func (c *Coupling) OStep(t Target) {
	if t.UniverseRoot {
		c.VW = c.c1*c.VW + c.c2*math.Sqrt(1.0/(c.W*c.betaNP))*t.RNG.Draw()
	}
	c.bcastVW(t)
}

func (c *Coupling) bcastVW(t Target) {
	vw := [1]float64{c.VW}
	t.UniverseComm.Bcast(t.UniverseRoot, vw[:])
	c.VW = vw[0]
}

// QCStep propagates the centroid world's positions under the moving box
// and rescales the cell. Only the centroid world moves atoms; the new box
// edges are broadcast so every world shares one geometry.
func (c *Coupling) QCStep(t Target) {
	expq := math.Exp(c.dtv * c.VW)
	expp := math.Exp(-c.dtv * c.VW)
	if t.World0 {
		drift := c.sinhDrift()
		for i := 0; i < t.Rep.N; i++ {
			for j := 0; j < 3; j++ {
				t.Rep.X[i][j] = expq*t.Rep.X[i][j] + drift*t.Rep.V[i][j]
				t.Rep.V[i][j] = expp * t.Rep.V[i][j]
			}
		}
	}
	edges := [3]float64{t.Box.Lx * expq, t.Box.Ly * expq, t.Box.Lz * expq}
	t.UniverseComm.Bcast(t.UniverseRoot, edges[:])
	t.Box.Lx, t.Box.Ly, t.Box.Lz = edges[0], edges[1], edges[2]
}

// sinhDrift is (e^{vw dt} - e^{-vw dt})/(2 vw): the position drift factor
// under the moving box. Evaluated by series near vw = 0, where the direct
// quotient is 0/0; the limit is dtv, recovering plain centroid drift.
func (c *Coupling) sinhDrift() float64 {
	z := c.dtv * c.VW
	if math.Abs(z) < 1e-8 {
		return c.dtv * (1.0 + z*z/6.0)
	}
	return math.Sinh(z) / c.VW
}

// KineticTerm is the barostat's kinetic energy W vw^2 / 2.
func (c *Coupling) KineticTerm() float64 { return 0.5 * c.W * c.VW * c.VW }

// Enthalpy adds the box work to the total energy: the BZP form carries an
// entropic log-volume correction, the MTTK form measures work from the
// initial volume.
func (c *Coupling) Enthalpy(tote, volume, vol0, kT float64) float64 {
	switch c.kind {
	case config.BZP:
		return tote + 0.5*c.W*c.VW*c.VW/float64(c.np) +
			c.Pext*volume/units.EnergyDensToPress - c.VCoeff*kT*math.Log(volume)
	default:
		return tote + 1.5*c.W*c.VW*c.VW/float64(c.np) + c.Pext*(volume-vol0)
	}
}
