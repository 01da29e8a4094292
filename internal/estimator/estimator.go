// Package estimator accumulates the thermodynamic observables of a ring
// run: kinetic and spring energies, the primitive, virial and
// centroid-virial temperature estimators, and the pressure estimators
// they feed.
package estimator

import (
	"github.com/jchen-md/ringmd/internal/bead"
	"github.com/jchen-md/ringmd/internal/ring"
	"github.com/jchen-md/ringmd/internal/units"
)

// Bank holds one process's view of the ring-wide observables. Values are
// refreshed by the compute methods, which hide the world and universe
// reductions behind them; after a refresh every process holds identical
// universe-wide numbers (world-local ones are noted per field).
type Bank struct {
	np     int
	natoms int
	kT     float64

	wc    ring.Comm
	uc    ring.Comm
	uroot bool
	world0 bool

	KeBead  float64 // this world's kinetic energy
	TotKE   float64 // ring kinetic energy per bead
	SeBead  float64 // this world's spring energy
	ESpring float64 // ring spring energy per bead
	PeBead  float64 // this world's potential energy
	Pote    float64 // ring potential energy per bead
	Tote    float64

	VirW        float64 // sum over the ring of x_unwrap . f
	CentroidVir float64 // sum over the ring of (x_unwrap - xc) . f
	Vir         float64 // pressure-tensor virial, trace times volume

	TPrim float64
	TVir  float64
	TCV   float64

	PPrim float64
	PMD   float64
	PCV   float64
}

func NewBank(np, natoms int, temp float64, wc, uc ring.Comm, world0, uroot bool) *Bank {
	return &Bank{
		np:     np,
		natoms: natoms,
		kT:     units.Boltz * temp,
		wc:     wc,
		uc:     uc,
		world0: world0,
		uroot:  uroot,
	}
}

// ComputeKinetic refreshes KeBead and TotKE from the fictitious-mass
// velocities of the local shard.
func (b *Bank) ComputeKinetic(r *bead.Replica, mass []float64) {
	local := 0.0
	for i := 0; i < r.N; i++ {
		m := mass[r.Types[i]]
		for j := 0; j < 3; j++ {
			local += 0.5 * m * r.V[i][j] * r.V[i][j]
		}
	}
	b.KeBead = b.wc.AllreduceSum(local) * units.MvsqToEnergy
	b.TotKE = b.uc.AllreduceSum(local) * units.MvsqToEnergy / float64(b.np)
}

// AddSpring folds in this process's spring-energy contribution, already
// evaluated in normal-mode coordinates by the propagator.
func (b *Bank) AddSpring(seLocal float64) {
	b.SeBead = b.wc.AllreduceSum(seLocal)
	b.ESpring = b.uc.AllreduceSum(seLocal) / float64(b.np)
}

// AddPotential folds in this process's share of the bead potential energy.
func (b *Bank) AddPotential(peLocal float64) {
	b.PeBead = b.wc.AllreduceSum(peLocal)
	b.Pote = b.uc.AllreduceSum(peLocal) / float64(b.np)
}

// AddVirial folds in this process's contribution to the world pressure
// tensor (diagonal, pressure units) at the current volume.
func (b *Bank) AddVirial(vtensor [6]float64, volume float64) {
	trace := vtensor[0] + vtensor[1] + vtensor[2]
	b.Vir = b.uc.AllreduceSum(trace * volume)
}

// ComputeCentroidVirial refreshes VirW and CentroidVir from unwrapped
// coordinates, forces, and the centroid positions xc.
func (b *Bank) ComputeCentroidVirial(r *bead.Replica, xUnwrap, xc []bead.Vec) {
	xf, xcf := 0.0, 0.0
	for i := 0; i < r.N; i++ {
		for j := 0; j < 3; j++ {
			xf += xUnwrap[i][j] * r.F[i][j]
			xcf += (xUnwrap[i][j] - xc[i][j]) * r.F[i][j]
		}
	}
	b.VirW = b.uc.AllreduceSum(xf)
	b.CentroidVir = b.uc.AllreduceSum(xcf)
}

// ComputeTemps evaluates the three temperature estimators, reported in
// energy units.
func (b *Bank) ComputeTemps() {
	n := float64(b.natoms)
	b.TPrim = 1.5*n*float64(b.np)*b.kT - b.ESpring
	b.TVir = -0.5 / float64(b.np) * b.VirW
	b.TCV = 1.5*n*b.kT - b.CentroidVir/(2.0*float64(b.np))
}

// ComputePressures evaluates the primitive and bead pressure estimators.
func (b *Bank) ComputePressures(volume float64) {
	invV := 1.0 / volume
	n := float64(b.natoms)
	np := float64(b.np)

	b.PPrim = (n*np*b.kT*invV - 2.0/3.0*b.ESpring*invV) * units.EnergyDensToPress
	b.PMD = 2.0 / 3.0 * invV * ((b.TotKE-b.ESpring)*units.EnergyDensToPress + 0.5*b.Vir/np)
}

// ComputePCV evaluates the centroid-virial pressure. The centroid world
// owns the value; it is broadcast so every world sees the same number.
func (b *Bank) ComputePCV(volume float64) {
	if b.world0 {
		b.PCV = 1.0 / 3.0 / volume * ((2.0*b.KeBead-b.CentroidVir)*units.EnergyDensToPress + b.Vir) / float64(b.np)
	}
	pcv := [1]float64{b.PCV}
	b.uc.Bcast(b.uroot, pcv[:])
	b.PCV = pcv[0]
}

// ComputeTotal refreshes the conserved-quantity candidate.
func (b *Bank) ComputeTotal() {
	b.Tote = b.TotKE + b.Pote + b.ESpring
}
