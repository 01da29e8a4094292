// Package model provides the built-in force fields the driver can run
// without an external engine.
package model

import (
	"github.com/jchen-md/ringmd/internal/bead"
	"github.com/jchen-md/ringmd/internal/units"
)

// ForceField evaluates forces on one shard in place and reports the
// shard's potential-energy and pressure-tensor contributions. The tensor
// is the six-component Voigt form in pressure units, including the
// kinetic part.
type ForceField interface {
	Compute(r *bead.Replica, box *bead.Box) (peLocal float64, vtensor [6]float64)
}

// Harmonic is an isotropic well centered on the box origin: each atom
// feels f = -m omega^2 x with its physical mass. An exactly solvable
// stand-in whose quantum energies are known in closed form, which makes
// it the standard convergence check for ring discretizations.
type Harmonic struct {
	Omega float64 // fs^-1
}

func (h Harmonic) Compute(r *bead.Replica, box *bead.Box) (float64, [6]float64) {
	pe := 0.0
	var vt [6]float64
	k2 := h.Omega * h.Omega * units.MvsqToEnergy

	for i := 0; i < r.N; i++ {
		m := r.Mass[r.Types[i]]
		for j := 0; j < 3; j++ {
			r.F[i][j] = -m * k2 * r.X[i][j]
			pe += 0.5 * m * k2 * r.X[i][j] * r.X[i][j]
		}
	}

	// Diagonal pressure components: kinetic plus virial, per component.
	invV := 1.0 / box.Volume()
	for i := 0; i < r.N; i++ {
		m := r.Mass[r.Types[i]]
		for j := 0; j < 3; j++ {
			vt[j] += (m*r.V[i][j]*r.V[i][j]*units.MvsqToEnergy + r.X[i][j]*r.F[i][j]) * invV * units.EnergyDensToPress
		}
	}
	for i := 0; i < r.N; i++ {
		m := r.Mass[r.Types[i]]
		vt[3] += (m*r.V[i][0]*r.V[i][1]*units.MvsqToEnergy + r.X[i][0]*r.F[i][1]) * invV * units.EnergyDensToPress
		vt[4] += (m*r.V[i][0]*r.V[i][2]*units.MvsqToEnergy + r.X[i][0]*r.F[i][2]) * invV * units.EnergyDensToPress
		vt[5] += (m*r.V[i][1]*r.V[i][2]*units.MvsqToEnergy + r.X[i][1]*r.F[i][2]) * invV * units.EnergyDensToPress
	}
	return pe, vt
}
