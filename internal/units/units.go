// Package units defines the unit system the propagator works in:
// masses in g/mol, distances in angstroms, time in femtoseconds,
// energies in kcal/mol, temperature in kelvin, pressure in atmospheres.
package units

const (
	// Boltz is the Boltzmann constant, kcal/(mol K).
	Boltz = 0.0019872067

	// HPlanck is Planck's constant, kcal fs/mol.
	HPlanck = 95.306976368

	// MvsqToEnergy converts mass*velocity^2 to energy,
	// (g/mol)(A/fs)^2 -> kcal/mol.
	MvsqToEnergy = 48.88821291 * 48.88821291

	// ForceToAccel converts force/mass to acceleration,
	// (kcal/mol/A)/(g/mol) -> A/fs^2.
	ForceToAccel = 1.0 / MvsqToEnergy

	// EnergyDensToPress converts energy/volume to pressure,
	// (kcal/mol)/A^3 -> atm.
	EnergyDensToPress = 68568.415
)
