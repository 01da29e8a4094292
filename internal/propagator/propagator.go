// Package propagator sequences one ring-polymer timestep: the stochastic
// O steps, force kicks, free ring rotation in normal-mode space and
// centroid drift, plus the estimator refreshes the host reads back.
//
// The propagator is a per-process object: every process of the P×S ring
// owns one, and the step methods are collective. All processes must call
// them in lockstep with their own shard.
package propagator

import (
	"math"

	"github.com/jchen-md/ringmd/internal/barostat"
	"github.com/jchen-md/ringmd/internal/bead"
	"github.com/jchen-md/ringmd/internal/config"
	"github.com/jchen-md/ringmd/internal/estimator"
	"github.com/jchen-md/ringmd/internal/normalmode"
	"github.com/jchen-md/ringmd/internal/ring"
	"github.com/jchen-md/ringmd/internal/rng"
	"github.com/jchen-md/ringmd/internal/thermostat"
	"github.com/jchen-md/ringmd/internal/units"
)

// Propagator holds everything one process needs to advance its shard of
// one world. Velocities live permanently in normal-mode coordinates;
// positions are transformed in and out around the free-ring rotation, and
// forces arrive Cartesian from the host and are transformed after every
// force evaluation.
type Propagator struct {
	cfg  *config.Config
	proc *ring.Proc
	rep  *bead.Replica
	box  *bead.Box

	ex     *ring.Exchange
	nm     *normalmode.Transform
	thermo *thermostat.Bank
	baro   *barostat.Coupling
	est    *estimator.Bank
	gauss  *rng.Gaussian

	natoms    int // atoms in one world, summed over its processes
	massTotal float64

	massFict []float64 // per type, this world's mode

	omegaK []float64
	lanC   []float64
	lanS   []float64

	dtv   float64
	dtf   float64
	fbond float64

	xUnwrap []bead.Vec
	xc      []bead.Vec
	xScaled []bead.Vec

	vol0    float64
	modeBuf []float64
}

// New wires a propagator for one process. cfg must already be validated;
// rep and box are the host's shard state, mutated in place by the step
// methods.
func New(cfg *config.Config, proc *ring.Proc, rep *bead.Replica, box *bead.Box) *Propagator {
	np := proc.NWorlds()
	nm := normalmode.New(np)

	beta := 1.0 / (units.Boltz * cfg.Temp)
	hbar := units.HPlanck * cfg.SP
	omegaNP := float64(np) / (beta * hbar)

	fbond := float64(np*np) / (beta * beta * hbar * hbar) * units.MvsqToEnergy
	if cfg.TI.Enabled && cfg.TIMethodKind() == config.SCTI {
		fbond *= cfg.TI.Lambda
	}

	omegaK := make([]float64, np)
	lanC := make([]float64, np)
	lanS := make([]float64, np)
	for k := 0; k < np; k++ {
		switch cfg.FicMassKind() {
		case config.Physical:
			omegaK[k] = omegaNP * math.Sqrt(nm.Lam[k])
		default:
			omegaK[k] = omegaNP
		}
		lanC[k] = math.Cos(omegaK[k] * 0.5 * cfg.Dt)
		lanS[k] = math.Sin(omegaK[k] * 0.5 * cfg.Dt)
	}

	wc := proc.WorldComm()
	natoms := int(wc.AllreduceSum(float64(rep.N)) + 0.5)
	massTotal := wc.AllreduceSum(rep.TotalMass())

	thermo := thermostat.NewBank(cfg.ThermostatKind(), cfg.SplittingKind(),
		cfg.Dt, cfg.Temp, cfg.Tau, cfg.Scale, omegaK)

	var baro *barostat.Coupling
	if cfg.Barostatted() {
		c1, c2 := thermo.CentroidFriction()
		baro = barostat.New(cfg.BarostatKind(), np, natoms,
			cfg.Dt, cfg.Temp, cfg.TauP, cfg.Pext, c1, c2)
	}

	p := &Propagator{
		cfg:       cfg,
		proc:      proc,
		rep:       rep,
		box:       box,
		ex:        ring.NewExchange(proc, rep.N),
		nm:        nm,
		thermo:    thermo,
		baro:      baro,
		est:       estimator.NewBank(np, natoms, cfg.Temp, wc, proc.UniverseComm(), proc.IWorld == 0, proc.UniverseRoot()),
		gauss:     rng.New(cfg.Seed + uint64(proc.Me)),
		natoms:    natoms,
		massTotal: massTotal,
		massFict:  nm.FictitiousMasses(rep.Mass, proc.IWorld, cfg.FicMassKind(), cfg.FMass),
		omegaK:    omegaK,
		lanC:      lanC,
		lanS:      lanS,
		dtv:       0.5 * cfg.Dt,
		dtf:       0.5 * cfg.Dt * units.ForceToAccel,
		fbond:     fbond,
		xUnwrap:   make([]bead.Vec, rep.N),
		xc:        make([]bead.Vec, rep.N),
		xScaled:   make([]bead.Vec, rep.N),
		vol0:      box.Volume(),
	}
	return p
}

// Estimators exposes the observable bank.
func (p *Propagator) Estimators() *estimator.Bank { return p.est }

// FictitiousMasses exposes the per-type masses of this world's mode, for
// hosts that want to draw initial velocities consistently.
func (p *Propagator) FictitiousMasses() []float64 { return p.massFict }

// Setup runs once before the first timestep, after the host has computed
// forces. It moves velocities into normal-mode coordinates, where they
// stay for the whole run, and primes every estimator so diagnostics are
// valid from step zero.
func (p *Propagator) Setup(peLocal float64, vtensorLocal [6]float64) {
	p.unmap()
	p.toModes(p.rep.X)
	p.springEnergy()
	p.fromModes(p.rep.X)
	copy(p.xUnwrap, p.rep.X)
	p.remap()

	p.toModes(p.rep.V)

	p.PostForce(peLocal, vtensorLocal)
	p.EndOfStep()
}

// InitialIntegrate advances the first half of one timestep, up to the
// point where the host must recompute forces.
func (p *Propagator) InitialIntegrate() {
	p.unmap()

	switch p.cfg.SplittingKind() {
	case config.OBABO:
		if p.cfg.Thermostatted() {
			p.oStep()
			p.removeCOM()
			if p.baro != nil {
				p.baro.OStep(p.baroTarget())
			}
		}
		if p.baro != nil {
			p.est.ComputeKinetic(p.rep, p.massFict)
			p.est.ComputePCV(p.box.Volume())
			p.baro.VStep(p.baroTarget(), p.est.PCV, p.est.PMD, p.est.TotKE, p.natoms)
		}
		p.bStep()
		p.removeCOM()
		p.toModes(p.rep.X)
		p.qcStep()
		p.aStep()
		p.qcStep()
		p.aStep()
		p.springEnergy()
		p.fromModes(p.rep.X)

	case config.BAOAB:
		if p.baro != nil {
			p.est.ComputeKinetic(p.rep, p.massFict)
			p.est.ComputePCV(p.box.Volume())
			p.baro.VStep(p.baroTarget(), p.est.PCV, p.est.PMD, p.est.TotKE, p.natoms)
		}
		p.bStep()
		p.toModes(p.rep.X)
		p.qcStep()
		p.aStep()
		if p.cfg.Thermostatted() {
			p.oStep()
			p.removeCOM()
			if p.baro != nil {
				p.baro.OStep(p.baroTarget())
			}
		}
		p.qcStep()
		p.aStep()
		p.springEnergy()
		p.fromModes(p.rep.X)
	}

	p.remap()
}

// PostForce runs after every host force evaluation. peLocal and
// vtensorLocal are this process's contributions to the world potential
// energy and diagonal pressure tensor; reductions happen inside. Forces
// leave this call in normal-mode coordinates.
func (p *Propagator) PostForce(peLocal float64, vtensorLocal [6]float64) {
	p.unmap()
	copy(p.xUnwrap, p.rep.X)
	p.computeXC()
	p.remap()

	p.est.AddVirial(vtensorLocal, p.box.Volume())
	p.est.ComputeCentroidVirial(p.rep, p.xUnwrap, p.xc)
	p.est.ComputeTemps()
	p.est.AddPotential(peLocal)

	if p.cfg.TI.Enabled {
		p.computeXScaled()
	}

	p.toModes(p.rep.F)
}

// FinalIntegrate advances the second half of the timestep, after the
// force evaluation.
func (p *Propagator) FinalIntegrate() {
	if p.baro != nil {
		p.est.ComputeKinetic(p.rep, p.massFict)
		p.est.ComputePCV(p.box.Volume())
		p.baro.VStep(p.baroTarget(), p.est.PCV, p.est.PMD, p.est.TotKE, p.natoms)
	}
	p.bStep()
	p.removeCOM()
	if p.cfg.SplittingKind() == config.OBABO && p.cfg.Thermostatted() {
		p.oStep()
		p.removeCOM()
		if p.baro != nil {
			p.baro.OStep(p.baroTarget())
		}
	}
}

// EndOfStep refreshes the derived observables once the step is complete.
func (p *Propagator) EndOfStep() {
	p.est.ComputeKinetic(p.rep, p.massFict)
	p.est.ComputePressures(p.box.Volume())
	p.est.ComputePCV(p.box.Volume())
	p.est.ComputeTotal()
}

// Diagnostics returns the fixed-order scalar vector: world kinetic,
// spring and potential energies, total energy, the three temperature
// estimators, the three pressure estimators, the barostat velocity and
// kinetic term, and the enthalpy.
func (p *Propagator) Diagnostics() [13]float64 {
	e := p.est
	out := [13]float64{
		e.KeBead, e.SeBead, e.PeBead, e.Tote,
		e.TPrim, e.TVir, e.TCV,
		e.PPrim, e.PMD, e.PCV,
	}
	if p.baro != nil {
		out[10] = p.baro.VW
		out[11] = p.baro.KineticTerm()
		out[12] = p.baro.Enthalpy(e.Tote, p.box.Volume(), p.vol0, units.Boltz*p.cfg.Temp)
	}
	return out
}

// XScaled exposes the mass-scaled coordinates used by thermodynamic
// integration hosts; valid after PostForce when TI is enabled.
func (p *Propagator) XScaled() []bead.Vec { return p.xScaled }

func (p *Propagator) baroTarget() barostat.Target {
	return barostat.Target{
		Rep:          p.rep,
		Mass:         p.massFict,
		Box:          p.box,
		RNG:          p.gauss,
		WorldComm:    p.proc.WorldComm(),
		UniverseComm: p.proc.UniverseComm(),
		World0:       p.proc.IWorld == 0,
		UniverseRoot: p.proc.UniverseRoot(),
	}
}

func (p *Propagator) oStep() {
	// cmd adiabatically decouples the centroid: its world runs no
	// thermostat at all.
	if p.cfg.MethodKind() == config.Centroid && p.proc.IWorld == 0 {
		return
	}
	p.thermo.OStep(thermostat.Target{
		IWorld:       p.proc.IWorld,
		Rep:          p.rep,
		Mass:         p.massFict,
		RNG:          p.gauss,
		WorldComm:    p.proc.WorldComm(),
		UniverseComm: p.proc.UniverseComm(),
		WorldRoot:    p.proc.WorldRoot(),
		UniverseRoot: p.proc.UniverseRoot(),
	})
}

// bStep kicks the mode velocities by half a step of the mode forces.
func (p *Propagator) bStep() {
	r := p.rep
	for i := 0; i < r.N; i++ {
		inv := p.dtf / p.massFict[r.Types[i]]
		for j := 0; j < 3; j++ {
			r.V[i][j] += inv * r.F[i][j]
		}
	}
}

// aStep rotates position and velocity of every non-centroid mode through
// half a period step of its natural frequency.
func (p *Propagator) aStep() {
	if p.proc.IWorld == 0 {
		return
	}
	r := p.rep
	c := p.lanC[p.proc.IWorld]
	s := p.lanS[p.proc.IWorld]
	w := p.omegaK[p.proc.IWorld]
	for i := 0; i < r.N; i++ {
		for j := 0; j < 3; j++ {
			x, v := r.X[i][j], r.V[i][j]
			r.X[i][j] = c*x + s/w*v
			r.V[i][j] = -w*s*x + c*v
		}
	}
}

// qcStep drifts the centroid, or runs the box-coupled drift and rescale
// when a barostat is attached.
func (p *Propagator) qcStep() {
	if p.baro != nil {
		p.baro.QCStep(p.baroTarget())
		return
	}
	if p.proc.IWorld != 0 {
		return
	}
	r := p.rep
	for i := 0; i < r.N; i++ {
		for j := 0; j < 3; j++ {
			r.X[i][j] += p.dtv * r.V[i][j]
		}
	}
}

// removeCOM subtracts the centroid world's center-of-mass velocity; the
// other modes carry no net drift by construction.
func (p *Propagator) removeCOM() {
	if !p.cfg.RemoveCOM || p.proc.IWorld != 0 {
		return
	}
	r := p.rep
	wc := p.proc.WorldComm()
	var vcm bead.Vec
	for j := 0; j < 3; j++ {
		mom := 0.0
		for i := 0; i < r.N; i++ {
			mom += r.Mass[r.Types[i]] * r.V[i][j]
		}
		vcm[j] = wc.AllreduceSum(mom) / p.massTotal
	}
	for i := 0; i < r.N; i++ {
		for j := 0; j < 3; j++ {
			r.V[i][j] -= vcm[j]
		}
	}
}

// springEnergy evaluates the ring coupling energy in the current mode
// coordinates, where it is diagonal per mode, and folds it into the
// estimator bank.
func (p *Propagator) springEnergy() {
	r := p.rep
	lam := p.nm.Lam[p.proc.IWorld]
	se := 0.0
	for i := 0; i < r.N; i++ {
		m := r.Mass[r.Types[i]]
		se += 0.5 * m * p.fbond * lam *
			(r.X[i][0]*r.X[i][0] + r.X[i][1]*r.X[i][1] + r.X[i][2]*r.X[i][2])
	}
	p.est.AddSpring(se)
}

// computeXC rebuilds the per-atom ring centroids from the unwrapped
// coordinates of every world.
func (p *Propagator) computeXC() {
	buf := p.ex.GatherVecs(p.rep, p.xUnwrap)
	inv := 1.0 / float64(p.nm.P)
	for i := 0; i < p.rep.N; i++ {
		for j := 0; j < 3; j++ {
			acc := 0.0
			for w := 0; w < p.nm.P; w++ {
				acc += buf[w][3*i+j]
			}
			p.xc[i][j] = acc * inv
		}
	}
}

// computeXScaled blends unwrapped bead coordinates toward the centroid by
// the coupling parameter lambda.
func (p *Propagator) computeXScaled() {
	lam := p.cfg.TI.Lambda
	for i := 0; i < p.rep.N; i++ {
		for j := 0; j < 3; j++ {
			p.xScaled[i][j] = lam*p.xUnwrap[i][j] + (1.0-lam)*p.xc[i][j]
		}
	}
}

// toModes projects one Cartesian field onto this world's mode, in place.
func (p *Propagator) toModes(field []bead.Vec) {
	buf := p.ex.GatherVecs(p.rep, field)
	p.growModeBuf()
	p.nm.ToModes(buf, p.modeBuf[:3*p.rep.N], p.proc.IWorld)
	p.unflatten(field)
}

// fromModes maps one mode field back to this bead's Cartesian values.
func (p *Propagator) fromModes(field []bead.Vec) {
	buf := p.ex.GatherVecs(p.rep, field)
	p.growModeBuf()
	p.nm.FromModes(buf, p.modeBuf[:3*p.rep.N], p.proc.IWorld)
	p.unflatten(field)
}

func (p *Propagator) growModeBuf() {
	if cap(p.modeBuf) < 3*p.rep.N {
		p.modeBuf = make([]float64, 3*p.rep.N)
	}
}

func (p *Propagator) unflatten(field []bead.Vec) {
	for i := 0; i < p.rep.N; i++ {
		field[i][0] = p.modeBuf[3*i]
		field[i][1] = p.modeBuf[3*i+1]
		field[i][2] = p.modeBuf[3*i+2]
	}
}

func (p *Propagator) unmap() {
	if !p.cfg.RemapImages {
		return
	}
	for i := 0; i < p.rep.N; i++ {
		p.box.Unmap(&p.rep.X[i], p.rep.Image[i])
	}
}

func (p *Propagator) remap() {
	if !p.cfg.RemapImages {
		return
	}
	for i := 0; i < p.rep.N; i++ {
		p.box.UnmapInv(&p.rep.X[i], p.rep.Image[i])
	}
}
