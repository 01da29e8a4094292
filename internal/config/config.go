package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a configuration rejected at construction time. Every
// cooperating process must reach the same fatal decision before any
// collective runs, so nothing here is deferred to step time.
var ErrInvalid = errors.New("config: invalid parameter")

// Propagation method.
type Method int

const (
	Direct Method = iota // beads propagated in Cartesian coordinates
	NormalMode           // free ring polymer handled in normal-mode space
	Centroid             // centroid dynamics, non-centroid modes mass-pinned
)

// Splitting is the operator-splitting step ordering.
type Splitting int

const (
	OBABO Splitting = iota
	BAOAB
)

// Ensemble selects which stochastic couplings run.
type Ensemble int

const (
	NVE Ensemble = iota
	NVT
	NPH
	NPT
)

// Thermostat friction policy.
type Thermostat int

const (
	PILELocal Thermostat = iota
	PILEGlobal
	SVR
)

// Barostat flavor.
type Barostat int

const (
	BZP Barostat = iota
	MTTK
)

// FicMassMode controls the non-centroid fictitious masses.
type FicMassMode int

const (
	Physical FicMassMode = iota
	Normal
)

// TIMethod is the thermodynamic-integration interpolation scheme.
type TIMethod int

const (
	MSTI TIMethod = iota
	SCTI
)

const (
	DefaultTemp  = 298.15
	DefaultTau   = 1.0
	DefaultTauP  = 1.0
	DefaultPext  = 1.0
	DefaultDt    = 0.5
	DefaultScale = 1.0
)

// Config is the run configuration. Enum fields are yaml keywords resolved
// by Validate; the typed values are what the propagator consumes.
type Config struct {
	Method     string `yaml:"method"`
	Integrator string `yaml:"integrator"`
	Ensemble   string `yaml:"ensemble"`
	Thermostat string `yaml:"thermostat"`
	Barostat   string `yaml:"barostat"`
	FMMode     string `yaml:"fmmode"`

	NBeads        int     `yaml:"nbeads"`
	ProcsPerWorld int     `yaml:"procs_per_world"`
	Dt            float64 `yaml:"dt"`
	Steps         int     `yaml:"steps"`
	Temp          float64 `yaml:"temp"`
	Tau           float64 `yaml:"tau"`
	TauP          float64 `yaml:"taup"`
	Pext          float64 `yaml:"press"`
	FMass         float64 `yaml:"fmass"`
	Scale         float64 `yaml:"scale"` // PILE damping scale for non-centroid modes
	SP            float64 `yaml:"sp"`    // Planck-constant scale factor
	Seed          uint64  `yaml:"seed"`
	RemoveCOM     bool    `yaml:"fixcom"`
	RemapImages   bool    `yaml:"map"`

	TI struct {
		Enabled bool    `yaml:"enabled"`
		Method  string  `yaml:"method"`
		Lambda  float64 `yaml:"lambda"`
	} `yaml:"ti"`

	// Host stand-in model parameters, used by the driver and CLI.
	Model struct {
		NAtoms int     `yaml:"natoms"`
		Omega  float64 `yaml:"omega"` // harmonic frequency, fs^-1
		Mass   float64 `yaml:"mass"`  // g/mol
		BoxL   float64 `yaml:"box"`   // cubic edge, A
	} `yaml:"model"`

	method     Method
	splitting  Splitting
	ensemble   Ensemble
	thermostat Thermostat
	barostat   Barostat
	fmmode     FicMassMode
	timethod   TIMethod
}

func DefaultConfig() *Config {
	cfg := &Config{
		Method:        "nmpimd",
		Integrator:    "obabo",
		Ensemble:      "nvt",
		Thermostat:    "pile_l",
		Barostat:      "bzp",
		FMMode:        "physical",
		NBeads:        4,
		ProcsPerWorld: 1,
		Dt:            DefaultDt,
		Steps:         1000,
		Temp:          DefaultTemp,
		Tau:           DefaultTau,
		TauP:          DefaultTauP,
		Pext:          DefaultPext,
		FMass:         1.0,
		Scale:         DefaultScale,
		SP:            1.0,
		Seed:          1,
		RemoveCOM:     true,
		RemapImages:   true,
	}
	cfg.TI.Method = "msti"
	cfg.Model.NAtoms = 8
	cfg.Model.Omega = 0.05
	cfg.Model.Mass = 1.008
	cfg.Model.BoxL = 20.0
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate resolves every enum keyword and range-checks every numeric
// parameter. It must be called (and must succeed) before any component is
// built from the config.
func (c *Config) Validate() error {
	switch c.Method {
	case "pimd", "direct":
		c.method = Direct
	case "nmpimd":
		c.method = NormalMode
	case "cmd":
		c.method = Centroid
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalid, c.Method)
	}

	switch c.Integrator {
	case "obabo":
		c.splitting = OBABO
	case "baoab":
		c.splitting = BAOAB
	default:
		return fmt.Errorf("%w: unknown integrator %q (only obabo and baoab are supported)", ErrInvalid, c.Integrator)
	}

	switch c.Ensemble {
	case "nve":
		c.ensemble = NVE
	case "nvt":
		c.ensemble = NVT
	case "nph":
		c.ensemble = NPH
	case "npt":
		c.ensemble = NPT
	default:
		return fmt.Errorf("%w: unknown ensemble %q (only nve, nvt, nph and npt are supported)", ErrInvalid, c.Ensemble)
	}

	switch c.Thermostat {
	case "pile_l":
		c.thermostat = PILELocal
	case "pile_g":
		c.thermostat = PILEGlobal
	case "svr":
		c.thermostat = SVR
	default:
		return fmt.Errorf("%w: unknown thermostat %q", ErrInvalid, c.Thermostat)
	}

	switch c.Barostat {
	case "bzp":
		c.barostat = BZP
	case "mttk":
		c.barostat = MTTK
	default:
		return fmt.Errorf("%w: unknown barostat %q", ErrInvalid, c.Barostat)
	}

	switch c.FMMode {
	case "physical":
		c.fmmode = Physical
	case "normal":
		c.fmmode = Normal
	default:
		return fmt.Errorf("%w: unknown fictitious mass mode %q", ErrInvalid, c.FMMode)
	}

	switch c.TI.Method {
	case "", "msti":
		c.timethod = MSTI
	case "scti":
		c.timethod = SCTI
	default:
		return fmt.Errorf("%w: unknown thermodynamic integration method %q", ErrInvalid, c.TI.Method)
	}

	if c.method == Centroid && c.thermostat == SVR && c.Thermostatted() {
		return fmt.Errorf("%w: cmd decouples the centroid and cannot use the svr thermostat", ErrInvalid)
	}
	if c.NBeads < 1 {
		return fmt.Errorf("%w: nbeads must be >= 1, got %d", ErrInvalid, c.NBeads)
	}
	if c.ProcsPerWorld < 1 {
		return fmt.Errorf("%w: procs_per_world must be >= 1, got %d", ErrInvalid, c.ProcsPerWorld)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalid, c.Dt)
	}
	if c.Temp < 0 {
		return fmt.Errorf("%w: temp must be non-negative, got %g", ErrInvalid, c.Temp)
	}
	if c.FMass <= 0 || c.FMass > 1 {
		return fmt.Errorf("%w: fmass must be in (0, 1], got %g", ErrInvalid, c.FMass)
	}
	if c.Scale < 0 {
		return fmt.Errorf("%w: scale must be non-negative, got %g", ErrInvalid, c.Scale)
	}
	if c.SP < 0 {
		return fmt.Errorf("%w: sp must be non-negative, got %g", ErrInvalid, c.SP)
	}
	if c.Pext < 0 {
		return fmt.Errorf("%w: press must be non-negative, got %g", ErrInvalid, c.Pext)
	}
	if c.TauP <= 0 {
		return fmt.Errorf("%w: taup must be positive, got %g", ErrInvalid, c.TauP)
	}
	if c.TI.Enabled && (c.TI.Lambda < 0 || c.TI.Lambda > 1) {
		return fmt.Errorf("%w: ti lambda must be in [0, 1], got %g", ErrInvalid, c.TI.Lambda)
	}
	return nil
}

// Resolved enum accessors; valid only after Validate has succeeded.

func (c *Config) MethodKind() Method          { return c.method }
func (c *Config) SplittingKind() Splitting    { return c.splitting }
func (c *Config) EnsembleKind() Ensemble      { return c.ensemble }
func (c *Config) ThermostatKind() Thermostat  { return c.thermostat }
func (c *Config) BarostatKind() Barostat      { return c.barostat }
func (c *Config) FicMassKind() FicMassMode    { return c.fmmode }
func (c *Config) TIMethodKind() TIMethod      { return c.timethod }

// Barostatted reports whether the ensemble couples the box to a pressure.
func (c *Config) Barostatted() bool { return c.ensemble == NPH || c.ensemble == NPT }

// Thermostatted reports whether the ensemble runs the O steps.
func (c *Config) Thermostatted() bool { return c.ensemble == NVT || c.ensemble == NPT }
