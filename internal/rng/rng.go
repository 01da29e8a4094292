// Package rng provides the per-process Gaussian streams used by the
// stochastic thermostat and barostat steps. Every process seeds its own
// stream with seed+rank, so a run is reproducible for a fixed seed and
// process layout.
package rng

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian is a deterministic stream of standard normal draws.
type Gaussian struct {
	norm distuv.Normal
}

// New seeds a unit normal stream.
func New(seed uint64) *Gaussian {
	return &Gaussian{norm: distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.NewSource(seed),
	}}
}

// Draw returns the next standard normal variate.
func (g *Gaussian) Draw() float64 { return g.norm.Rand() }
