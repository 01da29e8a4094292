// Package normalmode builds the eigenbasis of the ring polymer's cyclic
// coupling matrix and the per-mode fictitious masses derived from it.
package normalmode

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jchen-md/ringmd/internal/config"
)

// Transform holds, for a ring of P beads, the eigenvalues
// lam[i] = 4 sin^2(i pi / P) and the orthogonal matrix pair mapping
// per-world Cartesian coordinates to normal-mode coordinates and back.
// Mode 0 is the centroid.
type Transform struct {
	P    int
	Lam  []float64
	x2nm *mat.Dense // forward transform U
	nm2x *mat.Dense // inverse transform U^T
}

// New constructs the transform for ring length p >= 1.
func New(p int) *Transform {
	t := &Transform{
		P:    p,
		Lam:  make([]float64, p),
		x2nm: mat.NewDense(p, p, nil),
		nm2x: mat.NewDense(p, p, nil),
	}

	for i := 0; i < p; i++ {
		s := math.Sin(float64(i) * math.Pi / float64(p))
		t.Lam[i] = 4 * s * s
	}

	// Degenerate modes come in cosine/sine pairs at frequency i.
	sq := math.Sqrt(2.0 / float64(p))
	for j := 0; j < p; j++ {
		for i := 1; i <= p/2; i++ {
			t.x2nm.Set(i, j, sq*math.Cos(2*math.Pi*float64(i)*float64(j)/float64(p)))
		}
		for i := p/2 + 1; i < p; i++ {
			t.x2nm.Set(i, j, sq*math.Sin(2*math.Pi*float64(i)*float64(j)/float64(p)))
		}
	}

	// Non-degenerate rows: the centroid, and the alternating mode when P
	// is even.
	inv := 1.0 / math.Sqrt(float64(p))
	for j := 0; j < p; j++ {
		t.x2nm.Set(0, j, inv)
		if p%2 == 0 {
			t.x2nm.Set(p/2, j, inv*math.Pow(-1, float64(j)))
		}
	}

	t.nm2x.CloneFrom(t.x2nm.T())
	return t
}

// Forward returns the Cartesian-to-mode matrix U.
func (t *Transform) Forward() mat.Matrix { return t.x2nm }

// Inverse returns the mode-to-Cartesian matrix U^T.
func (t *Transform) Inverse() mat.Matrix { return t.nm2x }

// ToModes projects the gathered ring view onto mode `world`, writing the
// result into dst. buf holds P flat arrays of identical length, one per
// world, indexed by the caller's local atom ordering.
func (t *Transform) ToModes(buf [][]float64, dst []float64, world int) {
	t.project(t.x2nm.RawRowView(world), buf, dst)
}

// FromModes maps the gathered mode view back to the Cartesian coordinates
// of bead `world`.
func (t *Transform) FromModes(buf [][]float64, dst []float64, world int) {
	t.project(t.nm2x.RawRowView(world), buf, dst)
}

func (t *Transform) project(row []float64, buf [][]float64, dst []float64) {
	for m := range dst {
		acc := 0.0
		for j := 0; j < t.P; j++ {
			acc += buf[j][m] * row[j]
		}
		dst[m] = acc
	}
}

// FictitiousMasses derives the per-type masses governing the free ring
// dynamics of one world. The centroid world keeps the physical masses;
// every other world scales by the mode eigenvalue (in "normal" mode) and
// by the user coefficient fmass.
func (t *Transform) FictitiousMasses(phys []float64, world int, mode config.FicMassMode, fmass float64) []float64 {
	m := append([]float64(nil), phys...)
	if world == 0 {
		return m
	}
	for i := range m {
		if mode == config.Normal {
			m[i] *= t.Lam[world]
		}
		m[i] *= fmass
	}
	return m
}
