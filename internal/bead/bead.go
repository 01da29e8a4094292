// Package bead holds the per-world replica data: the local partition of one
// ring-polymer bead, cross-referenced against the other worlds by atom tag.
package bead

// Vec is one atom's 3-vector (position, velocity, or force).
type Vec [3]float64

// Replica is the local shard of one world's copy of the system. Local
// ordering is private to the owning process; tags are the stable identity
// shared across worlds.
type Replica struct {
	N     int
	Tags  []int64
	Types []int // atom type index, 0-based
	X     []Vec
	V     []Vec
	F     []Vec
	Image [][3]int // periodic image flags, maintained by the host

	// Mass is the physical mass per atom type.
	Mass []float64

	index map[int64]int
}

// NewReplica builds a replica over the given tags and types. Positions,
// velocities and forces start zeroed.
func NewReplica(tags []int64, types []int, mass []float64) *Replica {
	r := &Replica{
		N:     len(tags),
		Tags:  append([]int64(nil), tags...),
		Types: append([]int(nil), types...),
		X:     make([]Vec, len(tags)),
		V:     make([]Vec, len(tags)),
		F:     make([]Vec, len(tags)),
		Image: make([][3]int, len(tags)),
		Mass:  append([]float64(nil), mass...),
		index: make(map[int64]int, len(tags)),
	}
	for i, t := range tags {
		r.index[t] = i
	}
	return r
}

// Lookup resolves an atom tag to its local index, or -1 when the atom is
// not owned by this shard. A miss is not an error: under independent
// spatial decompositions a process does not own every requested atom.
func (r *Replica) Lookup(tag int64) int {
	if i, ok := r.index[tag]; ok {
		return i
	}
	return -1
}

// TotalMass sums the physical masses of the local atoms.
func (r *Replica) TotalMass() float64 {
	m := 0.0
	for i := 0; i < r.N; i++ {
		m += r.Mass[r.Types[i]]
	}
	return m
}

// Flatten copies a vector field into dst as [x0 y0 z0 x1 y1 z1 ...],
// growing dst if needed, and returns it.
func Flatten(src []Vec, dst []float64) []float64 {
	n := 3 * len(src)
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for i, v := range src {
		dst[3*i] = v[0]
		dst[3*i+1] = v[1]
		dst[3*i+2] = v[2]
	}
	return dst
}

// Box is a periodic orthogonal simulation cell centered on the origin.
type Box struct {
	Lx, Ly, Lz float64
}

// Volume returns the cell volume.
func (b *Box) Volume() float64 { return b.Lx * b.Ly * b.Lz }

// Scale multiplies every edge by s.
func (b *Box) Scale(s float64) {
	b.Lx *= s
	b.Ly *= s
	b.Lz *= s
}

// Unmap shifts a wrapped position to its unwrapped image so the ring
// polymer is never split across a periodic boundary.
func (b *Box) Unmap(x *Vec, image [3]int) {
	x[0] += float64(image[0]) * b.Lx
	x[1] += float64(image[1]) * b.Ly
	x[2] += float64(image[2]) * b.Lz
}

// UnmapInv undoes Unmap.
func (b *Box) UnmapInv(x *Vec, image [3]int) {
	x[0] -= float64(image[0]) * b.Lx
	x[1] -= float64(image[1]) * b.Ly
	x[2] -= float64(image[2]) * b.Lz
}
