package ring

import "github.com/jchen-md/ringmd/internal/bead"

// growPad is how much slack every buffer keeps beyond the current local
// atom count, so host-driven growth does not reallocate every step.
const growPad = 200

// Exchange gathers one per-atom quantity from every world into every
// world. Because the worlds are decomposed across disjoint, possibly
// differently partitioned process sets, no process holds an atom's full
// ring history; the gather is a data-parallel transpose driven by atom
// tags.
//
// For each of the P-1 partner worlds the handshake is, in order: exchange
// expected counts, exchange the requested tag lists, resolve tags locally,
// exchange found counts, then exchange the found tags and values. A
// requested tag the resolver does not own is silently skipped; the found-
// count exchange is what keeps both sides consistent.
type Exchange struct {
	p *Proc

	planSend  []int
	planRecv  []int
	modeIndex []int

	// Ring buffers: one flat 3-vector array per world, indexed by this
	// process's local atom ordering. Capacity only ever grows.
	bufBeads [][]float64
	maxLocal int

	tagSend []int64
	bufSend []float64
	maxSend int

	flat []float64
}

// NewExchange builds the communication plan for this process. The plan
// pairs every process with one peer process of every other world per
// round, rotating the within-world rank so rounds do not collide.
func NewExchange(p *Proc, nlocal int) *Exchange {
	np := p.u.NWorlds
	s := p.u.ProcsPerWorld

	e := &Exchange{
		p:         p,
		planSend:  make([]int, (np-1)*s),
		planRecv:  make([]int, (np-1)*s),
		modeIndex: make([]int, (np-1)*s),
	}
	for i := 0; i < np-1; i++ {
		iSend := (p.IWorld + i + 1) % np
		iRecv := (p.IWorld - i - 1 + np) % np
		for j := 0; j < s; j++ {
			e.planSend[i*s+j] = iSend*s + (p.Rank+j)%s
			e.planRecv[i*s+j] = iRecv*s + (p.Rank-j+s)%s
			e.modeIndex[i*s+j] = iSend
		}
	}

	e.maxLocal = nlocal + growPad
	e.bufBeads = make([][]float64, np)
	for i := range e.bufBeads {
		e.bufBeads[i] = make([]float64, 3*e.maxLocal)
	}

	e.maxSend = nlocal + growPad
	e.tagSend = make([]int64, e.maxSend)
	e.bufSend = make([]float64, 3*e.maxSend)
	return e
}

// Gather assembles the ring view of one quantity. tags and local describe
// this process's shard (local is flat, 3 values per atom); lookup resolves
// a tag to a local index or -1. The returned buffers are owned by the
// Exchange and valid until the next Gather; column w holds world w's
// values in this process's local ordering.
func (e *Exchange) Gather(tags []int64, lookup func(int64) int, local []float64) [][]float64 {
	nlocal := len(tags)
	if nlocal > e.maxLocal {
		e.maxLocal = nlocal + growPad
		for i := range e.bufBeads {
			grown := make([]float64, 3*e.maxLocal)
			copy(grown, e.bufBeads[i])
			e.bufBeads[i] = grown
		}
	}

	copy(e.bufBeads[e.p.IWorld], local[:3*nlocal])

	for iplan := range e.planSend {
		dst, src := e.planSend[iplan], e.planRecv[iplan]

		// How many tags will the requester on the other side ask about.
		in := e.p.sendRecv(dst, src, message{count: nlocal})
		nsearch := in.count

		if nsearch > e.maxSend {
			e.maxSend = nsearch + growPad
			e.tagSend = make([]int64, e.maxSend)
			e.bufSend = make([]float64, 3*e.maxSend)
		}

		// The tags each side needs located.
		in = e.p.sendRecv(dst, src, message{tags: tags})
		tagSearch := in.tags[:nsearch]

		// Resolve against the local shard; unowned tags are dropped.
		nsend := 0
		for _, t := range tagSearch {
			idx := lookup(t)
			if idx < 0 || idx >= nlocal {
				continue
			}
			e.tagSend[nsend] = t
			copy(e.bufSend[3*nsend:3*nsend+3], local[3*idx:3*idx+3])
			nsend++
		}

		// Replies flow back against the request direction.
		in = e.p.sendRecv(src, dst, message{count: nsend})
		nrecv := in.count

		in = e.p.sendRecv(src, dst, message{
			tags: e.tagSend[:nsend],
			vals: e.bufSend[:3*nsend],
		})

		col := e.bufBeads[e.modeIndex[iplan]]
		for i := 0; i < nrecv; i++ {
			idx := lookup(in.tags[i])
			copy(col[3*idx:3*idx+3], in.vals[3*i:3*i+3])
		}
	}

	return e.bufBeads
}

// GatherVecs is Gather for a replica's vector field, flattening through a
// scratch buffer the Exchange reuses.
func (e *Exchange) GatherVecs(r *bead.Replica, field []bead.Vec) [][]float64 {
	e.flat = bead.Flatten(field, e.flat)
	return e.Gather(r.Tags, r.Lookup, e.flat)
}
