// Package ring connects the P replica groups ("worlds") of a ring-polymer
// run. It provides the process topology, blocking point-to-point exchange,
// the collective operations the integrator relies on, and the all-to-all
// gather that assembles the full ring view of a per-atom quantity.
//
// The transport here runs every process as a goroutine inside one OS
// process and moves messages over channels. The choreography is the
// contract: the same calls, in the same order, on every process, exactly
// as a message-passing host would schedule them. Nothing is asynchronous;
// a stalled collective blocks forever.
package ring

import (
	"sync"
)

type message struct {
	count int
	tags  []int64
	vals  []float64
}

// Universe is a fixed topology of NWorlds x ProcsPerWorld processes.
// Universe ranks are contiguous per world: me = iworld*ProcsPerWorld + rank.
type Universe struct {
	NWorlds       int
	ProcsPerWorld int

	links [][]chan message // links[src][dst]
	world []*comm
	all   *comm
}

// NewUniverse builds the topology and its communicators.
func NewUniverse(nworlds, procsPerWorld int) *Universe {
	n := nworlds * procsPerWorld
	u := &Universe{
		NWorlds:       nworlds,
		ProcsPerWorld: procsPerWorld,
		links:         make([][]chan message, n),
		world:         make([]*comm, nworlds),
		all:           newComm(n),
	}
	for i := range u.links {
		u.links[i] = make([]chan message, n)
		for j := range u.links[i] {
			u.links[i][j] = make(chan message, 2)
		}
	}
	for w := range u.world {
		u.world[w] = newComm(procsPerWorld)
	}
	return u
}

// Size is the total process count.
func (u *Universe) Size() int { return u.NWorlds * u.ProcsPerWorld }

// Proc returns the handle one goroutine owns for the given world and
// world-local rank.
func (u *Universe) Proc(iworld, rank int) *Proc {
	return &Proc{u: u, IWorld: iworld, Rank: rank, Me: iworld*u.ProcsPerWorld + rank}
}

// Proc identifies one process of the universe and carries its transport.
type Proc struct {
	u      *Universe
	IWorld int // which world (bead) this process belongs to
	Rank   int // rank within the world
	Me     int // universe rank
}

// WorldComm scopes collectives to the processes of this world.
func (p *Proc) WorldComm() Comm { return p.u.world[p.IWorld] }

// UniverseComm scopes collectives to every process of every world.
func (p *Proc) UniverseComm() Comm { return p.u.all }

// WorldRoot reports whether this process is rank 0 of its world.
func (p *Proc) WorldRoot() bool { return p.Rank == 0 }

// UniverseRoot reports whether this process is universe rank 0, the
// single writer of ring-wide shared scalars.
func (p *Proc) UniverseRoot() bool { return p.Me == 0 }

// NWorlds is the ring length P.
func (p *Proc) NWorlds() int { return p.u.NWorlds }

// ProcsPerWorld is the spatial-decomposition width S.
func (p *Proc) ProcsPerWorld() int { return p.u.ProcsPerWorld }

// sendRecv posts one message to dst and blocks for one message from src.
// Payload slices are copied at the send side so the receiver never aliases
// sender-owned buffers.
func (p *Proc) sendRecv(dst, src int, out message) message {
	if out.tags != nil {
		out.tags = append([]int64(nil), out.tags...)
	}
	if out.vals != nil {
		out.vals = append([]float64(nil), out.vals...)
	}
	p.u.links[p.Me][dst] <- out
	return <-p.u.links[src][p.Me]
}

// Comm is one communicator scope. All operations are collective: every
// member must make the identical call in the identical order, and each
// call blocks until the whole scope has arrived.
type Comm interface {
	Size() int
	Barrier()
	// AllreduceSum returns the sum of x over the scope, on every member.
	AllreduceSum(x float64) float64
	// Bcast overwrites vals on every member with the root's vals. Exactly
	// one caller per operation passes root=true.
	Bcast(root bool, vals []float64)
}

// comm fuses a cyclic barrier with a reduction slot and a generation-
// indexed broadcast slot. The double buffers exist because a fast member
// may enter operation g+1 while a slow member is still copying out of
// operation g.
type comm struct {
	n       int
	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     uint64
	acc     float64
	red     [2]float64
	slot    [2][]float64
}

func newComm(n int) *comm {
	c := &comm{n: n}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *comm) Size() int { return c.n }

// arrive runs the barrier body. Called and returned with c.mu held.
func (c *comm) arrive() {
	g := c.gen
	c.arrived++
	if c.arrived == c.n {
		c.arrived = 0
		c.gen++
		c.cond.Broadcast()
		return
	}
	for c.gen == g {
		c.cond.Wait()
	}
}

func (c *comm) Barrier() {
	c.mu.Lock()
	c.arrive()
	c.mu.Unlock()
}

func (c *comm) AllreduceSum(x float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.gen
	c.acc += x
	c.arrived++
	if c.arrived == c.n {
		c.red[g&1] = c.acc
		c.acc = 0
		c.arrived = 0
		c.gen++
		c.cond.Broadcast()
		return c.red[g&1]
	}
	for c.gen == g {
		c.cond.Wait()
	}
	return c.red[g&1]
}

func (c *comm) Bcast(root bool, vals []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.gen
	if root {
		s := c.slot[g&1]
		if cap(s) < len(vals) {
			s = make([]float64, len(vals))
		}
		c.slot[g&1] = s[:len(vals)]
		copy(c.slot[g&1], vals)
	}
	c.arrive()
	copy(vals, c.slot[g&1][:len(vals)])
}
