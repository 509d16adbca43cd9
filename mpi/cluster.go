package mpi

import (
	"fmt"
	"sync"
)

// Cluster is the in-process Transport implementation. It connects Size ranks
// through shared message queues so that a full multi-rank protocol can run
// inside one OS process, one goroutine per rank. Delivery is reliable,
// exactly-once and order-preserving per (source, tag) pair.
type Cluster struct {
	size int

	mu   sync.Mutex
	cond *sync.Cond

	// Per-destination-rank mailboxes of undelivered messages.
	queues [][]*envelope

	// Barrier state: classic generation-counted rendezvous.
	barrierCount int
	barrierGen   int

	// Reduce state: elementwise accumulation across one generation.
	reduceCount  int
	reduceGen    int
	reduceAccum  []float64
	reduceResult []float64
}

type envelope struct {
	source int
	tag    int
	data   []float64
}

// NewCluster creates an in-process cluster of the given size.
func NewCluster(size int) *Cluster {
	if size < 1 {
		panic(fmt.Errorf("mpi: invalid cluster size %d", size))
	}
	c := &Cluster{
		size:   size,
		queues: make([][]*envelope, size),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Comm returns the Transport handle for one rank. Each handle must be driven
// by a single goroutine.
func (c *Cluster) Comm(rank int) *Comm {
	if rank < 0 || rank >= c.size {
		panic(fmt.Errorf("mpi: rank %d out of range [0,%d)", rank, c.size))
	}
	return &Comm{cluster: c, rank: rank}
}

// Comm is one rank's handle onto a Cluster.
type Comm struct {
	cluster *Cluster
	rank    int
}

func (m *Comm) Rank() int { return m.rank }

func (m *Comm) Size() int { return m.cluster.size }

func (m *Comm) Isend(dest, tag int, data []float64) *Request {
	c := m.cluster
	if dest < 0 || dest >= c.size {
		panic(fmt.Errorf("mpi: send to invalid rank %d", dest))
	}
	// Copy so the caller's buffer is immediately reusable after WaitAll.
	msg := &envelope{source: m.rank, tag: tag, data: append([]float64(nil), data...)}
	c.mu.Lock()
	c.queues[dest] = append(c.queues[dest], msg)
	c.cond.Broadcast()
	c.mu.Unlock()
	return &Request{
		kind:   reqSend,
		tag:    tag,
		done:   true,
		status: Status{Source: m.rank, Tag: tag, Count: len(data)},
	}
}

func (m *Comm) Irecv(source, tag int, buf []float64) *Request {
	return &Request{
		kind:   reqRecv,
		source: source,
		tag:    tag,
		buf:    buf,
	}
}

// match attempts to pair one pending receive with a queued message.
// Caller holds the cluster lock.
func (m *Comm) match(req *Request) bool {
	c := m.cluster
	queue := c.queues[m.rank]
	for i, msg := range queue {
		if req.source != AnySource && req.source != msg.source {
			continue
		}
		if req.tag != AnyTag && req.tag != msg.tag {
			continue
		}
		n := copy(req.buf, msg.data)
		if n < len(msg.data) {
			// Count reports the full message length so the caller can
			// detect and fail on a protocol size mismatch.
			n = len(msg.data)
		}
		req.done = true
		req.status = Status{Source: msg.source, Tag: msg.tag, Count: n}
		c.queues[m.rank] = append(queue[:i], queue[i+1:]...)
		return true
	}
	return false
}

func (m *Comm) WaitAny(reqs []*Request) (int, Status) {
	c := m.cluster
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		for i, req := range reqs {
			if req == nil || req.consumed {
				continue
			}
			if req.done || (req.kind == reqRecv && m.match(req)) {
				req.consumed = true
				return i, req.status
			}
		}
		c.cond.Wait()
	}
}

func (m *Comm) Wait(req *Request) Status {
	c := m.cluster
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if req.done || (req.kind == reqRecv && m.match(req)) {
			return req.status
		}
		c.cond.Wait()
	}
}

func (m *Comm) WaitAll(reqs []*Request) {
	for _, req := range reqs {
		if req == nil {
			continue
		}
		m.Wait(req)
	}
}

func (m *Comm) Barrier() {
	c := m.cluster
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.barrierGen
	c.barrierCount++
	if c.barrierCount == c.size {
		c.barrierCount = 0
		c.barrierGen++
		c.cond.Broadcast()
		return
	}
	for gen == c.barrierGen {
		c.cond.Wait()
	}
}

func (m *Comm) Reduce(op Op, send []float64, root int) []float64 {
	c := m.cluster
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reduceCount == 0 {
		c.reduceAccum = append([]float64(nil), send...)
	} else {
		if len(send) != len(c.reduceAccum) {
			panic(fmt.Errorf("mpi: reduce length mismatch: %d != %d",
				len(send), len(c.reduceAccum)))
		}
		for i, v := range send {
			switch op {
			case OpSum:
				c.reduceAccum[i] += v
			case OpMax:
				if v > c.reduceAccum[i] {
					c.reduceAccum[i] = v
				}
			default:
				panic(fmt.Errorf("mpi: invalid reduce op %d", op))
			}
		}
	}

	gen := c.reduceGen
	c.reduceCount++
	if c.reduceCount == c.size {
		c.reduceCount = 0
		c.reduceGen++
		c.reduceResult = c.reduceAccum
		c.reduceAccum = nil
		c.cond.Broadcast()
	} else {
		for gen == c.reduceGen {
			c.cond.Wait()
		}
	}

	if m.rank == root {
		return append([]float64(nil), c.reduceResult...)
	}
	return nil
}
