// Package mpi provides an MPI-like message passing interface for the
// distributed grid core. It follows the familiar two-sided asynchronous
// model: nonblocking tagged sends and receives with wildcard source
// matching, wait-any/wait-all completion, barriers and reductions.
//
// Programs hold a Transport per process rank. The package ships with an
// in-process implementation (Cluster) built on goroutines, which is used by
// tests and single-machine runs; a network- or cgo-backed implementation can
// be substituted without touching the grid code.
package mpi

import "fmt"

const (
	// AnySource matches a message from any rank.
	AnySource = -1
	// AnyTag matches a message with any tag.
	AnyTag = -1
)

// Op is a reduction operation applied across all ranks.
type Op uint8

const (
	OpSum Op = iota
	OpMax
)

// Status describes a completed receive.
type Status struct {
	Source int
	Tag    int
	Count  int // number of float64 values delivered
}

// Transport is the communication capability required by the grid core.
// All calls are made from the single goroutine owning the rank.
type Transport interface {
	Rank() int
	Size() int

	// Isend posts a nonblocking send of data to the destination rank with
	// the given tag. The returned request completes once data has been
	// handed to the transport; data may be reused after WaitAll.
	Isend(dest, tag int, data []float64) *Request

	// Irecv posts a nonblocking receive into buf, matching messages from
	// source (or AnySource) with tag (or AnyTag). buf must be large enough
	// for any matching message.
	Irecv(source, tag int, buf []float64) *Request

	// WaitAny blocks until one of the requests completes and returns its
	// index along with the completion status. Completed requests are
	// skipped on subsequent calls once marked consumed by the caller.
	WaitAny(reqs []*Request) (int, Status)

	// Wait blocks until the request completes.
	Wait(req *Request) Status

	// WaitAll blocks until every request completes.
	WaitAll(reqs []*Request)

	// Barrier blocks until all ranks have entered the barrier.
	Barrier()

	// Reduce combines the send slice elementwise across all ranks using op.
	// The result is returned at root; other ranks receive nil.
	Reduce(op Op, send []float64, root int) []float64
}

type reqKind uint8

const (
	reqSend reqKind = iota
	reqRecv
)

// Request tracks one outstanding nonblocking operation.
type Request struct {
	kind     reqKind
	source   int // requested source (receives)
	tag      int // requested tag
	buf      []float64
	done     bool
	consumed bool
	status   Status
}

// Done reports whether the operation has completed.
func (r *Request) Done() bool { return r.done }

// GetStatus returns the completion status. It panics if the request has not
// completed, which indicates a caller sequencing bug.
func (r *Request) GetStatus() Status {
	if !r.done {
		panic(fmt.Errorf("mpi: status requested on incomplete request"))
	}
	return r.status
}
