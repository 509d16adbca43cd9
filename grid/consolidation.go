package grid

import (
	"fmt"

	"github.com/CliMA/tempestmodel/mpi"
)

// ConsolidationTag addresses one (patch, data kind) message in a
// consolidation to the root process.
func ConsolidationTag(patchIx int, t DataType) int {
	return patchIx*int(DataType_Count) + int(t)
}

// ParseConsolidationTag inverts ConsolidationTag, rejecting tags outside
// the roster.
func ParseConsolidationTag(tag, nPatches int) (int, DataType, error) {
	if tag < 0 || tag >= nPatches*int(DataType_Count) {
		return 0, DataType_None, &ConfigurationError{Msg: fmt.Sprintf(
			"invalid consolidation tag %d", tag)}
	}
	return tag / int(DataType_Count), DataType(tag % int(DataType_Count)), nil
}

// ConsolidationStatus tracks an in-progress consolidation: which data kinds
// are being collected and which (patch, kind) messages have arrived at the
// root. Every process constructs one; only the root updates the ledger.
type ConsolidationStatus struct {
	kinds     []DataType
	received  [][]bool
	remaining int

	sendRequests []*mpi.Request
}

func NewConsolidationStatus(g *Grid, kinds []DataType) *ConsolidationStatus {
	nPatches := g.PatchCount()
	s := &ConsolidationStatus{
		kinds:     kinds,
		received:  make([][]bool, len(kinds)),
		remaining: nPatches * len(kinds),
	}
	for i := range s.received {
		s.received[i] = make([]bool, nPatches)
	}
	return s
}

// Contains reports whether the given data kind participates in this
// consolidation.
func (s *ConsolidationStatus) Contains(t DataType) bool {
	return s.kindIndex(t) >= 0
}

func (s *ConsolidationStatus) kindIndex(t DataType) int {
	for i, k := range s.kinds {
		if k == t {
			return i
		}
	}
	return -1
}

// Done reports whether every expected message has arrived.
func (s *ConsolidationStatus) Done() bool { return s.remaining == 0 }

func (s *ConsolidationStatus) setReceived(patchIx int, t DataType) {
	ki := s.kindIndex(t)
	if ki < 0 {
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"data kind %s not part of consolidation", t)})
	}
	if s.received[ki][patchIx] {
		panic(&StateError{Msg: fmt.Sprintf(
			"duplicate consolidation message for patch %d kind %s", patchIx, t)})
	}
	s.received[ki][patchIx] = true
	s.remaining--
}

// consolidationPayload selects the storage slice sent to the root for one
// data kind. Staggered state components are interpolated to nodes before
// consolidation, so only node storage travels.
func (p *GridPatch) consolidationPayload(t DataType) []float64 {
	p.checkData()
	switch t {
	case DataType_State:
		return p.stateNode[0].Data
	case DataType_Tracers:
		return p.tracers[0].Data
	case DataType_Topography:
		return p.topography.Data
	case DataType_RayleighStrength:
		return p.rayleighNode.Data
	}
	panic(&ConfigurationError{Msg: fmt.Sprintf(
		"invalid data type for consolidation: %s", t)})
}

// ConsolidateDataToRoot ships every active patch's participating data kinds
// to the root process. The sends are asynchronous; they complete as the
// root drains them through ConsolidateDataAtRoot.
func (g *Grid) ConsolidateDataToRoot(status *ConsolidationStatus) {
	for _, p := range g.activePatches {
		for _, t := range status.kinds {
			status.sendRequests = append(status.sendRequests,
				g.comm.Isend(0, ConsolidationTag(p.Index(), t),
					p.consolidationPayload(t)))
		}
	}
}

// ConsolidateDataAtRoot receives the next consolidation message at the root
// and identifies its source patch and data kind. The returned slice aliases
// an internal buffer valid until the next call.
func (g *Grid) ConsolidateDataAtRoot(status *ConsolidationStatus) (int, DataType, []float64) {
	if g.comm.Rank() != 0 {
		panic(&StateError{Msg: "consolidation receive outside root process"})
	}
	if status.Done() {
		panic(&StateError{Msg: "consolidation already complete"})
	}

	buf := make([]float64, g.GetMaximumDegreesOfFreedom())
	req := g.comm.Irecv(mpi.AnySource, mpi.AnyTag, buf)
	st := g.comm.Wait(req)

	patchIx, t, err := ParseConsolidationTag(st.Tag, g.PatchCount())
	if err != nil {
		panic(err)
	}

	expected := g.patches[patchIx].GetTotalDegreesOfFreedom(t, DataLocation_Node)
	if st.Count != expected {
		panic(&SizeMismatchError{
			Context:  fmt.Sprintf("consolidation of patch %d kind %s", patchIx, t),
			Expected: expected,
			Got:      st.Count,
		})
	}

	status.setReceived(patchIx, t)
	return patchIx, t, buf[:st.Count]
}

// CompleteConsolidation drains this process's outstanding consolidation
// sends.
func (g *Grid) CompleteConsolidation(status *ConsolidationStatus) {
	g.comm.WaitAll(status.sendRequests)
	status.sendRequests = status.sendRequests[:0]
}
