package grid

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// Grid topology files carry the grid header, one descriptor per patch and
// the four coordinate arrays of each patch box, in little-endian binary:
//
//	grid_info   4 x int32: grid stamp, base resolution (alpha, beta),
//	            refinement ratio
//	patch_count int32
//	patch_info  7 x int32 per patch: panel, refinement level, halo width,
//	            alpha begin/end, beta begin/end (global interior)
//	            followed by alpha/beta node and edge coordinate arrays
//
// Coordinate array lengths are derived from the descriptor, so the arrays
// carry no length prefix.

func patchCoordLengths(aBegin, aEnd, bBegin, bEnd, halo int) (na, nb int) {
	na = aEnd - aBegin + 2*halo
	nb = bEnd - bBegin + 2*halo
	return na, nb
}

// ToFile writes the grid topology, excluding field data, to a file.
func (g *Grid) ToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing grid file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	header := []int32{
		int32(g.gridStamp),
		int32(g.baseResolution),
		int32(g.baseResolution),
		int32(g.refinementRatio),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing grid file: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(g.patches))); err != nil {
		return fmt.Errorf("writing grid file: %w", err)
	}

	for _, p := range g.patches {
		box := p.Box()
		descriptor := []int32{
			int32(box.Panel()),
			int32(box.RefinementLevel()),
			int32(box.HaloElements()),
			int32(box.AGlobalInteriorBegin()),
			int32(box.AGlobalInteriorEnd()),
			int32(box.BGlobalInteriorBegin()),
			int32(box.BGlobalInteriorEnd()),
		}
		if err := binary.Write(w, binary.LittleEndian, descriptor); err != nil {
			return fmt.Errorf("writing grid file: %w", err)
		}
		for _, coords := range [][]float64{
			box.ANodes(), box.BNodes(), box.AEdges(), box.BEdges(),
		} {
			if err := binary.Write(w, binary.LittleEndian, coords); err != nil {
				return fmt.Errorf("writing grid file: %w", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing grid file: %w", err)
	}
	return nil
}

// FromFile populates an empty grid's patch roster from a topology file.
// The loaded patches are stubs; call DistributePatches to activate them.
func (g *Grid) FromFile(path string) error {
	if len(g.patches) != 0 {
		return &StateError{Msg: "trying to load over non-empty grid"}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading grid file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	header := make([]int32, 4)
	if err := binary.Read(r, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("reading grid file: %w", err)
	}
	if header[1] != header[2] {
		return &ConfigurationError{Msg: fmt.Sprintf(
			"grid file has anisotropic base resolution %dx%d", header[1], header[2])}
	}
	if header[1] < 1 || header[3] < 1 {
		return &ConfigurationError{Msg: "grid file has invalid grid header"}
	}
	g.gridStamp = int(header[0])
	g.baseResolution = int(header[1])
	g.refinementRatio = int(header[3])

	var nPatches int32
	if err := binary.Read(r, binary.LittleEndian, &nPatches); err != nil {
		return fmt.Errorf("reading grid file: %w", err)
	}
	if nPatches < 0 {
		return &ConfigurationError{Msg: "grid file has negative patch count"}
	}

	for ix := int32(0); ix < nPatches; ix++ {
		descriptor := make([]int32, 7)
		if err := binary.Read(r, binary.LittleEndian, descriptor); err != nil {
			return fmt.Errorf("reading grid file: patch %d: %w", ix, err)
		}

		var (
			panel = int(descriptor[0])
			level = int(descriptor[1])
			halo  = int(descriptor[2])
			aB    = int(descriptor[3])
			aE    = int(descriptor[4])
			bB    = int(descriptor[5])
			bE    = int(descriptor[6])
		)
		if halo < 0 || aE <= aB || bE <= bB {
			return &ConfigurationError{Msg: fmt.Sprintf(
				"grid file has invalid descriptor for patch %d", ix)}
		}

		na, nb := patchCoordLengths(aB, aE, bB, bE, halo)
		var (
			aNodes = make([]float64, na)
			bNodes = make([]float64, nb)
			aEdges = make([]float64, na+1)
			bEdges = make([]float64, nb+1)
		)
		for _, coords := range [][]float64{aNodes, bNodes, aEdges, bEdges} {
			if err := binary.Read(r, binary.LittleEndian, coords); err != nil {
				return fmt.Errorf("reading grid file: patch %d: %w", ix, err)
			}
		}

		g.AddPatch(NewPatchBox(
			panel, level, halo, aB, aE, bB, bE,
			aNodes, bNodes, aEdges, bEdges))
	}

	return nil
}
