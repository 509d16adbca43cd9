package grid

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubedsphere.grid")

	src := newSerialGrid(t, 8, 1, 2)
	src.AddUniformPatches(2)
	assert.NoError(t, src.ToFile(path))

	dst := newSerialGrid(t, 8, 1, 2)
	assert.NoError(t, dst.FromFile(path))

	assert.Equal(t, src.PatchCount(), dst.PatchCount())
	assert.Equal(t, src.BaseResolution(0), dst.BaseResolution(0))
	for ix := 0; ix < src.PatchCount(); ix++ {
		var (
			want = src.Patch(ix).Box()
			got  = dst.Patch(ix).Box()
		)
		assert.Equal(t, want.Panel(), got.Panel())
		assert.Equal(t, want.RefinementLevel(), got.RefinementLevel())
		assert.Equal(t, want.HaloElements(), got.HaloElements())
		assert.Equal(t, want.AGlobalInteriorBegin(), got.AGlobalInteriorBegin())
		assert.Equal(t, want.AGlobalInteriorEnd(), got.AGlobalInteriorEnd())
		assert.Equal(t, want.BGlobalInteriorBegin(), got.BGlobalInteriorBegin())
		assert.Equal(t, want.BGlobalInteriorEnd(), got.BGlobalInteriorEnd())
		assert.Equal(t, want.ANodes(), got.ANodes())
		assert.Equal(t, want.BNodes(), got.BNodes())
		assert.Equal(t, want.AEdges(), got.AEdges())
		assert.Equal(t, want.BEdges(), got.BEdges())
	}

	// The loaded roster supports the full exchange machinery.
	dst.DistributePatches()
	dst.InitializeConnectivity()
	seedState(dst)
	dst.Exchange(DataType_State, 0)
	verifyHalos(t, dst, 8)
}

func TestGridFile_Validation(t *testing.T) {
	dir := t.TempDir()

	{ // Test loading over an existing roster is rejected
		path := filepath.Join(dir, "occupied.grid")
		g := newSerialGrid(t, 4, 1, 2)
		g.AddDefaultPatches()
		assert.NoError(t, g.ToFile(path))
		assert.IsType(t, &StateError{}, g.FromFile(path))
	}
	{ // Test a truncated file fails with a read error
		path := filepath.Join(dir, "truncated.grid")
		assert.NoError(t, os.WriteFile(path, []byte{0x01, 0x02}, 0644))
		g := newSerialGrid(t, 4, 1, 2)
		assert.Error(t, g.FromFile(path))
	}
	{ // Test an anisotropic header is rejected
		path := filepath.Join(dir, "anisotropic.grid")
		writeGridHeader(t, path, []int32{0, 4, 8, 2}, nil)
		g := newSerialGrid(t, 4, 1, 2)
		assert.IsType(t, &ConfigurationError{}, g.FromFile(path))
	}
	{ // Test a negative patch count is rejected
		path := filepath.Join(dir, "negcount.grid")
		writeGridHeader(t, path, []int32{0, 4, 4, 2}, []int32{-1})
		g := newSerialGrid(t, 4, 1, 2)
		assert.IsType(t, &ConfigurationError{}, g.FromFile(path))
	}
	{ // Test an inverted patch extent is rejected
		path := filepath.Join(dir, "extent.grid")
		writeGridHeader(t, path, []int32{0, 4, 4, 2},
			[]int32{1, 0, 0, 1, 4, 4, 4, 0})
		g := newSerialGrid(t, 4, 1, 2)
		assert.IsType(t, &ConfigurationError{}, g.FromFile(path))
	}
}

func writeGridHeader(t *testing.T, path string, header []int32, rest []int32) {
	t.Helper()
	f, err := os.Create(path)
	assert.NoError(t, err)
	defer f.Close()
	assert.NoError(t, binary.Write(f, binary.LittleEndian, header))
	if rest != nil {
		assert.NoError(t, binary.Write(f, binary.LittleEndian, rest))
	}
}
