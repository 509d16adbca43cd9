package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type SimulationParameters struct {
	Title           string `yaml:"Title"`
	EquationSet     string `yaml:"EquationSet"` // One of "advection", "shallowwater", "nonhydro"
	Tracers         int    `yaml:"Tracers"`
	Resolution      int    `yaml:"Resolution"` // Cells along one panel edge
	RefinementRatio int    `yaml:"RefinementRatio"`
	VerticalLevels  int    `yaml:"VerticalLevels"`
	HaloElements    int    `yaml:"HaloElements"`
	PatchesPerPanel int    `yaml:"PatchesPerPanel"` // Decomposition along each panel axis
	Workers         int    `yaml:"Workers"`         // Number of worker processes
	Exchanges       int    `yaml:"Exchanges"`       // Number of halo exchange rounds
	GridFile        string `yaml:"GridFile"`        // Optional grid topology output file
}

func (sp *SimulationParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, sp)
}

func (sp *SimulationParameters) Validate() error {
	if sp.Resolution < 1 {
		return fmt.Errorf("Resolution must be positive, got %d", sp.Resolution)
	}
	if sp.PatchesPerPanel < 1 {
		return fmt.Errorf("PatchesPerPanel must be positive, got %d", sp.PatchesPerPanel)
	}
	if sp.Resolution%sp.PatchesPerPanel != 0 {
		return fmt.Errorf("Resolution %d not divisible by PatchesPerPanel %d",
			sp.Resolution, sp.PatchesPerPanel)
	}
	if sp.HaloElements < 1 {
		return fmt.Errorf("HaloElements must be positive, got %d", sp.HaloElements)
	}
	if sp.Resolution/sp.PatchesPerPanel < sp.HaloElements {
		return fmt.Errorf("patch width %d smaller than halo width %d",
			sp.Resolution/sp.PatchesPerPanel, sp.HaloElements)
	}
	if sp.VerticalLevels < 1 {
		return fmt.Errorf("VerticalLevels must be positive, got %d", sp.VerticalLevels)
	}
	if sp.Workers < 1 {
		return fmt.Errorf("Workers must be positive, got %d", sp.Workers)
	}
	return nil
}

func (sp *SimulationParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	fmt.Printf("[%s]\t\t= EquationSet\n", sp.EquationSet)
	fmt.Printf("[%d]\t\t\t\t= Tracers\n", sp.Tracers)
	fmt.Printf("[%d]\t\t\t\t= Resolution\n", sp.Resolution)
	fmt.Printf("[%d]\t\t\t\t= VerticalLevels\n", sp.VerticalLevels)
	fmt.Printf("[%d]\t\t\t\t= HaloElements\n", sp.HaloElements)
	fmt.Printf("[%d]\t\t\t\t= PatchesPerPanel\n", sp.PatchesPerPanel)
	fmt.Printf("[%d]\t\t\t\t= Workers\n", sp.Workers)
	fmt.Printf("[%d]\t\t\t\t= Exchanges\n", sp.Exchanges)
}
