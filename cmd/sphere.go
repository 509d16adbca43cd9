/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/CliMA/tempestmodel/InputParameters"
	"github.com/CliMA/tempestmodel/grid"
	"github.com/CliMA/tempestmodel/model"
	"github.com/CliMA/tempestmodel/mpi"
)

// SphereCmd represents the sphere command
var SphereCmd = &cobra.Command{
	Use:   "sphere",
	Short: "Build a distributed cubed sphere grid and run halo exchanges over it",
	Long: `
Decomposes the cubed sphere into patches, distributes them across worker
processes, builds panel connectivity and runs halo exchange rounds followed
by consolidation of patch data to the root process,

tempestmodel sphere `,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sphere called")
		sp := processSphereInput(cmd)
		sp.Print()
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}
		if err := RunSphere(sp); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(SphereCmd)
	SphereCmd.Flags().StringP("inputFile", "I", "", "YAML file for simulation parameters like:\n\t- Resolution\n\t- Workers")
	SphereCmd.Flags().IntP("resolution", "r", 16, "cells along each cubed sphere panel edge")
	SphereCmd.Flags().IntP("levels", "l", 4, "vertical levels")
	SphereCmd.Flags().IntP("halo", "m", 1, "halo width in cells")
	SphereCmd.Flags().IntP("patches", "p", 2, "patches per panel along each axis")
	SphereCmd.Flags().IntP("workers", "w", 4, "worker processes")
	SphereCmd.Flags().IntP("exchanges", "x", 1, "halo exchange rounds")
	SphereCmd.Flags().StringP("equationSet", "e", "shallowwater", "equation set: advection, shallowwater or nonhydro")
	SphereCmd.Flags().StringP("gridFile", "F", "", "write the grid topology to this file")
	SphereCmd.Flags().Bool("profile", false, "write a CPU profile of the run")
}

func processSphereInput(cmd *cobra.Command) (sp *InputParameters.SimulationParameters) {
	sp = &InputParameters.SimulationParameters{Title: "Cubed Sphere Exchange"}
	sp.Resolution, _ = cmd.Flags().GetInt("resolution")
	sp.RefinementRatio = 2
	sp.VerticalLevels, _ = cmd.Flags().GetInt("levels")
	sp.HaloElements, _ = cmd.Flags().GetInt("halo")
	sp.PatchesPerPanel, _ = cmd.Flags().GetInt("patches")
	sp.Workers, _ = cmd.Flags().GetInt("workers")
	sp.Exchanges, _ = cmd.Flags().GetInt("exchanges")
	sp.EquationSet, _ = cmd.Flags().GetString("equationSet")
	sp.GridFile, _ = cmd.Flags().GetString("gridFile")

	inputFile, _ := cmd.Flags().GetString("inputFile")
	if len(inputFile) != 0 {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			panic(err)
		}
		if err = sp.Parse(data); err != nil {
			panic(err)
		}
	}
	if err := sp.Validate(); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Cubed Sphere Exchange"
EquationSet: shallowwater
Resolution: 16
VerticalLevels: 4
HaloElements: 1
PatchesPerPanel: 2
Workers: 4
Exchanges: 1
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	return
}

// RunSphere drives one worker process per rank over an in-process cluster.
func RunSphere(sp *InputParameters.SimulationParameters) error {
	cluster := mpi.NewCluster(sp.Workers)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for rank := 0; rank < sp.Workers; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			if err := runSphereWorker(cluster.Comm(rank), sp); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("worker %d: %w", rank, err))
				mu.Unlock()
			}
		}(rank)
	}
	wg.Wait()

	if len(errs) != 0 {
		return errs[0]
	}
	return nil
}

func runSphereWorker(comm *mpi.Comm, sp *InputParameters.SimulationParameters) error {
	eqType, err := model.EquationSetTypeFromString(sp.EquationSet)
	if err != nil {
		return err
	}
	var (
		eqSet = model.NewEquationSet(eqType, sp.Tracers)
		mdl   = model.NewModel(eqSet, sp.HaloElements)
	)

	g, err := grid.NewGrid(mdl, grid.CubedSphereTopology{}, comm,
		sp.Resolution, sp.RefinementRatio, sp.VerticalLevels)
	if err != nil {
		return err
	}
	g.AddUniformPatches(sp.PatchesPerPanel)
	g.DistributePatches()
	g.InitializeConnectivity()

	initializeSphereState(g)

	for round := 0; round < sp.Exchanges; round++ {
		g.Exchange(grid.DataType_State, 0)
	}

	sums := g.Checksum(grid.DataType_State, grid.ChecksumL2)
	if comm.Rank() == 0 {
		for c, s := range sums {
			fmt.Printf("component %d L2 checksum: %g\n", c, s)
		}
	}

	status := grid.NewConsolidationStatus(g, []grid.DataType{grid.DataType_State})
	g.ConsolidateDataToRoot(status)
	if comm.Rank() == 0 {
		for !status.Done() {
			g.ConsolidateDataAtRoot(status)
		}
		fmt.Printf("consolidated %d patches at root\n", g.PatchCount())
	}
	g.CompleteConsolidation(status)
	comm.Barrier()

	if comm.Rank() == 0 && len(sp.GridFile) != 0 {
		if err := g.ToFile(sp.GridFile); err != nil {
			return err
		}
		fmt.Printf("wrote grid topology to %s\n", sp.GridFile)
	}
	return nil
}

// initializeSphereState seeds component zero of every active patch with a
// smooth function of position so exchanged halo values are recognizable.
func initializeSphereState(g *grid.Grid) {
	for _, p := range g.ActivePatches() {
		var (
			box = p.Box()
			d   = p.StateNode(0)
			lon = p.Longitude()
			lat = p.Latitude()
		)
		for k := 0; k < d.NR; k++ {
			for i := box.AInteriorBegin(); i < box.AInteriorEnd(); i++ {
				for j := box.BInteriorBegin(); j < box.BInteriorEnd(); j++ {
					d.Data[d.Index(0, k, i, j)] =
						math.Cos(lat.Data[lat.Index(i, j)]) *
							math.Sin(lon.Data[lon.Index(i, j)])
				}
			}
		}
	}
}
