/*
 * msd.go, part of mdpat.
 *
 * Copyright 2024 Raul Mera <rauldotmeraatusachdotcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package msd computes the mean squared displacement of the atoms of a distributed
//trajectory, and the diffusion coefficient that follows from it.
package msd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rmera/mdpat"
	"github.com/rmera/mdpat/comm"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrGaps    = errors.New("msd: invalid gaps")
	ErrColumns = errors.New("msd: invalid coordinate columns")
	ErrNoAtoms = errors.New("msd: no atoms selected")
)

//Params sets up an MSD calculation.
type Params struct {
	DT     float64 //time per timestep.
	Type   int     //if > 0, only atoms with this value in the "type" column are used.
	MinGap int     //smallest time gap, in timesteps.
	MaxGap int     //largest time gap, in timesteps.

	//Labels of the coordinate columns. If empty, all the columns but "type" are used.
	Columns []string
}

//Result holds the MSD for each time gap.
type Result struct {
	Time  []float64 //gap in time units, gap*dumpstep*DT.
	MSD   []float64
	Gaps  []int //gaps in frames.
	Atoms int   //number of atoms averaged.
	Dims  int   //number of coordinates per atom.
}

//Compute calculates the MSD of the atoms in T. T is left in the (A, P, F) order,
//so each rank holds whole time series for its atoms. The squared displacements
//are added over the local atoms and then summed at comm.Root, where they are averaged.
//All the ranks must call Compute together. Only comm.Root gets a Result, the others get nil.
//Gaps are given in timesteps, and divided by the spacing between the frames of T.
func Compute(T *mdpat.Trajectory, p Params) (*Result, error) {
	if !T.Loaded() {
		return nil, mdpat.ErrNotLoaded
	}
	step := dumpStep(T.Steps())
	g0, g1 := p.MinGap/step, p.MaxGap/step
	frames := T.Global()[T.Order().Index(mdpat.Frames)]
	if g0 < 0 || g1 < g0 || g1 >= frames {
		return nil, fmt.Errorf("%w: %d to %d timesteps, %d frames every %d timesteps", ErrGaps, p.MinGap, p.MaxGap, frames, step)
	}
	cols, typ, err := columns(T, p)
	if err != nil {
		return nil, err
	}
	if err := T.SetAxisOrder(mdpat.AxisOrder{mdpat.Atoms, mdpat.Props, mdpat.Frames}); err != nil {
		return nil, err
	}
	local := T.Local()
	data := T.Data()
	np, nf := local[1], local[2]
	ngaps := g1 - g0 + 1
	//the last element is the number of atoms used.
	sums := make([]float64, ngaps+1)
	diff := make([]float64, nf)
	for a := range local[0] {
		atom := data[a*np*nf : (a+1)*np*nf]
		if typ >= 0 && int(atom[typ*nf]+0.5) != p.Type {
			continue
		}
		sums[ngaps]++
		for _, c := range cols {
			series := atom[c*nf : (c+1)*nf]
			for g := g0; g <= g1; g++ {
				d := diff[:nf-g]
				floats.SubTo(d, series[g:], series[:nf-g])
				sums[g-g0] += floats.Dot(d, d)
			}
		}
	}
	c := T.Comm()
	if err := c.ReduceSum(sums, comm.Root); err != nil {
		return nil, err
	}
	if c.Rank() != comm.Root {
		return nil, nil
	}
	natoms := int(sums[ngaps])
	if natoms == 0 {
		return nil, fmt.Errorf("%w: type %d", ErrNoAtoms, p.Type)
	}
	R := &Result{
		Time:  make([]float64, ngaps),
		MSD:   sums[:ngaps],
		Gaps:  make([]int, ngaps),
		Atoms: natoms,
		Dims:  len(cols),
	}
	for g := g0; g <= g1; g++ {
		i := g - g0
		R.Gaps[i] = g
		R.Time[i] = float64(g*step) * p.DT
		R.MSD[i] /= float64(natoms * (nf - g))
	}
	return R, nil
}

//dumpStep returns the number of timesteps between frames.
func dumpStep(steps []int) int {
	if len(steps) < 2 || steps[1] <= steps[0] {
		return 1
	}
	return steps[1] - steps[0]
}

//columns returns the indexes of the coordinate columns of T and of the type
//column, which is -1 if no type selection is needed.
func columns(T *mdpat.Trajectory, p Params) ([]int, int, error) {
	labels := T.Columns()
	typ := -1
	if p.Type > 0 {
		if typ = slices.Index(labels, "type"); typ < 0 {
			return nil, -1, fmt.Errorf("%w: no type column to select type %d", ErrColumns, p.Type)
		}
	}
	var cols []int
	if len(p.Columns) == 0 {
		for i, l := range labels {
			if l != "type" {
				cols = append(cols, i)
			}
		}
	}
	for _, l := range p.Columns {
		i := slices.Index(labels, l)
		if i < 0 {
			return nil, -1, fmt.Errorf("%w: %q not in %v", ErrColumns, l, labels)
		}
		cols = append(cols, i)
	}
	if len(cols) == 0 {
		return nil, -1, fmt.Errorf("%w: none in %v", ErrColumns, labels)
	}
	return cols, typ, nil
}
