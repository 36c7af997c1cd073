/*
 * msd_test.go, part of mdpat.
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

package msd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmera/mdpat"
	"github.com/rmera/mdpat/comm"
	"github.com/rmera/mdpat/decomp"
)

const (
	nframes = 7
	natoms  = 4
	every   = 10 //timesteps between frames
)

//load fills T with a trajectory where the atoms of type 1 move (1, 2, 2) per frame,
//and those of type 2 stay still. Atom types alternate 1, 2, 1, 2.
func load(T *mdpat.Trajectory) error {
	c := T.Comm()
	off, n, err := decomp.Split(nframes, c.Rank(), c.Size())
	if err != nil {
		return err
	}
	data := make([]float64, 0, n*natoms*4)
	for f := off; f < off+n; f++ {
		for a := range natoms {
			typ := float64(1 + a%2)
			v := 1.0
			if typ == 2 {
				v = 0
			}
			x := float64(f) * v
			data = append(data, typ, x+float64(a), 2*x-float64(a), 2*x)
		}
	}
	steps := make([]int, nframes)
	for i := range steps {
		steps[i] = every * i
	}
	return T.Load(data, [3]int{n, natoms, 4}, [3]int{nframes, natoms, 4}, []string{"type", "x", "y", "z"}, steps)
}

func options(budget int64, temp string) *mdpat.Options {
	o := mdpat.DefaultOptions()
	o.Logger(log.New(io.Discard, "", 0))
	o.MemoryBudget(budget)
	o.TempFile(temp)
	return o
}

func TestLinear(Te *testing.T) {
	temp := filepath.Join(Te.TempDir(), "staged.bin")
	tests := []struct {
		typ   int
		cols  []string
		scale float64 //MSD/gap^2
		dims  int
		atoms int
	}{
		{1, nil, 9, 3, 2},
		{0, nil, 4.5, 3, 4},
		{1, []string{"y"}, 4, 1, 2},
		{2, []string{"x", "z"}, 0, 2, 2},
	}
	for _, budget := range []int64{0, 64} {
		for _, np := range []int{1, 2, 3, 5} {
			for _, t := range tests {
				err := comm.Run(np, func(c comm.Comm) error {
					T := mdpat.NewTrajectory(c, options(budget, temp))
					defer T.Close()
					if err := load(T); err != nil {
						return err
					}
					R, err := Compute(T, Params{DT: 0.5, Type: t.typ, MinGap: 10, MaxGap: 40, Columns: t.cols})
					if err != nil {
						return err
					}
					if T.Order() != (mdpat.AxisOrder{mdpat.Atoms, mdpat.Props, mdpat.Frames}) {
						return fmt.Errorf("order %s", T.Order())
					}
					if c.Rank() != comm.Root {
						if R != nil {
							return fmt.Errorf("rank %d got a result", c.Rank())
						}
						return nil
					}
					if R.Atoms != t.atoms || R.Dims != t.dims || len(R.MSD) != 4 {
						return fmt.Errorf("atoms %d dims %d gaps %d", R.Atoms, R.Dims, len(R.MSD))
					}
					for i, g := range R.Gaps {
						if g != i+1 {
							return fmt.Errorf("gaps %v", R.Gaps)
						}
						if want := float64(g*every) * 0.5; R.Time[i] != want {
							return fmt.Errorf("time %v, want %v", R.Time[i], want)
						}
						if want := t.scale * float64(g*g); math.Abs(R.MSD[i]-want) > 1e-9 {
							return fmt.Errorf("gap %d: msd %v, want %v", g, R.MSD[i], want)
						}
					}
					return nil
				})
				if err != nil {
					Te.Errorf("budget %d, %d ranks, type %d, columns %v: %v", budget, np, t.typ, t.cols, err)
				}
			}
		}
	}
}

func TestComputeErrors(Te *testing.T) {
	err := comm.Run(2, func(c comm.Comm) error {
		T := mdpat.NewTrajectory(c, options(0, ""))
		if _, err := Compute(T, Params{MaxGap: 10}); !errors.Is(err, mdpat.ErrNotLoaded) {
			return fmt.Errorf("not loaded: %v", err)
		}
		if err := load(T); err != nil {
			return err
		}
		if _, err := Compute(T, Params{MinGap: 20, MaxGap: 10}); !errors.Is(err, ErrGaps) {
			return fmt.Errorf("gaps: %v", err)
		}
		if _, err := Compute(T, Params{MaxGap: nframes * every}); !errors.Is(err, ErrGaps) {
			return fmt.Errorf("long gap: %v", err)
		}
		if _, err := Compute(T, Params{MaxGap: 10, Columns: []string{"vx"}}); !errors.Is(err, ErrColumns) {
			return fmt.Errorf("columns: %v", err)
		}
		if T.Order() != mdpat.FAP {
			return fmt.Errorf("argument errors should not change the order, got %s", T.Order())
		}
		return nil
	})
	if err != nil {
		Te.Error(err)
	}
	err = comm.Run(3, func(c comm.Comm) error {
		T := mdpat.NewTrajectory(c, options(0, ""))
		if err := load(T); err != nil {
			return err
		}
		_, err := Compute(T, Params{Type: 3, MaxGap: 10})
		return err
	})
	if !errors.Is(err, ErrNoAtoms) {
		Te.Errorf("no atoms: %v", err)
	}
}

func TestOutput(Te *testing.T) {
	R := &Result{
		Time:  []float64{1, 2, 3, 4},
		MSD:   []float64{7, 13, 19, 25},
		Gaps:  []int{1, 2, 3, 4},
		Atoms: 10,
		Dims:  3,
	}
	var b bytes.Buffer
	if err := R.Write(&b); err != nil {
		Te.Fatal(err)
	}
	if want := "1 7\n2 13\n3 19\n4 25\n"; b.String() != want {
		Te.Errorf("got %q", b.String())
	}
	D, b0, err := R.Diffusion()
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(D-1) > 1e-9 || math.Abs(b0-1) > 1e-9 {
		Te.Errorf("D %v intercept %v", D, b0)
	}
	dir := Te.TempDir()
	name := filepath.Join(dir, "msd.dat")
	if err := R.WriteFile(name); err != nil {
		Te.Fatal(err)
	}
	got, err := os.ReadFile(name)
	if err != nil || !strings.HasPrefix(string(got), "1 7\n") {
		Te.Errorf("file: %q %v", got, err)
	}
	png := filepath.Join(dir, "msd.png")
	if err := R.Plot(png, "MSD"); err != nil {
		Te.Fatal(err)
	}
	if fi, err := os.Stat(png); err != nil || fi.Size() == 0 {
		Te.Errorf("plot: %v", err)
	}
	short := &Result{Time: []float64{1}, MSD: []float64{1}, Dims: 3}
	if _, _, err := short.Diffusion(); !errors.Is(err, ErrGaps) {
		Te.Errorf("got %v", err)
	}
}
