/*
 * load.go, part of mdpat.
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

package dump

import (
	"fmt"
	"io"
	"log"

	"github.com/rmera/mdpat"
	"github.com/rmera/mdpat/comm"
	"github.com/rmera/mdpat/decomp"
)

//LoadTrajectory reads the timesteps in rng from the dumps named by pattern into T.
//Each rank reads only its own frames, split with decomp.Split, so all the ranks
//must call LoadTrajectory together. sel chooses atoms and columns; if nil, all the
//atoms and all the columns but "id" are read.
func LoadTrajectory(T *mdpat.Trajectory, pattern string, rng StepRange, sel *Selection) error {
	if err := rng.Check(); err != nil {
		return err
	}
	p, err := ParsePattern(pattern)
	if err != nil {
		return err
	}
	if sel == nil {
		sel = NewSelection()
	}
	c := T.Comm()
	off, n, err := decomp.Split(rng.Len(), c.Rank(), c.Size())
	if err != nil {
		return err
	}
	logger := T.Options().Logger()
	var data []float64
	if p.PerStep() {
		data, err = readPerStep(p, rng, off, n, sel, logger)
	} else {
		data, err = readSingle(p.Name(0), rng, off, n, sel, logger)
	}
	if err != nil {
		return c.Abort(err)
	}
	atoms, cols := sel.Atoms(), len(sel.Labels())
	all, err := c.AllgatherInts([]int{n, atoms, cols})
	if err != nil {
		return err
	}
	//comm.Root always has frames, as a range has at least 2 steps.
	for r := range c.Size() {
		rn, ra, rc := all[3*r], all[3*r+1], all[3*r+2]
		if rn > 0 && (ra != all[1] || rc != all[2]) {
			return fmt.Errorf("%w: rank %d has %d atoms and %d columns, rank 0 has %d and %d", ErrInconsistent, r, ra, rc, all[1], all[2])
		}
	}
	labels, err := c.BcastStrings(sel.Labels(), comm.Root)
	if err != nil {
		return err
	}
	atoms, cols = all[1], all[2]
	if data == nil {
		data = []float64{}
	}
	return T.Load(data, [3]int{n, atoms, cols}, [3]int{rng.Len(), atoms, cols}, labels, rng.Steps())
}

//readPerStep reads the frames off to off+n-1 of rng, each from its own file.
func readPerStep(p Pattern, rng StepRange, off, n int, sel *Selection, logger *log.Logger) ([]float64, error) {
	var data []float64
	for i := off; i < off+n; i++ {
		step := rng.At(i)
		name := p.Name(step)
		R, err := Open(name)
		if err != nil {
			return nil, err
		}
		F, err := R.Next()
		R.Close()
		if err == io.EOF {
			return nil, newError(MissingStep, name, "readPerStep", fmt.Errorf("empty file"))
		}
		if err != nil {
			return nil, err
		}
		if F.Timestep != step {
			logger.Printf("%s holds timestep %d, will be used as timestep %d", name, F.Timestep, step)
		}
		if data == nil {
			first, err := sel.Apply(F, nil, name)
			if err != nil {
				return nil, err
			}
			data = make([]float64, n*sel.Width())
			copy(data, first)
			continue
		}
		w := sel.Width()
		k := i - off
		if _, err := sel.Apply(F, data[k*w:(k+1)*w], name); err != nil {
			return nil, err
		}
	}
	return data, nil
}

//readSingle reads the frames off to off+n-1 of rng from the file name, which holds
//many timesteps. Frames of timesteps not in rng, or in rng but not for this rank, are skipped.
func readSingle(name string, rng StepRange, off, n int, sel *Selection, logger *log.Logger) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	R, err := Open(name)
	if err != nil {
		return nil, err
	}
	defer R.Close()
	mine := func(ts int) bool {
		i := rng.Index(ts)
		return i >= off && i < off+n
	}
	var data []float64
	seen := make([]bool, n)
	found := 0
	for found < n {
		F, err := R.NextIf(mine)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !mine(F.Timestep) {
			continue
		}
		k := rng.Index(F.Timestep) - off
		if seen[k] {
			logger.Printf("%s: timestep %d repeated, only the first one is used", name, F.Timestep)
			continue
		}
		if data == nil {
			first, err := sel.Apply(F, nil, name)
			if err != nil {
				return nil, err
			}
			data = make([]float64, n*sel.Width())
			copy(data[k*sel.Width():], first)
		} else {
			w := sel.Width()
			if _, err := sel.Apply(F, data[k*w:(k+1)*w], name); err != nil {
				return nil, err
			}
		}
		seen[k] = true
		found++
	}
	if found < n {
		for k, s := range seen {
			if !s {
				return nil, newError(MissingStep, name, "readSingle", fmt.Errorf("timestep %d", rng.At(off+k)))
			}
		}
	}
	return data, nil
}
