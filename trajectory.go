/*
 * trajectory.go, part of mdpat.
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

package mdpat

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rmera/mdpat/comm"
	"github.com/rmera/mdpat/decomp"
	"github.com/rmera/mdpat/redist"
	"gonum.org/v1/gonum/mat"
)

//Trajectory is one rank's part of a trajectory split among the ranks of a communicator.
//The data is a dense row-major array with the axes in the current AxisOrder, and the
//first axis split among the ranks with decomp.Split.
type Trajectory struct {
	mu      sync.RWMutex
	c       comm.Comm
	opts    *Options
	data    []float64
	order   AxisOrder
	local   [3]int
	global  [3]int
	columns []string
	steps   []int
	loaded  bool
	staged  *redist.Staged
}

//NewTrajectory returns an empty trajectory for the rank of c.
//If opts is nil, DefaultOptions() is used.
func NewTrajectory(c comm.Comm, opts *Options) *Trajectory {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Trajectory{c: c, opts: opts, order: FAP, staged: redist.NewStaged(opts.TempFile())}
}

//Load replaces the contents of the trajectory with data, in (F, A, P) order.
//local and global are the lengths of the axes in this rank and in the whole
//trajectory. The frames must be split among the ranks with decomp.Split.
//columns labels the properties and steps gives the timestep of
//each frame of the whole trajectory; either can be nil.
//The trajectory keeps data, which should not be modified afterwards.
func (T *Trajectory) Load(data []float64, local, global [3]int, columns []string, steps []int) error {
	if local[0]*local[1]*local[2] != len(data) {
		return fmt.Errorf("%w: %d elements, local lengths %v", ErrBadLoad, len(data), local)
	}
	if local[1] != global[1] || local[2] != global[2] {
		return fmt.Errorf("%w: local lengths %v, global lengths %v", ErrBadLoad, local, global)
	}
	_, share, err := decomp.Split(global[0], T.c.Rank(), T.c.Size())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadLoad, err)
	}
	if local[0] != share {
		return fmt.Errorf("%w: rank %d of %d holds %d of %d frames, should hold %d", ErrBadLoad, T.c.Rank(), T.c.Size(), local[0], global[0], share)
	}
	if columns != nil && len(columns) != local[2] {
		return fmt.Errorf("%w: %d column labels for %d properties", ErrBadLoad, len(columns), local[2])
	}
	if steps != nil && len(steps) != global[0] {
		return fmt.Errorf("%w: %d timesteps for %d frames", ErrBadLoad, len(steps), global[0])
	}
	T.mu.Lock()
	defer T.mu.Unlock()
	//a new dataset, the staged file does not describe it anymore.
	if err := T.staged.Reset(T.c); err != nil {
		return err
	}
	T.data = data
	T.order = FAP
	T.local = local
	T.global = global
	T.columns = slices.Clone(columns)
	T.steps = slices.Clone(steps)
	T.loaded = true
	return nil
}

//SetAxisOrder re-lays-out the trajectory so its axes follow target. If the first
//axis changes, the data moves among the ranks, so all the ranks must call SetAxisOrder
//with the same target. On error, the trajectory is not changed.
func (T *Trajectory) SetAxisOrder(target AxisOrder) error {
	if !target.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidAxisOrder, target)
	}
	T.mu.RLock()
	loaded, order := T.loaded, T.order
	s := &redist.Slab{Data: T.data, Local: slices.Clone(T.local[:]), Tags: order.Tags(), Global: slices.Clone(T.global[:])}
	n := T.global[0] * T.global[1] * T.global[2]
	T.mu.RUnlock()
	if !loaded {
		return ErrNotLoaded
	}
	if target == order {
		return nil
	}
	perm := order.permutation(target)
	var strategy redist.Strategy = redist.InMemory{InPlace: T.opts.inPlace(n)}
	if perm[0] != 0 && T.opts.staged(n) {
		if p := T.opts.TempFile(); p != T.staged.Path {
			if err := T.staged.Reset(T.c); err != nil {
				return err
			}
			T.staged = redist.NewStaged(p)
		}
		if T.c.Rank() == comm.Root {
			T.opts.Logger().Printf("%s -> %s: %d elements exceed the memory budget, will redistribute through %s", order, target, n, T.staged.Path)
		}
		strategy = T.staged
	}
	if err := strategy.Redistribute(T.c, s, perm); err != nil {
		return fmt.Errorf("mdpat: changing axis order %s -> %s: %w", order, target, err)
	}
	T.mu.Lock()
	defer T.mu.Unlock()
	T.data = s.Data
	copy(T.local[:], s.Local)
	copy(T.global[:], s.Global)
	T.order = target
	return nil
}

//Close removes the staged file, if any.
func (T *Trajectory) Close() error {
	T.mu.Lock()
	defer T.mu.Unlock()
	return T.staged.Reset(T.c)
}

//Comm returns the communicator of the trajectory.
func (T *Trajectory) Comm() comm.Comm { return T.c }

//Options returns the options of the trajectory.
func (T *Trajectory) Options() *Options { return T.opts }

//Loaded returns true if the trajectory has data.
func (T *Trajectory) Loaded() bool {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return T.loaded
}

//Order returns the current axis order.
func (T *Trajectory) Order() AxisOrder {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return T.order
}

//Local returns the lengths of the axes in this rank, in the current order.
func (T *Trajectory) Local() [3]int {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return T.local
}

//Global returns the lengths of the axes in the whole trajectory, in the current order.
func (T *Trajectory) Global() [3]int {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return T.global
}

//Offset returns the global index of the first element of the first axis held by this rank.
func (T *Trajectory) Offset() int {
	T.mu.RLock()
	defer T.mu.RUnlock()
	off, _, err := decomp.Split(T.global[0], T.c.Rank(), T.c.Size())
	if err != nil {
		panic(err.Error()) //the communicator guarantees a valid rank
	}
	return off
}

//Data returns the local data. It is not a copy, and it is only valid until the
//next call to SetAxisOrder or Load. It must not be modified: the staged
//redistribution keeps reading the file it wrote until the next Load.
func (T *Trajectory) Data() []float64 {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return T.data
}

//At returns the local element i, j, k, with indexes in the current order.
func (T *Trajectory) At(i, j, k int) float64 {
	T.mu.RLock()
	defer T.mu.RUnlock()
	if i < 0 || j < 0 || k < 0 || i >= T.local[0] || j >= T.local[1] || k >= T.local[2] {
		panic(fmt.Sprintf("%s: %d, %d, %d, local lengths %v", ErrOutOfRange.Error(), i, j, k, T.local))
	}
	return T.data[(i*T.local[1]+j)*T.local[2]+k]
}

//Columns returns the labels of the properties.
func (T *Trajectory) Columns() []string {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return slices.Clone(T.columns)
}

//Column returns the index of the property with the given label, or -1.
func (T *Trajectory) Column(label string) int {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return slices.Index(T.columns, label)
}

//Steps returns the timestep of each frame of the whole trajectory.
func (T *Trajectory) Steps() []int {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return slices.Clone(T.steps)
}

//Len returns the number of frames Frame can return: the local frames
//in the (F, A, P) order, or 0 in any other order.
func (T *Trajectory) Len() int {
	T.mu.RLock()
	defer T.mu.RUnlock()
	if T.order != FAP {
		return 0
	}
	return T.local[0]
}

//Frame returns a copy of the local frame i as an atoms x properties matrix.
//It requires the (F, A, P) order.
func (T *Trajectory) Frame(i int) (*mat.Dense, error) {
	T.mu.RLock()
	defer T.mu.RUnlock()
	if T.order != FAP {
		return nil, fmt.Errorf("%w: order is %s", ErrWrongOrder, T.order)
	}
	if i < 0 || i >= T.local[0] {
		return nil, fmt.Errorf("%w: frame %d of %d", ErrOutOfRange, i, T.local[0])
	}
	if T.local[1] == 0 || T.local[2] == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrOutOfRange)
	}
	stride := T.local[1] * T.local[2]
	return mat.NewDense(T.local[1], T.local[2], slices.Clone(T.data[i*stride:(i+1)*stride])), nil
}
