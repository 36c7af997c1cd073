/*
 * redist.go, part of mdpat.
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

/*Package redist permutes the axes of a row-major array whose slowest axis is split
among the ranks of a communicator, and splits the result again along its new slowest axis.

Two strategies are provided. InMemory gathers the whole array on the root rank, permutes
it there and scatters it back, so the root needs memory for the whole array. Staged writes
the array to a file shared by all ranks, and every rank then reads the file keeping only
its own part. Both give the same result, and both split the new slowest axis with
decomp.Split.

If the permutation keeps axis 0 in place, nothing needs to move between ranks, and both
strategies just permute each rank's slab locally, without communicating.*/
package redist

import (
	"errors"
	"fmt"
	"math"

	"github.com/rmera/mdpat/comm"
	"github.com/rmera/mdpat/decomp"
	"github.com/rmera/mdpat/permute"
)

var (
	ErrInconsistent = errors.New("redist: the slabs of the ranks do not describe one array")
	ErrTags         = errors.New("redist: invalid axis tags")
	ErrAxes         = errors.New("redist: the staged strategy only handles 3 axes")
	ErrBadHeader    = errors.New("redist: unreadable staged file header")
	ErrTruncated    = errors.New("redist: staged file ended early")
	ErrTooLarge     = errors.New("redist: the array is too large")
)

//ConsistencyError reports the first rank whose axis length differs from the one in rank 0.
type ConsistencyError struct {
	Rank int
	Axis int
	Want int
	Got  int
}

func (E *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: axis %d has length %d in rank 0 but %d in rank %d", ErrInconsistent.Error(), E.Axis, E.Want, E.Got, E.Rank)
}

func (E *ConsistencyError) Unwrap() error { return ErrInconsistent }

//Slab is the part of the distributed array held by one rank.
//If Global is given, the ranks' slabs must add up to it. After a successful
//redistribution, Global holds the lengths of the whole permuted array.
type Slab struct {
	Data   []float64
	Local  []int  //local axis lengths. Axis 0 is the partitioned one.
	Tags   []byte //optional, one tag per axis, permuted along with the axes.
	Global []int  //optional, global axis lengths.
}

//Strategy is a way of redistributing an array. After a successful call, s holds the
//calling rank's part of the permuted array. On error, s is left untouched.
//All the ranks of c must call Redistribute with the same order.
type Strategy interface {
	Redistribute(c comm.Comm, s *Slab, order []int) error
}

//check does the validation that requires no communication.
func (s *Slab) check(order []int) error {
	if err := permute.Check(order, len(s.Local)); err != nil {
		return err
	}
	if len(s.Tags) != 0 && len(s.Tags) != len(s.Local) {
		return fmt.Errorf("%w: %d tags for %d axes", ErrTags, len(s.Tags), len(s.Local))
	}
	if len(s.Global) != 0 && len(s.Global) != len(s.Local) {
		return fmt.Errorf("%w: %d global lengths for %d axes", permute.ErrAxisCount, len(s.Global), len(s.Local))
	}
	if p := permute.Product(s.Local); p != len(s.Data) {
		return fmt.Errorf("%w: %d elements, local lengths %v give %d", permute.ErrSizeMismatch, len(s.Data), s.Local, p)
	}
	return nil
}

//local permutes the slab when the partitioned axis does not move.
func (s *Slab) local(order []int) error {
	data := s.Data
	if err := permute.Dims(&data, s.Local, order); err != nil {
		return err
	}
	s.Data = data
	s.Tags = reorderTags(s.Tags, order)
	s.Local = permute.Shape(s.Local, order)
	if len(s.Global) != 0 {
		s.Global = permute.Shape(s.Global, order)
	}
	return nil
}

func reorderTags(tags []byte, order []int) []byte {
	if len(tags) == 0 {
		return tags
	}
	ret := make([]byte, len(order))
	for i, v := range order {
		ret[i] = tags[v]
	}
	return ret
}

//layout is what every rank learns about the distributed array in the consistency check.
type layout struct {
	global []int
	counts []int //elements per rank
	displs []int //offset of each rank's elements in the whole array
	total  int
}

//gatherLayout exchanges the local lengths of all the ranks, and the global
//lengths they declare, and checks that they describe one array.
//Every rank gets the same result, error included.
func gatherLayout(c comm.Comm, s *Slab) (*layout, error) {
	n := len(s.Local)
	w := 2*n + 1
	mine := make([]int, w)
	mine[0] = len(s.Data)
	copy(mine[1:], s.Local)
	for i := range n {
		mine[n+1+i] = -1
	}
	copy(mine[n+1:], s.Global)
	all, err := c.AllgatherInts(mine)
	if err != nil {
		return nil, err
	}
	size := c.Size()
	l := &layout{global: make([]int, n), counts: make([]int, size), displs: make([]int, size)}
	copy(l.global, all[1:n+1])
	l.global[0] = 0
	for r := range size {
		rl := all[r*w+1 : r*w+n+1]
		for a := 1; a < n; a++ {
			if rl[a] != l.global[a] {
				return nil, &ConsistencyError{Rank: r, Axis: a, Want: l.global[a], Got: rl[a]}
			}
		}
		if l.global[0] > math.MaxInt-rl[0] {
			return nil, fmt.Errorf("%w: axis 0 longer than %d", ErrTooLarge, math.MaxInt)
		}
		l.global[0] += rl[0]
		l.counts[r] = all[r*w]
		l.displs[r] = l.total
		if l.total > math.MaxInt-l.counts[r] {
			return nil, fmt.Errorf("%w: more than %d elements", ErrTooLarge, math.MaxInt)
		}
		l.total += l.counts[r]
	}
	for r := range size {
		declared := all[r*w+n+1 : (r+1)*w]
		if declared[0] < 0 {
			continue
		}
		for a, v := range declared {
			if v != l.global[a] {
				return nil, fmt.Errorf("%w: rank %d declares global lengths %v, the slabs add up to %v", ErrInconsistent, r, declared, l.global)
			}
		}
	}
	return l, nil
}

//InMemory redistributes by gathering the whole array on comm.Root.
//With InPlace, the root permutes the gathered array without a second copy
//of it, which is slower.
type InMemory struct {
	InPlace bool
}

func (M InMemory) Redistribute(c comm.Comm, s *Slab, order []int) error {
	if err := s.check(order); err != nil {
		return err
	}
	if order[0] == 0 {
		return s.local(order)
	}
	l, err := gatherLayout(c, s)
	if err != nil {
		return err
	}
	rank, size := c.Rank(), c.Size()
	var all []float64
	if rank == comm.Root {
		all = make([]float64, l.total)
	}
	if err := c.Gatherv(s.Data, all, l.counts, l.displs, comm.Root); err != nil {
		return err
	}
	if rank == comm.Root {
		if M.InPlace {
			err = permute.DimsCycles(all, l.global, order)
		} else {
			err = permute.Dims(&all, l.global, order)
		}
		if err != nil {
			return c.Abort(err)
		}
	}
	newGlobal := permute.Shape(l.global, order)
	stride := permute.Product(newGlobal[1:])
	counts, displs, err := decomp.Scaled(newGlobal[0], stride, size)
	if err != nil {
		return c.Abort(err)
	}
	_, length, err := decomp.Split(newGlobal[0], rank, size)
	if err != nil {
		return c.Abort(err)
	}
	//the root is done permuting; nobody reads the new layout before this.
	if err := c.Barrier(); err != nil {
		return err
	}
	recv := make([]float64, length*stride)
	if err := c.Scatterv(all, counts, displs, recv, comm.Root); err != nil {
		return err
	}
	s.Data = recv
	s.Tags = reorderTags(s.Tags, order)
	s.Local = append([]int{length}, newGlobal[1:]...)
	s.Global = newGlobal
	return nil
}
