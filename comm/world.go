/*
 * world.go, part of mdpat.
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

package comm

import (
	"fmt"
	"slices"
	"sync"

	"gonum.org/v1/gonum/floats"
)

//how many messages can be waiting between a pair of ranks.
const pipeDepth = 16

//World is a group of ranks living in the same process.
//Collectives exchange data through one slot per rank; each collective is
//"publish, wait, read, wait", so no slot is overwritten while someone may still read it.
type World struct {
	size    int
	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     uint64
	err     error
	done    chan struct{}
	slots   []any
	pipes   [][]chan []int //[source][destination]
}

//NewWorld returns a World with nprocs ranks.
func NewWorld(nprocs int) (*World, error) {
	if nprocs < 1 {
		return nil, ErrSize
	}
	w := &World{size: nprocs, done: make(chan struct{}), slots: make([]any, nprocs)}
	w.cond = sync.NewCond(&w.mu)
	w.pipes = make([][]chan []int, nprocs)
	for i := range w.pipes {
		w.pipes[i] = make([]chan []int, nprocs)
		for j := range w.pipes[i] {
			w.pipes[i][j] = make(chan []int, pipeDepth)
		}
	}
	return w, nil
}

//Self returns the only Comm of a world with one rank.
func Self() Comm {
	w, _ := NewWorld(1)
	return w.Comm(0)
}

//Comm returns the handle for rank. Each handle must be used by one goroutine only.
func (w *World) Comm(rank int) Comm {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("comm: rank %d requested from a world of %d", rank, w.size))
	}
	return &member{w: w, rank: rank}
}

func (w *World) abort(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
		close(w.done)
		w.cond.Broadcast()
	}
	return fmt.Errorf("%w: %w", ErrAborted, w.err)
}

func (w *World) cause() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

//wait is the barrier every collective is built on.
func (w *World) wait() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, w.err)
	}
	gen := w.gen
	w.arrived++
	if w.arrived == w.size {
		w.arrived = 0
		w.gen++
		w.cond.Broadcast()
		return nil
	}
	for gen == w.gen && w.err == nil {
		w.cond.Wait()
	}
	if gen == w.gen {
		return fmt.Errorf("%w: %w", ErrAborted, w.err)
	}
	return nil
}

//member is one rank of a World.
type member struct {
	w    *World
	rank int
}

func (m *member) Rank() int { return m.rank }

func (m *member) Size() int { return m.w.size }

func (m *member) Abort(err error) error { return m.w.abort(fmt.Errorf("rank %d: %w", m.rank, err)) }

func (m *member) Barrier() error { return m.w.wait() }

func (m *member) checkRank(r int) error {
	if r < 0 || r >= m.w.size {
		return m.Abort(fmt.Errorf("%w: %d, size %d", ErrBadRank, r, m.w.size))
	}
	return nil
}

//exchange publishes v, waits for everybody, calls read (which may look at all the slots)
//and waits again. An error from read aborts the world.
func (m *member) exchange(v any, read func(slots []any) error) error {
	m.w.slots[m.rank] = v
	if err := m.w.wait(); err != nil {
		return err
	}
	rerr := read(m.w.slots)
	if rerr != nil {
		return m.Abort(rerr)
	}
	return m.w.wait()
}

type scatterData struct {
	send           []float64
	counts, displs []int
}

func (m *member) Gatherv(send, recv []float64, counts, displs []int, root int) error {
	if err := m.checkRank(root); err != nil {
		return err
	}
	return m.exchange(send, func(slots []any) error {
		if m.rank != root {
			return nil
		}
		if len(counts) != m.w.size || len(displs) != m.w.size {
			return fmt.Errorf("%w: gatherv with %d counts and %d displacements for %d ranks", ErrBadCounts, len(counts), len(displs), m.w.size)
		}
		for i, s := range slots {
			part := s.([]float64)
			if len(part) != counts[i] || displs[i] < 0 || displs[i]+counts[i] > len(recv) {
				return fmt.Errorf("%w: gatherv, rank %d sends %d elements, count %d, displacement %d, receive buffer %d", ErrBadCounts, i, len(part), counts[i], displs[i], len(recv))
			}
			copy(recv[displs[i]:], part)
		}
		return nil
	})
}

func (m *member) Scatterv(send []float64, counts, displs []int, recv []float64, root int) error {
	if err := m.checkRank(root); err != nil {
		return err
	}
	var mine any
	if m.rank == root {
		mine = scatterData{send, counts, displs}
	}
	return m.exchange(mine, func(slots []any) error {
		d := slots[root].(scatterData)
		if len(d.counts) != m.w.size || len(d.displs) != m.w.size {
			return fmt.Errorf("%w: scatterv with %d counts and %d displacements for %d ranks", ErrBadCounts, len(d.counts), len(d.displs), m.w.size)
		}
		c, o := d.counts[m.rank], d.displs[m.rank]
		if c != len(recv) || o < 0 || o+c > len(d.send) {
			return fmt.Errorf("%w: scatterv, rank %d expects %d elements, count %d, displacement %d, send buffer %d", ErrBadCounts, m.rank, len(recv), c, o, len(d.send))
		}
		copy(recv, d.send[o:o+c])
		return nil
	})
}

func (m *member) AllgatherInts(send []int) ([]int, error) {
	var ret []int
	err := m.exchange(send, func(slots []any) error {
		ret = make([]int, 0, len(send)*m.w.size)
		for i, s := range slots {
			part := s.([]int)
			if len(part) != len(send) {
				return fmt.Errorf("%w: allgather, rank %d sends %d elements, rank %d sends %d", ErrBadCounts, i, len(part), m.rank, len(send))
			}
			ret = append(ret, part...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (m *member) ReduceSum(buf []float64, root int) error {
	if err := m.checkRank(root); err != nil {
		return err
	}
	return m.exchange(buf, func(slots []any) error {
		if m.rank != root {
			return nil
		}
		for i, s := range slots {
			if i == root {
				continue
			}
			part := s.([]float64)
			if len(part) != len(buf) {
				return fmt.Errorf("%w: reduce, rank %d sends %d elements, root has %d", ErrBadCounts, i, len(part), len(buf))
			}
			floats.Add(buf, part)
		}
		return nil
	})
}

func (m *member) BcastStrings(s []string, root int) ([]string, error) {
	if err := m.checkRank(root); err != nil {
		return nil, err
	}
	var ret []string
	err := m.exchange(s, func(slots []any) error {
		ret = slices.Clone(slots[root].([]string))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (m *member) Send(data []int, dest int) error {
	if err := m.checkRank(dest); err != nil {
		return err
	}
	select {
	case m.w.pipes[m.rank][dest] <- slices.Clone(data):
		return nil
	case <-m.w.done:
		return fmt.Errorf("%w: %w", ErrAborted, m.w.cause())
	}
}

func (m *member) Recv(data []int, source int) error {
	if err := m.checkRank(source); err != nil {
		return err
	}
	select {
	case msg := <-m.w.pipes[source][m.rank]:
		if len(msg) != len(data) {
			return m.Abort(fmt.Errorf("%w: rank %d received %d elements from rank %d, expected %d", ErrBadCounts, m.rank, len(msg), source, len(data)))
		}
		copy(data, msg)
		return nil
	case <-m.w.done:
		return fmt.Errorf("%w: %w", ErrAborted, m.w.cause())
	}
}
