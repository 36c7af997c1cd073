/*
 * comm.go, part of mdpat.
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

/*Package comm provides the MPI-like communicator used by mdpat.

A Comm is one rank's handle on a fixed group of ranks. All the collective
operations (Barrier, Gatherv, Scatterv, AllgatherInts, ReduceSum, BcastStrings)
block until every rank in the group has called the same operation, and all ranks
must call the collectives in the same order, or the program deadlocks.
Send and Recv are point-to-point and only block the two ranks involved.

There is no state hidden in the package: every function in mdpat that needs to
communicate takes a Comm.

World is the implementation included here. It runs all the ranks as goroutines of
the same process, which is what the mdpat program and the tests use. Other
implementations (e.g. one rank per process over MPI) only need to satisfy Comm.

Errors during a collective are fatal for the whole group: the failing rank aborts
the communicator, and every rank blocked in, or later entering, a communication
call gets an error wrapping ErrAborted.*/
package comm

import (
	"errors"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

//Root is the rank that coordinates rooted collectives in mdpat.
const Root int = 0

var (
	ErrAborted   = errors.New("comm: communicator aborted")
	ErrBadRank   = errors.New("comm: rank out of range")
	ErrBadCounts = errors.New("comm: counts and buffers do not agree")
	ErrSize      = errors.New("comm: a communicator needs at least one rank")
)

//Comm is one rank's view of a group of ranks.
type Comm interface {
	//Rank returns the index of this rank, 0 <= Rank() < Size()
	Rank() int

	//Size returns the number of ranks in the group.
	Size() int

	//Barrier returns when all the ranks have called it.
	Barrier() error

	//Gatherv collects the send slices of all ranks in recv, at root.
	//The data from rank i is placed at recv[displs[i]:displs[i]+counts[i]].
	//recv, counts and displs are only used at root.
	Gatherv(send, recv []float64, counts, displs []int, root int) error

	//Scatterv is the reverse of Gatherv: rank i receives in recv the
	//elements send[displs[i]:displs[i]+counts[i]] of root's send slice.
	//send, counts and displs are only used at root. len(recv) must be counts[i].
	Scatterv(send []float64, counts, displs []int, recv []float64, root int) error

	//AllgatherInts returns, on every rank, the concatenation in rank order of
	//the send slices of all the ranks, which must all have the same length.
	AllgatherInts(send []int) ([]int, error)

	//ReduceSum adds element-wise the buf slices of all the ranks and leaves the
	//result in root's buf.
	ReduceSum(buf []float64, root int) error

	//BcastStrings returns a copy of root's s on every rank.
	BcastStrings(s []string, root int) ([]string, error)

	//Send transmits data to rank dest.
	Send(data []int, dest int) error

	//Recv receives from rank source a message sent with Send. len(data) must match.
	Recv(data []int, source int) error

	//Abort marks the whole group as failed because of err, and returns the error
	//that the other ranks will get.
	Abort(err error) error
}

//Run creates a World with nprocs ranks and calls f once per rank, each in its own goroutine.
//If any rank returns an error (or panics) the world is aborted, so the ranks waiting for it
//do not block forever. Run returns the error that caused the abort, if any.
func Run(nprocs int, f func(c Comm) error) error {
	w, err := NewWorld(nprocs)
	if err != nil {
		return err
	}
	var g errgroup.Group
	for r := range nprocs {
		g.Go(func() (err error) {
			c := w.Comm(r)
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("rank %d panicked: %v\n%s", r, p, debug.Stack())
					w.abort(err)
				}
			}()
			err = f(c)
			if err != nil {
				w.abort(fmt.Errorf("rank %d: %w", r, err))
			}
			return err
		})
	}
	err = g.Wait()
	if cause := w.cause(); cause != nil {
		return cause
	}
	return err
}
