/*
 * counting.go, part of mdpat.
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

//Counting wraps a Comm and counts the calls that communicate.
//It belongs to one rank, like the Comm it wraps.
type Counting struct {
	Comm
	Collectives  int
	PointToPoint int
}

//NewCounting returns a Counting around c with both counters at zero.
func NewCounting(c Comm) *Counting {
	return &Counting{Comm: c}
}

//Calls returns the total number of communication calls made so far.
func (C *Counting) Calls() int {
	return C.Collectives + C.PointToPoint
}

func (C *Counting) Barrier() error {
	C.Collectives++
	return C.Comm.Barrier()
}

func (C *Counting) Gatherv(send, recv []float64, counts, displs []int, root int) error {
	C.Collectives++
	return C.Comm.Gatherv(send, recv, counts, displs, root)
}

func (C *Counting) Scatterv(send []float64, counts, displs []int, recv []float64, root int) error {
	C.Collectives++
	return C.Comm.Scatterv(send, counts, displs, recv, root)
}

func (C *Counting) AllgatherInts(send []int) ([]int, error) {
	C.Collectives++
	return C.Comm.AllgatherInts(send)
}

func (C *Counting) ReduceSum(buf []float64, root int) error {
	C.Collectives++
	return C.Comm.ReduceSum(buf, root)
}

func (C *Counting) BcastStrings(s []string, root int) ([]string, error) {
	C.Collectives++
	return C.Comm.BcastStrings(s, root)
}

func (C *Counting) Send(data []int, dest int) error {
	C.PointToPoint++
	return C.Comm.Send(data, dest)
}

func (C *Counting) Recv(data []int, source int) error {
	C.PointToPoint++
	return C.Comm.Recv(data, source)
}
