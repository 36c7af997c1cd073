/*
 * decomp.go, part of mdpat.
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

//Package decomp splits a number of values evenly among a number of ranks.
//Every place in mdpat where data is divided among ranks (frames when reading
//a trajectory, the partitioned axis after a redistribution) uses this rule, so
//any two ranks computing a slice independently always agree.
package decomp

import (
	"errors"
	"fmt"
)

var (
	ErrNoRanks        = errors.New("decomp: the number of ranks must be at least 1")
	ErrRankOutOfRange = errors.New("decomp: rank out of range")
	ErrNegativeTotal  = errors.New("decomp: negative number of values")
)

//Split returns the offset of the first value and the number of values
//that rank gets when total values are split among nprocs ranks.
//The first total%nprocs ranks get one value more than the rest.
func Split(total, rank, nprocs int) (offset, length int, err error) {
	if nprocs < 1 {
		return 0, 0, ErrNoRanks
	}
	if rank < 0 || rank >= nprocs {
		return 0, 0, fmt.Errorf("%w: rank %d, %d ranks", ErrRankOutOfRange, rank, nprocs)
	}
	if total < 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrNegativeTotal, total)
	}
	q := total / nprocs
	r := total % nprocs
	if rank < r {
		return rank * (q + 1), q + 1, nil
	}
	return r*(q+1) + (rank-r)*q, q, nil
}

//Counts returns the lengths and offsets of the slices of all the ranks, in rank order.
func Counts(total, nprocs int) (lengths, offsets []int, err error) {
	if nprocs < 1 {
		return nil, nil, ErrNoRanks
	}
	lengths = make([]int, nprocs)
	offsets = make([]int, nprocs)
	for i := range nprocs {
		offsets[i], lengths[i], err = Split(total, i, nprocs)
		if err != nil {
			return nil, nil, err
		}
	}
	return lengths, offsets, nil
}

//Scaled returns the Counts for total values, each one made of stride elements.
//This is what a variable-length gather or scatter needs when the split happens
//along the slowest axis of a row-major array.
func Scaled(total, stride, nprocs int) (counts, displs []int, err error) {
	counts, displs, err = Counts(total, nprocs)
	if err != nil {
		return nil, nil, err
	}
	for i := range counts {
		counts[i] *= stride
		displs[i] *= stride
	}
	return counts, displs, nil
}
