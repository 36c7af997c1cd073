/*
 * permute.go, part of mdpat.
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

//Package permute transposes dense, row-major N-dimensional arrays stored in flat slices.
//
//An axis order is a slice with a permutation of 0..N-1. After a permutation,
//axis i of the result is axis order[i] of the original array, so
//Shape(lengths, order) describes the new array.
package permute

import (
	"errors"
	"fmt"
)

var (
	ErrAxisCount          = errors.New("permute: the axis order and the axis lengths have different number of axes")
	ErrInvalidPermutation = errors.New("permute: the axis order is not a permutation")
	ErrSizeMismatch       = errors.New("permute: the buffer length is not the product of the axis lengths")
	ErrIdentity           = errors.New("permute: the axis order does not change the array")
)

//Check returns nil if order is a permutation of 0..n-1 other than the identity.
func Check(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("%w: %d axes in the order, %d axis lengths", ErrAxisCount, len(order), n)
	}
	seen := make([]bool, n)
	for i, v := range order {
		if v < 0 || v >= n {
			return fmt.Errorf("%w: index %d out of range in position %d", ErrInvalidPermutation, v, i)
		}
		if seen[v] {
			return fmt.Errorf("%w: index %d repeated", ErrInvalidPermutation, v)
		}
		seen[v] = true
	}
	if IsIdentity(order) {
		return ErrIdentity
	}
	return nil
}

//IsIdentity returns true if order[i]==i for every i.
func IsIdentity(order []int) bool {
	for i, v := range order {
		if v != i {
			return false
		}
	}
	return true
}

//Shape returns the axis lengths of an array with the given lengths after
//permuting it with order. order is assumed valid.
func Shape(lengths, order []int) []int {
	ret := make([]int, len(order))
	for i, v := range order {
		ret[i] = lengths[v]
	}
	return ret
}

//Inverse returns the order that undoes order.
func Inverse(order []int) []int {
	ret := make([]int, len(order))
	for i, v := range order {
		ret[v] = i
	}
	return ret
}

//Product returns the product of the given lengths, which is 1 for no lengths.
func Product(lengths []int) int {
	p := 1
	for _, v := range lengths {
		p *= v
	}
	return p
}

//validate checks everything Dims and DimsCycles need, and returns, for each
//axis of the original array, the stride that axis has in the permuted one.
func validate(size int, lengths, order []int) ([]int, error) {
	if err := Check(order, len(lengths)); err != nil {
		return nil, err
	}
	for i, v := range lengths {
		if v < 0 {
			return nil, fmt.Errorf("%w: negative length %d for axis %d", ErrSizeMismatch, v, i)
		}
	}
	if p := Product(lengths); p != size {
		return nil, fmt.Errorf("%w: %d elements, lengths %v give %d", ErrSizeMismatch, size, lengths, p)
	}
	n := len(order)
	strides := make([]int, n)
	s := 1
	for i := n - 1; i >= 0; i-- {
		strides[order[i]] = s
		s *= lengths[order[i]]
	}
	return strides, nil
}

//Dims permutes the row-major array in buf, with axis lengths lengths, so
//its axes follow order. The result is built in a new slice which then
//replaces *buf, so the old and new arrays never share memory.
func Dims[T any](buf *[]T, lengths, order []int) error {
	old := *buf
	strides, err := validate(len(old), lengths, order)
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return nil
	}
	n := len(lengths)
	ret := make([]T, len(old))
	idx := make([]int, n)
	dst := 0
	for _, v := range old {
		ret[dst] = v
		//the odometer. The last index moves fastest.
		for j := n - 1; j >= 0; j-- {
			idx[j]++
			dst += strides[j]
			if idx[j] < lengths[j] || j == 0 {
				break
			}
			dst -= idx[j] * strides[j]
			idx[j] = 0
		}
	}
	*buf = ret
	return nil
}

//DimsCycles gives the same result as Dims, but moves the elements along the cycles
//of the permutation inside buf, so it only needs one bit of extra memory per element.
func DimsCycles[T any](buf []T, lengths, order []int) error {
	strides, err := validate(len(buf), lengths, order)
	if err != nil {
		return err
	}
	n := len(lengths)
	idx := make([]int, n)
	dest := func(linear int) int {
		for j := n - 1; j >= 0; j-- {
			idx[j] = linear % lengths[j]
			linear /= lengths[j]
		}
		d := 0
		for j, v := range idx {
			d += v * strides[j]
		}
		return d
	}
	visited := make([]uint64, (len(buf)+63)/64)
	for start := range buf {
		if visited[start/64]&(1<<(start%64)) != 0 {
			continue
		}
		v := buf[start]
		cur := start
		for {
			d := dest(cur)
			v, buf[d] = buf[d], v
			visited[d/64] |= 1 << (d % 64)
			if d == start {
				break
			}
			cur = d
		}
	}
	return nil
}
