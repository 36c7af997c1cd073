/*
 * permute_test.go, part of mdpat.
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

package permute

import (
	"errors"
	"slices"
	"testing"
)

func seq(n int) []int {
	ret := make([]int, n)
	for i := range ret {
		ret[i] = i
	}
	return ret
}

func TestDims2D(Te *testing.T) {
	buf := seq(10)
	if err := Dims(&buf, []int{2, 5}, []int{1, 0}); err != nil {
		Te.Fatal(err)
	}
	want := []int{0, 5, 1, 6, 2, 7, 3, 8, 4, 9}
	if !slices.Equal(buf, want) {
		Te.Errorf("got %v, want %v", buf, want)
	}
	if err := Dims(&buf, []int{5, 2}, []int{1, 0}); err != nil {
		Te.Fatal(err)
	}
	if !slices.Equal(buf, seq(10)) {
		Te.Errorf("round trip gave %v", buf)
	}
}

//Swapping the two slowest axes of a 2x2x2 array
func TestDims3D(Te *testing.T) {
	buf := seq(8)
	if err := Dims(&buf, []int{2, 2, 2}, []int{1, 0, 2}); err != nil {
		Te.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				if buf[j*4+i*2+k] != i*4+j*2+k {
					Te.Errorf("element (%d,%d,%d) moved to the wrong place: %v", i, j, k, buf)
				}
			}
		}
	}
}

//Every element must end where the definition of the permutation says.
func TestDimsDefinition(Te *testing.T) {
	lengths := []int{3, 4, 2, 5}
	orders := [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {0, 2, 3, 1}, {2, 0, 1, 3}}
	for _, order := range orders {
		buf := seq(Product(lengths))
		if err := Dims(&buf, lengths, order); err != nil {
			Te.Fatal(err)
		}
		newl := Shape(lengths, order)
		idx := make([]int, 4)
		for a := 0; a < lengths[0]; a++ {
			for b := 0; b < lengths[1]; b++ {
				for c := 0; c < lengths[2]; c++ {
					for d := 0; d < lengths[3]; d++ {
						idx[0], idx[1], idx[2], idx[3] = a, b, c, d
						src := ((a*lengths[1]+b)*lengths[2]+c)*lengths[3] + d
						dst := 0
						for i := range order {
							dst = dst*newl[i] + idx[order[i]]
						}
						if buf[dst] != src {
							Te.Fatalf("order %v: element %v is %d, want %d", order, idx, buf[dst], src)
						}
					}
				}
			}
		}
	}
}

func TestRoundTrip(Te *testing.T) {
	lengths := []int{4, 3, 5}
	for _, order := range [][]int{{1, 0, 2}, {2, 0, 1}, {1, 2, 0}, {0, 2, 1}, {2, 1, 0}} {
		buf := make([]float64, Product(lengths))
		for i := range buf {
			buf[i] = float64(i) * 0.5
		}
		orig := slices.Clone(buf)
		if err := Dims(&buf, lengths, order); err != nil {
			Te.Fatal(err)
		}
		if err := Dims(&buf, Shape(lengths, order), Inverse(order)); err != nil {
			Te.Fatal(err)
		}
		if !slices.Equal(buf, orig) {
			Te.Errorf("order %v: round trip failed", order)
		}
	}
}

func TestCyclesMatch(Te *testing.T) {
	cases := []struct {
		lengths []int
		order   []int
	}{
		{[]int{2, 5}, []int{1, 0}},
		{[]int{7, 3, 4}, []int{2, 0, 1}},
		{[]int{7, 3, 4}, []int{1, 2, 0}},
		{[]int{1, 6, 1}, []int{2, 1, 0}},
		{[]int{3, 1, 4, 2}, []int{3, 1, 0, 2}},
	}
	for _, c := range cases {
		a := seq(Product(c.lengths))
		b := slices.Clone(a)
		if err := Dims(&a, c.lengths, c.order); err != nil {
			Te.Fatal(err)
		}
		if err := DimsCycles(b, c.lengths, c.order); err != nil {
			Te.Fatal(err)
		}
		if !slices.Equal(a, b) {
			Te.Errorf("lengths %v order %v: cycles gave %v, expected %v", c.lengths, c.order, b, a)
		}
	}
}

func TestDimsErrors(Te *testing.T) {
	buf := seq(10)
	cases := []struct {
		lengths []int
		order   []int
		want    error
	}{
		{[]int{2, 5}, []int{0, 1}, ErrIdentity},
		{[]int{2, 5}, []int{1, 1}, ErrInvalidPermutation},
		{[]int{2, 5}, []int{2, 0}, ErrInvalidPermutation},
		{[]int{2, 5}, []int{-1, 0}, ErrInvalidPermutation},
		{[]int{2, 5}, []int{1, 0, 2}, ErrAxisCount},
		{[]int{3, 5}, []int{1, 0}, ErrSizeMismatch},
	}
	for _, c := range cases {
		err := Dims(&buf, c.lengths, c.order)
		if !errors.Is(err, c.want) {
			Te.Errorf("lengths %v order %v: got %v, want %v", c.lengths, c.order, err, c.want)
		}
		if err := DimsCycles(buf, c.lengths, c.order); !errors.Is(err, c.want) {
			Te.Errorf("cycles, lengths %v order %v: got %v, want %v", c.lengths, c.order, err, c.want)
		}
	}
	if !slices.Equal(buf, seq(10)) {
		Te.Errorf("a rejected permutation changed the buffer: %v", buf)
	}
}

func TestDimsEmpty(Te *testing.T) {
	var buf []int
	if err := Dims(&buf, []int{0, 3}, []int{1, 0}); err != nil {
		Te.Error(err)
	}
}
