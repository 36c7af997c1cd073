/*
 * axis.go, part of mdpat.
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
	"strings"
)

//Axis is one of the 3 axes of a trajectory.
type Axis byte

//The tag of each axis is its value.
const (
	Frames Axis = 'F'
	Atoms  Axis = 'A'
	Props  Axis = 'P'
)

func (a Axis) String() string {
	switch a {
	case Frames:
		return "frames"
	case Atoms:
		return "atoms"
	case Props:
		return "properties"
	}
	return fmt.Sprintf("Axis(%q)", byte(a))
}

//ParseAxis returns the axis with tag s. Lowercase tags are accepted.
func ParseAxis(s string) (Axis, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q is not an axis tag", ErrInvalidAxisOrder, s)
	}
	a := Axis(strings.ToUpper(s)[0])
	switch a {
	case Frames, Atoms, Props:
		return a, nil
	}
	return 0, fmt.Errorf("%w: %q is not an axis tag", ErrInvalidAxisOrder, s)
}

//AxisOrder gives the axes of a trajectory from the slowest varying to the fastest.
//The first one is the axis split among the ranks.
type AxisOrder [3]Axis

//FAP is the order in which trajectories are read.
var FAP = AxisOrder{Frames, Atoms, Props}

//ParseAxisOrder reads an order either as one word ("APF") or as one tag per word.
func ParseAxisOrder(words ...string) (AxisOrder, error) {
	var o AxisOrder
	if len(words) == 1 {
		words = strings.Split(words[0], "")
	}
	if len(words) != 3 {
		return o, fmt.Errorf("%w: got %d axes", ErrInvalidAxisOrder, len(words))
	}
	for i, w := range words {
		a, err := ParseAxis(w)
		if err != nil {
			return o, err
		}
		o[i] = a
	}
	if !o.Valid() {
		return o, fmt.Errorf("%w: %s", ErrInvalidAxisOrder, o)
	}
	return o, nil
}

//Valid returns true if each axis appears exactly once in the order.
func (o AxisOrder) Valid() bool {
	var f, a, p int
	for _, v := range o {
		switch v {
		case Frames:
			f++
		case Atoms:
			a++
		case Props:
			p++
		}
	}
	return f == 1 && a == 1 && p == 1
}

//Index returns the position of axis a in the order, or -1.
func (o AxisOrder) Index(a Axis) int {
	for i, v := range o {
		if v == a {
			return i
		}
	}
	return -1
}

//Tags returns the one-byte tags of the axes, in order.
func (o AxisOrder) Tags() []byte {
	return []byte{byte(o[0]), byte(o[1]), byte(o[2])}
}

func (o AxisOrder) String() string {
	return string(o.Tags())
}

//permutation returns the permutation that takes an array in order o to the order target:
//axis i of the result is axis ret[i] of the original.
func (o AxisOrder) permutation(target AxisOrder) []int {
	ret := make([]int, 3)
	for i, a := range target {
		ret[i] = o.Index(a)
	}
	return ret
}
