/*
 * steps.go, part of mdpat.
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
	"strconv"
	"strings"
)

//StepRange is the set of timesteps Init, Init+Step, ..., End.
type StepRange struct {
	Init int
	End  int
	Step int
}

//NewStepRange returns a validated StepRange.
func NewStepRange(init, end, step int) (StepRange, error) {
	r := StepRange{Init: init, End: end, Step: step}
	return r, r.Check()
}

//Check returns an error if the range is empty or End can't be reached from Init.
func (R StepRange) Check() error {
	if R.Init < 0 || R.End <= R.Init || R.Step <= 0 {
		return fmt.Errorf("%w: %s: the end must be larger than the beginning, and the step larger than 0", ErrBadRange, R)
	}
	if (R.End-R.Init)%R.Step != 0 {
		return fmt.Errorf("%w: %s: the difference between the last and first step must be divisible by the increment", ErrBadRange, R)
	}
	return nil
}

func (R StepRange) String() string {
	return fmt.Sprintf("%d-%d:%d", R.Init, R.End, R.Step)
}

//Len returns the number of timesteps in the range.
func (R StepRange) Len() int {
	return (R.End-R.Init)/R.Step + 1
}

//At returns the i-th timestep of the range.
func (R StepRange) At(i int) int {
	return R.Init + i*R.Step
}

//Index returns the position of timestep in the range, or -1.
func (R StepRange) Index(timestep int) int {
	if timestep < R.Init || timestep > R.End || (timestep-R.Init)%R.Step != 0 {
		return -1
	}
	return (timestep - R.Init) / R.Step
}

//Steps returns all the timesteps in the range.
func (R StepRange) Steps() []int {
	ret := make([]int, R.Len())
	for i := range ret {
		ret[i] = R.At(i)
	}
	return ret
}

//ParseRange reads a range in the form <init>-<end>:<step>, e.g. 0-1000000:1000.
func ParseRange(s string) (StepRange, error) {
	var r StepRange
	syntax := fmt.Errorf("%w: %q, must be of the form <init>-<end>:<step>, e.g. 0-1000000:1000", ErrBadRange, s)
	invalid := func(c rune) bool { return !strings.ContainsRune("0123456789-:", c) }
	if strings.IndexFunc(s, invalid) >= 0 || strings.Count(s, "-") != 1 || strings.Count(s, ":") != 1 {
		return r, syntax
	}
	init, rest, _ := strings.Cut(s, "-")
	end, step, ok := strings.Cut(rest, ":")
	if !ok {
		return r, syntax
	}
	var err error
	for _, v := range []struct {
		s string
		d *int
	}{{init, &r.Init}, {end, &r.End}, {step, &r.Step}} {
		*v.d, err = strconv.Atoi(v.s)
		if err != nil {
			return r, syntax
		}
	}
	return r, r.Check()
}
