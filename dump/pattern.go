/*
 * pattern.go, part of mdpat.
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

//Pattern is a dump file name. If it contains a printf-like integer verb,
//such as %d or %09d, it names one file per timestep, with the timestep
//replacing the verb. Otherwise it names a single file with all the timesteps.
type Pattern struct {
	prefix, suffix string
	width          int
	fill           bool
	perStep        bool
}

//ParsePattern checks and parses a dump file name pattern.
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	start := strings.IndexByte(s, '%')
	if start < 0 {
		p.prefix = s
		return p, nil
	}
	end := strings.IndexAny(s[start+1:], "dDiI")
	if end < 0 {
		return p, fmt.Errorf("%w: %q has no integer verb", ErrBadPattern, s)
	}
	end += start + 1
	flags := s[start+1 : end]
	if strings.IndexFunc(flags, func(c rune) bool { return c < '0' || c > '9' }) >= 0 {
		return p, fmt.Errorf("%w: %q, only a width is allowed in the verb", ErrBadPattern, s)
	}
	if strings.IndexByte(s[end+1:], '%') >= 0 {
		return p, fmt.Errorf("%w: %q has more than one verb", ErrBadPattern, s)
	}
	if flags != "" {
		p.fill = flags[0] == '0'
		p.width, _ = strconv.Atoi(flags)
	}
	p.prefix, p.suffix = s[:start], s[end+1:]
	p.perStep = true
	return p, nil
}

//PerStep returns true if the pattern names one file per timestep.
func (P Pattern) PerStep() bool { return P.perStep }

//Name returns the file name for the given timestep.
func (P Pattern) Name(timestep int) string {
	if !P.perStep {
		return P.prefix
	}
	n := strconv.Itoa(timestep)
	if pad := P.width - len(n); pad > 0 {
		c := " "
		if P.fill {
			c = "0"
		}
		n = strings.Repeat(c, pad) + n
	}
	return P.prefix + n + P.suffix
}

//Names returns the file names for the timesteps of r. A pattern with no verb
//gives a single name.
func (P Pattern) Names(r StepRange) []string {
	if !P.perStep {
		return []string{P.prefix}
	}
	ret := make([]string, 0, r.Len())
	for _, s := range r.Steps() {
		ret = append(ret, P.Name(s))
	}
	return ret
}

func (P Pattern) String() string {
	if !P.perStep {
		return P.prefix
	}
	f := ""
	if P.fill {
		f = "0"
	}
	if P.width > 0 {
		f += strconv.Itoa(P.width)
	}
	return P.prefix + "%" + f + "d" + P.suffix
}
