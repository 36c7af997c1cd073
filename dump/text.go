/*
 * text.go, part of mdpat.
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
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//lineReader reads trimmed lines and allows to put one back.
type lineReader struct {
	r       *bufio.Reader
	pending string
	back    bool
	n       int
}

//next returns the next line. io.EOF is only returned if there is nothing left.
func (L *lineReader) next() (string, error) {
	if L.back {
		L.back = false
		return L.pending, nil
	}
	line, err := L.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	L.n++
	L.pending = strings.TrimSpace(line)
	return L.pending, nil
}

func (L *lineReader) unread() {
	L.back = true
}

//item returns the text after "ITEM:" in the next non-empty line.
func (L *lineReader) item() (string, error) {
	for {
		line, err := L.next()
		if err != nil {
			return "", err
		}
		if line == "" {
			continue
		}
		rest, ok := strings.CutPrefix(line, "ITEM:")
		if !ok {
			return "", fmt.Errorf("line %d: expected an ITEM: line, found %q", L.n, line)
		}
		return strings.TrimSpace(rest), nil
	}
}

func (L *lineReader) ints(n int) ([]int, error) {
	line, err := L.next()
	if err != nil {
		return nil, noEOF(err)
	}
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, fmt.Errorf("line %d: expected %d values, found %q", L.n, n, line)
	}
	ret := make([]int, n)
	for i, v := range fields {
		ret[i], err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", L.n, err)
		}
	}
	return ret, nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

//nextText reads a text frame. The atom lines are skipped if want is false for the timestep.
func nextText(L *lineReader, name string, want func(int) bool) (*Frame, error) {
	F := &Frame{Timestep: -1, NAtoms: -1}
	first := true
	for {
		item, err := L.item()
		if err == io.EOF && first {
			return nil, io.EOF
		}
		if err != nil {
			return nil, newError(WrongFormat, name, "nextText", noEOF(err))
		}
		first = false
		switch {
		case item == "TIMESTEP":
			v, err := L.ints(1)
			if err != nil {
				return nil, newError(WrongFormat, name, "nextText", err)
			}
			F.Timestep = v[0]
		case item == "NUMBER OF ATOMS":
			v, err := L.ints(1)
			if err != nil {
				return nil, newError(WrongFormat, name, "nextText", err)
			}
			F.NAtoms = v[0]
		case strings.HasPrefix(item, "BOX BOUNDS"):
			if F.Box, err = readBox(L, strings.Contains(item, "xy")); err != nil {
				return nil, newError(WrongFormat, name, "nextText", err)
			}
		case strings.HasPrefix(item, "ATOMS"):
			F.Labels = strings.Fields(item)[1:]
			F.ncols = len(F.Labels)
			if F.NAtoms < 0 || F.Timestep < 0 {
				return nil, newError(WrongFormat, name, "nextText", fmt.Errorf("line %d: atoms before the timestep or the number of atoms", L.n))
			}
			if tooLarge(F.NAtoms, F.ncols) {
				return nil, newError(WrongFormat, name, "nextText", fmt.Errorf("line %d: %d atoms with %d columns", L.n, F.NAtoms, F.ncols))
			}
			if err := readAtoms(L, F, want(F.Timestep)); err != nil {
				return nil, newError(WrongFormat, name, "nextText", err)
			}
			return F, nil
		default:
			//sections we don't use, like UNITS or TIME.
			for {
				line, err := L.next()
				if err != nil {
					return nil, newError(WrongFormat, name, "nextText", noEOF(err))
				}
				if strings.HasPrefix(line, "ITEM:") {
					L.unread()
					break
				}
			}
		}
	}
}

func readBox(L *lineReader, triclinic bool) (*mat.Dense, error) {
	cols := 2
	if triclinic {
		cols = 3
	}
	box := mat.NewDense(3, cols, nil)
	for i := range 3 {
		line, err := L.next()
		if err != nil {
			return nil, noEOF(err)
		}
		fields := strings.Fields(line)
		if len(fields) != cols {
			return nil, fmt.Errorf("line %d: expected %d box values, found %q", L.n, cols, line)
		}
		for j, v := range fields {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", L.n, err)
			}
			box.Set(i, j, f)
		}
	}
	return box, nil
}

func readAtoms(L *lineReader, F *Frame, keep bool) error {
	nc := len(F.Labels)
	if keep {
		F.Values = make([]float64, 0, F.NAtoms*nc)
	}
	for range F.NAtoms {
		line, err := L.next()
		if err != nil {
			return noEOF(err)
		}
		if !keep {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != nc {
			return fmt.Errorf("line %d: expected %d columns, found %d", L.n, nc, len(fields))
		}
		for _, v := range fields {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				f = math.NaN()
			}
			F.Values = append(F.Values, f)
		}
	}
	return nil
}
