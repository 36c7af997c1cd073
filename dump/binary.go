/*
 * binary.go, part of mdpat.
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
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//LAMMPS writes binary dumps in the byte order of the machine; only little-endian ones are read.
var order = binary.LittleEndian

//limits for the sizes read from a dump, so a corrupt file fails instead of allocating.
const (
	maxString = 1 << 20
	maxChunk  = 1 << 31
)

//tooLarge returns true if a frame of natoms atoms with ncols values each
//would take more than maxChunk bytes.
func tooLarge(natoms, ncols int) bool {
	return natoms > maxChunk/8 || ncols > maxChunk/8 || (ncols > 0 && natoms > maxChunk/8/ncols)
}

//binReader reads the fields of a binary dump, keeping the first error.
type binReader struct {
	r   *bufio.Reader
	err error
}

func (b *binReader) read(v any) {
	if b.err != nil {
		return
	}
	b.err = binary.Read(b.r, order, v)
}

func (b *binReader) i32() int {
	var v int32
	b.read(&v)
	return int(v)
}

func (b *binReader) i64() int64 {
	var v int64
	b.read(&v)
	return v
}

func (b *binReader) str(n int) string {
	if b.err != nil {
		return ""
	}
	if n < 0 || n > maxString {
		b.err = fmt.Errorf("string of length %d", n)
		return ""
	}
	s := make([]byte, n)
	_, b.err = io.ReadFull(b.r, s)
	return string(s)
}

//nextBinary reads a frame of a LAMMPS binary dump. Both the old format and
//the newer one, with a magic string, units and column labels, are supported.
func nextBinary(r *bufio.Reader, name string, want func(int) bool) (*Frame, error) {
	if _, err := r.Peek(1); err == io.EOF {
		return nil, io.EOF
	}
	b := &binReader{r: r}
	F := new(Frame)
	step := b.i64()
	revision := 1
	magic := false
	if step < 0 {
		magic = true
		b.str(int(-step)) //the magic string itself
		if endian := b.i32(); b.err == nil && endian != 1 {
			return nil, newError(WrongFormat, name, "nextBinary", fmt.Errorf("big-endian dump"))
		}
		revision = b.i32()
		step = b.i64()
	}
	F.Timestep = int(step)
	F.NAtoms = int(b.i64())
	triclinic := b.i32() != 0
	var boundary [6]int32
	b.read(&boundary)
	var box [6]float64
	b.read(&box)
	cols := 2
	if triclinic {
		cols = 3
	}
	F.Box = mat.NewDense(3, cols, nil)
	for i := range 3 {
		F.Box.Set(i, 0, box[2*i])
		F.Box.Set(i, 1, box[2*i+1])
	}
	if triclinic {
		var tilt [3]float64
		b.read(&tilt)
		for i, v := range tilt {
			F.Box.Set(i, 2, v)
		}
	}
	ncols := b.i32()
	if magic && revision > 1 {
		b.str(b.i32()) //units
		var hasTime byte
		b.read(&hasTime)
		if hasTime != 0 {
			var t float64
			b.read(&t)
		}
		F.Labels = strings.Fields(b.str(b.i32()))
	}
	nchunk := b.i32()
	if b.err != nil {
		return nil, newError(WrongFormat, name, "nextBinary", noEOF(b.err))
	}
	if F.NAtoms < 0 || ncols < 0 || nchunk < 0 || tooLarge(F.NAtoms, ncols) || (F.Labels != nil && len(F.Labels) != ncols) {
		return nil, newError(WrongFormat, name, "nextBinary", fmt.Errorf("%d atoms, %d columns, %d labels, %d chunks", F.NAtoms, ncols, len(F.Labels), nchunk))
	}
	keep := want(F.Timestep)
	if keep {
		F.Values = make([]float64, 0, F.NAtoms*ncols)
	}
	for range nchunk {
		n := b.i32()
		if b.err == nil && (n < 0 || n > maxChunk/8) {
			b.err = fmt.Errorf("chunk of %d values", n)
		}
		if b.err != nil {
			break
		}
		if !keep {
			_, b.err = r.Discard(8 * n)
			continue
		}
		buf := make([]float64, n)
		b.read(buf)
		F.Values = append(F.Values, buf...)
	}
	if b.err != nil {
		return nil, newError(WrongFormat, name, "nextBinary", noEOF(b.err))
	}
	if keep && len(F.Values) != F.NAtoms*ncols {
		return nil, newError(WrongFormat, name, "nextBinary", fmt.Errorf("%d values for %d atoms and %d columns", len(F.Values), F.NAtoms, ncols))
	}
	F.ncols = ncols
	return F, nil
}
