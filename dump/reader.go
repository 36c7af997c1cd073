/*
 * reader.go, part of mdpat.
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

/*Package dump reads and writes LAMMPS dump files, and loads them into an mdpat.Trajectory.

Both the text format (dump atom/custom) and the native binary format are read,
as well as the DCD trajectories of dump dcd. Files ending in .bin are taken as
binary dumps, files ending in .dcd as DCD trajectories, anything else as text dumps.
A further .gz or .zst suffix means the file is compressed with gzip or zstd.*/
package dump

import (
	"io"

	"gonum.org/v1/gonum/mat"
)

//Frame is one snapshot of a dump, as it is in the file.
type Frame struct {
	Timestep int
	NAtoms   int
	Box      *mat.Dense //one row per dimension: lo, hi and, for triclinic boxes, the tilt factor.
	Labels   []string   //column labels. Binary dumps without labels leave it nil.
	Values   []float64  //NAtoms rows of Cols() values, in file order. Non-numeric fields are NaN.
	ncols    int
}

//Cols returns the number of columns of the frame.
func (F *Frame) Cols() int {
	return F.ncols
}

//Reader reads the frames of a dump file in sequence.
type Reader struct {
	src    *source
	name   string
	binary bool
	lines  *lineReader
	dcd    *dcdReader
}

//Open opens the dump name for reading.
func Open(name string) (*Reader, error) {
	src, err := open(name)
	if err != nil {
		return nil, err
	}
	R := &Reader{src: src, name: name, binary: binaryName(name)}
	switch {
	case dcdName(name):
		if R.dcd, err = newDCD(src.Reader, name); err != nil {
			src.Close()
			return nil, err
		}
	case !R.binary:
		R.lines = &lineReader{r: src.Reader}
	}
	return R, nil
}

//Name returns the name of the file being read.
func (R *Reader) Name() string { return R.name }

//Next reads the next frame. It returns io.EOF, unwrapped, when there are no more frames.
func (R *Reader) Next() (*Frame, error) {
	return R.NextIf(nil)
}

//NextIf reads the next frame, but only parses its atoms if want returns
//true for its timestep. Otherwise the Values of the frame are nil.
//A nil want is always true.
func (R *Reader) NextIf(want func(timestep int) bool) (*Frame, error) {
	if want == nil {
		want = func(int) bool { return true }
	}
	if R.dcd != nil {
		return R.dcd.next(R.name, want)
	}
	if R.binary {
		return nextBinary(R.src.Reader, R.name, want)
	}
	return nextText(R.lines, R.name, want)
}

//Close closes the file.
func (R *Reader) Close() error {
	return R.src.Close()
}

//ReadAll reads all the frames in the file name.
func ReadAll(name string) ([]*Frame, error) {
	R, err := Open(name)
	if err != nil {
		return nil, err
	}
	defer R.Close()
	var ret []*Frame
	for {
		f, err := R.Next()
		if err == io.EOF {
			return ret, nil
		}
		if err != nil {
			return ret, err
		}
		ret = append(ret, f)
	}
}
