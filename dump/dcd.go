/*
 * dcd.go, part of mdpat.
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

const dcdTitle = 80

//dcdName returns true if name, without a compression suffix, is a DCD trajectory.
func dcdName(name string) bool {
	_, base := compression(name)
	return strings.HasSuffix(strings.ToLower(base), ".dcd")
}

//dcdReader reads CHARMM-style DCD trajectories, such as the ones written by
//LAMMPS' dump dcd. Both byte orders are supported. X-plor files and fixed atoms are not.
type dcdReader struct {
	r       *bufio.Reader
	order   binary.ByteOrder
	natoms  int
	start   int //timestep of the first frame
	every   int //timesteps between frames
	cell    bool
	fourdim bool
	frames  int //frames read so far
	xyz     [3][]float32
}

//marker reads a record marker.
func (D *dcdReader) marker() (int, error) {
	var m int32
	err := binary.Read(D.r, D.order, &m)
	return int(m), err
}

//record reads a whole Fortran record into dst, which must be exactly as long as the record.
func (D *dcdReader) record(dst any) error {
	size, err := D.marker()
	if err != nil {
		return err
	}
	if want := binary.Size(dst); size != want {
		return fmt.Errorf("record of %d bytes, expected %d", size, want)
	}
	if err := binary.Read(D.r, D.order, dst); err != nil {
		return err
	}
	end, err := D.marker()
	if err != nil {
		return err
	}
	if end != size {
		return fmt.Errorf("record closed with %d, opened with %d", end, size)
	}
	return nil
}

//skip discards a record of any size.
func (D *dcdReader) skip() error {
	size, err := D.marker()
	if err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("record of %d bytes", size)
	}
	if _, err := D.r.Discard(size); err != nil {
		return err
	}
	end, err := D.marker()
	if err == nil && end != size {
		err = fmt.Errorf("record closed with %d, opened with %d", end, size)
	}
	return err
}

//newDCD reads the header of a DCD trajectory.
func newDCD(r *bufio.Reader, name string) (*dcdReader, error) {
	D := &dcdReader{r: r, order: binary.LittleEndian}
	head, err := r.Peek(8)
	if err != nil {
		return nil, newError(WrongFormat, name, "newDCD", noEOF(err))
	}
	//The first record is 84 bytes long. If the marker doesn't read 84, the file is big-endian.
	if binary.LittleEndian.Uint32(head) != 84 {
		D.order = binary.BigEndian
		if binary.BigEndian.Uint32(head) != 84 {
			return nil, newError(WrongFormat, name, "newDCD", fmt.Errorf("not a DCD file"))
		}
	}
	if string(head[4:8]) != "CORD" {
		return nil, newError(WrongFormat, name, "newDCD", fmt.Errorf("wrong magic number %q", head[4:8]))
	}
	var first struct {
		Magic [4]byte
		Ctrl  [20]int32
	}
	if err := D.record(&first); err != nil {
		return nil, newError(WrongFormat, name, "newDCD", noEOF(err))
	}
	ctrl := first.Ctrl
	//X-plor sets the last value to zero, CHARMM to its version number.
	if ctrl[19] == 0 {
		return nil, newError(WrongFormat, name, "newDCD", fmt.Errorf("X-plor DCD not supported"))
	}
	if ctrl[8] != 0 {
		return nil, newError(WrongFormat, name, "newDCD", fmt.Errorf("%d fixed atoms, not supported", ctrl[8]))
	}
	D.start, D.every = int(ctrl[1]), int(ctrl[2])
	D.cell = ctrl[10] != 0
	D.fourdim = ctrl[11] == 1
	//titles
	size, err := D.marker()
	if err == nil && (size < 4 || (size-4)%dcdTitle != 0) {
		err = fmt.Errorf("title record of %d bytes", size)
	}
	if err == nil {
		_, err = D.r.Discard(size)
	}
	if err == nil {
		var end int
		if end, err = D.marker(); err == nil && end != size {
			err = fmt.Errorf("title record closed with %d, opened with %d", end, size)
		}
	}
	var natoms int32
	if err == nil {
		err = D.record(&natoms)
	}
	if err != nil {
		return nil, newError(WrongFormat, name, "newDCD", noEOF(err))
	}
	if natoms < 0 || tooLarge(int(natoms), 3) {
		return nil, newError(WrongFormat, name, "newDCD", fmt.Errorf("%d atoms", natoms))
	}
	D.natoms = int(natoms)
	for i := range D.xyz {
		D.xyz[i] = make([]float32, D.natoms)
	}
	return D, nil
}

//next reads a frame. The coordinates are only kept if want is true for the timestep.
func (D *dcdReader) next(name string, want func(int) bool) (*Frame, error) {
	if _, err := D.r.Peek(1); err == io.EOF {
		return nil, io.EOF
	}
	F := &Frame{
		Timestep: D.start + D.frames*D.every,
		NAtoms:   D.natoms,
		Labels:   []string{"x", "y", "z"},
		ncols:    3,
	}
	var err error
	if D.cell {
		//a, cos(gamma), b, cos(beta), cos(alpha), c
		var cell [6]float64
		if err = D.record(&cell); err == nil {
			F.Box = mat.NewDense(3, 2, []float64{0, cell[0], 0, cell[2], 0, cell[5]})
		}
	}
	keep := want(F.Timestep)
	for i := 0; i < 3 && err == nil; i++ {
		if keep {
			err = D.record(D.xyz[i])
		} else {
			err = D.skip()
		}
	}
	if err == nil && D.fourdim {
		err = D.skip()
	}
	if err != nil {
		return nil, newError(WrongFormat, name, "dcd", fmt.Errorf("frame %d: %w", D.frames, noEOF(err)))
	}
	D.frames++
	if keep {
		F.Values = make([]float64, 3*D.natoms)
		for i := range D.natoms {
			for j := range 3 {
				F.Values[3*i+j] = float64(D.xyz[j][i])
			}
		}
	}
	return F, nil
}
