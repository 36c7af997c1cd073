/*
 * selection.go, part of mdpat.
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
	"slices"
)

//Selection chooses the atoms and columns of the frames that go into a trajectory.
//Atoms are placed by their id, so atom i of every frame is the one with id i+1,
//no matter the order of the lines in the file. Without an "id" column,
//the file order is used.
//
//The first frame given to a Selection fixes the columns and, if Type
//is set, which atoms are kept, so a Selection can only be used with one
//set of frames with the same atoms. This assumes that the atom types do not change.
type Selection struct {
	Columns []string //labels of the columns to keep, in order. If empty, all but "id" are kept.
	Type    int      //if > 0, only atoms with this value in the "type" column are kept.

	ready  bool
	natoms int   //atoms in each frame
	kept   int   //atoms kept
	cols   []int //index of each kept column
	labels []string
	slot   []int //position of the atom with id i+1 among the kept ones, or -1.
}

//NewSelection returns a Selection keeping the given columns.
func NewSelection(columns ...string) *Selection {
	return &Selection{Columns: columns}
}

//Labels returns the labels of the kept columns. Only valid after the first frame.
func (S *Selection) Labels() []string { return slices.Clone(S.labels) }

//Atoms returns the number of kept atoms. Only valid after the first frame.
func (S *Selection) Atoms() int { return S.kept }

//Width returns the number of values kept per frame. Only valid after the first frame.
func (S *Selection) Width() int { return S.kept * len(S.cols) }

func (S *Selection) setup(F *Frame, name string) error {
	id := slices.Index(F.Labels, "id")
	if len(S.Columns) == 0 {
		for i, l := range F.Labels {
			if i != id {
				S.cols = append(S.cols, i)
				S.labels = append(S.labels, l)
			}
		}
		if F.Labels == nil {
			for i := range F.Cols() {
				S.cols = append(S.cols, i)
				S.labels = append(S.labels, fmt.Sprintf("c_%d", i+1))
			}
		}
	} else {
		for _, c := range S.Columns {
			i := slices.Index(F.Labels, c)
			if i < 0 {
				return newError(MissingColumn, name, "Selection.setup", fmt.Errorf("%q not in %v", c, F.Labels))
			}
			S.cols = append(S.cols, i)
			S.labels = append(S.labels, c)
		}
	}
	S.natoms = F.NAtoms
	S.slot = make([]int, F.NAtoms)
	S.kept = F.NAtoms
	for i := range S.slot {
		S.slot[i] = i
	}
	if S.Type > 0 {
		t := slices.Index(F.Labels, "type")
		if t < 0 {
			return newError(MissingColumn, name, "Selection.setup", fmt.Errorf("no type column to select type %d", S.Type))
		}
		types := make([]int, F.NAtoms)
		nc := F.Cols()
		for r := range F.NAtoms {
			i, err := S.id(F, r, id, name)
			if err != nil {
				return err
			}
			types[i] = int(F.Values[r*nc+t] + 0.5)
		}
		S.kept = 0
		for i, v := range types {
			S.slot[i] = -1
			if v == S.Type {
				S.slot[i] = S.kept
				S.kept++
			}
		}
	}
	S.ready = true
	return nil
}

//id returns the 0-based index of the atom in row r of F.
func (S *Selection) id(F *Frame, r, idcol int, name string) (int, error) {
	if idcol < 0 {
		return r, nil
	}
	v := F.Values[r*F.Cols()+idcol]
	i := int(v) - 1
	if float64(i+1) != v || i < 0 || i >= F.NAtoms {
		return 0, newError(BadAtomID, name, "Selection", fmt.Errorf("id %v in timestep %d, with %d atoms", v, F.Timestep, F.NAtoms))
	}
	return i, nil
}

//Apply puts the selected values of F in dst, which must have room for Width() values,
//as an atoms x columns row-major matrix. The first call sets the Selection up, and
//dst can be nil then, in which case a new slice is returned.
func (S *Selection) Apply(F *Frame, dst []float64, name string) ([]float64, error) {
	if !S.ready {
		if err := S.setup(F, name); err != nil {
			return nil, err
		}
	}
	if F.NAtoms != S.natoms {
		return nil, newError(WrongFormat, name, "Selection.Apply", fmt.Errorf("timestep %d has %d atoms, expected %d", F.Timestep, F.NAtoms, S.natoms))
	}
	if len(F.Values) != F.NAtoms*F.Cols() {
		return nil, newError(WrongFormat, name, "Selection.Apply", fmt.Errorf("timestep %d was skipped, not read", F.Timestep))
	}
	for _, c := range S.cols {
		if c >= F.Cols() {
			return nil, newError(MissingColumn, name, "Selection.Apply", fmt.Errorf("timestep %d has %d columns", F.Timestep, F.Cols()))
		}
	}
	if dst == nil {
		dst = make([]float64, S.Width())
	}
	if len(dst) != S.Width() {
		return nil, fmt.Errorf("dump: destination of %d values for %d", len(dst), S.Width())
	}
	idcol := slices.Index(F.Labels, "id")
	nc, w := F.Cols(), len(S.cols)
	for r := range F.NAtoms {
		i, err := S.id(F, r, idcol, name)
		if err != nil {
			return nil, err
		}
		s := S.slot[i]
		if s < 0 {
			continue
		}
		row := F.Values[r*nc : (r+1)*nc]
		for j, c := range S.cols {
			dst[s*w+j] = row[c]
		}
	}
	return dst, nil
}
