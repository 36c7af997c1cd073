/*
 * writer.go, part of mdpat.
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

	"github.com/rmera/mdpat"
	"gonum.org/v1/gonum/mat"
)

//Writer writes text dumps, compressed if the name ends in .gz or .zst.
type Writer struct {
	t      *target
	name   string
	labels []string
	Box    *mat.Dense //3x2 lo, hi box. If nil, a unit box is written.
}

//Create creates the dump name. labels are the labels of the columns of the frames to write.
func Create(name string, labels []string) (*Writer, error) {
	t, err := create(name)
	if err != nil {
		return nil, err
	}
	return &Writer{t: t, name: name, labels: labels}, nil
}

//WriteFrame writes an atoms x columns matrix as the frame for timestep. The atoms get ids
//from 1, in order.
func (W *Writer) WriteFrame(timestep int, m mat.Matrix) error {
	r, c := m.Dims()
	if c != len(W.labels) {
		return newError(UnableToWrite, W.name, "WriteFrame", fmt.Errorf("%d columns, %d labels", c, len(W.labels)))
	}
	w := W.t.Writer
	fmt.Fprintf(w, "ITEM: TIMESTEP\n%d\nITEM: NUMBER OF ATOMS\n%d\nITEM: BOX BOUNDS pp pp pp\n", timestep, r)
	for i := range 3 {
		lo, hi := 0.0, 1.0
		if W.Box != nil {
			lo, hi = W.Box.At(i, 0), W.Box.At(i, 1)
		}
		fmt.Fprintf(w, "%s %s\n", ftoa(lo), ftoa(hi))
	}
	fmt.Fprintf(w, "ITEM: ATOMS id %s\n", strings.Join(W.labels, " "))
	row := make([]string, c+1)
	for i := range r {
		row[0] = strconv.Itoa(i + 1)
		for j := range c {
			row[j+1] = ftoa(m.At(i, j))
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, " ")); err != nil {
			return newError(UnableToWrite, W.name, "WriteFrame", err)
		}
	}
	return nil
}

//Close flushes and closes the file.
func (W *Writer) Close() error {
	if err := W.t.Close(); err != nil {
		return newError(UnableToWrite, W.name, "Close", err)
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

//WriteTrajectory writes each frame of T to its own text dump, named from pattern and
//the timestep of the frame. It leaves T in the (F, A, P) order. All the ranks
//must call it together, and each writes its own frames.
func WriteTrajectory(T *mdpat.Trajectory, pattern string) error {
	p, err := ParsePattern(pattern)
	if err != nil {
		return err
	}
	if !p.PerStep() {
		return fmt.Errorf("%w: %q names a single file, one per timestep is needed", ErrBadPattern, pattern)
	}
	if err := T.SetAxisOrder(mdpat.FAP); err != nil {
		return err
	}
	c := T.Comm()
	steps, off := T.Steps(), T.Offset()
	labels := T.Columns()
	if labels == nil {
		for i := range T.Global()[2] {
			labels = append(labels, fmt.Sprintf("c_%d", i+1))
		}
	}
	for i := range T.Len() {
		step := off + i
		if steps != nil {
			step = steps[off+i]
		}
		if err := writeOne(T, i, p.Name(step), step, labels); err != nil {
			return c.Abort(err)
		}
	}
	return c.Barrier()
}

func writeOne(T mdpat.Framer, i int, name string, step int, labels []string) error {
	m, err := T.Frame(i)
	if err != nil {
		return err
	}
	W, err := Create(name, labels)
	if err != nil {
		return err
	}
	if err := W.WriteFrame(step, m); err != nil {
		W.Close()
		return err
	}
	return W.Close()
}
