/*
 * staged.go, part of mdpat.
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

package redist

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"

	"github.com/rmera/mdpat/comm"
	"github.com/rmera/mdpat/decomp"
)

const readBuffer = 1 << 16

//Staged redistributes through a file that every rank can read and write.
//The ranks append their slabs to the file in rank order, after a header
//written by comm.Root, and then each rank streams the whole file keeping
//only the elements that belong to it in the new layout.
//
//The file is written only once: later calls read the same file, choosing
//the layout from the axis tags, until Reset is called. This means that
//the data of the slab is ignored in those calls, so Reset must be called
//whenever the data changes. Staged needs 3 axes, tagged with 3 different
//tags. A Staged value belongs to one rank.
type Staged struct {
	Path    string
	written bool
}

//NewStaged returns a Staged strategy that uses the file at path.
func NewStaged(path string) *Staged {
	return &Staged{Path: path}
}

//Written returns true if the file holds a dataset that the next call will reuse.
func (S *Staged) Written() bool {
	return S.written
}

//Reset forgets the file, removing it in comm.Root. It does not communicate.
func (S *Staged) Reset(c comm.Comm) error {
	S.written = false
	if c.Rank() != comm.Root {
		return nil
	}
	err := os.Remove(S.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (S *Staged) Redistribute(c comm.Comm, s *Slab, order []int) error {
	if err := s.check(order); err != nil {
		return err
	}
	if len(s.Local) != 3 {
		return fmt.Errorf("%w: got %d", ErrAxes, len(s.Local))
	}
	if err := checkTags(s.Tags); err != nil {
		return err
	}
	if order[0] == 0 {
		return s.local(order)
	}
	if !S.written {
		l, err := gatherLayout(c, s)
		if err != nil {
			return err
		}
		if err := S.write(c, s, l); err != nil {
			return err
		}
		S.written = true
	}
	tags := reorderTags(s.Tags, order)
	data, local, global, err := S.read(c, tags)
	if err != nil {
		return c.Abort(err)
	}
	//the file must stay in place until everybody is done with it.
	if err := c.Barrier(); err != nil {
		return err
	}
	s.Data = data
	s.Local = local
	s.Tags = tags
	s.Global = global
	return nil
}

func checkTags(tags []byte) error {
	if len(tags) != 3 {
		return fmt.Errorf("%w: need 3, got %d", ErrTags, len(tags))
	}
	if tags[0] == tags[1] || tags[0] == tags[2] || tags[1] == tags[2] {
		return fmt.Errorf("%w: repeated tag in %q", ErrTags, tags)
	}
	return nil
}

//write appends the slabs to the file in rank order. The token passed from
//each rank to the next is the file size after its write.
func (S *Staged) write(c comm.Comm, s *Slab, l *layout) error {
	rank, size := c.Rank(), c.Size()
	token := []int{0}
	var f *os.File
	var err error
	if rank == comm.Root {
		f, err = os.Create(S.Path)
		if err != nil {
			return c.Abort(err)
		}
		h := header{nprocs: int32(size)}
		copy(h.tags[:], s.Tags)
		for i, v := range l.global {
			h.dims[i] = uint64(v)
		}
		if err = h.write(f); err != nil {
			f.Close()
			return c.Abort(err)
		}
	} else {
		if err := c.Recv(token, rank-1); err != nil {
			return err
		}
		f, err = os.OpenFile(S.Path, os.O_WRONLY|os.O_APPEND, 0)
		if err != nil {
			return c.Abort(err)
		}
		if info, err := f.Stat(); err != nil || info.Size() != int64(token[0]) {
			f.Close()
			if err == nil {
				err = fmt.Errorf("redist: %s has %d bytes, rank %d expected %d", S.Path, info.Size(), rank, token[0])
			}
			return c.Abort(err)
		}
	}
	if err := writeFloats(f, s.Data); err != nil {
		f.Close()
		return c.Abort(err)
	}
	info, err := f.Stat()
	if err == nil {
		err = f.Close()
	} else {
		f.Close()
	}
	if err != nil {
		return c.Abort(err)
	}
	if rank+1 < size {
		token[0] = int(info.Size())
		if err := c.Send(token, rank+1); err != nil {
			return err
		}
	}
	return c.Barrier()
}

func writeFloats(w io.Writer, data []float64) error {
	bw := bufio.NewWriter(w)
	var b [8]byte
	for _, v := range data {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		if _, err := bw.Write(b[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

//read streams the file and returns this rank's part of the array with its axes
//in the order given by tags, along with its local and global lengths.
func (S *Staged) read(c comm.Comm, tags []byte) ([]float64, []int, []int, error) {
	f, err := os.Open(S.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()
	r := bufio.NewReaderSize(f, readBuffer)
	h, err := readHeader(r)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", S.Path, err)
	}
	old, err := h.axisMap(tags)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", S.Path, err)
	}
	var dims [3]int
	for i, v := range h.dims {
		if v > math.MaxInt32 {
			return nil, nil, nil, fmt.Errorf("%s: %w: axis %d has length %d", S.Path, ErrTooLarge, i, v)
		}
		dims[i] = int(v)
	}
	if dims[0] > 0 && dims[1] > 0 && dims[2] > math.MaxInt/8/dims[0]/dims[1] {
		return nil, nil, nil, fmt.Errorf("%s: %w: axis lengths %v", S.Path, ErrTooLarge, dims)
	}
	total := dims[0] * dims[1] * dims[2]
	if info, err := f.Stat(); err == nil && info.Size() < int64(headerSize)+8*int64(total) {
		return nil, nil, nil, fmt.Errorf("%s: %w: %d bytes, the header announces %d elements", S.Path, ErrTruncated, info.Size(), total)
	}
	global := [3]int{dims[old[0]], dims[old[1]], dims[old[2]]}
	off, length, err := decomp.Split(global[0], c.Rank(), c.Size())
	if err != nil {
		return nil, nil, nil, err
	}
	data := make([]float64, length*global[1]*global[2])
	p := old[0]
	var idx [3]int
	var b [8]byte
	read := 0
	mine := func() bool { return idx[p] >= off && idx[p] < off+length }
	for idx[0] = 0; idx[0] < dims[0]; idx[0]++ {
		for idx[1] = 0; idx[1] < dims[1]; idx[1]++ {
			//when the new partitioned axis is not the stored fastest one,
			//a whole row is either ours or not.
			if p != 2 && !mine() {
				if _, err := r.Discard(8 * dims[2]); err != nil {
					return nil, nil, nil, truncated(S.Path, read, total, err)
				}
				read += dims[2]
				continue
			}
			for idx[2] = 0; idx[2] < dims[2]; idx[2]++ {
				if !mine() {
					if _, err := r.Discard(8); err != nil {
						return nil, nil, nil, truncated(S.Path, read, total, err)
					}
					read++
					continue
				}
				if _, err := io.ReadFull(r, b[:]); err != nil {
					return nil, nil, nil, truncated(S.Path, read, total, err)
				}
				dst := ((idx[old[0]]-off)*global[1]+idx[old[1]])*global[2] + idx[old[2]]
				data[dst] = math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
				read++
			}
		}
	}
	return data, []int{length, global[1], global[2]}, global[:], nil
}

func truncated(name string, read, total int, err error) error {
	return fmt.Errorf("%s: %w after %d of %d elements: %v", name, ErrTruncated, read, total, err)
}
