/*
 * redist_test.go, part of mdpat.
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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rmera/mdpat/comm"
	"github.com/rmera/mdpat/decomp"
	"github.com/rmera/mdpat/permute"
)

//slab returns rank's part of the array of the given global lengths, where
//element i holds the value i, split along axis 0 with decomp.Split.
func slab(global []int, rank, nprocs int, tags string) (*Slab, error) {
	off, length, err := decomp.Split(global[0], rank, nprocs)
	if err != nil {
		return nil, err
	}
	stride := permute.Product(global[1:])
	data := make([]float64, length*stride)
	for i := range data {
		data[i] = float64(off*stride + i)
	}
	local := append([]int{length}, global[1:]...)
	return &Slab{Data: data, Local: local, Tags: []byte(tags)}, nil
}

//run redistributes the array of the given global lengths in nprocs ranks and returns each rank's slab.
func run(nprocs int, global, order []int, tags string, strategy func() Strategy) ([]*Slab, error) {
	ret := make([]*Slab, nprocs)
	err := comm.Run(nprocs, func(c comm.Comm) error {
		s, err := slab(global, c.Rank(), nprocs, tags)
		if err != nil {
			return err
		}
		if err := strategy().Redistribute(c, s, order); err != nil {
			return err
		}
		ret[c.Rank()] = s
		return nil
	})
	return ret, err
}

//the whole array, as it would be after permuting it in one piece.
func expected(global, order []int) []float64 {
	all := make([]float64, permute.Product(global))
	for i := range all {
		all[i] = float64(i)
	}
	permute.Dims(&all, global, order)
	return all
}

func concat(slabs []*Slab) []float64 {
	var ret []float64
	for _, s := range slabs {
		ret = append(ret, s.Data...)
	}
	return ret
}

func TestTwoRanks2D(Te *testing.T) {
	slabs, err := run(2, []int{2, 4}, []int{1, 0}, "", func() Strategy { return InMemory{} })
	if err != nil {
		Te.Fatal(err)
	}
	if !slices.Equal(slabs[0].Data, []float64{0, 4, 1, 5}) || !slices.Equal(slabs[1].Data, []float64{2, 6, 3, 7}) {
		Te.Errorf("got %v and %v", slabs[0].Data, slabs[1].Data)
	}
	for i, s := range slabs {
		if !slices.Equal(s.Local, []int{2, 2}) {
			Te.Errorf("rank %d local lengths %v", i, s.Local)
		}
	}
}

//Uneven splits in both the old and the new partitioned axis.
func TestInMemory3D(Te *testing.T) {
	global := []int{5, 3, 7}
	for _, order := range [][]int{{1, 0, 2}, {2, 1, 0}, {2, 0, 1}, {1, 2, 0}} {
		for _, np := range []int{1, 2, 3, 4} {
			slabs, err := run(np, global, order, "FAP", func() Strategy { return InMemory{} })
			if err != nil {
				Te.Fatalf("order %v, %d ranks: %v", order, np, err)
			}
			if got, want := concat(slabs), expected(global, order); !slices.Equal(got, want) {
				Te.Errorf("order %v, %d ranks: got %v want %v", order, np, got, want)
			}
			newg := permute.Shape(global, order)
			tags := string(reorderTags([]byte("FAP"), order))
			for r, s := range slabs {
				_, length, _ := decomp.Split(newg[0], r, np)
				if s.Local[0] != length || !slices.Equal(s.Local[1:], newg[1:]) || string(s.Tags) != tags {
					Te.Errorf("order %v, rank %d of %d: local %v tags %s", order, r, np, s.Local, s.Tags)
				}
			}
		}
	}
}

//More ranks than elements on the new partitioned axis: some ranks get nothing.
func TestEmptyRanks(Te *testing.T) {
	slabs, err := run(4, []int{6, 2}, []int{1, 0}, "", func() Strategy { return InMemory{} })
	if err != nil {
		Te.Fatal(err)
	}
	if len(slabs[2].Data) != 0 || len(slabs[3].Data) != 0 || slabs[3].Local[0] != 0 {
		Te.Errorf("ranks 2 and 3 should be empty: %v %v", slabs[2], slabs[3])
	}
	if got, want := concat(slabs), expected([]int{6, 2}, []int{1, 0}); !slices.Equal(got, want) {
		Te.Errorf("got %v want %v", got, want)
	}
}

//When axis 0 stays in place, each rank only permutes its own slab.
func TestFastPath(Te *testing.T) {
	global := []int{4, 3, 2}
	for _, strat := range []func(string) Strategy{
		func(string) Strategy { return InMemory{} },
		func(p string) Strategy { return NewStaged(p) },
	} {
		dir := Te.TempDir()
		err := comm.Run(3, func(c comm.Comm) error {
			cc := comm.NewCounting(c)
			s, err := slab(global, c.Rank(), 3, "FAP")
			if err != nil {
				return err
			}
			orig := slices.Clone(s.Data)
			local := slices.Clone(s.Local)
			if err := strat(filepath.Join(dir, "staged")).Redistribute(cc, s, []int{0, 2, 1}); err != nil {
				return err
			}
			if cc.Calls() != 0 {
				return fmt.Errorf("rank %d communicated %d times", c.Rank(), cc.Calls())
			}
			permute.Dims(&orig, local, []int{0, 2, 1})
			if !slices.Equal(orig, s.Data) || string(s.Tags) != "FPA" {
				return fmt.Errorf("rank %d: got %v tags %s", c.Rank(), s.Data, s.Tags)
			}
			return nil
		})
		if err != nil {
			Te.Error(err)
		}
		if _, err := os.Stat(filepath.Join(dir, "staged")); err == nil {
			Te.Error("the fast path should not write a file")
		}
	}
}

func TestStagedMatchesInMemory(Te *testing.T) {
	global := []int{7, 4, 3}
	for _, order := range [][]int{{1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}} {
		for _, np := range []int{1, 2, 3, 5} {
			path := filepath.Join(Te.TempDir(), "staged.bin")
			staged, err := run(np, global, order, "FAP", func() Strategy { return NewStaged(path) })
			if err != nil {
				Te.Fatalf("order %v, %d ranks: %v", order, np, err)
			}
			inmem, err := run(np, global, order, "FAP", func() Strategy { return InMemory{} })
			if err != nil {
				Te.Fatal(err)
			}
			for r := range np {
				if !slices.Equal(staged[r].Data, inmem[r].Data) || !slices.Equal(staged[r].Local, inmem[r].Local) || !slices.Equal(staged[r].Tags, inmem[r].Tags) {
					Te.Errorf("order %v, rank %d of %d: staged %v %v, in memory %v %v", order, r, np, staged[r].Local, staged[r].Data, inmem[r].Local, inmem[r].Data)
				}
			}
		}
	}
}

//A second redistribution reads the file written by the first one.
func TestStagedReuse(Te *testing.T) {
	global := []int{4, 5, 3}
	path := filepath.Join(Te.TempDir(), "staged.bin")
	err := comm.Run(2, func(c comm.Comm) error {
		st := NewStaged(path)
		s, err := slab(global, c.Rank(), 2, "FAP")
		if err != nil {
			return err
		}
		if err := st.Redistribute(c, s, []int{1, 0, 2}); err != nil { //AFP
			return err
		}
		if !st.Written() {
			return errors.New("the file should be kept")
		}
		cc := comm.NewCounting(c)
		//AFP -> PAF
		if err := st.Redistribute(cc, s, []int{2, 0, 1}); err != nil {
			return err
		}
		if cc.PointToPoint != 0 {
			return fmt.Errorf("rank %d wrote the file again", c.Rank())
		}
		whole, err := slab([]int{3, 5, 4}, c.Rank(), 2, "")
		if err != nil {
			return err
		}
		//FAP -> PAF is the same as the two steps together.
		want := expected(global, []int{2, 1, 0})
		off := 0
		if c.Rank() == 1 {
			_, l, _ := decomp.Split(3, 0, 2)
			off = l * 20
		}
		if string(s.Tags) != "PAF" || !slices.Equal(s.Local, whole.Local) || !slices.Equal(s.Data, want[off:off+len(s.Data)]) {
			return fmt.Errorf("rank %d: tags %s local %v data %v", c.Rank(), s.Tags, s.Local, s.Data)
		}
		if err := st.Reset(c); err != nil {
			return err
		}
		if err := c.Barrier(); err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return errors.New("Reset should remove the file")
		}
		return nil
	})
	if err != nil {
		Te.Fatal(err)
	}
}

//Rank 1 has 499 atoms and rank 0 has 500: every rank must fail the same way.
func TestInconsistent(Te *testing.T) {
	for _, strat := range []func(string) Strategy{
		func(string) Strategy { return InMemory{} },
		func(p string) Strategy { return NewStaged(p) },
	} {
		path := filepath.Join(Te.TempDir(), "staged.bin")
		errs := make([]error, 2)
		comm.Run(2, func(c comm.Comm) error {
			atoms := 500 - c.Rank()
			s := &Slab{Data: make([]float64, 2*atoms*3), Local: []int{2, atoms, 3}, Tags: []byte("FAP")}
			errs[c.Rank()] = strat(path).Redistribute(c, s, []int{1, 0, 2})
			return errs[c.Rank()]
		})
		for r, err := range errs {
			var ce *ConsistencyError
			if !errors.As(err, &ce) || !errors.Is(err, ErrInconsistent) {
				Te.Errorf("rank %d: expected a consistency error, got %v", r, err)
				continue
			}
			if ce.Rank != 1 || ce.Axis != 1 || ce.Want != 500 || ce.Got != 499 {
				Te.Errorf("rank %d: %+v", r, ce)
			}
		}
	}
}

//The slabs hold 4 frames between them but declare 5: every rank must fail the same way.
func TestDeclaredGlobal(Te *testing.T) {
	for _, strat := range []func(string) Strategy{
		func(string) Strategy { return InMemory{} },
		func(p string) Strategy { return NewStaged(p) },
	} {
		path := filepath.Join(Te.TempDir(), "staged.bin")
		errs := make([]error, 2)
		comm.Run(2, func(c comm.Comm) error {
			s := &Slab{Data: make([]float64, 2*4*2), Local: []int{2, 4, 2}, Tags: []byte("FAP"), Global: []int{5, 4, 2}}
			errs[c.Rank()] = strat(path).Redistribute(c, s, []int{1, 0, 2})
			if errs[c.Rank()] != nil && !slices.Equal(s.Global, []int{5, 4, 2}) {
				errs[c.Rank()] = fmt.Errorf("a failed call changed the global lengths to %v", s.Global)
			}
			return nil
		})
		for r, err := range errs {
			if !errors.Is(err, ErrInconsistent) {
				Te.Errorf("rank %d: got %v", r, err)
			}
		}
		if _, err := os.Stat(path); err == nil {
			Te.Error("nothing should be written for an inconsistent array")
		}
	}
	//a right declaration is replaced by the new global lengths.
	for _, strat := range []func(string) Strategy{
		func(string) Strategy { return InMemory{} },
		func(string) Strategy { return InMemory{InPlace: true} },
		func(p string) Strategy { return NewStaged(p) },
	} {
		path := filepath.Join(Te.TempDir(), "staged.bin")
		err := comm.Run(3, func(c comm.Comm) error {
			s, err := slab([]int{5, 4, 2}, c.Rank(), 3, "FAP")
			if err != nil {
				return err
			}
			s.Global = []int{5, 4, 2}
			if err := strat(path).Redistribute(c, s, []int{2, 0, 1}); err != nil {
				return err
			}
			if !slices.Equal(s.Global, []int{2, 5, 4}) {
				return fmt.Errorf("rank %d: global lengths %v", c.Rank(), s.Global)
			}
			if err := strat(path).Redistribute(c, s, []int{0, 2, 1}); err != nil {
				return err
			}
			if !slices.Equal(s.Global, []int{2, 4, 5}) {
				return fmt.Errorf("rank %d, local re-layout: global lengths %v", c.Rank(), s.Global)
			}
			return nil
		})
		if err != nil {
			Te.Error(err)
		}
	}
}

//The root can permute the gathered array in place.
func TestInPlace(Te *testing.T) {
	global := []int{5, 3, 7}
	for _, order := range [][]int{{1, 0, 2}, {2, 1, 0}, {2, 0, 1}, {1, 2, 0}} {
		for _, np := range []int{1, 2, 3} {
			inplace, err := run(np, global, order, "FAP", func() Strategy { return InMemory{InPlace: true} })
			if err != nil {
				Te.Fatalf("order %v, %d ranks: %v", order, np, err)
			}
			inmem, err := run(np, global, order, "FAP", func() Strategy { return InMemory{} })
			if err != nil {
				Te.Fatal(err)
			}
			for r := range np {
				if !slices.Equal(inplace[r].Data, inmem[r].Data) || !slices.Equal(inplace[r].Local, inmem[r].Local) {
					Te.Errorf("order %v, rank %d of %d: in place %v %v, with a copy %v %v", order, r, np, inplace[r].Local, inplace[r].Data, inmem[r].Local, inmem[r].Data)
				}
			}
		}
	}
}

func TestBadArguments(Te *testing.T) {
	c := comm.Self()
	s := &Slab{Data: make([]float64, 6), Local: []int{2, 3}}
	if err := (InMemory{}).Redistribute(c, s, []int{0, 0}); !errors.Is(err, permute.ErrInvalidPermutation) {
		Te.Errorf("got %v", err)
	}
	if err := (InMemory{}).Redistribute(c, s, []int{1, 0, 2}); !errors.Is(err, permute.ErrAxisCount) {
		Te.Errorf("got %v", err)
	}
	s.Local = []int{2, 2}
	if err := (InMemory{}).Redistribute(c, s, []int{1, 0}); !errors.Is(err, permute.ErrSizeMismatch) {
		Te.Errorf("got %v", err)
	}
	st := NewStaged(filepath.Join(Te.TempDir(), "x"))
	s = &Slab{Data: make([]float64, 6), Local: []int{2, 3}, Tags: []byte("FA")}
	if err := st.Redistribute(c, s, []int{1, 0}); !errors.Is(err, ErrAxes) {
		Te.Errorf("got %v", err)
	}
	s = &Slab{Data: make([]float64, 6), Local: []int{1, 2, 3}, Tags: []byte("FFP")}
	if err := st.Redistribute(c, s, []int{1, 0, 2}); !errors.Is(err, ErrTags) {
		Te.Errorf("got %v", err)
	}
	if !slices.Equal(s.Local, []int{1, 2, 3}) || string(s.Tags) != "FFP" {
		Te.Errorf("a failed call changed the slab: %v %s", s.Local, s.Tags)
	}
}

func writeStaged(Te *testing.T, path string, global []int, n int) {
	f, err := os.Create(path)
	if err != nil {
		Te.Fatal(err)
	}
	defer f.Close()
	h := header{nprocs: 1, tags: [3]byte{'F', 'A', 'P'}}
	for i, v := range global {
		h.dims[i] = uint64(v)
	}
	if err := h.write(f); err != nil {
		Te.Fatal(err)
	}
	if err := writeFloats(f, make([]float64, n)); err != nil {
		Te.Fatal(err)
	}
}

func TestStagedBadFile(Te *testing.T) {
	dir := Te.TempDir()
	read := func(path string) error {
		c := comm.Self() //a failed call aborts the communicator
		st := &Staged{Path: path, written: true}
		s := &Slab{Data: make([]float64, 24), Local: []int{2, 3, 4}, Tags: []byte("FAP")}
		return st.Redistribute(c, s, []int{1, 0, 2})
	}
	short := filepath.Join(dir, "short")
	writeStaged(Te, short, []int{2, 3, 4}, 20)
	if err := read(short); !errors.Is(err, ErrTruncated) {
		Te.Errorf("expected a truncated file, got %v", err)
	}
	bad := filepath.Join(dir, "bad")
	if err := os.WriteFile(bad, []byte("Q0000000000000000000000000000000000000"), 0644); err != nil {
		Te.Fatal(err)
	}
	if err := read(bad); !errors.Is(err, ErrBadHeader) {
		Te.Errorf("expected a bad header, got %v", err)
	}
	if err := os.WriteFile(bad, []byte("P"), 0644); err != nil {
		Te.Fatal(err)
	}
	if err := read(bad); !errors.Is(err, ErrBadHeader) {
		Te.Errorf("expected a bad header, got %v", err)
	}
	good := filepath.Join(dir, "good")
	writeStaged(Te, good, []int{2, 3, 4}, 24)
	if err := read(good); err != nil {
		Te.Error(err)
	}
}
