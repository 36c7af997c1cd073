/*
 * decomp_test.go, part of mdpat.
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

package decomp

import (
	"errors"
	"testing"
)

func TestSplitExample(Te *testing.T) {
	wantLen := []int{4, 3, 3}
	wantOff := []int{0, 4, 7}
	for i := 0; i < 3; i++ {
		off, l, err := Split(10, i, 3)
		if err != nil {
			Te.Fatal(err)
		}
		if off != wantOff[i] || l != wantLen[i] {
			Te.Errorf("rank %d: got (%d, %d), want (%d, %d)", i, off, l, wantOff[i], wantLen[i])
		}
	}
}

//The slices of all ranks must cover [0,total) with no gaps or overlaps.
func TestSplitPartitions(Te *testing.T) {
	for total := 0; total < 60; total++ {
		for nprocs := 1; nprocs < 12; nprocs++ {
			next := 0
			for r := 0; r < nprocs; r++ {
				off, l, err := Split(total, r, nprocs)
				if err != nil {
					Te.Fatal(err)
				}
				if off != next {
					Te.Fatalf("total %d nprocs %d rank %d: offset %d, expected %d", total, nprocs, r, off, next)
				}
				q := total / nprocs
				if l != q && l != q+1 {
					Te.Fatalf("total %d nprocs %d rank %d: unbalanced length %d", total, nprocs, r, l)
				}
				next += l
			}
			if next != total {
				Te.Fatalf("total %d nprocs %d: lengths sum to %d", total, nprocs, next)
			}
		}
	}
}

func TestSplitZero(Te *testing.T) {
	for r := 0; r < 4; r++ {
		off, l, err := Split(0, r, 4)
		if err != nil || l != 0 || off != 0 {
			Te.Errorf("rank %d: got (%d, %d, %v)", r, off, l, err)
		}
	}
}

func TestSplitErrors(Te *testing.T) {
	if _, _, err := Split(10, 0, 0); !errors.Is(err, ErrNoRanks) {
		Te.Errorf("zero ranks: got %v", err)
	}
	if _, _, err := Split(10, 3, 3); !errors.Is(err, ErrRankOutOfRange) {
		Te.Errorf("rank 3 of 3: got %v", err)
	}
	if _, _, err := Split(10, -1, 3); !errors.Is(err, ErrRankOutOfRange) {
		Te.Errorf("rank -1: got %v", err)
	}
	if _, _, err := Split(-2, 0, 3); !errors.Is(err, ErrNegativeTotal) {
		Te.Errorf("negative total: got %v", err)
	}
}

func TestScaled(Te *testing.T) {
	counts, displs, err := Scaled(5, 6, 2)
	if err != nil {
		Te.Fatal(err)
	}
	if counts[0] != 18 || counts[1] != 12 || displs[0] != 0 || displs[1] != 18 {
		Te.Errorf("got counts %v displs %v", counts, displs)
	}
}
