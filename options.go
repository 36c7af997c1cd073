/*
 * options.go, part of mdpat.
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

package mdpat

import (
	"log"
	"os"
)

//Options contains the settings of a Trajectory.
type Options struct {
	memBudget int64  //bytes. Larger arrays are redistributed through the staged file.
	tempFile  string //the staged file, which must be visible to all ranks.
	logger    *log.Logger
}

//DefaultOptions returns options with a 4 GiB memory budget, the staged file
//in the current directory and logging to the standard error.
func DefaultOptions() *Options {
	r := new(Options)
	r.memBudget = 4 << 30
	r.tempFile = "mdpat-staged.bin"
	r.logger = log.New(os.Stderr, "", log.LstdFlags)
	return r
}

//Returns the largest array, in bytes, that will be redistributed in memory,
//and sets it to a new value, if given. 0 or less means no limit.
func (O *Options) MemoryBudget(b ...int64) int64 {
	if len(b) > 0 {
		O.memBudget = b[0]
	}
	return O.memBudget
}

//Returns the path of the staged file,
//and sets it to a new value, if given.
func (O *Options) TempFile(path ...string) string {
	if len(path) > 0 && path[0] != "" {
		O.tempFile = path[0]
	}
	return O.tempFile
}

//Returns the logger for heads-up messages,
//and sets it to a new value, if given.
func (O *Options) Logger(l ...*log.Logger) *log.Logger {
	if len(l) > 0 && l[0] != nil {
		O.logger = l[0]
	}
	return O.logger
}

//staged returns true if an array of n float64 should go through the staged file.
func (O *Options) staged(n int) bool {
	return O.memBudget > 0 && int64(n) > O.memBudget/8
}

//inPlace returns true if an array of n float64 fits in the budget but two copies of it do not.
func (O *Options) inPlace(n int) bool {
	return O.memBudget > 0 && int64(n) > O.memBudget/16
}
