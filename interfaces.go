/*
 * interfaces.go, part of mdpat.
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
	"errors"

	"gonum.org/v1/gonum/mat"
)

//Framer is anything that can give the frames of a trajectory as atoms x properties matrices.
type Framer interface {
	//Frame returns the local frame i.
	Frame(i int) (*mat.Dense, error)

	//Len returns the number of local frames.
	Len() int
}

//Errors

// Error is the interface for the errors with information attached as they go up the
// call stack. The Decorate method adds to the error without changing its type.
// If passed an empty string, it just returns the current decorations.
type Error interface {
	Error() string
	Decorate(string) []string
}

// FileError is the interface for errors while reading or writing a file.
type FileError interface {
	Error
	Critical() bool
	FileName() string
	Format() string
}

var (
	ErrInvalidAxisOrder = errors.New("mdpat: an axis order needs each of F, A and P once")
	ErrNotLoaded        = errors.New("mdpat: the trajectory has no data")
	ErrWrongOrder       = errors.New("mdpat: operation needs the (F, A, P) axis order")
	ErrBadLoad          = errors.New("mdpat: inconsistent data")
	ErrOutOfRange       = errors.New("mdpat: index out of range")
)
