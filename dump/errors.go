/*
 * errors.go, part of mdpat.
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
	"errors"
	"fmt"

	"github.com/rmera/mdpat"
)

//Error is the error returned when a dump can't be read or written.
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
	err      error
}

func (err *Error) Error() string {
	if err.err != nil {
		return fmt.Sprintf("dump file %s error: %s: %v", err.filename, err.message, err.err)
	}
	return fmt.Sprintf("dump file %s error: %s", err.filename, err.message)
}

//Unwrap returns the underlying error, if any.
func (err *Error) Unwrap() error { return err.err }

//Decorate Adds new information to the error and returns all of it
func (E *Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//Filename returns the file to which the failing dump was associated
func (err *Error) FileName() string { return err.filename }

//Format returns the format of the file (always "lammps") associated to the error
func (err *Error) Format() string { return "lammps" }

//Critical returns true if the error is critical, false otherwise
func (err *Error) Critical() bool { return err.critical }

const (
	UnableToOpen  = "Unable to open file"
	UnableToWrite = "Unable to write file"
	WrongFormat   = "Wrong format in the dump file or frame"
	MissingColumn = "Column not present in the dump"
	BadAtomID     = "Atom id out of range"
	MissingStep   = "Timestep not found"
)

var _ mdpat.FileError = &Error{}

func newError(message, filename, caller string, err error) *Error {
	return &Error{message: message, filename: filename, deco: []string{caller}, critical: true, err: err}
}

var (
	ErrBadRange     = errors.New("dump: invalid step range")
	ErrBadPattern   = errors.New("dump: invalid file name pattern")
	ErrInconsistent = errors.New("dump: ranks read different numbers of atoms or columns")
)
