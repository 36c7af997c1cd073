/*
 * header.go, part of mdpat.
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
	"encoding/binary"
	"fmt"
	"io"
)

//The staged file starts with a fixed-size little-endian header:
//the byte 'P', the int32 number of ranks that wrote the file, one tag byte
//per axis and the uint64 global length of each axis. The float64 elements
//follow, in row-major order.
const (
	headerMagic = 'P'
	headerSize  = 1 + 4 + 3 + 3*8
)

type header struct {
	nprocs int32
	tags   [3]byte
	dims   [3]uint64
}

func (h header) write(w io.Writer) error {
	var b [headerSize]byte
	b[0] = headerMagic
	binary.LittleEndian.PutUint32(b[1:], uint32(h.nprocs))
	copy(b[5:8], h.tags[:])
	for i, v := range h.dims {
		binary.LittleEndian.PutUint64(b[8+8*i:], v)
	}
	_, err := w.Write(b[:])
	return err
}

func readHeader(r io.Reader) (header, error) {
	var h header
	var b [headerSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return h, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if b[0] != headerMagic {
		return h, fmt.Errorf("%w: starts with %q", ErrBadHeader, b[0])
	}
	h.nprocs = int32(binary.LittleEndian.Uint32(b[1:]))
	if h.nprocs < 1 {
		return h, fmt.Errorf("%w: written by %d ranks", ErrBadHeader, h.nprocs)
	}
	copy(h.tags[:], b[5:8])
	if err := checkTags(h.tags[:]); err != nil {
		return h, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	for i := range h.dims {
		h.dims[i] = binary.LittleEndian.Uint64(b[8+8*i:])
	}
	return h, nil
}

//axisMap returns, for each of the wanted tags, the stored axis it labels.
func (h header) axisMap(want []byte) ([3]int, error) {
	var ret [3]int
	for i, t := range want {
		ret[i] = -1
		for j, s := range h.tags {
			if s == t {
				ret[i] = j
			}
		}
		if ret[i] < 0 {
			return ret, fmt.Errorf("%w: the file has axes %q, %q was requested", ErrBadHeader, h.tags[:], want)
		}
	}
	return ret, nil
}
