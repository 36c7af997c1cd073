/*
 * compressed.go, part of mdpat.
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
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

//compression returns the compression suffix of name (".gz" or ".zst", or "")
//and the name without it.
func compression(name string) (string, string) {
	lower := strings.ToLower(name)
	for _, s := range []string{".gz", ".zst"} {
		if strings.HasSuffix(lower, s) {
			return s, name[:len(name)-len(s)]
		}
	}
	return "", name
}

//binaryName returns true if name, without a compression suffix, is a LAMMPS binary dump.
func binaryName(name string) bool {
	_, base := compression(name)
	return strings.HasSuffix(strings.ToLower(base), ".bin")
}

//*zstd.Decoder's Close returns nothing.
type zstdql struct {
	*zstd.Decoder
}

func (s zstdql) Close() error {
	s.Decoder.Close()
	return nil
}

//source is an opened dump, decompressed if needed.
type source struct {
	f *os.File
	z io.ReadCloser
	*bufio.Reader
}

func (s *source) Close() error {
	var err error
	if s.z != nil {
		err = s.z.Close()
	}
	if err2 := s.f.Close(); err == nil {
		err = err2
	}
	return err
}

//open opens the dump name, decompressing it with gzip or zstd if its name ends in .gz or .zst.
func open(name string) (*source, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, newError(UnableToOpen, name, "open", err)
	}
	s := &source{f: f}
	intermediate := bufio.NewReader(f)
	switch suffix, _ := compression(name); suffix {
	case ".gz":
		s.z, err = gzip.NewReader(intermediate)
	case ".zst":
		var d *zstd.Decoder
		d, err = zstd.NewReader(intermediate)
		if err == nil {
			s.z = zstdql{d}
		}
	}
	if err != nil {
		f.Close()
		return nil, newError(WrongFormat, name, "open", err)
	}
	if s.z != nil {
		s.Reader = bufio.NewReader(s.z)
	} else {
		s.Reader = intermediate
	}
	return s, nil
}

//target is a dump opened for writing, compressed if needed.
type target struct {
	f *os.File
	z io.WriteCloser
	*bufio.Writer
}

func (t *target) Close() error {
	err := t.Writer.Flush()
	if t.z != nil {
		if err2 := t.z.Close(); err == nil {
			err = err2
		}
	}
	if err2 := t.f.Close(); err == nil {
		err = err2
	}
	return err
}

//create creates the file name, compressing what is written to it with gzip or
//zstd if the name ends in .gz or .zst.
func create(name string) (*target, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, newError(UnableToOpen, name, "create", err)
	}
	t := &target{f: f}
	switch suffix, _ := compression(name); suffix {
	case ".gz":
		t.z = gzip.NewWriter(f)
	case ".zst":
		t.z, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	if err != nil {
		f.Close()
		return nil, newError(UnableToOpen, name, "create", err)
	}
	if t.z != nil {
		t.Writer = bufio.NewWriter(t.z)
	} else {
		t.Writer = bufio.NewWriter(f)
	}
	return t, nil
}
