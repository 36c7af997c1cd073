/*
 * script.go, part of mdpat.
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

//Package script runs the command files that drive mdpat. A command file has
//one command per line, with its arguments separated by spaces. Arguments with
//spaces can be written between double quotes, and everything after a # is a comment.
//
//	trajectory <pattern> <range> [columns...]
//	order <F|A|P> <F|A|P> <F|A|P>
//	msd <outfile> <dt> <type> <mingap> <maxgap> [plotfile]
//	write <pattern>
//	membudget <bytes>
//	tempfile <path>
package script

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/rmera/mdpat/comm"
)

var (
	ErrUnknownCommand = errors.New("script: unknown command")
	ErrArgs           = errors.New("script: wrong arguments")
	ErrNoTrajectory   = errors.New("script: no trajectory loaded")
	ErrSyntax         = errors.New("script: syntax error")
)

//Tokenize splits a line in words. A word starting with a double quote goes on, spaces
//included, until the next double quote, which must end a word. A # starting a word, or
//inside an unquoted word, begins a comment.
func Tokenize(line string) ([]string, error) {
	var words []string
	rest := strings.TrimSpace(line)
	for rest != "" {
		if rest[0] == '"' {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("%w: unmatched quotation mark in %q", ErrSyntax, line)
			}
			end++
			if end+1 < len(rest) && !unicode.IsSpace(rune(rest[end+1])) {
				return nil, fmt.Errorf("%w: text after a closing quotation mark in %q", ErrSyntax, line)
			}
			words = append(words, rest[1:end])
			rest = strings.TrimSpace(rest[end+1:])
			continue
		}
		word, next := rest, ""
		if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
			word, next = rest[:i], rest[i:]
		}
		if i := strings.IndexByte(word, '#'); i >= 0 {
			if i > 0 {
				words = append(words, word[:i])
			}
			break
		}
		if strings.IndexByte(word, '"') >= 0 {
			return nil, fmt.Errorf("%w: quotation mark inside %q", ErrSyntax, word)
		}
		words = append(words, word)
		rest = strings.TrimSpace(next)
	}
	return words, nil
}

//ReadLines reads the lines of the file name at comm.Root and broadcasts them
//to all the ranks. If the file can't be read the communicator is aborted.
func ReadLines(c comm.Comm, name string) ([]string, error) {
	var lines []string
	if c.Rank() == comm.Root {
		var err error
		lines, err = readLines(name)
		if err != nil {
			return nil, c.Abort(err)
		}
	}
	return c.BcastStrings(lines, comm.Root)
}

func readLines(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return lines, nil
}
