/*
 * main.go, part of mdpat.
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

//Command mdpat runs an mdpat command file.
//
//Usage:
//
//	mdpat [-np ranks] [-membudget bytes] [-tempfile path] script.mdp
//
//The trajectories are split among the ranks, which all run the
//commands in the file together. See the script package for the commands.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/rmera/mdpat"
	"github.com/rmera/mdpat/comm"
	"github.com/rmera/mdpat/script"
)

func main() {
	def := mdpat.DefaultOptions()
	np := flag.Int("np", runtime.NumCPU(), "Number of ranks")
	budget := flag.Int64("membudget", def.MemoryBudget(), "Memory, in bytes, that a re-layout can use at the coordinating rank before going through a temporary file. 0 means no limit")
	temp := flag.String("tempfile", def.TempFile(), "Temporary file for the re-layouts that don't fit in memory")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] script\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if *np < 1 || *budget < 0 {
		fmt.Fprintf(os.Stderr, "Error: -np must be positive and -membudget non-negative\n")
		os.Exit(1)
	}
	name := flag.Arg(0)
	err := comm.Run(*np, func(c comm.Comm) error {
		opts := mdpat.DefaultOptions()
		opts.MemoryBudget(*budget)
		opts.TempFile(*temp)
		opts.Logger(log.New(os.Stderr, fmt.Sprintf("rank %d: ", c.Rank()), log.LstdFlags))
		R := script.NewRunner(c, opts)
		err := R.RunFile(name)
		if cerr := R.Close(); err == nil {
			err = cerr
		}
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
