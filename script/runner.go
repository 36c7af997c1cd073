/*
 * runner.go, part of mdpat.
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

package script

import (
	"fmt"
	"strconv"

	"github.com/rmera/mdpat"
	"github.com/rmera/mdpat/comm"
	"github.com/rmera/mdpat/dump"
	"github.com/rmera/mdpat/msd"
)

//Runner executes commands on one rank. All the ranks must run the same commands,
//in the same order.
type Runner struct {
	c    comm.Comm
	opts *mdpat.Options
	T    *mdpat.Trajectory //the last trajectory loaded, or nil.
}

//NewRunner returns a Runner for the rank c. The trajectories it loads use opts,
//which the membudget and tempfile commands change.
func NewRunner(c comm.Comm, opts *mdpat.Options) *Runner {
	if opts == nil {
		opts = mdpat.DefaultOptions()
	}
	return &Runner{c: c, opts: opts}
}

//RunFile reads the command file name at comm.Root, and runs it in all the ranks.
func (R *Runner) RunFile(name string) error {
	lines, err := ReadLines(R.c, name)
	if err != nil {
		return err
	}
	return R.Run(lines)
}

//Run runs the commands in lines. It stops at the first error.
func (R *Runner) Run(lines []string) error {
	for i, line := range lines {
		words, err := Tokenize(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if len(words) == 0 {
			continue
		}
		if err := R.Exec(words); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}

//Close releases the current trajectory, if any.
func (R *Runner) Close() error {
	if R.T == nil {
		return nil
	}
	err := R.T.Close()
	R.T = nil
	return err
}

//Exec runs one command, words[0], with the arguments words[1:].
func (R *Runner) Exec(words []string) error {
	cmd, args := words[0], words[1:]
	switch cmd {
	case "trajectory":
		return R.trajectory(args)
	case "order":
		return R.order(args)
	case "msd":
		return R.msd(args)
	case "write":
		return R.write(args)
	case "membudget":
		if len(args) != 1 {
			return nargs(cmd, "1", args)
		}
		b, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || b < 0 {
			return fmt.Errorf("%w: membudget needs a non-negative number of bytes, got %q", ErrArgs, args[0])
		}
		R.opts.MemoryBudget(b)
		return nil
	case "tempfile":
		if len(args) != 1 {
			return nargs(cmd, "1", args)
		}
		R.opts.TempFile(args[0])
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

func nargs(cmd, want string, args []string) error {
	return fmt.Errorf("%w: %s takes %s arguments, got %d", ErrArgs, cmd, want, len(args))
}

func (R *Runner) loaded(cmd string) error {
	if R.T == nil || !R.T.Loaded() {
		return fmt.Errorf("%w: %s needs a trajectory", ErrNoTrajectory, cmd)
	}
	return nil
}

//trajectory <pattern> <range> [columns...]
func (R *Runner) trajectory(args []string) error {
	if len(args) < 2 {
		return nargs("trajectory", "at least 2", args)
	}
	rng, err := dump.ParseRange(args[1])
	if err != nil {
		return err
	}
	if err := R.Close(); err != nil {
		return err
	}
	T := mdpat.NewTrajectory(R.c, R.opts)
	if err := dump.LoadTrajectory(T, args[0], rng, dump.NewSelection(args[2:]...)); err != nil {
		return err
	}
	R.T = T
	g := T.Global()
	if R.c.Rank() == comm.Root {
		R.opts.Logger().Printf("read %d frames of %d atoms, columns %v", g[0], g[1], T.Columns())
	}
	return nil
}

//order <F|A|P> <F|A|P> <F|A|P>, or order FAP
func (R *Runner) order(args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return nargs("order", "1 or 3", args)
	}
	if err := R.loaded("order"); err != nil {
		return err
	}
	o, err := mdpat.ParseAxisOrder(args...)
	if err != nil {
		return err
	}
	return R.T.SetAxisOrder(o)
}

//msd <outfile> <dt> <type> <mingap> <maxgap> [plotfile]
func (R *Runner) msd(args []string) error {
	if len(args) != 5 && len(args) != 6 {
		return nargs("msd", "5 or 6", args)
	}
	if err := R.loaded("msd"); err != nil {
		return err
	}
	dt, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("%w: msd time step %q", ErrArgs, args[1])
	}
	var ints [3]int
	for i, a := range args[2:5] {
		if ints[i], err = strconv.Atoi(a); err != nil {
			return fmt.Errorf("%w: msd expects an integer, got %q", ErrArgs, a)
		}
	}
	res, err := msd.Compute(R.T, msd.Params{DT: dt, Type: ints[0], MinGap: ints[1], MaxGap: ints[2]})
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	//Only comm.Root gets here.
	if err := res.WriteFile(args[0]); err != nil {
		return R.c.Abort(err)
	}
	if len(args) == 6 {
		if err := res.Plot(args[5], "Mean squared displacement"); err != nil {
			return R.c.Abort(err)
		}
	}
	logger := R.opts.Logger()
	if D, _, err := res.Diffusion(); err == nil {
		logger.Printf("msd of %d atoms written to %s, diffusion coefficient %.6g", res.Atoms, args[0], D)
	} else {
		logger.Printf("msd of %d atoms written to %s", res.Atoms, args[0])
	}
	return nil
}

//write <pattern>
func (R *Runner) write(args []string) error {
	if len(args) != 1 {
		return nargs("write", "1", args)
	}
	if err := R.loaded("write"); err != nil {
		return err
	}
	return dump.WriteTrajectory(R.T, args[0])
}
