/*
 * doc.go, part of mdpat.
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

/*Package mdpat is the main package of the mdpat library. It provides the Trajectory, a
molecular dynamics trajectory stored as a dense 3-axis array (frames, atoms and per-atom
properties) and split among the ranks of a communicator.



	**mdpat Capabilities**


    Reads LAMMPS dumps, text, binary or DCD, plain or compressed, one file per step or many
    steps per file (package dump).

    Splits the frames among the ranks, and re-lays-out the array on request, so
    that the axis an analysis works on is contiguous and held by a single rank.
    The re-layout is done in memory, or through a file shared by the ranks when the
    array is too large for one rank to hold (package redist).

    Computes the mean squared displacement of the atoms (package msd).

    Runs all the above from a small command script (package script, program cmd/mdpat).


Only the slowest-varying axis of the array is split among the ranks. Which axis is
the slowest is given by the AxisOrder of the trajectory, which SetAxisOrder changes.

The ranks are not hidden in any global state: a Trajectory is created with the
comm.Comm of the rank that owns it, and every rank creates its own. All the ranks
must call SetAxisOrder together, as it communicates.

*/
package mdpat
