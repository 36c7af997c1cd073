/*
 * output.go, part of mdpat.
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

package msd

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

//Write writes one "time msd" line per gap.
func (R *Result) Write(w io.Writer) error {
	b := bufio.NewWriter(w)
	for i, t := range R.Time {
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(R.MSD[i], 'g', -1, 64))
		b.WriteByte('\n')
	}
	return b.Flush()
}

//WriteFile writes the result to the file name, see Write.
func (R *Result) WriteFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := R.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

//Diffusion fits a line to the MSD against the time and returns the diffusion
//coefficient, slope/(2*Dims), and the intercept of the line. At least two gaps are needed.
func (R *Result) Diffusion() (D, intercept float64, err error) {
	if len(R.Time) < 2 {
		return 0, 0, fmt.Errorf("%w: %d gaps, can't fit a line", ErrGaps, len(R.Time))
	}
	intercept, slope := stat.LinearRegression(R.Time, R.MSD, nil, false)
	return slope / float64(2*R.Dims), intercept, nil
}

//Plot saves a plot of the MSD against the time to the file name. The format is
//taken from the extension (png, svg, pdf, etc). If the diffusion coefficient can be
//obtained, the fitted line is also drawn.
func (R *Result) Plot(name, title string) error {
	pts := make(plotter.XYs, len(R.Time))
	for i, t := range R.Time {
		pts[i].X = t
		pts[i].Y = R.MSD[i]
	}
	p := plot.New()
	p.Title.Text = title
	p.Title.Padding = 3 * vg.Millimeter
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "MSD"
	p.Add(plotter.NewGrid())
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
	p.Add(s)
	p.Legend.Add("MSD", s)
	if D, b, err := R.Diffusion(); err == nil {
		slope := D * float64(2*R.Dims)
		fit := plotter.NewFunction(func(x float64) float64 { return b + slope*x })
		fit.Color = color.RGBA{B: 255, A: 255}
		p.Add(fit)
		p.Legend.Add(fmt.Sprintf("D = %.4g", D), fit)
	}
	return p.Save(5*vg.Inch, 4*vg.Inch, name)
}
