/*
 * Copyright 2025 Ted Dunning
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package solver matches the parallel input timing of the bridge to the CSI-2
output timing.

The bridge buffers the parallel data in a FIFO of 32 bit words before it starts
sending a line on the serial link. The FIFO has to be deep enough that the
serial transmitter never runs dry within a line (the serial line must not be
shorter than the parallel one), and shallow enough that the serial line plus
the LP transition still fits into the parallel line period.

All functions here are pure and safe for concurrent use.
*/
package solver

import (
	"errors"
	"fmt"

	"csibridge/src/clock"
	"csibridge/src/format"
	"csibridge/src/link"
	"periph.io/x/conn/v3/physic"
)

var (
	ErrNoFeasibleFifo          = errors.New("solver: no feasible fifo size")
	ErrNoFeasibleConfiguration = errors.New("solver: no feasible configuration")
)

const (
	MaxFIFODepth = 511
	WidthStep    = 10
)

// Geometry describes the parallel video input.
type Geometry struct {
	Width      int // active pixels per line
	HBlank     int // pclk cycles of horizontal blanking
	PixelClock physic.Frequency
}

type Result struct {
	Link      int // index of the chosen link setting
	FIFODepth int
	Width     int
}

// Reduced tells whether the negotiated width is smaller than the requested one.
func (r Result) Reduced(g Geometry) bool {
	return r.Width < g.Width
}

// line holds the picosecond quantities of one line that don't depend on the
// fifo size
type line struct {
	pclk      int64 // pixel clock period
	csiBit    int64 // aggregate csi bit period
	hsclk     int64 // HS byte clock period
	pHActive  int64
	pHTotal   int64
	cHPayload int64
	hsLPHS    int64
	busWidth  int64
}

func newLine(g Geometry, f format.PixelFormat, s link.Setting, width int) (line, error) {
	pclk, err := clock.Picoseconds(clock.Hertz(g.PixelClock))
	if err != nil {
		return line{}, fmt.Errorf("solver: pixel clock: %w", err)
	}
	csiBit, err := clock.Picoseconds(s.Bitrate())
	if err != nil {
		return line{}, fmt.Errorf("solver: csi bit rate: %w", err)
	}
	hsclk, err := clock.Picoseconds(s.LaneRate >> 3)
	if err != nil {
		return line{}, fmt.Errorf("solver: byte clock: %w", err)
	}
	l := line{
		pclk:     int64(pclk),
		csiBit:   int64(csiBit),
		hsclk:    int64(hsclk),
		hsLPHS:   int64(s.Timings.HSLPHSps),
		busWidth: int64(f.BusWidth),
	}
	w := int64(width)
	l.pHActive = l.pclk * int64(f.PixelsPerClock) * w
	l.pHTotal = l.pHActive + l.pclk*int64(g.HBlank)
	l.cHPayload = l.csiBit * int64(f.BitsPerPixel) * w
	return l, nil
}

// fits reports whether a fifo of size 32 bit words lets both line timings
// coexist
func (l line) fits(size int) bool {
	fifoDelay := int64(size)*32*l.pclk/l.busWidth + 4*l.hsclk
	cHActive := l.cHPayload + fifoDelay
	cLPActive := l.pHTotal - cHActive
	return cHActive > l.pHActive &&
		l.pHTotal > cHActive &&
		cLPActive > l.hsLPHS
}

/*
FitFIFO returns the smallest FIFO depth (in 32 bit words) for which a line of
width pixels in format f can be sent over link setting s, or ErrNoFeasibleFifo.

For a depth d the serial line takes

	c_hactive = csi_bit_period * bpp * width + d * 32 / bus_width * pclk_period + 4 * hsclk_period

and the depth is accepted when the parallel active time < c_hactive < the
parallel line time and the time left in the line exceeds the HS-LP-HS
transition of s.
*/
func FitFIFO(g Geometry, f format.PixelFormat, s link.Setting, width int) (int, error) {
	if width <= 0 {
		return 0, fmt.Errorf("%w: width %d", ErrNoFeasibleFifo, width)
	}
	if f.BusWidth <= 0 {
		return 0, fmt.Errorf("solver: format %s has no bus width", f.Code)
	}
	l, err := newLine(g, f, s, width)
	if err != nil {
		return 0, err
	}
	for size := 1; size <= MaxFIFODepth; size++ {
		if l.fits(size) {
			return size, nil
		}
	}
	return 0, fmt.Errorf("%w: link #%d, width %d", ErrNoFeasibleFifo, s.Index, width)
}

/*
Negotiate finds a link setting, FIFO depth and width for the geometry g.

The requested width is tried first with the current link setting, then with
every other setting in table order. If none fits, the width is reduced by 10
pixels and all settings are tried again, current one first. The first fit
wins. Reducing the width silently trades resolution for a working link. Only
when the width reaches zero does the search fail with
ErrNoFeasibleConfiguration.
*/
func Negotiate(g Geometry, f format.PixelFormat, settings []link.Setting, current int) (Result, error) {
	if current < 0 || current >= len(settings) {
		return Result{}, fmt.Errorf("solver: current link #%d not in table of %d", current, len(settings))
	}
	if _, err := clock.Picoseconds(clock.Hertz(g.PixelClock)); err != nil {
		return Result{}, fmt.Errorf("solver: pixel clock: %w", err)
	}
	for width := g.Width; width > 0; width -= WidthStep {
		for _, i := range order(len(settings), current) {
			depth, err := FitFIFO(g, f, settings[i], width)
			if err == nil {
				return Result{Link: i, FIFODepth: depth, Width: width}, nil
			}
			if !errors.Is(err, ErrNoFeasibleFifo) {
				return Result{}, err
			}
		}
	}
	return Result{}, fmt.Errorf("%w: %s %dpx, hblank %d at %s", ErrNoFeasibleConfiguration,
		f.Code, g.Width, g.HBlank, g.PixelClock)
}

// order lists the settings in search order, current one first
func order(n, current int) []int {
	r := make([]int, 0, n)
	r = append(r, current)
	for i := 0; i < n; i++ {
		if i != current {
			r = append(r, i)
		}
	}
	return r
}
