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
Package clock holds the period arithmetic shared by the PLL deriver and the
D-PHY timing synthesizer.

All periods are integer picoseconds (or nanoseconds where the hardware counts in
ns). The rounding direction is part of the contract of every call site: counts
that have to guarantee a timing minimum divide with DivRoundUp, periods of the
HF clock are rounded to nearest and periods at kHz resolution truncate.
*/
package clock

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
)

var ErrZeroFrequency = errors.New("clock: zero frequency")

type Rounding int

const (
	Truncate Rounding = iota
	Nearest
	Up
)

func (r Rounding) String() string {
	switch r {
	case Truncate:
		return "truncate"
	case Nearest:
		return "nearest"
	case Up:
		return "up"
	}
	return fmt.Sprintf("Rounding(%d)", int(r))
}

// Picoseconds returns the period of a clock running at hz, computed at kHz
// resolution as 10^9 / (hz / 1000).
func Picoseconds(hz uint64) (uint64, error) {
	khz := hz / 1000
	if khz == 0 {
		return 0, fmt.Errorf("%w: %d Hz", ErrZeroFrequency, hz)
	}
	return 1_000_000_000 / khz, nil
}

// Nanoseconds returns 10^9 / hz rounded as requested.
func Nanoseconds(hz uint64, r Rounding) (uint64, error) {
	if hz == 0 {
		return 0, ErrZeroFrequency
	}
	return Div(1_000_000_000, hz, r), nil
}

func Div(n, d uint64, r Rounding) uint64 {
	switch r {
	case Nearest:
		return DivRoundClosest(n, d)
	case Up:
		return DivRoundUp(n, d)
	}
	return n / d
}

func DivRoundUp(n, d uint64) uint64 {
	return (n + d - 1) / d
}

func DivRoundClosest(n, d uint64) uint64 {
	return (n + d/2) / d
}

// Hertz converts a periph frequency to whole Hertz. Negative values map to 0.
func Hertz(f physic.Frequency) uint64 {
	if f <= 0 {
		return 0
	}
	return uint64(f / physic.Hertz)
}

func Frequency(hz uint64) physic.Frequency {
	return physic.Frequency(hz) * physic.Hertz
}
