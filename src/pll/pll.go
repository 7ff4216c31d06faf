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

package pll

import (
	"errors"
	"fmt"

	"csibridge/src/clock"
	"periph.io/x/conn/v3/physic"
)

var (
	ErrInvalidClockRange   = errors.New("pll: invalid clock range")
	ErrUnsupportedLaneRate = errors.New("pll: unsupported lane rate")
)

const (
	MinRefClock   = 6_000_000
	MaxRefClock   = 40_000_000
	MinInputClock = 4_000_000
	MaxInputClock = 40_000_000
	MaxPreDivider = 16

	MinLaneRate = 62_500_000
	MaxLaneRate = 1_000_000_000
)

/*
Config is the lane rate independent part of the bridge PLL setup.

The PLL input clock is the reference clock divided by PreDivider. The divider is
the one that brings the reference closest to 4 MHz, the low end of the legal
input window, since lower input clocks give the PLL more feedback resolution.
*/
type Config struct {
	RefClock   uint64 // Hz
	PreDivider uint16 // 1..16
	InputClock uint64 // Hz
}

func NewConfig(ref physic.Frequency) (Config, error) {
	refclk := clock.Hertz(ref)
	if refclk < MinRefClock || refclk > MaxRefClock {
		return Config{}, fmt.Errorf("%w: refclk %s must be between 6MHz and 40MHz", ErrInvalidClockRange, ref)
	}
	prd := clock.DivRoundClosest(refclk, MinInputClock)
	if prd < 1 || prd > MaxPreDivider {
		return Config{}, fmt.Errorf("%w: pre-divider %d", ErrInvalidClockRange, prd)
	}
	in := clock.DivRoundClosest(refclk, prd)
	if in < MinInputClock || in > MaxInputClock {
		return Config{}, fmt.Errorf("%w: pll input clock %d Hz with pre-divider %d", ErrInvalidClockRange, in, prd)
	}
	return Config{
		RefClock:   refclk,
		PreDivider: uint16(prd),
		InputClock: in,
	}, nil
}

// Derive sets up the PLL for a reference clock and checks that every requested
// lane rate can be produced by it.
func Derive(ref physic.Frequency, laneRates []uint64) (Config, error) {
	cfg, err := NewConfig(ref)
	if err != nil {
		return Config{}, err
	}
	for _, rate := range laneRates {
		if err := CheckLaneRate(rate); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// LaneRate converts a CSI-2 link frequency to bits per second per lane. The data
// lanes are double data rate.
func LaneRate(linkFrequency uint64) uint64 {
	return 2 * linkFrequency
}

func CheckLaneRate(rate uint64) error {
	if rate < MinLaneRate || rate > MaxLaneRate {
		return fmt.Errorf("%w: %d bps per lane", ErrUnsupportedLaneRate, rate)
	}
	return nil
}

// SpeedRange is the PLL frequency range selector (FRS), the output divider
// exponent of the PLL for the given lane rate.
func SpeedRange(rate uint64) uint8 {
	switch {
	case rate > 500_000_000:
		return 0
	case rate > 250_000_000:
		return 1
	case rate > 125_000_000:
		return 2
	}
	return 3
}

// Feedback returns the feedback divider for a lane rate. The vendor tool uses
// rate = input * fbd / 2^frs rather than the datasheet's fbd+1.
func (c Config) Feedback(rate uint64) uint16 {
	return uint16((rate / c.InputClock) << SpeedRange(rate))
}

func (c Config) UnitClock(rate uint64) uint64 {
	return c.InputClock >> SpeedRange(rate)
}

func (c Config) UnitClockMul(rate uint64) uint64 {
	return rate / c.UnitClock(rate)
}

func (c Config) String() string {
	return fmt.Sprintf("refclk %d Hz, pll input clock %d Hz, PLL_PRD %d", c.RefClock, c.InputClock, c.PreDivider-1)
}
