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

package refclk

import (
	"errors"
	"fmt"
	"math"

	"csibridge/src/pll"
)

var ErrPlan = errors.New("refclk: no divider plan")

const (
	MaxDenominator = 1<<20 - 1

	MinXtal = 10e6
	MaxXtal = 27e6
	MinVCO  = 600e6
	MaxVCO  = 900e6
)

// Plan holds the divider settings of PLL A and multisynth 0 of a Si5351 for
// one output frequency.
type Plan struct {
	Xtal, VCO, Freq float64 // Hz; Freq is the frequency actually produced

	// PLL feedback a + b/c
	PLLMult, PLLNum, PLLDenom uint32
	// multisynth divider a + b/c
	Div, DivNum, DivDenom uint32

	Err float64 // requested minus produced frequency in Hz
}

/*
NewPlan finds divider settings that make a Si5351 with crystal xtal produce
the bridge reference clock f. The VCO runs at vco, or at 800 MHz when vco is
zero. Both fractions come from NearestFraction so the error stays well below
a ppb.

f has to lie in the range the bridge PLL accepts as reference.
*/
func NewPlan(xtal, vco, f float64) (Plan, error) {
	if xtal < MinXtal || xtal > MaxXtal {
		return Plan{}, fmt.Errorf("%w: crystal %.0f Hz out of range", ErrPlan, xtal)
	}
	if f < pll.MinRefClock || f > pll.MaxRefClock {
		return Plan{}, fmt.Errorf("%w: %.0f Hz is no bridge reference clock", ErrPlan, f)
	}
	if vco == 0 {
		vco = 800e6
	}
	if vco < MinVCO || vco > MaxVCO {
		return Plan{}, fmt.Errorf("%w: vco %.0f Hz out of range", ErrPlan, vco)
	}

	z := vco / xtal
	if z < 15 || z > 90 {
		return Plan{}, fmt.Errorf("%w: feedback ratio %.3f", ErrPlan, z)
	}
	b, c, _ := NearestFraction(uint64(z*1e12), 1_000_000_000_000, MaxDenominator)
	p := Plan{
		Xtal:     xtal,
		PLLMult:  uint32(b / c),
		PLLNum:   uint32(b % c),
		PLLDenom: uint32(c),
	}
	p.VCO = xtal * (float64(p.PLLMult) + float64(p.PLLNum)/float64(p.PLLDenom))

	// 6..40 MHz out of 600..900 MHz always needs a divider between 15 and
	// 150, so the output R divider stays at 1
	z = p.VCO / f
	if z < 8 || z > 2048 {
		return Plan{}, fmt.Errorf("%w: output divider ratio %.3f", ErrPlan, z)
	}
	b, c, _ = NearestFraction(uint64(z*1e12), 1_000_000_000_000, MaxDenominator)
	p.Div = uint32(b / c)
	p.DivNum = uint32(b % c)
	p.DivDenom = uint32(c)

	p.Freq = p.VCO / (float64(p.Div) + float64(p.DivNum)/float64(p.DivDenom))
	p.Err = f - p.Freq
	if math.Abs(p.Err)/f > 1e-9 {
		return Plan{}, fmt.Errorf("%w: %.0f Hz off by %.3g Hz", ErrPlan, f, p.Err)
	}
	return p, nil
}

func (p Plan) String() string {
	return fmt.Sprintf("xtal %.0f Hz * (%d + %d/%d) / (%d + %d/%d) = %.3f Hz",
		p.Xtal, p.PLLMult, p.PLLNum, p.PLLDenom, p.Div, p.DivNum, p.DivDenom, p.Freq)
}
