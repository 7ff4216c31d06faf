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
Package dphy synthesizes the CSI-2 transmitter D-PHY timing counters of the
bridge for one lane rate.

Every counter is derived from a minimum duration of the D-PHY electrical table.
The minimum is expressed in picoseconds, possibly plus a multiple of the lane
bit period, and then converted to a number of HS byte clock periods by rounding
up and subtracting the fixed count offset that the transmitter adds internally.

Several offsets follow the vendor's validation spreadsheet (REF_02) instead of
the datasheet (REF_01). Those are the values that produce compliant links on
real boards and must not be "corrected" to the datasheet without measurements.
*/
package dphy

import (
	"errors"
	"fmt"
	"strings"

	"csibridge/src/clock"
	"csibridge/src/pll"
)

var (
	ErrUnsupportedByteClock = errors.New("dphy: unsupported HS byte clock")
	ErrTimingViolation      = errors.New("dphy: timing violation")
)

const (
	MaxByteClock = 125_000_000

	lineInitMinUs  = 110
	tWakeupMinUs   = 1200 // 1ms required, 1.2ms for margin
	lptxTimeMinNs  = 55
	tClkZeroMinNs  = 305
	tClkTrailMinNs = 65
	tClkPostMinNs  = 65
	tHSZeroMinNs   = 150
	tHSTrailMinNs  = 65
	tHSPrepMinNs   = 45
)

// Timings are the register counts of the transmitter for one link setting.
type Timings struct {
	LineInit    uint32
	LPTXTime    uint32
	TClkPrepare uint32
	TClkZero    uint32
	TClkTrail   uint32
	TClkPost    uint32
	THSPrepare  uint32
	THSZero     uint32
	THSTrail    uint32
	TWakeup     uint32

	// HSLPHSps is the time needed for one HS->LP->HS round trip on the link,
	// which the transmitter has to fit into the horizontal blanking.
	HSLPHSps uint64
}

// periods of the clocks a lane rate implies, all in ps except hfclk
type periods struct {
	spl   int64 // lane bit period
	hsclk int64 // HS byte clock period
	hfNs  int64 // HF clock (byte clock / 2) period in ns
}

func newPeriods(laneRate uint64) (periods, error) {
	hsclk := laneRate >> 3
	if hsclk > MaxByteClock || laneRate > 8*MaxByteClock {
		return periods{}, fmt.Errorf("%w: %d Hz, must be <= 125 MHz", ErrUnsupportedByteClock, hsclk)
	}
	if laneRate < pll.MinLaneRate {
		return periods{}, fmt.Errorf("%w: %d bps per lane", pll.ErrUnsupportedLaneRate, laneRate)
	}
	hf, err := clock.Nanoseconds(hsclk>>1, clock.Nearest)
	if err != nil {
		return periods{}, err
	}
	hs, err := clock.Picoseconds(hsclk)
	if err != nil {
		return periods{}, err
	}
	spl, err := clock.Picoseconds(laneRate)
	if err != nil {
		return periods{}, err
	}
	return periods{spl: int64(spl), hsclk: int64(hs), hfNs: int64(hf)}, nil
}

func ceil(n, d int64) int64 {
	return int64(clock.DivRoundUp(uint64(n), uint64(d)))
}

// counts converts a minimum of minPs to a count of byte clock periods, less
// offset, never going below zero.
func counts(minPs, period, offset int64) uint32 {
	n := ceil(minPs, period)
	if n < offset {
		return 0
	}
	return uint32(n - offset)
}

/*
Synthesize computes the transmitter timing counts for a lane rate in bits per
second. With continuous set, the HS clock lane keeps running during LP periods
of the data lanes, which makes the HS-LP-HS transition much shorter.

The lane rate must lie in 62.5 Mbps..1 Gbps, which keeps the HS byte clock at or
below 125 MHz.
*/
func Synthesize(laneRate uint64, continuous bool) (Timings, error) {
	p, err := newPeriods(laneRate)
	if err != nil {
		return Timings{}, err
	}
	var t Timings

	// lineinitcnt * hfclk_p_ns > 110us
	t.LineInit = uint32(ceil(lineInitMinUs*1000, p.hfNs))

	// (lptxtimecnt + 1) * hsclk_p_ps > 55ns
	// 38ns < (tclk_preparecnt + 1) * hsclk_p_ps < 95ns
	t.LPTXTime = counts(lptxTimeMinNs*1000, p.hsclk, 1)
	t.TClkPrepare = t.LPTXTime

	// tclk_zero + tclk_prepare > 300ns, use tclk_zero > 305ns alone
	// REF_02: tclk_zero = (2.5 + tclk_zerocnt) * hsclk_p_ps + 3.5 * spl_p_ps
	t.TClkZero = counts(tClkZeroMinNs*1000-3*p.spl, p.hsclk, 2)

	// 40ns + 4 * spl_p_ps < (ths_preparecnt + 1) * hsclk_p_ps < 85ns + 6 * spl_p_ps
	t.THSPrepare = counts(tHSPrepMinNs*1000+4*p.spl, p.hsclk, 1)

	// ths_zero > 145ns + 10 * spl_p_ps
	// REF_02: ths_zero = (7 + ths_zerocnt) * hsclk_p_ps + 4 * hsclk_p_ps + 11 * spl_p_ps
	t.THSZero = counts(tHSZeroMinNs*1000-p.spl, p.hsclk, 11)

	// hsclk_p * (lptxtimecnt + 1) * (twakeupcnt + 1) > 1ms
	hsNs := p.hsclk / 1000
	t.TWakeup = uint32(ceil(tWakeupMinUs*1000, hsNs*int64(t.LPTXTime+1)) - 1)

	// 60ns + 4 * spl_p_ps < ths_trail < 105ns + 12 * spl_p_ps
	// REF_02: ths_trail = (1 + ths_trailcnt) * hsclk_p_ps + 4 * hsclk_p_ps - 11 * spl_p_ps
	t.THSTrail = counts(tHSTrailMinNs*1000+15*p.spl, p.hsclk, 5)

	// 60ns < tclk_trail < 105ns + 12 * spl_p_ps - 30
	// REF_02: tclk_trail = (1 + tclk_trailcnt) * hsclk_p_ps + 4 * hsclk_p_ps - 3 * spl_p_ps
	t.TClkTrail = counts(tClkTrailMinNs*1000+3*p.spl, p.hsclk, 5)

	// tclk_post > 60ns + 52 * spl_p_ps
	// REF_02 validation passes with
	// tclk_post = (2 + tclk_postcnt) * hsclk_p_ps + hsclk_p_ps + 3 * spl_p_ps
	t.TClkPost = counts(tClkPostMinNs*1000+49*p.spl, p.hsclk, 3)

	t.HSLPHSps = hsLPHS(t, p, continuous)
	return t, nil
}

/*
hsLPHS is the duration of an HS->LP->HS round trip in ps.

REF_02 mixes units in the non-continuous formula and finally multiplies the
whole sum by two. Scaling by 3/2 instead gives nearly the same results as the
spreadsheet. Whether the spreadsheet intends the mixed units is unknown.
*/
func hsLPHS(t Timings, p periods, continuous bool) uint64 {
	h, spl := p.hsclk, p.spl
	lptx := int64(t.LPTXTime+1) * h
	tclkPost := int64(4+t.TClkPost)*h + 3*spl
	tclkTrail := int64(5+t.TClkTrail)*h - 3*spl
	tclkZero := int64(2+t.TClkZero)*h + 3*spl
	thsTrail := int64(5+t.THSTrail)*h - 11*spl
	thsZero := int64(7+t.THSZero)*h + 4*h + 11*spl

	if continuous {
		return uint64(2*lptx + 25*h + thsTrail + thsZero)
	}
	sum := 4 * lptx
	sum += thsTrail + tclkPost + tclkTrail + tclkZero + thsZero
	sum += int64(13+8*t.LPTXTime) * h
	sum += 22 * h
	return clock.DivRoundClosest(uint64(3*sum), 2)
}

/*
Validate recomputes the durations the counts produce at the given lane rate and
reports every lower bound that is not met. It returns nil for any output of
Synthesize at the same lane rate.
*/
func (t Timings) Validate(laneRate uint64) error {
	p, err := newPeriods(laneRate)
	if err != nil {
		return err
	}
	h, spl := p.hsclk, p.spl
	checks := []struct {
		name string
		got  int64
		min  int64
	}{
		{"lineinit", int64(t.LineInit) * p.hfNs * 1000, lineInitMinUs * 1_000_000},
		{"lptxtime", int64(t.LPTXTime+1) * h, lptxTimeMinNs * 1000},
		{"tclk_prepare", int64(t.TClkPrepare+1) * h, 38 * 1000},
		{"tclk_zero", int64(t.TClkZero+2)*h + 3*spl, tClkZeroMinNs * 1000},
		{"ths_prepare", int64(t.THSPrepare+1) * h, tHSPrepMinNs*1000 + 4*spl},
		{"ths_zero", int64(t.THSZero+11)*h + spl, tHSZeroMinNs * 1000},
		{"twakeup", int64(t.TWakeup+1) * int64(t.LPTXTime+1) * (h / 1000) * 1000, tWakeupMinUs * 1_000_000},
		{"ths_trail", int64(t.THSTrail+5) * h, tHSTrailMinNs*1000 + 15*spl},
		{"tclk_trail", int64(t.TClkTrail+5) * h, tClkTrailMinNs*1000 + 3*spl},
		{"tclk_post", int64(t.TClkPost+3) * h, tClkPostMinNs*1000 + 49*spl},
	}
	var bad []string
	for _, c := range checks {
		if c.got < c.min {
			bad = append(bad, fmt.Sprintf("%s %dps < %dps", c.name, c.got, c.min))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w at %d bps: %s", ErrTimingViolation, laneRate, strings.Join(bad, ", "))
	}
	return nil
}

func (t Timings) String() string {
	return fmt.Sprintf("lineinit=%d lptxtime=%d tclk_prepare=%d tclk_zero=%d tclk_trail=%d tclk_post=%d "+
		"ths_prepare=%d ths_zero=%d ths_trail=%d twakeup=%d hs_lp_hs=%dps",
		t.LineInit, t.LPTXTime, t.TClkPrepare, t.TClkZero, t.TClkTrail, t.TClkPost,
		t.THSPrepare, t.THSZero, t.THSTrail, t.TWakeup, t.HSLPHSps)
}
