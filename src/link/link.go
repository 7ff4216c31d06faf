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
Package link builds the table of CSI-2 link settings the bridge may use.

One setting is created per link frequency offered by the board description.
Settings are immutable once built: the PLL and D-PHY parameters are derived at
construction and cached for the negotiation that runs on every format change.
The index of the active setting is owned by the caller, never by the table.
*/
package link

import (
	"errors"
	"fmt"

	"csibridge/src/dphy"
	"csibridge/src/pll"
)

var ErrNoSettings = errors.New("link: no usable link frequency")

type Setting struct {
	Index         int
	LinkFrequency uint64 // Hz, as offered by the board description
	LaneRate      uint64 // bps per lane
	Lanes         int
	Continuous    bool

	SpeedRange   uint8
	UnitClock    uint64
	UnitClockMul uint64
	Feedback     uint16

	Timings dphy.Timings
}

func NewSetting(index int, linkFrequency uint64, lanes int, continuous bool, p pll.Config) (Setting, error) {
	if lanes < 1 || lanes > 4 {
		return Setting{}, fmt.Errorf("link: invalid number of lanes %d", lanes)
	}
	rate := pll.LaneRate(linkFrequency)
	if err := pll.CheckLaneRate(rate); err != nil {
		return Setting{}, err
	}
	t, err := dphy.Synthesize(rate, continuous)
	if err != nil {
		return Setting{}, err
	}
	return Setting{
		Index:         index,
		LinkFrequency: linkFrequency,
		LaneRate:      rate,
		Lanes:         lanes,
		Continuous:    continuous,
		SpeedRange:    pll.SpeedRange(rate),
		UnitClock:     p.UnitClock(rate),
		UnitClockMul:  p.UnitClockMul(rate),
		Feedback:      p.Feedback(rate),
		Timings:       t,
	}, nil
}

// Bitrate is the aggregate bit rate over all data lanes.
func (s Setting) Bitrate() uint64 {
	return s.LaneRate * uint64(s.Lanes)
}

func (s Setting) String() string {
	mode := "gated"
	if s.Continuous {
		mode = "continuous"
	}
	return fmt.Sprintf("#%d %d Hz: %d bps/lane x %d lanes, %s clock, speed range %d, unit clock %d Hz x %d",
		s.Index, s.LinkFrequency, s.LaneRate, s.Lanes, mode, s.SpeedRange, s.UnitClock, s.UnitClockMul)
}

type Table struct {
	PLL      pll.Config
	Settings []Setting
	// Dropped lists the link frequencies that could not be used together
	// with the reason.
	Dropped []error
}

/*
NewTable derives one setting per link frequency. A frequency whose lane rate or
byte clock is out of range makes that setting unusable but does not fail the
table; it is recorded in Dropped. Only a table without any usable setting is an
error.
*/
func NewTable(linkFrequencies []uint64, lanes int, continuous bool, p pll.Config) (Table, error) {
	if lanes < 1 || lanes > 4 {
		return Table{}, fmt.Errorf("link: invalid number of lanes %d", lanes)
	}
	t := Table{PLL: p}
	for _, f := range linkFrequencies {
		s, err := NewSetting(len(t.Settings), f, lanes, continuous, p)
		if err != nil {
			if errors.Is(err, pll.ErrUnsupportedLaneRate) || errors.Is(err, dphy.ErrUnsupportedByteClock) {
				t.Dropped = append(t.Dropped, fmt.Errorf("link frequency %d Hz: %w", f, err))
				continue
			}
			return Table{}, err
		}
		t.Settings = append(t.Settings, s)
	}
	if len(t.Settings) == 0 {
		if len(t.Dropped) == 0 {
			return Table{}, ErrNoSettings
		}
		return Table{}, fmt.Errorf("%w: %w", ErrNoSettings, errors.Join(t.Dropped...))
	}
	return t, nil
}

func (t Table) Setting(index int) (Setting, error) {
	if index < 0 || index >= len(t.Settings) {
		return Setting{}, fmt.Errorf("link: no setting #%d", index)
	}
	return t.Settings[index], nil
}

func (t Table) Frequencies() []uint64 {
	r := make([]uint64, len(t.Settings))
	for i, s := range t.Settings {
		r[i] = s.LinkFrequency
	}
	return r
}
