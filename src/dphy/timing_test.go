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

package dphy

import (
	"errors"
	"testing"

	"csibridge/src/pll"
)

func Test_synthesize(t *testing.T) {
	tests := []struct {
		name       string
		rate       uint64
		continuous bool
		want       Timings
	}{
		{
			name:       "432Mbps continuous",
			rate:       432_000_000,
			continuous: true,
			want: Timings{
				LineInit: 2973, LPTXTime: 2, TClkPrepare: 2, TClkZero: 15, TClkTrail: 0, TClkPost: 7,
				THSPrepare: 2, THSZero: 0, THSTrail: 1, TWakeup: 22222, HSLPHSps: 888_864,
			},
		},
		{
			name:       "432Mbps gated clock",
			rate:       432_000_000,
			continuous: false,
			want: Timings{
				LineInit: 2973, LPTXTime: 2, TClkPrepare: 2, TClkZero: 15, TClkTrail: 0, TClkPost: 7,
				THSPrepare: 2, THSZero: 0, THSTrail: 1, TWakeup: 22222, HSLPHSps: 3_149_214,
			},
		},
		{
			name:       "1Gbps continuous",
			rate:       1_000_000_000,
			continuous: true,
			want: Timings{
				LineInit: 6875, LPTXTime: 6, TClkPrepare: 6, TClkZero: 36, TClkTrail: 4, TClkPost: 12,
				THSPrepare: 6, THSZero: 8, THSTrail: 5, TWakeup: 21428,
				// 2*56000 + 25*8000 + 80000-11000 + (7+8+4)*8000+11000
				HSLPHSps: 112_000 + 200_000 + 69_000 + 163_000,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Synthesize(tt.rate, tt.continuous)
			if err != nil {
				t.Fatalf("Synthesize(%d) failed: %s", tt.rate, err)
			}
			if got != tt.want {
				t.Errorf("Synthesize(%d) =\n  %s\nwant\n  %s", tt.rate, got, tt.want)
			}
		})
	}
}

func Test_synthesize_window(t *testing.T) {
	for _, continuous := range []bool{true, false} {
		for rate := uint64(pll.MinLaneRate); rate <= 1_000_000_000; rate += 7_300_000 {
			a, err := Synthesize(rate, continuous)
			if err != nil {
				t.Errorf("Synthesize(%d, %v) failed: %s", rate, continuous, err)
				continue
			}
			if err := a.Validate(rate); err != nil {
				t.Errorf("Synthesize(%d, %v) produced bad timings: %s", rate, continuous, err)
			}
			if a.HSLPHSps == 0 {
				t.Errorf("Synthesize(%d, %v) has no transition time", rate, continuous)
			}
			b, _ := Synthesize(rate, continuous)
			if a != b {
				t.Errorf("Synthesize(%d, %v) is not repeatable: %s vs %s", rate, continuous, a, b)
			}
		}
	}
}

func Test_gated_clock_costs_more(t *testing.T) {
	for _, rate := range []uint64{pll.MinLaneRate, 216_000_000, 432_000_000, 1_000_000_000} {
		c, _ := Synthesize(rate, true)
		g, _ := Synthesize(rate, false)
		if g.HSLPHSps <= c.HSLPHSps {
			t.Errorf("at %d bps gated transition %d <= continuous %d", rate, g.HSLPHSps, c.HSLPHSps)
		}
	}
}

func Test_synthesize_limits(t *testing.T) {
	tests := []struct {
		rate uint64
		want error
	}{
		{50_000_000, pll.ErrUnsupportedLaneRate},
		{pll.MinLaneRate - 1, pll.ErrUnsupportedLaneRate},
		{62_000_000, pll.ErrUnsupportedLaneRate},
		{0, pll.ErrUnsupportedLaneRate},
		{1_000_000_001, ErrUnsupportedByteClock},
		{1_200_000_000, ErrUnsupportedByteClock},
	}
	for _, tt := range tests {
		_, err := Synthesize(tt.rate, true)
		if !errors.Is(err, tt.want) {
			t.Errorf("Synthesize(%d) error = %v, want %v", tt.rate, err, tt.want)
		}
	}
}

func Test_validate_catches_short_counts(t *testing.T) {
	good, err := Synthesize(432_000_000, true)
	if err != nil {
		t.Fatal(err)
	}
	bad := good
	bad.TClkZero = 0
	bad.LineInit = 10
	err = bad.Validate(432_000_000)
	if !errors.Is(err, ErrTimingViolation) {
		t.Errorf("expected ErrTimingViolation, got %v", err)
	}
}
