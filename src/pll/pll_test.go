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
	"testing"

	"periph.io/x/conn/v3/physic"
)

func Test_config(t *testing.T) {
	tests := []struct {
		name    string
		ref     physic.Frequency
		wantPrd uint16
		wantIn  uint64
		wantErr error
	}{
		{"24MHz lands on 4MHz", 24 * physic.MegaHertz, 6, 4_000_000, nil},
		{"27MHz rounds to 3.857MHz", 27 * physic.MegaHertz, 0, 0, ErrInvalidClockRange},
		{"26MHz", 26 * physic.MegaHertz, 7, 3_714_286, ErrInvalidClockRange},
		{"25MHz", 25 * physic.MegaHertz, 6, 4_166_667, nil},
		{"40MHz", 40 * physic.MegaHertz, 10, 4_000_000, nil},
		{"8MHz", 8 * physic.MegaHertz, 2, 4_000_000, nil},
		{"too slow", 5 * physic.MegaHertz, 0, 0, ErrInvalidClockRange},
		{"too fast", 41 * physic.MegaHertz, 0, 0, ErrInvalidClockRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewConfig(tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewConfig(%s) error = %v, want %v", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewConfig(%s) failed: %s", tt.ref, err)
			}
			if got.PreDivider != tt.wantPrd || got.InputClock != tt.wantIn {
				t.Errorf("NewConfig(%s) = %d, %d; want %d, %d", tt.ref, got.PreDivider, got.InputClock, tt.wantPrd, tt.wantIn)
			}
		})
	}
}

func Test_config_range(t *testing.T) {
	// every reference in the legal window either gives a legal pll setup
	// or is refused with ErrInvalidClockRange
	for ref := physic.Frequency(MinRefClock) * physic.Hertz; ref <= MaxRefClock*physic.Hertz; ref += 250 * physic.KiloHertz {
		c, err := NewConfig(ref)
		if err != nil {
			if !errors.Is(err, ErrInvalidClockRange) {
				t.Errorf("NewConfig(%s) unexpected error %v", ref, err)
			}
			continue
		}
		if c.PreDivider < 1 || c.PreDivider > MaxPreDivider {
			t.Errorf("NewConfig(%s) pre-divider %d out of range", ref, c.PreDivider)
		}
		if c.InputClock < MinInputClock || c.InputClock > MaxInputClock {
			t.Errorf("NewConfig(%s) input clock %d out of range", ref, c.InputClock)
		}
	}
}

func Test_derive(t *testing.T) {
	c, err := Derive(24*physic.MegaHertz, []uint64{432_000_000, 216_000_000})
	if err != nil {
		t.Fatalf("Derive failed: %s", err)
	}
	if c.PreDivider != 6 || c.InputClock != 4_000_000 {
		t.Errorf("Derive = %v", c)
	}

	_, err = Derive(24*physic.MegaHertz, []uint64{432_000_000, 50_000_000})
	if !errors.Is(err, ErrUnsupportedLaneRate) {
		t.Errorf("50Mbps lane rate should fail, got %v", err)
	}
	_, err = Derive(24*physic.MegaHertz, []uint64{1_000_000_001})
	if !errors.Is(err, ErrUnsupportedLaneRate) {
		t.Errorf("lane rate above 1Gbps should fail, got %v", err)
	}
	_, err = Derive(27*physic.MegaHertz, []uint64{432_000_000})
	if !errors.Is(err, ErrInvalidClockRange) {
		t.Errorf("27MHz refclk should fail, got %v", err)
	}
}

func Test_lane_rate_window(t *testing.T) {
	for _, rate := range []uint64{MinLaneRate, 100_000_000, 432_000_000, MaxLaneRate} {
		if err := CheckLaneRate(rate); err != nil {
			t.Errorf("CheckLaneRate(%d) = %v", rate, err)
		}
	}
	for _, rate := range []uint64{0, 50_000_000, MinLaneRate - 1, MaxLaneRate + 1} {
		if err := CheckLaneRate(rate); !errors.Is(err, ErrUnsupportedLaneRate) {
			t.Errorf("CheckLaneRate(%d) = %v", rate, err)
		}
	}
	if LaneRate(216_000_000) != 432_000_000 {
		t.Errorf("LaneRate(216MHz) = %d", LaneRate(216_000_000))
	}
}

func Test_feedback(t *testing.T) {
	c := Config{RefClock: 24_000_000, PreDivider: 6, InputClock: 4_000_000}
	tests := []struct {
		rate    uint64
		frs     uint8
		fbd     uint16
		unit    uint64
		unitMul uint64
	}{
		{1_000_000_000, 0, 250, 4_000_000, 250},
		{500_000_001, 0, 125, 4_000_000, 125},
		{500_000_000, 1, 250, 2_000_000, 250},
		{432_000_000, 1, 216, 2_000_000, 216},
		{250_000_000, 2, 248, 1_000_000, 250},
		{125_000_000, 3, 248, 500_000, 250},
		{62_500_000, 3, 120, 500_000, 125},
	}
	for _, tt := range tests {
		if got := SpeedRange(tt.rate); got != tt.frs {
			t.Errorf("SpeedRange(%d) = %d, want %d", tt.rate, got, tt.frs)
		}
		if got := c.Feedback(tt.rate); got != tt.fbd {
			t.Errorf("Feedback(%d) = %d, want %d", tt.rate, got, tt.fbd)
		}
		if got := c.UnitClock(tt.rate); got != tt.unit {
			t.Errorf("UnitClock(%d) = %d, want %d", tt.rate, got, tt.unit)
		}
		if got := c.UnitClockMul(tt.rate); got != tt.unitMul {
			t.Errorf("UnitClockMul(%d) = %d, want %d", tt.rate, got, tt.unitMul)
		}
	}
}
