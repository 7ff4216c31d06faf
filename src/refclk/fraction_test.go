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
	"math"
	"math/big"
	"testing"
)

func Test_convergent(t *testing.T) {
	tests := []struct {
		name           string
		a, b, maxDenom uint64
		wantC, wantD   uint64
	}{
		{"integer", 10, 1, 100, 10, 1},
		{"zero", 0, 1, 100, 0, 1},
		{"exact division", 63, 9, 10, 7, 1},
		{"exact answer", 23, 5, 10, 23, 5},
		{"limited depth", 2300, 500, 7, 23, 5},
		{"less limited depth", 2301, 500, 97, 23, 5},
		{"almost unlimited depth", 451, 98, 99, 451, 98},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, d := convergent(tt.a, tt.b, 0, 1, tt.maxDenom)
			if c != tt.wantC || d != tt.wantD {
				t.Errorf("convergent(%d, %d) = %d/%d, want %d/%d", tt.a, tt.b, c, d, tt.wantC, tt.wantD)
			}
		})
	}
}

func Test_convergents_of_pi(t *testing.T) {
	steps := [][]uint64{
		{5, 3, 1},
		{7, 22, 7},
		{105, 22, 7},
		{106, 333, 106},
		{113, 355, 113},
		{33000, 355, 113},
		{33102, 103993, 33102},
		{33215, 104348, 33215},
		{100_000, 312689, 99532},
		{100_000_000, 219684069, 69927611},
	}
	pi := big.NewRat(314159265358, 100_000_000_000)
	last := big.NewRat(10, 1)
	for _, s := range steps {
		c, d := convergent(314159265358, 100_000_000_000, 0, 1, s[0])
		if c != s[1] || d != s[2] {
			t.Errorf("limit %d => %d/%d, want %d/%d", s[0], c, d, s[1], s[2])
		}
		// float64 can't resolve the later residuals
		eps := new(big.Rat).Sub(big.NewRat(int64(c), int64(d)), pi)
		eps.Abs(eps)
		if eps.Cmp(last) > 0 {
			t.Errorf("limit %d: error grew from %s to %s", s[0], last.FloatString(12), eps.FloatString(12))
		}
		last = eps
	}
}

func Test_nearest_fraction(t *testing.T) {
	tests := []struct {
		name           string
		a, b, maxDenom uint64
		wantC, wantD   uint64
	}{
		{"exact division", 3879 * 1712, 1712, 20, 3879, 1},
		{"pi", uint64(math.Round(math.Pi * 3879)), 3879, 100, 22, 7},
		{"pi, larger", uint64(math.Round(math.Pi * 3879)), 3879, 110, 333, 106},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, d, eps := NearestFraction(tt.a, tt.b, tt.maxDenom)
			if c != tt.wantC || d != tt.wantD {
				t.Errorf("NearestFraction = %d/%d, want %d/%d", c, d, tt.wantC, tt.wantD)
			}
			want := float64(tt.a)/float64(tt.b) - float64(tt.wantC)/float64(tt.wantD)
			if eps != want {
				t.Errorf("NearestFraction eps = %g, want %g", eps, want)
			}
		})
	}
}
