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

/*
NearestFraction returns the best approximation c/d of a/b with d <= maxDenominator
together with the remaining error a/b - c/d.

The Si5351 dividers are of the form a + b/c with c < 2^20. Picking c = 2^20-1
and rounding b leaves errors of several ppm at some frequencies, which is more
than the bridge PLL tolerates on top of the crystal. The convergents of the
continued fraction of a/b are the best rational approximations for their
denominator, so taking the last one that fits gives errors far below a ppb.
*/
func NearestFraction(a, b, maxDenominator uint64) (c, d uint64, eps float64) {
	c, d = convergent(a, b, 0, 1, maxDenominator)
	eps = float64(a)/float64(b) - float64(c)/float64(d)
	return c, d, eps
}

/*
convergent expands a/b as a continued fraction

	a/b = floor(a/b) + 1 / (b / rem(a, b))

and returns the rational value of the deepest convergent whose denominator
stays within maxDenominator. prev and prev2 are the denominators of the two
previous convergents, 0 and 1 for the first term. A term that would overflow
the limit is dropped by returning 1/0, which adds nothing to the caller's
convergent.
*/
func convergent(a, b, prev, prev2, maxDenominator uint64) (c, d uint64) {
	term := a / b
	denom := prev2 + term*prev
	if denom > maxDenominator {
		return 1, 0
	}
	rem := a - term*b
	if rem == 0 {
		return term, 1
	}
	cx, dx := convergent(b, rem, denom, prev, maxDenominator)
	return term*cx + dx, cx
}
