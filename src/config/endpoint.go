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

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// Endpoint describes the CSI-2 side of the bridge as wired on the board.
type Endpoint struct {
	LinkFrequencies    []uint64 `yaml:"link_frequencies"`
	DataLanes          []int    `yaml:"data_lanes"`
	ClockNoncontinuous bool     `yaml:"clock_noncontinuous"`

	// Properties is the endpoint in firmware property notation. When set it
	// replaces the fields above.
	Properties string `yaml:"properties,omitempty"`
}

func (e Endpoint) Lanes() int {
	return len(e.DataLanes)
}

func (e Endpoint) Continuous() bool {
	return !e.ClockNoncontinuous
}

func (e Endpoint) Validate() error {
	if len(e.LinkFrequencies) == 0 {
		return fmt.Errorf("%w: endpoint has no link frequencies", ErrInvalid)
	}
	if n := e.Lanes(); n < 1 || n > 4 {
		return fmt.Errorf("%w: %d data lanes", ErrInvalid, n)
	}
	seen := map[int]bool{}
	for _, l := range e.DataLanes {
		if l < 1 || l > 4 || seen[l] {
			return fmt.Errorf("%w: data lanes %v", ErrInvalid, e.DataLanes)
		}
		seen[l] = true
	}
	for _, f := range e.LinkFrequencies {
		if f == 0 {
			return fmt.Errorf("%w: zero link frequency", ErrInvalid)
		}
	}
	return nil
}

/*
ParseEndpoint reads an endpoint written the way firmware properties are
usually quoted in board files:

	link-frequencies="<216000000 108000000>" data-lanes=1,2,3,4 clock-noncontinuous

Words are split with shell quoting rules. Lists may be separated by commas or
by spaces inside quotes, and may be wrapped in angle brackets. clock-lanes and bus-type are
accepted and ignored.
*/
func ParseEndpoint(s string) (Endpoint, error) {
	words, err := shlex.Split(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("config: endpoint %q: %w", s, err)
	}
	var ep Endpoint
	for _, w := range words {
		key, val, hasVal := strings.Cut(w, "=")
		switch key {
		case "link-frequencies":
			for _, f := range list(val) {
				n, err := strconv.ParseUint(f, 0, 64)
				if err != nil {
					return Endpoint{}, fmt.Errorf("%w: link frequency %q", ErrInvalid, f)
				}
				ep.LinkFrequencies = append(ep.LinkFrequencies, n)
			}
		case "data-lanes":
			for _, l := range list(val) {
				n, err := strconv.Atoi(l)
				if err != nil {
					return Endpoint{}, fmt.Errorf("%w: data lane %q", ErrInvalid, l)
				}
				ep.DataLanes = append(ep.DataLanes, n)
			}
		case "clock-noncontinuous":
			if hasVal {
				return Endpoint{}, fmt.Errorf("%w: %s takes no value", ErrInvalid, key)
			}
			ep.ClockNoncontinuous = true
		case "clock-lanes", "bus-type":
		default:
			return Endpoint{}, fmt.Errorf("%w: unknown endpoint property %q", ErrInvalid, key)
		}
	}
	if err := ep.Validate(); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}

func list(s string) []string {
	s = strings.Trim(s, "<>")
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
