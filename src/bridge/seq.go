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

package bridge

import (
	"csibridge/src/regmap"
)

// seq runs a register sequence and keeps the first error. Once an access has
// failed the remaining ones are skipped.
type seq struct {
	m   *regmap.Map
	err error
}

func (s *seq) w16(reg uint16, val uint16) {
	if s.err == nil {
		s.err = s.m.Write16(reg, val)
	}
}

func (s *seq) w32(reg uint16, val uint32) {
	if s.err == nil {
		s.err = s.m.Write32(reg, val)
	}
}

// update16 writes old&keep | val to reg.
func (s *seq) update16(reg uint16, keep uint16, val uint16) {
	if s.err == nil {
		s.err = s.m.Update16(reg, keep, val)
	}
}

func (s *seq) r16(reg uint16) uint16 {
	if s.err != nil {
		return 0
	}
	v, err := s.m.Read16(reg)
	s.err = err
	return v
}

func (s *seq) r32(reg uint16) uint32 {
	if s.err != nil {
		return 0
	}
	v, err := s.m.Read32(reg)
	s.err = err
	return v
}
