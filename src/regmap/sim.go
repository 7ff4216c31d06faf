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

package regmap

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrNoDevice = errors.New("regmap: no device at address")

// Access is one register transfer seen by a Sim.
type Access struct {
	Write bool
	Reg   uint16
	Val   uint32
	Size  int
}

func (a Access) String() string {
	op := "rd"
	if a.Write {
		op = "wr"
	}
	return fmt.Sprintf("%s 0x%04x = 0x%0*x", op, a.Reg, 2*a.Size, a.Val)
}

/*
Sim is an in-memory bridge register file that answers on one I2C address. It
decodes the bridge's addressing and byte order, so anything written through a
Map can be read back as register values. It is used for dry runs and tests.
*/
type Sim struct {
	mu   sync.Mutex
	addr uint16
	regs map[uint16]uint32
	log  []Access

	// Hook, if set, is called after every write.
	Hook func(s *Sim, reg uint16, val uint32)
}

// NewSim returns a register file that identifies as a bridge of revision rev.
func NewSim(addr uint16, rev uint8) *Sim {
	s := &Sim{addr: addr, regs: map[uint16]uint32{}}
	s.regs[CHIPID] = ChipID<<8 | uint32(rev)
	return s
}

func (s *Sim) Tx(addr uint16, w, r []byte) error {
	if addr != s.addr {
		return fmt.Errorf("%w 0x%02x", ErrNoDevice, addr)
	}
	if len(w) < 2 {
		return fmt.Errorf("regmap: short register address %v", w)
	}
	reg := uint16(w[0])<<8 | uint16(w[1])
	data := w[2:]

	s.mu.Lock()
	if len(data) > 0 {
		val := decode(data)
		s.regs[reg] = val
		s.log = append(s.log, Access{Write: true, Reg: reg, Val: val, Size: len(data)})
	}
	if len(r) > 0 {
		val := s.regs[reg]
		b, err := encode(val, len(r))
		if err != nil {
			s.mu.Unlock()
			return err
		}
		copy(r, b)
		s.log = append(s.log, Access{Reg: reg, Val: val, Size: len(r)})
	}
	hook := s.Hook
	s.mu.Unlock()

	if hook != nil && len(data) > 0 {
		hook(s, reg, decode(data))
	}
	return nil
}

func (s *Sim) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return s.Tx(uint16(addr), []byte{0, r}, buf)
}

func (s *Sim) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return s.Tx(uint16(addr), append([]byte{0, r}, buf...), nil)
}

func (s *Sim) Get(reg uint16) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}

func (s *Sim) Set(reg uint16, val uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[reg] = val
}

// Writes returns the writes seen so far, in order.
func (s *Sim) Writes() []Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	var r []Access
	for _, a := range s.log {
		if a.Write {
			r = append(r, a)
		}
	}
	return r
}

// WritesTo returns the values written to reg, in order.
func (s *Sim) WritesTo(reg uint16) []uint32 {
	var r []uint32
	for _, a := range s.Writes() {
		if a.Reg == reg {
			r = append(r, a.Val)
		}
	}
	return r
}

func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}

// Dump lists all registers that have a value, in address order.
func (s *Sim) Dump() []Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := make([]Access, 0, len(s.regs))
	for reg, val := range s.regs {
		r = append(r, Access{Reg: reg, Val: val, Size: RegSize(reg)})
	}
	sort.Slice(r, func(i, j int) bool { return r[i].Reg < r[j].Reg })
	return r
}
