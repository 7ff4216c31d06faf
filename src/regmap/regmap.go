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
Package regmap gives register level access to the bridge over I2C.

Register addresses are 16 bit and sent most significant byte first. 16 bit
values travel big endian. 32 bit values travel as two big endian halves, the
low half first. Registers below 0x0100 are 16 bit wide, the CSI transmitter
registers in 0x0100..0x05ff are 32 bit wide.
*/
package regmap

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
)

var ErrSize = errors.New("regmap: unsupported register size")

type Map struct {
	bus  drivers.I2C
	addr uint16
}

func New(bus drivers.I2C, addr uint16) *Map {
	return &Map{bus: bus, addr: addr}
}

func (m *Map) Addr() uint16 {
	return m.addr
}

// RegSize is the access width in bytes of the register at addr.
func RegSize(addr uint16) int {
	switch {
	case addr <= 0x00ff:
		return 2
	case addr >= 0x0100 && addr <= 0x05ff:
		return 4
	}
	return 1
}

func encode(val uint32, n int) ([]byte, error) {
	switch n {
	case 1:
		return []byte{byte(val)}, nil
	case 2:
		return []byte{byte(val >> 8), byte(val)}, nil
	case 4:
		return []byte{byte(val >> 8), byte(val), byte(val >> 24), byte(val >> 16)}, nil
	}
	return nil, fmt.Errorf("%w: %d bytes", ErrSize, n)
}

func decode(b []byte) uint32 {
	switch len(b) {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(b[0])<<8 | uint32(b[1])
	case 4:
		return uint32(b[2])<<24 | uint32(b[3])<<16 | uint32(b[0])<<8 | uint32(b[1])
	}
	return 0
}

// Read reads an n byte register.
func (m *Map) Read(reg uint16, n int) (uint32, error) {
	if n != 1 && n != 2 && n != 4 {
		return 0, fmt.Errorf("%w: %d bytes", ErrSize, n)
	}
	buf := make([]byte, n)
	if err := m.bus.Tx(m.addr, []byte{byte(reg >> 8), byte(reg)}, buf); err != nil {
		return 0, fmt.Errorf("regmap: reading register 0x%04x from 0x%02x failed: %w", reg, m.addr, err)
	}
	return decode(buf), nil
}

// Write writes an n byte register.
func (m *Map) Write(reg uint16, val uint32, n int) error {
	data, err := encode(val, n)
	if err != nil {
		return err
	}
	w := append([]byte{byte(reg >> 8), byte(reg)}, data...)
	if err := m.bus.Tx(m.addr, w, nil); err != nil {
		return fmt.Errorf("regmap: writing register 0x%04x to 0x%02x failed: %w", reg, m.addr, err)
	}
	return nil
}

func (m *Map) Read16(reg uint16) (uint16, error) {
	v, err := m.Read(reg, 2)
	return uint16(v), err
}

func (m *Map) Read32(reg uint16) (uint32, error) {
	return m.Read(reg, 4)
}

func (m *Map) Write16(reg uint16, val uint16) error {
	return m.Write(reg, uint32(val), 2)
}

func (m *Map) Write32(reg uint16, val uint32) error {
	return m.Write(reg, val, 4)
}

// Update16 keeps the bits of a 16 bit register selected by keep and ors in val.
func (m *Map) Update16(reg uint16, keep uint16, val uint16) error {
	old, err := m.Read16(reg)
	if err != nil {
		return err
	}
	return m.Write16(reg, old&keep|val)
}
