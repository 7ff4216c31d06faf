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
	"bytes"
	"errors"
	"testing"
)

// wire records raw transfers
type wire struct {
	w, r []byte
	resp []byte
	err  error
}

func (b *wire) Tx(addr uint16, w, r []byte) error {
	b.w = append([]byte(nil), w...)
	copy(r, b.resp)
	return b.err
}

func (b *wire) ReadRegister(addr uint8, r uint8, buf []byte) error  { return b.Tx(uint16(addr), []byte{r}, buf) }
func (b *wire) WriteRegister(addr uint8, r uint8, buf []byte) error { return b.Tx(uint16(addr), []byte{r}, nil) }

func Test_byte_order(t *testing.T) {
	bus := &wire{}
	m := New(bus, 0x0e)

	if err := m.Write16(PLLCTL0, 0x5123); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bus.w, []byte{0x00, 0x16, 0x51, 0x23}) {
		t.Errorf("Write16 sent % x", bus.w)
	}

	if err := m.Write32(CSI_CONFW, 0xa3008086); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bus.w, []byte{0x05, 0x00, 0x80, 0x86, 0xa3, 0x00}) {
		t.Errorf("Write32 sent % x", bus.w)
	}

	bus.resp = []byte{0x44, 0x01}
	v, err := m.Read16(CHIPID)
	if err != nil || v != 0x4401 {
		t.Errorf("Read16 = 0x%x, %v", v, err)
	}
	bus.resp = []byte{0x80, 0x86, 0xa3, 0x00}
	v32, err := m.Read32(CSI_CONFW)
	if err != nil || v32 != 0xa3008086 {
		t.Errorf("Read32 = 0x%x, %v", v32, err)
	}
}

func Test_errors(t *testing.T) {
	bus := &wire{err: errors.New("nack")}
	m := New(bus, 0x0e)
	if err := m.Write16(SYSCTL, 1); err == nil {
		t.Errorf("bus error not reported")
	}
	if _, err := m.Read(SYSCTL, 3); !errors.Is(err, ErrSize) {
		t.Errorf("Read with 3 bytes = %v", err)
	}
	if err := m.Write(SYSCTL, 0, 8); !errors.Is(err, ErrSize) {
		t.Errorf("Write with 8 bytes = %v", err)
	}
}

func Test_reg_size(t *testing.T) {
	tests := []struct {
		addr uint16
		size int
	}{
		{CHIPID, 2}, {DBG_VIDEO_DATA, 2}, {CLW_CNTRL, 4}, {CSI_START, 4}, {0x0600, 1}, {0x8000, 1},
	}
	for _, tt := range tests {
		if got := RegSize(tt.addr); got != tt.size {
			t.Errorf("RegSize(0x%04x) = %d, want %d", tt.addr, got, tt.size)
		}
	}
}

func Test_sim(t *testing.T) {
	sim := NewSim(0x0e, 0x01)
	m := New(sim, 0x0e)

	id, err := m.Read16(CHIPID)
	if err != nil || id != 0x4401 {
		t.Fatalf("chip id 0x%x, %v", id, err)
	}
	if err := m.Write32(TWAKEUP, 0x12345678); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Read32(TWAKEUP); v != 0x12345678 {
		t.Errorf("TWAKEUP read back 0x%x", v)
	}
	if sim.Get(TWAKEUP) != 0x12345678 {
		t.Errorf("sim holds 0x%x", sim.Get(TWAKEUP))
	}

	if err := m.Write16(SYSCTL, 0x00ff); err != nil {
		t.Fatal(err)
	}
	if err := m.Update16(SYSCTL, ^uint16(SYSCTL_SLEEP), 0); err != nil {
		t.Fatal(err)
	}
	if sim.Get(SYSCTL) != 0x00fd {
		t.Errorf("Update16 left 0x%x", sim.Get(SYSCTL))
	}
	if w := sim.WritesTo(SYSCTL); len(w) != 2 || w[1] != 0x00fd {
		t.Errorf("SYSCTL writes %v", w)
	}

	other := New(sim, 0x0f)
	if _, err := other.Read16(CHIPID); !errors.Is(err, ErrNoDevice) {
		t.Errorf("wrong address = %v", err)
	}
}

func Test_field_helpers(t *testing.T) {
	if v := PLLCTL0Value(6, 216); v != 0x50d7 {
		t.Errorf("PLLCTL0Value(6, 216) = 0x%x", v)
	}
	if v := PLLCTL1FRS(1); v != 0x0400 {
		t.Errorf("PLLCTL1FRS(1) = 0x%x", v)
	}
	if v := CSIControlLanes(4); v != 0x6 {
		t.Errorf("CSIControlLanes(4) = 0x%x", v)
	}
	if v := TCLKHeader(15, 2); v != 0x0f02 {
		t.Errorf("TCLKHeader = 0x%x", v)
	}
	if v := DATAFMTPDFormat(6); v != 0x60 {
		t.Errorf("DATAFMTPDFormat(6) = 0x%x", v)
	}
}
