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
	"testing"

	"periph.io/x/conn/v3/physic"
)

// hostBus stands in for a periph i2c.Bus
type hostBus struct {
	sim *Sim
}

func (h hostBus) String() string                    { return "sim" }
func (h hostBus) SetSpeed(f physic.Frequency) error { return nil }
func (h hostBus) Tx(addr uint16, w, r []byte) error { return h.sim.Tx(addr, w, r) }

func Test_host_bus(t *testing.T) {
	sim := NewSim(0x0e, 0x01)
	m := New(HostBus{Bus: hostBus{sim}}, 0x0e)
	if err := m.Write32(CSI_CONFW, 0xa3008086); err != nil {
		t.Fatal(err)
	}
	if got := sim.Get(CSI_CONFW); got != 0xa3008086 {
		t.Errorf("CSI_CONFW = %#x", got)
	}
	id, err := m.Read16(CHIPID)
	if err != nil || id != 0x4401 {
		t.Errorf("CHIPID = %#x, %v", id, err)
	}
}
