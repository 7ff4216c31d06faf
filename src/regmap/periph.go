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
	"periph.io/x/conn/v3/i2c"
)

// HostBus lets a periph I2C bus, such as a Linux /dev/i2c-N adapter, carry
// the driver traffic.
type HostBus struct {
	Bus i2c.Bus
}

func (h HostBus) Tx(addr uint16, w, r []byte) error {
	return h.Bus.Tx(addr, w, r)
}

func (h HostBus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return h.Bus.Tx(uint16(addr), []byte{reg}, buf)
}

func (h HostBus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return h.Bus.Tx(uint16(addr), append([]byte{reg}, buf...), nil)
}
