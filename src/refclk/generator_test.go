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
	"errors"
	"testing"
)

var errBus = errors.New("bus stuck")

type deadBus struct{}

func (deadBus) Tx(addr uint16, w, r []byte) error                   { return errBus }
func (deadBus) ReadRegister(addr uint8, r uint8, buf []byte) error  { return errBus }
func (deadBus) WriteRegister(addr uint8, r uint8, buf []byte) error { return errBus }

func Test_generator_bus_error(t *testing.T) {
	p, err := NewPlan(25e6, 0, 24e6)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewGenerator(deadBus{}, nil).Start(p); err == nil {
		t.Errorf("Start on a dead bus should fail")
	}
}
