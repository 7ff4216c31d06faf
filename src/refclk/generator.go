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
	"fmt"

	"csibridge/src/logger"
	"github.com/chiefMarlin/tinygo-drivers/si5351"
	"tinygo.org/x/drivers"
)

var ErrNoGenerator = errors.New("refclk: no Si5351 on the bus")

// Generator drives the Si5351 that feeds the bridge reference clock input
// from output 0.
type Generator struct {
	bus drivers.I2C
	log *logger.Logger
}

func NewGenerator(bus drivers.I2C, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Discard
	}
	return &Generator{bus: bus, log: log}
}

// Start programs PLL A and multisynth 0 with the plan and enables the outputs.
func (g *Generator) Start(p Plan) error {
	clockgen := si5351.New(g.bus)

	connected, err := clockgen.Connected()
	if err != nil {
		return fmt.Errorf("refclk: reading device status: %w", err)
	}
	if !connected {
		return ErrNoGenerator
	}
	if err := clockgen.Configure(); err != nil {
		return fmt.Errorf("refclk: configure: %w", err)
	}
	if err := clockgen.ConfigurePLL(si5351.PLL_A, uint8(p.PLLMult), p.PLLNum, p.PLLDenom); err != nil {
		return fmt.Errorf("refclk: PLL A: %w", err)
	}
	if err := clockgen.ConfigureMultisynth(0, si5351.PLL_A, p.Div, p.DivNum, p.DivDenom); err != nil {
		return fmt.Errorf("refclk: output 0: %w", err)
	}
	if err := clockgen.EnableOutputs(); err != nil {
		return fmt.Errorf("refclk: enable outputs: %w", err)
	}
	g.log.Info("refclk", "%s", p)
	return nil
}
