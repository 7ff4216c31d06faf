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

package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"csibridge/src/bridge"
	"csibridge/src/clock"
	"csibridge/src/config"
	"csibridge/src/format"
	"csibridge/src/link"
	"csibridge/src/logger"
	"csibridge/src/metrics"
	"csibridge/src/pll"
	"csibridge/src/refclk"
	"csibridge/src/regmap"
	"tinygo.org/x/drivers"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

type options struct {
	configPath string
	apply      bool
	check      bool
	format     string
	width      int
	height     int
	pclk       uint64
	hblank     int
	pattern    bool
	stream     bool
	dump       bool
	logLevel   string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "board description (YAML)")
	flag.BoolVar(&o.apply, "apply", false, "program the hardware instead of a simulated register file")
	flag.BoolVar(&o.check, "check", false, "check the D-PHY timings of every link setting")
	flag.StringVar(&o.format, "format", "", "pixel format, overrides the board file")
	flag.IntVar(&o.width, "width", 0, "frame width, overrides the board file")
	flag.IntVar(&o.height, "height", 0, "frame height, overrides the board file")
	flag.Uint64Var(&o.pclk, "pclk", 0, "sensor pixel clock in Hz, overrides the board file")
	flag.IntVar(&o.hblank, "hblank", -1, "sensor horizontal blanking in pclk cycles, overrides the board file")
	flag.BoolVar(&o.pattern, "pattern", false, "send the internal colour bar pattern")
	flag.BoolVar(&o.stream, "stream", false, "start streaming after power on")
	flag.BoolVar(&o.dump, "dump", false, "print all written registers")
	flag.StringVar(&o.logLevel, "log", "", "log level: debug, info, warn, error")
	flag.Parse()

	if err := run(o); err != nil {
		fail(err)
	}
}

// run does all the work so that deferred cleanup, closing the I2C bus in
// particular, happens before main exits.
func run(o options) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	if o.format != "" {
		cfg.Format.Code = o.format
	}
	if o.width > 0 {
		cfg.Format.Width = o.width
	}
	if o.height > 0 {
		cfg.Format.Height = o.height
	}
	if o.pclk > 0 {
		cfg.Sensor.PixelClock = o.pclk
	}
	if o.hblank >= 0 {
		cfg.Sensor.HBlank = o.hblank
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Sensor.PixelClock == 0 {
		return errors.New("the sensor pixel clock is unknown, set sensor.pixel_clock or -pclk")
	}
	level, _ := logger.ParseLevel(cfg.LogLevel)
	log := logger.New(level, os.Stderr)
	m := metrics.New()

	var bus drivers.I2C
	var sim *regmap.Sim
	if o.apply {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("periph host init: %w", err)
		}
		b, err := i2creg.Open(cfg.Bus)
		if err != nil {
			return fmt.Errorf("opening i2c bus %q: %w", cfg.Bus, err)
		}
		defer b.Close()
		bus = regmap.HostBus{Bus: b}
	} else {
		sim = regmap.NewSim(cfg.Address, 0)
		bus = sim
	}

	if g := cfg.RefClock.Generator; g != nil {
		plan, err := refclk.NewPlan(g.Xtal, g.VCO, float64(cfg.RefClock.Frequency))
		if err != nil {
			return err
		}
		if o.apply {
			if err := refclk.NewGenerator(bus, log).Start(plan); err != nil {
				return err
			}
		}
		fmt.Printf("refclk: %s\n", plan)
	}

	p, err := pll.NewConfig(clock.Frequency(cfg.RefClock.Frequency))
	if err != nil {
		return err
	}
	ep := cfg.Endpoint
	table, err := link.NewTable(ep.LinkFrequencies, ep.Lanes(), ep.Continuous(), p)
	if err != nil {
		return err
	}
	fmt.Println(p)
	for _, s := range table.Settings {
		fmt.Println(s)
		if o.check {
			if err := s.Timings.Validate(s.LaneRate); err != nil {
				fmt.Printf("    %s\n", err)
			} else {
				fmt.Printf("    %s\n", s.Timings)
			}
		}
	}
	for _, err := range table.Dropped {
		fmt.Printf("dropped: %s\n", err)
	}

	d, err := bridge.New(regmap.New(bus, cfg.Address), bridge.Config{
		Links:      table,
		PixelClock: clock.Frequency(cfg.Sensor.PixelClock),
		HBlank:     cfg.Sensor.HBlank,
		Logger:     log,
		Metrics:    m,
	})
	if err != nil {
		return err
	}
	d.SetTestPattern(o.pattern)

	f, err := d.SetFormat(bridge.FormatRequest{
		Code:       cfg.FormatCode(),
		Width:      cfg.Format.Width,
		Height:     cfg.Format.Height,
		PixelClock: clock.Frequency(cfg.Sensor.PixelClock),
		HBlank:     cfg.Sensor.HBlank,
	}, bridge.Active)
	if err != nil {
		return err
	}
	pf, _ := format.Lookup(f.Code)
	fmt.Printf("format %s (%d bytes/line), fifo %d words, link #%d\n", f, pf.BytesPerLine(f.Width), d.FIFODepth(), d.LinkIndex())

	if err := d.SetPower(true); err != nil {
		return err
	}
	if o.stream {
		if err := d.SetStream(true); err != nil {
			return err
		}
	}
	if err := d.LogStatus(); err != nil {
		return err
	}

	if sim != nil && o.dump {
		for _, a := range sim.Dump() {
			fmt.Println(a)
		}
	}

	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		log.Info("main", "serving metrics on %s", cfg.MetricsListen)
		return http.ListenAndServe(cfg.MetricsListen, mux)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(path)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "csibridge: %s\n", err)
	os.Exit(1)
}
