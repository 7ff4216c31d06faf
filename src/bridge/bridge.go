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
Package bridge is the owning context of a parallel to CSI-2 bridge.

A Device holds everything that changes at run time: the active format, the
index of the active link setting, the negotiated FIFO depth and the last known
upstream timing. The packages it builds on are pure; this is the only place
that decides when their results reach the hardware.

Format changes are negotiated immediately but only programmed on the next
power on, the way a capture pipeline configures its subdevices before it
starts streaming.
*/
package bridge

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"csibridge/src/format"
	"csibridge/src/link"
	"csibridge/src/logger"
	"csibridge/src/metrics"
	"csibridge/src/regmap"
	"csibridge/src/solver"
	"periph.io/x/conn/v3/physic"
)

var (
	ErrUnknownChip = errors.New("bridge: unknown chip")
	ErrInvalid     = errors.New("bridge: invalid argument")
	ErrLinkChange  = errors.New("bridge: timing change needs a different link setting")
)

// Which selects between a trial format and the active one.
type Which int

const (
	Try Which = iota
	Active
)

func (w Which) String() string {
	if w == Active {
		return "active"
	}
	return "try"
}

// Format is a negotiated frame format. Width may be smaller than requested.
type Format struct {
	Code          format.Code
	Width, Height int
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dx%d", f.Code, f.Width, f.Height)
}

/*
FormatRequest asks for a frame format together with the upstream timing it
will be delivered with. A zero PixelClock means the upstream did not report a
timing and the last known one is reused.
*/
type FormatRequest struct {
	Code          format.Code
	Width, Height int

	PixelClock physic.Frequency
	HBlank     int
}

type Config struct {
	Links link.Table
	// Link is the index of the link setting in use at start up.
	Link int
	// Timing is the upstream timing assumed until a format request brings a
	// new one.
	PixelClock physic.Frequency
	HBlank     int

	Logger  *logger.Logger
	Metrics *metrics.Metrics
	// Sleep waits for the hardware, defaults to time.Sleep.
	Sleep func(time.Duration)
}

type Device struct {
	mu sync.Mutex

	regs    *regmap.Map
	table   link.Table
	log     *logger.Logger
	metrics *metrics.Metrics
	sleep   func(time.Duration)

	current     int
	active      Format
	try         Format
	fifo        int
	pclk        physic.Frequency
	hblank      int
	fmtChanged  bool
	testPattern bool
	powered     bool
	streaming   bool
}

/*
New identifies the bridge behind regs and puts it into a known state: soft
reset, default format buffers, CSI timings of the start up link setting and the
PLL programmed with the chip left in sleep mode and the stream disabled.
*/
func New(regs *regmap.Map, cfg Config) (*Device, error) {
	if len(cfg.Links.Settings) == 0 {
		return nil, fmt.Errorf("%w: empty link table", ErrInvalid)
	}
	if cfg.Link < 0 || cfg.Link >= len(cfg.Links.Settings) {
		return nil, fmt.Errorf("%w: link #%d", ErrInvalid, cfg.Link)
	}
	d := &Device{
		regs:    regs,
		table:   cfg.Links,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		sleep:   cfg.Sleep,
		current: cfg.Link,
		active:  Format{Code: format.Default.Code, Width: format.Default.Width, Height: format.Default.Height},
		fifo:    1,
		pclk:    cfg.PixelClock,
		hblank:  cfg.HBlank,
	}
	if d.log == nil {
		d.log = logger.Discard
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}
	d.try = d.active

	id, err := regs.Read16(regmap.CHIPID)
	if err != nil {
		return nil, fmt.Errorf("bridge: reading chip id: %w", err)
	}
	if id>>8 != regmap.ChipID {
		return nil, fmt.Errorf("%w: id 0x%02x at 0x%02x", ErrUnknownChip, id>>8, regs.Addr())
	}
	d.log.Info("bridge", "chip 0x%02x rev 0x%02x at 0x%02x, %s", id>>8, id&regmap.CHIPID_REVID, regs.Addr(), d.table.PLL)
	for _, err := range d.table.Dropped {
		d.log.Warn("bridge", "%v", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	s := &seq{m: regs}
	d.softReset(s)
	d.setBuffers(s)
	d.setCSI(s)
	d.setColorSpace(s)
	d.sleepMode(s, true)
	d.setPLL(s)
	d.enableStream(s, false)
	if s.err != nil {
		return nil, fmt.Errorf("bridge: applying defaults: %w", s.err)
	}
	d.publishLink()
	return d, nil
}

/*
SetFormat negotiates req against the link table. The current link setting is
preferred, and the width is reduced when no setting can carry the full line.
With Try the result is only returned and the negotiation metrics are left
alone. With Active it also becomes the active format and the link setting
switches if needed; the hardware is updated on the next power on.

A request that no setting can carry at any width fails with
solver.ErrNoFeasibleConfiguration and leaves the device untouched.
*/
func (d *Device) SetFormat(req FormatRequest, which Which) (Format, error) {
	if which != Try && which != Active {
		return Format{}, fmt.Errorf("%w: format selector %d", ErrInvalid, which)
	}
	f, err := format.Lookup(req.Code)
	if err != nil {
		return Format{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	g := solver.Geometry{Width: req.Width, PixelClock: req.PixelClock, HBlank: req.HBlank}
	if req.PixelClock == 0 {
		g.PixelClock, g.HBlank = d.pclk, d.hblank
	}
	res, err := solver.Negotiate(g, f, d.table.Settings, d.current)
	if err != nil {
		if which == Active {
			d.count(metrics.Rejected)
		}
		d.log.Warn("bridge", "%s %dx%d rejected: %v", req.Code, req.Width, req.Height, err)
		return Format{}, err
	}

	out := Format{Code: req.Code, Width: res.Width, Height: req.Height}
	if which == Try {
		d.try = out
		return out, nil
	}
	d.countResult(g, res)

	if g.PixelClock != d.pclk {
		d.log.Debug("bridge", "update pclk from %s to %s", d.pclk, g.PixelClock)
	}
	if g.HBlank != d.hblank {
		d.log.Debug("bridge", "update hblank from %d to %d", d.hblank, g.HBlank)
	}
	d.pclk, d.hblank = g.PixelClock, g.HBlank
	d.active = out
	d.fifo = res.FIFODepth
	d.fmtChanged = true
	if res.Link != d.current {
		d.log.Info("bridge", "link frequency %d -> %d Hz",
			d.table.Settings[d.current].LinkFrequency, d.table.Settings[res.Link].LinkFrequency)
		d.current = res.Link
	}
	d.publishLink()
	return out, nil
}

/*
ValidateLink rechecks the active format after the upstream timing changed
without a new format request, for example because the sensor frame interval
was changed. The link setting cannot change at this point, so a timing that
needs another setting (or cannot be carried at all) is rejected and the
previous timing is kept. On success the new FIFO depth and the negotiated
width become the active format together and take effect on the next power on.
The negotiated width is returned.
*/
func (d *Device) ValidateLink(pclk physic.Frequency, hblank int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := format.Lookup(d.active.Code)
	if err != nil {
		return 0, err
	}
	if pclk != d.pclk {
		d.log.Debug("bridge", "pixel rate changed to %s", pclk)
	}
	if hblank != d.hblank {
		d.log.Debug("bridge", "hblank interval changed to %d", hblank)
	}
	g := solver.Geometry{Width: d.active.Width, PixelClock: pclk, HBlank: hblank}
	res, err := solver.Negotiate(g, f, d.table.Settings, d.current)
	if err != nil {
		d.count(metrics.Rejected)
		return 0, fmt.Errorf("%w: %w", ErrLinkChange, err)
	}
	if res.Link != d.current {
		d.count(metrics.Rejected)
		d.log.Error("bridge", "format can't be applied without a new format request")
		return 0, fmt.Errorf("%w: #%d -> #%d", ErrLinkChange, d.current, res.Link)
	}
	d.countResult(g, res)
	d.pclk, d.hblank = pclk, hblank
	d.active.Width = res.Width
	d.fifo = res.FIFODepth
	d.fmtChanged = true
	d.publishLink()
	return res.Width, nil
}

// SetLinkIndex selects a link setting directly. It is programmed on the next
// power on.
func (d *Device) SetLinkIndex(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.table.Setting(index)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	d.log.Info("bridge", "update link-frequency %d -> %d",
		d.table.Settings[d.current].LinkFrequency, s.LinkFrequency)
	if index != d.current {
		d.current = index
		d.fmtChanged = true
	}
	d.publishLink()
	return nil
}

func (d *Device) LinkIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// SetTestPattern replaces the parallel input by the internal colour bar
// generator from the next power on.
func (d *Device) SetTestPattern(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on != d.testPattern {
		d.testPattern = on
		d.fmtChanged = true
	}
}

/*
SetPower powers the CSI transmitter up or down. A soft reset always comes
first. Pending format changes are programmed before the lanes come up, with
the PLL reprogrammed in sleep mode.
*/
func (d *Device) SetPower(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := &seq{m: d.regs}
	d.softReset(s)
	if d.fmtChanged {
		d.setBuffers(s)
		d.setCSI(s)
		d.setColorSpace(s)

		d.sleepMode(s, true)
		d.setPLL(s)
		d.sleepMode(s, false)
	}
	d.enableLanes(s, on)
	d.enableTransmitter(s, on)
	d.sleepMode(s, !on)
	if s.err != nil {
		return fmt.Errorf("bridge: power %s: %w", onOff(on), s.err)
	}
	d.fmtChanged = false
	d.powered = on
	d.log.Info("bridge", "power %s, %s", onOff(on), d.active)
	return nil
}

func (d *Device) SetStream(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &seq{m: d.regs}
	d.enableStream(s, on)
	if s.err != nil {
		return fmt.Errorf("bridge: stream %s: %w", onOff(on), s.err)
	}
	d.streaming = on
	return nil
}

// BusConfig describes the CSI-2 bus as the downstream receiver must be set
// up for it.
type BusConfig struct {
	Lanes         int
	Continuous    bool
	LinkFrequency uint64
}

func (d *Device) BusConfig() BusConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := d.table.Settings[d.current]
	return BusConfig{Lanes: l.Lanes, Continuous: l.Continuous, LinkFrequency: l.LinkFrequency}
}

// Format returns the trial or the active format.
func (d *Device) Format(which Which) Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	if which == Try {
		return d.try
	}
	return d.active
}

// FIFODepth is the buffer depth that goes to the hardware on the next power on.
func (d *Device) FIFODepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fifo
}

func (d *Device) EnumFormat(index int) (format.Code, error) {
	f, err := format.Enumerate(index)
	if err != nil {
		return 0, err
	}
	return f.Code, nil
}

type Status struct {
	ChipID, Revision uint8
	Sleep            bool
	WaitingSync      bool // waiting for a particular sync signal
	Transmitting     bool
	Stopped          bool
	ColorSpace       string

	Powered, Streaming bool
	Link               link.Setting
	Format             Format
	FIFODepth          int
}

func (d *Device) Status() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := &seq{m: d.regs}
	id := s.r16(regmap.CHIPID)
	sysctl := s.r16(regmap.SYSCTL)
	csi := s.r32(regmap.CSI_STATUS)
	if s.err != nil {
		return Status{}, fmt.Errorf("bridge: status: %w", s.err)
	}
	st := Status{
		ChipID:       uint8(id >> 8),
		Revision:     uint8(id & regmap.CHIPID_REVID),
		Sleep:        sysctl&regmap.SYSCTL_SLEEP != 0,
		WaitingSync:  csi&regmap.CSI_STATUS_S_WSYNC != 0,
		Transmitting: csi&regmap.CSI_STATUS_S_TXACT != 0,
		Stopped:      csi&regmap.CSI_STATUS_S_HLT != 0,
		ColorSpace:   "Unsupported",
		Powered:      d.powered,
		Streaming:    d.streaming,
		Link:         d.table.Settings[d.current],
		Format:       d.active,
		FIFODepth:    d.fifo,
	}
	if d.active.Code == format.UYVY8_2X8 {
		st.ColorSpace = "YCbCr 422 8-bit"
	}
	return st, nil
}

// LogStatus writes the chip status to the device logger.
func (d *Device) LogStatus() error {
	st, err := d.Status()
	if err != nil {
		return err
	}
	d.log.Info("bridge", "chip id 0x%02x, revision 0x%02x, sleep mode %s", st.ChipID, st.Revision, onOff(st.Sleep))
	d.log.Info("bridge", "csi-tx waiting for sync %t, transmitting %t, stopped %t", st.WaitingSync, st.Transmitting, st.Stopped)
	d.log.Info("bridge", "color space: %s", st.ColorSpace)
	return nil
}

// ReadRegister reads any register for debugging. The access width follows
// from the address. It returns the value and the width in bytes.
func (d *Device) ReadRegister(reg uint32) (uint32, int, error) {
	if reg > 0xffff {
		return 0, 0, fmt.Errorf("%w: register 0x%x", ErrInvalid, reg)
	}
	n := regmap.RegSize(uint16(reg))
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.regs.Read(uint16(reg), n)
	return v, n, err
}

func (d *Device) WriteRegister(reg uint32, val uint32) error {
	if reg > 0xffff {
		return fmt.Errorf("%w: register 0x%x", ErrInvalid, reg)
	}
	n := regmap.RegSize(uint16(reg))
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs.Write(uint16(reg), val, n)
}

func (d *Device) count(outcome string) {
	if d.metrics != nil {
		d.metrics.Negotiations.WithLabelValues(outcome).Inc()
	}
}

// countResult records an applied negotiation. Trials are not counted.
func (d *Device) countResult(g solver.Geometry, res solver.Result) {
	if !res.Reduced(g) {
		d.count(metrics.Accepted)
		return
	}
	d.count(metrics.Reduced)
	if d.metrics != nil {
		d.metrics.WidthReductions.Add(float64(g.Width - res.Width))
	}
	d.log.Info("bridge", "width reduced from %d to %d", g.Width, res.Width)
}

func (d *Device) publishLink() {
	if d.metrics == nil {
		return
	}
	l := d.table.Settings[d.current]
	d.metrics.LinkIndex.Set(float64(d.current))
	d.metrics.LinkFrequency.Set(float64(l.LinkFrequency))
	d.metrics.FIFODepth.Set(float64(d.fifo))
	d.metrics.DroppedLinks.Set(float64(len(d.table.Dropped)))
}
