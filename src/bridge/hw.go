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
	"time"

	"csibridge/src/format"
	"csibridge/src/regmap"
)

// The sequences below are called with d.mu held.

// softReset pulses SYSCTL.SRESET. This does not clear the configuration
// registers but forces the CSI lanes through LP-11.
func (d *Device) softReset(s *seq) {
	s.w16(regmap.SYSCTL, regmap.SYSCTL_SRESET)
	d.sleep(10 * time.Microsecond)
	s.w16(regmap.SYSCTL, 0)
}

func (d *Device) sleepMode(s *seq, on bool) {
	var val uint16
	if on {
		val = regmap.SYSCTL_SLEEP
	}
	s.update16(regmap.SYSCTL, ^uint16(regmap.SYSCTL_SLEEP), val)
}

func (d *Device) setBuffers(s *seq) {
	f, err := format.Lookup(d.active.Code)
	if err != nil {
		s.err = err
		return
	}
	words := f.BytesPerLine(d.active.Width)
	s.w16(regmap.FIFOCTL, uint16(d.fifo))
	s.w16(regmap.WORDCNT, uint16(words))
	d.log.Debug("bridge", "FIFOCTL 0x%02x: WORDCNT 0x%02x", d.fifo, words)
}

func (d *Device) setCSI(s *seq) {
	l := d.table.Settings[d.current]
	t := l.Timings
	s.w32(regmap.TCLK_HEADERCNT, regmap.TCLKHeader(t.TClkZero, t.TClkPrepare))
	s.w32(regmap.THS_HEADERCNT, regmap.THSHeader(t.THSZero, t.THSPrepare))
	s.w32(regmap.TWAKEUP, t.TWakeup)
	s.w32(regmap.TCLK_POSTCNT, t.TClkPost)
	s.w32(regmap.THS_TRAILCNT, t.THSTrail)
	s.w32(regmap.LINEINITCNT, t.LineInit)
	s.w32(regmap.LPTXTIMECNT, t.LPTXTime)
	s.w32(regmap.TCLK_TRAILCNT, t.TClkTrail)
	var opt uint32
	if l.Continuous {
		opt = regmap.TXOPTIONCNTRL_CONTCLKMODE
	}
	s.w32(regmap.TXOPTIONCNTRL, opt)

	if d.testPattern {
		debugPattern80(s)
	}
	d.log.Debug("bridge", "csi timings %s", t)
}

// setColorSpace selects the peripheral data format. User defined data type
// ids are never enabled.
func (d *Device) setColorSpace(s *seq) {
	f, err := format.Lookup(d.active.Code)
	if err != nil {
		s.err = err
		return
	}
	s.update16(regmap.DATAFMT, ^uint16(regmap.DATAFMT_PDFMT|regmap.DATAFMT_UDT_EN),
		regmap.DATAFMTPDFormat(f.PDFormat))
	s.update16(regmap.CONFCTL, ^uint16(regmap.CONFCTL_PDATAF), regmap.CONFCTLPDataF(f.PDataF))
}

/*
setPLL programs the PLL for the active link setting. The registers are only
rewritten when the dividers or the frequency range change or the PLL is off,
since every rewrite makes the bridge signal another format change.
*/
func (d *Device) setPLL(s *seq) {
	l := d.table.Settings[d.current]
	pllctl0 := s.r16(regmap.PLLCTL0)
	pllctl1 := s.r16(regmap.PLLCTL1)
	if s.err != nil {
		return
	}
	next := regmap.PLLCTL0Value(d.table.PLL.PreDivider, l.Feedback)
	frs := regmap.PLLCTL1FRS(l.SpeedRange)
	if pllctl0 == next && pllctl1&regmap.PLLCTL1_PLL_FRS == frs && pllctl1&regmap.PLLCTL1_PLL_EN != 0 {
		return
	}
	d.log.Debug("bridge", "updating PLL clock: PLLCTL0 0x%04x -> 0x%04x", pllctl0, next)
	s.w16(regmap.PLLCTL0, next)
	s.update16(regmap.PLLCTL1,
		^uint16(regmap.PLLCTL1_PLL_FRS|regmap.PLLCTL1_RESETB|regmap.PLLCTL1_PLL_EN),
		frs|regmap.PLLCTL1_RESETB|regmap.PLLCTL1_PLL_EN)
	d.sleep(time.Millisecond)
	s.update16(regmap.PLLCTL1, ^uint16(regmap.PLLCTL1_CKEN), regmap.PLLCTL1_CKEN)
	d.log.Debug("bridge", "%s, %s", d.table.PLL, l)
}

// enableLanes powers the data lanes of the active setting. Lanes beyond the
// configured count stay disabled.
func (d *Device) enableLanes(s *seq, on bool) {
	lanes := d.table.Settings[d.current].Lanes
	if !on {
		s.w32(regmap.CLW_CNTRL, regmap.LANEDISABLE)
		s.w32(regmap.D0W_CNTRL, regmap.LANEDISABLE)
	}
	for i, reg := range []uint16{regmap.D1W_CNTRL, regmap.D2W_CNTRL, regmap.D3W_CNTRL} {
		if lanes < i+2 || !on {
			s.w32(reg, regmap.LANEDISABLE)
		}
	}

	var val uint32
	if on {
		val = regmap.HSTXVREGEN_CLM | regmap.HSTXVREGEN_D0M
		for i, bit := range []uint32{regmap.HSTXVREGEN_D1M, regmap.HSTXVREGEN_D2M, regmap.HSTXVREGEN_D3M} {
			if lanes > i+1 {
				val |= bit
			}
		}
	}
	s.w32(regmap.HSTXVREGEN, val)
}

// enableTransmitter starts the PPI and the CSI transmitter. There is nothing
// to undo on disable, the soft reset stops the module.
func (d *Device) enableTransmitter(s *seq, on bool) {
	if !on {
		return
	}
	lanes := d.table.Settings[d.current].Lanes
	s.w32(regmap.STARTCNTRL, regmap.STARTCNTRL_START)
	s.w32(regmap.CSI_START, regmap.CSI_START_STRT)

	ctl := regmap.CSIControlLanes(lanes) | regmap.CSI_CONTROL_CSI_MODE | regmap.CSI_CONTROL_TXHSMD
	val := regmap.CSI_CONFW_MODE_SET | regmap.CSI_CONFW_ADDRESS_CSI_CONTROL | ctl&regmap.CSI_CONFW_DATA
	d.log.Debug("bridge", "CSI_CONFW 0x%08x", val)
	s.w32(regmap.CSI_CONFW, val)
}

func (d *Device) enableStream(s *seq, on bool) {
	d.log.Debug("bridge", "stream %s", onOff(on))
	if !on {
		s.update16(regmap.PP_MISC, ^uint16(regmap.PP_MISC_FRMSTOP), regmap.PP_MISC_FRMSTOP)
		s.update16(regmap.CONFCTL, ^uint16(regmap.CONFCTL_PPEN), 0)
		s.update16(regmap.PP_MISC, ^uint16(regmap.PP_MISC_RSTPTR), regmap.PP_MISC_RSTPTR)
		s.w32(regmap.CSIRESET, regmap.CSIRESET_RESET_CNF|regmap.CSIRESET_RESET_MODULE)
		s.w16(regmap.DBG_ACT_LINE_CNT, 0)
		return
	}
	s.w16(regmap.PP_MISC, 0)
	s.update16(regmap.CONFCTL, ^uint16(regmap.CONFCTL_PPEN), regmap.CONFCTL_PPEN)
}

/*
debugPattern80 loads the internal pattern generator with an 80 pixel wide
colour bar line and starts it. The generator replaces the parallel input.
*/
func debugPattern80(s *seq) {
	s.w16(regmap.DBG_ACT_LINE_CNT, 0x8000)
	s.w16(regmap.DBG_LINE_WIDTH, 0x0396)
	s.w16(regmap.DBG_VERT_BLANK_LINE_CNT, 0x0000)

	for _, run := range patternLine {
		for i := 0; i < run.n; i++ {
			s.w16(regmap.DBG_VIDEO_DATA, run.val)
		}
	}

	s.w16(regmap.DBG_ACT_LINE_CNT, 0xc1df)
}

var patternLine = []struct {
	n   int
	val uint16
}{
	{80, 0xff7f}, {1, 0xff00}, {40, 0xffff}, {1, 0xc0ff},
	{40, 0xc000}, {80, 0x7f00}, {80, 0x7fff}, {1, 0x0000},
	{40, 0x00ff}, {1, 0x00ff}, {40, 0x0000}, {1, 0x007f},
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
