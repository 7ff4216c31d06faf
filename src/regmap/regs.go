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

// Global registers, 16 bit
const (
	CHIPID                  uint16 = 0x0000
	SYSCTL                  uint16 = 0x0002
	CONFCTL                 uint16 = 0x0004
	FIFOCTL                 uint16 = 0x0006
	DATAFMT                 uint16 = 0x0008
	MCLKCTL                 uint16 = 0x000c
	GPIOEN                  uint16 = 0x000e
	GPIODIR                 uint16 = 0x0010
	GPIOIN                  uint16 = 0x0012
	GPIOOUT                 uint16 = 0x0014
	PLLCTL0                 uint16 = 0x0016
	PLLCTL1                 uint16 = 0x0018
	CLKCTL                  uint16 = 0x0020
	WORDCNT                 uint16 = 0x0022
	PP_MISC                 uint16 = 0x0032
	CSITX_DT                uint16 = 0x0050
	PHYSTA                  uint16 = 0x0062
	DBG_ACT_LINE_CNT        uint16 = 0x00e0
	DBG_LINE_WIDTH          uint16 = 0x00e2
	DBG_VERT_BLANK_LINE_CNT uint16 = 0x00e4
	DBG_VIDEO_DATA          uint16 = 0x00e8
)

// CSI-2 transmitter D-PHY and PPI registers, 32 bit
const (
	CLW_CNTRL      uint16 = 0x0140
	D0W_CNTRL      uint16 = 0x0144
	D1W_CNTRL      uint16 = 0x0148
	D2W_CNTRL      uint16 = 0x014c
	D3W_CNTRL      uint16 = 0x0150
	STARTCNTRL     uint16 = 0x0204
	PPISTATUS      uint16 = 0x0208
	LINEINITCNT    uint16 = 0x0210
	LPTXTIMECNT    uint16 = 0x0214
	TCLK_HEADERCNT uint16 = 0x0218
	TCLK_TRAILCNT  uint16 = 0x021c
	THS_HEADERCNT  uint16 = 0x0220
	TWAKEUP        uint16 = 0x0224
	TCLK_POSTCNT   uint16 = 0x0228
	THS_TRAILCNT   uint16 = 0x022c
	HSTXVREGCNT    uint16 = 0x0230
	HSTXVREGEN     uint16 = 0x0234
	TXOPTIONCNTRL  uint16 = 0x0238
)

// CSI-2 transmitter control registers, 32 bit
const (
	CSI_CONTROL uint16 = 0x040c
	CSI_STATUS  uint16 = 0x0410
	CSI_INT     uint16 = 0x0414
	CSI_INT_ENA uint16 = 0x0418
	CSI_ERR     uint16 = 0x044c
	CSI_CONFW   uint16 = 0x0500
	CSIRESET    uint16 = 0x0504
	CSI_INT_CLR uint16 = 0x050c
	CSI_START   uint16 = 0x0518
)

const (
	ChipID        = 0x44
	CHIPID_CHIPID = 0xff00
	CHIPID_REVID  = 0x00ff

	SYSCTL_SLEEP  = 1 << 1
	SYSCTL_SRESET = 1 << 0

	CONFCTL_PDATAF   = 0x3 << 8
	CONFCTL_PPEN     = 1 << 6
	CONFCTL_DATALANE = 0x3

	DATAFMT_PDFMT  = 0xf << 4
	DATAFMT_UDT_EN = 1 << 0

	PLLCTL0_PLL_PRD = 0xf << 12
	PLLCTL0_PLL_FBD = 0x1ff

	PLLCTL1_PLL_FRS = 0x3 << 10
	PLLCTL1_CKEN    = 1 << 4
	PLLCTL1_RESETB  = 1 << 1
	PLLCTL1_PLL_EN  = 1 << 0

	PP_MISC_FRMSTOP = 1 << 15
	PP_MISC_RSTPTR  = 1 << 14

	LANEDISABLE = 1 << 0

	HSTXVREGEN_D3M = 1 << 4
	HSTXVREGEN_D2M = 1 << 3
	HSTXVREGEN_D1M = 1 << 2
	HSTXVREGEN_D0M = 1 << 1
	HSTXVREGEN_CLM = 1 << 0

	TXOPTIONCNTRL_CONTCLKMODE = 1 << 0
	STARTCNTRL_START          = 1 << 0
	CSI_START_STRT            = 1 << 0

	CSI_CONTROL_CSI_MODE = 1 << 15
	CSI_CONTROL_TXHSMD   = 1 << 7
	CSI_CONTROL_NOL      = 0x3 << 1
	CSI_CONTROL_EOTDIS   = 1 << 0

	CSI_STATUS_S_WSYNC = 1 << 10
	CSI_STATUS_S_TXACT = 1 << 9
	CSI_STATUS_S_HLT   = 1 << 0

	CSI_CONFW_MODE_SET            = 0x5 << 29
	CSI_CONFW_ADDRESS_CSI_CONTROL = 0x03 << 24
	CSI_CONFW_DATA                = 0xffff

	CSIRESET_RESET_CNF    = 1 << 1
	CSIRESET_RESET_MODULE = 1 << 0
)

func PLLCTL0Value(prd, fbd uint16) uint16 {
	return (prd-1)<<12&PLLCTL0_PLL_PRD | (fbd-1)&PLLCTL0_PLL_FBD
}

func PLLCTL1FRS(frs uint8) uint16 {
	return uint16(frs) << 10 & PLLCTL1_PLL_FRS
}

func DATAFMTPDFormat(pdformat uint8) uint16 {
	return uint16(pdformat) << 4 & DATAFMT_PDFMT
}

func CONFCTLPDataF(pdataf uint8) uint16 {
	return uint16(pdataf) << 8 & CONFCTL_PDATAF
}

func TCLKHeader(zero, prepare uint32) uint32 {
	return (zero&0xff)<<8 | prepare&0x7f
}

func THSHeader(zero, prepare uint32) uint32 {
	return (zero&0x7f)<<8 | prepare&0x7f
}

// CSIControlLanes encodes the number of data lanes (1..4) in CSI_CONTROL.NOL.
func CSIControlLanes(lanes int) uint32 {
	if lanes < 1 || lanes > 4 {
		lanes = 1
	}
	return uint32(lanes-1) << 1 & CSI_CONTROL_NOL
}
