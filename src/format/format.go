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

package format

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupported = errors.New("format: unsupported pixel format")

// Code is a media bus pixel code.
type Code uint32

const (
	GBR888_1X24 Code = 0x1014
	UYVY8_2X8   Code = 0x2006
	UYVY8_1X16  Code = 0x200f
	YUYV8_1X16  Code = 0x2011
	UYVY10_2X10 Code = 0x2018
)

// peripheral data formats (DATAFMT.PDFMT)
const (
	PDFormatRAW8        uint8 = 0
	PDFormatRAW10       uint8 = 1
	PDFormatRAW12       uint8 = 2
	PDFormatRGB888      uint8 = 3
	PDFormatRGB666      uint8 = 4
	PDFormatRGB565      uint8 = 5
	PDFormatYCbCr422_8  uint8 = 6
	PDFormatRAW14       uint8 = 8
	PDFormatYCbCr422_10 uint8 = 9
	PDFormatYCbCr444    uint8 = 10
)

// parallel data format options (CONFCTL.PDATAF)
const (
	PDataFMode0 uint8 = 0
	PDataFMode1 uint8 = 1
	PDataFMode2 uint8 = 2
)

type PixelFormat struct {
	Code           Code
	Name           string
	BusWidth       int // parallel bus width in bits
	BitsPerPixel   int
	PDFormat       uint8
	PDataF         uint8
	PixelsPerClock int  // pclk cycles per pixel
	CSITxOnly      bool // only usable with the CSI transmitter
}

var formats = []PixelFormat{
	{
		Code: UYVY8_2X8, Name: "UYVY8_2X8",
		BusWidth: 8, BitsPerPixel: 16,
		PDFormat: PDFormatYCbCr422_8, PDataF: PDataFMode0,
		PixelsPerClock: 2,
	}, {
		Code: UYVY8_1X16, Name: "UYVY8_1X16",
		BusWidth: 16, BitsPerPixel: 16,
		PDFormat: PDFormatYCbCr422_8, PDataF: PDataFMode1,
		PixelsPerClock: 1,
	}, {
		Code: YUYV8_1X16, Name: "YUYV8_1X16",
		BusWidth: 16, BitsPerPixel: 16,
		PDFormat: PDFormatYCbCr422_8, PDataF: PDataFMode2,
		PixelsPerClock: 1,
	}, {
		Code: UYVY10_2X10, Name: "UYVY10_2X10",
		BusWidth: 10, BitsPerPixel: 20,
		PDFormat: PDFormatYCbCr422_10, PDataF: PDataFMode0, // don't care
		PixelsPerClock: 2,
	}, {
		// listed as YUV444 in the datasheet
		Code: GBR888_1X24, Name: "GBR888_1X24",
		BusWidth: 24, BitsPerPixel: 24,
		PDFormat: PDFormatYCbCr444, PDataF: PDataFMode0, // don't care
		PixelsPerClock: 2,
		CSITxOnly:      true,
	},
}

// Default is the format the bridge comes up with.
var Default = struct {
	Code          Code
	Width, Height int
}{UYVY8_2X8, 640, 480}

func Lookup(code Code) (PixelFormat, error) {
	for _, f := range formats {
		if f.Code == code {
			return f, nil
		}
	}
	return PixelFormat{}, fmt.Errorf("%w: code 0x%04x", ErrUnsupported, uint32(code))
}

// Enumerate returns the format at position index of the table.
func Enumerate(index int) (PixelFormat, error) {
	if index < 0 || index >= len(formats) {
		return PixelFormat{}, fmt.Errorf("%w: index %d", ErrUnsupported, index)
	}
	return formats[index], nil
}

func Count() int {
	return len(formats)
}

// ParseCode accepts a format name such as "UYVY8_2X8" (any case) or a numeric
// bus code such as "0x2006".
func ParseCode(s string) (Code, error) {
	for _, f := range formats {
		if strings.EqualFold(f.Name, s) {
			return f.Code, nil
		}
	}
	var n uint32
	if _, err := fmt.Sscanf(s, "0x%x", &n); err == nil {
		if _, err := Lookup(Code(n)); err == nil {
			return Code(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// BytesPerLine is the CSI-2 word count of one line of width pixels.
func (f PixelFormat) BytesPerLine(width int) int {
	return width * f.BitsPerPixel / 8
}

func (c Code) String() string {
	if f, err := Lookup(c); err == nil {
		return f.Name
	}
	return fmt.Sprintf("0x%04x", uint32(c))
}
