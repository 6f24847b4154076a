// Package ht16k33 drives an HT16K33 backed 4 digit 7-segment display over
// a two-wire bus.
package ht16k33

import (
	"fmt"
)

// DefaultAddress is the bus address of the backpack with no jumpers set.
const DefaultAddress uint16 = 0x70

// Commands.
const (
	cmdOscillatorOn byte = 0x21
	cmdDisplayOn    byte = 0x81
	cmdBrightness   byte = 0xE0
)

// MaxBrightness is the highest dimming level.
const MaxBrightness uint8 = 15

// Rows is the number of 16-bit display rows.
const Rows = 8

// Bus is the capability to send bytes to a device on a two-wire bus.
// periph.io's i2c.Bus satisfies it.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Segment patterns of hex digits.
var digits = [16]uint16{
	0x3F, 0x06, 0x5B, 0x4F, 0x66, 0x6D, 0x7D, 0x07,
	0x7F, 0x6F, 0x77, 0x7C, 0x39, 0x5E, 0x79, 0x71,
}

// Patterns of other characters.
const (
	Blank uint16 = 0x00
	Dash  uint16 = 0x40
	Dot   uint16 = 0x80
	Colon uint16 = 0x02
)

// positions of the 4 digits in the rows, row 2 drives the colon.
var digitRows = [4]int{0, 1, 3, 4}

// Display is a 4 digit 7-segment display.
type Display struct {
	Bus  Bus
	Addr uint16

	rows [Rows]uint16
}

// New creates a Display.
func New(bus Bus, addr uint16) *Display {
	return &Display{Bus: bus, Addr: addr}
}

// Init starts the oscillator, turns the display on and sets brightness.
func (d *Display) Init(brightness uint8) error {
	if brightness > MaxBrightness {
		brightness = MaxBrightness
	}
	for _, cmd := range []byte{cmdOscillatorOn, cmdDisplayOn, cmdBrightness | brightness} {
		if err := d.send(cmd); err != nil {
			return err
		}
	}
	return nil
}

// SetRow sets the raw pattern of a row.
func (d *Display) SetRow(row int, bits uint16) {
	if row >= 0 && row < Rows {
		d.rows[row] = bits
	}
}

// SetDigit sets the digit at pos (0-3) to a hex value.
func (d *Display) SetDigit(pos int, v int, dot bool) error {
	if pos < 0 || pos >= len(digitRows) {
		return fmt.Errorf("invalid digit position %d", pos)
	}
	if v < 0 || v >= len(digits) {
		return fmt.Errorf("invalid digit value %d", v)
	}
	bits := digits[v]
	if dot {
		bits |= Dot
	}
	d.rows[digitRows[pos]] = bits
	return nil
}

// SetColon turns the colon on or off.
func (d *Display) SetColon(on bool) {
	if on {
		d.rows[2] = Colon
	} else {
		d.rows[2] = Blank
	}
}

// SetNumber shows n right aligned. Numbers out of range show dashes.
func (d *Display) SetNumber(n int) {
	d.Clear()
	if n < 0 || n > 9999 {
		for _, row := range digitRows {
			d.rows[row] = Dash
		}
		return
	}
	for pos := len(digitRows) - 1; pos >= 0; pos-- {
		d.SetDigit(pos, n%10, false)
		if n /= 10; n == 0 {
			break
		}
	}
}

// Clear blanks all rows.
func (d *Display) Clear() {
	d.rows = [Rows]uint16{}
}

// Frame returns the bytes written by Flush: the start address followed by
// the rows, low byte first.
func (d *Display) Frame() []byte {
	frame := make([]byte, 1+Rows*2)
	for n, bits := range d.rows {
		frame[1+n*2] = byte(bits)
		frame[2+n*2] = byte(bits >> 8)
	}
	return frame
}

// Flush writes the rows to the display.
func (d *Display) Flush() error {
	if err := d.Bus.Tx(d.Addr, d.Frame(), nil); err != nil {
		return fmt.Errorf("ht16k33 write: %v", err)
	}
	return nil
}

func (d *Display) send(cmd byte) error {
	if err := d.Bus.Tx(d.Addr, []byte{cmd}, nil); err != nil {
		return fmt.Errorf("ht16k33 command %#x: %v", cmd, err)
	}
	return nil
}
