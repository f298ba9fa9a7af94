// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bmx160

import (
	"periph.io/x/conn/v3/i2c"
)

const (
	opReceiveByte = "receive byte"
	opReadBlock   = "read block"
	opWriteByte   = "write byte"
)

// Transport is the SMBus style access the driver needs. Implementations
// report failures as *BusError.
type Transport interface {
	// ReceiveByte reads one byte from addr without selecting a register.
	ReceiveByte(addr uint16) (byte, error)
	// ReadBlockData fills b starting at register reg.
	ReadBlockData(addr uint16, reg byte, b []byte) error
	// WriteByteData writes value to register reg.
	WriteByteData(addr uint16, reg, value byte) error
}

// I2CTransport adapts a periph i2c.Bus.
type I2CTransport struct {
	Bus i2c.Bus
}

func (t *I2CTransport) ReceiveByte(addr uint16) (byte, error) {
	var b [1]byte
	if err := t.Bus.Tx(addr, nil, b[:]); err != nil {
		return 0, &BusError{Op: opReceiveByte, Addr: addr, Err: err}
	}
	return b[0], nil
}

func (t *I2CTransport) ReadBlockData(addr uint16, reg byte, b []byte) error {
	if err := t.Bus.Tx(addr, []byte{reg}, b); err != nil {
		return &BusError{Op: opReadBlock, Addr: addr, Reg: reg, Err: err}
	}
	return nil
}

func (t *I2CTransport) WriteByteData(addr uint16, reg, value byte) error {
	if err := t.Bus.Tx(addr, []byte{reg, value}, nil); err != nil {
		return &BusError{Op: opWriteByte, Addr: addr, Reg: reg, Err: err}
	}
	return nil
}
