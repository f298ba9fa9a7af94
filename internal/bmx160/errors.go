// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bmx160

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotPresent is returned by BeginVerified when nothing acknowledges the address.
var ErrNotPresent = errors.New("bmx160: device not present")

// BusError is a transport level failure: NACK, timeout, arbitration loss.
type BusError struct {
	Op   string
	Addr uint16
	Reg  byte
	Err  error
}

func (e *BusError) Error() string {
	if e.Op == opReceiveByte {
		return fmt.Sprintf("bmx160: %s at 0x%02X: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("bmx160: %s at 0x%02X reg 0x%02X: %v", e.Op, e.Addr, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// ConfigurationError reports a malformed setting.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("bmx160: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}
