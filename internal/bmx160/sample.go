// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bmx160

import "strings"

const (
	// MagLSB is µT per count. The magnetometer range is not selectable.
	MagLSB = 0.3

	// Gravity converts g to m/s².
	Gravity = 9.8
)

// Axis filters a measurement down to one axis.
type Axis int

const (
	AxisAll Axis = iota
	AxisX
	AxisY
	AxisZ
)

// ParseAxis maps "x", "y" and "z" to a single axis. Anything else is AxisAll.
func ParseAxis(s string) Axis {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX
	case "y":
		return AxisY
	case "z":
		return AxisZ
	default:
		return AxisAll
	}
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "all"
	}
}

// RawSample is the 20 byte burst starting at MAG_DATA:
// mag X/Y/Z, 2 bytes RHALL, gyro X/Y/Z, accel X/Y/Z, each little endian.
type RawSample [burstLen]byte

// Measurement is one decoded sample.
// Mag is in µT, Gyro in °/s and Accel in m/s².
type Measurement struct {
	Mag   [3]float64
	Gyro  [3]float64
	Accel [3]float64
}

// Values returns mx, my, mz, gx, gy, gz, ax, ay, az.
func (m Measurement) Values() []float64 {
	return []float64{
		m.Mag[0], m.Mag[1], m.Mag[2],
		m.Gyro[0], m.Gyro[1], m.Gyro[2],
		m.Accel[0], m.Accel[1], m.Accel[2],
	}
}

// Select returns mag, gyro, accel for one axis, or Values for AxisAll.
func (m Measurement) Select(a Axis) []float64 {
	if a < AxisX || a > AxisZ {
		return m.Values()
	}
	i := int(a - AxisX)
	return []float64{m.Mag[i], m.Gyro[i], m.Accel[i]}
}

// Counts returns the signed counts of the nine axes in Values order.
func (r *RawSample) Counts() [9]int {
	var c [9]int
	for i := 0; i < 3; i++ {
		c[i] = decode16(r[2*i], r[2*i+1])
		c[3+i] = decode16(r[8+2*i], r[9+2*i])
		c[6+i] = decode16(r[14+2*i], r[15+2*i])
	}
	return c
}

// Decode scales the counts with the given ranges.
func (r *RawSample) Decode(rg Ranges) Measurement {
	c := r.Counts()
	gyro := rg.Gyro.LSB()
	accel := rg.Accel.LSB() * Gravity
	var m Measurement
	for i := 0; i < 3; i++ {
		m.Mag[i] = float64(c[i]) * MagLSB
		m.Gyro[i] = float64(c[3+i]) * gyro
		m.Accel[i] = float64(c[6+i]) * accel
	}
	return m
}

// decode16 sign extends a little endian 16 bit field without relying on
// int16 conversion.
func decode16(lo, hi byte) int {
	v := int(hi)<<8 | int(lo)
	if hi&0x80 != 0 {
		v -= 0x10000
	}
	return v
}
