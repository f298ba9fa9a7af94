// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RegisterInfo describes one register for the register debug tool.
type RegisterInfo struct {
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// BitField describes a field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// Readable reports whether the register can be read back.
func (r RegisterInfo) Readable() bool { return strings.Contains(r.Access, "R") }

// ParseRegister parses a register address such as "0x7E" or "126".
func ParseRegister(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid register address %q", s)
	}
	return byte(v), nil
}

// FormatRegister formats a register address or value as 0xNN.
func FormatRegister(b byte) string {
	return "0x" + strings.ToUpper(strconv.FormatUint(uint64(b)|0x100, 16)[1:])
}

// RegisterMap returns metadata for the BMX160 registers the driver uses.
func RegisterMap() []RegisterInfo {
	regs := []RegisterInfo{
		{Address: "0x00", Name: "CHIP_ID", Description: "Chip identification", Access: "R", Default: "0xD8",
			BitFields: []BitField{
				{Bits: "7:0", Name: "chip_id", Description: "Fixed chip id", Values: "0xD8"},
			}},
		{Address: "0x02", Name: "ERR_REG", Description: "Error flags", Access: "R", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "mag_drdy_err", Description: "Magnetometer data ready error", Values: "0=OK, 1=Error"},
				{Bits: "6", Name: "drop_cmd_err", Description: "Command dropped", Values: "0=OK, 1=Dropped"},
				{Bits: "4:1", Name: "err_code", Description: "Error code", Values: "0=No error, 1=Error, 2=Error, 3=Low power with filter, 6=ODR mismatch, 7=Pre-filtered data in low power"},
				{Bits: "0", Name: "fatal_err", Description: "Chip not operable", Values: "0=OK, 1=Fatal"},
			}},
		{Address: "0x03", Name: "PMU_STATUS", Description: "Power mode of each sensor", Access: "R", Default: "0x00",
			BitFields: []BitField{
				{Bits: "5:4", Name: "acc_pmu_status", Description: "Accelerometer power mode", Values: "0=Suspend, 1=Normal, 2=Low power"},
				{Bits: "3:2", Name: "gyr_pmu_status", Description: "Gyroscope power mode", Values: "0=Suspend, 1=Normal, 3=Fast start-up"},
				{Bits: "1:0", Name: "mag_pmu_status", Description: "Magnetometer interface power mode", Values: "0=Suspend, 1=Normal, 2=Low power"},
			}},
	}

	// Sensor Data Registers (Read-Only)
	data := []struct{ sensor, desc string }{
		{"MAG", "Magnetometer"},
		{"RHALL", "Hall resistance"},
		{"GYR", "Gyroscope"},
		{"ACC", "Accelerometer"},
	}
	addr := byte(0x04)
	for _, d := range data {
		axes := []string{"X", "Y", "Z"}
		if d.sensor == "RHALL" {
			axes = []string{""}
		}
		for _, ax := range axes {
			name := d.sensor
			desc := d.desc
			if ax != "" {
				name += "_" + ax
				desc += " " + ax + "-Axis"
			}
			regs = append(regs,
				RegisterInfo{Address: FormatRegister(addr), Name: name + "_L", Description: desc + " Low Byte", Access: "R"},
				RegisterInfo{Address: FormatRegister(addr + 1), Name: name + "_H", Description: desc + " High Byte", Access: "R"},
			)
			addr += 2
		}
	}

	regs = append(regs, []RegisterInfo{
		// Configuration Registers
		{Address: "0x40", Name: "ACC_CONF", Description: "Accelerometer output data rate and bandwidth", Access: "RW", Default: "0x28"},
		{Address: "0x41", Name: "ACC_RANGE", Description: "Accelerometer range", Access: "RW", Default: "0x03",
			BitFields: []BitField{
				{Bits: "3:0", Name: "acc_range", Description: "Accelerometer g-range", Values: "3=±2g, 5=±4g, 8=±8g, 12=±16g"},
			}},
		{Address: "0x42", Name: "GYR_CONF", Description: "Gyroscope output data rate and bandwidth", Access: "RW", Default: "0x28"},
		{Address: "0x43", Name: "GYR_RANGE", Description: "Gyroscope range", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "2:0", Name: "gyr_range", Description: "Angular rate range", Values: "0=±2000°/s, 1=±1000°/s, 2=±500°/s, 3=±250°/s, 4=±125°/s"},
			}},
		{Address: "0x44", Name: "MAG_CONF", Description: "Magnetometer interface output data rate", Access: "RW",
			BitFields: []BitField{
				{Bits: "3:0", Name: "mag_odr", Description: "Output data rate", Values: "Rate = 100/2^(8-val) Hz, 8=100Hz"},
			}},

		// Magnetometer interface
		{Address: "0x4C", Name: "MAG_IF_0", Description: "Magnetometer interface mode", Access: "RW", Default: "0x80",
			BitFields: []BitField{
				{Bits: "7", Name: "mag_manual_en", Description: "Manual register access", Values: "0=Data mode, 1=Setup mode"},
				{Bits: "1:0", Name: "mag_rd_burst", Description: "Read burst length", Values: "0=1, 1=2, 2=6, 3=8 bytes"},
			}},
		{Address: "0x4D", Name: "MAG_IF_1", Description: "Magnetometer read address (manual and data mode)", Access: "RW", Default: "0x42"},
		{Address: "0x4E", Name: "MAG_IF_2", Description: "Magnetometer write address", Access: "RW", Default: "0x4C"},
		{Address: "0x4F", Name: "MAG_IF_3", Description: "Magnetometer write data", Access: "RW", Default: "0x00"},

		// Command
		{Address: "0x7E", Name: "CMD", Description: "Command register", Access: "W", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:0", Name: "cmd", Description: "Command", Values: "0x11=acc normal, 0x12=acc low power, 0x15=gyr normal, 0x17=gyr fast start-up, 0x19=mag normal, 0x1B=mag low power, 0xB6=soft reset"},
			}},
	}...)
	return regs
}
