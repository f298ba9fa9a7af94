// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bmx160

// I2C register map for BMX160.
const (
	regChipID    = 0x00
	regErr       = 0x02
	regPMUStatus = 0x03
	regMagData   = 0x04 // mag X/Y/Z, RHALL, gyro X/Y/Z, accel X/Y/Z
	regMagConf   = 0x44
	regMagIF0    = 0x4C
	regMagIF1    = 0x4D
	regMagIF2    = 0x4E
	regMagIF3    = 0x4F
	regCmd       = 0x7E
)

// Values written to the command register.
const (
	cmdSoftReset       = 0xB6
	cmdAccelNormal     = 0x11
	cmdGyroNormal      = 0x15
	cmdMagNormal       = 0x19
	cmdAccelLowPower   = 0x12
	cmdGyroFastStartup = 0x17
	cmdMagLowPower     = 0x1B
)

// Bridge modes written to MAG_IF_0.
const (
	magIFManual = 0x80
	magIFAuto   = 0x03 // data mode, 8 byte burst
)

const (
	// DefaultAddr is the I2C address with SDO pulled low.
	DefaultAddr = 0x68

	// ChipID is the content of the CHIP_ID register.
	ChipID = 0xD8

	burstLen = 20
)

type regWrite struct {
	reg byte
	val byte
}

// magSetup is written while the bridge is in manual mode. MAG_IF_3 holds the
// data byte and MAG_IF_2 the BMM150 register it is written to.
var magSetup = []regWrite{
	{regMagIF3, 0x01}, // BMM150 power control bit: sleep mode
	{regMagIF2, 0x4B},
	{regMagIF3, 0x04}, // REPXY regular preset
	{regMagIF2, 0x51},
	{regMagIF3, 0x0E}, // REPZ regular preset
	{regMagIF2, 0x52},

	{regMagIF3, 0x02}, // BMM150 op mode, prepared for data mode
	{regMagIF2, 0x4C},
	{regMagIF1, 0x42}, // burst reads start at DATAX_LSB
	{regMagConf, 0x08},
}

// Command triads for the power mode transitions, in write order.
var (
	normalModeCmds   = [3]byte{cmdAccelNormal, cmdGyroNormal, cmdMagNormal}
	lowPowerModeCmds = [3]byte{cmdAccelLowPower, cmdGyroFastStartup, cmdMagLowPower}
)
