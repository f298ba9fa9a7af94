// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bmx160

import "fmt"

// PowerMode is one 2 bit field of PMU_STATUS.
type PowerMode byte

const (
	PowerSuspend PowerMode = iota
	PowerNormal
	PowerLow
	PowerFastStartup // gyroscope only
)

func (p PowerMode) String() string {
	switch p {
	case PowerSuspend:
		return "suspend"
	case PowerNormal:
		return "normal"
	case PowerLow:
		return "low power"
	default:
		return "fast start-up"
	}
}

// PowerStatus is the decoded PMU_STATUS register.
type PowerStatus struct {
	Accel PowerMode
	Gyro  PowerMode
	Mag   PowerMode
}

// NormalPowerStatus is what PMU_STATUS reads (0x15) after Begin succeeded.
var NormalPowerStatus = PowerStatus{Accel: PowerNormal, Gyro: PowerNormal, Mag: PowerNormal}

func (s PowerStatus) String() string {
	return fmt.Sprintf("accel %s, gyro %s, mag %s", s.Accel, s.Gyro, s.Mag)
}

func decodePowerStatus(b byte) PowerStatus {
	return PowerStatus{
		Accel: PowerMode(b>>4) & 0x03,
		Gyro:  PowerMode(b>>2) & 0x03,
		Mag:   PowerMode(b) & 0x03,
	}
}

// PowerStatus reads the power mode of the three sensors.
func (d *Dev) PowerStatus() (PowerStatus, error) {
	b, err := d.ReadRegister(regPMUStatus)
	if err != nil {
		return PowerStatus{}, err
	}
	return decodePowerStatus(b), nil
}
