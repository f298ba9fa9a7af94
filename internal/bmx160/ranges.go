// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bmx160

import "fmt"

// GyroRange selects the gyroscope full scale.
type GyroRange int

// Gyroscope full scale levels, in the order accepted by SetGyroRange.
const (
	Gyro125DPS GyroRange = iota
	Gyro250DPS
	Gyro500DPS
	Gyro1000DPS
	Gyro2000DPS
)

var (
	gyroLSB = [...]float64{0.0038110, 0.0076220, 0.0152439, 0.0304878, 0.0609756}
	gyroDPS = [...]int{125, 250, 500, 1000, 2000}
)

// LSB returns degrees per second per count.
func (g GyroRange) LSB() float64 { return gyroLSB[g] }

// DPS returns the full scale in degrees per second.
func (g GyroRange) DPS() int { return gyroDPS[g] }

func (g GyroRange) String() string {
	if g < Gyro125DPS || g > Gyro2000DPS {
		return fmt.Sprintf("GyroRange(%d)", int(g))
	}
	return fmt.Sprintf("±%d°/s", gyroDPS[g])
}

// AccelRange selects the accelerometer full scale.
type AccelRange int

// Accelerometer full scale levels, in the order accepted by SetAccelRange.
const (
	Accel2G AccelRange = iota
	Accel4G
	Accel8G
	Accel16G
)

var (
	accelLSB = [...]float64{0.000061035, 0.000122070, 0.000244141, 0.000488281}
	accelG   = [...]int{2, 4, 8, 16}
)

// LSB returns g per count.
func (a AccelRange) LSB() float64 { return accelLSB[a] }

// G returns the full scale in g.
func (a AccelRange) G() int { return accelG[a] }

func (a AccelRange) String() string {
	if a < Accel2G || a > Accel16G {
		return fmt.Sprintf("AccelRange(%d)", int(a))
	}
	return fmt.Sprintf("±%dg", accelG[a])
}

// Ranges is the scale state applied to every decoded sample.
type Ranges struct {
	Gyro  GyroRange
	Accel AccelRange
}

// DefaultRanges is ±250°/s and ±2g.
var DefaultRanges = Ranges{Gyro: Gyro250DPS, Accel: Accel2G}

// GyroRangeFromLevel is the strict counterpart of Dev.SetGyroRange.
func GyroRangeFromLevel(level int) (GyroRange, error) {
	if level < int(Gyro125DPS) || level > int(Gyro2000DPS) {
		return Gyro250DPS, &ConfigurationError{Field: "gyro range", Value: level, Reason: "must be 0-4 (125, 250, 500, 1000, 2000 °/s)"}
	}
	return GyroRange(level), nil
}

// AccelRangeFromLevel is the strict counterpart of Dev.SetAccelRange.
func AccelRangeFromLevel(level int) (AccelRange, error) {
	if level < int(Accel2G) || level > int(Accel16G) {
		return Accel2G, &ConfigurationError{Field: "accel range", Value: level, Reason: "must be 0-3 (2, 4, 8, 16 g)"}
	}
	return AccelRange(level), nil
}
