// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/bmx160/internal/bmx160"
)

// Sample is one scaled BMX160 reading as published over MQTT.
type Sample struct {
	Source string    `json:"source"`
	Time   time.Time `json:"time"`

	Mag   [3]float64 `json:"mag_ut"`    // µT
	Gyro  [3]float64 `json:"gyro_dps"`  // °/s
	Accel [3]float64 `json:"accel_ms2"` // m/s²
}

// FromMeasurement stamps a driver measurement.
func FromMeasurement(source string, t time.Time, m bmx160.Measurement) Sample {
	return Sample{Source: source, Time: t, Mag: m.Mag, Gyro: m.Gyro, Accel: m.Accel}
}

// Measurement returns the driver representation of s.
func (s Sample) Measurement() bmx160.Measurement {
	return bmx160.Measurement{Mag: s.Mag, Gyro: s.Gyro, Accel: s.Accel}
}

// MagVec, GyroVec and AccelVec return the three sensors as vectors.
func (s Sample) MagVec() r3.Vector   { return toVec(s.Mag) }
func (s Sample) GyroVec() r3.Vector  { return toVec(s.Gyro) }
func (s Sample) AccelVec() r3.Vector { return toVec(s.Accel) }

// MagNorm is the field strength in µT.
func (s Sample) MagNorm() float64 { return s.MagVec().Norm() }

// AccelNorm is the magnitude of the acceleration in m/s². At rest it is
// close to bmx160.Gravity.
func (s Sample) AccelNorm() float64 { return s.AccelVec().Norm() }

// IsFinite reports whether every value is a number.
func (s Sample) IsFinite() bool {
	for _, v := range s.Measurement().Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func toVec(a [3]float64) r3.Vector { return r3.Vector{X: a[0], Y: a[1], Z: a[2]} }

// FromVec is the inverse of the vector accessors.
func FromVec(v r3.Vector) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// Source is anything that yields samples.
type Source interface {
	ReadSample() (Sample, error)
}
