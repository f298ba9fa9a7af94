// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/bmx160/internal/imu"
)

// Pose is roll, pitch and yaw in degrees. Yaw is the magnetic heading,
// 0 to 360.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is 0.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	roll, pitch := tilt(r3.Vector{X: ax, Y: ay, Z: az})
	return Pose{Roll: degrees(roll), Pitch: degrees(pitch)}
}

// ComputePose adds a tilt compensated heading from the magnetometer to the
// accelerometer roll and pitch. A zero field leaves yaw at 0.
func ComputePose(accel, mag r3.Vector) Pose {
	roll, pitch := tilt(accel)
	p := Pose{Roll: degrees(roll), Pitch: degrees(pitch)}
	if mag.Norm() == 0 {
		return p
	}

	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	// Field rotated back into the horizontal plane.
	xh := mag.X*cp + mag.Y*sr*sp + mag.Z*cr*sp
	yh := mag.Y*cr - mag.Z*sr

	p.Yaw = math.Mod(degrees(math.Atan2(-yh, xh))+360, 360)
	return p
}

// FromSample computes the pose of one sample.
func FromSample(s imu.Sample) Pose {
	return ComputePose(s.AccelVec(), s.MagVec())
}

func tilt(a r3.Vector) (roll, pitch float64) {
	roll = math.Atan2(a.Y, a.Z)
	pitch = math.Atan2(-a.X, math.Sqrt(a.Y*a.Y+a.Z*a.Z))
	return roll, pitch
}

func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }
