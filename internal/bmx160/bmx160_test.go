// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bmx160

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

var errNACK = errors.New("i2c: NACK")

// fakeTransport is a register file that can be told to disappear or to
// fail writes.
type fakeTransport struct {
	absent     bool
	failWrites bool
	raw        RawSample
	regs       map[byte]byte
	writes     []regWrite
	reads      []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{regs: map[byte]byte{regChipID: ChipID}}
}

func (f *fakeTransport) ReceiveByte(addr uint16) (byte, error) {
	if f.absent {
		return 0, &BusError{Op: opReceiveByte, Addr: addr, Err: errNACK}
	}
	return 0, nil
}

func (f *fakeTransport) ReadBlockData(addr uint16, reg byte, b []byte) error {
	if f.absent {
		return &BusError{Op: opReadBlock, Addr: addr, Reg: reg, Err: errNACK}
	}
	f.reads = append(f.reads, reg)
	if reg == regMagData {
		copy(b, f.raw[:])
		return nil
	}
	b[0] = f.regs[reg]
	return nil
}

func (f *fakeTransport) WriteByteData(addr uint16, reg, value byte) error {
	if f.absent || f.failWrites {
		return &BusError{Op: opWriteByte, Addr: addr, Reg: reg, Err: errNACK}
	}
	f.writes = append(f.writes, regWrite{reg, value})
	return nil
}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) { s.slept = append(s.slept, d) }

func (s *sleepRecorder) total() time.Duration {
	var t time.Duration
	for _, d := range s.slept {
		t += d
	}
	return t
}

func newTestDev(t *testing.T, tr Transport) (*Dev, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	d := New(tr, &Opts{Logger: zaptest.NewLogger(t).Sugar(), Sleep: rec.sleep})
	return d, rec
}

func wr(reg, val byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddr, W: []byte{reg, val}}
}

// magSetupIO is the bridge sequence written out literally.
var magSetupIO = []i2ctest.IO{
	wr(0x4C, 0x80),
	wr(0x4F, 0x01),
	wr(0x4E, 0x4B),
	wr(0x4F, 0x04),
	wr(0x4E, 0x51),
	wr(0x4F, 0x0E),
	wr(0x4E, 0x52),
	wr(0x4F, 0x02),
	wr(0x4E, 0x4C),
	wr(0x4D, 0x42),
	wr(0x44, 0x08),
	wr(0x4C, 0x03),
}

func concatIO(parts ...[]i2ctest.IO) []i2ctest.IO {
	var out []i2ctest.IO
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestNew(t *testing.T) {
	d, rec := newTestDev(t, newFakeTransport())
	test.That(t, d.Addr(), test.ShouldEqual, uint16(0x68))
	test.That(t, d.Ranges(), test.ShouldResemble, DefaultRanges)
	test.That(t, rec.slept, test.ShouldResemble, []time.Duration{200 * time.Millisecond})
	test.That(t, d.String(), test.ShouldEqual, "BMX160")
	test.That(t, d.Close(), test.ShouldBeNil)
}

func TestProbe(t *testing.T) {
	t.Run("acknowledged", func(t *testing.T) {
		bus := &i2ctest.Playback{
			Ops:       []i2ctest.IO{{Addr: DefaultAddr, R: []byte{0x00}}},
			DontPanic: true,
		}
		d, _ := newTestDev(t, &I2CTransport{Bus: bus})
		test.That(t, d.Probe(), test.ShouldBeTrue)
		test.That(t, bus.Close(), test.ShouldBeNil)
	})

	t.Run("nack is false, not an error", func(t *testing.T) {
		tr := newFakeTransport()
		tr.absent = true
		d, _ := newTestDev(t, tr)
		test.That(t, d.Probe(), test.ShouldBeFalse)
	})
}

func TestChipID(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: DefaultAddr, W: []byte{0x00}, R: []byte{0xD8}}},
		DontPanic: true,
	}
	d, _ := newTestDev(t, &I2CTransport{Bus: bus})
	id, err := d.ChipID()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldEqual, byte(ChipID))
	test.That(t, bus.Close(), test.ShouldBeNil)
}

func TestSoftReset(t *testing.T) {
	bus := &i2ctest.Playback{Ops: []i2ctest.IO{wr(0x7E, 0xB6)}, DontPanic: true}
	d, rec := newTestDev(t, &I2CTransport{Bus: bus})
	rec.slept = nil
	test.That(t, d.SoftReset(), test.ShouldBeNil)
	test.That(t, rec.slept, test.ShouldResemble, []time.Duration{200 * time.Millisecond})
	test.That(t, bus.Close(), test.ShouldBeNil)
}

func TestBeginSequence(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: concatIO(
			[]i2ctest.IO{
				{Addr: DefaultAddr, R: []byte{0x00}},
				{Addr: DefaultAddr, W: []byte{0x00}, R: []byte{0xD8}},
				wr(0x7E, 0xB6),
				wr(0x7E, 0x11),
				wr(0x7E, 0x15),
				wr(0x7E, 0x19),
			},
			magSetupIO,
		),
		DontPanic: true,
	}
	d, rec := newTestDev(t, &I2CTransport{Bus: bus})
	rec.slept = nil

	ok, err := d.Begin()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, bus.Close(), test.ShouldBeNil)

	ms := time.Millisecond
	test.That(t, rec.slept, test.ShouldResemble, []time.Duration{
		200 * ms, // reset
		100 * ms, // after reset
		100 * ms, 100 * ms, 100 * ms, // after each normal mode command
		50 * ms, 50 * ms, // bridge manual, bridge auto
	})
}

func TestBeginAbsentDoesNotWrite(t *testing.T) {
	tr := newFakeTransport()
	tr.absent = true
	d, rec := newTestDev(t, tr)
	rec.slept = nil

	ok, err := d.Begin()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, tr.writes, test.ShouldBeEmpty)
	test.That(t, tr.reads, test.ShouldBeEmpty)
	test.That(t, rec.slept, test.ShouldBeEmpty)
}

// Begin only reports that the bus accepted the writes. A device that ignores
// every command still yields true.
func TestBeginDoesNotVerify(t *testing.T) {
	tr := newFakeTransport()
	tr.regs[regPMUStatus] = 0x00 // everything still suspended
	d, _ := newTestDev(t, tr)

	ok, err := d.Begin()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(tr.writes), test.ShouldEqual, 4+len(magSetupIO))

	err = d.BeginVerified()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not in normal mode")
}

func TestBeginPropagatesBusError(t *testing.T) {
	tr := newFakeTransport()
	tr.failWrites = true
	d, _ := newTestDev(t, tr)

	ok, err := d.Begin()
	test.That(t, ok, test.ShouldBeFalse)
	var be *BusError
	test.That(t, errors.As(err, &be), test.ShouldBeTrue)
	test.That(t, be.Reg, test.ShouldEqual, byte(regCmd))
	test.That(t, errors.Is(err, errNACK), test.ShouldBeTrue)
}

func TestBeginVerified(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		tr := newFakeTransport()
		tr.regs[regPMUStatus] = 0x15
		d, _ := newTestDev(t, tr)
		test.That(t, d.BeginVerified(), test.ShouldBeNil)
	})

	t.Run("absent", func(t *testing.T) {
		tr := newFakeTransport()
		tr.absent = true
		d, _ := newTestDev(t, tr)
		test.That(t, d.BeginVerified(), test.ShouldEqual, ErrNotPresent)
	})

	t.Run("wrong chip", func(t *testing.T) {
		tr := newFakeTransport()
		tr.regs[regChipID] = 0xD1
		tr.regs[regPMUStatus] = 0x15
		d, _ := newTestDev(t, tr)
		err := d.BeginVerified()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "unexpected chip id 0xD1")
	})
}

func TestLowPowerAndWake(t *testing.T) {
	for _, tc := range []struct {
		name string
		run  func(*Dev) error
		cmds [3]byte
	}{
		{"low power", (*Dev).LowPowerMode, [3]byte{0x12, 0x17, 0x1B}},
		{"wake", (*Dev).Wake, [3]byte{0x11, 0x15, 0x19}},
		{"halt", (*Dev).Halt, [3]byte{0x12, 0x17, 0x1B}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bus := &i2ctest.Playback{
				Ops: concatIO(
					[]i2ctest.IO{wr(0x7E, 0xB6)},
					magSetupIO,
					[]i2ctest.IO{wr(0x7E, tc.cmds[0]), wr(0x7E, tc.cmds[1]), wr(0x7E, tc.cmds[2])},
				),
				DontPanic: true,
			}
			d, rec := newTestDev(t, &I2CTransport{Bus: bus})
			rec.slept = nil

			test.That(t, tc.run(d), test.ShouldBeNil)
			test.That(t, bus.Close(), test.ShouldBeNil)
			// reset, settle, bridge x2, settle, 3 x settle
			test.That(t, len(rec.slept), test.ShouldEqual, 8)
			test.That(t, rec.total(), test.ShouldEqual, 800*time.Millisecond)
		})
	}
}

func TestSetGyroRange(t *testing.T) {
	d, _ := newTestDev(t, newFakeTransport())
	want := []float64{0.0038110, 0.0076220, 0.0152439, 0.0304878, 0.0609756}
	for level, lsb := range want {
		d.SetGyroRange(level)
		test.That(t, d.Ranges().Gyro, test.ShouldEqual, GyroRange(level))
		test.That(t, d.Ranges().Gyro.LSB(), test.ShouldEqual, lsb)
	}
	for _, level := range []int{-1, 5, 42} {
		d.SetGyroRange(4)
		d.SetGyroRange(level)
		test.That(t, d.Ranges().Gyro, test.ShouldEqual, Gyro250DPS)
	}
	test.That(t, d.Ranges().Accel, test.ShouldEqual, Accel2G)
}

func TestSetAccelRange(t *testing.T) {
	d, _ := newTestDev(t, newFakeTransport())
	want := []float64{0.000061035, 0.000122070, 0.000244141, 0.000488281}
	for level, lsb := range want {
		d.SetAccelRange(level)
		test.That(t, d.Ranges().Accel, test.ShouldEqual, AccelRange(level))
		test.That(t, d.Ranges().Accel.LSB(), test.ShouldEqual, lsb)
		// The gyroscope scale is left alone.
		test.That(t, d.Ranges().Gyro, test.ShouldEqual, Gyro250DPS)
	}
	d.SetAccelRange(3)
	d.SetAccelRange(7)
	test.That(t, d.Ranges().Accel, test.ShouldEqual, Accel2G)
}

func TestRangeFromLevel(t *testing.T) {
	_, err := GyroRangeFromLevel(5)
	var ce *ConfigurationError
	test.That(t, errors.As(err, &ce), test.ShouldBeTrue)
	test.That(t, ce.Field, test.ShouldEqual, "gyro range")

	a, err := AccelRangeFromLevel(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a, test.ShouldEqual, Accel8G)
	test.That(t, a.String(), test.ShouldEqual, "±8g")
	test.That(t, Gyro1000DPS.String(), test.ShouldEqual, "±1000°/s")

	_, err = AccelRangeFromLevel(-1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRead(t *testing.T) {
	var raw RawSample
	raw[15] = 0x40 // accel X = 0x4000
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: DefaultAddr, W: []byte{0x04}, R: raw[:]}},
		DontPanic: true,
	}
	d, _ := newTestDev(t, &I2CTransport{Bus: bus})

	v, err := d.Read(AxisAll)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(v), test.ShouldEqual, 9)
	test.That(t, v[6], test.ShouldAlmostEqual, 9.8, 1e-3)
	for i, x := range v {
		if i != 6 {
			test.That(t, x, test.ShouldEqual, 0.0)
		}
	}
	test.That(t, bus.Close(), test.ShouldBeNil)
}

func TestReadAxesRegroup(t *testing.T) {
	tr := newFakeTransport()
	tr.raw = sampleBurst()
	d, _ := newTestDev(t, tr)
	d.SetGyroRange(3)
	d.SetAccelRange(1)

	all, err := d.Read(AxisAll)
	test.That(t, err, test.ShouldBeNil)

	regrouped := make([]float64, 9)
	for i, a := range []Axis{AxisX, AxisY, AxisZ} {
		v, err := d.Read(a)
		test.That(t, err, test.ShouldBeNil)
		regrouped[i] = v[0]
		regrouped[3+i] = v[1]
		regrouped[6+i] = v[2]
	}
	test.That(t, regrouped, test.ShouldResemble, all)
}

func TestReadPropagatesBusError(t *testing.T) {
	tr := newFakeTransport()
	tr.absent = true
	d, _ := newTestDev(t, tr)
	v, err := d.Read(AxisAll)
	test.That(t, v, test.ShouldBeNil)
	var be *BusError
	test.That(t, errors.As(err, &be), test.ShouldBeTrue)
	test.That(t, be.Op, test.ShouldEqual, "read block")
	test.That(t, be.Error(), test.ShouldEqual, "bmx160: read block at 0x68 reg 0x04: i2c: NACK")
}

// Open bus, probe, bring up, read an all zero burst.
func TestScenarioZeroBurst(t *testing.T) {
	tr := newFakeTransport()
	d, _ := newTestDev(t, tr)
	test.That(t, d.Probe(), test.ShouldBeTrue)
	ok, err := d.Begin()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	v, err := d.Read(ParseAxis("all"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, make([]float64, 9))
}

func TestPowerStatus(t *testing.T) {
	tr := newFakeTransport()
	tr.regs[regPMUStatus] = 0x2E
	d, _ := newTestDev(t, tr)
	st, err := d.PowerStatus()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, st, test.ShouldResemble, PowerStatus{Accel: PowerLow, Gyro: PowerFastStartup, Mag: PowerLow})
	test.That(t, st.String(), test.ShouldEqual, "accel low power, gyro fast start-up, mag low power")
	test.That(t, decodePowerStatus(0x15), test.ShouldResemble, NormalPowerStatus)

	tr.regs[regErr] = 0x01
	e, err := d.ErrorStatus()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e, test.ShouldEqual, byte(0x01))
}
