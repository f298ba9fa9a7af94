// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bmx160 drives a Bosch BMX160 (BMI160 accelerometer and gyroscope
// with a BMM150 magnetometer behind an internal bridge) over I2C.
//
// The device is brought up with a fixed sequence of register writes and
// settle delays. Nothing written to the command register is read back: a
// successful Begin only means the bus accepted every write. BeginVerified
// adds the read back.
//
// A Dev is not safe for concurrent use.
package bmx160

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	powerUpDelay = 200 * time.Millisecond
	resetDelay   = 200 * time.Millisecond
	settleDelay  = 100 * time.Millisecond
	bridgeDelay  = 50 * time.Millisecond
)

// Opts holds initialization options.
//
// Addr defaults to DefaultAddr. Logger defaults to a no-op logger. Sleep
// defaults to time.Sleep and is called for every settle delay.
type Opts struct {
	Addr   uint16
	Logger *zap.SugaredLogger
	Sleep  func(time.Duration)
}

// DefaultOpts is used when nil is passed to New or Open.
var DefaultOpts = Opts{Addr: DefaultAddr}

// Dev is a BMX160 on a bus.
type Dev struct {
	t      Transport
	addr   uint16
	ranges Ranges
	sleep  func(time.Duration)
	log    *zap.SugaredLogger
	bus    io.Closer // set when the bus was opened by Open
}

// Open initializes the periph host, opens the named I2C bus ("1" or
// "/dev/i2c-1") and returns a Dev on it. See New.
func Open(busName string, opts *Opts) (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "bmx160: periph host init")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrapf(err, "bmx160: i2c open %q", busName)
	}
	d := New(&I2CTransport{Bus: bus}, opts)
	d.bus = bus
	return d, nil
}

// New returns a Dev on t with the default ranges. It waits for the device
// to power up but does not touch the bus.
func New(t Transport, opts *Opts) *Dev {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{
		t:      t,
		addr:   opts.Addr,
		ranges: DefaultRanges,
		sleep:  opts.Sleep,
		log:    opts.Logger,
	}
	if d.addr == 0 {
		d.addr = DefaultAddr
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}
	if d.log == nil {
		d.log = zap.NewNop().Sugar()
	}
	d.sleep(powerUpDelay)
	return d
}

// Addr returns the I2C address the device is driven at.
func (d *Dev) Addr() uint16 { return d.addr }

// Probe reports whether anything acknowledges the device address. Bus
// errors are the expected way to say no and are not returned.
func (d *Dev) Probe() bool {
	if _, err := d.t.ReceiveByte(d.addr); err != nil {
		d.log.Debugf("bmx160: probe 0x%02X failed: %v", d.addr, err)
		return false
	}
	return true
}

// ChipID reads the CHIP_ID register. A BMX160 answers ChipID.
func (d *Dev) ChipID() (byte, error) {
	return d.ReadRegister(regChipID)
}

// ErrorStatus reads the ERR register.
func (d *Dev) ErrorStatus() (byte, error) {
	return d.ReadRegister(regErr)
}

// SoftReset writes the reset command and waits for the device to come back.
func (d *Dev) SoftReset() error {
	if err := d.writeCmd(cmdSoftReset); err != nil {
		return err
	}
	d.sleep(resetDelay)
	return nil
}

// Begin runs the normal mode bring-up: probe, chip id, soft reset, then
// accelerometer, gyroscope and magnetometer normal mode commands and the
// magnetometer bridge setup, with a settle delay after each step.
//
// It returns false without writing anything when the probe fails, so callers
// can retry it in a loop. It returns true once every write was accepted by
// the bus; the device state is not read back.
func (d *Dev) Begin() (bool, error) {
	if !d.Probe() {
		return false, nil
	}
	id, err := d.ChipID()
	if err != nil {
		return false, err
	}
	d.log.Infof("bmx160: chip id 0x%02X at 0x%02X", id, d.addr)

	d.log.Debugf("bmx160: %s", stageReset)
	if err := d.SoftReset(); err != nil {
		return false, err
	}
	d.sleep(settleDelay)

	for i, cmd := range normalModeCmds {
		d.log.Debugf("bmx160: %s", stageAccelWake+stage(i))
		if err := d.writeCmd(cmd); err != nil {
			return false, err
		}
		d.sleep(settleDelay)
	}

	if err := d.ConfigureMag(); err != nil {
		return false, err
	}
	d.log.Debugf("bmx160: %s", stageConfigured)
	return true, nil
}

// BeginVerified runs Begin and then checks the chip id and that all three
// sensors report normal mode in PMU_STATUS.
func (d *Dev) BeginVerified() error {
	ok, err := d.Begin()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotPresent
	}
	id, err := d.ChipID()
	if err != nil {
		return err
	}
	if id != ChipID {
		return errors.Errorf("bmx160: unexpected chip id 0x%02X, want 0x%02X", id, ChipID)
	}
	st, err := d.PowerStatus()
	if err != nil {
		return err
	}
	if st != NormalPowerStatus {
		return errors.Errorf("bmx160: not in normal mode after bring-up: %s", st)
	}
	return nil
}

// LowPowerMode resets the device, sets up the magnetometer bridge and puts
// the accelerometer in low power, the gyroscope in fast start-up and the
// magnetometer in low power mode.
func (d *Dev) LowPowerMode() error {
	return d.transition(lowPowerModeCmds)
}

// Wake is LowPowerMode with the normal mode commands.
func (d *Dev) Wake() error {
	return d.transition(normalModeCmds)
}

// Halt puts the device in low power mode.
func (d *Dev) Halt() error {
	return d.LowPowerMode()
}

func (d *Dev) transition(cmds [3]byte) error {
	if err := d.SoftReset(); err != nil {
		return err
	}
	d.sleep(settleDelay)
	if err := d.ConfigureMag(); err != nil {
		return err
	}
	d.sleep(settleDelay)
	for _, cmd := range cmds {
		if err := d.writeCmd(cmd); err != nil {
			return err
		}
		d.sleep(settleDelay)
	}
	return nil
}

// ConfigureMag runs the BMM150 setup through the bridge registers and
// leaves the bridge in automatic data mode.
func (d *Dev) ConfigureMag() error {
	if err := d.WriteRegister(regMagIF0, magIFManual); err != nil {
		return err
	}
	d.sleep(bridgeDelay)
	for _, w := range magSetup {
		if err := d.WriteRegister(w.reg, w.val); err != nil {
			return err
		}
	}
	if err := d.WriteRegister(regMagIF0, magIFAuto); err != nil {
		return err
	}
	d.sleep(bridgeDelay)
	return nil
}

// SetGyroRange selects the gyroscope scale by level, 0 (±125°/s) to
// 4 (±2000°/s). Any other level selects ±250°/s.
func (d *Dev) SetGyroRange(level int) {
	g, err := GyroRangeFromLevel(level)
	if err != nil {
		d.log.Debugf("bmx160: %v, using %s", err, g)
	}
	d.ranges.Gyro = g
}

// SetAccelRange selects the accelerometer scale by level, 0 (±2g) to
// 3 (±16g). Any other level selects ±2g.
func (d *Dev) SetAccelRange(level int) {
	a, err := AccelRangeFromLevel(level)
	if err != nil {
		d.log.Debugf("bmx160: %v, using %s", err, a)
	}
	d.ranges.Accel = a
}

// Ranges returns the scales applied by Read and Sense.
func (d *Dev) Ranges() Ranges { return d.ranges }

// ReadRaw reads the 20 byte data burst.
func (d *Dev) ReadRaw() (RawSample, error) {
	var r RawSample
	if err := d.t.ReadBlockData(d.addr, regMagData, r[:]); err != nil {
		return RawSample{}, err
	}
	return r, nil
}

// Sense reads one sample and scales it with the current ranges.
func (d *Dev) Sense(m *Measurement) error {
	r, err := d.ReadRaw()
	if err != nil {
		return err
	}
	*m = r.Decode(d.ranges)
	return nil
}

// Read returns mx, my, mz, gx, gy, gz, ax, ay, az for AxisAll, or mag,
// gyro, accel of the selected axis.
func (d *Dev) Read(axis Axis) ([]float64, error) {
	var m Measurement
	if err := d.Sense(&m); err != nil {
		return nil, err
	}
	return m.Select(axis), nil
}

// ReadRegister reads one register.
func (d *Dev) ReadRegister(reg byte) (byte, error) {
	var b [1]byte
	if err := d.t.ReadBlockData(d.addr, reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteRegister writes one register.
func (d *Dev) WriteRegister(reg, value byte) error {
	return d.t.WriteByteData(d.addr, reg, value)
}

// Close releases the bus if it was opened by Open.
func (d *Dev) Close() error {
	if d.bus == nil {
		return nil
	}
	err := d.bus.Close()
	d.bus = nil
	return err
}

func (d *Dev) String() string {
	return "BMX160"
}

func (d *Dev) writeCmd(cmd byte) error {
	return d.WriteRegister(regCmd, cmd)
}

// stage names the steps of the normal mode bring-up, for logging.
type stage int

const (
	stageReset stage = iota
	stageAccelWake
	stageGyroWake
	stageMagWake
	stageConfigured
)

func (s stage) String() string {
	switch s {
	case stageReset:
		return "reset"
	case stageAccelWake:
		return "accel wake"
	case stageGyroWake:
		return "gyro wake"
	case stageMagWake:
		return "mag wake"
	case stageConfigured:
		return "configured"
	}
	return "unknown"
}
