package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/bmx160/internal/imu"
	"github.com/relabs-tech/bmx160/internal/orientation"
)

// Drawer is the part of *ssd1306.Dev the display loop uses.
type Drawer interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// ssd1306Addr is where ssd1306.NewI2C talks to the panel.
const ssd1306Addr = 0x3C

// remapBus sends traffic for ssd1306Addr to addr instead, for panels
// strapped to 0x3D.
type remapBus struct {
	i2c.Bus
	addr uint16
}

func (b *remapBus) Tx(addr uint16, w, r []byte) error {
	if addr == ssd1306Addr {
		addr = b.addr
	}
	return b.Bus.Tx(addr, w, r)
}

// OpenDisplay opens a 128x64 SSD1306 at addr on the named bus. The returned
// closer releases the bus.
func OpenDisplay(busName string, addr uint16) (*ssd1306.Dev, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize periph")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open I2C bus %q", busName)
	}
	var b i2c.Bus = bus
	if addr != ssd1306Addr {
		b = &remapBus{Bus: bus, addr: addr}
	}
	dev, err := ssd1306.NewI2C(b, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, nil, errors.Wrapf(err, "failed to initialize display at 0x%02X", addr)
	}
	return dev, bus, nil
}

// DisplayData holds the latest data for display.
type DisplayData struct {
	mu sync.RWMutex

	sample     imu.Sample
	haveSample bool
	pose       orientation.Pose
	havePose   bool
}

// Subscribe feeds d from the sample and pose topics.
func (d *DisplayData) Subscribe(sub Subscriber, topicSample, topicPose string, logger *zap.SugaredLogger) error {
	if err := sub.Subscribe(topicSample, func(payload []byte) {
		var s imu.Sample
		if err := json.Unmarshal(payload, &s); err != nil {
			logger.Warnf("display: sample unmarshal error: %v", err)
			return
		}
		d.mu.Lock()
		d.sample, d.haveSample = s, true
		d.mu.Unlock()
	}); err != nil {
		return err
	}
	return sub.Subscribe(topicPose, func(payload []byte) {
		var p orientation.Pose
		if err := json.Unmarshal(payload, &p); err != nil {
			logger.Warnf("display: pose unmarshal error: %v", err)
			return
		}
		d.mu.Lock()
		d.pose, d.havePose = p, true
		d.mu.Unlock()
	})
}

// RunDisplay redraws dev every interval until ctx is done.
func RunDisplay(ctx context.Context, dev Drawer, data *DisplayData, clk clock.Clock, interval int, logger *zap.SugaredLogger) error {
	if err := dev.Draw(dev.Bounds(), renderLines(dev.Bounds(), "BMX160", "Waiting..."), image.Point{}); err != nil {
		logger.Warnf("display: error showing splash: %v", err)
	}

	ticker := clk.Ticker(millis(interval))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := dev.Draw(dev.Bounds(), data.Render(dev.Bounds()), image.Point{}); err != nil {
			logger.Warnf("display: error updating display: %v", err)
		}
	}
}

// Render draws the latest readings. Before the first sample it shows a
// waiting screen.
func (d *DisplayData) Render(bounds image.Rectangle) *image1bit.VerticalLSB {
	d.mu.RLock()
	s, haveSample := d.sample, d.haveSample
	p, havePose := d.pose, d.havePose
	d.mu.RUnlock()

	if !haveSample {
		return renderLines(bounds, "BMX160", "Waiting...")
	}
	lines := []string{
		fmt.Sprintf("B:%6.1fuT", s.MagNorm()),
		fmt.Sprintf("G:%5.0f%5.0f%5.0f", s.Gyro[0], s.Gyro[1], s.Gyro[2]),
		fmt.Sprintf("A:%5.1f%5.1f%5.1f", s.Accel[0], s.Accel[1], s.Accel[2]),
	}
	if havePose {
		lines = append(lines, fmt.Sprintf("R%4.0f P%4.0f Y%4.0f", p.Roll, p.Pitch, p.Yaw))
	}
	return renderLines(bounds, lines...)
}

// renderLines draws one line of 7x13 text per 13 pixel row.
func renderLines(bounds image.Rectangle, lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(bounds)
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}
