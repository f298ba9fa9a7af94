package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/relabs-tech/bmx160/internal/bmx160"
)

// Config holds all application configuration values.
type Config struct {
	// Device
	I2CBus        string
	I2CAddr       uint16
	GyroRange     bmx160.GyroRange
	AccelRange    bmx160.AccelRange
	VerifyBringUp bool

	// Timing
	BeginRetryInterval int // milliseconds
	SampleInterval     int // milliseconds
	AxisFilter         bmx160.Axis

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicSample string
	TopicPose   string

	// Servers
	WebServerPort         int
	MetricsPort           int
	RegisterDebugPort     int
	RegisterDebugWritable []RegisterRange

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Calibration file applied by the producer and written by calibrate.
	CalibrationFile string

	LogLevel string
}

// RegisterRange is an inclusive range of register addresses.
type RegisterRange struct {
	First, Last byte
}

// Contains reports whether reg lies in r.
func (r RegisterRange) Contains(reg byte) bool {
	return reg >= r.First && reg <= r.Last
}

// Writable reports whether the register debug tool may write reg.
func (c *Config) Writable(reg byte) bool {
	for _, r := range c.RegisterDebugWritable {
		if r.Contains(reg) {
			return true
		}
	}
	return false
}

// Defaults returns a Config with every optional value filled in.
func Defaults() *Config {
	return &Config{
		I2CBus:                "1",
		I2CAddr:               bmx160.DefaultAddr,
		GyroRange:             bmx160.DefaultRanges.Gyro,
		AccelRange:            bmx160.DefaultRanges.Accel,
		BeginRetryInterval:    2000,
		SampleInterval:        200,
		AxisFilter:            bmx160.AxisAll,
		MQTTClientIDProducer:  "bmx160-producer",
		MQTTClientIDConsole:   "bmx160-console",
		MQTTClientIDWeb:       "bmx160-web",
		MQTTClientIDDisplay:   "bmx160-display",
		TopicSample:           "bmx160/sample",
		TopicPose:             "bmx160/pose",
		WebServerPort:         8080,
		MetricsPort:           9100,
		RegisterDebugPort:     8081,
		RegisterDebugWritable: []RegisterRange{{0x40, 0x4F}, {0x7E, 0x7E}},
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 500,
		LogLevel:              "info",
	}
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Defaults. Blank lines and lines
// starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Defaults()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, errors.Wrapf(err, "config line %d", lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Device
	case "I2C_BUS":
		c.I2CBus = value
	case "I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return errors.Wrapf(err, "invalid I2C_ADDR %q", value)
		}
		c.I2CAddr = uint16(addr)
	case "BMX160_GYRO_RANGE":
		level, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid BMX160_GYRO_RANGE %q", value)
		}
		g, err := bmx160.GyroRangeFromLevel(level)
		if err != nil {
			return err
		}
		c.GyroRange = g
	case "BMX160_ACCEL_RANGE":
		level, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid BMX160_ACCEL_RANGE %q", value)
		}
		a, err := bmx160.AccelRangeFromLevel(level)
		if err != nil {
			return err
		}
		c.AccelRange = a
	case "BMX160_VERIFY_BRINGUP":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(err, "invalid BMX160_VERIFY_BRINGUP %q", value)
		}
		c.VerifyBringUp = v

	// Timing
	case "BEGIN_RETRY_INTERVAL":
		interval, err := parseInterval(key, value)
		if err != nil {
			return err
		}
		c.BeginRetryInterval = interval
	case "SAMPLE_INTERVAL":
		interval, err := parseInterval(key, value)
		if err != nil {
			return err
		}
		c.SampleInterval = interval
	case "AXIS_FILTER":
		c.AxisFilter = bmx160.ParseAxis(value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_SAMPLE":
		c.TopicSample = value
	case "TOPIC_POSE":
		c.TopicPose = value

	// Servers
	case "WEB_SERVER_PORT":
		port, err := parsePort(key, value)
		if err != nil {
			return err
		}
		c.WebServerPort = port
	case "METRICS_PORT":
		port, err := parsePort(key, value)
		if err != nil {
			return err
		}
		c.MetricsPort = port
	case "REGISTER_DEBUG_PORT":
		port, err := parsePort(key, value)
		if err != nil {
			return err
		}
		c.RegisterDebugPort = port
	case "REGISTER_DEBUG_WRITABLE":
		ranges, err := ParseRegisterRanges(value)
		if err != nil {
			return err
		}
		c.RegisterDebugWritable = ranges

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return errors.Wrapf(err, "invalid DISPLAY_I2C_ADDR %q", value)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := parseInterval(key, value)
		if err != nil {
			return err
		}
		c.DisplayUpdateInterval = interval

	case "CALIBRATION_FILE":
		c.CalibrationFile = value
	case "LOG_LEVEL":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(value)
		default:
			return &bmx160.ConfigurationError{Field: "LOG_LEVEL", Value: value, Reason: "must be debug, info, warn or error"}
		}

	default:
		return errors.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parseInterval(key, value string) (int, error) {
	ms, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", key, value)
	}
	if ms <= 0 {
		return 0, &bmx160.ConfigurationError{Field: key, Value: ms, Reason: "must be a positive number of milliseconds"}
	}
	return ms, nil
}

func parsePort(key, value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", key, value)
	}
	if port < 1 || port > 65535 {
		return 0, &bmx160.ConfigurationError{Field: key, Value: port, Reason: "must be 1-65535"}
	}
	return port, nil
}

// ParseRegisterRanges parses a comma separated list of registers and
// inclusive ranges, such as "0x40-0x4F,0x7E". An empty string allows nothing.
func ParseRegisterRanges(s string) ([]RegisterRange, error) {
	var out []RegisterRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if i := strings.Index(part, "-"); i >= 0 {
			lo, hi = strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+1:])
		}
		first, err := strconv.ParseUint(lo, 0, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid register %q", lo)
		}
		last, err := strconv.ParseUint(hi, 0, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid register %q", hi)
		}
		if last < first {
			return nil, &bmx160.ConfigurationError{Field: "REGISTER_DEBUG_WRITABLE", Value: part, Reason: "range end before start"}
		}
		out = append(out, RegisterRange{First: byte(first), Last: byte(last)})
	}
	return out, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.I2CBus == "" {
		return errors.New("I2C_BUS is required")
	}
	if c.I2CAddr == 0 || c.I2CAddr > 0x7F {
		return &bmx160.ConfigurationError{Field: "I2C_ADDR", Value: c.I2CAddr, Reason: "must be a 7 bit address"}
	}
	if c.DisplayI2CAddr == 0 || c.DisplayI2CAddr > 0x7F {
		return &bmx160.ConfigurationError{Field: "DISPLAY_I2C_ADDR", Value: c.DisplayI2CAddr, Reason: "must be a 7 bit address"}
	}
	if c.TopicSample == "" {
		return errors.New("TOPIC_SAMPLE is required")
	}
	if c.TopicPose == "" {
		return errors.New("TOPIC_POSE is required")
	}
	return nil
}

// RequireMQTT reports an error when MQTT_BROKER is not set. Only the MQTT
// commands need a broker.
func (c *Config) RequireMQTT() error {
	if c.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads the file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
