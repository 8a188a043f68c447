package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"lautenbacher.net/eyedancer/actuator"
	"lautenbacher.net/eyedancer/sequencer"
)

const CONFILE = "config.yml"

// DefaultLetterMapping assigns the letters A to X in order: three
// letters per compass direction, starting at up.
const DefaultLetterMapping = "ABCDEFGHIJKLMNOPQRSTUVWX"

type Config struct {
	Hardware HardwareConfig `yaml:"Hardware" toml:"Hardware"`
	Actuator ActuatorConfig `yaml:"Actuator" toml:"Actuator"`
	Timing   TimingConfig   `yaml:"Timing" toml:"Timing"`
	Spelling SpellingConfig `yaml:"Spelling" toml:"Spelling"`
	Motor    MotorConfig    `yaml:"Motor" toml:"Motor"`
	HTTP     HTTPConfig     `yaml:"HTTP" toml:"HTTP"`
	Serial   SerialConfig   `yaml:"Serial" toml:"Serial"`
	Store    StoreConfig    `yaml:"Store" toml:"Store"`
	Logging  LoggingConfig  `yaml:"Logging" toml:"Logging"`
}

// HardwareConfig describes the wiring on the Raspberry Pi. Pins are BCM
// numbers, chip selects are the SPI0 CE lines the two MCP41xxx digital
// potentiometers hang on.
type HardwareConfig struct {
	SpiFrequency    int `yaml:"SpiFrequency" toml:"SpiFrequency"`
	AxisXChipSelect int `yaml:"AxisXChipSelect" toml:"AxisXChipSelect"`
	AxisYChipSelect int `yaml:"AxisYChipSelect" toml:"AxisYChipSelect"`
	RelayPin        int `yaml:"RelayPin" toml:"RelayPin"`
	MotorRaisePin   int `yaml:"MotorRaisePin" toml:"MotorRaisePin"`
	MotorLowerPin   int `yaml:"MotorLowerPin" toml:"MotorLowerPin"`
	MotorPwmPin     int `yaml:"MotorPwmPin" toml:"MotorPwmPin"`
	PwmFrequency    int `yaml:"PwmFrequency" toml:"PwmFrequency"`
}

type ActuatorConfig struct {
	Center            float64 `yaml:"Center" toml:"Center" json:"Center"`
	Radius            float64 `yaml:"Radius" toml:"Radius" json:"Radius"`
	ScaleX            float64 `yaml:"ScaleX" toml:"ScaleX" json:"ScaleX"`
	ScaleY            float64 `yaml:"ScaleY" toml:"ScaleY" json:"ScaleY"`
	Min               int     `yaml:"Min" toml:"Min" json:"Min"`
	Max               int     `yaml:"Max" toml:"Max" json:"Max"`
	RelayOnWhenClosed bool    `yaml:"RelayOnWhenClosed" toml:"RelayOnWhenClosed" json:"RelayOnWhenClosed"`
}

// Mapping turns the (validated) actuator block into the projection used
// by the eyes.
func (a ActuatorConfig) Mapping() actuator.Mapping {
	return actuator.Mapping{
		Center:            a.Center,
		Radius:            a.Radius,
		ScaleX:            a.ScaleX,
		ScaleY:            a.ScaleY,
		Min:               uint8(a.Min),
		Max:               uint8(a.Max),
		RelayOnWhenClosed: a.RelayOnWhenClosed,
	}
}

type TimingConfig struct {
	PollDelay          time.Duration `yaml:"PollDelay" toml:"PollDelay" json:"PollDelay"`
	SequenceResolution time.Duration `yaml:"SequenceResolution" toml:"SequenceResolution" json:"SequenceResolution"`
	SpinResolution     time.Duration `yaml:"SpinResolution" toml:"SpinResolution" json:"SpinResolution"`
	MotorResolution    time.Duration `yaml:"MotorResolution" toml:"MotorResolution" json:"MotorResolution"`
	MotorHardCap       time.Duration `yaml:"MotorHardCap" toml:"MotorHardCap" json:"MotorHardCap"`
}

type SpellingConfig struct {
	// Mapping is only the initial letter mapping: once a mapping was set
	// at runtime the store's copy wins.
	Mapping       string `yaml:"Mapping" toml:"Mapping" json:"Mapping"`
	MaxWordLength int    `yaml:"MaxWordLength" toml:"MaxWordLength" json:"MaxWordLength"`
}

type MotorConfig struct {
	Speed int `yaml:"Speed" toml:"Speed" json:"Speed"`
}

type HTTPConfig struct {
	Listen string `yaml:"Listen" toml:"Listen"`
}

type SerialConfig struct {
	Enabled bool   `yaml:"Enabled" toml:"Enabled"`
	Port    string `yaml:"Port" toml:"Port"`
	Baud    int    `yaml:"Baud" toml:"Baud"`
}

type StoreConfig struct {
	Dir string `yaml:"Dir" toml:"Dir"`
}

type LogConfig struct {
	Level  string `yaml:"Level" toml:"Level"`
	Format string `yaml:"Format" toml:"Format"`
	File   string `yaml:"File" toml:"File"`
}

type LoggingConfig struct {
	TUI LogConfig `yaml:"TUI" toml:"TUI"`
	HW  LogConfig `yaml:"HW" toml:"HW"`
}

// Default returns the configuration a missing key falls back to.
func Default() Config {
	return Config{
		Hardware: HardwareConfig{
			SpiFrequency:    1000000,
			AxisXChipSelect: 0,
			AxisYChipSelect: 1,
			RelayPin:        17,
			MotorRaisePin:   23,
			MotorLowerPin:   24,
			MotorPwmPin:     18,
			PwmFrequency:    64000,
		},
		Actuator: ActuatorConfig{
			Center: 128,
			Radius: 128,
			ScaleX: 1,
			ScaleY: 1,
			Min:    0,
			Max:    255,
		},
		Timing: TimingConfig{
			PollDelay:          time.Millisecond,
			SequenceResolution: 50 * time.Millisecond,
			SpinResolution:     time.Millisecond,
			MotorResolution:    time.Millisecond,
			MotorHardCap:       sequencer.HardCap,
		},
		Spelling: SpellingConfig{
			Mapping:       DefaultLetterMapping,
			MaxWordLength: sequencer.DefaultMaxWordLength,
		},
		Motor: MotorConfig{Speed: 255},
		HTTP:  HTTPConfig{Listen: ":8080"},
		Serial: SerialConfig{
			Port: "/dev/ttyUSB0",
			Baud: 115200,
		},
		Store: StoreConfig{Dir: "."},
		Logging: LoggingConfig{
			TUI: LogConfig{Level: "DEBUG", Format: "text", File: "eyedancer-tui.log"},
			HW:  LogConfig{Level: "INFO", Format: "text"},
		},
	}
}

// ReadConfig reads cfile over the defaults and validates the result.
// Files ending in .toml are TOML, everything else is YAML.
func ReadConfig(cfile string) (Config, error) {
	conf := Default()
	data, err := os.ReadFile(cfile)
	if err != nil {
		return conf, fmt.Errorf("can't read config file %s: %w", cfile, err)
	}
	if isTOML(cfile) {
		if _, err := toml.Decode(string(data), &conf); err != nil {
			return conf, fmt.Errorf("can't decode config file %s: %w", cfile, err)
		}
	} else if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid config file %s: %w", cfile, err)
	}
	return conf, nil
}

// WriteConfig writes conf to cfile in the format its extension selects.
func WriteConfig(cfile string, conf Config) error {
	var buf strings.Builder
	if isTOML(cfile) {
		if err := toml.NewEncoder(&buf).Encode(conf); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
	} else {
		data, err := yaml.Marshal(&conf)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		buf.Write(data)
	}
	return os.WriteFile(cfile, []byte(buf.String()), 0o644)
}

func isTOML(cfile string) bool {
	return strings.EqualFold(filepath.Ext(cfile), ".toml")
}

// Validate returns the first violated constraint.
func (c *Config) Validate() error {
	if err := c.Actuator.validate(); err != nil {
		return err
	}
	if err := c.Timing.validate(); err != nil {
		return err
	}
	if c.Spelling.MaxWordLength <= 0 {
		return errors.New("Spelling.MaxWordLength must be positive")
	}
	if err := byteRange("Motor.Speed", c.Motor.Speed); err != nil {
		return err
	}
	if err := c.Hardware.validate(); err != nil {
		return err
	}
	if c.Serial.Enabled {
		if c.Serial.Port == "" {
			return errors.New("Serial.Port must be set when the serial console is enabled")
		}
		if c.Serial.Baud <= 0 {
			return errors.New("Serial.Baud must be positive")
		}
	}
	return nil
}

func (a *ActuatorConfig) validate() error {
	if err := byteRange("Actuator.Min", a.Min); err != nil {
		return err
	}
	if err := byteRange("Actuator.Max", a.Max); err != nil {
		return err
	}
	if a.Min >= a.Max {
		return fmt.Errorf("Actuator.Min (%d) must be smaller than Actuator.Max (%d)", a.Min, a.Max)
	}
	if a.Center < 0 || a.Center > 255 {
		return fmt.Errorf("Actuator.Center (%g) must be between 0 and 255", a.Center)
	}
	if a.Radius < 0 {
		return fmt.Errorf("Actuator.Radius (%g) must be non-negative", a.Radius)
	}
	if a.ScaleX <= 0 || a.ScaleY <= 0 {
		return errors.New("Actuator.ScaleX and Actuator.ScaleY must be positive")
	}
	return nil
}

func (t *TimingConfig) validate() error {
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"Timing.PollDelay", t.PollDelay},
		{"Timing.SequenceResolution", t.SequenceResolution},
		{"Timing.SpinResolution", t.SpinResolution},
		{"Timing.MotorResolution", t.MotorResolution},
		{"Timing.MotorHardCap", t.MotorHardCap},
	} {
		if f.d <= 0 {
			return fmt.Errorf("%s (%s) must be positive", f.name, f.d)
		}
	}
	if t.MotorHardCap > sequencer.HardCap {
		return fmt.Errorf("Timing.MotorHardCap (%s) must not exceed %s", t.MotorHardCap, sequencer.HardCap)
	}
	return nil
}

func (h *HardwareConfig) validate() error {
	if h.SpiFrequency <= 0 {
		return errors.New("Hardware.SpiFrequency must be positive")
	}
	if h.AxisXChipSelect == h.AxisYChipSelect {
		return errors.New("Hardware.AxisXChipSelect and Hardware.AxisYChipSelect must differ")
	}
	for _, f := range []namedInt{
		{"Hardware.AxisXChipSelect", h.AxisXChipSelect},
		{"Hardware.AxisYChipSelect", h.AxisYChipSelect},
	} {
		if f.v < 0 || f.v > 2 {
			return fmt.Errorf("%s (%d) must be between 0 and 2", f.name, f.v)
		}
	}
	for _, f := range []namedInt{
		{"Hardware.RelayPin", h.RelayPin},
		{"Hardware.MotorRaisePin", h.MotorRaisePin},
		{"Hardware.MotorLowerPin", h.MotorLowerPin},
		{"Hardware.MotorPwmPin", h.MotorPwmPin},
	} {
		if f.v < 0 || f.v > 27 {
			return fmt.Errorf("%s (%d) must be between 0 and 27", f.name, f.v)
		}
	}
	if h.PwmFrequency <= 0 {
		return errors.New("Hardware.PwmFrequency must be positive")
	}
	return nil
}

// namedInt is a config field and its name, checked in declaration order.
type namedInt struct {
	name string
	v    int
}

func byteRange(name string, v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%s (%d) must be between 0 and 255", name, v)
	}
	return nil
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
