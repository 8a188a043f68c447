package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
Hardware:
  SpiFrequency: 500000
  AxisXChipSelect: 0
  AxisYChipSelect: 1
  RelayPin: 17
  MotorRaisePin: 23
  MotorLowerPin: 24
  MotorPwmPin: 18
  PwmFrequency: 64000
Actuator:
  Center: 128
  Radius: 100
  ScaleX: 1.2
  ScaleY: 0.9
  Min: 10
  Max: 245
  RelayOnWhenClosed: false
Timing:
  PollDelay: 2ms
  SequenceResolution: 50ms
  SpinResolution: 1ms
  MotorResolution: 1ms
  MotorHardCap: 20s
Spelling:
  Mapping: "QWERTYUIOPASDFGHJKLZXCVB"
  MaxWordLength: 12
Motor:
  Speed: 200
HTTP:
  Listen: ":9090"
Serial:
  Enabled: false
Store:
  Dir: "/tmp"
Logging:
  TUI:
    Level: "DEBUG"
    Format: "text"
    File: "/tmp/eyedancer-tui.log"
  HW:
    Level: "WARN"
    Format: "json"
    File: "/var/log/eyedancer-hw.log"
`

func createConfigFile(t *testing.T, name, configData string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(configFile, []byte(configData), 0o644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configFile
}

func TestReadConfig(t *testing.T) {
	configFile := createConfigFile(t, "config.yml", baseConfig)

	conf, err := ReadConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, 500000, conf.Hardware.SpiFrequency)
	assert.Equal(t, 1.2, conf.Actuator.ScaleX)
	assert.Equal(t, 245, conf.Actuator.Max)
	assert.Equal(t, 2*time.Millisecond, conf.Timing.PollDelay)
	assert.Equal(t, 20*time.Second, conf.Timing.MotorHardCap)
	assert.Equal(t, "QWERTYUIOPASDFGHJKLZXCVB", conf.Spelling.Mapping)
	assert.Equal(t, 200, conf.Motor.Speed)
	assert.Equal(t, ":9090", conf.HTTP.Listen)

	assert.Equal(t, "DEBUG", conf.Logging.TUI.Level)
	assert.Equal(t, "json", conf.Logging.HW.Format)
	assert.Equal(t, "/var/log/eyedancer-hw.log", conf.Logging.HW.File)

	m := conf.Actuator.Mapping()
	assert.Equal(t, uint8(10), m.Min)
	assert.Equal(t, uint8(245), m.Max)
}

func TestReadConfig_DefaultsFillGaps(t *testing.T) {
	configFile := createConfigFile(t, "config.yml", "Motor:\n  Speed: 100\n")

	conf, err := ReadConfig(configFile)
	require.NoError(t, err)
	assert.Equal(t, 100, conf.Motor.Speed)
	assert.Equal(t, 50*time.Millisecond, conf.Timing.SequenceResolution)
	assert.Equal(t, 25*time.Second, conf.Timing.MotorHardCap)
	assert.Equal(t, DefaultLetterMapping, conf.Spelling.Mapping)
	assert.Equal(t, 12, conf.Spelling.MaxWordLength)
}

func TestReadConfig_TOML(t *testing.T) {
	configFile := createConfigFile(t, "config.toml", `
[Timing]
PollDelay = "5ms"
SequenceResolution = "50ms"
SpinResolution = "2ms"
MotorResolution = "1ms"
MotorHardCap = "10s"

[Spelling]
Mapping = "abcdefghijklmnopqrstuvwx"
MaxWordLength = 8

[Serial]
Enabled = true
Port = "/dev/ttyACM0"
Baud = 9600
`)

	conf, err := ReadConfig(configFile)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, conf.Timing.PollDelay)
	assert.Equal(t, 10*time.Second, conf.Timing.MotorHardCap)
	assert.Equal(t, 8, conf.Spelling.MaxWordLength)
	assert.True(t, conf.Serial.Enabled)
	assert.Equal(t, 9600, conf.Serial.Baud)
	assert.Equal(t, 255, conf.Motor.Speed, "untouched blocks keep their defaults")
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestReadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{"hard cap above ceiling", "MotorHardCap: 20s", "MotorHardCap: 30s", "must not exceed 25s"},
		{"zero poll delay", "PollDelay: 2ms", "PollDelay: 0s", "must be positive"},
		{"output max too large", "Max: 245", "Max: 256", "must be between 0 and 255"},
		{"min not below max", "Min: 10", "Min: 250", "must be smaller than"},
		{"motor speed negative", "Speed: 200", "Speed: -1", "must be between 0 and 255"},
		{"bad pin", "RelayPin: 17", "RelayPin: 40", "must be between 0 and 27"},
		{"same chip select", "AxisYChipSelect: 1", "AxisYChipSelect: 0", "must differ"},
		{"serial without port", "Enabled: false", "Enabled: true\n  Port: \"\"", "Serial.Port must be set"},
		{"zero word length", "MaxWordLength: 12", "MaxWordLength: 0", "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Contains(t, baseConfig, tt.from)
			configFile := createConfigFile(t, "config.yml", strings.Replace(baseConfig, tt.from, tt.to, 1))
			_, err := ReadConfig(configFile)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_FirstViolationIsStable(t *testing.T) {
	for i := 0; i < 50; i++ {
		conf := Default()
		conf.Timing.PollDelay = 0
		conf.Timing.SpinResolution = 0
		conf.Timing.MotorHardCap = 0
		err := conf.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Timing.PollDelay")

		conf = Default()
		conf.Hardware.RelayPin = 99
		conf.Hardware.MotorLowerPin = 99
		conf.Hardware.MotorPwmPin = 99
		err = conf.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Hardware.RelayPin")
	}
}

func TestWatch_NotifiesOnWrite(t *testing.T) {
	configFile := createConfigFile(t, "config.yml", baseConfig)
	changed := make(chan struct{}, 10)
	stop := make(chan struct{})
	defer close(stop)

	require.NoError(t, Watch(configFile, func() { changed <- struct{}{} }, stop))
	require.NoError(t, os.WriteFile(configFile, []byte(baseConfig+"\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification for a rewritten config file")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	configFile := createConfigFile(t, "config.yml", baseConfig)
	changed := make(chan struct{}, 10)
	stop := make(chan struct{})
	defer close(stop)

	require.NoError(t, Watch(configFile, func() { changed <- struct{}{} }, stop))
	other := filepath.Join(filepath.Dir(configFile), "other.yml")
	require.NoError(t, os.WriteFile(other, []byte("x: 1\n"), 0o644))

	select {
	case <-changed:
		t.Fatal("change of another file must not notify")
	case <-time.After(300 * time.Millisecond):
	}
}
