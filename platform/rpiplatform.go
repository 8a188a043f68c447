package platform

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"lautenbacher.net/eyedancer/actuator"
	"lautenbacher.net/eyedancer/config"
)

// mcp41xxxWriteWiper is the MCP41xxx command byte "write data, pot 0".
const mcp41xxxWriteWiper = 0x11

// pwmCycle is the PWM cycle length, so a motor speed maps 1:1 onto the
// duty length.
const pwmCycle = 255

type RaspberryPiPlatform struct {
	*AbstractPlatform
	hw         config.HardwareConfig
	spiMutex   sync.Mutex
	relay      rpio.Pin
	motorRaise rpio.Pin
	motorLower rpio.Pin
	motorPwm   rpio.Pin
	started    bool
}

func NewRaspberryPiPlatform(conf *config.Config) *RaspberryPiPlatform {
	inst := &RaspberryPiPlatform{
		hw:         conf.Hardware,
		relay:      rpio.Pin(conf.Hardware.RelayPin),
		motorRaise: rpio.Pin(conf.Hardware.MotorRaisePin),
		motorLower: rpio.Pin(conf.Hardware.MotorLowerPin),
		motorPwm:   rpio.Pin(conf.Hardware.MotorPwmPin),
	}
	inst.AbstractPlatform = newAbstractPlatform(inst, DefaultHistorySize)
	return inst
}

func (s *RaspberryPiPlatform) Start() error {
	slog.Info("Initialise GPIO and Spi...")
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("failed to open rpio: %w", err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return fmt.Errorf("failed to begin spi: %w", err)
	}
	rpio.SpiSpeed(s.hw.SpiFrequency)

	for _, pin := range []rpio.Pin{s.relay, s.motorRaise, s.motorLower} {
		pin.Output()
		pin.Low()
	}
	s.motorPwm.Pwm()
	s.motorPwm.Freq(s.hw.PwmFrequency)
	s.motorPwm.DutyCycle(0, pwmCycle)
	s.started = true

	close(s.readyChan) // ready as soon as the pins are set up
	return nil
}

func (s *RaspberryPiPlatform) Stop() {
	if !s.started {
		return
	}
	s.safeState()
	rpio.SpiEnd(rpio.Spi0)
	if err := rpio.Close(); err != nil {
		slog.Error("Error closing rpio", "error", err)
	}
	s.started = false
}

func (s *RaspberryPiPlatform) writeAxis(axis actuator.Axis, value uint8) {
	cs := s.hw.AxisXChipSelect
	if axis == actuator.AxisY {
		cs = s.hw.AxisYChipSelect
	}
	s.spiMutex.Lock()
	defer s.spiMutex.Unlock()
	rpio.SpiChipSelect(uint8(cs))
	rpio.SpiTransmit(wiperCommand(value)...)
}

func (s *RaspberryPiPlatform) writeRelay(on bool) {
	setPin(s.relay, on)
}

func (s *RaspberryPiPlatform) writeMotorPin(pin actuator.MotorPin, on bool) {
	if pin == actuator.MotorPinRaise {
		setPin(s.motorRaise, on)
	} else {
		setPin(s.motorLower, on)
	}
}

func (s *RaspberryPiPlatform) writeMotorSpeed(speed uint8) {
	s.motorPwm.DutyCycle(uint32(speed), pwmCycle)
}

// wiperCommand is the two byte SPI frame that moves an MCP41xxx wiper.
func wiperCommand(value uint8) []byte {
	return []byte{mcp41xxxWriteWiper, value}
}

func setPin(pin rpio.Pin, on bool) {
	if on {
		pin.High()
	} else {
		pin.Low()
	}
}
