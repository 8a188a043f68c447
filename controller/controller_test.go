package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lautenbacher.net/eyedancer/actuator"
	"lautenbacher.net/eyedancer/scheduler"
	"lautenbacher.net/eyedancer/sequencer"
)

type mockDriver struct {
	mu         sync.Mutex
	axes       [2]uint8
	axisWrites int
	relay      bool
	pins       [2]bool
	speed      uint8
}

func (m *mockDriver) SetAxis(axis actuator.Axis, value uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.axes[axis] = value
	m.axisWrites++
}

func (m *mockDriver) SetRelay(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relay = on
}

func (m *mockDriver) SetMotorDirection(pin actuator.MotorPin, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins[pin] = on
}

func (m *mockDriver) SetMotorSpeed(value uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = value
}

func (m *mockDriver) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.axisWrites
}

type mockStore struct {
	mapping string
	speed   uint8
}

func (m *mockStore) LetterMapping() string { return m.mapping }
func (m *mockStore) MotorSpeed() uint8     { return m.speed }
func (m *mockStore) SetLetterMapping(mapping string) error {
	m.mapping = mapping
	return nil
}

func testOptions() Options {
	return Options{
		PollDelay:          time.Millisecond,
		SequenceResolution: 50 * time.Millisecond,
		SpinResolution:     time.Millisecond,
		MotorResolution:    time.Millisecond,
		MotorLimit:         sequencer.HardCap,
		MaxWordLength:      12,
		Mapping:            actuator.DefaultMapping(),
	}
}

func newTestController(t *testing.T) (*Controller, *mockDriver, *mockStore, *scheduler.ManualClock) {
	t.Helper()
	driver := &mockDriver{}
	store := &mockStore{mapping: "ABCDEFGHIJKLMNOPQRSTUVWX", speed: 200}
	clock := scheduler.NewManualClock()
	c := New(driver, store, clock, testOptions())
	c.Startup()
	return c, driver, store, clock
}

func TestStartup_OpensAndCenters(t *testing.T) {
	c, driver, _, _ := newTestController(t)

	assert.Equal(t, [2]uint8{128, 128}, driver.axes)
	assert.True(t, driver.relay, "relay is energised while the lids are open")
	st := c.Status()
	assert.True(t, st.Eyes.Centered)
	assert.False(t, st.Eyes.LidClosed)
	assert.Equal(t, NoTarget, st.PendingTarget)
}

func TestPoll_ConsumesPendingTargetOnce(t *testing.T) {
	c, driver, _, _ := newTestController(t)

	c.SetTarget(-90)
	assert.Equal(t, 270, c.Status().PendingTarget)

	c.Poll()
	assert.Equal(t, 270, c.Status().Eyes.Degrees)
	assert.Equal(t, NoTarget, c.Status().PendingTarget)

	before := driver.writes()
	c.Poll()
	assert.Equal(t, before, driver.writes(), "a consumed target is not applied again")
}

func TestMove_NormalizesAndSupersedesSpin(t *testing.T) {
	c, _, _, clock := newTestController(t)

	c.Spin(1)
	for i := 0; i < 20; i++ {
		c.Poll()
		clock.Advance(time.Millisecond)
	}
	require.Equal(t, "spinning", c.Status().Spin)

	c.Move(181 + 360)
	assert.Equal(t, 181, c.Status().Eyes.Degrees)

	c.Poll()
	clock.Advance(time.Millisecond)
	c.Poll()
	st := c.Status()
	assert.Equal(t, "idle", st.Spin, "spin loses the aim and gives up")
	assert.Equal(t, 181, st.Eyes.Degrees)
	assert.Equal(t, actuator.OwnerManual, st.Eyes.AimOwner)
}

func TestBlink_ThroughPoll(t *testing.T) {
	c, driver, _, clock := newTestController(t)

	c.Blink(1, 100*time.Millisecond, 100*time.Millisecond)
	assert.False(t, driver.relay, "lids closed")
	assert.Equal(t, "eyes-closed", c.Status().Blink)

	c.Poll()
	clock.Advance(100 * time.Millisecond)
	c.Poll()

	assert.Equal(t, "idle", c.Status().Blink)
	assert.True(t, driver.relay, "lids open again")
}

func TestOpenClose(t *testing.T) {
	c, driver, _, _ := newTestController(t)

	c.Close()
	assert.False(t, driver.relay)
	assert.True(t, c.Status().Eyes.LidClosed)

	c.Open()
	assert.True(t, driver.relay)
	assert.False(t, c.Status().Eyes.LidClosed)
}

func TestSpell_OpensAndCentersFirst(t *testing.T) {
	c, driver, _, _ := newTestController(t)

	c.Close()
	c.Move(45)
	c.Spell("G", 100*time.Millisecond, 100*time.Millisecond, 100*time.Millisecond)

	st := c.Status()
	assert.False(t, st.Eyes.LidClosed)
	assert.True(t, driver.relay)
	assert.Equal(t, "gesture", st.Spell)
	assert.Equal(t, 90, st.Eyes.Degrees, "G is the first letter pointing right")
	assert.Equal(t, actuator.Owner(sequencer.SpellUID), st.Eyes.AimOwner)
}

func TestReset_StopsEyeSequencersButNotCurtain(t *testing.T) {
	c, driver, _, _ := newTestController(t)

	c.Spell("ABC", time.Second, time.Second, time.Second)
	c.Blink(3, time.Second, time.Second)
	c.Curtain(sequencer.CurtainLower, 10*time.Second)

	c.Reset()

	st := c.Status()
	assert.Equal(t, "idle", st.Spell)
	assert.Equal(t, "idle", st.Blink)
	assert.Equal(t, "idle", st.Spin)
	assert.True(t, st.Eyes.Centered)
	assert.False(t, st.Eyes.LidClosed)
	assert.Equal(t, "lower", st.Curtain)
	assert.True(t, driver.pins[actuator.MotorPinLower])
}

func TestCurtain_UsesStoredSpeedAndTimesOut(t *testing.T) {
	c, driver, _, clock := newTestController(t)

	c.Curtain(sequencer.CurtainRaise, time.Minute)
	assert.Equal(t, uint8(200), driver.speed)
	assert.Equal(t, sequencer.HardCap, c.Status().CurtainArmedFor)

	c.Poll()
	clock.Advance(sequencer.HardCap - time.Millisecond)
	c.Poll()
	assert.Equal(t, "raise", c.Status().Curtain)

	clock.Advance(time.Millisecond)
	c.Poll()
	assert.Equal(t, "stop", c.Status().Curtain)
	assert.Equal(t, uint8(0), driver.speed)
	assert.False(t, driver.pins[actuator.MotorPinRaise])
}

func TestSetMapping_GoesToStore(t *testing.T) {
	c, _, store, _ := newTestController(t)

	c.SetMapping("XWVUTSRQPONMLKJIHGFEDCBA")
	assert.Equal(t, "XWVUTSRQPONMLKJIHGFEDCBA", store.mapping)
	assert.Equal(t, store.mapping, c.Status().LetterMapping)
}

func TestRun_DoAndShutdown(t *testing.T) {
	driver := &mockDriver{}
	store := &mockStore{mapping: "ABCDEFGHIJKLMNOPQRSTUVWX", speed: 255}
	c := New(driver, store, nil, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.NoError(t, c.Do(context.Background(), func() {
		c.Move(90)
		c.Curtain(sequencer.CurtainRaise, 0)
	}))
	st, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90, st.Eyes.Degrees)
	assert.Equal(t, "raise", st.Curtain)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	driver.mu.Lock()
	assert.Equal(t, uint8(0), driver.speed, "shutdown stops the motor")
	assert.False(t, driver.pins[actuator.MotorPinRaise])
	driver.mu.Unlock()

	assert.ErrorIs(t, c.Do(context.Background(), func() {}), ErrStopped)
}

func TestDo_HonoursContext(t *testing.T) {
	c := New(&mockDriver{}, &mockStore{}, nil, testOptions())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Do(ctx, func() {}), context.DeadlineExceeded)
}

func TestDo_WaitsForTakenCommandAfterCancel(t *testing.T) {
	c := New(&mockDriver{}, &mockStore{}, nil, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	short, stop := context.WithCancel(context.Background())
	ran := 0
	err := c.Do(short, func() {
		// the caller gives up while the command runs
		stop()
		time.Sleep(30 * time.Millisecond)
		ran = 1
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
	assert.Error(t, short.Err())
}
