// Package controller owns one instance of every behaviour of the eye
// dancer together with the scheduler that advances them. All of it lives
// on a single goroutine: Run polls the scheduler and executes the commands
// handed in through Do between two passes.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lautenbacher.net/eyedancer/actuator"
	"lautenbacher.net/eyedancer/config"
	"lautenbacher.net/eyedancer/scheduler"
	"lautenbacher.net/eyedancer/sequencer"
	"lautenbacher.net/eyedancer/util"
)

// NoTarget is the sentinel of the pending target slot.
const NoTarget = -1

// ErrStopped is returned by Do once the loop has ended.
var ErrStopped = errors.New("controller: loop stopped")

// ParamStore is the non-volatile parameter storage the controller reads
// the letter mapping and the motor speed from.
type ParamStore interface {
	sequencer.MappingSource
	sequencer.SpeedSource
	SetLetterMapping(mapping string) error
}

// Options are the timing and geometry parameters of a controller.
type Options struct {
	PollDelay          time.Duration
	SequenceResolution time.Duration
	SpinResolution     time.Duration
	MotorResolution    time.Duration
	MotorLimit         time.Duration
	MaxWordLength      int
	Mapping            actuator.Mapping
}

func OptionsFromConfig(conf config.Config) Options {
	return Options{
		PollDelay:          conf.Timing.PollDelay,
		SequenceResolution: conf.Timing.SequenceResolution,
		SpinResolution:     conf.Timing.SpinResolution,
		MotorResolution:    conf.Timing.MotorResolution,
		MotorLimit:         conf.Timing.MotorHardCap,
		MaxWordLength:      conf.Spelling.MaxWordLength,
		Mapping:            conf.Actuator.Mapping(),
	}
}

// Status is what the controller reports about itself.
type Status struct {
	Eyes            actuator.EyesState `json:"eyes"`
	Blink           string             `json:"blink"`
	BlinksLeft      uint               `json:"blinksLeft"`
	Spin            string             `json:"spin"`
	SpinAngle       int                `json:"spinAngle"`
	Spell           string             `json:"spell"`
	Word            string             `json:"word"`
	Cursor          int                `json:"cursor"`
	Curtain         string             `json:"curtain"`
	CurtainArmedFor time.Duration      `json:"curtainArmedFor"`
	CurtainLimit    time.Duration      `json:"curtainLimit"`
	PendingTarget   int                `json:"pendingTarget"`
	LetterMapping   string             `json:"letterMapping"`
}

type command struct {
	fn   func()
	done chan struct{}
}

type Controller struct {
	store     ParamStore
	sched     *scheduler.Scheduler
	eyes      *actuator.Eyes
	blink     *sequencer.Blink
	spin      *sequencer.Spin
	spell     *sequencer.Spell
	curtain   *sequencer.Curtain
	target    *util.Pending[int]
	pollDelay time.Duration
	commands  chan command
	stopped   chan struct{}
}

// New wires the sequencers to driver and registers their tasks. clock may
// be nil for the wall clock.
func New(driver actuator.Driver, store ParamStore, clock scheduler.Clock, opts Options) *Controller {
	if opts.PollDelay <= 0 {
		opts.PollDelay = time.Millisecond
	}
	eyes := actuator.NewEyes(driver, opts.Mapping)
	c := &Controller{
		store:     store,
		sched:     scheduler.New(clock),
		eyes:      eyes,
		blink:     sequencer.NewBlink(eyes, opts.SequenceResolution),
		spin:      sequencer.NewSpin(eyes, opts.SpinResolution),
		spell:     sequencer.NewSpell(eyes, store, opts.SequenceResolution, opts.MaxWordLength),
		curtain:   sequencer.NewCurtain(driver, store, opts.MotorResolution, opts.MotorLimit),
		target:    util.NewPending(NoTarget),
		pollDelay: opts.PollDelay,
		commands:  make(chan command),
		stopped:   make(chan struct{}),
	}
	// curtain first
	for _, seq := range c.sequencers() {
		c.sched.Register(seq.Task())
	}
	c.blink.SetObserver(logIdle)
	c.spin.SetObserver(logIdle)
	c.spell.SetObserver(logIdle)
	return c
}

func (c *Controller) sequencers() []sequencer.Sequencer {
	return []sequencer.Sequencer{c.curtain, c.blink, c.spin, c.spell}
}

func logIdle(uid string, from, to fmt.Stringer) {
	if to.String() == "idle" {
		slog.Info("Sequencer finished", "sequencer", uid, "from", from.String())
	}
}

// Startup brings the eyes into their rest position: open and centered.
// Any stale pending target is dropped.
func (c *Controller) Startup() {
	c.target.Clear()
	c.openAndCenter()
	slog.Info("Eyes reset", "mapping", c.store.LetterMapping(), "motorSpeed", c.store.MotorSpeed())
}

// Poll runs one pass: a pending target angle is applied first, then every
// due task fires.
func (c *Controller) Poll() int {
	if deg, ok := c.target.Take(); ok {
		c.eyes.ClaimAim(actuator.OwnerManual)
		c.check(c.eyes.Aim(actuator.OwnerManual, deg))
	}
	return c.sched.Poll()
}

// Run is the controller loop. It returns when ctx is done, after the motor
// and all sequencers have been stopped.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.stopped)
	ticker := time.NewTicker(c.pollDelay)
	defer ticker.Stop()

	c.Startup()
	for {
		select {
		case <-ctx.Done():
			c.Shutdown()
			return
		case cmd := <-c.commands:
			cmd.fn()
			close(cmd.done)
		case <-ticker.C:
			c.Poll()
		}
	}
}

// Do executes fn on the controller loop, between two poll passes, and
// waits for it to complete. ctx only bounds the wait for the loop to take
// fn; once taken, Do returns after fn has run, so whatever fn wrote may be
// read by the caller.
func (c *Controller) Do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case c.commands <- cmd:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cmd.done
	return nil
}

// Shutdown stops the motor first, then every eye sequencer.
func (c *Controller) Shutdown() {
	for _, seq := range c.sequencers() {
		seq.Stop()
	}
	slog.Info("Controller stopped")
}

// SetTarget leaves an aim angle in the pending slot. It is safe to call
// from any goroutine; the next pass picks it up.
func (c *Controller) SetTarget(deg int) {
	c.target.Set(actuator.NormalizeDegrees(deg))
}

// The methods below must only be called on the loop, i.e. from Run's own
// goroutine or through Do.

// Move aims the eyes at deg. Any sequencer holding the aim is superseded.
func (c *Controller) Move(deg int) {
	c.eyes.ClaimAim(actuator.OwnerManual)
	c.check(c.eyes.Aim(actuator.OwnerManual, deg))
}

func (c *Controller) Open() {
	c.setLid(false)
}

func (c *Controller) Close() {
	c.setLid(true)
}

func (c *Controller) Blink(count uint, closedFor, openFor time.Duration) {
	c.blink.Start(count, closedFor, openFor)
}

func (c *Controller) Spin(revolutions uint) {
	c.spin.Start(revolutions)
}

// Spell opens and centers the eyes and starts spelling word.
func (c *Controller) Spell(word string, gestureFor, interMoveFor, interLetterFor time.Duration) {
	c.openAndCenter()
	c.spell.Start(word, gestureFor, interMoveFor, interLetterFor)
}

// Reset stops the eye sequencers and returns the eyes to rest. The
// curtain keeps running.
func (c *Controller) Reset() {
	c.blink.Stop()
	c.spin.Stop()
	c.spell.Stop()
	c.openAndCenter()
}

// SetMapping replaces the letter mapping in the store. A word being
// spelled picks it up with its next letter.
func (c *Controller) SetMapping(mapping string) {
	if len([]rune(mapping)) < sequencer.MappingSize {
		slog.Warn("Letter mapping shorter than the gesture table", "mapping", mapping, "size", sequencer.MappingSize)
	}
	if err := c.store.SetLetterMapping(mapping); err != nil {
		slog.Error("Failed to store letter mapping", "error", err)
		return
	}
	slog.Info("Letter mapping changed", "mapping", mapping)
}

// Curtain runs the curtain motor in dir for at most timeout (zero means
// the configured cap). CurtainStop stops it.
func (c *Controller) Curtain(dir sequencer.CurtainDirection, timeout time.Duration) {
	c.curtain.Run(dir, timeout)
}

func (c *Controller) Status() Status {
	return Status{
		Eyes:            c.eyes.State(),
		Blink:           c.blink.Phase().String(),
		BlinksLeft:      c.blink.Remaining(),
		Spin:            c.spin.Phase().String(),
		SpinAngle:       c.spin.Angle(),
		Spell:           c.spell.Phase().String(),
		Word:            c.spell.Word(),
		Cursor:          c.spell.Cursor(),
		Curtain:         c.curtain.Direction().String(),
		CurtainArmedFor: c.curtain.ArmedFor(),
		CurtainLimit:    c.curtain.Limit(),
		PendingTarget:   c.target.Peek(),
		LetterMapping:   c.store.LetterMapping(),
	}
}

// Snapshot fetches the status through the loop.
func (c *Controller) Snapshot(ctx context.Context) (Status, error) {
	var st Status
	err := c.Do(ctx, func() { st = c.Status() })
	return st, err
}

func (c *Controller) openAndCenter() {
	c.eyes.ClaimAim(actuator.OwnerManual)
	c.check(c.eyes.Center(actuator.OwnerManual))
	c.setLid(false)
}

func (c *Controller) setLid(closed bool) {
	c.eyes.ClaimLid(actuator.OwnerManual)
	c.check(c.eyes.SetLid(actuator.OwnerManual, closed))
}

// check logs a rejected manual write.
func (c *Controller) check(err error) {
	if err != nil {
		slog.Error("Manual actuator write failed", "error", err)
	}
}
