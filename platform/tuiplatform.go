package platform

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"lautenbacher.net/eyedancer/actuator"
	"lautenbacher.net/eyedancer/logging"
)

const (
	eyeGridWidth  = 33
	eyeGridHeight = 11
)

// keyDirections maps the number keys, laid out like a numeric keypad, to
// the compass direction they point the eyes at.
var keyDirections = map[rune]actuator.Direction{
	'8': actuator.DirUp,
	'9': actuator.DirUpRight,
	'6': actuator.DirRight,
	'3': actuator.DirDownRight,
	'2': actuator.DirDown,
	'1': actuator.DirDownLeft,
	'4': actuator.DirLeft,
	'7': actuator.DirUpLeft,
}

// TUIPlatform simulates the rig in the terminal: it draws the eye
// position, the lid and the curtain motor, and shows the log.
type TUIPlatform struct {
	*AbstractPlatform
	tviewapp     *tview.Application
	intro        *tview.TextView
	eyeDisplay   *tview.TextView
	logView      *tview.TextView
	ossignalChan chan os.Signal
	setTarget    func(deg int)

	// relay polarity, the display shows the lid, not the pin
	relayOnWhenClosed bool

	logFlushOnce sync.Once
	stopOnce     sync.Once
	displayStop  chan struct{}
	displayWg    sync.WaitGroup
}

// NewTUIPlatform creates the simulation. setTarget receives the angle
// chosen with the number keys and may be nil. relayOnWhenClosed is the
// relay polarity of the rig being simulated.
func NewTUIPlatform(ossignalchan chan os.Signal, setTarget func(deg int), relayOnWhenClosed bool) *TUIPlatform {
	inst := &TUIPlatform{
		ossignalChan:      ossignalchan,
		setTarget:         setTarget,
		relayOnWhenClosed: relayOnWhenClosed,
		displayStop:  make(chan struct{}),
	}
	inst.AbstractPlatform = newAbstractPlatform(inst, DefaultHistorySize)
	return inst
}

// the simulation has no hardware, the display follows the snapshots
func (s *TUIPlatform) writeAxis(actuator.Axis, uint8)        {}
func (s *TUIPlatform) writeRelay(bool)                       {}
func (s *TUIPlatform) writeMotorPin(actuator.MotorPin, bool) {}
func (s *TUIPlatform) writeMotorSpeed(uint8)                 {}

func (s *TUIPlatform) Start() error {
	s.initSimulationTUI()
	s.displayWg.Add(1)
	go s.displayDriver()
	return nil
}

func (s *TUIPlatform) Stop() {
	s.stopOnce.Do(func() {
		s.safeState()
		close(s.displayStop)
		s.displayWg.Wait()
		logging.BufferOutput()
		if s.tviewapp != nil {
			s.tviewapp.Stop()
		}
	})
}

// displayDriver redraws the eye pane whenever a new snapshot arrives.
func (s *TUIPlatform) displayDriver() {
	defer s.displayWg.Done()
	for {
		select {
		case <-s.displayStop:
			slog.Info("Ending display go-routine...")
			return
		case <-s.changes.Channel():
			snap := s.changes.Value()
			s.tviewapp.QueueUpdateDraw(func() {
				s.eyeDisplay.SetText(renderSnapshot(snap, s.relayOnWhenClosed))
			})
		}
	}
}

func introText() string {
	line1 := "Hit [blue]1[-]...[blue]9[-] (like a keypad) to look into a direction"
	line2 := "Hit [#ff0000]q[-] to exit, [#ff0000]r[-] to reload, [#ff0000]Up/Down[-] to scroll logs"
	return fmt.Sprintf("%s\n%s", line1, line2)
}

func (s *TUIPlatform) initSimulationTUI() {
	s.tviewapp = tview.NewApplication()

	s.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.intro.SetText(introText())
	s.intro.SetBorder(true).SetTitle(" Eye Dancer Simulation ").SetTitleColor(tcell.ColorLightBlue)
	s.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	s.eyeDisplay = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.eyeDisplay.SetBorder(true)
	s.eyeDisplay.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))
	s.eyeDisplay.SetText(renderSnapshot(s.Snapshot(), s.relayOnWhenClosed))

	s.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			s.logView.ScrollToEnd()
			s.tviewapp.Draw()
		})
	s.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	s.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.intro, 4, 0, false).
		AddItem(s.eyeDisplay, eyeGridHeight+4, 0, false).
		AddItem(s.logView, 0, 1, true)

	// the log pane only exists after the first draw
	s.tviewapp.SetAfterDrawFunc(func(screen tcell.Screen) {
		s.logFlushOnce.Do(func() {
			logging.SetOutput(tview.ANSIWriter(s.logView))
			close(s.readyChan)
		})
	})

	s.tviewapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			s.ossignalChan <- os.Interrupt
			return nil
		case tcell.KeyRune:
			r := event.Rune()
			if dir, ok := keyDirections[r]; ok {
				deg, _ := dir.Degrees()
				slog.Debug("Setting target from keyboard", "direction", dir.String(), "degrees", deg)
				if s.setTarget != nil {
					s.setTarget(deg)
				}
				return nil
			}
			switch r {
			case 'q', 'Q':
				s.ossignalChan <- os.Interrupt
				return nil
			case 'r', 'R':
				s.ossignalChan <- syscall.SIGHUP
				return nil
			}
		case tcell.KeyUp:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row-1, col)
			return nil
		case tcell.KeyDown:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row+1, col)
			return nil
		}
		return event
	})

	go func() {
		if err := s.tviewapp.SetRoot(layout, true).Run(); err != nil {
			slog.Error("Error running TUI", "error", err)
			s.ossignalChan <- os.Interrupt
		}
	}()
}

// renderSnapshot draws the eye position into a grid (x to the right, y
// upwards, both scaled from the 0..255 wiper range), followed by the lid
// relay and the motor state. The eye is drawn shut when the relay level
// means closed lids under the given polarity.
func renderSnapshot(snap Snapshot, relayOnWhenClosed bool) string {
	col := int(snap.X) * (eyeGridWidth - 1) / 255
	row := (eyeGridHeight - 1) - int(snap.Y)*(eyeGridHeight-1)/255
	eye := "[#00ff00]●[-]"
	if snap.Relay == relayOnWhenClosed {
		eye = "[#808080]─[-]"
	}

	var buf strings.Builder
	for r := 0; r < eyeGridHeight; r++ {
		for c := 0; c < eyeGridWidth; c++ {
			switch {
			case r == row && c == col:
				buf.WriteString(eye)
			case r == eyeGridHeight/2 && c == eyeGridWidth/2:
				buf.WriteString("+")
			default:
				buf.WriteString("·")
			}
		}
		buf.WriteString("\n")
	}

	motor := "stopped"
	switch {
	case snap.MotorRaise && snap.MotorSpeed > 0:
		motor = fmt.Sprintf("[#ffff00]raising[-] at %d", snap.MotorSpeed)
	case snap.MotorLower && snap.MotorSpeed > 0:
		motor = fmt.Sprintf("[#ffff00]lowering[-] at %d", snap.MotorSpeed)
	}
	fmt.Fprintf(&buf, "x=%-3d y=%-3d relay=%-5t curtain %s", snap.X, snap.Y, snap.Relay, motor)
	return buf.String()
}
