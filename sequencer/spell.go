package sequencer

import (
	"log/slog"
	"time"
)

// SpellUID is the uid and actuator owner token of the spelling sequencer.
const SpellUID = "spell"

// DefaultMaxWordLength bounds the words the speller accepts.
const DefaultMaxWordLength = 12

// MappingSource hands out the current letter-gesture mapping. It is asked
// for every letter, so a mapping changed mid-word takes effect with the
// next letter.
type MappingSource interface {
	LetterMapping() string
}

type SpellPhase int

const (
	SpellIdle SpellPhase = iota
	SpellGesture
	SpellInterMove
	SpellInterLetter
)

func (p SpellPhase) String() string {
	switch p {
	case SpellIdle:
		return "idle"
	case SpellGesture:
		return "gesture"
	case SpellInterMove:
		return "inter-move"
	case SpellInterLetter:
		return "inter-letter"
	default:
		return "unknown"
	}
}

// Spell walks a word letter by letter. Each letter is translated into a
// gesture, and every move of the gesture aims the eyes at its direction
// and then returns them to center.
type Spell struct {
	*AbstractSequencer
	aim     Aim
	source  MappingSource
	maxLen  int
	phase   SpellPhase
	word    []rune
	cursor  int
	gesture Gesture
	moves   int

	gestureFor     time.Duration
	interMoveFor   time.Duration
	interLetterFor time.Duration
}

func NewSpell(aim Aim, source MappingSource, resolution time.Duration, maxLen int) *Spell {
	if maxLen <= 0 {
		maxLen = DefaultMaxWordLength
	}
	inst := &Spell{aim: aim, source: source, maxLen: maxLen}
	inst.AbstractSequencer = NewAbstractSequencer(SpellUID, resolution, inst.fire)
	return inst
}

// Start spells word, replacing any word in progress. Letters without a
// gesture in the mapping are skipped; a word without any translatable
// letter leaves the speller idle.
func (s *Spell) Start(word string, gestureFor, interMoveFor, interLetterFor time.Duration) {
	s.word = BoundWord(word, s.maxLen)
	s.gestureFor = s.task.Quantize(gestureFor)
	s.interMoveFor = s.task.Quantize(interMoveFor)
	s.interLetterFor = s.task.Quantize(interLetterFor)
	s.task.Cancel()
	slog.Info("Spelling", "word", string(s.word), "gesture", s.gestureFor,
		"intermove", s.interMoveFor, "interletter", s.interLetterFor)
	if s.phase != SpellIdle {
		// the word in progress ends here, observers see idle before the
		// new word starts
		slog.Debug("Spelling restarted", "from", s.phase.String())
		s.setPhase(SpellIdle)
	}

	idx, g, ok := s.nextLetter(-1)
	if !ok {
		s.aim.ReleaseAim(s.owner())
		s.finish()
		return
	}
	s.aim.ClaimAim(s.owner())
	s.startLetter(idx, g)
}

func (s *Spell) fire() {
	switch s.phase {
	case SpellGesture:
		if !s.check(s.aim.Center(s.owner())) {
			return
		}
		s.moves--
		if s.moves > 0 {
			s.task.Arm(s.interMoveFor)
			s.setPhase(SpellInterMove)
			return
		}
		if _, _, ok := s.nextLetter(s.cursor); ok {
			s.task.Arm(s.interLetterFor)
			s.setPhase(SpellInterLetter)
			return
		}
		s.aim.ReleaseAim(s.owner())
		s.finish()
	case SpellInterMove:
		if !s.check(s.aim.AimDirection(s.owner(), s.gesture.Direction)) {
			return
		}
		s.task.Arm(s.gestureFor)
		s.setPhase(SpellGesture)
	case SpellInterLetter:
		idx, g, ok := s.nextLetter(s.cursor)
		if !ok {
			// the mapping lost the remaining letters since the last gesture
			s.aim.ReleaseAim(s.owner())
			s.finish()
			return
		}
		s.startLetter(idx, g)
	}
}

// Stop abandons the word in progress.
func (s *Spell) Stop() {
	s.task.Cancel()
	s.aim.ReleaseAim(s.owner())
	s.finish()
}

func (s *Spell) Phase() SpellPhase {
	return s.phase
}

// Word is the (bounded) word being spelled.
func (s *Spell) Word() string {
	return string(s.word)
}

// Cursor is the index of the letter being spelled.
func (s *Spell) Cursor() int {
	return s.cursor
}

func (s *Spell) GetIsRunning() bool {
	return s.phase != SpellIdle
}

// nextLetter finds the first translatable letter after index from.
func (s *Spell) nextLetter(from int) (int, Gesture, bool) {
	mapping := s.source.LetterMapping()
	for i := from + 1; i < len(s.word); i++ {
		if g, ok := Translate(s.word[i], mapping); ok {
			return i, g, true
		}
		slog.Debug("Skipping letter without gesture", "letter", string(s.word[i]))
	}
	return 0, Gesture{}, false
}

func (s *Spell) startLetter(idx int, g Gesture) {
	s.cursor = idx
	s.gesture = g
	s.moves = g.Moves
	slog.Info("Spelling letter", "letter", string(s.word[idx]), "moves", g.Moves, "direction", g.Direction.String())
	if !s.check(s.aim.AimDirection(s.owner(), g.Direction)) {
		return
	}
	s.task.Arm(s.gestureFor)
	s.setPhase(SpellGesture)
}

// check turns a rejected aim write into the end of the word.
func (s *Spell) check(err error) bool {
	if err != nil {
		slog.Debug("Spelling superseded", "error", err)
		s.task.Cancel()
		s.finish()
		return false
	}
	return true
}

func (s *Spell) finish() {
	s.cursor = 0
	s.moves = 0
	s.setPhase(SpellIdle)
}

func (s *Spell) setPhase(p SpellPhase) {
	from := s.phase
	s.phase = p
	s.transition(from, p)
}
