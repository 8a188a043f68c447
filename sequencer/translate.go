package sequencer

import (
	"fmt"

	"lautenbacher.net/eyedancer/actuator"
)

// MovesPerDirection is the number of distinct repeat counts a mapping
// encodes per compass direction.
const MovesPerDirection = 3

// MappingSize is the number of meaningful positions in a letter mapping.
const MappingSize = actuator.CompassDirections * MovesPerDirection

// Gesture is what one letter is spelled as: Moves out-and-back motions
// towards Direction.
type Gesture struct {
	Direction actuator.Direction
	Moves     int
}

func (g Gesture) String() string {
	return fmt.Sprintf("%s x%d", g.Direction, g.Moves)
}

// Translate looks letter up in mapping. The position p of its first
// occurrence encodes direction p/3 and move count p%3+1. Letters that are
// missing, or that only appear beyond the first 24 positions, have no
// gesture.
func Translate(letter rune, mapping string) (Gesture, bool) {
	pos := 0
	for _, r := range mapping {
		if pos >= MappingSize {
			break
		}
		if r == letter {
			return Gesture{
				Direction: actuator.Direction(pos / MovesPerDirection),
				Moves:     pos%MovesPerDirection + 1,
			}, true
		}
		pos++
	}
	return Gesture{}, false
}

// GestureTable returns the gesture of every letter in mapping, in mapping
// order. Duplicates keep their first position.
func GestureTable(mapping string) []string {
	var (
		res  []string
		seen = make(map[rune]bool)
		pos  = 0
	)
	for _, r := range mapping {
		if pos >= MappingSize {
			break
		}
		pos++
		if seen[r] {
			continue
		}
		seen[r] = true
		g, _ := Translate(r, mapping)
		res = append(res, fmt.Sprintf("%q: %s", r, g))
	}
	return res
}

// BoundWord cuts word to at most maxLen runes. Lookups are case
// sensitive, so the word is otherwise taken as is. A maxLen of zero or
// less leaves the length alone.
func BoundWord(word string, maxLen int) []rune {
	runes := []rune(word)
	if maxLen > 0 && len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return runes
}
