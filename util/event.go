package util

import "time"

// Event is one recorded actuator write, as kept in the platform history.
type Event struct {
	Source    string    `json:"source"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(source string, value int, ts time.Time) Event {
	return Event{
		Source:    source,
		Value:     value,
		Timestamp: ts,
	}
}
