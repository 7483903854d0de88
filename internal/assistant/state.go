package assistant

import (
	"strings"
	"unicode"
)

type State int

const (
	Idle State = iota
	Capturing
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

type Event int

const (
	EventNone Event = iota
	EventTrigger
	EventStop
)

// Normalize lower-cases t and trims surrounding whitespace. Leading and
// trailing punctuation is trimmed too, so "Hey." from the recognizer
// matches the phrase "hey"; punctuation inside t is left as is.
func Normalize(t string) string {
	return strings.ToLower(strings.TrimFunc(t, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}))
}

// Phrases are the spoken commands recognized while idle.
type Phrases struct {
	Trigger string
	Stop    string
}

func (p Phrases) Classify(transcription string) Event {
	switch Normalize(transcription) {
	case "":
		return EventNone
	case Normalize(p.Trigger):
		return EventTrigger
	case Normalize(p.Stop):
		return EventStop
	default:
		return EventNone
	}
}

// next is the Idle state transition table.
func next(e Event) State {
	switch e {
	case EventTrigger:
		return Capturing
	case EventStop:
		return Terminated
	default:
		return Idle
	}
}
