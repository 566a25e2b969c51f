// Package fsm defines the voice session lifecycle transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateAnalyzing    State = "analyzing"
	StateSpeaking     State = "speaking"
	StateFailed       State = "failed"
)

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventCancel      Event = "cancel"
	EventTranscribed Event = "transcribed"
	EventAnalyzed    Event = "analyzed"
	EventSpeak       Event = "speak"
	EventSpoken      Event = "spoken"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

// Busy reports whether a state belongs to an in-flight utterance.
func (s State) Busy() bool {
	return s != StateIdle && s != StateFailed
}

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		if current == StateIdle {
			return current, invalidTransition(current, event)
		}
		return StateFailed, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateTranscribing, nil
		case EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranscribing:
		switch event {
		case EventTranscribed:
			return StateAnalyzing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAnalyzing:
		switch event {
		case EventAnalyzed:
			return StateIdle, nil
		case EventSpeak:
			return StateSpeaking, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSpeaking:
		switch event {
		case EventSpoken, EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFailed:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
