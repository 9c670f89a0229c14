package consumer

import "fmt"

type State int32

const (
	StateStarting State = iota
	StateSubscribed
	StateReceiving
	StateProcessing
	StateStopping
	StateStopped
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateSubscribed:
		return "subscribed"
	case StateReceiving:
		return "receiving"
	case StateProcessing:
		return "processing"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateStarting; candidate <= StateErrored; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}

	return fmt.Errorf("unknown consumer state %q", text)
}
