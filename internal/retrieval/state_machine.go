package retrieval

type State string

const (
	StateStart State = "START"
	StateREST  State = "REST_ATTEMPT"
	StateWS    State = "WS_ATTEMPT"
	StateDone  State = "DONE"
)

type Event string

const (
	EventBegin          Event = "BEGIN"
	EventRESTProductive Event = "REST_PRODUCTIVE"
	EventRESTEmpty      Event = "REST_EMPTY"
	EventWSFinished     Event = "WS_FINISHED"
)

// StateMachine tracks one exchange's progress through a retrieval cycle.
type StateMachine struct {
	State   State
	History []State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{State: StateStart, History: []State{StateStart}}
}

func (s *StateMachine) Apply(event Event) State {
	next := nextState(s.State, event)
	if next != s.State {
		s.History = append(s.History, next)
	}
	s.State = next
	return s.State
}

func nextState(current State, event Event) State {
	switch current {
	case StateStart:
		if event == EventBegin {
			return StateREST
		}
	case StateREST:
		if event == EventRESTProductive {
			return StateDone
		}
		if event == EventRESTEmpty {
			return StateWS
		}
	case StateWS:
		if event == EventWSFinished {
			return StateDone
		}
	}
	return current
}
