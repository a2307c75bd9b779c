package web

import "fmt"

// SessionState is the explicit state of a user session. All state changes
// go through Transition, so the session cannot hold contradictory flags.
type SessionState int

const (
	StateLoggedOut SessionState = iota
	StateAuthenticating
	StateReady
	StateRecommendationLoading
	StateRecommendationReady
)

func (s SessionState) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateRecommendationLoading:
		return "recommendation_loading"
	case StateRecommendationReady:
		return "recommendation_ready"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// transitions lists the allowed state changes. Logout is reachable from
// every state and is handled separately in Transition.
var transitions = map[SessionState][]SessionState{
	StateLoggedOut:             {StateAuthenticating},
	StateAuthenticating:        {StateReady},
	StateReady:                 {StateRecommendationLoading},
	StateRecommendationLoading: {StateRecommendationReady, StateReady},
	StateRecommendationReady:   {StateRecommendationLoading, StateReady},
}

// Transition returns the new state, or an error if the change is not
// allowed from the current state.
func (s SessionState) Transition(to SessionState) (SessionState, error) {
	if to == StateLoggedOut {
		return StateLoggedOut, nil
	}
	for _, allowed := range transitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("invalid session transition %s -> %s", s, to)
}
