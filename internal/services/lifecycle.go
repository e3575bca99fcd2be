package services

import (
	"fmt"

	"github.com/jjudge-oj/catalog/types"
)

// LifecycleState is the position of a problem in the archive/delete lifecycle.
type LifecycleState int

const (
	StateVisible LifecycleState = iota
	StateArchived
	StateDeleted
)

func (s LifecycleState) String() string {
	switch s {
	case StateVisible:
		return "visible"
	case StateArchived:
		return "archived"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("LifecycleState(%d)", int(s))
	}
}

// LifecycleEvent is a request that moves a problem through its lifecycle.
type LifecycleEvent string

const (
	EventDelete  LifecycleEvent = "delete"
	EventRestore LifecycleEvent = "restore"
)

// Transition returns the state reached by applying event in state.
//
//	visible  --delete-->  archived
//	archived --delete-->  deleted
//	visible  --restore--> visible
//	archived --restore--> visible
//	deleted  --any-->     ErrNotFound
func Transition(state LifecycleState, event LifecycleEvent) (LifecycleState, error) {
	if state == StateDeleted {
		return StateDeleted, fmt.Errorf("%w: problem was deleted", ErrNotFound)
	}
	switch event {
	case EventDelete:
		if state == StateVisible {
			return StateArchived, nil
		}
		return StateDeleted, nil
	case EventRestore:
		return StateVisible, nil
	default:
		return state, validationError("unknown lifecycle event %q", event)
	}
}

func stateOf(problem types.Problem) LifecycleState {
	if problem.Archived {
		return StateArchived
	}
	return StateVisible
}
