package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// ErrTransitionNotAllowed is returned when a guard or the state machine refuses an event
var ErrTransitionNotAllowed = errors.New("transition not allowed")

// fire runs an event. Events that keep the current state (partial to partial) are not errors.
func fire(ctx context.Context, machine *fsm.FSM, event string) error {
	err := machine.Event(ctx, event)
	if err == nil {
		return nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) && noTransition.Err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s from %s: %v", ErrTransitionNotAllowed, event, machine.Current(), err)
}

func refuse(entity, event, status string) error {
	return fmt.Errorf("%w: %s cannot %s in current state: %s", ErrTransitionNotAllowed, entity, event, status)
}
