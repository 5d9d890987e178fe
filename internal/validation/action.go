package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is returned for an action tag outside create/schedule/cancel.
var ErrUnknownAction = errors.New("validation: unknown appointment action")

// Action is the appointment operation a form is submitted for. Each action
// has its own schema.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionSchedule
	ActionCancel
)

// ParseAction maps a request tag onto an Action.
func ParseAction(tag string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "create":
		return ActionCreate, nil
	case "schedule":
		return ActionSchedule, nil
	case "cancel":
		return ActionCancel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, tag)
	}
}

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionSchedule:
		return "schedule"
	case ActionCancel:
		return "cancel"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}
