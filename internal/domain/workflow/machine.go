package workflow

import "fmt"

// Machine tracks the state of a single workflow item and validates
// transitions, so an illegal settlement is structurally impossible rather
// than a matter of caller discipline.
type Machine struct {
	current     State
	transitions map[State]map[Trigger]State
}

// NewSettlementMachine builds the settlement lifecycle: a pending item can be
// approved or rejected, and both outcomes are terminal.
func NewSettlementMachine(initial State) (*Machine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, initial)
	}
	return &Machine{
		current: initial,
		transitions: map[State]map[Trigger]State{
			StatePending: {
				TriggerApprove: StateApproved,
				TriggerReject:  StateRejected,
			},
		},
	}, nil
}

// State returns the current state
func (m *Machine) State() State {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current state
func (m *Machine) CanFire(trigger Trigger) bool {
	_, ok := m.transitions[m.current][trigger]
	return ok
}

// Fire attempts to execute the trigger, transitioning to the new state if allowed
func (m *Machine) Fire(trigger Trigger) error {
	next, ok := m.transitions[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = next
	return nil
}

// PermittedTriggers returns all triggers that can be fired in the current state
func (m *Machine) PermittedTriggers() []Trigger {
	available := m.transitions[m.current]
	triggers := make([]Trigger, 0, len(available))
	for trigger := range available {
		triggers = append(triggers, trigger)
	}
	return triggers
}
