package raffle

import "fmt"

// Phase is the lifecycle state of an event. Phases only move forward.
type Phase string

const (
	PhaseDraft  Phase = "draft"
	PhaseOpen   Phase = "open"
	PhaseClosed Phase = "closed"
	PhaseDrawn  Phase = "drawn"
)

// Operation names a mutating call that is gated by phase.
type Operation string

const (
	OpSubmit      Operation = "submit"
	OpEditSchema  Operation = "edit_schema"
	OpEditPrizes  Operation = "edit_prizes"
	OpSetCapacity Operation = "set_capacity"
	OpSetWindow   Operation = "set_window"
	OpOpen        Operation = "open"
	OpClose       Operation = "close"
	OpDraw        Operation = "draw"
)

var allowedOps = map[Phase]map[Operation]bool{
	PhaseDraft: {
		OpEditSchema:  true,
		OpEditPrizes:  true,
		OpSetCapacity: true,
		OpSetWindow:   true,
		OpOpen:        true,
	},
	PhaseOpen: {
		OpSubmit:      true,
		OpEditPrizes:  true,
		OpSetCapacity: true,
		OpClose:       true,
	},
	PhaseClosed: {
		OpDraw: true,
	},
	PhaseDrawn: {},
}

var successor = map[Phase]Phase{
	PhaseDraft:  PhaseOpen,
	PhaseOpen:   PhaseClosed,
	PhaseClosed: PhaseDrawn,
}

func (p Phase) Valid() bool {
	_, ok := allowedOps[p]
	return ok
}

func (p Phase) Allows(op Operation) bool {
	return allowedOps[p][op]
}

// Next returns the only phase p may move to.
func (p Phase) Next() (Phase, bool) {
	next, ok := successor[p]
	return next, ok
}

// Guard rejects op when the event is in phase p and p does not allow it.
func Guard(p Phase, op Operation) error {
	if p.Allows(op) {
		return nil
	}
	return &InvalidPhaseError{Op: op, Phase: p}
}

// Transition checks that to is the immediate successor of from.
func Transition(from, to Phase) error {
	next, ok := from.Next()
	if !ok || next != to {
		return fmt.Errorf("illegal phase transition %s -> %s", from, to)
	}
	return nil
}
