package workflow

import (
	"errors"
	"fmt"
	"slices"
)

// Phase is where a run currently is.
type Phase string

const (
	PhaseIdle        Phase = ""
	PhaseProbing     Phase = "probing"
	PhaseReconciling Phase = "reconciling"
	PhaseRendering   Phase = "rendering"
	PhaseExecuting   Phase = "executing"
	PhaseVerifying   Phase = "verifying"
	PhaseDone        Phase = "done"
	PhaseAborted     Phase = "aborted"
)

// ErrBadTransition means the workflow tried to skip or revisit a phase.
var ErrBadTransition = errors.New("invalid phase transition")

// Backup and restore leave Reconciling without rendering; a dry run stops
// after Rendering.
var transitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseProbing},
	PhaseProbing:     {PhaseReconciling},
	PhaseReconciling: {PhaseRendering, PhaseExecuting, PhaseDone},
	PhaseRendering:   {PhaseExecuting, PhaseDone},
	PhaseExecuting:   {PhaseVerifying},
	PhaseVerifying:   {PhaseDone},
}

func (p Phase) String() string {
	if p == PhaseIdle {
		return "idle"
	}
	return string(p)
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool { return p == PhaseDone || p == PhaseAborted }

// CanEnter reports whether a run in p may move to next. Any non-terminal
// phase may abort.
func (p Phase) CanEnter(next Phase) bool {
	if next == PhaseAborted {
		return !p.Terminal()
	}
	return slices.Contains(transitions[p], next)
}

func (w *Workflow) enter(next Phase) error {
	if !w.phase.CanEnter(next) {
		return fmt.Errorf("%s -> %s: %w", w.phase, next, ErrBadTransition)
	}
	w.phase = next
	return nil
}
