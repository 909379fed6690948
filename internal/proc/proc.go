// Package proc implements a preemptive round-robin process scheduler:
// processes carry a saved trap frame and a stack, and move between
// Ready, Running and Waiting(predicate) states as the timer IRQ and
// blocking syscalls drive them.
package proc

import (
	"github.com/soypat/pi3kernel/internal/trap"
)

// Id identifies a process for the lifetime of the scheduler.
type Id uint64

// Predicate reports whether a waiting process may resume running. It
// is called with the process's own state on every scheduling pass
// until it returns true.
type Predicate func(p *Process) bool

// StateKind tags which variant of State is populated.
type StateKind uint8

const (
	StateReady StateKind = iota
	StateRunning
	StateWaiting
)

// State is a tagged variant: Ready and Running carry no payload,
// Waiting carries the predicate that must hold before the process is
// rescheduled.
type State struct {
	Kind StateKind
	Wait Predicate // valid only when Kind == StateWaiting
}

// Stack is the memory backing a process's execution stack. Allocation
// and layout are the caller's responsibility (see internal/allocator);
// proc only needs the top-of-stack address to seed the trap frame.
type Stack struct {
	Top uintptr
	Len uintptr
}

// Process is one schedulable unit: its saved register state, its
// stack, and its current scheduling state.
type Process struct {
	Id        Id
	TrapFrame *trap.TrapFrame
	Stack     Stack
	State     State
}

// NewProcess returns a Process ready to run at entry, with SP seeded
// to the top of stack, TPIDR holding id, and interrupts unmasked.
func NewProcess(id Id, entry uintptr, stack Stack) *Process {
	tf := &trap.TrapFrame{
		ELR:   uint64(entry),
		SP:    uint64(stack.Top),
		TPIDR: uint64(id),
	}
	tf.SPSRClearIRQMask()
	return &Process{
		Id:        id,
		TrapFrame: tf,
		Stack:     stack,
		State:     State{Kind: StateReady},
	}
}

// IsReady reports whether the process can be scheduled to run right now.
func (p *Process) IsReady() bool {
	switch p.State.Kind {
	case StateReady:
		return true
	case StateWaiting:
		return p.State.Wait(p)
	default:
		return false
	}
}

// Sleep puts the calling process in StateWaiting until the deadline
// (measured in the same units as nowFn's return value) has passed. It
// mirrors the `sleep` syscall's predicate-based wakeup: the scheduler
// re-evaluates the returned predicate every pass rather than the
// kernel maintaining a separate timer-wheel data structure.
//
// On waking, the predicate writes the approximate elapsed time (in
// milliseconds, given a microsecond nowFn) from the moment Sleep was
// called into the process's own TrapFrame.X0 and clears X7 — the
// register pair the sleep syscall's ABI returns its result through.
func Sleep(deadline uint64, nowFn func() uint64) State {
	start := nowFn()
	return State{
		Kind: StateWaiting,
		Wait: func(p *Process) bool {
			now := nowFn()
			if now < deadline {
				return false
			}
			p.TrapFrame.X0 = (now - start) / 1000
			p.TrapFrame.X1to29[6] = 0 // x7
			return true
		},
	}
}
