package proc

import (
	"errors"

	"github.com/soypat/pi3kernel/internal/spinlock"
	"github.com/soypat/pi3kernel/internal/trap"
)

// ErrNoRunnableProcess is returned by Switch when no process has been
// admitted, or when every admitted process is waiting on a predicate
// that does not yet hold.
var ErrNoRunnableProcess = errors.New("proc: no runnable process")

type schedulerState struct {
	processes []*Process
	current   int // index into processes of the running one, -1 if none
	nextID    Id
}

// Scheduler is a round-robin process scheduler. Its internal state is
// guarded by a spin mutex so the timer IRQ handler and syscall
// handlers — both of which run with interrupts disabled on this
// single-core target — can safely call into it without a full kernel
// lock.
type Scheduler struct {
	state *spinlock.Mutex[schedulerState]
}

// NewScheduler returns an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		state: spinlock.New(schedulerState{current: -1}),
	}
}

// Admit adds a new process, ready to run, built from entry and stack.
func (s *Scheduler) Admit(entry uintptr, stack Stack) *Process {
	guard := s.state.Lock()
	defer guard.Unlock()
	st := guard.Get()
	st.nextID++
	p := NewProcess(st.nextID, entry, stack)
	st.processes = append(st.processes, p)
	return p
}

// Switch snapshots tf into the currently running process's trap frame
// and transitions it to newState, then selects the next runnable
// process in round-robin order starting just after it, marks that
// process Running, and returns it. Passing State{Kind: StateReady} as
// newState is a plain preemption; passing Sleep(deadline, now) yields
// the CPU and puts the outgoing process to sleep in the same call —
// either way tf holds the outgoing process's live register state at
// the moment of the switch, which would otherwise be lost the instant
// the caller's context_restore overwrites it with the incoming
// process's frame. It returns ErrNoRunnableProcess if nothing is
// ready; by then the outgoing process has already been saved with
// newState and no process is current, so a further call only polls
// the admitted processes again.
func (s *Scheduler) Switch(newState State, tf *trap.TrapFrame) (*Process, error) {
	guard := s.state.Lock()
	defer guard.Unlock()
	st := guard.Get()

	n := len(st.processes)
	if n == 0 {
		return nil, ErrNoRunnableProcess
	}

	if st.current >= 0 {
		current := st.processes[st.current]
		*current.TrapFrame = *tf
		current.State = newState
	}

	start := st.current + 1
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		p := st.processes[idx]
		if p.IsReady() {
			p.State = State{Kind: StateRunning}
			st.current = idx
			return p, nil
		}
	}
	st.current = -1
	return nil, ErrNoRunnableProcess
}

// Current returns the trap frame of the currently running process, if any.
func (s *Scheduler) Current() (*trap.TrapFrame, bool) {
	guard := s.state.Lock()
	defer guard.Unlock()
	st := guard.Get()
	if st.current < 0 {
		return nil, false
	}
	return st.processes[st.current].TrapFrame, true
}

// Len returns the number of admitted processes, including any that
// have since finished waiting or running.
func (s *Scheduler) Len() int {
	guard := s.state.Lock()
	defer guard.Unlock()
	return len(guard.Get().processes)
}
