package trap

import "github.com/soypat/pi3kernel/hal"

// Kind is the exception kind recorded in the vector table entry that
// was taken.
type Kind uint16

const (
	KindSynchronous Kind = iota
	KindIrq
	KindFiq
	KindSError
)

// Source is the exception-vector source (which of the four AArch64
// vector-table groups was taken).
type Source uint16

const (
	SourceCurrentSpEl0 Source = iota
	SourceCurrentSpElx
	SourceLowerAArch64
	SourceLowerAArch32
)

// Info identifies the vector-table entry that routed into the
// dispatcher, exactly as the assembly trampoline would populate it
// before calling Dispatch.
type Info struct {
	Source Source
	Kind   Kind
}

// Dependencies are the collaborators the dispatcher calls out to.
// HandleSyscall and HandleIRQ are supplied by the scheduler/syscall
// layer; DropToShell and Controller are supplied by kernel wiring.
type Dependencies struct {
	HandleSyscall func(num uint16, tf *TrapFrame)
	HandleIRQ     func(i hal.Interrupt, tf *TrapFrame)
	DropToShell   func()
	Controller    hal.InterruptController
}

// Dispatch is called by the (out of scope) assembly exception vector
// with info identifying what kind of exception was taken, esr the raw
// Exception Syndrome Register value, and tf pointing at the trap frame
// the vector just saved.
//
// Synchronous SVC exceptions are routed to deps.HandleSyscall. Other
// synchronous exceptions advance tf.ELR past the faulting instruction
// and drop into the kernel shell — the only way, short of a crash, for
// an unhandled fault at EL0 to remain reachable in the educational
// build this kernel targets.
//
// IRQ exceptions are resolved by polling the interrupt controller for
// each known source, in the fixed order hal.Interrupts enumerates
// them, and dispatching every pending one to deps.HandleIRQ. On exit
// the I-bit of tf's SPSR is cleared, so IRQs are unmasked in whichever
// process tf is restored into.
func Dispatch(info Info, esr uint32, tf *TrapFrame, deps Dependencies) {
	switch info.Kind {
	case KindSynchronous:
		syndrome := DecodeSyndrome(esr)
		if syndrome.Kind == SyndromeSvc {
			deps.HandleSyscall(syndrome.Imm16, tf)
			return
		}
		tf.ELR += 4
		if deps.DropToShell != nil {
			deps.DropToShell()
		}

	case KindIrq:
		for _, i := range hal.Interrupts {
			if deps.Controller.IsPending(i) {
				deps.HandleIRQ(i, tf)
			}
		}
		tf.SPSRClearIRQMask()
	}
}
