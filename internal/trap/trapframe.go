// Package trap implements the AArch64 trap frame layout and the
// exception dispatcher that routes synchronous/IRQ/FIQ/SError
// exceptions to syscall and interrupt handlers.
package trap

// TrapFrame is the architecturally-defined register snapshot the
// kernel's assembly entry trampoline writes on exception entry and
// reads back on eret. Field order is part of the ABI contract with
// that trampoline (see §9 of the design notes) and must not change:
// reordering, inserting, or removing a field here requires a matching
// change to the (out of scope) assembly context_save/context_restore
// routines.
//
// Q registers are 128 bits; Go has no native 128-bit integer, so each
// is represented as [2]uint64 (low, high), matching C's two-register
// ABI treatment of __uint128_t on AArch64.
type TrapFrame struct {
	ELR  uint64
	SPSR uint64
	SP   uint64
	TPIDR uint64

	Q [32][2]uint64

	X1to29 [29]uint64

	reserved uint64

	X30 uint64
	X0  uint64
}

// SPSRClearIRQMask clears the SPSR's I-bit (bit 7), unmasking IRQs for
// the process this trap frame is restored into. Called on IRQ exit
// per §9's resolution of the inconsistent masking behavior across
// source revisions.
func (tf *TrapFrame) SPSRClearIRQMask() {
	tf.SPSR &^= 1 << 7
}
