package trap

import (
	"testing"

	"github.com/soypat/pi3kernel/hal"
)

func TestDecodeSyndromeSvc(t *testing.T) {
	esr := uint32(ClassSvc)<<26 | 42
	s := DecodeSyndrome(esr)
	if s.Kind != SyndromeSvc || s.Imm16 != 42 {
		t.Fatalf("got %+v", s)
	}
}

func TestDecodeSyndromeDataAbort(t *testing.T) {
	// Data abort from a lower exception level, permission fault (0x0F).
	esr := uint32(ClassDataAbortLo)<<26 | 0x0F
	s := DecodeSyndrome(esr)
	if s.Kind != SyndromeDataAbort || s.Fault != FaultPermission || s.Level != 0 {
		t.Fatalf("got %+v", s)
	}
}

func TestFaultFromISSTotal(t *testing.T) {
	// Every possible low-6-bit value must classify to something, never panic.
	for v := uint32(0); v < 64; v++ {
		_ = FaultFromISS(v)
	}
}

func TestSPSRClearIRQMask(t *testing.T) {
	tf := &TrapFrame{SPSR: 1<<7 | 1<<6}
	tf.SPSRClearIRQMask()
	if tf.SPSR&(1<<7) != 0 {
		t.Fatal("I-bit not cleared")
	}
	if tf.SPSR&(1<<6) == 0 {
		t.Fatal("unrelated bits must be preserved")
	}
}

type fakeController struct {
	pending map[hal.Interrupt]bool
}

func (f *fakeController) Enable(hal.Interrupt)           {}
func (f *fakeController) Disable(hal.Interrupt)          {}
func (f *fakeController) IsPending(i hal.Interrupt) bool { return f.pending[i] }

func TestDispatchSvcRoutesToHandleSyscall(t *testing.T) {
	var gotNum uint16
	tf := &TrapFrame{}
	deps := Dependencies{
		HandleSyscall: func(num uint16, tf *TrapFrame) { gotNum = num },
	}
	esr := uint32(ClassSvc)<<26 | 1
	Dispatch(Info{Kind: KindSynchronous}, esr, tf, deps)
	if gotNum != 1 {
		t.Fatalf("got syscall num %d, want 1", gotNum)
	}
}

func TestDispatchUnknownSyncDropsToShellAndAdvancesELR(t *testing.T) {
	tf := &TrapFrame{ELR: 0x1000}
	called := false
	deps := Dependencies{DropToShell: func() { called = true }}
	Dispatch(Info{Kind: KindSynchronous}, 0, tf, deps)
	if tf.ELR != 0x1004 {
		t.Fatalf("ELR = %#x, want %#x", tf.ELR, 0x1004)
	}
	if !called {
		t.Fatal("expected DropToShell to be called")
	}
}

func TestDispatchIrqPollsEachSource(t *testing.T) {
	tf := &TrapFrame{}
	var handled []hal.Interrupt
	deps := Dependencies{
		Controller: &fakeController{pending: map[hal.Interrupt]bool{hal.Timer1: true, hal.Uart: true}},
		HandleIRQ:  func(i hal.Interrupt, tf *TrapFrame) { handled = append(handled, i) },
	}
	Dispatch(Info{Kind: KindIrq}, 0, tf, deps)
	if len(handled) != 2 || handled[0] != hal.Timer1 || handled[1] != hal.Uart {
		t.Fatalf("got %v", handled)
	}
}
