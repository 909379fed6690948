// Package hal names the memory-mapped peripheral contracts the kernel
// core depends on without owning: GPIO, the system timer, the interrupt
// controller, and the mini-UART. Concrete drivers for a given board
// live outside this module; hal only fixes the interfaces so the
// allocator, scheduler, and trap dispatcher can be built and tested
// against fakes on a host.
package hal

// Function selects the mode of a GPIO pin (input, output, or one of the
// alternate peripheral functions multiplexed onto it).
type Function uint8

const (
	FunctionInput Function = iota
	FunctionOutput
	FunctionAlt0
	FunctionAlt1
	FunctionAlt2
	FunctionAlt3
	FunctionAlt4
	FunctionAlt5
)

// GPIO is the pin-level contract used by board bring-up code. Only the
// operations the kernel core touches are named here; everything else
// (pull up/down, detect edges, ...) belongs to the driver layer.
type GPIO interface {
	Set(pin int)
	Clear(pin int)
	FunctionSelect(pin int, fn Function)
}

// Timer is the free-running microsecond counter and one-shot compare
// register that drives preemption. CurrentTime never wraps within the
// lifetime of a boot for the purposes of this kernel.
type Timer interface {
	CurrentTime() uint64
	TickIn(usec uint32)
}

// Interrupt enumerates the IRQ sources the dispatcher polls on every
// IRQ exception, in the fixed order given by §4.6.
type Interrupt uint8

const (
	Timer1 Interrupt = iota
	Timer3
	Usb
	Gpio0
	Gpio1
	Gpio2
	Gpio3
	Uart
)

// Interrupts is the fixed poll order used by the dispatcher.
var Interrupts = [...]Interrupt{Timer1, Timer3, Usb, Gpio0, Gpio1, Gpio2, Gpio3, Uart}

// InterruptController is the GIC/IRQ-controller contract.
type InterruptController interface {
	Enable(i Interrupt)
	Disable(i Interrupt)
	IsPending(i Interrupt) bool
}

// UART is the mini-UART byte-stream contract used by the console and by
// the bootloader's XMODEM transfer.
type UART interface {
	ReadByte() (byte, error)
	WriteByte(b byte) error
	SetReadTimeout(ms int)
	HasByte() bool
	WaitForByte() byte
}
