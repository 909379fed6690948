// Package kernel wires the allocator, FAT32 storage, scheduler and
// trap dispatcher together into a bootable unit. It is the one
// package that imports all the others.
package kernel

import (
	"errors"

	log "github.com/dsoprea/go-logging"

	"github.com/soypat/pi3kernel/hal"
	"github.com/soypat/pi3kernel/internal/allocator"
	"github.com/soypat/pi3kernel/internal/blockdev"
	"github.com/soypat/pi3kernel/internal/fat32"
	"github.com/soypat/pi3kernel/internal/proc"
	"github.com/soypat/pi3kernel/internal/trap"
)

// Config supplies everything Boot needs that the kernel cannot
// discover on its own: the memory window to carve the heap from, the
// raw storage device to mount a root filesystem from, and the
// peripheral drivers hal declares contracts for.
type Config struct {
	HeapWindow []byte
	HeapBase   uintptr
	RootDevice blockdev.BlockDevice

	GPIO       hal.GPIO
	Timer      hal.Timer
	Controller hal.InterruptController
	UART       hal.UART

	// ShellEntry is the shell process's entry point. On real hardware
	// this would be an address installed into the initial trap frame's
	// ELR and reached by eret; hosted here as a func so Start's
	// admit-then-switch wiring can be exercised without an assembly
	// trampoline. Start requires it to be set.
	ShellEntry func()
	ShellStack proc.Stack
}

// Kernel is a booted instance: its heap, its mounted root filesystem,
// and its process scheduler.
type Kernel struct {
	cfg       Config
	Heap      *allocator.Allocator
	Root      *fat32.FS
	Scheduler *proc.Scheduler
}

var ErrNoRootDevice = errors.New("kernel: no root device configured")

// ErrNoShellEntry is returned by Start when Config.ShellEntry is nil.
var ErrNoShellEntry = errors.New("kernel: no shell entry configured")

// Boot initializes the heap allocator, mounts the root filesystem, and
// constructs an empty scheduler. It does not start any process; Start
// admits the shell process and switches into it.
func Boot(cfg Config) (*Kernel, error) {
	if cfg.RootDevice == nil {
		return nil, ErrNoRootDevice
	}

	k := &Kernel{
		cfg:       cfg,
		Heap:      allocator.New(cfg.HeapWindow, cfg.HeapBase),
		Scheduler: proc.NewScheduler(),
	}

	fs, err := fat32.Mount(cfg.RootDevice)
	if err != nil {
		return nil, log.Wrap(err)
	}
	k.Root = fs

	return k, nil
}

// Start admits the shell process and performs the kernel's first
// scheduler switch into it. On real hardware the caller's
// context_restore would install the returned process's trap frame and
// eret; this hosted build has no assembly trampoline to do that, so
// Start stands in for it by invoking ShellEntry directly once the
// switch lands.
func (k *Kernel) Start() (*proc.Process, error) {
	if k.cfg.ShellEntry == nil {
		return nil, ErrNoShellEntry
	}
	shell := k.Admit(0, k.cfg.ShellStack)
	next, err := k.Scheduler.Switch(proc.State{Kind: proc.StateReady}, shell.TrapFrame)
	if err != nil {
		return nil, err
	}
	k.cfg.ShellEntry()
	return next, nil
}

// Dependencies returns the trap.Dependencies wiring this kernel's
// scheduler and syscall table into the exception dispatcher. syscalls
// is the kernel's syscall number to handler table; it is supplied by
// the caller because the set of syscalls is a userland-facing contract
// the kernel package itself doesn't need an opinion on beyond routing.
func (k *Kernel) Dependencies(syscalls map[uint16]func(tf *trap.TrapFrame), dropToShell func()) trap.Dependencies {
	return trap.Dependencies{
		Controller:  k.cfg.Controller,
		DropToShell: dropToShell,
		HandleSyscall: func(num uint16, tf *trap.TrapFrame) {
			if h, ok := syscalls[num]; ok {
				h(tf)
			}
		},
		HandleIRQ: func(i hal.Interrupt, tf *trap.TrapFrame) {
			if i == hal.Timer1 || i == hal.Timer3 {
				k.tick(tf)
			}
		},
	}
}

// tick runs one scheduler pass on a timer interrupt: the current
// process's trap frame is already tf (saved by the vector trampoline
// before Dispatch ran), so advancing the scheduler snapshots it into
// the outgoing process before selecting the next runnable one and
// letting the caller's context_restore install its trap frame in tf's
// place.
func (k *Kernel) tick(tf *trap.TrapFrame) {
	next, err := k.Scheduler.Switch(proc.State{Kind: proc.StateReady}, tf)
	if err != nil && k.Scheduler.Len() == 0 {
		return // no process admitted; tf is left as it is
	}
	for err != nil {
		// Nothing runnable: the outgoing process is already saved, so
		// keep polling until a waiting process becomes ready.
		next, err = k.Scheduler.Switch(proc.State{Kind: proc.StateReady}, tf)
	}
	*tf = *next.TrapFrame
}

// Admit creates a new process and adds it to the scheduler.
func (k *Kernel) Admit(entry uintptr, stack proc.Stack) *proc.Process {
	return k.Scheduler.Admit(entry, stack)
}
