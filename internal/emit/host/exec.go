//go:build darwin || freebsd || linux

// Package host maps finished machine code into executable memory for the
// fast-iteration host target. The loader takes a code buffer an emitter
// produced, flips its pages from writable to executable, and hands back a
// callable entry point.
package host

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"
)

// Code is one loaded, executable buffer. Release with Close; calling
// after Close faults.
type Code struct {
	mem   []byte
	entry uintptr
}

// Load copies code into fresh anonymous pages and makes them executable.
// The mapping is write-then-protect: pages are never writable and
// executable at the same time.
func Load(code []byte) (*Code, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("host: empty code buffer")
	}

	pageSize := unix.Getpagesize()
	allocSize := ((len(code) + pageSize - 1) / pageSize) * pageSize

	mem, err := unix.Mmap(-1, 0, allocSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("host: map code region: %w", err)
	}
	copy(mem, code)

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("host: protect code region: %w", err)
	}

	return &Code{mem: mem, entry: uintptr(unsafe.Pointer(&mem[0]))}, nil
}

// Entry returns the address of the first byte of the loaded code.
func (c *Code) Entry() uintptr {
	return c.entry
}

// Call invokes the entry with up to nine word-sized arguments using the
// platform calling convention and returns the first result register.
func (c *Code) Call(args ...uintptr) uintptr {
	if c.entry == 0 {
		panic("host: call on released code")
	}
	r1, _, _ := purego.SyscallN(c.entry, args...)
	return r1
}

// Close unmaps the code pages.
func (c *Code) Close() error {
	if c.mem == nil {
		return nil
	}
	err := unix.Munmap(c.mem)
	c.mem = nil
	c.entry = 0
	return err
}
