//go:build windows

package main

import (
	"syscall"
	"unsafe"
)

const (
	highPriorityClass        = 0x00000080
	aboveNormalPriorityClass = 0x00008000

	processPowerThrottling           = 4
	powerThrottlingExecutionSpeed    = 0x1
	powerThrottlingStateVersionFirst = 1
)

var (
	kernel32                  = syscall.NewLazyDLL("kernel32.dll")
	procGetCurrentProcess     = kernel32.NewProc("GetCurrentProcess")
	procSetPriorityClass      = kernel32.NewProc("SetPriorityClass")
	procSetProcessInformation = kernel32.NewProc("SetProcessInformation")
)

// raisePriority keeps the host side of a long search from being starved: it asks for
// high priority, falls back to above normal, and opts out of Efficiency Mode.
func raisePriority() error {
	handle, _, _ := procGetCurrentProcess.Call()

	if ret, _, _ := procSetPriorityClass.Call(handle, highPriorityClass); ret == 0 {
		if ret, _, err := procSetPriorityClass.Call(handle, aboveNormalPriorityClass); ret == 0 {
			return err
		}
	}

	// PROCESS_POWER_THROTTLING_STATE; a zero StateMask disables throttling.
	state := struct {
		Version     uint32
		ControlMask uint32
		StateMask   uint32
	}{
		Version:     powerThrottlingStateVersionFirst,
		ControlMask: powerThrottlingExecutionSpeed,
	}

	// Available on Windows 10 1709 and later.
	if err := procSetProcessInformation.Find(); err != nil {
		return nil
	}
	ret, _, err := procSetProcessInformation.Call(handle, processPowerThrottling,
		uintptr(unsafe.Pointer(&state)), unsafe.Sizeof(state))
	if ret == 0 {
		return err
	}
	return nil
}
