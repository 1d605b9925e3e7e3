//go:build windows

package utils

import (
	"os/exec"
	"syscall"
)

// Command creates a command that won't show a console window on Windows.
// The encode process, the snapshot mux and the hardware encoder probe go
// through this so none of them flash a console; internal/display's ddagrab
// probe calls exec.Command directly.
func Command(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
	return cmd
}
