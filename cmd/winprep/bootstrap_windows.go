//go:build windows

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// nativeBinaryName is the 64-bit binary shipped next to the 32-bit
// one for deployment agents that can only launch x86 processes.
const nativeBinaryName = "winprep64.exe"

// maybeReexec hands over to the native binary when running under
// WOW64. Contract: same arguments, different executable path; the
// child's exit code becomes ours.
func maybeReexec() (int, bool) {
	var wow64 bool
	if err := windows.IsWow64Process(windows.CurrentProcess(), &wow64); err != nil || !wow64 {
		return 0, false
	}

	self, err := os.Executable()
	if err != nil {
		return 0, false
	}
	native := filepath.Join(filepath.Dir(self), nativeBinaryName)
	if _, err := os.Stat(native); err != nil {
		return 0, false
	}

	cmd := exec.Command(native, os.Args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exit, ok := err.(*exec.ExitError); ok {
			return exit.ExitCode(), true
		}
		return 1, true
	}
	return 0, true
}
