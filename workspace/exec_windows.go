//go:build windows

package workspace

import "os/exec"

// setProcessGroup is a no-op on Windows; CommandContext's kill covers the
// cmd.exe child and WaitDelay prevents pipe hangs.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
