//go:build !windows

package workspace

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so a timeout
// can kill the whole tree, not just the shell.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
